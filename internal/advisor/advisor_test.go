package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// cypherStore is a MemStore that pretends to speak Cypher.
type cypherStore struct {
	*graph.MemStore
	queries []string
	result  *graph.QueryResult
	err     error
}

func (s *cypherStore) Dialect() graph.Dialect { return graph.DialectCypher }

func (s *cypherStore) Query(_ context.Context, expr string) (*graph.QueryResult, error) {
	s.queries = append(s.queries, expr)
	return s.result, s.err
}

// scripted replies in order and records every request.
type scripted struct {
	replies  []string
	requests []Completion
}

func (s *scripted) Complete(_ context.Context, req Completion) (string, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func newStore(t *testing.T) *cypherStore {
	t.Helper()
	ctx := context.Background()
	mem := graph.NewMemStore()
	require.NoError(t, mem.UpsertVertex(ctx, graph.Vertex{Label: graph.LabelClass, Key: "c:@S@Shape", Props: graph.Props{graph.PropName: "Shape"}}))
	require.NoError(t, mem.UpsertVertex(ctx, graph.Vertex{Label: graph.LabelFunction, Key: "c:@S@Shape@F@area__1", Props: graph.Props{graph.PropName: "area"}}))
	require.NoError(t, mem.UpsertEdge(ctx, graph.Edge{From: "c:@S@Shape", Label: graph.EdgeContainsMethod, To: "c:@S@Shape@F@area__1"}))
	return &cypherStore{MemStore: mem}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestReadSchema(t *testing.T) {
	store := newStore(t)
	s, err := ReadSchema(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, graph.DialectCypher, s.Dialect)
	require.Len(t, s.Labels, 2)
	assert.Equal(t, graph.LabelClass, s.Labels[0].Label)
	assert.Equal(t, []graph.EdgeLabel{graph.EdgeContainsMethod}, s.Labels[0].EdgeLabels)
	assert.Equal(t, []string{"key", "name"}, s.Labels[0].Properties)
	assert.Empty(t, s.Labels[1].EdgeLabels)

	text := s.String()
	assert.Contains(t, text, "`Class` vertices can have the following edges: contains_method")
	assert.Contains(t, text, "`Function` vertices can have the following edges: (none)")
}

func TestQueryPrompt_Dialects(t *testing.T) {
	s := &Schema{Dialect: graph.DialectSQL}
	assert.Contains(t, QueryPrompt(s), "json_extract")
	assert.Contains(t, QueryPrompt(s), "SQLite SQL")

	s.Dialect = graph.DialectCypher
	assert.Contains(t, QueryPrompt(s), "MATCH (c:Vertex)")
	assert.NotContains(t, QueryPrompt(s), "json_extract")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MATCH (n) RETURN n", "MATCH (n) RETURN n"},
		{"```cypher\nMATCH (n) RETURN n\n```", "MATCH (n) RETURN n"},
		{"```\nSELECT 1\n```\n", "SELECT 1"},
		{"```SELECT 1```", "SELECT 1"},
		{"```MATCH (a)\nRETURN a```", "MATCH (a)\nRETURN a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), tt.in)
	}
}

func TestAsk(t *testing.T) {
	store := newStore(t)
	store.result = &graph.QueryResult{Columns: []string{"m.name"}, Rows: [][]any{{"area"}}}
	llm := &scripted{replies: []string{"```cypher\nMATCH (m:Vertex) RETURN m.name\n```", "Shape has one method: area."}}

	res, err := New(store, llm, nil).Ask(context.Background(), "Which methods does Shape have?")
	require.NoError(t, err)

	assert.Equal(t, "MATCH (m:Vertex) RETURN m.name", res.Query)
	assert.Equal(t, []string{"MATCH (m:Vertex) RETURN m.name"}, store.queries)
	assert.Equal(t, "Shape has one method: area.", res.Answer)
	assert.Empty(t, res.QueryError)

	require.Len(t, llm.requests, 2)
	assert.Contains(t, llm.requests[0].Messages[0].Content, "contains_method")
	assert.Contains(t, llm.requests[0].Messages[1].Content, "Which methods does Shape have?")
	assert.Equal(t, queryMaxTokens, llm.requests[0].MaxTokens)
	assert.Contains(t, llm.requests[1].Messages[1].Content, `[{"m.name":"area"}]`)
}

func TestAsk_QueryFailureStillAnswers(t *testing.T) {
	store := newStore(t)
	store.err = errors.New("parser exception")
	llm := &scripted{replies: []string{"MATCH bad", "I could not find that."}}

	res, err := New(store, llm, nil).Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "parser exception", res.QueryError)
	assert.Nil(t, res.Rows)
	assert.Contains(t, llm.requests[1].Messages[1].Content, "no data")
}

func TestGenerateQuery_NoDialect(t *testing.T) {
	_, err := New(graph.NewMemStore(), &scripted{}, nil).GenerateQuery(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoQueryLanguage)
}

func TestChatClient_OpenAI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 10, req.MaxTokens)
		require.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer ts.Close()

	c := NewChatClient(ts.URL+"/v1/", "gpt-4o", WithAPIKey("secret"))
	out, err := c.Complete(context.Background(), Completion{Messages: []Message{{Role: "user", Content: "hello"}}, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestChatClient_Azure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-08-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer ts.Close()

	c := NewChatClient(ts.URL+"/openai", "gpt-4o", WithAPIKey("secret"), WithAzureAPIVersion("2024-08-01-preview"))
	out, err := c.Complete(context.Background(), Completion{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestChatClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "HTTP 401"},
		{"api error", http.StatusOK, `{"error":{"message":"quota"}}`, "quota"},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyCompletion.Error()},
		{"bad json", http.StatusOK, `{`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := NewChatClient(ts.URL, "m").Complete(context.Background(), Completion{})
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
