package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

const (
	queryMaxTokens  = 1000
	queryTemp       = 0.2
	answerMaxTokens = 2000
	answerTemp      = 0.5
	// maxAnswerRows caps the rows handed to the answer prompt.
	maxAnswerRows = 200
)

// ErrNoQueryLanguage is returned when the store cannot run ad-hoc queries.
var ErrNoQueryLanguage = errors.New("advisor: store has no query language")

// Advisor connects a graph store to a language model.
type Advisor struct {
	store graph.Store
	llm   Completer
	log   *slog.Logger
}

// New creates an advisor. logger may be nil.
func New(store graph.Store, llm Completer, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Advisor{store: store, llm: llm, log: logger}
}

// Schema returns the current schema of the store.
func (a *Advisor) Schema(ctx context.Context) (*Schema, error) {
	return ReadSchema(ctx, a.store)
}

// GenerateQuery asks the model for a query answering question.
func (a *Advisor) GenerateQuery(ctx context.Context, question string) (string, error) {
	if a.store.Dialect() == graph.DialectNone {
		return "", ErrNoQueryLanguage
	}
	schema, err := a.Schema(ctx)
	if err != nil {
		return "", err
	}
	reply, err := a.llm.Complete(ctx, Completion{
		Messages: []Message{
			{Role: "system", Content: QueryPrompt(schema)},
			{Role: "user", Content: "Generate a query to help with: " + question},
		},
		MaxTokens:   queryMaxTokens,
		Temperature: queryTemp,
	})
	if err != nil {
		return "", err
	}
	q := stripFences(reply)
	if q == "" {
		return "", fmt.Errorf("advisor: model returned no query")
	}
	a.log.Debug("advisor.query", "dialect", schema.Dialect, "query", q)
	return q, nil
}

// Answer asks the model to answer question from the retrieved rows.
func (a *Advisor) Answer(ctx context.Context, question string, result *graph.QueryResult) (string, error) {
	data := "no data"
	if result != nil {
		rows := result.Maps()
		if len(rows) > maxAnswerRows {
			rows = rows[:maxAnswerRows]
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("advisor: marshal rows: %w", err)
		}
		data = string(b)
	}
	return a.llm.Complete(ctx, Completion{
		Messages: []Message{
			{Role: "system", Content: answerPrompt},
			{Role: "user", Content: fmt.Sprintf("User's question: %s\nData retrieved from the code graph: %s", question, data)},
		},
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemp,
	})
}

// Result is the outcome of Ask.
type Result struct {
	Query  string             `json:"query"`
	Rows   *graph.QueryResult `json:"rows,omitempty"`
	Answer string             `json:"answer"`
	// QueryError is set when the generated query failed; the answer is
	// then given without data.
	QueryError string `json:"queryError,omitempty"`
}

// Ask generates a query, runs it and answers question from its rows.
func (a *Advisor) Ask(ctx context.Context, question string) (*Result, error) {
	q, err := a.GenerateQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	res := &Result{Query: q}
	rows, err := a.store.Query(ctx, q)
	if err != nil {
		a.log.Warn("advisor.query_failed", "query", q, "err", err)
		res.QueryError = err.Error()
	} else {
		res.Rows = rows
	}
	if res.Answer, err = a.Answer(ctx, question, res.Rows); err != nil {
		return nil, err
	}
	return res, nil
}
