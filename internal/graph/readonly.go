package graph

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrReadOnly is returned by Query for statements that would change the graph.
var ErrReadOnly = errors.New("graph: query would modify the graph")

// cypherWriteClauses are the Cypher clauses that write data or schema, change
// the database, or manage transactions.
var cypherWriteClauses = map[string]bool{
	"CREATE": true, "MERGE": true, "SET": true, "DELETE": true, "DETACH": true,
	"REMOVE": true, "DROP": true, "ALTER": true, "COPY": true, "LOAD": true,
	"INSTALL": true, "ATTACH": true, "USE": true, "IMPORT": true, "EXPORT": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "CHECKPOINT": true,
}

// checkReadOnlyCypher rejects statements that contain a write clause outside
// string literals, quoted identifiers and comments. Words that follow "." or
// ":" are property names and labels, not clauses.
func checkReadOnlyCypher(expr string) error {
	rs := []rune(expr)
	prev := ' '
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\'' || r == '"' || r == '`':
			i = skipQuoted(rs, i)
			prev = 'x'
			continue
		case r == '/' && i+1 < len(rs) && rs[i+1] == '/':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
			continue
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			for i += 2; i+1 < len(rs) && (rs[i] != '*' || rs[i+1] != '/'); i++ {
			}
			i += 2
			continue
		case isWordRune(r):
			start := i
			for i < len(rs) && isWordRune(rs[i]) {
				i++
			}
			word := strings.ToUpper(string(rs[start:i]))
			if prev != '.' && prev != ':' && cypherWriteClauses[word] {
				return fmt.Errorf("%w: %s clause", ErrReadOnly, word)
			}
			prev = 'x'
			continue
		}
		if !unicode.IsSpace(r) {
			prev = r
		}
		i++
	}
	return nil
}

// skipQuoted returns the index just past the literal opened at rs[i].
func skipQuoted(rs []rune, i int) int {
	q := rs[i]
	for i++; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case q:
			return i + 1
		}
	}
	return i
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
