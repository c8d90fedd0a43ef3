// Package catalog lists the problems a contest can be played on. Problem
// content itself is served elsewhere.
package catalog

import (
	"context"
	"strings"
)

type Problem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Static is a fixed problem list.
type Static struct {
	problems []Problem
}

func NewStatic(ids ...string) *Static {
	problems := make([]Problem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		problems = append(problems, Problem{ID: id, Name: DisplayName(id)})
	}
	return &Static{problems: problems}
}

func (s *Static) Problems(context.Context) ([]Problem, error) {
	return append([]Problem(nil), s.problems...), nil
}

func (s *Static) ListAvailableProblemIDs(context.Context) ([]string, error) {
	return ids(s.problems), nil
}

// DisplayName turns a slug like "find-maximum" into "Find Maximum". Dashes
// become spaces and every word starts upper-case, a word being a run of
// ASCII letters, digits and underscores.
func DisplayName(id string) string {
	b := []byte(strings.ReplaceAll(id, "-", " "))
	prevWord := false
	for i, c := range b {
		word := isWordByte(c)
		if word && !prevWord && 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		prevWord = word
	}
	return string(b)
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func ids(problems []Problem) []string {
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = p.ID
	}
	return out
}
