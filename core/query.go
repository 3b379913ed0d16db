package core

import (
	"strings"
	"time"
)

// Query is one raw user request bound to a conversation thread. Immutable
// once created.
type Query struct {
	Text        string    `json:"text"`
	ThreadID    string    `json:"thread_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewQuery stamps a query with the current UTC time.
func NewQuery(threadID, text string) Query {
	return Query{Text: text, ThreadID: threadID, SubmittedAt: time.Now().UTC()}
}

// IsEmpty reports whether the query carries no usable text. Empty queries are
// rejected with ErrInvalidQuery before any routing happens.
func (q Query) IsEmpty() bool { return strings.TrimSpace(q.Text) == "" }
