// Package knowledge defines the curated question/answer store consulted
// before any LLM call.
package knowledge

import (
	"context"
	"time"
)

// Entry is one curated question and its answer.
type Entry struct {
	ID        int       `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Finder looks up answers by exact question text.
type Finder interface {
	// FindExact returns the answer of the earliest entry whose question equals
	// question byte for byte. ok is false when there is none.
	FindExact(ctx context.Context, question string) (answer string, ok bool, err error)
}

// Store is a Finder that can also be populated.
type Store interface {
	Finder

	// PutKnowledge inserts entry, or replaces the answer of the existing entry
	// with the same question. created reports whether a new entry was added.
	PutKnowledge(ctx context.Context, entry Entry) (created bool, err error)

	// CountKnowledge returns the number of stored entries.
	CountKnowledge(ctx context.Context) (int, error)
}
