// Package cache holds previously resolved answers keyed by the exact question text.
package cache

import "context"

// Cache maps a question to the answer last resolved for it.
type Cache interface {
	// Lookup returns the cached answer. ok is false on a miss.
	Lookup(ctx context.Context, question string) (answer string, ok bool, err error)

	// Store records answer for question, replacing any earlier value.
	Store(ctx context.Context, question, answer string) error
}
