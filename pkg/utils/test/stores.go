package testutils

import (
	"context"
	"sync"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
)

// CountingFinder wraps a knowledge.Finder and counts lookups. A non-nil Err
// fails every lookup.
type CountingFinder struct {
	Finder knowledge.Finder
	Err    error

	mu    sync.Mutex
	calls int
}

func (c *CountingFinder) FindExact(ctx context.Context, question string) (string, bool, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.Err != nil {
		return "", false, c.Err
	}
	if c.Finder == nil {
		return "", false, nil
	}
	return c.Finder.FindExact(ctx, question)
}

// Calls returns how many lookups ran.
func (c *CountingFinder) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// FailingHistory is a history.Store whose writes fail with Err.
type FailingHistory struct {
	history.Store
	Err error
}

func (f *FailingHistory) AppendHistory(context.Context, *history.Record) error {
	return f.Err
}
