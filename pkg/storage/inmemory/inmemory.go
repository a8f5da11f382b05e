// Package inmemory provides a map-backed storage driver for tests and
// single-process deployments.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// Driver implements storage.Driver in memory.
type Driver struct {
	// mu guards every collection below
	mu sync.RWMutex

	// knowledge holds entries in insertion order
	knowledge []knowledge.Entry
	nextID    int

	// records holds history in insertion order
	records []*history.Record

	// users is keyed by username
	users map[string]*user.User
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		users: make(map[string]*user.User),
	}
}

// FindExact returns the answer of the first entry with exactly this question.
func (s *Driver) FindExact(_ context.Context, question string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.knowledge {
		if e.Question == question {
			return e.Answer, true, nil
		}
	}
	return "", false, nil
}

// PutKnowledge inserts entry or updates the answer of the first matching entry.
func (s *Driver) PutKnowledge(_ context.Context, entry knowledge.Entry) (bool, error) {
	if entry.Question == "" {
		return false, errors.New("knowledge question must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.knowledge {
		if s.knowledge[i].Question == entry.Question {
			s.knowledge[i].Answer = entry.Answer
			return false, nil
		}
	}

	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.knowledge = append(s.knowledge, entry)
	return true, nil
}

// CountKnowledge returns the number of entries.
func (s *Driver) CountKnowledge(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.knowledge), nil
}

// AppendHistory stores a copy of r.
func (s *Driver) AppendHistory(_ context.Context, r *history.Record) error {
	if err := history.Prepare(r); err != nil {
		return err
	}

	cp := *r

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, &cp)
	return nil
}

// ListHistoryByUser returns the user's records, newest first.
func (s *Driver) ListHistoryByUser(_ context.Context, userID string) ([]*history.Record, error) {
	out := s.filter(func(r *history.Record) bool { return r.UserID == userID })

	// records are stored oldest first, so reversing keeps insertion order
	// as the tie break for equal timestamps
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListHistoryByConversation returns a conversation's records, oldest first.
func (s *Driver) ListHistoryByConversation(_ context.Context, conversationID string) ([]*history.Record, error) {
	out := s.filter(func(r *history.Record) bool { return r.ConversationID == conversationID })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteConversation removes a conversation under a single lock.
func (s *Driver) DeleteConversation(_ context.Context, conversationID, requesterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest *history.Record
	for _, r := range s.records {
		if r.ConversationID != conversationID {
			continue
		}
		if earliest == nil || r.CreatedAt.Before(earliest.CreatedAt) {
			earliest = r
		}
	}
	if earliest == nil {
		return 0, history.ErrNotFound
	}
	if earliest.UserID != requesterID {
		return 0, history.ErrPermissionDenied
	}

	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.ConversationID == conversationID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept

	return removed, nil
}

// CreateUser stores a copy of u.
func (s *Driver) CreateUser(_ context.Context, u *user.User) error {
	if u == nil {
		return errors.New("cannot store nil user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return user.ErrUsernameTaken
	}
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

// GetUserByUsername returns a copy of the stored user.
func (s *Driver) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// TouchLogin sets the user's last login time.
func (s *Driver) TouchLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			at = at.UTC()
			u.LastLoginAt = &at
			return nil
		}
	}
	return user.ErrNotFound
}

// Close is a no-op.
func (s *Driver) Close() error {
	return nil
}

func (s *Driver) filter(keep func(*history.Record) bool) []*history.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*history.Record, 0)
	for _, r := range s.records {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}
