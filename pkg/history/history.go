// Package history records every resolved question per user and conversation.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a conversation has no records.
	ErrNotFound = errors.New("conversation not found")

	// ErrPermissionDenied is returned when a user acts on a conversation they do not own.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrMissingConversation is returned when a record has no conversation id.
	ErrMissingConversation = errors.New("record has no conversation id")
)

// Record is one question/answer exchange. Records are never modified.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewRecord returns a record with a fresh id and the current UTC time.
func NewRecord(userID, conversationID, question, answer string) *Record {
	return &Record{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate checks the fields every stored record must have.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("nil record")
	}
	if r.ConversationID == "" {
		return ErrMissingConversation
	}
	if r.UserID == "" {
		return errors.New("record has no user id")
	}
	return nil
}

// Store persists history records.
type Store interface {
	// AppendHistory stores r. Missing ids and timestamps are filled in.
	AppendHistory(ctx context.Context, r *Record) error

	// ListHistoryByUser returns every record of userID, newest first.
	ListHistoryByUser(ctx context.Context, userID string) ([]*Record, error)

	// ListHistoryByConversation returns the records of one conversation, oldest first.
	ListHistoryByConversation(ctx context.Context, conversationID string) ([]*Record, error)

	// DeleteConversation removes every record of conversationID when
	// requesterID owns its earliest record, and returns how many were removed.
	DeleteConversation(ctx context.Context, conversationID, requesterID string) (int, error)
}

// CheckOwner returns ErrPermissionDenied when conversationID was opened by
// someone other than userID. A conversation with no records yet is free to
// claim.
func CheckOwner(ctx context.Context, s Store, conversationID, userID string) error {
	records, err := s.ListHistoryByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("reading conversation: %w", err)
	}
	if len(records) > 0 && records[0].UserID != userID {
		return ErrPermissionDenied
	}
	return nil
}

// Conversations reduces records to one entry per conversation: the earliest
// record, which carries the opening question. The result is sorted by that
// record's time, newest first.
func Conversations(records []*Record) []*Record {
	first := make(map[string]*Record)
	for _, r := range records {
		if r == nil {
			continue
		}
		cur, ok := first[r.ConversationID]
		if !ok || r.CreatedAt.Before(cur.CreatedAt) {
			first[r.ConversationID] = r
		}
	}

	out := make([]*Record, 0, len(first))
	for _, r := range first {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ConversationID < out[j].ConversationID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// Prepare fills in a missing id and timestamp and validates r.
func Prepare(r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	} else {
		r.CreatedAt = r.CreatedAt.UTC()
	}
	return nil
}
