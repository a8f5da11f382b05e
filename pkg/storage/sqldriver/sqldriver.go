// Package sqldriver implements storage.Driver on top of database/sql. Queries
// are built with ent's dialect-aware SQL builder, and the schema is created
// with ent's migration engine, so one implementation serves SQLite and
// PostgreSQL.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/dialect/sql/sqlgraph"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// Driver provides storage operations over a SQL database.
// It is database-agnostic and can be embedded by specific drivers.
type Driver struct {
	DB *sql.DB

	b *entsql.DialectBuilder
}

// Open wraps db for the given ent dialect name and creates any missing tables.
func Open(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	migrate, err := schema.NewMigrate(entsql.OpenDB(dialectName, db))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare schema migration: %w", err)
	}

	// Create only adds what is missing (tables, columns, indexes)
	if err := migrate.Create(ctx, Tables...); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{
		DB: db,
		b:  entsql.Dialect(dialectName),
	}, nil
}

// FindExact returns the answer of the earliest entry with exactly this question.
func (d *Driver) FindExact(ctx context.Context, question string) (string, bool, error) {
	query, args := d.b.Select("answer").
		From(d.b.Table(KnowledgeTable.Name)).
		Where(entsql.EQ("question", question)).
		OrderBy(entsql.Asc("id")).
		Limit(1).
		Query()

	var answer string
	err := d.DB.QueryRowContext(ctx, query, args...).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query knowledge: %w", err)
	}
	return answer, true, nil
}

// PutKnowledge inserts entry, or updates the earliest entry with the same question.
func (d *Driver) PutKnowledge(ctx context.Context, entry knowledge.Entry) (bool, error) {
	if entry.Question == "" {
		return false, errors.New("knowledge question must not be empty")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	created := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		query, args := d.b.Select("id").
			From(d.b.Table(KnowledgeTable.Name)).
			Where(entsql.EQ("question", entry.Question)).
			OrderBy(entsql.Asc("id")).
			Limit(1).
			Query()

		var id int
		err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			query, args = d.b.Insert(KnowledgeTable.Name).
				Columns("question", "answer", "created_at").
				Values(entry.Question, entry.Answer, entry.CreatedAt.UTC()).
				Query()
			created = true
		case err != nil:
			return err
		default:
			query, args = d.b.Update(KnowledgeTable.Name).
				Set("answer", entry.Answer).
				Where(entsql.EQ("id", id)).
				Query()
		}

		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to put knowledge: %w", err)
	}
	return created, nil
}

// CountKnowledge returns the number of knowledge entries.
func (d *Driver) CountKnowledge(ctx context.Context) (int, error) {
	query, args := d.b.Select(entsql.Count("*")).
		From(d.b.Table(KnowledgeTable.Name)).
		Query()

	var n int
	if err := d.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge: %w", err)
	}
	return n, nil
}

// AppendHistory inserts one history record.
func (d *Driver) AppendHistory(ctx context.Context, r *history.Record) error {
	if err := history.Prepare(r); err != nil {
		return err
	}

	query, args := d.b.Insert(HistoryTable.Name).
		Columns("id", "conversation_id", "question", "answer", "created_at", "user_id").
		Values(r.ID, r.ConversationID, r.Question, r.Answer, r.CreatedAt, r.UserID).
		Query()

	if _, err := d.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistoryByUser returns the user's records, newest first.
func (d *Driver) ListHistoryByUser(ctx context.Context, userID string) ([]*history.Record, error) {
	return d.listHistory(ctx, entsql.EQ("user_id", userID), entsql.Desc("created_at"))
}

// ListHistoryByConversation returns a conversation's records, oldest first.
func (d *Driver) ListHistoryByConversation(ctx context.Context, conversationID string) ([]*history.Record, error) {
	return d.listHistory(ctx, entsql.EQ("conversation_id", conversationID), entsql.Asc("created_at"))
}

// DeleteConversation removes a conversation in one transaction when the
// requester owns its earliest record.
func (d *Driver) DeleteConversation(ctx context.Context, conversationID, requesterID string) (int, error) {
	removed := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		query, args := d.b.Select("user_id").
			From(d.b.Table(HistoryTable.Name)).
			Where(entsql.EQ("conversation_id", conversationID)).
			OrderBy(entsql.Asc("created_at")).
			Limit(1).
			Query()

		var owner string
		err := tx.QueryRowContext(ctx, query, args...).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return history.ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != requesterID {
			return history.ErrPermissionDenied
		}

		query, args = d.b.Delete(HistoryTable.Name).
			Where(entsql.EQ("conversation_id", conversationID)).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)
		return nil
	})
	if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrPermissionDenied) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %w", err)
	}
	return removed, nil
}

// CreateUser inserts u.
func (d *Driver) CreateUser(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("cannot store nil user")
	}

	query, args := d.b.Insert(UsersTable.Name).
		Columns("id", "username", "password_hash", "role", "registered_at").
		Values(u.ID, u.Username, u.PasswordHash, u.Role, u.RegisteredAt.UTC()).
		Query()

	_, err := d.DB.ExecContext(ctx, query, args...)
	if sqlgraph.IsUniqueConstraintError(err) {
		return user.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername returns the user or user.ErrNotFound.
func (d *Driver) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	query, args := d.b.Select("id", "username", "password_hash", "role", "registered_at", "last_login_at").
		From(d.b.Table(UsersTable.Name)).
		Where(entsql.EQ("username", username)).
		Query()

	var (
		u         user.User
		lastLogin sql.NullTime
	)
	err := d.DB.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.RegisteredAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.RegisteredAt = u.RegisteredAt.UTC()
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		u.LastLoginAt = &t
	}
	return &u, nil
}

// TouchLogin sets the user's last login time.
func (d *Driver) TouchLogin(ctx context.Context, id string, at time.Time) error {
	query, args := d.b.Update(UsersTable.Name).
		Set("last_login_at", at.UTC()).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := d.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to touch login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to touch login: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) listHistory(ctx context.Context, where *entsql.Predicate, order string) ([]*history.Record, error) {
	query, args := d.b.Select("id", "user_id", "conversation_id", "question", "answer", "created_at").
		From(d.b.Table(HistoryTable.Name)).
		Where(where).
		OrderBy(order).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := make([]*history.Record, 0)
	for rows.Next() {
		r := &history.Record{}
		if err := rows.Scan(&r.ID, &r.UserID, &r.ConversationID, &r.Question, &r.Answer, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

func (d *Driver) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
