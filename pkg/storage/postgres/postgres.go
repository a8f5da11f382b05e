// Package postgres is the PostgreSQL storage driver, using pgx through
// database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

	"github.com/xiaomiproject/aikefu/pkg/storage/sqldriver"
)

// Driver stores users, history and knowledge in PostgreSQL.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver connects to dsn, which may be a keyword string
// ("host=db user=aikefu dbname=aikefu sslmode=disable") or a URI
// ("postgres://aikefu@db:5432/aikefu"), and migrates the schema. The
// server must answer a ping before NewDriver returns.
func NewDriver(ctx context.Context, dsn string) (*Driver, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	drv, err := sqldriver.Open(ctx, dialect.Postgres, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Driver{Driver: drv}, nil
}
