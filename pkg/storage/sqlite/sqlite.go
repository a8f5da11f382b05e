// Package sqlite is the SQLite storage driver, using mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaomiproject/aikefu/pkg/storage/sqldriver"
)

// Driver stores users, history and knowledge in a SQLite file, or in memory
// for ":memory:".
type Driver struct {
	*sqldriver.Driver
}

// NewDriver opens path with foreign keys enforced and migrates the schema.
func NewDriver(ctx context.Context, path string) (*Driver, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	// One connection: ":memory:" stays a single database and writers never
	// see SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	drv, err := sqldriver.Open(ctx, dialect.SQLite, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Driver{Driver: drv}, nil
}

// withForeignKeys adds go-sqlite3's _fk option unless the DSN already sets it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_fk=") || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_fk=1"
}
