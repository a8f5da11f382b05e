// Package storage defines the persistence backend shared by the knowledge,
// history and user stores.
package storage

import (
	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// Supported storage driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Driver is one storage backend serving every store. Implementations must be
// safe for concurrent use.
type Driver interface {
	knowledge.Store
	history.Store
	user.Store

	// Close closes the store and releases any resources.
	Close() error
}
