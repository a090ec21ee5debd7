// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with connection management.
package postgres

import (
	"fmt"

	"github.com/turbofuel/fueltwin/internal/database"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"

	"gorm.io/gorm"
)

// MaxOpenConns caps the connection pool of a backend-owned connection.
const MaxOpenConns = 10

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps  gormstorage.Dependencies
	owned *gorm.DB
}

// New creates a new Postgres storage backend. When deps.DB is nil, Init
// connects using the db.* configuration keys.
func New(deps gormstorage.Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed, then initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.PostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(MaxOpenConns)
		b.deps.DB = db
		b.owned = db
	}

	b.Backend = gormstorage.New(b.deps)
	return b.Backend.Init()
}

// Close flushes the embedded backend and closes a connection opened by Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.owned != nil {
		if sqlDB, dbErr := b.owned.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		b.owned = nil
	}
	return err
}
