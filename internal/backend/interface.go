// Package backend assembles the configured store and the optional mirror
// publisher.
package backend

import (
	"context"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/store"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is what a factory hands to the application.
type Result struct {
	Store store.Store
	// Publisher is nil when no broker is configured or it was unreachable.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates the backend described by a Config.
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

type Config struct {
	Type Type

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Postgres:
		return true
	default:
		return false
	}
}

// Persistent reports whether data survives a restart.
func (t Type) Persistent() bool {
	return t == SQLite || t == Postgres
}
