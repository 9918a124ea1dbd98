package backend

import (
	"context"

	"ledger/internal/services"
	"ledger/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready repository together with its optional event publisher.
type Result struct {
	Repository storage.Repository
	// Publisher is nil when AMQP is disabled or unreachable at startup.
	Publisher services.EventPublisher
	// Ready reports whether the store can serve requests.
	Ready   func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQPURL empty disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
