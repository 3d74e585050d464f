package api

import (
	"context"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchRoster(ctx context.Context) ([]domain.RosterEntry, error)
	FetchSnapshot(ctx context.Context, snapshot string) ([]domain.Task, error)
	SaveSnapshot(ctx context.Context, snapshot string, tasks []domain.Task) error
	EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// AddMany records a batch of keys and reports which were newly added.
	AddMany(ctx context.Context, userID string, keys []string) ([]bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}
