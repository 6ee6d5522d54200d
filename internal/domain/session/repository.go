package session

import (
	"context"
	"time"
)

// Repository stores live onboarding sessions. Implementations hand out the
// stored *Session; callers are responsible for serializing wizard access.
type Repository interface {
	Create(ctx context.Context, item *Session) error
	GetByID(ctx context.Context, id string) (*Session, bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
