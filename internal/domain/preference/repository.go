package preference

import (
	"context"
	"errors"
)

// ErrRecordExists reports a create against a user that already submitted.
var ErrRecordExists = errors.New("preference record already exists")

// Repository exposes preference record persistence operations.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (Record, bool, error)
	Create(ctx context.Context, record Record) error
	Update(ctx context.Context, record Record) error
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
}
