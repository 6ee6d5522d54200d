package connection

import "context"

// Repository exposes durable connection record persistence. Records survive
// process restarts; the access token never reaches this store.
type Repository interface {
	GetBySessionKey(ctx context.Context, sessionKey string) (Link, bool, error)
	Upsert(ctx context.Context, sessionKey string, link Link) error
}
