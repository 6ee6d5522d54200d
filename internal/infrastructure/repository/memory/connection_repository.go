package memory

import (
	"context"
	"sync"

	"github.com/openquest/onboarding-api/internal/domain/connection"
)

type ConnectionRepository struct {
	mu    sync.RWMutex
	items map[string]connection.Link
}

func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{
		items: make(map[string]connection.Link),
	}
}

func (r *ConnectionRepository) GetBySessionKey(_ context.Context, sessionKey string) (connection.Link, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.items[sessionKey]
	if !ok {
		return connection.Disconnected(), false, nil
	}

	return link, true, nil
}

func (r *ConnectionRepository) Upsert(_ context.Context, sessionKey string, link connection.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sessionKey] = link
	return nil
}
