package memory

import (
	"context"
	"sync"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/session"
)

// SessionRepository keeps live onboarding sessions in process memory.
// Sessions are handed out by pointer; the usecase layer serializes wizard
// access per session.
type SessionRepository struct {
	mu    sync.RWMutex
	items map[string]*session.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		items: make(map[string]*session.Session),
	}
}

func (r *SessionRepository) Create(_ context.Context, item *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*session.Session, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, false, nil
	}

	return item, true, nil
}

func (r *SessionRepository) DeleteByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)

	return true, nil
}

func (r *SessionRepository) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged := 0
	for id, item := range r.items {
		if item.Expired(now) {
			delete(r.items, id)
			purged++
		}
	}

	return purged, nil
}

func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
