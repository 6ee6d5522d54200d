package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openquest/onboarding-api/internal/domain/preference"
)

type PreferenceRepository struct {
	mu    sync.RWMutex
	items map[string]preference.Record
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{
		items: make(map[string]preference.Record),
	}
}

func (r *PreferenceRepository) GetByUserID(_ context.Context, userID string) (preference.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID]
	if !ok {
		return preference.Record{}, false, nil
	}

	return cloneRecord(item), true, nil
}

func (r *PreferenceRepository) Create(_ context.Context, record preference.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[record.UserID]; exists {
		return fmt.Errorf("%w: user_id=%s", preference.ErrRecordExists, record.UserID)
	}
	r.items[record.UserID] = cloneRecord(record)

	return nil
}

func (r *PreferenceRepository) Update(_ context.Context, record preference.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[record.UserID] = cloneRecord(record)
	return nil
}

func (r *PreferenceRepository) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[userID]; !ok {
		return false, nil
	}
	delete(r.items, userID)

	return true, nil
}

func cloneRecord(in preference.Record) preference.Record {
	out := in
	out.Languages = append([]string(nil), in.Languages...)
	out.Skills = append([]preference.Skill(nil), in.Skills...)
	out.IssueInterests = append([]preference.IssueInterest(nil), in.IssueInterests...)
	out.ProjectInterests = append([]preference.ProjectInterest(nil), in.ProjectInterests...)

	return out
}
