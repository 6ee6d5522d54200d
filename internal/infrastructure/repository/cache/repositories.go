package cache

import (
	"context"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	basecache "github.com/openquest/onboarding-api/internal/platform/cache"
)

// PreferenceRepository is a read-through cache in front of another
// preference repository. Reads are served from the store until the TTL
// lapses; every write invalidates the owning user's entry first.
type PreferenceRepository struct {
	next  preference.Repository
	cache *basecache.Store
}

func NewPreferenceRepository(next preference.Repository, cache *basecache.Store) *PreferenceRepository {
	return &PreferenceRepository{next: next, cache: cache}
}

func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID string) (preference.Record, bool, error) {
	key := preferenceKey(userID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		record, exists, err := r.next.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return cachedPreference{record: record, exists: exists}, nil
	})
	if err != nil {
		return preference.Record{}, false, err
	}

	cached, _ := v.(cachedPreference)
	return cached.record, cached.exists, nil
}

func (r *PreferenceRepository) Create(ctx context.Context, record preference.Record) error {
	if err := r.next.Create(ctx, record); err != nil {
		return err
	}
	r.cache.Delete(ctx, preferenceKey(record.UserID))
	return nil
}

func (r *PreferenceRepository) Update(ctx context.Context, record preference.Record) error {
	if err := r.next.Update(ctx, record); err != nil {
		return err
	}
	r.cache.Delete(ctx, preferenceKey(record.UserID))
	return nil
}

func (r *PreferenceRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	deleted, err := r.next.DeleteByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	r.cache.Delete(ctx, preferenceKey(userID))
	return deleted, nil
}

type cachedPreference struct {
	record preference.Record
	exists bool
}

func preferenceKey(userID string) string {
	return "preference:user:" + userID
}
