package tokenstore

import (
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Vault holds short-lived secrets for exactly one consumer per write. An
// entry is removed on first read; expired entries read as absent. Values
// never leave process memory.
type Vault struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewVault(ttl time.Duration) *Vault {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Vault{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores the value under key, replacing any previous entry. A fresh
// authorization cycle starts a fresh entry.
func (v *Vault) Put(key, value string) {
	if key == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.purgeExpired(now)
	v.entries[key] = entry{value: value, expiresAt: now.Add(v.ttl)}
}

// TakeAndClear returns the stored value and removes it, so a second take
// yields nothing.
func (v *Vault) TakeAndClear(key string) (string, bool) {
	if key == "" {
		return "", false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[key]
	if !ok {
		return "", false
	}
	delete(v.entries, key)

	if !e.expiresAt.After(v.now()) {
		return "", false
	}

	return e.value, true
}

// Clear drops the entry without reading it.
func (v *Vault) Clear(key string) {
	if key == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.entries, key)
}

func (v *Vault) purgeExpired(now time.Time) {
	for key, e := range v.entries {
		if !e.expiresAt.After(now) {
			delete(v.entries, key)
		}
	}
}
