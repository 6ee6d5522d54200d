package session

import (
	"errors"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/preference"
)

var ErrExpired = errors.New("session expired")

// Session is an anonymous onboarding session. It exists before any account
// is created and owns the wizard state for one visitor.
type Session struct {
	ID         string
	Wizard     *preference.Wizard
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
