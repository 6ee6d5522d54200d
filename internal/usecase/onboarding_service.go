package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/domain/session"
	"github.com/openquest/onboarding-api/internal/platform/id"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

// SessionState is the snapshot handed back after every wizard operation.
type SessionState struct {
	SessionID   string
	ExpiresAt   time.Time
	Snapshot    preference.Snapshot
	Submittable []preference.Skill
}

type OnboardingService struct {
	sessions   session.Repository
	idGen      id.Generator
	sessionTTL time.Duration
	logger     *logging.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewOnboardingService(
	sessions session.Repository,
	idGen id.Generator,
	sessionTTL time.Duration,
	logger *logging.Logger,
) *OnboardingService {
	if logger == nil {
		logger = logging.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &OnboardingService{
		sessions:   sessions,
		idGen:      idGen,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *OnboardingService) StartSession(ctx context.Context) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.StartSession")
	defer span.End()

	sessionID, err := s.idGen.NewID()
	if err != nil {
		return SessionState{}, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now().UTC()
	item := &session.Session{
		ID:         sessionID,
		Wizard:     preference.NewWizard(),
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	item.Wizard.Subscribe(func(snap preference.Snapshot) {
		s.logger.Debug("wizard state changed",
			"session_id", sessionID,
			"step", snap.Step,
			"languages", len(snap.Languages),
			"skills", len(snap.Skills),
		)
	})

	if err := s.sessions.Create(ctx, item); err != nil {
		return SessionState{}, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "onboarding session started", "session_id", sessionID)

	return stateOf(item), nil
}

func (s *OnboardingService) GetState(ctx context.Context, sessionID string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.GetState")
	defer span.End()

	var out SessionState
	err := s.withSession(ctx, sessionID, func(item *session.Session) error {
		out = stateOf(item)
		return nil
	})
	return out, err
}

func (s *OnboardingService) EndSession(ctx context.Context, sessionID string) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.EndSession")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	deleted, err := s.sessions.DeleteByID(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if deleted {
		s.forgetLock(sessionID)
	}
	return deleted, nil
}

// PurgeExpired drops sessions past their deadline. The app runs this on a
// ticker; handlers never call it.
func (s *OnboardingService) PurgeExpired(ctx context.Context) (int, error) {
	purged, err := s.sessions.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "expired onboarding sessions purged", "count", purged)
	}
	return purged, nil
}

func (s *OnboardingService) SetStep(ctx context.Context, sessionID string, step int) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.SetStep")
	defer span.End()

	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.SetStep(step)
	})
}

func (s *OnboardingService) NextStep(ctx context.Context, sessionID string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.NextStep")
	defer span.End()

	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.NextStep()
	})
}

func (s *OnboardingService) PrevStep(ctx context.Context, sessionID string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.PrevStep")
	defer span.End()

	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.PrevStep()
	})
}

func (s *OnboardingService) ToggleLanguage(ctx context.Context, sessionID, language string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.ToggleLanguage")
	defer span.End()

	if strings.TrimSpace(language) == "" {
		return SessionState{}, fmt.Errorf("%w: language is required", ErrInvalidInput)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.ToggleLanguage(language)
	})
}

func (s *OnboardingService) AddSkill(ctx context.Context, sessionID, name, familiarity string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.AddSkill")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return SessionState{}, fmt.Errorf("%w: skill name is required", ErrInvalidInput)
	}
	level := preference.Familiarity(strings.ToLower(strings.TrimSpace(familiarity)))
	if _, ok := preference.AllFamiliarities[level]; !ok {
		return SessionState{}, fmt.Errorf("%w: invalid familiarity %q", ErrInvalidInput, familiarity)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.AddSkill(name, level)
	})
}

func (s *OnboardingService) RemoveSkill(ctx context.Context, sessionID, name string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.RemoveSkill")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return SessionState{}, fmt.Errorf("%w: skill name is required", ErrInvalidInput)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.RemoveSkill(name)
	})
}

func (s *OnboardingService) UpdateSkillFamiliarity(ctx context.Context, sessionID, name, familiarity string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.UpdateSkillFamiliarity")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return SessionState{}, fmt.Errorf("%w: skill name is required", ErrInvalidInput)
	}
	level := preference.Familiarity(strings.ToLower(strings.TrimSpace(familiarity)))
	if _, ok := preference.AllFamiliarities[level]; !ok {
		return SessionState{}, fmt.Errorf("%w: invalid familiarity %q", ErrInvalidInput, familiarity)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.UpdateSkillFamiliarity(name, level)
	})
}

func (s *OnboardingService) ToggleIssueInterest(ctx context.Context, sessionID, tag string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.ToggleIssueInterest")
	defer span.End()

	if strings.TrimSpace(tag) == "" {
		return SessionState{}, fmt.Errorf("%w: interest tag is required", ErrInvalidInput)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.ToggleIssueInterest(preference.IssueInterest(strings.ToLower(strings.TrimSpace(tag))))
	})
}

func (s *OnboardingService) ToggleProjectInterest(ctx context.Context, sessionID, tag string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.ToggleProjectInterest")
	defer span.End()

	if strings.TrimSpace(tag) == "" {
		return SessionState{}, fmt.Errorf("%w: interest tag is required", ErrInvalidInput)
	}
	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.ToggleProjectInterest(preference.ProjectInterest(strings.ToLower(strings.TrimSpace(tag))))
	})
}

func (s *OnboardingService) ResetPreferences(ctx context.Context, sessionID string) (SessionState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OnboardingService.ResetPreferences")
	defer span.End()

	return s.mutate(ctx, sessionID, func(w *preference.Wizard) {
		w.ResetPreferences()
	})
}

func (s *OnboardingService) mutate(ctx context.Context, sessionID string, apply func(*preference.Wizard)) (SessionState, error) {
	var out SessionState
	err := s.withSession(ctx, sessionID, func(item *session.Session) error {
		apply(item.Wizard)
		out = stateOf(item)
		return nil
	})
	return out, err
}

// withSession serializes all wizard access for one session. The wizard type
// itself is not goroutine safe.
func (s *OnboardingService) withSession(ctx context.Context, sessionID string, fn func(*session.Session) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	item, exists, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: session not found", ErrNotFound)
	}

	now := s.now().UTC()
	if item.Expired(now) {
		if _, err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
			return fmt.Errorf("delete expired session: %w", err)
		}
		s.forgetLock(sessionID)
		return fmt.Errorf("%w: session expired", ErrNotFound)
	}
	item.LastSeenAt = now

	return fn(item)
}

func (s *OnboardingService) lockSession(sessionID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *OnboardingService) forgetLock(sessionID string) {
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()
}

func stateOf(item *session.Session) SessionState {
	return SessionState{
		SessionID:   item.ID,
		ExpiresAt:   item.ExpiresAt,
		Snapshot:    item.Wizard.Snapshot(),
		Submittable: item.Wizard.SubmittableSkills(),
	}
}
