package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/infrastructure/repository/memory"
	"github.com/openquest/onboarding-api/internal/platform/id"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

func newOnboardingServiceForTest() (*OnboardingService, *memory.SessionRepository) {
	repo := memory.NewSessionRepository()
	svc := NewOnboardingService(repo, id.NewRandomGenerator(), time.Hour, logging.NewNop())
	return svc, repo
}

func TestOnboardingService_StartSession(t *testing.T) {
	svc, repo := newOnboardingServiceForTest()

	state, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if state.SessionID == "" {
		t.Fatalf("expected non-empty session id")
	}
	if state.Snapshot.Step != preference.StepWelcome {
		t.Fatalf("expected new session at step %d, got %d", preference.StepWelcome, state.Snapshot.Step)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected one stored session, got %d", repo.Len())
	}
}

func TestOnboardingService_UnknownSession(t *testing.T) {
	svc, _ := newOnboardingServiceForTest()

	if _, err := svc.GetState(t.Context(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
	if _, err := svc.NextStep(t.Context(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
	if _, err := svc.GetState(t.Context(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank session id, got %v", err)
	}
}

func TestOnboardingService_ExpiredSessionIsGone(t *testing.T) {
	svc, repo := newOnboardingServiceForTest()

	state, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := svc.GetState(t.Context(), state.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected expired session to be deleted, got %d stored", repo.Len())
	}
}

func TestOnboardingService_StepNavigation(t *testing.T) {
	svc, _ := newOnboardingServiceForTest()
	start, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}

	state, err := svc.SetStep(t.Context(), start.SessionID, preference.StepSkills)
	if err != nil {
		t.Fatalf("set step failed: %v", err)
	}
	if state.Snapshot.Step != preference.StepSkills {
		t.Fatalf("expected step %d, got %d", preference.StepSkills, state.Snapshot.Step)
	}

	for i := 0; i < preference.TotalSteps+3; i++ {
		state, err = svc.NextStep(t.Context(), start.SessionID)
		if err != nil {
			t.Fatalf("next step failed: %v", err)
		}
	}
	if state.Snapshot.Step != preference.TotalSteps {
		t.Fatalf("expected saturation at %d, got %d", preference.TotalSteps, state.Snapshot.Step)
	}

	for i := 0; i < preference.TotalSteps+3; i++ {
		state, err = svc.PrevStep(t.Context(), start.SessionID)
		if err != nil {
			t.Fatalf("prev step failed: %v", err)
		}
	}
	if state.Snapshot.Step != 0 {
		t.Fatalf("expected saturation at 0, got %d", state.Snapshot.Step)
	}
}

func TestOnboardingService_PreferenceMutations(t *testing.T) {
	svc, _ := newOnboardingServiceForTest()
	start, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	sid := start.SessionID

	if _, err := svc.ToggleLanguage(t.Context(), sid, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank language, got %v", err)
	}

	state, err := svc.ToggleLanguage(t.Context(), sid, "python")
	if err != nil {
		t.Fatalf("toggle language failed: %v", err)
	}
	if len(state.Snapshot.Languages) != 1 || state.Snapshot.Languages[0] != "python" {
		t.Fatalf("unexpected languages after toggle: %+v", state.Snapshot.Languages)
	}

	if _, err := svc.AddSkill(t.Context(), sid, "react", "wizard-level"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad familiarity, got %v", err)
	}

	state, err = svc.AddSkill(t.Context(), sid, "react", "advanced")
	if err != nil {
		t.Fatalf("add skill failed: %v", err)
	}
	if len(state.Snapshot.Skills) != 1 || state.Snapshot.Skills[0].Familiarity != preference.FamiliarityAdvanced {
		t.Fatalf("unexpected skills after add: %+v", state.Snapshot.Skills)
	}

	state, err = svc.AddSkill(t.Context(), sid, "react", "beginner")
	if err != nil {
		t.Fatalf("re-add skill failed: %v", err)
	}
	if state.Snapshot.Skills[0].Familiarity != preference.FamiliarityAdvanced {
		t.Fatalf("expected first write to win, got %+v", state.Snapshot.Skills)
	}

	state, err = svc.UpdateSkillFamiliarity(t.Context(), sid, "react", "expert")
	if err != nil {
		t.Fatalf("update familiarity failed: %v", err)
	}
	if state.Snapshot.Skills[0].Familiarity != preference.FamiliarityExpert {
		t.Fatalf("expected expert after update, got %+v", state.Snapshot.Skills)
	}

	state, err = svc.ToggleIssueInterest(t.Context(), sid, "bug_fix")
	if err != nil {
		t.Fatalf("toggle issue interest failed: %v", err)
	}
	if len(state.Snapshot.IssueInterests) != 1 {
		t.Fatalf("unexpected issue interests: %+v", state.Snapshot.IssueInterests)
	}

	// Unknown tags pass through the service and are dropped by the wizard.
	state, err = svc.ToggleProjectInterest(t.Context(), sid, "not-a-real-tag")
	if err != nil {
		t.Fatalf("toggle project interest failed: %v", err)
	}
	if len(state.Snapshot.ProjectInterests) != 0 {
		t.Fatalf("expected unknown project tag to be ignored, got %+v", state.Snapshot.ProjectInterests)
	}

	state, err = svc.RemoveSkill(t.Context(), sid, "react")
	if err != nil {
		t.Fatalf("remove skill failed: %v", err)
	}
	if len(state.Snapshot.Skills) != 0 {
		t.Fatalf("expected no skills after removal, got %+v", state.Snapshot.Skills)
	}

	state, err = svc.ResetPreferences(t.Context(), sid)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if state.Snapshot.Step != 0 || len(state.Snapshot.Languages) != 0 || len(state.Snapshot.IssueInterests) != 0 {
		t.Fatalf("expected cleared state after reset, got %+v", state.Snapshot)
	}
}

func TestOnboardingService_SubmittableSkillsInState(t *testing.T) {
	svc, _ := newOnboardingServiceForTest()
	start, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}

	if _, err := svc.AddSkill(t.Context(), start.SessionID, "docker", "intermediate"); err != nil {
		t.Fatalf("add skill failed: %v", err)
	}
	state, err := svc.AddSkill(t.Context(), start.SessionID, "postgres", "expert")
	if err != nil {
		t.Fatalf("add skill failed: %v", err)
	}

	if len(state.Submittable) != 2 {
		t.Fatalf("expected 2 submittable skills, got %d", len(state.Submittable))
	}
	if state.Submittable[0].Name != "docker" || state.Submittable[1].Name != "postgres" {
		t.Fatalf("expected insertion order, got %+v", state.Submittable)
	}
	if state.Submittable[0].Category != preference.SkillCategoryDevOps {
		t.Fatalf("unexpected docker category: %s", state.Submittable[0].Category)
	}
}

func TestOnboardingService_EndSession(t *testing.T) {
	svc, repo := newOnboardingServiceForTest()
	start, err := svc.StartSession(t.Context())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}

	deleted, err := svc.EndSession(t.Context(), start.SessionID)
	if err != nil {
		t.Fatalf("end session failed: %v", err)
	}
	if !deleted {
		t.Fatalf("expected session to be deleted")
	}
	if repo.Len() != 0 {
		t.Fatalf("expected empty repo after delete, got %d", repo.Len())
	}

	deleted, err = svc.EndSession(t.Context(), start.SessionID)
	if err != nil {
		t.Fatalf("second end session errored: %v", err)
	}
	if deleted {
		t.Fatalf("expected second delete to report false")
	}
}

func TestOnboardingService_PurgeExpired(t *testing.T) {
	svc, repo := newOnboardingServiceForTest()
	if _, err := svc.StartSession(t.Context()); err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if _, err := svc.StartSession(t.Context()); err != nil {
		t.Fatalf("start session failed: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	purged, err := svc.PurgeExpired(t.Context())
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged sessions, got %d", purged)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected empty repo after purge, got %d", repo.Len())
	}
}
