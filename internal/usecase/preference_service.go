package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/platform/id"
)

type SkillInput struct {
	Name        string
	Familiarity string
}

type SubmitPreferencesInput struct {
	UserID           string
	Languages        []string
	Skills           []SkillInput
	IssueInterests   []string
	ProjectInterests []string
}

// UpdatePreferencesInput carries a partial update. A nil slice leaves the
// stored field untouched; a non-nil empty slice clears it.
type UpdatePreferencesInput struct {
	UserID           string
	Languages        *[]string
	Skills           *[]SkillInput
	IssueInterests   *[]string
	ProjectInterests *[]string
}

type PreferenceService struct {
	repo  preference.Repository
	idGen id.Generator
	now   func() time.Time
}

func NewPreferenceService(repo preference.Repository, idGen id.Generator) *PreferenceService {
	return &PreferenceService{
		repo:  repo,
		idGen: idGen,
		now:   time.Now,
	}
}

// Submit stores the first preference document for a user. A second submit is
// a conflict; use Update to change an existing document.
func (s *PreferenceService) Submit(ctx context.Context, input SubmitPreferencesInput) (preference.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Submit")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return preference.Record{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	languages := normalizeLanguages(input.Languages)
	skills, err := normalizeSkills(input.Skills)
	if err != nil {
		return preference.Record{}, err
	}
	issueInterests, err := normalizeIssueInterests(input.IssueInterests)
	if err != nil {
		return preference.Record{}, err
	}
	projectInterests, err := normalizeProjectInterests(input.ProjectInterests)
	if err != nil {
		return preference.Record{}, err
	}

	recordID, err := s.idGen.NewID()
	if err != nil {
		return preference.Record{}, fmt.Errorf("generate preference id: %w", err)
	}

	now := s.now().UTC()
	record := preference.Record{
		ID:               recordID,
		UserID:           input.UserID,
		Languages:        languages,
		Skills:           skills,
		IssueInterests:   issueInterests,
		ProjectInterests: projectInterests,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, preference.ErrRecordExists) {
			return preference.Record{}, fmt.Errorf("%w: preferences already submitted for this user", ErrConflict)
		}
		return preference.Record{}, fmt.Errorf("create preference record: %w", err)
	}

	return record, nil
}

func (s *PreferenceService) Get(ctx context.Context, userID string) (preference.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return preference.Record{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	record, exists, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return preference.Record{}, fmt.Errorf("get preference record: %w", err)
	}
	if !exists {
		return preference.Record{}, fmt.Errorf("%w: preferences not found", ErrNotFound)
	}

	return record, nil
}

func (s *PreferenceService) Update(ctx context.Context, input UpdatePreferencesInput) (preference.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Update")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return preference.Record{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	record, exists, err := s.repo.GetByUserID(ctx, input.UserID)
	if err != nil {
		return preference.Record{}, fmt.Errorf("get preference record: %w", err)
	}
	if !exists {
		return preference.Record{}, fmt.Errorf("%w: preferences not found", ErrNotFound)
	}

	if input.Languages != nil {
		record.Languages = normalizeLanguages(*input.Languages)
	}
	if input.Skills != nil {
		skills, err := normalizeSkills(*input.Skills)
		if err != nil {
			return preference.Record{}, err
		}
		record.Skills = skills
	}
	if input.IssueInterests != nil {
		issueInterests, err := normalizeIssueInterests(*input.IssueInterests)
		if err != nil {
			return preference.Record{}, err
		}
		record.IssueInterests = issueInterests
	}
	if input.ProjectInterests != nil {
		projectInterests, err := normalizeProjectInterests(*input.ProjectInterests)
		if err != nil {
			return preference.Record{}, err
		}
		record.ProjectInterests = projectInterests
	}
	record.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, record); err != nil {
		return preference.Record{}, fmt.Errorf("update preference record: %w", err)
	}

	return record, nil
}

func (s *PreferenceService) Delete(ctx context.Context, userID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Delete")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete preference record: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: preferences not found", ErrNotFound)
	}

	return nil
}

func normalizeLanguages(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		lang := strings.ToLower(strings.TrimSpace(v))
		if lang == "" {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	return out
}

// normalizeSkills validates familiarity levels and keeps the first entry for
// a duplicated skill name.
func normalizeSkills(values []SkillInput) ([]preference.Skill, error) {
	out := make([]preference.Skill, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: skill name cannot be empty", ErrInvalidInput)
		}
		level := preference.Familiarity(strings.ToLower(strings.TrimSpace(v.Familiarity)))
		if _, ok := preference.AllFamiliarities[level]; !ok {
			return nil, fmt.Errorf("%w: invalid familiarity %q for skill %q", ErrInvalidInput, v.Familiarity, v.Name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, preference.NewSkill(name, level))
	}
	return out, nil
}

func normalizeIssueInterests(values []string) ([]preference.IssueInterest, error) {
	out := make([]preference.IssueInterest, 0, len(values))
	seen := make(map[preference.IssueInterest]struct{}, len(values))
	for _, v := range values {
		tag := preference.IssueInterest(strings.ToLower(strings.TrimSpace(v)))
		if _, ok := preference.AllIssueInterests[tag]; !ok {
			return nil, fmt.Errorf("%w: invalid issue interest %q", ErrInvalidInput, v)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}

func normalizeProjectInterests(values []string) ([]preference.ProjectInterest, error) {
	out := make([]preference.ProjectInterest, 0, len(values))
	seen := make(map[preference.ProjectInterest]struct{}, len(values))
	for _, v := range values {
		tag := preference.ProjectInterest(strings.ToLower(strings.TrimSpace(v)))
		if _, ok := preference.AllProjectInterests[tag]; !ok {
			return nil, fmt.Errorf("%w: invalid project interest %q", ErrInvalidInput, v)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}
