package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/platform/cache"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

type fakeGitHubDataProvider struct {
	mu sync.Mutex

	reposByLanguage map[string][]ExternalRepo
	searchErrs      map[string]error
	issues          []ExternalIssue
	issuesErr       error
	repoErr         error
	user            ExternalGitHubUser
	userErr         error

	repoQueries  []RepoSearchQuery
	issueQueries []IssueSearchQuery
	repoLookups  []string
}

func (p *fakeGitHubDataProvider) SearchRepositories(_ context.Context, query RepoSearchQuery) ([]ExternalRepo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repoQueries = append(p.repoQueries, query)
	if err, ok := p.searchErrs[query.Language]; ok {
		return nil, err
	}
	return p.reposByLanguage[query.Language], nil
}

func (p *fakeGitHubDataProvider) SearchIssues(_ context.Context, query IssueSearchQuery) ([]ExternalIssue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issueQueries = append(p.issueQueries, query)
	if p.issuesErr != nil {
		return nil, p.issuesErr
	}
	return p.issues, nil
}

func (p *fakeGitHubDataProvider) Repository(_ context.Context, fullName string) (ExternalRepo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repoLookups = append(p.repoLookups, fullName)
	if p.repoErr != nil {
		return ExternalRepo{}, p.repoErr
	}
	return ExternalRepo{FullName: fullName}, nil
}

func (p *fakeGitHubDataProvider) UserByLogin(_ context.Context, login string) (ExternalGitHubUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userErr != nil {
		return ExternalGitHubUser{}, p.userErr
	}
	user := p.user
	if user.Login == "" {
		user.Login = login
	}
	return user, nil
}

func (p *fakeGitHubDataProvider) repoQueryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.repoQueries)
}

func TestRecommendationService_EmptyLanguages(t *testing.T) {
	provider := &fakeGitHubDataProvider{}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2}, logging.NewNop())

	ranked, err := svc.RecommendRepositories(t.Context(), RecommendationProfile{}, 10)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty result without languages, got %d", len(ranked))
	}
	if provider.repoQueryCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.repoQueryCount())
	}
}

func TestRecommendationService_RanksByTopicOverlap(t *testing.T) {
	provider := &fakeGitHubDataProvider{
		reposByLanguage: map[string][]ExternalRepo{
			"python": {
				{ID: 1, FullName: "acme/tooling", Topics: []string{"Docker", "cli"}, Stars: 10},
				{ID: 2, FullName: "acme/popular", Topics: []string{"web"}, Stars: 999},
			},
			"go": {
				{ID: 3, FullName: "acme/runner", Topics: []string{"docker"}, Stars: 50},
				{ID: 1, FullName: "acme/tooling", Topics: []string{"docker", "cli"}, Stars: 10},
			},
		},
	}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2}, logging.NewNop())

	profile := RecommendationProfile{
		Languages:        []string{"Python", "go"},
		Skills:           []preference.Skill{preference.NewSkill("docker", preference.FamiliarityExpert)},
		ProjectInterests: []preference.ProjectInterest{preference.ProjectInterestCLI},
	}
	ranked, err := svc.RecommendRepositories(t.Context(), profile, 10)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	if len(ranked) != 3 {
		t.Fatalf("expected 3 deduplicated repos, got %d: %+v", len(ranked), ranked)
	}
	if ranked[0].ID != 1 || ranked[0].Score != 2 {
		t.Fatalf("expected acme/tooling first with score 2, got %+v", ranked[0])
	}
	if ranked[1].ID != 3 || ranked[1].Score != 1 {
		t.Fatalf("expected acme/runner second with score 1, got %+v", ranked[1])
	}
	if ranked[2].ID != 2 || ranked[2].Score != 0 {
		t.Fatalf("expected acme/popular last with score 0, got %+v", ranked[2])
	}
}

func TestRecommendationService_TiesBreakOnStarsThenName(t *testing.T) {
	provider := &fakeGitHubDataProvider{
		reposByLanguage: map[string][]ExternalRepo{
			"go": {
				{ID: 1, FullName: "acme/bravo", Stars: 10},
				{ID: 2, FullName: "acme/alpha", Stars: 10},
				{ID: 3, FullName: "acme/charlie", Stars: 90},
			},
		},
	}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2}, logging.NewNop())

	ranked, err := svc.RecommendRepositories(t.Context(), RecommendationProfile{Languages: []string{"go"}}, 10)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if ranked[0].FullName != "acme/charlie" {
		t.Fatalf("expected stars to rank first, got %+v", ranked[0])
	}
	if ranked[1].FullName != "acme/alpha" || ranked[2].FullName != "acme/bravo" {
		t.Fatalf("expected name tiebreak, got %+v then %+v", ranked[1], ranked[2])
	}
}

func TestRecommendationService_LimitAndQueryShape(t *testing.T) {
	repos := make([]ExternalRepo, 0, 6)
	for i := int64(1); i <= 6; i++ {
		repos = append(repos, ExternalRepo{ID: i, FullName: "acme/repo", Stars: int(i)})
	}
	provider := &fakeGitHubDataProvider{
		reposByLanguage: map[string][]ExternalRepo{"go": repos},
	}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2, MinStars: 50}, logging.NewNop())

	ranked, err := svc.RecommendRepositories(t.Context(), RecommendationProfile{Languages: []string{"go"}}, 2)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected limit applied, got %d", len(ranked))
	}

	if provider.repoQueryCount() != 1 {
		t.Fatalf("expected one search per language, got %d", provider.repoQueryCount())
	}
	query := provider.repoQueries[0]
	if query.Limit != 4 {
		t.Fatalf("expected overfetched limit 4, got %d", query.Limit)
	}
	if query.MinStars != 50 {
		t.Fatalf("expected configured min stars, got %d", query.MinStars)
	}
}

func TestRecommendationService_PartialFailureKeepsResults(t *testing.T) {
	provider := &fakeGitHubDataProvider{
		reposByLanguage: map[string][]ExternalRepo{
			"go": {{ID: 1, FullName: "acme/alpha", Stars: 5}},
		},
		searchErrs: map[string]error{"python": errors.New("rate limited")},
	}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2}, logging.NewNop())

	ranked, err := svc.RecommendRepositories(t.Context(), RecommendationProfile{Languages: []string{"go", "python"}}, 10)
	if err != nil {
		t.Fatalf("expected partial results despite one failed language, got %v", err)
	}
	if len(ranked) != 1 || ranked[0].ID != 1 {
		t.Fatalf("unexpected results: %+v", ranked)
	}
}

func TestRecommendationService_AllFailuresSurface(t *testing.T) {
	provider := &fakeGitHubDataProvider{
		searchErrs: map[string]error{"go": errors.New("rate limited")},
	}
	svc := NewRecommendationService(provider, nil, RecommendationConfig{Workers: 2}, logging.NewNop())

	if _, err := svc.RecommendRepositories(t.Context(), RecommendationProfile{Languages: []string{"go"}}, 10); err == nil {
		t.Fatalf("expected error when every language search fails")
	}
}

func TestRecommendationService_CachesResults(t *testing.T) {
	provider := &fakeGitHubDataProvider{
		reposByLanguage: map[string][]ExternalRepo{
			"go": {{ID: 1, FullName: "acme/alpha", Stars: 5}},
		},
	}
	results := cache.NewStore(time.Minute)
	svc := NewRecommendationService(provider, results, RecommendationConfig{Workers: 2}, logging.NewNop())

	profile := RecommendationProfile{Languages: []string{"go"}}
	first, err := svc.RecommendRepositories(t.Context(), profile, 10)
	if err != nil {
		t.Fatalf("first recommend failed: %v", err)
	}
	second, err := svc.RecommendRepositories(t.Context(), profile, 10)
	if err != nil {
		t.Fatalf("second recommend failed: %v", err)
	}
	if provider.repoQueryCount() != 1 {
		t.Fatalf("expected cached second call, got %d provider calls", provider.repoQueryCount())
	}
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("expected identical cached results, got %+v vs %+v", first, second)
	}

	// A different limit is a different cache entry.
	if _, err := svc.RecommendRepositories(t.Context(), profile, 5); err != nil {
		t.Fatalf("third recommend failed: %v", err)
	}
	if provider.repoQueryCount() != 2 {
		t.Fatalf("expected cache miss for new limit, got %d provider calls", provider.repoQueryCount())
	}
}

func TestProfileFromSnapshot(t *testing.T) {
	w := preference.NewWizard()
	w.ToggleLanguage("python")
	w.AddSkill("docker", preference.FamiliarityExpert)
	w.ToggleProjectInterest(preference.ProjectInterestCLI)

	snap := w.Snapshot()
	profile := ProfileFromSnapshot(snap, w.SubmittableSkills())
	if len(profile.Languages) != 1 || profile.Languages[0] != "python" {
		t.Fatalf("unexpected languages: %+v", profile.Languages)
	}
	if len(profile.Skills) != 1 || profile.Skills[0].Name != "docker" {
		t.Fatalf("unexpected skills: %+v", profile.Skills)
	}
	if len(profile.ProjectInterests) != 1 {
		t.Fatalf("unexpected project interests: %+v", profile.ProjectInterests)
	}
}
