package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openquest/onboarding-api/internal/platform/logging"
)

type ExternalRepo struct {
	ID          int64
	FullName    string
	Description string
	HTMLURL     string
	Language    string
	Topics      []string
	Stars       int
	Forks       int
	OpenIssues  int
	PushedAt    time.Time
}

type ExternalIssue struct {
	ID            int64
	Number        int
	Title         string
	HTMLURL       string
	RepoFullName  string
	Labels        []string
	Comments      int
	CreatedAt     time.Time
	IsPullRequest bool
}

type RepoSearchQuery struct {
	Language string
	MinStars int
	MaxStars int
	Limit    int
}

type IssueSearchQuery struct {
	// Repo scopes the search to one repository as "owner/name"; blank
	// searches across all of GitHub.
	Repo     string
	Language string
	Labels   []string
	Limit    int
}

// GitHubDataProvider reads public GitHub data for discovery endpoints.
type GitHubDataProvider interface {
	SearchRepositories(ctx context.Context, query RepoSearchQuery) ([]ExternalRepo, error)
	SearchIssues(ctx context.Context, query IssueSearchQuery) ([]ExternalIssue, error)
	Repository(ctx context.Context, fullName string) (ExternalRepo, error)
	UserByLogin(ctx context.Context, login string) (ExternalGitHubUser, error)
}

const (
	defaultIssueLimit = 20
	maxIssueLimit     = 50
)

var defaultIssueLabels = []string{"good first issue"}

type GitHubDataService struct {
	provider GitHubDataProvider
	oauth    GitHubOAuthProvider
	logger   *logging.Logger
}

func NewGitHubDataService(provider GitHubDataProvider, oauth GitHubOAuthProvider, logger *logging.Logger) *GitHubDataService {
	if logger == nil {
		logger = logging.Default()
	}

	return &GitHubDataService{
		provider: provider,
		oauth:    oauth,
		logger:   logger,
	}
}

type GoodFirstIssuesInput struct {
	Repo     string
	Language string
	Labels   []string
	Limit    int
}

// GoodFirstIssues searches open starter issues. Pull requests share the
// provider's issue search surface and are dropped here. A repo-scoped call
// resolves the repository first so a missing repo reads as not found instead
// of a search failure.
func (s *GitHubDataService) GoodFirstIssues(ctx context.Context, input GoodFirstIssuesInput) ([]ExternalIssue, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GitHubDataService.GoodFirstIssues")
	defer span.End()

	if s.provider == nil {
		return nil, fmt.Errorf("%w: github data provider is not configured", ErrDependencyUnavailable)
	}

	repo := strings.TrimSpace(input.Repo)
	if repo != "" {
		if _, err := s.provider.Repository(ctx, repo); err != nil {
			return nil, fmt.Errorf("resolve repository %s: %w", repo, err)
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultIssueLimit
	}
	if limit > maxIssueLimit {
		limit = maxIssueLimit
	}

	labels := make([]string, 0, len(input.Labels))
	for _, label := range input.Labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		labels = defaultIssueLabels
	}

	items, err := s.provider.SearchIssues(ctx, IssueSearchQuery{
		Repo:     repo,
		Language: strings.ToLower(strings.TrimSpace(input.Language)),
		Labels:   labels,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	out := make([]ExternalIssue, 0, len(items))
	for _, item := range items {
		if item.IsPullRequest {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (s *GitHubDataService) PublicUser(ctx context.Context, login string) (ExternalGitHubUser, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GitHubDataService.PublicUser")
	defer span.End()

	if s.provider == nil {
		return ExternalGitHubUser{}, fmt.Errorf("%w: github data provider is not configured", ErrDependencyUnavailable)
	}

	login = strings.TrimSpace(login)
	if login == "" {
		return ExternalGitHubUser{}, fmt.Errorf("%w: login is required", ErrInvalidInput)
	}

	user, err := s.provider.UserByLogin(ctx, login)
	if err != nil {
		return ExternalGitHubUser{}, fmt.Errorf("fetch github user login=%s: %w", login, err)
	}

	return user, nil
}

// ValidateToken verifies a caller-supplied access token against the provider
// and returns the account it belongs to.
func (s *GitHubDataService) ValidateToken(ctx context.Context, accessToken string) (ExternalGitHubUser, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GitHubDataService.ValidateToken")
	defer span.End()

	if s.oauth == nil {
		return ExternalGitHubUser{}, fmt.Errorf("%w: github oauth provider is not configured", ErrDependencyUnavailable)
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ExternalGitHubUser{}, fmt.Errorf("%w: access token is required", ErrInvalidInput)
	}

	user, err := s.oauth.AuthenticatedUser(ctx, accessToken)
	if err != nil {
		return ExternalGitHubUser{}, fmt.Errorf("validate github token: %w", err)
	}

	return user, nil
}
