package github

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/usecase"
)

func TestBuildRepoSearchQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		language string
		minStars int
		maxStars int
		want     string
	}{
		{name: "language only", language: "Go", want: "language:go archived:false"},
		{name: "min stars", language: "python", minStars: 50, want: "language:python stars:>=50 archived:false"},
		{name: "star range", language: "python", minStars: 50, maxStars: 500, want: "language:python stars:50..500 archived:false"},
		{name: "max stars", language: "rust", maxStars: 100, want: "language:rust stars:<=100 archived:false"},
		{name: "spaced language", language: "Jupyter Notebook", want: `language:"jupyter notebook" archived:false`},
		{name: "blank language", language: "  ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildRepoSearchQuery(tc.language, tc.minStars, tc.maxStars); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildIssueSearchQuery(t *testing.T) {
	t.Parallel()

	got := buildIssueSearchQuery("", "Go", []string{"good first issue", "", "bug"})
	want := `language:go label:"good first issue" label:bug state:open is:issue`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = buildIssueSearchQuery("acme/tooling", "", []string{"good first issue"})
	want = `repo:acme/tooling label:"good first issue" state:open is:issue`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := buildIssueSearchQuery("", "", nil); got != "state:open is:issue" {
		t.Fatalf("expected bare open-issue query, got %q", got)
	}
}

func TestRepoFullNameFromURL(t *testing.T) {
	t.Parallel()

	if got := repoFullNameFromURL("https://api.github.com/repos/acme/tooling"); got != "acme/tooling" {
		t.Fatalf("expected acme/tooling, got %q", got)
	}
	if got := repoFullNameFromURL("https://example.com/nothing"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestClampPerPage(t *testing.T) {
	t.Parallel()

	if got := clampPerPage(0); got != 30 {
		t.Fatalf("expected default 30, got %d", got)
	}
	if got := clampPerPage(250); got != maxSearchPerPage {
		t.Fatalf("expected cap %d, got %d", maxSearchPerPage, got)
	}
	if got := clampPerPage(7); got != 7 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestSanitizeSensitiveText(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{ClientSecret: "s3cr3t", Token: "gho_abc", Logger: logging.NewNop()})

	got := c.sanitizeSensitiveText(`dial failed Authorization: Bearer gho_abc client_secret=s3cr3t`)
	if strings.Contains(got, "gho_abc") {
		t.Fatalf("expected token redacted, got %q", got)
	}
	if strings.Contains(got, "s3cr3t") {
		t.Fatalf("expected secret redacted, got %q", got)
	}
}

func TestRedactRequestURL(t *testing.T) {
	t.Parallel()

	got := redactRequestURL("https://github.com/login/oauth/access_token?client_secret=abc&code=x")
	if strings.Contains(got, "client_secret=abc") {
		t.Fatalf("expected client_secret redacted, got %q", got)
	}
}

func TestClient_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/access_token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("code") != "code-1" || r.PostForm.Get("client_id") != "client-123" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_tok","token_type":"bearer","scope":"repo"}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{
		OAuthBaseURL: server.URL,
		ClientID:     "client-123",
		ClientSecret: "secret",
		Logger:       logging.NewNop(),
	})

	token, err := c.ExchangeCode(t.Context(), "code-1", "http://localhost/callback")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if token != "gho_tok" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestClient_ExchangeCodeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{OAuthBaseURL: server.URL, Logger: logging.NewNop()})

	if _, err := c.ExchangeCode(t.Context(), "stale", ""); err == nil {
		t.Fatalf("expected provider error to surface")
	}
}

func TestClient_SearchIssuesMapsPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/issues" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); !strings.Contains(got, "label:") {
			t.Errorf("expected label qualifier in %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_count": 2,
			"items": [
				{"id": 1, "number": 10, "title": "fix typo",
				 "html_url": "https://github.com/acme/alpha/issues/10",
				 "repository_url": "https://api.github.com/repos/acme/alpha",
				 "labels": [{"name": "good first issue"}], "comments": 2,
				 "created_at": "2025-05-01T10:00:00Z"},
				{"id": 2, "number": 11, "title": "refactor",
				 "repository_url": "https://api.github.com/repos/acme/alpha",
				 "pull_request": {"url": "https://api.github.com/repos/acme/alpha/pulls/11"},
				 "created_at": "2025-05-02T10:00:00Z"}
			]
		}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{APIBaseURL: server.URL, Logger: logging.NewNop()})

	issues, err := c.SearchIssues(t.Context(), usecase.IssueSearchQuery{
		Language: "go",
		Labels:   []string{"good first issue"},
		Limit:    20,
	})
	if err != nil {
		t.Fatalf("search issues failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].IsPullRequest || !issues[1].IsPullRequest {
		t.Fatalf("expected pull_request flag mapped, got %+v", issues)
	}
	if issues[0].RepoFullName != "acme/alpha" {
		t.Fatalf("expected repository name extracted, got %q", issues[0].RepoFullName)
	}
	if len(issues[0].Labels) != 1 || issues[0].Labels[0] != "good first issue" {
		t.Fatalf("unexpected labels: %+v", issues[0].Labels)
	}
}

func TestClient_SearchRepositoriesSendsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_server" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("X-Github-Api-Version"); got != apiVersion {
			t.Errorf("unexpected api version header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"id":7,"full_name":"acme/alpha","stargazers_count":42,"topics":["cli"]}]}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{APIBaseURL: server.URL, Token: "gho_server", Logger: logging.NewNop()})

	repos, err := c.SearchRepositories(t.Context(), usecase.RepoSearchQuery{Language: "go", MinStars: 10, Limit: 5})
	if err != nil {
		t.Fatalf("search repositories failed: %v", err)
	}
	if len(repos) != 1 || repos[0].ID != 7 || repos[0].Stars != 42 {
		t.Fatalf("unexpected repos: %+v", repos)
	}
}

func TestClient_Repository(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/tooling" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":9,"full_name":"acme/tooling","language":"Go","stargazers_count":88,"topics":["cli","devtools"]}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{APIBaseURL: server.URL, Logger: logging.NewNop()})

	repo, err := c.Repository(t.Context(), " acme/tooling ")
	if err != nil {
		t.Fatalf("fetch repository failed: %v", err)
	}
	if repo.ID != 9 || repo.FullName != "acme/tooling" || repo.Stars != 88 {
		t.Fatalf("unexpected repo: %+v", repo)
	}

	if _, err := c.Repository(t.Context(), "not-a-full-name"); err == nil {
		t.Fatalf("expected error for a name without an owner")
	}
}

func TestSplitRepoFullName(t *testing.T) {
	t.Parallel()

	owner, name, ok := splitRepoFullName(" acme/tooling ")
	if !ok || owner != "acme" || name != "tooling" {
		t.Fatalf("unexpected split: %q %q %v", owner, name, ok)
	}
	for _, bad := range []string{"", "acme", "acme/", "/tooling", "acme/tooling/extra"} {
		if _, _, ok := splitRepoFullName(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestClient_NotFoundMapsToUsecaseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{APIBaseURL: server.URL, Logger: logging.NewNop()})

	_, err := c.UserByLogin(t.Context(), "ghost")
	if err == nil {
		t.Fatalf("expected error for missing user")
	}
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_UnauthorizedMapsToUsecaseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{APIBaseURL: server.URL, Logger: logging.NewNop()})

	_, err := c.AuthenticatedUser(t.Context(), "gho_stale")
	if err == nil {
		t.Fatalf("expected error for stale token")
	}
	if !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
