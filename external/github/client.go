package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/platform/resilience"
	"github.com/openquest/onboarding-api/internal/usecase"
)

const (
	defaultAPIBaseURL   = "https://api.github.com"
	defaultOAuthBaseURL = "https://github.com/login/oauth"
	apiVersion          = "2022-11-28"
	maxSearchPerPage    = 100
)

var authHeaderRegex = regexp.MustCompile(`(?i)authorization:\s*(bearer|token)\s+[^\s"']+`)
var githubTokenRegex = regexp.MustCompile(`\bgh[opsur]_[A-Za-z0-9_]+`)
var clientSecretParamRegex = regexp.MustCompile(`client_secret=[^&\s"']+`)
var errGitHubTransient = crerr.New("github transient failure")

type ClientConfig struct {
	HTTPClient   *http.Client
	APIBaseURL   string
	OAuthBaseURL string
	ClientID     string
	ClientSecret string
	// Token is the optional server token used for unauthenticated REST
	// reads; search rate limits are far lower without one.
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the GitHub REST and OAuth endpoints. The circuit breaker
// guards the REST host only; the OAuth token exchange is low volume and goes
// out even while the data plane is open.
type Client struct {
	httpClient     *http.Client
	apiBaseURL     string
	oauthBaseURL   string
	clientID       string
	clientSecret   string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	apiBaseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	oauthBaseURL := strings.TrimRight(strings.TrimSpace(cfg.OAuthBaseURL), "/")
	if oauthBaseURL == "" {
		oauthBaseURL = defaultOAuthBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		apiBaseURL:     apiBaseURL,
		oauthBaseURL:   oauthBaseURL,
		clientID:       strings.TrimSpace(cfg.ClientID),
		clientSecret:   strings.TrimSpace(cfg.ClientSecret),
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// AuthorizeURL builds the provider authorization URL carrying the one-shot
// state token.
func (c *Client) AuthorizeURL(state, redirectURI, scope string) string {
	values := url.Values{}
	values.Set("client_id", c.clientID)
	if redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	if scope != "" {
		values.Set("scope", scope)
	}
	values.Set("state", state)
	return c.oauthBaseURL + "/authorize?" + values.Encode()
}

type accessTokenEnvelope struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades the callback code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("authorization code must not be empty")
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	body := form.Encode()
	exchangeURL := c.oauthBaseURL + "/access_token"

	raw, err := c.executeRequest(ctx, exchangeURL, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, exchangeURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}

	var envelope accessTokenEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode access token payload: %w", err)
	}
	if envelope.Error != "" {
		return "", fmt.Errorf("provider rejected code exchange: %s: %s", envelope.Error, envelope.ErrorDescription)
	}
	if strings.TrimSpace(envelope.AccessToken) == "" {
		return "", fmt.Errorf("provider returned an empty access token")
	}

	return envelope.AccessToken, nil
}

type userPayload struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

// AuthenticatedUser resolves the identity behind a user access token.
func (c *Client) AuthenticatedUser(ctx context.Context, accessToken string) (usecase.ExternalGitHubUser, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return usecase.ExternalGitHubUser{}, fmt.Errorf("access token must not be empty")
	}

	var payload userPayload
	if err := c.doJSON(ctx, "/user", nil, accessToken, &payload); err != nil {
		return usecase.ExternalGitHubUser{}, fmt.Errorf("fetch authenticated user: %w", err)
	}
	return mapUserPayload(payload), nil
}

// UserByLogin reads a public profile.
func (c *Client) UserByLogin(ctx context.Context, login string) (usecase.ExternalGitHubUser, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return usecase.ExternalGitHubUser{}, fmt.Errorf("login must not be empty")
	}

	var payload userPayload
	if err := c.doJSON(ctx, "/users/"+url.PathEscape(login), nil, c.token, &payload); err != nil {
		return usecase.ExternalGitHubUser{}, fmt.Errorf("fetch user login=%s: %w", login, err)
	}
	return mapUserPayload(payload), nil
}

type repoSearchEnvelope struct {
	TotalCount int           `json:"total_count"`
	Items      []repoPayload `json:"items"`
}

type repoPayload struct {
	ID              int64     `json:"id"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language"`
	Topics          []string  `json:"topics"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	PushedAt        time.Time `json:"pushed_at"`
}

// SearchRepositories runs one language-scoped repository search ordered by
// stars.
func (c *Client) SearchRepositories(ctx context.Context, query usecase.RepoSearchQuery) ([]usecase.ExternalRepo, error) {
	q := buildRepoSearchQuery(query.Language, query.MinStars, query.MaxStars)
	if q == "" {
		return nil, fmt.Errorf("repository search needs a language")
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("sort", "stars")
	values.Set("order", "desc")
	values.Set("per_page", strconv.Itoa(clampPerPage(query.Limit)))

	var envelope repoSearchEnvelope
	if err := c.doJSON(ctx, "/search/repositories", values, c.token, &envelope); err != nil {
		return nil, fmt.Errorf("search repositories q=%s: %w", q, err)
	}

	out := make([]usecase.ExternalRepo, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		out = append(out, mapRepoPayload(item))
	}
	return out, nil
}

// Repository reads one repository by its "owner/name" full name.
func (c *Client) Repository(ctx context.Context, fullName string) (usecase.ExternalRepo, error) {
	owner, name, ok := splitRepoFullName(fullName)
	if !ok {
		return usecase.ExternalRepo{}, fmt.Errorf("repository full name must look like owner/name, got %q", fullName)
	}

	var payload repoPayload
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
	if err := c.doJSON(ctx, path, nil, c.token, &payload); err != nil {
		return usecase.ExternalRepo{}, fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}
	return mapRepoPayload(payload), nil
}

type issueSearchEnvelope struct {
	TotalCount int            `json:"total_count"`
	Items      []issuePayload `json:"items"`
}

type issuePayload struct {
	ID            int64          `json:"id"`
	Number        int            `json:"number"`
	Title         string         `json:"title"`
	HTMLURL       string         `json:"html_url"`
	RepositoryURL string         `json:"repository_url"`
	Labels        []labelPayload `json:"labels"`
	Comments      int            `json:"comments"`
	CreatedAt     time.Time      `json:"created_at"`
	PullRequest   map[string]any `json:"pull_request"`
}

type labelPayload struct {
	Name string `json:"name"`
}

// SearchIssues runs one open-issue search scoped by repository, language,
// and labels.
func (c *Client) SearchIssues(ctx context.Context, query usecase.IssueSearchQuery) ([]usecase.ExternalIssue, error) {
	q := buildIssueSearchQuery(query.Repo, query.Language, query.Labels)

	values := url.Values{}
	values.Set("q", q)
	values.Set("sort", "created")
	values.Set("order", "desc")
	values.Set("per_page", strconv.Itoa(clampPerPage(query.Limit)))

	var envelope issueSearchEnvelope
	if err := c.doJSON(ctx, "/search/issues", values, c.token, &envelope); err != nil {
		return nil, fmt.Errorf("search issues q=%s: %w", q, err)
	}

	out := make([]usecase.ExternalIssue, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		labels := make([]string, 0, len(item.Labels))
		for _, label := range item.Labels {
			if name := strings.TrimSpace(label.Name); name != "" {
				labels = append(labels, name)
			}
		}
		out = append(out, usecase.ExternalIssue{
			ID:            item.ID,
			Number:        item.Number,
			Title:         item.Title,
			HTMLURL:       item.HTMLURL,
			RepoFullName:  repoFullNameFromURL(item.RepositoryURL),
			Labels:        labels,
			Comments:      item.Comments,
			CreatedAt:     item.CreatedAt,
			IsPullRequest: len(item.PullRequest) > 0,
		})
	}
	return out, nil
}

// Ping checks REST API reachability. The rate limit endpoint does not
// consume search or core quota.
func (c *Client) Ping(ctx context.Context) error {
	var payload struct {
		Resources map[string]any `json:"resources"`
	}
	if err := c.doJSON(ctx, "/rate_limit", nil, c.token, &payload); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, authToken string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "github circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: github is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.apiBaseURL + path
	if query != nil {
		if encoded := query.Encode(); encoded != "" {
			fullURL += "?" + encoded
		}
	}

	// Identical in-flight reads collapse per token; different tokens must
	// not share a result.
	key := authToken + "@" + fullURL
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("accept", "application/vnd.github+json")
			req.Header.Set("x-github-api-version", apiVersion)
			if authToken != "" {
				req.Header.Set("authorization", "Bearer "+authToken)
			}
			return req, nil
		})
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errGitHubTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errGitHubTransient, c.sanitizeSensitiveText(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errGitHubTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: github rejected the credentials", usecase.ErrUnauthorized)
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: github resource not found", usecase.ErrNotFound)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errGitHubTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, c.sanitizeSensitiveText(abbreviateBody(raw)))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "github request failed", "url", redactRequestURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) sanitizeSensitiveText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if c.clientSecret != "" {
		value = strings.ReplaceAll(value, c.clientSecret, "REDACTED")
	}
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	value = authHeaderRegex.ReplaceAllString(value, "authorization: REDACTED")
	value = githubTokenRegex.ReplaceAllString(value, "REDACTED")
	value = clientSecretParamRegex.ReplaceAllString(value, "client_secret=REDACTED")
	return value
}

// buildRepoSearchQuery assembles the search qualifier string, for example
// "language:go stars:>=50".
func buildRepoSearchQuery(language string, minStars, maxStars int) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return ""
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("language:")
	_, _ = buf.WriteString(quoteQualifier(language))
	switch {
	case minStars > 0 && maxStars > 0:
		_, _ = buf.WriteString(" stars:")
		_, _ = buf.WriteString(strconv.Itoa(minStars))
		_, _ = buf.WriteString("..")
		_, _ = buf.WriteString(strconv.Itoa(maxStars))
	case minStars > 0:
		_, _ = buf.WriteString(" stars:>=")
		_, _ = buf.WriteString(strconv.Itoa(minStars))
	case maxStars > 0:
		_, _ = buf.WriteString(" stars:<=")
		_, _ = buf.WriteString(strconv.Itoa(maxStars))
	}
	_, _ = buf.WriteString(" archived:false")

	return buf.String()
}

// buildIssueSearchQuery assembles the open-issue qualifier string, for
// example `language:go label:"good first issue" state:open is:issue`.
func buildIssueSearchQuery(repo, language string, labels []string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if repo = strings.TrimSpace(repo); repo != "" {
		_, _ = buf.WriteString("repo:")
		_, _ = buf.WriteString(repo)
	}
	if language = strings.ToLower(strings.TrimSpace(language)); language != "" {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString("language:")
		_, _ = buf.WriteString(quoteQualifier(language))
	}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString("label:")
		_, _ = buf.WriteString(quoteQualifier(label))
	}
	if buf.Len() > 0 {
		_ = buf.WriteByte(' ')
	}
	_, _ = buf.WriteString("state:open is:issue")

	return buf.String()
}

func quoteQualifier(value string) string {
	if strings.ContainsAny(value, " \t") {
		return `"` + value + `"`
	}
	return value
}

func clampPerPage(limit int) int {
	if limit <= 0 {
		return 30
	}
	if limit > maxSearchPerPage {
		return maxSearchPerPage
	}
	return limit
}

func mapRepoPayload(item repoPayload) usecase.ExternalRepo {
	return usecase.ExternalRepo{
		ID:          item.ID,
		FullName:    item.FullName,
		Description: item.Description,
		HTMLURL:     item.HTMLURL,
		Language:    item.Language,
		Topics:      item.Topics,
		Stars:       item.StargazersCount,
		Forks:       item.ForksCount,
		OpenIssues:  item.OpenIssuesCount,
		PushedAt:    item.PushedAt,
	}
}

func splitRepoFullName(fullName string) (string, string, bool) {
	fullName = strings.Trim(strings.TrimSpace(fullName), "/")
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

func mapUserPayload(payload userPayload) usecase.ExternalGitHubUser {
	return usecase.ExternalGitHubUser{
		Login:       strings.TrimSpace(payload.Login),
		Name:        strings.TrimSpace(payload.Name),
		AvatarURL:   payload.AvatarURL,
		ProfileURL:  payload.HTMLURL,
		PublicRepos: payload.PublicRepos,
		Followers:   payload.Followers,
	}
}

// repoFullNameFromURL extracts "owner/repo" from an API repository URL such
// as https://api.github.com/repos/owner/repo.
func repoFullNameFromURL(repositoryURL string) string {
	marker := "/repos/"
	idx := strings.Index(repositoryURL, marker)
	if idx < 0 {
		return ""
	}
	return strings.Trim(repositoryURL[idx+len(marker):], "/")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactRequestURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for _, param := range []string{"client_secret", "access_token"} {
		if query.Has(param) {
			query.Set(param, "REDACTED")
			changed = true
		}
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
