package supabase

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/openquest/onboarding-api/internal/domain/account"
	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/platform/resilience"
	"github.com/openquest/onboarding-api/internal/usecase"
)

const (
	signUpPath = "/auth/v1/signup"
	tokenPath  = "/auth/v1/token"
	logoutPath = "/auth/v1/logout"
	userPath   = "/auth/v1/user"
	healthPath = "/auth/v1/health"

	maxVerifyCacheEntries = 10_000
)

var errSupabaseTransient = crerr.New("supabase transient failure")

type Config struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	// VerifyCacheTTL bounds how long a verified principal is reused without
	// a round trip. Zero disables the cache.
	VerifyCacheTTL time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is the GoTrue auth gateway. It implements both the account gateway
// used by sign-up/sign-in flows and the token verifier used by request
// middleware.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	verifyCache    *principalCache
	verifyFlight   resilience.SingleFlight
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		verifyCache:    newPrincipalCache(cfg.VerifyCacheTTL, maxVerifyCacheEntries),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type authEnvelope struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         userPayload `json:"user"`
}

type errorEnvelope struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorEnvelope) text() string {
	for _, candidate := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}

func (c *Client) SignUp(ctx context.Context, email, password string) (account.Auth, error) {
	var envelope authEnvelope
	err := c.do(ctx, http.MethodPost, signUpPath, credentialsRequest{Email: email, Password: password}, "", &envelope)
	if err != nil {
		return account.Auth{}, fmt.Errorf("sign up: %w", err)
	}
	return mapAuthEnvelope(envelope), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (account.Auth, error) {
	var envelope authEnvelope
	err := c.do(ctx, http.MethodPost, tokenPath+"?grant_type=password", credentialsRequest{Email: email, Password: password}, "", &envelope)
	if err != nil {
		return account.Auth{}, fmt.Errorf("sign in: %w", err)
	}
	return mapAuthEnvelope(envelope), nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (account.Auth, error) {
	var envelope authEnvelope
	err := c.do(ctx, http.MethodPost, tokenPath+"?grant_type=refresh_token", refreshRequest{RefreshToken: refreshToken}, "", &envelope)
	if err != nil {
		return account.Auth{}, fmt.Errorf("refresh session: %w", err)
	}
	return mapAuthEnvelope(envelope), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, logoutPath, nil, accessToken, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// VerifyAccessToken resolves the principal behind a bearer token. Verified
// principals are cached under a hash of the token, never the token itself;
// concurrent verifications of one token share a single round trip.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (account.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return account.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	key := hashToken(token)
	if principal, ok := c.verifyCache.Get(key); ok {
		return principal, nil
	}

	v, err, _ := c.verifyFlight.Do(key, func() (any, error) {
		if principal, ok := c.verifyCache.Get(key); ok {
			return principal, nil
		}

		var payload userPayload
		if err := c.do(ctx, http.MethodGet, userPath, nil, token, &payload); err != nil {
			return nil, fmt.Errorf("verify access token: %w", err)
		}
		if strings.TrimSpace(payload.ID) == "" {
			return nil, fmt.Errorf("account provider returned an empty user id")
		}

		principal := account.Principal{UserID: payload.ID, Email: payload.Email}
		c.verifyCache.Set(key, principal)
		return principal, nil
	})
	if err != nil {
		return account.Principal{}, err
	}
	return v.(account.Principal), nil
}

// Health probes the auth service health endpoint without credentials beyond
// the project API key.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, healthPath, nil, "", nil); err != nil {
		return fmt.Errorf("auth health: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "supabase circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: account provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("authorization", "Bearer "+bearer)
	}

	err = c.roundTrip(ctx, req, target)
	if c.circuitEnabled {
		if stderrors.Is(err, errSupabaseTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", errSupabaseTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", errSupabaseTransient, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if target == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := sonic.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode provider payload: %w", err)
		}
		return nil
	}

	var failure errorEnvelope
	_ = sonic.Unmarshal(raw, &failure)
	detail := failure.text()
	if detail == "" {
		detail = fmt.Sprintf("status %d", resp.StatusCode)
	}

	switch {
	case strings.Contains(strings.ToLower(detail), "already registered"):
		return fmt.Errorf("%w: %s", usecase.ErrConflict, detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", usecase.ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", usecase.ErrInvalidInput, detail)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		c.logger.WarnContext(ctx, "supabase request failed", "path", req.URL.Path, "status", resp.StatusCode)
		return fmt.Errorf("%w: provider status=%d: %s", errSupabaseTransient, resp.StatusCode, detail)
	default:
		return fmt.Errorf("provider status=%d: %s", resp.StatusCode, detail)
	}
}

func mapAuthEnvelope(envelope authEnvelope) account.Auth {
	return account.Auth{
		AccessToken:  envelope.AccessToken,
		RefreshToken: envelope.RefreshToken,
		TokenType:    envelope.TokenType,
		ExpiresIn:    envelope.ExpiresIn,
		User: account.User{
			ID:        envelope.User.ID,
			Email:     envelope.User.Email,
			CreatedAt: envelope.User.CreatedAt,
		},
	}
}
