package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openquest/onboarding-api/internal/domain/connection"
	"github.com/openquest/onboarding-api/internal/domain/session"
	"github.com/openquest/onboarding-api/internal/platform/id"
	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/platform/tokenstore"
)

// ExternalGitHubUser is the provider view of an authenticated GitHub account.
type ExternalGitHubUser struct {
	Login       string
	Name        string
	AvatarURL   string
	ProfileURL  string
	PublicRepos int
	Followers   int
}

// GitHubOAuthProvider drives the provider half of the connect handoff.
type GitHubOAuthProvider interface {
	AuthorizeURL(state, redirectURI, scope string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	AuthenticatedUser(ctx context.Context, accessToken string) (ExternalGitHubUser, error)
}

type ConnectConfig struct {
	Enabled bool
	// RedirectURL is the provider callback registered with the OAuth app.
	RedirectURL string
	// PublicBaseURL prefixes per-session return URLs.
	PublicBaseURL string
	Scope         string
}

// ConnectStatus is the session's connection view after the handoff settles
// or on a plain status read.
type ConnectStatus struct {
	SessionID    string
	Phase        connection.Phase
	Connected    bool
	Username     string
	ErrorCode    connection.ErrorCode
	ErrorMessage string
	// Acted reports that redirect parameters were consumed; the transport
	// layer strips them afterwards so a reload cannot replay the handoff.
	Acted bool
}

type ConnectService struct {
	provider GitHubOAuthProvider
	sessions session.Repository
	records  connection.Repository
	handoffs *tokenstore.Vault
	vault    *tokenstore.Vault
	tokens   id.TokenGenerator
	cfg      ConnectConfig
	logger   *logging.Logger
}

func NewConnectService(
	provider GitHubOAuthProvider,
	sessions session.Repository,
	records connection.Repository,
	handoffs *tokenstore.Vault,
	vault *tokenstore.Vault,
	tokens id.TokenGenerator,
	cfg ConnectConfig,
	logger *logging.Logger,
) *ConnectService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ConnectService{
		provider: provider,
		sessions: sessions,
		records:  records,
		handoffs: handoffs,
		vault:    vault,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

// BeginAuthorization binds a one-shot state token to the session and returns
// the provider authorize URL the client should navigate to.
func (s *ConnectService) BeginAuthorization(ctx context.Context, sessionID string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ConnectService.BeginAuthorization")
	defer span.End()

	if !s.cfg.Enabled {
		return "", fmt.Errorf("%w: github oauth is disabled (GITHUB_OAUTH_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.provider == nil {
		return "", fmt.Errorf("%w: github oauth provider is not configured", ErrDependencyUnavailable)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	if _, exists, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return "", fmt.Errorf("get session: %w", err)
	} else if !exists {
		return "", fmt.Errorf("%w: session not found", ErrNotFound)
	}

	state, err := s.tokens.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}
	s.handoffs.Put(state, sessionID)

	authorizeURL := s.provider.AuthorizeURL(state, s.cfg.RedirectURL, s.cfg.Scope)
	s.logger.InfoContext(ctx, "github authorization started", "session_id", sessionID)

	return authorizeURL, nil
}

// CompleteCallback consumes the provider callback and returns the session
// return URL carrying the redirect contract parameters. The state token is
// single use; an unknown or replayed state cannot be routed to a session.
func (s *ConnectService) CompleteCallback(ctx context.Context, code, state, providerErr string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ConnectService.CompleteCallback")
	defer span.End()

	if !s.cfg.Enabled {
		return "", fmt.Errorf("%w: github oauth is disabled (GITHUB_OAUTH_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.provider == nil {
		return "", fmt.Errorf("%w: github oauth provider is not configured", ErrDependencyUnavailable)
	}

	state = strings.TrimSpace(state)
	if state == "" {
		return "", fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	sessionID, ok := s.handoffs.TakeAndClear(state)
	if !ok {
		return "", fmt.Errorf("%w: unknown or expired state", ErrInvalidInput)
	}

	if strings.TrimSpace(providerErr) != "" {
		errCode := connection.ErrorCodeUnknown
		if strings.TrimSpace(providerErr) == "access_denied" {
			errCode = connection.ErrorCodeDenied
		}
		s.logger.WarnContext(ctx, "github authorization rejected by provider",
			"session_id", sessionID,
			"provider_error", providerErr,
		)
		return s.failureReturnURL(sessionID, errCode), nil
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return s.failureReturnURL(sessionID, connection.ErrorCodeExchangeFailed), nil
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code, s.cfg.RedirectURL)
	if err != nil {
		s.logger.WarnContext(ctx, "github code exchange failed", "session_id", sessionID, "error", err)
		return s.failureReturnURL(sessionID, connection.ErrorCodeExchangeFailed), nil
	}

	user, err := s.provider.AuthenticatedUser(ctx, accessToken)
	if err != nil || strings.TrimSpace(user.Login) == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "github user lookup failed", "session_id", sessionID, "error", err)
		}
		return s.failureReturnURL(sessionID, connection.ErrorCodeExchangeFailed), nil
	}

	s.vault.Put(sessionID, accessToken)
	s.logger.InfoContext(ctx, "github oauth callback completed",
		"session_id", sessionID,
		"github_login", user.Login,
	)

	q := url.Values{}
	q.Set(connection.ParamConnected, "true")
	q.Set(connection.ParamUsername, user.Login)
	return s.returnURL(sessionID) + "?" + q.Encode(), nil
}

// FinishReturn settles one load of the session return URL. With contract
// parameters present it consumes the vaulted token exactly once and writes
// the durable record on success; without them it is a plain status read.
func (s *ConnectService) FinishReturn(ctx context.Context, sessionID string, query url.Values) (ConnectStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ConnectService.FinishReturn")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ConnectStatus{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	if _, exists, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return ConnectStatus{}, fmt.Errorf("get session: %w", err)
	} else if !exists {
		return ConnectStatus{}, fmt.Errorf("%w: session not found", ErrNotFound)
	}

	current, _, err := s.records.GetBySessionKey(ctx, sessionID)
	if err != nil {
		return ConnectStatus{}, fmt.Errorf("get connection record: %w", err)
	}

	result, present := connection.ParseRedirect(query)
	if !present {
		return s.statusOf(sessionID, current), nil
	}

	_, tokenAvailable := s.vault.TakeAndClear(sessionID)
	outcome := connection.Reconcile(result, tokenAvailable)

	effective := current
	if outcome.WriteRecord {
		if err := s.records.Upsert(ctx, sessionID, outcome.Link); err != nil {
			return ConnectStatus{}, fmt.Errorf("upsert connection record: %w", err)
		}
		effective = outcome.Link
		s.logger.InfoContext(ctx, "github connection recorded", "session_id", sessionID)
	}

	status := ConnectStatus{
		SessionID: sessionID,
		Connected: connection.IsConnected(effective, result),
		Acted:     true,
	}
	if username, ok := effective.Username(); ok {
		status.Username = username
	}

	switch {
	case outcome.Phase == connection.PhaseFailed:
		status.Phase = connection.PhaseFailed
		status.ErrorCode = outcome.ErrorCode
		status.ErrorMessage = outcome.ErrorCode.Message()
		if effective.Connected() {
			// A rejected retry does not undo an existing connection.
			status.Connected = true
		}
	case status.Connected:
		status.Phase = connection.PhaseConnected
	default:
		status.Phase = connection.PhaseIdle
	}

	return status, nil
}

// Status reads the durable connection record without touching the vault.
func (s *ConnectService) Status(ctx context.Context, sessionID string) (ConnectStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ConnectService.Status")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ConnectStatus{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	if _, exists, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return ConnectStatus{}, fmt.Errorf("get session: %w", err)
	} else if !exists {
		return ConnectStatus{}, fmt.Errorf("%w: session not found", ErrNotFound)
	}

	current, _, err := s.records.GetBySessionKey(ctx, sessionID)
	if err != nil {
		return ConnectStatus{}, fmt.Errorf("get connection record: %w", err)
	}

	return s.statusOf(sessionID, current), nil
}

func (s *ConnectService) statusOf(sessionID string, link connection.Link) ConnectStatus {
	status := ConnectStatus{
		SessionID: sessionID,
		Phase:     connection.PhaseIdle,
		Connected: link.Connected(),
	}
	if username, ok := link.Username(); ok {
		status.Phase = connection.PhaseConnected
		status.Username = username
	}
	return status
}

func (s *ConnectService) returnURL(sessionID string) string {
	return s.cfg.PublicBaseURL + "/v1/onboarding/sessions/" + url.PathEscape(sessionID) + "/connect/return"
}

func (s *ConnectService) failureReturnURL(sessionID string, code connection.ErrorCode) string {
	q := url.Values{}
	q.Set(connection.ParamConnected, "false")
	q.Set(connection.ParamError, string(code))
	return s.returnURL(sessionID) + "?" + q.Encode()
}
