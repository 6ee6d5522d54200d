package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/connection"
	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/domain/session"
	"github.com/openquest/onboarding-api/internal/infrastructure/repository/memory"
	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/platform/tokenstore"
)

type fakeOAuthProvider struct {
	token       string
	user        ExternalGitHubUser
	exchangeErr error
	userErr     error

	lastState        string
	lastRedirectURI  string
	lastScope        string
	exchangeCalls    int
	lastExchangeCode string
}

func (p *fakeOAuthProvider) AuthorizeURL(state, redirectURI, scope string) string {
	p.lastState = state
	p.lastRedirectURI = redirectURI
	p.lastScope = scope
	q := url.Values{}
	q.Set("client_id", "client-123")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)
	q.Set("state", state)
	return "https://github.com/login/oauth/authorize?" + q.Encode()
}

func (p *fakeOAuthProvider) ExchangeCode(_ context.Context, code, _ string) (string, error) {
	p.exchangeCalls++
	p.lastExchangeCode = code
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return p.token, nil
}

func (p *fakeOAuthProvider) AuthenticatedUser(_ context.Context, _ string) (ExternalGitHubUser, error) {
	if p.userErr != nil {
		return ExternalGitHubUser{}, p.userErr
	}
	return p.user, nil
}

type staticTokenGenerator struct {
	token string
}

func (g staticTokenGenerator) NewToken() (string, error) {
	return g.token, nil
}

type connectFixture struct {
	svc      *ConnectService
	provider *fakeOAuthProvider
	records  *memory.ConnectionRepository
	handoffs *tokenstore.Vault
	vault    *tokenstore.Vault
}

func newConnectFixture(t *testing.T) connectFixture {
	t.Helper()

	sessions := memory.NewSessionRepository()
	if err := sessions.Create(t.Context(), &session.Session{
		ID:         "sess-1",
		Wizard:     preference.NewWizard(),
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	provider := &fakeOAuthProvider{
		token: "gho_test_token",
		user:  ExternalGitHubUser{Login: "alice", Name: "Alice"},
	}
	records := memory.NewConnectionRepository()
	handoffs := tokenstore.NewVault(time.Minute)
	vault := tokenstore.NewVault(time.Minute)

	svc := NewConnectService(
		provider,
		sessions,
		records,
		handoffs,
		vault,
		staticTokenGenerator{token: "state-token-1"},
		ConnectConfig{
			Enabled:       true,
			RedirectURL:   "http://localhost:8080/v1/oauth/github/callback",
			PublicBaseURL: "http://localhost:8080",
			Scope:         "repo,user",
		},
		logging.NewNop(),
	)

	return connectFixture{svc: svc, provider: provider, records: records, handoffs: handoffs, vault: vault}
}

func TestConnectService_BeginAuthorization(t *testing.T) {
	fx := newConnectFixture(t)

	authorizeURL, err := fx.svc.BeginAuthorization(t.Context(), "sess-1")
	if err != nil {
		t.Fatalf("begin authorization failed: %v", err)
	}

	parsed, err := url.Parse(authorizeURL)
	if err != nil {
		t.Fatalf("authorize URL does not parse: %v", err)
	}
	if got := parsed.Query().Get("state"); got != "state-token-1" {
		t.Fatalf("expected issued state in authorize URL, got %q", got)
	}
	if fx.provider.lastScope != "repo,user" {
		t.Fatalf("unexpected scope: %q", fx.provider.lastScope)
	}

	sessionID, ok := fx.handoffs.TakeAndClear("state-token-1")
	if !ok || sessionID != "sess-1" {
		t.Fatalf("expected state bound to sess-1, got %q ok=%v", sessionID, ok)
	}
}

func TestConnectService_BeginAuthorizationGuards(t *testing.T) {
	fx := newConnectFixture(t)

	if _, err := fx.svc.BeginAuthorization(t.Context(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}

	fx.svc.cfg.Enabled = false
	if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable when disabled, got %v", err)
	}
}

func TestConnectService_FullSuccessFlow(t *testing.T) {
	fx := newConnectFixture(t)

	if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
		t.Fatalf("begin authorization failed: %v", err)
	}

	returnURL, err := fx.svc.CompleteCallback(t.Context(), "code-1", fx.provider.lastState, "")
	if err != nil {
		t.Fatalf("complete callback failed: %v", err)
	}
	parsed, err := url.Parse(returnURL)
	if err != nil {
		t.Fatalf("return URL does not parse: %v", err)
	}
	if parsed.Path != "/v1/onboarding/sessions/sess-1/connect/return" {
		t.Fatalf("unexpected return path: %s", parsed.Path)
	}
	if parsed.Query().Get(connection.ParamConnected) != "true" {
		t.Fatalf("expected connected=true in return URL, got %q", parsed.RawQuery)
	}
	if parsed.Query().Get(connection.ParamUsername) != "alice" {
		t.Fatalf("expected username=alice in return URL, got %q", parsed.RawQuery)
	}
	if fx.provider.lastExchangeCode != "code-1" {
		t.Fatalf("expected code-1 exchanged, got %q", fx.provider.lastExchangeCode)
	}

	status, err := fx.svc.FinishReturn(t.Context(), "sess-1", parsed.Query())
	if err != nil {
		t.Fatalf("finish return failed: %v", err)
	}
	if !status.Acted {
		t.Fatalf("expected redirect parameters to be consumed")
	}
	if !status.Connected || status.Phase != connection.PhaseConnected {
		t.Fatalf("expected connected status, got %+v", status)
	}
	if status.Username != "alice" {
		t.Fatalf("expected username alice, got %q", status.Username)
	}

	if _, ok := fx.vault.TakeAndClear("sess-1"); ok {
		t.Fatalf("expected token vault drained after reconciliation")
	}
	link, ok, err := fx.records.GetBySessionKey(t.Context(), "sess-1")
	if err != nil || !ok {
		t.Fatalf("expected durable record, ok=%v err=%v", ok, err)
	}
	if username, _ := link.Username(); username != "alice" {
		t.Fatalf("expected durable record for alice, got %q", username)
	}

	// Reloading the same parameters after the vault is drained changes nothing.
	again, err := fx.svc.FinishReturn(t.Context(), "sess-1", parsed.Query())
	if err != nil {
		t.Fatalf("replayed finish return failed: %v", err)
	}
	if !again.Connected || again.Username != "alice" || again.Phase != connection.PhaseConnected {
		t.Fatalf("expected replay to report existing connection, got %+v", again)
	}
	if fx.provider.exchangeCalls != 1 {
		t.Fatalf("expected a single code exchange, got %d", fx.provider.exchangeCalls)
	}

	// A bare return URL is a plain status read.
	plain, err := fx.svc.FinishReturn(t.Context(), "sess-1", url.Values{})
	if err != nil {
		t.Fatalf("bare finish return failed: %v", err)
	}
	if plain.Acted {
		t.Fatalf("expected no action without redirect parameters")
	}
	if !plain.Connected || plain.Username != "alice" {
		t.Fatalf("expected durable status, got %+v", plain)
	}
}

func TestConnectService_StateIsSingleUse(t *testing.T) {
	fx := newConnectFixture(t)

	if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
		t.Fatalf("begin authorization failed: %v", err)
	}
	state := fx.provider.lastState

	if _, err := fx.svc.CompleteCallback(t.Context(), "code-1", state, ""); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	if _, err := fx.svc.CompleteCallback(t.Context(), "code-1", state, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on replayed state, got %v", err)
	}
}

func TestConnectService_UnknownState(t *testing.T) {
	fx := newConnectFixture(t)

	if _, err := fx.svc.CompleteCallback(t.Context(), "code-1", "never-issued", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown state, got %v", err)
	}
	if _, err := fx.svc.CompleteCallback(t.Context(), "code-1", "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank state, got %v", err)
	}
}

func TestConnectService_ProviderDenied(t *testing.T) {
	fx := newConnectFixture(t)

	if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
		t.Fatalf("begin authorization failed: %v", err)
	}

	returnURL, err := fx.svc.CompleteCallback(t.Context(), "", fx.provider.lastState, "access_denied")
	if err != nil {
		t.Fatalf("complete callback failed: %v", err)
	}
	parsed, err := url.Parse(returnURL)
	if err != nil {
		t.Fatalf("return URL does not parse: %v", err)
	}
	if parsed.Query().Get(connection.ParamError) != string(connection.ErrorCodeDenied) {
		t.Fatalf("expected error=denied, got %q", parsed.RawQuery)
	}

	status, err := fx.svc.FinishReturn(t.Context(), "sess-1", parsed.Query())
	if err != nil {
		t.Fatalf("finish return failed: %v", err)
	}
	if status.Phase != connection.PhaseFailed || status.ErrorCode != connection.ErrorCodeDenied {
		t.Fatalf("expected failed/denied status, got %+v", status)
	}
	if status.Connected {
		t.Fatalf("expected no connection after denial")
	}
	if status.ErrorMessage == "" {
		t.Fatalf("expected a human-readable error message")
	}
	if _, ok, err := fx.records.GetBySessionKey(t.Context(), "sess-1"); err != nil || ok {
		t.Fatalf("expected no durable record after denial, ok=%v err=%v", ok, err)
	}
}

func TestConnectService_DeniedRetryKeepsConnection(t *testing.T) {
	fx := newConnectFixture(t)

	if err := fx.records.Upsert(t.Context(), "sess-1", connection.LinkedAs("alice")); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}

	if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
		t.Fatalf("begin authorization failed: %v", err)
	}
	returnURL, err := fx.svc.CompleteCallback(t.Context(), "", fx.provider.lastState, "access_denied")
	if err != nil {
		t.Fatalf("complete callback failed: %v", err)
	}
	parsed, _ := url.Parse(returnURL)

	status, err := fx.svc.FinishReturn(t.Context(), "sess-1", parsed.Query())
	if err != nil {
		t.Fatalf("finish return failed: %v", err)
	}
	if status.Phase != connection.PhaseFailed || status.ErrorCode != connection.ErrorCodeDenied {
		t.Fatalf("expected failed/denied status, got %+v", status)
	}
	if !status.Connected {
		t.Fatalf("expected existing connection to survive a denied retry")
	}

	link, ok, err := fx.records.GetBySessionKey(t.Context(), "sess-1")
	if err != nil || !ok {
		t.Fatalf("expected durable record to remain, ok=%v err=%v", ok, err)
	}
	if username, _ := link.Username(); username != "alice" {
		t.Fatalf("expected alice to stay connected, got %q", username)
	}
}

func TestConnectService_ExchangeFailures(t *testing.T) {
	t.Run("exchange error", func(t *testing.T) {
		fx := newConnectFixture(t)
		fx.provider.exchangeErr = errors.New("boom")

		if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
			t.Fatalf("begin authorization failed: %v", err)
		}
		returnURL, err := fx.svc.CompleteCallback(t.Context(), "code-1", fx.provider.lastState, "")
		if err != nil {
			t.Fatalf("complete callback failed: %v", err)
		}
		parsed, _ := url.Parse(returnURL)
		if parsed.Query().Get(connection.ParamError) != string(connection.ErrorCodeExchangeFailed) {
			t.Fatalf("expected error=exchange_failed, got %q", parsed.RawQuery)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		fx := newConnectFixture(t)

		if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
			t.Fatalf("begin authorization failed: %v", err)
		}
		returnURL, err := fx.svc.CompleteCallback(t.Context(), "", fx.provider.lastState, "")
		if err != nil {
			t.Fatalf("complete callback failed: %v", err)
		}
		parsed, _ := url.Parse(returnURL)
		if parsed.Query().Get(connection.ParamError) != string(connection.ErrorCodeExchangeFailed) {
			t.Fatalf("expected error=exchange_failed, got %q", parsed.RawQuery)
		}
	})

	t.Run("empty login", func(t *testing.T) {
		fx := newConnectFixture(t)
		fx.provider.user = ExternalGitHubUser{Login: "  "}

		if _, err := fx.svc.BeginAuthorization(t.Context(), "sess-1"); err != nil {
			t.Fatalf("begin authorization failed: %v", err)
		}
		returnURL, err := fx.svc.CompleteCallback(t.Context(), "code-1", fx.provider.lastState, "")
		if err != nil {
			t.Fatalf("complete callback failed: %v", err)
		}
		parsed, _ := url.Parse(returnURL)
		if parsed.Query().Get(connection.ParamError) != string(connection.ErrorCodeExchangeFailed) {
			t.Fatalf("expected error=exchange_failed, got %q", parsed.RawQuery)
		}
		if _, ok := fx.vault.TakeAndClear("sess-1"); ok {
			t.Fatalf("expected no vaulted token for anonymous user")
		}
	})
}

func TestConnectService_SuccessWithoutUsername(t *testing.T) {
	fx := newConnectFixture(t)

	query := url.Values{}
	query.Set(connection.ParamConnected, "true")

	status, err := fx.svc.FinishReturn(t.Context(), "sess-1", query)
	if err != nil {
		t.Fatalf("finish return failed: %v", err)
	}
	if status.Phase != connection.PhaseFailed || status.ErrorCode != connection.ErrorCodeUnknown {
		t.Fatalf("expected failed/unknown status, got %+v", status)
	}
	if _, ok, err := fx.records.GetBySessionKey(t.Context(), "sess-1"); err != nil || ok {
		t.Fatalf("expected no durable record, ok=%v err=%v", ok, err)
	}
}

func TestConnectService_Status(t *testing.T) {
	fx := newConnectFixture(t)

	status, err := fx.svc.Status(t.Context(), "sess-1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Connected || status.Phase != connection.PhaseIdle {
		t.Fatalf("expected idle status, got %+v", status)
	}

	if err := fx.records.Upsert(t.Context(), "sess-1", connection.LinkedAs("alice")); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}
	status, err = fx.svc.Status(t.Context(), "sess-1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !status.Connected || status.Username != "alice" || status.Phase != connection.PhaseConnected {
		t.Fatalf("expected connected status, got %+v", status)
	}

	if _, err := fx.svc.Status(t.Context(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}
