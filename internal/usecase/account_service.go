package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/openquest/onboarding-api/internal/domain/account"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

// AccountGateway talks to the hosted identity provider.
type AccountGateway interface {
	SignUp(ctx context.Context, email, password string) (account.Auth, error)
	SignInWithPassword(ctx context.Context, email, password string) (account.Auth, error)
	RefreshSession(ctx context.Context, refreshToken string) (account.Auth, error)
	SignOut(ctx context.Context, accessToken string) error
}

const minPasswordLength = 6

type AccountConfig struct {
	Enabled bool
}

type AccountService struct {
	gateway AccountGateway
	cfg     AccountConfig
	logger  *logging.Logger
}

func NewAccountService(gateway AccountGateway, cfg AccountConfig, logger *logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AccountService{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *AccountService) Register(ctx context.Context, email, password string) (account.Auth, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Register")
	defer span.End()

	email, password, err := s.checkCredentials(email, password)
	if err != nil {
		return account.Auth{}, err
	}

	auth, err := s.gateway.SignUp(ctx, email, password)
	if err != nil {
		return account.Auth{}, fmt.Errorf("sign up: %w", err)
	}
	s.logger.InfoContext(ctx, "account registered", "user_id", auth.User.ID)

	return auth, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (account.Auth, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Login")
	defer span.End()

	email, password, err := s.checkCredentials(email, password)
	if err != nil {
		return account.Auth{}, err
	}

	auth, err := s.gateway.SignInWithPassword(ctx, email, password)
	if err != nil {
		return account.Auth{}, fmt.Errorf("sign in: %w", err)
	}

	return auth, nil
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (account.Auth, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Refresh")
	defer span.End()

	if err := s.available(); err != nil {
		return account.Auth{}, err
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return account.Auth{}, fmt.Errorf("%w: refresh_token is required", ErrInvalidInput)
	}

	auth, err := s.gateway.RefreshSession(ctx, refreshToken)
	if err != nil {
		return account.Auth{}, fmt.Errorf("refresh session: %w", err)
	}

	return auth, nil
}

func (s *AccountService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Logout")
	defer span.End()

	if err := s.available(); err != nil {
		return err
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrInvalidInput)
	}

	if err := s.gateway.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	return nil
}

func (s *AccountService) available() error {
	if !s.cfg.Enabled {
		return fmt.Errorf("%w: account provider is disabled (SUPABASE_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.gateway == nil {
		return fmt.Errorf("%w: account provider is not configured", ErrDependencyUnavailable)
	}
	return nil
}

func (s *AccountService) checkCredentials(email, password string) (string, string, error) {
	if err := s.available(); err != nil {
		return "", "", err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return "", "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	return email, password, nil
}
