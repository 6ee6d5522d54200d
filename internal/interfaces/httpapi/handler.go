package httpapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/usecase"
)

type Handler struct {
	onboardingService     *usecase.OnboardingService
	connectService        *usecase.ConnectService
	preferenceService     *usecase.PreferenceService
	accountService        *usecase.AccountService
	recommendationService *usecase.RecommendationService
	githubDataService     *usecase.GitHubDataService
	healthService         *usecase.HealthService
	logger                *logging.Logger
	validator             *validator.Validate
}

func NewHandler(
	onboardingService *usecase.OnboardingService,
	connectService *usecase.ConnectService,
	preferenceService *usecase.PreferenceService,
	accountService *usecase.AccountService,
	recommendationService *usecase.RecommendationService,
	githubDataService *usecase.GitHubDataService,
	healthService *usecase.HealthService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		onboardingService:     onboardingService,
		connectService:        connectService,
		preferenceService:     preferenceService,
		accountService:        accountService,
		recommendationService: recommendationService,
		githubDataService:     githubDataService,
		healthService:         healthService,
		logger:                logger,
		validator:             validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
