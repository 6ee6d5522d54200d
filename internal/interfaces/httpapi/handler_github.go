package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/openquest/onboarding-api/internal/usecase"
)

// ListRecommendedRepositories ranks repositories against the authenticated
// user's stored preference document.
func (h *Handler) ListRecommendedRepositories(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRecommendedRepositories")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	limit, err := parseLimitParam(r, 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.preferenceService.Get(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "load preferences for recommendations failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items, err := h.recommendationService.RecommendRepositories(ctx, usecase.ProfileFromRecord(record), limit)
	if err != nil {
		h.logger.WarnContext(ctx, "recommend repositories failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recommendedReposToDTO(ctx, items))
}

// PreviewSessionRecommendations ranks repositories against a wizard session's
// in-progress snapshot, before anything is submitted.
func (h *Handler) PreviewSessionRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PreviewSessionRecommendations")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	limit, err := parseLimitParam(r, 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	state, err := h.onboardingService.GetState(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "load session for recommendations failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	profile := usecase.ProfileFromSnapshot(state.Snapshot, state.Submittable)
	items, err := h.recommendationService.RecommendRepositories(ctx, profile, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "preview session recommendations failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recommendedReposToDTO(ctx, items))
}

func (h *Handler) ListRepositoryGoodFirstIssues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRepositoryGoodFirstIssues")
	defer span.End()

	owner := strings.TrimSpace(r.PathValue("owner"))
	repo := strings.TrimSpace(r.PathValue("repo"))
	limit, err := parseLimitParam(r, 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	input := usecase.GoodFirstIssuesInput{
		Repo:     owner + "/" + repo,
		Language: strings.TrimSpace(query.Get("language")),
		Labels:   splitListParam(query.Get("labels")),
		Limit:    limit,
	}

	items, err := h.githubDataService.GoodFirstIssues(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "list good first issues failed", "repo", input.Repo, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, issuesToDTO(ctx, items))
}

func (h *Handler) GetGitHubUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGitHubUser")
	defer span.End()

	login := strings.TrimSpace(r.PathValue("login"))
	user, err := h.githubDataService.PublicUser(ctx, login)
	if err != nil {
		h.logger.WarnContext(ctx, "get github user failed", "login", login, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, githubUserToDTO(ctx, user))
}

// ValidateGitHubToken checks a personal access token against the provider.
// The token comes from the access_token query parameter, with the
// Authorization header as a fallback.
func (h *Handler) ValidateGitHubToken(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ValidateGitHubToken")
	defer span.End()

	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		if bearer, err := bearerToken(r); err == nil {
			token = bearer
		}
	}
	if token == "" {
		writeError(ctx, w, fmt.Errorf("%w: access_token is required", usecase.ErrInvalidInput))
		return
	}

	user, err := h.githubDataService.ValidateToken(ctx, token)
	if err != nil {
		h.logger.WarnContext(ctx, "validate github token failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, githubUserToDTO(ctx, user))
}

func parseLimitParam(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: limit must be positive integer", usecase.ErrInvalidInput)
	}
	return v, nil
}

func splitListParam(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
