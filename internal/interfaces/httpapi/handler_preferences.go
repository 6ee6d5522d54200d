package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/openquest/onboarding-api/internal/usecase"
)

// SubmitMyPreferences persists the authenticated user's preference document.
// When the payload names a wizard session, the accumulated snapshot is
// submitted and the session is reset; otherwise the explicit payload wins.
func (h *Handler) SubmitMyPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitMyPreferences")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req submitPreferencesRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.SubmitPreferencesInput{
		UserID:           principal.UserID,
		Languages:        req.Languages,
		Skills:           skillInputsFromDTO(req.Skills),
		IssueInterests:   req.IssueInterests,
		ProjectInterests: req.ProjectInterests,
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		state, err := h.onboardingService.GetState(ctx, sessionID)
		if err != nil {
			h.logger.WarnContext(ctx, "load wizard snapshot for submit failed", "user_id", principal.UserID, "session_id", sessionID, "error", err)
			writeError(ctx, w, err)
			return
		}
		input.Languages = state.Snapshot.Languages
		input.Skills = skillInputsFromDomain(state.Submittable)
		input.IssueInterests = issueInterestsToStrings(state.Snapshot.IssueInterests)
		input.ProjectInterests = projectInterestsToStrings(state.Snapshot.ProjectInterests)
	}

	record, err := h.preferenceService.Submit(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "submit preferences failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	if sessionID != "" {
		if _, err := h.onboardingService.ResetPreferences(ctx, sessionID); err != nil {
			h.logger.WarnContext(ctx, "reset wizard session after submit failed", "session_id", sessionID, "error", err)
		}
	}

	writeSuccess(ctx, w, http.StatusCreated, preferenceRecordToDTO(ctx, record))
}

func (h *Handler) GetMyPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyPreferences")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	record, err := h.preferenceService.Get(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get preferences failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, preferenceRecordToDTO(ctx, record))
}

func (h *Handler) UpdateMyPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateMyPreferences")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req updatePreferencesRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.UpdatePreferencesInput{
		UserID:           principal.UserID,
		Languages:        req.Languages,
		IssueInterests:   req.IssueInterests,
		ProjectInterests: req.ProjectInterests,
	}
	if req.Skills != nil {
		skills := skillInputsFromDTO(*req.Skills)
		input.Skills = &skills
	}

	record, err := h.preferenceService.Update(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "update preferences failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, preferenceRecordToDTO(ctx, record))
}

func (h *Handler) DeleteMyPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteMyPreferences")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	if err := h.preferenceService.Delete(ctx, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "delete preferences failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}
