package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/openquest/onboarding-api/internal/usecase"
)

func (h *Handler) StartOnboardingSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartOnboardingSession")
	defer span.End()

	state, err := h.onboardingService.StartSession(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "start onboarding session failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, sessionStateToDTO(ctx, state))
}

func (h *Handler) GetOnboardingSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOnboardingSession")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	state, err := h.onboardingService.GetState(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "get onboarding session failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) EndOnboardingSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EndOnboardingSession")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	deleted, err := h.onboardingService.EndSession(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "end onboarding session failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !deleted {
		writeError(ctx, w, fmt.Errorf("%w: session not found", usecase.ErrNotFound))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) AdvanceOnboardingStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdvanceOnboardingStep")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	state, err := h.onboardingService.NextStep(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "advance onboarding step failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) RewindOnboardingStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RewindOnboardingStep")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	state, err := h.onboardingService.PrevStep(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "rewind onboarding step failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) SetOnboardingStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetOnboardingStep")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req setStepRequest
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

	state, err := h.onboardingService.SetStep(ctx, sessionID, req.Step)
	if err != nil {
		h.logger.WarnContext(ctx, "set onboarding step failed", "session_id", sessionID, "step", req.Step, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) ToggleOnboardingLanguage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ToggleOnboardingLanguage")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req toggleLanguageRequest
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

	state, err := h.onboardingService.ToggleLanguage(ctx, sessionID, req.Language)
	if err != nil {
		h.logger.WarnContext(ctx, "toggle onboarding language failed", "session_id", sessionID, "language", req.Language, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) AddOnboardingSkill(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddOnboardingSkill")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req addSkillRequest
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

	state, err := h.onboardingService.AddSkill(ctx, sessionID, req.Name, req.Familiarity)
	if err != nil {
		h.logger.WarnContext(ctx, "add onboarding skill failed", "session_id", sessionID, "skill", req.Name, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) UpdateOnboardingSkill(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateOnboardingSkill")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	skillName := strings.TrimSpace(r.PathValue("skillName"))
	var req updateSkillFamiliarityRequest
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

	state, err := h.onboardingService.UpdateSkillFamiliarity(ctx, sessionID, skillName, req.Familiarity)
	if err != nil {
		h.logger.WarnContext(ctx, "update onboarding skill failed", "session_id", sessionID, "skill", skillName, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) RemoveOnboardingSkill(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveOnboardingSkill")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	skillName := strings.TrimSpace(r.PathValue("skillName"))
	state, err := h.onboardingService.RemoveSkill(ctx, sessionID, skillName)
	if err != nil {
		h.logger.WarnContext(ctx, "remove onboarding skill failed", "session_id", sessionID, "skill", skillName, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) ToggleOnboardingIssueInterest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ToggleOnboardingIssueInterest")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req toggleInterestRequest
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

	state, err := h.onboardingService.ToggleIssueInterest(ctx, sessionID, req.Interest)
	if err != nil {
		h.logger.WarnContext(ctx, "toggle issue interest failed", "session_id", sessionID, "interest", req.Interest, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) ToggleOnboardingProjectInterest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ToggleOnboardingProjectInterest")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req toggleInterestRequest
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

	state, err := h.onboardingService.ToggleProjectInterest(ctx, sessionID, req.Interest)
	if err != nil {
		h.logger.WarnContext(ctx, "toggle project interest failed", "session_id", sessionID, "interest", req.Interest, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) ResetOnboardingPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResetOnboardingPreferences")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	state, err := h.onboardingService.ResetPreferences(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "reset onboarding preferences failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionStateToDTO(ctx, state))
}

func (h *Handler) ListSubmittableSkills(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSubmittableSkills")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	state, err := h.onboardingService.GetState(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "list submittable skills failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, skillsToDTO(state.Submittable))
}
