package httpapi

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/openquest/onboarding-api/internal/usecase"
)

func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterAccount")
	defer span.End()

	var req registerRequest
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

	auth, err := h.accountService.Register(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "register account failed", "email", req.Email, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, authToDTO(ctx, auth))
}

func (h *Handler) LoginAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LoginAccount")
	defer span.End()

	var req loginRequest
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

	auth, err := h.accountService.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed", "email", req.Email, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, authToDTO(ctx, auth))
}

func (h *Handler) RefreshAccountSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshAccountSession")
	defer span.End()

	var req refreshRequest
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

	auth, err := h.accountService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh session failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, authToDTO(ctx, auth))
}

// LogoutAccount revokes the access token presented in the Authorization
// header. There is no request body; the bearer token is the input.
func (h *Handler) LogoutAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LogoutAccount")
	defer span.End()

	token, err := bearerToken(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.accountService.Logout(ctx, token); err != nil {
		h.logger.WarnContext(ctx, "logout failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *Handler) GetAuthenticatedAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAuthenticatedAccount")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, principalDTO{
		UserID: principal.UserID,
		Email:  principal.Email,
	})
}
