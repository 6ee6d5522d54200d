package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) BeginGitHubAuthorization(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.BeginGitHubAuthorization")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	authorizeURL, err := h.connectService.BeginAuthorization(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "begin github authorization failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, authorizationStartDTO{
		SessionID:    sessionID,
		AuthorizeURL: authorizeURL,
	})
}

// GitHubOAuthCallback lands the browser after the provider consent screen.
// Whatever the provider reported, the user ends up on the session's return
// URL; only an unresolvable state parameter gets an error response instead.
func (h *Handler) GitHubOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GitHubOAuthCallback")
	defer span.End()

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	providerErr := query.Get("error")

	redirectURL, err := h.connectService.CompleteCallback(ctx, code, state, providerErr)
	if err != nil {
		h.logger.WarnContext(ctx, "github oauth callback failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// FinishGitHubReturn reconciles the callback outcome carried in the query
// string, then strips it from the address bar with a redirect to the bare
// path. The follow-up request takes the plain status branch.
func (h *Handler) FinishGitHubReturn(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinishGitHubReturn")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	status, err := h.connectService.FinishReturn(ctx, sessionID, r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "finish github return failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if status.Acted {
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, connectStatusToDTO(ctx, status))
}

func (h *Handler) GetGitHubConnection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGitHubConnection")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	status, err := h.connectService.Status(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "get github connection failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, connectStatusToDTO(ctx, status))
}
