package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/health/dependencies", handler.DependencyHealth)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/onboarding/sessions", handler.StartOnboardingSession)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}", handler.GetOnboardingSession)
	mux.HandleFunc("DELETE /v1/onboarding/sessions/{sessionID}", handler.EndOnboardingSession)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/steps/next", handler.AdvanceOnboardingStep)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/steps/prev", handler.RewindOnboardingStep)
	mux.HandleFunc("PUT /v1/onboarding/sessions/{sessionID}/step", handler.SetOnboardingStep)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/languages/toggle", handler.ToggleOnboardingLanguage)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/skills", handler.AddOnboardingSkill)
	mux.HandleFunc("PUT /v1/onboarding/sessions/{sessionID}/skills/{skillName}", handler.UpdateOnboardingSkill)
	mux.HandleFunc("DELETE /v1/onboarding/sessions/{sessionID}/skills/{skillName}", handler.RemoveOnboardingSkill)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/interests/issues/toggle", handler.ToggleOnboardingIssueInterest)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/interests/projects/toggle", handler.ToggleOnboardingProjectInterest)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/reset", handler.ResetOnboardingPreferences)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}/submittable-skills", handler.ListSubmittableSkills)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}/recommendations", handler.PreviewSessionRecommendations)

	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/connect/authorize", handler.BeginGitHubAuthorization)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}/connect", handler.GetGitHubConnection)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}/connect/return", handler.FinishGitHubReturn)
	mux.HandleFunc("GET /v1/oauth/github/callback", handler.GitHubOAuthCallback)
	mux.HandleFunc("GET /v1/oauth/github/validate", handler.ValidateGitHubToken)
	mux.HandleFunc("GET /v1/github/users/{login}", handler.GetGitHubUser)

	mux.HandleFunc("POST /v1/auth/register", handler.RegisterAccount)
	mux.HandleFunc("POST /v1/auth/login", handler.LoginAccount)
	mux.HandleFunc("POST /v1/auth/refresh", handler.RefreshAccountSession)
	mux.HandleFunc("POST /v1/auth/logout", handler.LogoutAccount)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedAccountRoutes(mux, handler, verifier)
	registerAuthorizedPreferenceRoutes(mux, handler, verifier)
	registerAuthorizedDiscoveryRoutes(mux, handler, verifier)
}

func registerAuthorizedAccountRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/auth/me", RequireAuth(verifier, http.HandlerFunc(handler.GetAuthenticatedAccount)))
}

func registerAuthorizedPreferenceRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/me/preferences", RequireAuth(verifier, http.HandlerFunc(handler.SubmitMyPreferences)))
	mux.Handle("GET /v1/me/preferences", RequireAuth(verifier, http.HandlerFunc(handler.GetMyPreferences)))
	mux.Handle("PATCH /v1/me/preferences", RequireAuth(verifier, http.HandlerFunc(handler.UpdateMyPreferences)))
	mux.Handle("DELETE /v1/me/preferences", RequireAuth(verifier, http.HandlerFunc(handler.DeleteMyPreferences)))
}

func registerAuthorizedDiscoveryRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/recommendations/repositories", RequireAuth(verifier, http.HandlerFunc(handler.ListRecommendedRepositories)))
	mux.Handle("GET /v1/repositories/{owner}/{repo}/issues", RequireAuth(verifier, http.HandlerFunc(handler.ListRepositoryGoodFirstIssues)))
}
