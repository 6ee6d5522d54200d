package httpapi

import (
	"net/http"

	"github.com/openquest/onboarding-api/internal/usecase"
)

// Healthz is the liveness probe. It answers without touching any dependency.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// DependencyHealth fans out the registered readiness probes. A degraded
// report still answers 200; only a down critical dependency turns the
// response into a 503.
func (h *Handler) DependencyHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DependencyHealth")
	defer span.End()

	report := h.healthService.Check(ctx)

	status := http.StatusOK
	if report.Status == usecase.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}

	writeSuccess(ctx, w, status, report)
}
