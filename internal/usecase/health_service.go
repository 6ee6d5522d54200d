package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/openquest/onboarding-api/internal/platform/logging"
)

type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// HealthProbe checks one dependency. Critical probes take the whole report
// down on failure; the rest only degrade it.
type HealthProbe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type ProbeResult struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
}

type HealthReport struct {
	Status HealthStatus  `json:"status"`
	Probes []ProbeResult `json:"probes"`
}

type HealthService struct {
	probes       []HealthProbe
	probeTimeout time.Duration
	maxParallel  int
	logger       *logging.Logger
}

func NewHealthService(probeTimeout time.Duration, logger *logging.Logger) *HealthService {
	if logger == nil {
		logger = logging.Default()
	}
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}

	return &HealthService{
		probeTimeout: probeTimeout,
		maxParallel:  4,
		logger:       logger,
	}
}

// Register adds a probe. All registration happens during app wiring, before
// the first Check.
func (s *HealthService) Register(probe HealthProbe) {
	if probe.Name == "" || probe.Check == nil {
		return
	}
	s.probes = append(s.probes, probe)
}

// Check runs every probe concurrently and aggregates their results.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	ctx, span := startUsecaseSpan(ctx, "usecase.HealthService.Check")
	defer span.End()

	if len(s.probes) == 0 {
		return HealthReport{Status: HealthStatusOK, Probes: []ProbeResult{}}
	}

	critical := make(map[string]bool, len(s.probes))
	for _, probe := range s.probes {
		critical[probe.Name] = probe.Critical
	}

	runner := pool.NewWithResults[ProbeResult]().WithMaxGoroutines(s.maxParallel)
	for _, probe := range s.probes {
		probe := probe
		runner.Go(func() ProbeResult {
			probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
			defer cancel()

			start := time.Now()
			err := probe.Check(probeCtx)
			result := ProbeResult{
				Name:      probe.Name,
				Status:    HealthStatusOK,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				result.Status = HealthStatusDown
				result.Error = err.Error()
				s.logger.WarnContext(ctx, "health probe failed", "probe", probe.Name, "error", err)
			}
			return result
		})
	}
	results := runner.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := HealthStatusOK
	for _, result := range results {
		if result.Status == HealthStatusOK {
			continue
		}
		if critical[result.Name] {
			status = HealthStatusDown
			break
		}
		status = HealthStatusDegraded
	}

	return HealthReport{Status: status, Probes: results}
}
