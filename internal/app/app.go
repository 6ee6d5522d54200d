package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/openquest/onboarding-api/external/github"
	"github.com/openquest/onboarding-api/internal/config"
	"github.com/openquest/onboarding-api/internal/domain/connection"
	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/infrastructure/account/supabase"
	cacherepo "github.com/openquest/onboarding-api/internal/infrastructure/repository/cache"
	"github.com/openquest/onboarding-api/internal/infrastructure/repository/memory"
	"github.com/openquest/onboarding-api/internal/infrastructure/repository/postgres"
	"github.com/openquest/onboarding-api/internal/interfaces/httpapi"
	basecache "github.com/openquest/onboarding-api/internal/platform/cache"
	idgen "github.com/openquest/onboarding-api/internal/platform/id"
	"github.com/openquest/onboarding-api/internal/platform/logging"
	"github.com/openquest/onboarding-api/internal/platform/resilience"
	"github.com/openquest/onboarding-api/internal/platform/tokenstore"
	"github.com/openquest/onboarding-api/internal/usecase"
)

const (
	dbConnectTimeout  = 5 * time.Second
	dbMaxOpenConns    = 10
	dbMaxIdleConns    = 5
	dbConnMaxLifetime = 30 * time.Minute

	healthProbeTimeout   = 3 * time.Second
	sessionPurgeInterval = 10 * time.Minute
)

// NewHTTPServer wires repositories, provider clients, and services into the
// HTTP router. The returned cleanup stops background workers and closes the
// database pool; call it after the server has shut down.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	db := openDatabase(cfg, logger)

	var (
		preferenceRepo preference.Repository
		connectionRepo connection.Repository
	)
	if db != nil {
		preferenceRepo = postgres.NewPreferenceRepository(db)
		connectionRepo = postgres.NewConnectionRepository(db)
	} else {
		preferenceRepo = memory.NewPreferenceRepository()
		connectionRepo = memory.NewConnectionRepository()
	}
	if cfg.CacheEnabled {
		preferenceRepo = cacherepo.NewPreferenceRepository(preferenceRepo, basecache.NewStore(cfg.CacheTTL))
	}

	sessionRepo := memory.NewSessionRepository()
	ids := idgen.NewRandomGenerator()
	handoffVault := tokenstore.NewVault(cfg.HandoffTTL)
	tokenVault := tokenstore.NewVault(cfg.TokenVaultTTL)

	githubClient := github.NewClient(github.ClientConfig{
		APIBaseURL:   cfg.GitHubAPIBaseURL,
		OAuthBaseURL: cfg.GitHubOAuthBaseURL,
		ClientID:     cfg.GitHubOAuthClientID,
		ClientSecret: cfg.GitHubOAuthClientSecret,
		Token:        cfg.GitHubAPIToken,
		Timeout:      cfg.GitHubTimeout,
		MaxRetries:   cfg.GitHubMaxRetries,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.GitHubCircuitEnabled,
			FailureThreshold: cfg.GitHubCircuitFailureCount,
			OpenTimeout:      cfg.GitHubCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GitHubCircuitHalfOpenMaxReq,
		},
	})

	supabaseClient := supabase.NewClient(supabase.Config{
		BaseURL:        cfg.SupabaseURL,
		APIKey:         cfg.SupabaseKey,
		Timeout:        cfg.SupabaseTimeout,
		VerifyCacheTTL: cfg.SupabaseVerifyCacheTTL,
		Logger:         logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SupabaseCircuitEnabled,
			FailureThreshold: cfg.SupabaseCircuitFailureCount,
			OpenTimeout:      cfg.SupabaseCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SupabaseCircuitHalfOpenMaxReq,
		},
	})

	onboardingSvc := usecase.NewOnboardingService(sessionRepo, ids, cfg.SessionTTL, logger)
	connectSvc := usecase.NewConnectService(
		githubClient,
		sessionRepo,
		connectionRepo,
		handoffVault,
		tokenVault,
		ids,
		usecase.ConnectConfig{
			Enabled:       cfg.GitHubOAuthEnabled,
			RedirectURL:   cfg.PublicBaseURL + "/v1/oauth/github/callback",
			PublicBaseURL: cfg.PublicBaseURL,
			Scope:         cfg.GitHubOAuthScope,
		},
		logger,
	)
	preferenceSvc := usecase.NewPreferenceService(preferenceRepo, ids)
	accountSvc := usecase.NewAccountService(supabaseClient, usecase.AccountConfig{Enabled: cfg.SupabaseEnabled}, logger)
	recommendationSvc := usecase.NewRecommendationService(
		githubClient,
		basecache.NewStore(cfg.RecommendationCacheTTL),
		usecase.RecommendationConfig{
			Workers:  cfg.RecommendationWorkers,
			MinStars: cfg.RecommendationMinStars,
			MaxStars: cfg.RecommendationMaxStars,
		},
		logger,
	)
	githubDataSvc := usecase.NewGitHubDataService(githubClient, githubClient, logger)

	healthSvc := usecase.NewHealthService(healthProbeTimeout, logger)
	registerHealthProbes(healthSvc, cfg, db, githubClient, supabaseClient)

	stopPurger := startSessionPurger(onboardingSvc, logger)

	handler := httpapi.NewHandler(
		onboardingSvc,
		connectSvc,
		preferenceSvc,
		accountSvc,
		recommendationSvc,
		githubDataSvc,
		healthSvc,
		logger,
	)
	router := httpapi.NewRouter(handler, supabaseClient, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	cleanup := func() {
		stopPurger()
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("close database pool failed", "error", err)
			}
		}
	}

	if server.Addr == "" {
		cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

// openDatabase connects the traced pool. A missing or unreachable database is
// not fatal: sessions are in-memory anyway, and the repositories that would
// persist fall back to their in-memory counterparts.
func openDatabase(cfg config.Config, logger *logging.Logger) *sqlx.DB {
	dsn := strings.TrimSpace(cfg.DBURL)
	if dsn == "" {
		logger.Warn("DB_URL is empty, using in-memory repositories")
		return nil
	}
	dsn = normalizeDBURL(dsn, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		logger.Warn("open database failed, using in-memory repositories", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("database unreachable, using in-memory repositories", "db", dbNameFromURL(dsn), "error", err)
		_ = db.Close()
		return nil
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	logger.Info("database connected", "db", dbNameFromURL(dsn))
	return db
}

// registerHealthProbes wires the dependency checks behind the health report.
// Only the database is critical; provider outages degrade the report without
// taking readiness down.
func registerHealthProbes(
	healthSvc *usecase.HealthService,
	cfg config.Config,
	db *sqlx.DB,
	githubClient *github.Client,
	supabaseClient *supabase.Client,
) {
	if db != nil {
		healthSvc.Register(usecase.HealthProbe{
			Name:     "database",
			Critical: true,
			Check:    db.PingContext,
		})
	}
	healthSvc.Register(usecase.HealthProbe{
		Name:  "github",
		Check: githubClient.Ping,
	})
	if cfg.SupabaseEnabled {
		healthSvc.Register(usecase.HealthProbe{
			Name:  "supabase",
			Check: supabaseClient.Health,
		})
	}
}

// startSessionPurger sweeps expired onboarding sessions on a fixed interval
// until the returned stop function is called.
func startSessionPurger(svc *usecase.OnboardingService, logger *logging.Logger) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sessionPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				purged, err := svc.PurgeExpired(context.Background())
				if err != nil {
					logger.Warn("purge expired sessions failed", "error", err)
					continue
				}
				if purged > 0 {
					logger.Info("purged expired onboarding sessions", "count", purged)
				}
			}
		}
	}()
	return func() { close(done) }
}
