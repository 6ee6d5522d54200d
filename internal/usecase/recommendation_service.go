package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/platform/cache"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 50
	recommendationOverfetch    = 2
)

// RecommendationProfile is the preference slice that drives repository
// scoring. Languages are the primary filter; skills and project interests
// only reorder what the language filter returned.
type RecommendationProfile struct {
	Languages        []string
	Skills           []preference.Skill
	ProjectInterests []preference.ProjectInterest
}

type RecommendedRepo struct {
	ExternalRepo
	Score int
}

type RecommendationConfig struct {
	Workers  int
	MinStars int
	MaxStars int
}

type RecommendationService struct {
	provider GitHubDataProvider
	results  *cache.Store
	cfg      RecommendationConfig
	logger   *logging.Logger
}

func NewRecommendationService(
	provider GitHubDataProvider,
	results *cache.Store,
	cfg RecommendationConfig,
	logger *logging.Logger,
) *RecommendationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}

	return &RecommendationService{
		provider: provider,
		results:  results,
		cfg:      cfg,
		logger:   logger,
	}
}

// RecommendRepositories fans one search per preferred language out to the
// provider and merges the results ranked by topic overlap, then stars.
func (s *RecommendationService) RecommendRepositories(ctx context.Context, profile RecommendationProfile, limit int) ([]RecommendedRepo, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecommendationService.RecommendRepositories")
	defer span.End()

	if s.provider == nil {
		return nil, fmt.Errorf("%w: github data provider is not configured", ErrDependencyUnavailable)
	}

	if limit <= 0 {
		limit = defaultRecommendationLimit
	}
	if limit > maxRecommendationLimit {
		limit = maxRecommendationLimit
	}

	languages := normalizeLanguages(profile.Languages)
	if len(languages) == 0 {
		return []RecommendedRepo{}, nil
	}
	topics := interestTopics(profile)

	if s.results == nil {
		return s.searchAndRank(ctx, languages, topics, limit)
	}

	key := recommendationCacheKey(languages, topics, limit, s.cfg.MinStars, s.cfg.MaxStars)
	out, err := s.results.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.searchAndRank(ctx, languages, topics, limit)
	})
	if err != nil {
		return nil, err
	}

	ranked, ok := out.([]RecommendedRepo)
	if !ok {
		return nil, fmt.Errorf("unexpected cached recommendation type %T", out)
	}
	return ranked, nil
}

func (s *RecommendationService) searchAndRank(ctx context.Context, languages, topics []string, limit int) ([]RecommendedRepo, error) {
	workerCount := s.cfg.Workers
	if workerCount > len(languages) {
		workerCount = len(languages)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		found   = make([]ExternalRepo, 0, limit*recommendationOverfetch*len(languages))
		lastErr error
	)

	var workers sync.WaitGroup
	for _, language := range languages {
		language := language
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			items, searchErr := s.provider.SearchRepositories(ctx, RepoSearchQuery{
				Language: language,
				MinStars: s.cfg.MinStars,
				MaxStars: s.cfg.MaxStars,
				Limit:    limit * recommendationOverfetch,
			})

			mu.Lock()
			defer mu.Unlock()
			if searchErr != nil {
				lastErr = fmt.Errorf("search repositories language=%s: %w", language, searchErr)
				s.logger.WarnContext(ctx, "repository search failed", "language", language, "error", searchErr)
				return
			}
			found = append(found, items...)
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit search task: %w", err)
		}
	}
	workers.Wait()

	if len(found) == 0 && lastErr != nil {
		return nil, lastErr
	}

	ranked := rankRepositories(found, topics)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func rankRepositories(items []ExternalRepo, topics []string) []RecommendedRepo {
	topicSet := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		topicSet[topic] = struct{}{}
	}

	byID := make(map[int64]RecommendedRepo, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		score := 0
		for _, topic := range item.Topics {
			if _, ok := topicSet[strings.ToLower(topic)]; ok {
				score++
			}
		}
		existing, seen := byID[item.ID]
		if seen && existing.Score >= score {
			continue
		}
		if !seen {
			order = append(order, item.ID)
		}
		byID[item.ID] = RecommendedRepo{ExternalRepo: item, Score: score}
	}

	out := make([]RecommendedRepo, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Stars != out[j].Stars {
			return out[i].Stars > out[j].Stars
		}
		return out[i].FullName < out[j].FullName
	})

	return out
}

// interestTopics orders scoring topics by skill familiarity, strongest
// first, with project interests appended after.
func interestTopics(profile RecommendationProfile) []string {
	skills := append([]preference.Skill(nil), profile.Skills...)
	sort.SliceStable(skills, func(i, j int) bool {
		return skills[i].Familiarity.Weight() > skills[j].Familiarity.Weight()
	})

	out := make([]string, 0, len(skills)+len(profile.ProjectInterests))
	seen := make(map[string]struct{}, cap(out))
	for _, skill := range skills {
		topic := strings.ToLower(strings.TrimSpace(skill.Name))
		if topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	for _, interest := range profile.ProjectInterests {
		topic := strings.ToLower(strings.TrimSpace(string(interest)))
		if topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}

	return out
}

func recommendationCacheKey(languages, topics []string, limit, minStars, maxStars int) string {
	var b strings.Builder
	b.WriteString(strings.Join(languages, ","))
	b.WriteString("|")
	b.WriteString(strings.Join(topics, ","))
	b.WriteString("|")
	b.WriteString(strconv.Itoa(limit))
	b.WriteString("|")
	b.WriteString(strconv.Itoa(minStars))
	b.WriteString("|")
	b.WriteString(strconv.Itoa(maxStars))

	sum := sha256.Sum256([]byte(b.String()))
	return "recommend:repos:" + hex.EncodeToString(sum[:16])
}

// ProfileFromSnapshot adapts live wizard state for recommendation scoring.
func ProfileFromSnapshot(snap preference.Snapshot, submittable []preference.Skill) RecommendationProfile {
	return RecommendationProfile{
		Languages:        snap.Languages,
		Skills:           submittable,
		ProjectInterests: snap.ProjectInterests,
	}
}

// ProfileFromRecord adapts a stored preference document.
func ProfileFromRecord(record preference.Record) RecommendationProfile {
	return RecommendationProfile{
		Languages:        record.Languages,
		Skills:           record.Skills,
		ProjectInterests: record.ProjectInterests,
	}
}
