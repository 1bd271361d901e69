package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// DiscoveryOptions bounds the work done per discovery request.
type DiscoveryOptions struct {
	// CandidateLimit caps how many peers are loaded and scored.
	CandidateLimit int

	// DisplayGoals caps the matching goals returned per result.
	DisplayGoals int

	// Workers is the number of goroutines scoring candidates.
	Workers int

	// ActivityWindow is how far back activity records are loaded.
	ActivityWindow time.Duration

	DefaultLimit int
	MaxLimit     int
}

// DefaultDiscoveryOptions returns the production defaults.
func DefaultDiscoveryOptions() DiscoveryOptions {
	return DiscoveryOptions{
		CandidateLimit: 50,
		DisplayGoals:   3,
		Workers:        4,
		ActivityWindow: domain.RecentActivityWindow,
		DefaultLimit:   10,
		MaxLimit:       50,
	}
}

// DiscoverPeersInput asks for peers of the caller, optionally within one pod.
type DiscoverPeersInput struct {
	ExternalID  string
	CommunityID string // empty searches every pod the caller shares with others
	Limit       int
}

// MatchView is one ranked peer.
type MatchView struct {
	domain.CompatibilityResult
	Peer PeerView `json:"peer"`
}

// DiscoverPeersOutput is the ranked list, best first.
type DiscoverPeersOutput struct {
	Matches    []MatchView `json:"matches"`
	Candidates int         `json:"candidates"`
	Cached     bool        `json:"cached"`
}

// DiscoverPeersUseCase ranks potential study peers for the caller.
type DiscoverPeersUseCase struct {
	userRepo       domain.UserRepository
	membershipRepo domain.MembershipRepository
	eventRepo      domain.ActivityEventRepository
	config         domain.DiscoveryConfig
	options        DiscoveryOptions
	cache          MatchCache
	metrics        MatchMetrics
	timeProvider   TimeProvider
	logger         *logging.Logger
}

// NewDiscoverPeersUseCase creates a new DiscoverPeersUseCase.
func NewDiscoverPeersUseCase(
	userRepo domain.UserRepository,
	membershipRepo domain.MembershipRepository,
	eventRepo domain.ActivityEventRepository,
	options DiscoveryOptions,
	logger *logging.Logger,
) *DiscoverPeersUseCase {
	defaults := DefaultDiscoveryOptions()
	if options.CandidateLimit <= 0 {
		options.CandidateLimit = defaults.CandidateLimit
	}
	if options.Workers <= 0 {
		options.Workers = 1
	}
	if options.ActivityWindow <= 0 {
		options.ActivityWindow = defaults.ActivityWindow
	}
	if options.DefaultLimit <= 0 {
		options.DefaultLimit = defaults.DefaultLimit
	}
	if options.MaxLimit <= 0 {
		options.MaxLimit = defaults.MaxLimit
	}

	return &DiscoverPeersUseCase{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		eventRepo:      eventRepo,
		config:         domain.DefaultDiscoveryConfig(),
		options:        options,
		timeProvider:   RealTime,
		logger:         logger.WithComponent("discover_peers"),
	}
}

// WithConfig overrides the scoring configuration.
func (uc *DiscoverPeersUseCase) WithConfig(cfg domain.DiscoveryConfig) *DiscoverPeersUseCase {
	uc.config = cfg
	return uc
}

// WithMatchCache serves repeated requests from a short-lived cache.
func (uc *DiscoverPeersUseCase) WithMatchCache(c MatchCache) *DiscoverPeersUseCase {
	uc.cache = c
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *DiscoverPeersUseCase) WithMetrics(m MatchMetrics) *DiscoverPeersUseCase {
	uc.metrics = m
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *DiscoverPeersUseCase) WithTimeProvider(tp TimeProvider) *DiscoverPeersUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute ranks the caller's candidate pool.
func (uc *DiscoverPeersUseCase) Execute(ctx context.Context, input DiscoverPeersInput) (*DiscoverPeersOutput, error) {
	start := time.Now()

	limit := input.Limit
	if limit <= 0 {
		limit = uc.options.DefaultLimit
	}
	limit = min(limit, uc.options.MaxLimit)

	requester, err := findCaller(ctx, uc.userRepo, input.ExternalID)
	if err != nil {
		return nil, err
	}

	scope := ""
	var communityID domain.CommunityID
	if input.CommunityID != "" {
		communityID, err = parseCommunityID(input.CommunityID)
		if err != nil {
			return nil, err
		}
		scope = communityID.String()

		member, err := uc.membershipRepo.IsMember(ctx, communityID, requester.ID())
		if err != nil {
			return nil, fmt.Errorf("checking membership: %w", err)
		}
		if !member {
			return nil, domain.ErrNotMember
		}
	}

	if cached, ok := uc.fromCache(ctx, requester.ID(), scope, limit); ok {
		out, err := uc.decorate(ctx, cached)
		if err != nil {
			return nil, err
		}
		out.Cached = true
		uc.logger.MatchesRanked(requester.ID().String(), len(cached), len(out.Matches), time.Since(start), true)
		return out, nil
	}

	var candidateIDs []domain.UserID
	if scope != "" {
		// one extra so the cap still holds after dropping the requester
		candidateIDs, err = uc.membershipRepo.ListMemberIDs(ctx, communityID, uc.options.CandidateLimit+1)
		if err != nil {
			return nil, fmt.Errorf("listing members: %w", err)
		}
	} else {
		candidateIDs, err = uc.membershipRepo.ListPeerIDs(ctx, requester.ID(), uc.options.CandidateLimit)
		if err != nil {
			return nil, fmt.Errorf("listing peers: %w", err)
		}
	}
	candidateIDs = excludeUser(candidateIDs, requester.ID(), uc.options.CandidateLimit)

	candidates, err := uc.userRepo.FindByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}
	visible := candidates[:0]
	for _, c := range candidates {
		if !c.HiddenFromMatching() {
			visible = append(visible, c)
		}
	}
	candidates = visible

	ids := make([]domain.UserID, 0, len(candidates)+1)
	ids = append(ids, requester.ID())
	for _, c := range candidates {
		ids = append(ids, c.ID())
	}

	tags, err := uc.membershipRepo.CommunityTags(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading community tags: %w", err)
	}

	now := uc.timeProvider()
	records, err := uc.eventRepo.FindRecordsSince(ctx, ids[1:], now.Add(-uc.options.ActivityWindow))
	if err != nil {
		return nil, fmt.Errorf("loading activity: %w", err)
	}

	user := requester.MatchProfile(tags[requester.ID()], now)
	profiles := make([]domain.MatchProfile, len(candidates))
	for i, c := range candidates {
		profiles[i] = c.MatchProfile(tags[c.ID()], now)
	}

	results := uc.rank(user, profiles, records, now)
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		if uc.options.DisplayGoals > 0 && len(results[i].MatchingGoals) > uc.options.DisplayGoals {
			results[i].MatchingGoals = results[i].MatchingGoals[:uc.options.DisplayGoals]
		}
	}

	if uc.cache != nil {
		if err := uc.cache.SetMatches(ctx, requester.ID(), scope, limit, results); err != nil {
			uc.logger.Warn("match cache write failed", "user_id", requester.ID().String(), "error", err.Error())
		}
	}

	elapsed := time.Since(start)
	if uc.metrics != nil {
		uc.metrics.ObserveMatch(ModeDiscovery, len(profiles), elapsed)
	}
	uc.logger.MatchesRanked(requester.ID().String(), len(profiles), len(results), elapsed, false)

	out := &DiscoverPeersOutput{
		Matches:    make([]MatchView, 0, len(results)),
		Candidates: len(profiles),
	}
	byID := make(map[domain.UserID]*domain.User, len(candidates))
	for _, c := range candidates {
		byID[c.ID()] = c
	}
	for _, r := range results {
		out.Matches = append(out.Matches, MatchView{CompatibilityResult: r, Peer: peerView(byID[r.CandidateID])})
	}
	return out, nil
}

// rank scores candidates on a bounded pool of goroutines and sorts them.
// results are written by index so ties keep the pool order.
func (uc *DiscoverPeersUseCase) rank(user domain.MatchProfile, candidates []domain.MatchProfile, records []domain.ActivityRecord, now time.Time) []domain.CompatibilityResult {
	results := make([]domain.CompatibilityResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	byAuthor := domain.GroupActivityByAuthor(records)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(uc.options.Workers, len(candidates)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := candidates[i]
				results[i] = domain.ScoreCandidate(uc.config, user, c, byAuthor[c.ID], now)
			}
		}()
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	domain.SortResults(results)
	return results
}

func (uc *DiscoverPeersUseCase) fromCache(ctx context.Context, userID domain.UserID, scope string, limit int) ([]domain.CompatibilityResult, bool) {
	if uc.cache == nil {
		return nil, false
	}

	results, found, err := uc.cache.GetMatches(ctx, userID, scope, limit)
	if err != nil {
		uc.logger.Warn("match cache read failed", "user_id", userID.String(), "error", err.Error())
		return nil, false
	}
	if uc.metrics != nil {
		uc.metrics.RecordCacheLookup(found)
	}
	return results, found
}

// decorate attaches peer details to cached results, dropping peers that no longer exist.
func (uc *DiscoverPeersUseCase) decorate(ctx context.Context, results []domain.CompatibilityResult) (*DiscoverPeersOutput, error) {
	ids := make([]domain.UserID, len(results))
	for i, r := range results {
		ids[i] = r.CandidateID
	}

	users, err := uc.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading peers: %w", err)
	}
	byID := make(map[domain.UserID]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID()] = u
	}

	out := &DiscoverPeersOutput{Matches: make([]MatchView, 0, len(results)), Candidates: len(results)}
	for _, r := range results {
		u, ok := byID[r.CandidateID]
		if !ok || u.HiddenFromMatching() {
			continue
		}
		out.Matches = append(out.Matches, MatchView{CompatibilityResult: r, Peer: peerView(u)})
	}
	return out, nil
}

// excludeUser drops id from ids and caps the result at limit.
func excludeUser(ids []domain.UserID, id domain.UserID, limit int) []domain.UserID {
	out := make([]domain.UserID, 0, min(len(ids), limit))
	for _, candidate := range ids {
		if candidate == id {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, candidate)
	}
	return out
}
