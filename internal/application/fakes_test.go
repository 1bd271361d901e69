package application

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
)

// store is an in-memory backing for every repository port.
type store struct {
	mu           sync.Mutex
	users        []*domain.User
	communities  []*domain.Community
	memberships  []domain.Membership
	events       []*domain.ActivityEvent
	partnerships []*domain.Partnership

	// createHook runs before a partnership insert, to simulate concurrent writers.
	createHook func()
	saveErr    error
}

func newStore() *store { return &store{} }

type userRepo struct{ s *store }
type communityRepo struct{ s *store }
type membershipRepo struct{ s *store }
type eventRepo struct{ s *store }
type partnershipRepo struct{ s *store }

func (r userRepo) FindByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID() == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r userRepo) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ExternalID() == externalID {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r userRepo) FindByUsername(_ context.Context, username domain.Username) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username() == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r userRepo) FindByIDs(ctx context.Context, ids []domain.UserID) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, id := range ids {
		if u, err := r.FindByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r userRepo) Save(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	for i, u := range r.s.users {
		if u.ID() == user.ID() {
			r.s.users[i] = user
			return nil
		}
	}
	r.s.users = append(r.s.users, user)
	return nil
}

func (r userRepo) Exists(ctx context.Context, id domain.UserID) (bool, error) {
	_, err := r.FindByID(ctx, id)
	return err == nil, nil
}

func (r communityRepo) FindByID(_ context.Context, id domain.CommunityID) (*domain.Community, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.communities {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r communityRepo) FindBySlug(_ context.Context, slug domain.Slug) (*domain.Community, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.communities {
		if c.Slug() == slug {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r communityRepo) FindByIDs(ctx context.Context, ids []domain.CommunityID) ([]*domain.Community, error) {
	out := []*domain.Community{}
	for _, id := range ids {
		if c, err := r.FindByID(ctx, id); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r communityRepo) Save(_ context.Context, community *domain.Community) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.communities {
		if c.Slug() == community.Slug() && c.ID() != community.ID() {
			return domain.ErrAlreadyExists
		}
	}
	r.s.communities = append(r.s.communities, community)
	return nil
}

func (r communityRepo) Exists(ctx context.Context, id domain.CommunityID) (bool, error) {
	_, err := r.FindByID(ctx, id)
	return err == nil, nil
}

func (r communityRepo) ListActive(_ context.Context, limit, offset int) ([]*domain.Community, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	active := []*domain.Community{}
	for _, c := range r.s.communities {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	if offset >= len(active) {
		return []*domain.Community{}, nil
	}
	return active[offset:min(offset+limit, len(active))], nil
}

func (r membershipRepo) Add(_ context.Context, m domain.Membership) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.memberships {
		if existing.CommunityID == m.CommunityID && existing.UserID == m.UserID {
			return false, nil
		}
	}
	r.s.memberships = append(r.s.memberships, m)
	return true, nil
}

func (r membershipRepo) IsMember(_ context.Context, communityID domain.CommunityID, userID domain.UserID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.memberships {
		if m.CommunityID == communityID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r membershipRepo) ListMemberIDs(_ context.Context, communityID domain.CommunityID, limit int) ([]domain.UserID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.UserID{}
	for _, m := range r.s.memberships {
		if m.CommunityID == communityID && len(out) < limit {
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func (r membershipRepo) ListPeerIDs(_ context.Context, userID domain.UserID, limit int) ([]domain.UserID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mine := map[domain.CommunityID]bool{}
	for _, m := range r.s.memberships {
		if m.UserID == userID {
			mine[m.CommunityID] = true
		}
	}
	seen := map[domain.UserID]bool{userID: true}
	out := []domain.UserID{}
	for _, m := range r.s.memberships {
		if mine[m.CommunityID] && !seen[m.UserID] && len(out) < limit {
			seen[m.UserID] = true
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func (r membershipRepo) CommunityTags(_ context.Context, userIDs []domain.UserID) (map[domain.UserID][]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bySlug := map[domain.CommunityID]string{}
	for _, c := range r.s.communities {
		if c.IsActive() {
			bySlug[c.ID()] = c.Slug().String()
		}
	}
	out := map[domain.UserID][]string{}
	for _, m := range r.s.memberships {
		if slug, ok := bySlug[m.CommunityID]; ok && slices.Contains(userIDs, m.UserID) {
			out[m.UserID] = append(out[m.UserID], slug)
		}
	}
	for _, tags := range out {
		sort.Strings(tags)
	}
	return out, nil
}

func (r eventRepo) Save(_ context.Context, e *domain.ActivityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, e)
	return nil
}

func (r eventRepo) SaveBatch(ctx context.Context, events []*domain.ActivityEvent) error {
	for _, e := range events {
		_ = r.Save(ctx, e)
	}
	return nil
}

func (r eventRepo) FindRecordsSince(_ context.Context, userIDs []domain.UserID, since time.Time) ([]domain.ActivityRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ActivityRecord{}
	for _, e := range r.s.events {
		if slices.Contains(userIDs, e.UserID()) && !e.CreatedAt().Before(since) && e.EventType().IsContribution() {
			out = append(out, e.Record())
		}
	}
	return out, nil
}

func (r partnershipRepo) Create(_ context.Context, p *domain.Partnership) error {
	if r.s.createHook != nil {
		hook := r.s.createHook
		r.s.createHook = nil
		hook()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.partnerships {
		if existing.IsActive() && existing.CommunityID() == p.CommunityID() &&
			(existing.Involves(p.UserA()) || existing.Involves(p.UserB())) {
			return domain.ErrAlreadyPartnered
		}
	}
	r.s.partnerships = append(r.s.partnerships, p)
	return nil
}

func (r partnershipRepo) Save(_ context.Context, p *domain.Partnership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.partnerships {
		if existing.ID() == p.ID() {
			r.s.partnerships[i] = p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r partnershipRepo) FindByID(_ context.Context, id domain.PartnershipID) (*domain.Partnership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.partnerships {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r partnershipRepo) FindActiveByUser(_ context.Context, communityID domain.CommunityID, userID domain.UserID) (*domain.Partnership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.partnerships {
		if p.IsActive() && p.CommunityID() == communityID && p.Involves(userID) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r partnershipRepo) ActivePartnerIDs(_ context.Context, communityID domain.CommunityID) (map[domain.UserID]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[domain.UserID]bool{}
	for _, p := range r.s.partnerships {
		if p.IsActive() && p.CommunityID() == communityID {
			out[p.UserA()] = true
			out[p.UserB()] = true
		}
	}
	return out, nil
}

// fakeUoW counts transaction boundaries.
type fakeUoW struct {
	begun, committed, rolledBack int
	open                         bool
}

func (u *fakeUoW) Begin(ctx context.Context) (context.Context, error) {
	u.begun++
	u.open = true
	return ctx, nil
}

func (u *fakeUoW) Commit(context.Context) error {
	u.committed++
	u.open = false
	return nil
}

func (u *fakeUoW) Rollback(context.Context) error {
	if u.open {
		u.rolledBack++
		u.open = false
	}
	return nil
}

type fakeMatchCache struct {
	entries     map[string][]domain.CompatibilityResult
	invalidated []domain.UserID
	err         error
}

func newFakeMatchCache() *fakeMatchCache {
	return &fakeMatchCache{entries: map[string][]domain.CompatibilityResult{}}
}

func cacheKey(userID domain.UserID, scope string, limit int) string {
	return userID.String() + "|" + scope + "|" + strconv.Itoa(limit)
}

func (c *fakeMatchCache) GetMatches(_ context.Context, userID domain.UserID, scope string, limit int) ([]domain.CompatibilityResult, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	r, ok := c.entries[cacheKey(userID, scope, limit)]
	return r, ok, nil
}

func (c *fakeMatchCache) SetMatches(_ context.Context, userID domain.UserID, scope string, limit int, results []domain.CompatibilityResult) error {
	if c.err != nil {
		return c.err
	}
	c.entries[cacheKey(userID, scope, limit)] = results
	return nil
}

func (c *fakeMatchCache) InvalidateUser(_ context.Context, userID domain.UserID) error {
	c.invalidated = append(c.invalidated, userID)
	return c.err
}

type fakeMetrics struct {
	mu          sync.Mutex
	matches     map[string]int
	cacheHits   int
	cacheMisses int
	formed      int
}

func (m *fakeMetrics) ObserveMatch(mode string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matches == nil {
		m.matches = map[string]int{}
	}
	m.matches[mode]++
}

func (m *fakeMetrics) RecordCacheLookup(hit bool) {
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *fakeMetrics) RecordPartnershipFormed() { m.formed++ }

type fakeNotifier struct {
	notified []*domain.Partnership
}

func (n *fakeNotifier) NotifyPartnershipFormed(_ context.Context, p *domain.Partnership, _ []string) bool {
	n.notified = append(n.notified, p)
	return true
}

type fakeRanking struct {
	deltas map[domain.CommunityID]int
	err    error
}

func (r *fakeRanking) IncrementPodMembers(_ context.Context, id domain.CommunityID, delta int) error {
	if r.deltas == nil {
		r.deltas = map[domain.CommunityID]int{}
	}
	r.deltas[id] += delta
	return r.err
}

var errBoom = errors.New("boom")

var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// seedUser stores a user with goals and an optional streak ending today.
func (s *store) seedUser(externalID, username string, goals []string, streakDays int) *domain.User {
	var lastActive *time.Time
	if streakDays > 0 {
		day := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
		lastActive = &day
	}
	u := domain.ReconstructUser(domain.UserSnapshot{
		ID:           domain.NewUserID(),
		ExternalID:   externalID,
		Username:     domain.UsernameFromTrusted(username),
		Goals:        goals,
		Streak:       streakDays,
		PostCount:    streakDays * 2,
		LastActiveOn: lastActive,
		CreatedAt:    testNow.Add(-30 * 24 * time.Hour),
		UpdatedAt:    testNow.Add(-30 * 24 * time.Hour),
	})
	s.users = append(s.users, u)
	return u
}

func (s *store) seedCommunity(slug string, active bool, members ...*domain.User) *domain.Community {
	c := domain.ReconstructCommunity(domain.NewCommunityID(), domain.SlugFromTrusted(slug), slug, "", domain.NewUserID(), active, len(members), testNow, testNow)
	s.communities = append(s.communities, c)
	for _, m := range members {
		s.memberships = append(s.memberships, domain.Membership{CommunityID: c.ID(), UserID: m.ID(), JoinedAt: testNow})
	}
	return c
}
