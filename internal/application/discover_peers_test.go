package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

var studyGoals = []string{"learn go", "rust", "sql", "docker", "kubernetes"}

type discoverFixture struct {
	s                *store
	me, ada, bob     *domain.User
	hidden, outsider *domain.User
	pod              *domain.Community
}

func newDiscoverFixture() *discoverFixture {
	s := newStore()
	f := &discoverFixture{s: s}
	f.me = s.seedUser("ext-me", "me_user", studyGoals, 2)
	f.bob = s.seedUser("ext-bob", "bob_b", nil, 0)
	f.ada = s.seedUser("ext-ada", "ada_l", studyGoals, 2)
	f.hidden = s.seedUser("ext-hid", "hidden_h", studyGoals, 2)
	f.hidden.SetHiddenFromMatching(true)
	f.outsider = s.seedUser("ext-out", "outsider_o", studyGoals, 2)

	f.pod = s.seedCommunity("go-learners", true, f.me, f.bob, f.ada, f.hidden)
	s.seedCommunity("elsewhere", true, f.outsider)
	return f
}

func (f *discoverFixture) useCase(opts DiscoveryOptions) *DiscoverPeersUseCase {
	return NewDiscoverPeersUseCase(userRepo{f.s}, membershipRepo{f.s}, eventRepo{f.s}, opts, logging.Discard()).
		WithTimeProvider(fixedClock)
}

func matchIDs(out *DiscoverPeersOutput) []domain.UserID {
	ids := make([]domain.UserID, len(out.Matches))
	for i, m := range out.Matches {
		ids[i] = m.CandidateID
	}
	return ids
}

func TestDiscoverPeers_RanksPodMembers(t *testing.T) {
	f := newDiscoverFixture()

	out, err := f.useCase(DefaultDiscoveryOptions()).Execute(context.Background(), DiscoverPeersInput{
		ExternalID:  "ext-me",
		CommunityID: f.pod.ID().String(),
	})
	require.NoError(t, err)

	// self, hidden and non-members never show up
	assert.Equal(t, []domain.UserID{f.ada.ID(), f.bob.ID()}, matchIDs(out))
	assert.Equal(t, 2, out.Candidates)
	assert.False(t, out.Cached)

	top := out.Matches[0]
	assert.Greater(t, top.Score, out.Matches[1].Score)
	assert.Equal(t, "ada_l", top.Peer.Username)
	assert.Equal(t, []string{"go-learners"}, top.SharedCommunities)
	assert.Len(t, top.MatchingGoals, 3, "matching goals are capped for display")
}

func TestDiscoverPeers_AllPodsScope(t *testing.T) {
	f := newDiscoverFixture()
	// outsider joins a second pod with me, so it becomes reachable without a scope
	shared := f.s.seedCommunity("sql-club", true, f.me, f.outsider)

	out, err := f.useCase(DefaultDiscoveryOptions()).Execute(context.Background(), DiscoverPeersInput{ExternalID: "ext-me"})
	require.NoError(t, err)

	ids := matchIDs(out)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, f.outsider.ID())
	assert.NotContains(t, ids, f.hidden.ID())
	assert.NotContains(t, ids, f.me.ID())

	for _, m := range out.Matches {
		if m.CandidateID == f.outsider.ID() {
			assert.Equal(t, []string{shared.Slug().String()}, m.SharedCommunities)
		}
	}
}

func TestDiscoverPeers_EqualScoresKeepJoinOrder(t *testing.T) {
	s := newStore()
	me := s.seedUser("ext-me", "me_user", nil, 0)
	first := s.seedUser("ext-1", "first_u", nil, 0)
	second := s.seedUser("ext-2", "second_u", nil, 0)
	third := s.seedUser("ext-3", "third_u", nil, 0)
	pod := s.seedCommunity("quiet", true, me, first, second, third)

	opts := DefaultDiscoveryOptions()
	opts.Workers = 3
	uc := NewDiscoverPeersUseCase(userRepo{s}, membershipRepo{s}, eventRepo{s}, opts, logging.Discard()).
		WithTimeProvider(fixedClock)

	out, err := uc.Execute(context.Background(), DiscoverPeersInput{ExternalID: "ext-me", CommunityID: pod.ID().String()})
	require.NoError(t, err)

	assert.Equal(t, []domain.UserID{first.ID(), second.ID(), third.ID()}, matchIDs(out))
}

func TestDiscoverPeers_Limits(t *testing.T) {
	f := newDiscoverFixture()
	for _, name := range []string{"extra_1", "extra_2", "extra_3"} {
		u := f.s.seedUser("ext-"+name, name, nil, 0)
		f.s.memberships = append(f.s.memberships, domain.Membership{CommunityID: f.pod.ID(), UserID: u.ID(), JoinedAt: testNow})
	}

	t.Run("result limit", func(t *testing.T) {
		out, err := f.useCase(DefaultDiscoveryOptions()).Execute(context.Background(), DiscoverPeersInput{
			ExternalID:  "ext-me",
			CommunityID: f.pod.ID().String(),
			Limit:       1,
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.UserID{f.ada.ID()}, matchIDs(out))
	})

	t.Run("candidate cap", func(t *testing.T) {
		opts := DefaultDiscoveryOptions()
		opts.CandidateLimit = 2
		out, err := f.useCase(opts).Execute(context.Background(), DiscoverPeersInput{
			ExternalID:  "ext-me",
			CommunityID: f.pod.ID().String(),
		})
		require.NoError(t, err)
		// the first two members after me are bob and ada
		assert.Equal(t, 2, out.Candidates)
		assert.ElementsMatch(t, []domain.UserID{f.ada.ID(), f.bob.ID()}, matchIDs(out))
	})
}

func TestDiscoverPeers_Rejections(t *testing.T) {
	f := newDiscoverFixture()
	other := f.s.seedCommunity("not-mine", true, f.outsider)
	uc := f.useCase(DefaultDiscoveryOptions())

	tests := []struct {
		name    string
		input   DiscoverPeersInput
		wantErr error
	}{
		{"no profile", DiscoverPeersInput{ExternalID: "ext-none"}, ErrProfileNotFound},
		{"bad scope", DiscoverPeersInput{ExternalID: "ext-me", CommunityID: "x"}, domain.ErrInvalidInput},
		{"not a member", DiscoverPeersInput{ExternalID: "ext-me", CommunityID: other.ID().String()}, domain.ErrNotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDiscoverPeers_Cache(t *testing.T) {
	f := newDiscoverFixture()
	cache := newFakeMatchCache()
	metrics := &fakeMetrics{}
	uc := f.useCase(DefaultDiscoveryOptions()).WithMatchCache(cache).WithMetrics(metrics)
	input := DiscoverPeersInput{ExternalID: "ext-me", CommunityID: f.pod.ID().String()}

	first, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, cache.entries, 1)

	second, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, matchIDs(first), matchIDs(second))
	assert.Equal(t, "ada_l", second.Matches[0].Peer.Username)

	// a peer who hides after caching disappears from cached results
	f.ada.SetHiddenFromMatching(true)
	third, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, []domain.UserID{f.bob.ID()}, matchIDs(third))

	assert.Equal(t, 2, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
	assert.Equal(t, 1, metrics.matches[ModeDiscovery])
}

func TestDiscoverPeers_CacheErrorFallsThrough(t *testing.T) {
	f := newDiscoverFixture()
	cache := newFakeMatchCache()
	cache.err = errBoom

	out, err := f.useCase(DefaultDiscoveryOptions()).WithMatchCache(cache).Execute(context.Background(), DiscoverPeersInput{
		ExternalID:  "ext-me",
		CommunityID: f.pod.ID().String(),
	})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Len(t, out.Matches, 2)
}

func TestDiscoverPeers_RecentActivityCounts(t *testing.T) {
	f := newDiscoverFixture()
	for i := range 3 {
		event, err := domain.NewActivityEvent(f.pod.ID(), f.bob.ID(), domain.EventTypePost, nil, testNow.Add(-time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		f.s.events = append(f.s.events, event)
	}
	// outside the window
	old, err := domain.NewActivityEvent(f.pod.ID(), f.bob.ID(), domain.EventTypePost, nil, testNow.AddDate(0, 0, -30))
	require.NoError(t, err)
	f.s.events = append(f.s.events, old)

	out, err := f.useCase(DefaultDiscoveryOptions()).Execute(context.Background(), DiscoverPeersInput{
		ExternalID:  "ext-me",
		CommunityID: f.pod.ID().String(),
	})
	require.NoError(t, err)

	for _, m := range out.Matches {
		if m.CandidateID == f.bob.ID() {
			assert.Equal(t, 3, m.RecentActivity)
		}
	}
}

func TestExcludeUser(t *testing.T) {
	a, b, c := domain.NewUserID(), domain.NewUserID(), domain.NewUserID()

	assert.Equal(t, []domain.UserID{a, c}, excludeUser([]domain.UserID{a, b, c}, b, 5))
	assert.Equal(t, []domain.UserID{a}, excludeUser([]domain.UserID{a, b, c}, b, 1))
	assert.Empty(t, excludeUser(nil, b, 5))
}
