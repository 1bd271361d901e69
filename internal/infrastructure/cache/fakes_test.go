package cache

import (
	"context"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
)

// fakeCommunityRepo is an in-memory domain.CommunityRepository.
type fakeCommunityRepo struct {
	mu          sync.Mutex
	communities []*domain.Community
	findCalls   int
	listCalls   int
	err         error
}

func (f *fakeCommunityRepo) add(name string, members int, active bool) *domain.Community {
	slug, _ := domain.NewSlug(name)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := domain.ReconstructCommunity(domain.NewCommunityID(), slug, name, "", domain.NewUserID(), active, members, now, now)
	f.communities = append(f.communities, c)
	return c
}

func (f *fakeCommunityRepo) FindByID(_ context.Context, id domain.CommunityID) (*domain.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.communities {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCommunityRepo) FindBySlug(_ context.Context, slug domain.Slug) (*domain.Community, error) {
	for _, c := range f.communities {
		if c.Slug() == slug {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCommunityRepo) FindByIDs(_ context.Context, ids []domain.CommunityID) ([]*domain.Community, error) {
	out := []*domain.Community{}
	for _, id := range ids {
		for _, c := range f.communities {
			if c.ID() == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCommunityRepo) Save(_ context.Context, c *domain.Community) error {
	f.communities = append(f.communities, c)
	return nil
}

func (f *fakeCommunityRepo) Exists(ctx context.Context, id domain.CommunityID) (bool, error) {
	c, err := f.FindByID(ctx, id)
	return c != nil, err
}

func (f *fakeCommunityRepo) ListActive(_ context.Context, limit, offset int) ([]*domain.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	active := []*domain.Community{}
	for _, c := range f.communities {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	// callers seed the fake largest first
	if offset >= len(active) {
		return []*domain.Community{}, nil
	}
	return active[offset:min(offset+limit, len(active))], nil
}
