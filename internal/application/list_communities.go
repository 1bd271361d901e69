package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/peerpods/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListCommunitiesUseCase lists active pods, largest first.
type ListCommunitiesUseCase struct {
	communityRepo domain.CommunityRepository
}

// NewListCommunitiesUseCase creates a new ListCommunitiesUseCase.
func NewListCommunitiesUseCase(communityRepo domain.CommunityRepository) *ListCommunitiesUseCase {
	return &ListCommunitiesUseCase{communityRepo: communityRepo}
}

// Execute returns one page. out of range limits are clamped.
func (uc *ListCommunitiesUseCase) Execute(ctx context.Context, limit, offset int) ([]CommunityView, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)

	communities, err := uc.communityRepo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing communities: %w", err)
	}

	views := make([]CommunityView, 0, len(communities))
	for _, c := range communities {
		views = append(views, communityView(c))
	}
	return views, nil
}
