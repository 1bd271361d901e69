package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

var ErrSlugAlreadyExists = errors.New("community with this slug already exists")

// CreateCommunityInput contains the data needed to create a pod.
type CreateCommunityInput struct {
	// Slug is the URL-friendly identifier (3-100 chars, lowercase alphanumeric with hyphens)
	Slug        string
	Name        string
	Description string

	// CreatorExternalID comes from the validated JWT, never from the request body
	CreatorExternalID string
}

// CreateCommunityUseCase creates a pod and makes its creator the first member.
type CreateCommunityUseCase struct {
	communityRepo  domain.CommunityRepository
	userRepo       domain.UserRepository
	membershipRepo domain.MembershipRepository
	uow            UnitOfWork
	ranking        PodRanking
	timeProvider   TimeProvider
	logger         *logging.Logger
}

// NewCreateCommunityUseCase creates a new CreateCommunityUseCase.
func NewCreateCommunityUseCase(
	communityRepo domain.CommunityRepository,
	userRepo domain.UserRepository,
	membershipRepo domain.MembershipRepository,
	uow UnitOfWork,
	logger *logging.Logger,
) *CreateCommunityUseCase {
	return &CreateCommunityUseCase{
		communityRepo:  communityRepo,
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		uow:            uow,
		timeProvider:   RealTime,
		logger:         logger.WithComponent("create_community"),
	}
}

// WithPodRanking sets the pod ranking updated after creation.
func (uc *CreateCommunityUseCase) WithPodRanking(r PodRanking) *CreateCommunityUseCase {
	uc.ranking = r
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *CreateCommunityUseCase) WithTimeProvider(tp TimeProvider) *CreateCommunityUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute validates input, creates the pod and the creator's membership atomically.
func (uc *CreateCommunityUseCase) Execute(ctx context.Context, input CreateCommunityInput) (*CommunityView, error) {
	slug, err := domain.NewSlug(input.Slug)
	if err != nil {
		uc.logger.Info("create community failed: invalid slug",
			"slug", input.Slug,
			"error", err.Error(),
		)
		return nil, invalidInput(err)
	}

	creator, err := findCaller(ctx, uc.userRepo, input.CreatorExternalID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.communityRepo.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking slug availability: %w", err)
	}
	if existing != nil {
		uc.logger.Info("create community failed: slug already exists", "slug", slug.String())
		return nil, ErrSlugAlreadyExists
	}

	community, err := domain.NewCommunity(slug, input.Name, input.Description, creator.ID())
	if err != nil {
		return nil, invalidInput(err)
	}

	err = RunInTransaction(ctx, uc.uow, func(ctx context.Context) error {
		if err := uc.communityRepo.Save(ctx, community); err != nil {
			return err
		}
		_, err := uc.membershipRepo.Add(ctx, domain.Membership{
			CommunityID: community.ID(),
			UserID:      creator.ID(),
			JoinedAt:    uc.timeProvider(),
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// concurrent create with the same slug
		return nil, ErrSlugAlreadyExists
	}
	if err != nil {
		uc.logger.Error("create community failed: save error",
			"slug", slug.String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("saving community: %w", err)
	}

	if uc.ranking != nil {
		if err := uc.ranking.IncrementPodMembers(ctx, community.ID(), 1); err != nil {
			uc.logger.Warn("pod ranking update failed", "community_id", community.ID().String(), "error", err.Error())
		}
	}

	uc.logger.Info("community created",
		"community_id", community.ID().String(),
		"slug", slug.String(),
		"creator_id", creator.ID().String(),
	)

	view := communityView(community)
	view.MemberCount = 1
	return &view, nil
}
