package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// JoinCommunityOutput reports whether a new membership was created.
type JoinCommunityOutput struct {
	CommunityID string `json:"community_id"`
	Joined      bool   `json:"joined"`
}

// JoinCommunityUseCase adds the caller to a pod. joining twice is a no-op.
type JoinCommunityUseCase struct {
	userRepo       domain.UserRepository
	communityRepo  domain.CommunityRepository
	membershipRepo domain.MembershipRepository
	checker        CommunityChecker
	ranking        PodRanking
	cache          MatchCache
	timeProvider   TimeProvider
	logger         *logging.Logger
}

// NewJoinCommunityUseCase creates a new JoinCommunityUseCase.
func NewJoinCommunityUseCase(
	userRepo domain.UserRepository,
	communityRepo domain.CommunityRepository,
	membershipRepo domain.MembershipRepository,
	logger *logging.Logger,
) *JoinCommunityUseCase {
	return &JoinCommunityUseCase{
		userRepo:       userRepo,
		communityRepo:  communityRepo,
		membershipRepo: membershipRepo,
		timeProvider:   RealTime,
		logger:         logger.WithComponent("join_community"),
	}
}

// WithCommunityChecker sets a cached existence checker used instead of the repository.
func (uc *JoinCommunityUseCase) WithCommunityChecker(c CommunityChecker) *JoinCommunityUseCase {
	uc.checker = c
	return uc
}

// WithPodRanking sets the pod ranking bumped on each new member.
func (uc *JoinCommunityUseCase) WithPodRanking(r PodRanking) *JoinCommunityUseCase {
	uc.ranking = r
	return uc
}

// WithMatchCache drops the caller's cached matches after joining.
func (uc *JoinCommunityUseCase) WithMatchCache(c MatchCache) *JoinCommunityUseCase {
	uc.cache = c
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *JoinCommunityUseCase) WithTimeProvider(tp TimeProvider) *JoinCommunityUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute joins the caller to the pod.
func (uc *JoinCommunityUseCase) Execute(ctx context.Context, externalID, rawCommunityID string) (*JoinCommunityOutput, error) {
	communityID, err := parseCommunityID(rawCommunityID)
	if err != nil {
		return nil, err
	}

	user, err := findCaller(ctx, uc.userRepo, externalID)
	if err != nil {
		return nil, err
	}

	if err := requireActive(ctx, uc.checker, uc.communityRepo, communityID); err != nil {
		uc.logger.Info("join rejected",
			"community_id", communityID.String(),
			"user_id", user.ID().String(),
			"reason", err.Error(),
			"outcome", "rejected",
		)
		return nil, err
	}

	joined, err := uc.membershipRepo.Add(ctx, domain.Membership{
		CommunityID: communityID,
		UserID:      user.ID(),
		JoinedAt:    uc.timeProvider(),
	})
	if err != nil {
		return nil, fmt.Errorf("adding membership: %w", err)
	}

	if joined {
		if uc.ranking != nil {
			if err := uc.ranking.IncrementPodMembers(ctx, communityID, 1); err != nil {
				uc.logger.Warn("pod ranking update failed", "community_id", communityID.String(), "error", err.Error())
			}
		}
		if uc.cache != nil {
			if err := uc.cache.InvalidateUser(ctx, user.ID()); err != nil {
				uc.logger.Warn("match cache invalidation failed", "user_id", user.ID().String(), "error", err.Error())
			}
		}
	}

	uc.logger.Info("community joined",
		"community_id", communityID.String(),
		"user_id", user.ID().String(),
		"new_member", joined,
		"outcome", "accepted",
	)

	return &JoinCommunityOutput{CommunityID: communityID.String(), Joined: joined}, nil
}

// requireActive fails unless the pod exists and is active, preferring the checker.
func requireActive(ctx context.Context, checker CommunityChecker, repo domain.CommunityRepository, id domain.CommunityID) error {
	var exists, active bool
	if checker != nil {
		var err error
		exists, active, err = checker.CheckActive(ctx, id)
		if err != nil {
			return fmt.Errorf("checking community: %w", err)
		}
	} else {
		community, err := repo.FindByID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return fmt.Errorf("checking community: %w", err)
		default:
			exists, active = true, community.IsActive()
		}
	}

	if !exists {
		return ErrCommunityNotFound
	}
	if !active {
		return domain.ErrCommunityInactive
	}
	return nil
}
