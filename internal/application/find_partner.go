package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

var ErrNoPartnerAvailable = errors.New("no eligible accountability partner in this community")

// maxPartnerAttempts bounds retries when a concurrent lookup takes the chosen partner.
const maxPartnerAttempts = 3

// FindPartnerOutput is the caller's accountability partner in one pod.
type FindPartnerOutput struct {
	PartnershipID     string                `json:"partnership_id"`
	CommunityID       string                `json:"community_id"`
	Partner           PeerView              `json:"partner"`
	Score             int                   `json:"score"`
	Factors           map[domain.Factor]int `json:"factors"`
	SharedCommunities []string              `json:"shared_communities"`
	MatchingGoals     []string              `json:"matching_goals"`
	Reasons           []string              `json:"reasons"`
	Existing          bool                  `json:"existing"`
	CreatedAt         time.Time             `json:"created_at"`
}

// FindPartnerUseCase pairs the caller with one exclusive accountability partner per pod.
type FindPartnerUseCase struct {
	userRepo        domain.UserRepository
	communityRepo   domain.CommunityRepository
	membershipRepo  domain.MembershipRepository
	partnershipRepo domain.PartnershipRepository
	uow             UnitOfWork
	config          domain.AccountabilityConfig
	candidateLimit  int
	checker         CommunityChecker
	notifier        PartnershipNotifier
	metrics         MatchMetrics
	timeProvider    TimeProvider
	logger          *logging.Logger
}

// NewFindPartnerUseCase creates a new FindPartnerUseCase.
func NewFindPartnerUseCase(
	userRepo domain.UserRepository,
	communityRepo domain.CommunityRepository,
	membershipRepo domain.MembershipRepository,
	partnershipRepo domain.PartnershipRepository,
	uow UnitOfWork,
	candidateLimit int,
	logger *logging.Logger,
) *FindPartnerUseCase {
	if candidateLimit <= 0 {
		candidateLimit = DefaultDiscoveryOptions().CandidateLimit
	}
	return &FindPartnerUseCase{
		userRepo:        userRepo,
		communityRepo:   communityRepo,
		membershipRepo:  membershipRepo,
		partnershipRepo: partnershipRepo,
		uow:             uow,
		config:          domain.DefaultAccountabilityConfig(),
		candidateLimit:  candidateLimit,
		timeProvider:    RealTime,
		logger:          logger.WithComponent("find_partner"),
	}
}

// WithConfig overrides the accountability scoring configuration.
func (uc *FindPartnerUseCase) WithConfig(cfg domain.AccountabilityConfig) *FindPartnerUseCase {
	uc.config = cfg
	return uc
}

// WithCommunityChecker sets a cached existence checker used instead of the repository.
func (uc *FindPartnerUseCase) WithCommunityChecker(c CommunityChecker) *FindPartnerUseCase {
	uc.checker = c
	return uc
}

// WithNotifier sets the notifier told about new partnerships.
func (uc *FindPartnerUseCase) WithNotifier(n PartnershipNotifier) *FindPartnerUseCase {
	uc.notifier = n
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *FindPartnerUseCase) WithMetrics(m MatchMetrics) *FindPartnerUseCase {
	uc.metrics = m
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *FindPartnerUseCase) WithTimeProvider(tp TimeProvider) *FindPartnerUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute returns the caller's existing partner or selects and persists a new one.
func (uc *FindPartnerUseCase) Execute(ctx context.Context, externalID, rawCommunityID string) (*FindPartnerOutput, error) {
	start := time.Now()

	communityID, err := parseCommunityID(rawCommunityID)
	if err != nil {
		return nil, err
	}

	requester, err := findCaller(ctx, uc.userRepo, externalID)
	if err != nil {
		return nil, err
	}

	if err := requireActive(ctx, uc.checker, uc.communityRepo, communityID); err != nil {
		return nil, err
	}

	member, err := uc.membershipRepo.IsMember(ctx, communityID, requester.ID())
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		return nil, domain.ErrNotMember
	}

	for attempt := 1; attempt <= maxPartnerAttempts; attempt++ {
		out, candidates, err := uc.attempt(ctx, requester, communityID)
		if errors.Is(err, domain.ErrAlreadyPartnered) {
			uc.logger.Info("partner taken concurrently, retrying",
				"user_id", requester.ID().String(),
				"community_id", communityID.String(),
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		elapsed := time.Since(start)
		if uc.metrics != nil {
			uc.metrics.ObserveMatch(ModeAccountability, candidates, elapsed)
		}
		uc.logger.PartnerSelected(requester.ID().String(), communityID.String(), out.Partner.ID, out.Score, out.Existing)
		return out, nil
	}

	return nil, ErrNoPartnerAvailable
}

// attempt runs one select-and-persist pass. ErrAlreadyPartnered means a concurrent
// lookup won and the pass should be repeated with fresh state.
func (uc *FindPartnerUseCase) attempt(ctx context.Context, requester *domain.User, communityID domain.CommunityID) (*FindPartnerOutput, int, error) {
	existing, err := uc.partnershipRepo.FindActiveByUser(ctx, communityID, requester.ID())
	switch {
	case err == nil:
		out, err := uc.existingOutput(ctx, requester, existing)
		return out, 0, err
	case !errors.Is(err, domain.ErrNotFound):
		return nil, 0, fmt.Errorf("loading partnership: %w", err)
	}

	memberIDs, err := uc.membershipRepo.ListMemberIDs(ctx, communityID, uc.candidateLimit+1)
	if err != nil {
		return nil, 0, fmt.Errorf("listing members: %w", err)
	}
	memberIDs = excludeUser(memberIDs, requester.ID(), uc.candidateLimit)

	members, err := uc.userRepo.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("loading members: %w", err)
	}

	partnered, err := uc.partnershipRepo.ActivePartnerIDs(ctx, communityID)
	if err != nil {
		return nil, 0, fmt.Errorf("loading active partnerships: %w", err)
	}

	ids := make([]domain.UserID, 0, len(members)+1)
	ids = append(ids, requester.ID())
	for _, m := range members {
		ids = append(ids, m.ID())
	}
	tags, err := uc.membershipRepo.CommunityTags(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("loading community tags: %w", err)
	}

	now := uc.timeProvider()
	in := domain.AccountabilityInput{
		Requester:  requester.MatchProfile(tags[requester.ID()], now),
		Candidates: make([]domain.MatchProfile, len(members)),
		Partnered:  partnered,
	}
	byID := make(map[domain.UserID]*domain.User, len(members))
	for i, m := range members {
		in.Candidates[i] = m.MatchProfile(tags[m.ID()], now)
		byID[m.ID()] = m
	}

	pick := domain.SelectPartner(uc.config, in)
	if pick == nil {
		uc.logger.Info("no partner available",
			"user_id", requester.ID().String(),
			"community_id", communityID.String(),
			"candidates", len(members),
			"outcome", "empty",
		)
		return nil, len(members), ErrNoPartnerAvailable
	}

	partnership, err := domain.NewPartnership(communityID, requester.ID(), pick.CandidateID, pick.Score)
	if err != nil {
		return nil, len(members), fmt.Errorf("creating partnership: %w", err)
	}

	// Create re-checks both users inside the transaction
	err = RunInTransaction(ctx, uc.uow, func(ctx context.Context) error {
		return uc.partnershipRepo.Create(ctx, partnership)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPartnered) {
			return nil, len(members), err
		}
		return nil, len(members), fmt.Errorf("saving partnership: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.RecordPartnershipFormed()
	}
	if uc.notifier != nil && !uc.notifier.NotifyPartnershipFormed(ctx, partnership, pick.Reasons) {
		uc.logger.Warn("partnership notification dropped", "partnership_id", partnership.ID().String())
	}

	return &FindPartnerOutput{
		PartnershipID:     partnership.ID().String(),
		CommunityID:       communityID.String(),
		Partner:           peerView(byID[pick.CandidateID]),
		Score:             pick.Score,
		Factors:           pick.Factors,
		SharedCommunities: pick.SharedCommunities,
		MatchingGoals:     pick.MatchingGoals,
		Reasons:           pick.Reasons,
		CreatedAt:         partnership.CreatedAt(),
	}, len(members), nil
}

// existingOutput describes a partnership that already exists. nothing is re-scored.
func (uc *FindPartnerUseCase) existingOutput(ctx context.Context, requester *domain.User, p *domain.Partnership) (*FindPartnerOutput, error) {
	partnerID, _ := p.PartnerOf(requester.ID())
	pick := domain.SelectPartner(uc.config, domain.AccountabilityInput{
		Requester:       domain.MatchProfile{ID: requester.ID()},
		ExistingPartner: &partnerID,
	})

	partner, err := uc.userRepo.FindByID(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("loading partner: %w", err)
	}

	return &FindPartnerOutput{
		PartnershipID:     p.ID().String(),
		CommunityID:       p.CommunityID().String(),
		Partner:           peerView(partner),
		Score:             p.Score(),
		Factors:           pick.Factors,
		SharedCommunities: pick.SharedCommunities,
		MatchingGoals:     pick.MatchingGoals,
		Reasons:           pick.Reasons,
		Existing:          true,
		CreatedAt:         p.CreatedAt(),
	}, nil
}
