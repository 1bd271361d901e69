package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// RecordActivityInput is one contribution by the caller inside a pod.
type RecordActivityInput struct {
	ExternalID  string
	CommunityID string
	EventType   string
	Metadata    map[string]any
}

// RecordActivityOutput echoes the accepted event and the caller's updated counters.
type RecordActivityOutput struct {
	EventID     string `json:"event_id"`
	CommunityID string `json:"community_id"`
	EventType   string `json:"event_type"`
	Streak      int    `json:"streak"`
	PostCount   int    `json:"post_count"`
	Queued      bool   `json:"queued"`
}

// RecordActivityUseCase records a member's activity and advances their streak.
type RecordActivityUseCase struct {
	userRepo       domain.UserRepository
	communityRepo  domain.CommunityRepository
	membershipRepo domain.MembershipRepository
	eventRepo      domain.ActivityEventRepository
	uow            UnitOfWork
	checker        CommunityChecker
	eventChan      chan<- *domain.ActivityEvent
	timeProvider   TimeProvider
	logger         *logging.Logger
}

// NewRecordActivityUseCase creates a new RecordActivityUseCase.
func NewRecordActivityUseCase(
	userRepo domain.UserRepository,
	communityRepo domain.CommunityRepository,
	membershipRepo domain.MembershipRepository,
	eventRepo domain.ActivityEventRepository,
	uow UnitOfWork,
	logger *logging.Logger,
) *RecordActivityUseCase {
	return &RecordActivityUseCase{
		userRepo:       userRepo,
		communityRepo:  communityRepo,
		membershipRepo: membershipRepo,
		eventRepo:      eventRepo,
		uow:            uow,
		timeProvider:   RealTime,
		logger:         logger.WithComponent("record_activity"),
	}
}

// WithEventChannel hands events to the async ingestion worker instead of saving inline.
// a full channel falls back to a synchronous save.
func (uc *RecordActivityUseCase) WithEventChannel(ch chan<- *domain.ActivityEvent) *RecordActivityUseCase {
	uc.eventChan = ch
	return uc
}

// WithCommunityChecker sets a cached existence checker used instead of the repository.
func (uc *RecordActivityUseCase) WithCommunityChecker(c CommunityChecker) *RecordActivityUseCase {
	uc.checker = c
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *RecordActivityUseCase) WithTimeProvider(tp TimeProvider) *RecordActivityUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute validates and records the activity.
func (uc *RecordActivityUseCase) Execute(ctx context.Context, input RecordActivityInput) (*RecordActivityOutput, error) {
	communityID, err := parseCommunityID(input.CommunityID)
	if err != nil {
		return nil, err
	}

	eventType, err := domain.ParseEventType(input.EventType)
	if err != nil {
		uc.logger.Warn("activity rejected: invalid event type",
			"community_id", communityID.String(),
			"event_type", input.EventType,
			"reason", err.Error(),
		)
		return nil, invalidInput(err)
	}

	user, err := findCaller(ctx, uc.userRepo, input.ExternalID)
	if err != nil {
		return nil, err
	}

	if err := requireActive(ctx, uc.checker, uc.communityRepo, communityID); err != nil {
		return nil, err
	}

	member, err := uc.membershipRepo.IsMember(ctx, communityID, user.ID())
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		uc.logger.Warn("activity rejected: not a member",
			"community_id", communityID.String(),
			"user_id", user.ID().String(),
			"outcome", "rejected",
		)
		return nil, domain.ErrNotMember
	}

	now := uc.timeProvider()
	event, err := domain.NewActivityEvent(communityID, user.ID(), eventType, input.Metadata, now)
	if err != nil {
		return nil, invalidInput(err)
	}

	// reactions are stored but don't move the streak
	if eventType.IsContribution() {
		user.RecordActivity(now)
	}

	err = RunInTransaction(ctx, uc.uow, func(ctx context.Context) error {
		if eventType.IsContribution() {
			if err := uc.userRepo.Save(ctx, user); err != nil {
				return fmt.Errorf("saving streak: %w", err)
			}
		}
		if uc.eventChan == nil {
			return uc.saveEvent(ctx, event)
		}
		return nil
	})
	if err != nil {
		uc.logger.Error("activity save failed",
			"event_id", event.ID().String(),
			"user_id", user.ID().String(),
			"error", err.Error(),
		)
		return nil, err
	}

	// queue only once the streak is committed
	queued := false
	if uc.eventChan != nil {
		select {
		case uc.eventChan <- event:
			queued = true
		default:
			uc.logger.Warn("ingestion buffer full, saving inline", "event_id", event.ID().String())
			if err := uc.saveEvent(ctx, event); err != nil {
				uc.logger.Error("activity save failed",
					"event_id", event.ID().String(),
					"user_id", user.ID().String(),
					"error", err.Error(),
				)
				return nil, err
			}
		}
	}

	uc.logger.Info("activity recorded",
		"event_id", event.ID().String(),
		"community_id", communityID.String(),
		"user_id", user.ID().String(),
		"event_type", eventType.String(),
		"queued", queued,
		"outcome", "accepted",
	)

	return &RecordActivityOutput{
		EventID:     event.ID().String(),
		CommunityID: communityID.String(),
		EventType:   eventType.String(),
		Streak:      user.CurrentStreak(now),
		PostCount:   user.PostCount(),
		Queued:      queued,
	}, nil
}

func (uc *RecordActivityUseCase) saveEvent(ctx context.Context, event *domain.ActivityEvent) error {
	if err := uc.eventRepo.Save(ctx, event); err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}
