package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

var ErrPartnershipNotFound = errors.New("partnership not found")

// EndPartnershipOutput is the ended partnership.
type EndPartnershipOutput struct {
	PartnershipID string    `json:"partnership_id"`
	Status        string    `json:"status"`
	EndedAt       time.Time `json:"ended_at"`
}

// EndPartnershipUseCase lets either participant end an active partnership.
type EndPartnershipUseCase struct {
	userRepo        domain.UserRepository
	partnershipRepo domain.PartnershipRepository
	logger          *logging.Logger
}

// NewEndPartnershipUseCase creates a new EndPartnershipUseCase.
func NewEndPartnershipUseCase(
	userRepo domain.UserRepository,
	partnershipRepo domain.PartnershipRepository,
	logger *logging.Logger,
) *EndPartnershipUseCase {
	return &EndPartnershipUseCase{
		userRepo:        userRepo,
		partnershipRepo: partnershipRepo,
		logger:          logger.WithComponent("end_partnership"),
	}
}

// Execute ends the partnership on behalf of the caller.
func (uc *EndPartnershipUseCase) Execute(ctx context.Context, externalID, rawPartnershipID string) (*EndPartnershipOutput, error) {
	id, err := domain.ParsePartnershipID(rawPartnershipID)
	if err != nil {
		return nil, invalidInput(fmt.Errorf("partnership id: %w", err))
	}

	user, err := findCaller(ctx, uc.userRepo, externalID)
	if err != nil {
		return nil, err
	}

	partnership, err := uc.partnershipRepo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrPartnershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading partnership: %w", err)
	}

	if err := partnership.End(user.ID()); err != nil {
		uc.logger.Info("end partnership rejected",
			"partnership_id", id.String(),
			"user_id", user.ID().String(),
			"reason", err.Error(),
			"outcome", "rejected",
		)
		if errors.Is(err, domain.ErrForbidden) {
			// don't reveal partnerships the caller isn't part of
			return nil, ErrPartnershipNotFound
		}
		return nil, err
	}

	if err := uc.partnershipRepo.Save(ctx, partnership); err != nil {
		return nil, fmt.Errorf("saving partnership: %w", err)
	}

	uc.logger.Info("partnership ended",
		"partnership_id", id.String(),
		"ended_by", user.ID().String(),
		"outcome", "accepted",
	)

	return &EndPartnershipOutput{
		PartnershipID: id.String(),
		Status:        string(partnership.Status()),
		EndedAt:       *partnership.EndedAt(),
	}, nil
}
