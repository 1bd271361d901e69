package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

var ErrUsernameTaken = errors.New("username is already taken")

// UpsertProfileInput carries the caller's profile. Hidden nil keeps the current setting.
type UpsertProfileInput struct {
	ExternalID  string
	Username    string // required on first call, ignored afterwards
	DisplayName string
	AvatarURL   string
	Bio         string
	Goals       []string
	Hidden      *bool
}

// UpsertProfileOutput is the stored profile.
type UpsertProfileOutput struct {
	Profile ProfileView
	Created bool
}

// UpsertProfileUseCase creates the caller's profile on first use and updates it afterwards.
type UpsertProfileUseCase struct {
	userRepo     domain.UserRepository
	cache        MatchCache
	timeProvider TimeProvider
	logger       *logging.Logger
}

// NewUpsertProfileUseCase creates a new UpsertProfileUseCase.
func NewUpsertProfileUseCase(userRepo domain.UserRepository, logger *logging.Logger) *UpsertProfileUseCase {
	return &UpsertProfileUseCase{
		userRepo:     userRepo,
		timeProvider: RealTime,
		logger:       logger.WithComponent("upsert_profile"),
	}
}

// WithMatchCache drops the caller's cached matches whenever the profile changes.
func (uc *UpsertProfileUseCase) WithMatchCache(c MatchCache) *UpsertProfileUseCase {
	uc.cache = c
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *UpsertProfileUseCase) WithTimeProvider(tp TimeProvider) *UpsertProfileUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute creates or updates the profile.
func (uc *UpsertProfileUseCase) Execute(ctx context.Context, input UpsertProfileInput) (*UpsertProfileOutput, error) {
	if input.ExternalID == "" {
		return nil, invalidInput(domain.ErrUserExternalIDEmpty)
	}

	user, err := uc.userRepo.FindByExternalID(ctx, input.ExternalID)
	created := false
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user, err = uc.newUser(ctx, input)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("looking up profile: %w", err)
	}

	user.UpdateProfile(input.DisplayName, input.AvatarURL, input.Bio)
	if err := user.SetGoals(input.Goals); err != nil {
		uc.logger.Info("profile rejected: invalid goals",
			"external_id", input.ExternalID,
			"error", err.Error(),
		)
		return nil, invalidInput(err)
	}
	if input.Hidden != nil {
		user.SetHiddenFromMatching(*input.Hidden)
	}

	if err := uc.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// lost a race on the username with another signup
			return nil, ErrUsernameTaken
		}
		uc.logger.Error("profile save failed",
			"user_id", user.ID().String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	if uc.cache != nil && !created {
		if err := uc.cache.InvalidateUser(ctx, user.ID()); err != nil {
			uc.logger.Warn("match cache invalidation failed", "user_id", user.ID().String(), "error", err.Error())
		}
	}

	uc.logger.Info("profile saved",
		"user_id", user.ID().String(),
		"created", created,
		"goals", len(user.Goals()),
		"outcome", "accepted",
	)

	return &UpsertProfileOutput{
		Profile: profileView(user, uc.timeProvider()),
		Created: created,
	}, nil
}

func (uc *UpsertProfileUseCase) newUser(ctx context.Context, input UpsertProfileInput) (*domain.User, error) {
	username, err := domain.NewUsername(input.Username)
	if err != nil {
		return nil, invalidInput(err)
	}

	_, err = uc.userRepo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("checking username: %w", err)
	}

	user, err := domain.NewUser(input.ExternalID, username)
	if err != nil {
		return nil, invalidInput(err)
	}
	return user, nil
}
