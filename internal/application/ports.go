package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
)

// TimeProvider abstracts time acquisition for testability.
type TimeProvider func() time.Time

// RealTime returns the current UTC time.
func RealTime() time.Time {
	return time.Now().UTC()
}

// CommunityChecker answers existence checks, usually from a cache.
type CommunityChecker interface {
	CheckActive(ctx context.Context, id domain.CommunityID) (exists, isActive bool, err error)
}

// PodRanking keeps the pod directory ordering in sync with membership changes.
type PodRanking interface {
	IncrementPodMembers(ctx context.Context, id domain.CommunityID, delta int) error
}

// MatchCache stores ranked discovery results for a short time.
type MatchCache interface {
	GetMatches(ctx context.Context, userID domain.UserID, scope string, limit int) ([]domain.CompatibilityResult, bool, error)
	SetMatches(ctx context.Context, userID domain.UserID, scope string, limit int, results []domain.CompatibilityResult) error
	InvalidateUser(ctx context.Context, userID domain.UserID) error
}

// MatchMetrics records matching observability.
type MatchMetrics interface {
	ObserveMatch(mode string, candidates int, elapsed time.Duration)
	RecordCacheLookup(hit bool)
	RecordPartnershipFormed()
}

// PartnershipNotifier tells both participants about a new partnership.
type PartnershipNotifier interface {
	NotifyPartnershipFormed(ctx context.Context, p *domain.Partnership, reasons []string) bool
}

const (
	ModeDiscovery      = "discovery"
	ModeAccountability = "accountability"
)

var (
	// ErrProfileNotFound means the caller authenticated but never created a profile.
	ErrProfileNotFound   = errors.New("profile not found, create one first")
	ErrCommunityNotFound = errors.New("community not found")
)

// invalidInput tags a validation failure so the transport can report it as a bad request.
func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
}

// findCaller resolves the authenticated caller's profile.
func findCaller(ctx context.Context, users domain.UserRepository, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, invalidInput(domain.ErrUserExternalIDEmpty)
	}

	user, err := users.FindByExternalID(ctx, externalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up caller: %w", err)
	}
	return user, nil
}

// parseCommunityID parses a path or body id, tagging failures as invalid input.
func parseCommunityID(raw string) (domain.CommunityID, error) {
	id, err := domain.ParseCommunityID(raw)
	if err != nil {
		return domain.CommunityID{}, invalidInput(fmt.Errorf("community id: %w", err))
	}
	return id, nil
}
