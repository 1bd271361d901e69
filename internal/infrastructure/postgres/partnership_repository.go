package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/peerpods/internal/domain"
)

const partnershipColumns = `id, community_id, user_a, user_b, score, status, created_at, ended_at`

// PartnershipRepository implements domain.PartnershipRepository using Postgres.
type PartnershipRepository struct {
	pool *pgxpool.Pool
}

// NewPartnershipRepository creates a new PartnershipRepository.
func NewPartnershipRepository(pool *pgxpool.Pool) *PartnershipRepository {
	return &PartnershipRepository{pool: pool}
}

// Create inserts a new partnership.
// the partial unique indexes on active partnerships are the final guard against
// two concurrent lookups pairing the same user twice.
func (r *PartnershipRepository) Create(ctx context.Context, p *domain.Partnership) error {
	const checkQuery = `
		SELECT EXISTS(
			SELECT 1 FROM peerpods.partnerships
			WHERE community_id = $1 AND status = 'active'
			  AND (user_a = ANY($2::uuid[]) OR user_b = ANY($2::uuid[]))
		)
	`
	const insertQuery = `
		INSERT INTO peerpods.partnerships (id, community_id, user_a, user_b, score, status, created_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	q := GetQuerier(ctx, r.pool)
	users := idStrings([]domain.UserID{p.UserA(), p.UserB()})

	var taken bool
	if err := q.QueryRow(ctx, checkQuery, p.CommunityID().UUID(), users).Scan(&taken); err != nil {
		return fmt.Errorf("checking active partnerships: %w", err)
	}
	if taken {
		return domain.ErrAlreadyPartnered
	}

	_, err := q.Exec(ctx, insertQuery,
		p.ID().UUID(),
		p.CommunityID().UUID(),
		p.UserA().UUID(),
		p.UserB().UUID(),
		p.Score(),
		string(p.Status()),
		p.CreatedAt(),
		p.EndedAt(),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyPartnered
	}
	if err != nil {
		return fmt.Errorf("creating partnership: %w", err)
	}
	return nil
}

// Save persists the status of an existing partnership.
func (r *PartnershipRepository) Save(ctx context.Context, p *domain.Partnership) error {
	const query = `
		UPDATE peerpods.partnerships
		SET status = $2, ended_at = $3
		WHERE id = $1
	`

	tag, err := GetQuerier(ctx, r.pool).Exec(ctx, query, p.ID().UUID(), string(p.Status()), p.EndedAt())
	if err != nil {
		return fmt.Errorf("saving partnership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID retrieves a partnership by its ID.
func (r *PartnershipRepository) FindByID(ctx context.Context, id domain.PartnershipID) (*domain.Partnership, error) {
	query := `SELECT ` + partnershipColumns + ` FROM peerpods.partnerships WHERE id = $1`
	return r.findOne(ctx, query, id.UUID())
}

// FindActiveByUser returns the user's active partnership in the community.
func (r *PartnershipRepository) FindActiveByUser(ctx context.Context, communityID domain.CommunityID, userID domain.UserID) (*domain.Partnership, error) {
	query := `SELECT ` + partnershipColumns + `
		FROM peerpods.partnerships
		WHERE community_id = $1 AND status = 'active' AND (user_a = $2 OR user_b = $2)
		LIMIT 1`
	return r.findOne(ctx, query, communityID.UUID(), userID.UUID())
}

// ActivePartnerIDs returns every user with an active partnership in the community.
func (r *PartnershipRepository) ActivePartnerIDs(ctx context.Context, communityID domain.CommunityID) (map[domain.UserID]bool, error) {
	const query = `
		SELECT user_a, user_b
		FROM peerpods.partnerships
		WHERE community_id = $1 AND status = 'active'
	`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, communityID.UUID())
	if err != nil {
		return nil, fmt.Errorf("querying active partnerships: %w", err)
	}
	defer rows.Close()

	partnered := make(map[domain.UserID]bool)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scanning partnership: %w", err)
		}
		for _, raw := range []string{a, b} {
			id, err := domain.ParseUserID(raw)
			if err != nil {
				return nil, fmt.Errorf("corrupted user id in database: %w", err)
			}
			partnered[id] = true
		}
	}

	return partnered, rows.Err()
}

func (r *PartnershipRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Partnership, error) {
	var (
		id          string
		communityID string
		userA       string
		userB       string
		score       int
		status      string
		createdAt   time.Time
		endedAt     *time.Time
	)

	err := GetQuerier(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&id, &communityID, &userA, &userB, &score, &status, &createdAt, &endedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning partnership: %w", err)
	}

	partnershipID, err := domain.ParsePartnershipID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted partnership id in database: %w", err)
	}
	community, err := domain.ParseCommunityID(communityID)
	if err != nil {
		return nil, fmt.Errorf("corrupted community id in database: %w", err)
	}
	a, err := domain.ParseUserID(userA)
	if err != nil {
		return nil, fmt.Errorf("corrupted user id in database: %w", err)
	}
	b, err := domain.ParseUserID(userB)
	if err != nil {
		return nil, fmt.Errorf("corrupted user id in database: %w", err)
	}

	return domain.ReconstructPartnership(
		partnershipID, community, a, b, score,
		domain.PartnershipStatus(status), createdAt, endedAt,
	), nil
}
