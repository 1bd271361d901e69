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

const communityColumns = `c.id, c.slug, c.name, c.description, c.creator_id, c.is_active,
		(SELECT COUNT(*) FROM peerpods.memberships m WHERE m.community_id = c.id) AS member_count,
		c.created_at, c.updated_at`

// CommunityRepository implements domain.CommunityRepository using Postgres.
type CommunityRepository struct {
	pool *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository.
func NewCommunityRepository(pool *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{pool: pool}
}

// FindByID retrieves a community by its ID.
func (r *CommunityRepository) FindByID(ctx context.Context, id domain.CommunityID) (*domain.Community, error) {
	query := `SELECT ` + communityColumns + ` FROM peerpods.communities c WHERE c.id = $1`
	return r.findOne(ctx, query, id.UUID())
}

// FindBySlug retrieves a community by its URL-friendly slug.
func (r *CommunityRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Community, error) {
	query := `SELECT ` + communityColumns + ` FROM peerpods.communities c WHERE c.slug = $1`
	return r.findOne(ctx, query, slug.String())
}

// FindByIDs retrieves multiple communities, keeping the order of the input ids.
func (r *CommunityRepository) FindByIDs(ctx context.Context, ids []domain.CommunityID) ([]*domain.Community, error) {
	if len(ids) == 0 {
		return []*domain.Community{}, nil
	}

	query := `SELECT ` + communityColumns + ` FROM peerpods.communities c WHERE c.id = ANY($1::uuid[])`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("finding communities by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[domain.CommunityID]*domain.Community, len(ids))
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		byID[community.ID()] = community
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating communities: %w", err)
	}

	communities := make([]*domain.Community, 0, len(ids))
	for _, id := range ids {
		if community, ok := byID[id]; ok {
			communities = append(communities, community)
		}
		// missing ids were deleted since they were cached
	}
	return communities, nil
}

// Save persists a community (insert or update).
// a duplicate slug surfaces as domain.ErrAlreadyExists.
func (r *CommunityRepository) Save(ctx context.Context, community *domain.Community) error {
	const query = `
		INSERT INTO peerpods.communities (id, slug, name, description, creator_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		community.ID().UUID(),
		community.Slug().String(),
		community.Name(),
		nullableString(community.Description()),
		community.CreatorID().UUID(),
		community.IsActive(),
		community.CreatedAt(),
		community.UpdatedAt(),
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("saving community: %w", domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving community: %w", err)
	}
	return nil
}

// Exists checks if a community with the given ID exists.
func (r *CommunityRepository) Exists(ctx context.Context, id domain.CommunityID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM peerpods.communities WHERE id = $1)`

	var exists bool
	if err := GetQuerier(ctx, r.pool).QueryRow(ctx, query, id.UUID()).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking community existence: %w", err)
	}
	return exists, nil
}

// ListActive returns active communities, largest first.
func (r *CommunityRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.Community, error) {
	query := `SELECT ` + communityColumns + `
		FROM peerpods.communities c
		WHERE c.is_active = true
		ORDER BY member_count DESC, c.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing communities: %w", err)
	}
	defer rows.Close()

	communities := []*domain.Community{}
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}

	return communities, rows.Err()
}

func (r *CommunityRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Community, error) {
	community, err := scanCommunity(GetQuerier(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return community, err
}

func scanCommunity(row rowScanner) (*domain.Community, error) {
	var (
		id          string
		slug        string
		name        string
		description *string
		creatorID   string
		isActive    bool
		memberCount int
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &slug, &name, &description, &creatorID, &isActive, &memberCount, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning community: %w", err)
	}

	communityID, err := domain.ParseCommunityID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted community id in database: %w", err)
	}

	creator, err := domain.ParseUserID(creatorID)
	if err != nil {
		return nil, fmt.Errorf("corrupted creator id in database: %w", err)
	}

	return domain.ReconstructCommunity(
		communityID,
		domain.SlugFromTrusted(slug),
		name,
		derefString(description),
		creator,
		isActive,
		memberCount,
		createdAt,
		updatedAt,
	), nil
}
