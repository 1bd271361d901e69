package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/peerpods/internal/domain"
)

// MembershipRepository implements domain.MembershipRepository using Postgres.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// Add creates the membership, doing nothing if it already exists.
func (r *MembershipRepository) Add(ctx context.Context, m domain.Membership) (bool, error) {
	const query = `
		INSERT INTO peerpods.memberships (community_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (community_id, user_id) DO NOTHING
	`

	tag, err := GetQuerier(ctx, r.pool).Exec(ctx, query, m.CommunityID.UUID(), m.UserID.UUID(), m.JoinedAt)
	if err != nil {
		return false, fmt.Errorf("adding membership: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsMember reports whether the user belongs to the community.
func (r *MembershipRepository) IsMember(ctx context.Context, communityID domain.CommunityID, userID domain.UserID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM peerpods.memberships WHERE community_id = $1 AND user_id = $2)`

	var member bool
	if err := GetQuerier(ctx, r.pool).QueryRow(ctx, query, communityID.UUID(), userID.UUID()).Scan(&member); err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return member, nil
}

// ListMemberIDs returns members of a community in join order.
func (r *MembershipRepository) ListMemberIDs(ctx context.Context, communityID domain.CommunityID, limit int) ([]domain.UserID, error) {
	const query = `
		SELECT user_id
		FROM peerpods.memberships
		WHERE community_id = $1
		ORDER BY joined_at, user_id
		LIMIT $2
	`

	return r.queryUserIDs(ctx, query, communityID.UUID(), limit)
}

// ListPeerIDs returns users sharing an active community with the user.
// peers sharing more communities come first, then the longest-standing members.
func (r *MembershipRepository) ListPeerIDs(ctx context.Context, userID domain.UserID, limit int) ([]domain.UserID, error) {
	const query = `
		SELECT other.user_id
		FROM peerpods.memberships mine
		JOIN peerpods.communities c ON c.id = mine.community_id AND c.is_active = true
		JOIN peerpods.memberships other ON other.community_id = mine.community_id
		WHERE mine.user_id = $1 AND other.user_id <> $1
		GROUP BY other.user_id
		ORDER BY COUNT(*) DESC, MIN(other.joined_at), other.user_id
		LIMIT $2
	`

	return r.queryUserIDs(ctx, query, userID.UUID(), limit)
}

// CommunityTags returns the slugs of the active communities each user belongs to.
func (r *MembershipRepository) CommunityTags(ctx context.Context, userIDs []domain.UserID) (map[domain.UserID][]string, error) {
	tags := make(map[domain.UserID][]string, len(userIDs))
	if len(userIDs) == 0 {
		return tags, nil
	}

	const query = `
		SELECT m.user_id, c.slug
		FROM peerpods.memberships m
		JOIN peerpods.communities c ON c.id = m.community_id
		WHERE c.is_active = true AND m.user_id = ANY($1::uuid[])
		ORDER BY m.joined_at
	`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, idStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("querying community tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, slug string
		if err := rows.Scan(&id, &slug); err != nil {
			return nil, fmt.Errorf("scanning community tag: %w", err)
		}
		userID, err := domain.ParseUserID(id)
		if err != nil {
			return nil, fmt.Errorf("corrupted user id in database: %w", err)
		}
		tags[userID] = append(tags[userID], slug)
	}

	return tags, rows.Err()
}

func (r *MembershipRepository) queryUserIDs(ctx context.Context, query string, args ...any) ([]domain.UserID, error) {
	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	ids := []domain.UserID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		userID, err := domain.ParseUserID(id)
		if err != nil {
			return nil, fmt.Errorf("corrupted user id in database: %w", err)
		}
		ids = append(ids, userID)
	}

	return ids, rows.Err()
}
