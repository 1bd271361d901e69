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

const userColumns = `id, external_id, username, display_name, avatar_url, bio, goals,
		streak, post_count, last_active_on, hidden_from_matching, created_at, updated_at`

// UserRepository implements domain.UserRepository using Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByID retrieves a user by their internal ID.
func (r *UserRepository) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM peerpods.users_profile WHERE id = $1`
	return r.findOne(ctx, query, id.UUID())
}

// FindByExternalID retrieves a user by their external auth provider ID.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM peerpods.users_profile WHERE external_id = $1`
	return r.findOne(ctx, query, externalID)
}

// FindByUsername retrieves a user by their username.
func (r *UserRepository) FindByUsername(ctx context.Context, username domain.Username) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM peerpods.users_profile WHERE username = $1`
	return r.findOne(ctx, query, username.String())
}

// FindByIDs retrieves multiple users, keeping the order of the input ids.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []domain.UserID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM peerpods.users_profile WHERE id = ANY($1::uuid[])`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("finding users by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[domain.UserID]*domain.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		byID[user.ID()] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// Save persists a user (insert or update).
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO peerpods.users_profile (id, external_id, username, display_name, avatar_url, bio, goals,
		                                    streak, post_count, last_active_on, hidden_from_matching, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			bio = EXCLUDED.bio,
			goals = EXCLUDED.goals,
			streak = EXCLUDED.streak,
			post_count = EXCLUDED.post_count,
			last_active_on = EXCLUDED.last_active_on,
			hidden_from_matching = EXCLUDED.hidden_from_matching,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		user.ID().UUID(),
		user.ExternalID(),
		user.Username().String(),
		nullableString(user.DisplayName()),
		nullableString(user.AvatarURL()),
		nullableString(user.Bio()),
		user.Goals(),
		user.Streak(),
		user.PostCount(),
		user.LastActiveOn(),
		user.HiddenFromMatching(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("saving user: %w", domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id domain.UserID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM peerpods.users_profile WHERE id = $1)`

	var exists bool
	if err := GetQuerier(ctx, r.pool).QueryRow(ctx, query, id.UUID()).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(GetQuerier(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return user, err
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		id           string
		externalID   string
		username     string
		displayName  *string
		avatarURL    *string
		bio          *string
		goals        []string
		streak       int
		postCount    int
		lastActiveOn *time.Time
		hidden       bool
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&id, &externalID, &username, &displayName, &avatarURL, &bio, &goals,
		&streak, &postCount, &lastActiveOn, &hidden, &createdAt, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	// stored data is trusted, but a bad id means corruption
	userID, err := domain.ParseUserID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted user id in database: %w", err)
	}

	return domain.ReconstructUser(domain.UserSnapshot{
		ID:                 userID,
		ExternalID:         externalID,
		Username:           domain.UsernameFromTrusted(username),
		DisplayName:        derefString(displayName),
		AvatarURL:          derefString(avatarURL),
		Bio:                derefString(bio),
		Goals:              goals,
		Streak:             streak,
		PostCount:          postCount,
		LastActiveOn:       lastActiveOn,
		HiddenFromMatching: hidden,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}), nil
}
