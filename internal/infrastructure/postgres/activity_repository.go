package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/peerpods/internal/domain"
)

var activityColumns = []string{"id", "community_id", "user_id", "event_type", "metadata", "created_at"}

// ActivityEventRepository implements domain.ActivityEventRepository using Postgres.
type ActivityEventRepository struct {
	pool *pgxpool.Pool
}

// NewActivityEventRepository creates a new ActivityEventRepository.
func NewActivityEventRepository(pool *pgxpool.Pool) *ActivityEventRepository {
	return &ActivityEventRepository{pool: pool}
}

func activityRow(event *domain.ActivityEvent) ([]any, error) {
	metadataJSON, err := event.MetadataJSON()
	if err != nil {
		return nil, fmt.Errorf("serializing metadata for event %s: %w", event.ID().String(), err)
	}

	return []any{
		event.ID().UUID(),
		event.CommunityID().UUID(),
		event.UserID().UUID(),
		event.EventType().String(),
		string(metadataJSON),
		event.CreatedAt(),
	}, nil
}

// Save persists a single activity event.
func (r *ActivityEventRepository) Save(ctx context.Context, event *domain.ActivityEvent) error {
	const query = `
		INSERT INTO peerpods.activity_events (id, community_id, user_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	row, err := activityRow(event)
	if err != nil {
		return err
	}

	if _, err := GetQuerier(ctx, r.pool).Exec(ctx, query, row...); err != nil {
		return fmt.Errorf("saving activity event: %w", err)
	}
	return nil
}

// SaveBatch persists many events with a single COPY, which is atomic on its own.
func (r *ActivityEventRepository) SaveBatch(ctx context.Context, events []*domain.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, len(events))
	for i, event := range events {
		row, err := activityRow(event)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	_, err := GetQuerier(ctx, r.pool).CopyFrom(
		ctx,
		pgx.Identifier{"peerpods", "activity_events"},
		activityColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("batch inserting events: %w", err)
	}
	return nil
}

// FindRecordsSince returns contribution records for the users, newest first.
// reactions don't count as activity for matching.
func (r *ActivityEventRepository) FindRecordsSince(ctx context.Context, userIDs []domain.UserID, since time.Time) ([]domain.ActivityRecord, error) {
	if len(userIDs) == 0 {
		return []domain.ActivityRecord{}, nil
	}

	const query = `
		SELECT user_id, created_at
		FROM peerpods.activity_events
		WHERE user_id = ANY($1::uuid[]) AND created_at >= $2 AND event_type = ANY($3::text[])
		ORDER BY created_at DESC
	`

	contributionTypes := make([]string, 0, 3)
	for _, et := range domain.ContributionEventTypes() {
		contributionTypes = append(contributionTypes, et.String())
	}

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, idStrings(userIDs), since, contributionTypes)
	if err != nil {
		return nil, fmt.Errorf("querying activity records: %w", err)
	}
	defer rows.Close()

	records := []domain.ActivityRecord{}
	for rows.Next() {
		var (
			userID    string
			createdAt time.Time
		)
		if err := rows.Scan(&userID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity record: %w", err)
		}

		author, err := domain.ParseUserID(userID)
		if err != nil {
			return nil, fmt.Errorf("corrupted user id in database: %w", err)
		}
		records = append(records, domain.ActivityRecord{AuthorID: author, CreatedAt: createdAt})
	}

	return records, rows.Err()
}
