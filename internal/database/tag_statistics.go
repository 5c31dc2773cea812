package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-snippets/internal/apperror"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/google/uuid"
)

// TagStatisticsRepository stores the derived per-owner tag breakdown
type TagStatisticsRepository struct {
	db *DB
}

// NewTagStatisticsRepository creates a new tag statistics repository
func NewTagStatisticsRepository(db *DB) *TagStatisticsRepository {
	return &TagStatisticsRepository{db: db}
}

const tagStatsColumns = `user_id, tag_stats, tainted, last_analyzed_at, analysis_version, created_at, updated_at`

// GetByUserID returns the owner's last computed statistics
func (r *TagStatisticsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tagStatsColumns+` FROM tag_statistics WHERE user_id = $1`, userID)
	stats, err := scanTagStatistics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag statistics for %s: %w", userID, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag statistics: %w", err)
	}
	return stats, nil
}

// scanTagStatistics decodes one row selected with tagStatsColumns. The JSONB
// counts column decodes into an empty map when the row has none.
func scanTagStatistics(row rowScanner) (*models.TagStatistics, error) {
	stats := &models.TagStatistics{TagStats: make(map[string]models.TagStats)}
	var counts []byte
	var lastAnalyzedAt sql.NullTime
	if err := row.Scan(
		&stats.UserID,
		&counts,
		&stats.Tainted,
		&lastAnalyzedAt,
		&stats.AnalysisVersion,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &stats.TagStats); err != nil {
			return nil, fmt.Errorf("failed to decode tag_stats: %w", err)
		}
	}
	if lastAnalyzedAt.Valid {
		t := lastAnalyzedAt.Time
		stats.LastAnalyzedAt = &t
	}
	return stats, nil
}

// GetByUserIDOrCreate retrieves tag statistics, creating a tainted empty row
// when the owner has none yet
func (r *TagStatisticsRepository) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	stats, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tag_statistics (user_id, tag_stats, tainted, analysis_version, created_at, updated_at)
		VALUES ($1, '{}', true, 0, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag statistics: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

// UpdateStatistics writes freshly computed counts and clears the taint, but
// only while the stored version still equals stats.AnalysisVersion. It reports
// false when another writer got there first. On success stats is refreshed
// from the written row.
func (r *TagStatisticsRepository) UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error) {
	counts, err := json.Marshal(stats.TagStats)
	if err != nil {
		return false, fmt.Errorf("failed to encode tag_stats: %w", err)
	}

	now := time.Now().UTC()
	analyzedAt := now
	if stats.LastAnalyzedAt != nil {
		analyzedAt = *stats.LastAnalyzedAt
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE tag_statistics
		SET tag_stats = $1, tainted = false, last_analyzed_at = $2,
			analysis_version = analysis_version + 1, updated_at = $3
		WHERE user_id = $4 AND analysis_version = $5
		RETURNING `+tagStatsColumns,
		counts, analyzedAt, now, stats.UserID, stats.AnalysisVersion,
	)
	written, err := scanTagStatistics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update tag statistics: %w", err)
	}

	*stats = *written
	return true, nil
}

// MarkTainted flags the owner's statistics as stale, creating the row if
// needed. It reports whether the flag flipped from false to true.
func (r *TagStatisticsRepository) MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error) {
	var flipped uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tag_statistics (user_id, tag_stats, tainted, analysis_version, created_at, updated_at)
		VALUES ($1, '{}', true, 0, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET tainted = true, updated_at = $2
		WHERE tag_statistics.tainted = false
		RETURNING user_id
	`, userID, time.Now().UTC()).Scan(&flipped)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark tainted: %w", err)
	}
	return true, nil
}
