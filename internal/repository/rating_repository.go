package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/godilite/staff-perf/internal/repository/models"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// CreateRating stores a rating. Ratings are append-only.
func (r *RatingRepository) CreateRating(ctx context.Context, rating models.RatingRecord) error {
	scores, err := json.Marshal(rating.CategoryScores)
	if err != nil {
		return fmt.Errorf("encode category scores: %w", err)
	}

	const query = `
		INSERT INTO ratings (id, staff_id, branch_id, organization_id, rated_by, rater_role,
			category_scores, average_percentage, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rating.ID, rating.StaffID, rating.BranchID, rating.OrganizationID, rating.RatedBy, string(rating.RaterRole),
		string(scores), rating.AveragePercentage, rating.Comment, formatTime(rating.CreatedAt))
	if err != nil {
		return mapWriteErr("insert rating", err)
	}
	return nil
}

// ListRatings returns a staff member's ratings created at or after since,
// most recent first. A zero since returns the full history.
func (r *RatingRepository) ListRatings(ctx context.Context, staffID string, since time.Time) ([]models.RatingRecord, error) {
	const query = `
		SELECT id, staff_id, branch_id, organization_id, rated_by, rater_role,
			category_scores, average_percentage, comment, created_at
		FROM ratings
		WHERE staff_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, staffID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query ListRatings: %w", err)
	}
	defer rows.Close()

	var results []models.RatingRecord
	for rows.Next() {
		var (
			rec       models.RatingRecord
			role      string
			scores    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.StaffID, &rec.BranchID, &rec.OrganizationID, &rec.RatedBy, &role,
			&scores, &rec.AveragePercentage, &rec.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ListRatings row: %w", err)
		}
		rec.RaterRole = models.Role(role)
		if err := json.Unmarshal([]byte(scores), &rec.CategoryScores); err != nil {
			return nil, fmt.Errorf("decode category scores for rating %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListRatings: %w", err)
	}
	return results, nil
}

// DeleteRatingsForStaff removes a staff member's history when the staff
// record itself is deleted.
func (r *RatingRepository) DeleteRatingsForStaff(ctx context.Context, staffID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ratings WHERE staff_id = ?`, staffID); err != nil {
		return fmt.Errorf("delete ratings: %w", err)
	}
	return nil
}
