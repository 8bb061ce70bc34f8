package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/staff-perf/internal/repository/models"
)

type BranchRepository struct {
	db *sql.DB
}

func NewBranchRepository(db *sql.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

const branchColumns = `id, organization_id, name, location, created_at, updated_at`

func (r *BranchRepository) CreateBranch(ctx context.Context, b models.Branch) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO branches (`+branchColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.OrganizationID, b.Name, b.Location, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return mapWriteErr("insert branch", err)
	}
	return nil
}

func (r *BranchRepository) GetBranch(ctx context.Context, id string) (models.Branch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = ?`, id)
	b, err := scanBranch(row)
	if err != nil {
		return models.Branch{}, mapReadErr("query GetBranch", err)
	}
	return b, nil
}

func (r *BranchRepository) ListBranches(ctx context.Context, organizationID string) ([]models.Branch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE organization_id = ? ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("query ListBranches: %w", err)
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListBranches row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListBranches: %w", err)
	}
	return out, nil
}

func (r *BranchRepository) UpdateBranch(ctx context.Context, b models.Branch) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE branches SET name = ?, location = ?, updated_at = ? WHERE id = ?`,
		b.Name, b.Location, formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return mapWriteErr("update branch", err)
	}
	return expectAffected("update branch", res)
}

func (r *BranchRepository) DeleteBranch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM branches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return expectAffected("delete branch", res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(s rowScanner) (models.Branch, error) {
	var (
		b                    models.Branch
		createdAt, updatedAt string
	)
	if err := s.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Location, &createdAt, &updatedAt); err != nil {
		return models.Branch{}, err
	}
	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Branch{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Branch{}, err
	}
	return b, nil
}
