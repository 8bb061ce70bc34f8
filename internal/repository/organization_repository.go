package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/staff-perf/internal/repository/models"
)

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org models.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		org.ID, org.Name, formatTime(org.CreatedAt))
	if err != nil {
		return mapWriteErr("insert organization", err)
	}
	return nil
}

func (r *OrganizationRepository) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	var (
		org       models.Organization
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?`, id).
		Scan(&org.ID, &org.Name, &createdAt)
	if err != nil {
		return models.Organization{}, mapReadErr("query GetOrganization", err)
	}
	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (r *OrganizationRepository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query ListOrganizations: %w", err)
	}
	defer rows.Close()

	var out []models.Organization
	for rows.Next() {
		var (
			org       models.Organization
			createdAt string
		)
		if err := rows.Scan(&org.ID, &org.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ListOrganizations row: %w", err)
		}
		if org.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListOrganizations: %w", err)
	}
	return out, nil
}
