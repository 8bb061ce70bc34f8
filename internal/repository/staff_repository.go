package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/staff-perf/internal/repository/models"
)

type StaffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `id, organization_id, branch_id, staff_number, first_name, last_name,
	email, position, photo_url, active, created_at, updated_at`

func (r *StaffRepository) CreateStaff(ctx context.Context, s models.Staff) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO staff (`+staffColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OrganizationID, s.BranchID, s.StaffNumber, s.FirstName, s.LastName,
		s.Email, s.Position, s.PhotoURL, boolToInt(s.Active), formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return mapWriteErr("insert staff", err)
	}
	return nil
}

func (r *StaffRepository) GetStaff(ctx context.Context, id string) (models.Staff, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	s, err := scanStaff(row)
	if err != nil {
		return models.Staff{}, mapReadErr("query GetStaff", err)
	}
	return s, nil
}

func (r *StaffRepository) ListStaffByBranch(ctx context.Context, branchID string) ([]models.Staff, error) {
	return r.list(ctx, "ListStaffByBranch",
		`SELECT `+staffColumns+` FROM staff WHERE branch_id = ? ORDER BY first_name, last_name`, branchID)
}

func (r *StaffRepository) ListStaffByOrganization(ctx context.Context, organizationID string) ([]models.Staff, error) {
	return r.list(ctx, "ListStaffByOrganization",
		`SELECT `+staffColumns+` FROM staff WHERE organization_id = ? ORDER BY first_name, last_name`, organizationID)
}

func (r *StaffRepository) list(ctx context.Context, op, query string, args ...any) ([]models.Staff, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return out, nil
}

func (r *StaffRepository) UpdateStaff(ctx context.Context, s models.Staff) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE staff
		SET branch_id = ?, staff_number = ?, first_name = ?, last_name = ?, email = ?,
			position = ?, photo_url = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, s.BranchID, s.StaffNumber, s.FirstName, s.LastName, s.Email,
		s.Position, s.PhotoURL, boolToInt(s.Active), formatTime(s.UpdatedAt), s.ID)
	if err != nil {
		return mapWriteErr("update staff", err)
	}
	return expectAffected("update staff", res)
}

func (r *StaffRepository) DeleteStaff(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	return expectAffected("delete staff", res)
}

func scanStaff(s rowScanner) (models.Staff, error) {
	var (
		st                   models.Staff
		active               int
		createdAt, updatedAt string
	)
	if err := s.Scan(&st.ID, &st.OrganizationID, &st.BranchID, &st.StaffNumber, &st.FirstName, &st.LastName,
		&st.Email, &st.Position, &st.PhotoURL, &active, &createdAt, &updatedAt); err != nil {
		return models.Staff{}, err
	}
	st.Active = active != 0
	var err error
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Staff{}, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Staff{}, err
	}
	return st, nil
}
