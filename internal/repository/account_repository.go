package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/godilite/staff-perf/internal/repository/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, organization_id, role, login, name, email, phone, branch_id, staff_id,
	secret_hash, active, created_at, updated_at`

// CreateAccount stores an account. Logins are unique case-insensitively.
func (r *AccountRepository) CreateAccount(ctx context.Context, a models.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrganizationID, string(a.Role), normalizeLogin(a.Login), a.Name, a.Email, a.Phone, a.BranchID, a.StaffID,
		a.SecretHash, boolToInt(a.Active), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return mapWriteErr("insert account", err)
	}
	return nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, id string) (models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadErr("query GetAccount", err)
	}
	return a, nil
}

func (r *AccountRepository) GetAccountByLogin(ctx context.Context, login string) (models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login = ?`, normalizeLogin(login))
	a, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapReadErr("query GetAccountByLogin", err)
	}
	return a, nil
}

// ListAccounts lists an organization's accounts, optionally of one role.
func (r *AccountRepository) ListAccounts(ctx context.Context, organizationID string, role models.Role) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE organization_id = ?`
	args := []any{organizationID}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY name`
	return r.list(ctx, "ListAccounts", query, args...)
}

// ListAccountsByBranch lists the accounts attached to a branch, optionally of
// one role.
func (r *AccountRepository) ListAccountsByBranch(ctx context.Context, branchID string, role models.Role) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE branch_id = ?`
	args := []any{branchID}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY name`
	return r.list(ctx, "ListAccountsByBranch", query, args...)
}

func (r *AccountRepository) list(ctx context.Context, op, query string, args ...any) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return out, nil
}

func (r *AccountRepository) UpdateAccount(ctx context.Context, a models.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET role = ?, login = ?, name = ?, email = ?, phone = ?, branch_id = ?, staff_id = ?,
			secret_hash = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, string(a.Role), normalizeLogin(a.Login), a.Name, a.Email, a.Phone, a.BranchID, a.StaffID,
		a.SecretHash, boolToInt(a.Active), formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return mapWriteErr("update account", err)
	}
	return expectAffected("update account", res)
}

func (r *AccountRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectAffected("delete account", res)
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func scanAccount(s rowScanner) (models.Account, error) {
	var (
		a                    models.Account
		role                 string
		active               int
		createdAt, updatedAt string
	)
	if err := s.Scan(&a.ID, &a.OrganizationID, &role, &a.Login, &a.Name, &a.Email, &a.Phone, &a.BranchID, &a.StaffID,
		&a.SecretHash, &active, &createdAt, &updatedAt); err != nil {
		return models.Account{}, err
	}
	a.Role = models.Role(role)
	a.Active = active != 0
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Account{}, err
	}
	return a, nil
}
