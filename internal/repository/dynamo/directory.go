package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/godilite/staff-perf/internal/repository/models"
)

func (s *Store) CreateOrganization(ctx context.Context, org models.Organization) error {
	cond, err := notExists(attrID)
	if err != nil {
		return err
	}
	return s.conditionalPut(ctx, "put organization", s.tables.Organizations, org, cond, models.ErrDuplicate)
}

func (s *Store) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	var org models.Organization
	if err := s.getItem(ctx, "get organization", s.tables.Organizations, idKey(id), &org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.scanAll(ctx, "scan organizations", s.tables.Organizations,
		expression.AttributeExists(expression.Name(attrID)), &orgs)
	if err != nil {
		return nil, err
	}
	sortBy(orgs, func(o models.Organization) string { return o.Name })
	return orgs, nil
}

func (s *Store) CreateBranch(ctx context.Context, b models.Branch) error {
	cond, err := notExists(attrID)
	if err != nil {
		return err
	}
	return s.conditionalPut(ctx, "put branch", s.tables.Branches, b, cond, models.ErrDuplicate)
}

func (s *Store) GetBranch(ctx context.Context, id string) (models.Branch, error) {
	var b models.Branch
	if err := s.getItem(ctx, "get branch", s.tables.Branches, idKey(id), &b); err != nil {
		return models.Branch{}, err
	}
	return b, nil
}

func (s *Store) ListBranches(ctx context.Context, organizationID string) ([]models.Branch, error) {
	var branches []models.Branch
	err := s.scanAll(ctx, "scan branches", s.tables.Branches,
		expression.Name("OrganizationID").Equal(expression.Value(organizationID)), &branches)
	if err != nil {
		return nil, err
	}
	sortBy(branches, func(b models.Branch) string { return b.Name })
	return branches, nil
}

// UpdateBranch changes name and location only.
func (s *Store) UpdateBranch(ctx context.Context, b models.Branch) error {
	existing, err := s.GetBranch(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	existing.Name = b.Name
	existing.Location = b.Location
	existing.UpdatedAt = b.UpdatedAt

	cond, err := exists(attrID)
	if err != nil {
		return err
	}
	return s.conditionalPut(ctx, "update branch", s.tables.Branches, existing, cond, models.ErrNotFound)
}

func (s *Store) DeleteBranch(ctx context.Context, id string) error {
	return s.conditionalDelete(ctx, "delete branch", s.tables.Branches, id)
}

func (s *Store) CreateStaff(ctx context.Context, st models.Staff) error {
	return s.putWithUnique(ctx, "put staff", s.tables.Staff, st, st.ID, staffNumberKey(st.StaffNumber))
}

func (s *Store) GetStaff(ctx context.Context, id string) (models.Staff, error) {
	var st models.Staff
	if err := s.getItem(ctx, "get staff", s.tables.Staff, idKey(id), &st); err != nil {
		return models.Staff{}, err
	}
	return st, nil
}

func (s *Store) ListStaffByBranch(ctx context.Context, branchID string) ([]models.Staff, error) {
	return s.listStaff(ctx, expression.Name("BranchID").Equal(expression.Value(branchID)))
}

func (s *Store) ListStaffByOrganization(ctx context.Context, organizationID string) ([]models.Staff, error) {
	return s.listStaff(ctx, expression.Name("OrganizationID").Equal(expression.Value(organizationID)))
}

func (s *Store) listStaff(ctx context.Context, filter expression.ConditionBuilder) ([]models.Staff, error) {
	var staff []models.Staff
	if err := s.scanAll(ctx, "scan staff", s.tables.Staff, filter, &staff); err != nil {
		return nil, err
	}
	sortBy(staff, func(st models.Staff) string { return st.FirstName + "\x00" + st.LastName })
	return staff, nil
}

func (s *Store) UpdateStaff(ctx context.Context, st models.Staff) error {
	existing, err := s.GetStaff(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	st.OrganizationID = existing.OrganizationID
	st.CreatedAt = existing.CreatedAt
	return s.replaceWithUnique(ctx, "update staff", s.tables.Staff, st, st.ID,
		staffNumberKey(existing.StaffNumber), staffNumberKey(st.StaffNumber))
}

func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	existing, err := s.GetStaff(ctx, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	return s.deleteWithUnique(ctx, "delete staff", s.tables.Staff, id, staffNumberKey(existing.StaffNumber))
}

func (s *Store) CreateAccount(ctx context.Context, a models.Account) error {
	a.Login = normalizeLogin(a.Login)
	return s.putWithUnique(ctx, "put account", s.tables.Accounts, a, a.ID, loginKey(a.Login))
}

func (s *Store) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var a models.Account
	if err := s.getItem(ctx, "get account", s.tables.Accounts, idKey(id), &a); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// GetAccountByLogin resolves the login marker, then loads the account.
func (s *Store) GetAccountByLogin(ctx context.Context, login string) (models.Account, error) {
	var marker uniqueItem
	if err := s.getItem(ctx, "get login", s.tables.Uniques, uniqueKey(loginKey(login)), &marker); err != nil {
		return models.Account{}, err
	}
	return s.GetAccount(ctx, marker.OwnerID)
}

func (s *Store) ListAccounts(ctx context.Context, organizationID string, role models.Role) ([]models.Account, error) {
	return s.listAccounts(ctx, expression.Name("OrganizationID").Equal(expression.Value(organizationID)), role)
}

func (s *Store) ListAccountsByBranch(ctx context.Context, branchID string, role models.Role) ([]models.Account, error) {
	return s.listAccounts(ctx, expression.Name("BranchID").Equal(expression.Value(branchID)), role)
}

func (s *Store) listAccounts(ctx context.Context, filter expression.ConditionBuilder, role models.Role) ([]models.Account, error) {
	if role != "" {
		filter = filter.And(expression.Name("Role").Equal(expression.Value(string(role))))
	}
	var accounts []models.Account
	if err := s.scanAll(ctx, "scan accounts", s.tables.Accounts, filter, &accounts); err != nil {
		return nil, err
	}
	sortBy(accounts, func(a models.Account) string { return a.Name })
	return accounts, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a models.Account) error {
	existing, err := s.GetAccount(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	a.Login = normalizeLogin(a.Login)
	a.OrganizationID = existing.OrganizationID
	a.CreatedAt = existing.CreatedAt
	return s.replaceWithUnique(ctx, "update account", s.tables.Accounts, a, a.ID,
		loginKey(existing.Login), loginKey(a.Login))
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	existing, err := s.GetAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return s.deleteWithUnique(ctx, "delete account", s.tables.Accounts, id, loginKey(existing.Login))
}
