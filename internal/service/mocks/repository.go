package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/staff-perf/internal/repository/models"
)

// MockRatingRepository is a mock implementation of the RatingRepository interface
// for testing the service layer.
type MockRatingRepository struct {
	CreateRatingFunc          func(context.Context, models.RatingRecord) error
	ListRatingsFunc           func(context.Context, string, time.Time) ([]models.RatingRecord, error)
	DeleteRatingsForStaffFunc func(context.Context, string) error
}

// CreateRating implements the RatingRepository interface
func (m *MockRatingRepository) CreateRating(ctx context.Context, rating models.RatingRecord) error {
	if m.CreateRatingFunc != nil {
		return m.CreateRatingFunc(ctx, rating)
	}
	return errors.New("CreateRatingFunc not implemented")
}

func (m *MockRatingRepository) ListRatings(ctx context.Context, staffID string, since time.Time) ([]models.RatingRecord, error) {
	if m.ListRatingsFunc != nil {
		return m.ListRatingsFunc(ctx, staffID, since)
	}
	return nil, errors.New("ListRatingsFunc not implemented")
}

func (m *MockRatingRepository) DeleteRatingsForStaff(ctx context.Context, staffID string) error {
	if m.DeleteRatingsForStaffFunc != nil {
		return m.DeleteRatingsForStaffFunc(ctx, staffID)
	}
	return errors.New("DeleteRatingsForStaffFunc not implemented")
}

// MockStaffRepository is a function-field mock of StaffRepository.
type MockStaffRepository struct {
	CreateStaffFunc             func(context.Context, models.Staff) error
	GetStaffFunc                func(context.Context, string) (models.Staff, error)
	ListStaffByBranchFunc       func(context.Context, string) ([]models.Staff, error)
	ListStaffByOrganizationFunc func(context.Context, string) ([]models.Staff, error)
	UpdateStaffFunc             func(context.Context, models.Staff) error
	DeleteStaffFunc             func(context.Context, string) error
}

func (m *MockStaffRepository) CreateStaff(ctx context.Context, s models.Staff) error {
	if m.CreateStaffFunc != nil {
		return m.CreateStaffFunc(ctx, s)
	}
	return errors.New("CreateStaffFunc not implemented")
}

func (m *MockStaffRepository) GetStaff(ctx context.Context, id string) (models.Staff, error) {
	if m.GetStaffFunc != nil {
		return m.GetStaffFunc(ctx, id)
	}
	return models.Staff{}, errors.New("GetStaffFunc not implemented")
}

func (m *MockStaffRepository) ListStaffByBranch(ctx context.Context, branchID string) ([]models.Staff, error) {
	if m.ListStaffByBranchFunc != nil {
		return m.ListStaffByBranchFunc(ctx, branchID)
	}
	return nil, errors.New("ListStaffByBranchFunc not implemented")
}

func (m *MockStaffRepository) ListStaffByOrganization(ctx context.Context, organizationID string) ([]models.Staff, error) {
	if m.ListStaffByOrganizationFunc != nil {
		return m.ListStaffByOrganizationFunc(ctx, organizationID)
	}
	return nil, errors.New("ListStaffByOrganizationFunc not implemented")
}

func (m *MockStaffRepository) UpdateStaff(ctx context.Context, s models.Staff) error {
	if m.UpdateStaffFunc != nil {
		return m.UpdateStaffFunc(ctx, s)
	}
	return errors.New("UpdateStaffFunc not implemented")
}

func (m *MockStaffRepository) DeleteStaff(ctx context.Context, id string) error {
	if m.DeleteStaffFunc != nil {
		return m.DeleteStaffFunc(ctx, id)
	}
	return errors.New("DeleteStaffFunc not implemented")
}

type MockBranchRepository struct {
	CreateBranchFunc func(context.Context, models.Branch) error
	GetBranchFunc    func(context.Context, string) (models.Branch, error)
	ListBranchesFunc func(context.Context, string) ([]models.Branch, error)
	UpdateBranchFunc func(context.Context, models.Branch) error
	DeleteBranchFunc func(context.Context, string) error
}

func (m *MockBranchRepository) CreateBranch(ctx context.Context, b models.Branch) error {
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(ctx, b)
	}
	return errors.New("CreateBranchFunc not implemented")
}

func (m *MockBranchRepository) GetBranch(ctx context.Context, id string) (models.Branch, error) {
	if m.GetBranchFunc != nil {
		return m.GetBranchFunc(ctx, id)
	}
	return models.Branch{}, errors.New("GetBranchFunc not implemented")
}

func (m *MockBranchRepository) ListBranches(ctx context.Context, organizationID string) ([]models.Branch, error) {
	if m.ListBranchesFunc != nil {
		return m.ListBranchesFunc(ctx, organizationID)
	}
	return nil, errors.New("ListBranchesFunc not implemented")
}

func (m *MockBranchRepository) UpdateBranch(ctx context.Context, b models.Branch) error {
	if m.UpdateBranchFunc != nil {
		return m.UpdateBranchFunc(ctx, b)
	}
	return errors.New("UpdateBranchFunc not implemented")
}

func (m *MockBranchRepository) DeleteBranch(ctx context.Context, id string) error {
	if m.DeleteBranchFunc != nil {
		return m.DeleteBranchFunc(ctx, id)
	}
	return errors.New("DeleteBranchFunc not implemented")
}

type MockOrganizationRepository struct {
	CreateOrganizationFunc func(context.Context, models.Organization) error
	GetOrganizationFunc    func(context.Context, string) (models.Organization, error)
	ListOrganizationsFunc  func(context.Context) ([]models.Organization, error)
}

func (m *MockOrganizationRepository) CreateOrganization(ctx context.Context, org models.Organization) error {
	if m.CreateOrganizationFunc != nil {
		return m.CreateOrganizationFunc(ctx, org)
	}
	return errors.New("CreateOrganizationFunc not implemented")
}

func (m *MockOrganizationRepository) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	if m.GetOrganizationFunc != nil {
		return m.GetOrganizationFunc(ctx, id)
	}
	return models.Organization{}, errors.New("GetOrganizationFunc not implemented")
}

func (m *MockOrganizationRepository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	if m.ListOrganizationsFunc != nil {
		return m.ListOrganizationsFunc(ctx)
	}
	return nil, errors.New("ListOrganizationsFunc not implemented")
}

// MockAccountRepository also satisfies auth.AccountStore.
type MockAccountRepository struct {
	CreateAccountFunc        func(context.Context, models.Account) error
	GetAccountFunc           func(context.Context, string) (models.Account, error)
	GetAccountByLoginFunc    func(context.Context, string) (models.Account, error)
	ListAccountsFunc         func(context.Context, string, models.Role) ([]models.Account, error)
	ListAccountsByBranchFunc func(context.Context, string, models.Role) ([]models.Account, error)
	UpdateAccountFunc        func(context.Context, models.Account) error
	DeleteAccountFunc        func(context.Context, string) error
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, a models.Account) error {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, a)
	}
	return errors.New("CreateAccountFunc not implemented")
}

func (m *MockAccountRepository) GetAccount(ctx context.Context, id string) (models.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, id)
	}
	return models.Account{}, errors.New("GetAccountFunc not implemented")
}

func (m *MockAccountRepository) GetAccountByLogin(ctx context.Context, login string) (models.Account, error) {
	if m.GetAccountByLoginFunc != nil {
		return m.GetAccountByLoginFunc(ctx, login)
	}
	return models.Account{}, errors.New("GetAccountByLoginFunc not implemented")
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, organizationID string, role models.Role) ([]models.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, organizationID, role)
	}
	return nil, errors.New("ListAccountsFunc not implemented")
}

func (m *MockAccountRepository) ListAccountsByBranch(ctx context.Context, branchID string, role models.Role) ([]models.Account, error) {
	if m.ListAccountsByBranchFunc != nil {
		return m.ListAccountsByBranchFunc(ctx, branchID, role)
	}
	return nil, errors.New("ListAccountsByBranchFunc not implemented")
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, a models.Account) error {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, a)
	}
	return errors.New("UpdateAccountFunc not implemented")
}

func (m *MockAccountRepository) DeleteAccount(ctx context.Context, id string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, id)
	}
	return errors.New("DeleteAccountFunc not implemented")
}
