package service

import (
	"context"
	"time"

	"github.com/godilite/staff-perf/internal/repository/models"
)

// RatingRepository stores immutable rating records.
type RatingRepository interface {
	CreateRating(ctx context.Context, rating models.RatingRecord) error
	ListRatings(ctx context.Context, staffID string, since time.Time) ([]models.RatingRecord, error)
	DeleteRatingsForStaff(ctx context.Context, staffID string) error
}

type StaffRepository interface {
	CreateStaff(ctx context.Context, s models.Staff) error
	GetStaff(ctx context.Context, id string) (models.Staff, error)
	ListStaffByBranch(ctx context.Context, branchID string) ([]models.Staff, error)
	ListStaffByOrganization(ctx context.Context, organizationID string) ([]models.Staff, error)
	UpdateStaff(ctx context.Context, s models.Staff) error
	DeleteStaff(ctx context.Context, id string) error
}

type BranchRepository interface {
	CreateBranch(ctx context.Context, b models.Branch) error
	GetBranch(ctx context.Context, id string) (models.Branch, error)
	ListBranches(ctx context.Context, organizationID string) ([]models.Branch, error)
	UpdateBranch(ctx context.Context, b models.Branch) error
	DeleteBranch(ctx context.Context, id string) error
}

type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, org models.Organization) error
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, a models.Account) error
	GetAccount(ctx context.Context, id string) (models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (models.Account, error)
	ListAccounts(ctx context.Context, organizationID string, role models.Role) ([]models.Account, error)
	ListAccountsByBranch(ctx context.Context, branchID string, role models.Role) ([]models.Account, error)
	UpdateAccount(ctx context.Context, a models.Account) error
	DeleteAccount(ctx context.Context, id string) error
}

// Repositories bundles one implementation of every store. The SQLite
// backend fills it with separate repositories, DynamoDB with one store.
type Repositories struct {
	Organizations OrganizationRepository
	Branches      BranchRepository
	Staff         StaffRepository
	Accounts      AccountRepository
	Ratings       RatingRepository
}
