package httpapi

import (
	"context"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

type Authenticator interface {
	Login(ctx context.Context, login, secret string) (auth.LoginResult, error)
	Logout(ctx context.Context, actor auth.Actor) error
	Authenticate(ctx context.Context, rawToken string) (auth.Actor, error)
	ChangeSecret(ctx context.Context, actor auth.Actor, current, next string) error
	ResetSecret(ctx context.Context, actor auth.Actor, accountID, next string) error
}

type PerformanceReader interface {
	GetStaffPerformance(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error)
	GetStaffSeries(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffSeries, error)
	GetPeriodChange(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.PeriodChange, error)
	GetBranchOverview(ctx context.Context, actor auth.Actor, branchID string, window scoring.Window, tier scoring.Tier) (service.BranchOverview, error)
	GetOrganizationOverview(ctx context.Context, actor auth.Actor, window scoring.Window) (service.OrganizationOverview, error)
}

type RatingWriter interface {
	SubmitRating(ctx context.Context, actor auth.Actor, staffID string, in service.RatingInput) (models.RatingRecord, error)
	ListStaffRatings(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) ([]models.RatingRecord, error)
}

type Directory interface {
	CreateOrganization(ctx context.Context, actor auth.Actor, in service.OrganizationInput) (models.Organization, error)
	GetOrganization(ctx context.Context, actor auth.Actor, id string) (models.Organization, error)
	ListOrganizations(ctx context.Context, actor auth.Actor) ([]models.Organization, error)

	CreateBranch(ctx context.Context, actor auth.Actor, in service.BranchInput) (models.Branch, error)
	GetBranch(ctx context.Context, actor auth.Actor, id string) (models.Branch, error)
	ListBranches(ctx context.Context, actor auth.Actor) ([]models.Branch, error)
	UpdateBranch(ctx context.Context, actor auth.Actor, id string, in service.BranchInput) (models.Branch, error)
	DeleteBranch(ctx context.Context, actor auth.Actor, id string) error

	CreateStaff(ctx context.Context, actor auth.Actor, in service.StaffInput) (models.Staff, error)
	GetStaff(ctx context.Context, actor auth.Actor, id string) (models.Staff, error)
	ListStaff(ctx context.Context, actor auth.Actor, branchID string) ([]models.Staff, error)
	UpdateStaff(ctx context.Context, actor auth.Actor, id string, in service.StaffInput) (models.Staff, error)
	DeleteStaff(ctx context.Context, actor auth.Actor, id string) error
	ManagersForStaff(ctx context.Context, actor auth.Actor, staffID string) ([]service.AccountSummary, error)

	CreateAccount(ctx context.Context, actor auth.Actor, in service.AccountInput) (models.Account, error)
	GetAccount(ctx context.Context, actor auth.Actor, id string) (models.Account, error)
	ListAccounts(ctx context.Context, actor auth.Actor, role models.Role, branchID string) ([]models.Account, error)
	UpdateAccount(ctx context.Context, actor auth.Actor, id string, in service.AccountUpdate) (models.Account, error)
	DeactivateAccount(ctx context.Context, actor auth.Actor, id string) error
}

// Checker reports whether a dependency is ready to serve traffic.
type Checker func(ctx context.Context) error
