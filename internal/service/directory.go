package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
)

type OrganizationInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

type BranchInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"max=200"`
}

// StaffInput creates or replaces a staff record. A non-empty PIN creates or
// updates the staff member's own login, keyed by staff number.
type StaffInput struct {
	BranchID    string `json:"branchId" validate:"required"`
	StaffNumber string `json:"staffNumber" validate:"required,alphanum,max=32"`
	FirstName   string `json:"firstName" validate:"required,max=80"`
	LastName    string `json:"lastName" validate:"max=80"`
	Email       string `json:"email" validate:"omitempty,email"`
	Position    string `json:"position" validate:"max=80"`
	PhotoURL    string `json:"photoUrl" validate:"omitempty,url"`
	Active      *bool  `json:"active"`
	PIN         string `json:"pin"`
}

type AccountInput struct {
	Role     models.Role `json:"role" validate:"required,oneof=admin hr operations manager supervisor"`
	Login    string      `json:"login" validate:"required,max=120"`
	Name     string      `json:"name" validate:"required,max=120"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Phone    string      `json:"phone" validate:"max=32"`
	BranchID string      `json:"branchId"`
	Secret   string      `json:"secret" validate:"required"`
}

type AccountUpdate struct {
	Login    string `json:"login" validate:"required,max=120"`
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=32"`
	BranchID string `json:"branchId"`
	Active   *bool  `json:"active"`
}

// DirectoryService manages organizations, branches, staff and accounts.
type DirectoryService struct {
	orgs     OrganizationRepository
	branches BranchRepository
	staff    StaffRepository
	accounts AccountRepository
	ratings  RatingRepository
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type DirectoryOption func(*DirectoryService)

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(s *DirectoryService) { s.now = now }
}

func WithDirectoryIDs(newID func() string) DirectoryOption {
	return func(s *DirectoryService) { s.newID = newID }
}

func NewDirectoryService(repos Repositories, logger *zap.Logger, opts ...DirectoryOption) *DirectoryService {
	if repos.Organizations == nil || repos.Branches == nil || repos.Staff == nil ||
		repos.Accounts == nil || repos.Ratings == nil {
		panic("directory service requires every repository")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &DirectoryService{
		orgs:     repos.Organizations,
		branches: repos.Branches,
		staff:    repos.Staff,
		accounts: repos.Accounts,
		ratings:  repos.Ratings,
		logger:   logger.Named("directory"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DirectoryService) timestamp() time.Time {
	return s.now().UTC()
}

// hashSecret turns a weak secret into a field issue.
func hashSecret(field string, role models.Role, secret string) (string, error) {
	hash, err := auth.HashSecret(role, secret)
	if errors.Is(err, auth.ErrWeakSecret) {
		return "", invalid(field, strings.TrimPrefix(err.Error(), auth.ErrWeakSecret.Error()+": "))
	}
	return hash, err
}

// Organizations

func (s *DirectoryService) CreateOrganization(ctx context.Context, actor auth.Actor, in OrganizationInput) (models.Organization, error) {
	if actor.Role != models.RoleAdmin {
		return models.Organization{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Organization{}, err
	}
	org := models.Organization{ID: s.newID(), Name: strings.TrimSpace(in.Name), CreatedAt: s.timestamp()}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.orgs.CreateOrganization(dbCtx, org); err != nil {
		return models.Organization{}, mapRepoErr("create organization", err)
	}
	s.logger.Info("organization created", zap.String("organization_id", org.ID))
	return org, nil
}

func (s *DirectoryService) GetOrganization(ctx context.Context, actor auth.Actor, id string) (models.Organization, error) {
	if id != actor.OrganizationID && actor.Role != models.RoleAdmin {
		return models.Organization{}, fmt.Errorf("get organization: %w", ErrNotFound)
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	org, err := s.orgs.GetOrganization(dbCtx, id)
	if err != nil {
		return models.Organization{}, mapRepoErr("get organization", err)
	}
	return org, nil
}

// ListOrganizations returns every organization to admins and the caller's
// own organization to everyone else.
func (s *DirectoryService) ListOrganizations(ctx context.Context, actor auth.Actor) ([]models.Organization, error) {
	if actor.Role != models.RoleAdmin {
		org, err := s.GetOrganization(ctx, actor, actor.OrganizationID)
		if err != nil {
			return nil, err
		}
		return []models.Organization{org}, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	orgs, err := s.orgs.ListOrganizations(dbCtx)
	if err != nil {
		return nil, mapRepoErr("list organizations", err)
	}
	return orgs, nil
}

// Branches

// loadBranchInScope fetches a branch and checks the actor may see it.
func (s *DirectoryService) loadBranchInScope(ctx context.Context, actor auth.Actor, id string) (models.Branch, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	b, err := s.branches.GetBranch(dbCtx, id)
	if err != nil {
		return models.Branch{}, mapRepoErr("get branch", err)
	}
	if b.OrganizationID != actor.OrganizationID {
		return models.Branch{}, fmt.Errorf("get branch: %w", ErrNotFound)
	}
	if !actor.CanAccessBranch(b.OrganizationID, b.ID) {
		return models.Branch{}, ErrForbidden
	}
	return b, nil
}

func (s *DirectoryService) CreateBranch(ctx context.Context, actor auth.Actor, in BranchInput) (models.Branch, error) {
	if !actor.Can(auth.PermBranchesWrite) {
		return models.Branch{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Branch{}, err
	}
	now := s.timestamp()
	b := models.Branch{
		ID:             s.newID(),
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Location:       strings.TrimSpace(in.Location),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.branches.CreateBranch(dbCtx, b); err != nil {
		return models.Branch{}, mapRepoErr("create branch", err)
	}
	s.logger.Info("branch created", zap.String("branch_id", b.ID), zap.String("name", b.Name))
	return b, nil
}

func (s *DirectoryService) GetBranch(ctx context.Context, actor auth.Actor, id string) (models.Branch, error) {
	if !actor.Can(auth.PermStaffRead) {
		return models.Branch{}, ErrForbidden
	}
	return s.loadBranchInScope(ctx, actor, id)
}

// ListBranches lists the branches the actor can see.
func (s *DirectoryService) ListBranches(ctx context.Context, actor auth.Actor) ([]models.Branch, error) {
	if !actor.Can(auth.PermStaffRead) || actor.Role == models.RoleStaff {
		return nil, ErrForbidden
	}
	if !actor.OrgWide() {
		b, err := s.loadBranchInScope(ctx, actor, actor.BranchID)
		if err != nil {
			return nil, err
		}
		return []models.Branch{b}, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	branches, err := s.branches.ListBranches(dbCtx, actor.OrganizationID)
	if err != nil {
		return nil, mapRepoErr("list branches", err)
	}
	return branches, nil
}

func (s *DirectoryService) UpdateBranch(ctx context.Context, actor auth.Actor, id string, in BranchInput) (models.Branch, error) {
	if !actor.Can(auth.PermBranchesWrite) {
		return models.Branch{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Branch{}, err
	}
	b, err := s.loadBranchInScope(ctx, actor, id)
	if err != nil {
		return models.Branch{}, err
	}
	b.Name = strings.TrimSpace(in.Name)
	b.Location = strings.TrimSpace(in.Location)
	b.UpdatedAt = s.timestamp()

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.branches.UpdateBranch(dbCtx, b); err != nil {
		return models.Branch{}, mapRepoErr("update branch", err)
	}
	return b, nil
}

// DeleteBranch removes an empty branch. Branches that still have staff or
// branch accounts are refused with ErrConflict.
func (s *DirectoryService) DeleteBranch(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Can(auth.PermBranchesWrite) {
		return ErrForbidden
	}
	b, err := s.loadBranchInScope(ctx, actor, id)
	if err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	staff, err := s.staff.ListStaffByBranch(dbCtx, b.ID)
	if err != nil {
		return mapRepoErr("list staff", err)
	}
	if len(staff) > 0 {
		return fmt.Errorf("delete branch: %d staff remain: %w", len(staff), ErrConflict)
	}
	accounts, err := s.accounts.ListAccountsByBranch(dbCtx, b.ID, "")
	if err != nil {
		return mapRepoErr("list branch accounts", err)
	}
	if len(accounts) > 0 {
		return fmt.Errorf("delete branch: %d accounts remain: %w", len(accounts), ErrConflict)
	}
	if err := s.branches.DeleteBranch(dbCtx, b.ID); err != nil {
		return mapRepoErr("delete branch", err)
	}
	s.logger.Info("branch deleted", zap.String("branch_id", b.ID))
	return nil
}

// Staff

func (s *DirectoryService) GetStaff(ctx context.Context, actor auth.Actor, id string) (models.Staff, error) {
	if !actor.Can(auth.PermStaffRead) {
		return models.Staff{}, ErrForbidden
	}
	return loadStaffInScope(ctx, s.staff, actor, id)
}

// ListStaff lists one branch when branchID is set and the whole
// organization otherwise. Branch-scoped actors default to their branch and
// staff logins see only themselves.
func (s *DirectoryService) ListStaff(ctx context.Context, actor auth.Actor, branchID string) ([]models.Staff, error) {
	if !actor.Can(auth.PermStaffRead) {
		return nil, ErrForbidden
	}
	if actor.Role == models.RoleStaff {
		st, err := loadStaffInScope(ctx, s.staff, actor, actor.StaffID)
		if err != nil {
			return nil, err
		}
		return []models.Staff{st}, nil
	}
	if branchID == "" && !actor.OrgWide() {
		branchID = actor.BranchID
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if branchID == "" {
		staff, err := s.staff.ListStaffByOrganization(dbCtx, actor.OrganizationID)
		if err != nil {
			return nil, mapRepoErr("list staff", err)
		}
		return staff, nil
	}
	b, err := s.loadBranchInScope(ctx, actor, branchID)
	if err != nil {
		return nil, err
	}
	staff, err := s.staff.ListStaffByBranch(dbCtx, b.ID)
	if err != nil {
		return nil, mapRepoErr("list staff", err)
	}
	return staff, nil
}

// CreateStaff adds a staff member and, when a PIN is given, the matching
// staff login. The staff record is removed again if the login cannot be
// stored.
func (s *DirectoryService) CreateStaff(ctx context.Context, actor auth.Actor, in StaffInput) (models.Staff, error) {
	if !actor.Can(auth.PermStaffWrite) {
		return models.Staff{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Staff{}, err
	}
	var pinHash string
	if in.PIN != "" {
		h, err := hashSecret("pin", models.RoleStaff, in.PIN)
		if err != nil {
			return models.Staff{}, err
		}
		pinHash = h
	}
	b, err := s.loadBranchInScope(ctx, actor, in.BranchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Staff{}, invalid("branchId", "does not exist")
		}
		return models.Staff{}, err
	}

	now := s.timestamp()
	st := models.Staff{
		ID:             s.newID(),
		OrganizationID: b.OrganizationID,
		BranchID:       b.ID,
		CreatedAt:      now,
	}
	applyStaffInput(&st, in, now)
	if in.Active == nil {
		st.Active = true
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.staff.CreateStaff(dbCtx, st); err != nil {
		return models.Staff{}, mapRepoErr("create staff", err)
	}

	if pinHash != "" {
		if err := s.accounts.CreateAccount(dbCtx, s.staffAccount(st, pinHash, now)); err != nil {
			if derr := s.staff.DeleteStaff(dbCtx, st.ID); derr != nil {
				s.logger.Error("failed to roll back staff after login error",
					zap.String("staff_id", st.ID), zap.Error(derr))
			}
			return models.Staff{}, mapRepoErr("create staff login", err)
		}
	}

	s.logger.Info("staff created",
		zap.String("staff_id", st.ID),
		zap.String("branch_id", st.BranchID),
		zap.Bool("login", pinHash != ""))
	return st, nil
}

func applyStaffInput(st *models.Staff, in StaffInput, now time.Time) {
	st.StaffNumber = strings.TrimSpace(in.StaffNumber)
	st.FirstName = strings.TrimSpace(in.FirstName)
	st.LastName = strings.TrimSpace(in.LastName)
	st.Email = strings.TrimSpace(in.Email)
	st.Position = strings.TrimSpace(in.Position)
	st.PhotoURL = strings.TrimSpace(in.PhotoURL)
	if in.Active != nil {
		st.Active = *in.Active
	}
	st.UpdatedAt = now
}

func (s *DirectoryService) staffAccount(st models.Staff, pinHash string, now time.Time) models.Account {
	return models.Account{
		ID:             s.newID(),
		OrganizationID: st.OrganizationID,
		Role:           models.RoleStaff,
		Login:          st.StaffNumber,
		Name:           st.FullName(),
		Email:          st.Email,
		BranchID:       st.BranchID,
		StaffID:        st.ID,
		SecretHash:     pinHash,
		Active:         st.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// findStaffAccount returns the login linked to a staff member, if any.
func (s *DirectoryService) findStaffAccount(ctx context.Context, st models.Staff) (models.Account, bool, error) {
	accounts, err := s.accounts.ListAccounts(ctx, st.OrganizationID, models.RoleStaff)
	if err != nil {
		return models.Account{}, false, mapRepoErr("list staff logins", err)
	}
	for _, a := range accounts {
		if a.StaffID == st.ID {
			return a, true, nil
		}
	}
	return models.Account{}, false, nil
}

// UpdateStaff replaces a staff member's editable fields. The linked login
// follows the staff number, branch, name and active flag.
func (s *DirectoryService) UpdateStaff(ctx context.Context, actor auth.Actor, id string, in StaffInput) (models.Staff, error) {
	if !actor.Can(auth.PermStaffWrite) {
		return models.Staff{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Staff{}, err
	}
	var pinHash string
	if in.PIN != "" {
		h, err := hashSecret("pin", models.RoleStaff, in.PIN)
		if err != nil {
			return models.Staff{}, err
		}
		pinHash = h
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, id)
	if err != nil {
		return models.Staff{}, err
	}
	prev := st
	if in.BranchID != st.BranchID {
		b, err := s.loadBranchInScope(ctx, actor, in.BranchID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.Staff{}, invalid("branchId", "does not exist")
			}
			return models.Staff{}, err
		}
		st.BranchID = b.ID
	}
	now := s.timestamp()
	applyStaffInput(&st, in, now)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.staff.UpdateStaff(dbCtx, st); err != nil {
		return models.Staff{}, mapRepoErr("update staff", err)
	}

	if err := s.syncStaffLogin(dbCtx, st, pinHash, now); err != nil {
		if rerr := s.staff.UpdateStaff(dbCtx, prev); rerr != nil {
			s.logger.Error("failed to roll back staff after login error",
				zap.String("staff_id", st.ID), zap.Error(rerr))
		}
		return models.Staff{}, err
	}
	return st, nil
}

// syncStaffLogin copies the staff record onto its login, creating one when a
// PIN is supplied and none exists yet.
func (s *DirectoryService) syncStaffLogin(ctx context.Context, st models.Staff, pinHash string, now time.Time) error {
	acct, found, err := s.findStaffAccount(ctx, st)
	if err != nil {
		return err
	}
	switch {
	case found:
		acct.Login = st.StaffNumber
		acct.Name = st.FullName()
		acct.Email = st.Email
		acct.BranchID = st.BranchID
		acct.Active = st.Active
		acct.UpdatedAt = now
		if pinHash != "" {
			acct.SecretHash = pinHash
		}
		if err := s.accounts.UpdateAccount(ctx, acct); err != nil {
			return mapRepoErr("update staff login", err)
		}
	case pinHash != "":
		if err := s.accounts.CreateAccount(ctx, s.staffAccount(st, pinHash, now)); err != nil {
			return mapRepoErr("create staff login", err)
		}
	}
	return nil
}

// DeleteStaff removes a staff member with their ratings and login.
func (s *DirectoryService) DeleteStaff(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Can(auth.PermStaffWrite) {
		return ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, id)
	if err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	acct, found, err := s.findStaffAccount(dbCtx, st)
	if err != nil {
		return err
	}
	if found {
		if err := s.accounts.DeleteAccount(dbCtx, acct.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return mapRepoErr("delete staff login", err)
		}
	}
	if err := s.ratings.DeleteRatingsForStaff(dbCtx, st.ID); err != nil {
		return mapRepoErr("delete ratings", err)
	}
	if err := s.staff.DeleteStaff(dbCtx, st.ID); err != nil {
		return mapRepoErr("delete staff", err)
	}
	s.logger.Info("staff deleted", zap.String("staff_id", st.ID))
	return nil
}

// ManagersForStaff returns the active managers and supervisors of the
// staff member's branch.
func (s *DirectoryService) ManagersForStaff(ctx context.Context, actor auth.Actor, staffID string) ([]AccountSummary, error) {
	if !actor.Can(auth.PermStaffRead) {
		return nil, ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	accounts, err := s.accounts.ListAccountsByBranch(dbCtx, st.BranchID, "")
	if err != nil {
		return nil, mapRepoErr("list branch accounts", err)
	}
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		if a.Active && a.Role.BranchScoped() {
			out = append(out, summarizeAccount(a))
		}
	}
	return out, nil
}

// Accounts

// canManage reports whether the actor may administer the target account.
// HR cannot touch admins.
func canManage(actor auth.Actor, target models.Account) bool {
	if !actor.Can(auth.PermAccountsWrite) || target.OrganizationID != actor.OrganizationID {
		return false
	}
	return !(actor.Role == models.RoleHR && target.Role == models.RoleAdmin)
}

// resolveAccountBranch checks the branch rules for a role: managers and
// supervisors need a branch of the organization, other roles carry none.
func (s *DirectoryService) resolveAccountBranch(ctx context.Context, actor auth.Actor, role models.Role, branchID string) (string, error) {
	branchID = strings.TrimSpace(branchID)
	if !role.BranchScoped() {
		return "", nil
	}
	if branchID == "" {
		return "", invalid("branchId", "is required for "+string(role)+" accounts")
	}
	b, err := s.loadBranchInScope(ctx, actor, branchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", invalid("branchId", "does not exist")
		}
		return "", err
	}
	return b.ID, nil
}

func (s *DirectoryService) CreateAccount(ctx context.Context, actor auth.Actor, in AccountInput) (models.Account, error) {
	if !actor.Can(auth.PermAccountsWrite) {
		return models.Account{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Account{}, err
	}
	if actor.Role == models.RoleHR && in.Role == models.RoleAdmin {
		return models.Account{}, ErrForbidden
	}
	hash, err := hashSecret("secret", in.Role, in.Secret)
	if err != nil {
		return models.Account{}, err
	}
	branchID, err := s.resolveAccountBranch(ctx, actor, in.Role, in.BranchID)
	if err != nil {
		return models.Account{}, err
	}

	now := s.timestamp()
	a := models.Account{
		ID:             s.newID(),
		OrganizationID: actor.OrganizationID,
		Role:           in.Role,
		Login:          strings.TrimSpace(in.Login),
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		BranchID:       branchID,
		SecretHash:     hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.accounts.CreateAccount(dbCtx, a); err != nil {
		return models.Account{}, mapRepoErr("create account", err)
	}
	s.logger.Info("account created",
		zap.String("account_id", a.ID),
		zap.String("role", string(a.Role)),
		zap.String("created_by", actor.AccountID))
	return a, nil
}

// GetAccount returns an account to its owner or to account administrators.
func (s *DirectoryService) GetAccount(ctx context.Context, actor auth.Actor, id string) (models.Account, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	a, err := s.accounts.GetAccount(dbCtx, id)
	if err != nil {
		return models.Account{}, mapRepoErr("get account", err)
	}
	if a.OrganizationID != actor.OrganizationID {
		return models.Account{}, fmt.Errorf("get account: %w", ErrNotFound)
	}
	if a.ID != actor.AccountID && !canManage(actor, a) {
		return models.Account{}, ErrForbidden
	}
	return a, nil
}

// ListAccounts filters by role and branch; empty values match everything.
func (s *DirectoryService) ListAccounts(ctx context.Context, actor auth.Actor, role models.Role, branchID string) ([]models.Account, error) {
	if !actor.Can(auth.PermAccountsWrite) {
		return nil, ErrForbidden
	}
	if role != "" && !role.Valid() {
		return nil, invalid("role", "must be one of admin hr operations manager supervisor staff")
	}

	var (
		accounts []models.Account
		err      error
	)
	if branchID != "" {
		b, berr := s.loadBranchInScope(ctx, actor, branchID)
		if berr != nil {
			return nil, berr
		}
		dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		accounts, err = s.accounts.ListAccountsByBranch(dbCtx, b.ID, role)
	} else {
		dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		accounts, err = s.accounts.ListAccounts(dbCtx, actor.OrganizationID, role)
	}
	if err != nil {
		return nil, mapRepoErr("list accounts", err)
	}
	return accounts, nil
}

func (s *DirectoryService) UpdateAccount(ctx context.Context, actor auth.Actor, id string, in AccountUpdate) (models.Account, error) {
	if !actor.Can(auth.PermAccountsWrite) {
		return models.Account{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.Account{}, err
	}
	a, err := s.GetAccount(ctx, actor, id)
	if err != nil {
		return models.Account{}, err
	}
	if !canManage(actor, a) {
		return models.Account{}, ErrForbidden
	}
	if a.Role == models.RoleStaff {
		// staff logins follow their staff record
		return models.Account{}, invalid("role", "staff logins are managed through the staff record")
	}
	branchID, err := s.resolveAccountBranch(ctx, actor, a.Role, in.BranchID)
	if err != nil {
		return models.Account{}, err
	}
	if in.Active != nil && !*in.Active && a.ID == actor.AccountID {
		return models.Account{}, invalid("active", "cannot deactivate your own account")
	}

	a.Login = strings.TrimSpace(in.Login)
	a.Name = strings.TrimSpace(in.Name)
	a.Email = strings.TrimSpace(in.Email)
	a.Phone = strings.TrimSpace(in.Phone)
	a.BranchID = branchID
	if in.Active != nil {
		a.Active = *in.Active
	}
	a.UpdatedAt = s.timestamp()

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.accounts.UpdateAccount(dbCtx, a); err != nil {
		return models.Account{}, mapRepoErr("update account", err)
	}
	return a, nil
}

// DeactivateAccount disables an account without deleting it.
func (s *DirectoryService) DeactivateAccount(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Can(auth.PermAccountsWrite) {
		return ErrForbidden
	}
	if id == actor.AccountID {
		return invalid("id", "cannot deactivate your own account")
	}
	a, err := s.GetAccount(ctx, actor, id)
	if err != nil {
		return err
	}
	if !canManage(actor, a) {
		return ErrForbidden
	}
	if !a.Active {
		return nil
	}
	a.Active = false
	a.UpdatedAt = s.timestamp()

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.accounts.UpdateAccount(dbCtx, a); err != nil {
		return mapRepoErr("deactivate account", err)
	}
	s.logger.Info("account deactivated",
		zap.String("account_id", a.ID),
		zap.String("by", actor.AccountID))
	return nil
}
