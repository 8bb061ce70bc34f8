package auth

import (
	"context"

	"github.com/godilite/staff-perf/internal/repository/models"
)

// Actor is the authenticated caller. It is resolved once per request and
// handed to services explicitly.
type Actor struct {
	AccountID      string      `json:"accountId"`
	OrganizationID string      `json:"organizationId"`
	Role           models.Role `json:"role"`
	Name           string      `json:"name"`
	BranchID       string      `json:"branchId,omitempty"`
	StaffID        string      `json:"staffId,omitempty"`
	SessionID      string      `json:"-"`
}

func ActorFromAccount(a models.Account, sessionID string) Actor {
	return Actor{
		AccountID:      a.ID,
		OrganizationID: a.OrganizationID,
		Role:           a.Role,
		Name:           a.Name,
		BranchID:       a.BranchID,
		StaffID:        a.StaffID,
		SessionID:      sessionID,
	}
}

func (a Actor) Can(perm Permission) bool {
	return HasPermission(a.Role, perm)
}

// OrgWide reports whether the actor sees every branch of its organization.
func (a Actor) OrgWide() bool {
	switch a.Role {
	case models.RoleAdmin, models.RoleHR, models.RoleOperations:
		return true
	}
	return false
}

// CanAccessBranch reports whether the branch is inside the actor's scope.
func (a Actor) CanAccessBranch(organizationID, branchID string) bool {
	if organizationID != a.OrganizationID {
		return false
	}
	if a.OrgWide() {
		return true
	}
	return a.Role.BranchScoped() && a.BranchID != "" && a.BranchID == branchID
}

// CanAccessStaff reports whether the staff member is inside the actor's
// scope. Staff accounts only see themselves.
func (a Actor) CanAccessStaff(s models.Staff) bool {
	if a.Role == models.RoleStaff {
		return a.StaffID != "" && a.StaffID == s.ID && s.OrganizationID == a.OrganizationID
	}
	return a.CanAccessBranch(s.OrganizationID, s.BranchID)
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
