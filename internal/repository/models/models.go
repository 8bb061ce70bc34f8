package models

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Role identifies what an account may see and do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleOperations Role = "operations"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleStaff      Role = "staff"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleHR, RoleOperations, RoleManager, RoleSupervisor, RoleStaff}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// BranchScoped reports whether accounts with this role are tied to one branch.
func (r Role) BranchScoped() bool {
	return r == RoleManager || r == RoleSupervisor
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Branch struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Staff struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	BranchID       string    `json:"branchId"`
	StaffNumber    string    `json:"staffNumber"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email,omitempty"`
	Position       string    `json:"position,omitempty"`
	PhotoURL       string    `json:"photoUrl,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (s Staff) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Account is a login identity. Managers and supervisors carry a BranchID,
// staff logins carry the StaffID they belong to.
type Account struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Role           Role      `json:"role"`
	Login          string    `json:"login"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	BranchID       string    `json:"branchId,omitempty"`
	StaffID        string    `json:"staffId,omitempty"`
	SecretHash     string    `json:"-"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RatingRecord is one submitted evaluation. It is never updated.
type RatingRecord struct {
	ID                string             `json:"id"`
	StaffID           string             `json:"staffId"`
	BranchID          string             `json:"branchId"`
	OrganizationID    string             `json:"organizationId"`
	RatedBy           string             `json:"ratedBy"`
	RaterRole         Role               `json:"raterRole"`
	CategoryScores    map[string]float64 `json:"categoryScores"`
	AveragePercentage float64            `json:"averagePercentage"`
	Comment           string             `json:"comment,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}
