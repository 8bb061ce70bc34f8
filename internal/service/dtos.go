package service

import (
	"time"

	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
)

type StaffSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StaffNumber string `json:"staffNumber"`
	BranchID    string `json:"branchId"`
	Position    string `json:"position,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

func summarizeStaff(s models.Staff) StaffSummary {
	return StaffSummary{
		ID:          s.ID,
		Name:        s.FullName(),
		StaffNumber: s.StaffNumber,
		BranchID:    s.BranchID,
		Position:    s.Position,
		PhotoURL:    s.PhotoURL,
	}
}

type AccountSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	Phone string      `json:"phone,omitempty"`
}

func summarizeAccount(a models.Account) AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Role: a.Role, Email: a.Email, Phone: a.Phone}
}

// StaffPerformance is one staff member's aggregate over a window.
type StaffPerformance struct {
	Staff            StaffSummary                       `json:"staff"`
	Window           scoring.Window                     `json:"window"`
	Start            time.Time                          `json:"start"`
	End              time.Time                          `json:"end"`
	TotalAverage     int                                `json:"totalAverage"`
	CategoryAverages map[scoring.Category]int           `json:"categoryAverages"`
	Trend            scoring.Trend                      `json:"trend"`
	CategoryTrends   map[scoring.Category]scoring.Trend `json:"categoryTrends"`
	Count            int                                `json:"count"`
	Tier             scoring.Tier                       `json:"tier"`
	Color            scoring.Color                      `json:"color"`
}

// Rated reports whether any rating fell inside the window.
func (p StaffPerformance) Rated() bool {
	return p.Count > 0
}

type StaffSeries struct {
	StaffID string          `json:"staffId"`
	Window  scoring.Window  `json:"window"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Weekly  bool            `json:"weekly"`
	Points  []scoring.Point `json:"points"`
}

type PeriodChange struct {
	StaffID             string    `json:"staffId"`
	CurrentStart        time.Time `json:"currentStart"`
	CurrentEnd          time.Time `json:"currentEnd"`
	PreviousStart       time.Time `json:"previousStart"`
	PreviousEnd         time.Time `json:"previousEnd"`
	CurrentPeriodScore  float64   `json:"currentPeriodScore"`
	PreviousPeriodScore float64   `json:"previousPeriodScore"`
	ChangePercentage    float64   `json:"changePercentage"`
	CurrentCount        int       `json:"currentCount"`
	PreviousCount       int       `json:"previousCount"`
}

// TierCounts counts rated staff per tier.
type TierCounts map[scoring.Tier]int

func newTierCounts() TierCounts {
	return TierCounts{scoring.TierTop: 0, scoring.TierAverage: 0, scoring.TierPriority: 0}
}

type BranchOverview struct {
	Branch      models.Branch      `json:"branch"`
	Window      scoring.Window     `json:"window"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Average     int                `json:"average"`
	StaffCount  int                `json:"staffCount"`
	RatedStaff  int                `json:"ratedStaff"`
	TierCounts  TierCounts         `json:"tierCounts"`
	Staff       []StaffPerformance `json:"staff"`
	Managers    []AccountSummary   `json:"managers"`
	Supervisors []AccountSummary   `json:"supervisors"`
}

type BranchSummary struct {
	BranchID   string       `json:"branchId"`
	Name       string       `json:"name"`
	Average    int          `json:"average"`
	StaffCount int          `json:"staffCount"`
	RatedStaff int          `json:"ratedStaff"`
	Tier       scoring.Tier `json:"tier,omitempty"`
	TierCounts TierCounts   `json:"tierCounts"`
}

type OrganizationOverview struct {
	OrganizationID string          `json:"organizationId"`
	Window         scoring.Window  `json:"window"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	Average        int             `json:"average"`
	StaffCount     int             `json:"staffCount"`
	RatedStaff     int             `json:"ratedStaff"`
	TierCounts     TierCounts      `json:"tierCounts"`
	Branches       []BranchSummary `json:"branches"`
}
