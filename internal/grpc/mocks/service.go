package mocks

import (
	"context"
	"errors"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

// MockPerformanceReader is a function-field mock of the PerformanceReader
// interface used by the handler tests.
type MockPerformanceReader struct {
	GetStaffPerformanceFunc func(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error)
	GetStaffSeriesFunc      func(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffSeries, error)
	GetPeriodChangeFunc     func(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.PeriodChange, error)
	GetBranchOverviewFunc   func(ctx context.Context, actor auth.Actor, branchID string, window scoring.Window, tier scoring.Tier) (service.BranchOverview, error)
}

func (m *MockPerformanceReader) GetStaffPerformance(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error) {
	if m.GetStaffPerformanceFunc != nil {
		return m.GetStaffPerformanceFunc(ctx, actor, staffID, window)
	}
	return service.StaffPerformance{}, errors.New("GetStaffPerformanceFunc not implemented")
}

func (m *MockPerformanceReader) GetStaffSeries(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffSeries, error) {
	if m.GetStaffSeriesFunc != nil {
		return m.GetStaffSeriesFunc(ctx, actor, staffID, window)
	}
	return service.StaffSeries{}, errors.New("GetStaffSeriesFunc not implemented")
}

func (m *MockPerformanceReader) GetPeriodChange(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.PeriodChange, error) {
	if m.GetPeriodChangeFunc != nil {
		return m.GetPeriodChangeFunc(ctx, actor, staffID, window)
	}
	return service.PeriodChange{}, errors.New("GetPeriodChangeFunc not implemented")
}

func (m *MockPerformanceReader) GetBranchOverview(ctx context.Context, actor auth.Actor, branchID string, window scoring.Window, tier scoring.Tier) (service.BranchOverview, error) {
	if m.GetBranchOverviewFunc != nil {
		return m.GetBranchOverviewFunc(ctx, actor, branchID, window, tier)
	}
	return service.BranchOverview{}, errors.New("GetBranchOverviewFunc not implemented")
}

// MockTokenVerifier is a function-field mock of TokenVerifier.
type MockTokenVerifier struct {
	AuthenticateFunc func(ctx context.Context, rawToken string) (auth.Actor, error)
}

func (m *MockTokenVerifier) Authenticate(ctx context.Context, rawToken string) (auth.Actor, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, rawToken)
	}
	return auth.Actor{}, errors.New("AuthenticateFunc not implemented")
}
