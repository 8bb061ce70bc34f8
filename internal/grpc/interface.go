package grpc

import (
	"context"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

type PerformanceReader interface {
	GetStaffPerformance(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error)
	GetStaffSeries(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffSeries, error)
	GetPeriodChange(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.PeriodChange, error)
	GetBranchOverview(ctx context.Context, actor auth.Actor, branchID string, window scoring.Window, tier scoring.Tier) (service.BranchOverview, error)
}

// TokenVerifier resolves a bearer token to the calling actor.
type TokenVerifier interface {
	Authenticate(ctx context.Context, rawToken string) (auth.Actor, error)
}
