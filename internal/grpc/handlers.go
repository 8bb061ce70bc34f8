package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

const defaultGRPCTimeout = 10 * time.Second

type GRPCHandlers struct {
	performance PerformanceReader
	logger      *zap.Logger
	sfGroup     singleflight.Group
	timeout     time.Duration
}

var _ InsightsServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(performance PerformanceReader, logger *zap.Logger, timeout time.Duration) *GRPCHandlers {
	if performance == nil {
		panic("nil PerformanceReader provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultGRPCTimeout
	}
	return &GRPCHandlers{
		performance: performance,
		logger:      logger.Named("grpc-handler"),
		timeout:     timeout,
	}
}

// Authenticator adapts a TokenVerifier to the server's auth interceptor:
// the verified actor is stored in the returned context.
func Authenticator(verifier TokenVerifier) func(ctx context.Context, token string) (context.Context, error) {
	return func(ctx context.Context, token string) (context.Context, error) {
		actor, err := verifier.Authenticate(ctx, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return auth.WithActor(ctx, actor), nil
	}
}

func actorFrom(ctx context.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return auth.Actor{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	return actor, nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func requireField(req *structpb.Struct, name string) (string, error) {
	v := stringField(req, name)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return v, nil
}

func windowField(req *structpb.Struct) (scoring.Window, error) {
	w, err := scoring.ParseWindow(stringField(req, "window"))
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "unknown window %q", stringField(req, "window"))
	}
	return w, nil
}

// requestKey scopes shared computations to one caller, since visibility
// depends on the actor.
func requestKey(op string, actor auth.Actor, parts ...string) string {
	return op + "|" + actor.AccountID + "|" + strings.Join(parts, "|")
}

// toStruct converts a response DTO into a Struct via its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, scoring.ErrUnknownWindow), errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, models.ErrNotFound):
		s.logger.Info("resource not found", zap.String("op", op))
		return status.Error(codes.NotFound, "resource not found")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed", op)
	}
}

// staffRequest decodes the staffId and window shared by the per-staff calls.
func staffRequest(ctx context.Context, req *structpb.Struct) (auth.Actor, string, scoring.Window, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return auth.Actor{}, "", "", err
	}
	staffID, err := requireField(req, "staffId")
	if err != nil {
		return auth.Actor{}, "", "", err
	}
	window, err := windowField(req)
	if err != nil {
		return auth.Actor{}, "", "", err
	}
	return actor, staffID, window, nil
}

func (s *GRPCHandlers) GetStaffPerformance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, staffID, window, err := staffRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := requestKey("performance", actor, staffID, string(window))
	perf, err := shareResult(ctx, &s.sfGroup, key, s.logger, func(fetchCtx context.Context) (service.StaffPerformance, error) {
		return s.performance.GetStaffPerformance(fetchCtx, actor, staffID, window)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetStaffPerformance", err)
	}
	return toStruct(perf)
}

func (s *GRPCHandlers) GetStaffSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, staffID, window, err := staffRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := requestKey("series", actor, staffID, string(window))
	series, err := shareResult(ctx, &s.sfGroup, key, s.logger, func(fetchCtx context.Context) (service.StaffSeries, error) {
		return s.performance.GetStaffSeries(fetchCtx, actor, staffID, window)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetStaffSeries", err)
	}
	return toStruct(series)
}

func (s *GRPCHandlers) GetPeriodChange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, staffID, window, err := staffRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := requestKey("change", actor, staffID, string(window))
	change, err := shareResult(ctx, &s.sfGroup, key, s.logger, func(fetchCtx context.Context) (service.PeriodChange, error) {
		return s.performance.GetPeriodChange(fetchCtx, actor, staffID, window)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPeriodChange", err)
	}
	return toStruct(change)
}

func (s *GRPCHandlers) GetBranchOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err := requireField(req, "branchId")
	if err != nil {
		return nil, err
	}
	window, err := windowField(req)
	if err != nil {
		return nil, err
	}
	var tier scoring.Tier
	if raw := stringField(req, "tier"); raw != "" {
		if tier, err = scoring.ParseTier(raw); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "unknown tier %q", raw)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := requestKey("branch", actor, branchID, string(window), string(tier))
	overview, err := shareResult(ctx, &s.sfGroup, key, s.logger, func(fetchCtx context.Context) (service.BranchOverview, error) {
		return s.performance.GetBranchOverview(fetchCtx, actor, branchID, window, tier)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetBranchOverview", err)
	}
	return toStruct(overview)
}
