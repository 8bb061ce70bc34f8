package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/grpc/mocks"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
	"github.com/godilite/staff-perf/pkg/grpc/server"
)

var testActor = auth.Actor{AccountID: "acc-mgr", OrganizationID: "org-1", Role: models.RoleManager, BranchID: "br-1"}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func authed() context.Context {
	return auth.WithActor(context.Background(), testActor)
}

func samplePerformance(staffID string, window scoring.Window) service.StaffPerformance {
	return service.StaffPerformance{
		Staff:        service.StaffSummary{ID: staffID, Name: "Ada Obi", StaffNumber: "A001", BranchID: "br-1"},
		Window:       window,
		TotalAverage: 84,
		CategoryAverages: map[scoring.Category]int{
			scoring.CategoryTime: 90,
		},
		Trend: scoring.TrendImproving,
		Count: 3,
		Tier:  scoring.TierTop,
		Color: scoring.ColorGreen,
	}
}

func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		perf := &mocks.MockPerformanceReader{}
		handlers := NewGRPCHandlers(perf, zap.NewNop(), 5*time.Second)

		assert.NotNil(t, handlers)
		assert.Equal(t, perf, handlers.performance)
		assert.Equal(t, 5*time.Second, handlers.timeout)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil performance reader panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, zap.NewNop(), time.Second)
		})
	})

	t.Run("zero timeout uses default", func(t *testing.T) {
		handlers := NewGRPCHandlers(&mocks.MockPerformanceReader{}, nil, 0)
		assert.Equal(t, defaultGRPCTimeout, handlers.timeout)
	})
}

func TestGetStaffPerformance(t *testing.T) {
	perf := &mocks.MockPerformanceReader{
		GetStaffPerformanceFunc: func(_ context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error) {
			assert.Equal(t, testActor, actor)
			return samplePerformance(staffID, window), nil
		},
	}
	handlers := NewGRPCHandlers(perf, zap.NewNop(), time.Second)

	resp, err := handlers.GetStaffPerformance(authed(), request(t, map[string]any{"staffId": "st-1", "window": "monthly"}))
	require.NoError(t, err)

	fields := resp.GetFields()
	assert.Equal(t, 84.0, fields["totalAverage"].GetNumberValue())
	assert.Equal(t, "monthly", fields["window"].GetStringValue())
	assert.Equal(t, "top", fields["tier"].GetStringValue())
	assert.Equal(t, "green", fields["color"].GetStringValue())
	assert.Equal(t, "st-1", fields["staff"].GetStructValue().GetFields()["id"].GetStringValue())
	assert.Equal(t, 90.0, fields["categoryAverages"].GetStructValue().GetFields()["time"].GetNumberValue())
}

func TestRequestValidation(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockPerformanceReader{}, zap.NewNop(), time.Second)

	tests := []struct {
		name string
		ctx  context.Context
		call func(context.Context, *structpb.Struct) (*structpb.Struct, error)
		req  map[string]any
		code codes.Code
	}{
		{"no actor", context.Background(), handlers.GetStaffPerformance, map[string]any{"staffId": "st-1"}, codes.Unauthenticated},
		{"missing staff id", authed(), handlers.GetStaffSeries, map[string]any{}, codes.InvalidArgument},
		{"unknown window", authed(), handlers.GetPeriodChange, map[string]any{"staffId": "st-1", "window": "fortnight"}, codes.InvalidArgument},
		{"missing branch id", authed(), handlers.GetBranchOverview, map[string]any{"window": "weekly"}, codes.InvalidArgument},
		{"unknown tier", authed(), handlers.GetBranchOverview, map[string]any{"branchId": "br-1", "tier": "gold"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call(tt.ctx, request(t, tt.req))
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestHandleErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"forbidden", fmt.Errorf("scope: %w", service.ErrForbidden), codes.PermissionDenied},
		{"not found", fmt.Errorf("load staff: %w", service.ErrNotFound), codes.NotFound},
		{"invalid", service.ErrInvalidInput, codes.InvalidArgument},
		{"storage", fmt.Errorf("%w: list ratings", service.ErrStorageFailure), codes.Internal},
		{"unexpected", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perf := &mocks.MockPerformanceReader{
				GetPeriodChangeFunc: func(context.Context, auth.Actor, string, scoring.Window) (service.PeriodChange, error) {
					return service.PeriodChange{}, tt.err
				},
			}
			handlers := NewGRPCHandlers(perf, zap.NewNop(), time.Second)
			_, err := handlers.GetPeriodChange(authed(), request(t, map[string]any{"staffId": "st-1"}))
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestHandleErrorTimeout(t *testing.T) {
	perf := &mocks.MockPerformanceReader{
		GetStaffSeriesFunc: func(ctx context.Context, _ auth.Actor, _ string, _ scoring.Window) (service.StaffSeries, error) {
			time.Sleep(200 * time.Millisecond)
			return service.StaffSeries{}, nil
		},
	}
	handlers := NewGRPCHandlers(perf, zap.NewNop(), 20*time.Millisecond)

	_, err := handlers.GetStaffSeries(authed(), request(t, map[string]any{"staffId": "st-1"}))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestGetBranchOverviewPassesTier(t *testing.T) {
	var gotTier scoring.Tier
	perf := &mocks.MockPerformanceReader{
		GetBranchOverviewFunc: func(_ context.Context, _ auth.Actor, branchID string, window scoring.Window, tier scoring.Tier) (service.BranchOverview, error) {
			gotTier = tier
			return service.BranchOverview{
				Branch:     models.Branch{ID: branchID, Name: "Lekki"},
				Window:     window,
				Average:    72,
				TierCounts: service.TierCounts{scoring.TierAverage: 2},
			}, nil
		},
	}
	handlers := NewGRPCHandlers(perf, zap.NewNop(), time.Second)

	resp, err := handlers.GetBranchOverview(authed(), request(t, map[string]any{"branchId": "br-1", "window": "trimester", "tier": "Average"}))
	require.NoError(t, err)
	assert.Equal(t, scoring.TierAverage, gotTier)
	assert.Equal(t, 72.0, resp.GetFields()["average"].GetNumberValue())
	assert.Equal(t, "trimester", resp.GetFields()["window"].GetStringValue())
}

func TestConcurrentRequestsShareOneComputation(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	perf := &mocks.MockPerformanceReader{
		GetStaffPerformanceFunc: func(_ context.Context, _ auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error) {
			calls.Add(1)
			<-release
			return samplePerformance(staffID, window), nil
		},
	}
	handlers := NewGRPCHandlers(perf, zap.NewNop(), 5*time.Second)

	const callers = 8
	req := request(t, map[string]any{"staffId": "st-1"})
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := handlers.GetStaffPerformance(authed(), req)
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSharedFetchSurvivesCallerCancel(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockPerformanceReader{}, zap.NewNop(), time.Second)
	release := make(chan struct{})
	fn := func(ctx context.Context) (int, error) {
		<-release
		return 7, ctx.Err()
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := shareResult(first, &handlers.sfGroup, "k", handlers.logger, fn)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	secondResult := make(chan int, 1)
	go func() {
		v, err := shareResult(context.Background(), &handlers.sfGroup, "k", handlers.logger, fn)
		assert.NoError(t, err)
		secondResult <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)
	assert.Equal(t, 7, <-secondResult)
}

func TestInsightsServiceOverTheWire(t *testing.T) {
	perf := &mocks.MockPerformanceReader{
		GetStaffPerformanceFunc: func(_ context.Context, actor auth.Actor, staffID string, window scoring.Window) (service.StaffPerformance, error) {
			if actor.AccountID != testActor.AccountID {
				return service.StaffPerformance{}, service.ErrForbidden
			}
			return samplePerformance(staffID, window), nil
		},
	}
	verifier := &mocks.MockTokenVerifier{
		AuthenticateFunc: func(_ context.Context, token string) (auth.Actor, error) {
			if token != "valid-token" {
				return auth.Actor{}, auth.ErrUnauthenticated
			}
			return testActor, nil
		},
	}

	srv, err := server.New(
		server.WithPort(0),
		server.WithLogger(zaptest.NewLogger(t)),
		server.WithLogging(true),
		server.WithAuth(Authenticator(verifier)),
	)
	require.NoError(t, err)
	srv.RegisterServiceWithHealth(ServiceName, func(s *grpc.Server) {
		RegisterInsightsServer(s, NewGRPCHandlers(perf, zap.NewNop(), time.Second))
	})
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient(srv.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := NewInsightsClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req := request(t, map[string]any{"staffId": "st-1", "window": "weekly"})

	_, err = client.GetStaffPerformance(ctx, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	badCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer stolen")
	_, err = client.GetStaffPerformance(badCtx, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	goodCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer valid-token")
	resp, err := client.GetStaffPerformance(goodCtx, req)
	require.NoError(t, err)
	assert.Equal(t, 84.0, resp.GetFields()["totalAverage"].GetNumberValue())
	assert.Equal(t, "improving", resp.GetFields()["trend"].GetStringValue())
}

func TestInsightsDescriptorMatchesServiceDesc(t *testing.T) {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	require.NoError(t, err)
	svc, ok := desc.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	assert.Equal(t, InsightsServiceDesc.Metadata, svc.ParentFile().Path())

	require.Equal(t, len(InsightsServiceDesc.Methods), svc.Methods().Len())
	for _, m := range InsightsServiceDesc.Methods {
		md := svc.Methods().ByName(protoreflect.Name(m.MethodName))
		require.NotNil(t, md, m.MethodName)
		assert.Equal(t, protoreflect.FullName("google.protobuf.Struct"), md.Input().FullName())
		assert.Equal(t, protoreflect.FullName("google.protobuf.Struct"), md.Output().FullName())
	}
}

func TestReflectionDescribesInsights(t *testing.T) {
	srv, err := server.New(
		server.WithPort(0),
		server.WithReflection(true),
		server.WithAuth(Authenticator(&mocks.MockTokenVerifier{})),
	)
	require.NoError(t, err)
	srv.RegisterServiceWithHealth(ServiceName, func(s *grpc.Server) {
		RegisterInsightsServer(s, NewGRPCHandlers(&mocks.MockPerformanceReader{}, zap.NewNop(), time.Second))
	})
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient(srv.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)
	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: ServiceName},
	}))
	resp, err := stream.Recv()
	require.NoError(t, err)

	files := resp.GetFileDescriptorResponse().GetFileDescriptorProto()
	require.NotEmpty(t, files)
	var fd descriptorpb.FileDescriptorProto
	require.NoError(t, proto.Unmarshal(files[0], &fd))
	assert.Equal(t, "staffperf/v1/insights.proto", fd.GetName())
	require.Len(t, fd.GetService(), 1)
	assert.Len(t, fd.GetService()[0].GetMethod(), 4)
}
