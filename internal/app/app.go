package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/config"
	handler "github.com/godilite/staff-perf/internal/grpc"
	"github.com/godilite/staff-perf/internal/httpapi"
	"github.com/godilite/staff-perf/internal/repository"
	"github.com/godilite/staff-perf/internal/repository/dynamo"
	"github.com/godilite/staff-perf/internal/service"
	"github.com/godilite/staff-perf/pkg/cache"
	dbbuilder "github.com/godilite/staff-perf/pkg/database"
	grpcsrv "github.com/godilite/staff-perf/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	closers    []namedCloser
	httpServer *http.Server
	grpcServer *grpcsrv.Server
}

type namedCloser struct {
	name  string
	close func() error
}

// store is the persistence backend chosen by STORE_DRIVER.
type store struct {
	repos   service.Repositories
	checks  map[string]httpapi.Checker
	closers []namedCloser
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDynamoDB:
		ds, err := dynamo.New(ctx, cfg.Dynamo, logger)
		if err != nil {
			return nil, fmt.Errorf("dynamodb init failed: %w", err)
		}
		return &store{
			repos: service.Repositories{
				Organizations: ds,
				Branches:      ds,
				Staff:         ds,
				Accounts:      ds,
				Ratings:       ds,
			},
			checks: map[string]httpapi.Checker{"dynamodb": ds.Ping},
		}, nil

	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
		return &store{
			repos: service.Repositories{
				Organizations: repository.NewOrganizationRepository(db),
				Branches:      repository.NewBranchRepository(db),
				Staff:         repository.NewStaffRepository(db),
				Accounts:      repository.NewAccountRepository(db),
				Ratings:       repository.NewRatingRepository(db),
			},
			checks:  map[string]httpapi.Checker{"database": db.PingContext},
			closers: []namedCloser{{name: "database", close: db.Close}},
		}, nil
	}
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{logger: logger, closers: st.closers}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
	)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	app.closers = append(app.closers, namedCloser{name: "cache", close: cacheClient.Close})
	st.checks["redis"] = cacheClient.Ping
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	seed := SeedAdmin{
		OrganizationName: cfg.SeedOrganizationName,
		Login:            cfg.SeedAdminLogin,
		Password:         cfg.SeedAdminPassword,
	}
	if err := seedAdmin(ctx, st.repos, seed, time.Now().UTC(), logger.Named("seed")); err != nil {
		app.close()
		return nil, err
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(st.repos.Accounts, cacheClient, tokens, logger,
		auth.WithLockout(cfg.PINMaxAttempts, cfg.PINLockout))
	performanceService := service.NewPerformanceService(st.repos, logger)
	ratingService := service.NewRatingService(st.repos, logger)
	directoryService := service.NewDirectoryService(st.repos, logger)

	app.httpServer = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Auth:           authService,
			Performance:    performanceService,
			Ratings:        ratingService,
			Directory:      directoryService,
			Logger:         logger,
			AllowedOrigins: cfg.AllowedOrigins,
			Checks:         st.checks,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	grpcHandlers := handler.NewGRPCHandlers(performanceService, logger, 0)
	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithAuth(handler.Authenticator(authService)),
		grpcsrv.WithUnaryInterceptors(grpcsrv.RecoveryInterceptor(logger.Named("grpc"))),
	)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterInsightsServer(s, grpcHandlers)
	})
	app.grpcServer = grpcServer

	return app, nil
}

// Run starts the application and blocks until a shutdown signal is received
// or the HTTP server fails.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	httpErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Info("application shutting down", zap.String("signal", sig.String()))
	case err, ok := <-httpErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
			a.logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	a.grpcServer.SetServiceHealth(handler.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Error("gRPC shutdown error", zap.Error(err))
	}
	a.close()

	if ctx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return runErr
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Error(c.name+" shutdown error", zap.Error(err))
		}
	}
	a.closers = nil
}
