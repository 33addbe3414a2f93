package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"social-service/config"
	"social-service/handlers"
	"social-service/metrics"
	"social-service/repo"
	"social-service/service"
	"social-service/telemetry"
	"social-service/util"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := util.NewLogger(cfg.Mode, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

// storage holds the repositories of the configured backend.
type storage struct {
	users           repo.UsersRepository
	connections     repo.ConnectionsRepository
	recommendations repo.RecommendationsRepository
	health          func(context.Context) error
	close           func(context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage {
	case "neo4j":
		store, err := repo.NewNeo4jStore(repo.Neo4jOptions{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to neo4j: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &storage{
			users:           store.Users(),
			connections:     store.Connections(),
			recommendations: store.Recommendations(),
			health:          store.Health,
			close:           store.Close,
		}, nil
	default:
		// Corrupt data must stop startup, never be served partially.
		ds, err := repo.LoadDataset(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		users, connections, recommendations := repo.NewMemoryRepositories(ds, logger)
		logger.Info("dataset loaded",
			zap.String("file", cfg.DataFile),
			zap.Int("users", len(ds.Users)),
			zap.Int("connections", len(ds.Connections)),
			zap.Int("recommendations", len(ds.Recommendations)))
		return &storage{
			users:           users,
			connections:     connections,
			recommendations: recommendations,
			close:           func(context.Context) error { return nil },
		}, nil
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.OTelEndpoint != "" {
		shutdown, err := telemetry.InitTracer(ctx, cfg.OTelEndpoint, logger)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer shutdown(context.Background())
	}

	// --- Repo sloj ---
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.close(context.Background()) }()

	// --- Service sloj ---
	svc := service.NewSocialService(store.users, store.connections, store.recommendations, service.Config{
		ConnectionsMaxPageSize:     cfg.ConnectionsMaxPageSize,
		RecommendationsMaxPageSize: cfg.RecommendationsMaxPageSize,
		BatchQueueSize:             cfg.BatchQueueSize,
	}, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	metrics.RegisterEntityGauges(reg, map[string]metrics.CountFunc{
		"users":           store.users.Count,
		"connections":     store.connections.Count,
		"recommendations": store.recommendations.Total,
	})

	var tokens *util.TokenManager
	if cfg.Auth.Enabled {
		tokens = util.NewTokenManager(cfg.Auth.Secret)
	}

	// --- Handler sloj ---
	router := handlers.NewRouter(svc, handlers.RouterOptions{
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Tokens:   tokens,
		Health:   store.health,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	interceptors := []grpc.UnaryServerInterceptor{handlers.MetricsInterceptor(m)}
	if tokens != nil {
		interceptors = append(interceptors, handlers.AuthInterceptor(tokens))
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	handlers.RegisterGraphServer(grpcServer, handlers.NewGraphServer(svc, logger))
	reflection.Register(grpcServer)

	// bind before any goroutine starts
	var lis net.Listener
	if cfg.GRPCAddress != "" {
		if lis, err = net.Listen("tcp", cfg.GRPCAddress); err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCAddress, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.RunBatchWorker(ctx)
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddress), zap.String("mode", cfg.Mode))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if lis != nil {
		g.Go(func() error {
			logger.Info("starting gRPC server", zap.String("addr", cfg.GRPCAddress))
			return grpcServer.Serve(lis)
		})
	}

	// --- graceful shutdown ---
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
