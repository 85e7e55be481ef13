package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/apoyet/cl2pd/internal/aggregator"
	"github.com/apoyet/cl2pd/internal/api"
	"github.com/apoyet/cl2pd/internal/config"
	"github.com/apoyet/cl2pd/internal/database"
	"github.com/apoyet/cl2pd/internal/fills"
	server "github.com/apoyet/cl2pd/internal/grpc"
	"github.com/apoyet/cl2pd/internal/logger"
	"github.com/apoyet/cl2pd/internal/storage"
	"github.com/apoyet/cl2pd/internal/timerange"
	"github.com/apoyet/cl2pd/internal/trim"
)

// Command cl2pd serves accelerator logging data as tables over gRPC.
//
// The service supports:
//   - Variable queries over a time range, optionally split into chunks
//   - Fill and beam mode listings by time or by fill number
//   - Values at cycle stamps
//   - Reading MAT records, Massi archives, CSV and Parquet extracts
//     from disk or S3
//   - Trim history of control system settings
//   - Prometheus metrics
//
// Usage:
//
//	cl2pd [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-env string
//	      optional dotenv file loaded before the config (default ".env")
//	-port int
//	      gRPC server port, overrides server.port
func main() {
	flags := parseFlags()

	if err := godotenv.Load(flags.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}

	logger, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := createBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create logging backend: %v", err)
	}
	defer closeBackend()

	// Initialize components
	seriesFetcher, err := api.NewSeriesFetcher(backend, cfg.LoggingService.TimeZone, logger)
	if err != nil {
		logger.Fatalf("Failed to create series fetcher: %v", err)
	}
	normalizer, err := timerange.LoadNormalizer(cfg.LoggingService.TimeZone)
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}

	deps := server.Dependencies{
		Variables:  aggregator.NewAggregator(seriesFetcher, normalizer, logger),
		Fills:      fills.NewFetcher(backend, normalizer.Zone(), logger),
		Normalizer: normalizer,
		Logger:     logger,
	}
	if cfg.SettingsService.URL != "" {
		settings := api.NewHTTPSettings(cfg.SettingsService.URL, cfg.SettingsService.TimeoutDuration())
		deps.Trims = trim.NewHistory(settings, logger)
	}

	files, err := createStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to create storage: %v", err)
	}
	deps.Files = files

	// Create and setup gRPC server
	serverConfig := server.ServerConfig{
		CacheSize:      cfg.Server.CacheSize,
		RateLimit:      cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateBurst,
		MaxSplit:       cfg.Server.MaxSplit,
	}
	svc := server.NewTableService(deps, server.NewRequestValidator(serverConfig.MaxSplit))

	srv, health, err := server.SetupServer(svc, serverConfig, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Fatalf("Failed to setup server: %v", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		logger.Fatalf("Failed to listen: %v", err)
	}

	errChan := make(chan error, 2)

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	go func() {
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":         cfg.Server.Port,
		"metrics_port": cfg.Server.MetricsPort,
		"database":     cfg.Database.Enabled,
		"trims":        deps.Trims != nil,
	}).Info("Starting gRPC server")

	grace := time.Duration(cfg.Server.ShutdownGrace) * time.Second
	select {
	case err := <-errChan:
		logger.Errorf("Service error: %v", err)
		shutdown(srv, health, metricsSrv, grace, logger)
		closeBackend()
		os.Exit(1)
	case <-waitForSignal(ctx, logger):
		shutdown(srv, health, metricsSrv, grace, logger)
	}
}

type Flags struct {
	ConfigPath string
	EnvFile    string
	Port       int
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&f.EnvFile, "env", ".env", "Optional dotenv file loaded before the config")
	flag.IntVar(&f.Port, "port", 0, "The gRPC server port, overrides server.port")

	flag.Parse()

	return f
}

// createBackend picks the logging database replica when enabled and the
// HTTP logging service otherwise.
func createBackend(cfg *config.Config, logger *logrus.Logger) (api.LoggingService, func(), error) {
	if !cfg.Database.Enabled {
		logger.WithField("url", cfg.LoggingService.URL).Info("Using HTTP logging service")
		return api.NewHTTPService(cfg.LoggingService.URL, cfg.LoggingService.TimeoutDuration()), func() {}, nil
	}

	repo, err := database.NewPostgresRepo(cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	repo.SetMaxConnections(cfg.Database.MaxConnections)
	logger.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Using logging database replica")

	var closed bool
	return repo, func() {
		if closed {
			return
		}
		closed = true
		if err := repo.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close database")
		}
	}, nil
}

func createStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Router, error) {
	if !cfg.S3.Enabled {
		return storage.NewRouter(cfg.LocalRoot, nil), nil
	}
	s3, err := storage.NewS3(ctx, storage.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PathStyle:       cfg.S3.PathStyle,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(cfg.LocalRoot, s3), nil
}

func waitForSignal(ctx context.Context, logger *logrus.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case <-ctx.Done():
			logger.Info("Context canceled, initiating shutdown")
		case sig := <-sigChan:
			logger.Infof("Received signal %v, initiating shutdown", sig)
		}
	}()
	return done
}

// shutdown drains in-flight calls for up to grace before forcing the stop.
func shutdown(srv *grpc.Server, health *server.HealthChecker, metricsSrv *http.Server, grace time.Duration, logger *logrus.Logger) {
	logger.Info("Gracefully stopping server...")
	health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(grace):
		logger.Warn("Grace period elapsed, forcing stop")
		srv.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Failed to stop metrics server")
	}
	logger.Info("Server stopped")
}
