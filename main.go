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

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/sepich/image-cache/pkg/cache"
	"github.com/sepich/image-cache/pkg/config"
	"github.com/sepich/image-cache/pkg/mux"
	"github.com/sepich/image-cache/pkg/s3client"
	"github.com/sepich/image-cache/pkg/service"
	"github.com/sepich/image-cache/pkg/storage"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	programName     = "image-cache"
	shutdownTimeout = 15 * time.Second
)

var logger *zap.Logger

func main() {
	flags := pflag.NewFlagSet(programName, pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Path to YAML config file")
	dev := flags.Bool("dev", false, "Human readable development logging")
	showVersion := flags.BoolP("version", "v", false, "Print version information")
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Print(programName))
		return
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = config.ApplyFlags(flags, cfg)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger = newLogger(cfg.LogLevel, *dev)
	zap.ReplaceGlobals(logger)
	defer logger.Sync()
	logger.Info("Starting "+programName, zap.String("version", version.Version))

	prometheus.MustRegister(versioncollector.NewCollector("image_cache"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("could not open image storage", zap.Error(err))
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("could not create cache", zap.Error(err))
	}
	gateway := cache.NewGateway(store, logger.Named("cache"))
	defer gateway.Close()

	svc := service.New(service.Options{
		Resolver: storage.NewResolver(repo),
		Cache:    gateway,
		Keys:     cache.KeyBuilder{Parameterized: cfg.Cache.Parameterized},
		TTL:      cfg.TTL(),
		Limits: service.Limits{
			MaxWidth:  cfg.Images.MaxWidth,
			MaxHeight: cfg.Images.MaxHeight,
		},
		SingleFlight: cfg.Cache.SingleFlight,
		Logger:       logger.Named("service"),
	})
	router := mux.NewRouter(svc, mux.Options{
		Logger:   logger.Named("http"),
		PageSize: cfg.Images.PageSize,
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal("could not listen", zap.Error(err))
	}

	logger.Info("Listening over HTTP",
		zap.String("addr", listener.Addr().String()),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("parameterized", cfg.Cache.Parameterized),
	)
	if err := serve(ctx, srv, listener, shutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// serve runs srv until ctx is done, then shuts it down and returns only after
// in-flight requests have finished or timeout has passed.
func serve(ctx context.Context, srv *http.Server, l net.Listener, timeout time.Duration, logger *zap.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

func newLogger(level string, dev bool) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if dev {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zap.Must(zcfg.Build())
}

func newRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return storage.NewS3Repository(ctx, s3Options(cfg.Storage.S3))
	default:
		if info, err := os.Stat(cfg.Storage.Root); err != nil || !info.IsDir() {
			logger.Warn("image root is not a directory, every lookup will miss", zap.String("root", cfg.Storage.Root))
		}
		return storage.NewFSRepository(cfg.Storage.Root), nil
	}
}

func s3Options(c config.S3Config) s3client.Options {
	return s3client.Options{
		Bucket:       c.Bucket,
		Prefix:       c.Prefix,
		Region:       c.Region,
		Endpoint:     c.Endpoint,
		UsePathStyle: c.UsePathStyle,
	}
}

func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(cfg.Cache.Redis.URL, cfg.Cache.Redis.Timeout)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		// The cache is fail-open, so an unreachable server is not fatal.
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("redis is not reachable, serving without cache until it is", zap.Error(err))
		}
		return store, nil
	case config.CacheFile:
		return cache.NewFileStore(cfg.Cache.File.Directory)
	case config.CacheS3:
		return cache.NewS3Store(ctx, s3Options(cfg.Cache.S3))
	case config.CacheNone:
		return cache.NopStore{}, nil
	default:
		return cache.NewMemoryStore(cfg.Cache.Memory.Size)
	}
}
