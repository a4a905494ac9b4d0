package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"hub/internal/hub"
	"hub/internal/hub/metrics"
	"hub/internal/hub/tracing"
)

type Config struct {
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	Producers             int           `env:"PRODUCERS" envDefault:"4"`
	LoginsPerProducer     int           `env:"LOGINS_PER_PRODUCER" envDefault:"25"`
	MetricsEnabled        bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPort           int           `env:"METRICS_PORT" envDefault:"9090"`
	MetricsTimeout        time.Duration `env:"METRICS_TIMEOUT" envDefault:"30s"`
	TracingEnabled        bool          `env:"TRACING_ENABLED" envDefault:"false"`
	TracingServiceName    string        `env:"TRACING_SERVICE_NAME" envDefault:"hubdemo"`
	TracingServiceVersion string        `env:"TRACING_SERVICE_VERSION" envDefault:"1.0.0"`
	JaegerEndpoint        string        `env:"JAEGER_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate     float64       `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
	CPUProfile            string        `env:"CPU_PROFILE"`
}

var (
	// UserLoggedIn carries the name of the user that logged in.
	UserLoggedIn = hub.NewEvent[string]("UserLoggedIn")
	// MaybeToken carries a session token, or nil when none was issued.
	MaybeToken = hub.NewEvent[*string]("MaybeToken")
)

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	if cfg.CPUProfile != "" {
		cpuProfile, err := os.Create(cfg.CPUProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer cpuProfile.Close()
		if err := pprof.StartCPUProfile(cpuProfile); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	var dispatcher hub.Dispatcher = hub.Direct()

	if cfg.MetricsEnabled {
		metricsRegistry := metrics.NewRegistry()
		metricsRegistry.SetSystemInfo("hubdemo", time.Now().Format(time.RFC3339))

		metricsServer := metrics.NewServer(
			metrics.ServerConfig{
				Port:    cfg.MetricsPort,
				Timeout: cfg.MetricsTimeout,
			},
			metricsRegistry,
			logger,
		)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("metrics server started",
			zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.MetricsPort)),
			zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.MetricsPort)),
		)

		if dispatcher, err = metrics.NewDispatcher(dispatcher, metricsRegistry); err != nil {
			logger.Fatal("failed to create metrics dispatcher", zap.Error(err))
		}
	}

	if cfg.TracingEnabled {
		tracer, tracingCleanup, err := tracing.NewTracer(tracing.Config{
			ServiceName:    cfg.TracingServiceName,
			ServiceVersion: cfg.TracingServiceVersion,
			JaegerEndpoint: cfg.JaegerEndpoint,
			SampleRate:     cfg.TracingSampleRate,
			BatchTimeout:   time.Second,
			ExportTimeout:  30 * time.Second,
			MaxExportBatch: 512,
			MaxQueueSize:   2048,
		})
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracingCleanup(shutdownCtx); err != nil {
				logger.Error("failed to cleanup tracing", zap.Error(err))
			}
		}()

		logger.Info("tracing initialized",
			zap.String("service", cfg.TracingServiceName),
			zap.String("jaeger_endpoint", cfg.JaegerEndpoint),
			zap.Float64("sample_rate", cfg.TracingSampleRate),
		)

		if dispatcher, err = tracing.NewDispatcher(dispatcher, tracer); err != nil {
			logger.Fatal("failed to create traced dispatcher", zap.Error(err))
		}
	}

	h := hub.New(hub.WithLogger(logger), hub.WithDispatcher(dispatcher))

	now := time.Now()
	rec := newRecorder()
	observers := rec.observe(h)

	if err := produce(ctx, logger, h, cfg.Producers, cfg.LoginsPerProducer); err != nil {
		logger.Error("producers failed", zap.Error(err))
	}

	for _, obs := range observers {
		obs.Remove()
		// removing twice is a no-op
		obs.Remove()
	}

	// no observers left, this post is dropped
	hub.Post(h, UserLoggedIn, "late")

	logger.Info("demo complete",
		zap.Int("users", rec.uniqueUsers()),
		zap.Int64("logins", rec.logins.Load()),
		zap.Int64("tokens", rec.tokens.Load()),
		zap.Int64("missing_tokens", rec.missingTokens.Load()),
		zap.Duration("elapsed", time.Since(now)),
	)
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", level, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build(zap.AddCaller())
}

// recorder observes the demo events and keeps tallies of what it received.
type recorder struct {
	logins        atomic.Int64
	tokens        atomic.Int64
	missingTokens atomic.Int64

	mu    sync.Mutex
	users map[string]int
}

func newRecorder() *recorder {
	return &recorder{users: make(map[string]int)}
}

func (r *recorder) observe(h *hub.Hub) []*hub.Observer {
	return []*hub.Observer{
		hub.Observe(h, UserLoggedIn, func(user string) {
			r.logins.Add(1)
			r.mu.Lock()
			r.users[user]++
			r.mu.Unlock()
		}),
		hub.Observe(h, MaybeToken, func(token *string) {
			if token == nil {
				r.missingTokens.Add(1)
				return
			}
			r.tokens.Add(1)
		}),
	}
}

func (r *recorder) uniqueUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func produce(ctx context.Context, logger *zap.Logger, h *hub.Hub, producers, logins int) error {
	g, gctx := errgroup.WithContext(ctx)
	for p := range producers {
		g.Go(func() error {
			for i := range logins {
				if err := gctx.Err(); err != nil {
					return err
				}

				user := fmt.Sprintf("user-%d-%d", p, i%10)
				hub.PostContext(gctx, h, UserLoggedIn, user)

				// every third login is issued without a token
				var token *string
				if i%3 != 0 {
					t := fmt.Sprintf("tok-%d-%d", p, i)
					token = &t
				}
				hub.PostContext(gctx, h, MaybeToken, token)
			}

			logger.Debug("producer finished", zap.Int("producer", p), zap.Int("logins", logins))
			return nil
		})
	}

	return g.Wait()
}
