// Command griot runs the Griot language-immersion tutor server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/griotlabs/griot/internal/agent"
	"github.com/griotlabs/griot/internal/config"
	"github.com/griotlabs/griot/internal/health"
	"github.com/griotlabs/griot/internal/observe"
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/server"
	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/store/memstore"
	"github.com/griotlabs/griot/internal/store/postgres"
	"github.com/griotlabs/griot/internal/vocab"
	"github.com/griotlabs/griot/internal/wisdom"
)

// shutdownTimeout bounds the graceful drain after a termination signal.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "griot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "griot: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("griot starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "griot"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Storage ───────────────────────────────────────────────────────────────
	var (
		st store.Store
		pg *postgres.Store
	)
	if cfg.Database.PostgresDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to database", "err", err)
			return 1
		}
		st = pg
		slog.Info("connected to postgres")
	} else {
		st = memstore.New()
		slog.Warn("no postgres_dsn configured, using in-memory storage; data is lost on restart")
	}
	defer st.Close()

	// ── Content packs ─────────────────────────────────────────────────────────
	scenarios, err := scenario.LoadLibrary(cfg.Content.ScenariosDir, cfg.Content.Languages)
	if err != nil {
		slog.Error("failed to load scenario packs", "dir", cfg.Content.ScenariosDir, "err", err)
		return 1
	}
	proverbs, err := wisdom.LoadLibrary(cfg.Content.ProverbsDir, cfg.Content.Languages)
	if err != nil {
		slog.Error("failed to load proverb packs", "dir", cfg.Content.ProverbsDir, "err", err)
		return 1
	}
	slog.Info("content loaded",
		"scenarios", scenarios.Len(),
		"proverbs", proverbs.Len(),
		"languages", scenarios.Languages(),
	)

	if cfg.Content.AudioDir != "" {
		if err := os.MkdirAll(cfg.Content.AudioDir, 0o755); err != nil {
			slog.Error("failed to create audio directory", "dir", cfg.Content.AudioDir, "err", err)
			return 1
		}
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	tut, err := agent.New(providers.LLM)
	if err != nil {
		slog.Error("failed to create tutor agent", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	// ── HTTP surface ──────────────────────────────────────────────────────────
	pipeline := server.NewPipeline(server.Pipeline{
		STT:           providers.STT,
		Tutor:         tut,
		TTS:           providers.TTS,
		Detector:      vocab.New(),
		Store:         st,
		Scenarios:     scenarios,
		Proverbs:      proverbs,
		Metrics:       metrics,
		AudioDir:      cfg.Content.AudioDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		DefaultVoice:  optString(cfg.Providers.TTS.Options, "default_voice"),
	})
	auth := server.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, st)
	srv := server.New(auth, pipeline, health.New(healthCheckers(pg, scenarios)...))

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		var err error
		if cfg.Server.TLS != nil {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// healthCheckers assembles the /readyz probes. The content check is static
// and always passes once startup completed; the database check pings the
// pool when postgres is configured.
func healthCheckers(pg *postgres.Store, scenarios *scenario.Library) []health.Checker {
	checkers := []health.Checker{
		{
			Name: "content",
			Check: func(context.Context) error {
				if scenarios.Len() == 0 {
					return errors.New("no scenarios loaded")
				}
				return nil
			},
		},
	}
	if pg != nil {
		checkers = append(checkers, health.Checker{
			Name: "database",
			Check: func(ctx context.Context) error {
				return pg.Pool().Ping(ctx)
			},
		})
	}
	return checkers
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           Griot — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	if cfg.Database.PostgresDSN != "" {
		fmt.Printf("║  Storage         : %-19s║\n", "postgres")
	} else {
		fmt.Printf("║  Storage         : %-19s║\n", "in-memory")
	}
	fmt.Printf("║  Languages       : %-19d║\n", len(cfg.Content.Languages))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-16s: %-19s║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
