// Command musicnerd is the main entrypoint for the MusicNerdCarl Discord bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Wires the Spotify client, Anthropic generators, Brave search, and the
//     nerdout session engine.
//   - Registers slash commands and serves the interactions webhook alongside
//     /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/musicnerd/bot"
	"github.com/onnwee/musicnerd/brave"
	"github.com/onnwee/musicnerd/config"
	"github.com/onnwee/musicnerd/db"
	"github.com/onnwee/musicnerd/discordapi"
	"github.com/onnwee/musicnerd/llm"
	"github.com/onnwee/musicnerd/server"
	"github.com/onnwee/musicnerd/session"
	"github.com/onnwee/musicnerd/spotify"
	"github.com/onnwee/musicnerd/story"
	"github.com/onnwee/musicnerd/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDiscordReady(); err != nil {
		slog.Error("discord configuration incomplete", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateSpotifyReady(); err != nil {
		slog.Error("spotify configuration incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("musicnerd", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first, embedded SQL as the fallback for deployments
	// without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Platform clients
	spClient := spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI, cfg.SpotifyScopes, &db.TokenStoreAdapter{DB: database})
	discord := discordapi.New(cfg.DiscordBotToken, cfg.DiscordAppID)
	llmClient := llm.NewClient(cfg.AnthropicAPIKey, cfg.CheapModel, cfg.ResearchModel)

	var search bot.Searcher
	if cfg.BraveAPIKey != "" {
		search = brave.New(cfg.BraveAPIKey)
	} else {
		slog.Warn("BRAVE_API_KEY not set, support links disabled")
	}

	// Nerdout session engine
	generator := story.New(llmClient.Cheap(), llmClient.Research())
	manager := session.NewManager(&spotify.Poller{Client: spClient}, generator, discord, session.Options{
		PollInterval: cfg.SessionPollInterval,
		Lifetime:     cfg.SessionLifetime,
		PacingMin:    cfg.PacingMin,
		PacingMax:    cfg.PacingMax,
		DailyCap:     cfg.DailyCallCap,
	})
	defer manager.TeardownAll()

	// Slash command layer
	carl := bot.New(&db.Store{DB: database}, spClient, search, discord, manager, llmClient.Cheap(), cfg.PublicBaseURL)

	regCtx, regCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := discord.RegisterCommands(regCtx, cfg.DiscordGuildID, bot.Commands()); err != nil {
		slog.Error("slash command registration failed", slog.Any("err", err))
	}
	regCancel()

	// HTTP server (interactions webhook, OAuth, health/status/metrics)
	handlers, err := server.NewHandlers(database, spClient, carl, discord, manager, cfg.DiscordPublicKey)
	if err != nil {
		slog.Error("handler init failed", slog.Any("err", err))
		os.Exit(1)
	}
	go func() {
		if err := server.Start(ctx, cfg.ListenAddr, handlers); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	slog.Info("musicnerd up", slog.String("addr", cfg.ListenAddr))

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
