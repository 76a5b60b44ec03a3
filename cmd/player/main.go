// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tunebox/internal/api/connect"
	"github.com/osa030/tunebox/internal/app/filter"
	"github.com/osa030/tunebox/internal/app/notification"
	"github.com/osa030/tunebox/internal/app/playback"
	"github.com/osa030/tunebox/internal/app/queue"
	"github.com/osa030/tunebox/internal/app/search"
	"github.com/osa030/tunebox/internal/app/transport"
	"github.com/osa030/tunebox/internal/infra/config"
	"github.com/osa030/tunebox/internal/infra/logger"
	"github.com/osa030/tunebox/internal/infra/mpd"
	"github.com/osa030/tunebox/internal/infra/speaker"
	"github.com/osa030/tunebox/internal/infra/storage"
)

var (
	app        = kingpin.New("tunebox-player", "tunebox music player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check command
	checkCmd = app.Command("check", "Validate config and list catalog providers, then exit")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available queue filters and exit")
)

func init() {
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkCmd.FullCommand() {
		if err := check(cfg); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zlog.Error().Msgf("Failed to close storage: %v", err)
		}
	}()

	store := queue.NewStore(storage.NewQueueRepository(db, cfg.Storage.QueueKey))
	zlog.Info().Msgf("Queue restored: tracks=%d", store.Restore(ctx))

	// Audio
	engine, closeEngine, err := newEngine(cfg.Engine)
	if err != nil {
		return err
	}
	defer closeEngine()

	tr := transport.New(engine)
	controller := playback.NewController(tr, store, playback.Config{
		PollInterval:     cfg.Playback.PollInterval(),
		EndTolerance:     cfg.Playback.EndTolerance(),
		PreferredQuality: cfg.Playback.PreferredQuality,
	})
	defer controller.Close()

	notifications := notification.NewManager()
	defer notifications.Close()
	go notifications.Relay(ctx, controller.Events(), controller.Snapshot)

	// Catalog
	chain, err := search.NewProviderChainFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create catalog providers: %w", err)
	}
	searchService := search.NewService(chain)

	filters, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	// RPC
	mux := http.NewServeMux()
	path, handler := apiconnect.NewHandler(
		apiconnect.NewPlayerService(controller, store, searchService, filters, notifications),
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Control.Token)),
	)
	mux.Handle(path, handler)
	if cfg.Control.Token == "" {
		zlog.Warn().Msg("Control token not configured, the API is open to anyone who can reach it")
	}

	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Close subscriptions first to terminate active streams
	notifications.Close()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newEngine creates the configured audio engine and its cleanup function.
func newEngine(cfg config.EngineConfig) (transport.Engine, func(), error) {
	switch cfg.Type {
	case "speaker":
		if !speaker.AudioAvailable {
			return nil, nil, fmt.Errorf("speaker engine is not available in this build (cgo disabled)")
		}
		zlog.Info().Msg("Audio engine: speaker")
		return speaker.NewEngine(0), func() {}, nil
	default:
		client := mpd.NewClient(cfg.MPD.Addr(), cfg.MPD.Password)
		if err := client.Connect(); err != nil {
			// The client reconnects on the next command
			zlog.Warn().Msgf("MPD not reachable yet: %v", err)
		}
		zlog.Info().Msgf("Audio engine: mpd addr=%s", cfg.MPD.Addr())
		return mpd.NewEngine(client), func() {
			if err := client.Close(); err != nil {
				zlog.Error().Msgf("Failed to close MPD connection: %v", err)
			}
		}, nil
	}
}

// check validates the config and prints the configured providers.
func check(cfg *config.Config) error {
	chain, err := search.NewProviderChainFromConfig(context.Background(), cfg)
	if err != nil {
		return err
	}
	fmt.Println("Catalog providers:")
	for _, p := range chain.Providers() {
		fmt.Printf("  %-20s (%s)\n", p.DisplayName, p.Provider.Name())
	}
	filters, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return err
	}
	fmt.Println("Queue filters:")
	for _, f := range filters.Filters() {
		fmt.Printf("  %s\n", f.Name())
	}
	fmt.Printf("Audio engine: %s\n", cfg.Engine.Type)
	fmt.Printf("Storage: %s (key %s)\n", cfg.Storage.Path, cfg.Storage.QueueKey)
	return nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	names := make([]string, 0, len(filter.GetRegistered()))
	for name := range filter.GetRegistered() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
