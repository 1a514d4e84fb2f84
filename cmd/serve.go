package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/config"
	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/jfmyers9/scrobbleloop/internal/session"
	"github.com/jfmyers9/scrobbleloop/internal/spoof"
	"github.com/jfmyers9/scrobbleloop/internal/web"
	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serveLogFile  string
	serveLogLevel string
	servePort     int
)

// ledgerRetention is how long ledger rows survive the cleanup at shutdown.
const ledgerRetention = 7 * 24 * time.Hour

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scrobble loop service",
	Long: `Run the HTTP service that controls the scrobble loop.

Endpoints:
  /auth          redirect to Last.fm to log in
  /callback      Last.fm redirects here after login
  /spoof/start   start re-scrobbling the current track
  /spoof/stop    stop the loop
  /spoof/status  loop state and recorded totals (JSON)

Only the Last.fm account named by USERNAME may start the loop.
The service refuses to start when API_KEY, API_SECRET, SESSION_SECRET
or USERNAME is missing.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = serveLogFile
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = serveLogLevel
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.LogFile, cfg.LogLevel)

	logger.Info().
		Str("version", version).
		Str("user", cfg.Username).
		Dur("interval", cfg.Interval).
		Str("config_dir", config.GetConfigDir()).
		Msg("Starting scrobbleloop")

	book, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		if err := book.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close ledger")
		}
	}()

	logger.Info().Str("path", cfg.LedgerPath()).Msg("Using ledger")

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:    cfg.LastFM.APIKey,
		APISecret: cfg.LastFM.APISecret,
		Logger:    &logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	loop := spoof.NewLoop(
		spoof.Config{Username: cfg.Username, Interval: cfg.Interval},
		spoof.NewRegistry(),
		spoof.NewPoller(client.User(), logger),
		spoof.NewSubmitter(client.Scrobble(), logger),
		book,
		logger,
	)

	handlers := web.NewHandlers(
		spoof.NewAuthenticator(client.Auth(), logger),
		session.NewStore(cfg.SessionSecret, session.DefaultTTL),
		loop,
		book,
		logger,
	)
	server := web.NewServer(web.ServerConfig{Addr: fmt.Sprintf(":%d", cfg.Port)}, handlers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// First signal shuts down gracefully, a second one forces exit.
	go func() {
		<-sigChan
		logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	runErr := server.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loop.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("In-flight ticks did not finish")
	}

	if removed, err := book.Cleanup(shutdownCtx, ledgerRetention); err != nil {
		logger.Warn().Err(err).Msg("Failed to cleanup ledger")
	} else if removed > 0 {
		logger.Info().Int64("removed", removed).Msg("Cleaned up ledger")
	}

	if runErr != nil {
		return runErr
	}

	logger.Info().Msg("scrobbleloop stopped")
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
