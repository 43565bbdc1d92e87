// Command signalforge is the backend entry point for the signal engine. It
// loads configuration, validates it, wires dependencies, sets up signal
// handling, and starts the application in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/signalforge/internal/app"
	"github.com/alanyoungcy/signalforge/internal/config"
	"github.com/alanyoungcy/signalforge/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (server, sweep, analyze, full)")
	analyzeDomain := flag.String("domain", "", "analyze mode: data domain to run")
	analyzeInput := flag.String("input", "-", "analyze mode: JSON context file, or - for stdin")
	once := flag.Bool("once", false, "sweep mode: run a single sweep and exit")
	sealKey := flag.String("seal-key", "", "encrypt the operator key to this path and exit")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	if *sealKey != "" {
		if err := sealOperatorKey(cfg, *sealKey); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "sealed operator key written to %s\n", *sealKey)
		return
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	// One-shot modes print their result on stdout, so logs go to stderr.
	var logOut io.Writer = os.Stdout
	if cfg.Mode == "analyze" || *once {
		logOut = os.Stderr
	}
	logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("signalforge starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)
	logger.Debug("active configuration", slog.Any("config", config.RedactedConfig(cfg)))

	opts := app.Options{SweepOnce: *once}
	if cfg.Mode == "analyze" {
		in, closeIn, err := openInput(*analyzeInput)
		if err != nil {
			logger.Error("failed to open analyze input", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer closeIn()
		opts.AnalyzeDomain = *analyzeDomain
		opts.AnalyzeInput = in
	}

	// Create the application.
	application := app.New(cfg, logger, opts)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			application.Close()
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("signalforge stopped")
}

// openInput opens path, or stdin for "-".
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// sealOperatorKey encrypts operator.private_key with operator.key_password.
func sealOperatorKey(cfg *config.Config, path string) error {
	if cfg.Operator.PrivateKey == "" || cfg.Operator.KeyPassword == "" {
		return errors.New("seal-key: operator.private_key and operator.key_password must be set")
	}
	sealed, err := crypto.SealKey(cfg.Operator.PrivateKey, cfg.Operator.KeyPassword)
	if err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}
