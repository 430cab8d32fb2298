package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"braillekbd/config"
	"braillekbd/keyboard"
	"braillekbd/monitoring"
	"braillekbd/notify"
	"braillekbd/serial"
	"braillekbd/translit"

	// Import tables for side-effect registration
	_ "braillekbd/translit/english"
	_ "braillekbd/translit/unicode"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (required)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	listTranslit := flag.Bool("list-translit", false, "List registered transliteration tables and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "braillekbd - serial Braille keyboard driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -config config.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.json -validate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list-ports\n", os.Args[0])
	}

	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("braillekbd version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Handle list-ports flag
	if *listPorts {
		ports, err := serial.ListDetailedPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Available serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		}
		for _, port := range ports {
			if port.IsUSB {
				fmt.Printf("  %-20s USB %s:%s %s\n", port.Name, port.VID, port.PID, port.Product)
			} else {
				fmt.Printf("  %s\n", port.Name)
			}
		}
		os.Exit(0)
	}

	// Handle list-translit flag
	if *listTranslit {
		fmt.Println("Registered transliteration tables:")
		if translit.Count() == 0 {
			fmt.Println("  (none registered)")
		}
		translit.ForEach(func(name string, t translit.Transliterator) {
			fmt.Printf("  %-10s - %s\n", name, t.Description())
		})
		os.Exit(0)
	}

	// Require config path for main operation
	if *configPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg, translit.List()); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	// Handle validate flag
	if *validate {
		fmt.Println("Configuration is valid")
		fmt.Printf("  Instance: %s\n", cfg.App.InstanceID)
		fmt.Printf("  Keyboards configured: %d\n", len(cfg.Keyboards))
		for i, kb := range cfg.Keyboards {
			if kb.Enabled {
				fmt.Printf("    [%d] %s - %s, %s backend, %d baud\n",
					i, kb.Name, kb.Device, kb.Backend, kb.BaudRate)
			}
		}
		os.Exit(0)
	}

	// Setup logging
	logger := setupLogging(cfg, *debug)
	slog.SetDefault(logger)

	logger.Info("braillekbd starting",
		"version", version,
		"instance", cfg.App.InstanceID,
		"keyboards", len(cfg.Keyboards),
	)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create Slack notifier
	slackNotifier := notify.NewSlackNotifier(&cfg.Slack, cfg.App.InstanceID, logger)

	// Create and start keyboards
	hub := keyboard.NewHub(cfg, logger)
	hub.OnFault(func(name string, err error) {
		device := ""
		if d, ok := hub.Get(name); ok {
			device = d.Device()
		}
		// the hook runs on the reader goroutine
		go func() {
			if err := slackNotifier.NotifyFault(name, device, err); err != nil {
				logger.Warn("Failed to send fault notification", "error", err)
			}
		}()
	})
	if err := hub.Start(ctx); err != nil {
		logger.Error("Failed to start keyboards", "error", err)
		os.Exit(1)
	}

	// Start monitoring server
	monitorServer := monitoring.NewServerWithConfigPath(cfg, version, hub, logger, *configPath)
	if err := monitorServer.Start(); err != nil {
		logger.Error("Failed to start monitoring server", "error", err)
	}

	// Send startup notification
	if err := slackNotifier.NotifyStartup(hub.Count(), hub.AvailableCount()); err != nil {
		logger.Warn("Failed to send startup notification", "error", err)
	}

	startTime := time.Now()
	logger.Info("braillekbd running",
		"keyboards", hub.Count(),
		"connected", hub.AvailableCount(),
		"monitoring_port", cfg.Monitoring.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("braillekbd shutting down")

	// Stop monitoring server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := monitorServer.Stop(shutdownCtx); err != nil {
		logger.Warn("Error stopping monitoring server", "error", err)
	}

	// Stop keyboards
	hub.Stop()

	var totalLines, totalFaults int64
	for _, info := range hub.Infos() {
		totalLines += info.Stats.LinesReceived
		totalFaults += info.Stats.Faults
	}

	// Send shutdown notification
	uptime := time.Since(startTime)
	if err := slackNotifier.NotifyShutdown(totalLines, totalFaults, uptime); err != nil {
		logger.Warn("Failed to send shutdown notification", "error", err)
	}

	logger.Info("braillekbd stopped",
		"uptime", uptime,
		"total_lines", totalLines,
		"transport_faults", totalFaults,
	)
}

func setupLogging(cfg *config.Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	// If base path is set, use file logging with rotation
	if cfg.Logging.BasePath != "" {
		logPath := filepath.Join(cfg.Logging.BasePath, cfg.Logging.Filename)
		writer := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		}
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		// Use console logging
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
