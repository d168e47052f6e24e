// cranewatch simulates and monitors industrial crane telemetry, runs
// prescriptive analysis on demand, and tracks the resulting events, audit
// trail, and spare-part workflow behind an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/setevik/cranewatch/internal/analysis"
	"github.com/setevik/cranewatch/internal/api"
	"github.com/setevik/cranewatch/internal/business"
	"github.com/setevik/cranewatch/internal/config"
	"github.com/setevik/cranewatch/internal/event"
	"github.com/setevik/cranewatch/internal/feed"
	"github.com/setevik/cranewatch/internal/inventory"
	"github.com/setevik/cranewatch/internal/parts"
	"github.com/setevik/cranewatch/internal/store"
	"github.com/setevik/cranewatch/internal/telemetry"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "query":
			runQuery(os.Args[2:])
			return
		case "status":
			runStatus(os.Args[2:])
			return
		case "version":
			fmt.Println("cranewatch", version)
			return
		}
	}

	// Default: run daemon.
	runDaemon(os.Args[1:])
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("cranewatch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("cranewatch", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	slog.Info("cranewatch starting",
		"version", version,
		"component", cfg.Asset.ComponentID,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	db, err := store.Open(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	slog.Info("store opened", "path", cfg.StorePath())

	inv := inventory.New(cfg.Inventory.InitialStock)
	eng := analysis.NewEngine(cfg.Engine.URL, cfg.Engine.Timeout.Duration)
	biz := business.NewView(
		cfg.Business.MaintenanceSpend,
		cfg.Business.MaintenanceBudget,
		cfg.Business.AvoidedDowntimeSavings,
		cfg.Business.ActiveAssets,
		cfg.Business.TotalAssets,
	)

	// The MQTT feed is auxiliary; a down broker must not keep the
	// monitor from starting.
	var pub telemetry.Publisher
	if cfg.Feed.Broker != "" {
		fp, err := feed.Connect(cfg.Feed.Broker, cfg.Feed.Topic)
		if err != nil {
			slog.Warn("telemetry feed unavailable, continuing without it", "error", err)
		} else {
			pub = fp
			defer fp.Close()
		}
	}

	sim := telemetry.NewSimulator(cfg.Simulator.Interval.Duration, pub)
	go sim.Run(ctx)
	slog.Info("telemetry simulator started",
		"interval", cfg.Simulator.Interval.Duration,
		"component", cfg.Asset.ComponentID,
	)

	app := fiber.New()
	api.New(cfg, db, sim, eng, inv, biz).Register(app)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Addr)
	}()
	slog.Info("api listening", "addr", cfg.Server.Addr)

	// Notify systemd we are ready (sd_notify).
	sdNotify("READY=1")

	// Start watchdog ticker if WatchdogSec is configured.
	var watchdogTicker *time.Ticker
	if wdInterval := watchdogInterval(); wdInterval > 0 {
		// Ping at half the watchdog interval.
		watchdogTicker = time.NewTicker(wdInterval / 2)
		defer watchdogTicker.Stop()
		slog.Info("systemd watchdog enabled", "interval", wdInterval)
	}

	for {
		// Watchdog channel (nil if disabled, select skips nil channels).
		var watchdogCh <-chan time.Time
		if watchdogTicker != nil {
			watchdogCh = watchdogTicker.C
		}

		select {
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)

		case <-watchdogCh:
			sdNotify("WATCHDOG=1")

		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			sdNotify("STOPPING=1")
			cancel()
			if err := app.Shutdown(); err != nil {
				slog.Warn("http server shutdown", "error", err)
			}
			return nil
		}
	}
}

// --- query subcommand ---

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	status := fs.String("status", "", "filter by status (active, resolved)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	db, err := store.Open(cfg.StorePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	events, err := db.ListEvents(*status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return
	}

	printEvents(events)
}

func printEvents(events []*event.Event) {
	for _, ev := range events {
		ts := ev.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Printf("%s  [%s] urgency %d/10  %s\n", ts, ev.Type, ev.UrgencyScore, ev.Status)
		if ev.Prescription.Action != "" {
			fmt.Printf("             Action: %s\n", ev.Prescription.Action)
		}
		if ev.ResolutionNotes != "" {
			fmt.Printf("             Notes: %s\n", ev.ResolutionNotes)
		}
		if ev.OwnerDecision != nil {
			fmt.Printf("             Decision: %s\n", *ev.OwnerDecision)
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d event(s)\n", len(events))
}

// --- status subcommand ---

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error")

	fmt.Printf("Component:    %s\n", cfg.Asset.ComponentID)
	fmt.Printf("Listen addr:  %s\n", cfg.Server.Addr)

	db, err := store.Open(cfg.StorePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	events, err := db.ListEvents("")
	if err == nil && len(events) > 0 {
		ev := events[0]
		ago := time.Since(ev.Timestamp).Truncate(time.Second)
		fmt.Printf("Last event:   [%s] urgency %d/10 — %s ago\n", ev.Type, ev.UrgencyScore, formatDuration(ago))
	} else {
		fmt.Println("Last event:   none")
	}

	var active, resolved int
	for _, ev := range events {
		if ev.Resolved() {
			resolved++
		} else {
			active++
		}
	}
	fmt.Printf("Events:       %d active, %d resolved (most recent %d)\n", active, resolved, len(events))

	pending, _ := db.ListPartRequests(parts.StatusPending)
	fmt.Printf("Part reqs:    %d pending\n", len(pending))

	fmt.Printf("DB path:      %s\n", cfg.StorePath())
}

// --- sd_notify support ---

// sdNotify sends a notification to systemd via the NOTIFY_SOCKET.
// This is a minimal implementation that doesn't require a C dependency.
func sdNotify(state string) {
	socketAddr := os.Getenv("NOTIFY_SOCKET")
	if socketAddr == "" {
		return
	}

	conn, err := net.Dial("unixgram", socketAddr)
	if err != nil {
		slog.Debug("sd_notify: failed to connect", "error", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		slog.Debug("sd_notify: failed to send", "error", err)
	}
}

// watchdogInterval reads WATCHDOG_USEC from the environment and returns the
// watchdog interval as a time.Duration. Returns 0 if not set.
func watchdogInterval() time.Duration {
	usecStr := os.Getenv("WATCHDOG_USEC")
	if usecStr == "" {
		return 0
	}
	var usec int64
	if _, err := fmt.Sscanf(usecStr, "%d", &usec); err != nil {
		return 0
	}
	return time.Duration(usec) * time.Microsecond
}

// --- utilities ---

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", h, m)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, h)
}
