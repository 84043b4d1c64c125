package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/assetpipe/internal/build"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
	"git.home.luguber.info/inful/assetpipe/internal/history"
	"git.home.luguber.info/inful/assetpipe/internal/incremental"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/notify"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
	"git.home.luguber.info/inful/assetpipe/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"assetpipe.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output string `short:"o" help:"Override the configured output directory"`
		Force  bool   `short:"f" help:"Build even when the cache reports sources unchanged"`
	} `cmd:"" help:"Run one full build"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	Inspect struct{} `cmd:"" help:"Discover the asset graph without building"`

	Watch struct {
		MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	} `cmd:"" help:"Rebuild on source changes"`

	History struct {
		Limit int `short:"n" help:"Number of builds to show" default:"20"`
	} `cmd:"" help:"Show recent builds"`

	Clean struct{} `cmd:"" help:"Remove the output directory and local caches"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if CLI.Build.Output != "" {
			cfg.Output.Dir = CLI.Build.Output
		}
		if err := runBuild(cfg, CLI.Build.Force, nil); err != nil {
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", CLI.Config)
	case "inspect":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runInspect(cfg); err != nil {
			slog.Error("Inspect failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runWatch(cfg, CLI.Watch.MetricsAddr); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "history":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runHistory(cfg, CLI.History.Limit); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	case "clean":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runClean(cfg); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(CLI.Config)
}

// newOrchestrator wires the orchestrator with whatever optional services the
// configuration enables. The returned cleanup closes them.
func newOrchestrator(cfg *config.Config, force bool, recorder metrics.Recorder) (*build.Orchestrator, func(), error) {
	o, err := build.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if recorder != nil {
		o.WithRecorder(recorder)
	}

	if cfg.Cache.Enabled {
		store, err := storage.NewFSStore(cfg.Cache.Dir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		cleanups = append(cleanups, func() { store.Close() })
		o.WithTransformCache(storage.NewTransformCache(store))
		if !force {
			o.WithBuildCache(incremental.NewBuildCache(store))
		}
	}

	if cfg.History.Enabled {
		hs, err := history.NewStore(cfg.History.Path)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open history store: %w", err)
		}
		cleanups = append(cleanups, func() { hs.Close() })
		o.WithHistory(hs)
	}

	if cfg.Notify.Enabled {
		pub, err := notify.NewPublisher(cfg.Notify)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect notifier: %w", err)
		}
		cleanups = append(cleanups, pub.Close)
		o.WithNotifier(pub)
	}

	return o, cleanup, nil
}

func runBuild(cfg *config.Config, force bool, recorder metrics.Recorder) error {
	o, cleanup, err := newOrchestrator(cfg, force, recorder)
	if err != nil {
		slog.Error("Setup failed", "error", err)
		return err
	}
	defer cleanup()

	report, err := o.Run(signalContext())
	if err != nil {
		if report != nil && report.FailedNode != "" {
			fmt.Fprintf(os.Stderr, "build failed: stage %s on %s\n", report.FailedStage, report.FailedNode)
		} else {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		}
		return err
	}

	if report.Skipped {
		fmt.Printf("Build skipped, sources unchanged (%d assets)\n", report.Artifacts)
		return nil
	}
	fmt.Printf("Built %d artifacts in %s -> %s\n", report.Artifacts, report.Duration.Round(time.Millisecond), cfg.Output.Dir)

	if len(report.Sizes) > 0 {
		paths := make([]string, 0, len(report.Sizes))
		for p := range report.Sizes {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Printf("  %8d  %s\n", report.Sizes[p], p)
		}
	}
	return nil
}

func runInspect(cfg *config.Config) error {
	o, err := build.New(cfg)
	if err != nil {
		return err
	}
	g, err := o.Inspect(signalContext())
	if err != nil {
		return err
	}

	fmt.Printf("%d nodes\n", g.Len())
	return g.Walk(func(n *graph.Node) error {
		marker := " "
		if n.IsEntry() {
			marker = "*"
		}
		fmt.Printf("%s %-8s %s", marker, n.Kind, n.Path)
		if len(n.Imports) > 0 {
			fmt.Printf("  <- %d imports", len(n.Imports))
		}
		fmt.Println()
		return nil
	})
}

func runWatch(cfg *config.Config, metricsAddr string) error {
	var recorder metrics.Recorder
	if metricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				slog.Error("Metrics server stopped", "error", err)
			}
		}()
		slog.Info("Serving metrics", "addr", metricsAddr)
	}

	o, cleanup, err := newOrchestrator(cfg, false, recorder)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := signalContext()

	w, err := watch.New(cfg, o)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	// Initial build before waiting for changes.
	if report, err := o.Run(ctx); err != nil {
		slog.Error("Initial build failed", "error", err)
	} else if !report.Skipped {
		fmt.Printf("Built %d artifacts, watching for changes\n", report.Artifacts)
	}

	<-ctx.Done()
	fmt.Println("\nShutting down")
	return nil
}

func runHistory(cfg *config.Config, limit int) error {
	if !cfg.History.Enabled {
		return fmt.Errorf("build history is disabled in configuration")
	}
	hs, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer hs.Close()

	records, err := hs.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-9s  %4d artifacts  %8s  %s",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Artifacts,
			r.Duration.Round(time.Millisecond), r.ID)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Println(line)
	}
	return nil
}

func runClean(cfg *config.Config) error {
	for _, dir := range []string{cfg.Output.Dir, cfg.Cache.Dir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		fmt.Printf("Removed %s\n", dir)
	}
	return nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx
}
