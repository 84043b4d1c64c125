// Package watch rebuilds on source changes. File events are debounced so
// editor save bursts collapse into a single build; an optional periodic
// schedule forces full rebuilds regardless of events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetpipe/internal/build"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// DefaultDebounce is the quiet period after the last file event before a
// rebuild fires.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build. *build.Orchestrator satisfies this.
type Builder interface {
	Run(ctx context.Context) (*build.Report, error)
}

// Watcher monitors the source root and triggers rebuilds.
type Watcher struct {
	sourceRoot   string
	outputDir    string
	builder      Builder
	watcher      *fsnotify.Watcher
	scheduler    gocron.Scheduler
	debounce     time.Duration
	rebuildEvery time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	stopChan    chan struct{}
	triggerChan chan struct{}
	stopped     bool
}

// New creates a watcher over cfg.SourceRoot. The output directory is
// excluded from watching so publishes never retrigger builds.
func New(cfg *config.Config, builder Builder) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absRoot, err := filepath.Abs(cfg.SourceRoot)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	absOut, err := filepath.Abs(cfg.Output.Dir)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	w := &Watcher{
		sourceRoot:  absRoot,
		outputDir:   absOut,
		builder:     builder,
		watcher:     fw,
		debounce:    DefaultDebounce,
		logger:      slog.Default(),
		stopChan:    make(chan struct{}),
		triggerChan: make(chan struct{}, 1),
	}

	if cfg.Watch.Debounce != "" {
		d, err := time.ParseDuration(cfg.Watch.Debounce)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("parse watch debounce: %w", err)
		}
		w.debounce = d
	}
	if cfg.Watch.RebuildEvery != "" {
		d, err := time.ParseDuration(cfg.Watch.RebuildEvery)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("parse watch rebuild interval: %w", err)
		}
		w.rebuildEvery = d
	}
	return w, nil
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	w.logger = l
	return w
}

// Start registers the source tree and launches the watch goroutines. It
// returns immediately; rebuilds run until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.sourceRoot); err != nil {
		return err
	}

	w.logger.Info("Watching for changes",
		logfields.Path(w.sourceRoot),
		slog.Duration("debounce", w.debounce))

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)

	if w.rebuildEvery > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = s.NewJob(
			gocron.DurationJob(w.rebuildEvery),
			gocron.NewTask(w.trigger),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		w.scheduler = s
		s.Start()
		w.logger.Info("Periodic rebuild scheduled", slog.Duration("interval", w.rebuildEvery))
	}
	return nil
}

// Stop shuts the watcher down. Safe to call once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	var firstErr error
	if w.scheduler != nil {
		if err := w.scheduler.Shutdown(); err != nil {
			firstErr = err
		}
	}
	if err := w.watcher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// addTree registers root and every non-ignored subdirectory. fsnotify
// watches are per-directory, not recursive.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// ignored filters the output directory, hidden directories, and the same
// trees discovery skips.
func (w *Watcher) ignored(path string) bool {
	if path == w.outputDir || strings.HasPrefix(path, w.outputDir+string(filepath.Separator)) {
		return true
	}
	base := filepath.Base(path)
	if path != w.sourceRoot && strings.HasPrefix(base, ".") {
		return true
	}
	return base == "node_modules" || base == "dist"
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) || w.ignored(filepath.Dir(event.Name)) {
				continue
			}
			// New directories must join the watch set before their
			// contents produce events.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := w.addTree(event.Name); err == nil {
					w.logger.Debug("Watching new path", logfields.Path(event.Name))
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Debug("Change detected", logfields.Path(event.Name))
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", logfields.Error(err))
		}
	}
}

// rebuildLoop coalesces triggers behind a debounce timer and runs builds
// sequentially. A trigger arriving mid-build queues exactly one follow-up.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	fired := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.triggerChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fired <- struct{}{}:
				default:
				}
			})
		case <-fired:
			w.runBuild(ctx)
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.triggerChan <- struct{}{}:
	default:
		// Rebuild already pending.
	}
}

func (w *Watcher) runBuild(ctx context.Context) {
	started := time.Now()
	report, err := w.builder.Run(ctx)
	if err != nil {
		w.logger.Error("Rebuild failed", logfields.Error(err))
		return
	}
	if report.Skipped {
		w.logger.Info("Rebuild skipped, sources unchanged", logfields.BuildID(report.BuildID))
		return
	}
	w.logger.Info("Rebuild complete",
		logfields.BuildID(report.BuildID),
		logfields.Count(report.Artifacts),
		logfields.DurationMS(float64(time.Since(started).Milliseconds())))
}
