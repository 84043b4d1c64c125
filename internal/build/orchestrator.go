// Package build drives the pipeline end to end: discovery, parallel
// transforms, hashing, staged emission, and atomic publish.
package build

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/errors"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
	"git.home.luguber.info/inful/assetpipe/internal/hashing"
	"git.home.luguber.info/inful/assetpipe/internal/history"
	"git.home.luguber.info/inful/assetpipe/internal/htmlrewrite"
	"git.home.luguber.info/inful/assetpipe/internal/incremental"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/notify"
	"git.home.luguber.info/inful/assetpipe/internal/output"
	"git.home.luguber.info/inful/assetpipe/internal/stage"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
	"git.home.luguber.info/inful/assetpipe/internal/vcs"
	"git.home.luguber.info/inful/assetpipe/internal/workspace"
)

// Artifact is one final emitted output with its metadata.
type Artifact struct {
	LogicalName string
	SourcePath  string
	FinalPath   string
	Hash        string
	FullSum     string
	Bytes       []byte
}

// Report summarizes one build run.
type Report struct {
	BuildID      string
	State        State
	Artifacts    int
	Manifest     *manifest.BuildManifest
	ManifestHash string
	Duration     time.Duration
	Skipped      bool
	// Sizes maps final artifact paths to byte sizes when the analyze
	// option is set.
	Sizes map[string]int
	// FailedNode and FailedStage identify the failing transform when the
	// build aborted on a TransformError.
	FailedNode  string
	FailedStage string
}

// Orchestrator runs builds over an immutable configuration value.
type Orchestrator struct {
	cfg        *config.Config
	registry   *stage.Registry
	stageNames []string
	hasher     *hashing.Hasher
	recorder   metrics.Recorder
	cache      *storage.TransformCache
	buildCache *incremental.BuildCache
	history    *history.Store
	notifier   *notify.Publisher
	hooks      []Hook
	logger     *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator for one configuration. The stage registry is
// built from the config rules (or the builtin defaults).
func New(cfg *config.Config) (*Orchestrator, error) {
	registry, names, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		stageNames: names,
		hasher:     hashing.New(cfg.Output.HashLength),
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
		state:      StateIdle,
	}, nil
}

// WithRecorder injects a metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// WithTransformCache enables transform result caching.
func (o *Orchestrator) WithTransformCache(c *storage.TransformCache) *Orchestrator {
	o.cache = c
	return o
}

// WithBuildCache enables whole-build skip detection.
func (o *Orchestrator) WithBuildCache(c *incremental.BuildCache) *Orchestrator {
	o.buildCache = c
	return o
}

// WithHistory records completed builds in the history store.
func (o *Orchestrator) WithHistory(h *history.Store) *Orchestrator {
	o.history = h
	return o
}

// WithNotifier publishes build events.
func (o *Orchestrator) WithNotifier(n *notify.Publisher) *Orchestrator {
	o.notifier = n
	return o
}

// WithLogger sets a custom logger.
func (o *Orchestrator) WithLogger(l *slog.Logger) *Orchestrator {
	o.logger = l
	return o
}

// RegisterHook appends a lifecycle hook. Hooks run in registration order at
// their bound point; any hook error fails the build.
func (o *Orchestrator) RegisterHook(h Hook) error {
	if err := validateHook(h); err != nil {
		return err
	}
	o.hooks = append(o.hooks, h)
	return nil
}

// State returns the current build state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if to == StateFailed {
		if o.state == StateIdle {
			return fmt.Errorf("invalid state transition: %s -> %s", o.state, to)
		}
		o.state = to
		return nil
	}
	if validTransitions[o.state] != to {
		return fmt.Errorf("invalid state transition: %s -> %s", o.state, to)
	}
	o.state = to
	return nil
}

func (o *Orchestrator) runHooks(ctx context.Context, point HookPoint, s *Session) error {
	for _, h := range o.hooks {
		if h.Point != point {
			continue
		}
		if err := h.Fn(ctx, s); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "lifecycle hook failed").
				WithContext("hook", h.Name).
				WithContext("point", string(point))
		}
	}
	return nil
}

// Inspect runs discovery only and returns the frozen graph. Used by the
// inspect command to show what a build would process.
func (o *Orchestrator) Inspect(ctx context.Context) (*graph.Graph, error) {
	_ = ctx
	g := graph.New()
	if err := o.discover(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Run executes one full build. On success the output directory holds the
// published artifacts and manifest; on failure the staging area is
// discarded and the output directory is untouched.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	buildID := uuid.NewString()
	logger := o.logger.With(logfields.BuildID(buildID))
	report := &Report{BuildID: buildID, State: StateIdle}

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	fail := func(err error) (*Report, error) {
		_ = o.transition(StateFailed)
		report.State = StateFailed
		report.Duration = time.Since(started)

		var te *stage.TransformError
		if stderrors.As(err, &te) {
			report.FailedNode = te.NodePath
			report.FailedStage = te.StageName
		}

		o.recorder.IncBuildOutcome("failed")
		o.recorder.ObserveBuildDuration(report.Duration)
		o.recordHistory(ctx, report, err)
		o.publishEvent(report, err)
		logger.Error("Build failed", logfields.Error(err), logfields.DurationMS(float64(report.Duration.Milliseconds())))
		return report, err
	}

	session := &Session{BuildID: buildID}

	// Discovering
	if err := o.transition(StateDiscovering); err != nil {
		return report, err
	}
	phaseStart := time.Now()
	g := graph.New()
	if err := o.discover(g); err != nil {
		o.recorder.IncPhaseResult(string(StateDiscovering), metrics.ResultFailed)
		return fail(err)
	}
	session.Graph = g
	o.recorder.ObservePhaseDuration(string(StateDiscovering), time.Since(phaseStart))
	o.recorder.IncPhaseResult(string(StateDiscovering), metrics.ResultSuccess)
	o.recorder.SetGraphSize(g.Len())
	logger.Info("Discovery complete", logfields.Count(g.Len()))

	if err := o.runHooks(ctx, HookDiscoverComplete, session); err != nil {
		return fail(err)
	}

	// Incremental skip check before any transform work.
	sig, err := o.computeSignature(g)
	if err != nil {
		return fail(err)
	}
	if skipped := o.trySkip(ctx, sig, report, started, logger); skipped {
		return report, nil
	}

	// Transforming
	if err := o.transition(StateTransforming); err != nil {
		return fail(err)
	}
	phaseStart = time.Now()
	results, err := o.transformAll(ctx, g)
	if err != nil {
		o.recorder.IncPhaseResult(string(StateTransforming), metrics.ResultFailed)
		return fail(err)
	}
	session.Results = results
	o.recorder.ObservePhaseDuration(string(StateTransforming), time.Since(phaseStart))
	o.recorder.IncPhaseResult(string(StateTransforming), metrics.ResultSuccess)
	logger.Info("Transforms complete", logfields.Count(len(results)))

	if err := o.runHooks(ctx, HookTransformComplete, session); err != nil {
		return fail(err)
	}

	// Hashing: byte-altering global work (chunk assembly, HTML reference
	// rewriting, runtime chunk synthesis) happens here, before any final
	// hash is taken as fixed.
	if err := o.transition(StateHashing); err != nil {
		return fail(err)
	}
	phaseStart = time.Now()
	artifacts, err := o.hashAndPlan(g, results)
	if err != nil {
		o.recorder.IncPhaseResult(string(StateHashing), metrics.ResultFailed)
		return fail(err)
	}
	session.Artifacts = artifacts
	o.recorder.ObservePhaseDuration(string(StateHashing), time.Since(phaseStart))
	o.recorder.IncPhaseResult(string(StateHashing), metrics.ResultSuccess)

	// Emitting
	if err := o.transition(StateEmitting); err != nil {
		return fail(err)
	}
	phaseStart = time.Now()
	ws := o.newWorkspace()
	if err := ws.Create(); err != nil {
		return fail(errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging directory"))
	}
	defer func() {
		// Discards staging on failure; Publish already emptied it on success.
		if err := ws.Cleanup(); err != nil {
			logger.Warn("Staging cleanup failed", logfields.Error(err))
		}
	}()
	for _, a := range artifacts {
		if err := ws.WriteFile(a.FinalPath, a.Bytes); err != nil {
			o.recorder.IncPhaseResult(string(StateEmitting), metrics.ResultFailed)
			return fail(errors.WrapError(err, errors.CategoryOutput, "failed to stage artifact").
				WithContext("artifact", a.FinalPath))
		}
	}
	o.recorder.ObservePhaseDuration(string(StateEmitting), time.Since(phaseStart))
	o.recorder.IncPhaseResult(string(StateEmitting), metrics.ResultSuccess)
	logger.Info("Artifacts staged", logfields.Count(len(artifacts)))

	// Finalizing
	if err := o.transition(StateFinalizing); err != nil {
		return fail(err)
	}
	phaseStart = time.Now()

	if err := o.runHooks(ctx, HookPreFinalize, session); err != nil {
		return fail(err)
	}

	m := o.buildManifest(buildID, artifacts, sig)
	session.Manifest = m
	manifestJSON, err := m.ToJSON()
	if err != nil {
		return fail(errors.WrapError(err, errors.CategoryOutput, "failed to serialize manifest"))
	}
	if err := ws.WriteFile(manifest.FileName, manifestJSON); err != nil {
		return fail(errors.WrapError(err, errors.CategoryOutput, "failed to stage manifest"))
	}

	if err := o.runHooks(ctx, HookPostFinalize, session); err != nil {
		return fail(err)
	}

	if err := ws.Publish(o.cfg.Output.Dir); err != nil {
		return fail(errors.WrapError(err, errors.CategoryPublish, "failed to publish artifacts").
			WithContext("output_dir", o.cfg.Output.Dir))
	}
	o.recorder.ObservePhaseDuration(string(StateFinalizing), time.Since(phaseStart))
	o.recorder.IncPhaseResult(string(StateFinalizing), metrics.ResultSuccess)

	if err := o.transition(StateDone); err != nil {
		return fail(err)
	}

	report.State = StateDone
	report.Artifacts = len(artifacts)
	report.Manifest = m
	report.Duration = time.Since(started)
	if h, err := m.Hash(); err == nil {
		report.ManifestHash = h
	}

	if o.cfg.Options.Analyze {
		report.Sizes = make(map[string]int, len(artifacts))
		total := 0
		for _, a := range artifacts {
			report.Sizes[a.FinalPath] = len(a.Bytes)
			total += len(a.Bytes)
		}
		logger.Info("Artifact size summary",
			logfields.Count(len(artifacts)),
			slog.Int("total_bytes", total))
	}

	o.recorder.IncBuildOutcome("success")
	o.recorder.ObserveBuildDuration(report.Duration)
	o.recordBuildCache(ctx, sig, m, logger)
	o.recordHistory(ctx, report, nil)
	o.publishEvent(report, nil)

	logger.Info("Build complete",
		logfields.Count(len(artifacts)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (o *Orchestrator) newWorkspace() *workspace.Manager {
	if o.cfg.Build.StagingDir != "" {
		return workspace.NewPersistentManager(o.cfg.Build.StagingDir, "staging")
	}
	return workspace.NewManager("")
}

// computeSignature derives the build signature from discovered sources,
// registered stage names, and the configuration.
func (o *Orchestrator) computeSignature(g *graph.Graph) (*incremental.BuildSignature, error) {
	sources := make([]incremental.SourceHash, 0, g.Len())
	for _, n := range g.Nodes() {
		sources = append(sources, incremental.SourceHash{
			Path: n.Path,
			Hash: hashing.FullSum(n.Raw),
		})
	}
	return incremental.ComputeBuildSignature(o.cfg, sources, o.stageNames)
}

// trySkip consults the build cache, filling report and returning true when
// the build can be skipped. Cache errors are advisory: the build proceeds.
func (o *Orchestrator) trySkip(ctx context.Context, sig *incremental.BuildSignature, report *Report, started time.Time, logger *slog.Logger) bool {
	if o.buildCache == nil {
		return false
	}

	skip, entry, err := o.buildCache.ShouldSkipBuild(ctx, sig)
	if err != nil {
		logger.Warn("Incremental check failed, building from scratch", logfields.Error(err))
		return false
	}
	if !skip {
		return false
	}
	// Published output must still exist for the skip to be sound.
	if _, err := os.Stat(o.cfg.Output.Dir); err != nil {
		return false
	}

	o.mu.Lock()
	o.state = StateDone
	o.mu.Unlock()

	report.State = StateDone
	report.Skipped = true
	report.Manifest = entry.Manifest
	report.Artifacts = len(entry.Manifest.Assets)
	report.Duration = time.Since(started)
	if h, err := entry.Manifest.Hash(); err == nil {
		report.ManifestHash = h
	}

	o.recorder.IncBuildOutcome("skipped")
	logger.Info("Build skipped, sources unchanged", slog.String("signature", sig.BuildHash))
	return true
}

// transformAll runs stage chains for every node on a bounded worker pool.
// The first error cancels scheduling; in-flight chains stop at stage
// boundaries. Results are keyed by node path, so output order never depends
// on completion order.
func (o *Orchestrator) transformAll(ctx context.Context, g *graph.Graph) (map[string]stage.Result, error) {
	nodes := g.Nodes()
	workers := o.cfg.Build.Concurrency
	if workers < 1 {
		workers = 1
	}
	o.recorder.SetWorkerConcurrency(workers)

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *graph.Node)
	results := make(map[string]stage.Result, len(nodes))
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				if tctx.Err() != nil {
					continue
				}
				res, err := o.transformNode(tctx, node)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
				} else {
					results[node.Path] = res
				}
				mu.Unlock()
			}
		}()
	}

	for _, n := range nodes {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// cachedResult is the serialization form of a transform result in the
// content-addressed cache.
type cachedResult struct {
	Bytes   []byte          `json:"bytes"`
	OutExt  string          `json:"out_ext"`
	Emitted []stage.Emitted `json:"emitted,omitempty"`
}

func (o *Orchestrator) transformNode(ctx context.Context, node *graph.Node) (stage.Result, error) {
	chain, err := o.registry.Match(node)
	if err != nil {
		return stage.Result{}, err
	}

	chainNames := make([]string, len(chain))
	for i, d := range chain {
		chainNames[i] = d.Name
	}
	chainSig := strings.Join(chainNames, "|")

	var cacheKey string
	if o.cache != nil {
		cacheKey = o.cache.Key(node.Raw, chainSig)
		if data, ok := o.cache.Get(ctx, cacheKey); ok {
			if res, err := decodeCachedResult(data, node); err == nil {
				return res, nil
			}
		}
	}

	started := time.Now()
	res, err := stage.RunChainContext(ctx, node, chain)
	elapsed := time.Since(started)
	for _, name := range chainNames {
		o.recorder.IncTransformResult(name, err == nil)
	}
	o.recorder.ObserveTransformDuration(chainSig, elapsed)
	if err != nil {
		return stage.Result{}, err
	}

	if o.cache != nil {
		if data, encErr := json.Marshal(cachedResult{
			Bytes:   res.Bytes,
			OutExt:  res.Meta.OutExt,
			Emitted: res.Emitted,
		}); encErr == nil {
			if putErr := o.cache.Put(ctx, cacheKey, data); putErr != nil {
				o.logger.Debug("Transform cache write failed", logfields.Node(node.Path), logfields.Error(putErr))
			}
		}
	}

	return res, nil
}

func decodeCachedResult(data []byte, node *graph.Node) (stage.Result, error) {
	var c cachedResult
	if err := json.Unmarshal(data, &c); err != nil {
		return stage.Result{}, err
	}
	return stage.Result{
		Bytes: c.Bytes,
		Meta: stage.Metadata{
			Path:   node.Path,
			Kind:   node.Kind,
			Query:  node.Query,
			Entry:  node.Entry,
			OutExt: c.OutExt,
		},
		Emitted: c.Emitted,
	}, nil
}

// hashAndPlan assembles pendings, hashes them, and claims final paths.
// Non-HTML artifacts hash first so HTML reference rewriting and runtime
// chunk synthesis can use final paths before those artifacts hash in turn.
func (o *Orchestrator) hashAndPlan(g *graph.Graph, results map[string]stage.Result) ([]*Artifact, error) {
	pendings, err := assemblePending(g, results, o.cfg.Options.SplitChunks)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryOutput, "failed to assemble artifacts")
	}

	planner := output.NewPlanner()
	var artifacts []*Artifact
	bySource := make(map[string]string)

	var htmlPendings []pending
	for _, p := range pendings {
		if p.ext == ".html" {
			htmlPendings = append(htmlPendings, p)
			continue
		}
		a, extra, err := o.planOne(planner, p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
		artifacts = append(artifacts, extra...)
		if p.sourcePath != "" {
			bySource[p.sourcePath] = a.FinalPath
		}
	}

	// Runtime chunks reference entry chunk paths, so they hash afterwards.
	if o.cfg.Options.RuntimeChunk {
		runtime, err := o.planRuntimeChunks(planner, g, artifacts)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, runtime...)
	}

	// Pages referenced by other pages plan first and join the mapping, so
	// cross-page links rewrite to hashed paths too.
	rewriter := htmlrewrite.NewRewriter(bySource)
	for _, p := range orderByReference(htmlPendings) {
		rewritten, n, err := rewriter.Rewrite(p.bytes)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			p.bytes = rewritten
		}
		a, extra, err := o.planOne(planner, p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
		artifacts = append(artifacts, extra...)
		if p.sourcePath != "" {
			bySource[p.sourcePath] = a.FinalPath
		}
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].LogicalName < artifacts[j].LogicalName })
	return artifacts, nil
}

// planOne hashes a pending, claims its path, and plans its emitted
// auxiliaries (attached ones ride the parent path; detached ones plan
// independently).
func (o *Orchestrator) planOne(planner *output.Planner, p pending) (*Artifact, []*Artifact, error) {
	frag := o.hasher.Sum(p.bytes)
	full := hashing.FullSum(p.bytes)
	template := o.cfg.TemplateFor(config.AssetKind(p.kind))

	finalPath, err := planner.Plan(p.name, frag, p.ext, template)
	if err != nil {
		return nil, nil, err
	}
	if err := planner.Claim(finalPath, frag, full); err != nil {
		return nil, nil, err
	}

	a := &Artifact{
		LogicalName: p.logicalName,
		SourcePath:  p.sourcePath,
		FinalPath:   finalPath,
		Hash:        frag,
		FullSum:     full,
		Bytes:       p.bytes,
	}

	var extra []*Artifact
	for _, em := range p.emitted {
		if em.Attached {
			auxPath := finalPath + "." + em.Rel
			auxFrag := o.hasher.Sum(em.Bytes)
			if err := planner.Claim(auxPath, auxFrag, hashing.FullSum(em.Bytes)); err != nil {
				return nil, nil, err
			}
			extra = append(extra, &Artifact{
				LogicalName: p.logicalName + "." + em.Rel,
				FinalPath:   auxPath,
				Hash:        auxFrag,
				FullSum:     hashing.FullSum(em.Bytes),
				Bytes:       em.Bytes,
			})
			continue
		}

		auxFrag := o.hasher.Sum(em.Bytes)
		auxExt := path.Ext(em.Rel)
		auxName := strings.TrimSuffix(path.Base(em.Rel), auxExt)
		auxPath, err := planner.Plan(auxName, auxFrag, auxExt, o.cfg.Output.Template)
		if err != nil {
			return nil, nil, err
		}
		if err := planner.Claim(auxPath, auxFrag, hashing.FullSum(em.Bytes)); err != nil {
			return nil, nil, err
		}
		extra = append(extra, &Artifact{
			LogicalName: em.Rel,
			FinalPath:   auxPath,
			Hash:        auxFrag,
			FullSum:     hashing.FullSum(em.Bytes),
			Bytes:       em.Bytes,
		})
	}

	return a, extra, nil
}

// planRuntimeChunks emits one bootstrap artifact per script entry.
func (o *Orchestrator) planRuntimeChunks(planner *output.Planner, g *graph.Graph, artifacts []*Artifact) ([]*Artifact, error) {
	byLogical := make(map[string]*Artifact, len(artifacts))
	for _, a := range artifacts {
		byLogical[a.LogicalName] = a
	}

	var runtime []*Artifact
	for _, e := range g.Entries() {
		if e.Kind != graph.KindScript {
			continue
		}
		entryArtifact, ok := byLogical[e.Entry]
		if !ok {
			continue
		}

		data := runtimeBootstrap(entryArtifact.FinalPath)
		frag := o.hasher.Sum(data)
		name := "runtime-" + e.Entry
		finalPath, err := planner.Plan(name, frag, ".js", o.cfg.TemplateFor(config.KindScript))
		if err != nil {
			return nil, err
		}
		if err := planner.Claim(finalPath, frag, hashing.FullSum(data)); err != nil {
			return nil, err
		}
		runtime = append(runtime, &Artifact{
			LogicalName: name,
			FinalPath:   finalPath,
			Hash:        frag,
			FullSum:     hashing.FullSum(data),
			Bytes:       data,
		})
	}
	return runtime, nil
}

func (o *Orchestrator) buildManifest(buildID string, artifacts []*Artifact, sig *incremental.BuildSignature) *manifest.BuildManifest {
	entries := make([]string, 0, len(o.cfg.Entries))
	for _, e := range o.cfg.Entries {
		entries = append(entries, e.Name)
	}

	m := manifest.New(buildID, manifest.Inputs{
		SourceRoot:     o.cfg.SourceRoot,
		SourceRevision: vcs.HeadRevision(o.cfg.SourceRoot),
		Dirty:          vcs.IsDirty(o.cfg.SourceRoot),
		ConfigHash:     sig.ConfigHash,
		Entries:        entries,
	})
	for _, a := range artifacts {
		m.Add(a.LogicalName, a.FinalPath, a.Hash)
	}
	m.Status = "succeeded"
	return m
}

func (o *Orchestrator) recordBuildCache(ctx context.Context, sig *incremental.BuildSignature, m *manifest.BuildManifest, logger *slog.Logger) {
	if o.buildCache == nil {
		return
	}
	if err := o.buildCache.RecordBuild(ctx, sig, m); err != nil {
		logger.Warn("Failed to record build signature", logfields.Error(err))
	}
}

func (o *Orchestrator) recordHistory(ctx context.Context, report *Report, buildErr error) {
	if o.history == nil {
		return
	}

	rec := history.Record{
		ID:        report.BuildID,
		Status:    "failed",
		StartedAt: time.Now().Add(-report.Duration),
		Duration:  report.Duration,
		Artifacts: report.Artifacts,
	}
	if report.State == StateDone {
		rec.Status = "succeeded"
	}
	if buildErr != nil {
		rec.Error = buildErr.Error()
	}
	if report.Manifest != nil {
		rec.Assets = report.Manifest.Assets
		rec.SourceRev = report.Manifest.Inputs.SourceRevision
		rec.ConfigHash = report.Manifest.Inputs.ConfigHash
	}

	if err := o.history.Append(ctx, rec); err != nil {
		o.logger.Warn("Failed to append build history", logfields.Error(err))
	}
}

func (o *Orchestrator) publishEvent(report *Report, buildErr error) {
	if o.notifier == nil {
		return
	}

	event := notify.BuildEvent{
		BuildID:   report.BuildID,
		Timestamp: time.Now(),
		Duration:  report.Duration.Milliseconds(),
		Artifacts: report.Artifacts,
	}
	switch {
	case report.Skipped:
		event.Status = "skipped"
	case report.State == StateDone:
		event.Status = "succeeded"
	default:
		event.Status = "failed"
	}
	if buildErr != nil {
		event.Error = buildErr.Error()
	}
	if report.Manifest != nil {
		event.Assets = report.Manifest.Assets
	}

	if err := o.notifier.Publish(event); err != nil {
		o.logger.Warn("Failed to publish build event", logfields.Error(err))
	}
}
