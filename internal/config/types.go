package config

// Entry represents a named build entry point.
type Entry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// AssetKind is a typed enumeration of node kinds handled by the pipeline.
type AssetKind string

const (
	KindScript AssetKind = "script"
	KindStyle  AssetKind = "style"
	KindFont   AssetKind = "font"
	KindImage  AssetKind = "image"
	KindStatic AssetKind = "static"
)

// Rule maps a file-type predicate to an ordered stage chain.
// Multiple rules may match the same node; exclusive rules form oneOf groups
// where only the highest-priority match in the group executes.
type Rule struct {
	// Extensions the rule matches (with leading dot, e.g. ".css").
	Extensions []string `yaml:"extensions,omitempty"`
	// Kinds the rule matches. Empty means any kind.
	Kinds []AssetKind `yaml:"kinds,omitempty"`
	// Query restricts the rule to nodes carrying this query parameter
	// (e.g. format=webp selects the webp encoder).
	Query map[string]string `yaml:"query,omitempty"`
	// Stages is the ordered list of stage names to run.
	Stages []string `yaml:"stages"`
	// Priority orders candidate rules; higher runs first.
	Priority int `yaml:"priority,omitempty"`
	// Exclusive marks the rule as part of a oneOf group.
	Exclusive bool `yaml:"exclusive,omitempty"`
	// Group names the oneOf group for exclusive rules.
	Group string `yaml:"group,omitempty"`
}

// OutputConfig controls final artifact naming and placement.
type OutputConfig struct {
	// Dir is the publish target. It is fully cleaned on each successful build.
	Dir string `yaml:"dir"`
	// Template is the default naming template. Recognized tokens:
	// [name], [contenthash], [ext].
	Template string `yaml:"template,omitempty"`
	// Templates overrides the default template per asset kind.
	Templates map[AssetKind]string `yaml:"templates,omitempty"`
	// HashLength truncates the content hash fragment (8..16, default 8).
	HashLength int `yaml:"hash_length,omitempty"`
}

// Options holds global plugin options affecting the whole build.
type Options struct {
	Minify       bool `yaml:"minify,omitempty"`
	SourceMaps   bool `yaml:"source_maps,omitempty"`
	SplitChunks  bool `yaml:"split_chunks,omitempty"`
	RuntimeChunk bool `yaml:"runtime_chunk,omitempty"`
	Analyze      bool `yaml:"analyze,omitempty"`
}

// BuildConfig holds build performance tuning knobs.
// All zero values trigger sensible defaults.
type BuildConfig struct {
	// Concurrency caps the number of nodes transformed in parallel.
	// Defaults to 4; values <1 are coerced to 1.
	Concurrency int `yaml:"concurrency,omitempty"`
	// StagingDir overrides the temporary staging area. Empty uses a
	// timestamped directory under the system temp dir.
	StagingDir string `yaml:"staging_dir,omitempty"`
}

// CacheConfig controls the content-addressed artifact cache used for
// incremental rebuild detection.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"` // default .assetpipe/cache
}

// HistoryConfig controls the persistent build history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"` // default .assetpipe/history.db
}

// NotifyConfig configures optional build event publication over NATS.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"` // default assetpipe.builds
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after a file event before rebuilding.
	Debounce string `yaml:"debounce,omitempty"` // duration string, default 300ms
	// RebuildEvery, when set, schedules periodic full rebuilds in watch mode.
	RebuildEvery string `yaml:"rebuild_every,omitempty"` // duration string
}

// Config is the immutable configuration value for one build session.
// It is constructed once by Load and passed explicitly into the orchestrator.
type Config struct {
	SourceRoot string        `yaml:"source_root"`
	Entries    []Entry       `yaml:"entries"`
	Rules      []Rule        `yaml:"rules,omitempty"`
	Output     OutputConfig  `yaml:"output"`
	Options    Options       `yaml:"options,omitempty"`
	Build      BuildConfig   `yaml:"build,omitempty"`
	Cache      CacheConfig   `yaml:"cache,omitempty"`
	History    HistoryConfig `yaml:"history,omitempty"`
	Notify     NotifyConfig  `yaml:"notify,omitempty"`
	Watch      WatchConfig   `yaml:"watch,omitempty"`
}
