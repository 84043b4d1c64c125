package config

// Default tuning values applied when the configuration leaves them unset.
const (
	DefaultConcurrency = 4
	DefaultHashLength  = 8
	DefaultTemplate    = "[name].[contenthash][ext]"
	DefaultCacheDir    = ".assetpipe/cache"
	DefaultHistoryPath = ".assetpipe/history.db"
	DefaultSubject     = "assetpipe.builds"
	DefaultDebounce    = "300ms"
)

// ApplyDefaults fills unset fields with sensible defaults. It is idempotent
// and safe to call on an already-normalized configuration.
func ApplyDefaults(cfg *Config) {
	if cfg.SourceRoot == "" {
		cfg.SourceRoot = "."
	}
	if cfg.Output.Template == "" {
		cfg.Output.Template = DefaultTemplate
	}
	if cfg.Output.HashLength == 0 {
		cfg.Output.HashLength = DefaultHashLength
	}
	if cfg.Build.Concurrency < 1 {
		cfg.Build.Concurrency = DefaultConcurrency
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultSubject
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultDebounce
	}
}
