package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyState      = "state"
	KeyStage      = "stage"
	KeyNode       = "node"
	KeyKind       = "kind"
	KeyEntry      = "entry"
	KeyArtifact   = "artifact"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Node(path string) slog.Attr      { return slog.String(KeyNode, path) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Entry(name string) slog.Attr     { return slog.String(KeyEntry, name) }
func Artifact(path string) slog.Attr  { return slog.String(KeyArtifact, path) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
