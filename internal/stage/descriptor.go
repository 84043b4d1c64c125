// Package stage defines transform stages, the registry that matches them
// to asset nodes, and the chain execution engine.
package stage

import (
	"fmt"

	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

// Predicate decides whether a stage applies to a node.
type Predicate func(*graph.Node) bool

// Metadata travels with the bytes through a stage chain. Stages may adjust
// the output extension (e.g. markdown rendering, image re-encoding) but the
// source path and kind are fixed at discovery.
type Metadata struct {
	Path  string
	Kind  graph.Kind
	Query map[string]string
	// Entry is the logical entry name when the node is an entry point.
	Entry string
	// OutExt is the extension the final artifact will carry. Starts as the
	// source extension; stages rewrite it when they change the format.
	OutExt string
}

// Emitted is an auxiliary artifact produced alongside a stage's main
// output (a source map, a sized image variant).
type Emitted struct {
	// Rel names the artifact. For attached artifacts it is a suffix on the
	// parent's final path (e.g. "map" -> app.abcd1234.js.map); otherwise it
	// is an independent logical name planned with its own content hash.
	Rel      string
	Bytes    []byte
	Attached bool
}

// Result is the output of one stage execution.
type Result struct {
	Bytes   []byte
	Meta    Metadata
	Emitted []Emitted
}

// Transform is a pure function from (bytes, metadata) to a Result. It must
// not touch the filesystem or retain references to its input slice.
type Transform func(data []byte, meta Metadata) (Result, error)

// Descriptor binds a predicate to a transform. Immutable after
// registration.
type Descriptor struct {
	Name      string
	Predicate Predicate
	Transform Transform
	// Priority orders candidate stages; higher runs first.
	Priority int
	// Exclusive marks oneOf semantics: within Group, only the
	// highest-priority match executes.
	Exclusive bool
	Group     string
}

// TransformError reports a failed stage execution. Transforms are assumed
// deterministic, so the orchestrator treats this as a fatal abort rather
// than retrying.
type TransformError struct {
	NodePath  string
	StageName string
	Cause     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed for %s: %v", e.StageName, e.NodePath, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// NoStageMatchedError is returned when a non-passthrough-eligible node has
// no matching stage.
type NoStageMatchedError struct {
	NodePath string
	Kind     graph.Kind
}

func (e *NoStageMatchedError) Error() string {
	return fmt.Sprintf("no stage matched %s node %s", e.Kind, e.NodePath)
}

// Compose folds several transforms into one, feeding each stage's output
// bytes and metadata into the next and accumulating emitted artifacts.
func Compose(transforms ...Transform) Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		result := Result{Bytes: data, Meta: meta}
		for _, t := range transforms {
			next, err := t(result.Bytes, result.Meta)
			if err != nil {
				return Result{}, err
			}
			next.Emitted = append(result.Emitted, next.Emitted...)
			result = next
		}
		return result, nil
	}
}

// MatchExtensions builds a predicate matching any of the given extensions
// (lowercase, with leading dot).
func MatchExtensions(exts ...string) Predicate {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[e] = true
	}
	return func(n *graph.Node) bool { return set[n.Ext()] }
}

// MatchKinds builds a predicate matching any of the given kinds.
func MatchKinds(kinds ...graph.Kind) Predicate {
	set := make(map[graph.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(n *graph.Node) bool { return set[n.Kind] }
}

// MatchQuery restricts a predicate to nodes carrying all given query
// parameters.
func MatchQuery(query map[string]string) Predicate {
	return func(n *graph.Node) bool {
		for k, v := range query {
			if n.Query[k] != v {
				return false
			}
		}
		return true
	}
}

// And combines predicates conjunctively.
func And(preds ...Predicate) Predicate {
	return func(n *graph.Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}
