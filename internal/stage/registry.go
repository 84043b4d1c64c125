package stage

import (
	"context"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

// Registry holds the ordered list of registered stage descriptors.
// Registration happens once at build setup; Match is read-only and safe
// for concurrent use afterwards.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a descriptor. Descriptors are immutable once registered.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("stage descriptor requires a name")
	}
	if d.Transform == nil {
		return fmt.Errorf("stage descriptor %s requires a transform", d.Name)
	}
	if d.Predicate == nil {
		return fmt.Errorf("stage descriptor %s requires a predicate", d.Name)
	}
	if d.Exclusive && d.Group == "" {
		return fmt.Errorf("exclusive stage descriptor %s requires a group", d.Name)
	}
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Match returns the stage chain for a node: all predicate-matched
// descriptors sorted by descending priority, with exclusive (oneOf)
// groups collapsed to their single highest-priority member. Static nodes
// with no match fall back to identity passthrough; any other kind with no
// match fails with NoStageMatchedError.
func (r *Registry) Match(node *graph.Node) ([]Descriptor, error) {
	var matched []Descriptor
	for _, d := range r.descriptors {
		if d.Predicate(node) {
			matched = append(matched, d)
		}
	}

	// Sort by descending priority; registration order breaks ties so the
	// chain stays deterministic.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	matched = collapseExclusiveGroups(matched)

	if len(matched) == 0 {
		if node.Kind == graph.KindStatic || node.Kind == graph.KindFont {
			return []Descriptor{passthroughDescriptor()}, nil
		}
		return nil, &NoStageMatchedError{NodePath: node.Path, Kind: node.Kind}
	}
	return matched, nil
}

// collapseExclusiveGroups keeps only the first (highest-priority) member
// of each oneOf group. Input must already be priority-sorted.
func collapseExclusiveGroups(descriptors []Descriptor) []Descriptor {
	groupSeen := make(map[string]bool)
	out := descriptors[:0]
	for _, d := range descriptors {
		if d.Exclusive {
			if groupSeen[d.Group] {
				continue
			}
			groupSeen[d.Group] = true
		}
		out = append(out, d)
	}
	return out
}

// RunChain executes a node's stage chain sequentially: each stage's output
// bytes are the next stage's input. The input slice is copied so no stage
// can alias the graph-owned buffer.
func RunChain(node *graph.Node, chain []Descriptor) (Result, error) {
	return RunChainContext(context.Background(), node, chain)
}

// RunChainContext is RunChain with cooperative cancellation: ctx is checked
// at stage boundaries, never mid-stage, so no stage output is half-written.
func RunChainContext(ctx context.Context, node *graph.Node, chain []Descriptor) (Result, error) {
	data := make([]byte, len(node.Raw))
	copy(data, node.Raw)

	result := Result{
		Bytes: data,
		Meta: Metadata{
			Path:   node.Path,
			Kind:   node.Kind,
			Query:  node.Query,
			Entry:  node.Entry,
			OutExt: node.Ext(),
		},
	}

	for _, d := range chain {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		next, err := d.Transform(result.Bytes, result.Meta)
		if err != nil {
			return Result{}, &TransformError{NodePath: node.Path, StageName: d.Name, Cause: err}
		}
		next.Emitted = append(result.Emitted, next.Emitted...)
		result = next
	}
	return result, nil
}
