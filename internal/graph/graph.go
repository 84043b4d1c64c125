// Package graph holds the asset graph: every discovered source file as a
// typed node plus its transitive import edges.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// DuplicatePathError is returned when a path is registered twice in the
// same build session.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("asset path already registered: %s", e.Path)
}

// NotFoundError is returned when resolving a path with no node.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset path not found: %s", e.Path)
}

// Graph maps source paths to nodes. It is write-once during discovery and
// read-only afterwards; Freeze enforces the boundary.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	frozen bool
}

// New creates an empty asset graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode registers a source file. Fails with DuplicatePathError if the
// path was already registered, and refuses writes after Freeze.
func (g *Graph) AddNode(path string, kind Kind, raw []byte) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return "", fmt.Errorf("graph is frozen: cannot add node %s during transform phase", path)
	}
	if _, exists := g.nodes[path]; exists {
		return "", &DuplicatePathError{Path: path}
	}

	cleanPath, query := SplitQuery(path)
	if _, exists := g.nodes[cleanPath]; exists && cleanPath != path {
		return "", &DuplicatePathError{Path: cleanPath}
	}

	g.nodes[cleanPath] = &Node{
		Path:       cleanPath,
		Kind:       kind,
		Raw:        raw,
		Query:      query,
		Dependents: make(map[string]struct{}),
	}
	return NodeID(cleanPath), nil
}

// Resolve returns the node registered for a path, failing with
// NotFoundError if absent. Query parameters in the reference are ignored
// for lookup.
func (g *Graph) Resolve(path string) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cleanPath, _ := SplitQuery(path)
	node, ok := g.nodes[cleanPath]
	if !ok {
		return nil, &NotFoundError{Path: cleanPath}
	}
	return node, nil
}

// AddEdge records that from imports to, maintaining the dependent
// back-reference. Both nodes must already be registered.
func (g *Graph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return fmt.Errorf("graph is frozen: cannot add edge %s -> %s", from, to)
	}

	src, ok := g.nodes[from]
	if !ok {
		return &NotFoundError{Path: from}
	}
	dst, ok := g.nodes[to]
	if !ok {
		return &NotFoundError{Path: to}
	}

	src.Imports = append(src.Imports, to)
	dst.Dependents[from] = struct{}{}
	return nil
}

// Freeze marks the end of the discovery phase. Further writes fail.
func (g *Graph) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Walk visits every node sorted by path lexicographically, not insertion
// order, so two runs over the same file set always process nodes in the
// same sequence.
func (g *Graph) Walk(fn func(*Node) error) error {
	for _, node := range g.Nodes() {
		if err := fn(node); err != nil {
			return err
		}
	}
	return nil
}

// Nodes returns all nodes sorted by path.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	nodes := make([]*Node, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, g.nodes[p])
	}
	return nodes
}

// Entries returns all entry-point nodes sorted by path.
func (g *Graph) Entries() []*Node {
	var entries []*Node
	for _, n := range g.Nodes() {
		if n.IsEntry() {
			entries = append(entries, n)
		}
	}
	return entries
}

// TransitiveImports returns the paths reachable from start through import
// edges, excluding start itself, sorted lexicographically.
func (g *Graph) TransitiveImports(start string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cleanStart, _ := SplitQuery(start)
	if _, ok := g.nodes[cleanStart]; !ok {
		return nil, &NotFoundError{Path: cleanStart}
	}

	visited := make(map[string]bool)
	var visit func(p string)
	visit = func(p string) {
		node, ok := g.nodes[p]
		if !ok {
			return
		}
		for _, imp := range node.Imports {
			if !visited[imp] {
				visited[imp] = true
				visit(imp)
			}
		}
	}
	visit(cleanStart)
	delete(visited, cleanStart)

	result := make([]string, 0, len(visited))
	for p := range visited {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}
