package build

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/graph"
	"git.home.luguber.info/inful/assetpipe/internal/stage"
)

// SharedChunkName is the logical name of the split-chunks shared artifact.
const SharedChunkName = "shared"

// pending is an artifact candidate assembled from transform results, ready
// for hashing and path planning.
type pending struct {
	// logicalName keys the manifest entry.
	logicalName string
	// name is the [name] template token value.
	name string
	// kind selects the per-kind naming template.
	kind graph.Kind
	// ext is the final extension including the dot.
	ext string
	// sourcePath links back to the source node for reference rewriting;
	// empty for synthesized chunks.
	sourcePath string
	bytes      []byte
	emitted    []stage.Emitted
}

// assemblePending folds transform results into artifact candidates.
//
// Script entries absorb their transitive script imports into one chunk
// (imports first, lexicographic, then the entry itself). With splitChunks,
// imports reachable from two or more entries move to a single shared chunk
// instead. Script nodes folded into a chunk produce no standalone artifact;
// everything else maps one node to one artifact.
func assemblePending(g *graph.Graph, results map[string]stage.Result, splitChunks bool) ([]pending, error) {
	bundled := make(map[string]bool)
	shared := make(map[string]bool)

	entries := g.Entries()

	// Script dependency sets per entry, and the shared set when splitting.
	deps := make(map[string][]string, len(entries))
	if splitChunks {
		seenBy := make(map[string]int)
		for _, e := range entries {
			if e.Kind != graph.KindScript {
				continue
			}
			imports, err := scriptImports(g, e.Path)
			if err != nil {
				return nil, err
			}
			deps[e.Path] = imports
			for _, imp := range imports {
				seenBy[imp]++
			}
		}
		for imp, n := range seenBy {
			if n >= 2 {
				shared[imp] = true
			}
		}
	} else {
		for _, e := range entries {
			if e.Kind != graph.KindScript {
				continue
			}
			imports, err := scriptImports(g, e.Path)
			if err != nil {
				return nil, err
			}
			deps[e.Path] = imports
		}
	}

	var out []pending

	for _, e := range entries {
		res, ok := results[e.Path]
		if !ok {
			return nil, fmt.Errorf("missing transform result for entry %s", e.Path)
		}

		if e.Kind == graph.KindScript {
			var buf bytes.Buffer
			for _, imp := range deps[e.Path] {
				if shared[imp] {
					bundled[imp] = true
					continue
				}
				impRes, ok := results[imp]
				if !ok {
					return nil, fmt.Errorf("missing transform result for import %s", imp)
				}
				buf.Write(impRes.Bytes)
				buf.WriteByte('\n')
				bundled[imp] = true
			}
			buf.Write(res.Bytes)

			out = append(out, pending{
				logicalName: e.Entry,
				name:        e.Entry,
				kind:        e.Kind,
				ext:         res.Meta.OutExt,
				sourcePath:  e.Path,
				bytes:       buf.Bytes(),
				emitted:     res.Emitted,
			})
			continue
		}

		out = append(out, pending{
			logicalName: e.Entry,
			name:        e.Entry,
			kind:        e.Kind,
			ext:         res.Meta.OutExt,
			sourcePath:  e.Path,
			bytes:       res.Bytes,
			emitted:     res.Emitted,
		})
	}

	if splitChunks && len(shared) > 0 {
		paths := make([]string, 0, len(shared))
		for p := range shared {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		var buf bytes.Buffer
		for _, p := range paths {
			res, ok := results[p]
			if !ok {
				return nil, fmt.Errorf("missing transform result for shared import %s", p)
			}
			buf.Write(res.Bytes)
			buf.WriteByte('\n')
		}
		out = append(out, pending{
			logicalName: SharedChunkName,
			name:        SharedChunkName,
			kind:        graph.KindScript,
			ext:         ".js",
			bytes:       buf.Bytes(),
		})
	}

	// Remaining nodes: one artifact per node, addressed by source path.
	for _, node := range g.Nodes() {
		if node.IsEntry() || bundled[node.Path] {
			continue
		}
		res, ok := results[node.Path]
		if !ok {
			return nil, fmt.Errorf("missing transform result for %s", node.Path)
		}
		out = append(out, pending{
			logicalName: node.Path,
			name:        nameToken(node.Path),
			kind:        node.Kind,
			ext:         res.Meta.OutExt,
			sourcePath:  node.Path,
			bytes:       res.Bytes,
			emitted:     res.Emitted,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].logicalName < out[j].logicalName })
	return out, nil
}

// scriptImports returns the transitive script-kind imports of an entry,
// lexicographically sorted.
func scriptImports(g *graph.Graph, entryPath string) ([]string, error) {
	all, err := g.TransitiveImports(entryPath)
	if err != nil {
		return nil, err
	}
	var scripts []string
	for _, p := range all {
		if n, err := g.Resolve(p); err == nil && n.Kind == graph.KindScript {
			scripts = append(scripts, p)
		}
	}
	return scripts, nil
}

// runtimeBootstrap synthesizes the per-entry loader emitted by the
// runtimeChunk option. It references the entry's final hashed path, so it
// is generated after the entry chunk is hashed and then hashed itself.
func runtimeBootstrap(finalPath string) []byte {
	return []byte(fmt.Sprintf(
		"(function(){var s=document.createElement(\"script\");s.src=%q;s.defer=true;document.head.appendChild(s);})();\n",
		finalPath))
}

// orderByReference sorts HTML pendings so pages referenced by other pages
// come first. A page planning before its referencers means its hashed path
// exists by the time they rewrite. Reference cycles fall back to the
// incoming lexicographic order.
func orderByReference(ps []pending) []pending {
	refs := make(map[string]map[string]bool, len(ps))
	for _, p := range ps {
		deps := make(map[string]bool)
		for _, q := range ps {
			if q.sourcePath == "" || q.sourcePath == p.sourcePath {
				continue
			}
			if bytes.Contains(p.bytes, []byte(q.sourcePath)) {
				deps[q.sourcePath] = true
			}
		}
		refs[p.sourcePath] = deps
	}

	out := make([]pending, 0, len(ps))
	placed := make(map[string]bool, len(ps))
	remaining := ps
	for len(remaining) > 0 {
		var next []pending
		progressed := false
		for _, p := range remaining {
			ready := true
			for dep := range refs[p.sourcePath] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				out = append(out, p)
				placed[p.sourcePath] = true
				progressed = true
			} else {
				next = append(next, p)
			}
		}
		if !progressed {
			out = append(out, next...)
			break
		}
		remaining = next
	}
	return out
}

// nameToken derives the [name] template token for a non-entry artifact
// from its full source-relative path, so files in different directories
// sharing a base name never plan onto one final path. The planner slugs
// the separators away.
func nameToken(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
