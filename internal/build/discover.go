package build

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/errors"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

var (
	scriptImportPattern  = regexp.MustCompile(`(?m)^\s*import\b[^'"]*['"]([^'"]+)['"]`)
	scriptRequirePattern = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	styleImportPattern   = regexp.MustCompile(`@import\s+(?:url\(\s*)?['"]([^'"]+)['"]`)
)

// skipDirs lists directory names never considered source.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
}

// discover walks the source root and populates the graph: one node per
// file, entry markers from configuration, and import edges for scripts and
// styles. The graph is frozen before returning.
func (o *Orchestrator) discover(g *graph.Graph) error {
	root := o.cfg.SourceRoot

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(p) // #nosec G304 -- path comes from the walked source tree
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read source file").
				WithContext("path", rel)
		}

		if _, err := g.AddNode(rel, graph.KindForPath(rel), data); err != nil {
			return err
		}
		return nil
	})
	if walkErr != nil {
		if _, ok := walkErr.(*errors.PipelineError); ok {
			return walkErr
		}
		if _, ok := walkErr.(*graph.DuplicatePathError); ok {
			return errors.WrapError(walkErr, errors.CategoryDiscovery, "duplicate source path")
		}
		return errors.WrapError(walkErr, errors.CategoryDiscovery, "source discovery failed").
			WithContext("source_root", root)
	}

	if err := o.markEntries(g); err != nil {
		return err
	}
	o.scanImports(g)

	g.Freeze()
	return nil
}

// markEntries attaches configured entry names (and any query parameters in
// the entry reference) to their nodes.
func (o *Orchestrator) markEntries(g *graph.Graph) error {
	for _, e := range o.cfg.Entries {
		node, err := g.Resolve(e.Path)
		if err != nil {
			return errors.WrapError(err, errors.CategoryDiscovery, "entry point not found in source tree").
				WithContext("entry", e.Name).
				WithContext("path", e.Path)
		}
		node.Entry = e.Name

		if _, query := graph.SplitQuery(e.Path); len(query) > 0 {
			if node.Query == nil {
				node.Query = make(map[string]string, len(query))
			}
			for k, v := range query {
				node.Query[k] = v
			}
		}
	}
	return nil
}

// scanImports adds best-effort import edges for scripts and styles. Only
// relative references resolving to a discovered node become edges; bare
// module specifiers are external and ignored.
func (o *Orchestrator) scanImports(g *graph.Graph) {
	for _, node := range g.Nodes() {
		var refs []string
		switch node.Kind {
		case graph.KindScript:
			refs = extractRefs(node.Raw, scriptImportPattern, scriptRequirePattern)
		case graph.KindStyle:
			refs = extractRefs(node.Raw, styleImportPattern)
		default:
			continue
		}

		for _, ref := range refs {
			target, ok := resolveRef(g, node.Path, ref)
			if !ok {
				continue
			}
			// Edge add errors here can only mean the target vanished
			// between resolve and add, which cannot happen pre-freeze.
			_ = g.AddEdge(node.Path, target)
		}
	}
}

func extractRefs(data []byte, patterns ...*regexp.Regexp) []string {
	var refs []string
	src := string(data)
	for _, pat := range patterns {
		for _, m := range pat.FindAllStringSubmatch(src, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// resolveRef maps a relative import reference to a graph path, trying the
// literal path and common extension completions.
func resolveRef(g *graph.Graph, from, ref string) (string, bool) {
	if !strings.HasPrefix(ref, "./") && !strings.HasPrefix(ref, "../") {
		return "", false
	}
	clean, _ := graph.SplitQuery(ref)
	candidate := path.Clean(path.Join(path.Dir(from), clean))

	candidates := []string{candidate}
	if path.Ext(candidate) == "" {
		candidates = append(candidates, candidate+".js", candidate+".mjs", candidate+".ts", candidate+".css")
	}
	for _, c := range candidates {
		if n, err := g.Resolve(c); err == nil {
			return n.Path, true
		}
	}
	return "", false
}
