package graph

import (
	"net/url"
	"path"
	"strings"
)

// Kind classifies a source file for stage matching.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
	KindFont   Kind = "font"
	KindImage  Kind = "image"
	KindStatic Kind = "static"
)

// NodeID identifies a node within one build session.
type NodeID string

// Node is a typed source file in the asset graph. Nodes are owned
// exclusively by the Graph; transforms receive copies of the byte slice
// they are allowed to rewrite.
type Node struct {
	// Path is the source path relative to the source root, without query.
	Path string
	// Kind drives stage matching.
	Kind Kind
	// Raw holds the source bytes as discovered.
	Raw []byte
	// Query carries parameters parsed from the path query string
	// (e.g. logo.png?format=webp).
	Query map[string]string
	// Imports lists paths of nodes this node depends on.
	Imports []string
	// Dependents is the back-reference set: paths of nodes importing this
	// one. Maintained by the graph, never owned by the node.
	Dependents map[string]struct{}
	// Entry is the logical entry name when the node is an entry point.
	Entry string
}

// IsEntry reports whether the node is a configured entry point.
func (n *Node) IsEntry() bool { return n.Entry != "" }

// Ext returns the lowercase file extension including the dot.
func (n *Node) Ext() string { return strings.ToLower(path.Ext(n.Path)) }

// kindByExtension maps file extensions to asset kinds. Anything unlisted
// is a static asset and passthrough-eligible.
var kindByExtension = map[string]Kind{
	".js":    KindScript,
	".mjs":   KindScript,
	".ts":    KindScript,
	".css":   KindStyle,
	".scss":  KindStyle,
	".woff":  KindFont,
	".woff2": KindFont,
	".ttf":   KindFont,
	".otf":   KindFont,
	".eot":   KindFont,
	".png":   KindImage,
	".jpg":   KindImage,
	".jpeg":  KindImage,
	".gif":   KindImage,
	".webp":  KindImage,
	".avif":  KindImage,
	".svg":   KindImage,
}

// KindForPath classifies a path by extension.
func KindForPath(p string) Kind {
	if k, ok := kindByExtension[strings.ToLower(path.Ext(p))]; ok {
		return k
	}
	return KindStatic
}

// SplitQuery separates a source reference into its path and query
// parameters. Malformed query strings are treated as part of the path.
func SplitQuery(ref string) (string, map[string]string) {
	idx := strings.IndexByte(ref, '?')
	if idx < 0 {
		return ref, nil
	}
	values, err := url.ParseQuery(ref[idx+1:])
	if err != nil {
		return ref, nil
	}
	query := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return ref[:idx], query
}
