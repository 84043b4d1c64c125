// Package htmlrewrite rewrites asset references in HTML artifacts to their
// final hashed paths during the finalize phase.
package htmlrewrite

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetpipe/internal/errors"
)

// refAttributes maps element names to the attribute carrying an asset
// reference.
var refAttributes = map[string]string{
	"script": "src",
	"img":    "src",
	"source": "src",
	"link":   "href",
	"a":      "href",
}

// Rewriter maps original relative asset paths to their final hashed paths.
type Rewriter struct {
	// mapping: original source-relative path -> published path
	mapping map[string]string
}

// NewRewriter creates a rewriter over a path mapping.
func NewRewriter(mapping map[string]string) *Rewriter {
	return &Rewriter{mapping: mapping}
}

// Rewrite parses an HTML document and rewrites all local asset references
// found in the mapping. References to external URLs, anchors, and paths with
// no mapping entry pass through untouched. Returns the rewritten document
// and the number of references rewritten.
func (r *Rewriter) Rewrite(doc []byte) ([]byte, int, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, 0, errors.WrapError(err, errors.CategoryOutput, "failed to parse HTML artifact")
	}

	rewritten := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := refAttributes[n.Data]; ok {
				if r.rewriteAttr(n, attr) {
					rewritten++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, 0, errors.WrapError(err, errors.CategoryOutput, "failed to render HTML artifact")
	}
	return buf.Bytes(), rewritten, nil
}

func (r *Rewriter) rewriteAttr(n *html.Node, attr string) bool {
	for i, a := range n.Attr {
		if a.Key != attr || a.Val == "" {
			continue
		}
		if !isLocalRef(a.Val) {
			return false
		}
		key := normalizeRef(a.Val)
		final, ok := r.mapping[key]
		if !ok {
			return false
		}
		n.Attr[i].Val = final
		return true
	}
	return false
}

// isLocalRef reports whether ref points at a local file rather than an
// external URL, anchor, or data URI.
func isLocalRef(ref string) bool {
	if strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "data:") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// normalizeRef strips leading "./" and query/fragment suffixes so lookups
// match graph paths.
func normalizeRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimPrefix(ref, "./")
}
