package stage

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders markdown static assets to HTML, switching the output
// extension to .html so the planner names the artifact accordingly.
func Markdown() Transform {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	return func(data []byte, meta Metadata) (Result, error) {
		var buf bytes.Buffer
		if err := md.Convert(data, &buf); err != nil {
			return Result{}, err
		}
		meta.OutExt = ".html"
		return Result{Bytes: buf.Bytes(), Meta: meta}, nil
	}
}
