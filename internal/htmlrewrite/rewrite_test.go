package htmlrewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteScriptAndLink(t *testing.T) {
	r := NewRewriter(map[string]string{
		"app.js":          "app.a1b2c3d4.js",
		"styles/main.css": "styles/main.ffee0011.css",
	})

	doc := []byte(`<html><head>
<link rel="stylesheet" href="styles/main.css">
<script src="app.js"></script>
</head><body></body></html>`)

	out, n, err := r.Rewrite(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, string(out), `href="styles/main.ffee0011.css"`)
	assert.Contains(t, string(out), `src="app.a1b2c3d4.js"`)
}

func TestRewriteLeavesExternalAndUnmapped(t *testing.T) {
	r := NewRewriter(map[string]string{"app.js": "app.11111111.js"})

	doc := []byte(`<html><body>
<script src="https://cdn.example.com/lib.js"></script>
<img src="unknown.png">
<a href="#section">anchor</a>
<img src="data:image/png;base64,AAAA">
</body></html>`)

	out, n, err := r.Rewrite(doc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, string(out), "https://cdn.example.com/lib.js")
	assert.Contains(t, string(out), `src="unknown.png"`)
}

func TestRewriteNormalizesRelativeRefs(t *testing.T) {
	r := NewRewriter(map[string]string{"img/logo.png": "img/logo.deadbeef.png"})

	doc := []byte(`<html><body><img src="./img/logo.png?v=3"></body></html>`)

	out, n, err := r.Rewrite(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, string(out), `src="img/logo.deadbeef.png"`)
}

func TestRewriteEmptyMapping(t *testing.T) {
	r := NewRewriter(nil)
	out, n, err := r.Rewrite([]byte(`<p>hello</p>`))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, string(out), "hello")
}
