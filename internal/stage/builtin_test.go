package stage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

func styleMeta(path string) Metadata {
	return Metadata{Path: path, Kind: graph.KindStyle, OutExt: ".css"}
}

func TestMinifyCSSCollapsesWhitespace(t *testing.T) {
	css := `
/* reset */
body {
    color : red ;
}
`
	result, err := MinifyCSS(false)([]byte(css), styleMeta("app.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(result.Bytes))
	assert.Empty(t, result.Emitted)
}

func TestMinifyCSSEmitsSourceMap(t *testing.T) {
	result, err := MinifyCSS(true)([]byte("a{b:c}"), styleMeta("app.css"))
	require.NoError(t, err)

	require.Len(t, result.Emitted, 1)
	assert.Equal(t, "map", result.Emitted[0].Rel)
	assert.True(t, result.Emitted[0].Attached)
	assert.Contains(t, string(result.Emitted[0].Bytes), "app.css")
}

func TestMinifyJSStripsComments(t *testing.T) {
	js := `// banner
const a = 1; // trailing
/* block
   comment */
const url = "http://example.com";
`
	result, err := MinifyJS(false)([]byte(js), Metadata{Path: "a.js", Kind: graph.KindScript})
	require.NoError(t, err)

	out := string(result.Bytes)
	assert.NotContains(t, out, "banner")
	assert.NotContains(t, out, "block")
	assert.NotContains(t, out, "trailing")
	assert.Contains(t, out, `"http://example.com"`)
	assert.Contains(t, out, "const a = 1;")
}

func TestMinifyJSPreservesCommentMarkersInLiterals(t *testing.T) {
	js := "const s = \"a//b\";\n" +
		"const u = 'x/*y*/z'; // note\n" +
		"const w = `tpl//frag`;\n" +
		"const e = \"quoted \\\" then // still string\";\n" +
		"console.log(s);\n"
	result, err := MinifyJS(false)([]byte(js), Metadata{Path: "a.js", Kind: graph.KindScript})
	require.NoError(t, err)

	out := string(result.Bytes)
	assert.Contains(t, out, `const s = "a//b";`)
	assert.Contains(t, out, `const u = 'x/*y*/z';`)
	assert.Contains(t, out, "const w = `tpl//frag`;")
	assert.Contains(t, out, `"quoted \" then // still string"`)
	assert.NotContains(t, out, "note")
	assert.Contains(t, out, "console.log(s);")
}

func TestAutoprefixInjectsVendorPrefixes(t *testing.T) {
	css := ".toolbar {\n  user-select: none;\n  color: red;\n}\n"
	result, err := Autoprefix()([]byte(css), styleMeta("t.css"))
	require.NoError(t, err)

	out := string(result.Bytes)
	assert.Contains(t, out, "-webkit-user-select: none;")
	assert.Contains(t, out, "-moz-user-select: none;")
	assert.Contains(t, out, "user-select: none;")
	assert.NotContains(t, out, "-webkit-color")
}

func TestAutoprefixThenMinifyChain(t *testing.T) {
	chain := Compose(Autoprefix(), MinifyCSS(false))
	result, err := chain([]byte(".x {\n  user-select: none;\n}\n"), styleMeta("x.css"))
	require.NoError(t, err)
	assert.Equal(t, ".x{-webkit-user-select:none;-moz-user-select:none;user-select:none}", string(result.Bytes))
}

func TestEncodeImageRewritesExtension(t *testing.T) {
	meta := Metadata{Path: "logo.png", Kind: graph.KindImage, OutExt: ".png"}
	result, err := EncodeImage(".webp", identityEncoder)([]byte{0x89, 0x50}, meta)
	require.NoError(t, err)
	assert.Equal(t, ".webp", result.Meta.OutExt)
	assert.Equal(t, []byte{0x89, 0x50}, result.Bytes)
}

func TestMarkdownRendersHTML(t *testing.T) {
	meta := Metadata{Path: "readme.md", Kind: graph.KindStatic, OutExt: ".md"}
	result, err := Markdown()([]byte("# Title\n\nSome *text*.\n"), meta)
	require.NoError(t, err)

	out := string(result.Bytes)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>text</em>")
	assert.Equal(t, ".html", result.Meta.OutExt)
}

func TestNewUnknownStage(t *testing.T) {
	_, err := New("nope", config.Options{})
	require.Error(t, err)
}

func TestNewResolvesAllBuiltins(t *testing.T) {
	for _, name := range []string{
		StagePassthrough, StageJSMin, StageCSSMin, StageAutoprefix,
		StageMarkdown, StageWebP, StageAVIF, StagePNG,
	} {
		tr, err := New(name, config.Options{Minify: true, SourceMaps: true})
		require.NoError(t, err, name)
		require.NotNil(t, tr, name)
	}
}

func TestDefaultDescriptorsImageExclusivity(t *testing.T) {
	r := NewRegistry()
	for _, d := range DefaultDescriptors(config.Options{Minify: true}) {
		require.NoError(t, r.Register(d))
	}

	// format=webp query selects the webp encoder over the default.
	node := &graph.Node{
		Path:  "hero.png",
		Kind:  graph.KindImage,
		Query: map[string]string{"format": "webp"},
		Raw:   []byte{1},
	}
	chain, err := r.Match(node)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, StageWebP, chain[0].Name)

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, ".webp", result.Meta.OutExt)

	// Plain image falls to the passthrough member of the group.
	plain := &graph.Node{Path: "plain.png", Kind: graph.KindImage, Raw: []byte{1}}
	chain, err = r.Match(plain)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "image-default", chain[0].Name)
}

func TestDefaultDescriptorsScriptMinifies(t *testing.T) {
	r := NewRegistry()
	for _, d := range DefaultDescriptors(config.Options{Minify: true}) {
		require.NoError(t, r.Register(d))
	}

	node := &graph.Node{Path: "app.js", Kind: graph.KindScript, Raw: []byte("// c\nlet x = 1;\n")}
	chain, err := r.Match(node)
	require.NoError(t, err)

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;", strings.TrimSpace(string(result.Bytes)))
}
