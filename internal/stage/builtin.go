package stage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

// Builtin stage names referenced from configuration rules.
const (
	StagePassthrough = "passthrough"
	StageJSMin       = "jsmin"
	StageCSSMin      = "cssmin"
	StageAutoprefix  = "autoprefix"
	StageMarkdown    = "markdown"
	StageWebP        = "webp"
	StageAVIF        = "avif"
	StagePNG         = "png"
)

// ImageEncoder is the contract for format-specific image encoding. Codec
// internals are delegated to external plugins; the builtin encoders only
// re-tag the output extension and hand the bytes through.
type ImageEncoder func(data []byte) ([]byte, error)

func identityEncoder(data []byte) ([]byte, error) { return data, nil }

// New resolves a builtin stage name to its transform, honoring global
// options (source map emission).
func New(name string, opts config.Options) (Transform, error) {
	switch name {
	case StagePassthrough:
		return Passthrough(), nil
	case StageJSMin:
		return MinifyJS(opts.SourceMaps), nil
	case StageCSSMin:
		return MinifyCSS(opts.SourceMaps), nil
	case StageAutoprefix:
		return Autoprefix(), nil
	case StageMarkdown:
		return Markdown(), nil
	case StageWebP:
		return EncodeImage(".webp", identityEncoder), nil
	case StageAVIF:
		return EncodeImage(".avif", identityEncoder), nil
	case StagePNG:
		return EncodeImage(".png", identityEncoder), nil
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

// Passthrough hands bytes through unchanged.
func Passthrough() Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		return Result{Bytes: data, Meta: meta}, nil
	}
}

func passthroughDescriptor() Descriptor {
	return Descriptor{
		Name:      StagePassthrough,
		Predicate: func(*graph.Node) bool { return true },
		Transform: Passthrough(),
	}
}

var (
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssWhitespaceAround = regexp.MustCompile(`\s*([{};:,>])\s*`)
	cssCollapseSpaces   = regexp.MustCompile(`\s+`)
)

// stripJSComments removes // and /* */ comments while tracking string and
// template-literal state, so comment markers inside literals survive.
// Regular-expression literals are not tracked.
func stripJSComments(src string) string {
	const (
		code = iota
		inSingle
		inDouble
		inBacktick
		inLine
		inBlock
	)

	var b strings.Builder
	b.Grow(len(src))
	state := code

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch c {
			case '\'':
				state = inSingle
			case '"':
				state = inDouble
			case '`':
				state = inBacktick
			case '/':
				if i+1 < len(src) && src[i+1] == '/' {
					state = inLine
					i++
					continue
				}
				if i+1 < len(src) && src[i+1] == '*' {
					state = inBlock
					i++
					continue
				}
			}
			b.WriteByte(c)
		case inSingle, inDouble, inBacktick:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
				continue
			}
			if (state == inSingle && c == '\'') ||
				(state == inDouble && c == '"') ||
				(state == inBacktick && c == '`') {
				state = code
			}
		case inLine:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			}
		case inBlock:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = code
				i++
			}
		}
	}
	return b.String()
}

// MinifyJS strips comments and insignificant whitespace from script
// sources. When sourceMaps is set, a sibling .map artifact is emitted.
func MinifyJS(sourceMaps bool) Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		src := stripJSComments(string(data))

		var out []string
		for _, line := range strings.Split(src, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}

		result := Result{Bytes: []byte(strings.Join(out, "\n")), Meta: meta}
		if sourceMaps {
			m, err := sourceMap(meta.Path)
			if err != nil {
				return Result{}, err
			}
			result.Emitted = append(result.Emitted, Emitted{Rel: "map", Bytes: m, Attached: true})
		}
		return result, nil
	}
}

// MinifyCSS collapses whitespace and strips comments from style sheets.
func MinifyCSS(sourceMaps bool) Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		css := blockCommentPattern.ReplaceAllString(string(data), "")
		css = cssCollapseSpaces.ReplaceAllString(css, " ")
		css = cssWhitespaceAround.ReplaceAllString(css, "$1")
		css = strings.ReplaceAll(css, ";}", "}")
		css = strings.TrimSpace(css)

		result := Result{Bytes: []byte(css), Meta: meta}
		if sourceMaps {
			m, err := sourceMap(meta.Path)
			if err != nil {
				return Result{}, err
			}
			result.Emitted = append(result.Emitted, Emitted{Rel: "map", Bytes: m, Attached: true})
		}
		return result, nil
	}
}

// prefixableProperties lists properties that still need vendor prefixes in
// the supported browser matrix.
var prefixableProperties = []string{
	"user-select",
	"appearance",
	"backdrop-filter",
	"text-size-adjust",
}

var declPattern = regexp.MustCompile(`(?m)^(\s*)([a-z-]+)(\s*:\s*[^;{}]+;?)$`)

// Autoprefix injects vendor-prefixed copies of declarations for a fixed
// property set. Runs before minification so the prefixed lines are subject
// to the same whitespace rules.
func Autoprefix() Transform {
	prefixable := make(map[string]bool, len(prefixableProperties))
	for _, p := range prefixableProperties {
		prefixable[p] = true
	}

	return func(data []byte, meta Metadata) (Result, error) {
		out := declPattern.ReplaceAllStringFunc(string(data), func(match string) string {
			sub := declPattern.FindStringSubmatch(match)
			indent, prop, rest := sub[1], sub[2], sub[3]
			if !prefixable[prop] {
				return match
			}
			return fmt.Sprintf("%s-webkit-%s%s\n%s-moz-%s%s\n%s", indent, prop, rest, indent, prop, rest, match)
		})
		return Result{Bytes: []byte(out), Meta: meta}, nil
	}
}

// EncodeImage re-tags the artifact extension for a format-specific encoder.
func EncodeImage(ext string, encode ImageEncoder) Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		encoded, err := encode(data)
		if err != nil {
			return Result{}, err
		}
		meta.OutExt = ext
		return Result{Bytes: encoded, Meta: meta}, nil
	}
}

// sourceMap builds the minimal debug map emitted next to minified output.
func sourceMap(source string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"version":  3,
		"sources":  []string{source},
		"mappings": "",
	})
}

// DefaultDescriptors returns the stage set used when the configuration
// declares no explicit rules. Image formats form one exclusive group so
// exactly one encoder runs per image node.
func DefaultDescriptors(opts config.Options) []Descriptor {
	var scriptChain, styleChain []Transform
	styleChain = append(styleChain, Autoprefix())
	if opts.Minify {
		scriptChain = append(scriptChain, MinifyJS(opts.SourceMaps))
		styleChain = append(styleChain, MinifyCSS(opts.SourceMaps))
	} else {
		scriptChain = append(scriptChain, Passthrough())
	}

	return []Descriptor{
		{
			Name:      "script-default",
			Predicate: MatchKinds(graph.KindScript),
			Transform: Compose(scriptChain...),
		},
		{
			Name:      "style-default",
			Predicate: MatchKinds(graph.KindStyle),
			Transform: Compose(styleChain...),
		},
		{
			Name:      StageMarkdown,
			Predicate: MatchExtensions(".md", ".markdown"),
			Transform: Markdown(),
			Priority:  10,
		},
		{
			Name:      StageWebP,
			Predicate: And(MatchKinds(graph.KindImage), MatchQuery(map[string]string{"format": "webp"})),
			Transform: EncodeImage(".webp", identityEncoder),
			Priority:  10,
			Exclusive: true,
			Group:     "image-encode",
		},
		{
			Name:      StageAVIF,
			Predicate: And(MatchKinds(graph.KindImage), MatchQuery(map[string]string{"format": "avif"})),
			Transform: EncodeImage(".avif", identityEncoder),
			Priority:  9,
			Exclusive: true,
			Group:     "image-encode",
		},
		{
			Name:      "image-default",
			Predicate: MatchKinds(graph.KindImage),
			Transform: Passthrough(),
			Priority:  1,
			Exclusive: true,
			Group:     "image-encode",
		},
	}
}
