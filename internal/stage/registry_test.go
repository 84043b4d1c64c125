package stage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/graph"
)

func tagTransform(tag string) Transform {
	return func(data []byte, meta Metadata) (Result, error) {
		return Result{Bytes: append(data, []byte(tag)...), Meta: meta}, nil
	}
}

func scriptNode(path string) *graph.Node {
	return &graph.Node{Path: path, Kind: graph.KindScript}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	require.Error(t, r.Register(Descriptor{Transform: Passthrough(), Predicate: MatchKinds(graph.KindScript)}))
	require.Error(t, r.Register(Descriptor{Name: "x", Predicate: MatchKinds(graph.KindScript)}))
	require.Error(t, r.Register(Descriptor{Name: "x", Transform: Passthrough()}))
	require.Error(t, r.Register(Descriptor{
		Name: "x", Transform: Passthrough(), Predicate: MatchKinds(graph.KindScript), Exclusive: true,
	}))
	require.NoError(t, r.Register(Descriptor{
		Name: "x", Transform: Passthrough(), Predicate: MatchKinds(graph.KindScript),
	}))
}

func TestMatchSortsByDescendingPriority(t *testing.T) {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{Name: "low", Priority: 1, Predicate: MatchKinds(graph.KindScript), Transform: Passthrough()},
		{Name: "high", Priority: 10, Predicate: MatchKinds(graph.KindScript), Transform: Passthrough()},
		{Name: "mid", Priority: 5, Predicate: MatchKinds(graph.KindScript), Transform: Passthrough()},
	} {
		require.NoError(t, r.Register(d))
	}

	chain, err := r.Match(scriptNode("a.js"))
	require.NoError(t, err)

	names := make([]string, len(chain))
	for i, d := range chain {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"high", "mid", "low"}, names)
}

func TestExclusiveGroupKeepsHighestPriority(t *testing.T) {
	r := NewRegistry()
	node := &graph.Node{Path: "logo.png", Kind: graph.KindImage}

	require.NoError(t, r.Register(Descriptor{
		Name: "B", Priority: 5, Exclusive: true, Group: "enc",
		Predicate: MatchKinds(graph.KindImage), Transform: tagTransform("B"),
	}))
	require.NoError(t, r.Register(Descriptor{
		Name: "A", Priority: 10, Exclusive: true, Group: "enc",
		Predicate: MatchKinds(graph.KindImage), Transform: tagTransform("A"),
	}))

	chain, err := r.Match(node)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "A", chain[0].Name)

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, "A", string(result.Bytes))
}

func TestNonExclusiveStagesChainAfterGroupWinner(t *testing.T) {
	r := NewRegistry()
	node := &graph.Node{Path: "pic.png", Kind: graph.KindImage}

	require.NoError(t, r.Register(Descriptor{
		Name: "encode", Priority: 10, Exclusive: true, Group: "enc",
		Predicate: MatchKinds(graph.KindImage), Transform: tagTransform("E"),
	}))
	require.NoError(t, r.Register(Descriptor{
		Name: "inspect", Priority: 1,
		Predicate: MatchKinds(graph.KindImage), Transform: tagTransform("I"),
	}))

	chain, err := r.Match(node)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, "EI", string(result.Bytes))
}

func TestStaticNodeFallsBackToPassthrough(t *testing.T) {
	r := NewRegistry()
	node := &graph.Node{Path: "robots.txt", Kind: graph.KindStatic, Raw: []byte("x")}

	chain, err := r.Match(node)
	require.NoError(t, err)
	require.Len(t, chain, 1)

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, "x", string(result.Bytes))
}

func TestUnmatchedScriptFailsWithNoStageMatched(t *testing.T) {
	r := NewRegistry()
	_, err := r.Match(scriptNode("a.js"))

	var nsm *NoStageMatchedError
	require.ErrorAs(t, err, &nsm)
	assert.Equal(t, "a.js", nsm.NodePath)
	assert.Equal(t, graph.KindScript, nsm.Kind)
}

func TestRunChainWrapsTransformError(t *testing.T) {
	boom := errors.New("bad syntax")
	node := &graph.Node{Path: "broken.js", Kind: graph.KindScript}
	chain := []Descriptor{{
		Name:      "parse",
		Predicate: MatchKinds(graph.KindScript),
		Transform: func([]byte, Metadata) (Result, error) { return Result{}, boom },
	}}

	_, err := RunChain(node, chain)

	var te *TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "broken.js", te.NodePath)
	assert.Equal(t, "parse", te.StageName)
	assert.ErrorIs(t, err, boom)
}

func TestRunChainDoesNotMutateNodeBytes(t *testing.T) {
	node := &graph.Node{Path: "a.js", Kind: graph.KindScript, Raw: []byte("orig")}
	chain := []Descriptor{{
		Name:      "upper",
		Predicate: MatchKinds(graph.KindScript),
		Transform: func(data []byte, meta Metadata) (Result, error) {
			for i := range data {
				data[i] = 'X'
			}
			return Result{Bytes: data, Meta: meta}, nil
		},
	}}

	_, err := RunChain(node, chain)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(node.Raw))
}

func TestRunChainAccumulatesEmitted(t *testing.T) {
	node := &graph.Node{Path: "a.css", Kind: graph.KindStyle, Raw: []byte("b")}
	emitting := func(rel string) Transform {
		return func(data []byte, meta Metadata) (Result, error) {
			return Result{Bytes: data, Meta: meta, Emitted: []Emitted{{Rel: rel, Bytes: []byte(rel)}}}, nil
		}
	}
	chain := []Descriptor{
		{Name: "one", Predicate: MatchKinds(graph.KindStyle), Transform: emitting("first")},
		{Name: "two", Predicate: MatchKinds(graph.KindStyle), Transform: emitting("second")},
	}

	result, err := RunChain(node, chain)
	require.NoError(t, err)
	require.Len(t, result.Emitted, 2)
	assert.Equal(t, "first", result.Emitted[0].Rel)
	assert.Equal(t, "second", result.Emitted[1].Rel)
}
