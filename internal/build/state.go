package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assetpipe/internal/graph"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/stage"
)

// State is the orchestrator's build phase.
type State string

const (
	StateIdle         State = "idle"
	StateDiscovering  State = "discovering"
	StateTransforming State = "transforming"
	StateHashing      State = "hashing"
	StateEmitting     State = "emitting"
	StateFinalizing   State = "finalizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// validTransitions encodes the forward path of the state machine. Failed is
// reachable from any non-Idle state and handled separately.
var validTransitions = map[State]State{
	StateIdle:         StateDiscovering,
	StateDiscovering:  StateTransforming,
	StateTransforming: StateHashing,
	StateHashing:      StateEmitting,
	StateEmitting:     StateFinalizing,
	StateFinalizing:   StateDone,
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// HookPoint names a state-machine transition where lifecycle hooks run.
type HookPoint string

const (
	HookDiscoverComplete  HookPoint = "discover_complete"
	HookTransformComplete HookPoint = "transform_complete"
	HookPreFinalize       HookPoint = "pre_finalize"
	HookPostFinalize      HookPoint = "post_finalize"
)

var knownHookPoints = map[HookPoint]bool{
	HookDiscoverComplete:  true,
	HookTransformComplete: true,
	HookPreFinalize:       true,
	HookPostFinalize:      true,
}

// Hook is a named lifecycle function bound to one hook point. Hooks run in
// registration order; a hook error fails the build.
type Hook struct {
	Name  string
	Point HookPoint
	Fn    func(ctx context.Context, s *Session) error
}

// Session is the build-scoped view handed to lifecycle hooks. Fields are
// populated progressively: Graph after discovery, Results after transforms,
// Artifacts after hashing, Manifest during finalize.
type Session struct {
	BuildID   string
	Graph     *graph.Graph
	Results   map[string]stage.Result
	Artifacts []*Artifact
	Manifest  *manifest.BuildManifest
}

func validateHook(h Hook) error {
	if h.Name == "" {
		return fmt.Errorf("hook requires a name")
	}
	if h.Fn == nil {
		return fmt.Errorf("hook %s requires a function", h.Name)
	}
	if !knownHookPoints[h.Point] {
		return fmt.Errorf("hook %s bound to unknown point %q", h.Name, h.Point)
	}
	return nil
}
