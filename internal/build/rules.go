package build

import (
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/errors"
	"git.home.luguber.info/inful/assetpipe/internal/graph"
	"git.home.luguber.info/inful/assetpipe/internal/stage"
)

// BuildRegistry turns configuration rules into a populated stage registry.
// With no rules configured the builtin default stage set is used. The
// returned names feed the build signature.
func BuildRegistry(cfg *config.Config) (*stage.Registry, []string, error) {
	reg := stage.NewRegistry()
	var names []string

	if len(cfg.Rules) == 0 {
		for _, d := range stage.DefaultDescriptors(cfg.Options) {
			if err := reg.Register(d); err != nil {
				return nil, nil, errors.WrapError(err, errors.CategoryInternal, "failed to register default stage")
			}
			names = append(names, d.Name)
		}
		return reg, names, nil
	}

	for i, rule := range cfg.Rules {
		transforms := make([]stage.Transform, 0, len(rule.Stages))
		for _, stageName := range rule.Stages {
			t, err := stage.New(stageName, cfg.Options)
			if err != nil {
				return nil, nil, errors.WrapError(err, errors.CategoryConfig, "rule references unknown stage").
					WithContext("rule_index", i).
					WithContext("stage", stageName)
			}
			transforms = append(transforms, t)
		}

		name := strings.Join(rule.Stages, "+")
		d := stage.Descriptor{
			Name:      name,
			Predicate: rulePredicate(rule),
			Transform: stage.Compose(transforms...),
			Priority:  rule.Priority,
			Exclusive: rule.Exclusive,
			Group:     rule.Group,
		}
		if err := reg.Register(d); err != nil {
			return nil, nil, errors.WrapError(err, errors.CategoryConfig, "invalid rule").
				WithContext("rule_index", i)
		}
		names = append(names, name)
	}

	return reg, names, nil
}

func rulePredicate(rule config.Rule) stage.Predicate {
	var preds []stage.Predicate
	if len(rule.Extensions) > 0 {
		preds = append(preds, stage.MatchExtensions(rule.Extensions...))
	}
	if len(rule.Kinds) > 0 {
		kinds := make([]graph.Kind, len(rule.Kinds))
		for i, k := range rule.Kinds {
			kinds[i] = graph.Kind(k)
		}
		preds = append(preds, stage.MatchKinds(kinds...))
	}
	if len(rule.Query) > 0 {
		preds = append(preds, stage.MatchQuery(rule.Query))
	}
	if len(preds) == 0 {
		return func(*graph.Node) bool { return true }
	}
	return stage.And(preds...)
}
