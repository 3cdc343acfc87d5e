// Package task maps workflow activities to language-model tiers.
//
// Planning benefits from a reasoning-heavy model, while summarization and
// context gathering can run on smaller, faster models. The mapping is a
// default: callers can override it per deployment through the selector.
package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type represents the kind of model call a stage is making.
type Type string

const (
	// Planning needs reasoning
	Plan Type = "plan"

	// Standard workflow calls - default tier
	Analyze Type = "analyze"
	Execute Type = "execute"
	Review  Type = "review"

	// Fast calls - can use smaller models
	Gather    Type = "gather"
	Summarize Type = "summarize"
)

// tierMap assigns each task type its model tier. Unlisted types run on
// the default tier.
var tierMap = map[Type]model.Tier{
	Plan:      model.TierThinking,
	Gather:    model.TierFast,
	Summarize: model.TierFast,
}

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Plan:      model.ModelOpus,
	Analyze:   model.ModelSonnet,
	Execute:   model.ModelSonnet,
	Review:    model.ModelSonnet,
	Gather:    model.ModelHaiku,
	Summarize: model.ModelHaiku,
}

// TierForTask returns the tier a task type should run on.
func TierForTask(t Type) model.Tier {
	if tier, ok := tierMap[t]; ok {
		return tier
	}
	return model.TierDefault
}

// NewSelector creates a model selector configured for workflow tasks,
// wired to the standard task-to-tier mapping. Extra options append after
// the tier function so callers can override it.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel picks the model for a task type, preferring the explicit
// map and falling back to tier-based selection.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
