package scape

import (
	"context"
	"fmt"

	"darksingularity/internal/model"
	"darksingularity/internal/scapeid"
)

// ImitationScape demonstrates action = state for every state without ever
// rewarding, then measures how often the agent reproduces the demonstration.
type ImitationScape struct {
	Options
}

const (
	imitationStates = 10
	imitationSteps  = 50
)

func (*ImitationScape) Name() string { return scapeid.Imitation }

func (*ImitationScape) Shape() model.Shape {
	return model.Shape{StateSize: imitationStates, CategorySizes: []int{imitationStates}}
}

// Evaluate runs Steps demonstrations followed by one probe per state.
func (s *ImitationScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	demo, ok := agent.(Demonstrator)
	if !ok {
		return 0, nil, fmt.Errorf("imitation scape requires an agent that observes demonstrations, got %T", agent)
	}
	demonstrations := s.steps(imitationSteps)
	for i := 0; i < demonstrations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		state := i % imitationStates
		demo.ObserveExpert(state, []int{state}, 1)
	}

	t := newTally(s.window(imitationStates), s.OnWindow)
	for state := 0; state < imitationStates; state++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		t.record(selectFirst(agent, state) == state)
	}
	trace := t.trace(s.Name())
	trace["demonstrations"] = demonstrations
	return Fitness(t.accuracy()), trace, nil
}
