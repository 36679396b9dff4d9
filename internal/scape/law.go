package scape

import (
	"context"

	"darksingularity/internal/model"
	"darksingularity/internal/scapeid"
)

// LawScape cycles through states and rewards the stable mapping
// action = (state / 2) mod actions.
type LawScape struct {
	Options
}

const (
	lawStates  = 20
	lawActions = 10
	lawSteps   = 200
	lawWindow  = 20
)

func (*LawScape) Name() string { return scapeid.Law }

func (*LawScape) Shape() model.Shape {
	return model.Shape{StateSize: lawStates, CategorySizes: []int{lawActions}}
}

func (s *LawScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	t := newTally(s.window(lawWindow), s.OnWindow)
	for i := 0; i < s.steps(lawSteps); i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		state := i % lawStates
		hit := selectFirst(agent, state) == (state/2)%lawActions
		t.record(hit)
		if hit {
			agent.Learn(2)
		} else {
			agent.Learn(-1)
		}
	}
	return Fitness(t.accuracy()), t.trace(s.Name()), nil
}

// ShiftScape rewards action = (state + offset) mod actions, where offset
// advances by two every Interval steps.
type ShiftScape struct {
	Options
	Interval int
}

const (
	shiftStates   = 10
	shiftActions  = 8
	shiftSteps    = 300
	shiftInterval = 15
)

func (*ShiftScape) Name() string { return scapeid.Shift }

func (*ShiftScape) Shape() model.Shape {
	return model.Shape{StateSize: shiftStates, CategorySizes: []int{shiftActions}}
}

func (s *ShiftScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = shiftInterval
	}
	t := newTally(s.window(interval), s.OnWindow)
	offset := 0
	shifts := 0
	for i := 0; i < s.steps(shiftSteps); i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		if i > 0 && i%interval == 0 {
			offset = (offset + 2) % shiftActions
			shifts++
		}
		state := i % shiftStates
		hit := selectFirst(agent, state) == (state+offset)%shiftActions
		t.record(hit)
		if hit {
			agent.Learn(3)
		} else {
			agent.Learn(-2)
		}
	}
	trace := t.trace(s.Name())
	trace["shifts"] = shifts
	return Fitness(t.accuracy()), trace, nil
}
