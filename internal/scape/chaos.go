package scape

import (
	"context"

	"darksingularity/internal/model"
	"darksingularity/internal/scapeid"
)

// ChaosScape draws states from the logistic map x' = r*x*(1-x) and rewards
// action = (state + offset) mod actions. The offset jumps once, halfway
// through the run.
type ChaosScape struct {
	Options
}

const (
	chaosStates  = 100
	chaosActions = 20
	chaosSteps   = 2000
	chaosWindow  = 200
	chaosR       = 3.99
	chaosX0      = 0.7
	chaosOffset  = 7
)

func (*ChaosScape) Name() string { return scapeid.Chaos }

func (*ChaosScape) Shape() model.Shape {
	return model.Shape{StateSize: chaosStates, CategorySizes: []int{chaosActions}}
}

// LogisticState maps x in [0, 1] onto a state index.
func LogisticState(x float64) int {
	state := int(x * (chaosStates - 1))
	return min(max(state, 0), chaosStates-1)
}

func (s *ChaosScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	steps := s.steps(chaosSteps)
	t := newTally(s.window(chaosWindow), s.OnWindow)
	x := chaosX0
	offset := 0
	var before, after tally
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		x = chaosR * x * (1 - x)
		state := LogisticState(x)
		if i == steps/2 {
			offset = chaosOffset
		}

		hit := selectFirst(agent, state) == (state+offset)%chaosActions
		t.record(hit)
		if offset == 0 {
			before.steps++
			if hit {
				before.hits++
			}
		} else {
			after.steps++
			if hit {
				after.hits++
			}
		}
		if hit {
			agent.Learn(3)
		} else {
			agent.Learn(-1.5)
		}
	}
	trace := t.trace(s.Name())
	trace["accuracy_before_shift"] = before.accuracy()
	trace["accuracy_after_shift"] = after.accuracy()
	return Fitness(t.accuracy()), trace, nil
}
