// Package scape holds the benchmark environments an engine is evaluated
// against. Each scape drives an agent through a fixed state/reward protocol
// and reports accuracy as fitness.
package scape

import (
	"context"
	"errors"
	"fmt"

	"darksingularity/internal/model"
	"darksingularity/internal/scapeid"
)

type Fitness float64

type Trace map[string]any

// Agent is the decision surface a scape drives.
type Agent interface {
	SelectActions(state int) []int
	Learn(reward float32)
}

// Demonstrator is an agent that can learn from observed expert choices.
type Demonstrator interface {
	Agent
	ObserveExpert(state int, actions []int, strength float32)
}

type Scape interface {
	Name() string
	// Shape is the engine geometry the scape expects.
	Shape() model.Shape
	Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error)
}

// Window summarises accuracy over one reporting window.
type Window struct {
	End      int     `json:"end"`
	Accuracy float64 `json:"accuracy"`
}

// Options tune a run. Zero values fall back to the scape's own defaults.
type Options struct {
	Steps       int
	ReportEvery int
	// OnWindow is called after every completed window.
	OnWindow func(Window)
}

var ErrUnknownScape = errors.New("unknown scape")

// New resolves name (aliases accepted) to a scape.
func New(name string, opts Options) (Scape, error) {
	switch scapeid.Normalize(name) {
	case scapeid.Law:
		return &LawScape{Options: opts}, nil
	case scapeid.Shift:
		return &ShiftScape{Options: opts}, nil
	case scapeid.Chaos:
		return &ChaosScape{Options: opts}, nil
	case scapeid.Imitation:
		return &ImitationScape{Options: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScape, name)
	}
}

func (o Options) steps(def int) int {
	if o.Steps > 0 {
		return o.Steps
	}
	return def
}

func (o Options) window(def int) int {
	if o.ReportEvery > 0 {
		return o.ReportEvery
	}
	return def
}

// tally accumulates hits overall and per reporting window.
type tally struct {
	windowSize int
	onWindow   func(Window)

	steps      int
	hits       int
	windowHits int
	windows    []Window
}

func newTally(windowSize int, onWindow func(Window)) *tally {
	return &tally{windowSize: windowSize, onWindow: onWindow}
}

func (t *tally) record(hit bool) {
	t.steps++
	if hit {
		t.hits++
		t.windowHits++
	}
	if t.steps%t.windowSize == 0 {
		w := Window{End: t.steps, Accuracy: float64(t.windowHits) / float64(t.windowSize)}
		t.windows = append(t.windows, w)
		t.windowHits = 0
		if t.onWindow != nil {
			t.onWindow(w)
		}
	}
}

func (t *tally) accuracy() float64 {
	if t.steps == 0 {
		return 0
	}
	return float64(t.hits) / float64(t.steps)
}

func (t *tally) trace(name string) Trace {
	return Trace{
		"scape":    name,
		"steps":    t.steps,
		"hits":     t.hits,
		"accuracy": t.accuracy(),
		"windows":  t.windows,
	}
}

// selectFirst returns the first category's choice, or -1 when the agent
// returned nothing.
func selectFirst(agent Agent, state int) int {
	actions := agent.SelectActions(state)
	if len(actions) == 0 {
		return -1
	}
	return actions[0]
}
