package scape

import (
	"context"
	"errors"
	"math"
	"testing"

	"darksingularity/internal/agent"
)

type constAgent struct {
	action  int
	states  []int
	rewards []float32
}

func (a *constAgent) SelectActions(state int) []int {
	a.states = append(a.states, state)
	return []int{a.action}
}

func (a *constAgent) Learn(reward float32) {
	a.rewards = append(a.rewards, reward)
}

func newEngineFor(t *testing.T, s Scape) *agent.Engine {
	t.Helper()
	shape := s.Shape()
	e, err := agent.NewEngine(shape.StateSize, shape.CategorySizes, agent.DefaultConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestNewResolvesAliases(t *testing.T) {
	cases := map[string]string{
		"law":                          "law",
		"structured_law_sync":          "law",
		"benchmark_rapid_15step_shift": "shift",
		"CHAOS":                        "chaos",
		"observe_expert":               "imitation",
	}
	for in, want := range cases {
		s, err := New(in, Options{})
		if err != nil {
			t.Fatalf("new %q: %v", in, err)
		}
		if s.Name() != want {
			t.Fatalf("new %q resolved to %q want=%q", in, s.Name(), want)
		}
	}
	if _, err := New("tic-tac-toe", Options{}); !errors.Is(err, ErrUnknownScape) {
		t.Fatalf("expected ErrUnknownScape, got %v", err)
	}
}

func TestLawScapeScoresConstantAgent(t *testing.T) {
	var windows []Window
	s := &LawScape{Options: Options{OnWindow: func(w Window) { windows = append(windows, w) }}}
	a := &constAgent{}
	fitness, trace, err := s.Evaluate(context.Background(), a)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Action 0 is correct for states 0 and 1 of every 20.
	if math.Abs(float64(fitness)-0.1) > 1e-9 {
		t.Fatalf("unexpected fitness=%f trace=%+v", fitness, trace)
	}
	if len(a.states) != lawSteps || len(a.rewards) != lawSteps {
		t.Fatalf("expected %d steps, got states=%d rewards=%d", lawSteps, len(a.states), len(a.rewards))
	}
	if len(windows) != lawSteps/lawWindow {
		t.Fatalf("expected %d windows, got=%d", lawSteps/lawWindow, len(windows))
	}
	for _, w := range windows {
		if math.Abs(w.Accuracy-0.1) > 1e-9 {
			t.Fatalf("unexpected window accuracy: %+v", w)
		}
	}
	if a.rewards[0] != 2 || a.rewards[2] != -1 {
		t.Fatalf("unexpected reward protocol: %v", a.rewards[:3])
	}
}

func TestShiftScapeAdvancesOffset(t *testing.T) {
	s := &ShiftScape{}
	a := &constAgent{}
	_, trace, err := s.Evaluate(context.Background(), a)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if trace["shifts"] != 19 {
		t.Fatalf("expected 19 shifts over %d steps, got=%v", shiftSteps, trace["shifts"])
	}
	// First cycle: offset 0, so action 0 hits states 0 and 8.
	for i := 0; i < shiftInterval; i++ {
		want := float32(-2)
		if (i%shiftStates)%shiftActions == 0 {
			want = 3
		}
		if a.rewards[i] != want {
			t.Fatalf("step %d reward=%f want=%f", i, a.rewards[i], want)
		}
	}
}

func TestShiftScapeBeatsChanceWithEngine(t *testing.T) {
	s := &ShiftScape{}
	shape := s.Shape()
	var total float64
	seeds := []int64{1, 2, 3, 4}
	for _, seed := range seeds {
		cfg := agent.DefaultConfig()
		cfg.Seed = seed
		e, err := agent.NewEngine(shape.StateSize, shape.CategorySizes, cfg)
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		fitness, _, err := s.Evaluate(context.Background(), e)
		if err != nil {
			t.Fatalf("evaluate seed=%d: %v", seed, err)
		}
		total += float64(fitness)
	}
	// Chance is 1/8.
	if mean := total / float64(len(seeds)); mean <= 0.2 {
		t.Fatalf("expected mean rapid-shift accuracy above 20%%, got %.3f", mean)
	}
}

func TestLogisticStateInRange(t *testing.T) {
	if LogisticState(0) != 0 || LogisticState(1) != chaosStates-1 {
		t.Fatalf("unexpected endpoints: %d %d", LogisticState(0), LogisticState(1))
	}
	if LogisticState(-0.5) != 0 || LogisticState(2) != chaosStates-1 {
		t.Fatal("expected out-of-range inputs to clamp")
	}
}

func TestChaosScapeVisitsSpreadOfStates(t *testing.T) {
	s := &ChaosScape{Options: Options{Steps: 400, ReportEvery: 100}}
	a := &constAgent{action: 3}
	fitness, trace, err := s.Evaluate(context.Background(), a)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	distinct := map[int]bool{}
	for _, state := range a.states {
		if state < 0 || state >= chaosStates {
			t.Fatalf("state out of range: %d", state)
		}
		distinct[state] = true
	}
	if len(distinct) < 20 {
		t.Fatalf("expected chaotic state sequence, saw %d distinct states", len(distinct))
	}
	if fitness < 0 || fitness > 1 {
		t.Fatalf("fitness out of range: %f", fitness)
	}
	if windows, ok := trace["windows"].([]Window); !ok || len(windows) != 4 {
		t.Fatalf("unexpected windows: %+v", trace["windows"])
	}
	if _, ok := trace["accuracy_after_shift"].(float64); !ok {
		t.Fatalf("trace missing accuracy_after_shift: %+v", trace)
	}
}

func TestImitationScapeWithEngine(t *testing.T) {
	s := &ImitationScape{}
	fitness, trace, err := s.Evaluate(context.Background(), newEngineFor(t, s))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if fitness <= 0.5 {
		t.Fatalf("expected demonstrations to be reproduced, fitness=%f trace=%+v", fitness, trace)
	}
}

func TestImitationScapeRequiresDemonstrator(t *testing.T) {
	if _, _, err := (&ImitationScape{}).Evaluate(context.Background(), &constAgent{}); err == nil {
		t.Fatal("expected error for agent without ObserveExpert")
	}
}

func TestLawScapeRunsEngine(t *testing.T) {
	s := &LawScape{Options: Options{Steps: 100}}
	fitness, trace, err := s.Evaluate(context.Background(), newEngineFor(t, s))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if fitness < 0 || fitness > 1 || trace["steps"] != 100 {
		t.Fatalf("unexpected result fitness=%f trace=%+v", fitness, trace)
	}
}

func TestEvaluateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range []string{"law", "shift", "chaos"} {
		s, err := New(name, Options{})
		if err != nil {
			t.Fatalf("new %s: %v", name, err)
		}
		if _, _, err := s.Evaluate(ctx, &constAgent{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: expected context.Canceled, got %v", name, err)
		}
	}
}
