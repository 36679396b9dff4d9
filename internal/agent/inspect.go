package agent

import (
	"darksingularity/internal/knowledge"
	"darksingularity/internal/nn"
	"darksingularity/internal/substrate"
)

const (
	maxCountedWins = 50
	fatigueScore   = 2
)

func (e *Engine) Temperature() float32 { return e.temperature }

// ResonanceDensity summarises how much the engine has consolidated:
// accumulated gravity, counted clear wins and long-term memory strength.
func (e *Engine) ResonanceDensity() float64 {
	density := e.wave.GravityMass() / float64(e.wave.BinWidth())
	for _, count := range e.learned {
		density += 0.1 * float64(min(count, maxCountedWins))
	}
	density += e.wave.MemoryNorm() / substrate.MemoryTargetNorm(e.wave.Dim())
	return density
}

func (e *Engine) NodeStates() []float32 { return nn.States(e.nodes) }

func (e *Engine) InterventionLevel() float32 { return e.regulator.InterventionLevel() }

// ActionScore returns the raw substrate score of a flattened action minus
// twice its fatigue. Out-of-range indices score 0.
func (e *Engine) ActionScore(action int) float32 {
	if action < 0 || action >= e.actionSize {
		return 0
	}
	return e.wave.ActionScores(action, 1, nil)[0] - fatigueScore*e.fatigue[action]
}

// SetNeuronState overrides a node state, clamped to [0, 1]. Unknown nodes
// are ignored.
func (e *Engine) SetNeuronState(node int, value float32) {
	if node < 0 || node >= len(e.nodes) || !nn.Finite(value) {
		return
	}
	e.nodes[node].State = nn.Sat(value, 1, 0)
}

// Rules returns a copy of the symbolic rule set.
func (e *Engine) Rules() []knowledge.Rule { return e.knowledge.Rules() }
