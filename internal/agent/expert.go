package agent

import "darksingularity/internal/nn"

const (
	expertRuleThreshold = 0.5
	expertRuleRate      = 0.1
)

// ObserveExpert imitates a demonstrated choice: actions holds one local
// index per category. The substrate is phase-aligned toward each action and,
// for confident demonstrations, the (state, action) knowledge rule is
// reinforced and its penalty halved. The observation is queued as the latest
// selection so a following Learn credits it.
func (e *Engine) ObserveExpert(state int, actions []int, strength float32) {
	if !nn.Finite(strength) {
		return
	}
	state = e.clampState(state)
	flat := e.flatten(actions)
	if len(flat) == 0 {
		return
	}

	row := e.penaltyRow(state)
	for _, a := range flat {
		e.wave.AlignToAction(a, strength)
		if strength > expertRuleThreshold {
			e.knowledge.Reinforce(int32(state), a, expertRuleRate*strength)
			start, end := e.wave.ActionBins(a)
			nn.Decay(row[start:end], 0.5)
		}
	}
	e.pushInput(state)
	e.pushExperience(experience{state: state, actions: flat, guided: true})
}

// AddKnowledgeRule registers a symbolic rule on a flattened action index.
// Strengths at or below -0.8 exclude the action whenever the condition is
// active.
func (e *Engine) AddKnowledgeRule(conditionID int32, action int, strength float32) {
	if action < 0 || action >= e.actionSize || !nn.Finite(strength) {
		return
	}
	e.knowledge.AddRule(conditionID, action, strength)
}

// Entangle couples two substrate dimensions; see substrate.Wave.Entangle.
func (e *Engine) Entangle(source, target int, strength float32) bool {
	return e.wave.Entangle(source, target, strength)
}
