package agent

import (
	"math"

	"darksingularity/internal/nn"
)

const (
	discountFloor = 0.01

	fatigueFailure = 0.2
	fatigueSuccess = 0.3
	fatigueDecay   = 0.98
	penaltyDecay   = 0.995
	penaltyGrowth  = 0.2
	maxPenalty     = 3.0

	momentumTrigger = 0.1
	momentumReset   = -0.5
	momentumDecay   = 0.95
	maxMomentum     = 2.0

	baselineRate   = 0.1
	pulseGain      = 0.05
	solidReward    = 1.5
	solidTemp      = 0.05
	reshapeDelta   = 0.05
	reshapeUrgency = 0.5
)

// Learn credits reward to the selections since the previous call, newest
// first with discount gamma, then digests it into temperature, affect and
// node state. The experience buffer is cleared afterwards.
func (e *Engine) Learn(reward float32) {
	if !nn.Finite(reward) {
		reward = 0
	}
	tdError := reward - e.rewardBaseline
	e.rewardBaseline += baselineRate * (reward - e.rewardBaseline)

	discount := float32(1)
	for i := len(e.experience) - 1; i >= 0 && discount >= discountFloor; i-- {
		x := e.experience[i]
		credited := reward * discount
		e.wave.Adapt(credited, x.actions, e.temperature)
		if !x.guided {
			e.updateRules(x, credited)
		}
		e.updateFatigue(x.actions, reward, discount)
		if reward > momentumTrigger {
			for _, a := range x.actions {
				e.momentum[a] += 0.5 * discount * min(reward, 2)
			}
		}
		discount *= e.cfg.Gamma
	}

	if reward < momentumReset {
		nn.Decay(e.momentum, 0.2)
	}
	nn.Decay(e.momentum, momentumDecay)
	for i, m := range e.momentum {
		e.momentum[i] = nn.SaturationWithSpread(m, maxMomentum)
	}
	nn.Decay(e.penalty, penaltyDecay)
	nn.Decay(e.fatigue, fatigueDecay)

	var penalty float32
	if reward < 0 {
		penalty = -reward
	}
	e.DigestExperience(tdError, reward, penalty)
	e.experience = e.experience[:0]
}

// updateRules counts clear wins toward learned rules and moves the state's
// penalty field for the acted-on bins.
func (e *Engine) updateRules(x experience, credited float32) {
	row := e.penaltyRow(x.state)
	for _, a := range x.actions {
		start, end := e.wave.ActionBins(a)
		switch {
		case credited > e.cfg.ClearWinThreshold:
			key := ruleKey{state: x.state, action: a}
			if e.learned[key] < math.MaxUint32 {
				e.learned[key]++
			}
			nn.Decay(row[start:end], 0.5)
		case credited < 0:
			grow := penaltyGrowth * min(-credited, 3)
			for b := start; b < end; b++ {
				row[b] = min(row[b]+grow, maxPenalty)
			}
		}
	}
}

func (e *Engine) updateFatigue(actions []int, reward, discount float32) {
	for _, a := range actions {
		switch {
		case reward < 0:
			e.fatigue[a] += fatigueFailure * discount
		case reward > 0:
			e.fatigue[a] -= fatigueSuccess * discount
		}
		e.fatigue[a] = nn.Sat(e.fatigue[a], 1, 0)
	}
}

// DigestExperience folds one learning signal into temperature, affect and
// the node network, then lets the regulator damp any runaway excitation.
func (e *Engine) DigestExperience(tdError, reward, penalty float32) {
	if !nn.Finite(tdError) {
		tdError = 0
	}
	if !nn.Finite(reward) {
		reward = 0
	}
	if !nn.Finite(penalty) || penalty < 0 {
		penalty = 0
	}

	switch {
	case reward > solidReward:
		e.temperature = solidTemp
	case reward > 0:
		e.temperature *= float32(math.Exp(-0.5 * float64(reward)))
	default:
		e.temperature = min(maxTemperature, e.temperature+0.25*abs32(tdError))
	}
	e.temperature = nn.Sat(e.temperature, maxTemperature, 0)

	e.updateAffect(tdError, reward, penalty)

	e.wave.Pulse(0, pulseGain*reward)
	e.wave.Pulse(1, pulseGain*penalty)
	e.wave.Step(e.cfg.DT, e.adrenaline*0.5, e.nodes[nn.NodeTactical].State, e.temperature, nil)

	urgency := nn.Sat(5*(reward+penalty), 1, 0)
	inputs := make([]float32, nn.NodeCount)
	inputs[nn.NodeAggression] = max(0, reward)*0.1 + e.adrenaline*0.2
	inputs[nn.NodeFear] = penalty * 0.3
	inputs[nn.NodeTactical] = (1 - e.temperature/2) * 0.2
	nn.UpdateAll(e.nodes, inputs, urgency, e.temperature)

	if urgency > reshapeUrgency || abs32(e.temperature-e.lastTopologyTemperature) > reshapeDelta {
		e.ReshapeTopology()
	}
	e.regulator.Regulate(e.temperature, allNodes(len(e.nodes)), e.nodes)
}

func (e *Engine) updateAffect(tdError, reward, penalty float32) {
	e.adrenaline = nn.Sat(0.9*e.adrenaline+0.1*min(1, abs32(reward)), 1, 0)
	if reward < 0 {
		e.frustration = nn.Sat(e.frustration+0.1*penalty, 1, 0)
		e.patience = nn.Sat(e.patience-0.05, 1, 0)
	} else {
		e.frustration *= 0.9
		e.patience = nn.Sat(e.patience+0.02, 1, 0)
	}
	e.morale = nn.Sat(0.95*e.morale+0.05*float32(math.Tanh(float64(reward))), 1, -1)
	e.velocityTrust = nn.Sat(0.9*e.velocityTrust+0.1*(1-min(1, abs32(tdError))), 1, 0)
}

// ReshapeTopology rewires the node synapses with the configured strategy
// and weakens pathways fed by over-used actions.
func (e *Engine) ReshapeTopology() {
	e.reshape(false)
}

func (e *Engine) reshape(wiringOnly bool) {
	e.lastTopologyTemperature = e.temperature
	e.topology.Reshape(nn.TopologyInput{
		Nodes:        e.nodes,
		Temperature:  e.temperature,
		Adrenaline:   e.adrenaline,
		Frustration:  e.frustration,
		Intervention: e.regulator.InterventionLevel(),
		Fatigue:      e.fatigue,
		WiringOnly:   wiringOnly,
	})
	nn.ApplyElasticFatigue(e.nodes, e.fatigue)
}

func allNodes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
