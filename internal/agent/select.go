package agent

import (
	"math"
	"slices"

	"darksingularity/internal/knowledge"
	"darksingularity/internal/nn"
)

const (
	trailStart      = 0.4
	trailFloor      = 0.1
	noiseBins       = 8
	noiseAmplitude  = 0.05
	jitterScale     = 5
	excludedPenalty = 1e6
	maxRuleBonus    = 8
	ruleBonusRate   = 3
	penaltyWeight   = 0.5
	moraleWeight    = 0.1
	sharpenOffset   = 10
)

// SetActiveConditions replaces the symbolic conditions consulted during
// selection. While any are set, selections skip exploration noise and do not
// update learned rules. With none set, the selected state itself is the only
// condition consulted.
func (e *Engine) SetActiveConditions(conditions []int32) {
	e.active = slices.Clone(conditions)
}

func (e *Engine) conditionsFor(state int) []int32 {
	if len(e.active) > 0 {
		return e.active
	}
	return []int32{int32(state)}
}

// SelectActions returns one action index per category, local to that
// category. Out-of-range states are clamped.
func (e *Engine) SelectActions(state int) []int {
	state = e.clampState(state)

	// Explicit conditions mark the step as symbolic; the state fallback only
	// does once a rule fires on it.
	field := e.knowledge.ResonanceField(e.conditionsFor(state), e.actionSize)
	guided := len(e.active) > 0 || knowledge.Fired(field)

	row := slices.Clone(e.penaltyRow(state))
	for a, r := range field {
		if !r.Present || r.Strength >= 0 {
			continue
		}
		start, end := e.wave.ActionBins(a)
		for b := start; b < end; b++ {
			row[b] += -r.Strength
		}
	}

	e.wave.InjectState(state, 1, row)
	weight := float32(trailStart)
	for i := len(e.inputHistory) - 1; i >= 0 && weight >= trailFloor; i-- {
		e.wave.InjectState(e.inputHistory[i], weight, row)
		weight *= 0.5
	}
	if !guided {
		e.wave.InjectNoise(e.rng, noiseAmplitude*e.temperature, noiseBins)
	}

	speedBoost := e.adrenaline * 0.5
	focus := e.nodes[nn.NodeTactical].State
	e.wave.Step(e.cfg.DT, speedBoost, focus, e.temperature, row)
	e.pushInput(state)

	exponent := float64(nn.Sat(sharpenOffset-4*e.temperature, 10, 1))
	local := make([]int, len(e.categorySizes))
	flat := make([]int, len(e.categorySizes))
	for cat, size := range e.categorySizes {
		offset := e.offsets[cat]
		scores := e.categoryScores(state, offset, size, field, row, guided)

		best := 0
		bestScore := math.Inf(-1)
		for i, s := range scores {
			sharpened := s
			if base := s + sharpenOffset; base > 0 {
				sharpened = math.Pow(base, exponent)
			}
			if sharpened > bestScore {
				bestScore = sharpened
				best = i
			}
		}
		local[cat] = best
		flat[cat] = offset + best
	}

	e.pushExperience(experience{state: state, actions: flat, guided: guided})
	return local
}

func (e *Engine) categoryScores(state, offset, size int, field []knowledge.Resonance, row []float32, guided bool) []float64 {
	wave := e.wave.ActionScores(offset, size, row)
	var maxWave float32
	for _, w := range wave {
		maxWave = max(maxWave, w)
	}

	scores := make([]float64, size)
	for i := range scores {
		a := offset + i
		var s float64
		if maxWave > 0 {
			s = float64(e.cfg.WaveGain) * float64(wave[i]/maxWave)
		}
		if !guided {
			s += float64(e.explorationBeta*e.temperature*jitterScale) * e.rng.Float64()
		}
		s -= float64(e.fatigue[a])
		start, end := e.wave.ActionBins(a)
		s -= penaltyWeight * float64(nn.Avg(row[start:end]))

		if r := field[a]; r.Present {
			if r.Excluded() {
				s -= excludedPenalty
			} else {
				s += float64(e.cfg.KnowledgeWeight * r.Strength)
			}
		}
		if count := e.learned[ruleKey{state: state, action: a}]; count > 0 {
			s += math.Min(maxRuleBonus, ruleBonusRate*float64(count))
		}

		switch i {
		case 0:
			s += float64(e.nodes[nn.NodeAggression].State * 0.4)
		case 1:
			s += float64(e.nodes[nn.NodeFear].State * 0.2)
		}
		s += float64(e.cfg.MomentumWeight * e.momentum[a])
		s += moraleWeight * float64(e.morale)
		scores[i] = s
	}
	return scores
}
