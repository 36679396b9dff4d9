package substrate

import (
	"math"

	"darksingularity/internal/nn"
)

const (
	neighbourWeight    = 0.2
	strongReward       = 2.0
	gravityEvaporate   = 0.999
	gravityGainRate    = 0.05
	gravityInertia     = 0.8
	detuneRate         = 0.002
	maxRewardMagnitude = 3.0
)

// LearningRate anneals with temperature: hot systems re-tune faster.
func LearningRate(temperature float32) float64 {
	t := float64(nn.Sat(temperature, 2, 0))
	return 0.05 * (0.25 + 0.5*t)
}

// Adapt phase-locks theta over the bins of each acted-on action (weight 1)
// and its wrap-around neighbours (weight 0.2): toward the current phase of
// psi on reward, toward the opposite phase on punishment. Regions with high
// gravity resist change. Gravity evaporates by 0.999 on every call.
func (w *Wave) Adapt(reward float32, actions []int, temperature float32) {
	if !nn.Finite(reward) {
		reward = 0
	}
	lr := LearningRate(temperature)
	magnitude := math.Min(math.Abs(float64(reward)), maxRewardMagnitude)

	if reward != 0 {
		for _, action := range actions {
			if action < 0 || action >= w.actionSize {
				continue
			}
			for _, t := range w.neighbourhood(action) {
				w.adaptAction(t.action, t.weight, reward, magnitude, lr)
			}
		}
	}

	if reward > strongReward {
		w.ImprintMemory(w.psiReal, w.psiImag, 0.1*reward)
	}

	nn.Decay(w.gravity, gravityEvaporate)
	w.normalize(TargetNorm(temperature))
}

type weightedAction struct {
	action int
	weight float64
}

func (w *Wave) neighbourhood(action int) []weightedAction {
	out := []weightedAction{{action: action, weight: 1}}
	if w.actionSize < 2 {
		return out
	}
	left := (action - 1 + w.actionSize) % w.actionSize
	right := (action + 1) % w.actionSize
	out = append(out, weightedAction{action: left, weight: neighbourWeight})
	if right != left {
		out = append(out, weightedAction{action: right, weight: neighbourWeight})
	}
	return out
}

func (w *Wave) adaptAction(action int, weight float64, reward float32, magnitude, lr float64) {
	start, end := w.ActionBins(action)
	for bin := start; bin < end; bin++ {
		re, im := float64(w.psiReal[bin]), float64(w.psiImag[bin])
		phase := 0.0
		if math.Hypot(re, im) > 1e-9 {
			phase = math.Atan2(im, re)
		}
		if reward < 0 {
			phase += math.Pi
		}

		inertia := 1 - gravityInertia*float64(w.gravity[bin])
		theta := float64(w.theta[bin])
		delta := nn.WrapPhase(phase - theta)
		w.theta[bin] = float32(nn.WrapPhase(theta + lr*weight*magnitude*inertia*delta))

		visc := &w.theta[w.dim+bin]
		if reward > 0 {
			nudge := lr * weight * float64(reward) * 0.1
			w.psiReal[bin] += float32(nudge * math.Cos(float64(w.theta[bin])))
			w.psiImag[bin] += float32(nudge * math.Sin(float64(w.theta[bin])))
			*visc = nn.Sat(*visc*float32(1-0.05*weight), maxViscosity, minViscosity)
			if reward > strongReward && weight == 1 {
				w.gravity[bin] = nn.Sat(w.gravity[bin]+gravityGainRate*reward, 1, 0)
			}
			continue
		}

		*visc = nn.Sat(*visc+float32(0.002*weight*magnitude), maxViscosity, minViscosity)
		w.gravity[bin] *= float32(1 - 0.1*weight)
		w.detune(bin, detuneRate*weight*magnitude)
	}
}

// detune raises one frequency while keeping it inside the midpoints to its
// neighbours so the spectrum stays monotonic.
func (w *Wave) detune(i int, rate float64) {
	f := float64(w.frequencies[i])
	next := f * (1 + rate)
	if i+1 < w.dim {
		next = math.Min(next, (f+float64(w.frequencies[i+1]))/2)
	} else if i > 0 {
		next = math.Min(next, f+(f-float64(w.frequencies[i-1]))/2)
	}
	detuned := float32(next)
	if detuned <= w.frequencies[i] {
		return
	}
	if i+1 < w.dim && detuned >= w.frequencies[i+1] {
		return
	}
	w.frequencies[i] = detuned
}

// AlignToAction pulls an action's bins toward canonical phase 0 without a
// reward signal: theta toward 0, imaginary part damped, real part and gravity
// nudged up.
func (w *Wave) AlignToAction(action int, strength float32) {
	if action < 0 || action >= w.actionSize || !nn.Finite(strength) || strength <= 0 {
		return
	}
	k := nn.Sat(0.3*strength, 1, 0)
	start, end := w.ActionBins(action)
	for bin := start; bin < end; bin++ {
		w.theta[bin] -= k * nn.WrapPhase(w.theta[bin])
		w.psiReal[bin] += 0.05 * strength
		w.psiImag[bin] *= 1 - k
		w.gravity[bin] = nn.Sat(w.gravity[bin]+0.02*strength, 1, 0)
	}
	w.normalize(w.lastTarget)
}
