package substrate

import (
	"math"

	"darksingularity/internal/nn"
)

const (
	solidification   = 0.9999
	memoryBleed      = 0.1
	penaltyViscosity = 0.1
)

// Step advances the wave by dt and renormalises it to TargetNorm(temperature).
//
// Per dimension: phase rotation by its natural frequency, ring coupling with
// both neighbours, memory resonance scaled by the global overlap with the
// memory wave, then gravity- and penalty-modulated damping.
func (w *Wave) Step(dt, speedBoost, focus, temperature float32, penalty []float32) {
	dim := w.dim
	prevRe, prevIm := w.scratchRe, w.scratchIm
	copy(prevRe, w.psiReal)
	copy(prevIm, w.psiImag)

	resonance := w.MemoryResonance()
	var memScale float64
	if resonance > 0 {
		memScale = memoryBleed * float64(dt) * (1 + float64(nn.Sat(focus, 1, 0))) * resonance
	}

	speed := 1 + float64(speedBoost)
	for i := 0; i < dim; i++ {
		omega := float64(w.frequencies[i]) * float64(dt) * speed
		cosW, sinW := math.Cos(omega), math.Sin(omega)
		re, im := float64(prevRe[i]), float64(prevIm[i])
		nextRe := re*cosW - im*sinW
		nextIm := re*sinW + im*cosW

		prev := (i + dim - 1) % dim
		next := (i + 1) % dim
		coupling := float64(w.theta[i]) * float64(dt)
		nextRe += coupling * float64(prevRe[prev]+prevRe[next])
		nextIm += coupling * float64(prevIm[prev]+prevIm[next])

		if memScale > 0 {
			nextRe += memScale * w.memoryReal[i]
			nextIm += memScale * w.memoryImag[i]
		}

		viscosity := float64(w.theta[dim+i]) * (1 - float64(w.gravity[i]))
		damping := float64(dt) * (viscosity + penaltyViscosity*float64(penaltyAt(penalty, i)))
		factor := 1 - damping
		if factor < 0 {
			factor = 0
		}
		w.psiReal[i] = float32(nextRe * factor)
		w.psiImag[i] = float32(nextIm * factor)
	}

	for _, e := range w.entanglements {
		k := e.Strength
		w.psiReal[e.Target] = (1-k)*w.psiReal[e.Target] + k*w.psiReal[e.Source]
		w.psiImag[e.Target] = (1-k)*w.psiImag[e.Target] + k*w.psiImag[e.Source]
	}

	for i := 0; i < dim; i++ {
		w.theta[i] *= solidification
	}

	w.normalize(TargetNorm(temperature))
}

// normalize rescales psi to the target norm. Degenerate states fall back to
// the uniform ground state.
func (w *Wave) normalize(target float64) {
	w.lastTarget = target
	energy := w.Energy()
	if energy < 1e-12 || math.IsNaN(energy) || math.IsInf(energy, 0) {
		w.groundState(target)
		return
	}
	scale := target / math.Sqrt(energy)
	for i := range w.psiReal {
		w.psiReal[i] = float32(float64(w.psiReal[i]) * scale)
		w.psiImag[i] = float32(float64(w.psiImag[i]) * scale)
	}
}
