package substrate

import "math"

// ImprintMemory superposes a scaled copy of (re, im) onto the memory wave and
// renormalises the memory to dim*0.01. Shorter inputs imprint their prefix.
func (w *Wave) ImprintMemory(re, im []float32, strength float32) {
	n := min(len(re), len(im), w.dim)
	s := float64(strength)
	for i := 0; i < n; i++ {
		w.memoryReal[i] += s * float64(re[i])
		w.memoryImag[i] += s * float64(im[i])
	}

	norm := w.MemoryNorm()
	if norm < 1e-12 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		for i := range w.memoryReal {
			w.memoryReal[i] = 0
			w.memoryImag[i] = 0
		}
		return
	}
	scale := MemoryTargetNorm(w.dim) / norm
	for i := range w.memoryReal {
		w.memoryReal[i] *= scale
		w.memoryImag[i] *= scale
	}
}

// MemoryTargetNorm is the norm the memory wave is held at.
func MemoryTargetNorm(dim int) float64 {
	return float64(dim) * memoryNormPerDim
}

func (w *Wave) MemoryNorm() float64 {
	var e float64
	for i := range w.memoryReal {
		e += w.memoryReal[i]*w.memoryReal[i] + w.memoryImag[i]*w.memoryImag[i]
	}
	return math.Sqrt(e)
}

// MemoryResonance is the normalised magnitude of the complex overlap between
// the active state and the memory wave, in [0, 1].
func (w *Wave) MemoryResonance() float64 {
	var overlapRe, overlapIm, psiEnergy, memEnergy float64
	for i := 0; i < w.dim; i++ {
		pr, pi := float64(w.psiReal[i]), float64(w.psiImag[i])
		mr, mi := w.memoryReal[i], w.memoryImag[i]
		overlapRe += pr*mr + pi*mi
		overlapIm += pr*mi - pi*mr
		psiEnergy += pr*pr + pi*pi
		memEnergy += mr*mr + mi*mi
	}
	denom := math.Sqrt(psiEnergy * memEnergy)
	if denom < 1e-12 {
		return 0
	}
	r := math.Hypot(overlapRe, overlapIm) / denom
	if r > 1 {
		return 1
	}
	return r
}
