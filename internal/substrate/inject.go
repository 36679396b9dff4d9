package substrate

import (
	"math"
	"math/rand"
)

const goldenRatioConjugate = 0.6180339887498949

// InjectionBins returns the bins a state index excites. A prime stride keeps
// neighbouring indices from landing on contiguous bins.
func (w *Wave) InjectionBins(index int) []int {
	if index < 0 {
		return nil
	}
	base := (index * 7919) % w.dim
	stride := injectionStrides[index%len(injectionStrides)]
	bins := make([]int, InjectionWidth)
	for k := range bins {
		bins[k] = (base + k*stride) % w.dim
	}
	return bins
}

func statePhase(index int) float64 {
	_, frac := math.Modf(float64(index) * goldenRatioConjugate)
	return frac * 2 * math.Pi
}

// InjectState adds strength to the bins of index. Each bin is attenuated by
// exp(-2*penalty) and rotated by the index's golden-ratio phase plus theta.
func (w *Wave) InjectState(index int, strength float32, penalty []float32) {
	if strength == 0 {
		return
	}
	offset := statePhase(index)
	for _, bin := range w.InjectionBins(index) {
		amp := float64(strength) * math.Exp(-2*float64(penaltyAt(penalty, bin)))
		phase := offset + float64(w.theta[bin])
		w.psiReal[bin] += float32(amp * math.Cos(phase))
		w.psiImag[bin] += float32(amp * math.Sin(phase))
	}
}

// InjectNoise perturbs count random bins with gaussian noise of the given amplitude.
func (w *Wave) InjectNoise(rng *rand.Rand, amplitude float32, count int) {
	if rng == nil || amplitude <= 0 {
		return
	}
	for k := 0; k < count; k++ {
		bin := rng.Intn(w.dim)
		w.psiReal[bin] += amplitude * float32(rng.NormFloat64())
		w.psiImag[bin] += amplitude * float32(rng.NormFloat64())
	}
}

// Pulse adds a real-valued impulse to one dimension.
func (w *Wave) Pulse(dim int, value float32) {
	if dim < 0 || dim >= w.dim {
		return
	}
	w.psiReal[dim] += value
}
