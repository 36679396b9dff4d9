// Package substrate implements the oscillatory wave memory the decision
// engine reads its action preferences from.
package substrate

import (
	"math"

	"darksingularity/internal/nn"
)

const (
	MinDim         = 512
	BinsPerAction  = 64
	InjectionWidth = 16

	initialViscosity = 0.02
	minViscosity     = 0.001
	maxViscosity     = 0.5

	memoryNormPerDim = 0.01
	maxScore         = 1e10
)

var injectionStrides = [...]int{31, 37, 41, 43, 47, 53, 59, 61}

// Entanglement forces a fraction of Source's state into Target every step.
type Entanglement struct {
	Source   int
	Target   int
	Strength float32
}

// Wave is a fixed-dimension complex oscillator array with learnable coupling.
//
// theta holds 2*dim parameters: the first half is the coupling and phase
// filter per dimension, the second half the viscosity per dimension.
type Wave struct {
	dim        int
	actionSize int
	binWidth   int

	psiReal     []float32
	psiImag     []float32
	theta       []float32
	frequencies []float32
	gravity     []float32

	memoryReal []float64
	memoryImag []float64

	entanglements []Entanglement

	// norm psi was last rescaled to
	lastTarget float64

	// previous psi, reused by Step
	scratchRe []float32
	scratchIm []float32
}

// DimFor returns the substrate dimension used for actionSize flattened actions.
func DimFor(actionSize int) int {
	if actionSize < 1 {
		actionSize = 1
	}
	n := actionSize * BinsPerAction
	if n < MinDim {
		n = MinDim
	}
	return nn.NextPowerOfTwo(n)
}

func NewWave(actionSize int) *Wave {
	if actionSize < 1 {
		actionSize = 1
	}
	dim := DimFor(actionSize)
	w := &Wave{
		dim:         dim,
		actionSize:  actionSize,
		binWidth:    dim / actionSize,
		psiReal:     make([]float32, dim),
		psiImag:     make([]float32, dim),
		theta:       make([]float32, 2*dim),
		frequencies: make([]float32, dim),
		gravity:     make([]float32, dim),
		memoryReal:  make([]float64, dim),
		memoryImag:  make([]float64, dim),
		scratchRe:   make([]float32, dim),
		scratchIm:   make([]float32, dim),
	}
	w.initialize()
	return w
}

func (w *Wave) initialize() {
	for i := 0; i < w.dim; i++ {
		w.theta[i] = float32(math.Sin(float64(i)*0.1) * 0.1)
		w.theta[w.dim+i] = initialViscosity
		ratio := float64(i) / float64(w.dim)
		w.frequencies[i] = float32(ratio * ratio * 2 * math.Pi)
		w.gravity[i] = 0
		w.memoryReal[i] = 0
		w.memoryImag[i] = 0
		w.psiImag[i] = 0
	}
	w.entanglements = w.entanglements[:0]
	w.lastTarget = 1
	w.groundState(1)
}

// groundState spreads norm uniformly over the real component.
func (w *Wave) groundState(norm float64) {
	amp := float32(norm / math.Sqrt(float64(w.dim)))
	for i := range w.psiReal {
		w.psiReal[i] = amp
		w.psiImag[i] = 0
	}
}

func (w *Wave) Dim() int      { return w.dim }
func (w *Wave) BinWidth() int { return w.binWidth }

// ActionBins returns the half-open bin range owned by a flattened action.
func (w *Wave) ActionBins(action int) (start, end int) {
	if action < 0 || action >= w.actionSize {
		return 0, 0
	}
	start = action * w.binWidth
	return start, start + w.binWidth
}

// TargetNorm is the norm psi is rescaled to after every step.
func TargetNorm(temperature float32) float64 {
	t := float64(temperature)
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	return 1 + math.Min(1.5, 0.5*t)
}

// Energy returns sum(|psi|^2).
func (w *Wave) Energy() float64 {
	var e float64
	for i := 0; i < w.dim; i++ {
		re, im := float64(w.psiReal[i]), float64(w.psiImag[i])
		e += re*re + im*im
	}
	return e
}

// Entangle registers a directed phase coupling. Out-of-range indices are ignored.
func (w *Wave) Entangle(source, target int, strength float32) bool {
	if source < 0 || source >= w.dim || target < 0 || target >= w.dim || source == target {
		return false
	}
	w.entanglements = append(w.entanglements, Entanglement{
		Source:   source,
		Target:   target,
		Strength: nn.Sat(strength, 1, 0),
	})
	return true
}

// GravityMass returns the summed gravity field.
func (w *Wave) GravityMass() float64 {
	var sum float64
	for _, g := range w.gravity {
		sum += float64(g)
	}
	return sum
}

func penaltyAt(penalty []float32, i int) float32 {
	if i < 0 || i >= len(penalty) {
		return 0
	}
	p := penalty[i]
	if p < 0 || !nn.Finite(p) {
		return 0
	}
	return p
}
