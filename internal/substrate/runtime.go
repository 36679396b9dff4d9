package substrate

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrDimensionMismatch = errors.New("substrate dimension mismatch")

// State is a detached copy of every persisted substrate array.
type State struct {
	Dim           int
	PsiReal       []float32
	PsiImag       []float32
	Theta         []float32
	Frequencies   []float32
	Gravity       []float32
	MemoryReal    []float64
	MemoryImag    []float64
	Entanglements []Entanglement
}

func (w *Wave) Export() State {
	return State{
		Dim:           w.dim,
		PsiReal:       slices.Clone(w.psiReal),
		PsiImag:       slices.Clone(w.psiImag),
		Theta:         slices.Clone(w.theta),
		Frequencies:   slices.Clone(w.frequencies),
		Gravity:       slices.Clone(w.gravity),
		MemoryReal:    slices.Clone(w.memoryReal),
		MemoryImag:    slices.Clone(w.memoryImag),
		Entanglements: slices.Clone(w.entanglements),
	}
}

// Validate checks that every non-empty array in s fits this substrate.
// Empty optional arrays (frequencies, gravity, memory) are allowed.
func (w *Wave) Validate(s State) error {
	if s.Dim != w.dim {
		return fmt.Errorf("%w: have=%d got=%d", ErrDimensionMismatch, w.dim, s.Dim)
	}
	if len(s.PsiReal) != w.dim || len(s.PsiImag) != w.dim {
		return fmt.Errorf("%w: psi length re=%d im=%d want=%d", ErrDimensionMismatch, len(s.PsiReal), len(s.PsiImag), w.dim)
	}
	if len(s.Theta) != 2*w.dim {
		return fmt.Errorf("%w: theta length=%d want=%d", ErrDimensionMismatch, len(s.Theta), 2*w.dim)
	}
	for name, n := range map[string]int{
		"frequencies": len(s.Frequencies),
		"gravity":     len(s.Gravity),
		"memory_real": len(s.MemoryReal),
		"memory_imag": len(s.MemoryImag),
	} {
		if n != 0 && n != w.dim {
			return fmt.Errorf("%w: %s length=%d want=%d", ErrDimensionMismatch, name, n, w.dim)
		}
	}
	return nil
}

// Import replaces the substrate arrays with s. Optional arrays left empty in
// s keep their current values.
func (w *Wave) Import(s State) error {
	if err := w.Validate(s); err != nil {
		return err
	}
	copy(w.psiReal, s.PsiReal)
	copy(w.psiImag, s.PsiImag)
	copy(w.theta, s.Theta)
	if len(s.Frequencies) == w.dim {
		copy(w.frequencies, s.Frequencies)
	}
	if len(s.Gravity) == w.dim {
		copy(w.gravity, s.Gravity)
	}
	if len(s.MemoryReal) == w.dim && len(s.MemoryImag) == w.dim {
		copy(w.memoryReal, s.MemoryReal)
		copy(w.memoryImag, s.MemoryImag)
	}
	if s.Entanglements != nil {
		w.entanglements = w.entanglements[:0]
		for _, e := range s.Entanglements {
			w.Entangle(e.Source, e.Target, e.Strength)
		}
	}
	if e := w.Energy(); e > 1e-12 {
		w.lastTarget = math.Sqrt(e)
	}
	return nil
}

// Reset returns the substrate to its freshly constructed state.
func (w *Wave) Reset() {
	w.initialize()
}
