package substrate

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestDimFor(t *testing.T) {
	cases := []struct {
		actions int
		want    int
	}{
		{0, 512},
		{2, 512},
		{8, 512},
		{9, 1024},
		{16, 1024},
		{17, 2048},
	}
	for _, tc := range cases {
		if got := DimFor(tc.actions); got != tc.want {
			t.Fatalf("DimFor(%d)=%d want=%d", tc.actions, got, tc.want)
		}
	}
}

func TestNewWaveStartsNormalised(t *testing.T) {
	w := NewWave(4)
	if w.Dim() != 512 || w.BinWidth() != 128 {
		t.Fatalf("unexpected geometry dim=%d bin_width=%d", w.Dim(), w.BinWidth())
	}
	if got := math.Sqrt(w.Energy()); math.Abs(got-1) > 1e-4 {
		t.Fatalf("expected unit norm, got=%f", got)
	}
	for i := 1; i < w.Dim(); i++ {
		if w.frequencies[i] <= w.frequencies[i-1] {
			t.Fatalf("frequencies not increasing at %d", i)
		}
	}
}

func TestStepRenormalisesToTemperatureTarget(t *testing.T) {
	w := NewWave(4)
	rng := rand.New(rand.NewSource(3))
	for _, temperature := range []float32{0, 0.5, 1, 2, 5} {
		w.InjectState(7, 1, nil)
		w.InjectNoise(rng, 0.2, 32)
		w.Step(0.1, 0.3, 0.5, temperature, nil)

		want := TargetNorm(temperature)
		got := math.Sqrt(w.Energy())
		if math.Abs(got-want)/want > 1e-4 {
			t.Fatalf("temperature=%f norm=%f want=%f", temperature, got, want)
		}
	}
	if TargetNorm(5) != 2.5 {
		t.Fatalf("expected target norm to saturate at 2.5, got=%f", TargetNorm(5))
	}
}

func TestStepRecoversFromDegenerateState(t *testing.T) {
	w := NewWave(2)
	clear(w.psiReal)
	clear(w.psiImag)
	w.Step(0.1, 0, 0, 1, nil)
	if got := math.Sqrt(w.Energy()); math.Abs(got-1.5) > 1e-4 {
		t.Fatalf("expected ground state at norm 1.5, got=%f", got)
	}
}

func TestInjectionBinsInRange(t *testing.T) {
	w := NewWave(3)
	for index := 0; index < 50; index++ {
		bins := w.InjectionBins(index)
		if len(bins) != InjectionWidth {
			t.Fatalf("index=%d expected %d bins, got=%d", index, InjectionWidth, len(bins))
		}
		seen := map[int]bool{}
		for _, b := range bins {
			if b < 0 || b >= w.Dim() {
				t.Fatalf("index=%d bin out of range: %d", index, b)
			}
			seen[b] = true
		}
		if len(seen) != InjectionWidth {
			t.Fatalf("index=%d expected distinct bins, got=%v", index, bins)
		}
	}
	if w.InjectionBins(-1) != nil {
		t.Fatal("expected no bins for negative index")
	}
}

func TestInjectStatePenaltyAttenuates(t *testing.T) {
	plain := NewWave(2)
	damped := NewWave(2)
	penalty := make([]float32, plain.Dim())
	for i := range penalty {
		penalty[i] = 2
	}
	plain.InjectState(5, 1, nil)
	damped.InjectState(5, 1, penalty)
	if damped.Energy() >= plain.Energy() {
		t.Fatalf("expected penalty to attenuate injection: plain=%f damped=%f", plain.Energy(), damped.Energy())
	}
}

func TestAdaptStrongRewardRaisesGravityAndImprintsMemory(t *testing.T) {
	w := NewWave(4)
	w.Adapt(3, []int{1}, 0.5)

	start, _ := w.ActionBins(1)
	want := float32(0.15 * 0.999)
	if got := w.gravity[start]; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("unexpected gravity=%f want=%f", got, want)
	}
	neighbour, _ := w.ActionBins(0)
	if got := w.gravity[neighbour]; got != 0 {
		t.Fatalf("expected neighbour gravity untouched, got=%f", got)
	}
	if got, want := w.MemoryNorm(), MemoryTargetNorm(w.Dim()); math.Abs(got-want) > 1e-6 {
		t.Fatalf("unexpected memory norm=%f want=%f", got, want)
	}
	if r := w.MemoryResonance(); r < 0.99 {
		t.Fatalf("expected state to resonate with fresh imprint, got=%f", r)
	}
}

func TestAdaptGravitySaturates(t *testing.T) {
	w := NewWave(2)
	start, _ := w.ActionBins(0)
	prev := float32(0)
	for i := 0; i < 20; i++ {
		w.Adapt(3, []int{0}, 0.5)
		g := w.gravity[start]
		if g < prev {
			t.Fatalf("gravity decreased at %d: %f < %f", i, g, prev)
		}
		if g > 1 {
			t.Fatalf("gravity exceeded 1: %f", g)
		}
		prev = g
	}
	if prev < 0.99 {
		t.Fatalf("expected gravity near saturation, got=%f", prev)
	}
}

func TestAdaptPunishmentKeepsSpectrumMonotonic(t *testing.T) {
	w := NewWave(4)
	for i := 0; i < 300; i++ {
		w.Adapt(-3, []int{0, 3}, 1)
	}
	for i := 1; i < w.Dim(); i++ {
		if w.frequencies[i] <= w.frequencies[i-1] {
			t.Fatalf("frequencies not increasing at %d: %f <= %f", i, w.frequencies[i], w.frequencies[i-1])
		}
	}
	for i := w.Dim(); i < 2*w.Dim(); i++ {
		v := w.theta[i]
		if v < minViscosity || v > maxViscosity {
			t.Fatalf("viscosity out of range at %d: %f", i, v)
		}
	}
}

func TestAlignToActionRaisesScore(t *testing.T) {
	w := NewWave(4)
	before := w.ActionScores(2, 1, nil)[0]
	for i := 0; i < 5; i++ {
		w.AlignToAction(2, 1)
	}
	after := w.ActionScores(2, 1, nil)[0]
	if after <= before {
		t.Fatalf("expected aligned action score to rise: before=%f after=%f", before, after)
	}
	if got := math.Sqrt(w.Energy()); math.Abs(got-1) > 1e-4 {
		t.Fatalf("expected norm preserved, got=%f", got)
	}
}

func TestActionScoresPenaltyLowersScore(t *testing.T) {
	w := NewWave(2)
	penalty := make([]float32, w.Dim())
	start, end := w.ActionBins(1)
	for i := start; i < end; i++ {
		penalty[i] = 0.5
	}
	scores := w.ActionScores(0, 2, penalty)
	plain := w.ActionScores(0, 2, nil)
	if scores[0] != plain[0] {
		t.Fatalf("unpenalised action changed: %f vs %f", scores[0], plain[0])
	}
	if scores[1] >= plain[1] {
		t.Fatalf("expected penalty to lower score: %f vs %f", scores[1], plain[1])
	}
	if got := w.ActionScores(5, 1, nil)[0]; got != 0 {
		t.Fatalf("expected zero score out of range, got=%f", got)
	}
}

func TestEntangle(t *testing.T) {
	w := NewWave(2)
	if w.Entangle(0, 0, 0.5) {
		t.Fatal("expected self entanglement to be rejected")
	}
	if w.Entangle(-1, 3, 0.5) || w.Entangle(0, w.Dim(), 0.5) {
		t.Fatal("expected out of range entanglement to be rejected")
	}
	if !w.Entangle(1, 2, 4) {
		t.Fatal("expected entanglement to be accepted")
	}
	if got := w.Export().Entanglements; len(got) != 1 || got[0].Strength != 1 {
		t.Fatalf("unexpected entanglements: %+v", got)
	}

	w.Step(0.1, 0, 0, 1, nil)
	re, im := w.psiReal, w.psiImag
	if re[2] != re[1] || im[2] != im[1] {
		t.Fatalf("expected full-strength entanglement to copy source: (%f,%f) vs (%f,%f)", re[2], im[2], re[1], im[1])
	}
}

func TestExportImportRestoresState(t *testing.T) {
	w := NewWave(2)
	w.InjectState(3, 1, nil)
	w.Step(0.1, 0, 0, 1, nil)
	saved := w.Export()

	w.Adapt(3, []int{0}, 1)
	w.Step(0.1, 0, 0, 1, nil)
	if err := w.Import(saved); err != nil {
		t.Fatalf("import: %v", err)
	}
	for i := range saved.PsiReal {
		if w.psiReal[i] != saved.PsiReal[i] || w.psiImag[i] != saved.PsiImag[i] {
			t.Fatalf("psi[%d] not restored", i)
		}
	}
	if w.gravity[0] != 0 {
		t.Fatalf("expected gravity restored, got=%f", w.gravity[0])
	}
}

func TestImportRejectsDimensionMismatch(t *testing.T) {
	small := NewWave(2)
	large := NewWave(16)
	if err := large.Import(small.Export()); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	s := small.Export()
	s.Gravity = s.Gravity[:10]
	if err := small.Validate(s); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected short gravity to fail validation, got %v", err)
	}
	s.Gravity = nil
	s.Frequencies = nil
	if err := small.Import(s); err != nil {
		t.Fatalf("expected optional arrays to be skippable: %v", err)
	}
}

func TestReset(t *testing.T) {
	w := NewWave(2)
	w.Adapt(3, []int{0}, 1)
	w.Entangle(0, 1, 0.3)
	w.Reset()
	if w.GravityMass() != 0 || w.MemoryNorm() != 0 || len(w.entanglements) != 0 {
		t.Fatal("expected reset to clear learned fields")
	}
}

// patternWave fills a full-length complex pattern whose phase advances by 0.1
// per dimension.
func patternWave(dim, seed int) (re, im []float32) {
	re = make([]float32, dim)
	im = make([]float32, dim)
	for i := range re {
		x := float64(i+seed) * 0.1
		re[i] = float32(math.Sin(x))
		im[i] = float32(math.Cos(x))
	}
	return re, im
}

func fidelity(w *Wave, re, im []float32) float64 {
	var dot float64
	for i := range re {
		dot += float64(w.psiReal[i])*float64(re[i]) + float64(w.psiImag[i])*float64(im[i])
	}
	return dot
}

func TestMemoryHoldsPatternThroughDissipation(t *testing.T) {
	withMemory := NewWave(10)
	without := NewWave(10)
	re, im := patternWave(withMemory.Dim(), 77)
	withMemory.ImprintMemory(re, im, 5)

	for _, w := range []*Wave{withMemory, without} {
		copy(w.psiReal, re)
		copy(w.psiImag, im)
	}
	for i := 0; i < 50; i++ {
		withMemory.Step(0.1, 0, 0, 0.5, nil)
		without.Step(0.1, 0, 0, 0.5, nil)
	}

	kept, lost := fidelity(withMemory, re, im), fidelity(without, re, im)
	if kept <= lost {
		t.Fatalf("expected memory to preserve the pattern: with=%f without=%f", kept, lost)
	}
}

func TestMemorySuperposesPatterns(t *testing.T) {
	w := NewWave(10)
	var patterns [][2][]float32
	for i := 0; i < 5; i++ {
		re, im := patternWave(w.Dim(), i*100)
		patterns = append(patterns, [2][]float32{re, im})
		w.ImprintMemory(re, im, 1)
	}
	if got, want := w.MemoryNorm(), MemoryTargetNorm(w.Dim()); math.Abs(got-want) > 1e-6*want {
		t.Fatalf("memory norm=%f want=%f", got, want)
	}

	for i, p := range patterns {
		copy(w.psiReal, p[0])
		copy(w.psiImag, p[1])
		if r := w.MemoryResonance(); r <= 0.3 {
			t.Fatalf("pattern %d resonance=%f", i, r)
		}
	}

	rng := rand.New(rand.NewSource(9))
	for i := range w.psiReal {
		w.psiReal[i] = float32(rng.NormFloat64())
		w.psiImag[i] = float32(rng.NormFloat64())
	}
	if r := w.MemoryResonance(); r >= 0.3 {
		t.Fatalf("expected noise to resonate weakly, got=%f", r)
	}
}

func TestStepReusesBuffers(t *testing.T) {
	w := NewWave(4)
	penalty := make([]float32, w.Dim())
	w.Entangle(1, 2, 0.5)
	allocs := testing.AllocsPerRun(20, func() {
		w.Step(0.1, 0.2, 0.5, 1, penalty)
	})
	if allocs != 0 {
		t.Fatalf("expected Step not to allocate, got %.1f allocations per call", allocs)
	}
}
