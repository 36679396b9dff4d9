package nn

import (
	"math"
	"testing"
)

func TestSatHelpers(t *testing.T) {
	if got := Sat(5.0, 3, -3); got != 3 {
		t.Fatalf("expected sat max clamp, got=%f", got)
	}
	if got := Sat(float32(-5), 3, -3); got != -3 {
		t.Fatalf("expected sat min clamp, got=%f", got)
	}
	if got := SaturationWithSpread(5.0, -2); got != 2 {
		t.Fatalf("expected spread clamp, got=%f", got)
	}
}

func TestWrapPhase(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4*math.Pi + 0.25, 0.25},
	}
	for _, tc := range cases {
		if got := WrapPhase(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("wrap %f: got=%f want=%f", tc.in, got, tc.want)
		}
	}
}

func TestFiniteAndAvg(t *testing.T) {
	if Finite(math.NaN()) || Finite(math.Inf(1)) {
		t.Fatal("expected NaN and Inf to be non-finite")
	}
	if !Finite(float32(1.5)) {
		t.Fatal("expected 1.5 to be finite")
	}
	if got := Avg([]float64{1, 2, 3}); math.Abs(got-2) > 1e-12 {
		t.Fatalf("unexpected avg: %f", got)
	}
	if got := Avg[float32](nil); got != 0 {
		t.Fatalf("expected empty avg=0, got %f", got)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{0: 1, 1: 1, 3: 4, 512: 512, 513: 1024, 640: 1024} {
		if got := NextPowerOfTwo(in); got != want {
			t.Fatalf("next pow2 %d: got=%d want=%d", in, got, want)
		}
	}
}

func TestDecay(t *testing.T) {
	values := []float32{1, 0.5}
	Decay(values, 0.5)
	if values[0] != 0.5 || values[1] != 0.25 {
		t.Fatalf("unexpected decayed values: %v", values)
	}
}
