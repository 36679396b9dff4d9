package substrate

import "math"

// ActionScores decodes size consecutive flattened actions starting at offset.
// Each score is exp(1.5*raw) capped at 1e10, where raw sums
// |psi|*cos(arg psi - theta) over the action's bins minus half the penalty
// over those bins.
func (w *Wave) ActionScores(offset, size int, penalty []float32) []float32 {
	if size < 0 {
		size = 0
	}
	scores := make([]float32, size)
	for i := range scores {
		scores[i] = w.actionScore(offset+i, penalty)
	}
	return scores
}

func (w *Wave) actionScore(action int, penalty []float32) float32 {
	start, end := w.ActionBins(action)
	if start == end {
		return 0
	}
	var raw, pen float64
	for bin := start; bin < end; bin++ {
		re, im := float64(w.psiReal[bin]), float64(w.psiImag[bin])
		mag := math.Hypot(re, im)
		if mag > 0 {
			raw += mag * math.Cos(math.Atan2(im, re)-float64(w.theta[bin]))
		}
		pen += float64(penaltyAt(penalty, bin))
	}
	raw -= 0.5 * pen

	score := math.Exp(raw * 1.5)
	if math.IsNaN(score) {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return float32(score)
}
