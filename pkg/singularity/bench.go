package singularity

import (
	"context"
	"fmt"

	"darksingularity/internal/agent"
	"darksingularity/internal/scape"
)

type BenchRequest struct {
	Scape       string
	Steps       int
	ReportEvery int
	OnWindow    func(scape.Window)
}

type BenchSummary struct {
	Handle           Handle
	Scape            string
	Fitness          float64
	Steps            int
	Windows          []scape.Window
	Temperature      float32
	ResonanceDensity float64
	Trace            scape.Trace
}

// Bench creates an engine shaped for the requested scape, runs the scape
// against it and returns the result. The engine stays alive under the
// returned handle so it can be saved or checkpointed.
func (c *Client) Bench(ctx context.Context, req BenchRequest) (BenchSummary, error) {
	if req.Scape == "" {
		req.Scape = "law"
	}
	s, err := scape.New(req.Scape, scape.Options{
		Steps:       req.Steps,
		ReportEvery: req.ReportEvery,
		OnWindow:    req.OnWindow,
	})
	if err != nil {
		return BenchSummary{}, err
	}
	shape := s.Shape()
	h, err := c.Create(shape.StateSize, shape.CategorySizes)
	if err != nil {
		return BenchSummary{}, err
	}

	summary := BenchSummary{Handle: h, Scape: s.Name()}
	err = c.with(h, func(e *agent.Engine) error {
		fitness, trace, err := s.Evaluate(ctx, e)
		if err != nil {
			return err
		}
		summary.Fitness = float64(fitness)
		summary.Trace = trace
		summary.Temperature = e.Temperature()
		summary.ResonanceDensity = e.ResonanceDensity()
		return nil
	})
	if err != nil {
		_ = c.Destroy(h)
		return BenchSummary{}, fmt.Errorf("bench %s: %w", s.Name(), err)
	}
	if steps, ok := summary.Trace["steps"].(int); ok {
		summary.Steps = steps
	}
	if windows, ok := summary.Trace["windows"].([]scape.Window); ok {
		summary.Windows = windows
	}
	c.logger.Info("bench complete",
		"scape", summary.Scape,
		"handle", h,
		"fitness", summary.Fitness,
		"steps", summary.Steps,
		"temperature", summary.Temperature,
	)
	return summary, nil
}
