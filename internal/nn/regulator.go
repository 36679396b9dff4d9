package nn

const (
	DefaultHomeostaticThreshold = 1.8

	glutamateIntake    = 0.1
	glutamateDecay     = 0.92
	glutamateOverload  = 2.0
	inhibitionFactor   = 0.15
	inhibitionMinState = 0.5
)

// Regulator keeps aggregate node excitation bounded.
type Regulator struct {
	GlutamateBuffer      float32
	HomeostaticThreshold float32
}

func NewRegulator() *Regulator {
	return &Regulator{HomeostaticThreshold: DefaultHomeostaticThreshold}
}

// Regulate accumulates activity of the given nodes and inhibits the hot ones
// when the system is running above temperature 1.
func (r *Regulator) Regulate(temperature float32, indices []int, nodes []*Node) {
	var total float32
	for _, i := range indices {
		if i >= 0 && i < len(nodes) {
			total += nodes[i].State
		}
	}

	r.GlutamateBuffer += total * glutamateIntake
	r.GlutamateBuffer *= glutamateDecay
	if !Finite(r.GlutamateBuffer) {
		r.GlutamateBuffer = 0
	}

	if temperature <= 1.0 {
		return
	}
	if total <= r.HomeostaticThreshold && r.GlutamateBuffer <= glutamateOverload {
		return
	}
	for _, i := range indices {
		if i >= 0 && i < len(nodes) && nodes[i].State > inhibitionMinState {
			nodes[i].ApplyInhibition(inhibitionFactor)
		}
	}
}

// InterventionLevel reports buffer saturation in [0, 1].
func (r *Regulator) InterventionLevel() float32 {
	level := r.GlutamateBuffer / 3
	if level > 1 {
		return 1
	}
	if level < 0 {
		return 0
	}
	return level
}
