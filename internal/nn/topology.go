package nn

const (
	TopologyContinuous = "continuous"
	TopologyPhase      = "phase"

	elasticFatigueThreshold = 0.8
)

// TopologyInput is everything a strategy may read while rewiring the nodes.
// With WiringOnly set a strategy rebuilds synapses but leaves node states as
// they are, as when restoring a snapshot.
type TopologyInput struct {
	Nodes        []*Node
	Temperature  float32
	Adrenaline   float32
	Frustration  float32
	Intervention float32
	Fatigue      []float32
	WiringOnly   bool
}

// TopologyStrategy recomputes the synapses among the role nodes.
type TopologyStrategy interface {
	Name() string
	Reshape(in TopologyInput)
}

// ContinuousTopology derives every weight as a smooth function of temperature
// and node activation.
type ContinuousTopology struct{}

func (ContinuousTopology) Name() string {
	return TopologyContinuous
}

func (ContinuousTopology) Reshape(in TopologyInput) {
	nodes := in.Nodes
	if len(nodes) < NodeCount {
		return
	}
	clearSynapses(nodes)

	cooling := 1 - in.Temperature
	if cooling < 0 {
		cooling = 0
	}
	tactical := nodes[NodeTactical].State
	Connect(nodes, NodeTactical, NodeReflex, cooling*(0.5+tactical))
	Connect(nodes, NodeAggression, NodeReflex, Sat(0.5*(nodes[NodeAggression].State+in.Adrenaline), 2, 0))
	Connect(nodes, NodeFear, NodeReflex, 0.8*nodes[NodeFear].State)

	if in.Temperature > 1.5 && in.Intervention > 0.7 {
		if !in.WiringOnly {
			nodes[NodeAggression].ApplyInhibition(0.3)
			nodes[NodeFear].ApplyInhibition(0.3)
		}
		dropSynapsesFrom(nodes, NodeAggression)
	}
}

// PhaseTopology switches between fixed wirings for the solid (< 0.3),
// liquid and gas (> 1.2) temperature bands.
type PhaseTopology struct{}

func (PhaseTopology) Name() string {
	return TopologyPhase
}

func (PhaseTopology) Reshape(in TopologyInput) {
	nodes := in.Nodes
	if len(nodes) < NodeCount {
		return
	}
	clearSynapses(nodes)

	switch {
	case in.Temperature > 1.2:
		Connect(nodes, NodeAggression, NodeReflex, 2.0)
		if in.Intervention > 0.6 {
			dropSynapsesFrom(nodes, NodeAggression)
			Connect(nodes, NodeReflex, NodeFear, 1.5)
			Connect(nodes, NodeFear, NodeReflex, 1.2)
		}
	case in.Temperature < 0.3:
		if len(in.Fatigue) == 0 || in.Fatigue[0] < 0.5 {
			Connect(nodes, NodeTactical, NodeAggression, 1.2)
		}
		Connect(nodes, NodeTactical, NodeReflex, 0.5)
	default:
		Connect(nodes, NodeTactical, NodeReflex, 1.0)
		if in.Adrenaline > 0.5 {
			Connect(nodes, NodeAggression, NodeReflex, 1.5)
		} else {
			Connect(nodes, NodeFear, NodeReflex, 0.8)
			Connect(nodes, NodeAggression, NodeTactical, 0.7)
		}
		if in.Frustration > 0.7 {
			Connect(nodes, NodeTactical, NodeAggression, 1.8)
		}
	}
}

// ApplyElasticFatigue halves every synapse fed by an index whose fatigue is
// above 0.8, discouraging the same pathway from firing repeatedly.
func ApplyElasticFatigue(nodes []*Node, fatigue []float32) {
	for idx, f := range fatigue {
		if f <= elasticFatigueThreshold {
			continue
		}
		for _, n := range nodes {
			for i := range n.Synapses {
				if n.Synapses[i].Source == idx {
					n.Synapses[i].Weight *= 0.5
				}
			}
		}
	}
}

func clearSynapses(nodes []*Node) {
	for _, n := range nodes {
		n.Synapses = n.Synapses[:0]
	}
}

func dropSynapsesFrom(nodes []*Node, source int) {
	for _, n := range nodes {
		kept := n.Synapses[:0]
		for _, s := range n.Synapses {
			if s.Source != source {
				kept = append(kept, s)
			}
		}
		n.Synapses = kept
	}
}
