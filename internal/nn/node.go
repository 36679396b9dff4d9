package nn

// Fixed node roles. The engine always owns exactly NodeCount nodes in this order.
const (
	NodeAggression = iota
	NodeFear
	NodeTactical
	NodeReflex

	NodeCount
)

var nodeNames = [NodeCount]string{"aggression", "fear", "tactical", "reflex"}

// NodeName returns the role name for a node index.
func NodeName(idx int) string {
	if idx < 0 || idx >= NodeCount {
		return "unknown"
	}
	return nodeNames[idx]
}

// Synapse feeds the state of node Source into the node that owns it.
type Synapse struct {
	Source int
	Weight float32
}

// Node is a leaky-integrator affect unit.
type Node struct {
	State     float32
	BaseDecay float32
	Synapses  []Synapse
}

func NewNode(baseDecay float32) *Node {
	return &Node{BaseDecay: Sat(baseDecay, 1, 0.01)}
}

// DefaultNodes builds the four role nodes with their reference decay constants.
func DefaultNodes() []*Node {
	return []*Node{
		NewNode(0.5),
		NewNode(0.4),
		NewNode(0.3),
		NewNode(0.3),
	}
}

// Update integrates external input and synaptic input. states is a snapshot of
// every node's state taken before any node in this round was updated.
func (n *Node) Update(input, urgency, temperature float32, states []float32) {
	synaptic := input
	for _, s := range n.Synapses {
		if s.Source >= 0 && s.Source < len(states) {
			synaptic += states[s.Source] * s.Weight
		}
	}
	synaptic += n.State * 0.1

	thermal := temperature * 0.4
	if thermal < 0 {
		thermal = 0
	}
	alpha := Sat(n.BaseDecay+urgency*(1-n.BaseDecay)+thermal, 1, 0.01)

	next := n.State + alpha*(synaptic-n.State)
	if !Finite(next) {
		next = 0
	}
	n.State = Sat(next, 1, 0)
}

func (n *Node) ApplyInhibition(factor float32) {
	n.State -= n.State * factor
	if n.State < 0 {
		n.State = 0
	}
}

// Connect adds a synapse on to that reads from.
func Connect(nodes []*Node, from, to int, weight float32) {
	if from < 0 || from >= len(nodes) || to < 0 || to >= len(nodes) {
		return
	}
	nodes[to].Synapses = append(nodes[to].Synapses, Synapse{Source: from, Weight: weight})
}

// States copies the current node states.
func States(nodes []*Node) []float32 {
	out := make([]float32, len(nodes))
	for i, n := range nodes {
		out[i] = n.State
	}
	return out
}

// UpdateAll updates every node against one shared state snapshot.
func UpdateAll(nodes []*Node, inputs []float32, urgency, temperature float32) {
	current := States(nodes)
	for i, n := range nodes {
		var input float32
		if i < len(inputs) {
			input = inputs[i]
		}
		n.Update(input, urgency, temperature, current)
	}
}
