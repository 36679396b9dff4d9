package nn

import (
	"math"
	"testing"
)

func weightFrom(n *Node, source int) (float32, bool) {
	for _, s := range n.Synapses {
		if s.Source == source {
			return s.Weight, true
		}
	}
	return 0, false
}

func TestContinuousTopologyWeights(t *testing.T) {
	nodes := DefaultNodes()
	nodes[NodeAggression].State = 0.4
	nodes[NodeFear].State = 0.5
	nodes[NodeTactical].State = 0.5

	ContinuousTopology{}.Reshape(TopologyInput{Nodes: nodes, Temperature: 0.5, Adrenaline: 0.2})

	reflex := nodes[NodeReflex]
	if w, ok := weightFrom(reflex, NodeTactical); !ok || math.Abs(float64(w)-0.5) > 1e-6 {
		t.Fatalf("unexpected tactical->reflex weight: %f ok=%v", w, ok)
	}
	if w, ok := weightFrom(reflex, NodeAggression); !ok || math.Abs(float64(w)-0.3) > 1e-6 {
		t.Fatalf("unexpected aggression->reflex weight: %f ok=%v", w, ok)
	}
	if w, ok := weightFrom(reflex, NodeFear); !ok || math.Abs(float64(w)-0.4) > 1e-6 {
		t.Fatalf("unexpected fear->reflex weight: %f ok=%v", w, ok)
	}
}

func TestContinuousTopologyCoolingVanishesWhenHot(t *testing.T) {
	nodes := DefaultNodes()
	nodes[NodeTactical].State = 1
	ContinuousTopology{}.Reshape(TopologyInput{Nodes: nodes, Temperature: 1.4})
	if w, _ := weightFrom(nodes[NodeReflex], NodeTactical); w != 0 {
		t.Fatalf("expected zero tactical weight above temperature 1, got %f", w)
	}
}

func TestContinuousTopologySuppressesAggressionUnderIntervention(t *testing.T) {
	nodes := DefaultNodes()
	nodes[NodeAggression].State = 0.9
	nodes[NodeFear].State = 0.9
	ContinuousTopology{}.Reshape(TopologyInput{Nodes: nodes, Temperature: 1.8, Intervention: 0.8})

	if nodes[NodeAggression].State >= 0.9 || nodes[NodeFear].State >= 0.9 {
		t.Fatalf("expected aggression and fear inhibited: %f %f", nodes[NodeAggression].State, nodes[NodeFear].State)
	}
	if _, ok := weightFrom(nodes[NodeReflex], NodeAggression); ok {
		t.Fatal("expected aggression pathway removed")
	}
}

func TestContinuousTopologyWiringOnlyKeepsStates(t *testing.T) {
	nodes := DefaultNodes()
	nodes[NodeAggression].State = 0.9
	nodes[NodeFear].State = 0.9
	ContinuousTopology{}.Reshape(TopologyInput{Nodes: nodes, Temperature: 1.8, Intervention: 0.8, WiringOnly: true})

	if nodes[NodeAggression].State != 0.9 || nodes[NodeFear].State != 0.9 {
		t.Fatalf("expected node states untouched: %f %f", nodes[NodeAggression].State, nodes[NodeFear].State)
	}
	if _, ok := weightFrom(nodes[NodeReflex], NodeAggression); ok {
		t.Fatal("expected aggression pathway removed")
	}
}

func TestPhaseTopologyBands(t *testing.T) {
	cases := []struct {
		name   string
		in     TopologyInput
		target int
		source int
		want   float32
	}{
		{name: "solid", in: TopologyInput{Temperature: 0.1}, target: NodeAggression, source: NodeTactical, want: 1.2},
		{name: "liquid", in: TopologyInput{Temperature: 0.8}, target: NodeReflex, source: NodeTactical, want: 1.0},
		{name: "liquid adrenaline", in: TopologyInput{Temperature: 0.8, Adrenaline: 0.9}, target: NodeReflex, source: NodeAggression, want: 1.5},
		{name: "gas", in: TopologyInput{Temperature: 1.5}, target: NodeReflex, source: NodeAggression, want: 2.0},
		{name: "gas intervention", in: TopologyInput{Temperature: 1.5, Intervention: 0.9}, target: NodeFear, source: NodeReflex, want: 1.5},
	}
	for _, tc := range cases {
		nodes := DefaultNodes()
		tc.in.Nodes = nodes
		PhaseTopology{}.Reshape(tc.in)
		w, ok := weightFrom(nodes[tc.target], tc.source)
		if !ok || w != tc.want {
			t.Fatalf("%s: unexpected weight %f ok=%v", tc.name, w, ok)
		}
	}
}

func TestApplyElasticFatigue(t *testing.T) {
	nodes := DefaultNodes()
	Connect(nodes, NodeAggression, NodeReflex, 1.0)
	Connect(nodes, NodeFear, NodeReflex, 1.0)
	ApplyElasticFatigue(nodes, []float32{0.9, 0.2})

	if w, _ := weightFrom(nodes[NodeReflex], NodeAggression); w != 0.5 {
		t.Fatalf("expected fatigued pathway halved, got %f", w)
	}
	if w, _ := weightFrom(nodes[NodeReflex], NodeFear); w != 1.0 {
		t.Fatalf("expected fresh pathway intact, got %f", w)
	}
}
