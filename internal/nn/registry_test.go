package nn

import (
	"errors"
	"reflect"
	"testing"
)

type fixedTopology struct{}

func (fixedTopology) Name() string { return "fixed" }

func (fixedTopology) Reshape(in TopologyInput) {
	clearSynapses(in.Nodes)
	Connect(in.Nodes, NodeFear, NodeAggression, 1)
}

func TestRegisterAndResolveTopology(t *testing.T) {
	resetTopologyRegistryForTests()
	t.Cleanup(resetTopologyRegistryForTests)

	if err := RegisterTopology("fixed", func() TopologyStrategy { return fixedTopology{} }); err != nil {
		t.Fatalf("register topology: %v", err)
	}
	strategy, err := ResolveTopology(" Fixed ")
	if err != nil {
		t.Fatalf("resolve topology: %v", err)
	}
	if strategy.Name() != "fixed" {
		t.Fatalf("unexpected strategy: %s", strategy.Name())
	}
}

func TestResolveTopologyDefaultsToContinuous(t *testing.T) {
	strategy, err := ResolveTopology("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if strategy.Name() != TopologyContinuous {
		t.Fatalf("expected continuous default, got %s", strategy.Name())
	}
}

func TestRegisterTopologyValidation(t *testing.T) {
	resetTopologyRegistryForTests()
	t.Cleanup(resetTopologyRegistryForTests)

	if err := RegisterTopology("", func() TopologyStrategy { return fixedTopology{} }); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterTopology("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if err := RegisterTopology(TopologyPhase, func() TopologyStrategy { return PhaseTopology{} }); !errors.Is(err, ErrTopologyExists) {
		t.Fatalf("expected ErrTopologyExists, got: %v", err)
	}
	if _, err := ResolveTopology("missing"); !errors.Is(err, ErrTopologyNotFound) {
		t.Fatalf("expected ErrTopologyNotFound, got: %v", err)
	}
}

func TestListTopologies(t *testing.T) {
	resetTopologyRegistryForTests()
	t.Cleanup(resetTopologyRegistryForTests)

	got := ListTopologies()
	want := []string{TopologyContinuous, TopologyPhase}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected topology list: got=%v want=%v", got, want)
	}
}
