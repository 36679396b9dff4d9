package nn

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTopologyExists   = errors.New("topology strategy already registered")
	ErrTopologyNotFound = errors.New("topology strategy not found")
)

type TopologyFactory func() TopologyStrategy

var topologyRegistry = struct {
	mu sync.RWMutex
	m  map[string]TopologyFactory
}{
	m: make(map[string]TopologyFactory),
}

func init() {
	initializeBuiltInTopologies()
}

func initializeBuiltInTopologies() {
	MustRegisterTopology(TopologyContinuous, func() TopologyStrategy { return ContinuousTopology{} })
	MustRegisterTopology(TopologyPhase, func() TopologyStrategy { return PhaseTopology{} })
}

func RegisterTopology(name string, factory TopologyFactory) error {
	if name == "" {
		return errors.New("topology name is required")
	}
	if factory == nil {
		return errors.New("topology factory is required")
	}

	topologyRegistry.mu.Lock()
	defer topologyRegistry.mu.Unlock()

	if _, exists := topologyRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrTopologyExists, name)
	}
	topologyRegistry.m[name] = factory
	return nil
}

func MustRegisterTopology(name string, factory TopologyFactory) {
	if err := RegisterTopology(name, factory); err != nil {
		panic(err)
	}
}

// ResolveTopology returns a fresh strategy; an empty name resolves to the
// continuous strategy.
func ResolveTopology(name string) (TopologyStrategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = TopologyContinuous
	}
	topologyRegistry.mu.RLock()
	factory, ok := topologyRegistry.m[name]
	topologyRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopologyNotFound, name)
	}
	return factory(), nil
}

func ListTopologies() []string {
	topologyRegistry.mu.RLock()
	defer topologyRegistry.mu.RUnlock()

	names := make([]string, 0, len(topologyRegistry.m))
	for name := range topologyRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetTopologyRegistryForTests() {
	topologyRegistry.mu.Lock()
	topologyRegistry.m = make(map[string]TopologyFactory)
	topologyRegistry.mu.Unlock()
	initializeBuiltInTopologies()
}
