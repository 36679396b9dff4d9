// Package agent implements the decision engine: action selection over the
// wave substrate, multi-step credit assignment, imitation and persistence.
//
// An Engine has a single owner and is not safe for concurrent use.
package agent

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"darksingularity/internal/knowledge"
	"darksingularity/internal/nn"
	"darksingularity/internal/substrate"
)

const (
	inputHistoryCap = 4
	experienceCap   = 15

	initialTemperature = 0.5
	maxTemperature     = 2.0
)

var ErrInvalidShape = errors.New("invalid engine shape")

// Config holds the tunables an engine is constructed with.
type Config struct {
	Seed               int64
	Topology           string
	InitialTemperature float32
	ExplorationBeta    float32
	Gamma              float32
	DT                 float32
	WaveGain           float32
	KnowledgeWeight    float32
	MomentumWeight     float32
	ClearWinThreshold  float32
}

func DefaultConfig() Config {
	return Config{
		Seed:               1,
		Topology:           nn.TopologyContinuous,
		InitialTemperature: initialTemperature,
		ExplorationBeta:    0.1,
		Gamma:              0.9,
		DT:                 0.1,
		WaveGain:           4,
		KnowledgeWeight:    30,
		MomentumWeight:     1.5,
		ClearWinThreshold:  1.0,
	}
}

type ruleKey struct {
	state  int
	action int
}

// experience is one selection awaiting credit. actions are flattened indices.
type experience struct {
	state   int
	actions []int
	guided  bool
}

type Engine struct {
	cfg Config

	stateSize     int
	categorySizes []int
	offsets       []int
	actionSize    int

	wave      *substrate.Wave
	nodes     []*nn.Node
	regulator *nn.Regulator
	topology  nn.TopologyStrategy
	knowledge *knowledge.Base
	active    []int32

	fatigue  []float32
	momentum []float32
	penalty  []float32
	learned  map[ruleKey]uint32

	inputHistory []int
	experience   []experience

	temperature     float32
	adrenaline      float32
	frustration     float32
	velocityTrust   float32
	morale          float32
	patience        float32
	explorationBeta float32
	rewardBaseline  float32

	lastTopologyTemperature float32

	rng *rand.Rand
}

// NewEngine builds an engine for stateSize discrete states and one action
// category per entry of categorySizes.
func NewEngine(stateSize int, categorySizes []int, cfg Config) (*Engine, error) {
	if stateSize < 1 {
		return nil, fmt.Errorf("%w: state size must be > 0: %d", ErrInvalidShape, stateSize)
	}
	if len(categorySizes) == 0 {
		return nil, fmt.Errorf("%w: at least one action category is required", ErrInvalidShape)
	}
	offsets := make([]int, len(categorySizes))
	actionSize := 0
	for i, size := range categorySizes {
		if size < 1 {
			return nil, fmt.Errorf("%w: category %d size must be > 0: %d", ErrInvalidShape, i, size)
		}
		offsets[i] = actionSize
		actionSize += size
	}

	topology, err := nn.ResolveTopology(cfg.Topology)
	if err != nil {
		return nil, err
	}
	cfg = withDefaults(cfg)

	wave := substrate.NewWave(actionSize)
	e := &Engine{
		cfg:                     cfg,
		stateSize:               stateSize,
		categorySizes:           slices.Clone(categorySizes),
		offsets:                 offsets,
		actionSize:              actionSize,
		wave:                    wave,
		nodes:                   nn.DefaultNodes(),
		regulator:               nn.NewRegulator(),
		topology:                topology,
		knowledge:               knowledge.NewBase(),
		fatigue:                 make([]float32, actionSize),
		momentum:                make([]float32, actionSize),
		penalty:                 make([]float32, stateSize*wave.Dim()),
		learned:                 make(map[ruleKey]uint32),
		temperature:             nn.Sat(cfg.InitialTemperature, maxTemperature, 0),
		velocityTrust:           1,
		morale:                  1,
		patience:                1,
		explorationBeta:         cfg.ExplorationBeta,
		lastTopologyTemperature: -1,
		rng:                     rand.New(rand.NewSource(cfg.Seed)),
	}
	return e, nil
}

// Reset returns the engine to its freshly constructed state: the substrate,
// affect scalars, nodes, fatigue, momentum, penalties, learned rules and
// histories all start over and exploration is reseeded. Knowledge rules and
// active conditions are kept.
func (e *Engine) Reset() {
	e.wave.Reset()
	e.nodes = nn.DefaultNodes()
	e.regulator = nn.NewRegulator()
	clear(e.fatigue)
	clear(e.momentum)
	clear(e.penalty)
	clear(e.learned)
	e.inputHistory = e.inputHistory[:0]
	e.experience = e.experience[:0]

	e.temperature = nn.Sat(e.cfg.InitialTemperature, maxTemperature, 0)
	e.adrenaline = 0
	e.frustration = 0
	e.velocityTrust = 1
	e.morale = 1
	e.patience = 1
	e.explorationBeta = e.cfg.ExplorationBeta
	e.rewardBaseline = 0
	e.lastTopologyTemperature = -1
	e.rng = rand.New(rand.NewSource(e.cfg.Seed))
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Topology == "" {
		cfg.Topology = def.Topology
	}
	if cfg.Gamma <= 0 || cfg.Gamma >= 1 {
		cfg.Gamma = def.Gamma
	}
	if cfg.DT <= 0 {
		cfg.DT = def.DT
	}
	if cfg.ClearWinThreshold <= 0 {
		cfg.ClearWinThreshold = def.ClearWinThreshold
	}
	return cfg
}

func (e *Engine) StateSize() int { return e.stateSize }

func (e *Engine) CategorySizes() []int { return slices.Clone(e.categorySizes) }

func (e *Engine) clampState(state int) int {
	if state < 0 {
		return 0
	}
	if state >= e.stateSize {
		return e.stateSize - 1
	}
	return state
}

func (e *Engine) penaltyRow(state int) []float32 {
	dim := e.wave.Dim()
	return e.penalty[state*dim : (state+1)*dim]
}

// flatten converts one local action index per category into flattened
// indices. Categories whose index is out of range are dropped.
func (e *Engine) flatten(actions []int) []int {
	out := make([]int, 0, len(actions))
	for cat, a := range actions {
		if cat >= len(e.categorySizes) || a < 0 || a >= e.categorySizes[cat] {
			continue
		}
		out = append(out, e.offsets[cat]+a)
	}
	return out
}

func (e *Engine) pushInput(state int) {
	if len(e.inputHistory) == inputHistoryCap {
		copy(e.inputHistory, e.inputHistory[1:])
		e.inputHistory = e.inputHistory[:inputHistoryCap-1]
	}
	e.inputHistory = append(e.inputHistory, state)
}

func (e *Engine) pushExperience(x experience) {
	if len(e.experience) == experienceCap {
		copy(e.experience, e.experience[1:])
		e.experience = e.experience[:experienceCap-1]
	}
	e.experience = append(e.experience, x)
}
