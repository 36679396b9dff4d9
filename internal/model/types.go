package model

// Shape is the construction-time geometry of an engine. Legacy snapshot
// layouts do not describe themselves and need it to be decoded.
type Shape struct {
	StateSize     int   `json:"state_size"`
	CategorySizes []int `json:"category_sizes"`
}

// ActionSize is the number of flattened actions across all categories.
func (s Shape) ActionSize() int {
	total := 0
	for _, size := range s.CategorySizes {
		total += size
	}
	return total
}

type NodeRecord struct {
	State     float32 `json:"state"`
	BaseDecay float32 `json:"base_decay"`
}

type LearnedRule struct {
	State  uint32 `json:"state"`
	Action uint32 `json:"action"`
	Count  uint32 `json:"count"`
}

type KnowledgeRule struct {
	ConditionID  int32   `json:"condition_id"`
	TargetAction uint32  `json:"target_action"`
	Strength     float32 `json:"strength"`
}

type Entanglement struct {
	Source   uint32  `json:"source"`
	Target   uint32  `json:"target"`
	Strength float32 `json:"strength"`
}

// Snapshot is the decoded form of a persisted engine. Blocks a version does
// not carry are left nil; Version tells the loader which scalars are valid.
type Snapshot struct {
	Version   uint32 `json:"version"`
	StateSize int    `json:"state_size"`

	Temperature     float32 `json:"temperature"`
	Adrenaline      float32 `json:"adrenaline"`
	Frustration     float32 `json:"frustration"`
	VelocityTrust   float32 `json:"velocity_trust"`
	Morale          float32 `json:"morale"`
	Patience        float32 `json:"patience"`
	ExplorationBeta float32 `json:"exploration_beta"`
	GlutamateBuffer float32 `json:"glutamate_buffer"`

	Fatigue       []float32     `json:"fatigue,omitempty"`
	Momentum      []float32     `json:"momentum,omitempty"`
	Gravity       []float32     `json:"gravity,omitempty"`
	InputHistory  []uint32      `json:"input_history,omitempty"`
	CategorySizes []int         `json:"category_sizes,omitempty"`
	Nodes         []NodeRecord  `json:"nodes,omitempty"`
	LearnedRules  []LearnedRule `json:"learned_rules,omitempty"`

	Dim     int       `json:"dim"`
	PsiReal []float32 `json:"-"`
	PsiImag []float32 `json:"-"`
	Theta   []float32 `json:"-"`

	Frequencies    []float32       `json:"-"`
	MemoryReal     []float64       `json:"-"`
	MemoryImag     []float64       `json:"-"`
	Penalty        []float32       `json:"-"`
	Knowledge      []KnowledgeRule `json:"knowledge,omitempty"`
	Entanglements  []Entanglement  `json:"entanglements,omitempty"`
	RewardBaseline float32         `json:"reward_baseline"`
}

// SnapshotRecord describes a stored snapshot without its payload.
type SnapshotRecord struct {
	ID        string `json:"id"`
	Version   uint32 `json:"version"`
	StateSize int    `json:"state_size"`
	Size      int    `json:"size"`
}
