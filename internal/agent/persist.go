package agent

import (
	"cmp"
	"fmt"
	"slices"

	"darksingularity/internal/knowledge"
	"darksingularity/internal/model"
	"darksingularity/internal/nn"
	"darksingularity/internal/storage"
	"darksingularity/internal/substrate"
)

const (
	betaVersion   = 3
	bufferVersion = 4
	waveVersion   = 5
)

// Shape is the geometry a snapshot must match to be applied.
func (e *Engine) Shape() model.Shape {
	return model.Shape{StateSize: e.stateSize, CategorySizes: slices.Clone(e.categorySizes)}
}

// Snapshot captures every persisted field in the current layout.
func (e *Engine) Snapshot() model.Snapshot {
	ws := e.wave.Export()
	s := model.Snapshot{
		Version:         storage.CurrentSnapshotVersion,
		StateSize:       e.stateSize,
		Temperature:     e.temperature,
		Adrenaline:      e.adrenaline,
		Frustration:     e.frustration,
		VelocityTrust:   e.velocityTrust,
		Morale:          e.morale,
		Patience:        e.patience,
		ExplorationBeta: e.explorationBeta,
		GlutamateBuffer: e.regulator.GlutamateBuffer,
		Fatigue:         slices.Clone(e.fatigue),
		Momentum:        slices.Clone(e.momentum),
		Gravity:         ws.Gravity,
		CategorySizes:   slices.Clone(e.categorySizes),
		Dim:             ws.Dim,
		PsiReal:         ws.PsiReal,
		PsiImag:         ws.PsiImag,
		Theta:           ws.Theta,
		Frequencies:     ws.Frequencies,
		MemoryReal:      ws.MemoryReal,
		MemoryImag:      ws.MemoryImag,
		Penalty:         slices.Clone(e.penalty),
		RewardBaseline:  e.rewardBaseline,
	}
	for _, state := range e.inputHistory {
		s.InputHistory = append(s.InputHistory, uint32(state))
	}
	for _, n := range e.nodes {
		s.Nodes = append(s.Nodes, model.NodeRecord{State: n.State, BaseDecay: n.BaseDecay})
	}
	for key, count := range e.learned {
		s.LearnedRules = append(s.LearnedRules, model.LearnedRule{
			State:  uint32(key.state),
			Action: uint32(key.action),
			Count:  count,
		})
	}
	slices.SortFunc(s.LearnedRules, func(a, b model.LearnedRule) int {
		if c := cmp.Compare(a.State, b.State); c != 0 {
			return c
		}
		return cmp.Compare(a.Action, b.Action)
	})
	for _, r := range e.knowledge.Rules() {
		s.Knowledge = append(s.Knowledge, model.KnowledgeRule{
			ConditionID:  r.ConditionID,
			TargetAction: uint32(r.TargetAction),
			Strength:     r.Strength,
		})
	}
	for _, en := range ws.Entanglements {
		s.Entanglements = append(s.Entanglements, model.Entanglement{
			Source:   uint32(en.Source),
			Target:   uint32(en.Target),
			Strength: en.Strength,
		})
	}
	return s
}

// Apply replaces the engine state with s. Every block is checked before
// anything is written, so a rejected snapshot leaves the engine untouched.
// Blocks whose layout does not match this engine (category sizes, legacy
// versions) are skipped rather than rejected. Node states are restored as
// saved; the topology is rewired without inhibiting them.
func (e *Engine) Apply(s model.Snapshot) error {
	if s.StateSize != 0 && s.StateSize != e.stateSize {
		return fmt.Errorf("%w: state_size expected=%d found=%d", storage.ErrIncompatibleDimensions, e.stateSize, s.StateSize)
	}

	// Action-indexed blocks only carry over to an identical category layout.
	sameLayout := slices.Equal(s.CategorySizes, e.categorySizes)
	withWave := s.Version >= waveVersion && sameLayout

	var ws substrate.State
	if withWave {
		ws = substrate.State{
			Dim:         s.Dim,
			PsiReal:     s.PsiReal,
			PsiImag:     s.PsiImag,
			Theta:       s.Theta,
			Frequencies: s.Frequencies,
			Gravity:     s.Gravity,
			MemoryReal:  s.MemoryReal,
			MemoryImag:  s.MemoryImag,
		}
		for _, en := range s.Entanglements {
			ws.Entanglements = append(ws.Entanglements, substrate.Entanglement{
				Source:   int(en.Source),
				Target:   int(en.Target),
				Strength: en.Strength,
			})
		}
		if ws.Entanglements == nil {
			ws.Entanglements = []substrate.Entanglement{}
		}
		if err := e.wave.Validate(ws); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrIncompatibleDimensions, err)
		}
		if n := len(s.Penalty); n != 0 && n != len(e.penalty) {
			return fmt.Errorf("%w: penalty length=%d want=%d", storage.ErrIncompatibleDimensions, n, len(e.penalty))
		}
	}
	for _, v := range []float32{s.Temperature, s.Adrenaline, s.Frustration, s.VelocityTrust, s.Morale, s.Patience} {
		if !nn.Finite(v) {
			return fmt.Errorf("%w: non-finite scalar", storage.ErrMalformedSnapshot)
		}
	}

	if withWave {
		if err := e.wave.Import(ws); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrIncompatibleDimensions, err)
		}
	}

	e.temperature = nn.Sat(s.Temperature, maxTemperature, 0)
	e.adrenaline = nn.Sat(s.Adrenaline, 1, 0)
	e.frustration = nn.Sat(s.Frustration, 1, 0)
	e.velocityTrust = nn.Sat(s.VelocityTrust, 1, 0)
	e.morale = nn.Sat(s.Morale, 1, -1)
	e.patience = nn.Sat(s.Patience, 1, 0)
	if s.Version >= betaVersion && nn.Finite(s.ExplorationBeta) {
		e.explorationBeta = s.ExplorationBeta
	}
	if s.Version >= bufferVersion && nn.Finite(s.GlutamateBuffer) {
		e.regulator.GlutamateBuffer = max(0, s.GlutamateBuffer)
	}

	if sameLayout && len(s.Fatigue) == e.actionSize {
		copy(e.fatigue, s.Fatigue)
	}
	if sameLayout && len(s.Momentum) == e.actionSize {
		copy(e.momentum, s.Momentum)
	}

	for i, rec := range s.Nodes {
		if i >= len(e.nodes) {
			break
		}
		e.nodes[i].State = nn.Sat(rec.State, 1, 0)
		if rec.BaseDecay > 0 && rec.BaseDecay <= 1 {
			e.nodes[i].BaseDecay = rec.BaseDecay
		}
	}

	e.experience = e.experience[:0]
	if s.Version >= waveVersion {
		e.inputHistory = e.inputHistory[:0]
		for _, state := range s.InputHistory {
			if int(state) < e.stateSize {
				e.pushInput(int(state))
			}
		}
		if s.Version > waveVersion && nn.Finite(s.RewardBaseline) {
			e.rewardBaseline = s.RewardBaseline
		}
	}
	if withWave {
		if len(s.Penalty) == len(e.penalty) {
			copy(e.penalty, s.Penalty)
		}

		clear(e.learned)
		for _, r := range s.LearnedRules {
			if int(r.State) < e.stateSize && int(r.Action) < e.actionSize && r.Count > 0 {
				e.learned[ruleKey{state: int(r.State), action: int(r.Action)}] = r.Count
			}
		}

		if s.Knowledge != nil {
			rules := make([]knowledge.Rule, 0, len(s.Knowledge))
			for _, r := range s.Knowledge {
				if int(r.TargetAction) < e.actionSize {
					rules = append(rules, knowledge.Rule{
						ConditionID:  r.ConditionID,
						TargetAction: int(r.TargetAction),
						Strength:     r.Strength,
					})
				}
			}
			e.knowledge.Replace(rules)
		}
	}

	e.lastTopologyTemperature = -1
	e.reshape(true)
	return nil
}

// MarshalBinary encodes the engine as a DSYM payload.
func (e *Engine) MarshalBinary() ([]byte, error) {
	return storage.EncodeSnapshot(e.Snapshot())
}

// UnmarshalBinary decodes a DSYM payload of any supported version and
// applies it.
func (e *Engine) UnmarshalBinary(data []byte) error {
	s, err := storage.DecodeSnapshot(data, e.Shape())
	if err != nil {
		return err
	}
	return e.Apply(s)
}

// Save writes the engine to path atomically.
func (e *Engine) Save(path string) error {
	data, err := e.MarshalBinary()
	if err != nil {
		return err
	}
	return storage.WriteSnapshotFile(path, data)
}

// Load replaces the engine state with the snapshot at path. On error the
// engine is unchanged.
func (e *Engine) Load(path string) error {
	data, err := storage.ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	if err := e.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
