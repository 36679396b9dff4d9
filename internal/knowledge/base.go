// Package knowledge holds symbolic condition -> action rules that bias or
// exclude actions independently of the wave substrate.
package knowledge

import "slices"

const (
	// ExclusionThreshold marks rules that act as near-hard exclusions.
	ExclusionThreshold = -0.8

	maxStrength = 3.0
	minStrength = -1.0
)

type Rule struct {
	ConditionID  int32
	TargetAction int
	Strength     float32
}

// Resonance is the summed strength of every fired rule for one action.
// Present is false when no rule targeted the action.
type Resonance struct {
	Strength float32
	Present  bool
}

func (r Resonance) Excluded() bool {
	return r.Present && r.Strength <= ExclusionThreshold
}

type Base struct {
	rules []Rule
}

func NewBase() *Base {
	return &Base{}
}

// AddRule appends a rule verbatim. Negative actions are ignored.
func (b *Base) AddRule(conditionID int32, targetAction int, strength float32) {
	if targetAction < 0 {
		return
	}
	b.rules = append(b.rules, Rule{ConditionID: conditionID, TargetAction: targetAction, Strength: strength})
}

// Reinforce adds delta to the first rule matching (condition, action), or
// creates one, and returns the resulting strength.
func (b *Base) Reinforce(conditionID int32, targetAction int, delta float32) float32 {
	if targetAction < 0 {
		return 0
	}
	for i := range b.rules {
		r := &b.rules[i]
		if r.ConditionID == conditionID && r.TargetAction == targetAction {
			r.Strength = clampStrength(r.Strength + delta)
			return r.Strength
		}
	}
	s := clampStrength(delta)
	b.rules = append(b.rules, Rule{ConditionID: conditionID, TargetAction: targetAction, Strength: s})
	return s
}

// ResonanceField sums the strengths of rules whose condition is active.
func (b *Base) ResonanceField(active []int32, actionSize int) []Resonance {
	field := make([]Resonance, actionSize)
	if len(active) == 0 {
		return field
	}
	for _, r := range b.rules {
		if r.TargetAction >= actionSize || !slices.Contains(active, r.ConditionID) {
			continue
		}
		field[r.TargetAction].Strength += r.Strength
		field[r.TargetAction].Present = true
	}
	return field
}

// Fired reports whether any entry of field came from a rule.
func Fired(field []Resonance) bool {
	for _, r := range field {
		if r.Present {
			return true
		}
	}
	return false
}

func (b *Base) Rules() []Rule {
	return slices.Clone(b.rules)
}

// Replace swaps the whole rule list, used when restoring a snapshot.
func (b *Base) Replace(rules []Rule) {
	b.rules = slices.Clone(rules)
}

func clampStrength(s float32) float32 {
	if s > maxStrength {
		return maxStrength
	}
	if s < minStrength {
		return minStrength
	}
	return s
}
