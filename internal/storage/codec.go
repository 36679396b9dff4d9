package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"darksingularity/internal/model"
)

// DSYM layout constants.
const (
	SnapshotMagic          = "DSYM"
	CurrentSnapshotVersion = 6

	// First version whose layout carries the substrate instead of a Q-table.
	wavePersistenceVersion = 5
	// First version that records state_size in the header.
	stateSizeHeaderVersion = 4
)

// EncodeSnapshot writes s in the current DSYM layout regardless of s.Version.
func EncodeSnapshot(s model.Snapshot) ([]byte, error) {
	if s.StateSize < 0 || s.Dim < 0 {
		return nil, fmt.Errorf("%w: negative dimension state_size=%d dim=%d", ErrMalformedSnapshot, s.StateSize, s.Dim)
	}
	if len(s.PsiReal) != s.Dim || len(s.PsiImag) != s.Dim {
		return nil, fmt.Errorf("%w: psi length re=%d im=%d dim=%d", ErrMalformedSnapshot, len(s.PsiReal), len(s.PsiImag), s.Dim)
	}
	if len(s.MemoryReal) != len(s.MemoryImag) {
		return nil, fmt.Errorf("%w: memory length re=%d im=%d", ErrMalformedSnapshot, len(s.MemoryReal), len(s.MemoryImag))
	}

	e := &encoder{buf: make([]byte, 0, 64+8*s.Dim+4*len(s.Theta)+4*len(s.Penalty))}
	e.buf = append(e.buf, SnapshotMagic...)
	e.u32(CurrentSnapshotVersion)
	e.u32(uint32(s.StateSize))

	for _, v := range []float32{
		s.Temperature, s.Adrenaline, s.Frustration, s.VelocityTrust,
		s.Morale, s.Patience, s.ExplorationBeta, s.GlutamateBuffer,
	} {
		e.f32(v)
	}

	e.f32s(s.Fatigue)
	e.f32s(s.Momentum)
	e.f32s(s.Gravity)
	e.u32s(s.InputHistory)

	e.u32(uint32(len(s.CategorySizes)))
	for _, size := range s.CategorySizes {
		if size < 0 {
			return nil, fmt.Errorf("%w: negative category size %d", ErrMalformedSnapshot, size)
		}
		e.u32(uint32(size))
	}

	e.u32(uint32(len(s.Nodes)))
	for _, n := range s.Nodes {
		e.f32(n.State)
		e.f32(n.BaseDecay)
	}

	e.u32(uint32(len(s.LearnedRules)))
	for _, r := range s.LearnedRules {
		e.u32(r.State)
		e.u32(r.Action)
		e.u32(r.Count)
	}

	e.u32(uint32(s.Dim))
	for _, v := range s.PsiReal {
		e.f32(v)
	}
	for _, v := range s.PsiImag {
		e.f32(v)
	}
	e.f32s(s.Theta)

	e.f32s(s.Frequencies)
	e.u32(uint32(len(s.MemoryReal)))
	for i := range s.MemoryReal {
		e.f64(s.MemoryReal[i])
		e.f64(s.MemoryImag[i])
	}
	e.f32s(s.Penalty)

	e.u32(uint32(len(s.Knowledge)))
	for _, r := range s.Knowledge {
		e.u32(uint32(r.ConditionID))
		e.u32(r.TargetAction)
		e.f32(r.Strength)
	}

	e.u32(uint32(len(s.Entanglements)))
	for _, en := range s.Entanglements {
		e.u32(en.Source)
		e.u32(en.Target)
		e.f32(en.Strength)
	}
	e.f32(s.RewardBaseline)

	return e.buf, nil
}

// ReadHeader returns the version and, for versions that record it, the
// state size of a DSYM payload. stateSize is 0 for older layouts.
func ReadHeader(data []byte) (version uint32, stateSize int, err error) {
	d := &decoder{data: data}
	version = d.header()
	if version >= stateSizeHeaderVersion {
		stateSize = int(d.u32())
	}
	if d.err != nil {
		return 0, 0, d.err
	}
	return version, stateSize, nil
}

// DecodeSnapshot parses a DSYM payload of any supported version. shape is
// the geometry of the engine the snapshot will be applied to: a non-zero
// StateSize must match the stored one, and legacy layouts (versions 2-4)
// use it to compute the size of blocks they skip.
func DecodeSnapshot(data []byte, shape model.Shape) (model.Snapshot, error) {
	d := &decoder{data: data}
	s := model.Snapshot{Version: d.header()}
	if d.err != nil {
		return model.Snapshot{}, d.err
	}

	s.StateSize = shape.StateSize
	if s.Version >= stateSizeHeaderVersion {
		stored := int(d.u32())
		if d.err != nil {
			return model.Snapshot{}, d.err
		}
		if shape.StateSize > 0 && stored != shape.StateSize {
			return model.Snapshot{}, fmt.Errorf("%w: state_size expected=%d found=%d", ErrIncompatibleDimensions, shape.StateSize, stored)
		}
		s.StateSize = stored
	}

	if s.Version < wavePersistenceVersion {
		d.legacy(&s, shape)
	} else {
		d.current(&s)
	}
	if d.err != nil {
		return model.Snapshot{}, d.err
	}
	return s, nil
}

// legacy reads the Q-table era layouts. Visit counts and the Q-table are
// skipped by offset; only the fields that survive into the current engine
// are kept.
func (d *decoder) legacy(s *model.Snapshot, shape model.Shape) {
	s.Temperature = d.f32()
	s.Adrenaline = d.f32()
	s.Frustration = d.f32()
	s.VelocityTrust = d.f32()
	s.Morale = d.f32()
	s.Patience = d.f32()
	if s.Version >= 3 {
		s.ExplorationBeta = d.f32()
	}
	if s.Version >= 4 {
		s.GlutamateBuffer = d.f32()
	}

	if s.Version >= 2 {
		actionSize := shape.ActionSize()
		if d.err == nil && (actionSize == 0 || s.StateSize == 0) {
			d.err = fmt.Errorf("%w: version %d layout needs the engine shape", ErrIncompatibleDimensions, s.Version)
			return
		}
		s.Fatigue = make([]float32, 0, actionSize)
		for i := 0; i < actionSize && d.err == nil; i++ {
			s.Fatigue = append(s.Fatigue, d.f32())
		}
		if s.Version >= 3 {
			d.skip(4 * s.StateSize * actionSize)
		}

		cats := d.u32s()
		s.CategorySizes = make([]int, len(cats))
		storedActions := 0
		for i, c := range cats {
			s.CategorySizes[i] = int(c)
			storedActions += int(c)
		}
		d.skip(4 * s.StateSize * storedActions)
	}

	s.Nodes = d.nodes()
}

func (d *decoder) current(s *model.Snapshot) {
	s.Temperature = d.f32()
	s.Adrenaline = d.f32()
	s.Frustration = d.f32()
	s.VelocityTrust = d.f32()
	s.Morale = d.f32()
	s.Patience = d.f32()
	s.ExplorationBeta = d.f32()
	s.GlutamateBuffer = d.f32()

	s.Fatigue = d.f32s()
	s.Momentum = d.f32s()
	s.Gravity = d.f32s()
	s.InputHistory = d.u32s()
	cats := d.u32s()
	s.CategorySizes = make([]int, len(cats))
	for i, c := range cats {
		s.CategorySizes[i] = int(c)
	}
	s.Nodes = d.nodes()

	n := d.count(12)
	s.LearnedRules = make([]model.LearnedRule, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.LearnedRules = append(s.LearnedRules, model.LearnedRule{State: d.u32(), Action: d.u32(), Count: d.u32()})
	}

	s.Dim = d.count(8)
	s.PsiReal = d.f32n(s.Dim)
	s.PsiImag = d.f32n(s.Dim)
	s.Theta = d.f32s()

	if s.Version < 6 {
		return
	}
	s.Frequencies = d.f32s()
	n = d.count(16)
	s.MemoryReal = make([]float64, 0, n)
	s.MemoryImag = make([]float64, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.MemoryReal = append(s.MemoryReal, d.f64())
		s.MemoryImag = append(s.MemoryImag, d.f64())
	}
	s.Penalty = d.f32s()

	n = d.count(12)
	s.Knowledge = make([]model.KnowledgeRule, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.Knowledge = append(s.Knowledge, model.KnowledgeRule{
			ConditionID:  int32(d.u32()),
			TargetAction: d.u32(),
			Strength:     d.f32(),
		})
	}

	n = d.count(12)
	s.Entanglements = make([]model.Entanglement, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.Entanglements = append(s.Entanglements, model.Entanglement{Source: d.u32(), Target: d.u32(), Strength: d.f32()})
	}
	s.RewardBaseline = d.f32()
}

type encoder struct {
	buf []byte
}

func (e *encoder) u32(v uint32)  { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) f32(v float32) { e.u32(math.Float32bits(v)) }
func (e *encoder) f64(v float64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v)) }

func (e *encoder) f32s(values []float32) {
	e.u32(uint32(len(values)))
	for _, v := range values {
		e.f32(v)
	}
}

func (e *encoder) u32s(values []uint32) {
	e.u32(uint32(len(values)))
	for _, v := range values {
		e.u32(v)
	}
}

// decoder reads little-endian fields and latches the first error; reads
// after a failure return zero values.
type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) header() uint32 {
	if len(d.data) < 8 || string(d.data[:4]) != SnapshotMagic {
		d.err = fmt.Errorf("%w: missing %s magic", ErrMalformedSnapshot, SnapshotMagic)
		return 0
	}
	d.pos = 4
	version := d.u32()
	if version < 1 || version > CurrentSnapshotVersion {
		d.err = fmt.Errorf("%w: unsupported version %d", ErrMalformedSnapshot, version)
		return 0
	}
	return version
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || len(d.data)-d.pos < n {
		d.err = fmt.Errorf("%w: truncated at offset %d (need %d bytes, have %d)", ErrMalformedSnapshot, d.pos, n, len(d.data)-d.pos)
		return false
	}
	return true
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) f32() float32 { return math.Float32frombits(d.u32()) }

func (d *decoder) f64() float64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return math.Float64frombits(v)
}

func (d *decoder) skip(n int) {
	if d.need(n) {
		d.pos += n
	}
}

// count reads a block length and checks that elemSize*count bytes remain,
// so a corrupt count can not trigger a huge allocation.
func (d *decoder) count(elemSize int) int {
	n := int(d.u32())
	if d.err != nil {
		return 0
	}
	if n > (len(d.data)-d.pos)/elemSize {
		d.err = fmt.Errorf("%w: block of %d entries at offset %d exceeds payload", ErrMalformedSnapshot, n, d.pos)
		return 0
	}
	return n
}

func (d *decoder) f32n(n int) []float32 {
	out := make([]float32, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.f32())
	}
	return out
}

func (d *decoder) f32s() []float32 {
	return d.f32n(d.count(4))
}

func (d *decoder) u32s() []uint32 {
	n := d.count(4)
	out := make([]uint32, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.u32())
	}
	return out
}

func (d *decoder) nodes() []model.NodeRecord {
	n := d.count(8)
	out := make([]model.NodeRecord, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, model.NodeRecord{State: d.f32(), BaseDecay: d.f32()})
	}
	return out
}
