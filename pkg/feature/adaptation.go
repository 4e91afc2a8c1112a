package feature

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// AdaptationState accumulates a speaker's feature statistics across
// utterances. It belongs to exactly one speaker.
type AdaptationState struct {
	Dim   int       `msgpack:"dim"`
	Count float64   `msgpack:"count"` // number of frames summed, possibly down-weighted
	Sum   []float64 `msgpack:"sum"`
}

// NewAdaptationState returns an empty state of dimension dim.
func NewAdaptationState(dim int) *AdaptationState {
	return &AdaptationState{Dim: dim, Sum: make([]float64, dim)}
}

// Clone returns a deep copy.
func (s *AdaptationState) Clone() *AdaptationState {
	c := *s
	c.Sum = append([]float64(nil), s.Sum...)
	return &c
}

// Mean returns Sum/Count, or a zero vector when Count is 0.
func (s *AdaptationState) Mean() []float32 {
	m := make([]float32, s.Dim)
	if s.Count <= 0 {
		return m
	}
	for i, v := range s.Sum {
		m[i] = float32(v / s.Count)
	}
	return m
}

// Cap scales the statistics down so Count does not exceed maxFrames.
// A non-positive maxFrames leaves the state unchanged.
func (s *AdaptationState) Cap(maxFrames float64) {
	if maxFrames <= 0 || s.Count <= maxFrames {
		return
	}
	f := maxFrames / s.Count
	for i := range s.Sum {
		s.Sum[i] *= f
	}
	s.Count = maxFrames
}

// adaptationState has the fields of AdaptationState without its
// BinaryMarshaler methods, which msgpack would otherwise call back into.
type adaptationState AdaptationState

// MarshalBinary encodes the state with msgpack.
func (s *AdaptationState) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal((*adaptationState)(s))
}

// UnmarshalBinary decodes a msgpack-encoded state.
func (s *AdaptationState) UnmarshalBinary(data []byte) error {
	if err := msgpack.Unmarshal(data, (*adaptationState)(s)); err != nil {
		return fmt.Errorf("feature: decode adaptation state: %w", err)
	}
	if len(s.Sum) != s.Dim {
		return fmt.Errorf("feature: adaptation state has %d sums for dim %d", len(s.Sum), s.Dim)
	}
	return nil
}
