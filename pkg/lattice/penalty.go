package lattice

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrConfigInconsistent is returned by Policy.Validate when the hotword
// penalty is not below the word penalty.
var ErrConfigInconsistent = errors.New("lattice: inconsistent penalty configuration")

// Mode selects how hotword arcs are penalized.
type Mode int

const (
	// ModeExempt leaves hotword arcs unchanged.
	ModeExempt Mode = iota
	// ModeGraded gives hotword arcs the hotword penalty.
	ModeGraded
)

func (m Mode) String() string {
	switch m {
	case ModeExempt:
		return "exempt"
	case ModeGraded:
		return "graded"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Policy is a word insertion penalty with a hotword list.
type Policy struct {
	WordPenalty    float32
	HotwordPenalty float32
	Hotwords       map[int64]struct{}
}

// NewPolicy builds a policy from a hotword id list.
func NewPolicy(wordPenalty, hotwordPenalty float32, hotwords []int64) Policy {
	set := make(map[int64]struct{}, len(hotwords))
	for _, id := range hotwords {
		set[id] = struct{}{}
	}
	return Policy{WordPenalty: wordPenalty, HotwordPenalty: hotwordPenalty, Hotwords: set}
}

// Mode returns ModeExempt when no hotword penalty is set.
func (p Policy) Mode() Mode {
	if p.HotwordPenalty == 0 {
		return ModeExempt
	}
	return ModeGraded
}

// Validate checks that a graded policy penalizes hotwords less than other
// words.
func (p Policy) Validate() error {
	if p.Mode() == ModeGraded && !(p.HotwordPenalty < p.WordPenalty) {
		return fmt.Errorf("%w: hotword penalty %g must be less than word penalty %g",
			ErrConfigInconsistent, p.HotwordPenalty, p.WordPenalty)
	}
	return nil
}

// IsHotword reports whether label is in the hotword list.
func (p Policy) IsHotword(label int64) bool {
	_, ok := p.Hotwords[label]
	return ok
}

// Apply adds the penalty to every non-epsilon arc of l and returns the
// number of arcs changed.
func (p Policy) Apply(l *Lattice) int {
	mode := p.Mode()
	n := 0
	for i := range l.Arcs {
		a := &l.Arcs[i]
		if a.ILabel == 0 {
			continue
		}
		pen := p.WordPenalty
		if p.IsHotword(a.OLabel) {
			if mode == ModeExempt {
				continue
			}
			pen = p.HotwordPenalty
		}
		a.Weight.Graph += pen
		n++
	}
	return n
}

// ReadHotwords reads one integer id per line. Blank lines are skipped.
func ReadHotwords(r io.Reader) ([]int64, error) {
	var ids []int64
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lattice: hotword ids line %d: %w", lineNo, err)
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lattice: read hotword ids: %w", err)
	}
	return ids, nil
}
