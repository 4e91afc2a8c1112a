// Package lattice holds weighted word lattices and the word insertion
// penalty rewriter.
//
// Lattices use the compact form: an acceptor whose arcs carry a word label
// and a weight of (graph cost, acoustic cost, transition ids). Costs are
// negative log probabilities; the penalty is added to the graph cost.
package lattice

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed text lattices.
var ErrSyntax = errors.New("lattice: syntax error")

// Weight is a lattice arc or final weight.
type Weight struct {
	Graph    float32 `msgpack:"g"`
	Acoustic float32 `msgpack:"a"`
	Trans    []int32 `msgpack:"t,omitempty"`
}

// IsOne reports whether w is the identity weight.
func (w Weight) IsOne() bool {
	return w.Graph == 0 && w.Acoustic == 0 && len(w.Trans) == 0
}

// Arc is a transition between two states.
type Arc struct {
	Src    int32  `msgpack:"s"`
	Dst    int32  `msgpack:"d"`
	ILabel int64  `msgpack:"i"`
	OLabel int64  `msgpack:"o"`
	Weight Weight `msgpack:"w"`
}

// Final marks a final state.
type Final struct {
	State  int32  `msgpack:"s"`
	Weight Weight `msgpack:"w"`
}

// Lattice is a weighted lattice. Arcs are kept in input order.
type Lattice struct {
	Arcs   []Arc   `msgpack:"arcs"`
	Finals []Final `msgpack:"finals"`

	// Compact is set when weights carry transition ids (three comma
	// separated fields in text form).
	Compact bool `msgpack:"compact"`
}

// NumStates returns one more than the largest state id referenced.
func (l *Lattice) NumStates() int {
	n := int32(-1)
	for _, a := range l.Arcs {
		n = max(n, a.Src, a.Dst)
	}
	for _, f := range l.Finals {
		n = max(n, f.State)
	}
	return int(n + 1)
}

// ParseText parses the body of a text lattice: one arc per line as
// "src dst label weight" (acceptor) or "src dst ilabel olabel weight",
// and final states as "state [weight]". Parsing stops at the first blank
// line or at EOF.
func ParseText(r *bufio.Reader) (*Lattice, error) {
	l := &Lattice{}
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return l, nil
		}
		if perr := l.parseLine(fields); perr != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, perr)
		}
		if err != nil {
			return l, nil
		}
	}
}

func (l *Lattice) parseLine(fields []string) error {
	switch len(fields) {
	case 1, 2:
		s, err := parseState(fields[0])
		if err != nil {
			return err
		}
		var w Weight
		if len(fields) == 2 {
			if w, err = l.parseWeight(fields[1]); err != nil {
				return err
			}
		}
		l.Finals = append(l.Finals, Final{State: s, Weight: w})
	case 4, 5:
		src, err := parseState(fields[0])
		if err != nil {
			return err
		}
		dst, err := parseState(fields[1])
		if err != nil {
			return err
		}
		il, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return err
		}
		ol := il
		if len(fields) == 5 {
			if ol, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
				return err
			}
		}
		w, err := l.parseWeight(fields[len(fields)-1])
		if err != nil {
			return err
		}
		l.Arcs = append(l.Arcs, Arc{Src: src, Dst: dst, ILabel: il, OLabel: ol, Weight: w})
	default:
		return fmt.Errorf("unexpected %d fields", len(fields))
	}
	return nil
}

func parseState(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative state %d", v)
	}
	return int32(v), nil
}

func (l *Lattice) parseWeight(s string) (Weight, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Weight{}, fmt.Errorf("bad weight %q", s)
	}
	g, err := strconv.ParseFloat(parts[0], 32)
	if err != nil {
		return Weight{}, err
	}
	a, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return Weight{}, err
	}
	w := Weight{Graph: float32(g), Acoustic: float32(a)}
	if len(parts) == 3 {
		l.Compact = true
		if parts[2] != "" {
			for _, t := range strings.Split(parts[2], "_") {
				v, err := strconv.ParseInt(t, 10, 32)
				if err != nil {
					return Weight{}, err
				}
				w.Trans = append(w.Trans, int32(v))
			}
		}
	}
	return w, nil
}

// WriteText writes the lattice body in the form ParseText reads,
// followed by the terminating blank line.
func (l *Lattice) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, a := range l.Arcs {
		if a.ILabel == a.OLabel {
			fmt.Fprintf(bw, "%d\t%d\t%d\t%s\n", a.Src, a.Dst, a.ILabel, l.formatWeight(a.Weight))
		} else {
			fmt.Fprintf(bw, "%d\t%d\t%d\t%d\t%s\n", a.Src, a.Dst, a.ILabel, a.OLabel, l.formatWeight(a.Weight))
		}
	}
	for _, f := range l.Finals {
		if f.Weight.IsOne() {
			fmt.Fprintf(bw, "%d\n", f.State)
		} else {
			fmt.Fprintf(bw, "%d\t%s\n", f.State, l.formatWeight(f.Weight))
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

func (l *Lattice) formatWeight(w Weight) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(float64(w.Graph), 'g', -1, 32))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(float64(w.Acoustic), 'g', -1, 32))
	if l.Compact {
		b.WriteByte(',')
		for i, t := range w.Trans {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteString(strconv.Itoa(int(t)))
		}
	}
	return b.String()
}
