package table

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/amcompute/pkg/kv"
	"github.com/haivivi/amcompute/pkg/lattice"
)

// LatticeTable is the default badger table for lattices.
const LatticeTable = "lattices"

// KeyedLattice is one lattice archive entry.
type KeyedLattice struct {
	Key     string           `msgpack:"k"`
	Lattice *lattice.Lattice `msgpack:"l"`
}

// LatticeReader reads a lattice archive sequentially.
type LatticeReader struct {
	spec  Spec
	table string
	rc    io.ReadCloser
}

// OpenLatticeReader opens rspec, an ark: or badger: lattice table.
func OpenLatticeReader(ctx context.Context, rspec string, o Options) (*LatticeReader, error) {
	s, err := Parse(rspec)
	if err != nil {
		return nil, err
	}
	r := &LatticeReader{spec: s, table: o.table(LatticeTable)}
	switch s.Kind {
	case KindBadger:
	case KindArchive:
		if r.rc, err = o.files().Open(ctx, s.Location); err != nil {
			return nil, fmt.Errorf("table: open %s: %w", s, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: lattices are read from ark: or badger:", ErrSpecifier, s)
	}
	return r, nil
}

// All yields lattices in archive order. It can be ranged over once.
func (r *LatticeReader) All(ctx context.Context) iter.Seq2[KeyedLattice, error] {
	switch {
	case r.spec.Kind == KindBadger:
		return r.badger(ctx)
	case r.spec.Text:
		return readTextLattices(r.rc)
	}
	return readBinaryLattices(r.rc)
}

func (r *LatticeReader) badger(ctx context.Context) iter.Seq2[KeyedLattice, error] {
	return func(yield func(KeyedLattice, error) bool) {
		store, err := openBadger(r.spec, true)
		if err != nil {
			yield(KeyedLattice{}, err)
			return
		}
		defer store.Close()
		for e, err := range store.Scan(ctx, r.table) {
			if err != nil {
				yield(KeyedLattice{}, err)
				return
			}
			var l lattice.Lattice
			if err := msgpack.Unmarshal(e.Value, &l); err != nil {
				yield(KeyedLattice{}, fmt.Errorf("table: decode lattice %q: %w", e.Key.ID, err))
				return
			}
			if !yield(KeyedLattice{Key: e.Key.ID, Lattice: &l}, nil) {
				return
			}
		}
	}
}

func (r *LatticeReader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}

// readTextLattices parses "key" lines each followed by a lattice body.
func readTextLattices(rd io.Reader) iter.Seq2[KeyedLattice, error] {
	return func(yield func(KeyedLattice, error) bool) {
		br := bufio.NewReader(rd)
		for {
			line, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				yield(KeyedLattice{}, err)
				return
			}
			fields := strings.Fields(line)
			switch {
			case len(fields) == 0:
				if err != nil {
					return
				}
				continue
			case len(fields) > 1:
				yield(KeyedLattice{}, fmt.Errorf("table: expected lattice key, got %q", strings.TrimSpace(line)))
				return
			}
			key := fields[0]
			l, perr := lattice.ParseText(br)
			if perr != nil {
				yield(KeyedLattice{}, fmt.Errorf("table: lattice %q: %w", key, perr))
				return
			}
			if !yield(KeyedLattice{Key: key, Lattice: l}, nil) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func readBinaryLattices(rd io.Reader) iter.Seq2[KeyedLattice, error] {
	return func(yield func(KeyedLattice, error) bool) {
		dec := msgpack.NewDecoder(bufio.NewReader(rd))
		for {
			var kl KeyedLattice
			err := dec.Decode(&kl)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(KeyedLattice{}, fmt.Errorf("table: read lattice archive: %w", err))
				return
			}
			if !yield(kl, nil) {
				return
			}
		}
	}
}

// LatticeWriter writes lattices to an ark: or badger: table.
type LatticeWriter struct {
	spec  Spec
	table string
	wc    io.WriteCloser
	bw    *bufio.Writer
	enc   *msgpack.Encoder
	store kv.Store
}

// CreateLatticeWriter opens wspec for writing.
func CreateLatticeWriter(ctx context.Context, wspec string, o Options) (*LatticeWriter, error) {
	s, err := Parse(wspec)
	if err != nil {
		return nil, err
	}
	w := &LatticeWriter{spec: s, table: o.table(LatticeTable)}
	switch s.Kind {
	case KindBadger:
		if w.store, err = openBadger(s, false); err != nil {
			return nil, err
		}
	case KindArchive:
		if w.wc, err = o.files().Create(ctx, s.Location); err != nil {
			return nil, fmt.Errorf("table: create %s: %w", s, err)
		}
		w.bw = bufio.NewWriter(w.wc)
		if !s.Text {
			w.enc = msgpack.NewEncoder(w.bw)
		}
	default:
		return nil, fmt.Errorf("%w: %s: lattices are written to ark: or badger:", ErrSpecifier, s)
	}
	return w, nil
}

// Write appends one lattice.
func (w *LatticeWriter) Write(ctx context.Context, key string, l *lattice.Lattice) error {
	if key == "" || strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("table: invalid key %q", key)
	}
	switch {
	case w.store != nil:
		val, err := msgpack.Marshal(l)
		if err != nil {
			return err
		}
		return w.store.Put(ctx, kv.Key{Table: w.table, ID: key}, val)
	case w.enc != nil:
		if err := w.enc.Encode(KeyedLattice{Key: key, Lattice: l}); err != nil {
			return fmt.Errorf("table: write lattice %q: %w", key, err)
		}
		return nil
	}
	w.bw.WriteString(key)
	w.bw.WriteByte('\n')
	if err := l.WriteText(w.bw); err != nil {
		return err
	}
	if w.spec.Location == "-" {
		return w.bw.Flush()
	}
	return nil
}

// Close flushes and closes the table.
func (w *LatticeWriter) Close() error {
	if w.store != nil {
		return w.store.Close()
	}
	ferr := w.bw.Flush()
	cerr := w.wc.Close()
	return errors.Join(ferr, cerr)
}
