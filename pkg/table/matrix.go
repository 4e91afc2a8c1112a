package table

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/amcompute/pkg/kv"
)

// Default badger table names.
const (
	MatrixTable = "matrices"
	VectorTable = "vectors"
)

// MatrixReader is a random access reader over a matrix table. Archives are
// loaded into memory when the reader is opened; badger tables are read on
// demand.
type MatrixReader struct {
	store kv.Store
	table string
}

// OpenMatrixReader opens rspec for random access.
func OpenMatrixReader(ctx context.Context, rspec string, o Options) (*MatrixReader, error) {
	return openMatrixReader(ctx, rspec, o, o.table(MatrixTable))
}

func openMatrixReader(ctx context.Context, rspec string, o Options, table string) (*MatrixReader, error) {
	s, err := Parse(rspec)
	if err != nil {
		return nil, err
	}
	var store kv.Store
	if s.Kind == KindBadger {
		store, err = openBadger(s, true)
	} else {
		store, err = loadRecords(ctx, o, s, table)
	}
	if err != nil {
		return nil, err
	}
	return &MatrixReader{store: store, table: table}, nil
}

// Get returns the matrix stored under key, or ErrNotFound.
func (r *MatrixReader) Get(ctx context.Context, key string) ([][]float32, error) {
	val, err := r.store.Get(ctx, kv.Key{Table: r.table, ID: key})
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	var rows [][]float32
	if err := msgpack.Unmarshal(val, &rows); err != nil {
		return nil, fmt.Errorf("table: decode %q: %w", key, err)
	}
	return rows, nil
}

func (r *MatrixReader) Close() error { return r.store.Close() }

// VectorReader is a random access reader over a vector table, such as
// per-frame voicing masks.
type VectorReader struct {
	m *MatrixReader
}

// OpenVectorReader opens rspec for random access.
func OpenVectorReader(ctx context.Context, rspec string, o Options) (*VectorReader, error) {
	m, err := openMatrixReader(ctx, rspec, o, o.table(VectorTable))
	if err != nil {
		return nil, err
	}
	return &VectorReader{m: m}, nil
}

// Get returns the vector stored under key, or ErrNotFound. An empty
// record is a zero-length vector.
func (r *VectorReader) Get(ctx context.Context, key string) ([]float32, error) {
	rows, err := r.m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return []float32{}, nil
	case 1:
		return rows[0], nil
	}
	return nil, fmt.Errorf("table: %q is a %d-row matrix, not a vector", key, len(rows))
}

func (r *VectorReader) Close() error { return r.m.Close() }

// MatrixWriter writes matrices to a text archive, a msgpack archive or a
// badger table.
type MatrixWriter struct {
	spec  Spec
	table string

	wc  io.WriteCloser
	bw  *bufio.Writer
	enc *msgpack.Encoder

	store kv.Store
}

// CreateMatrixWriter opens wspec for writing.
func CreateMatrixWriter(ctx context.Context, wspec string, o Options) (*MatrixWriter, error) {
	s, err := Parse(wspec)
	if err != nil {
		return nil, err
	}
	w := &MatrixWriter{spec: s, table: o.table(MatrixTable)}
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
		return nil, fmt.Errorf("%w: %s: matrices are written to ark: or badger:", ErrSpecifier, s)
	}
	return w, nil
}

// Write appends one matrix.
func (w *MatrixWriter) Write(ctx context.Context, key string, rows [][]float32) error {
	switch {
	case w.store != nil:
		val, err := msgpack.Marshal(rows)
		if err != nil {
			return err
		}
		return w.store.Put(ctx, kv.Key{Table: w.table, ID: key}, val)
	case w.enc != nil:
		if err := w.enc.Encode(record{Key: key, Rows: rows}); err != nil {
			return fmt.Errorf("table: write %q: %w", key, err)
		}
		return nil
	}
	if err := writeTextRecord(w.bw, key, rows); err != nil {
		return err
	}
	// Whole records reach stdout as they are written.
	if w.spec.Location == "-" {
		return w.bw.Flush()
	}
	return nil
}

// Close flushes and closes the table.
func (w *MatrixWriter) Close() error {
	if w.store != nil {
		return w.store.Close()
	}
	ferr := w.bw.Flush()
	cerr := w.wc.Close()
	return errors.Join(ferr, cerr)
}
