package table

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/amcompute/pkg/kv"
	"github.com/haivivi/amcompute/pkg/storage"
)

// readBinaryArchive yields the records of a msgpack record stream.
func readBinaryArchive(r io.Reader) iter.Seq2[record, error] {
	return func(yield func(record, error) bool) {
		dec := msgpack.NewDecoder(bufio.NewReader(r))
		for {
			var rec record
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(record{}, fmt.Errorf("table: read archive: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func readArchive(r io.Reader, text bool) iter.Seq2[record, error] {
	if text {
		return readTextArchive(r)
	}
	return readBinaryArchive(r)
}

// Options are shared by all readers and writers.
type Options struct {
	// Files resolves locations. Nil means local files and stdio only.
	Files *storage.Resolver

	// Table names the badger table; each reader and writer has its own
	// default.
	Table string
}

func (o Options) files() *storage.Resolver {
	if o.Files == nil {
		return &storage.Resolver{}
	}
	return o.Files
}

func (o Options) table(def string) string {
	if o.Table != "" {
		return o.Table
	}
	return def
}

// openBadger opens the directory of a badger: specifier.
func openBadger(s Spec, readOnly bool) (*kv.Badger, error) {
	return kv.NewBadger(kv.BadgerOptions{Dir: s.Location, ReadOnly: readOnly})
}

// loadRecords reads a whole archive into a memory store under table.
func loadRecords(ctx context.Context, o Options, s Spec, table string) (*kv.Memory, error) {
	if s.Kind != KindArchive {
		return nil, fmt.Errorf("%w: %s: random access needs ark: or badger:", ErrSpecifier, s)
	}
	rc, err := o.files().Open(ctx, s.Location)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", s, err)
	}
	defer rc.Close()

	mem := kv.NewMemory()
	for rec, err := range readArchive(rc, s.Text) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		val, err := msgpack.Marshal(rec.Rows)
		if err != nil {
			return nil, err
		}
		if err := mem.Put(ctx, kv.Key{Table: table, ID: rec.Key}, val); err != nil {
			return nil, err
		}
	}
	return mem, nil
}
