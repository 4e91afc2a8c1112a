package table

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/amcompute/pkg/kv"
)

const importBatch = 1000

// Import copies every record of the archive rspec into the badger
// directory dir, under o.Table (default VectorTable), and returns the
// number of records copied.
func Import(ctx context.Context, rspec, dir string, o Options) (n int, err error) {
	s, err := Parse(rspec)
	if err != nil {
		return 0, err
	}
	if s.Kind != KindArchive {
		return 0, fmt.Errorf("%w: %s: import reads ark: archives", ErrSpecifier, s)
	}
	rc, err := o.files().Open(ctx, s.Location)
	if err != nil {
		return 0, fmt.Errorf("table: open %s: %w", s, err)
	}
	defer rc.Close()

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := store.Close(); err == nil {
			err = cerr
		}
	}()

	table := o.table(VectorTable)
	var batch []kv.Entry
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.PutBatch(ctx, batch); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for rec, err := range readArchive(rc, s.Text) {
		if err != nil {
			return n, fmt.Errorf("%s: %w", s, err)
		}
		val, err := msgpack.Marshal(rec.Rows)
		if err != nil {
			return n, err
		}
		batch = append(batch, kv.Entry{Key: kv.Key{Table: table, ID: rec.Key}, Value: val})
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := flush(); err != nil {
		return n, err
	}
	return n, nil
}
