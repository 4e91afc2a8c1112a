// Package kv is the keyed archive store behind badger: tables. Each entry
// is one record of a table (a matrix, a vector, a lattice) keyed by its
// utterance or speaker id.
//
// Two implementations exist: Badger for on-disk archives and Memory for
// tables loaded from text archives and for tests.
package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key addresses one record: Table names the archive ("feats", "ivectors",
// "lat") and ID is the utterance or speaker id.
type Key struct {
	Table string
	ID    string
}

func (k Key) String() string { return k.Table + "/" + k.ID }

// Entry is a record returned by Scan and written by PutBatch.
type Entry struct {
	Key   Key
	Value []byte
}

// Store holds archive records.
type Store interface {
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores a record, replacing any previous value.
	Put(ctx context.Context, key Key, value []byte) error

	// Delete removes a record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// Scan yields every record of table in ascending ID order.
	Scan(ctx context.Context, table string) iter.Seq2[Entry, error]

	// PutBatch stores several records at once.
	PutBatch(ctx context.Context, entries []Entry) error

	Close() error
}

// tableSep separates the table from the id in the encoded key. Neither may
// contain it.
const tableSep = 0

func encodeKey(k Key) ([]byte, error) {
	if k.Table == "" || strings.IndexByte(k.Table, tableSep) >= 0 || strings.IndexByte(k.ID, tableSep) >= 0 {
		return nil, fmt.Errorf("kv: invalid key %q", k.String())
	}
	b := make([]byte, 0, len(k.Table)+1+len(k.ID))
	b = append(b, k.Table...)
	b = append(b, tableSep)
	return append(b, k.ID...), nil
}

func tablePrefix(table string) []byte {
	return append([]byte(table), tableSep)
}

func decodeKey(b []byte) Key {
	t, id, _ := bytes.Cut(b, []byte{tableSep})
	return Key{Table: string(t), ID: string(id)}
}
