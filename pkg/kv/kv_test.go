package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/haivivi/amcompute/pkg/kv"
)

func newBadger(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newMemory(t *testing.T) kv.Store {
	t.Helper()
	return kv.NewMemory()
}

var backends = map[string]func(*testing.T) kv.Store{
	"memory": newMemory,
	"badger": newBadger,
}

func TestGetPutDelete(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			key := kv.Key{Table: "feats", ID: "utt1"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
			}
			if err := s.Put(ctx, key, []byte("a")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put(ctx, key, []byte("b")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "b" {
				t.Fatalf("Get = %q, %v; want \"b\"", got, err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get after delete: err = %v", err)
			}
			if err := s.Delete(ctx, kv.Key{Table: "feats", ID: "nope"}); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
		})
	}
}

func TestScanIsolatesTables(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			err := s.PutBatch(ctx, []kv.Entry{
				{Key: kv.Key{Table: "feats", ID: "utt2"}, Value: []byte("2")},
				{Key: kv.Key{Table: "feats", ID: "utt1"}, Value: []byte("1")},
				{Key: kv.Key{Table: "featsx", ID: "utt0"}, Value: []byte("x")},
				{Key: kv.Key{Table: "ivectors", ID: "utt1"}, Value: []byte("v")},
			})
			if err != nil {
				t.Fatalf("PutBatch: %v", err)
			}
			var ids []string
			for e, err := range s.Scan(ctx, "feats") {
				if err != nil {
					t.Fatalf("Scan: %v", err)
				}
				if e.Key.Table != "feats" {
					t.Errorf("Scan yielded table %q", e.Key.Table)
				}
				ids = append(ids, e.Key.ID+"="+string(e.Value))
			}
			if len(ids) != 2 || ids[0] != "utt1=1" || ids[1] != "utt2=2" {
				t.Errorf("Scan = %v, want [utt1=1 utt2=2]", ids)
			}
		})
	}
}

func TestScanStopsEarly(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			for _, id := range []string{"a", "b", "c"} {
				if err := s.Put(ctx, kv.Key{Table: "t", ID: id}, nil); err != nil {
					t.Fatal(err)
				}
			}
			n := 0
			for range s.Scan(ctx, "t") {
				n++
				break
			}
			if n != 1 {
				t.Errorf("iterations = %d, want 1", n)
			}
		})
	}
}

func TestInvalidKey(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	if err := s.Put(ctx, kv.Key{ID: "utt"}, nil); err == nil {
		t.Error("expected error for empty table")
	}
	if err := s.Put(ctx, kv.Key{Table: "t", ID: "a\x00b"}, nil); err == nil {
		t.Error("expected error for separator in id")
	}
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := s.Put(ctx, kv.Key{Table: "lat", ID: "u"}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir, ReadOnly: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{Table: "lat", ID: "u"})
	if err != nil || string(got) != "x" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}
