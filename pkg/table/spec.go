// Package table reads and writes the keyed tables the tools exchange:
// speaker lists, wave scripts, voicing masks, output matrices and lattices.
//
// A table is named by a specifier of the form "TYPE[,OPT...]:LOCATION":
//
//	ark:feats.ark          msgpack record stream
//	ark,t:-                text archive on stdin or stdout
//	scp:wav.scp            script: "key location" per line
//	badger:/data/tables    BadgerDB directory
//
// Locations are resolved through a storage.Resolver, so "-", local paths
// and s3://bucket/key work everywhere a file is expected.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by random access readers for unknown keys.
	ErrNotFound = errors.New("table: key not found")

	// ErrSpecifier is returned for malformed or unsupported specifiers.
	ErrSpecifier = errors.New("table: bad specifier")
)

// Kind is the storage type of a table.
type Kind int

const (
	// KindPlain is a bare location without a type prefix.
	KindPlain Kind = iota
	KindArchive
	KindScript
	KindBadger
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindArchive:
		return "ark"
	case KindScript:
		return "scp"
	case KindBadger:
		return "badger"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Spec is a parsed table specifier.
type Spec struct {
	Kind     Kind
	Text     bool // ",t": text archive
	Location string
}

func (s Spec) String() string {
	if s.Kind == KindPlain {
		return s.Location
	}
	if s.Text {
		return s.Kind.String() + ",t:" + s.Location
	}
	return s.Kind.String() + ":" + s.Location
}

// Parse parses a specifier. Options other than "t" and "b" (sorted,
// called-sorted, once, permissive) are accepted and ignored.
func Parse(spec string) (Spec, error) {
	head, loc, ok := strings.Cut(spec, ":")
	if !ok || strings.HasPrefix(spec, "s3:") {
		if spec == "" {
			return Spec{}, fmt.Errorf("%w: empty", ErrSpecifier)
		}
		return Spec{Kind: KindPlain, Location: spec}, nil
	}
	opts := strings.Split(head, ",")
	var s Spec
	switch opts[0] {
	case "ark":
		s.Kind = KindArchive
	case "scp":
		s.Kind = KindScript
	case "badger":
		s.Kind = KindBadger
	default:
		return Spec{}, fmt.Errorf("%w: unknown type %q in %q", ErrSpecifier, opts[0], spec)
	}
	for _, o := range opts[1:] {
		switch o {
		case "t":
			s.Text = true
		case "b":
			s.Text = false
		case "s", "cs", "o", "p", "f":
		default:
			return Spec{}, fmt.Errorf("%w: unknown option %q in %q", ErrSpecifier, o, spec)
		}
	}
	if loc == "" {
		return Spec{}, fmt.Errorf("%w: missing location in %q", ErrSpecifier, spec)
	}
	if s.Kind == KindBadger && loc == "-" {
		return Spec{}, fmt.Errorf("%w: badger table needs a directory", ErrSpecifier)
	}
	s.Location = loc
	return s, nil
}
