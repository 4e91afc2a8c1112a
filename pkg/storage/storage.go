// Package storage opens the files named on the command line: local paths,
// "-" for stdin or stdout, and s3://bucket/key objects.
//
// Table readers and writers never touch the filesystem directly; they go
// through a [Resolver] so the same rspecifier works against local disk and
// an object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Files is a flat file namespace.
//
// Paths are forward-slash separated. Implementations must be safe for
// concurrent use.
type Files interface {
	// Open opens the named file for reading. A missing file yields an
	// error wrapping os.ErrNotExist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create opens the named file for writing, truncating it. The data
	// is durable only after Close returns nil.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// Location is a parsed file location.
type Location struct {
	Stdio  bool   // "-"
	Bucket string // set for s3:// locations
	Path   string
}

func (l Location) String() string {
	switch {
	case l.Stdio:
		return "-"
	case l.Bucket != "":
		return "s3://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}

// ParseLocation splits loc into its parts.
func ParseLocation(loc string) (Location, error) {
	switch {
	case loc == "":
		return Location{}, fmt.Errorf("storage: empty location")
	case loc == "-":
		return Location{Stdio: true}, nil
	case strings.HasPrefix(loc, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(loc, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("storage: malformed s3 location %q", loc)
		}
		return Location{Bucket: bucket, Path: key}, nil
	}
	return Location{Path: loc}, nil
}

// Resolver maps locations to backends.
type Resolver struct {
	// Local serves plain paths. Defaults to Local{}.
	Local Files

	// S3 returns the store for a bucket. Nil disables s3:// locations.
	S3 func(bucket string) Files

	// Stdin and Stdout serve "-". Default to os.Stdin and os.Stdout.
	Stdin  io.Reader
	Stdout io.Writer
}

func (r *Resolver) files(l Location) (Files, error) {
	if l.Bucket == "" {
		if r.Local == nil {
			return Local{}, nil
		}
		return r.Local, nil
	}
	if r.S3 == nil {
		return nil, fmt.Errorf("storage: %s: s3 is not configured", l)
	}
	return r.S3(l.Bucket), nil
}

// Open opens loc for reading.
func (r *Resolver) Open(ctx context.Context, loc string) (io.ReadCloser, error) {
	l, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	if l.Stdio {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}
	fs, err := r.files(l)
	if err != nil {
		return nil, err
	}
	return fs.Open(ctx, l.Path)
}

// Create opens loc for writing.
func (r *Resolver) Create(ctx context.Context, loc string) (io.WriteCloser, error) {
	l, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	if l.Stdio {
		out := r.Stdout
		if out == nil {
			out = os.Stdout
		}
		return nopWriteCloser{out}, nil
	}
	fs, err := r.files(l)
	if err != nil {
		return nil, err
	}
	return fs.Create(ctx, l.Path)
}

// ReadFile reads the whole of loc.
func (r *Resolver) ReadFile(ctx context.Context, loc string) ([]byte, error) {
	rc, err := r.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
