package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/haivivi/amcompute/pkg/audio/wavio"
	"github.com/haivivi/amcompute/pkg/storage"
)

// WaveReader is a random access reader over a wave script. Each script
// line maps an utterance id to the location of a RIFF/WAVE file.
type WaveReader struct {
	files *storage.Resolver
	locs  map[string]string
}

// OpenWaveReader reads the script named by rspec, which must be scp: or a
// bare location.
func OpenWaveReader(ctx context.Context, rspec string, o Options) (*WaveReader, error) {
	s, err := Parse(rspec)
	if err != nil {
		return nil, err
	}
	if s.Kind != KindScript && s.Kind != KindPlain {
		return nil, fmt.Errorf("%w: %s: waves are read through scp:", ErrSpecifier, s)
	}
	rc, err := o.files().Open(ctx, s.Location)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", s, err)
	}
	defer rc.Close()

	r := &WaveReader{files: o.files(), locs: make(map[string]string)}
	sc := newScanner(rc)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return nil, fmt.Errorf("table: %s line %d: expected \"key location\"", s, lineNo)
		}
		key, loc := line[:i], strings.TrimSpace(line[i+1:])
		if strings.HasSuffix(loc, "|") {
			return nil, fmt.Errorf("table: %s line %d: piped commands are not supported", s, lineNo)
		}
		r.locs[key] = loc
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("table: read %s: %w", s, err)
	}
	return r, nil
}

// Has reports whether key is in the script.
func (r *WaveReader) Has(key string) bool {
	_, ok := r.locs[key]
	return ok
}

// Len returns the number of scripted utterances.
func (r *WaveReader) Len() int { return len(r.locs) }

// Get reads and decodes the wave for key, or returns ErrNotFound.
func (r *WaveReader) Get(ctx context.Context, key string) (*wavio.Wave, error) {
	loc, ok := r.locs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	data, err := r.files.ReadFile(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("table: read wave %q: %w", key, err)
	}
	w, err := wavio.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("table: wave %q: %w", key, err)
	}
	return w, nil
}

func (r *WaveReader) Close() error { return nil }
