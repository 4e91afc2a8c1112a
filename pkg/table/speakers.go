package table

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Speaker is one line of a spk2utt table.
type Speaker struct {
	ID   string
	Utts []string
}

// SpeakerReader reads a spk2utt table sequentially.
type SpeakerReader struct {
	spec Spec
	rc   io.ReadCloser
}

// OpenSpeakerReader opens rspec, a text table of "spk utt1 utt2 ..." lines.
// Both "ark:" and "ark,t:" prefixes are accepted; the file is always text.
func OpenSpeakerReader(ctx context.Context, rspec string, o Options) (*SpeakerReader, error) {
	s, err := Parse(rspec)
	if err != nil {
		return nil, err
	}
	if s.Kind != KindArchive && s.Kind != KindPlain {
		return nil, fmt.Errorf("%w: %s: speaker tables are text archives", ErrSpecifier, s)
	}
	rc, err := o.files().Open(ctx, s.Location)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", s, err)
	}
	return &SpeakerReader{spec: s, rc: rc}, nil
}

// All yields speakers in file order. It can be ranged over once.
func (r *SpeakerReader) All() iter.Seq2[Speaker, error] {
	return func(yield func(Speaker, error) bool) {
		sc := newScanner(r.rc)
		for lineNo := 1; sc.Scan(); lineNo++ {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			if !yield(Speaker{ID: fields[0], Utts: fields[1:]}, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Speaker{}, fmt.Errorf("table: read %s: %w", r.spec, err))
		}
	}
}

func (r *SpeakerReader) Close() error { return r.rc.Close() }
