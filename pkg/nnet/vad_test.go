package nnet_test

import (
	"math/rand/v2"
	"testing"

	"github.com/haivivi/amcompute/pkg/nnet"
)

func TestSelectVoiced(t *testing.T) {
	feats := frames(6, 2)
	tests := []struct {
		name string
		mask []float32
		want []float32 // frame values, in order
	}{
		{"all voiced drops last", []float32{1, 1, 1, 1, 1, 1}, []float32{0, 1, 2, 3, 4}},
		{"none voiced", []float32{0, 0, 0, 0, 0, 0}, nil},
		{"alternating", []float32{1, 0, 1, 0, 1, 0}, []float32{0, 2, 4}},
		{"only last voiced", []float32{0, 0, 0, 0, 0, 1}, nil},
		{"short mask", []float32{0, 1}, []float32{1}},
		{"long mask", []float32{1, 0, 0, 0, 0, 1, 1, 1}, []float32{0}},
		{"non-binary flags", []float32{0.5, 0, -1, 0, 0, 0}, []float32{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nnet.SelectVoiced(feats, tt.mask)
			if err != nil {
				t.Fatalf("SelectVoiced: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames, want %d", len(got), len(tt.want))
			}
			for i, f := range got {
				if f[0] != tt.want[i] {
					t.Errorf("frame %d = %v, want %v", i, f[0], tt.want[i])
				}
			}
		})
	}
}

func TestSelectVoicedCountProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		n := rng.IntN(50)
		feats := frames(n, 1)
		mask := make([]float32, n)
		for i := range mask {
			if rng.IntN(2) == 1 {
				mask[i] = 1
			}
		}
		got, err := nnet.SelectVoiced(feats, mask)
		if err != nil {
			t.Fatalf("SelectVoiced: %v", err)
		}
		want := 0
		if n > 1 {
			want = nnet.CountVoiced(mask[:n-1])
		}
		if len(got) != want {
			t.Fatalf("n=%d: got %d frames, want %d", n, len(got), want)
		}
	}
}

func TestSelectVoicedEmpty(t *testing.T) {
	for _, feats := range [][][]float32{nil, frames(1, 3)} {
		got, err := nnet.SelectVoiced(feats, []float32{1, 1})
		if err != nil {
			t.Fatalf("SelectVoiced: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("got %d frames from %d input frames, want 0", len(got), len(feats))
		}
	}
}
