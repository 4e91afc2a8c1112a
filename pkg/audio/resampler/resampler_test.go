package resampler

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) || &out[0] != &in[0] {
		t.Fatal("same-rate resample should return the input")
	}
}

func TestResampleInvalidRate(t *testing.T) {
	if _, err := Resample([]float32{1}, 0, 16000); err == nil {
		t.Fatal("expected error for zero source rate")
	}
	if _, err := Resample([]float32{1}, 16000, -1); err == nil {
		t.Fatal("expected error for negative target rate")
	}
}

func TestResampleDownsample(t *testing.T) {
	const src, dst = 48000, 16000
	in := make([]float32, src) // 1 second of 440Hz
	for i := range in {
		in[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/src))
	}
	out, err := Resample(in, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	want := OutputLength(len(in), src, dst)
	// The filter delay may hold back a few hundred samples.
	if len(out) == 0 || len(out) > want+want/10 || len(out) < want/2 {
		t.Fatalf("got %d samples, want about %d", len(out), want)
	}
	for i, v := range out {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d = %f out of range", i, v)
		}
	}
}

func TestOutputLength(t *testing.T) {
	if got := OutputLength(44100, 44100, 16000); got != 16000 {
		t.Errorf("OutputLength = %d, want 16000", got)
	}
	if got := OutputLength(100, 0, 16000); got != 0 {
		t.Errorf("OutputLength with zero rate = %d, want 0", got)
	}
}
