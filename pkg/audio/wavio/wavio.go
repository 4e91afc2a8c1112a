// Package wavio decodes and encodes RIFF/WAVE files as per-channel float32
// waveforms normalized to [-1, 1].
package wavio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidFile is returned when the input is not a PCM WAV file.
var ErrInvalidFile = errors.New("wavio: invalid wav file")

// Wave is a decoded waveform. Channels[c][i] is sample i of channel c.
type Wave struct {
	SampleRate int
	Channels   [][]float32
}

// NumSamples returns the per-channel sample count.
func (w *Wave) NumSamples() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Duration returns the length of the waveform.
func (w *Wave) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.NumSamples()) * time.Second / time.Duration(w.SampleRate)
}

// Mono returns channel 0. Additional channels are ignored.
func (w *Wave) Mono() []float32 {
	if len(w.Channels) == 0 {
		return nil
	}
	return w.Channels[0]
}

// Decode reads a whole WAV stream.
func Decode(r io.ReadSeeker) (*Wave, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("wavio: decode: %w", err)
	}
	if buf == nil {
		return nil, fmt.Errorf("wavio: decode: empty buffer")
	}

	numChans := int(dec.NumChans)
	if numChans == 0 && buf.Format != nil {
		numChans = buf.Format.NumChannels
	}
	if numChans <= 0 {
		numChans = 1
	}
	sampleRate := int(dec.SampleRate)
	if sampleRate == 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wavio: missing sample rate")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	n := len(buf.Data) / numChans
	w := &Wave{SampleRate: sampleRate, Channels: make([][]float32, numChans)}
	for c := range w.Channels {
		w.Channels[c] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < numChans; c++ {
			w.Channels[c][i] = float32(buf.Data[i*numChans+c]) / scale
		}
	}
	return w, nil
}

// DecodeBytes decodes an in-memory WAV file.
func DecodeBytes(b []byte) (*Wave, error) {
	return Decode(bytes.NewReader(b))
}

// Encode writes w as 16-bit PCM WAV.
func Encode(dst io.WriteSeeker, w *Wave) error {
	numChans := len(w.Channels)
	if numChans == 0 {
		return fmt.Errorf("wavio: encode: no channels")
	}
	n := w.NumSamples()
	data := make([]int, n*numChans)
	for i := 0; i < n; i++ {
		for c := 0; c < numChans; c++ {
			v := max(-1, min(1, w.Channels[c][i]))
			data[i*numChans+c] = int(v * 32767)
		}
	}

	enc := wav.NewEncoder(dst, w.SampleRate, 16, numChans, 1)
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChans, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	return enc.Close()
}
