package table

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/amcompute/pkg/audio/wavio"
	"github.com/haivivi/amcompute/pkg/lattice"
	"github.com/haivivi/amcompute/pkg/storage"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Spec
		wantErr bool
	}{
		{in: "ark:feats.ark", want: Spec{Kind: KindArchive, Location: "feats.ark"}},
		{in: "ark,t:-", want: Spec{Kind: KindArchive, Text: true, Location: "-"}},
		{in: "ark,s,cs:vad.ark", want: Spec{Kind: KindArchive, Location: "vad.ark"}},
		{in: "scp:data/wav.scp", want: Spec{Kind: KindScript, Location: "data/wav.scp"}},
		{in: "badger:/tmp/db", want: Spec{Kind: KindBadger, Location: "/tmp/db"}},
		{in: "data/spk2utt", want: Spec{Kind: KindPlain, Location: "data/spk2utt"}},
		{in: "s3://bucket/spk2utt", want: Spec{Kind: KindPlain, Location: "s3://bucket/spk2utt"}},
		{in: "ark,t:s3://bucket/out.ark", want: Spec{Kind: KindArchive, Text: true, Location: "s3://bucket/out.ark"}},
		{in: "", wantErr: true},
		{in: "ark:", wantErr: true},
		{in: "tar:x", wantErr: true},
		{in: "ark,z:x", wantErr: true},
		{in: "badger:-", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrSpecifier) {
				t.Errorf("Parse(%q) err = %v, want ErrSpecifier", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Parse(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
		}
	}
}

func collect(t *testing.T, text string) []record {
	t.Helper()
	var out []record
	for rec, err := range readTextArchive(strings.NewReader(text)) {
		if err != nil {
			t.Fatalf("readTextArchive: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestReadTextArchive(t *testing.T) {
	recs := collect(t, "utt1  [ 1 0 1 ]\n\nutt2  [\n  1 2\n  3 4 ]\nutt3 [ ]\n")
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Key != "utt1" || len(recs[0].Rows) != 1 || len(recs[0].Rows[0]) != 3 {
		t.Errorf("utt1 = %+v", recs[0])
	}
	if len(recs[1].Rows) != 2 || recs[1].Rows[1][0] != 3 {
		t.Errorf("utt2 = %+v", recs[1])
	}
	if len(recs[2].Rows) != 0 {
		t.Errorf("utt3 = %+v", recs[2])
	}
}

func TestReadTextArchiveErrors(t *testing.T) {
	for _, s := range []string{
		"utt1 1 2 3\n",
		"utt1 [ 1 2\n",
		"utt1 [\n 1 2\n 3 ]\n",
		"utt1 [ 1 x ]\n",
		"utt1 [ 1 ] 2\n",
	} {
		var err error
		for _, e := range readTextArchive(strings.NewReader(s)) {
			if e != nil {
				err = e
			}
		}
		if err == nil {
			t.Errorf("readTextArchive(%q): expected error", s)
		}
	}
}

func testResolver(t *testing.T) (*storage.Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	return &storage.Resolver{Local: storage.Local{Root: dir}}, dir
}

var matrices = map[string][][]float32{
	"utt1": {{1, 2, 3}, {4, 5, 6}},
	"utt2": {{-0.5, 0.25, 1e-7}},
	"utt3": {},
}

func writeMatrices(t *testing.T, wspec string, o Options) {
	t.Helper()
	ctx := context.Background()
	w, err := CreateMatrixWriter(ctx, wspec, o)
	if err != nil {
		t.Fatalf("CreateMatrixWriter(%q): %v", wspec, err)
	}
	for _, key := range []string{"utt1", "utt2", "utt3"} {
		if err := w.Write(ctx, key, matrices[key]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	files, dir := testResolver(t)
	o := Options{Files: files}
	for _, spec := range []string{
		"ark:out.ark",
		"ark,t:out.txt",
		"badger:" + filepath.Join(dir, "db"),
	} {
		t.Run(spec, func(t *testing.T) {
			ctx := context.Background()
			writeMatrices(t, spec, o)
			r, err := OpenMatrixReader(ctx, spec, o)
			if err != nil {
				t.Fatalf("OpenMatrixReader: %v", err)
			}
			defer r.Close()
			for key, want := range matrices {
				got, err := r.Get(ctx, key)
				if err != nil {
					t.Fatalf("Get(%q): %v", key, err)
				}
				if len(got) != len(want) {
					t.Fatalf("%s: %d rows, want %d", key, len(got), len(want))
				}
				for i := range want {
					for j := range want[i] {
						if got[i][j] != want[i][j] {
							t.Errorf("%s[%d][%d] = %v, want %v", key, i, j, got[i][j], want[i][j])
						}
					}
				}
			}
			if _, err := r.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMatrixWriterText(t *testing.T) {
	var out bytes.Buffer
	o := Options{Files: &storage.Resolver{Stdout: &out}}
	writeMatrices(t, "ark,t:-", o)
	want := "utt1  [\n  1 2 3 \n  4 5 6 ]\nutt2  [ -0.5 0.25 1e-07 ]\nutt3  [ ]\n"
	if out.String() != want {
		t.Errorf("text archive =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestMatrixWriterRejectsScript(t *testing.T) {
	if _, err := CreateMatrixWriter(context.Background(), "scp:x.scp", Options{}); !errors.Is(err, ErrSpecifier) {
		t.Errorf("err = %v, want ErrSpecifier", err)
	}
}

func TestVectorReader(t *testing.T) {
	files, dir := testResolver(t)
	if err := os.WriteFile(filepath.Join(dir, "vad.ark"), []byte("utt1 [ 1 0 1 ]\nutt2 [\n 1 2\n 3 4 ]\nutt3 [ ]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	r, err := OpenVectorReader(ctx, "ark,t:vad.ark", Options{Files: files})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	v, err := r.Get(ctx, "utt1")
	if err != nil || len(v) != 3 || v[1] != 0 {
		t.Errorf("Get(utt1) = %v, %v", v, err)
	}
	if _, err := r.Get(ctx, "utt2"); err == nil {
		t.Error("expected error for matrix record")
	}
	if v, err := r.Get(ctx, "utt3"); err != nil || len(v) != 0 {
		t.Errorf("Get(utt3) = %v, %v", v, err)
	}
	if _, err := r.Get(ctx, "utt9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(utt9) err = %v", err)
	}
}

func TestImport(t *testing.T) {
	files, dir := testResolver(t)
	if err := os.WriteFile(filepath.Join(dir, "vad.ark"), []byte("a [ 1 1 ]\nb [ 0 1 ]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	db := filepath.Join(dir, "db")
	n, err := Import(ctx, "ark,t:vad.ark", db, Options{Files: files})
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	r, err := OpenVectorReader(ctx, "badger:"+db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	v, err := r.Get(ctx, "b")
	if err != nil || len(v) != 2 || v[0] != 0 {
		t.Errorf("Get(b) = %v, %v", v, err)
	}
}

func TestSpeakerReader(t *testing.T) {
	o := Options{Files: &storage.Resolver{Stdin: strings.NewReader("spk1 u1 u2\n\nspk2 u3\nspk3\n")}}
	r, err := OpenSpeakerReader(context.Background(), "ark:-", o)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var got []Speaker
	for s, err := range r.All() {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, s)
	}
	if len(got) != 3 {
		t.Fatalf("got %d speakers", len(got))
	}
	if got[0].ID != "spk1" || len(got[0].Utts) != 2 || got[0].Utts[1] != "u2" {
		t.Errorf("spk1 = %+v", got[0])
	}
	if got[2].ID != "spk3" || len(got[2].Utts) != 0 {
		t.Errorf("spk3 = %+v", got[2])
	}
}

func writeWave(t *testing.T, path string, samples []float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := wavio.Encode(f, &wavio.Wave{SampleRate: 16000, Channels: [][]float32{samples}}); err != nil {
		t.Fatal(err)
	}
}

func TestWaveReader(t *testing.T) {
	files, dir := testResolver(t)
	writeWave(t, filepath.Join(dir, "a.wav"), []float32{0, 0.5, -0.5, 0.25})
	scp := "u1 a.wav\nu2\t" + filepath.Join(dir, "a.wav") + "\nu3 missing.wav\n"
	if err := os.WriteFile(filepath.Join(dir, "wav.scp"), []byte(scp), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	r, err := OpenWaveReader(ctx, "scp:wav.scp", Options{Files: files})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Len() != 3 || !r.Has("u2") || r.Has("u9") {
		t.Fatalf("Len = %d", r.Len())
	}
	for _, key := range []string{"u1", "u2"} {
		w, err := r.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}
		if w.SampleRate != 16000 || w.NumSamples() != 4 {
			t.Errorf("%s: rate %d, %d samples", key, w.SampleRate, w.NumSamples())
		}
	}
	if _, err := r.Get(ctx, "u9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(u9) err = %v", err)
	}
	if _, err := r.Get(ctx, "u3"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Get(u3) err = %v, want ErrNotExist", err)
	}
}

func TestWaveReaderRejectsPipes(t *testing.T) {
	o := Options{Files: &storage.Resolver{Stdin: strings.NewReader("u1 sox a.flac -t wav - |\n")}}
	if _, err := OpenWaveReader(context.Background(), "scp:-", o); err == nil {
		t.Fatal("expected error for piped command")
	}
}

const textLattices = `utt1
0	1	5	1,2,3_4
1	0.5,0,

utt2
0	1	7	0.5,1,
1
`

func TestLatticeRoundTrip(t *testing.T) {
	files, dir := testResolver(t)
	if err := os.WriteFile(filepath.Join(dir, "in.lat"), []byte(textLattices), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	o := Options{Files: files}

	for _, out := range []string{"ark:out.lat", "badger:" + filepath.Join(dir, "latdb"), "ark,t:out.txt"} {
		t.Run(out, func(t *testing.T) {
			r, err := OpenLatticeReader(ctx, "ark,t:in.lat", o)
			if err != nil {
				t.Fatal(err)
			}
			w, err := CreateLatticeWriter(ctx, out, o)
			if err != nil {
				t.Fatal(err)
			}
			for kl, err := range r.All(ctx) {
				if err != nil {
					t.Fatal(err)
				}
				if err := w.Write(ctx, kl.Key, kl.Lattice); err != nil {
					t.Fatal(err)
				}
			}
			r.Close()
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			back, err := OpenLatticeReader(ctx, out, o)
			if err != nil {
				t.Fatal(err)
			}
			defer back.Close()
			var keys []string
			var lats []*lattice.Lattice
			for kl, err := range back.All(ctx) {
				if err != nil {
					t.Fatal(err)
				}
				keys = append(keys, kl.Key)
				lats = append(lats, kl.Lattice)
			}
			if len(keys) != 2 || keys[0] != "utt1" || keys[1] != "utt2" {
				t.Fatalf("keys = %v", keys)
			}
			a := lats[0].Arcs[0]
			if a.ILabel != 5 || a.Weight.Graph != 1 || len(a.Weight.Trans) != 2 {
				t.Errorf("utt1 arc = %+v", a)
			}
			if len(lats[1].Finals) != 1 || !lats[1].Finals[0].Weight.IsOne() {
				t.Errorf("utt2 finals = %+v", lats[1].Finals)
			}
		})
	}
}

func TestLatticeTextOutput(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()
	o := Options{Files: &storage.Resolver{Stdin: strings.NewReader(textLattices), Stdout: &out}}
	r, err := OpenLatticeReader(ctx, "ark,t:-", o)
	if err != nil {
		t.Fatal(err)
	}
	w, err := CreateLatticeWriter(ctx, "ark,t:-", o)
	if err != nil {
		t.Fatal(err)
	}
	for kl, err := range r.All(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Write(ctx, kl.Key, kl.Lattice); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if out.String() != textLattices+"\n" {
		t.Errorf("output =\n%q\nwant\n%q", out.String(), textLattices+"\n")
	}
}
