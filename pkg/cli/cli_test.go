package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type result struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func (r result) Summary() Summary {
	return Summary{Title: "run " + r.Name, Fields: []Field{
		{Label: "count", Value: FormatCount(int64(r.Count))},
		{Label: "errors", Value: "1", Warn: true},
	}}
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(result{"test", 123}, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if got["name"] != "test" {
		t.Errorf("name = %v, want %q", got["name"], "test")
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(result{"test", 123}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "name: test") {
		t.Errorf("Output should contain 'name: test', got: %s", buf.String())
	}
}

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(result{"test", 1234}, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run test", "count", "1,234", "errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	// Results without a summary fall back to YAML.
	buf.Reset()
	if err := Output(map[string]int{"a": 1}, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a: 1") {
		t.Errorf("fallback output = %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "yaml", "json", "table"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, LogJSON, false)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("shown", "utt", "u1")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record written without verbose")
	}
	if !strings.Contains(buf.String(), `"utt":"u1"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	log, err = NewLogger(&buf, LogText, true)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("text output = %s", buf.String())
	}

	if _, err := NewLogger(&buf, "xml", false); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{60 * time.Second, "1m0.0s"},
		{125500 * time.Millisecond, "2m5.5s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(500, 2*time.Second); got != "250/s" {
		t.Errorf("FormatRate = %q", got)
	}
	if got := FormatRate(500, 0); got != "-" {
		t.Errorf("FormatRate zero = %q", got)
	}
}
