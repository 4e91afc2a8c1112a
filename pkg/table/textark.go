package table

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Text archives hold one record per key:
//
//	utt1  [ 0.1 0.2 0.3 ]          vector
//	utt2  [
//	  1 2 3
//	  4 5 6 ]                      matrix, one row per line

// record is one archive entry. A vector is a single-row matrix.
type record struct {
	Key  string      `msgpack:"k"`
	Rows [][]float32 `msgpack:"r"`
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return sc
}

// readTextArchive yields the records of a text archive in file order.
func readTextArchive(r io.Reader) iter.Seq2[record, error] {
	return func(yield func(record, error) bool) {
		sc := newScanner(r)
		var (
			cur    *record
			row    []float32
			lineNo int
		)
		fail := func(format string, args ...any) {
			yield(record{}, fmt.Errorf("table: text archive line %d: %s", lineNo, fmt.Sprintf(format, args...)))
		}
		for sc.Scan() {
			lineNo++
			tokens := strings.Fields(sc.Text())
			if cur == nil {
				if len(tokens) == 0 {
					continue
				}
				if len(tokens) < 2 || tokens[1] != "[" {
					fail("expected %q after key %q", "[", tokens[0])
					return
				}
				cur = &record{Key: tokens[0]}
				tokens = tokens[2:]
			}
			done := false
			for i, tok := range tokens {
				if tok == "]" {
					if i != len(tokens)-1 {
						fail("trailing data after %q", "]")
						return
					}
					done = true
					break
				}
				v, err := strconv.ParseFloat(tok, 32)
				if err != nil {
					fail("%v", err)
					return
				}
				row = append(row, float32(v))
			}
			if len(row) > 0 {
				if len(cur.Rows) > 0 && len(row) != len(cur.Rows[0]) {
					fail("row of %d values in %q, want %d", len(row), cur.Key, len(cur.Rows[0]))
					return
				}
				cur.Rows = append(cur.Rows, row)
				row = nil
			}
			if done {
				if !yield(*cur, nil) {
					return
				}
				cur = nil
			}
		}
		if err := sc.Err(); err != nil {
			yield(record{}, fmt.Errorf("table: read text archive: %w", err))
			return
		}
		if cur != nil {
			fail("unterminated record %q", cur.Key)
		}
	}
}

// writeTextRecord writes rows in text archive form. A single row is
// written as a vector.
func writeTextRecord(w *bufio.Writer, key string, rows [][]float32) error {
	if strings.ContainsAny(key, " \t\n") || key == "" {
		return fmt.Errorf("table: invalid key %q", key)
	}
	w.WriteString(key)
	switch len(rows) {
	case 0:
		w.WriteString("  [ ]\n")
	case 1:
		w.WriteString("  [ ")
		writeRow(w, rows[0])
		w.WriteString("]\n")
	default:
		w.WriteString("  [")
		for i, r := range rows {
			w.WriteString("\n  ")
			writeRow(w, r)
			if i == len(rows)-1 {
				w.WriteString("]")
			}
		}
		w.WriteString("\n")
	}
	return nil
}

func writeRow(w *bufio.Writer, row []float32) {
	var buf [32]byte
	for _, v := range row {
		w.Write(strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32))
		w.WriteByte(' ')
	}
}
