// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/pdiddy/starrydata/pkg/types"
)

// Format is the encoding of an archive member.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFor returns the format implied by a member name's extension.
func FormatFor(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported member format %q", name)
}

// DecodeMember decodes data using the format implied by name.
func DecodeMember(name string, data []byte) (*Table, error) {
	f, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	return Decode(data, f, name)
}

// Decode parses data in the given format. source names the input in errors.
func Decode(data []byte, f Format, source string) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	switch f {
	case FormatCSV:
		return DecodeCSV(bytes.NewReader(data), source)
	case FormatJSON:
		return DecodeJSON(bytes.NewReader(data), source)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

// DecodeCSV parses comma-separated text whose first row names the
// columns. Column types are inferred from every non-empty cell: integers,
// then finite floats, then booleans, otherwise strings. Empty cells and
// missing-value markers such as NA or NaN are nil.
func DecodeCSV(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &types.DecodeError{Source: source, Err: errors.New("no header row")}
	}
	if err != nil {
		return nil, csvError(source, err)
	}
	header = dedupeHeader(header)

	raw := make([][]string, len(header))
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(source, err)
		}
		if len(record) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &types.DecodeError{
				Source: source,
				Line:   line,
				Err:    fmt.Errorf("expected %d fields, saw %d", len(header), len(record)),
			}
		}
		for c := range header {
			v := ""
			if c < len(record) && !isMissing(record[c]) {
				v = record[c]
			}
			raw[c] = append(raw[c], v)
		}
		rows++
	}

	t := New(header...)
	for c := range header {
		t.cells[c] = inferColumn(raw[c])
	}
	t.rows = rows
	return t, nil
}

func csvError(source string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &types.DecodeError{Source: source, Line: pe.Line, Err: pe.Err}
	}
	return &types.DecodeError{Source: source, Err: err}
}

// dedupeHeader renames repeated column names to name.1, name.2, ...
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	for i, name := range header {
		candidate := name
		for used[candidate] {
			counts[name]++
			candidate = name + "." + strconv.Itoa(counts[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

func inferColumn(raw []string) []any {
	out := make([]any, len(raw))
	switch {
	case allCells(raw, isInt):
		for i, s := range raw {
			if s != "" {
				out[i], _ = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			}
		}
	case allCells(raw, isFloat):
		for i, s := range raw {
			if s != "" {
				out[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
			}
		}
	case allCells(raw, isBool):
		for i, s := range raw {
			if s != "" {
				out[i] = strings.EqualFold(strings.TrimSpace(s), "true")
			}
		}
	default:
		for i, s := range raw {
			if s != "" {
				out[i] = s
			}
		}
	}
	return out
}

// allCells reports whether every non-empty cell satisfies ok and at least
// one cell is non-empty.
func allCells(raw []string, ok func(string) bool) bool {
	seen := false
	for _, s := range raw {
		if s == "" {
			continue
		}
		if !ok(strings.TrimSpace(s)) {
			return false
		}
		seen = true
	}
	return seen
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// missingMarkers are the cell spellings read as a missing value.
var missingMarkers = map[string]bool{
	"NA": true, "N/A": true, "n/a": true, "#N/A": true, "<NA>": true,
	"NaN": true, "nan": true, "-NaN": true, "-nan": true,
	"NULL": true, "null": true, "None": true,
}

func isMissing(s string) bool {
	return missingMarkers[strings.TrimSpace(s)]
}

// isFloat accepts finite numbers only, so inf and Infinity stay text.
func isFloat(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isBool(s string) bool {
	switch s {
	case "true", "True", "TRUE", "false", "False", "FALSE":
		return true
	}
	return false
}

// DecodeJSON parses a JSON array of objects. Each object is one row;
// columns are the union of keys in first-seen order and absent keys are nil.
func DecodeJSON(r io.Reader, source string) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	fail := func(err error) error {
		return &types.DecodeError{Source: source, Err: fmt.Errorf("offset %d: %w", dec.InputOffset(), err)}
	}

	if err := expectDelim(dec, '['); err != nil {
		return nil, fail(err)
	}

	t := New()
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fail(fmt.Errorf("row %d: %w", t.rows, err))
		}
		var (
			keys   []string
			values []any
		)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fail(err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fail(fmt.Errorf("row %d: unexpected token %v", t.rows, tok))
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fail(err)
			}
			keys = append(keys, key)
			values = append(values, normalizeJSON(v))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fail(err)
		}
		t.appendPairs(keys, values)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, fail(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fail(errors.New("unexpected data after array"))
	}
	return t, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, saw %v", want, tok)
	}
	return nil
}

// normalizeJSON converts json.Number to int64 or float64, recursively.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeJSON(e)
		}
		return x
	}
	return v
}
