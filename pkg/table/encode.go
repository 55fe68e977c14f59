// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
)

// FormatCell renders one cell as text. Missing cells render empty.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// WriteCSV writes the header and every row as CSV.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	record := make([]string, len(t.columns))
	for r := 0; r < t.rows; r++ {
		for c := range t.columns {
			record[c] = FormatCell(t.cells[c][r])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as a JSON array of objects whose keys keep
// column order.
func WriteJSON(w io.Writer, t *Table) error {
	var b strings.Builder
	b.WriteString("[")
	for r := 0; r < t.rows; r++ {
		if r > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  {")
		for c, name := range t.columns {
			if c > 0 {
				b.WriteString(", ")
			}
			k, _ := json.Marshal(name)
			v, err := json.Marshal(jsonCell(t.cells[c][r]))
			if err != nil {
				return fmt.Errorf("encoding %s row %d: %w", name, r, err)
			}
			b.Write(k)
			b.WriteString(": ")
			b.Write(v)
		}
		b.WriteString("}")
	}
	if t.rows > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// jsonCell maps values JSON cannot represent to null.
func jsonCell(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// WriteYAML writes the rows as a YAML sequence of mappings whose keys keep
// column order.
func WriteYAML(w io.Writer, t *Table) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for r := 0; r < t.rows; r++ {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for c, name := range t.columns {
			var v yaml.Node
			if err := v.Encode(t.cells[c][r]); err != nil {
				return fmt.Errorf("encoding %s row %d: %w", name, r, err)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, &v)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText writes an aligned, tab-separated preview for terminals.
func WriteText(w io.Writer, t *Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.columns, "\t"))
	for r := 0; r < t.rows; r++ {
		cells := make([]string, len(t.columns))
		for c := range t.columns {
			cells[c] = truncate(FormatCell(t.cells[c][r]), 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
