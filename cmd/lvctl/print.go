package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ni/labview-automation/pkg/lib/wire"
)

// printDocument writes a listener response as YAML, in the listener's key order.
func printDocument(w io.Writer, doc wire.Document) error {
	if len(doc) == 0 {
		_, err := fmt.Fprintln(w, "{}")
		return err
	}
	values := doc.Map()
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range doc.Keys() {
		var value yaml.Node
		if err := value.Encode(values[key]); err != nil {
			return fmt.Errorf("indicator %q: %w", key, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &value)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

type statusRow struct {
	Host       string
	PID        int
	State      string
	Memory     uint64
	Executable string
}

func printStatusTable(w io.Writer, row statusRow) {
	pid := "-"
	if row.PID > 0 {
		pid = strconv.Itoa(row.PID)
	}
	mem := "-"
	if row.Memory > 0 {
		mem = fmt.Sprintf("%.1f MiB", float64(row.Memory)/(1<<20))
	}

	headers := []string{"HOST", "PID", "STATE", "MEMORY", "EXECUTABLE"}
	cells := []string{row.Host, pid, row.State, mem, row.Executable}
	widths := make([]int, len(headers))
	for i := range headers {
		widths[i] = max(len(headers[i]), len(cells[i]))
	}

	sep := "+"
	for _, width := range widths {
		sep += "-" + strings.Repeat("-", width) + "-+"
	}
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, tableLine(headers, widths))
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, tableLine(cells, widths))
	fmt.Fprintln(w, sep)
}

func tableLine(cells []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, cell := range cells {
		sb.WriteString(" " + pad(cell, widths[i]) + " |")
	}
	return sb.String()
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
