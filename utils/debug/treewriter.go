// Package debug has helpers producing human readable dumps of internal trees.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented tree dump, one node per line.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

// Node writes node header: kind and optional position in source.
func (tw *TreeWriter) Node(depth int, kind string, at fmt.Stringer) {
	tw.pad(depth)
	tw.w.WriteString(kind)
	if at != nil {
		if pos := at.String(); pos != "" {
			tw.w.WriteString(" @")
			tw.w.WriteString(pos)
		}
	}
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes labeled value. Strings are quoted, empty values are skipped.
func (tw *TreeWriter) Field(depth int, label string, value any) {
	var s string
	switch v := value.(type) {
	case string:
		s = encodeText(v)
	case fmt.Stringer:
		s = encodeText(v.String())
	case bool:
		if !v {
			return
		}
		s = "true"
	default:
		s = fmt.Sprint(v)
	}
	if s == "" {
		return
	}
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(s)
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
