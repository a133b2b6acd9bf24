// Package sourcemap builds and reads version 3 source maps.
package sourcemap

import (
	"fmt"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
)

// Map is source map document.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Mapping connects generated position to original one. All fields are
// 0-based.
type Mapping struct {
	GenLine int
	GenCol  int
	Source  int
	SrcLine int
	SrcCol  int
}

// Builder collects mappings while output is written.
type Builder struct {
	file     string
	sources  []string
	contents []*string
	index    map[string]int
	mappings []Mapping
}

// NewBuilder creates builder for generated file name.
func NewBuilder(file string) *Builder {
	return &Builder{file: file, index: make(map[string]int)}
}

// AddSource registers source and returns its index. Content may be nil, it
// is serialized as null when other sources have content.
func (b *Builder) AddSource(name string, content *string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	i := len(b.sources)
	b.index[name] = i
	b.sources = append(b.sources, name)
	b.contents = append(b.contents, content)
	return i
}

// Add records mapping, positions are 0-based.
func (b *Builder) Add(genLine, genCol int, source string, srcLine, srcCol int) {
	idx := b.AddSource(source, nil)
	b.mappings = append(b.mappings, Mapping{GenLine: genLine, GenCol: genCol, Source: idx, SrcLine: srcLine, SrcCol: srcCol})
}

// Len returns number of recorded mappings.
func (b *Builder) Len() int {
	return len(b.mappings)
}

// Map encodes collected mappings.
func (b *Builder) Map() *Map {
	m := &Map{Version: 3, File: b.file, Sources: slices.Clone(b.sources), Names: []string{}}
	if slices.ContainsFunc(b.contents, func(c *string) bool { return c != nil }) {
		m.SourcesContent = slices.Clone(b.contents)
	}
	m.Mappings = encode(b.mappings)
	return m
}

func encode(mappings []Mapping) string {
	sorted := slices.Clone(mappings)
	slices.SortStableFunc(sorted, func(a, b Mapping) int {
		if a.GenLine != b.GenLine {
			return a.GenLine - b.GenLine
		}
		return a.GenCol - b.GenCol
	})

	var (
		sb                      strings.Builder
		line, col               int
		source, srcLine, srcCol int
	)
	for i, m := range sorted {
		if m.GenLine != line {
			for ; line < m.GenLine; line++ {
				sb.WriteByte(';')
			}
			col = 0
		} else if i > 0 {
			sb.WriteByte(',')
		}
		writeVLQ(&sb, m.GenCol-col)
		writeVLQ(&sb, m.Source-source)
		writeVLQ(&sb, m.SrcLine-srcLine)
		writeVLQ(&sb, m.SrcCol-srcCol)
		col, source, srcLine, srcCol = m.GenCol, m.Source, m.SrcLine, m.SrcCol
	}
	return sb.String()
}

// Marshal serializes map to JSON.
func (m *Map) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Parse reads source map JSON.
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unable to parse source map: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", m.Version)
	}
	return &m, nil
}

// Decode returns mappings in generated order.
func (m *Map) Decode() ([]Mapping, error) {
	var (
		res                     []Mapping
		line, col               int
		source, srcLine, srcCol int
	)
	s := m.Mappings
	for pos := 0; pos < len(s); {
		switch s[pos] {
		case ';':
			line++
			col = 0
			pos++
			continue
		case ',':
			pos++
			continue
		}

		fields := make([]int, 0, 5)
		for pos < len(s) && s[pos] != ',' && s[pos] != ';' {
			v, next, err := readVLQ(s, pos)
			if err != nil {
				return nil, err
			}
			fields = append(fields, v)
			pos = next
		}
		switch len(fields) {
		case 1:
			col += fields[0]
			continue
		case 4, 5:
		default:
			return nil, fmt.Errorf("invalid segment with %d fields on line %d", len(fields), line)
		}
		col += fields[0]
		source += fields[1]
		srcLine += fields[2]
		srcCol += fields[3]
		if source < 0 || source >= len(m.Sources) {
			return nil, fmt.Errorf("source index %d out of range on line %d", source, line)
		}
		res = append(res, Mapping{GenLine: line, GenCol: col, Source: source, SrcLine: srcLine, SrcCol: srcCol})
	}
	return res, nil
}
