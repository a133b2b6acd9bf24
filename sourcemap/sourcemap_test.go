package sourcemap

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVLQ(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{123, "2H"},
		{-1000, "x+B"},
	}
	for _, tt := range tests {
		var sb strings.Builder
		writeVLQ(&sb, tt.v)
		if sb.String() != tt.want {
			t.Errorf("writeVLQ(%d) = %q, want %q", tt.v, sb.String(), tt.want)
		}
		v, pos, err := readVLQ(sb.String(), 0)
		if err != nil || v != tt.v || pos != len(tt.want) {
			t.Errorf("readVLQ(%q) = %d, %d, %v", sb.String(), v, pos, err)
		}
	}

	if _, _, err := readVLQ("g", 0); err == nil {
		t.Error("expected error for truncated value")
	}
	if _, _, err := readVLQ("!", 0); err == nil {
		t.Error("expected error for invalid character")
	}
}

func TestBuilder_RoundTrip(t *testing.T) {
	content := "a { b: c; }"
	b := NewBuilder("out.css")
	b.AddSource("in.scss", &content)
	b.Add(0, 0, "in.scss", 0, 0)
	b.Add(1, 2, "in.scss", 0, 4)
	b.Add(1, 10, "other.scss", 5, 1)
	b.Add(4, 0, "in.scss", 2, 0)

	m := b.Map()
	if m.Version != 3 || m.File != "out.css" {
		t.Errorf("unexpected header %+v", m)
	}
	if diff := cmp.Diff([]string{"in.scss", "other.scss"}, m.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if len(m.SourcesContent) != 2 || m.SourcesContent[0] == nil || m.SourcesContent[1] != nil {
		t.Errorf("sourcesContent = %v", m.SourcesContent)
	}
	if m.Mappings != "AAAA;EAAI,QCKH;;;ADHD" {
		t.Errorf("mappings = %q", m.Mappings)
	}

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, err := parsed.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []Mapping{
		{GenLine: 0, GenCol: 0, Source: 0, SrcLine: 0, SrcCol: 0},
		{GenLine: 1, GenCol: 2, Source: 0, SrcLine: 0, SrcCol: 4},
		{GenLine: 1, GenCol: 10, Source: 1, SrcLine: 5, SrcCol: 1},
		{GenLine: 4, GenCol: 0, Source: 0, SrcLine: 2, SrcCol: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte(`{"version": 2, "sources": [], "mappings": ""}`)); err == nil {
		t.Error("expected error for version 2")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	m := &Map{Version: 3, Sources: []string{"a"}, Mappings: "AAAA,ACAA"}
	if _, err := m.Decode(); err == nil {
		t.Error("expected error for source index out of range")
	}
}
