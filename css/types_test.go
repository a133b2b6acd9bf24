package css_test

import (
	"testing"

	"sassgo/css"
)

func TestRule_Empty(t *testing.T) {
	tests := []struct {
		name string
		rule *css.Rule
		want bool
	}{
		{"no declarations", &css.Rule{Selectors: []string{"a"}}, true},
		{"comment only", &css.Rule{Selectors: []string{"a"}, Decls: []*css.Declaration{{Comment: "/* x */"}}}, true},
		{"declaration", &css.Rule{Selectors: []string{"a"}, Decls: []*css.Declaration{{Property: "b", Value: "c"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlock_Empty(t *testing.T) {
	empty := &css.Block{Name: "media", Prelude: "screen", Items: []css.Item{&css.Rule{Selectors: []string{"a"}}}}
	if !empty.Empty() {
		t.Error("block holding only empty rules must be empty")
	}
	full := &css.Block{Name: "font-face", Decls: []*css.Declaration{{Property: "font-family", Value: "x"}}}
	if full.Empty() {
		t.Error("block with declaration must not be empty")
	}
	if !empty.Bubbles() || full.Bubbles() {
		t.Error("only media and supports bubble")
	}
}

func TestStylesheet_RulesAndString(t *testing.T) {
	sheet := &css.Stylesheet{Items: []css.Item{
		&css.Statement{Name: "charset", Prelude: `"UTF-8"`},
		&css.Comment{Text: "/* top */"},
		&css.Rule{Selectors: []string{"a", "b"}, Decls: []*css.Declaration{
			{Property: "color", Value: "red", Important: true},
		}},
		&css.Rule{Selectors: []string{"empty"}},
		&css.Block{Name: "media", Prelude: "print", Items: []css.Item{
			&css.Rule{Selectors: []string{"c"}, Decls: []*css.Declaration{{Property: "d", Value: "e"}}},
		}},
	}}

	if n := len(sheet.Rules()); n != 3 {
		t.Errorf("Rules() returned %d rules, want 3", n)
	}

	want := "@charset \"UTF-8\";\n" +
		"/* top */\n" +
		"a, b { color: red !important; }\n" +
		"@media print {\n" +
		"  c { d: e; }\n" +
		"}\n"
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestRule_Level(t *testing.T) {
	top := &css.Rule{Selectors: []string{"a"}, Decls: []*css.Declaration{{Property: "b", Value: "c"}}}
	empty := &css.Rule{Selectors: []string{"a d"}, Parent: top, Depth: 1}
	leaf := &css.Rule{Selectors: []string{"a d e"}, Parent: empty, Depth: 2}

	if top.Level() != 0 {
		t.Errorf("top Level() = %d", top.Level())
	}
	if leaf.Level() != 1 {
		t.Errorf("leaf Level() = %d, want 1 since its direct parent is empty", leaf.Level())
	}
}
