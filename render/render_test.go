package render_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"sassgo/common"
	"sassgo/css"
	"sassgo/diag"
	"sassgo/render"
	"sassgo/sourcemap"
)

func loc(file string, line, col int) diag.Location {
	return diag.Location{File: file, Line: line, Column: col}
}

func sample() *css.Stylesheet {
	a := &css.Rule{Selectors: []string{"a", "b > c"}, Loc: loc("in.scss", 1, 1), Decls: []*css.Declaration{
		{Property: "color", Value: "red", Loc: loc("in.scss", 2, 3)},
		{Property: "margin", Value: "0.5px, 0 auto", Important: true, Loc: loc("in.scss", 3, 3)},
	}}
	nested := &css.Rule{Selectors: []string{"a d"}, Parent: a, Depth: 1, Loc: loc("in.scss", 4, 3), Decls: []*css.Declaration{
		{Property: "e", Value: "f", Loc: loc("in.scss", 4, 7)},
	}}
	media := &css.Block{Name: "media", Prelude: "screen", Loc: loc("in.scss", 6, 1), Items: []css.Item{
		&css.Rule{Selectors: []string{"g"}, Loc: loc("in.scss", 7, 3), Decls: []*css.Declaration{
			{Property: "h", Value: "i", Loc: loc("in.scss", 7, 7)},
		}},
	}}
	return &css.Stylesheet{Items: []css.Item{
		&css.Statement{Name: "import", Prelude: `"x.css"`},
		&css.Comment{Text: "/* c */"},
		a,
		nested,
		media,
		&css.Rule{Selectors: []string{"empty"}},
	}}
}

func TestRender_Styles(t *testing.T) {
	tests := []struct {
		style common.OutputStyle
		want  string
	}{
		{common.OutputStyleNested, "@import \"x.css\";\n/* c */\n\n" +
			"a, b > c {\n  color: red;\n  margin: 0.5px, 0 auto !important; }\n" +
			"  a d {\n    e: f; }\n\n" +
			"@media screen {\n  g {\n    h: i; } }\n"},
		{common.OutputStyleExpanded, "@import \"x.css\";\n/* c */\n\n" +
			"a,\nb > c {\n  color: red;\n  margin: 0.5px, 0 auto !important;\n}\n\n" +
			"a d {\n  e: f;\n}\n\n" +
			"@media screen {\n  g {\n    h: i;\n  }\n}\n"},
		{common.OutputStyleCompact, "@import \"x.css\";\n/* c */\n\n" +
			"a, b > c { color: red; margin: 0.5px, 0 auto !important; }\n" +
			"a d { e: f; }\n\n" +
			"@media screen {\n  g { h: i; } }\n"},
		{common.OutputStyleCompressed, "@import \"x.css\";" +
			"a,b>c{color:red;margin:.5px,0 auto!important}" +
			"a d{e:f}" +
			"@media screen{g{h:i}}"},
	}
	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			out, err := render.New(render.Options{Style: tt.style}, zap.NewNop()).Render(sample())
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, out.CSS); diff != "" {
				t.Errorf("Render() mismatch (-want +got):\n%s", diff)
			}
			if out.Map != "" {
				t.Error("map must not be produced without map mode")
			}
		})
	}
}

func TestRender_Idempotent(t *testing.T) {
	for _, style := range []common.OutputStyle{common.OutputStyleNested, common.OutputStyleExpanded, common.OutputStyleCompact, common.OutputStyleCompressed} {
		sheet := sample()
		first, err := render.Render(sheet, render.Options{Style: style})
		if err != nil {
			t.Fatalf("Render(%s) error = %v", style, err)
		}
		second, err := render.Render(sheet, render.Options{Style: style})
		if err != nil {
			t.Fatalf("Render(%s) error = %v", style, err)
		}
		if first.CSS != second.CSS {
			t.Errorf("%s output is not stable", style)
		}
	}
}

func TestRender_CompressedIsValidCSS(t *testing.T) {
	out, err := render.Render(sample(), render.Options{Style: common.OutputStyleCompressed, Comments: common.SourceCommentsDefault})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.ContainsAny(out.CSS, "\n") || strings.Contains(out.CSS, "/*") {
		t.Errorf("compressed output has newlines or comments: %q", out.CSS)
	}
	sum, err := css.NewVerifier(zap.NewNop()).Verify([]byte(out.CSS), "compressed")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if sum.Rules != 3 || sum.Declarations != 4 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRender_ExpandedOneDeclarationPerLine(t *testing.T) {
	out, err := render.Render(sample(), render.Options{Style: common.OutputStyleExpanded})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, line := range strings.Split(out.CSS, "\n") {
		if strings.Count(line, ";") > 1 {
			t.Errorf("line has more than one declaration: %q", line)
		}
	}
}

func TestRender_LineComments(t *testing.T) {
	out, err := render.Render(sample(), render.Options{Style: common.OutputStyleNested, Comments: common.SourceCommentsDefault})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		"/* line 1, in.scss */\na, b > c {",
		"  /* line 4, in.scss */\n  a d {",
		"  /* line 7, in.scss */\n  g {",
	} {
		if !strings.Contains(out.CSS, want) {
			t.Errorf("output does not contain %q:\n%s", want, out.CSS)
		}
	}
}

func TestRender_SourceMap(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "in.scss")
	text := "a,\nb > c {\n  color: red;\n  margin: 0;\n}\n"
	sheet := &css.Stylesheet{Items: []css.Item{
		&css.Rule{Selectors: []string{"a", "b > c"}, Loc: loc(src, 1, 1), Decls: []*css.Declaration{
			{Property: "color", Value: "red", Loc: loc(src, 3, 3)},
			{Property: "margin", Value: "0", Loc: loc(src, 4, 3)},
		}},
	}}

	out, err := render.Render(sheet, render.Options{
		Style:       common.OutputStyleExpanded,
		Comments:    common.SourceCommentsMap,
		OutFile:     filepath.Join(dir, "out.css"),
		MapContents: true,
		Sources:     map[string]string{src: text},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasSuffix(out.CSS, "}\n/*# sourceMappingURL=out.css.map */\n") {
		t.Errorf("missing map URL:\n%s", out.CSS)
	}

	m, err := sourcemap.Parse([]byte(out.Map))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.File != "out.css" {
		t.Errorf("file = %q", m.File)
	}
	if diff := cmp.Diff([]string{"src/in.scss"}, m.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if len(m.SourcesContent) != 1 || m.SourcesContent[0] == nil || *m.SourcesContent[0] != text {
		t.Errorf("sourcesContent = %v", m.SourcesContent)
	}

	got, err := m.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []sourcemap.Mapping{
		{GenLine: 0, GenCol: 0, SrcLine: 0, SrcCol: 0},
		{GenLine: 1, GenCol: 0, SrcLine: 0, SrcCol: 0},
		{GenLine: 2, GenCol: 2, SrcLine: 2, SrcCol: 2},
		{GenLine: 3, GenCol: 2, SrcLine: 3, SrcCol: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}

	lines := strings.Split(text, "\n")
	for _, mp := range got {
		if mp.SrcLine >= len(lines) || mp.SrcCol > len(lines[mp.SrcLine]) {
			t.Errorf("mapping %+v points outside of source", mp)
		}
	}
}

func TestRender_SourceMapOmitURL(t *testing.T) {
	dir := t.TempDir()
	out, err := render.Render(sample(), render.Options{
		Comments:   common.SourceCommentsMap,
		OutFile:    filepath.Join(dir, "css", "out.css"),
		MapFile:    filepath.Join(dir, "maps", "out.map"),
		OmitMapURL: true,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(out.CSS, "sourceMappingURL") {
		t.Error("map URL must be omitted")
	}
	m, err := sourcemap.Parse([]byte(out.Map))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.File != "../css/out.css" {
		t.Errorf("file = %q", m.File)
	}
	if m.SourcesContent != nil {
		t.Error("sources content must not be embedded by default")
	}
}

func TestMapFile(t *testing.T) {
	if got := render.MapFile(render.Options{OutFile: "a/b.css"}); got != "a/b.css.map" {
		t.Errorf("MapFile() = %q", got)
	}
	if got := render.MapFile(render.Options{OutFile: "a/b.css", MapFile: "c.map"}); got != "c.map" {
		t.Errorf("MapFile() = %q", got)
	}
	if got := render.MapFile(render.Options{}); got != render.DefaultOutName+".map" {
		t.Errorf("MapFile() = %q", got)
	}
}
