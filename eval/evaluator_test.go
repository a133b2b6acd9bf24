package eval_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"sassgo/css"
	"sassgo/diag"
	"sassgo/eval"
	"sassgo/scss"
	"sassgo/source"
)

type fixture struct {
	files     map[string]string
	precision int
	imagePath string
}

func (f fixture) evaluate(t *testing.T, src string) (*css.Stylesheet, error) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range f.files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	loader, err := source.NewLoader([]string{dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	t.Cleanup(func() { loader.Close() })

	file, err := loader.Load(source.Text(src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	root, err := scss.Parse(file.Content, file.Path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	precision := f.precision
	if precision == 0 {
		precision = 5
	}
	if precision < 0 {
		precision = 0
	}
	ev := eval.New(loader, eval.Options{Precision: precision, ImagePath: f.imagePath}, zap.NewNop())
	return ev.Evaluate(root, file)
}

func mustEvaluate(t *testing.T, src string) string {
	t.Helper()
	sheet, err := fixture{}.evaluate(t, src)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return sheet.String()
}

func checkOutput(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEvaluate_VariablesAndArithmetic(t *testing.T) {
	got := mustEvaluate(t, `
$w: 10px;
$h: $w * 2;
.a {
  width: $w + 5;
  height: $h;
  margin: -$w;
  font: 12px/1.5 serif;
  line: (12px/4);
}
`)
	checkOutput(t, got, ".a { width: 15px; height: 20px; margin: -10px; font: 12px/1.5 serif; line: 3px; }\n")
}

func TestEvaluate_Nesting(t *testing.T) {
	got := mustEvaluate(t, `
.a, .b {
  color: red;
  .c { x: 1; }
  &:hover { x: 2; }
  &-suffix { x: 3; }
  > .d { x: 4; }
  font: { family: serif; size: 2px; }
}
`)
	checkOutput(t, got, ".a, .b { color: red; font-family: serif; font-size: 2px; }\n"+
		".a .c, .b .c { x: 1; }\n"+
		".a:hover, .b:hover { x: 2; }\n"+
		".a-suffix, .b-suffix { x: 3; }\n"+
		".a > .d, .b > .d { x: 4; }\n")
}

func TestEvaluate_RuleParents(t *testing.T) {
	sheet, err := fixture{}.evaluate(t, `.a { x: 1; .b { .c { y: 2; } } }`)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	rules := sheet.Rules()
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	leaf := rules[2]
	if leaf.Depth != 2 || leaf.Parent != rules[1] || rules[1].Parent != rules[0] {
		t.Errorf("unexpected nesting: depth=%d", leaf.Depth)
	}
	if leaf.Level() != 1 {
		t.Errorf("Level() = %d, want 1", leaf.Level())
	}
}

func TestEvaluate_Mixins(t *testing.T) {
	got := mustEvaluate(t, `
@mixin box($w, $h: $w, $extra...) {
  width: $w;
  height: $h;
  extra: $extra;
  @content;
}
.m { @include box(1px, $h: 2px); }
.n { @include box(3px, 4px, a, b) { color: blue; } }
.o { @include box(5px); }
`)
	checkOutput(t, got, ".m { width: 1px; height: 2px; }\n"+
		".n { width: 3px; height: 4px; extra: a, b; color: blue; }\n"+
		".o { width: 5px; height: 5px; }\n")
}

func TestEvaluate_ContentSeesIncludeScope(t *testing.T) {
	got := mustEvaluate(t, `
$c: outer;
@mixin wrap { $c: inner; .w { @content; } }
.a { @include wrap { v: $c; } }
`)
	checkOutput(t, got, ".a .w { v: outer; }\n")
}

func TestEvaluate_FunctionsAndControl(t *testing.T) {
	got := mustEvaluate(t, `
@function double($n) { @return $n * 2; }
@for $i from 1 through 3 { .c-#{$i} { w: double($i) * 1px; } }
@for $i from 1 to 3 { .t-#{$i} { w: $i; } }
@each $name, $color in (primary blue, secondary red) { .#{$name} { color: $color; } }
$i: 2;
@while $i > 0 { .w-#{$i} { x: $i; } $i: $i - 1; }
@if 1 == 1 { .yes { a: b; } } @else { .no { a: b; } }
@if false { .no { a: b; } } @else if true { .elseif { a: b; } }
`)
	checkOutput(t, got, ".c-1 { w: 2px; }\n"+
		".c-2 { w: 4px; }\n"+
		".c-3 { w: 6px; }\n"+
		".t-1 { w: 1; }\n"+
		".t-2 { w: 2; }\n"+
		".primary { color: blue; }\n"+
		".secondary { color: red; }\n"+
		".w-2 { x: 2; }\n"+
		".w-1 { x: 1; }\n"+
		".yes { a: b; }\n"+
		".elseif { a: b; }\n")
}

func TestEvaluate_Scopes(t *testing.T) {
	got := mustEvaluate(t, `
$x: 1;
.a { $x: 2; v: $x; }
.b { v: $x; }
.c { $x: 3 !global; }
.d { v: $x; }
$y: 1 !default;
$y: 2 !default;
.e { v: $y; }
@if true { $x: 4; }
.f { v: $x; }
$under_score: 5;
.g { v: $under-score; }
`)
	checkOutput(t, got, ".a { v: 2; }\n"+
		".b { v: 1; }\n"+
		".d { v: 3; }\n"+
		".e { v: 1; }\n"+
		".f { v: 4; }\n"+
		".g { v: 5; }\n")
}

func TestEvaluate_MediaBubbling(t *testing.T) {
	got := mustEvaluate(t, `
$bp: 10px;
.a {
  color: red;
  @media screen {
    color: blue;
    @media (min-width: $bp) { color: green; }
  }
}
`)
	checkOutput(t, got, ".a { color: red; }\n"+
		"@media screen {\n"+
		"  .a { color: blue; }\n"+
		"}\n"+
		"@media screen and (min-width: 10px) {\n"+
		"  .a { color: green; }\n"+
		"}\n")
}

func TestEvaluate_BlockAtRules(t *testing.T) {
	got := mustEvaluate(t, `
@charset "UTF-8";
@font-face { font-family: x; src: url(x.woff); }
@keyframes spin { from { a: 0; } to { a: 360deg; } }
`)
	checkOutput(t, got, "@charset \"UTF-8\";\n"+
		"@font-face { font-family: x; src: url(x.woff);\n"+
		"}\n"+
		"@keyframes spin {\n"+
		"  from { a: 0; }\n"+
		"  to { a: 360deg; }\n"+
		"}\n")
}

func TestEvaluate_Imports(t *testing.T) {
	f := fixture{files: map[string]string{
		"_vars.scss":         "$c: red;\n",
		"partials/_btn.scss": ".btn { color: $c; }\n",
	}}
	sheet, err := f.evaluate(t, `
@import "vars", "partials/btn";
@import "theme.css";
.x { @import "partials/btn"; }
`)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	checkOutput(t, sheet.String(), ".btn { color: red; }\n"+
		"@import \"theme.css\";\n"+
		".x .btn { color: red; }\n")
}

func TestEvaluate_ImportCycle(t *testing.T) {
	f := fixture{files: map[string]string{
		"a.scss": "@import \"b\";\n",
		"b.scss": "@import \"a\";\n",
	}}
	_, err := f.evaluate(t, `@import "a";`)
	if !errors.Is(err, diag.ErrCircularImport) {
		t.Fatalf("error = %v, want CircularImport", err)
	}
	var de *diag.Error
	errors.As(err, &de)
	if len(de.Chain) != 4 || !strings.HasSuffix(de.Chain[3], "a.scss") {
		t.Errorf("chain = %v", de.Chain)
	}
}

func TestEvaluate_MissingImport(t *testing.T) {
	_, err := fixture{}.evaluate(t, `@import "nope";`)
	if !errors.Is(err, diag.ErrImportNotFound) {
		t.Fatalf("error = %v, want ImportNotFound", err)
	}
}

func TestEvaluate_Precision(t *testing.T) {
	src := `a { b: 1/3; c: (1/3); d: round(2.5); e: round(-2.5); f: percentage(0.5); g: 10px/2px*1; h: (2/3); }`
	sheet, err := fixture{}.evaluate(t, src)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	checkOutput(t, sheet.String(), "a { b: 1/3; c: 0.33333; d: 3; e: -3; f: 50%; g: 5; h: 0.66667; }\n")

	sheet, err = fixture{precision: -1}.evaluate(t, src)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	checkOutput(t, sheet.String(), "a { b: 1/3; c: 0; d: 3; e: -3; f: 50%; g: 5; h: 1; }\n")
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
		msg  string
	}{
		{"undefined variable", "a { b: $nope; }", diag.KindUndefinedVariable, "$nope"},
		{"undefined mixin", "a { @include nope; }", diag.KindUndefinedMixin, "nope"},
		{"error directive", "@error \"boom #{1 + 1}\";", diag.KindEvaluation, "boom 2"},
		{"parent at root", "& { a: b; }", diag.KindEvaluation, "parent selector"},
		{"declaration at root", "color: red;", diag.KindEvaluation, "within style rules"},
		{"no return", "@function f() { $a: 1; }\na { b: f(); }", diag.KindEvaluation, "without @return"},
		{"missing argument", "@mixin m($a) { b: $a; }\na { @include m; }", diag.KindEvaluation, "Missing argument $a"},
		{"too many arguments", "@mixin m($a) { b: $a; }\na { @include m(1, 2); }", diag.KindEvaluation, "Only 1 arguments"},
		{"unknown keyword", "@mixin m($a) { b: $a; }\na { @include m($b: 1); }", diag.KindEvaluation, "$a"},
		{"incompatible units", "a { b: 1px + 1s; }", diag.KindEvaluation, "Incompatible units"},
		{"extend", "a { @extend .b; }", diag.KindEvaluation, "@extend"},
		{"plain function keyword", "a { b: foo($x: 1); }", diag.KindUndefinedFunction, "foo"},
		{"division by zero", "a { b: (1px / 0); }", diag.KindEvaluation, "Division by zero"},
		{"compound unit", "a { b: 1px * 1px; }", diag.KindEvaluation, "isn't a valid CSS value"},
		{"rule in function", "@function f() { a { b: c; } @return 1; }\nx { y: f(); }", diag.KindEvaluation, "not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture{}.evaluate(t, tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not *diag.Error", err)
			}
			if de.Kind != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", de.Kind, tt.kind, err)
			}
			if !strings.Contains(de.Message, tt.msg) {
				t.Errorf("message %q does not contain %q", de.Message, tt.msg)
			}
			if !de.Loc.IsValid() {
				t.Errorf("error location is not set: %v", err)
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	src := `
@mixin m($a...) { v: $a; }
@each $k in a b c { .#{$k} { @include m(1, 2, 3); } }
`
	first := mustEvaluate(t, src)
	for range 5 {
		if got := mustEvaluate(t, src); got != first {
			t.Fatalf("output differs between runs:\n%s\n%s", first, got)
		}
	}
}
