package source_test

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"sassgo/diag"
	"sassgo/source"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return name
}

func TestLoader_LoadText(t *testing.T) {
	l, err := source.NewLoader(nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer l.Close()

	f, err := l.Load(source.Text("a { b: c; }"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Path != source.StdinName {
		t.Errorf("Path = %q, want %q", f.Path, source.StdinName)
	}
	cwd, _ := os.Getwd()
	if f.Dir() != cwd {
		t.Errorf("Dir() = %q, want %q", f.Dir(), cwd)
	}
	if got := l.IncludePaths(); len(got) != 1 || got[0] != cwd {
		t.Errorf("IncludePaths() = %v, want [%s]", got, cwd)
	}
}

func TestLoader_LoadMissingFile(t *testing.T) {
	l, err := source.NewLoader(nil, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer l.Close()

	_, err = l.Load(source.Path(filepath.Join(t.TempDir(), "none.scss")))
	if !errors.Is(err, diag.ErrIO) {
		t.Fatalf("Load() error = %v, want IOError", err)
	}
}

func TestLoader_StripsBOM(t *testing.T) {
	dir := t.TempDir()
	name := writeFile(t, filepath.Join(dir, "bom.scss"), "\ufeffa { b: c; }")

	l, _ := source.NewLoader([]string{dir}, nil)
	defer l.Close()

	f, err := l.Load(source.Path(name))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(f.Content) != "a { b: c; }" {
		t.Errorf("Content = %q, BOM was not removed", f.Content)
	}
}

func TestLoader_ResolveOrder(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	inc1 := filepath.Join(base, "inc1")
	inc2 := filepath.Join(base, "inc2")

	main := writeFile(t, filepath.Join(src, "main.scss"), "@import 'colors';")
	writeFile(t, filepath.Join(inc1, "_colors.scss"), "$c: red;")
	writeFile(t, filepath.Join(inc2, "colors.scss"), "$c: blue;")
	writeFile(t, filepath.Join(inc2, "_grid.scss"), "$g: 12;")
	writeFile(t, filepath.Join(src, "_local.scss"), "$l: 1;")

	l, err := source.NewLoader([]string{inc1, inc2}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer l.Close()

	from, err := l.Load(source.Path(main))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		target string
		want   string
	}{
		{"colors", filepath.Join(inc1, "_colors.scss")},
		{"grid", filepath.Join(inc2, "_grid.scss")},
		{"local", filepath.Join(src, "_local.scss")},
		{"_local.scss", filepath.Join(src, "_local.scss")},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			f, err := l.Resolve(tt.target, from, diag.Location{})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if f.Path != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.target, f.Path, tt.want)
			}
		})
	}
}

func TestLoader_ResolveNotFoundListsCandidates(t *testing.T) {
	base := t.TempDir()
	inc := filepath.Join(base, "inc")
	if err := os.MkdirAll(inc, 0755); err != nil {
		t.Fatal(err)
	}
	main := writeFile(t, filepath.Join(base, "main.scss"), "")

	l, _ := source.NewLoader([]string{inc}, nil)
	defer l.Close()
	from, _ := l.Load(source.Path(main))

	_, err := l.Resolve("missing", from, diag.Location{File: main, Line: 1, Column: 1})
	var de *diag.Error
	if !errors.As(err, &de) || de.Kind != diag.KindImportNotFound {
		t.Fatalf("Resolve() error = %v, want ImportNotFound", err)
	}

	var want []string
	for _, dir := range []string{base, inc} {
		for _, c := range source.Candidates("missing") {
			want = append(want, filepath.Join(dir, filepath.FromSlash(c)))
		}
	}
	if !slices.Equal(de.Attempted, want) {
		t.Errorf("Attempted = %v\nwant %v", de.Attempted, want)
	}
	for _, w := range want {
		if !strings.Contains(de.Error(), w) {
			t.Errorf("error message does not mention %s", w)
		}
	}
}

func TestLoader_ResolveFromArchive(t *testing.T) {
	base := t.TempDir()
	zipPath := filepath.Join(base, "lib.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(zf)
	for name, content := range map[string]string{
		"theme/_base.scss":   "@import 'vars';",
		"theme/_vars.scss":   "$v: 1;",
		"buttons/index.scss": "$b: 2;",
	} {
		fw, _ := w.Create(name)
		fw.Write([]byte(content))
	}
	w.Close()
	zf.Close()

	l, err := source.NewLoader([]string{zipPath}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer l.Close()

	f, err := l.Resolve("theme/base", nil, diag.Location{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !f.InArchive() || f.Path != zipPath+":theme/_base.scss" {
		t.Errorf("Path = %q", f.Path)
	}

	// relative import inside archive
	v, err := l.Resolve("vars", f, diag.Location{})
	if err != nil {
		t.Fatalf("Resolve() relative error = %v", err)
	}
	if v.Path != zipPath+":theme/_vars.scss" {
		t.Errorf("Path = %q", v.Path)
	}

	idx, err := l.Resolve("buttons", nil, diag.Location{})
	if err != nil {
		t.Fatalf("Resolve() index error = %v", err)
	}
	if idx.Path != zipPath+":buttons/index.scss" {
		t.Errorf("Path = %q", idx.Path)
	}
}

func TestLoader_ResolveAboveArchiveRoot(t *testing.T) {
	base := t.TempDir()
	zipPath := filepath.Join(base, "lib.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(zf)
	fw, _ := w.Create("a.scss")
	fw.Write([]byte("@import '../vars';"))
	w.Close()
	zf.Close()

	inc := filepath.Join(base, "inc")
	want := writeFile(t, filepath.Join(base, "vars.scss"), "$v: 1;")
	writeFile(t, filepath.Join(inc, "keep.scss"), "")

	l, err := source.NewLoader([]string{zipPath, inc}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer l.Close()

	a, err := l.Resolve("a", nil, diag.Location{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	v, err := l.Resolve("../vars", a, diag.Location{})
	if err != nil {
		t.Fatalf("Resolve() above archive root error = %v", err)
	}
	if v.Path != want {
		t.Errorf("Path = %q, want %q", v.Path, want)
	}

	// nothing outside archive either
	_, err = l.Resolve("../../nope", a, diag.Location{})
	var de *diag.Error
	if !errors.As(err, &de) || de.Kind != diag.KindImportNotFound {
		t.Errorf("error = %v, want import not found", err)
	}
}

func TestLoader_ChainDetectsCycle(t *testing.T) {
	l, _ := source.NewLoader(nil, nil)
	defer l.Close()

	a := &source.File{Path: "/x/a.scss"}
	b := &source.File{Path: "/x/b.scss"}

	if err := l.Enter(a, diag.Location{}); err != nil {
		t.Fatalf("Enter(a) error = %v", err)
	}
	if err := l.Enter(b, diag.Location{}); err != nil {
		t.Fatalf("Enter(b) error = %v", err)
	}
	err := l.Enter(&source.File{Path: "/x/a.scss"}, diag.Location{})
	var de *diag.Error
	if !errors.As(err, &de) || de.Kind != diag.KindCircularImport {
		t.Fatalf("Enter(a) again error = %v, want CircularImport", err)
	}
	if want := []string{"/x/a.scss", "/x/b.scss", "/x/a.scss"}; !slices.Equal(de.Chain, want) {
		t.Errorf("Chain = %v, want %v", de.Chain, want)
	}

	l.Leave()
	l.Leave()
	if l.Depth() != 0 {
		t.Errorf("Depth() = %d after leaving everything", l.Depth())
	}
	if err := l.Enter(a, diag.Location{}); err != nil {
		t.Errorf("Enter(a) after Leave error = %v", err)
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"foo", []string{"foo.scss", "_foo.scss", "foo.css", "_foo.css", "foo/_index.scss", "foo/index.scss"}},
		{"dir/foo", []string{"dir/foo.scss", "dir/_foo.scss", "dir/foo.css", "dir/_foo.css", "dir/foo/_index.scss", "dir/foo/index.scss"}},
		{"foo.scss", []string{"foo.scss", "_foo.scss"}},
		{"_foo.scss", []string{"_foo.scss"}},
	}
	for _, tt := range tests {
		if got := source.Candidates(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Candidates(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
