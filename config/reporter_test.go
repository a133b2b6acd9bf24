package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	res := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		res[f.Name] = string(data)
	}
	return res
}

func TestReport_Finalize(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	src := filepath.Join(dir, "main.scss")
	if err := os.WriteFile(src, []byte("a { b: c; }"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("source.scss", src)
	r.Store("missing", filepath.Join(dir, "absent.txt"))
	r.StoreData("output.css", []byte("a {\n  b: c; }\n"))

	if err := r.StoreCopy("snapshot.scss", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	// copy keeps content at the time of the call
	if err := os.WriteFile(src, []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := r.Name(); got != conf.Destination {
		t.Errorf("Name() = %q, want %q", got, conf.Destination)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	if !strings.Contains(files["MANIFEST"], "output.css") {
		t.Errorf("manifest = %q", files["MANIFEST"])
	}
	if files["source.scss"] != "changed" {
		t.Errorf("source.scss = %q", files["source.scss"])
	}
	if files["snapshot.scss"] != "a { b: c; }" {
		t.Errorf("snapshot.scss = %q", files["snapshot.scss"])
	}
	if files["output.css"] != "a {\n  b: c; }\n" {
		t.Errorf("output.css = %q", files["output.css"])
	}
	if _, ok := files["missing"]; ok {
		t.Error("absent file must be skipped")
	}
}

func TestReport_ConcurrentStore(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			r.StoreData("output.css", []byte("x"))
		})
	}
	wg.Wait()

	names := r.Names()
	if len(names) != 8 {
		t.Fatalf("Names() = %v, want 8 entries", names)
	}
	if names[0] != "output.css" {
		t.Errorf("first entry = %q", names[0])
	}
	for _, n := range names[1:] {
		if !strings.HasPrefix(n, "output.css-") {
			t.Errorf("unexpected versioned name %q", n)
		}
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy() on nil report error = %v", err)
	}
	if r.Name() != "" || r.Names() != nil {
		t.Error("nil report must be empty")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil report error = %v", err)
	}
}
