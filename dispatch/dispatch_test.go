package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"sassgo/common"
	"sassgo/compiler"
	"sassgo/diag"
	"sassgo/dispatch"
	"sassgo/source"
)

func newDispatcher(t *testing.T, cfg dispatch.Config, reg prometheus.Registerer) *dispatch.Dispatcher {
	t.Helper()
	d, err := dispatch.New(cfg, zap.NewNop(), reg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func waitResult(t *testing.T, f *dispatch.Future) compiler.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return res
}

func TestDispatcher_Submit(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Workers: 2}, nil)

	c := compiler.NewContext(source.Text("a { b: c; }"), compiler.DefaultOptions(), nil)
	f, err := d.Submit(context.Background(), c)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if f.ID() != c.ID() {
		t.Error("future must carry context ID")
	}
	out, err := waitResult(t, f).Unwrap()
	if err != nil {
		t.Fatalf("compilation error = %v", err)
	}
	if out.CSS != "a {\n  b: c; }\n" {
		t.Errorf("CSS = %q", out.CSS)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done() must be closed after Wait() returned")
	}
	if c.State() != compiler.StateSucceeded {
		t.Errorf("State() = %s", c.State())
	}
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d, err := dispatch.New(dispatch.Config{Workers: 1}, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.Close()
	d.Close()

	c := compiler.NewContext(source.Text(""), compiler.DefaultOptions(), nil)
	if _, err := d.Submit(context.Background(), c); !errors.Is(err, dispatch.ErrClosed) {
		t.Errorf("Submit() error = %v, want ErrClosed", err)
	}
}

func TestCompileAsync_ExactlyOnce(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Workers: 4, QueueSize: 8}, nil)

	const jobs = 60
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
		calls     [jobs]atomic.Int32
	)
	wg.Add(jobs)
	for i := range jobs {
		src := fmt.Sprintf("a { b: %d; }", i)
		if i%3 == 0 {
			src = "a { b: $undefined; }"
		}
		d.CompileAsync(context.Background(), src, compiler.DefaultOptions(),
			func(out *compiler.Output) {
				defer wg.Done()
				calls[i].Add(1)
				successes.Add(1)
				if !strings.Contains(out.CSS, fmt.Sprintf("b: %d;", i)) {
					t.Errorf("job %d got foreign output %q", i, out.CSS)
				}
			},
			func(err *diag.Error) {
				defer wg.Done()
				calls[i].Add(1)
				failures.Add(1)
				if !errors.Is(err, diag.ErrUndefinedVariable) {
					t.Errorf("job %d error = %v", i, err)
				}
			})
	}
	wg.Wait()

	if got := successes.Load(); got != 40 {
		t.Errorf("successes = %d, want 40", got)
	}
	if got := failures.Load(); got != 20 {
		t.Errorf("failures = %d, want 20", got)
	}
	d.Close()
	for i := range jobs {
		if n := calls[i].Load(); n != 1 {
			t.Errorf("job %d callbacks fired %d times", i, n)
		}
	}
}

func TestCompileAsync_Closed(t *testing.T) {
	d, err := dispatch.New(dispatch.Config{Workers: 1}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.Close()

	var got *diag.Error
	calls := 0
	f := d.CompileAsync(context.Background(), "a { b: c; }", compiler.DefaultOptions(),
		func(*compiler.Output) { t.Error("success callback must not be called") },
		func(err *diag.Error) {
			calls++
			got = err
		})
	if calls != 1 {
		t.Fatalf("error callback fired %d times", calls)
	}
	if !errors.Is(got, dispatch.ErrClosed) || !errors.Is(got, diag.ErrInternal) {
		t.Errorf("error = %v", got)
	}
	res := waitResult(t, f)
	if res.Err == nil {
		t.Error("future must hold the error")
	}
}

func TestCompileAsync_CallbackPanic(t *testing.T) {
	d := newDispatcher(t, dispatch.Config{Workers: 1}, nil)

	f := d.CompileAsync(context.Background(), "a { b: c; }", compiler.DefaultOptions(),
		func(*compiler.Output) { panic("boom") },
		func(*diag.Error) { t.Error("error callback must not be called after success callback") })
	if res := waitResult(t, f); res.Err != nil {
		t.Fatalf("compilation error = %v", res.Err)
	}

	// worker survives
	done := make(chan struct{})
	d.CompileAsync(context.Background(), "x { y: z; }", compiler.DefaultOptions(),
		func(*compiler.Output) { close(done) },
		func(err *diag.Error) { t.Errorf("unexpected error %v", err) })
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("second compilation never finished")
	}
}

func TestCompileFileAsync_Independent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.scss")
	if err := os.WriteFile(path, []byte("a { b: c; d { e: f; } }"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := newDispatcher(t, dispatch.Config{Workers: 4}, nil)

	want := map[common.OutputStyle]string{
		common.OutputStyleNested:     "a {\n  b: c; }\n  a d {\n    e: f; }\n",
		common.OutputStyleExpanded:   "a {\n  b: c;\n}\n\na d {\n  e: f;\n}\n",
		common.OutputStyleCompact:    "a { b: c; }\na d { e: f; }\n",
		common.OutputStyleCompressed: "a{b:c}a d{e:f}",
	}
	futures := make(map[common.OutputStyle]*dispatch.Future)
	for style := range want {
		opts := compiler.DefaultOptions()
		opts.OutputStyle = style
		futures[style] = d.CompileFileAsync(context.Background(), path, opts, nil, nil)
	}
	for style, f := range futures {
		out, err := waitResult(t, f).Unwrap()
		if err != nil {
			t.Fatalf("%s: compilation error = %v", style, err)
		}
		if out.CSS != want[style] {
			t.Errorf("%s: CSS = %q", style, out.CSS)
		}
		if len(out.IncludedFiles) != 1 || out.IncludedFiles[0] != path {
			t.Errorf("%s: IncludedFiles = %v", style, out.IncludedFiles)
		}
	}
}

func TestDispatcher_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newDispatcher(t, dispatch.Config{Workers: 2}, reg)

	compressed := compiler.DefaultOptions()
	compressed.OutputStyle = common.OutputStyleCompressed
	var futures []*dispatch.Future
	for _, src := range []string{"a { b: c; }", "x { y: z; }"} {
		futures = append(futures, d.CompileAsync(context.Background(), src, compressed, nil, nil))
	}
	futures = append(futures, d.CompileAsync(context.Background(), "@error \"no\";", compiler.DefaultOptions(), nil, nil))
	for _, f := range futures {
		waitResult(t, f)
	}
	d.Close()

	expected := `
# HELP sassgo_compilations_total Total number of finished compilations
# TYPE sassgo_compilations_total counter
sassgo_compilations_total{result="failure",style="nested"} 1
sassgo_compilations_total{result="success",style="compressed"} 2
# HELP sassgo_compilations_in_flight Number of compilations being executed
# TYPE sassgo_compilations_in_flight gauge
sassgo_compilations_in_flight 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "sassgo_compilations_total", "sassgo_compilations_in_flight"); err != nil {
		t.Error(err)
	}
	if n, err := testutil.GatherAndCount(reg, "sassgo_compilation_duration_seconds"); err != nil || n != 1 {
		t.Errorf("duration histogram series = %d, err = %v", n, err)
	}

	if _, err := dispatch.New(dispatch.Config{}, nil, reg); err == nil {
		t.Error("registering metrics twice must fail")
	}
}
