// Package compiler runs the whole pipeline for a single request: loading,
// parsing, resolution and rendering, on one compilation context.
package compiler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sassgo/diag"
	"sassgo/eval"
	"sassgo/render"
	"sassgo/scss"
	"sassgo/source"
)

// Output is produced by successful compilation.
type Output struct {
	CSS string
	// Map is source map JSON, empty unless map mode was requested.
	Map string
	// IncludedFiles lists every file read once, entry file first. Inline
	// entry is not listed.
	IncludedFiles []string
	Duration      time.Duration
	// Tree is parsed entry stylesheet, kept for diagnostics.
	Tree *scss.Stylesheet
	// Imports are parsed trees of imported files by path.
	Imports map[string]*scss.Stylesheet
}

// Result holds either output or error, never both.
type Result struct {
	Output *Output
	Err    *diag.Error
}

// Unwrap converts result into conventional return values.
func (r Result) Unwrap() (*Output, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Output, nil
}

// Context is state of a single compilation. It can be run once.
type Context struct {
	id    uuid.UUID
	log   *zap.Logger
	entry source.Entry
	opts  Options

	mu    sync.Mutex
	state State
}

// NewContext creates context, options are copied.
func NewContext(entry source.Entry, opts Options, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Context{
		id:    id,
		log:   log.Named("compiler").With(zap.Stringer("job", id)),
		entry: entry,
		opts:  opts.clone(),
		state: StateCreated,
	}
}

func (c *Context) ID() uuid.UUID {
	return c.id
}

func (c *Context) Entry() source.Entry {
	return c.entry
}

// Options returns copy of context options.
func (c *Context) Options() Options {
	return c.opts.clone()
}

// State may be called from any goroutine.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.log.Debug("State changed", zap.Stringer("from", from), zap.Stringer("to", to))
}

// Run executes pipeline. First failure skips remaining stages. Running
// context second time fails without touching its state.
func (c *Context) Run() (res Result) {
	c.mu.Lock()
	if c.state != StateCreated {
		state := c.state
		c.mu.Unlock()
		return Result{Err: diag.New(diag.KindInternal, diag.Location{}, "compilation context %s was already run (%s)", c.id, state)}
	}
	c.state = StateParsing
	c.mu.Unlock()
	c.log.Debug("State changed", zap.Stringer("from", StateCreated), zap.Stringer("to", StateParsing))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Compilation panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res = Result{Err: diag.Wrap(diag.KindInternal, diag.Location{}, fmt.Errorf("%v", r), "compilation panicked")}
		}
		if res.Err != nil {
			c.transition(StateFailed)
			c.log.Debug("Compilation failed", zap.Error(res.Err), zap.Duration("elapsed", time.Since(start)))
			return
		}
		res.Output.Duration = time.Since(start)
		c.transition(StateSucceeded)
		c.log.Debug("Compilation finished", zap.Duration("elapsed", res.Output.Duration))
	}()

	out, err := c.run()
	if err != nil {
		return Result{Err: diag.From(err)}
	}
	return Result{Output: out}
}

func (c *Context) run() (*Output, error) {
	if err := c.opts.Validate(); err != nil {
		return nil, err
	}

	loader, err := source.NewLoader(c.opts.IncludePaths, c.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := loader.Close(); cerr != nil {
			c.log.Warn("Unable to release include paths", zap.Error(cerr))
		}
	}()

	file, err := loader.Load(c.entry)
	if err != nil {
		return nil, err
	}
	parser := scss.NewParser(c.log)
	tree, err := parser.Parse(file.Content, file.Path)
	if err != nil {
		return nil, err
	}

	c.transition(StateResolving)
	ev := eval.New(loader, eval.Options{Precision: c.opts.Precision, ImagePath: c.opts.ImagePath}, c.log)
	sheet, err := ev.Evaluate(tree, file)
	if err != nil {
		return nil, err
	}

	c.transition(StateRendering)
	ropts := render.Options{
		Style:       c.opts.OutputStyle,
		Comments:    c.opts.SourceComments,
		OutFile:     c.opts.OutFile,
		MapFile:     c.opts.SourceMapPath,
		MapContents: c.opts.SourceMapContents,
		OmitMapURL:  c.opts.OmitSourceMapURL,
	}
	files := loader.Files()
	if ropts.MapContents {
		ropts.Sources = make(map[string]string, len(files))
		for _, f := range files {
			ropts.Sources[f.Path] = string(f.Content)
		}
	}
	rendered, err := render.New(ropts, c.log).Render(sheet)
	if err != nil {
		return nil, err
	}

	out := &Output{CSS: rendered.CSS, Map: rendered.Map, Tree: tree, Imports: make(map[string]*scss.Stylesheet)}
	for p, t := range ev.Parsed() {
		if p != file.Path {
			out.Imports[p] = t
		}
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.Path != source.StdinName && !seen[f.Path] {
			seen[f.Path] = true
			out.IncludedFiles = append(out.IncludedFiles, f.Path)
		}
	}
	return out, nil
}

// Compile compiles inline stylesheet.
func Compile(src string, opts Options) (string, error) {
	out, err := NewContext(source.Text(src), opts, nil).Run().Unwrap()
	if err != nil {
		return "", err
	}
	return out.CSS, nil
}

// CompileFile compiles stylesheet file.
func CompileFile(path string, opts Options) (*Output, error) {
	return NewContext(source.Path(path), opts, nil).Run().Unwrap()
}
