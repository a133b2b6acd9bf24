package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sassgo/common"
	"sassgo/compiler"
	"sassgo/config"
	"sassgo/css"
	"sassgo/diag"
	"sassgo/dispatch"
	"sassgo/render"
	"sassgo/scss"
	"sassgo/source"
	"sassgo/state"
)

// stdinSource is SOURCE argument requesting stylesheet from STDIN.
const stdinSource = "-"

// target is single compilation: where stylesheet comes from and where CSS
// goes.
type target struct {
	// input is path to source file, empty for STDIN
	input string
	// text is stylesheet read from STDIN
	text string
	// out is destination file, empty for STDOUT
	out string
	// mapFile is explicit source map location, empty means next to out
	mapFile string
}

func (t target) entry() source.Entry {
	if t.input == "" {
		return source.Text(t.text)
	}
	return source.Path(t.input)
}

func (t target) String() string {
	if t.input == "" {
		return source.StdinName
	}
	return t.input
}

// name identifies target in debug report.
func (t target) name() string {
	if t.input == "" {
		return source.StdinName
	}
	return strings.TrimSuffix(filepath.Base(t.input), filepath.Ext(t.input))
}

// cssName derives output file name from source file name.
func cssName(src string) string {
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".css"
}

// isEntry reports whether file should be compiled on its own when directory
// is processed.
func isEntry(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".scss") && !strings.HasPrefix(base, "_")
}

// layout describes where compilation results go.
type layout struct {
	dst       string
	outDir    string
	toStdout  bool
	recursive bool
	mapFile   string
}

// collectTargets expands SOURCE argument into list of compilations.
func collectTargets(src string, lo layout, stdin io.Reader) ([]target, error) {
	if src == stdinSource {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("unable to read STDIN: %w", err)
		}
		t := target{text: string(data), mapFile: lo.mapFile}
		if !lo.toStdout {
			t.out = lo.dst
			if t.out == "" && lo.outDir != "" {
				t.out = filepath.Join(lo.outDir, render.DefaultOutName)
			}
		}
		return []target{t}, nil
	}

	fi, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("unable to access source '%s': %w", src, err)
	}
	if !fi.IsDir() {
		t := target{input: src, mapFile: lo.mapFile}
		if !lo.toStdout {
			t.out = lo.dst
			switch {
			case t.out == "" && lo.outDir != "":
				t.out = filepath.Join(lo.outDir, cssName(src))
			case t.out != "":
				if fi, err := os.Stat(t.out); err == nil && fi.IsDir() {
					t.out = filepath.Join(t.out, cssName(src))
				}
			}
		}
		return []target{t}, nil
	}

	outDir := lo.outDir
	if outDir == "" {
		outDir = lo.dst
	}
	if outDir == "" && !lo.toStdout {
		return nil, fmt.Errorf("output directory is required to compile directory '%s'", src)
	}

	var targets []target
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != src && !lo.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !isEntry(p) {
			return nil
		}
		t := target{input: p}
		if !lo.toStdout {
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			t.out = filepath.Join(outDir, filepath.Dir(rel), cssName(rel))
		}
		targets = append(targets, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk source directory '%s': %w", src, err)
	}
	// "page2.scss" goes before "page10.scss"
	slices.SortStableFunc(targets, func(a, b target) int {
		switch {
		case natural.Less(a.input, b.input):
			return -1
		case natural.Less(b.input, a.input):
			return 1
		}
		return 0
	})
	return targets, nil
}

// buildOptions composes compiler options from configuration and command line,
// flags take precedence.
func buildOptions(cfg *config.CompilerConfig, cmd *cli.Command) (compiler.Options, error) {
	opts := compiler.FromConfig(cfg)

	if cmd.IsSet("include-path") {
		opts.IncludePaths = slices.Concat(opts.IncludePaths, cmd.StringSlice("include-path"))
	}
	if cmd.IsSet("image-path") {
		opts.ImagePath = cmd.String("image-path")
	}
	if cmd.IsSet("output-style") {
		style, err := common.ParseOutputStyle(cmd.String("output-style"))
		if err != nil {
			return compiler.Options{}, fmt.Errorf("bad output style: %w", err)
		}
		opts.OutputStyle = style
	}
	if cmd.IsSet("precision") {
		opts.Precision = int(cmd.Int("precision"))
	}
	if cmd.IsSet("source-comments") {
		sc, err := common.ParseSourceComments(cmd.String("source-comments"))
		if err != nil {
			return compiler.Options{}, fmt.Errorf("bad source comments mode: %w", err)
		}
		opts.SourceComments = sc
	}
	if cmd.IsSet("source-map") {
		switch v := cmd.String("source-map"); strings.ToLower(v) {
		case "", "false":
		case "true":
			opts.SourceComments = common.SourceCommentsMap
		default:
			opts.SourceComments = common.SourceCommentsMap
			opts.SourceMapPath = v
		}
	}
	if cmd.IsSet("source-map-contents") {
		opts.SourceMapContents = cmd.Bool("source-map-contents")
	}
	if cmd.IsSet("omit-source-map-url") {
		opts.OmitSourceMapURL = cmd.Bool("omit-source-map-url")
	}
	if err := opts.Validate(); err != nil {
		return compiler.Options{}, err
	}
	return opts, nil
}

// builder turns compilation results into files.
type builder struct {
	log    *zap.Logger
	rpt    *config.Report
	base   compiler.Options
	stdout io.Writer
}

// options returns compiler options for target.
func (b *builder) options(t target) compiler.Options {
	opts := b.base
	opts.OutFile = t.out
	opts.SourceMapPath = t.mapFile
	return opts
}

// mapPath is where source map of the target is written, empty when map
// goes nowhere.
func mapPath(t target, opts compiler.Options) string {
	if t.out == "" && t.mapFile == "" {
		return ""
	}
	return render.MapFile(render.Options{OutFile: opts.OutFile, MapFile: opts.SourceMapPath})
}

func writeFile(name, data string) error {
	if dir := filepath.Dir(name); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create directory '%s': %w", dir, err)
		}
	}
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", name, err)
	}
	return nil
}

// write stores compilation output of the target.
func (b *builder) write(t target, out *compiler.Output) error {
	opts := b.options(t)
	if t.out == "" {
		if _, err := io.WriteString(b.stdout, out.CSS); err != nil {
			return fmt.Errorf("unable to write to STDOUT: %w", err)
		}
	} else if err := writeFile(t.out, out.CSS); err != nil {
		return err
	}
	if out.Map != "" {
		if name := mapPath(t, opts); name != "" {
			if err := writeFile(name, out.Map); err != nil {
				return err
			}
		}
	}
	b.log.Debug("Compiled", zap.Stringer("source", t), zap.String("destination", t.out), zap.Duration("elapsed", out.Duration))
	b.report(t, out)
	return nil
}

// report puts sources, results and parsed tree into debug report.
func (b *builder) report(t target, out *compiler.Output) {
	if b.rpt == nil {
		return
	}
	if t.input == "" {
		b.rpt.StoreData(path.Join("sources", source.StdinName+".scss"), []byte(t.text))
	}
	for _, f := range out.IncludedFiles {
		if err := b.rpt.StoreCopy(path.Join("sources", filepath.Base(f)), f); err != nil {
			b.log.Debug("Unable to store source in report", zap.String("file", f), zap.Error(err))
		}
	}
	name := t.name()
	b.rpt.StoreData(path.Join("output", name+".css"), []byte(out.CSS))
	if out.Map != "" {
		b.rpt.StoreData(path.Join("output", name+".css.map"), []byte(out.Map))
	}
	if out.Tree != nil {
		b.rpt.StoreData(path.Join("ast", name+".txt"), []byte(scss.Dump(out.Tree)))
	}
	for p, tree := range out.Imports {
		b.rpt.StoreData(path.Join("ast", name, filepath.Base(p)+".txt"), []byte(scss.Dump(tree)))
	}
	b.verify(t, out)
}

// verify re-reads produced CSS and puts its summary into debug report.
func (b *builder) verify(t target, out *compiler.Output) {
	sum, err := css.NewVerifier(b.log).Verify([]byte(out.CSS), t.String())
	if err != nil {
		b.log.Warn("Produced CSS does not parse", zap.Stringer("source", t), zap.Error(err))
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		b.log.Debug("Unable to encode CSS summary", zap.Error(err))
		return
	}
	b.rpt.StoreData(path.Join("verify", t.name()+".json"), data)
}

// failed logs compilation error with its source context.
func (b *builder) failed(t target, err *diag.Error) {
	fields := []zap.Field{zap.Stringer("source", t), zap.Stringer("kind", err.Kind), zap.Error(err)}
	if err.Context != "" {
		fields = append(fields, zap.String("context", err.Context))
	}
	if len(err.Attempted) > 0 {
		fields = append(fields, zap.Strings("attempted", err.Attempted))
	}
	if len(err.Chain) > 0 {
		fields = append(fields, zap.Strings("chain", err.Chain))
	}
	b.log.Error("Compilation failed", fields...)
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no SOURCE was specified")
	}

	base, err := buildOptions(&env.Cfg.Compiler, cmd)
	if err != nil {
		return fmt.Errorf("unable to prepare compiler options: %w", err)
	}

	lo := layout{
		dst:       cmd.Args().Get(1),
		outDir:    cmd.String("output"),
		toStdout:  cmd.Bool("stdout"),
		recursive: cmd.Bool("recursive"),
		mapFile:   base.SourceMapPath,
	}
	watching := cmd.Bool("watch")
	if watching && src == stdinSource {
		return errors.New("unable to watch STDIN")
	}

	targets, err := collectTargets(src, lo, os.Stdin)
	if err != nil {
		return err
	}
	if len(targets) == 0 && !watching {
		log.Warn("Nothing to compile", zap.String("source", src))
		return nil
	}
	if len(targets) > 1 && lo.mapFile != "" {
		log.Warn("Explicit source map path is ignored for multiple sources", zap.String("path", lo.mapFile))
		targets = dropMapFile(targets)
	}

	d, err := dispatch.New(dispatch.Config{Workers: env.Cfg.Compiler.Workers, QueueSize: env.Cfg.Compiler.QueueSize}, env.Log, env.Metrics)
	if err != nil {
		return fmt.Errorf("unable to start compilation: %w", err)
	}
	defer d.Close()

	b := &builder{log: log, rpt: env.Rpt, base: base, stdout: os.Stdout}

	if watching {
		return runWatch(ctx, d, b, watchSetup{
			src:      src,
			layout:   lo,
			targets:  targets,
			debounce: env.Cfg.Compiler.Watch.Debounce,
		})
	}
	return compileAll(ctx, d, b, targets)
}

func dropMapFile(targets []target) []target {
	for i := range targets {
		targets[i].mapFile = ""
	}
	return targets
}

// compileAll compiles targets concurrently and writes results in order.
// Every failure is reported, first one does not stop the rest.
func compileAll(ctx context.Context, d *dispatch.Dispatcher, b *builder, targets []target) (err error) {
	futures := make([]*dispatch.Future, len(targets))
	for i, t := range targets {
		c := compiler.NewContext(t.entry(), b.options(t), b.log)
		f, serr := d.Submit(ctx, c)
		if serr != nil {
			return multierr.Append(err, fmt.Errorf("unable to compile '%s': %w", t, serr))
		}
		futures[i] = f
	}
	for i, f := range futures {
		t := targets[i]
		res, werr := f.Wait(ctx)
		if werr != nil {
			return multierr.Append(err, werr)
		}
		if res.Err != nil {
			b.failed(t, res.Err)
			err = multierr.Append(err, fmt.Errorf("unable to compile '%s': %w", t, res.Err))
			continue
		}
		if werr := b.write(t, res.Output); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	return err
}
