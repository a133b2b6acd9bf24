// Package render serializes resolved stylesheet in one of the output styles
// and records source map while doing it.
package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"sassgo/common"
	"sassgo/css"
	"sassgo/diag"
	"sassgo/sourcemap"
)

// DefaultOutName is used for source map when output goes to stdout.
const DefaultOutName = "stdin.css"

// Options controls serialization.
type Options struct {
	Style    common.OutputStyle
	Comments common.SourceComments
	// OutFile is where CSS is going to be written, source map URL and map
	// sources are computed relative to it.
	OutFile string
	// MapFile is where source map is going to be written, defaults to
	// OutFile with ".map" suffix.
	MapFile     string
	MapContents bool
	OmitMapURL  bool
	// Sources holds text of every source file by path, used to embed
	// sources into the map.
	Sources map[string]string
}

// Output is rendering result. Map is empty unless map was requested.
type Output struct {
	CSS string
	Map string
}

// Renderer turns css.Stylesheet into text.
type Renderer struct {
	log  *zap.Logger
	opts Options
}

// New creates renderer.
func New(opts Options, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("render"), opts: opts}
}

// Render serializes sheet with default logger.
func Render(sheet *css.Stylesheet, opts Options) (*Output, error) {
	return New(opts, nil).Render(sheet)
}

// MapFile returns path of the source map for the given options.
func MapFile(opts Options) string {
	switch {
	case opts.MapFile != "":
		return opts.MapFile
	case opts.OutFile != "":
		return opts.OutFile + ".map"
	}
	return DefaultOutName + ".map"
}

// Render serializes sheet.
func (r *Renderer) Render(sheet *css.Stylesheet) (*Output, error) {
	if !r.opts.Style.IsValid() {
		return nil, diag.New(diag.KindInternal, diag.Location{}, "unknown output style %d", r.opts.Style)
	}

	p := &printer{
		style:        r.opts.Style,
		lineComments: r.opts.Comments.WantLineComments() && !r.opts.Style.Minified(),
	}

	var (
		mapFile, outFile string
		err              error
	)
	if r.opts.Comments.WantMap() {
		outFile = r.opts.OutFile
		if outFile == "" {
			outFile = DefaultOutName
		}
		if outFile, err = filepath.Abs(outFile); err != nil {
			return nil, diag.Wrap(diag.KindIO, diag.Location{}, err, "unable to resolve output path")
		}
		if mapFile, err = filepath.Abs(MapFile(r.opts)); err != nil {
			return nil, diag.Wrap(diag.KindIO, diag.Location{}, err, "unable to resolve source map path")
		}
		p.mapDir = filepath.Dir(mapFile)
		p.smap = sourcemap.NewBuilder(relativePath(p.mapDir, outFile))
		if r.opts.MapContents {
			p.sources = r.opts.Sources
		}
	}

	p.items(sheet.Items, 0)
	if p.w.sb.Len() > 0 && !p.style.Minified() {
		p.w.write("\n")
	}

	out := &Output{}
	if p.smap != nil {
		data, err := p.smap.Map().Marshal()
		if err != nil {
			return nil, diag.Wrap(diag.KindInternal, diag.Location{}, err, "unable to serialize source map")
		}
		out.Map = string(data)
		if !r.opts.OmitMapURL {
			comment := "/*# sourceMappingURL=" + relativePath(filepath.Dir(outFile), mapFile) + " */"
			if !p.style.Minified() {
				comment += "\n"
			}
			p.w.write(comment)
		}
	}
	out.CSS = p.w.sb.String()

	r.log.Debug("Stylesheet rendered",
		zap.Stringer("style", r.opts.Style),
		zap.Int("bytes", len(out.CSS)),
		zap.Bool("map", p.smap != nil))
	return out, nil
}

// relativePath returns target relative to dir with forward slashes, target
// as is when it cannot be made relative.
func relativePath(dir, target string) string {
	if !filepath.IsAbs(target) {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// writer tracks 0-based line and byte column of the output end.
type writer struct {
	sb   strings.Builder
	line int
	col  int
}

func (w *writer) write(s string) {
	w.sb.WriteString(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		w.line += strings.Count(s, "\n")
		w.col = len(s) - i - 1
		return
	}
	w.col += len(s)
}

type printer struct {
	w            writer
	style        common.OutputStyle
	lineComments bool

	smap    *sourcemap.Builder
	mapDir  string
	sources map[string]string
}

// mark records mapping from current output position to loc.
func (p *printer) mark(loc diag.Location) {
	if p.smap == nil || !loc.IsValid() {
		return
	}
	name := relativePath(p.mapDir, loc.File)
	if text, ok := p.sources[loc.File]; ok {
		p.smap.AddSource(name, &text)
	}
	p.smap.Add(p.w.line, p.w.col, name, loc.Line-1, loc.Column-1)
}

func indent(n int) string {
	return strings.Repeat("  ", n)
}

func (p *printer) visible(it css.Item) bool {
	if css.IsEmpty(it) {
		return false
	}
	if _, ok := it.(*css.Comment); ok && p.style.Minified() {
		return false
	}
	return true
}

// items renders container content at block nesting depth. Items are
// separated, the caller handles what goes before and after.
func (p *printer) items(items []css.Item, depth int) {
	first := true
	for _, it := range items {
		if !p.visible(it) {
			continue
		}
		if !first {
			p.separator(it, depth)
		}
		first = false

		switch v := it.(type) {
		case *css.Rule:
			p.rule(v, depth)
		case *css.Block:
			p.block(v, depth)
		case *css.Statement:
			p.statement(v, depth)
		case *css.Comment:
			p.w.write(indent(depth) + v.Text)
		}
	}
}

func (p *printer) hasVisible(items []css.Item) bool {
	for _, it := range items {
		if p.visible(it) {
			return true
		}
	}
	return false
}

// separator goes between two items: blank line in front of top level rules
// and blocks, new line otherwise.
func (p *printer) separator(next css.Item, depth int) {
	if p.style.Minified() {
		return
	}
	topLevel := false
	switch v := next.(type) {
	case *css.Rule:
		topLevel = p.style == common.OutputStyleExpanded || v.Level() == 0
	case *css.Block:
		topLevel = true
	}
	if depth == 0 && topLevel {
		p.w.write("\n\n")
		return
	}
	p.w.write("\n")
}

func (p *printer) ruleIndent(r *css.Rule, depth int) int {
	if p.style == common.OutputStyleNested {
		return depth + r.Level()
	}
	return depth
}

func (p *printer) rule(r *css.Rule, depth int) {
	level := p.ruleIndent(r, depth)
	ind := indent(level)
	if p.style.Minified() {
		ind = ""
	}
	p.w.write(ind)
	if p.lineComments && r.Loc.IsValid() {
		p.w.write(fmt.Sprintf("/* line %d, %s */\n%s", r.Loc.Line, r.Loc.File, ind))
	}

	for i, sel := range r.Selectors {
		if i > 0 {
			switch p.style {
			case common.OutputStyleExpanded:
				p.w.write(",\n" + ind)
			case common.OutputStyleCompressed:
				p.w.write(",")
			default:
				p.w.write(", ")
			}
		}
		p.mark(r.Loc)
		if p.style.Minified() {
			sel = tightenSelector(sel)
		}
		p.w.write(sel)
	}

	p.openBrace()
	p.decls(r.Decls, level+1)
	p.closeBrace(level)
}

func (p *printer) openBrace() {
	if p.style.Minified() {
		p.w.write("{")
		return
	}
	p.w.write(" {")
}

// closeBrace ends rule or block opened at indentation level.
func (p *printer) closeBrace(level int) {
	switch p.style {
	case common.OutputStyleCompressed:
		p.w.write("}")
	case common.OutputStyleExpanded:
		p.w.write("\n" + indent(level) + "}")
	default:
		p.w.write(" }")
	}
}

// decls renders declarations, each on its own line indented to level or
// inline for compact and compressed styles.
func (p *printer) decls(decls []*css.Declaration, level int) {
	first := true
	for _, d := range decls {
		if d.IsComment() && p.style.Minified() {
			continue
		}
		switch p.style {
		case common.OutputStyleCompressed:
			if !first {
				p.w.write(";")
			}
		case common.OutputStyleCompact:
			p.w.write(" ")
		default:
			p.w.write("\n" + indent(level))
		}
		first = false

		if d.IsComment() {
			p.w.write(d.Comment)
			continue
		}
		p.mark(d.Loc)
		if p.style.Minified() {
			p.w.write(d.Property + ":" + minifyValue(d.Value))
			if d.Important {
				p.w.write("!important")
			}
			continue
		}
		p.w.write(d.Property + ": " + d.Value)
		if d.Important {
			p.w.write(" !important")
		}
		p.w.write(";")
	}
}

func (p *printer) block(b *css.Block, depth int) {
	ind := indent(depth)
	if p.style.Minified() {
		ind = ""
	}
	p.w.write(ind)
	p.mark(b.Loc)
	p.w.write("@" + b.Name)
	if b.Prelude != "" {
		prelude := b.Prelude
		if p.style.Minified() {
			prelude = minifyValue(prelude)
		}
		p.w.write(" " + prelude)
	}
	p.openBrace()
	p.decls(b.Decls, depth+1)
	if p.hasVisible(b.Items) {
		if p.style.Minified() && len(b.Decls) > 0 {
			p.w.write(";")
		}
		if !p.style.Minified() {
			p.w.write("\n")
		}
		p.items(b.Items, depth+1)
	}
	p.closeBrace(depth)
}

func (p *printer) statement(s *css.Statement, depth int) {
	if !p.style.Minified() {
		p.w.write(indent(depth))
	}
	p.mark(s.Loc)
	p.w.write("@" + s.Name)
	if s.Prelude != "" {
		p.w.write(" " + s.Prelude)
	}
	p.w.write(";")
}
