// Package eval resolves parsed SCSS tree into plain CSS tree: imports,
// variables, nesting, mixins, functions, control directives and media
// bubbling.
package eval

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sassgo/css"
	"sassgo/diag"
	"sassgo/scss"
	"sassgo/source"
)

// maxCallDepth limits mixin and function recursion.
const maxCallDepth = 1024

// Options controls value rendering.
type Options struct {
	// Precision is number of fractional digits kept in output numbers.
	Precision int
	// ImagePath is prefix for image-url().
	ImagePath string
}

// Evaluator resolves single compilation, it is not safe for concurrent use.
type Evaluator struct {
	log       *zap.Logger
	loader    *source.Loader
	parser    *scss.Parser
	precision int
	imagePath string
	global    *scope
	depth     int
	parsed    map[string]*scss.Stylesheet
}

// New creates evaluator resolving imports with loader.
func New(loader *source.Loader, opts Options, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		log:       log.Named("eval"),
		loader:    loader,
		parser:    scss.NewParser(log),
		precision: opts.Precision,
		imagePath: opts.ImagePath,
		global:    newScope(nil, false),
		parsed:    make(map[string]*scss.Stylesheet),
	}
}

// bubble is enclosing @media or @supports block.
type bubble struct {
	name  string
	query string
}

// content is @content block of the current mixin call with scope of the
// include site.
type content struct {
	body   []scss.Stmt
	scope  *scope
	parent *content
}

// ctx is where evaluated statements go. It is copied when entering nested
// blocks, output containers are shared through pointers.
type ctx struct {
	scope *scope
	file  *source.File

	sel   []string   // resolved selectors of enclosing rule
	rule  *css.Rule  // receives declarations
	block *css.Block // receives declarations of at-rules like @font-face
	items *[]css.Item
	// top is container @media bubbles into.
	top   *[]css.Item
	media *bubble
	depth int

	keyframes  bool
	inFunction bool
	content    *content
}

// Evaluate resolves root parsed from file.
func (ev *Evaluator) Evaluate(root *scss.Stylesheet, file *source.File) (*css.Stylesheet, error) {
	out := &css.Stylesheet{}
	if err := ev.loader.Enter(file, diag.Location{File: file.Path}); err != nil {
		return nil, err
	}
	defer ev.loader.Leave()

	ev.parsed[file.Path] = root
	c := &ctx{scope: ev.global, file: file, items: &out.Items, top: &out.Items}
	if _, err := ev.exec(c, root.Body); err != nil {
		return nil, diag.From(err)
	}
	ev.log.Debug("Stylesheet resolved", zap.String("file", file.Path), zap.Int("items", len(out.Items)))
	return out, nil
}

// exec runs statements in order. Non nil value is returned when @return
// was reached.
func (ev *Evaluator) exec(c *ctx, body []scss.Stmt) (Value, error) {
	for _, st := range body {
		ret, err := ev.stmt(c, st)
		if err != nil || ret != nil {
			return ret, err
		}
	}
	return nil, nil
}

func (ev *Evaluator) stmt(c *ctx, st scss.Stmt) (Value, error) {
	if c.inFunction {
		switch st.(type) {
		case *scss.VarDecl, *scss.Return, *scss.If, *scss.Each, *scss.For, *scss.While, *scss.Message, *scss.Comment:
		default:
			return nil, diag.New(diag.KindEvaluation, st.Location(), "%s is not allowed in function bodies.", describe(st))
		}
	}

	switch s := st.(type) {
	case *scss.VarDecl:
		return nil, ev.varDecl(c, s)
	case *scss.Declaration:
		return nil, ev.declaration(c, s, "")
	case *scss.Rule:
		return nil, ev.rule(c, s)
	case *scss.AtRule:
		return nil, ev.atRule(c, s)
	case *scss.Import:
		return nil, ev.importRule(c, s)
	case *scss.MixinDecl:
		c.scope.defineMixin(&callable{name: normalize(s.Name), params: s.Params, body: s.Body, scope: c.scope})
		return nil, nil
	case *scss.FunctionDecl:
		c.scope.defineFunction(&callable{name: normalize(s.Name), params: s.Params, body: s.Body, scope: c.scope})
		return nil, nil
	case *scss.Include:
		return nil, ev.include(c, s)
	case *scss.Content:
		return nil, ev.content(c)
	case *scss.Return:
		if !c.inFunction {
			return nil, diag.New(diag.KindEvaluation, s.Loc, "@return may only be used within a function.")
		}
		return ev.expr(c, s.Value, true)
	case *scss.If:
		return ev.ifRule(c, s)
	case *scss.Each:
		return ev.each(c, s)
	case *scss.For:
		return ev.forRule(c, s)
	case *scss.While:
		return ev.while(c, s)
	case *scss.Message:
		return nil, ev.message(c, s)
	case *scss.Comment:
		if !c.inFunction {
			ev.comment(c, s)
		}
		return nil, nil
	}
	return nil, diag.New(diag.KindInternal, st.Location(), "unexpected statement %T", st)
}

func describe(st scss.Stmt) string {
	switch s := st.(type) {
	case *scss.Declaration:
		return "Declaration"
	case *scss.Rule:
		return "Style rule"
	case *scss.AtRule:
		return "@" + s.Name
	case *scss.Import:
		return "@import"
	case *scss.MixinDecl:
		return "Mixin declaration"
	case *scss.FunctionDecl:
		return "Function declaration"
	case *scss.Include:
		return "@include"
	case *scss.Content:
		return "@content"
	}
	return fmt.Sprintf("%T", st)
}

func (ev *Evaluator) varDecl(c *ctx, d *scss.VarDecl) error {
	name := normalize(d.Name)
	if d.Default {
		var (
			cur Value
			ok  bool
		)
		if d.Global {
			cur, ok = ev.global.lookup(name)
		} else {
			cur, ok = c.scope.lookup(name)
		}
		if ok && cur != Null {
			return nil
		}
	}
	v, err := ev.expr(c, d.Value, true)
	if err != nil {
		return err
	}
	if d.Global {
		ev.global.set(name, v)
		return nil
	}
	c.scope.assign(name, v)
	return nil
}

// decls returns declaration list of the innermost rule or block.
func (c *ctx) decls() *[]*css.Declaration {
	switch {
	case c.rule != nil:
		return &c.rule.Decls
	case c.block != nil:
		return &c.block.Decls
	}
	return nil
}

func (ev *Evaluator) declaration(c *ctx, d *scss.Declaration, prefix string) error {
	target := c.decls()
	if target == nil {
		return diag.New(diag.KindEvaluation, d.Loc, "Declarations may only be used within style rules.")
	}
	name, err := ev.interp(c, d.Name)
	if err != nil {
		return err
	}
	name = prefix + strings.TrimSpace(name)

	if d.Custom {
		raw, _ := d.Value.(*scss.Interp)
		text, err := ev.interp(c, raw)
		if err != nil {
			return err
		}
		*target = append(*target, &css.Declaration{Property: name, Value: strings.TrimSpace(text), Important: d.Important, Loc: d.Loc})
		return nil
	}

	if d.Value != nil {
		v, err := ev.expr(c, d.Value, false)
		if err != nil {
			return err
		}
		if err := ev.validCSS(v, d.Loc); err != nil {
			return err
		}
		if text := ToCSS(v, ev.precision); text != "" {
			*target = append(*target, &css.Declaration{Property: name, Value: text, Important: d.Important, Loc: d.Loc})
		}
	}

	for _, st := range d.Body {
		switch n := st.(type) {
		case *scss.Declaration:
			if err := ev.declaration(c, n, name+"-"); err != nil {
				return err
			}
		case *scss.Comment:
		default:
			if _, err := ev.stmt(c, st); err != nil {
				return err
			}
		}
	}
	return nil
}

// validCSS rejects numbers with compound units.
func (ev *Evaluator) validCSS(v Value, loc diag.Location) error {
	switch t := v.(type) {
	case *Number:
		if len(t.Num) > 1 || len(t.Den) > 0 {
			return diag.New(diag.KindEvaluation, loc, "%s isn't a valid CSS value.", Inspect(t, ev.precision))
		}
	case *List:
		for _, it := range t.Items {
			if err := ev.validCSS(it, loc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *Evaluator) rule(c *ctx, r *scss.Rule) error {
	text, err := ev.interp(c, r.Selector)
	if err != nil {
		return err
	}
	list := splitSelectors(text)
	if len(list) == 0 {
		return diag.New(diag.KindEvaluation, r.Loc, "Invalid empty selector.")
	}

	sel := list
	if !c.keyframes {
		if sel, err = resolveSelectors(c.sel, list, r.Loc); err != nil {
			return err
		}
	}

	rule := &css.Rule{Selectors: sel, Depth: c.depth, Parent: c.rule, Loc: r.Loc}
	*c.items = append(*c.items, rule)

	rc := *c
	rc.scope = newScope(c.scope, false)
	rc.sel = sel
	rc.rule = rule
	rc.block = nil
	rc.depth = c.depth + 1
	rc.keyframes = false
	_, err = ev.exec(&rc, r.Body)
	return err
}

func (ev *Evaluator) prelude(c *ctx, in *scss.Interp) (string, error) {
	text, err := ev.interp(c, in)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (ev *Evaluator) atRule(c *ctx, a *scss.AtRule) error {
	name := strings.ToLower(a.Name)
	if name == "extend" {
		return diag.New(diag.KindEvaluation, a.Loc, "@extend is not supported.")
	}
	prelude, err := ev.prelude(c, a.Prelude)
	if err != nil {
		return err
	}
	if !a.HasBlock {
		*c.items = append(*c.items, &css.Statement{Name: a.Name, Prelude: prelude, Loc: a.Loc})
		return nil
	}
	if name == "media" || name == "supports" {
		return ev.bubble(c, a, prelude)
	}

	block := &css.Block{Name: a.Name, Prelude: prelude, Loc: a.Loc}
	*c.items = append(*c.items, block)

	bc := *c
	bc.scope = newScope(c.scope, false)
	bc.items = &block.Items
	bc.top = &block.Items
	bc.media = nil
	bc.block = block
	bc.rule = nil
	bc.depth = 0
	if strings.HasSuffix(name, "keyframes") {
		bc.sel = nil
		bc.keyframes = true
	} else if len(c.sel) > 0 {
		r := &css.Rule{Selectors: c.sel, Loc: a.Loc}
		block.Items = append(block.Items, r)
		bc.rule = r
		bc.depth = 1
	}
	_, err = ev.exec(&bc, a.Body)
	return err
}

// bubble moves @media and @supports out of style rules. Nested queries of
// the same kind are joined with "and".
func (ev *Evaluator) bubble(c *ctx, a *scss.AtRule, query string) error {
	target := c.top
	if c.media != nil {
		if c.media.name == strings.ToLower(a.Name) {
			query = c.media.query + " and " + query
		} else {
			target = c.items
		}
	}

	block := &css.Block{Name: a.Name, Prelude: query, Loc: a.Loc}
	*target = append(*target, block)

	bc := *c
	bc.scope = newScope(c.scope, false)
	bc.media = &bubble{name: strings.ToLower(a.Name), query: query}
	bc.items = &block.Items
	bc.top = target
	bc.block = nil
	bc.rule = nil
	bc.depth = 0
	if len(c.sel) > 0 && !c.keyframes {
		r := &css.Rule{Selectors: c.sel, Loc: a.Loc}
		block.Items = append(block.Items, r)
		bc.rule = r
		bc.depth = 1
	} else if c.keyframes || c.block != nil {
		bc.block = block
	}
	_, err := ev.exec(&bc, a.Body)
	return err
}

func (ev *Evaluator) importRule(c *ctx, imp *scss.Import) error {
	for _, t := range imp.Targets {
		if t.Plain {
			text, err := ev.prelude(c, t.Text)
			if err != nil {
				return err
			}
			*c.items = append(*c.items, &css.Statement{Name: "import", Prelude: text, Loc: t.Loc})
			continue
		}
		if err := ev.importFile(c, t); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) importFile(c *ctx, t *scss.ImportTarget) error {
	f, err := ev.loader.Resolve(t.Path, c.file, t.Loc)
	if err != nil {
		return err
	}
	if err := ev.loader.Enter(f, t.Loc); err != nil {
		return err
	}
	defer ev.loader.Leave()

	sheet, ok := ev.parsed[f.Path]
	if !ok {
		if sheet, err = ev.parser.Parse(f.Content, f.Path); err != nil {
			return err
		}
		ev.parsed[f.Path] = sheet
	}
	ev.log.Debug("Import evaluated", zap.String("target", t.Path), zap.String("file", f.Path))

	ic := *c
	ic.file = f
	_, err = ev.exec(&ic, sheet.Body)
	return err
}

// Parsed returns trees of every file parsed during evaluation by path.
func (ev *Evaluator) Parsed() map[string]*scss.Stylesheet {
	return ev.parsed
}

func (ev *Evaluator) include(c *ctx, inc *scss.Include) error {
	mx := c.scope.mixin(normalize(inc.Name))
	if mx == nil {
		return diag.New(diag.KindUndefinedMixin, inc.Loc, "Undefined mixin \"%s\".", inc.Name)
	}
	args, err := ev.args(c, inc.Args)
	if err != nil {
		return err
	}
	if ev.depth >= maxCallDepth {
		return diag.New(diag.KindEvaluation, inc.Loc, "Stack depth exceeded max of %d.", maxCallDepth)
	}
	ev.depth++
	defer func() { ev.depth-- }()

	mc := *c
	mc.scope = newScope(mx.scope, false)
	if err := ev.bind(&mc, mx, args, inc.Loc); err != nil {
		return err
	}
	mc.content = nil
	if inc.HasContent {
		mc.content = &content{body: inc.Content, scope: c.scope, parent: c.content}
	}
	_, err = ev.exec(&mc, mx.body)
	return err
}

func (ev *Evaluator) content(c *ctx) error {
	if c.content == nil {
		return nil
	}
	cc := *c
	cc.scope = newScope(c.content.scope, false)
	cc.content = c.content.parent
	_, err := ev.exec(&cc, c.content.body)
	return err
}

func (ev *Evaluator) ifRule(c *ctx, s *scss.If) (Value, error) {
	cond, err := ev.expr(c, s.Cond, true)
	if err != nil {
		return nil, err
	}
	body := s.Else
	if Truthy(cond) {
		body = s.Body
	}
	fc := *c
	fc.scope = newScope(c.scope, true)
	return ev.exec(&fc, body)
}

func (ev *Evaluator) each(c *ctx, s *scss.Each) (Value, error) {
	list, err := ev.expr(c, s.List, true)
	if err != nil {
		return nil, err
	}
	for _, it := range items(list) {
		fc := *c
		fc.scope = newScope(c.scope, true)
		if len(s.Vars) == 1 {
			fc.scope.set(normalize(s.Vars[0]), it)
		} else {
			parts := items(it)
			for i, name := range s.Vars {
				v := Null
				if i < len(parts) {
					v = parts[i]
				}
				fc.scope.set(normalize(name), v)
			}
		}
		if ret, err := ev.exec(&fc, s.Body); err != nil || ret != nil {
			return ret, err
		}
	}
	return nil, nil
}

func (ev *Evaluator) intValue(c *ctx, x scss.Expr) (*Number, int64, error) {
	v, err := ev.expr(c, x, true)
	if err != nil {
		return nil, 0, err
	}
	n, ok := v.(*Number)
	if !ok {
		return nil, 0, diag.New(diag.KindEvaluation, x.Location(), "%s is not a number.", Inspect(v, ev.precision))
	}
	if !n.V.IsInteger() {
		return nil, 0, diag.New(diag.KindEvaluation, x.Location(), "%s is not an int.", Inspect(n, ev.precision))
	}
	return n, n.V.IntPart(), nil
}

func (ev *Evaluator) forRule(c *ctx, s *scss.For) (Value, error) {
	fromN, from, err := ev.intValue(c, s.From)
	if err != nil {
		return nil, err
	}
	toN, _, err := ev.intValue(c, s.To)
	if err != nil {
		return nil, err
	}
	conv, ok := toN.convert(fromN)
	if !ok {
		return nil, diag.New(diag.KindEvaluation, s.To.Location(), "Incompatible units: '%s' and '%s'.", toN.Unit(), fromN.Unit())
	}
	to := conv.V.Round(0).IntPart()

	step := int64(1)
	if from > to {
		step = -1
	}
	end := to
	if !s.Inclusive {
		if from == to {
			return nil, nil
		}
		end = to - step
	}
	unit := fromN
	if fromN.Unitless() {
		unit = toN
	}
	for i := from; ; i += step {
		fc := *c
		fc.scope = newScope(c.scope, true)
		n := Int(i)
		n.Num, n.Den = unit.Num, unit.Den
		fc.scope.set(normalize(s.Var), n)
		if ret, err := ev.exec(&fc, s.Body); err != nil || ret != nil {
			return ret, err
		}
		if i == end {
			break
		}
	}
	return nil, nil
}

func (ev *Evaluator) while(c *ctx, s *scss.While) (Value, error) {
	for {
		cond, err := ev.expr(c, s.Cond, true)
		if err != nil {
			return nil, err
		}
		if !Truthy(cond) {
			return nil, nil
		}
		fc := *c
		fc.scope = newScope(c.scope, true)
		if ret, err := ev.exec(&fc, s.Body); err != nil || ret != nil {
			return ret, err
		}
	}
}

func (ev *Evaluator) message(c *ctx, m *scss.Message) error {
	v, err := ev.expr(c, m.Value, true)
	if err != nil {
		return err
	}
	text := ToText(v, ev.precision)
	switch m.Kind {
	case scss.MessageError:
		return diag.New(diag.KindEvaluation, m.Loc, "%s", text)
	case scss.MessageDebug:
		ev.log.Info("@debug", zap.String("message", text), zap.Stringer("at", m.Loc))
	default:
		ev.log.Warn("@warn", zap.String("message", text), zap.Stringer("at", m.Loc))
	}
	return nil
}

func (ev *Evaluator) comment(c *ctx, s *scss.Comment) {
	if target := c.decls(); target != nil {
		*target = append(*target, &css.Declaration{Comment: s.Text, Loc: s.Loc})
		return
	}
	*c.items = append(*c.items, &css.Comment{Text: s.Text, Loc: s.Loc})
}
