package eval

import (
	"slices"
	"strings"

	"sassgo/diag"
	"sassgo/scss"
)

// arguments are evaluated call arguments, rest arguments already expanded.
type arguments struct {
	pos   []Value
	kw    map[string]Value
	names []string // keyword names in call order
	sep   scss.Separator
}

func (ev *Evaluator) args(c *ctx, list []*scss.Arg) (*arguments, error) {
	a := &arguments{kw: make(map[string]Value), sep: scss.SepComma}
	for _, arg := range list {
		v, err := ev.expr(c, arg.Value, false)
		if err != nil {
			return nil, err
		}
		switch {
		case arg.Rest:
			a.pos = append(a.pos, items(v)...)
			if l, ok := v.(*List); ok && len(l.Items) > 1 {
				a.sep = l.Sep
			}
		case arg.Name != "":
			name := normalize(arg.Name)
			if _, dup := a.kw[name]; dup {
				return nil, diag.New(diag.KindEvaluation, arg.Value.Location(), "Duplicate argument $%s.", arg.Name)
			}
			a.kw[name] = v
			a.names = append(a.names, name)
		default:
			if len(a.kw) > 0 {
				return nil, diag.New(diag.KindEvaluation, arg.Value.Location(), "Positional arguments must come before keyword arguments.")
			}
			a.pos = append(a.pos, v)
		}
	}
	return a, nil
}

// bind defines parameters of fn in c.scope. Defaults are evaluated in callee
// scope so they see preceding parameters.
func (ev *Evaluator) bind(c *ctx, fn *callable, a *arguments, loc diag.Location) error {
	used := make(map[string]bool)
	rest := false
	for i, p := range fn.params {
		name := normalize(p.Name)
		if p.Rest {
			rest = true
			l := &List{Sep: a.sep}
			if i < len(a.pos) {
				l.Items = slices.Clone(a.pos[i:])
			}
			c.scope.set(name, l)
			break
		}
		switch v, ok := a.kw[name]; {
		case i < len(a.pos):
			if ok {
				return diag.New(diag.KindEvaluation, loc, "Argument $%s was passed both by position and by name.", p.Name)
			}
			c.scope.set(name, a.pos[i])
		case ok:
			used[name] = true
			c.scope.set(name, v)
		case p.Default != nil:
			d, err := ev.expr(c, p.Default, true)
			if err != nil {
				return err
			}
			c.scope.set(name, d)
		default:
			return diag.New(diag.KindEvaluation, loc, "Missing argument $%s.", p.Name)
		}
	}
	if !rest && len(a.pos) > len(fn.params) {
		return diag.New(diag.KindEvaluation, loc, "Only %d arguments allowed, but %d were passed.", len(fn.params), len(a.pos))
	}
	for _, name := range a.names {
		if !used[name] {
			return diag.New(diag.KindEvaluation, loc, "No argument named $%s.", name)
		}
	}
	return nil
}

func (ev *Evaluator) call(c *ctx, x *scss.Call) (Value, error) {
	name := normalize(x.Name)
	if name == "if" {
		return ev.lazyIf(c, x)
	}
	fn := c.scope.function(name)
	b, isBuiltin := builtins[name]
	if fn == nil && !isBuiltin {
		return ev.plainCall(c, x)
	}

	a, err := ev.args(c, x.Args)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		return ev.invoke(c, fn, a, x.Loc)
	}
	vals, err := b.bind(x.Name, a, x.Loc)
	if err != nil {
		return nil, err
	}
	return b.fn(ev, c, vals, x.Loc)
}

func (ev *Evaluator) invoke(c *ctx, fn *callable, a *arguments, loc diag.Location) (Value, error) {
	if ev.depth >= maxCallDepth {
		return nil, diag.New(diag.KindEvaluation, loc, "Stack depth exceeded max of %d.", maxCallDepth)
	}
	ev.depth++
	defer func() { ev.depth-- }()

	fc := &ctx{scope: newScope(fn.scope, false), file: c.file, sel: c.sel, inFunction: true}
	if err := ev.bind(fc, fn, a, loc); err != nil {
		return nil, err
	}
	ret, err := ev.exec(fc, fn.body)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, diag.New(diag.KindEvaluation, loc, "Function %s finished without @return.", fn.name)
	}
	return ret, nil
}

// lazyIf evaluates only the selected branch.
func (ev *Evaluator) lazyIf(c *ctx, x *scss.Call) (Value, error) {
	names := []string{"condition", "if-true", "if-false"}
	exprs := make([]scss.Expr, len(names))
	for i, arg := range x.Args {
		if arg.Rest {
			return nil, diag.New(diag.KindEvaluation, x.Loc, "Rest arguments are not supported by if().")
		}
		if arg.Name == "" {
			if i >= len(names) {
				return nil, diag.New(diag.KindEvaluation, x.Loc, "Only 3 arguments allowed, but %d were passed.", len(x.Args))
			}
			exprs[i] = arg.Value
			continue
		}
		j := slices.Index(names, normalize(arg.Name))
		if j < 0 {
			return nil, diag.New(diag.KindEvaluation, x.Loc, "No argument named $%s.", arg.Name)
		}
		exprs[j] = arg.Value
	}
	for i, e := range exprs {
		if e == nil {
			return nil, diag.New(diag.KindEvaluation, x.Loc, "Missing argument $%s.", names[i])
		}
	}
	cond, err := ev.expr(c, exprs[0], true)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return ev.expr(c, exprs[1], true)
	}
	return ev.expr(c, exprs[2], true)
}

// plainCall renders unknown function as CSS function call.
func (ev *Evaluator) plainCall(c *ctx, x *scss.Call) (Value, error) {
	parts := make([]string, 0, len(x.Args))
	for _, arg := range x.Args {
		if arg.Name != "" {
			// only Sass functions take keyword arguments
			return nil, diag.New(diag.KindUndefinedFunction, x.Loc, "Undefined function %s(), plain CSS functions don't support keyword arguments.", x.Name)
		}
		v, err := ev.expr(c, arg.Value, false)
		if err != nil {
			return nil, err
		}
		if arg.Rest {
			for _, it := range items(v) {
				parts = append(parts, ToCSS(it, ev.precision))
			}
			continue
		}
		parts = append(parts, ToCSS(v, ev.precision))
	}
	return Unquoted(x.Name + "(" + strings.Join(parts, ", ") + ")"), nil
}
