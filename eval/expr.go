package eval

import (
	"strings"

	"sassgo/diag"
	"sassgo/scss"
)

// expr evaluates x. When force is set slash between literal numbers is
// division, otherwise it is kept as written.
func (ev *Evaluator) expr(c *ctx, x scss.Expr, force bool) (Value, error) {
	switch n := x.(type) {
	case nil:
		return Null, nil
	case *scss.Number:
		return NewNumber(n.Value, n.Unit), nil
	case *scss.String:
		text, err := ev.interp(c, n.Value)
		if err != nil {
			return nil, err
		}
		return &String{Text: text, Quote: n.Quote}, nil
	case *scss.Ident:
		switch n.Name {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null, nil
		}
		return Unquoted(n.Name), nil
	case *scss.Color:
		return &Color{Text: n.Text}, nil
	case *scss.Var:
		v, ok := c.scope.lookup(normalize(n.Name))
		if !ok {
			return nil, diag.New(diag.KindUndefinedVariable, n.Loc, "Undefined variable: \"$%s\".", n.Name)
		}
		return v, nil
	case *scss.Parent:
		if len(c.sel) == 0 {
			return Null, nil
		}
		return Unquoted(strings.Join(c.sel, ", ")), nil
	case *scss.List:
		l := &List{Sep: n.Sep, Bracketed: n.Bracketed, Items: make([]Value, 0, len(n.Items))}
		for _, it := range n.Items {
			v, err := ev.expr(c, it, force)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, v)
		}
		return l, nil
	case *scss.Binary:
		return ev.binary(c, n, force)
	case *scss.Unary:
		v, err := ev.expr(c, n.X, true)
		if err != nil {
			return nil, err
		}
		return ev.unary(n.Op, v, n.Loc)
	case *scss.Paren:
		return ev.expr(c, n.X, true)
	case *scss.Call:
		return ev.call(c, n)
	case *scss.RawCall:
		body, err := ev.interp(c, n.Body)
		if err != nil {
			return nil, err
		}
		return Unquoted(n.Name + "(" + body + ")"), nil
	case *scss.Interp:
		text, err := ev.interp(c, n)
		if err != nil {
			return nil, err
		}
		return Unquoted(text), nil
	}
	return nil, diag.New(diag.KindInternal, x.Location(), "unexpected expression %T", x)
}

func (ev *Evaluator) binary(c *ctx, b *scss.Binary, force bool) (Value, error) {
	switch b.Op {
	case "and", "or":
		x, err := ev.expr(c, b.X, true)
		if err != nil {
			return nil, err
		}
		if Truthy(x) == (b.Op == "or") {
			return x, nil
		}
		return ev.expr(c, b.Y, true)
	}

	if b.Slash && !force {
		x, err := ev.expr(c, b.X, false)
		if err != nil {
			return nil, err
		}
		y, err := ev.expr(c, b.Y, false)
		if err != nil {
			return nil, err
		}
		xn, xok := x.(*Number)
		yn, yok := y.(*Number)
		if xok && yok {
			q, err := ev.arithmetic("/", xn.plain(), yn.plain(), b.Loc)
			if err != nil {
				// division by zero keeps slash form
				return &Number{V: xn.V, Num: xn.Num, Den: xn.Den, Slash: ToCSS(x, ev.precision) + "/" + ToCSS(y, ev.precision)}, nil
			}
			res := q.(*Number)
			res.Slash = ToCSS(x, ev.precision) + "/" + ToCSS(y, ev.precision)
			return res, nil
		}
		return Unquoted(ToCSS(x, ev.precision) + "/" + ToCSS(y, ev.precision)), nil
	}

	x, err := ev.expr(c, b.X, true)
	if err != nil {
		return nil, err
	}
	y, err := ev.expr(c, b.Y, true)
	if err != nil {
		return nil, err
	}
	return ev.operation(b.Op, x, y, b.Loc)
}

// interp renders interpolated text, values lose their quotes. Slash is kept
// as written inside interpolation.
func (ev *Evaluator) interp(c *ctx, in *scss.Interp) (string, error) {
	if in == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range in.Parts {
		if p.Expr == nil {
			sb.WriteString(p.Text)
			continue
		}
		v, err := ev.expr(c, p.Expr, false)
		if err != nil {
			return "", err
		}
		sb.WriteString(ToText(v, ev.precision))
	}
	return sb.String(), nil
}
