package eval

import (
	"slices"

	"github.com/shopspring/decimal"

	"sassgo/diag"
)

// operation evaluates binary operator on already evaluated operands. Logical
// operators are short circuited by the caller.
func (ev *Evaluator) operation(op string, a, b Value, loc diag.Location) (Value, error) {
	switch op {
	case "==":
		return Bool(Equal(a, b)), nil
	case "!=":
		return Bool(!Equal(a, b)), nil
	case "<", "<=", ">", ">=":
		return ev.compare(op, a, b, loc)
	}

	x, xok := a.(*Number)
	y, yok := b.(*Number)
	if xok && yok {
		return ev.arithmetic(op, x.plain(), y.plain(), loc)
	}

	switch op {
	case "+":
		return ev.concat(a, b, loc)
	case "-", "/":
		if err := ev.operands(op, a, b, loc); err != nil {
			return nil, err
		}
		return Unquoted(ToText(a, ev.precision) + op + ToText(b, ev.precision)), nil
	}
	return nil, ev.undefinedOperation(op, a, b, loc)
}

func (ev *Evaluator) undefinedOperation(op string, a, b Value, loc diag.Location) error {
	return diag.New(diag.KindEvaluation, loc, "Undefined operation: \"%s %s %s\".",
		Inspect(a, ev.precision), op, Inspect(b, ev.precision))
}

// operands rejects nulls and colors as operands of string operations.
func (ev *Evaluator) operands(op string, a, b Value, loc diag.Location) error {
	for _, v := range []Value{a, b} {
		switch v.(type) {
		case nullValue, *Color:
			return ev.undefinedOperation(op, a, b, loc)
		}
	}
	return nil
}

// concat joins operands as strings. Result is quoted when the left string is
// quoted, or when the left side is not a string and the right one is quoted.
func (ev *Evaluator) concat(a, b Value, loc diag.Location) (Value, error) {
	if err := ev.operands("+", a, b, loc); err != nil {
		return nil, err
	}
	var quote byte
	if s, ok := a.(*String); ok {
		quote = s.Quote
	} else if s, ok := b.(*String); ok {
		quote = s.Quote
	}
	return &String{Text: ToText(a, ev.precision) + ToText(b, ev.precision), Quote: quote}, nil
}

func (ev *Evaluator) arithmetic(op string, x, y *Number, loc diag.Location) (Value, error) {
	switch op {
	case "+", "-", "%":
		yc, ok := y.convert(x)
		if !ok {
			return nil, diag.New(diag.KindEvaluation, loc, "Incompatible units: '%s' and '%s'.", y.Unit(), x.Unit())
		}
		res := &Number{Num: x.Num, Den: x.Den}
		if x.Unitless() {
			res.Num, res.Den = y.Num, y.Den
		}
		switch op {
		case "+":
			res.V = x.V.Add(yc.V)
		case "-":
			res.V = x.V.Sub(yc.V)
		default:
			if yc.V.IsZero() {
				return nil, diag.New(diag.KindEvaluation, loc, "Modulo by zero.")
			}
			r := x.V.Mod(yc.V)
			// result takes sign of divisor
			if !r.IsZero() && r.Sign() != yc.V.Sign() {
				r = r.Add(yc.V)
			}
			res.V = r
		}
		return res, nil
	case "*":
		return simplify(x.V.Mul(y.V), append(slices.Clone(x.Num), y.Num...), append(slices.Clone(x.Den), y.Den...)), nil
	case "/":
		if y.V.IsZero() {
			return nil, diag.New(diag.KindEvaluation, loc, "Division by zero.")
		}
		return simplify(x.V.DivRound(y.V, divPrecision), append(slices.Clone(x.Num), y.Den...), append(slices.Clone(x.Den), y.Num...)), nil
	}
	return nil, ev.undefinedOperation(op, x, y, loc)
}

// simplify cancels compatible numerator and denominator units.
func simplify(v decimal.Decimal, num, den []string) *Number {
	for i := 0; i < len(num); i++ {
		for j := range den {
			f, ok := conversionFactor(num[i], den[j])
			if !ok {
				continue
			}
			v = v.Mul(f)
			num = slices.Delete(num, i, i+1)
			den = slices.Delete(den, j, j+1)
			i--
			break
		}
	}
	n := &Number{V: v}
	if len(num) > 0 {
		n.Num = num
	}
	if len(den) > 0 {
		n.Den = den
	}
	return n
}

func (ev *Evaluator) compare(op string, a, b Value, loc diag.Location) (Value, error) {
	x, xok := a.(*Number)
	y, yok := b.(*Number)
	if !xok || !yok {
		return nil, ev.undefinedOperation(op, a, b, loc)
	}
	yc, ok := y.convert(x)
	if !ok {
		return nil, diag.New(diag.KindEvaluation, loc, "Incompatible units: '%s' and '%s'.", y.Unit(), x.Unit())
	}
	c := cmpValues(x.V, yc.V)
	switch op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

func (ev *Evaluator) unary(op string, v Value, loc diag.Location) (Value, error) {
	if op == "not" {
		return Bool(!Truthy(v)), nil
	}
	if n, ok := v.(*Number); ok {
		res := n.plain()
		if op == "-" {
			res.V = res.V.Neg()
		}
		return res, nil
	}
	switch v.(type) {
	case nullValue, *Color:
		return nil, diag.New(diag.KindEvaluation, loc, "Undefined operation: \"%s%s\".", op, Inspect(v, ev.precision))
	}
	return Unquoted(op + ToText(v, ev.precision)), nil
}
