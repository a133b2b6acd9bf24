package eval

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"sassgo/scss"
)

// divPrecision is the number of fractional digits kept by division, well
// above any output precision.
const divPrecision = 20

// cmpPrecision is the number of fractional digits numbers are compared with,
// it hides rounding errors of unit conversion.
const cmpPrecision = divPrecision - 5

// Value is result of expression evaluation: *Number, *String, *Color, Bool,
// Null or *List.
type Value interface {
	// TypeName is what type-of() returns.
	TypeName() string
}

// Number is decimal with unit. Units are kept as numerator and denominator
// lists so that "10px / 2px" is unitless.
type Number struct {
	V   decimal.Decimal
	Num []string
	Den []string
	// Slash holds "a/b" form when number came from slash between literals
	// outside of arithmetic, it is rendered instead of the quotient.
	Slash string
}

type String struct {
	Text  string
	Quote byte // 0 for unquoted
}

// Color is color literal, there is no color arithmetic.
type Color struct {
	Text string
}

type Bool bool

type nullValue struct{}

// Null is the only null value.
var Null Value = nullValue{}

type List struct {
	Items     []Value
	Sep       scss.Separator
	Bracketed bool
}

func (*Number) TypeName() string   { return "number" }
func (*String) TypeName() string   { return "string" }
func (*Color) TypeName() string    { return "color" }
func (Bool) TypeName() string      { return "bool" }
func (nullValue) TypeName() string { return "null" }
func (*List) TypeName() string     { return "list" }

func NewNumber(d decimal.Decimal, unit string) *Number {
	n := &Number{V: d}
	if unit != "" {
		n.Num = []string{unit}
	}
	return n
}

func Int(i int64) *Number {
	return &Number{V: decimal.NewFromInt(i)}
}

func Unquoted(s string) *String {
	return &String{Text: s}
}

func Quoted(s string) *String {
	return &String{Text: s, Quote: '"'}
}

// Unit returns unit in "px" or "px*em/s" form, empty for unitless.
func (n *Number) Unit() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(n.Num, "*"))
	if len(n.Den) > 0 {
		sb.WriteString("/")
		sb.WriteString(strings.Join(n.Den, "*"))
	}
	return sb.String()
}

func (n *Number) Unitless() bool {
	return len(n.Num) == 0 && len(n.Den) == 0
}

// plain returns copy without slash form.
func (n *Number) plain() *Number {
	return &Number{V: n.V, Num: slices.Clone(n.Num), Den: slices.Clone(n.Den)}
}

// convert returns n expressed in units of target, false if not possible.
func (n *Number) convert(target *Number) (*Number, bool) {
	if n.Unitless() || target.Unitless() {
		return n, true
	}
	if len(n.Num) != len(target.Num) || len(n.Den) != len(target.Den) {
		return nil, false
	}
	v := n.V
	for i, u := range n.Num {
		f, ok := conversionFactor(u, target.Num[i])
		if !ok {
			return nil, false
		}
		v = v.Mul(f)
	}
	for i, u := range n.Den {
		f, ok := conversionFactor(u, target.Den[i])
		if !ok {
			return nil, false
		}
		v = v.DivRound(f, divPrecision)
	}
	return &Number{V: v, Num: slices.Clone(target.Num), Den: slices.Clone(target.Den)}, true
}

// cmpValues orders a and b ignoring digits beyond cmpPrecision.
func cmpValues(a, b decimal.Decimal) int {
	return a.Round(cmpPrecision).Cmp(b.Round(cmpPrecision))
}

// Comparable reports whether numbers can be added or compared.
func (n *Number) Comparable(o *Number) bool {
	_, ok := o.convert(n)
	return ok
}

// Truthy is false only for false and null.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case nullValue:
		return false
	}
	return true
}

// Equal compares values the way "==" does: numbers after unit conversion,
// strings regardless of quotes.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Number:
		y, ok := b.(*Number)
		if !ok {
			return false
		}
		if x.Unitless() != y.Unitless() {
			return false
		}
		yc, ok := y.convert(x)
		return ok && cmpValues(x.V, yc.V) == 0
	case *String:
		y, ok := b.(*String)
		return ok && x.Text == y.Text
	case *Color:
		y, ok := b.(*Color)
		return ok && strings.EqualFold(x.Text, y.Text)
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case nullValue:
		_, ok := b.(nullValue)
		return ok
	case *List:
		y, ok := b.(*List)
		if !ok {
			return len(x.Items) == 1 && Equal(x.Items[0], b)
		}
		if len(x.Items) != len(y.Items) || (len(x.Items) > 1 && x.Sep != y.Sep) || x.Bracketed != y.Bracketed {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// items returns list elements, any other value is a list of one.
func items(v Value) []Value {
	switch t := v.(type) {
	case *List:
		return t.Items
	case nullValue:
		return nil
	}
	return []Value{v}
}

func separatorOf(v Value) scss.Separator {
	if l, ok := v.(*List); ok {
		return l.Sep
	}
	return scss.SepSpace
}

// formatNumber rounds to precision fractional digits, halves away from zero.
func formatNumber(d decimal.Decimal, precision int) string {
	return d.Round(int32(precision)).String()
}

// ToCSS renders value as it appears in output. Nulls are skipped inside
// lists.
func ToCSS(v Value, precision int) string {
	switch t := v.(type) {
	case *Number:
		if t.Slash != "" {
			return t.Slash
		}
		return formatNumber(t.V, precision) + t.Unit()
	case *String:
		if t.Quote != 0 {
			return string(t.Quote) + t.Text + string(t.Quote)
		}
		return t.Text
	case *Color:
		return t.Text
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case nullValue:
		return ""
	case *List:
		sep := listSeparator(t.Sep)
		parts := make([]string, 0, len(t.Items))
		for _, it := range t.Items {
			if s := ToCSS(it, precision); s != "" {
				parts = append(parts, s)
			}
		}
		s := strings.Join(parts, sep)
		if t.Bracketed {
			return "[" + s + "]"
		}
		return s
	}
	return ""
}

func listSeparator(sep scss.Separator) string {
	switch sep {
	case scss.SepComma:
		return ", "
	case scss.SepSlash:
		return "/"
	}
	return " "
}

// ToText renders value for interpolation and messages: like ToCSS but
// strings lose their quotes.
func ToText(v Value, precision int) string {
	switch t := v.(type) {
	case *String:
		return t.Text
	case *List:
		parts := make([]string, 0, len(t.Items))
		for _, it := range t.Items {
			if s := ToText(it, precision); s != "" {
				parts = append(parts, s)
			}
		}
		s := strings.Join(parts, listSeparator(t.Sep))
		if t.Bracketed {
			return "[" + s + "]"
		}
		return s
	}
	return ToCSS(v, precision)
}

// Inspect renders value the way inspect() does, nulls and empty lists are
// visible.
func Inspect(v Value, precision int) string {
	switch t := v.(type) {
	case nullValue:
		return "null"
	case *List:
		if len(t.Items) == 0 {
			if t.Bracketed {
				return "[]"
			}
			return "()"
		}
		parts := make([]string, 0, len(t.Items))
		for _, it := range t.Items {
			s := Inspect(it, precision)
			if l, ok := it.(*List); ok && len(l.Items) > 1 && !l.Bracketed && l.Sep != scss.SepSlash && t.Sep != scss.SepComma {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		s := strings.Join(parts, listSeparator(t.Sep))
		if t.Bracketed {
			return "[" + s + "]"
		}
		return s
	}
	return ToCSS(v, precision)
}
