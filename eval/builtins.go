package eval

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"sassgo/diag"
	"sassgo/scss"
)

// builtin is native function. Parameter names end with "?" when optional
// (null by default) and with "..." for rest parameter.
type builtin struct {
	params []string
	fn     func(ev *Evaluator, c *ctx, args []Value, loc diag.Location) (Value, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"percentage":             {[]string{"number"}, fnPercentage},
		"round":                  {[]string{"number"}, numberFn(func(d decimal.Decimal) decimal.Decimal { return d.Round(0) })},
		"ceil":                   {[]string{"number"}, numberFn(decimal.Decimal.Ceil)},
		"floor":                  {[]string{"number"}, numberFn(decimal.Decimal.Floor)},
		"abs":                    {[]string{"number"}, numberFn(decimal.Decimal.Abs)},
		"min":                    {[]string{"numbers..."}, extremum("min", -1)},
		"max":                    {[]string{"numbers..."}, extremum("max", 1)},
		"unit":                   {[]string{"number"}, fnUnit},
		"unitless":               {[]string{"number"}, fnUnitless},
		"comparable":             {[]string{"number1", "number2"}, fnComparable},
		"type-of":                {[]string{"value"}, fnTypeOf},
		"length":                 {[]string{"list"}, fnLength},
		"nth":                    {[]string{"list", "n"}, fnNth},
		"join":                   {[]string{"list1", "list2", "separator?", "bracketed?"}, fnJoin},
		"append":                 {[]string{"list", "val", "separator?"}, fnAppend},
		"index":                  {[]string{"list", "value"}, fnIndex},
		"list-separator":         {[]string{"list"}, fnListSeparator},
		"quote":                  {[]string{"string"}, fnQuote},
		"unquote":                {[]string{"string"}, fnUnquote},
		"str-length":             {[]string{"string"}, fnStrLength},
		"str-index":              {[]string{"string", "substring"}, fnStrIndex},
		"str-slice":              {[]string{"string", "start-at", "end-at?"}, fnStrSlice},
		"to-upper-case":          {[]string{"string"}, caseFn(strings.ToUpper)},
		"to-lower-case":          {[]string{"string"}, caseFn(strings.ToLower)},
		"inspect":                {[]string{"value"}, fnInspect},
		"image-url":              {[]string{"path"}, fnImageURL},
		"variable-exists":        {[]string{"name"}, fnVariableExists},
		"global-variable-exists": {[]string{"name"}, fnGlobalVariableExists},
		"mixin-exists":           {[]string{"name"}, fnMixinExists},
		"function-exists":        {[]string{"name"}, fnFunctionExists},
	}
}

// bind maps call arguments to parameters in declaration order.
func (b builtin) bind(name string, a *arguments, loc diag.Location) ([]Value, error) {
	res := make([]Value, len(b.params))
	used := 0
	for i, p := range b.params {
		if rest, ok := strings.CutSuffix(p, "..."); ok {
			l := &List{Sep: a.sep}
			if i < len(a.pos) {
				l.Items = a.pos[i:]
			}
			if v, ok := a.kw[rest]; ok && len(l.Items) == 0 {
				l.Items = items(v)
				used++
			}
			res[i] = l
			if len(a.kw) > used {
				return nil, diag.New(diag.KindEvaluation, loc, "No argument named $%s for %s().", a.names[0], name)
			}
			return res, nil
		}
		opt := strings.HasSuffix(p, "?")
		p = strings.TrimSuffix(p, "?")
		v, byName := a.kw[p]
		switch {
		case i < len(a.pos):
			res[i] = a.pos[i]
		case byName:
			res[i] = v
			used++
		case opt:
			res[i] = Null
		default:
			return nil, diag.New(diag.KindEvaluation, loc, "Missing argument $%s for %s().", p, name)
		}
	}
	if len(a.pos) > len(b.params) {
		return nil, diag.New(diag.KindEvaluation, loc, "Only %d arguments allowed for %s(), but %d were passed.", len(b.params), name, len(a.pos))
	}
	if len(a.kw) > used {
		for _, n := range a.names {
			known := false
			for _, p := range b.params {
				if strings.TrimSuffix(p, "?") == n {
					known = true
				}
			}
			if !known {
				return nil, diag.New(diag.KindEvaluation, loc, "No argument named $%s for %s().", n, name)
			}
		}
	}
	return res, nil
}

func (ev *Evaluator) number(v Value, what string, loc diag.Location) (*Number, error) {
	n, ok := v.(*Number)
	if !ok {
		return nil, diag.New(diag.KindEvaluation, loc, "$%s: %s is not a number.", what, Inspect(v, ev.precision))
	}
	return n.plain(), nil
}

func (ev *Evaluator) str(v Value, what string, loc diag.Location) (*String, error) {
	s, ok := v.(*String)
	if !ok {
		return nil, diag.New(diag.KindEvaluation, loc, "$%s: %s is not a string.", what, Inspect(v, ev.precision))
	}
	return s, nil
}

func fnPercentage(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	n, err := ev.number(args[0], "number", loc)
	if err != nil {
		return nil, err
	}
	if !n.Unitless() {
		return nil, diag.New(diag.KindEvaluation, loc, "$number: Expected %s to have no units.", Inspect(n, ev.precision))
	}
	return NewNumber(n.V.Mul(decimal.NewFromInt(100)), "%"), nil
}

func numberFn(op func(decimal.Decimal) decimal.Decimal) func(*Evaluator, *ctx, []Value, diag.Location) (Value, error) {
	return func(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
		n, err := ev.number(args[0], "number", loc)
		if err != nil {
			return nil, err
		}
		n.V = op(n.V)
		return n, nil
	}
}

// extremum implements min() and max(). Arguments which are not numbers make
// it CSS function.
func extremum(name string, sign int) func(*Evaluator, *ctx, []Value, diag.Location) (Value, error) {
	return func(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
		list := items(args[0])
		if len(list) == 0 {
			return nil, diag.New(diag.KindEvaluation, loc, "At least one argument must be passed to %s().", name)
		}
		var best *Number
		for _, v := range list {
			n, ok := v.(*Number)
			if !ok {
				parts := make([]string, 0, len(list))
				for _, it := range list {
					parts = append(parts, ToCSS(it, ev.precision))
				}
				return Unquoted(name + "(" + strings.Join(parts, ", ") + ")"), nil
			}
			if best == nil {
				best = n
				continue
			}
			nc, ok := n.convert(best)
			if !ok {
				return nil, diag.New(diag.KindEvaluation, loc, "Incompatible units: '%s' and '%s'.", n.Unit(), best.Unit())
			}
			if cmpValues(nc.V, best.V) == sign {
				best = n
			}
		}
		return best.plain(), nil
	}
}

func fnUnit(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	n, err := ev.number(args[0], "number", loc)
	if err != nil {
		return nil, err
	}
	return Quoted(n.Unit()), nil
}

func fnUnitless(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	n, err := ev.number(args[0], "number", loc)
	if err != nil {
		return nil, err
	}
	return Bool(n.Unitless()), nil
}

func fnComparable(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	a, err := ev.number(args[0], "number1", loc)
	if err != nil {
		return nil, err
	}
	b, err := ev.number(args[1], "number2", loc)
	if err != nil {
		return nil, err
	}
	return Bool(a.Comparable(b)), nil
}

func fnTypeOf(_ *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	return Unquoted(args[0].TypeName()), nil
}

func fnLength(_ *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	return Int(int64(len(items(args[0])))), nil
}

func fnNth(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	list := items(args[0])
	n, err := ev.number(args[1], "n", loc)
	if err != nil {
		return nil, err
	}
	if !n.V.IsInteger() || n.V.IsZero() {
		return nil, diag.New(diag.KindEvaluation, loc, "$n: %s is not a valid index.", Inspect(n, ev.precision))
	}
	i := n.V.IntPart()
	if i < 0 {
		i += int64(len(list)) + 1
	}
	if i < 1 || i > int64(len(list)) {
		return nil, diag.New(diag.KindEvaluation, loc, "$n: Invalid index %s for a list with %d elements.", Inspect(n, ev.precision), len(list))
	}
	return list[i-1], nil
}

// decidedSeparator returns separator of a list with more than one element.
func decidedSeparator(v Value) (scss.Separator, bool) {
	if l, ok := v.(*List); ok && len(l.Items) > 1 {
		return l.Sep, true
	}
	return scss.SepSpace, false
}

func separatorArg(ev *Evaluator, v Value, loc diag.Location) (scss.Separator, bool, error) {
	if v == Null {
		return 0, false, nil
	}
	s, err := ev.str(v, "separator", loc)
	if err != nil {
		return 0, false, err
	}
	switch s.Text {
	case "auto":
		return 0, false, nil
	case "space":
		return scss.SepSpace, true, nil
	case "comma":
		return scss.SepComma, true, nil
	case "slash":
		return scss.SepSlash, true, nil
	}
	return 0, false, diag.New(diag.KindEvaluation, loc, "$separator: Must be \"space\", \"comma\", \"slash\", or \"auto\".")
}

func fnJoin(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	sep, ok, err := separatorArg(ev, args[2], loc)
	if err != nil {
		return nil, err
	}
	if !ok {
		if sep, ok = decidedSeparator(args[0]); !ok {
			sep, _ = decidedSeparator(args[1])
		}
	}
	bracketed := false
	if l, isList := args[0].(*List); isList {
		bracketed = l.Bracketed
	}
	if args[3] != Null {
		if s, isStr := args[3].(*String); !isStr || s.Text != "auto" {
			bracketed = Truthy(args[3])
		}
	}
	res := &List{Sep: sep, Bracketed: bracketed}
	res.Items = append(append(res.Items, items(args[0])...), items(args[1])...)
	return res, nil
}

func fnAppend(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	sep, ok, err := separatorArg(ev, args[2], loc)
	if err != nil {
		return nil, err
	}
	if !ok {
		sep, _ = decidedSeparator(args[0])
	}
	res := &List{Sep: sep}
	if l, isList := args[0].(*List); isList {
		res.Bracketed = l.Bracketed
	}
	res.Items = append(append(res.Items, items(args[0])...), args[1])
	return res, nil
}

func fnIndex(_ *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	for i, it := range items(args[0]) {
		if Equal(it, args[1]) {
			return Int(int64(i + 1)), nil
		}
	}
	return Null, nil
}

func fnListSeparator(_ *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	return Unquoted(separatorOf(args[0]).String()), nil
}

func fnQuote(ev *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	return Quoted(ToText(args[0], ev.precision)), nil
}

func fnUnquote(_ *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	if s, ok := args[0].(*String); ok {
		return Unquoted(s.Text), nil
	}
	return args[0], nil
}

func fnStrLength(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	s, err := ev.str(args[0], "string", loc)
	if err != nil {
		return nil, err
	}
	return Int(int64(utf8.RuneCountInString(s.Text))), nil
}

func fnStrIndex(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	s, err := ev.str(args[0], "string", loc)
	if err != nil {
		return nil, err
	}
	sub, err := ev.str(args[1], "substring", loc)
	if err != nil {
		return nil, err
	}
	i := strings.Index(s.Text, sub.Text)
	if i < 0 {
		return Null, nil
	}
	return Int(int64(utf8.RuneCountInString(s.Text[:i]) + 1)), nil
}

func fnStrSlice(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	s, err := ev.str(args[0], "string", loc)
	if err != nil {
		return nil, err
	}
	runes := []rune(s.Text)
	n := int64(len(runes))
	index := func(v Value, what string, def int64) (int64, error) {
		if v == Null {
			return def, nil
		}
		num, err := ev.number(v, what, loc)
		if err != nil {
			return 0, err
		}
		i := num.V.IntPart()
		if i < 0 {
			i += n + 1
		}
		return i, nil
	}
	start, err := index(args[1], "start-at", 1)
	if err != nil {
		return nil, err
	}
	end, err := index(args[2], "end-at", n)
	if err != nil {
		return nil, err
	}
	start = max(start, 1)
	end = min(end, n)
	if end < start {
		return &String{Quote: s.Quote}, nil
	}
	return &String{Text: string(runes[start-1 : end]), Quote: s.Quote}, nil
}

func caseFn(conv func(string) string) func(*Evaluator, *ctx, []Value, diag.Location) (Value, error) {
	return func(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
		s, err := ev.str(args[0], "string", loc)
		if err != nil {
			return nil, err
		}
		return &String{Text: conv(s.Text), Quote: s.Quote}, nil
	}
}

func fnInspect(ev *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	return Unquoted(Inspect(args[0], ev.precision)), nil
}

// fnImageURL prefixes path with configured image path.
func fnImageURL(ev *Evaluator, _ *ctx, args []Value, _ diag.Location) (Value, error) {
	p := ToText(args[0], ev.precision)
	if ev.imagePath != "" {
		p = strings.TrimSuffix(ev.imagePath, "/") + "/" + strings.TrimPrefix(p, "/")
	}
	return Unquoted(`url("` + p + `")`), nil
}

func nameArg(ev *Evaluator, v Value, loc diag.Location) (string, error) {
	s, err := ev.str(v, "name", loc)
	if err != nil {
		return "", err
	}
	return normalize(strings.TrimPrefix(s.Text, "$")), nil
}

func fnVariableExists(ev *Evaluator, c *ctx, args []Value, loc diag.Location) (Value, error) {
	name, err := nameArg(ev, args[0], loc)
	if err != nil {
		return nil, err
	}
	_, ok := c.scope.lookup(name)
	return Bool(ok), nil
}

func fnGlobalVariableExists(ev *Evaluator, _ *ctx, args []Value, loc diag.Location) (Value, error) {
	name, err := nameArg(ev, args[0], loc)
	if err != nil {
		return nil, err
	}
	_, ok := ev.global.lookup(name)
	return Bool(ok), nil
}

func fnMixinExists(ev *Evaluator, c *ctx, args []Value, loc diag.Location) (Value, error) {
	name, err := nameArg(ev, args[0], loc)
	if err != nil {
		return nil, err
	}
	return Bool(c.scope.mixin(name) != nil), nil
}

func fnFunctionExists(ev *Evaluator, c *ctx, args []Value, loc diag.Location) (Value, error) {
	name, err := nameArg(ev, args[0], loc)
	if err != nil {
		return nil, err
	}
	_, native := builtins[name]
	return Bool(native || name == "if" || c.scope.function(name) != nil), nil
}
