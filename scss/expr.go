package scss

import (
	"strings"

	"github.com/shopspring/decimal"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"sassgo/diag"
)

// Plain CSS functions whose arguments are not SCSS expressions.
var rawFunctions = map[string]bool{
	"calc":       true,
	"var":        true,
	"env":        true,
	"attr":       true,
	"url":        true,
	"element":    true,
	"expression": true,
	"clamp":      true,
	"progid":     true,
}

func isRawFunction(name string) bool {
	name = strings.ToLower(name)
	if rawFunctions[name] {
		return true
	}
	// vendor prefixed calc
	return strings.HasPrefix(name, "-") && strings.HasSuffix(name, "-calc")
}

type token struct {
	typ   css.TokenType
	data  []byte
	off   int  // absolute offset in source
	space bool // preceded by white space or comment
}

type exprParser struct {
	s     *state
	toks  []token
	i     int
	stop  int // absolute offset just past the text
	stops map[string]bool
}

// exprs lexes text starting at absolute offset base.
func (s *state) exprs(text []byte, base int) *exprParser {
	buf := make([]byte, len(text), len(text)+1)
	copy(buf, text)

	e := &exprParser{s: s, stop: base + len(text)}
	l := css.NewLexer(parse.NewInputBytes(buf))
	off, space := base, false
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		switch tt {
		case css.WhitespaceToken, css.CommentToken:
			space = true
		default:
			e.toks = append(e.toks, token{typ: tt, data: data, off: off, space: space})
			space = false
		}
		off += len(data)
	}
	return e
}

// sub creates parser over already lexed tokens.
func (e *exprParser) sub(toks []token, end int) *exprParser {
	return &exprParser{s: e.s, toks: toks, stop: end}
}

func (e *exprParser) atEnd() bool {
	return e.i >= len(e.toks)
}

func (e *exprParser) cur() token {
	if e.atEnd() {
		return token{typ: css.ErrorToken, off: e.stop}
	}
	return e.toks[e.i]
}

func (e *exprParser) peekTok(n int) token {
	if e.i+n >= len(e.toks) {
		return token{typ: css.ErrorToken, off: e.stop}
	}
	return e.toks[e.i+n]
}

func (e *exprParser) next() {
	e.i++
}

func (e *exprParser) loc(t token) diag.Location {
	return e.s.loc(t.off)
}

func (e *exprParser) errorf(format string, args ...any) *diag.Error {
	return e.s.errorf(e.cur().off, format, args...)
}

func (t token) isDelim(c byte) bool {
	return t.typ == css.DelimToken && len(t.data) == 1 && t.data[0] == c
}

func (e *exprParser) isDelim(c byte) bool {
	return e.cur().isDelim(c)
}

func (e *exprParser) isIdent(name string) bool {
	t := e.cur()
	return t.typ == css.IdentToken && string(t.data) == name
}

func (e *exprParser) isComma() bool {
	return e.cur().typ == css.CommaToken
}

// glued reports whether token at offset n follows previous one without
// white space.
func (e *exprParser) glued(n int) bool {
	t := e.peekTok(n)
	return t.typ != css.ErrorToken && !t.space
}

func (e *exprParser) isRest() bool {
	return e.isDelim('.') && e.peekTok(1).isDelim('.') && e.peekTok(2).isDelim('.')
}

// flags removes trailing "!name" pairs, returning lowercased names.
func (e *exprParser) flags() []string {
	var res []string
	for n := len(e.toks); n >= 2; n = len(e.toks) {
		bang, name := e.toks[n-2], e.toks[n-1]
		if !bang.isDelim('!') || name.typ != css.IdentToken || name.space {
			break
		}
		res = append([]string{strings.ToLower(string(name.data))}, res...)
		e.toks = e.toks[:n-2]
	}
	return res
}

func (e *exprParser) end() error {
	if !e.atEnd() {
		return e.errorf("unexpected %q", e.cur().data)
	}
	return nil
}

// value parses complete expression consuming every token.
func (e *exprParser) value() (Expr, error) {
	if e.atEnd() {
		return nil, e.errorf("expected expression")
	}
	x, err := e.commaList()
	if err != nil {
		return nil, err
	}
	if err := e.end(); err != nil {
		return nil, err
	}
	return x, nil
}

func (e *exprParser) keyword(name string) error {
	if !e.isIdent(name) {
		return e.errorf("expected %q", name)
	}
	e.next()
	return nil
}

func (e *exprParser) varName() (string, error) {
	if !e.isDelim('$') || e.peekTok(1).typ != css.IdentToken || !e.glued(1) {
		return "", e.errorf("expected variable name")
	}
	name := string(e.peekTok(1).data)
	e.i += 2
	return name, nil
}

// callee reads mixin or function name and tells whether argument list follows.
func (e *exprParser) callee() (string, bool, error) {
	t := e.cur()
	switch t.typ {
	case css.IdentToken:
		e.next()
		return string(t.data), false, nil
	case css.FunctionToken:
		e.next()
		return string(t.data[:len(t.data)-1]), true, nil
	}
	return "", false, e.errorf("expected identifier")
}

func (e *exprParser) isStop() bool {
	t := e.cur()
	return t.typ == css.IdentToken && e.stops[string(t.data)]
}

func (e *exprParser) commaList() (Expr, error) {
	first, err := e.spaceList()
	if err != nil {
		return nil, err
	}
	if !e.isComma() {
		return first, nil
	}
	list := &List{Pos: Pos{Loc: first.Location()}, Sep: SepComma, Items: []Expr{first}}
	for e.isComma() {
		e.next()
		if !e.startsItem() {
			break
		}
		x, err := e.spaceList()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, x)
	}
	return list, nil
}

func (e *exprParser) spaceList() (Expr, error) {
	first, err := e.or()
	if err != nil {
		return nil, err
	}
	if !e.startsItem() {
		return first, nil
	}
	list := &List{Pos: Pos{Loc: first.Location()}, Sep: SepSpace, Items: []Expr{first}}
	for e.startsItem() {
		x, err := e.or()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, x)
	}
	return list, nil
}

func (e *exprParser) startsItem() bool {
	if e.atEnd() || e.isStop() {
		return false
	}
	t := e.cur()
	switch t.typ {
	case css.NumberToken, css.PercentageToken, css.DimensionToken, css.StringToken,
		css.FunctionToken, css.URLToken, css.HashToken, css.LeftParenthesisToken,
		css.LeftBracketToken, css.UnicodeRangeToken, css.CustomPropertyNameToken:
		return true
	case css.IdentToken:
		s := string(t.data)
		return s != "and" && s != "or"
	case css.DelimToken:
		switch t.data[0] {
		case '$', '&', '-', '+':
			return true
		case '#':
			return e.peekTok(1).typ == css.LeftBraceToken
		case '!':
			return e.peekTok(1).typ == css.IdentToken
		}
	}
	return false
}

func (e *exprParser) binary(op string, x, y Expr) *Binary {
	return &Binary{Pos: Pos{Loc: x.Location()}, Op: op, X: x, Y: y}
}

func (e *exprParser) or() (Expr, error) {
	x, err := e.and()
	if err != nil {
		return nil, err
	}
	for e.isIdent("or") {
		e.next()
		y, err := e.and()
		if err != nil {
			return nil, err
		}
		x = e.binary("or", x, y)
	}
	return x, nil
}

func (e *exprParser) and() (Expr, error) {
	x, err := e.equality()
	if err != nil {
		return nil, err
	}
	for e.isIdent("and") {
		e.next()
		y, err := e.equality()
		if err != nil {
			return nil, err
		}
		x = e.binary("and", x, y)
	}
	return x, nil
}

func (e *exprParser) equality() (Expr, error) {
	x, err := e.relational()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case e.isDelim('=') && e.peekTok(1).isDelim('=') && e.glued(1):
			op = "=="
		case e.isDelim('!') && e.peekTok(1).isDelim('=') && e.glued(1):
			op = "!="
		default:
			return x, nil
		}
		e.i += 2
		y, err := e.relational()
		if err != nil {
			return nil, err
		}
		x = e.binary(op, x, y)
	}
}

func (e *exprParser) relational() (Expr, error) {
	x, err := e.additive()
	if err != nil {
		return nil, err
	}
	for e.isDelim('<') || e.isDelim('>') {
		op := string(e.cur().data)
		e.next()
		if e.isDelim('=') && !e.cur().space {
			op += "="
			e.next()
		}
		y, err := e.additive()
		if err != nil {
			return nil, err
		}
		x = e.binary(op, x, y)
	}
	return x, nil
}

// signedNumber reports number token carrying its own sign.
func signedNumber(t token) bool {
	switch t.typ {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		return len(t.data) > 1 && (t.data[0] == '-' || t.data[0] == '+')
	}
	return false
}

func (e *exprParser) additive() (Expr, error) {
	x, err := e.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := e.cur()
		var op string
		switch {
		case t.isDelim('+') || t.isDelim('-'):
			// "a -b" starts next list item
			if t.space && e.glued(1) {
				return x, nil
			}
			op = string(t.data)
			e.next()
		case signedNumber(t) && !t.space:
			// "1-2" is lexed as "1" and "-2"
			op = string(t.data[:1])
			e.toks[e.i] = token{typ: t.typ, data: t.data[1:], off: t.off + 1}
		default:
			return x, nil
		}
		y, err := e.multiplicative()
		if err != nil {
			return nil, err
		}
		x = e.binary(op, x, y)
	}
}

func isSlashOperand(x Expr) bool {
	switch v := x.(type) {
	case *Number:
		return true
	case *Binary:
		return v.Slash
	}
	return false
}

func (e *exprParser) multiplicative() (Expr, error) {
	x, err := e.unary()
	if err != nil {
		return nil, err
	}
	for e.isDelim('*') || e.isDelim('/') || e.isDelim('%') {
		op := string(e.cur().data)
		e.next()
		y, err := e.unary()
		if err != nil {
			return nil, err
		}
		b := e.binary(op, x, y)
		if op == "/" {
			b.Slash = isSlashOperand(x) && isSlashOperand(y)
		}
		x = b
	}
	return x, nil
}

func (e *exprParser) unary() (Expr, error) {
	t := e.cur()
	switch {
	case t.isDelim('-') || t.isDelim('+'):
		e.next()
		x, err := e.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: Pos{Loc: e.loc(t)}, Op: string(t.data), X: x}, nil
	case t.typ == css.IdentToken && string(t.data) == "not" && e.peekTok(1).typ != css.ErrorToken:
		e.next()
		x, err := e.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: Pos{Loc: e.loc(t)}, Op: "not", X: x}, nil
	}
	return e.primary()
}

func (e *exprParser) primary() (Expr, error) {
	if e.atEnd() {
		return nil, e.errorf("expected expression")
	}
	t := e.cur()
	pos := Pos{Loc: e.loc(t)}

	switch t.typ {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		e.next()
		return e.number(t)
	case css.StringToken:
		e.next()
		return e.str(t)
	case css.BadStringToken:
		return nil, e.errorf("unterminated string")
	case css.HashToken:
		e.next()
		if isHexColor(t.data[1:]) {
			return &Color{Pos: pos, Text: string(t.data)}, nil
		}
		return &String{Pos: pos, Value: &Interp{Pos: pos, Parts: []InterpPart{{Text: string(t.data)}}}}, nil
	case css.URLToken:
		e.next()
		body := t.data[len("url(") : len(t.data)-1]
		in, err := e.s.interp(body, t.off+len("url("), false)
		if err != nil {
			return nil, err
		}
		return &RawCall{Pos: pos, Name: string(t.data[:3]), Body: in}, nil
	case css.FunctionToken:
		return e.call()
	case css.LeftParenthesisToken:
		return e.paren()
	case css.LeftBracketToken:
		return e.bracket()
	case css.IdentToken, css.CustomPropertyNameToken:
		return e.identLike()
	case css.UnicodeRangeToken:
		e.next()
		return &Ident{Pos: pos, Name: string(t.data)}, nil
	case css.DelimToken:
		switch t.data[0] {
		case '$':
			name, err := e.varName()
			if err != nil {
				return nil, err
			}
			return &Var{Pos: pos, Name: name}, nil
		case '&':
			e.next()
			return &Parent{Pos: pos}, nil
		case '#':
			if e.peekTok(1).typ == css.LeftBraceToken {
				return e.identLike()
			}
		case '!':
			if n := e.peekTok(1); n.typ == css.IdentToken && e.glued(1) {
				e.i += 2
				return &Ident{Pos: pos, Name: "!" + string(n.data)}, nil
			}
		}
	}
	return nil, e.errorf("unexpected %q", t.data)
}

func isHexColor(hex []byte) bool {
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, c := range hex {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// SplitNumber separates numeric part and unit of number token text.
func SplitNumber(text string) (string, string) {
	i := 0
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		i++
	}
	for i < len(text) && ('0' <= text[i] && text[i] <= '9' || text[i] == '.') {
		i++
	}
	if i < len(text) && (text[i] == 'e' || text[i] == 'E') {
		j := i + 1
		if j < len(text) && (text[j] == '+' || text[j] == '-') {
			j++
		}
		if j < len(text) && '0' <= text[j] && text[j] <= '9' {
			for j < len(text) && '0' <= text[j] && text[j] <= '9' {
				j++
			}
			i = j
		}
	}
	return text[:i], text[i:]
}

// ParseDecimal parses CSS number text like ".5" or "+1e3".
func ParseDecimal(num string) (decimal.Decimal, error) {
	num = strings.TrimPrefix(num, "+")
	switch {
	case strings.HasPrefix(num, "."):
		num = "0" + num
	case strings.HasPrefix(num, "-."):
		num = "-0" + num[1:]
	}
	return decimal.NewFromString(num)
}

func (e *exprParser) number(t token) (Expr, error) {
	num, unit := SplitNumber(string(t.data))
	d, err := ParseDecimal(num)
	if err != nil {
		return nil, e.s.errorf(t.off, "invalid number %q", t.data)
	}
	return &Number{Pos: Pos{Loc: e.loc(t)}, Value: d, Unit: unit}, nil
}

func (e *exprParser) str(t token) (Expr, error) {
	in, err := e.s.interp(t.data[1:len(t.data)-1], t.off+1, false)
	if err != nil {
		return nil, err
	}
	return &String{Pos: Pos{Loc: e.loc(t)}, Quote: t.data[0], Value: in}, nil
}

// identLike joins identifier and interpolations written without white
// space between them, like "col-#{$i}" or "#{$w}px".
func (e *exprParser) identLike() (Expr, error) {
	start := e.cur()
	res := &Interp{Pos: Pos{Loc: e.loc(start)}}
	interpolated := false

	for n := 0; !e.atEnd(); n++ {
		t := e.cur()
		if n > 0 && t.space {
			break
		}
		switch {
		case t.typ == css.IdentToken || t.typ == css.CustomPropertyNameToken:
			res.Parts = append(res.Parts, InterpPart{Text: string(t.data)})
			e.next()
			continue
		case t.isDelim('#') && e.peekTok(1).typ == css.LeftBraceToken:
			x, err := e.interpolation()
			if err != nil {
				return nil, err
			}
			res.Parts = append(res.Parts, InterpPart{Expr: x})
			interpolated = true
			continue
		case interpolated && (t.typ == css.NumberToken || t.typ == css.DimensionToken ||
			t.typ == css.PercentageToken || t.isDelim('-')):
			res.Parts = append(res.Parts, InterpPart{Text: string(t.data)})
			e.next()
			continue
		}
		break
	}

	if !interpolated {
		return res.ident(), nil
	}
	return &String{Pos: res.Pos, Value: res}, nil
}

func (in *Interp) ident() *Ident {
	text, _ := in.Literal()
	return &Ident{Pos: in.Pos, Name: text}
}

// interpolation parses "#{...}" at current token.
func (e *exprParser) interpolation() (Expr, error) {
	open := e.peekTok(1)
	depth := 0
	for j := e.i + 1; j < len(e.toks); j++ {
		switch e.toks[j].typ {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				inner := e.sub(e.toks[e.i+2:j], e.toks[j].off)
				e.i = j + 1
				if inner.atEnd() {
					return nil, e.s.errorf(open.off+1, "expected expression")
				}
				return inner.value()
			}
		}
	}
	return nil, e.s.errorf(open.off, "unterminated interpolation")
}

// closing returns index of token closing the group opened at i.
func (e *exprParser) closing(i int) int {
	depth := 0
	for j := i; j < len(e.toks); j++ {
		switch e.toks[j].typ {
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (e *exprParser) call() (Expr, error) {
	t := e.cur()
	pos := Pos{Loc: e.loc(t)}
	name := string(t.data[:len(t.data)-1])

	if isRawFunction(name) {
		j := e.closing(e.i)
		if j < 0 {
			return nil, e.errorf("expected \")\"")
		}
		from := t.off + len(t.data)
		body := e.s.src[from:e.toks[j].off]
		e.i = j + 1
		in, err := e.s.interp(body, from, false)
		if err != nil {
			return nil, err
		}
		return &RawCall{Pos: pos, Name: name, Body: in}, nil
	}

	e.next()
	args, err := e.args()
	if err != nil {
		return nil, err
	}
	return &Call{Pos: pos, Name: name, Args: args}, nil
}

// args parses argument list after opening parenthesis, including the
// closing one.
func (e *exprParser) args() ([]*Arg, error) {
	var args []*Arg
	for {
		if e.cur().typ == css.RightParenthesisToken {
			e.next()
			return args, nil
		}
		if e.atEnd() {
			return nil, e.errorf("expected \")\"")
		}

		arg := &Arg{}
		if e.isDelim('$') && e.peekTok(1).typ == css.IdentToken && e.peekTok(2).typ == css.ColonToken {
			arg.Name = string(e.peekTok(1).data)
			e.i += 3
		}
		x, err := e.spaceList()
		if err != nil {
			return nil, err
		}
		arg.Value = x
		if e.isRest() {
			arg.Rest = true
			e.i += 3
		}
		args = append(args, arg)

		switch e.cur().typ {
		case css.CommaToken:
			e.next()
		case css.RightParenthesisToken:
		default:
			return nil, e.errorf("expected \",\" or \")\"")
		}
	}
}

// params parses parameter list after opening parenthesis.
func (e *exprParser) params() ([]*Param, error) {
	var params []*Param
	for {
		if e.cur().typ == css.RightParenthesisToken {
			e.next()
			return params, nil
		}
		name, err := e.varName()
		if err != nil {
			return nil, err
		}
		p := &Param{Name: name}
		if e.cur().typ == css.ColonToken {
			e.next()
			if p.Default, err = e.spaceList(); err != nil {
				return nil, err
			}
		}
		if e.isRest() {
			p.Rest = true
			e.i += 3
		}
		params = append(params, p)

		switch e.cur().typ {
		case css.CommaToken:
			e.next()
		case css.RightParenthesisToken:
		default:
			return nil, e.errorf("expected \",\" or \")\"")
		}
	}
}

func (e *exprParser) paren() (Expr, error) {
	t := e.cur()
	pos := Pos{Loc: e.loc(t)}
	e.next()
	if e.cur().typ == css.RightParenthesisToken {
		e.next()
		return &List{Pos: pos, Sep: SepSpace}, nil
	}
	x, err := e.commaList()
	if err != nil {
		return nil, err
	}
	if e.cur().typ != css.RightParenthesisToken {
		return nil, e.errorf("expected \")\"")
	}
	e.next()
	return &Paren{Pos: pos, X: x}, nil
}

func (e *exprParser) bracket() (Expr, error) {
	t := e.cur()
	pos := Pos{Loc: e.loc(t)}
	e.next()
	if e.cur().typ == css.RightBracketToken {
		e.next()
		return &List{Pos: pos, Sep: SepSpace, Bracketed: true}, nil
	}
	x, err := e.commaList()
	if err != nil {
		return nil, err
	}
	if e.cur().typ != css.RightBracketToken {
		return nil, e.errorf("expected \"]\"")
	}
	e.next()
	if l, ok := x.(*List); ok {
		l.Bracketed = true
		return l, nil
	}
	return &List{Pos: pos, Sep: SepSpace, Bracketed: true, Items: []Expr{x}}, nil
}
