package scss

import (
	"bytes"
	"sort"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"go.uber.org/zap"

	"sassgo/diag"
)

// Parser parses SCSS stylesheets into structural tree.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new SCSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("scss-parser")}
}

// Parse parses source text. File is used for locations only.
func (p *Parser) Parse(src []byte, file string) (*Stylesheet, error) {
	p.log.Debug("Parsing SCSS", zap.String("file", file), zap.Int("bytes", len(src)))

	st := newState(src, file)
	body, err := st.block(true)
	if err != nil {
		p.log.Debug("SCSS parse error", zap.Error(err))
		return nil, err
	}
	return &Stylesheet{Pos: Pos{Loc: st.loc(0)}, File: file, Body: body}, nil
}

// Parse is a shortcut for NewParser(nil).Parse.
func Parse(src []byte, file string) (*Stylesheet, error) {
	return NewParser(nil).Parse(src, file)
}

// state is single pass over one source.
type state struct {
	src   []byte
	file  string
	pos   int
	lines []int // offsets of line starts
}

func newState(src []byte, file string) *state {
	lines := []int{0}
	for i, c := range src {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &state{src: src, file: file, lines: lines}
}

func (s *state) loc(off int) diag.Location {
	i := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > off }) - 1
	if i < 0 {
		i = 0
	}
	return diag.Location{File: s.file, Offset: off, Line: i + 1, Column: off - s.lines[i] + 1}
}

func (s *state) errorf(off int, format string, args ...any) *diag.Error {
	if off > len(s.src) {
		off = len(s.src)
	}
	e := diag.New(diag.KindSyntax, s.loc(off), format, args...)
	perr := parse.NewError(bytes.NewReader(s.src), off, "%s", e.Message)
	e.Context = strings.TrimRight(perr.Context, "\n")
	return e
}

func (s *state) eof() bool {
	return s.pos >= len(s.src)
}

func (s *state) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *state) hasPrefix(prefix string) bool {
	return bytes.HasPrefix(s.src[s.pos:], []byte(prefix))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (s *state) skipSpace() {
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

// skipTrivia skips white space and line comments, block comments are kept.
func (s *state) skipTrivia() {
	for {
		s.skipSpace()
		if !s.hasPrefix("//") {
			return
		}
		s.skipLineComment()
	}
}

func (s *state) skipLineComment() {
	if i := bytes.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
		s.pos += i
		return
	}
	s.pos = len(s.src)
}

func (s *state) skipString() error {
	start := s.pos
	q := s.src[s.pos]
	s.pos++
	for !s.eof() {
		switch c := s.src[s.pos]; {
		case c == '\\':
			s.pos += 2
			continue
		case c == q:
			s.pos++
			return nil
		case c == '\n':
			return s.errorf(start, "unterminated string")
		}
		s.pos++
	}
	return s.errorf(start, "unterminated string")
}

func (s *state) skipBlockComment() error {
	start := s.pos
	i := bytes.Index(s.src[s.pos+2:], []byte("*/"))
	if i < 0 {
		return s.errorf(start, "unterminated comment")
	}
	s.pos += i + 4
	return nil
}

// skipInterp moves past "#{...}" handling nested braces and strings.
func (s *state) skipInterp() error {
	start := s.pos
	s.pos += 2
	depth := 1
	for !s.eof() {
		switch c := s.src[s.pos]; c {
		case '"', '\'':
			if err := s.skipString(); err != nil {
				return err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return s.errorf(start, "unterminated interpolation")
}

// scan advances to the first top level byte listed in stops and returns text
// up to it with line comments blanked. Terminator is not consumed, term is 0
// at end of input.
func (s *state) scan(stops string) (text []byte, term byte, err error) {
	start := s.pos
	var blanks [][2]int
	depth := 0
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == '"' || c == '\'':
			if err := s.skipString(); err != nil {
				return nil, 0, err
			}
			continue
		case c == '\\':
			s.pos += 2
			continue
		case c == '/' && s.peek(1) == '*':
			if err := s.skipBlockComment(); err != nil {
				return nil, 0, err
			}
			continue
		case c == '/' && s.peek(1) == '/' && depth == 0:
			from := s.pos
			s.skipLineComment()
			blanks = append(blanks, [2]int{from - start, s.pos - start})
			continue
		case c == '#' && s.peek(1) == '{':
			if err := s.skipInterp(); err != nil {
				return nil, 0, err
			}
			continue
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case strings.IndexByte(stops, c) >= 0 && (depth == 0 || c == '{' || c == '}'):
			if depth > 0 {
				return nil, 0, s.errorf(s.pos, "expected \")\"")
			}
			term = c
		}
		if term != 0 {
			break
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}

	text = s.src[start:s.pos]
	if len(blanks) > 0 {
		text = bytes.Clone(text)
		for _, b := range blanks {
			for i := b[0]; i < b[1]; i++ {
				text[i] = ' '
			}
		}
	}
	return text, term, nil
}

// block parses statements up to closing brace, which is consumed. Top level
// block ends at end of input.
func (s *state) block(top bool) ([]Stmt, error) {
	var body []Stmt
	for {
		s.skipTrivia()
		if s.eof() {
			if top {
				return body, nil
			}
			return nil, s.errorf(s.pos, "expected \"}\"")
		}

		var (
			st  Stmt
			err error
		)
		switch c := s.src[s.pos]; {
		case c == '}':
			if top {
				return nil, s.errorf(s.pos, "unexpected \"}\"")
			}
			s.pos++
			return body, nil
		case c == ';':
			s.pos++
			continue
		case c == '/' && s.peek(1) == '*':
			start := s.pos
			if err := s.skipBlockComment(); err != nil {
				return nil, err
			}
			st = &Comment{Pos: Pos{Loc: s.loc(start)}, Text: string(s.src[start:s.pos])}
		case c == '@':
			st, err = s.atRule()
		case c == '$' && s.isVarDecl():
			st, err = s.varDecl()
		default:
			st, err = s.ruleOrDeclaration()
		}
		if err != nil {
			return nil, err
		}
		if st != nil {
			body = append(body, st)
		}
	}
}

// blockAt expects "{" at current position and parses block after it.
func (s *state) blockAt() ([]Stmt, error) {
	if s.eof() || s.src[s.pos] != '{' {
		return nil, s.errorf(s.pos, "expected \"{\"")
	}
	s.pos++
	return s.block(false)
}

func (s *state) isVarDecl() bool {
	i := s.pos + 1
	for i < len(s.src) && isNameByte(s.src[i]) {
		i++
	}
	if i == s.pos+1 {
		return false
	}
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	return i < len(s.src) && s.src[i] == ':'
}

func (s *state) varDecl() (Stmt, error) {
	start := s.pos
	s.pos++
	nameStart := s.pos
	for !s.eof() && isNameByte(s.src[s.pos]) {
		s.pos++
	}
	name := string(s.src[nameStart:s.pos])
	s.skipSpace()
	s.pos++ // ':'

	valStart := s.pos
	text, term, err := s.scan(";{}")
	if err != nil {
		return nil, err
	}
	if term == '{' {
		return nil, s.errorf(s.pos, "unexpected \"{\"")
	}
	if term == ';' {
		s.pos++
	}

	e := s.exprs(text, valStart)
	decl := &VarDecl{Pos: Pos{Loc: s.loc(start)}, Name: name}
	for _, f := range e.flags() {
		switch f {
		case "default":
			decl.Default = true
		case "global":
			decl.Global = true
		default:
			return nil, s.errorf(start, "invalid flag name %q", "!"+f)
		}
	}
	if decl.Value, err = e.value(); err != nil {
		return nil, err
	}
	return decl, nil
}

// trim strips white space around text returning adjusted base offset.
func trim(text []byte, base int) ([]byte, int) {
	i := 0
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	j := len(text)
	for j > i && isSpace(text[j-1]) {
		j--
	}
	return text[i:j], base + i
}

// walk calls fn for every byte of text which is outside of strings,
// comments and interpolations, passing bracket depth. Returning false stops.
func walk(text []byte, fn func(i, depth int) bool) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"' || c == '\'':
			for i++; i < len(text) && text[i] != c; i++ {
				if text[i] == '\\' {
					i++
				}
			}
			continue
		case c == '\\':
			i++
			continue
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			if j := bytes.Index(text[i+2:], []byte("*/")); j >= 0 {
				i += j + 3
			} else {
				i = len(text)
			}
			continue
		case c == '#' && i+1 < len(text) && text[i+1] == '{':
			i = interpEnd(text, i)
			continue
		case c == '(' || c == '[':
			if !fn(i, depth) {
				return
			}
			depth++
			continue
		case c == ')' || c == ']':
			depth--
		}
		if !fn(i, depth) {
			return
		}
	}
}

// interpEnd returns index of "}" closing interpolation started at i.
func interpEnd(text []byte, i int) int {
	depth := 0
	for ; i < len(text); i++ {
		switch c := text[i]; c {
		case '"', '\'':
			for i++; i < len(text) && text[i] != c; i++ {
				if text[i] == '\\' {
					i++
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(text)
}

func topLevelColon(text []byte) int {
	pos := -1
	walk(text, func(i, depth int) bool {
		if depth == 0 && text[i] == ':' {
			pos = i
			return false
		}
		return true
	})
	return pos
}

// splitTopLevel splits text on top level commas, returning part bounds.
func splitTopLevel(text []byte) [][2]int {
	var parts [][2]int
	from := 0
	walk(text, func(i, depth int) bool {
		if depth == 0 && text[i] == ',' {
			parts = append(parts, [2]int{from, i})
			from = i + 1
		}
		return true
	})
	return append(parts, [2]int{from, len(text)})
}

// propertyPrelude reports whether text before "{" is "name:" followed by
// white space, which makes the block hold nested properties.
func propertyPrelude(text []byte) (int, bool) {
	colon := topLevelColon(text)
	if colon < 0 {
		return -1, false
	}
	if colon+1 < len(text) && !isSpace(text[colon+1]) {
		return -1, false
	}
	name, _ := trim(text[:colon], 0)
	if len(name) == 0 {
		return -1, false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '#' && i+1 < len(name) && name[i+1] == '{' {
			i = interpEnd(name, i)
			continue
		}
		if !isNameByte(c) {
			return -1, false
		}
	}
	return colon, true
}

// stripComments blanks block comments outside of strings.
func stripComments(text []byte) []byte {
	if !bytes.Contains(text, []byte("/*")) {
		return text
	}
	out := bytes.Clone(text)
	for i := 0; i < len(out); i++ {
		switch c := out[i]; {
		case c == '"' || c == '\'':
			for i++; i < len(out) && out[i] != c; i++ {
				if out[i] == '\\' {
					i++
				}
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			end := len(out)
			if j := bytes.Index(out[i+2:], []byte("*/")); j >= 0 {
				end = i + j + 4
			}
			for k := i; k < end; k++ {
				out[k] = ' '
			}
			i = end - 1
		}
	}
	return out
}

func (s *state) ruleOrDeclaration() (Stmt, error) {
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}

	if term == '{' {
		if colon, ok := propertyPrelude(text); ok {
			decl, err := s.declaration(text, start, colon, true)
			if err != nil {
				return nil, err
			}
			if decl.Body, err = s.blockAt(); err != nil {
				return nil, err
			}
			return decl, nil
		}

		sel, base := trim(stripComments(text), start)
		if len(sel) == 0 {
			return nil, s.errorf(start, "expected selector")
		}
		interp, err := s.interp(sel, base, false)
		if err != nil {
			return nil, err
		}
		body, err := s.blockAt()
		if err != nil {
			return nil, err
		}
		return &Rule{Pos: Pos{Loc: s.loc(base)}, Selector: interp, Body: body}, nil
	}

	colon := topLevelColon(text)
	if colon < 0 {
		_, base := trim(text, start)
		return nil, s.errorf(base, "expected \"{\"")
	}
	decl, err := s.declaration(text, start, colon, false)
	if err != nil {
		return nil, err
	}
	if term == ';' {
		s.pos++
	}
	return decl, nil
}

func (s *state) declaration(text []byte, base, colon int, nested bool) (*Declaration, error) {
	name, nameBase := trim(text[:colon], base)
	value, valBase := trim(text[colon+1:], base+colon+1)

	if len(name) == 0 {
		return nil, s.errorf(base+colon, "expected property name")
	}
	ni, err := s.interp(name, nameBase, false)
	if err != nil {
		return nil, err
	}
	decl := &Declaration{Pos: Pos{Loc: s.loc(nameBase)}, Name: ni}

	if bytes.HasPrefix(name, []byte("--")) {
		decl.Custom = true
		if decl.Value, err = s.interp(value, valBase, false); err != nil {
			return nil, err
		}
		return decl, nil
	}

	if len(value) == 0 {
		if nested {
			return decl, nil
		}
		return nil, s.errorf(valBase, "expected expression")
	}

	e := s.exprs(value, valBase)
	for _, f := range e.flags() {
		if f != "important" {
			return nil, s.errorf(valBase, "invalid flag name %q", "!"+f)
		}
		decl.Important = true
	}
	if decl.Value, err = e.value(); err != nil {
		return nil, err
	}
	return decl, nil
}

// interp splits text into literal parts and "#{...}" expressions. With vars
// "$name" references are recognized as well.
func (s *state) interp(text []byte, base int, vars bool) (*Interp, error) {
	res := &Interp{Pos: Pos{Loc: s.loc(base)}}
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			res.Parts = append(res.Parts, InterpPart{Text: string(lit)})
			lit = nil
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text):
			lit = append(lit, c, text[i+1])
			i++
			continue
		case c == '#' && i+1 < len(text) && text[i+1] == '{':
			end := interpEnd(text, i)
			if end >= len(text) {
				return nil, s.errorf(base+i, "unterminated interpolation")
			}
			inner := text[i+2 : end]
			if len(bytes.TrimSpace(inner)) == 0 {
				return nil, s.errorf(base+i+2, "expected expression")
			}
			x, err := s.exprs(inner, base+i+2).value()
			if err != nil {
				return nil, err
			}
			flush()
			res.Parts = append(res.Parts, InterpPart{Expr: x})
			i = end
			continue
		case vars && c == '$' && i+1 < len(text) && isNameByte(text[i+1]):
			j := i + 1
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			flush()
			res.Parts = append(res.Parts, InterpPart{Expr: &Var{Pos: Pos{Loc: s.loc(base + i)}, Name: string(text[i+1 : j])}})
			i = j - 1
			continue
		}
		lit = append(lit, c)
	}
	flush()
	return res, nil
}

func (s *state) atRule() (Stmt, error) {
	start := s.pos
	s.pos++
	for !s.eof() && isNameByte(s.src[s.pos]) {
		s.pos++
	}
	name := string(s.src[start+1 : s.pos])
	if name == "" {
		return nil, s.errorf(start, "expected at-rule name")
	}
	loc := s.loc(start)

	switch name {
	case "import":
		return s.importRule(loc)
	case "mixin", "function":
		return s.callableDecl(name, loc)
	case "include":
		return s.include(loc)
	case "content":
		if err := s.statementEnd(name); err != nil {
			return nil, err
		}
		return &Content{Pos: Pos{Loc: loc}}, nil
	case "return":
		x, err := s.statementExpr()
		if err != nil {
			return nil, err
		}
		return &Return{Pos: Pos{Loc: loc}, Value: x}, nil
	case "warn", "debug", "error":
		x, err := s.statementExpr()
		if err != nil {
			return nil, err
		}
		kind := map[string]MessageKind{"warn": MessageWarn, "debug": MessageDebug, "error": MessageError}[name]
		return &Message{Pos: Pos{Loc: loc}, Kind: kind, Value: x}, nil
	case "if":
		return s.ifRule(loc)
	case "else":
		return nil, s.errorf(start, "@else must come after @if")
	case "each":
		return s.eachRule(loc)
	case "for":
		return s.forRule(loc)
	case "while":
		cond, err := s.header()
		if err != nil {
			return nil, err
		}
		body, err := s.blockAt()
		if err != nil {
			return nil, err
		}
		return &While{Pos: Pos{Loc: loc}, Cond: cond, Body: body}, nil
	}

	return s.genericAtRule(name, loc)
}

func (s *state) genericAtRule(name string, loc diag.Location) (Stmt, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}
	text, base := trim(stripComments(text), start)
	prelude, err := s.interp(text, base, name == "media")
	if err != nil {
		return nil, err
	}

	rule := &AtRule{Pos: Pos{Loc: loc}, Name: name, Prelude: prelude}
	switch term {
	case '{':
		rule.HasBlock = true
		if rule.Body, err = s.blockAt(); err != nil {
			return nil, err
		}
	case ';':
		s.pos++
	}
	return rule, nil
}

// statementEnd consumes optional white space and ";" after block-less
// directive.
func (s *state) statementEnd(name string) error {
	s.skipTrivia()
	if s.eof() || s.src[s.pos] == '}' {
		return nil
	}
	if s.src[s.pos] != ';' {
		return s.errorf(s.pos, "expected \";\" after @%s", name)
	}
	s.pos++
	return nil
}

// statementExpr parses expression terminated by ";".
func (s *state) statementExpr() (Expr, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan(";{}")
	if err != nil {
		return nil, err
	}
	if term == '{' {
		return nil, s.errorf(s.pos, "unexpected \"{\"")
	}
	if term == ';' {
		s.pos++
	}
	return s.exprs(text, start).value()
}

// header parses expression terminated by "{", which is left unconsumed.
func (s *state) header() (Expr, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}
	if term != '{' {
		return nil, s.errorf(s.pos, "expected \"{\"")
	}
	return s.exprs(text, start).value()
}

func (s *state) ifRule(loc diag.Location) (Stmt, error) {
	cond, err := s.header()
	if err != nil {
		return nil, err
	}
	body, err := s.blockAt()
	if err != nil {
		return nil, err
	}
	rule := &If{Pos: Pos{Loc: loc}, Cond: cond, Body: body}

	save := s.pos
	s.skipTrivia()
	if !s.hasPrefix("@else") || isNameByte(s.peek(5)) {
		s.pos = save
		return rule, nil
	}
	elseStart := s.pos
	s.pos += len("@else")
	s.skipSpace()
	if s.hasPrefix("if") && !isNameByte(s.peek(2)) {
		s.pos += len("if")
		next, err := s.ifRule(s.loc(elseStart))
		if err != nil {
			return nil, err
		}
		rule.Else = []Stmt{next}
		return rule, nil
	}
	if rule.Else, err = s.blockAt(); err != nil {
		return nil, err
	}
	if rule.Else == nil {
		rule.Else = []Stmt{}
	}
	return rule, nil
}

// headerTokens scans text up to "{" and returns expression parser over it.
func (s *state) headerTokens() (*exprParser, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}
	if term != '{' {
		return nil, s.errorf(s.pos, "expected \"{\"")
	}
	return s.exprs(text, start), nil
}

func (s *state) eachRule(loc diag.Location) (Stmt, error) {
	e, err := s.headerTokens()
	if err != nil {
		return nil, err
	}
	rule := &Each{Pos: Pos{Loc: loc}}
	for {
		name, err := e.varName()
		if err != nil {
			return nil, err
		}
		rule.Vars = append(rule.Vars, name)
		if !e.isComma() {
			break
		}
		e.next()
	}
	if err := e.keyword("in"); err != nil {
		return nil, err
	}
	if rule.List, err = e.value(); err != nil {
		return nil, err
	}
	if rule.Body, err = s.blockAt(); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *state) forRule(loc diag.Location) (Stmt, error) {
	e, err := s.headerTokens()
	if err != nil {
		return nil, err
	}
	rule := &For{Pos: Pos{Loc: loc}}
	if rule.Var, err = e.varName(); err != nil {
		return nil, err
	}
	if err := e.keyword("from"); err != nil {
		return nil, err
	}
	e.stops = map[string]bool{"through": true, "to": true}
	if rule.From, err = e.spaceList(); err != nil {
		return nil, err
	}
	switch {
	case e.isIdent("through"):
		rule.Inclusive = true
	case e.isIdent("to"):
	default:
		return nil, e.errorf("expected \"through\" or \"to\"")
	}
	e.next()
	e.stops = nil
	if rule.To, err = e.value(); err != nil {
		return nil, err
	}
	if rule.Body, err = s.blockAt(); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *state) callableDecl(kind string, loc diag.Location) (Stmt, error) {
	e, err := s.headerTokens()
	if err != nil {
		return nil, err
	}
	name, hasArgs, err := e.callee()
	if err != nil {
		return nil, err
	}
	var params []*Param
	if hasArgs {
		if params, err = e.params(); err != nil {
			return nil, err
		}
	}
	if err := e.end(); err != nil {
		return nil, err
	}
	body, err := s.blockAt()
	if err != nil {
		return nil, err
	}
	if kind == "function" {
		return &FunctionDecl{Pos: Pos{Loc: loc}, Name: name, Params: params, Body: body}, nil
	}
	return &MixinDecl{Pos: Pos{Loc: loc}, Name: name, Params: params, Body: body}, nil
}

func (s *state) include(loc diag.Location) (Stmt, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}
	e := s.exprs(text, start)
	name, hasArgs, err := e.callee()
	if err != nil {
		return nil, err
	}
	inc := &Include{Pos: Pos{Loc: loc}, Name: name}
	if hasArgs {
		if inc.Args, err = e.args(); err != nil {
			return nil, err
		}
	}
	if err := e.end(); err != nil {
		return nil, err
	}

	switch term {
	case '{':
		inc.HasContent = true
		if inc.Content, err = s.blockAt(); err != nil {
			return nil, err
		}
	case ';':
		s.pos++
	}
	return inc, nil
}

func (s *state) importRule(loc diag.Location) (Stmt, error) {
	s.skipSpace()
	start := s.pos
	text, term, err := s.scan("{;}")
	if err != nil {
		return nil, err
	}
	if term == '{' {
		return nil, s.errorf(s.pos, "unexpected \"{\"")
	}
	if term == ';' {
		s.pos++
	}
	text, base := trim(text, start)
	if len(text) == 0 {
		return nil, s.errorf(base, "expected import target")
	}

	imp := &Import{Pos: Pos{Loc: loc}}
	parts := splitTopLevel(text)
	targets := make([]*ImportTarget, 0, len(parts))
	simple := true
	for _, bounds := range parts {
		part, pb := trim(text[bounds[0]:bounds[1]], base+bounds[0])
		t, ok := s.importTarget(part, pb)
		if !ok {
			simple = false
			break
		}
		targets = append(targets, t)
	}
	if simple {
		imp.Targets = targets
		return imp, nil
	}

	// url() or media list, whole directive goes to output
	body, err := s.interp(text, base, false)
	if err != nil {
		return nil, err
	}
	imp.Targets = []*ImportTarget{{Pos: Pos{Loc: s.loc(base)}, Plain: true, Text: body}}
	return imp, nil
}

// importTarget handles single quoted or bare name import.
func (s *state) importTarget(part []byte, base int) (*ImportTarget, bool) {
	if len(part) == 0 {
		return nil, false
	}
	t := &ImportTarget{Pos: Pos{Loc: s.loc(base)}}
	var target string
	switch q := part[0]; {
	case q == '"' || q == '\'':
		if len(part) < 2 || part[len(part)-1] != q || bytes.IndexByte(part[1:len(part)-1], q) >= 0 {
			return nil, false
		}
		target = string(part[1 : len(part)-1])
	case bytes.HasPrefix(bytes.ToLower(part), []byte("url(")):
		return nil, false
	default:
		if bytes.ContainsAny(part, " \t\n\r") {
			return nil, false
		}
		target = string(part)
	}
	if strings.Contains(target, "#{") {
		return nil, false
	}

	if isPlainImport(target) {
		t.Plain = true
		t.Text = &Interp{Pos: t.Pos, Parts: []InterpPart{{Text: string(part)}}}
		return t, true
	}
	t.Path = target
	return t, true
}

func isPlainImport(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasSuffix(lower, ".css") ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}
