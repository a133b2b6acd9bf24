// Package scss turns SCSS source text into a structural tree. Statement
// structure is recognized by a hand written scanner, expressions are
// tokenized with the tdewolff CSS lexer.
package scss

import (
	"github.com/shopspring/decimal"

	"sassgo/diag"
)

// Node is implemented by every tree element.
type Node interface {
	Location() diag.Location
}

// Stmt is a node allowed in a block body.
type Stmt interface {
	Node
	stmt()
}

// Expr is a value expression.
type Expr interface {
	Node
	expr()
}

// Pos is embedded by every node and holds where it starts.
type Pos struct {
	Loc diag.Location
}

func (p Pos) Location() diag.Location { return p.Loc }

// Stylesheet is the parse result of one source file.
type Stylesheet struct {
	Pos
	File string
	Body []Stmt
}

// Rule is a style rule: selector with a body.
type Rule struct {
	Pos
	Selector *Interp
	Body     []Stmt
}

// Declaration is "name: value". Body holds nested properties for
// "font: { family: x }" form, Value may be nil then.
type Declaration struct {
	Pos
	Name      *Interp
	Value     Expr
	Important bool
	// Custom is set for "--name" properties, Value is then raw *Interp.
	Custom bool
	Body   []Stmt
}

// AtRule is any at-rule without dedicated node: @media, @supports,
// @font-face, @keyframes, @charset and unknown ones.
type AtRule struct {
	Pos
	Name     string
	Prelude  *Interp
	HasBlock bool
	Body     []Stmt
}

// ImportTarget is one comma separated entry of @import.
type ImportTarget struct {
	Pos
	// Path is unquoted import target for SCSS imports.
	Path string
	// Plain is set for imports left to the browser, Text is then the entry
	// as written.
	Plain bool
	Text  *Interp
}

type Import struct {
	Pos
	Targets []*ImportTarget
}

// VarDecl is "$name: value [!default] [!global]".
type VarDecl struct {
	Pos
	Name    string
	Value   Expr
	Default bool
	Global  bool
}

// Param is a mixin or function parameter.
type Param struct {
	Name    string
	Default Expr
	Rest    bool
}

// Arg is an argument of @include or a function call. Name is set for
// keyword arguments.
type Arg struct {
	Name  string
	Value Expr
	Rest  bool
}

type MixinDecl struct {
	Pos
	Name   string
	Params []*Param
	Body   []Stmt
}

// Include is "@include name(args)" with optional content block.
type Include struct {
	Pos
	Name       string
	Args       []*Arg
	HasContent bool
	Content    []Stmt
}

// Content is "@content" placeholder inside mixin body.
type Content struct {
	Pos
}

type FunctionDecl struct {
	Pos
	Name   string
	Params []*Param
	Body   []Stmt
}

type Return struct {
	Pos
	Value Expr
}

// If holds @if with its @else chain: "@else if" is an Else holding single If.
type If struct {
	Pos
	Cond Expr
	Body []Stmt
	Else []Stmt
}

// Each is "@each $a, $b in list".
type Each struct {
	Pos
	Vars []string
	List Expr
	Body []Stmt
}

// For is "@for $i from a through|to b".
type For struct {
	Pos
	Var       string
	From      Expr
	To        Expr
	Inclusive bool
	Body      []Stmt
}

type While struct {
	Pos
	Cond Expr
	Body []Stmt
}

// MessageKind tells @warn, @debug and @error apart.
type MessageKind int

const (
	MessageWarn MessageKind = iota
	MessageDebug
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageDebug:
		return "debug"
	case MessageError:
		return "error"
	default:
		return "warn"
	}
}

type Message struct {
	Pos
	Kind  MessageKind
	Value Expr
}

// Comment is block comment, Text includes delimiters.
type Comment struct {
	Pos
	Text string
}

func (*Stylesheet) stmt()   {}
func (*Rule) stmt()         {}
func (*Declaration) stmt()  {}
func (*AtRule) stmt()       {}
func (*Import) stmt()       {}
func (*VarDecl) stmt()      {}
func (*MixinDecl) stmt()    {}
func (*Include) stmt()      {}
func (*Content) stmt()      {}
func (*FunctionDecl) stmt() {}
func (*Return) stmt()       {}
func (*If) stmt()           {}
func (*Each) stmt()         {}
func (*For) stmt()          {}
func (*While) stmt()        {}
func (*Message) stmt()      {}
func (*Comment) stmt()      {}

// Number is numeric literal with optional unit ("%" for percentages).
type Number struct {
	Pos
	Value decimal.Decimal
	Unit  string
}

// String is quoted string literal or unquoted text assembled from
// interpolation. Quote is 0 for unquoted.
type String struct {
	Pos
	Quote byte
	Value *Interp
}

// Ident is plain identifier like "bold", "true" or "null".
type Ident struct {
	Pos
	Name string
}

// Color is hex color literal as written.
type Color struct {
	Pos
	Text string
}

type Var struct {
	Pos
	Name string
}

// Parent is "&" used as a value.
type Parent struct {
	Pos
}

// Separator of list elements.
type Separator int

const (
	SepSpace Separator = iota
	SepComma
	SepSlash
)

func (s Separator) String() string {
	switch s {
	case SepComma:
		return "comma"
	case SepSlash:
		return "slash"
	default:
		return "space"
	}
}

type List struct {
	Pos
	Sep       Separator
	Bracketed bool
	Items     []Expr
}

// Binary is arithmetic, comparison or logical operation. Op is operator
// as written: "+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=",
// "and", "or".
type Binary struct {
	Pos
	Op string
	X  Expr
	Y  Expr
	// Slash is set for "/" between two literal numbers outside of
	// arithmetic context, it renders as separator unless forced.
	Slash bool
}

// Unary is "-x", "+x" or "not x".
type Unary struct {
	Pos
	Op string
	X  Expr
}

type Call struct {
	Pos
	Name string
	Args []*Arg
}

// Paren is parenthesized expression, it forces division for slashes.
type Paren struct {
	Pos
	X Expr
}

// RawCall is plain CSS function kept mostly verbatim, only interpolation in
// Body is resolved.
type RawCall struct {
	Pos
	Name string
	Body *Interp
}

// InterpPart is either literal Text or Expr, never both.
type InterpPart struct {
	Text string
	Expr Expr
}

// Interp is text with "#{...}" interpolations. It evaluates to unquoted
// string.
type Interp struct {
	Pos
	Parts []InterpPart
}

// Literal returns text and true when there is no interpolation.
func (i *Interp) Literal() (string, bool) {
	if i == nil {
		return "", true
	}
	var s string
	for _, p := range i.Parts {
		if p.Expr != nil {
			return "", false
		}
		s += p.Text
	}
	return s, true
}

func (*Number) expr()  {}
func (*String) expr()  {}
func (*Ident) expr()   {}
func (*Color) expr()   {}
func (*Var) expr()     {}
func (*Parent) expr()  {}
func (*List) expr()    {}
func (*Binary) expr()  {}
func (*Unary) expr()   {}
func (*Call) expr()    {}
func (*Paren) expr()   {}
func (*RawCall) expr() {}
func (*Interp) expr()  {}
