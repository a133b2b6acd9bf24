// Package css holds the resolved stylesheet: plain CSS structure with every
// selector qualified and every value computed, ready to be rendered.
package css

import (
	"strings"

	"sassgo/diag"
)

// Item is one top level entry of a stylesheet or an at-rule block: *Rule,
// *Block, *Statement or *Comment.
type Item interface {
	Location() diag.Location
	item()
}

// Declaration is property with computed value. When Comment is set the
// entry is a comment kept inside rule body and other fields are empty.
type Declaration struct {
	Property  string
	Value     string
	Important bool
	Comment   string
	Loc       diag.Location
}

func (d *Declaration) IsComment() bool {
	return d.Comment != ""
}

// Rule is a style rule. Depth is how deep it was nested in the source and
// Parent is the rule it was nested in, if any.
type Rule struct {
	Selectors []string
	Decls     []*Declaration
	Depth     int
	Parent    *Rule
	Loc       diag.Location
}

// Level counts enclosing rules which render something. Nested output style
// indents by it.
func (r *Rule) Level() int {
	n := 0
	for p := r.Parent; p != nil; p = p.Parent {
		if !p.Empty() {
			n++
		}
	}
	return n
}

// Empty is true for rules rendering nothing.
func (r *Rule) Empty() bool {
	for _, d := range r.Decls {
		if !d.IsComment() {
			return false
		}
	}
	return true
}

// Block is at-rule with body, like @media or @font-face.
type Block struct {
	Name    string // without "@"
	Prelude string
	Decls   []*Declaration
	Items   []Item
	Loc     diag.Location
}

// Bubbles is true for at-rules which are moved out of style rules.
func (b *Block) Bubbles() bool {
	return b.Name == "media" || b.Name == "supports"
}

// Empty is true when block has nothing to render.
func (b *Block) Empty() bool {
	for _, d := range b.Decls {
		if !d.IsComment() {
			return false
		}
	}
	for _, it := range b.Items {
		if !IsEmpty(it) {
			return false
		}
	}
	return true
}

// Statement is at-rule without body, like @charset or plain CSS @import.
type Statement struct {
	Name    string
	Prelude string
	Loc     diag.Location
}

// Comment is top level block comment, Text includes delimiters.
type Comment struct {
	Text string
	Loc  diag.Location
}

func (r *Rule) Location() diag.Location      { return r.Loc }
func (b *Block) Location() diag.Location     { return b.Loc }
func (s *Statement) Location() diag.Location { return s.Loc }
func (c *Comment) Location() diag.Location   { return c.Loc }

func (*Rule) item()      {}
func (*Block) item()     {}
func (*Statement) item() {}
func (*Comment) item()   {}

// IsEmpty reports whether item renders nothing.
func IsEmpty(it Item) bool {
	switch v := it.(type) {
	case *Rule:
		return v.Empty()
	case *Block:
		return v.Empty()
	}
	return false
}

// Stylesheet is the resolver output.
type Stylesheet struct {
	Items []Item
}

// Rules returns every rule of the stylesheet including ones inside blocks,
// in document order.
func (s *Stylesheet) Rules() []*Rule {
	var res []*Rule
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, it := range items {
			switch v := it.(type) {
			case *Rule:
				res = append(res, v)
			case *Block:
				walk(v.Items)
			}
		}
	}
	walk(s.Items)
	return res
}

// String returns condensed text form, one rule per line. Empty rules are
// skipped. It is meant for debugging and tests, not for output.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	writeItems(&sb, s.Items, 0)
	return sb.String()
}

func writeDecls(sb *strings.Builder, decls []*Declaration) {
	for _, d := range decls {
		if d.IsComment() {
			sb.WriteString(" " + d.Comment)
			continue
		}
		sb.WriteString(" " + d.Property + ": " + d.Value)
		if d.Important {
			sb.WriteString(" !important")
		}
		sb.WriteString(";")
	}
}

func writeItems(sb *strings.Builder, items []Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		if IsEmpty(it) {
			continue
		}
		switch v := it.(type) {
		case *Rule:
			sb.WriteString(indent + strings.Join(v.Selectors, ", ") + " {")
			writeDecls(sb, v.Decls)
			sb.WriteString(" }\n")
		case *Block:
			sb.WriteString(indent + "@" + v.Name)
			if v.Prelude != "" {
				sb.WriteString(" " + v.Prelude)
			}
			sb.WriteString(" {")
			writeDecls(sb, v.Decls)
			sb.WriteString("\n")
			writeItems(sb, v.Items, depth+1)
			sb.WriteString(indent + "}\n")
		case *Statement:
			sb.WriteString(indent + "@" + v.Name)
			if v.Prelude != "" {
				sb.WriteString(" " + v.Prelude)
			}
			sb.WriteString(";\n")
		case *Comment:
			sb.WriteString(indent + v.Text + "\n")
		}
	}
}
