package scss

import (
	"fmt"
	"strings"

	"sassgo/utils/debug"
)

// Dump returns indented text representation of node and its children.
func Dump(n Node) string {
	tw := debug.NewTreeWriter()
	dumpNode(tw, 0, n)
	return tw.String()
}

func dumpBody(tw *debug.TreeWriter, depth int, label string, body []Stmt) {
	if len(body) == 0 {
		return
	}
	tw.Line(depth, "%s:", label)
	for _, st := range body {
		dumpNode(tw, depth+1, st)
	}
}

func dumpParams(tw *debug.TreeWriter, depth int, params []*Param) {
	for _, p := range params {
		tw.Line(depth, "Param $%s%s", p.Name, restSuffix(p.Rest))
		if p.Default != nil {
			tw.Field(depth+1, "default", ExprString(p.Default))
		}
	}
}

func dumpArgs(tw *debug.TreeWriter, depth int, args []*Arg) {
	for _, a := range args {
		if a.Name != "" {
			tw.Line(depth, "Arg $%s: %s%s", a.Name, ExprString(a.Value), restSuffix(a.Rest))
			continue
		}
		tw.Line(depth, "Arg %s%s", ExprString(a.Value), restSuffix(a.Rest))
	}
}

func restSuffix(rest bool) string {
	if rest {
		return "..."
	}
	return ""
}

func dumpNode(tw *debug.TreeWriter, depth int, n Node) {
	switch v := n.(type) {
	case *Stylesheet:
		tw.Node(depth, "Stylesheet", nil)
		tw.Field(depth+1, "file", v.File)
		for _, st := range v.Body {
			dumpNode(tw, depth+1, st)
		}
	case *Rule:
		tw.Node(depth, "Rule", v.Loc)
		tw.Field(depth+1, "selector", ExprString(v.Selector))
		dumpBody(tw, depth+1, "body", v.Body)
	case *Declaration:
		tw.Node(depth, "Declaration", v.Loc)
		tw.Field(depth+1, "name", ExprString(v.Name))
		if v.Value != nil {
			tw.Field(depth+1, "value", ExprString(v.Value))
		}
		tw.Field(depth+1, "important", v.Important)
		tw.Field(depth+1, "custom", v.Custom)
		dumpBody(tw, depth+1, "nested", v.Body)
	case *AtRule:
		tw.Node(depth, "AtRule @"+v.Name, v.Loc)
		tw.Field(depth+1, "prelude", ExprString(v.Prelude))
		dumpBody(tw, depth+1, "body", v.Body)
	case *Import:
		tw.Node(depth, "Import", v.Loc)
		for _, t := range v.Targets {
			if t.Plain {
				tw.Field(depth+1, "plain", ExprString(t.Text))
				continue
			}
			tw.Field(depth+1, "path", t.Path)
		}
	case *VarDecl:
		tw.Node(depth, "VarDecl $"+v.Name, v.Loc)
		tw.Field(depth+1, "value", ExprString(v.Value))
		tw.Field(depth+1, "default", v.Default)
		tw.Field(depth+1, "global", v.Global)
	case *MixinDecl:
		tw.Node(depth, "Mixin "+v.Name, v.Loc)
		dumpParams(tw, depth+1, v.Params)
		dumpBody(tw, depth+1, "body", v.Body)
	case *FunctionDecl:
		tw.Node(depth, "Function "+v.Name, v.Loc)
		dumpParams(tw, depth+1, v.Params)
		dumpBody(tw, depth+1, "body", v.Body)
	case *Include:
		tw.Node(depth, "Include "+v.Name, v.Loc)
		dumpArgs(tw, depth+1, v.Args)
		dumpBody(tw, depth+1, "content", v.Content)
	case *Content:
		tw.Node(depth, "Content", v.Loc)
	case *Return:
		tw.Node(depth, "Return", v.Loc)
		tw.Field(depth+1, "value", ExprString(v.Value))
	case *If:
		tw.Node(depth, "If", v.Loc)
		tw.Field(depth+1, "cond", ExprString(v.Cond))
		dumpBody(tw, depth+1, "then", v.Body)
		dumpBody(tw, depth+1, "else", v.Else)
	case *Each:
		tw.Node(depth, "Each $"+strings.Join(v.Vars, ", $"), v.Loc)
		tw.Field(depth+1, "in", ExprString(v.List))
		dumpBody(tw, depth+1, "body", v.Body)
	case *For:
		tw.Node(depth, "For $"+v.Var, v.Loc)
		tw.Field(depth+1, "from", ExprString(v.From))
		tw.Field(depth+1, "to", ExprString(v.To))
		tw.Field(depth+1, "inclusive", v.Inclusive)
		dumpBody(tw, depth+1, "body", v.Body)
	case *While:
		tw.Node(depth, "While", v.Loc)
		tw.Field(depth+1, "cond", ExprString(v.Cond))
		dumpBody(tw, depth+1, "body", v.Body)
	case *Message:
		tw.Node(depth, "@"+v.Kind.String(), v.Loc)
		tw.Field(depth+1, "value", ExprString(v.Value))
	case *Comment:
		tw.Node(depth, "Comment", v.Loc)
		tw.Field(depth+1, "text", v.Text)
	case Expr:
		tw.Line(depth, "%s", ExprString(v))
	default:
		tw.Line(depth, "%T", n)
	}
}

// ExprString renders expression in a compact parenthesized form.
func ExprString(x Expr) string {
	var sb strings.Builder
	writeExpr(&sb, x)
	return sb.String()
}

func writeExpr(sb *strings.Builder, x Expr) {
	switch v := x.(type) {
	case nil:
	case *Number:
		sb.WriteString(v.Value.String())
		sb.WriteString(v.Unit)
	case *String:
		if v.Quote != 0 {
			sb.WriteByte(v.Quote)
		}
		writeInterp(sb, v.Value)
		if v.Quote != 0 {
			sb.WriteByte(v.Quote)
		}
	case *Ident:
		sb.WriteString(v.Name)
	case *Color:
		sb.WriteString(v.Text)
	case *Var:
		sb.WriteString("$" + v.Name)
	case *Parent:
		sb.WriteString("&")
	case *List:
		if v.Bracketed {
			sb.WriteString("[")
		} else {
			sb.WriteString("(")
		}
		sep := map[Separator]string{SepSpace: " ", SepComma: ", ", SepSlash: " / "}[v.Sep]
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(sep)
			}
			writeExpr(sb, item)
		}
		if v.Bracketed {
			sb.WriteString("]")
		} else {
			sb.WriteString(")")
		}
	case *Binary:
		sb.WriteString("(")
		writeExpr(sb, v.X)
		sb.WriteString(" " + v.Op + " ")
		writeExpr(sb, v.Y)
		sb.WriteString(")")
	case *Unary:
		sb.WriteString(v.Op)
		if v.Op == "not" {
			sb.WriteString(" ")
		}
		writeExpr(sb, v.X)
	case *Call:
		sb.WriteString(v.Name + "(")
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if a.Name != "" {
				sb.WriteString("$" + a.Name + ": ")
			}
			writeExpr(sb, a.Value)
			sb.WriteString(restSuffix(a.Rest))
		}
		sb.WriteString(")")
	case *Paren:
		sb.WriteString("(")
		writeExpr(sb, v.X)
		sb.WriteString(")")
	case *RawCall:
		sb.WriteString(v.Name + "(")
		writeInterp(sb, v.Body)
		sb.WriteString(")")
	case *Interp:
		writeInterp(sb, v)
	default:
		fmt.Fprintf(sb, "%T", x)
	}
}

func writeInterp(sb *strings.Builder, in *Interp) {
	if in == nil {
		return
	}
	for _, p := range in.Parts {
		if p.Expr != nil {
			sb.WriteString("#{")
			writeExpr(sb, p.Expr)
			sb.WriteString("}")
			continue
		}
		sb.WriteString(p.Text)
	}
}
