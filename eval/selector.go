package eval

import (
	"strings"

	"sassgo/diag"
)

// walkSelector calls fn for every byte of s which is outside of brackets,
// parentheses and strings.
func walkSelector(s string, fn func(i int)) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\\':
			i++
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			fn(i)
		}
	}
}

// splitSelectors splits selector list on top level commas and normalizes
// every entry.
func splitSelectors(text string) []string {
	var res []string
	start := 0
	walkSelector(text, func(i int) {
		if text[i] == ',' {
			if s := normalizeSelector(text[start:i]); s != "" {
				res = append(res, s)
			}
			start = i + 1
		}
	})
	if s := normalizeSelector(text[start:]); s != "" {
		res = append(res, s)
	}
	return res
}

// normalizeSelector collapses whitespace and puts single spaces around
// ">", "+" and "~" combinators. Brackets and strings are kept as written.
func normalizeSelector(s string) string {
	s = strings.TrimSpace(s)
	top := make([]bool, len(s))
	walkSelector(s, func(i int) { top[i] = true })

	var sb strings.Builder
	space := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case top[i] && (ch == '>' || ch == '+' || ch == '~'):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(ch)
			sb.WriteByte(' ')
			space = false
			for i+1 < len(s) && isSpace(s[i+1]) {
				i++
			}
		case top[i] && isSpace(ch):
			space = true
		default:
			if space && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteByte(ch)
		}
	}
	return strings.TrimSpace(sb.String())
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

// hasParentRef reports whether selector references parent with "&".
func hasParentRef(sel string) bool {
	found := false
	walkSelector(sel, func(i int) {
		if sel[i] == '&' {
			found = true
		}
	})
	return found
}

// replaceParent substitutes every top level "&" with parent.
func replaceParent(sel, parent string) string {
	var sb strings.Builder
	last := 0
	walkSelector(sel, func(i int) {
		if sel[i] == '&' {
			sb.WriteString(sel[last:i])
			sb.WriteString(parent)
			last = i + 1
		}
	})
	sb.WriteString(sel[last:])
	return sb.String()
}

// resolveSelectors combines nested selector list with its parents as a cross
// product.
func resolveSelectors(parents, children []string, loc diag.Location) ([]string, error) {
	if len(parents) == 0 {
		for _, ch := range children {
			if hasParentRef(ch) {
				return nil, diag.New(diag.KindEvaluation, loc, "Top-level selectors may not contain the parent selector \"&\".")
			}
		}
		return children, nil
	}
	res := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, ch := range children {
			if hasParentRef(ch) {
				res = append(res, replaceParent(ch, p))
				continue
			}
			res = append(res, p+" "+ch)
		}
	}
	return res, nil
}
