package render

import "strings"

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordChar(ch byte) bool {
	return isDigit(ch) || ch == '.' || ch == '_' || (ch|0x20 >= 'a' && ch|0x20 <= 'z')
}

// minifyValue drops spaces after commas and leading zeros of fractions.
// Strings and url() arguments are copied untouched, line breaks become
// spaces.
func minifyValue(v string) string {
	var sb strings.Builder
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		ch := v[i]
		switch {
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(v) && v[j] != ch {
				if v[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j, len(v)-1)
			sb.WriteString(v[i : j+1])
			i = j
		case (ch == 'u' || ch == 'U') && strings.HasPrefix(strings.ToLower(v[i:]), "url(") && (i == 0 || !isWordChar(v[i-1])):
			end := strings.IndexByte(v[i:], ')')
			if end < 0 {
				sb.WriteString(v[i:])
				return sb.String()
			}
			sb.WriteString(v[i : i+end+1])
			i += end
		case ch == ',':
			sb.WriteByte(',')
			for i+1 < len(v) && (v[i+1] == ' ' || v[i+1] == '\n' || v[i+1] == '\t') {
				i++
			}
		case ch == '0' && i+2 < len(v) && v[i+1] == '.' && isDigit(v[i+2]) && (i == 0 || !isWordChar(v[i-1])):
			// 0.5 -> .5
		case ch == '\n' || ch == '\r' || ch == '\t':
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// tightenSelector removes spaces around combinators and after commas.
func tightenSelector(sel string) string {
	var sb strings.Builder
	sb.Grow(len(sel))
	depth := 0
	var quote byte
	for i := 0; i < len(sel); i++ {
		ch := sel[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[' || ch == '(':
			depth++
		case ch == ']' || ch == ')':
			depth--
		case depth == 0 && ch == ' ':
			next := byte(0)
			if i+1 < len(sel) {
				next = sel[i+1]
			}
			prev := byte(0)
			if sb.Len() > 0 {
				prev = sb.String()[sb.Len()-1]
			}
			if strings.IndexByte(">+~,", next) >= 0 || strings.IndexByte(">+~,", prev) >= 0 {
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
