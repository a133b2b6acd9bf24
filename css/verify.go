package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Summary describes rendered CSS as seen by a standard CSS parser.
type Summary struct {
	Rules        int      `json:"rules"`
	Declarations int      `json:"declarations"`
	Comments     int      `json:"comments"`
	AtRules      []string `json:"at_rules,omitempty"`
	Selectors    []string `json:"selectors,omitempty"`
	Imports      []string `json:"imports,omitempty"`
}

// Verifier re-reads generated CSS with tdewolff grammar parser. Debug report
// keeps its summary of every output.
type Verifier struct {
	log *zap.Logger
}

// NewVerifier creates a new CSS verifier.
func NewVerifier(log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{log: log.Named("css-verify")}
}

// Verify parses data and returns its summary. Any grammar error is returned
// with position.
func (v *Verifier) Verify(data []byte, source ...string) (*Summary, error) {
	if len(source) > 0 && source[0] != "" {
		v.log.Debug("Verifying CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	sum := &Summary{}
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	for {
		gt, _, text := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				v.log.Debug("CSS parse error", zap.Error(err))
				return sum, err
			}
			return sum, nil

		case css.CommentGrammar:
			sum.Comments++

		case css.BeginAtRuleGrammar:
			sum.AtRules = append(sum.AtRules, string(text))

		case css.AtRuleGrammar:
			atRule := string(text)
			sum.AtRules = append(sum.AtRules, atRule)
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sum.Imports = append(sum.Imports, url)
				}
			}

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			sum.Rules++
			sum.Selectors = append(sum.Selectors, parseSelectors(text, parser.Values())...)

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			sum.Declarations++
		}
	}
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors extracts selector strings from token data.
func parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
