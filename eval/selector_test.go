package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sassgo/diag"
)

func TestSplitSelectors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a ,  b>c, d  ~ e", []string{"a", "b > c", "d ~ e"}},
		{"a\n  b,\n\tc", []string{"a b", "c"}},
		{"li:nth-child(2n+1), x", []string{"li:nth-child(2n+1)", "x"}},
		{`[data-x="a,  b"] > y`, []string{`[data-x="a,  b"] > y`}},
		{"> a", []string{"> a"}},
		{"a+b", []string{"a + b"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitSelectors(tt.in)); diff != "" {
				t.Errorf("splitSelectors() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveSelectors(t *testing.T) {
	tests := []struct {
		name     string
		parents  []string
		children []string
		want     []string
	}{
		{"root", nil, []string{"a", "b"}, []string{"a", "b"}},
		{"descendant", []string{"a", "b"}, []string{"c", "d"}, []string{"a c", "a d", "b c", "b d"}},
		{"parent reference", []string{".btn"}, []string{"&:hover", "&-primary", ".dark &"}, []string{".btn:hover", ".btn-primary", ".dark .btn"}},
		{"combinator", []string{"ul"}, []string{"> li"}, []string{"ul > li"}},
		{"ampersand in attribute", []string{"a"}, []string{`[x="&"]`}, []string{`a [x="&"]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSelectors(tt.parents, tt.children, diag.Location{})
			if err != nil {
				t.Fatalf("resolveSelectors() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("resolveSelectors() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := resolveSelectors(nil, []string{"&.x"}, diag.Location{}); err == nil {
		t.Error("expected error for parent reference at root")
	}
}
