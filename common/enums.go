// Package common keeps enumerations shared by the compiler packages, the
// configuration and the command line so none of them has to import the other.
package common

//go:generate go tool go-enum -f=$GOFILE --marshal --names

// Formatting applied by renderer to the resolved stylesheet.
// ENUM(nested, expanded, compact, compressed)
type OutputStyle int

// Minified reports whether the style strips all non-significant whitespace.
func (s OutputStyle) Minified() bool {
	return s == OutputStyleCompressed
}

// What renderer emits in addition to the stylesheet itself.
// ENUM(none, default, map)
type SourceComments int

// WantMap reports whether a source map has to be built.
func (c SourceComments) WantMap() bool {
	return c == SourceCommentsMap
}

// WantLineComments reports whether "line N, file" comments precede each rule.
func (c SourceComments) WantLineComments() bool {
	return c == SourceCommentsDefault
}
