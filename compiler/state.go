package compiler

//go:generate go tool go-enum -f=$GOFILE --names

// State of compilation context. It only moves forward, succeeded and failed
// are final.
// ENUM(created, parsing, resolving, rendering, succeeded, failed)
type State int

// Final reports whether context is done.
func (s State) Final() bool {
	return s == StateSucceeded || s == StateFailed
}
