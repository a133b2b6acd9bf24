package eval

import (
	"strings"

	"sassgo/scss"
)

// callable is mixin or function closed over the scope it was declared in.
type callable struct {
	name   string
	params []*scss.Param
	body   []scss.Stmt
	scope  *scope
}

// scope holds variables, mixins and functions visible in a block. Flow
// scopes belong to @if, @each, @for and @while bodies: assignment inside
// them updates existing binding of the enclosing scope.
type scope struct {
	parent    *scope
	flow      bool
	vars      map[string]Value
	mixins    map[string]*callable
	functions map[string]*callable
}

func newScope(parent *scope, flow bool) *scope {
	return &scope{parent: parent, flow: flow}
}

// normalize makes "$a_b" and "$a-b" the same name.
func normalize(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

func (s *scope) root() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// owner returns nearest scope which is not a flow scope.
func (s *scope) owner() *scope {
	for s.flow && s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *scope) lookup(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set binds name in this very scope.
func (s *scope) set(name string, v Value) {
	if s.vars == nil {
		s.vars = make(map[string]Value)
	}
	s.vars[name] = v
}

// assign updates binding found through flow scopes and their owner,
// otherwise defines it locally.
func (s *scope) assign(name string, v Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
		if !sc.flow {
			break
		}
	}
	s.set(name, v)
}

func (s *scope) defineMixin(c *callable) {
	o := s.owner()
	if o.mixins == nil {
		o.mixins = make(map[string]*callable)
	}
	o.mixins[c.name] = c
}

func (s *scope) defineFunction(c *callable) {
	o := s.owner()
	if o.functions == nil {
		o.functions = make(map[string]*callable)
	}
	o.functions[c.name] = c
}

func (s *scope) mixin(name string) *callable {
	for sc := s; sc != nil; sc = sc.parent {
		if c, ok := sc.mixins[name]; ok {
			return c
		}
	}
	return nil
}

func (s *scope) function(name string) *callable {
	for sc := s; sc != nil; sc = sc.parent {
		if c, ok := sc.functions[name]; ok {
			return c
		}
	}
	return nil
}
