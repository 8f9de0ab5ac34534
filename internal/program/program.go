package program

import (
	"sort"
)

// Program is a named, immutable set of control parameters keyed by dotted
// names such as "light.red" or "water.flow.on".
type Program struct {
	name   string
	params map[string]string
}

// New builds a Program from an already flattened parameter set.
func New(name string, params map[string]string) *Program {
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return &Program{name: name, params: cp}
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// Parameter returns the value stored for key and whether it exists.
func (p *Program) Parameter(key string) (string, bool) {
	v, ok := p.params[key]
	return v, ok
}

// Keys returns every parameter key, sorted.
func (p *Program) Keys() []string {
	keys := make([]string, 0, len(p.params))
	for k := range p.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parameters returns a copy of the parameter set.
func (p *Program) Parameters() map[string]string {
	cp := make(map[string]string, len(p.params))
	for k, v := range p.params {
		cp[k] = v
	}
	return cp
}
