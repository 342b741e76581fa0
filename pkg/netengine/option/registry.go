package option

import "strings"

// Registry is an insertion-ordered mapping from case-insensitive option
// name to Option.
type Registry struct {
	order []string          // original-case names, insertion order
	byKey map[string]Option // lower-cased name -> option
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Option)}
}

func key(name string) string {
	return strings.ToLower(name)
}

// Register inserts or replaces an Option, preserving insertion order for
// names seen for the first time.
func (r *Registry) Register(o Option) {
	k := key(o.Name)
	if _, exists := r.byKey[k]; !exists {
		r.order = append(r.order, o.Name)
	}
	r.byKey[k] = o
}

// RegisterDeclaration parses line as an option declaration and registers
// it. It reports whether the line was a valid declaration.
func (r *Registry) RegisterDeclaration(line string) bool {
	o, ok := Parse(line)
	if !ok {
		return false
	}
	r.Register(o)
	return true
}

// Lookup returns the option named name (case-insensitive) and whether it
// exists.
func (r *Registry) Lookup(name string) (Option, bool) {
	o, ok := r.byKey[key(name)]
	return o, ok
}

// Update applies value to the named option's Current, in place. It
// reports whether the option exists and whether the update was accepted
// (rejected spin/combo values leave state untouched).
func (r *Registry) Update(name, value string) (found, applied bool) {
	k := key(name)
	o, ok := r.byKey[k]
	if !ok {
		return false, false
	}
	applied = o.SetFromString(value)
	r.byKey[k] = o
	return true, applied
}

// Press activates a button option by name.
func (r *Registry) Press(name string) bool {
	k := key(name)
	o, ok := r.byKey[k]
	if !ok {
		return false
	}
	return o.Press()
}

// Names returns the registered option names in insertion order, lower-cased.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, n := range r.order {
		names[i] = strings.ToLower(n)
	}
	return names
}

// All returns every registered Option in insertion order.
func (r *Registry) All() []Option {
	out := make([]Option, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byKey[key(n)])
	}
	return out
}

// Visible returns the registered options excluding those IsHostManaged
// reports true for.
func (r *Registry) Visible() []Option {
	var out []Option
	for _, o := range r.All() {
		if !IsHostManaged(o.Name) {
			out = append(out, o)
		}
	}
	return out
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	c.order = append([]string(nil), r.order...)
	for k, v := range r.byKey {
		c.byKey[k] = v.Clone()
	}
	return c
}

// Clear removes every registered option.
func (r *Registry) Clear() {
	r.order = nil
	r.byKey = make(map[string]Option)
}

// Len reports the number of registered options.
func (r *Registry) Len() int {
	return len(r.order)
}
