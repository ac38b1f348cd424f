package ai

import (
	"fmt"
	"reflect"
	"sync"
)

// Slot is the stable index of a named blackboard variable.
type Slot int

// Registry maps variable names to slots. The first registration of a name
// fixes its slot and value type for the lifetime of the registry; slots are
// never reused.
type Registry struct {
	mu     sync.Mutex
	slots  map[string]Slot
	names  []string
	types  []reflect.Type
	frozen bool
}

// DefaultRegistry is the process-wide name table used by blackboards created
// without an explicit registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty name table.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]Slot)}
}

func (r *Registry) resolve(name string, typ reflect.Type) Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[name]; ok {
		if r.types[s] != typ {
			panic(fmt.Sprintf("ai: blackboard var %q registered as %s, requested as %s", name, r.types[s], typ))
		}
		return s
	}
	if r.frozen {
		panic(fmt.Sprintf("ai: blackboard registry is frozen, cannot register %q", name))
	}
	s := Slot(len(r.names))
	r.slots[name] = s
	r.names = append(r.names, name)
	r.types = append(r.types, typ)
	return s
}

// Lookup returns the slot of an already registered name.
func (r *Registry) Lookup(name string) (Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[name]
	return s, ok
}

// Name returns the name registered for s.
func (r *Registry) Name(s Slot) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(s) < 0 || int(s) >= len(r.names) {
		return ""
	}
	return r.names[s]
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// Freeze closes the table to new names. Resolving a known name keeps working,
// so trees can still be built for new entities after the setup phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Key is a typed handle to a blackboard slot.
type Key[T any] struct {
	slot Slot
	name string
}

// Slot returns the underlying slot index.
func (k Key[T]) Slot() Slot { return k.slot }

// Name returns the registered variable name.
func (k Key[T]) Name() string { return k.name }

// Register resolves name in reg as a variable of type T.
// Panics if name was first registered with a different type.
func Register[T any](reg *Registry, name string) Key[T] {
	if reg == nil {
		reg = DefaultRegistry
	}
	return Key[T]{slot: reg.resolve(name, reflect.TypeFor[T]()), name: name}
}

// Blackboard is the per-entity variable store. The zero value is ready to use
// and resolves names against DefaultRegistry.
//
// Not safe for concurrent use; a blackboard is only touched by its own
// entity's tick and by react calls made on the same goroutine.
type Blackboard struct {
	reg    *Registry
	values []any
}

// NewBlackboard creates a blackboard bound to reg (DefaultRegistry when nil).
func NewBlackboard(reg *Registry) *Blackboard {
	return &Blackboard{reg: reg}
}

// Registry returns the name table the blackboard resolves against.
func (bb *Blackboard) Registry() *Registry {
	if bb.reg == nil {
		return DefaultRegistry
	}
	return bb.reg
}

// RegisterVar resolves name against bb's registry and reserves storage for it.
func RegisterVar[T any](bb *Blackboard, name string) Key[T] {
	k := Register[T](bb.Registry(), name)
	bb.grow(k.slot)
	return k
}

func (bb *Blackboard) grow(s Slot) {
	if int(s) < len(bb.values) {
		return
	}
	n := int(s) + 1
	if n < 2*len(bb.values) {
		n = 2 * len(bb.values)
	}
	values := make([]any, n)
	copy(values, bb.values)
	bb.values = values
}

// Get returns the value stored under k, or the zero value when unset.
func Get[T any](bb *Blackboard, k Key[T]) T {
	v, _ := Lookup(bb, k)
	return v
}

// Lookup returns the value stored under k and whether it was set.
// Panics when the slot holds a value of another type.
func Lookup[T any](bb *Blackboard, k Key[T]) (T, bool) {
	var zero T
	if int(k.slot) >= len(bb.values) || bb.values[k.slot] == nil {
		return zero, false
	}
	v, ok := bb.values[k.slot].(T)
	if !ok {
		panic(fmt.Sprintf("ai: blackboard slot %d (%q) holds %T, read as %T", k.slot, k.name, bb.values[k.slot], zero))
	}
	return v, true
}

// Set stores v under k.
func Set[T any](bb *Blackboard, k Key[T], v T) {
	bb.grow(k.slot)
	bb.values[k.slot] = v
}

// Value returns the raw value stored in s.
func (bb *Blackboard) Value(s Slot) (any, bool) {
	if int(s) < 0 || int(s) >= len(bb.values) || bb.values[s] == nil {
		return nil, false
	}
	return bb.values[s], true
}

// Snapshot returns the set variables keyed by name. Values are copied
// shallowly.
func (bb *Blackboard) Snapshot() map[string]any {
	reg := bb.Registry()
	out := make(map[string]any)
	for i, v := range bb.values {
		if v == nil {
			continue
		}
		out[reg.Name(Slot(i))] = v
	}
	return out
}
