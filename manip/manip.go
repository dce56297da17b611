// Package manip implements the manipulatable field-metadata surface: a
// runtime introspection registry mapping a state's named fields (and
// indexed array elements) to typed bitvector accessors, used by the
// property checker to resolve atomic propositions and, outside the core,
// by a GUI to let a user inspect or edit field values.
//
// Registration is explicit rather than reflective: every system's
// field set is fixed at construction time and known to its author.
package manip

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/onderjan/machine-check-sub004/bv"
)

// ErrFieldNotFound is returned when a property references a field absent
// from the registry.
var ErrFieldNotFound = fmt.Errorf("manip: field not found")

// Resolver reads a named field's three-valued value out of a State.
type Resolver[State any] func(state State) bv.TV

// IndexedResolver reads one element of a named array field out of a State.
type IndexedResolver[State any] func(state State, index int) bv.TV

// FieldKey identifies a field reference: a bare name, or a name with an
// array index (Index >= 0).
type FieldKey struct {
	Name  string
	Index int // -1 for a non-indexed reference
}

// resolved is a key-stamped resolver value, cached by FieldKey so that
// repeated atom evaluations (the common case: the same field reference
// appears in the property and is evaluated once per reachable state)
// don't repeat the registry's two-map lookup each time.
type resolved[State any] struct {
	plain   Resolver[State]
	indexed IndexedResolver[State]
}

// Registry maps field names to resolvers for one State type.
type Registry[State any] struct {
	plain   map[string]Resolver[State]
	indexed map[string]IndexedResolver[State]
	cache   *lru.Cache[FieldKey, resolved[State]]
}

// defaultCacheSize bounds the resolver cache; property ASTs in practice
// reference at most a few dozen distinct fields, so this comfortably
// avoids eviction churn while still bounding memory for pathological
// generated properties.
const defaultCacheSize = 256

// NewRegistry returns an empty Registry for State.
func NewRegistry[State any]() *Registry[State] {
	cache, err := lru.New[FieldKey, resolved[State]](defaultCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// defaultCacheSize never is.
		panic(err)
	}
	return &Registry[State]{
		plain:   make(map[string]Resolver[State]),
		indexed: make(map[string]IndexedResolver[State]),
		cache:   cache,
	}
}

// Register adds a plain (non-array) field accessor under name.
func (r *Registry[State]) Register(name string, resolver Resolver[State]) {
	r.plain[name] = resolver
}

// RegisterIndexed adds an array-element accessor under name.
func (r *Registry[State]) RegisterIndexed(name string, resolver IndexedResolver[State]) {
	r.indexed[name] = resolver
}

// Resolve looks up the accessor for key and returns the three-valued
// value of that field in state. Returns ErrFieldNotFound (wrapped with
// the field name) if no such field was registered.
func (r *Registry[State]) Resolve(key FieldKey, state State) (bv.TV, error) {
	if cached, ok := r.cache.Get(key); ok {
		return cached.apply(key, state)
	}
	if key.Index < 0 {
		if fn, ok := r.plain[key.Name]; ok {
			r.cache.Add(key, resolved[State]{plain: fn})
			return fn(state), nil
		}
	} else if fn, ok := r.indexed[key.Name]; ok {
		r.cache.Add(key, resolved[State]{indexed: fn})
		return fn(state, key.Index), nil
	}
	return bv.TV{}, fmt.Errorf("%w: %q", ErrFieldNotFound, key.Name)
}

func (r resolved[State]) apply(key FieldKey, state State) (bv.TV, error) {
	if key.Index < 0 {
		if r.plain == nil {
			return bv.TV{}, fmt.Errorf("%w: %q", ErrFieldNotFound, key.Name)
		}
		return r.plain(state), nil
	}
	if r.indexed == nil {
		return bv.TV{}, fmt.Errorf("%w: %q", ErrFieldNotFound, key.Name)
	}
	return r.indexed(state, key.Index), nil
}

// Has reports whether name is a registered field (indexed or not).
func (r *Registry[State]) Has(name string) bool {
	if _, ok := r.plain[name]; ok {
		return true
	}
	_, ok := r.indexed[name]
	return ok
}
