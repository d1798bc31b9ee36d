// Package blackboard provides a thread-safe key-value store for agent data,
// suitable as (part of) a behavior tree host context, and as the
// environment of expression conditions and scripted leaves.
package blackboard

import (
	"maps"
	"slices"
	"sync"

	"github.com/dop251/goja"
)

// Blackboard is a thread-safe key-value store.
//
// The zero value is ready to use; the internal map is lazily initialized on
// the first write.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns a blackboard populated with a copy of values, which may be nil.
func New(values map[string]any) *Blackboard {
	return &Blackboard{data: maps.Clone(values)}
}

func (b *Blackboard) init() {
	if b.data == nil {
		b.data = make(map[string]any)
	}
}

// Get returns the value for key, or nil if not present.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Lookup returns the value for key, and whether it was present.
func (b *Blackboard) Lookup(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Set stores value under key.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = value
}

// Update atomically replaces the value of key with the result of fn, which
// receives the current value (nil if not present). It returns the new value.
// fn must not call methods of b.
func (b *Blackboard) Update(key string, fn func(old any) any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	v := fn(b.data[key])
	b.data[key] = v
	return v
}

// Has returns true if key is present.
func (b *Blackboard) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

// Delete removes key.
func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Keys returns every key, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(b.data))
}

// Clear removes all entries.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.data)
}

// Len returns the number of keys.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a shallow copy of the data, or nil if empty. Mutable
// values (slices, maps, pointers) are shared with the blackboard.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return nil
	}
	return maps.Clone(b.data)
}

// Env returns Snapshot as an expression environment. Missing keys evaluate
// to nil.
func (b *Blackboard) Env() any {
	if s := b.Snapshot(); s != nil {
		return s
	}
	return map[string]any{}
}

// Float64 returns the value of key as a float64, converting from any integer
// type. The second result is false if key is missing or not numeric.
func (b *Blackboard) Float64(key string) (float64, bool) {
	switch v := b.Get(key).(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int returns the value of key as an int, converting from other integer
// types and from integral floats (as produced by JavaScript).
func (b *Blackboard) Int(key string) (int, bool) {
	switch v := b.Get(key).(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Bool returns the value of key as a bool.
func (b *Blackboard) Bool(key string) (bool, bool) {
	v, ok := b.Get(key).(bool)
	return v, ok
}

// String returns the value of key as a string.
func (b *Blackboard) String(key string) (string, bool) {
	v, ok := b.Get(key).(string)
	return v, ok
}

// ExposeToJS creates a JavaScript object with methods bound to this
// blackboard:
//
//	blackboard.get("key")
//	blackboard.set("key", value)
//	blackboard.has("key")
//	blackboard.delete("key")
//	blackboard.keys()
//	blackboard.clear()
//	blackboard.len()
func (b *Blackboard) ExposeToJS(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	// cannot fail for plain identifiers
	_ = obj.Set("get", b.Get)
	_ = obj.Set("set", b.Set)
	_ = obj.Set("has", b.Has)
	_ = obj.Set("delete", b.Delete)
	_ = obj.Set("keys", b.Keys)
	_ = obj.Set("clear", b.Clear)
	_ = obj.Set("len", b.Len)
	return obj
}
