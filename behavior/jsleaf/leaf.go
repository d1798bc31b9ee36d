package jsleaf

import (
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-tickbt/behavior"
)

// Converter maps a host context to the value passed to script functions.
type Converter[C any] func(vm *goja.Runtime, host C) goja.Value

// Exposer may be implemented by host contexts to control their JavaScript
// representation, e.g. *blackboard.Blackboard.
type Exposer interface {
	ExposeToJS(vm *goja.Runtime) goja.Value
}

// DefaultConverter uses Exposer if implemented by host, otherwise
// vm.ToValue.
func DefaultConverter[C any](vm *goja.Runtime, host C) goja.Value {
	if e, ok := any(host).(Exposer); ok {
		return e.ExposeToJS(vm)
	}
	return vm.ToValue(host)
}

func converter[C any](conv Converter[C]) Converter[C] {
	if conv == nil {
		return DefaultConverter[C]
	}
	return conv
}

// Leaf is a behavior.Task implemented by a global JavaScript function, called
// as fn(host, slot) once per tick. The function returns one of the bt status
// strings, or a boolean (true for success). Anything else, and any thrown
// error, is Failure.
//
// The slot argument exposes the scratch slot of the node:
//
//	slot.ticks    // ticks of the current activation, starting at 1
//	slot.get()    // value stored during this activation, or undefined
//	slot.set(v)   // store a value until the activation ends
type Leaf[C any] struct {
	rt    *Runtime
	name  string
	tick  goja.Callable
	abort goja.Callable
	conv  Converter[C]
}

var (
	_ behavior.Task[any]    = (*Leaf[any])(nil)
	_ behavior.Aborter[any] = (*Leaf[any])(nil)
)

// NewLeaf resolves the global function name, returning a Leaf. A nil conv
// selects DefaultConverter.
func NewLeaf[C any](rt *Runtime, name string, conv Converter[C]) (*Leaf[C], error) {
	fn, err := rt.function(name)
	if err != nil {
		return nil, err
	}
	return &Leaf[C]{rt: rt, name: name, tick: fn, conv: converter(conv)}, nil
}

// WithAbort resolves the global function name, called as fn(host, slot) when
// the leaf is abandoned while Running.
func (l *Leaf[C]) WithAbort(name string) (*Leaf[C], error) {
	fn, err := l.rt.function(name)
	if err != nil {
		return nil, err
	}
	l.abort = fn
	return l, nil
}

// Spec returns a leaf node for l, named after the function.
func (l *Leaf[C]) Spec() *behavior.Spec[C] {
	return behavior.Leaf[C](l).Named(l.name)
}

// Tick implements behavior.Task.
func (l *Leaf[C]) Tick(host C, slot *behavior.Slot) behavior.Status {
	status, err := call(l.rt, l.tick, l.args(host, slot), toStatus)
	if err != nil {
		l.rt.logger.Error("jsleaf: leaf failed",
			"function", l.name,
			"error", err)
		return behavior.Failure
	}
	return status
}

// Abort implements behavior.Aborter.
func (l *Leaf[C]) Abort(host C, slot *behavior.Slot) {
	if l.abort == nil {
		return
	}
	_, err := call(l.rt, l.abort, l.args(host, slot), func(*goja.Runtime, goja.Value) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		l.rt.logger.Error("jsleaf: abort failed",
			"function", l.name,
			"error", err)
	}
}

func (l *Leaf[C]) args(host C, slot *behavior.Slot) func(vm *goja.Runtime) []goja.Value {
	return func(vm *goja.Runtime) []goja.Value {
		return []goja.Value{l.conv(vm, host), exposeSlot(vm, slot)}
	}
}

func exposeSlot(vm *goja.Runtime, slot *behavior.Slot) goja.Value {
	obj := vm.NewObject()
	_ = obj.Set("ticks", slot.Ticks())
	_ = obj.Set("get", func() goja.Value {
		switch v := slot.Data().(type) {
		case nil:
			return goja.Undefined()
		case goja.Value:
			return v
		default:
			return vm.ToValue(v)
		}
	})
	_ = obj.Set("set", func(v goja.Value) { slot.SetData(v) })
	return obj
}

func toStatus(_ *goja.Runtime, v goja.Value) (behavior.Status, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("jsleaf: leaf returned %v", v)
	}
	switch exported := v.Export().(type) {
	case bool:
		if exported {
			return behavior.Success, nil
		}
		return behavior.Failure, nil
	case string:
		switch strings.ToLower(exported) {
		case StatusRunning:
			return behavior.Running, nil
		case StatusSuccess:
			return behavior.Success, nil
		case StatusFailure:
			return behavior.Failure, nil
		}
	}
	return 0, fmt.Errorf("jsleaf: unknown leaf status %q", v.String())
}

// Condition is a behavior.Condition implemented by a global JavaScript
// function, called as fn(host), whose result is converted to a boolean using
// JavaScript truthiness. Thrown errors are false.
type Condition[C any] struct {
	rt   *Runtime
	name string
	fn   goja.Callable
	conv Converter[C]
}

var _ behavior.Condition[any] = (*Condition[any])(nil)

// NewCondition resolves the global function name.
func NewCondition[C any](rt *Runtime, name string, conv Converter[C]) (*Condition[C], error) {
	fn, err := rt.function(name)
	if err != nil {
		return nil, err
	}
	return &Condition[C]{rt: rt, name: name, fn: fn, conv: converter(conv)}, nil
}

// Check implements behavior.Condition.
func (c *Condition[C]) Check(host C) bool {
	ok, err := call(c.rt, c.fn,
		func(vm *goja.Runtime) []goja.Value { return []goja.Value{c.conv(vm, host)} },
		func(_ *goja.Runtime, v goja.Value) (bool, error) { return v.ToBoolean(), nil },
	)
	if err != nil {
		c.rt.logger.Error("jsleaf: condition failed",
			"function", c.name,
			"error", err)
		return false
	}
	return ok
}

// Scorer is a behavior.Scorer implemented by a global JavaScript function,
// called as fn(host), whose result is converted to a number. Thrown errors
// score negative infinity.
type Scorer[C any] struct {
	rt   *Runtime
	name string
	fn   goja.Callable
	conv Converter[C]
}

var _ behavior.Scorer[any] = (*Scorer[any])(nil)

// NewScorer resolves the global function name.
func NewScorer[C any](rt *Runtime, name string, conv Converter[C]) (*Scorer[C], error) {
	fn, err := rt.function(name)
	if err != nil {
		return nil, err
	}
	return &Scorer[C]{rt: rt, name: name, fn: fn, conv: converter(conv)}, nil
}

// Score implements behavior.Scorer.
func (s *Scorer[C]) Score(host C) float64 {
	v, err := call(s.rt, s.fn,
		func(vm *goja.Runtime) []goja.Value { return []goja.Value{s.conv(vm, host)} },
		func(_ *goja.Runtime, v goja.Value) (float64, error) { return v.ToFloat(), nil },
	)
	if err != nil {
		s.rt.logger.Error("jsleaf: scorer failed",
			"function", s.name,
			"error", err)
		return math.Inf(-1)
	}
	return v
}
