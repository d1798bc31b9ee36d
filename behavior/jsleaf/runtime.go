// Package jsleaf implements behavior tree leaves, conditions and scorers as
// JavaScript functions, executed synchronously by a goja runtime.
//
// A goja.Runtime is not goroutine-safe. Every access happens under the
// Runtime's mutex, so trees sharing a Runtime may be ticked from multiple
// goroutines, at the cost of serializing script execution.
package jsleaf

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Status strings recognised as leaf results, also exposed to scripts as the
// global bt object (bt.running, bt.success, bt.failure).
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// DefaultTimeout is the maximum duration of a single script call.
const DefaultTimeout = 5 * time.Second

// ErrNotFunction is returned when a named global is not callable.
var ErrNotFunction = errors.New("jsleaf: not a function")

const jsHelpers = `
globalThis.bt = Object.freeze({
	running: "running",
	success: "success",
	failure: "failure"
});
`

// Runtime is a mutex-guarded goja runtime.
type Runtime struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures New.
type Option func(*Runtime)

// WithTimeout sets the maximum duration of a single call, after which the
// script is interrupted and the call fails. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runtime) { r.timeout = timeout }
}

// WithLogger sets the logger used to report script errors.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// New returns a Runtime with the bt status constants defined.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		vm:      goja.New(),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if _, err := r.vm.RunString(jsHelpers); err != nil {
		return nil, fmt.Errorf("jsleaf: init: %w", err)
	}
	return r, nil
}

// LoadScript compiles and runs code, typically defining global functions.
func (r *Runtime) LoadScript(name, code string) error {
	prg, err := goja.Compile(name, code, true)
	if err != nil {
		return fmt.Errorf("jsleaf: failed to compile %s: %w", name, err)
	}
	return r.Do(func(vm *goja.Runtime) error {
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("jsleaf: failed to run %s: %w", name, err)
		}
		return nil
	})
}

// SetGlobal sets a global variable.
func (r *Runtime) SetGlobal(name string, value any) error {
	return r.Do(func(vm *goja.Runtime) error { return vm.Set(name, value) })
}

// Do runs fn with exclusive access to the underlying goja runtime, subject to
// the configured timeout. A panic within fn is recovered and returned as an
// error.
func (r *Runtime) Do(fn func(vm *goja.Runtime) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timeout > 0 {
		fired := make(chan struct{})
		timer := time.AfterFunc(r.timeout, func() {
			defer close(fired)
			r.vm.Interrupt(fmt.Sprintf("jsleaf: timed out after %s", r.timeout))
		})
		defer func() {
			// an interrupt still in flight must land before it is cleared
			if !timer.Stop() {
				<-fired
			}
			r.vm.ClearInterrupt()
		}()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("jsleaf: panic: %v", rec)
		}
	}()

	return fn(r.vm)
}

// function resolves a global function by name.
func (r *Runtime) function(name string) (goja.Callable, error) {
	var fn goja.Callable
	err := r.Do(func(vm *goja.Runtime) error {
		val := vm.Get(name)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			return fmt.Errorf("%w: %q not found", ErrNotFunction, name)
		}
		var ok bool
		if fn, ok = goja.AssertFunction(val); !ok {
			return fmt.Errorf("%w: %q", ErrNotFunction, name)
		}
		return nil
	})
	return fn, err
}

// call invokes fn with exclusive access, returning the result as produced by
// extract.
func call[T any](r *Runtime, fn goja.Callable, args func(vm *goja.Runtime) []goja.Value, extract func(vm *goja.Runtime, v goja.Value) (T, error)) (T, error) {
	var result T
	err := r.Do(func(vm *goja.Runtime) error {
		v, err := fn(goja.Undefined(), args(vm)...)
		if err != nil {
			return err
		}
		result, err = extract(vm, v)
		return err
	})
	return result, err
}
