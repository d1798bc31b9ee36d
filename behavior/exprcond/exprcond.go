// Package exprcond implements behavior conditions and scorers as
// expr-lang expressions, evaluated natively against an environment derived
// from the host context.
//
// Expressions are compiled once, when the condition or scorer is created, so
// syntax errors surface alongside other tree construction errors. Evaluation
// errors are logged and treated as a false condition, or a score of negative
// infinity, and may be inspected using LastError.
package exprcond

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/go-tickbt/behavior"
)

// ErrEmptyExpression is returned when constructing from an empty expression.
var ErrEmptyExpression = errors.New("exprcond: empty expression")

// Env maps a host context to the environment an expression is evaluated
// against, typically a map[string]any or a struct.
type Env[C any] func(host C) any

type resultKind uint8

const (
	kindBool resultKind = iota + 1
	kindFloat
)

// Option configures NewCondition and NewScorer.
type Option func(*options)

type options struct {
	cache  *Cache
	logger *slog.Logger
}

// WithCache selects the program cache. Defaults to a shared package level
// cache, see SetCacheSize.
func WithCache(cache *Cache) Option {
	return func(o *options) { o.cache = cache }
}

// WithLogger sets the logger used to report evaluation errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// evaluator is the state shared by Condition and Scorer.
type evaluator[C any] struct {
	expression string
	program    *vm.Program
	env        Env[C]
	logger     *slog.Logger

	mu      sync.RWMutex
	lastErr error
}

func newEvaluator[C any](kind resultKind, expression string, env Env[C], opts []Option) (*evaluator[C], error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	o := options{cache: programs}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = programs
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if env == nil {
		env = func(C) any { return nil }
	}

	key := cacheKey{kind: kind, expression: expression}
	program, ok := o.cache.get(key)
	if !ok {
		compileOpts := []expr.Option{expr.AllowUndefinedVariables()}
		switch kind {
		case kindBool:
			compileOpts = append(compileOpts, expr.AsBool())
		case kindFloat:
			compileOpts = append(compileOpts, expr.AsFloat64())
		}
		var err error
		program, err = expr.Compile(expression, compileOpts...)
		if err != nil {
			return nil, fmt.Errorf("exprcond: compile %q: %w", expression, err)
		}
		o.cache.put(key, program)
	}

	return &evaluator[C]{
		expression: expression,
		program:    program,
		env:        env,
		logger:     o.logger,
	}, nil
}

func (e *evaluator[C]) run(host C) (any, error) {
	result, err := expr.Run(e.program, e.env(host))
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	return result, err
}

func (e *evaluator[C]) fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// LastError returns the error from the most recent evaluation, or nil if it
// succeeded.
func (e *evaluator[C]) LastError() error {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// String returns the expression source.
func (e *evaluator[C]) String() string { return e.expression }

// Condition is a behavior.Condition evaluating a boolean expression.
type Condition[C any] struct {
	*evaluator[C]
}

var _ behavior.Condition[any] = (*Condition[any])(nil)

// NewCondition compiles expression, which must evaluate to a bool.
// Variables not present in the environment evaluate to nil.
func NewCondition[C any](expression string, env Env[C], opts ...Option) (*Condition[C], error) {
	e, err := newEvaluator(kindBool, expression, env, opts)
	if err != nil {
		return nil, err
	}
	return &Condition[C]{e}, nil
}

// MustCondition is like NewCondition but panics on error.
func MustCondition[C any](expression string, env Env[C], opts ...Option) *Condition[C] {
	c, err := NewCondition(expression, env, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Check implements behavior.Condition.
func (c *Condition[C]) Check(host C) bool {
	result, err := c.run(host)
	if err != nil {
		c.logger.Error("exprcond: condition evaluation failed",
			"expression", c.expression,
			"error", err)
		return false
	}
	b, ok := result.(bool)
	if !ok {
		err = fmt.Errorf("exprcond: condition returned %T", result)
		c.fail(err)
		c.logger.Warn("exprcond: non-boolean condition result",
			"expression", c.expression,
			"resultType", fmt.Sprintf("%T", result))
		return false
	}
	return b
}

// Scorer is a behavior.Scorer evaluating a numeric expression.
type Scorer[C any] struct {
	*evaluator[C]
}

var _ behavior.Scorer[any] = (*Scorer[any])(nil)

// NewScorer compiles expression, which must evaluate to a number.
func NewScorer[C any](expression string, env Env[C], opts ...Option) (*Scorer[C], error) {
	e, err := newEvaluator(kindFloat, expression, env, opts)
	if err != nil {
		return nil, err
	}
	return &Scorer[C]{e}, nil
}

// MustScorer is like NewScorer but panics on error.
func MustScorer[C any](expression string, env Env[C], opts ...Option) *Scorer[C] {
	s, err := NewScorer(expression, env, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Score implements behavior.Scorer.
func (s *Scorer[C]) Score(host C) float64 {
	result, err := s.run(host)
	if err != nil {
		s.logger.Error("exprcond: scorer evaluation failed",
			"expression", s.expression,
			"error", err)
		return math.Inf(-1)
	}
	if v, ok := toFloat64(result); ok {
		return v
	}
	s.fail(fmt.Errorf("exprcond: scorer returned %T", result))
	s.logger.Warn("exprcond: non-numeric scorer result",
		"expression", s.expression,
		"resultType", fmt.Sprintf("%T", result))
	return math.Inf(-1)
}

func toFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
