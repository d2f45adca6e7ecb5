// Package rules implements the validation rule registry: named rule
// implementations, the catalog describing them, and the wiring that turns a
// field's configured rule names into live rule instances.
package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/errs"
)

// Rule validates one field value. Implementations are stateless once
// constructed and safe for concurrent use.
type Rule interface {
	// Name is the schema-file spelling of the rule.
	Name() string
	// Description is a one-line human description.
	Description() string
	// ClientExpression is a client-side validation expression equivalent
	// to Validate, handed to UI consumers.
	ClientExpression() string
	// Validate checks value for the named field. A nil value passes every
	// rule except Required; presence is Required's concern alone.
	Validate(field string, value any) error
}

// Factory builds a rule from its argument string. Rules that take no
// argument ignore it; parameterized rules treat an empty argument as their
// documented default.
type Factory func(arg string) (Rule, error)

// Registry maps rule names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered rule names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds one rule from a configured spec of the form "Name" or
// "Name:argument". An unknown name is a NotFoundError carrying the
// registered names; a bad argument is a SchemaError.
func (r *Registry) New(spec string) (Rule, error) {
	name, arg := splitSpec(spec)
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.NewNotFound("validation rule", name, r.Names())
	}
	rule, err := factory(arg)
	if err != nil {
		return nil, errs.Schemaf(name, "invalid rule argument %q: %v", arg, err)
	}
	return rule, nil
}

// Resolve wires a field's configured rule names into rule instances,
// preserving order. A spec that does not build, whether the name is
// unknown or the argument is bad, is logged and skipped so one stray
// rule cannot take the whole field's validation down.
func (r *Registry) Resolve(specs []string, log *zap.Logger) []Rule {
	if log == nil {
		log = zap.NewNop()
	}
	out := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := r.New(spec)
		if err != nil {
			log.Warn("skipping unresolvable validation rule",
				zap.String("rule", spec),
				zap.Error(err))
			continue
		}
		out = append(out, rule)
	}
	return out
}

func splitSpec(spec string) (name, arg string) {
	if i := strings.Index(spec, ":"); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

// RuleError reports a single rule failure on a field.
type RuleError struct {
	Field   string
	Rule    string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fail(field, rule, format string, args ...any) error {
	return &RuleError{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)}
}
