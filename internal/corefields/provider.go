// Package corefields supplies the field template shared by every entity and
// a registry of per-class core field extensions with inheritance-aware
// lookup.
package corefields

import (
	"embed"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/schema"
)

//go:embed templates/core_fields.yaml
var templates embed.FS

// DefaultTemplatePath is the template location inside the embedded source.
const DefaultTemplatePath = "templates/core_fields.yaml"

// Provider loads the standard core field template once and layers per-class
// registrations on top of it. Merged results are cached per class until a
// registration or cache clear invalidates them.
type Provider struct {
	source fs.FS
	path   string
	log    *zap.Logger

	once     sync.Once
	standard *schema.FieldSet
	loadErr  error

	mu         sync.RWMutex
	parents    map[string]string
	registered map[string]*schema.FieldSet
	merged     map[string]*schema.FieldSet
}

// Option configures a Provider.
type Option func(*Provider)

// WithSource replaces the embedded template with one read from fsys at path.
func WithSource(fsys fs.FS, path string) Option {
	return func(p *Provider) {
		p.source = fsys
		p.path = path
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// NewProvider builds a provider backed by the embedded template unless an
// option overrides the source.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		source:     templates,
		path:       DefaultTemplatePath,
		log:        zap.NewNop(),
		parents:    make(map[string]string),
		registered: make(map[string]*schema.FieldSet),
		merged:     make(map[string]*schema.FieldSet),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StandardCoreFields returns the template field set. The source is read on
// the first call only; later calls serve the cached copy. A missing or
// malformed template is a ConfigurationError.
func (p *Provider) StandardCoreFields() (*schema.FieldSet, error) {
	p.once.Do(func() {
		data, err := fs.ReadFile(p.source, p.path)
		if err != nil {
			p.loadErr = errs.NewConfiguration(p.path, err)
			return
		}
		set, err := schema.DecodeFields("core fields template", data)
		if err != nil {
			p.loadErr = errs.NewConfiguration(p.path, err)
			return
		}
		p.standard = set
	})
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.standard.Clone(), nil
}

// RegisterClassParent declares that child inherits core field registrations
// from parent.
func (p *Provider) RegisterClassParent(child, parent string) {
	if child == "" || parent == "" || child == parent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parents[child] = parent
	p.invalidateClassLocked(child)
}

// RegisterModelCoreFields stores or overwrites the extra core fields for one
// entity class and drops that class's merged cache entry. Other classes are
// untouched.
func (p *Provider) RegisterModelCoreFields(class string, fields *schema.FieldSet) {
	if class == "" {
		return
	}
	if fields == nil {
		fields = schema.NewFieldSet()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered[class] = fields.Clone()
	p.invalidateClassLocked(class)
}

// ModelCoreFields returns the union of fields registered on class and on
// every ancestor, base class first so the most derived registration wins on
// name collision.
func (p *Provider) ModelCoreFields(class string) *schema.FieldSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelCoreFieldsLocked(class)
}

func (p *Provider) modelCoreFieldsLocked(class string) *schema.FieldSet {
	out := schema.NewFieldSet()
	for _, ancestor := range p.ancestryLocked(class) {
		if set, ok := p.registered[ancestor]; ok {
			out.Merge(set.Clone())
		}
	}
	return out
}

// ancestryLocked returns the inheritance chain for class ordered base first.
// A cycle in the parent registrations is broken at the repeated class.
func (p *Provider) ancestryLocked(class string) []string {
	var chain []string
	seen := make(map[string]bool)
	for cur := class; cur != "" && !seen[cur]; cur = p.parents[cur] {
		seen[cur] = true
		chain = append([]string{cur}, chain...)
	}
	return chain
}

// AllCoreFieldsForModel merges the standard template with the class's
// inherited registrations, class-specific fields winning. Results are
// cached per class.
func (p *Provider) AllCoreFieldsForModel(class string) (*schema.FieldSet, error) {
	p.mu.RLock()
	cached, ok := p.merged[class]
	p.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	standard, err := p.StandardCoreFields()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.merged[class]; ok {
		return cached.Clone(), nil
	}
	merged := standard
	merged.Merge(p.modelCoreFieldsLocked(class))
	p.merged[class] = merged
	return merged.Clone(), nil
}

// CoreFieldWithOverrides returns the named core field for the class with the
// overrides applied. The name and type keys are immutable; overriding them
// logs a warning and is otherwise ignored. A field that is not a core field
// for the class yields ok == false.
func (p *Provider) CoreFieldWithOverrides(name, class string, overrides map[string]any) (*schema.FieldDescriptor, bool) {
	all, err := p.AllCoreFieldsForModel(class)
	if err != nil {
		p.log.Warn("core field lookup failed", zap.String("class", class), zap.Error(err))
		return nil, false
	}
	field, ok := all.Get(name)
	if !ok {
		return nil, false
	}
	return field.ApplyOverrides(overrides, p.log), true
}

// IsCoreField reports whether name is a standard core field or, when a
// class is supplied, part of that class's merged core fields.
func (p *Provider) IsCoreField(name string, class ...string) bool {
	standard, err := p.StandardCoreFields()
	if err != nil {
		return false
	}
	if standard.Has(name) {
		return true
	}
	if len(class) > 0 && class[0] != "" {
		return p.ModelCoreFields(class[0]).Has(name)
	}
	return false
}

// InvalidateClass drops the merged cache entry for one class.
func (p *Provider) InvalidateClass(class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateClassLocked(class)
}

// InvalidateAll drops every merged cache entry. Registrations survive; only
// the computed merges are rebuilt on next use.
func (p *Provider) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.merged = make(map[string]*schema.FieldSet)
}

func (p *Provider) invalidateClassLocked(class string) {
	delete(p.merged, class)
	// Descendants inherit from class, so their merges are stale too.
	for child, parent := range p.parents {
		if parent == class {
			p.invalidateClassLocked(child)
		}
	}
}
