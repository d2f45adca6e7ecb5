// Package metadata implements the engine that loads schema sources, merges
// core fields, resolves relationships and catalogs, and serves the warm
// cache every other component reads from.
package metadata

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/trestlehq/trestle/internal/corefields"
	"github.com/trestlehq/trestle/internal/fieldtypes"
	"github.com/trestlehq/trestle/internal/options"
	"github.com/trestlehq/trestle/internal/rules"
	"github.com/trestlehq/trestle/internal/schema"
)

// State is the engine cache state.
type State int

const (
	// StateCold means nothing is loaded.
	StateCold State = iota
	// StateLoading means a scan or cache read is in progress.
	StateLoading
	// StateWarm means the cache is populated and serving lookups.
	StateWarm
)

func (s State) String() string {
	switch s {
	case StateCold:
		return "cold"
	case StateLoading:
		return "loading"
	case StateWarm:
		return "warm"
	default:
		return "unknown"
	}
}

// Snapshot is one complete metadata load: every resolved entity and
// relationship plus the discovery catalogs, stamped with a generation id.
type Snapshot struct {
	Entities      map[string]*schema.Entity            `msgpack:"entities"`
	Relationships map[string]*schema.Relationship      `msgpack:"relationships"`
	FieldTypes    map[string]fieldtypes.TypeDescriptor `msgpack:"fieldTypes"`
	RuleTypes     map[string]rules.RuleDescriptor      `msgpack:"ruleTypes"`
	// Generation is a sortable unique id minted per build, used to tell
	// cache blobs apart in logs and diagnostics.
	Generation string    `msgpack:"generation"`
	BuiltAt    time.Time `msgpack:"builtAt"`
}

// Engine owns the metadata cache for the process. Construct one and pass it
// to every consumer; there is no package-level instance.
type Engine struct {
	source   Source
	provider *corefields.Provider
	fields   *fieldtypes.Registry
	rules    *rules.Registry
	options  *options.Registry
	store    CacheStore
	log      *zap.Logger

	group singleflight.Group

	mu    sync.RWMutex
	state State
	snap  *Snapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProvider replaces the default core fields provider.
func WithProvider(p *corefields.Provider) EngineOption {
	return func(e *Engine) { e.provider = p }
}

// WithFieldRegistry replaces the default field type registry.
func WithFieldRegistry(r *fieldtypes.Registry) EngineOption {
	return func(e *Engine) { e.fields = r }
}

// WithRuleRegistry replaces the default validation rule registry.
func WithRuleRegistry(r *rules.Registry) EngineOption {
	return func(e *Engine) { e.rules = r }
}

// WithOptionsRegistry installs the dynamic option source registry.
func WithOptionsRegistry(r *options.Registry) EngineOption {
	return func(e *Engine) { e.options = r }
}

// WithCacheStore attaches a snapshot store consulted before scanning and
// written after every build.
func WithCacheStore(store CacheStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds an engine reading from source.
func NewEngine(source Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:  source,
		log:     zap.NewNop(),
		fields:  fieldtypes.DefaultRegistry(),
		rules:   rules.DefaultRegistry(),
		options: options.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.provider == nil {
		e.provider = corefields.NewProvider(corefields.WithLogger(e.log))
	}
	return e
}

// State returns the current cache state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CoreFields returns the engine's core fields provider, for registering
// per-class core fields.
func (e *Engine) CoreFields() *corefields.Provider { return e.provider }

// FieldRegistry returns the field type registry.
func (e *Engine) FieldRegistry() *fieldtypes.Registry { return e.fields }

// RuleRegistry returns the validation rule registry.
func (e *Engine) RuleRegistry() *rules.Registry { return e.rules }

// OptionSources returns the dynamic option source registry.
func (e *Engine) OptionSources() *options.Registry { return e.options }
