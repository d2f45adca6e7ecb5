package rules

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RuleDescriptor describes one available validation rule to schema tooling
// and UI consumers.
type RuleDescriptor struct {
	Name           string `json:"name" yaml:"name" msgpack:"name"`
	Implementation string `json:"implementation" yaml:"implementation" msgpack:"implementation"`
	Description    string `json:"description" yaml:"description" msgpack:"description"`
	Expression     string `json:"expression" yaml:"expression" msgpack:"expression"`
}

// Catalog probes every registered rule with an empty argument and returns a
// descriptor per rule that instantiates cleanly. A factory failure is
// logged and that rule skipped; the scan never aborts.
func Catalog(reg *Registry, log *zap.Logger) map[string]RuleDescriptor {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	out := make(map[string]RuleDescriptor)
	for _, name := range reg.Names() {
		rule, err := reg.New(name)
		if err != nil {
			log.Warn("skipping validation rule that failed to instantiate",
				zap.String("rule", name),
				zap.Error(err))
			continue
		}
		out[name] = RuleDescriptor{
			Name:           name,
			Implementation: strings.TrimPrefix(fmt.Sprintf("%T", rule), "*"),
			Description:    rule.Description(),
			Expression:     rule.ClientExpression(),
		}
	}
	return out
}
