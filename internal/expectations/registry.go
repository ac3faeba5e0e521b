// Package expectations holds the static per-decision-type table of which
// signal kinds a ready case is expected to carry. The table is seed data,
// never created or mutated at runtime.
package expectations

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ExpectedSignal describes one signal kind a decision type expects.
type ExpectedSignal struct {
	SignalType  string  `yaml:"signal_type" json:"signal_type"`
	Required    bool    `yaml:"required" json:"required"`
	MinStrength float64 `yaml:"min_strength" json:"min_strength"`
	// MaxAgeHours of 0 means the signal never goes stale.
	MaxAgeHours int `yaml:"max_age_hours" json:"max_age_hours,omitempty"`
}

//go:embed registry.yaml
var registryYAML []byte

type registryFile struct {
	Default       []ExpectedSignal            `yaml:"default"`
	DecisionTypes map[string][]ExpectedSignal `yaml:"decision_types"`
}

// Registry is a read-only lookup table keyed by decision type.
type Registry struct {
	byType map[string][]ExpectedSignal
	def    []ExpectedSignal
}

// Load parses the embedded registry seed.
func Load() (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(registryYAML, &f); err != nil {
		return nil, fmt.Errorf("parsing expectation registry: %w", err)
	}
	if len(f.Default) == 0 {
		return nil, fmt.Errorf("expectation registry has no default set")
	}
	return &Registry{byType: f.DecisionTypes, def: f.Default}, nil
}

// MustLoad is Load for initialization paths where the embedded seed is
// known good.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// For returns the expected signals for a decision type. Unknown types fall
// back to the default set.
func (r *Registry) For(decisionType string) []ExpectedSignal {
	if exp, ok := r.byType[decisionType]; ok {
		return exp
	}
	return r.def
}

// DecisionTypes returns the explicitly registered decision types, sorted.
func (r *Registry) DecisionTypes() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
