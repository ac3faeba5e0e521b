package rules

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"casewise/internal/fieldcheck"
	"casewise/internal/payload"
	"casewise/internal/scoring"
)

//go:embed packs.yaml
var packsYAML []byte

// Packs is the read-only rule pack table keyed by decision type.
type Packs struct {
	byType   map[string][]Rule
	patterns map[string]*regexp.Regexp
}

// Load parses and validates the embedded rule packs. Regex patterns are
// compiled once here so evaluation cannot fail.
func Load() (*Packs, error) {
	var byType map[string][]Rule
	if err := yaml.Unmarshal(packsYAML, &byType); err != nil {
		return nil, fmt.Errorf("parsing rule packs: %w", err)
	}
	if len(byType["default"]) == 0 {
		return nil, fmt.Errorf("rule packs have no default pack")
	}

	patterns := map[string]*regexp.Regexp{}
	for packName, pack := range byType {
		for _, r := range pack {
			if r.Op != "matches" {
				continue
			}
			pat, ok := r.Value.(string)
			if !ok {
				return nil, fmt.Errorf("rule %s in pack %s: matches needs a string pattern", r.ID, packName)
			}
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("rule %s in pack %s: %w", r.ID, packName, err)
			}
			patterns[r.ID] = re
		}
	}
	return &Packs{byType: byType, patterns: patterns}, nil
}

// MustLoad is Load for initialization paths where the embedded packs are
// known good.
func MustLoad() *Packs {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

// For returns the rule pack for a decision type. Unknown types fall back
// to the default pack.
func (p *Packs) For(decisionType string) []Rule {
	if pack, ok := p.byType[decisionType]; ok {
		return pack
	}
	return p.byType["default"]
}

// Evaluate runs every rule in the decision type's pack against the case
// payload, in declaration order and with no short-circuit. One result per
// rule, always.
func (p *Packs) Evaluate(decisionType string, doc payload.Value) []RuleResult {
	pack := p.For(decisionType)
	out := make([]RuleResult, 0, len(pack))
	for _, r := range pack {
		res := RuleResult{
			RuleID:    r.ID,
			Title:     r.Title,
			Severity:  r.Severity,
			Weight:    r.Weight,
			FieldPath: r.Path,
			Passed:    p.eval(r, doc.At(r.Path)),
		}
		if !res.Passed {
			res.Message = r.Message
		}
		out = append(out, res)
	}
	return out
}

func (p *Packs) eval(r Rule, v payload.Value) bool {
	switch r.Op {
	case "present":
		return fieldcheck.HasValue(v)
	case "not_placeholder":
		s := strings.TrimSpace(v.Str(""))
		return s != "" && !fieldcheck.IsPlaceholder(s)
	case "min_len":
		return len(strings.TrimSpace(v.Str(""))) >= intValue(r.Value)
	case "min_count":
		return v.Kind() == payload.KindList && v.Len() >= intValue(r.Value)
	case "min":
		return v.Num(math.Inf(-1)) >= numValue(r.Value)
	case "equals":
		return equals(r.Value, v)
	case "one_of":
		items, ok := r.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if equals(item, v) {
				return true
			}
		}
		return false
	case "matches":
		re, ok := p.patterns[r.ID]
		if !ok {
			return false
		}
		s := v.Str("")
		return s != "" && re.MatchString(s)
	default:
		return false
	}
}

func equals(want any, v payload.Value) bool {
	switch w := want.(type) {
	case string:
		return v.Kind() == payload.KindString && v.Str("") == w
	case bool:
		return v.Kind() == payload.KindBool && v.Boolean(!w) == w
	case int:
		return v.Kind() == payload.KindNumber && v.Num(math.NaN()) == float64(w)
	case float64:
		return v.Kind() == payload.KindNumber && v.Num(math.NaN()) == w
	default:
		return false
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func numValue(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// floorWithSubmission is the minimum rules score once any submission
// exists, so an all-failures case is still distinguishable from an empty
// one.
const floorWithSubmission = 5.0

// Confidence is the rules-path score and band.
type Confidence struct {
	Score float64      `json:"rules_score"`
	Band  scoring.Band `json:"rules_band"`
}

// Score turns rule results into the secondary confidence score: the plain
// pass ratio on a 0-100 scale, floored at 5 when a submission exists.
func Score(results []RuleResult, hasSubmission bool) Confidence {
	var score float64
	if len(results) > 0 {
		passed := 0
		for _, r := range results {
			if r.Passed {
				passed++
			}
		}
		score = float64(passed) / float64(len(results)) * 100
	}
	if hasSubmission && score < floorWithSubmission {
		score = floorWithSubmission
	}
	return Confidence{Score: score, Band: scoring.BandFor(score)}
}
