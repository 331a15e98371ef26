package quota

import (
	"errors"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/replyflow/pkg/usage"
)

// Counting selects how many units a successful action consumes.
type Counting string

const (
	// CountOne consumes exactly one unit.
	CountOne Counting = "one"
	// CountItems consumes one unit per element of the response "data" array.
	CountItems Counting = "items"
)

// Rule is the policy for a single action.
// Exempt rules skip enforcement; rules with a Dimension are metered.
// The zero Rule forwards the action without enforcement or counting.
type Rule struct {
	Exempt    bool       `yaml:"exempt"`
	Dimension usage.Kind `yaml:"dimension"`
	Count     Counting   `yaml:"count"`
}

// Metered reports whether the action is checked against and counted towards a limit.
func (r Rule) Metered() bool {
	return !r.Exempt && r.Dimension != ""
}

// amount returns the units consumed by a successful response body.
func (r Rule) amount(body map[string]any) int64 {
	switch r.Count {
	case CountItems:
		items, ok := body["data"].([]any)
		if !ok {
			return 0
		}
		return int64(len(items))
	default:
		return 1
	}
}

// Policy maps action names to rules.
type Policy map[string]Rule

// DefaultPolicy returns the built-in action table.
func DefaultPolicy() Policy {
	return Policy{
		"listLabels":      {Exempt: true},
		"getUserSettings": {Exempt: true},
		"getRunLog":       {Exempt: true},
		"generateDrafts":  {Dimension: usage.KindDrafts, Count: CountItems},
		"sendDraft":       {Dimension: usage.KindSends, Count: CountOne},
	}
}

// Rule returns the rule for action, or the zero Rule when it is not listed.
func (p Policy) Rule(action string) Rule {
	return p[action]
}

// Clone returns a copy that is safe to modify.
func (p Policy) Clone() Policy {
	return maps.Clone(p)
}

// Validate checks every rule for consistency.
func (p Policy) Validate() error {
	var errs []error
	for action, r := range p {
		if action == "" {
			errs = append(errs, errors.New("empty action name"))
			continue
		}
		if r.Exempt && r.Dimension != "" {
			errs = append(errs, fmt.Errorf("%s: exempt action cannot name a dimension", action))
		}
		if r.Dimension != "" && !r.Dimension.Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown dimension %q", action, r.Dimension))
		}
		switch r.Count {
		case "", CountOne, CountItems:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown count %q", action, r.Count))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPolicy}, errs...)...)
	}
	return nil
}

type policyFile struct {
	Actions Policy `yaml:"actions"`
}

// ParsePolicy decodes a YAML action table.
func ParsePolicy(data []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidPolicy, err)
	}
	if len(f.Actions) == 0 {
		return nil, fmt.Errorf("%w: no actions defined", ErrInvalidPolicy)
	}
	if err := f.Actions.Validate(); err != nil {
		return nil, err
	}
	return f.Actions, nil
}

// LoadPolicy reads a YAML action table from path.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidPolicy, err)
	}
	return ParsePolicy(data)
}
