package alertrules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"mediplus/pkg/models"
)

const costLimit = 100000

var ErrCompile = errors.New("invalid rule expression")

type compiled struct {
	expression string
	program    cel.Program
}

// Engine compiles doctor-authored CEL rules and evaluates them against
// vital readings. Programs are cached per rule id and recompiled when the
// expression changes. Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	programs map[uuid.UUID]compiled
	mu       sync.RWMutex
}

// Match is a rule that fired for a reading.
type Match struct {
	RuleID   uuid.UUID `json:"ruleId"`
	RuleName string    `json:"ruleName"`
	Severity string    `json:"severity"`
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("vitals", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env, programs: make(map[uuid.UUID]compiled)}, nil
}

func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, issues.Err())
	}

	prog, err := en.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	return prog, nil
}

// Check validates an expression without caching it.
func (en *Engine) Check(expression string) error {
	_, err := en.compile(expression)
	return err
}

func (en *Engine) program(rule models.AlertRule) (cel.Program, error) {
	en.mu.RLock()
	c, ok := en.programs[rule.ID]
	en.mu.RUnlock()
	if ok && c.expression == rule.Expression {
		return c.program, nil
	}

	prog, err := en.compile(rule.Expression)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	en.programs[rule.ID] = compiled{expression: rule.Expression, program: prog}
	en.mu.Unlock()
	return prog, nil
}

// Evaluate runs one rule. Non-boolean results count as no match.
func (en *Engine) Evaluate(rule models.AlertRule, facts map[string]any) (bool, error) {
	prog, err := en.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prog.Eval(facts)
	if err != nil {
		return false, fmt.Errorf("evaluate rule %s: %w", rule.ID, err)
	}

	matched, _ := out.Value().(bool)
	return matched, nil
}

// EvaluateAll runs every active rule against the reading. Rules that fail
// to evaluate, for example by referencing a reading that was not taken,
// are reported in errs and do not match.
func (en *Engine) EvaluateAll(rules []models.AlertRule, v *models.Vital) (matches []Match, errs []error) {
	facts := Facts(v)
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		ok, err := en.Evaluate(rule, facts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			matches = append(matches, Match{RuleID: rule.ID, RuleName: rule.Name, Severity: rule.Severity})
		}
	}
	return matches, errs
}

// Forget drops the cached program of a deactivated rule.
func (en *Engine) Forget(ruleID uuid.UUID) {
	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()
}

// Facts exposes the measured readings of v under the "vitals" variable.
func Facts(v *models.Vital) map[string]any {
	readings := map[string]any{}
	add := func(key string, value *float64) {
		if value != nil {
			readings[key] = *value
		}
	}
	if v != nil {
		add("temperature", v.TemperatureCelsius)
		add("heart_rate", v.HeartRateBPM)
		add("oxygen", v.OxygenLevelPercent)
		add("systolic", v.BloodPressureSystolic)
		add("diastolic", v.BloodPressureDiastolic)
		add("weight", v.WeightKg)
	}
	return map[string]any{"vitals": readings}
}
