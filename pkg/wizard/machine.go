package wizard

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult reports why a step did not validate. The state machine
// never returns an error for business-rule failures; it returns one of these
// and leaves the session untouched.
type ValidationResult struct {
	// Missing lists required field keys absent or empty in the proposed
	// answers, in step field order.
	Missing []string
	// Unknown lists proposed keys the step does not define, sorted. Unknown
	// keys are rejected so the stored answers stay schema-validated.
	Unknown []string
}

// OK reports whether the step validated.
func (r ValidationResult) OK() bool {
	return len(r.Missing) == 0 && len(r.Unknown) == 0
}

// Machine sequences a session through the configured steps. It is stateless
// apart from the immutable step list and safe for concurrent use across
// sessions.
type Machine struct {
	steps []StepDefinition
}

// NewMachine validates the step definitions and builds a Machine.
func NewMachine(steps []StepDefinition) (*Machine, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}
	return &Machine{steps: append([]StepDefinition(nil), steps...)}, nil
}

// Steps returns the configured step definitions in order.
func (m *Machine) Steps() []StepDefinition {
	return append([]StepDefinition(nil), m.steps...)
}

// TotalSteps returns the number of configured steps.
func (m *Machine) TotalSteps() int {
	return len(m.steps)
}

// Step returns the 1-based step definition.
func (m *Machine) Step(n int) (StepDefinition, error) {
	if n < 1 || n > len(m.steps) {
		return StepDefinition{}, fmt.Errorf("wizard: step %d out of range 1..%d", n, len(m.steps))
	}
	return m.steps[n-1], nil
}

// Validate checks the proposed answers against a step definition. It is a
// pure function: it inspects, never mutates. A step with no required fields
// always validates (assuming no unknown keys are proposed).
func (m *Machine) Validate(step StepDefinition, proposed map[string]string) ValidationResult {
	var result ValidationResult

	for _, key := range step.RequiredFields(proposed) {
		if strings.TrimSpace(proposed[key]) == "" {
			result.Missing = append(result.Missing, key)
		}
	}

	for key := range proposed {
		if _, ok := step.Field(key); !ok {
			result.Unknown = append(result.Unknown, key)
		}
	}
	sort.Strings(result.Unknown)

	return result
}

// Advance validates the proposed answers for the session's current step. On
// success it merges them last-write-wins into the session and increments the
// step, saturating at TotalSteps+1 (ready to submit). On failure the session
// is unchanged and the result reports the missing fields.
func (m *Machine) Advance(sess *Session, proposed map[string]string) (ValidationResult, error) {
	if sess == nil {
		return ValidationResult{}, fmt.Errorf("wizard: session is required")
	}
	if sess.Current > len(m.steps) {
		return ValidationResult{}, fmt.Errorf("wizard: session is ready to submit; no further steps")
	}

	step := m.steps[sess.Current-1]
	result := m.Validate(step, proposed)
	if !result.OK() {
		return result, nil
	}

	sess.merge(sess.Current, proposed)

	// Merging is last-write-wins and never removes keys, so a conditional
	// field answered on an earlier pass would otherwise survive after its
	// gate was flipped on the way back. Drop stored answers whose condition
	// no longer holds.
	merged := sess.answers[sess.Current]
	for _, field := range step.Fields {
		if field.When != nil && merged[field.When.Field] != field.When.Equals {
			delete(merged, field.Key)
		}
	}

	sess.Current++
	return result, nil
}

// Retreat moves the session back one step, floor 1. Answers already entered
// for the step being left are preserved so returning users see their prior
// input.
func (m *Machine) Retreat(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("wizard: session is required")
	}
	if sess.Current > 1 {
		sess.Current--
	}
	return nil
}

// ReadyToSubmit reports whether the session has advanced past the last step.
func (m *Machine) ReadyToSubmit(sess *Session) bool {
	return sess != nil && sess.Current == len(m.steps)+1
}

// Reset clears all answers and staged assets and returns the session to
// step 1. It is the only operation that discards session state.
func (m *Machine) Reset(sess *Session) {
	if sess == nil {
		return
	}
	sess.Current = 1
	sess.answers = make(map[int]map[string]string)
	sess.assets = nil
}
