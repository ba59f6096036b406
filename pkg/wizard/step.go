// Package wizard owns the multi-step form: static step definitions, the
// mutable per-user session, the state machine that gates navigation on
// validation, and an interactive runner that drives a prompt driver over the
// configured steps.
package wizard

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldKind selects the prompt used for a field and how its raw input is
// normalised.
type FieldKind string

const (
	FieldInput       FieldKind = "input"
	FieldNumber      FieldKind = "number"
	FieldDate        FieldKind = "date"
	FieldTime        FieldKind = "time"
	FieldSelect      FieldKind = "select"
	FieldMultiSelect FieldKind = "multiselect"
	FieldTextArea    FieldKind = "textarea"
	// FieldFiles collects local file paths to stage as media assets. Staged
	// paths live on the session, not in the step answers.
	FieldFiles FieldKind = "files"
)

// OptionSource names a reference-data-backed option list. Static options are
// listed inline on the field instead.
type OptionSource string

const (
	// SourceProgramManagers lists every known program manager.
	SourceProgramManagers OptionSource = "program_managers"
	// SourceSchools lists the schools of the manager already selected in the
	// same step (field key "program_manager").
	SourceSchools OptionSource = "schools"
	// SourceTeachers lists the teachers of the school already selected in the
	// same step (field key "school").
	SourceTeachers OptionSource = "teachers"
)

// Condition gates a field on an earlier answer within the same step. A field
// whose condition does not hold is neither prompted nor required.
type Condition struct {
	Field  string `yaml:"field"`
	Equals string `yaml:"equals"`
}

// FieldDefinition is the static configuration of one form field.
type FieldDefinition struct {
	Key         string       `yaml:"key"`
	Label       string       `yaml:"label"`
	Kind        FieldKind    `yaml:"kind"`
	Required    bool         `yaml:"required"`
	Options     []string     `yaml:"options,omitempty"`
	OptionsFrom OptionSource `yaml:"options_from,omitempty"`
	Help        string       `yaml:"help,omitempty"`
	When        *Condition   `yaml:"when,omitempty"`
}

// StepDefinition is one page of the wizard. Definitions are loaded once at
// process start and shared read-only by every session. Field order is the
// prompt order and the flattening order.
type StepDefinition struct {
	ID     string            `yaml:"id"`
	Label  string            `yaml:"label"`
	Fields []FieldDefinition `yaml:"fields"`
}

// RequiredFields returns the keys of the step's unconditionally required
// fields plus those whose condition holds for the given answers.
func (s StepDefinition) RequiredFields(answers map[string]string) []string {
	var out []string
	for _, field := range s.Fields {
		if !field.Required {
			continue
		}
		if field.When != nil && answers[field.When.Field] != field.When.Equals {
			continue
		}
		out = append(out, field.Key)
	}
	return out
}

// Field returns the definition for a key and whether it exists.
func (s StepDefinition) Field(key string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

//go:embed steps.yaml
var defaultStepsYAML []byte

// DefaultSteps returns the built-in six-step visit checklist.
func DefaultSteps() []StepDefinition {
	steps, err := ParseSteps(defaultStepsYAML)
	if err != nil {
		// The embedded configuration is validated by tests; a parse failure
		// here is a build defect.
		panic(fmt.Sprintf("wizard: embedded steps invalid: %v", err))
	}
	return steps
}

// ParseSteps decodes and validates a YAML step list.
func ParseSteps(data []byte) ([]StepDefinition, error) {
	var doc struct {
		Steps []StepDefinition `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wizard: parse steps: %w", err)
	}
	if err := ValidateSteps(doc.Steps); err != nil {
		return nil, err
	}
	return doc.Steps, nil
}

// ValidateSteps checks the static invariants of a step list: at least one
// step, unique non-empty step ids, unique non-empty field keys per step, and
// conditions referencing fields defined earlier in the same step.
func ValidateSteps(steps []StepDefinition) error {
	if len(steps) == 0 {
		return fmt.Errorf("wizard: at least one step is required")
	}

	stepIDs := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if strings.TrimSpace(step.ID) == "" {
			return fmt.Errorf("wizard: step %d has no id", i+1)
		}
		if _, dup := stepIDs[step.ID]; dup {
			return fmt.Errorf("wizard: duplicate step id %q", step.ID)
		}
		stepIDs[step.ID] = struct{}{}

		keys := make(map[string]struct{}, len(step.Fields))
		for _, field := range step.Fields {
			if strings.TrimSpace(field.Key) == "" {
				return fmt.Errorf("wizard: step %q has a field with no key", step.ID)
			}
			if _, dup := keys[field.Key]; dup {
				return fmt.Errorf("wizard: step %q duplicates field key %q", step.ID, field.Key)
			}
			if field.When != nil {
				if _, ok := keys[field.When.Field]; !ok {
					return fmt.Errorf("wizard: step %q field %q condition references %q, which is not defined earlier in the step",
						step.ID, field.Key, field.When.Field)
				}
			}
			keys[field.Key] = struct{}{}
		}
	}
	return nil
}
