package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldvisit/pkg/reference"
)

// Navigation labels offered after each step's fields.
const (
	navNext     = "Next"
	navSubmit   = "Submit"
	navPrevious = "Previous"
	navCancel   = "Cancel"
)

// Date and time layouts accepted by date/time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// multiValueSeparator joins multi-select answers into a single stored value.
// It is part of the flattened row format, so changing it changes what lands
// in the sheet.
const multiValueSeparator = ", "

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger injects a structured logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReferenceData supplies the dataset backing program-manager, school and
// teacher selects. Without it those fields degrade to free-text input.
func WithReferenceData(data *reference.Dataset) RunnerOption {
	return func(r *Runner) {
		r.data = data
	}
}

// Runner walks a session through the machine's steps interactively. It is
// the only component that talks to the PromptDriver; the state machine stays
// pure and testable.
type Runner struct {
	machine *Machine
	driver  PromptDriver
	data    *reference.Dataset
	logger  *zap.Logger
}

// NewRunner constructs a Runner for the given machine and driver.
func NewRunner(machine *Machine, driver PromptDriver, options ...RunnerOption) (*Runner, error) {
	if machine == nil {
		return nil, fmt.Errorf("wizard: machine is required")
	}
	if driver == nil {
		return nil, fmt.Errorf("wizard: prompt driver is required")
	}
	r := &Runner{
		machine: machine,
		driver:  driver,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r, nil
}

// Run creates a fresh session and walks it to the ready-to-submit state.
// Cancellation at any step returns ErrAborted with no external side effects.
func (r *Runner) Run(ctx context.Context) (*Session, error) {
	sess := NewSession()
	if err := r.RunSession(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// RunSession resumes an existing session (for example after a failed submit)
// and walks it until it is ready to submit.
func (r *Runner) RunSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("wizard: session is required")
	}

	total := r.machine.TotalSteps()
	for !r.machine.ReadyToSubmit(sess) {
		step, err := r.machine.Step(sess.Current)
		if err != nil {
			return err
		}

		if err := r.driver.Info(ctx, fmt.Sprintf("Step %d of %d — %s", sess.Current, total, step.Label)); err != nil {
			return err
		}

		proposed, nav, err := r.collectStep(ctx, step, sess)
		if err != nil {
			return err
		}

		switch nav {
		case navPrevious:
			if err := r.machine.Retreat(sess); err != nil {
				return err
			}
		case navCancel:
			discard, err := r.driver.Confirm(ctx, ConfirmConfig{
				Message: "Discard this visit?",
				Default: false,
			})
			if err != nil {
				return err
			}
			if discard {
				r.logger.Info("session cancelled", zap.String("session", sess.ID))
				return ErrAborted
			}
		default:
			result, err := r.machine.Advance(sess, proposed)
			if err != nil {
				return err
			}
			if !result.OK() {
				msg := fmt.Sprintf("Please fill all required fields: %s", strings.Join(result.Missing, ", "))
				if err := r.driver.Info(ctx, msg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// collectStep prompts every applicable field of a step, prefilled from the
// session, and then asks for a navigation choice. It never mutates the
// session; the machine does that on Advance.
func (r *Runner) collectStep(ctx context.Context, step StepDefinition, sess *Session) (map[string]string, string, error) {
	proposed := sess.Answers(sess.Current)

	for _, field := range step.Fields {
		if field.When != nil && proposed[field.When.Field] != field.When.Equals {
			// Condition no longer holds; drop any stale answer so it neither
			// validates nor flattens.
			delete(proposed, field.Key)
			continue
		}

		value, err := r.promptField(ctx, field, proposed, sess)
		if err != nil {
			return nil, "", err
		}
		if value == nil {
			delete(proposed, field.Key)
			continue
		}
		proposed[field.Key] = *value
	}

	nav, err := r.promptNavigation(ctx, sess)
	if err != nil {
		return nil, "", err
	}
	return proposed, nav, nil
}

// promptField returns the collected value, or nil when the field yields no
// answer (empty option list, staged files).
func (r *Runner) promptField(ctx context.Context, field FieldDefinition, proposed map[string]string, sess *Session) (*string, error) {
	existing := proposed[field.Key]

	switch field.Kind {
	case FieldSelect:
		return r.promptSelect(ctx, field, existing, proposed)
	case FieldMultiSelect:
		return r.promptMultiSelect(ctx, field, existing, proposed)
	case FieldTextArea:
		out, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: field.Label,
			Default: existing,
			Help:    field.Help,
		})
		if err != nil {
			return nil, err
		}
		return &out, nil
	case FieldNumber:
		return r.promptValidated(ctx, field, existing, func(raw string) error {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("enter a whole number")
			}
			if n < 0 {
				return fmt.Errorf("must not be negative")
			}
			return nil
		})
	case FieldDate:
		return r.promptValidated(ctx, field, existing, func(raw string) error {
			if _, err := time.Parse(DateLayout, strings.TrimSpace(raw)); err != nil {
				return fmt.Errorf("use the %s format", DateLayout)
			}
			return nil
		})
	case FieldTime:
		return r.promptValidated(ctx, field, existing, func(raw string) error {
			if _, err := time.Parse(TimeLayout, strings.TrimSpace(raw)); err != nil {
				return fmt.Errorf("use the 24h %s format", TimeLayout)
			}
			return nil
		})
	case FieldFiles:
		return nil, r.promptFiles(ctx, field, sess)
	default:
		out, err := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: existing,
			Help:    field.Help,
		})
		if err != nil {
			return nil, err
		}
		out = strings.TrimSpace(out)
		return &out, nil
	}
}

// promptValidated re-asks until the input parses or, for optional fields, is
// left empty.
func (r *Runner) promptValidated(ctx context.Context, field FieldDefinition, existing string, check func(string) error) (*string, error) {
	for {
		out, err := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: existing,
			Help:    field.Help,
		})
		if err != nil {
			return nil, err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return &out, nil
		}
		if err := check(out); err != nil {
			if infoErr := r.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", field.Label, err)); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		return &out, nil
	}
}

func (r *Runner) promptSelect(ctx context.Context, field FieldDefinition, existing string, proposed map[string]string) (*string, error) {
	options, err := r.resolveOptions(ctx, field, proposed)
	if err != nil {
		return nil, err
	}
	if options == nil {
		// No option source wired; degrade to free text.
		out, inputErr := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: existing,
			Help:    field.Help,
		})
		if inputErr != nil {
			return nil, inputErr
		}
		out = strings.TrimSpace(out)
		return &out, nil
	}
	if len(options) == 0 {
		// Explicit empty state: never silently pick a first option that does
		// not exist. The field stays unanswered and validation reports it.
		if err := r.driver.Info(ctx, fmt.Sprintf("No options found for %s", field.Label)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.Label,
		Options:      options,
		DefaultIndex: indexOf(options, existing),
		Help:         field.Help,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(options) {
		return nil, nil
	}
	return &options[idx], nil
}

func (r *Runner) promptMultiSelect(ctx context.Context, field FieldDefinition, existing string, proposed map[string]string) (*string, error) {
	options, err := r.resolveOptions(ctx, field, proposed)
	if err != nil {
		return nil, err
	}
	if options == nil {
		// No option source wired; degrade to free text like promptSelect.
		out, inputErr := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: existing,
			Help:    field.Help,
		})
		if inputErr != nil {
			return nil, inputErr
		}
		out = strings.TrimSpace(out)
		return &out, nil
	}
	if len(options) == 0 {
		if err := r.driver.Info(ctx, fmt.Sprintf("No options found for %s", field.Label)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var defaults []int
	if existing != "" {
		defaults = indicesOf(options, strings.Split(existing, multiValueSeparator))
	}

	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  field.Label,
		Options:  options,
		Defaults: defaults,
		Help:     field.Help,
	})
	if err != nil {
		return nil, err
	}

	// Join in option order so the stored value is deterministic regardless
	// of selection order.
	value := strings.Join(optionsAt(options, indices), multiValueSeparator)
	return &value, nil
}

func (r *Runner) promptFiles(ctx context.Context, field FieldDefinition, sess *Session) error {
	if assets := sess.Assets(); len(assets) > 0 {
		names := make([]string, len(assets))
		for i, a := range assets {
			names[i] = a.LocalName
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("Already attached: %s", strings.Join(names, ", "))); err != nil {
			return err
		}
	}

	for {
		add, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: "Attach a file?",
			Default: false,
			Help:    field.Help,
		})
		if err != nil {
			return err
		}
		if !add {
			return nil
		}

		path, err := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Help:    "Local path to the file",
		})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		sess.StageAsset(path)
		r.logger.Debug("asset staged", zap.String("session", sess.ID), zap.String("file", path))
	}
}

// resolveOptions returns the option list for a field: inline options, a
// reference-data source, or nil when no source is configured (free text).
func (r *Runner) resolveOptions(ctx context.Context, field FieldDefinition, proposed map[string]string) ([]string, error) {
	if len(field.Options) > 0 {
		return field.Options, nil
	}
	if field.OptionsFrom == "" || r.data == nil {
		return nil, nil
	}

	switch field.OptionsFrom {
	case SourceProgramManagers:
		return nonNil(r.data.ProgramManagers()), nil
	case SourceSchools:
		return nonNil(r.data.SchoolsFor(proposed["program_manager"])), nil
	case SourceTeachers:
		teachers := r.data.TeachersFor(proposed["school"])
		out := make([]string, 0, len(teachers))
		for _, t := range teachers {
			out = append(out, t.Name)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wizard: unknown option source %q", field.OptionsFrom)
	}
}

// nonNil distinguishes "source resolved to zero options" (empty slice, shown
// as an explicit empty state) from "no source configured" (nil, free text).
func nonNil(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}

func (r *Runner) promptNavigation(ctx context.Context, sess *Session) (string, error) {
	forward := navNext
	if sess.Current == r.machine.TotalSteps() {
		forward = navSubmit
	}
	options := []string{forward}
	if sess.Current > 1 {
		options = append(options, navPrevious)
	}
	options = append(options, navCancel)

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      "Continue",
		Options:      options,
		DefaultIndex: 0,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return navCancel, nil
	}
	choice := options[idx]
	if choice == navSubmit {
		return navNext, nil
	}
	return choice, nil
}
