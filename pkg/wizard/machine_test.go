package wizard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func twoStepMachine(t *testing.T) *Machine {
	t.Helper()

	steps := []StepDefinition{
		{
			ID:    "BasicInformation",
			Label: "Basic Information",
			Fields: []FieldDefinition{
				{Key: "program_manager", Label: "Program Manager", Kind: FieldSelect, Required: true},
				{Key: "school", Label: "School Name", Kind: FieldSelect, Required: true},
				{Key: "visit_date", Label: "Date of Visit", Kind: FieldDate, Required: true},
				{Key: "notes", Label: "Notes", Kind: FieldTextArea},
			},
		},
		{
			ID:    "TeacherActions",
			Label: "Teacher Actions",
			Fields: []FieldDefinition{
				{Key: "movement", Label: "Moving around?", Kind: FieldSelect, Required: true, Options: []string{"Yes", "No"}},
			},
		},
	}
	machine, err := NewMachine(steps)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return machine
}

func TestAdvanceValidStepMoves(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	result, err := machine.Advance(sess, map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected validation to pass, got %+v", result)
	}
	if sess.Current != 2 {
		t.Fatalf("expected step 2, got %d", sess.Current)
	}
	if got, _ := sess.Answer(1, "school"); got != "Oak" {
		t.Fatalf("expected merged answer, got %q", got)
	}
}

func TestAdvanceMissingFieldLeavesSessionUnchanged(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	result, err := machine.Advance(sess, map[string]string{
		"program_manager": "Asha",
		"visit_date":      "2024-03-05",
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if diff := cmp.Diff([]string{"school"}, result.Missing); diff != "" {
		t.Fatalf("missing fields mismatch (-want +got):\n%s", diff)
	}
	if sess.Current != 1 {
		t.Fatalf("expected session to stay on step 1, got %d", sess.Current)
	}
	if got := sess.Answers(1); len(got) != 0 {
		t.Fatalf("expected no merged answers after failed validation, got %v", got)
	}
}

func TestAdvanceRejectsUnknownKeys(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	result, err := machine.Advance(sess, map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
		"bogus":           "value",
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if diff := cmp.Diff([]string{"bogus"}, result.Unknown); diff != "" {
		t.Fatalf("unknown keys mismatch (-want +got):\n%s", diff)
	}
	if sess.Current != 1 {
		t.Fatalf("unknown keys must not advance the session")
	}
}

func TestAdvanceSaturatesAtReadyToSubmit(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	if _, err := machine.Advance(sess, map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
	}); err != nil {
		t.Fatalf("advance step 1: %v", err)
	}
	if _, err := machine.Advance(sess, map[string]string{"movement": "Yes"}); err != nil {
		t.Fatalf("advance step 2: %v", err)
	}
	if !machine.ReadyToSubmit(sess) {
		t.Fatalf("expected ready to submit at step %d", sess.Current)
	}
	if _, err := machine.Advance(sess, nil); err == nil {
		t.Fatal("expected error advancing past ready-to-submit")
	}
}

func TestRetreatPreservesAnswersRoundTrip(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	answers := map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
	}
	if _, err := machine.Advance(sess, answers); err != nil {
		t.Fatalf("advance: %v", err)
	}
	before := sess.Answers(1)

	if err := machine.Retreat(sess); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if sess.Current != 1 {
		t.Fatalf("expected step 1 after retreat, got %d", sess.Current)
	}
	// Prior input must still be there for the returning user.
	if diff := cmp.Diff(before, sess.Answers(1)); diff != "" {
		t.Fatalf("answers lost on retreat (-want +got):\n%s", diff)
	}

	// Re-advancing with the cached answers reproduces the same state.
	if _, err := machine.Advance(sess, sess.Answers(1)); err != nil {
		t.Fatalf("re-advance: %v", err)
	}
	if diff := cmp.Diff(before, sess.Answers(1)); diff != "" {
		t.Fatalf("answers changed across retreat/advance round trip (-want +got):\n%s", diff)
	}
}

func TestRetreatFloorsAtOne(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()
	if err := machine.Retreat(sess); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if sess.Current != 1 {
		t.Fatalf("expected floor at step 1, got %d", sess.Current)
	}
}

func TestValidateStepWithNoRequiredFields(t *testing.T) {
	machine := twoStepMachine(t)
	step := StepDefinition{ID: "Optional", Label: "Optional", Fields: []FieldDefinition{
		{Key: "remark", Kind: FieldTextArea},
	}}
	if result := machine.Validate(step, map[string]string{}); !result.OK() {
		t.Fatalf("step with no required fields must validate, got %+v", result)
	}
}

func TestValidateConditionalRequirement(t *testing.T) {
	step := StepDefinition{ID: "Community", Label: "Community", Fields: []FieldDefinition{
		{Key: "parent_contribution", Kind: FieldSelect, Required: true, Options: []string{"Yes", "No"}},
		{Key: "resource_details", Kind: FieldTextArea, Required: true, When: &Condition{Field: "parent_contribution", Equals: "Yes"}},
	}}
	machine := twoStepMachine(t)

	if result := machine.Validate(step, map[string]string{"parent_contribution": "No"}); !result.OK() {
		t.Fatalf("conditional field must not be required when condition fails, got %+v", result)
	}
	result := machine.Validate(step, map[string]string{"parent_contribution": "Yes"})
	if diff := cmp.Diff([]string{"resource_details"}, result.Missing); diff != "" {
		t.Fatalf("conditional requirement mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceDropsAnswerWhenConditionFlips(t *testing.T) {
	machine, err := NewMachine([]StepDefinition{
		{
			ID:    "CommunityEngagement",
			Label: "Community Engagement",
			Fields: []FieldDefinition{
				{Key: "parent_contribution", Kind: FieldSelect, Required: true, Options: []string{"Yes", "No"}},
				{Key: "resource_details", Kind: FieldTextArea, Required: true, When: &Condition{Field: "parent_contribution", Equals: "Yes"}},
			},
		},
		{
			ID:    "TeacherActions",
			Label: "Teacher Actions",
			Fields: []FieldDefinition{
				{Key: "movement", Kind: FieldSelect, Required: true, Options: []string{"Yes", "No"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	sess := NewSession()

	if _, err := machine.Advance(sess, map[string]string{
		"parent_contribution": "Yes",
		"resource_details":    "bricks from Mr. Rao",
	}); err != nil {
		t.Fatalf("advance with condition held: %v", err)
	}
	if err := machine.Retreat(sess); err != nil {
		t.Fatalf("retreat: %v", err)
	}

	// Flipping the gate on the way back must remove the stored detail, even
	// though the merge itself never deletes keys.
	result, err := machine.Advance(sess, map[string]string{"parent_contribution": "No"})
	if err != nil {
		t.Fatalf("advance with condition flipped: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected validation to pass, got %+v", result)
	}
	if got, ok := sess.Answer(1, "resource_details"); ok {
		t.Fatalf("stale conditional answer survived the flip: %q", got)
	}
	if got, _ := sess.Answer(1, "parent_contribution"); got != "No" {
		t.Fatalf("expected flipped gate to be stored, got %q", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	if _, err := machine.Advance(sess, map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
	}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	sess.StageAsset("photo.jpg")

	machine.Reset(sess)

	if sess.Current != 1 {
		t.Fatalf("expected step 1 after reset, got %d", sess.Current)
	}
	if got := sess.Answers(1); len(got) != 0 {
		t.Fatalf("expected answers cleared, got %v", got)
	}
	if got := sess.Assets(); len(got) != 0 {
		t.Fatalf("expected assets cleared, got %v", got)
	}
}

func TestMergeIsLastWriteWins(t *testing.T) {
	machine := twoStepMachine(t)
	sess := NewSession()

	first := map[string]string{
		"program_manager": "Asha",
		"school":          "Oak",
		"visit_date":      "2024-03-05",
		"notes":           "first pass",
	}
	if _, err := machine.Advance(sess, first); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := machine.Retreat(sess); err != nil {
		t.Fatalf("retreat: %v", err)
	}

	second := sess.Answers(1)
	second["notes"] = "second pass"
	if _, err := machine.Advance(sess, second); err != nil {
		t.Fatalf("re-advance: %v", err)
	}

	if got, _ := sess.Answer(1, "notes"); got != "second pass" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if got, _ := sess.Answer(1, "school"); got != "Oak" {
		t.Fatalf("expected untouched field to survive, got %q", got)
	}
}
