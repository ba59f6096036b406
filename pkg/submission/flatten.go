// Package submission turns a completed wizard session into one appended row
// in the external tabular store, uploading staged media first so the row only
// ever references durably stored assets.
package submission

import (
	"fmt"

	"github.com/goliatone/go-fieldvisit/pkg/wizard"
)

// Cell is one named column value of a flattened submission row.
type Cell struct {
	Column string
	Value  string
}

// Row is the flat, ordered form of a session: step fields in definition
// order qualified as <StepID>_<fieldKey>, then one Asset_<n> column per
// uploaded file. Rows are built once at submit time and never mutated.
type Row []Cell

// Columns returns the column names in row order.
func (r Row) Columns() []string {
	out := make([]string, len(r))
	for i, cell := range r {
		out[i] = cell.Column
	}
	return out
}

// Values returns the cell values in row order.
func (r Row) Values() []string {
	out := make([]string, len(r))
	for i, cell := range r {
		out[i] = cell.Value
	}
	return out
}

// Value returns the value for a column and whether the column exists.
func (r Row) Value(column string) (string, bool) {
	for _, cell := range r {
		if cell.Column == column {
			return cell.Value, true
		}
	}
	return "", false
}

// Flatten derives the submission row from a session. It is deterministic:
// steps iterate in configured order and fields in definition order, so
// flattening the same session twice yields identical rows, which is what
// makes failed submits safely retryable.
//
// Every staged asset must already carry a remote id; Flatten refuses to
// reference an asset that was not durably uploaded first.
func Flatten(steps []wizard.StepDefinition, sess *wizard.Session) (Row, error) {
	if sess == nil {
		return nil, fmt.Errorf("submission: session is required")
	}

	var row Row
	for i, step := range steps {
		answers := sess.Answers(i + 1)
		for _, field := range step.Fields {
			if field.When != nil && answers[field.When.Field] != field.When.Equals {
				// A field whose condition does not hold is not part of the
				// row, whatever the session may still carry for it.
				continue
			}
			value, ok := answers[field.Key]
			if !ok {
				continue
			}
			row = append(row, Cell{
				Column: step.ID + "_" + field.Key,
				Value:  value,
			})
		}
	}

	for n, asset := range sess.Assets() {
		if asset.RemoteID == "" {
			return nil, fmt.Errorf("submission: asset %q has not been uploaded; upload assets before flattening", asset.LocalName)
		}
		row = append(row, Cell{
			Column: fmt.Sprintf("Asset_%d", n+1),
			Value:  asset.RemoteID,
		})
	}
	return row, nil
}
