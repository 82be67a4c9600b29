// Package checklist implements the generic ordered-step tracker shared by
// execution plans and lot readiness states. It operates on plain row slices so
// callers own persistence; every function here is pure apart from the injected
// clock.
package checklist

import (
	"errors"
	"strings"
	"time"
)

// ErrStepNotFound signals the referenced step has no row.
var ErrStepNotFound = errors.New("checklist: step not found")

// Status is the progress-derived lifecycle of a checklist owner.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// TemplateStep describes one step of an owner's canonical template.
type TemplateStep struct {
	ID      string
	Order   int
	Section string
	Text    string
}

// Row is the persisted completion state for a single step. StepID is the
// stable identity; Order is presentation-only and tracks the template.
type Row struct {
	StepID      string
	Order       int
	Section     string
	Text        string
	Completed   bool
	CompletedAt *time.Time
	Note        *string
}

// Reconcile merges persisted rows with the current template. Steps missing a
// row are backfilled, rows whose step left the template are preserved after
// the templated ones, and repeated calls never duplicate a row. Text and
// order of templated rows follow the template so renames propagate.
func Reconcile(template []TemplateStep, rows []Row) []Row {
	existing := make(map[string]Row, len(rows))
	for _, r := range rows {
		existing[r.StepID] = r
	}

	out := make([]Row, 0, len(template)+len(rows))
	templated := make(map[string]bool, len(template))
	for _, step := range template {
		templated[step.ID] = true
		row, ok := existing[step.ID]
		if !ok {
			row = Row{StepID: step.ID}
		}
		row.Order = step.Order
		row.Section = step.Section
		row.Text = step.Text
		out = append(out, row)
	}

	// Rows for steps no longer in the template keep their persisted state and
	// relative order.
	for _, r := range rows {
		if !templated[r.StepID] {
			out = append(out, r)
		}
	}

	return out
}

// SetCompletion flips the completion state of one step. Unchanged values are
// a no-op; on a real change the completion timestamp is set or cleared.
// Returns whether anything changed.
func SetCompletion(rows []Row, stepID string, done bool, now func() time.Time) (bool, error) {
	for i := range rows {
		if rows[i].StepID != stepID {
			continue
		}
		if rows[i].Completed == done {
			return false, nil
		}
		rows[i].Completed = done
		if done {
			ts := now()
			rows[i].CompletedAt = &ts
		} else {
			rows[i].CompletedAt = nil
		}
		return true, nil
	}
	return false, ErrStepNotFound
}

// SetNote attaches or clears a free-text note on a step, independent of its
// completion state. Blank input normalizes to absence rather than an empty
// string. Returns whether anything changed.
func SetNote(rows []Row, stepID string, note string) (bool, error) {
	for i := range rows {
		if rows[i].StepID != stepID {
			continue
		}
		trimmed := strings.TrimSpace(note)
		if trimmed == "" {
			if rows[i].Note == nil {
				return false, nil
			}
			rows[i].Note = nil
			return true, nil
		}
		if rows[i].Note != nil && *rows[i].Note == trimmed {
			return false, nil
		}
		rows[i].Note = &trimmed
		return true, nil
	}
	return false, ErrStepNotFound
}

// Progress reports the completed fraction, 0 when there are no steps.
func Progress(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	done := 0
	for _, r := range rows {
		if r.Completed {
			done++
		}
	}
	return float64(done) / float64(len(rows))
}

// DeriveStatus maps progress onto the standard lifecycle. Manual overrides
// (on-hold, not-applicable) are owned by callers and never derived here.
func DeriveStatus(rows []Row) Status {
	p := Progress(rows)
	switch {
	case p == 0:
		return StatusNotStarted
	case p >= 1 && len(rows) > 0:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}
