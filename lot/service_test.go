package lot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"estateflow/checklist"
)

type fakeRepo struct {
	states map[string]State // keyed by batch/lot
	rows   map[string]map[string]checklist.Row
	order  map[string][]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		states: map[string]State{},
		rows:   map[string]map[string]checklist.Row{},
		order:  map[string][]string{},
	}
}

func key(batchID string, lotNumber int) string {
	return fmt.Sprintf("%s/%d", batchID, lotNumber)
}

func (f *fakeRepo) UpsertState(ctx context.Context, state State) (State, error) {
	k := key(state.BatchID, state.LotNumber)
	if st, ok := f.states[k]; ok {
		return st, nil
	}
	f.states[k] = state
	f.rows[state.ID] = map[string]checklist.Row{}
	return state, nil
}

func (f *fakeRepo) MaterializeRows(ctx context.Context, stateID string, steps []checklist.TemplateStep) error {
	for _, step := range steps {
		if _, ok := f.rows[stateID][step.ID]; ok {
			continue
		}
		f.rows[stateID][step.ID] = checklist.Row{StepID: step.ID}
		f.order[stateID] = append(f.order[stateID], step.ID)
	}
	return nil
}

func (f *fakeRepo) ListRows(ctx context.Context, stateID string) ([]checklist.Row, error) {
	out := make([]checklist.Row, 0, len(f.order[stateID]))
	for _, id := range f.order[stateID] {
		out = append(out, f.rows[stateID][id])
	}
	return out, nil
}

func (f *fakeRepo) SetCompletion(ctx context.Context, stateID, stepID string, done bool, completedAt *time.Time) (bool, error) {
	row, ok := f.rows[stateID][stepID]
	if !ok {
		return false, checklist.ErrStepNotFound
	}
	if row.Completed == done {
		return false, nil
	}
	row.Completed = done
	row.CompletedAt = completedAt
	f.rows[stateID][stepID] = row
	return true, nil
}

func (f *fakeRepo) SetNote(ctx context.Context, stateID, stepID string, note *string) (bool, error) {
	row, ok := f.rows[stateID][stepID]
	if !ok {
		return false, checklist.ErrStepNotFound
	}
	row.Note = note
	f.rows[stateID][stepID] = row
	return true, nil
}

func newTestService(repo *fakeRepo) *Service {
	n := 0
	return NewService(repo).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("lot-%d", n) }).
		WithClock(func() time.Time { return time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC) })
}

func TestChecklistLazilyCreatesStateAndRows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	state, rows, err := svc.Checklist(context.Background(), "batch-1", 3)
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	if state.BatchID != "batch-1" || state.LotNumber != 3 {
		t.Errorf("state = %+v", state)
	}

	tpl := CanonicalTemplate()
	if len(rows) != len(tpl) {
		t.Fatalf("rows = %d, want %d", len(rows), len(tpl))
	}
	for i, r := range rows {
		if r.StepID != tpl[i].ID {
			t.Errorf("row %d: %q, want %q", i, r.StepID, tpl[i].ID)
		}
		if r.Order != tpl[i].Order || r.Section != tpl[i].Section || r.Text != tpl[i].Text {
			t.Errorf("row %d missing template presentation: %+v", i, r)
		}
		if r.Completed {
			t.Errorf("row %d must start incomplete", i)
		}
	}
}

func TestChecklistRepeatAccessCreatesNothing(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	if _, _, err := svc.Checklist(context.Background(), "batch-1", 1); err != nil {
		t.Fatalf("first access: %v", err)
	}
	if _, _, err := svc.Checklist(context.Background(), "batch-1", 1); err != nil {
		t.Fatalf("second access: %v", err)
	}
	if len(repo.states) != 1 {
		t.Errorf("states = %d, want 1", len(repo.states))
	}
	var stateID string
	for _, st := range repo.states {
		stateID = st.ID
	}
	if len(repo.rows[stateID]) != len(CanonicalTemplate()) {
		t.Errorf("rows = %d, want %d", len(repo.rows[stateID]), len(CanonicalTemplate()))
	}
}

func TestLotsAreIndependent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	if err := svc.SetCompletion(context.Background(), "batch-1", 1, "prep.clean", true); err != nil {
		t.Fatalf("complete lot 1: %v", err)
	}

	_, rows, err := svc.Checklist(context.Background(), "batch-1", 2)
	if err != nil {
		t.Fatalf("checklist lot 2: %v", err)
	}
	for _, r := range rows {
		if r.Completed {
			t.Errorf("lot 2 inherited completion on %q", r.StepID)
		}
	}
}

func TestSetCompletionStampsClock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	if err := svc.SetCompletion(context.Background(), "b", 1, "doc.photos", true); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, rows, err := svc.Checklist(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	want := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	for _, r := range rows {
		if r.StepID != "doc.photos" {
			continue
		}
		if !r.Completed || r.CompletedAt == nil || !r.CompletedAt.Equal(want) {
			t.Fatalf("row = %+v, want completed at %v", r, want)
		}
	}

	if err := svc.SetCompletion(context.Background(), "b", 1, "doc.photos", false); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	_, rows, _ = svc.Checklist(context.Background(), "b", 1)
	for _, r := range rows {
		if r.StepID == "doc.photos" && (r.Completed || r.CompletedAt != nil) {
			t.Fatalf("uncompleting must clear: %+v", r)
		}
	}
}

func TestSetCompletionUnknownStep(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	err := svc.SetCompletion(context.Background(), "b", 1, "no.such.step", true)
	if !errors.Is(err, checklist.ErrStepNotFound) {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}

func TestSetNoteBlankClears(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	if err := svc.SetNote(context.Background(), "b", 1, "stage.labels", "  use red stickers  "); err != nil {
		t.Fatalf("set note: %v", err)
	}
	_, rows, _ := svc.Checklist(context.Background(), "b", 1)
	for _, r := range rows {
		if r.StepID == "stage.labels" {
			if r.Note == nil || *r.Note != "use red stickers" {
				t.Fatalf("note = %v", r.Note)
			}
		}
	}

	if err := svc.SetNote(context.Background(), "b", 1, "stage.labels", "   "); err != nil {
		t.Fatalf("clear note: %v", err)
	}
	_, rows, _ = svc.Checklist(context.Background(), "b", 1)
	for _, r := range rows {
		if r.StepID == "stage.labels" && r.Note != nil {
			t.Fatalf("blank note must clear to nil, got %q", *r.Note)
		}
	}
}

func TestProgressDerivation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	p, status, err := svc.Progress(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p != 0 || status != checklist.StatusNotStarted {
		t.Errorf("fresh lot: progress=%v status=%q", p, status)
	}

	tpl := CanonicalTemplate()
	for _, step := range tpl[:2] {
		if err := svc.SetCompletion(context.Background(), "b", 1, step.ID, true); err != nil {
			t.Fatalf("complete %s: %v", step.ID, err)
		}
	}
	p, status, _ = svc.Progress(context.Background(), "b", 1)
	if p != 0.25 || status != checklist.StatusInProgress {
		t.Errorf("partial lot: progress=%v status=%q", p, status)
	}

	for _, step := range tpl {
		if err := svc.SetCompletion(context.Background(), "b", 1, step.ID, true); err != nil {
			t.Fatalf("complete %s: %v", step.ID, err)
		}
	}
	p, status, _ = svc.Progress(context.Background(), "b", 1)
	if p != 1 || status != checklist.StatusCompleted {
		t.Errorf("done lot: progress=%v status=%q", p, status)
	}
}

func TestCanonicalTemplateShape(t *testing.T) {
	tpl := CanonicalTemplate()
	if len(tpl) != 8 {
		t.Fatalf("template steps = %d, want 8", len(tpl))
	}
	seen := map[string]bool{}
	sections := map[string]bool{}
	for i, s := range tpl {
		if s.Order != i+1 {
			t.Errorf("step %q order = %d, want %d", s.ID, s.Order, i+1)
		}
		if seen[s.ID] {
			t.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
		sections[s.Section] = true
	}
	if len(sections) != 4 {
		t.Errorf("sections = %d, want 4", len(sections))
	}
}
