package disposition

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"estateflow/checklist"
)

func newTestService(repo *stubRepo) (*Service, *fakePool) {
	pool := &fakePool{}
	n := 0
	svc := NewService(pool, repo, nil, nil).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }).
		WithClock(func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) })
	return svc, pool
}

func TestGetOrCreateStateValidatesOwner(t *testing.T) {
	svc, _ := newTestService(newStubRepo())

	_, err := svc.GetOrCreateState(context.Background(), OwnerRef{Kind: "warehouse", ID: "x"})
	if !errors.Is(err, ErrUnknownOwnerKind) {
		t.Fatalf("expected ErrUnknownOwnerKind, got %v", err)
	}
	if _, err := svc.GetOrCreateState(context.Background(), OwnerRef{Kind: OwnerItem, ID: ""}); err == nil {
		t.Fatal("expected error for missing owner id")
	}
}

func TestGetOrCreateStateIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	owner := OwnerRef{Kind: OwnerItem, ID: "item-1"}

	first, err := svc.GetOrCreateState(context.Background(), owner)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.GetOrCreateState(context.Background(), owner)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("owner got two states: %q and %q", first.ID, second.ID)
	}
	if len(repo.states) != 1 {
		t.Errorf("expected 1 state, have %d", len(repo.states))
	}
}

func TestRecordBriefRepointsAndBumpsStatus(t *testing.T) {
	repo := newStubRepo()
	svc, pool := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	rec, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{
		RecommendedPath: PathMaximizePrice,
		Provider:        "openai",
		Model:           "gpt-4o",
		Payload:         BriefPayload{Summary: "sell it"},
	}, "fp-1")
	if err != nil {
		t.Fatalf("record brief: %v", err)
	}

	if !pool.tx.committed {
		t.Error("expected commit")
	}
	got := repo.states[state.ID]
	if got.ActiveBriefID == nil || *got.ActiveBriefID != rec.ID {
		t.Errorf("active brief pointer = %v, want %q", got.ActiveBriefID, rec.ID)
	}
	if got.Status != StatusHasBrief {
		t.Errorf("status = %q, want has_brief", got.Status)
	}
	if rec.PayloadVersion != briefPayloadVersion {
		t.Errorf("payload version = %d, want %d", rec.PayloadVersion, briefPayloadVersion)
	}
}

func TestRecordBriefSupersedesPriorActive(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	first, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathDonate}, "fp-1")
	if err != nil {
		t.Fatalf("first brief: %v", err)
	}
	second, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathQuickExit}, "fp-2")
	if err != nil {
		t.Fatalf("second brief: %v", err)
	}

	got := repo.states[state.ID]
	if *got.ActiveBriefID != second.ID {
		t.Errorf("active = %q, want %q", *got.ActiveBriefID, second.ID)
	}
	history, err := svc.BriefHistory(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].ID != second.ID || history[1].ID != first.ID {
		t.Errorf("history not newest-first: %q, %q", history[0].ID, history[1].ID)
	}
}

func TestRecordBriefNeverRegressesProgressOrOverride(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)

	inProgress := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusInProgress)
	if _, err := svc.RecordBrief(context.Background(), inProgress.ID, BriefDraft{RecommendedPath: PathDonate}, "fp"); err != nil {
		t.Fatalf("brief on in-progress state: %v", err)
	}
	if got := repo.states[inProgress.ID].Status; got != StatusInProgress {
		t.Errorf("in-progress regressed to %q", got)
	}

	held := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-2"}, StatusOnHold)
	hold := StatusOnHold
	held.ManualOverride = &hold
	repo.states[held.ID] = held
	if _, err := svc.RecordBrief(context.Background(), held.ID, BriefDraft{RecommendedPath: PathDonate}, "fp"); err != nil {
		t.Fatalf("brief on held state: %v", err)
	}
	if got := repo.states[held.ID].Status; got != StatusOnHold {
		t.Errorf("override clobbered: %q", got)
	}
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, BriefRequest) (BriefDraft, error) {
	return BriefDraft{}, f.err
}

func TestGenerateBriefFailurePersistsNothing(t *testing.T) {
	repo := newStubRepo()
	pool := &fakePool{}
	boom := errors.New("provider timeout")
	svc := NewService(pool, repo, failingGenerator{err: boom}, nil)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	_, err := svc.GenerateBrief(context.Background(), state.ID, BriefRequest{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Stage != "brief" || !errors.Is(err, boom) {
		t.Errorf("error lost detail: %+v", genErr)
	}
	if len(repo.briefs) != 0 {
		t.Error("generator failure must persist nothing")
	}
	if got := repo.states[state.ID]; got.ActiveBriefID != nil || got.Status != StatusNotStarted {
		t.Errorf("state touched on failure: %+v", got)
	}
	if pool.tx != nil {
		t.Error("no transaction should start on generator failure")
	}
}

func TestRecordPlanRejectsForeignBrief(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	a := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-a"}, StatusNotStarted)
	b := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-b"}, StatusNotStarted)

	brief, err := svc.RecordBrief(context.Background(), a.ID, BriefDraft{RecommendedPath: PathDonate}, "fp")
	if err != nil {
		t.Fatalf("seed brief: %v", err)
	}

	_, err = svc.RecordPlan(context.Background(), b.ID, PlanParams{
		ChosenPath:         PathDonate,
		DerivedFromBriefID: &brief.ID,
	})
	if !errors.Is(err, ErrForeignBrief) {
		t.Fatalf("expected ErrForeignBrief, got %v", err)
	}
	if len(repo.plans) != 0 {
		t.Error("foreign-brief plan must not persist")
	}
}

func planTemplate(n int) []checklist.TemplateStep {
	steps := make([]checklist.TemplateStep, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, checklist.TemplateStep{
			ID:    fmt.Sprintf("step-%d", i+1),
			Order: i + 1,
			Text:  fmt.Sprintf("Step %d", i+1),
		})
	}
	return steps
}

func TestRecordPlanStartsNotStarted(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{
		ChosenPath: PathQuickExit,
		Steps:      planTemplate(3),
	})
	if err != nil {
		t.Fatalf("record plan: %v", err)
	}
	if plan.Status != PlanNotStarted {
		t.Errorf("status = %q, want not_started", plan.Status)
	}
	if len(plan.Checklist) != 3 {
		t.Errorf("checklist rows = %d, want 3", len(plan.Checklist))
	}
	got := repo.states[state.ID]
	if got.ActivePlanID == nil || *got.ActivePlanID != plan.ID {
		t.Errorf("active plan pointer = %v, want %q", got.ActivePlanID, plan.ID)
	}
}

func TestSetStepCompletionPropagatesToState(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	if _, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathQuickExit}, "fp"); err != nil {
		t.Fatalf("seed brief: %v", err)
	}
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathQuickExit, Steps: planTemplate(2)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	// a plan with zero progress leaves the state on has_brief
	if got := repo.states[state.ID].Status; got != StatusHasBrief {
		t.Fatalf("status after plan = %q, want has_brief", got)
	}

	plan, err = svc.SetStepCompletion(context.Background(), plan.ID, "step-1", true)
	if err != nil {
		t.Fatalf("complete step: %v", err)
	}
	if plan.Status != PlanInProgress {
		t.Errorf("plan status = %q, want in_progress", plan.Status)
	}
	if got := repo.states[state.ID].Status; got != StatusInProgress {
		t.Errorf("state status = %q, want in_progress", got)
	}

	plan, err = svc.SetStepCompletion(context.Background(), plan.ID, "step-2", true)
	if err != nil {
		t.Fatalf("complete last step: %v", err)
	}
	if plan.Status != PlanCompleted {
		t.Errorf("plan status = %q, want completed", plan.Status)
	}
	if got := repo.states[state.ID].Status; got != StatusCompleted {
		t.Errorf("state status = %q, want completed", got)
	}

	// unchecking drops back to in_progress
	plan, err = svc.SetStepCompletion(context.Background(), plan.ID, "step-2", false)
	if err != nil {
		t.Fatalf("uncheck step: %v", err)
	}
	if plan.Status != PlanInProgress {
		t.Errorf("plan status = %q, want in_progress", plan.Status)
	}
	if got := repo.states[state.ID].Status; got != StatusInProgress {
		t.Errorf("state status = %q, want in_progress", got)
	}
}

func TestSetStepCompletionNoOpSkipsPersist(t *testing.T) {
	repo := newStubRepo()
	svc, pool := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(1)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	pool.tx = nil
	if _, err := svc.SetStepCompletion(context.Background(), plan.ID, "step-1", false); err != nil {
		t.Fatalf("no-op completion: %v", err)
	}
	if pool.tx != nil {
		t.Error("no-op must not open a transaction")
	}

	if _, err := svc.SetStepCompletion(context.Background(), plan.ID, "missing", true); !errors.Is(err, checklist.ErrStepNotFound) {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}

func TestSetStepNoteDoesNotMoveStatus(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(2)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	plan, err = svc.SetStepNote(context.Background(), plan.ID, "step-1", "call goodwill first")
	if err != nil {
		t.Fatalf("set note: %v", err)
	}
	if plan.Status != PlanNotStarted {
		t.Errorf("note moved plan status to %q", plan.Status)
	}
	if got := repo.states[state.ID].Status; got != StatusNotStarted {
		t.Errorf("note moved state status to %q", got)
	}
	if n := plan.Checklist[0].Note; n == nil || *n != "call goodwill first" {
		t.Errorf("note = %v", n)
	}
}

func TestHoldAndResumePlan(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(2)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if _, err := svc.SetStepCompletion(context.Background(), plan.ID, "step-1", true); err != nil {
		t.Fatalf("progress: %v", err)
	}

	held, err := svc.HoldPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != PlanOnHold {
		t.Errorf("status = %q, want on_hold", held.Status)
	}
	stateStatus := repo.states[state.ID].Status
	if stateStatus != StatusInProgress {
		t.Errorf("holding the plan must not rewrite state status, got %q", stateStatus)
	}

	// edits while held keep the hold
	held, err = svc.SetStepCompletion(context.Background(), held.ID, "step-2", true)
	if err != nil {
		t.Fatalf("edit while held: %v", err)
	}
	if held.Status != PlanOnHold {
		t.Errorf("edit lifted the hold: %q", held.Status)
	}

	resumed, err := svc.ResumePlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != PlanCompleted {
		t.Errorf("resumed status = %q, want completed (all steps done)", resumed.Status)
	}
}

func TestPersistPlanRespectsManualStateOverride(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(1)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	if _, err := svc.PlaceOnHold(context.Background(), state.ID); err != nil {
		t.Fatalf("place on hold: %v", err)
	}
	if _, err := svc.SetStepCompletion(context.Background(), plan.ID, "step-1", true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := repo.states[state.ID].Status; got != StatusOnHold {
		t.Errorf("override clobbered by plan progress: %q", got)
	}
}

func TestClearOverrideReDerivesFromActivePlan(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(2)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if _, err := svc.SetStepCompletion(context.Background(), plan.ID, "step-1", true); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := svc.MarkNotApplicable(context.Background(), state.ID); err != nil {
		t.Fatalf("mark n/a: %v", err)
	}
	if got := repo.states[state.ID].Status; got != StatusNotApplicable {
		t.Fatalf("status = %q, want not_applicable", got)
	}

	cleared, err := svc.ClearOverride(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("clear override: %v", err)
	}
	if cleared.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", cleared.Status)
	}
	if cleared.ManualOverride != nil {
		t.Error("override not cleared")
	}
}

func TestClearOverrideToleratesUndecodableActivePlan(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)
	if _, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathDonate}, "fp"); err != nil {
		t.Fatalf("seed brief: %v", err)
	}
	plan, err := svc.RecordPlan(context.Background(), state.ID, PlanParams{ChosenPath: PathDonate, Steps: planTemplate(1)})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if _, err := svc.PlaceOnHold(context.Background(), state.ID); err != nil {
		t.Fatalf("hold: %v", err)
	}

	repo.getPlanErr[plan.ID] = fmt.Errorf("%w: checklist v9", ErrUnsupportedPayloadVersion)

	cleared, err := svc.ClearOverride(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("clear override: %v", err)
	}
	if cleared.Status != StatusHasBrief {
		t.Errorf("status = %q, want has_brief fallback", cleared.Status)
	}
}

func TestActiveBriefFallsBackToNewest(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo)
	state := repo.seedState(OwnerRef{Kind: OwnerItem, ID: "item-1"}, StatusNotStarted)

	if _, err := svc.ActiveBrief(context.Background(), state.ID); !errors.Is(err, ErrBriefNotFound) {
		t.Fatalf("expected ErrBriefNotFound, got %v", err)
	}

	if _, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathDonate}, "fp-1"); err != nil {
		t.Fatalf("brief 1: %v", err)
	}
	second, err := svc.RecordBrief(context.Background(), state.ID, BriefDraft{RecommendedPath: PathQuickExit}, "fp-2")
	if err != nil {
		t.Fatalf("brief 2: %v", err)
	}

	// simulate a legacy row with no pointer
	st := repo.states[state.ID]
	st.ActiveBriefID = nil
	repo.states[state.ID] = st

	got, err := svc.ActiveBrief(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("active brief: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("active = %q, want newest %q", got.ID, second.ID)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := BriefRequest{OwnerSnapshot: map[string]any{"name": "Rolex", "value": 8000.0}}
	b := BriefRequest{OwnerSnapshot: map[string]any{"value": 8000.0, "name": "Rolex"}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("identical inputs must fingerprint identically")
	}

	c := BriefRequest{OwnerSnapshot: map[string]any{"name": "Rolex", "value": 8001.0}}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("different inputs must fingerprint differently")
	}
}

// --- fakes ---

type stubRepo struct {
	states     map[string]LiquidationState
	briefs     map[string]BriefRecord
	plans      map[string]PlanRecord
	briefOrder []string
	planOrder  []string
	getPlanErr map[string]error
	seq        int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		states:     map[string]LiquidationState{},
		briefs:     map[string]BriefRecord{},
		plans:      map[string]PlanRecord{},
		getPlanErr: map[string]error{},
	}
}

func (r *stubRepo) seedState(owner OwnerRef, status Status) LiquidationState {
	r.seq++
	st := LiquidationState{ID: fmt.Sprintf("state-%d", r.seq), Owner: owner, Status: status}
	r.states[st.ID] = st
	return st
}

func (r *stubRepo) UpsertState(ctx context.Context, state LiquidationState) (LiquidationState, error) {
	for _, st := range r.states {
		if st.Owner == state.Owner {
			return st, nil
		}
	}
	r.states[state.ID] = state
	return state, nil
}

func (r *stubRepo) GetState(ctx context.Context, stateID string) (LiquidationState, error) {
	st, ok := r.states[stateID]
	if !ok {
		return LiquidationState{}, ErrStateNotFound
	}
	return st, nil
}

func (r *stubRepo) GetStateByOwner(ctx context.Context, owner OwnerRef) (LiquidationState, error) {
	for _, st := range r.states {
		if st.Owner == owner {
			return st, nil
		}
	}
	return LiquidationState{}, ErrStateNotFound
}

func (r *stubRepo) InsertBrief(ctx context.Context, tx pgx.Tx, rec BriefRecord) (BriefRecord, error) {
	r.briefs[rec.ID] = rec
	r.briefOrder = append(r.briefOrder, rec.ID)
	return rec, nil
}

func (r *stubRepo) SetActiveBrief(ctx context.Context, tx pgx.Tx, stateID, briefID string, status Status) error {
	st, ok := r.states[stateID]
	if !ok {
		return ErrStateNotFound
	}
	st.ActiveBriefID = &briefID
	st.Status = status
	r.states[stateID] = st
	return nil
}

func (r *stubRepo) InsertPlan(ctx context.Context, tx pgx.Tx, rec PlanRecord) (PlanRecord, error) {
	rec.PayloadVersion = checklistPayloadVersion
	r.plans[rec.ID] = rec
	r.planOrder = append(r.planOrder, rec.ID)
	return rec, nil
}

func (r *stubRepo) SetActivePlan(ctx context.Context, tx pgx.Tx, stateID, planID string) error {
	st, ok := r.states[stateID]
	if !ok {
		return ErrStateNotFound
	}
	st.ActivePlanID = &planID
	r.states[stateID] = st
	return nil
}

func (r *stubRepo) GetBrief(ctx context.Context, briefID string) (BriefRecord, error) {
	rec, ok := r.briefs[briefID]
	if !ok {
		return BriefRecord{}, ErrBriefNotFound
	}
	return rec, nil
}

func (r *stubRepo) GetPlan(ctx context.Context, planID string) (PlanRecord, error) {
	if err := r.getPlanErr[planID]; err != nil {
		return PlanRecord{}, err
	}
	rec, ok := r.plans[planID]
	if !ok {
		return PlanRecord{}, ErrPlanNotFound
	}
	cp := rec
	cp.Checklist = append([]checklist.Row(nil), rec.Checklist...)
	return cp, nil
}

func (r *stubRepo) ListBriefs(ctx context.Context, stateID string) ([]BriefRecord, error) {
	var out []BriefRecord
	for i := len(r.briefOrder) - 1; i >= 0; i-- {
		if rec := r.briefs[r.briefOrder[i]]; rec.StateID == stateID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubRepo) ListPlans(ctx context.Context, stateID string) ([]PlanRecord, error) {
	var out []PlanRecord
	for i := len(r.planOrder) - 1; i >= 0; i-- {
		if rec := r.plans[r.planOrder[i]]; rec.StateID == stateID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdatePlanChecklist(ctx context.Context, tx pgx.Tx, planID string, rows []checklist.Row, status PlanStatus) (PlanRecord, error) {
	rec, ok := r.plans[planID]
	if !ok {
		return PlanRecord{}, ErrPlanNotFound
	}
	rec.Checklist = append([]checklist.Row(nil), rows...)
	rec.Status = status
	r.plans[planID] = rec
	return rec, nil
}

func (r *stubRepo) UpdateStateStatus(ctx context.Context, tx pgx.Tx, stateID string, status Status) error {
	st, ok := r.states[stateID]
	if !ok {
		return ErrStateNotFound
	}
	st.Status = status
	r.states[stateID] = st
	return nil
}

func (r *stubRepo) SetStateStatus(ctx context.Context, stateID string, status Status, override *Status) (LiquidationState, error) {
	st, ok := r.states[stateID]
	if !ok {
		return LiquidationState{}, ErrStateNotFound
	}
	st.Status = status
	st.ManualOverride = override
	r.states[stateID] = st
	return st, nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
