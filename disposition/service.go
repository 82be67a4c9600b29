package disposition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"estateflow/checklist"
	"estateflow/scenario"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BriefRequest is the input handed to the brief generation collaborator.
type BriefRequest struct {
	OwnerSnapshot map[string]any
	Scenario      scenario.Descriptor
}

// BriefDraft is a fully-formed generation result, ready to persist.
type BriefDraft struct {
	RecommendedPath Path
	Provider        string
	Model           string
	Payload         BriefPayload
}

// BriefGenerator is the consumed AI collaborator. Failures are typed and
// never partially applied.
type BriefGenerator interface {
	Generate(ctx context.Context, req BriefRequest) (BriefDraft, error)
}

// PlanRequest is the input handed to the plan generation collaborator.
type PlanRequest struct {
	Brief      *BriefRecord
	Scenario   scenario.Descriptor
	ChosenPath Path
}

// PlanGenerator produces the ordered checklist for a chosen path.
type PlanGenerator interface {
	BuildChecklist(ctx context.Context, req PlanRequest) ([]checklist.TemplateStep, error)
}

// Service exposes the disposition state store: the only mutation surface for
// liquidation states, brief records, and plan records.
type Service struct {
	pool   TxBeginner
	repo   Repository
	briefs BriefGenerator
	plans  PlanGenerator
	idGen  func() string
	now    func() time.Time
}

func NewService(pool TxBeginner, repo Repository, briefs BriefGenerator, plans PlanGenerator) *Service {
	return &Service{
		pool:   pool,
		repo:   repo,
		briefs: briefs,
		plans:  plans,
		idGen:  func() string { return uuid.NewString() },
		now:    time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrCreateState returns the owner's liquidation state, creating it on the
// first disposition action. Idempotent: one state per owner, ever.
func (s *Service) GetOrCreateState(ctx context.Context, owner OwnerRef) (LiquidationState, error) {
	if err := owner.Validate(); err != nil {
		return LiquidationState{}, err
	}
	return s.repo.UpsertState(ctx, LiquidationState{
		ID:     s.idGen(),
		Owner:  owner,
		Status: StatusNotStarted,
	})
}

// State returns the liquidation state by id.
func (s *Service) State(ctx context.Context, stateID string) (LiquidationState, error) {
	return s.repo.GetState(ctx, stateID)
}

// StateByOwner returns the owner's liquidation state without creating one.
func (s *Service) StateByOwner(ctx context.Context, owner OwnerRef) (LiquidationState, error) {
	if err := owner.Validate(); err != nil {
		return LiquidationState{}, err
	}
	return s.repo.GetStateByOwner(ctx, owner)
}

// Fingerprint produces the canonical hash of a generation input, used for
// dedupe and reproducibility of brief records.
func Fingerprint(req BriefRequest) string {
	canonical := struct {
		OwnerSnapshot map[string]any      `json:"owner_snapshot"`
		Scenario      scenario.Descriptor `json:"scenario"`
	}{req.OwnerSnapshot, req.Scenario}

	// Map keys marshal sorted, so identical inputs hash identically.
	b, err := json.Marshal(canonical)
	if err != nil {
		b = []byte(fmt.Sprintf("%+v", canonical))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GenerateBrief invokes the brief collaborator and records the result. On
// generator failure nothing is persisted and the prior active brief stands.
func (s *Service) GenerateBrief(ctx context.Context, stateID string, req BriefRequest) (BriefRecord, error) {
	draft, err := s.briefs.Generate(ctx, req)
	if err != nil {
		return BriefRecord{}, &GenerationError{Stage: "brief", Err: err}
	}
	return s.RecordBrief(ctx, stateID, draft, Fingerprint(req))
}

// RecordBrief appends an immutable brief record and atomically repoints the
// state's active brief. Either the full record lands or nothing does.
func (s *Service) RecordBrief(ctx context.Context, stateID string, draft BriefDraft, inputFingerprint string) (BriefRecord, error) {
	state, err := s.repo.GetState(ctx, stateID)
	if err != nil {
		return BriefRecord{}, err
	}

	version, payload, err := encodeBriefPayload(draft.Payload)
	if err != nil {
		return BriefRecord{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return BriefRecord{}, fmt.Errorf("disposition: begin brief tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.InsertBrief(ctx, tx, BriefRecord{
		ID:               s.idGen(),
		StateID:          stateID,
		InputFingerprint: inputFingerprint,
		PayloadVersion:   version,
		Provider:         draft.Provider,
		Model:            draft.Model,
		RecommendedPath:  draft.RecommendedPath,
		Payload:          payload,
	})
	if err != nil {
		return BriefRecord{}, err
	}

	if err := s.repo.SetActiveBrief(ctx, tx, stateID, rec.ID, statusAfterBrief(state)); err != nil {
		return BriefRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BriefRecord{}, fmt.Errorf("disposition: commit brief tx: %w", err)
	}
	return rec, nil
}

// statusAfterBrief bumps NotStarted to HasBrief; execution progress and
// manual overrides are never regressed by a new brief.
func statusAfterBrief(state LiquidationState) Status {
	if state.ManualOverride != nil {
		return *state.ManualOverride
	}
	if state.Status == StatusNotStarted {
		return StatusHasBrief
	}
	return state.Status
}

// PlanParams carries everything needed to record a new plan.
type PlanParams struct {
	ChosenPath         Path
	Steps              []checklist.TemplateStep
	DerivedFromBriefID *string
}

// GeneratePlan invokes the plan collaborator for the chosen path and records
// the resulting checklist. Generator failure persists nothing.
func (s *Service) GeneratePlan(ctx context.Context, stateID string, req PlanRequest) (PlanRecord, error) {
	steps, err := s.plans.BuildChecklist(ctx, req)
	if err != nil {
		return PlanRecord{}, &GenerationError{Stage: "plan", Err: err}
	}
	params := PlanParams{ChosenPath: req.ChosenPath, Steps: steps}
	if req.Brief != nil {
		params.DerivedFromBriefID = &req.Brief.ID
	}
	return s.RecordPlan(ctx, stateID, params)
}

// RecordPlan appends a plan record and repoints the state's active plan. A
// derived-from brief must belong to the same state.
func (s *Service) RecordPlan(ctx context.Context, stateID string, params PlanParams) (PlanRecord, error) {
	if params.DerivedFromBriefID != nil {
		brief, err := s.repo.GetBrief(ctx, *params.DerivedFromBriefID)
		if err != nil {
			return PlanRecord{}, err
		}
		if brief.StateID != stateID {
			return PlanRecord{}, ErrForeignBrief
		}
	}

	rows := checklist.Reconcile(params.Steps, nil)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("disposition: begin plan tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.InsertPlan(ctx, tx, PlanRecord{
		ID:                 s.idGen(),
		StateID:            stateID,
		DerivedFromBriefID: params.DerivedFromBriefID,
		ChosenPath:         params.ChosenPath,
		Status:             planStatusFrom(rows),
		Checklist:          rows,
	})
	if err != nil {
		return PlanRecord{}, err
	}

	if err := s.repo.SetActivePlan(ctx, tx, stateID, rec.ID); err != nil {
		return PlanRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PlanRecord{}, fmt.Errorf("disposition: commit plan tx: %w", err)
	}
	return rec, nil
}

// ActiveBrief resolves the state's active brief: the pointer target when set,
// otherwise the most recent record.
func (s *Service) ActiveBrief(ctx context.Context, stateID string) (BriefRecord, error) {
	state, err := s.repo.GetState(ctx, stateID)
	if err != nil {
		return BriefRecord{}, err
	}
	if state.ActiveBriefID != nil {
		return s.repo.GetBrief(ctx, *state.ActiveBriefID)
	}
	briefs, err := s.repo.ListBriefs(ctx, stateID)
	if err != nil {
		return BriefRecord{}, err
	}
	if len(briefs) == 0 {
		return BriefRecord{}, ErrBriefNotFound
	}
	return briefs[0], nil
}

// ActivePlan resolves the state's active plan, falling back to the most
// recent record when the pointer is unset.
func (s *Service) ActivePlan(ctx context.Context, stateID string) (PlanRecord, error) {
	state, err := s.repo.GetState(ctx, stateID)
	if err != nil {
		return PlanRecord{}, err
	}
	if state.ActivePlanID != nil {
		return s.repo.GetPlan(ctx, *state.ActivePlanID)
	}
	plans, err := s.repo.ListPlans(ctx, stateID)
	if err != nil {
		return PlanRecord{}, err
	}
	if len(plans) == 0 {
		return PlanRecord{}, ErrPlanNotFound
	}
	return plans[0], nil
}

// BriefHistory returns every brief record, newest first.
func (s *Service) BriefHistory(ctx context.Context, stateID string) ([]BriefRecord, error) {
	return s.repo.ListBriefs(ctx, stateID)
}

// PlanHistory returns every decodable plan record, newest first.
func (s *Service) PlanHistory(ctx context.Context, stateID string) ([]PlanRecord, error) {
	return s.repo.ListPlans(ctx, stateID)
}

// UpdatePlanChecklist reconciles the plan's rows against a new template
// (additive backfill, renames propagate, removed steps' rows survive) and
// persists the result with derived statuses.
func (s *Service) UpdatePlanChecklist(ctx context.Context, planID string, template []checklist.TemplateStep) (PlanRecord, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanRecord{}, err
	}
	rows := checklist.Reconcile(template, plan.Checklist)
	return s.persistPlan(ctx, plan, rows)
}

// SetStepCompletion toggles one plan step. Unchanged values are a no-op and
// touch nothing.
func (s *Service) SetStepCompletion(ctx context.Context, planID, stepID string, done bool) (PlanRecord, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanRecord{}, err
	}
	changed, err := checklist.SetCompletion(plan.Checklist, stepID, done, s.now)
	if err != nil {
		return PlanRecord{}, err
	}
	if !changed {
		return plan, nil
	}
	return s.persistPlan(ctx, plan, plan.Checklist)
}

// SetStepNote attaches or clears a note on one plan step, independent of
// completion.
func (s *Service) SetStepNote(ctx context.Context, planID, stepID, note string) (PlanRecord, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanRecord{}, err
	}
	changed, err := checklist.SetNote(plan.Checklist, stepID, note)
	if err != nil {
		return PlanRecord{}, err
	}
	if !changed {
		return plan, nil
	}
	return s.persistPlan(ctx, plan, plan.Checklist)
}

// HoldPlan parks the plan regardless of progress until ResumePlan.
func (s *Service) HoldPlan(ctx context.Context, planID string) (PlanRecord, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanRecord{}, err
	}
	return s.persistPlanWithStatus(ctx, plan, plan.Checklist, PlanOnHold)
}

// ResumePlan lifts a manual hold; status derives from progress again.
func (s *Service) ResumePlan(ctx context.Context, planID string) (PlanRecord, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanRecord{}, err
	}
	return s.persistPlanWithStatus(ctx, plan, plan.Checklist, planStatusFrom(plan.Checklist))
}

func (s *Service) persistPlan(ctx context.Context, plan PlanRecord, rows []checklist.Row) (PlanRecord, error) {
	status := planStatusFrom(rows)
	if plan.Status == PlanOnHold {
		status = PlanOnHold
	}
	return s.persistPlanWithStatus(ctx, plan, rows, status)
}

// persistPlanWithStatus writes the checklist payload and, when this plan is
// the state's active plan, propagates the derived status to the owning state
// in the same transaction. Manual state overrides are never clobbered.
func (s *Service) persistPlanWithStatus(ctx context.Context, plan PlanRecord, rows []checklist.Row, status PlanStatus) (PlanRecord, error) {
	state, err := s.repo.GetState(ctx, plan.StateID)
	if err != nil {
		return PlanRecord{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("disposition: begin checklist tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.repo.UpdatePlanChecklist(ctx, tx, plan.ID, rows, status)
	if err != nil {
		return PlanRecord{}, err
	}

	if status != PlanOnHold && state.ManualOverride == nil && state.ActivePlanID != nil && *state.ActivePlanID == plan.ID {
		next := stateStatusFrom(status, state)
		if next != state.Status {
			if err := s.repo.UpdateStateStatus(ctx, tx, state.ID, next); err != nil {
				return PlanRecord{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return PlanRecord{}, fmt.Errorf("disposition: commit checklist tx: %w", err)
	}
	return updated, nil
}

// stateStatusFrom derives the owning state's status from the active plan. A
// zero-progress plan derives NotStarted (or HasBrief when a brief exists);
// merely having a plan does not make the state in-progress.
func stateStatusFrom(planStatus PlanStatus, state LiquidationState) Status {
	switch planStatus {
	case PlanCompleted:
		return StatusCompleted
	case PlanInProgress:
		return StatusInProgress
	default:
		if state.ActiveBriefID != nil {
			return StatusHasBrief
		}
		return StatusNotStarted
	}
}

// PlaceOnHold sets the manual on-hold override on the state.
func (s *Service) PlaceOnHold(ctx context.Context, stateID string) (LiquidationState, error) {
	hold := StatusOnHold
	return s.repo.SetStateStatus(ctx, stateID, StatusOnHold, &hold)
}

// MarkNotApplicable sets the manual not-applicable override on the state.
func (s *Service) MarkNotApplicable(ctx context.Context, stateID string) (LiquidationState, error) {
	na := StatusNotApplicable
	return s.repo.SetStateStatus(ctx, stateID, StatusNotApplicable, &na)
}

// ClearOverride removes a manual override and re-derives status from the
// active plan and brief.
func (s *Service) ClearOverride(ctx context.Context, stateID string) (LiquidationState, error) {
	state, err := s.repo.GetState(ctx, stateID)
	if err != nil {
		return LiquidationState{}, err
	}

	derived := StatusNotStarted
	if state.ActiveBriefID != nil {
		derived = StatusHasBrief
	}
	if state.ActivePlanID != nil {
		plan, err := s.repo.GetPlan(ctx, *state.ActivePlanID)
		switch {
		case err == nil:
			derived = stateStatusFrom(plan.Status, state)
		case errors.Is(err, ErrUnsupportedPayloadVersion):
			// Undecodable active plan stays inert; fall back to brief-derived.
		default:
			return LiquidationState{}, err
		}
	}

	return s.repo.SetStateStatus(ctx, stateID, derived, nil)
}
