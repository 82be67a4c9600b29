package disposition

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estateflow/checklist"
)

// Repository defines the data access required by the service.
type Repository interface {
	UpsertState(ctx context.Context, state LiquidationState) (LiquidationState, error)
	GetState(ctx context.Context, stateID string) (LiquidationState, error)
	GetStateByOwner(ctx context.Context, owner OwnerRef) (LiquidationState, error)
	InsertBrief(ctx context.Context, tx pgx.Tx, rec BriefRecord) (BriefRecord, error)
	SetActiveBrief(ctx context.Context, tx pgx.Tx, stateID, briefID string, status Status) error
	InsertPlan(ctx context.Context, tx pgx.Tx, rec PlanRecord) (PlanRecord, error)
	SetActivePlan(ctx context.Context, tx pgx.Tx, stateID, planID string) error
	GetBrief(ctx context.Context, briefID string) (BriefRecord, error)
	GetPlan(ctx context.Context, planID string) (PlanRecord, error)
	ListBriefs(ctx context.Context, stateID string) ([]BriefRecord, error)
	ListPlans(ctx context.Context, stateID string) ([]PlanRecord, error)
	UpdatePlanChecklist(ctx context.Context, tx pgx.Tx, planID string, rows []checklist.Row, status PlanStatus) (PlanRecord, error)
	UpdateStateStatus(ctx context.Context, tx pgx.Tx, stateID string, status Status) error
	SetStateStatus(ctx context.Context, stateID string, status Status, override *Status) (LiquidationState, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const stateColumns = `
	id, owner_kind::text, owner_id, status::text, manual_override::text,
	active_brief_id, active_plan_id, created_at, updated_at
`

// UpsertState creates the owner's state on first disposition action and is a
// no-op re-read on every later call.
func (r *PGRepository) UpsertState(ctx context.Context, state LiquidationState) (LiquidationState, error) {
	const query = `
		INSERT INTO liquidation_states (id, owner_kind, owner_id, status)
		VALUES ($1, $2::owner_kind, $3, $4::liquidation_status)
		ON CONFLICT (owner_kind, owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING ` + stateColumns

	return scanState(r.pool.QueryRow(ctx, query, state.ID, state.Owner.Kind, state.Owner.ID, state.Status))
}

func (r *PGRepository) GetState(ctx context.Context, stateID string) (LiquidationState, error) {
	const query = `SELECT ` + stateColumns + ` FROM liquidation_states WHERE id = $1`
	st, err := scanState(r.pool.QueryRow(ctx, query, stateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LiquidationState{}, ErrStateNotFound
		}
		return LiquidationState{}, fmt.Errorf("disposition: get state: %w", err)
	}
	return st, nil
}

func (r *PGRepository) GetStateByOwner(ctx context.Context, owner OwnerRef) (LiquidationState, error) {
	const query = `SELECT ` + stateColumns + ` FROM liquidation_states WHERE owner_kind = $1::owner_kind AND owner_id = $2`
	st, err := scanState(r.pool.QueryRow(ctx, query, owner.Kind, owner.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LiquidationState{}, ErrStateNotFound
		}
		return LiquidationState{}, fmt.Errorf("disposition: get state by owner: %w", err)
	}
	return st, nil
}

const briefColumns = `
	id, state_id, input_fingerprint, payload_version, provider, model,
	recommended_path::text, payload, created_at
`

// InsertBrief appends an immutable brief record inside the caller's
// transaction.
func (r *PGRepository) InsertBrief(ctx context.Context, tx pgx.Tx, rec BriefRecord) (BriefRecord, error) {
	const query = `
		INSERT INTO brief_records
			(id, state_id, input_fingerprint, payload_version, provider, model, recommended_path, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7::disposition_path, $8)
		RETURNING ` + briefColumns

	out, err := scanBrief(tx.QueryRow(ctx, query,
		rec.ID, rec.StateID, rec.InputFingerprint, rec.PayloadVersion,
		rec.Provider, rec.Model, rec.RecommendedPath, rec.Payload,
	))
	if err != nil {
		return BriefRecord{}, fmt.Errorf("disposition: insert brief: %w", err)
	}
	return out, nil
}

// SetActiveBrief swaps the state's active-brief pointer and status in one
// statement; the pointer model makes a second simultaneously-active brief
// unrepresentable.
func (r *PGRepository) SetActiveBrief(ctx context.Context, tx pgx.Tx, stateID, briefID string, status Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE liquidation_states
		SET active_brief_id = $2, status = $3::liquidation_status, updated_at = now()
		WHERE id = $1
	`, stateID, briefID, status)
	if err != nil {
		return fmt.Errorf("disposition: set active brief: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}

const planColumns = `
	id, state_id, derived_from_brief_id, chosen_path::text, status::text,
	payload_version, payload, created_at, updated_at
`

func (r *PGRepository) InsertPlan(ctx context.Context, tx pgx.Tx, rec PlanRecord) (PlanRecord, error) {
	version, payload, err := encodeChecklistPayload(rec.Checklist)
	if err != nil {
		return PlanRecord{}, err
	}

	const query = `
		INSERT INTO plan_records
			(id, state_id, derived_from_brief_id, chosen_path, status, payload_version, payload)
		VALUES ($1, $2, $3, $4::disposition_path, $5::plan_status, $6, $7)
		RETURNING ` + planColumns

	out, err := scanPlan(tx.QueryRow(ctx, query,
		rec.ID, rec.StateID, rec.DerivedFromBriefID, rec.ChosenPath, rec.Status, version, payload,
	))
	if err != nil {
		return PlanRecord{}, fmt.Errorf("disposition: insert plan: %w", err)
	}
	return out, nil
}

func (r *PGRepository) SetActivePlan(ctx context.Context, tx pgx.Tx, stateID, planID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE liquidation_states
		SET active_plan_id = $2, updated_at = now()
		WHERE id = $1
	`, stateID, planID)
	if err != nil {
		return fmt.Errorf("disposition: set active plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}

func (r *PGRepository) GetBrief(ctx context.Context, briefID string) (BriefRecord, error) {
	const query = `SELECT ` + briefColumns + ` FROM brief_records WHERE id = $1`
	rec, err := scanBrief(r.pool.QueryRow(ctx, query, briefID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BriefRecord{}, ErrBriefNotFound
		}
		return BriefRecord{}, fmt.Errorf("disposition: get brief: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) GetPlan(ctx context.Context, planID string) (PlanRecord, error) {
	const query = `SELECT ` + planColumns + ` FROM plan_records WHERE id = $1`
	rec, err := scanPlan(r.pool.QueryRow(ctx, query, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		if errors.Is(err, ErrUnsupportedPayloadVersion) {
			return PlanRecord{}, err
		}
		return PlanRecord{}, fmt.Errorf("disposition: get plan: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) ListBriefs(ctx context.Context, stateID string) ([]BriefRecord, error) {
	const query = `SELECT ` + briefColumns + ` FROM brief_records WHERE state_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, stateID)
	if err != nil {
		return nil, fmt.Errorf("disposition: list briefs: %w", err)
	}
	defer rows.Close()

	out := make([]BriefRecord, 0, 4)
	for rows.Next() {
		rec, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("disposition: scan brief: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("disposition: iterate briefs: %w", err)
	}
	return out, nil
}

// ListPlans returns the plan history, newest first. Plans whose payload
// version is unsupported are skipped rather than failing the listing: a
// decoding failure renders one record inert, not its siblings.
func (r *PGRepository) ListPlans(ctx context.Context, stateID string) ([]PlanRecord, error) {
	const query = `SELECT ` + planColumns + ` FROM plan_records WHERE state_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, stateID)
	if err != nil {
		return nil, fmt.Errorf("disposition: list plans: %w", err)
	}
	defer rows.Close()

	out := make([]PlanRecord, 0, 4)
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			if errors.Is(err, ErrUnsupportedPayloadVersion) {
				continue
			}
			return nil, fmt.Errorf("disposition: scan plan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("disposition: iterate plans: %w", err)
	}
	return out, nil
}

func (r *PGRepository) UpdatePlanChecklist(ctx context.Context, tx pgx.Tx, planID string, rows []checklist.Row, status PlanStatus) (PlanRecord, error) {
	version, payload, err := encodeChecklistPayload(rows)
	if err != nil {
		return PlanRecord{}, err
	}

	const query = `
		UPDATE plan_records
		SET payload_version = $2, payload = $3, status = $4::plan_status, updated_at = now()
		WHERE id = $1
		RETURNING ` + planColumns

	rec, err := scanPlan(tx.QueryRow(ctx, query, planID, version, payload, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("disposition: update plan checklist: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) UpdateStateStatus(ctx context.Context, tx pgx.Tx, stateID string, status Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE liquidation_states
		SET status = $2::liquidation_status, updated_at = now()
		WHERE id = $1
	`, stateID, status)
	if err != nil {
		return fmt.Errorf("disposition: update state status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}

// SetStateStatus writes both the visible status and the manual-override
// column outside any transaction; used for hold/not-applicable toggles.
func (r *PGRepository) SetStateStatus(ctx context.Context, stateID string, status Status, override *Status) (LiquidationState, error) {
	const query = `
		UPDATE liquidation_states
		SET status = $2::liquidation_status,
		    manual_override = $3::liquidation_status,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + stateColumns

	st, err := scanState(r.pool.QueryRow(ctx, query, stateID, status, override))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LiquidationState{}, ErrStateNotFound
		}
		return LiquidationState{}, fmt.Errorf("disposition: set state status: %w", err)
	}
	return st, nil
}

func scanState(row pgx.Row) (LiquidationState, error) {
	var (
		st       LiquidationState
		kind     string
		status   string
		override *string
	)
	err := row.Scan(
		&st.ID,
		&kind,
		&st.Owner.ID,
		&status,
		&override,
		&st.ActiveBriefID,
		&st.ActivePlanID,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return LiquidationState{}, err
	}
	st.Owner.Kind = OwnerKind(kind)
	st.Status = Status(status)
	if override != nil {
		o := Status(*override)
		st.ManualOverride = &o
	}
	return st, nil
}

func scanBrief(row pgx.Row) (BriefRecord, error) {
	var (
		rec  BriefRecord
		path string
	)
	err := row.Scan(
		&rec.ID,
		&rec.StateID,
		&rec.InputFingerprint,
		&rec.PayloadVersion,
		&rec.Provider,
		&rec.Model,
		&path,
		&rec.Payload,
		&rec.CreatedAt,
	)
	if err != nil {
		return BriefRecord{}, err
	}
	rec.RecommendedPath = Path(path)
	return rec, nil
}

func scanPlan(row pgx.Row) (PlanRecord, error) {
	var (
		rec     PlanRecord
		path    string
		status  string
		payload []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.StateID,
		&rec.DerivedFromBriefID,
		&path,
		&status,
		&rec.PayloadVersion,
		&payload,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return PlanRecord{}, err
	}
	rec.ChosenPath = Path(path)
	rec.Status = PlanStatus(status)

	rows, err := decodeChecklistPayload(rec.PayloadVersion, payload)
	if err != nil {
		return PlanRecord{}, err
	}
	rec.Checklist = rows
	return rec, nil
}
