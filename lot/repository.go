package lot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"estateflow/checklist"
)

// Repository defines the data access required by the service.
type Repository interface {
	UpsertState(ctx context.Context, state State) (State, error)
	MaterializeRows(ctx context.Context, stateID string, steps []checklist.TemplateStep) error
	ListRows(ctx context.Context, stateID string) ([]checklist.Row, error)
	SetCompletion(ctx context.Context, stateID, stepID string, done bool, completedAt *time.Time) (bool, error)
	SetNote(ctx context.Context, stateID, stepID string, note *string) (bool, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UpsertState lazily creates the (batch, lot) state on first checklist
// access; later calls re-read the existing row.
func (r *PGRepository) UpsertState(ctx context.Context, state State) (State, error) {
	const query = `
		INSERT INTO execution_lot_states (id, batch_id, lot_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (batch_id, lot_number) DO UPDATE SET batch_id = EXCLUDED.batch_id
		RETURNING id, batch_id, lot_number
	`

	var out State
	if err := r.pool.QueryRow(ctx, query, state.ID, state.BatchID, state.LotNumber).
		Scan(&out.ID, &out.BatchID, &out.LotNumber); err != nil {
		return State{}, fmt.Errorf("lot: upsert state: %w", err)
	}
	return out, nil
}

// MaterializeRows backfills one row per canonical step. Idempotent: repeated
// access creates nothing, template growth adds only the missing rows, and
// rows for steps removed from the template are left alone.
func (r *PGRepository) MaterializeRows(ctx context.Context, stateID string, steps []checklist.TemplateStep) error {
	const query = `
		INSERT INTO lot_checklist_rows (lot_state_id, step_id)
		VALUES ($1, $2)
		ON CONFLICT (lot_state_id, step_id) DO NOTHING
	`

	for _, step := range steps {
		if _, err := r.pool.Exec(ctx, query, stateID, step.ID); err != nil {
			return fmt.Errorf("lot: materialize row %s: %w", step.ID, err)
		}
	}
	return nil
}

// ListRows returns persisted completion state in insertion order; display
// order and text come from the canonical template at read time.
func (r *PGRepository) ListRows(ctx context.Context, stateID string) ([]checklist.Row, error) {
	const query = `
		SELECT step_id, is_complete, completed_at, note
		FROM lot_checklist_rows
		WHERE lot_state_id = $1
		ORDER BY created_at, step_id
	`

	rows, err := r.pool.Query(ctx, query, stateID)
	if err != nil {
		return nil, fmt.Errorf("lot: list rows: %w", err)
	}
	defer rows.Close()

	out := make([]checklist.Row, 0, 8)
	for rows.Next() {
		var row checklist.Row
		if err := rows.Scan(&row.StepID, &row.Completed, &row.CompletedAt, &row.Note); err != nil {
			return nil, fmt.Errorf("lot: scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lot: iterate rows: %w", err)
	}
	return out, nil
}

// SetCompletion writes the completion flag in a single guarded statement so
// concurrent toggles converge per-field instead of amplifying lost updates.
// Returns false without error when the value was already current.
func (r *PGRepository) SetCompletion(ctx context.Context, stateID, stepID string, done bool, completedAt *time.Time) (bool, error) {
	const query = `
		UPDATE lot_checklist_rows
		SET is_complete = $3, completed_at = $4
		WHERE lot_state_id = $1 AND step_id = $2 AND is_complete IS DISTINCT FROM $3
	`

	tag, err := r.pool.Exec(ctx, query, stateID, stepID, done, completedAt)
	if err != nil {
		return false, fmt.Errorf("lot: set completion: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.ensureRowExists(ctx, stateID, stepID)
}

// SetNote writes or clears the note independently of completion. A nil note
// is absence, not empty string.
func (r *PGRepository) SetNote(ctx context.Context, stateID, stepID string, note *string) (bool, error) {
	const query = `
		UPDATE lot_checklist_rows
		SET note = $3
		WHERE lot_state_id = $1 AND step_id = $2 AND note IS DISTINCT FROM $3
	`

	tag, err := r.pool.Exec(ctx, query, stateID, stepID, note)
	if err != nil {
		return false, fmt.Errorf("lot: set note: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.ensureRowExists(ctx, stateID, stepID)
}

func (r *PGRepository) ensureRowExists(ctx context.Context, stateID, stepID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM lot_checklist_rows WHERE lot_state_id = $1 AND step_id = $2)`,
		stateID, stepID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lot: verify row: %w", err)
	}
	if !exists {
		return checklist.ErrStepNotFound
	}
	return nil
}
