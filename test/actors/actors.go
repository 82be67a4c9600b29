package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateUpserter races concurrent upserts for the same owner; the unique
// constraint must collapse them into a single state row.
func StateUpserter(ctx context.Context, pool *pgxpool.Pool, ownerKind, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO liquidation_states (owner_kind, owner_id)
                                   VALUES ($1::owner_kind, $2)
                                   ON CONFLICT (owner_kind, owner_id) DO NOTHING`, ownerKind, ownerID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// expected under contention
			} else {
				return fmt.Errorf("upserter insert: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// BriefRecorder appends brief records and swaps the active pointer in one
// transaction, never touching a status pinned by a manual override.
func BriefRecorder(ctx context.Context, pool *pgxpool.Pool, stateID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var briefID string
		err = tx.QueryRow(ctx, `INSERT INTO brief_records (state_id, input_fingerprint, payload_version, recommended_path, payload)
                                 VALUES ($1, $2, 1, 'quick_exit', '{"summary":"stress"}'::jsonb)
                                 RETURNING id`, stateID, fmt.Sprintf("fp-%d", rand.Int63())).Scan(&briefID)
		if err == nil {
			_, err = tx.Exec(ctx, `UPDATE liquidation_states
                                    SET active_brief_id = $1,
                                        status = CASE
                                            WHEN manual_override IS NOT NULL THEN manual_override
                                            WHEN status = 'not_started' THEN 'has_brief'::liquidation_status
                                            ELSE status
                                        END,
                                        updated_at = NOW()
                                    WHERE id = $2`, briefID, stateID)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("brief recorder: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("brief recorder commit: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// PlanRecorder derives plans from whatever brief is active at read time and
// swaps the active plan pointer; briefless states are skipped.
func PlanRecorder(ctx context.Context, pool *pgxpool.Pool, stateID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var briefID *string
		err = tx.QueryRow(ctx, `SELECT active_brief_id FROM liquidation_states WHERE id=$1 FOR UPDATE`, stateID).Scan(&briefID)
		if err == nil && briefID != nil {
			var planID string
			err = tx.QueryRow(ctx, `INSERT INTO plan_records (state_id, derived_from_brief_id, chosen_path, status, payload_version, payload)
                                     VALUES ($1, $2, 'quick_exit', 'in_progress', 2, '{"steps":[]}'::jsonb)
                                     RETURNING id`, stateID, *briefID).Scan(&planID)
			if err == nil {
				_, err = tx.Exec(ctx, `UPDATE liquidation_states
                                        SET active_plan_id = $1,
                                            status = CASE
                                                WHEN manual_override IS NOT NULL THEN manual_override
                                                ELSE 'in_progress'::liquidation_status
                                            END,
                                            updated_at = NOW()
                                        WHERE id = $2`, planID, stateID)
			}
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("plan recorder: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("plan recorder commit: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// OverrideFlipper pins and clears a manual hold, keeping status and override
// in lockstep.
func OverrideFlipper(ctx context.Context, pool *pgxpool.Pool, stateID string, stop <-chan struct{}) error {
	pinned := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var err error
		if pinned {
			_, err = pool.Exec(ctx, `UPDATE liquidation_states
                                      SET manual_override = NULL,
                                          status = CASE
                                              WHEN active_plan_id IS NOT NULL THEN 'in_progress'::liquidation_status
                                              WHEN active_brief_id IS NOT NULL THEN 'has_brief'::liquidation_status
                                              ELSE 'not_started'::liquidation_status
                                          END,
                                          updated_at = NOW()
                                      WHERE id = $1`, stateID)
		} else {
			_, err = pool.Exec(ctx, `UPDATE liquidation_states
                                      SET manual_override = 'on_hold', status = 'on_hold', updated_at = NOW()
                                      WHERE id = $1`, stateID)
		}
		if err != nil {
			return fmt.Errorf("override flipper: %w", err)
		}
		pinned = !pinned
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// StepToggler flips lot checklist steps; the completion flag and timestamp
// move together in a single statement.
func StepToggler(ctx context.Context, pool *pgxpool.Pool, lotStateID string, stepIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		step := stepIDs[rand.Intn(len(stepIDs))]
		_, err := pool.Exec(ctx, `UPDATE lot_checklist_rows
                                   SET is_complete = NOT is_complete,
                                       completed_at = CASE WHEN is_complete THEN NULL ELSE NOW() END
                                   WHERE lot_state_id = $1 AND step_id = $2`, lotStateID, step)
		if err != nil {
			return fmt.Errorf("step toggler: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// NoteWriter sets and clears step notes; blank notes are stored as NULL,
// never as empty strings.
func NoteWriter(ctx context.Context, pool *pgxpool.Pool, lotStateID string, stepIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		step := stepIDs[rand.Intn(len(stepIDs))]
		var err error
		if rand.Intn(3) == 0 {
			_, err = pool.Exec(ctx, `UPDATE lot_checklist_rows SET note = NULL
                                      WHERE lot_state_id = $1 AND step_id = $2`, lotStateID, step)
		} else {
			_, err = pool.Exec(ctx, `UPDATE lot_checklist_rows SET note = $3
                                      WHERE lot_state_id = $1 AND step_id = $2`,
				lotStateID, step, fmt.Sprintf("note %d", rand.Intn(1000)))
		}
		if err != nil {
			return fmt.Errorf("note writer: %w", err)
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}
