package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant queries; each must come back empty after any
// sequence of engine mutations.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_one_state_per_owner",
			SQL: `SELECT owner_kind, owner_id, COUNT(*) FROM liquidation_states
                  GROUP BY owner_kind, owner_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_active_brief_same_state",
			SQL: `SELECT s.id FROM liquidation_states s
                  JOIN brief_records b ON b.id = s.active_brief_id
                  WHERE b.state_id <> s.id`,
		},
		{
			Name: "O3_active_plan_same_state",
			SQL: `SELECT s.id FROM liquidation_states s
                  JOIN plan_records p ON p.id = s.active_plan_id
                  WHERE p.state_id <> s.id`,
		},
		{
			Name: "O4_derived_brief_same_state",
			SQL: `SELECT p.id FROM plan_records p
                  JOIN brief_records b ON b.id = p.derived_from_brief_id
                  WHERE b.state_id <> p.state_id`,
		},
		{
			Name: "O5_lot_completed_at_consistent",
			SQL: `SELECT lot_state_id, step_id FROM lot_checklist_rows
                  WHERE (is_complete AND completed_at IS NULL)
                     OR (NOT is_complete AND completed_at IS NOT NULL)`,
		},
		{
			Name: "O6_lot_note_never_empty",
			SQL:  `SELECT lot_state_id, step_id FROM lot_checklist_rows WHERE note = ''`,
		},
		{
			Name: "O7_override_matches_status",
			SQL: `SELECT id FROM liquidation_states
                  WHERE manual_override IS NOT NULL AND status <> manual_override`,
		},
		{
			Name: "O8_lot_rows_cover_template",
			SQL: `SELECT s.id FROM execution_lot_states s
                  WHERE NOT EXISTS (
                      SELECT 1 FROM lot_checklist_rows r WHERE r.lot_state_id = s.id
                  )`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text) or an empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
