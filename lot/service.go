package lot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"estateflow/checklist"
)

// Service exposes lot readiness tracking to the presentation layer. All
// checklist output is advisory; nothing blocks a sale on incomplete steps.
type Service struct {
	repo  Repository
	idGen func() string
	now   func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		idGen: func() string { return uuid.NewString() },
		now:   time.Now,
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

// Checklist returns the lot's readiness rows merged with the canonical
// template, lazily creating the state and backfilling missing rows.
func (s *Service) Checklist(ctx context.Context, batchID string, lotNumber int) (State, []checklist.Row, error) {
	state, err := s.ensureState(ctx, batchID, lotNumber)
	if err != nil {
		return State{}, nil, err
	}

	rows, err := s.repo.ListRows(ctx, state.ID)
	if err != nil {
		return State{}, nil, err
	}
	return state, checklist.Reconcile(CanonicalTemplate(), rows), nil
}

// SetCompletion flips one step. Setting the current value is a no-op; on a
// real change the completion timestamp is set or cleared.
func (s *Service) SetCompletion(ctx context.Context, batchID string, lotNumber int, stepID string, done bool) error {
	state, err := s.ensureState(ctx, batchID, lotNumber)
	if err != nil {
		return err
	}

	var completedAt *time.Time
	if done {
		ts := s.now()
		completedAt = &ts
	}
	_, err = s.repo.SetCompletion(ctx, state.ID, stepID, done, completedAt)
	return err
}

// SetNote attaches or clears a note on one step. Blank text clears.
func (s *Service) SetNote(ctx context.Context, batchID string, lotNumber int, stepID, note string) error {
	state, err := s.ensureState(ctx, batchID, lotNumber)
	if err != nil {
		return err
	}

	var val *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		val = &trimmed
	}
	_, err = s.repo.SetNote(ctx, state.ID, stepID, val)
	return err
}

// Progress reports the lot's completed fraction and derived status.
func (s *Service) Progress(ctx context.Context, batchID string, lotNumber int) (float64, checklist.Status, error) {
	_, rows, err := s.Checklist(ctx, batchID, lotNumber)
	if err != nil {
		return 0, "", err
	}
	return checklist.Progress(rows), checklist.DeriveStatus(rows), nil
}

func (s *Service) ensureState(ctx context.Context, batchID string, lotNumber int) (State, error) {
	state, err := s.repo.UpsertState(ctx, State{ID: s.idGen(), BatchID: batchID, LotNumber: lotNumber})
	if err != nil {
		return State{}, err
	}
	if err := s.repo.MaterializeRows(ctx, state.ID, CanonicalTemplate()); err != nil {
		return State{}, err
	}
	return state, nil
}
