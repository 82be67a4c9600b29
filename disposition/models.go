// Package disposition owns the liquidation hub state per owner: an
// append-only history of AI-derived brief records and mutable plan records,
// with explicit active-record pointers on the parent state.
package disposition

import (
	"errors"
	"fmt"
	"time"

	"estateflow/checklist"
)

var (
	// ErrStateNotFound signals no liquidation state exists for the identifier.
	ErrStateNotFound = errors.New("disposition: state not found")
	// ErrBriefNotFound signals the brief record does not exist.
	ErrBriefNotFound = errors.New("disposition: brief not found")
	// ErrPlanNotFound signals the plan record does not exist.
	ErrPlanNotFound = errors.New("disposition: plan not found")
	// ErrForeignBrief signals a plan referenced a brief belonging to a
	// different liquidation state.
	ErrForeignBrief = errors.New("disposition: brief belongs to a different state")
	// ErrUnknownOwnerKind signals an owner reference outside the tagged union.
	ErrUnknownOwnerKind = errors.New("disposition: unknown owner kind")
	// ErrUnsupportedPayloadVersion signals a record payload written by a
	// newer (or unknown) schema; the record is inert, siblings stay usable.
	ErrUnsupportedPayloadVersion = errors.New("disposition: unsupported payload version")
)

// GenerationError wraps a brief/plan generator failure. Nothing is persisted
// when it occurs; the prior active records are untouched.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("disposition: %s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// OwnerKind tags the owning entity of a liquidation state.
type OwnerKind string

const (
	OwnerItem    OwnerKind = "item"
	OwnerItemSet OwnerKind = "item_set"
	OwnerBatch   OwnerKind = "batch"
)

// OwnerRef identifies exactly one owner. The tagged union replaces the
// three-nullable-column pattern; validation is exhaustive.
type OwnerRef struct {
	Kind OwnerKind
	ID   string
}

func (o OwnerRef) Validate() error {
	switch o.Kind {
	case OwnerItem, OwnerItemSet, OwnerBatch:
	default:
		return ErrUnknownOwnerKind
	}
	if o.ID == "" {
		return fmt.Errorf("disposition: owner id required")
	}
	return nil
}

// Status is the lifecycle of a liquidation state. OnHold and NotApplicable
// are manual overrides; they are never derived from checklist progress.
type Status string

const (
	StatusNotStarted    Status = "not_started"
	StatusHasBrief      Status = "has_brief"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusOnHold        Status = "on_hold"
	StatusNotApplicable Status = "not_applicable"
)

// IsManualOverride reports whether the status may only be set explicitly.
func (s Status) IsManualOverride() bool {
	return s == StatusOnHold || s == StatusNotApplicable
}

// PlanStatus is the lifecycle of a plan record. OnHold is manual.
type PlanStatus string

const (
	PlanNotStarted PlanStatus = "not_started"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanOnHold     PlanStatus = "on_hold"
)

// Path is a recommended or chosen disposition route.
type Path string

const (
	PathMaximizePrice   Path = "maximize_price"
	PathDelegateConsign Path = "delegate_consign"
	PathQuickExit       Path = "quick_exit"
	PathDonate          Path = "donate"
	PathNeedsInfo       Path = "needs_info"
)

// LiquidationState is the hub entity, one per owner, created on the first
// disposition action and never recreated. Active records are referenced by
// pointer into the append-only histories rather than per-row flags.
type LiquidationState struct {
	ID             string
	Owner          OwnerRef
	Status         Status
	ManualOverride *Status
	ActiveBriefID  *string
	ActivePlanID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BriefRecord is an immutable AI recommendation artifact. Only the state's
// active pointer ever changes after insert.
type BriefRecord struct {
	ID               string
	StateID          string
	InputFingerprint string
	PayloadVersion   int
	Provider         string
	Model            string
	RecommendedPath  Path
	Payload          []byte
	CreatedAt        time.Time
}

// PlanRecord is a mutable execution artifact carrying the checklist. It may
// be derived from a sibling brief; superseded plans are deactivated by
// pointer swap, never deleted.
type PlanRecord struct {
	ID                 string
	StateID            string
	DerivedFromBriefID *string
	ChosenPath         Path
	Status             PlanStatus
	PayloadVersion     int
	Checklist          []checklist.Row
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Progress reports the plan's completed fraction.
func (p PlanRecord) Progress() float64 {
	return checklist.Progress(p.Checklist)
}

func planStatusFrom(rows []checklist.Row) PlanStatus {
	switch checklist.DeriveStatus(rows) {
	case checklist.StatusCompleted:
		return PlanCompleted
	case checklist.StatusInProgress:
		return PlanInProgress
	default:
		return PlanNotStarted
	}
}
