package disposition

import (
	"encoding/json"
	"fmt"
	"time"

	"estateflow/checklist"
)

// Payload versions currently written. Decoding accepts every version listed
// in the switches below; anything else renders only that record inert.
const (
	briefPayloadVersion     = 1
	checklistPayloadVersion = 2
)

// BriefPayload is the structured rationale attached to a brief record.
type BriefPayload struct {
	Summary             string   `json:"summary"`
	Rationale           []string `json:"rationale"`
	EstimatedValueNote  string   `json:"estimated_value_note,omitempty"`
	SuggestedFirstSteps []string `json:"suggested_first_steps,omitempty"`
}

// DecodeBriefPayload decodes a brief record's payload by version.
func DecodeBriefPayload(version int, raw []byte) (BriefPayload, error) {
	switch version {
	case briefPayloadVersion:
		var p BriefPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return BriefPayload{}, fmt.Errorf("disposition: decode brief payload v%d: %w", version, err)
		}
		return p, nil
	default:
		return BriefPayload{}, fmt.Errorf("%w: brief v%d", ErrUnsupportedPayloadVersion, version)
	}
}

func encodeBriefPayload(p BriefPayload) (int, []byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0, nil, fmt.Errorf("disposition: encode brief payload: %w", err)
	}
	return briefPayloadVersion, raw, nil
}

// checklistItemV1 is the original checklist row shape: positional order,
// completion flag, no notes or sections.
type checklistItemV1 struct {
	ID          string     `json:"id"`
	Order       int        `json:"order"`
	Text        string     `json:"text"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type checklistPayloadV1 struct {
	Items []checklistItemV1 `json:"items"`
}

// checklistItemV2 adds per-step notes and sections.
type checklistItemV2 struct {
	ID          string     `json:"id"`
	Order       int        `json:"order"`
	Section     string     `json:"section,omitempty"`
	Text        string     `json:"text"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Note        *string    `json:"note,omitempty"`
}

type checklistPayloadV2 struct {
	Items []checklistItemV2 `json:"items"`
}

// decodeChecklistPayload decodes a plan's checklist by version, upgrading
// older shapes to the current row type.
func decodeChecklistPayload(version int, raw []byte) ([]checklist.Row, error) {
	switch version {
	case 1:
		var p checklistPayloadV1
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("disposition: decode checklist payload v1: %w", err)
		}
		return upgradeChecklistV1(p), nil
	case checklistPayloadVersion:
		var p checklistPayloadV2
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("disposition: decode checklist payload v2: %w", err)
		}
		rows := make([]checklist.Row, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, checklist.Row{
				StepID:      it.ID,
				Order:       it.Order,
				Section:     it.Section,
				Text:        it.Text,
				Completed:   it.IsCompleted,
				CompletedAt: it.CompletedAt,
				Note:        it.Note,
			})
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: checklist v%d", ErrUnsupportedPayloadVersion, version)
	}
}

func upgradeChecklistV1(p checklistPayloadV1) []checklist.Row {
	rows := make([]checklist.Row, 0, len(p.Items))
	for _, it := range p.Items {
		rows = append(rows, checklist.Row{
			StepID:      it.ID,
			Order:       it.Order,
			Text:        it.Text,
			Completed:   it.IsCompleted,
			CompletedAt: it.CompletedAt,
		})
	}
	return rows
}

func encodeChecklistPayload(rows []checklist.Row) (int, []byte, error) {
	p := checklistPayloadV2{Items: make([]checklistItemV2, 0, len(rows))}
	for _, r := range rows {
		p.Items = append(p.Items, checklistItemV2{
			ID:          r.StepID,
			Order:       r.Order,
			Section:     r.Section,
			Text:        r.Text,
			IsCompleted: r.Completed,
			CompletedAt: r.CompletedAt,
			Note:        r.Note,
		})
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return 0, nil, fmt.Errorf("disposition: encode checklist payload: %w", err)
	}
	return checklistPayloadVersion, raw, nil
}
