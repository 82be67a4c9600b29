// Package lot tracks sale-day execution readiness per (batch, lot) against a
// fixed canonical checklist. States are created lazily on first access and
// live for the batch's life; rows are append-only relative to the template.
package lot

import "estateflow/checklist"

// Canonical checklist sections, in execution order.
const (
	SectionPreparation   = "Preparation"
	SectionDocumentation = "Documentation"
	SectionStaging       = "Staging"
	SectionReady         = "Ready"
)

// State is the execution readiness record for one lot within a batch.
type State struct {
	ID        string
	BatchID   string
	LotNumber int
}

// CanonicalTemplate is the fixed, non-configurable lot readiness checklist.
// Step IDs are stable strings: rows are keyed by them, never by position, so
// reordering or renaming steps never orphans persisted completion state.
func CanonicalTemplate() []checklist.TemplateStep {
	return []checklist.TemplateStep{
		{ID: "prep.inventory", Order: 1, Section: SectionPreparation, Text: "Confirm lot contents against the inventory"},
		{ID: "prep.clean", Order: 2, Section: SectionPreparation, Text: "Clean and wipe down items"},
		{ID: "doc.photos", Order: 3, Section: SectionDocumentation, Text: "Photograph the assembled lot"},
		{ID: "doc.manifest", Order: 4, Section: SectionDocumentation, Text: "Print and attach the lot manifest"},
		{ID: "stage.location", Order: 5, Section: SectionStaging, Text: "Stage the lot at its sale location"},
		{ID: "stage.labels", Order: 6, Section: SectionStaging, Text: "Attach lot number labels"},
		{ID: "ready.pricing", Order: 7, Section: SectionReady, Text: "Confirm pricing and any reserve"},
		{ID: "ready.walkthrough", Order: 8, Section: SectionReady, Text: "Final walkthrough before doors open"},
	}
}
