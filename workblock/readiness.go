package workblock

import "estateflow/checklist"

// ReadinessTemplate returns the advisory sale-readiness steps presented for a
// luxury sub-category. The steps are guidance only; nothing blocks on them.
func ReadinessTemplate(cat LuxuryCategory) []checklist.TemplateStep {
	common := []checklist.TemplateStep{
		{ID: "lux.photos", Order: 1, Text: "Photograph the item in natural light, all angles"},
		{ID: "lux.provenance", Order: 2, Text: "Gather receipts, certificates, or provenance notes"},
	}

	var extra []checklist.TemplateStep
	switch cat {
	case LuxuryWatches:
		extra = []checklist.TemplateStep{
			{ID: "lux.watch.serial", Order: 3, Text: "Record the case serial and reference numbers"},
			{ID: "lux.watch.box", Order: 4, Text: "Locate the original box and papers"},
			{ID: "lux.watch.service", Order: 5, Text: "Note last service date if known"},
		}
	case LuxuryHandbags:
		extra = []checklist.TemplateStep{
			{ID: "lux.bag.auth", Order: 3, Text: "Photograph date code, stamps, and hardware"},
			{ID: "lux.bag.dustbag", Order: 4, Text: "Locate dust bag and authenticity cards"},
		}
	case LuxuryJewelry:
		extra = []checklist.TemplateStep{
			{ID: "lux.jewel.appraisal", Order: 3, Text: "Locate any appraisal or grading report"},
			{ID: "lux.jewel.hallmark", Order: 4, Text: "Photograph hallmarks and metal stamps"},
		}
	case LuxuryFootwear:
		extra = []checklist.TemplateStep{
			{ID: "lux.shoe.size", Order: 3, Text: "Record size and photograph soles for wear"},
			{ID: "lux.shoe.box", Order: 4, Text: "Locate original box and dust bags"},
		}
	case LuxuryApparel:
		extra = []checklist.TemplateStep{
			{ID: "lux.apparel.labels", Order: 3, Text: "Photograph brand, size, and care labels"},
			{ID: "lux.apparel.condition", Order: 4, Text: "Note alterations, pulls, or repairs"},
		}
	default:
		extra = []checklist.TemplateStep{
			{ID: "lux.general.condition", Order: 3, Text: "Describe condition honestly, flaws included"},
		}
	}

	return append(common, extra...)
}
