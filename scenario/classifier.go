// Package scenario normalizes owner attributes into the descriptor that
// drives brief generation and partner search. Classification is pure: no I/O,
// no clock, identical input yields an identical descriptor.
package scenario

import (
	"sort"
	"strings"
	"unicode"

	"estateflow/workblock"
)

// Item-scope value bands. Aggregate scopes justify looser bands, so the set
// table below is intentionally different; do not unify them.
func itemBand(value float64) ValueBand {
	switch {
	case value < 100:
		return BandLow
	case value < 500:
		return BandMed
	default:
		return BandHigh
	}
}

// Set-scope (aggregate) value bands.
func setBand(total float64) ValueBand {
	switch {
	case total < 200:
		return BandLow
	case total < 1000:
		return BandMed
	default:
		return BandHigh
	}
}

var bulkyCategories = map[string]struct{}{
	"furniture":   {},
	"appliance":   {},
	"appliances":  {},
	"rug":         {},
	"rugs":        {},
	"electronics": {},
}

func isBulkyCategory(category string) bool {
	_, ok := bulkyCategories[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Marketing terms appended to set-scope keyword lists, keyed by the target
// work block. Policy constants, not derived from the inventory.
var setMarketingTerms = map[workblock.Block][]string{
	workblock.Luxury:       {"authenticated", "designer", "luxury consignment"},
	workblock.Contemporary: {"gently used", "modern", "resale"},
	workblock.Donate:       {"bulk donation", "charity pickup", "tax receipt"},
	workblock.Discard:      {"cleanout", "haul away", "junk removal"},
	workblock.Other:        {"consignment", "estate sale", "resale"},
}

// goalFor applies the block-level goal policy: luxury always maximizes price,
// contemporary is pinned to balanced, everything else defaults to balanced.
func goalFor(block workblock.Block) Goal {
	switch block {
	case workblock.Luxury:
		return GoalMaximizePrice
	default:
		return GoalBalanced
	}
}

// ClassifyItem builds the normalized descriptor for a single item. The work
// block is supplied by the caller, typically from
// workblock.Classify over the item's combined text.
func ClassifyItem(snap ItemSnapshot, block workblock.Block) Descriptor {
	bulky := isBulkyCategory(snap.Category)

	keywords := []string{}
	if lead, ok := leadingCapitalizedToken(snap.Name); ok {
		keywords = append(keywords, lead)
	}
	if c := strings.TrimSpace(snap.Category); c != "" {
		keywords = append(keywords, strings.ToLower(c))
	}

	return Descriptor{
		Category:    strings.ToLower(strings.TrimSpace(snap.Category)),
		ValueBand:   itemBand(snap.EstimatedValue),
		Bulky:       bulky,
		Goal:        goalFor(block),
		Constraints: constraintsFor(bulky, itemBand(snap.EstimatedValue)),
		Keywords:    normalize(keywords),
	}
}

// ClassifySet builds the normalized descriptor for an item set. Closet-lot
// sets are non-bulky by definition, overriding category inference, and set
// searches carry the block's static marketing terms.
func ClassifySet(snap SetSnapshot, block workblock.Block) Descriptor {
	bulky := isBulkyCategory(snap.Category)
	if strings.EqualFold(strings.TrimSpace(snap.SetType), SetTypeClosetLot) {
		bulky = false
	}

	keywords := []string{}
	if lead, ok := leadingCapitalizedToken(snap.Title); ok {
		keywords = append(keywords, lead)
	}
	if st := strings.TrimSpace(snap.SetType); st != "" {
		keywords = append(keywords, strings.ToLower(st))
	} else if c := strings.TrimSpace(snap.Category); c != "" {
		keywords = append(keywords, strings.ToLower(c))
	}
	keywords = append(keywords, setMarketingTerms[block]...)

	band := setBand(snap.TotalValue)
	return Descriptor{
		Category:    strings.ToLower(strings.TrimSpace(snap.Category)),
		ValueBand:   band,
		Bulky:       bulky,
		Goal:        goalFor(block),
		Constraints: constraintsFor(bulky, band),
		Keywords:    normalize(keywords),
	}
}

func constraintsFor(bulky bool, band ValueBand) []string {
	var out []string
	if bulky {
		out = append(out, ConstraintPickupRequired)
	}
	if band == BandHigh && !bulky {
		out = append(out, ConstraintInsuredShipping)
	}
	sort.Strings(out)
	return out
}

// leadingCapitalizedToken extracts the first whitespace token of the name
// when it is capitalized and at least three letters, a cheap brand/proper
// noun heuristic.
func leadingCapitalizedToken(name string) (string, bool) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", false
	}
	tok := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	runes := []rune(tok)
	if len(runes) < 3 || !unicode.IsUpper(runes[0]) {
		return "", false
	}
	return strings.ToLower(tok), true
}

// normalize deduplicates and sorts keywords so descriptors serialize
// identically regardless of construction order.
func normalize(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
