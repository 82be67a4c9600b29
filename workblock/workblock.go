// Package workblock buckets free text (checklist step text, or an owner's
// combined name/notes/story/brand list) into execution work blocks. Matching
// is token-set intersection against curated vocabularies, never raw substring
// search, so partial words ("bootcut", "keyring") can never fire a signal.
package workblock

import "strings"

// Block tags a bucket of checklist items and partner needs.
type Block string

const (
	Luxury       Block = "luxury"
	Contemporary Block = "contemporary"
	Donate       Block = "donate"
	Discard      Block = "discard"
	Other        Block = "other"
)

// RequiresPartner reports whether items in this block are expected to be
// routed to an external service partner.
func (b Block) RequiresPartner() bool {
	switch b {
	case Luxury, Contemporary, Donate, Discard:
		return true
	default:
		return false
	}
}

// LuxuryCategory is the finer split inside the luxury block. It selects the
// advisory readiness checklist and the curated partner shortlist; it never
// alters scenario or goal logic.
type LuxuryCategory string

const (
	LuxuryNone     LuxuryCategory = ""
	LuxuryFootwear LuxuryCategory = "footwear"
	LuxuryApparel  LuxuryCategory = "designer_apparel"
	LuxuryWatches  LuxuryCategory = "watches"
	LuxuryHandbags LuxuryCategory = "handbags"
	LuxuryJewelry  LuxuryCategory = "jewelry"
	LuxuryGeneral  LuxuryCategory = "general"
)

// Classification is the outcome of evaluating the rule table over one text.
type Classification struct {
	Block   Block
	Luxury  LuxuryCategory
	Matched []string
}

// Tokens that look like signals but are known false friends. They are dropped
// before matching and never contribute to any vocabulary.
var excludedTokens = map[string]struct{}{
	"bootcut":   {},
	"bootleg":   {},
	"ringtone":  {},
	"ringtones": {},
	"keyring":   {},
	"keyrings":  {},
	"ringlight": {},
	"earbud":    {},
	"earbuds":   {},
}

var luxuryBrands = vocab(
	"rolex", "omega", "patek", "cartier", "tiffany", "bulgari", "gucci",
	"chanel", "hermes", "prada", "vuitton", "dior", "fendi", "versace",
	"burberry", "ferragamo", "louboutin", "birkin", "goyard", "celine",
	"valentino", "balenciaga", "couture",
)

var jewelryStrong = vocab(
	"jewelry", "jewellery", "necklace", "bracelet", "earring", "earrings",
	"pendant", "brooch", "diamond", "gemstone", "sapphire", "emerald",
)

var jewelryWeak = vocab("ring", "rings", "gold", "silver", "platinum")

var watchNouns = vocab("watch", "watches", "wristwatch", "chronograph")

var handbagNouns = vocab(
	"handbag", "handbags", "purse", "purses", "tote", "clutch", "satchel", "kelly",
)

var footwearNouns = vocab(
	"boot", "boots", "shoe", "shoes", "sneaker", "sneakers", "heel", "heels",
	"sandal", "sandals", "loafer", "loafers", "pump", "pumps", "stiletto",
	"stilettos", "oxford", "oxfords",
)

var apparelNouns = vocab(
	"jeans", "shirt", "shirts", "blouse", "dress", "dresses", "gown", "jacket",
	"coat", "sweater", "pants", "skirt", "suit", "blazer", "apparel",
	"clothing", "clothes", "hoodie", "scarf",
)

var contemporaryBrands = vocab(
	"nike", "adidas", "ikea", "zara", "gap", "uniqlo", "levis", "patagonia",
)

var donateVocab = vocab(
	"donate", "donation", "donations", "donating", "charity", "charities",
	"goodwill", "giveaway", "shelter",
)

var discardVocab = vocab(
	"trash", "junk", "broken", "discard", "dispose", "disposal", "dump",
	"haul", "hauling", "stained", "torn", "cracked", "moldy", "recycle",
	"shred", "cleanout",
)

// rule is one row of the ordered classification table. A rule fires when at
// least minHits distinct tokens intersect its vocabulary; the first firing
// rule decides the block.
type rule struct {
	block   Block
	luxury  LuxuryCategory
	vocab   map[string]struct{}
	minHits int
}

var blockRules = []rule{
	{block: Luxury, vocab: union(luxuryBrands, jewelryStrong), minHits: 1},
	// Weak jewelry signals ("ring", "gold") only count in pairs so that a
	// lone metal or excluded compound never classifies as jewelry.
	{block: Luxury, vocab: jewelryWeak, minHits: 2},
	{block: Donate, vocab: donateVocab, minHits: 1},
	{block: Discard, vocab: discardVocab, minHits: 1},
	// Footwear before generic apparel: explicit priority.
	{block: Contemporary, vocab: footwearNouns, minHits: 1},
	{block: Contemporary, vocab: union(apparelNouns, contemporaryBrands), minHits: 1},
}

var luxuryRules = []rule{
	{luxury: LuxuryWatches, vocab: watchNouns, minHits: 1},
	{luxury: LuxuryHandbags, vocab: handbagNouns, minHits: 1},
	{luxury: LuxuryJewelry, vocab: jewelryStrong, minHits: 1},
	{luxury: LuxuryJewelry, vocab: jewelryWeak, minHits: 2},
	{luxury: LuxuryFootwear, vocab: footwearNouns, minHits: 1},
	{luxury: LuxuryApparel, vocab: apparelNouns, minHits: 1},
}

// Classify evaluates the ordered rule table against the text and returns the
// winning block, the luxury sub-category when applicable, and the signal
// tokens that fired.
func Classify(text string) Classification {
	tokens := tokenize(text)

	for _, r := range blockRules {
		hits := intersect(tokens, r.vocab)
		if len(hits) < r.minHits {
			continue
		}
		c := Classification{Block: r.block, Matched: hits}
		if r.block == Luxury {
			c.Luxury = classifyLuxury(tokens)
		}
		return c
	}

	return Classification{Block: Other}
}

func classifyLuxury(tokens []string) LuxuryCategory {
	for _, r := range luxuryRules {
		if len(intersect(tokens, r.vocab)) >= r.minHits {
			return r.luxury
		}
	}
	return LuxuryGeneral
}

// tokenize lowercases, strips punctuation, splits on whitespace, and drops
// excluded false-friend tokens. Duplicates collapse so repeated words cannot
// satisfy a pair rule.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, excluded := excludedTokens[f]; excluded {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func intersect(tokens []string, v map[string]struct{}) []string {
	var hits []string
	for _, t := range tokens {
		if _, ok := v[t]; ok {
			hits = append(hits, t)
		}
	}
	return hits
}

func vocab(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func union(vs ...map[string]struct{}) map[string]struct{} {
	m := make(map[string]struct{})
	for _, v := range vs {
		for w := range v {
			m[w] = struct{}{}
		}
	}
	return m
}
