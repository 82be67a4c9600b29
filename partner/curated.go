package partner

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"estateflow/workblock"
)

//go:embed data/curated.yaml
var curatedRaw []byte

type curatedEntry struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Contact    string   `yaml:"contact"`
	Rating     float64  `yaml:"rating"`
	TrustScore float64  `yaml:"trust_score"`
	Provenance string   `yaml:"provenance"`
	Rationale  string   `yaml:"rationale"`
	Questions  []string `yaml:"questions"`
}

// curatedShortlists maps luxury sub-categories to their vetted partner
// lists. Parsed once at startup; the file ships inside the binary.
var curatedShortlists = mustLoadCurated()

func mustLoadCurated() map[string][]curatedEntry {
	var lists map[string][]curatedEntry
	if err := yaml.Unmarshal(curatedRaw, &lists); err != nil {
		panic(fmt.Sprintf("partner: parse curated shortlists: %v", err))
	}
	return lists
}

// curatedFor returns the shortlist for a recognized luxury sub-category.
// Watches, handbags, jewelry, and default-luxury short-circuit the remote
// search; footwear and apparel do not.
func curatedFor(cat workblock.LuxuryCategory) ([]curatedEntry, bool) {
	switch cat {
	case workblock.LuxuryWatches, workblock.LuxuryHandbags, workblock.LuxuryJewelry:
		list, ok := curatedShortlists[string(cat)]
		return list, ok
	case workblock.LuxuryGeneral:
		list, ok := curatedShortlists["general"]
		return list, ok
	default:
		return nil, false
	}
}

func (e curatedEntry) result() Result {
	return Result{
		ID:      e.ID,
		Name:    e.Name,
		Type:    e.Type,
		Contact: e.Contact,
		Rating:  e.Rating,
		Trust: TrustSignals{
			Score:       e.TrustScore,
			GatesPassed: true,
			Provenance:  e.Provenance,
		},
		Rationale:          e.Rationale,
		SuggestedQuestions: e.Questions,
	}
}
