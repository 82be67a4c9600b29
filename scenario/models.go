package scenario

// ValueBand groups estimated value into coarse pricing tiers.
type ValueBand string

const (
	BandLow  ValueBand = "LOW"
	BandMed  ValueBand = "MED"
	BandHigh ValueBand = "HIGH"
)

// Goal expresses what the user optimizes for when liquidating.
type Goal string

const (
	GoalBalanced      Goal = "balanced"
	GoalMaximizePrice Goal = "maximize_price"
	GoalSpeed         Goal = "speed"
	GoalMinimizeWork  Goal = "minimize_work"
)

// Standard constraint labels surfaced to partner search.
const (
	ConstraintPickupRequired  = "pickup_required"
	ConstraintInsuredShipping = "insured_shipping_recommended"
)

// SetTypeClosetLot marks clothing-lot sets, which are never bulky regardless
// of category inference.
const SetTypeClosetLot = "closet_lot"

// Descriptor is the normalized scenario driving brief generation and partner
// search. Keywords and Constraints are deduplicated and sorted so identical
// inputs always serialize identically.
type Descriptor struct {
	Category    string
	ValueBand   ValueBand
	Bulky       bool
	Goal        Goal
	Constraints []string
	Keywords    []string
}

// ItemSnapshot carries the owner attributes the classifier reads for a single
// item.
type ItemSnapshot struct {
	Name           string
	Category       string
	EstimatedValue float64
	Notes          string
}

// SetSnapshot carries the owner attributes for an item set. TotalValue is the
// aggregate estimate across members.
type SetSnapshot struct {
	Title      string
	SetType    string
	TotalValue float64
	ItemCount  int
	Category   string
}
