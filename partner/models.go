// Package partner matches a normalized scenario to candidate service
// partners: curated shortlists for recognized luxury sub-categories, a remote
// search interface for everything else, with a TTL cache in front. Output is
// strictly advisory; the engine never contacts a partner on the user's
// behalf.
package partner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the partner search wire schema this engine speaks.
const SchemaVersion = 1

// Scope identifies what kind of owner a search is for.
type Scope string

const (
	ScopeItem  Scope = "item"
	ScopeSet   Scope = "set"
	ScopeBatch Scope = "batch"
)

// Location is the user-supplied search origin.
type Location struct {
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

// SearchRequest is the deterministic request built from a scenario. Field
// ordering is stable and slice fields arrive pre-sorted from the classifier,
// which CacheKey relies on.
type SearchRequest struct {
	SchemaVersion     int      `json:"schemaVersion"`
	Scope             Scope    `json:"scope"`
	Block             string   `json:"block"`
	LuxurySubcategory string   `json:"luxury_subcategory,omitempty"`
	ChosenPath        string   `json:"chosen_path,omitempty"`
	Category          string   `json:"category"`
	ValueBand         string   `json:"value_band"`
	Bulky             bool     `json:"bulky"`
	Goal              string   `json:"goal"`
	Constraints       []string `json:"constraints"`
	Keywords          []string `json:"keywords"`
	Location          Location `json:"location"`
	RadiusMiles       int      `json:"radius_miles"`
}

// CacheKey hashes a canonical fixed-order serialization of the request.
// Identical inputs always produce identical keys; any field difference,
// radius included, produces a different key.
func (r SearchRequest) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d|%s|%s|%s|%s|", r.SchemaVersion, r.Scope, r.Block, r.LuxurySubcategory, r.ChosenPath)
	fmt.Fprintf(h, "%s|%s|%t|%s|", r.Category, r.ValueBand, r.Bulky, r.Goal)
	fmt.Fprintf(h, "c:%s|", strings.Join(r.Constraints, ","))
	fmt.Fprintf(h, "k:%s|", strings.Join(r.Keywords, ","))
	fmt.Fprintf(h, "%s|%s|%s|%d", r.Location.City, r.Location.Region, r.Location.PostalCode, r.RadiusMiles)
	return hex.EncodeToString(h.Sum(nil))
}

// TrustSignals carries vetting data for a candidate partner.
type TrustSignals struct {
	Score       float64 `json:"score"`
	GatesPassed bool    `json:"gates_passed"`
	Provenance  string  `json:"provenance"`
}

// Result is one ranked partner candidate. Advisory only: surfacing a result
// commits the user to nothing.
type Result struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Type               string       `json:"type"`
	Contact            string       `json:"contact"`
	DistanceMiles      float64      `json:"distance_miles"`
	Rating             float64      `json:"rating"`
	Trust              TrustSignals `json:"trust"`
	RankScore          float64      `json:"rank_score"`
	RankReasons        []string     `json:"rank_reasons,omitempty"`
	Rationale          string       `json:"rationale,omitempty"`
	SuggestedQuestions []string     `json:"suggested_questions,omitempty"`
}

// Response is the versioned search response envelope.
type Response struct {
	SchemaVersion int       `json:"schemaVersion"`
	GeneratedAt   Timestamp `json:"generatedAt"`
	PartnerTypes  []string  `json:"partnerTypes,omitempty"`
	Results       []Result  `json:"results"`
}

// Timestamp decodes ISO-8601 leniently: with or without fractional seconds,
// and without a zone (assumed UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("partner: timestamp not a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("partner: unparseable timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// SearchUnavailableError wraps a partner search transport failure. Callers
// present it as "no results yet, proceed manually"; it never corrupts state
// or blocks navigation.
type SearchUnavailableError struct {
	Err error
}

func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("partner: search unavailable: %v", e.Err)
}

func (e *SearchUnavailableError) Unwrap() error { return e.Err }
