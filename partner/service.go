package partner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"estateflow/scenario"
	"estateflow/workblock"
)

// Service fronts partner search with a TTL cache and single-flight collapse
// of duplicate in-flight requests. A newer user-triggered search for the same
// scope simply issues a new call; the cache key decides whether it shares an
// in-flight result or supersedes a stale one.
type Service struct {
	remote Searcher
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

func NewService(remote Searcher) *Service {
	return &Service{
		remote: remote,
		cache:  NewCache(DefaultTTL),
		now:    time.Now,
	}
}

func (s *Service) WithCache(cache *Cache) *Service {
	s.cache = cache
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BuildSearchRequest assembles the deterministic search request for a
// classified scenario. Descriptor slices are already deduplicated and
// sorted, so equal scenarios always produce byte-identical requests.
func BuildSearchRequest(
	scope Scope,
	desc scenario.Descriptor,
	cls workblock.Classification,
	loc Location,
	radiusMiles int,
	chosenPath string,
) SearchRequest {
	return SearchRequest{
		SchemaVersion:     SchemaVersion,
		Scope:             scope,
		Block:             string(cls.Block),
		LuxurySubcategory: string(cls.Luxury),
		ChosenPath:        chosenPath,
		Category:          desc.Category,
		ValueBand:         string(desc.ValueBand),
		Bulky:             desc.Bulky,
		Goal:              string(desc.Goal),
		Constraints:       desc.Constraints,
		Keywords:          desc.Keywords,
		Location:          loc,
		RadiusMiles:       radiusMiles,
	}
}

// Search returns ranked partner candidates for the request, from cache when
// fresh. Recognized luxury sub-categories are served from the curated
// shortlist without touching the remote searcher; everything else delegates.
// Duplicate concurrent searches for one cache key converge to a single fill.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Result, error) {
	key := req.CacheKey()
	if resp, ok := s.cache.Get(key); ok {
		return resp.Results, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if resp, ok := s.cache.Get(key); ok {
			return resp, nil
		}
		resp, err := s.resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.Results = rank(resp.Results, req)
		s.cache.Put(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Response).Results, nil
}

func (s *Service) resolve(ctx context.Context, req SearchRequest) (Response, error) {
	if req.Block == string(workblock.Luxury) {
		if entries, ok := curatedFor(workblock.LuxuryCategory(req.LuxurySubcategory)); ok {
			results := make([]Result, 0, len(entries))
			for _, e := range entries {
				results = append(results, e.result())
			}
			return Response{
				SchemaVersion: SchemaVersion,
				GeneratedAt:   Timestamp{s.now()},
				PartnerTypes:  []string{"curated"},
				Results:       results,
			}, nil
		}
	}
	return s.remote.Search(ctx, req)
}

// rank orders candidates: trust gates first, then a composite of trust
// score, rating, and proximity. Ties break on name so output is stable.
func rank(results []Result, req SearchRequest) []Result {
	for i := range results {
		r := &results[i]
		r.RankScore = r.Trust.Score*2 + r.Rating - r.DistanceMiles*0.02
		r.RankReasons = r.RankReasons[:0]
		if r.Trust.GatesPassed {
			r.RankReasons = append(r.RankReasons, "passed trust checks")
		} else {
			r.RankReasons = append(r.RankReasons, "trust checks incomplete")
		}
		if r.Rating >= 4.5 {
			r.RankReasons = append(r.RankReasons, "highly rated")
		}
		if r.DistanceMiles > 0 && req.RadiusMiles > 0 && r.DistanceMiles <= float64(req.RadiusMiles)/2 {
			r.RankReasons = append(r.RankReasons, "close by")
		}
		if r.Rationale == "" {
			r.Rationale = fmt.Sprintf("Candidate %s for your %s search", r.Type, req.Block)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Trust.GatesPassed != results[j].Trust.GatesPassed {
			return results[i].Trust.GatesPassed
		}
		if results[i].RankScore != results[j].RankScore {
			return results[i].RankScore > results[j].RankScore
		}
		return results[i].Name < results[j].Name
	})
	return results
}
