package catalog

import (
	"context"
	"fmt"

	"pharmacy-portal/pkg"
)

// Matcher resolves one normalized directive against the catalog store.
//
// Candidate names are tried in their original order and the first candidate
// that yields any hit wins outright, even when a later candidate could have
// produced a higher-quality hit. That first-match-wins rule is an intended
// product decision, not an oversight; do not reorder or retry tiers across
// candidates.
type Matcher struct {
	Store Store
}

// NewMatcher constructs a Matcher over the given store.
func NewMatcher(store Store) *Matcher { return &Matcher{Store: store} }

// Match returns exactly one MatchResult for the directive. When a dosage was
// requested the exact tier (name contains candidate AND dosage contains the
// requested dosage) is tried first; otherwise, or on a miss, the name-only
// tier follows, tagged partial if a dosage had been requested and name_only
// if not. A store failure surfaces as an error together with an unresolved
// result; the caller decides whether to keep a partial report.
func (m *Matcher) Match(ctx context.Context, d pkg.NormalizedDirective) (pkg.MatchResult, error) {
	res := pkg.MatchResult{Directive: d.Raw, Quality: pkg.MatchNone}
	for _, name := range d.CandidateNames {
		if d.Dosage != "" {
			items, err := m.Store.FindByNameAndDosage(ctx, name, d.Dosage)
			if err != nil {
				res.Unresolved = true
				return res, fmt.Errorf("catalog lookup %q %q: %w", name, d.Dosage, err)
			}
			if len(items) > 0 {
				item := pickBest(items)
				res.Item = &item
				res.Quality = pkg.MatchExact
				return res, nil
			}
		}
		items, err := m.Store.FindByName(ctx, name)
		if err != nil {
			res.Unresolved = true
			return res, fmt.Errorf("catalog lookup %q: %w", name, err)
		}
		if len(items) > 0 {
			item := pickBest(items)
			res.Item = &item
			if d.Dosage != "" {
				res.Quality = pkg.MatchPartial
			} else {
				res.Quality = pkg.MatchNameOnly
			}
			return res, nil
		}
	}
	return res, nil
}

// pickBest prefers the deepest stock, then the lowest price.
func pickBest(items []pkg.CatalogItem) pkg.CatalogItem {
	best := items[0]
	for _, it := range items[1:] {
		if it.StockQuantity > best.StockQuantity ||
			(it.StockQuantity == best.StockQuantity && it.Price < best.Price) {
			best = it
		}
	}
	return best
}
