package catalog

import (
	"context"
	"errors"

	"pharmacy-portal/internal/rx"
	"pharmacy-portal/pkg"
)

// Aggregator runs the matcher over every raw directive of a diagnosis.
type Aggregator struct {
	Matcher *Matcher
}

// NewAggregator constructs an Aggregator over the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Matcher: NewMatcher(store)}
}

// Resolve normalizes and matches each directive in listed order, producing
// one result per directive in that same order. A failed catalog lookup marks
// only that directive unresolved; the report stays partial rather than
// aborting, and the joined lookup errors come back alongside it. A directive
// with no surviving candidate resolves to quality "none" without error.
func (a *Aggregator) Resolve(ctx context.Context, directives []string) (*pkg.ResolutionReport, error) {
	results := make([]pkg.MatchResult, 0, len(directives))
	var errs []error
	for _, raw := range directives {
		res, err := a.Matcher.Match(ctx, rx.Normalize(raw))
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, res)
	}
	return pkg.NewResolutionReport(results), errors.Join(errs...)
}
