package records

import (
	"context"
)

// Filter narrows record listings. Empty fields match everything.
type Filter struct {
	Movement    string
	Division    string
	Sex         string
	Equipment   string
	WeightClass string
}

// Matches reports whether a record passes the filter.
func (f Filter) Matches(r Record) bool {
	return match(f.Movement, string(r.Key.Movement)) &&
		match(f.Division, string(r.Key.Division)) &&
		match(f.Sex, string(r.Key.Sex)) &&
		match(f.Equipment, string(r.Key.Equipment)) &&
		match(f.WeightClass, r.Key.WeightClass)
}

func match(want, got string) bool {
	return want == "" || want == got
}

// Repository stores the record book of one or more datasets.
type Repository interface {
	// Apply loads the dataset's records as a Book, runs fn, and persists
	// every changed record. The whole call is one unit: concurrent Apply
	// calls for the same dataset are serialized and fn always sees a
	// consistent snapshot. If fn returns an error nothing is written.
	Apply(ctx context.Context, dataset string, fn func(book *Book) error) error

	// List returns records matching the filter, ordered by key.
	List(ctx context.Context, dataset string, filter Filter) ([]Record, error)
}
