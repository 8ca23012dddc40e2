package models

import "errors"

// ErrInvalidFilterRange is returned when a filter's age range is inverted
// (min greater than max). An empty feasible range that simply never matches
// anyone is not an error.
var ErrInvalidFilterRange = errors.New("filter: min age greater than max age")

// Filter holds a participant's optional matching constraints. A zero Filter
// accepts everyone. Filters are immutable once submitted; re-joining the
// queue replaces the previous filter.
type Filter struct {
	// MinAge and MaxAge bound the acceptable partner age. Zero means unbounded.
	MinAge int `json:"min_age,omitempty"`
	MaxAge int `json:"max_age,omitempty"`
	// Countries is the set of acceptable partner country codes.
	// Empty means any country.
	Countries []string `json:"countries,omitempty"`
}

// Validate rejects structurally invalid filters at submission time.
func (f Filter) Validate() error {
	if f.MinAge > 0 && f.MaxAge > 0 && f.MinAge > f.MaxAge {
		return ErrInvalidFilterRange
	}
	return nil
}

// Accepts reports whether a candidate with the given attributes satisfies
// the filter. An explicit constraint against an unknown attribute fails:
// a participant who never disclosed an age cannot pass an age-bounded filter.
func (f Filter) Accepts(candidate PartnerInfo) bool {
	if f.MinAge > 0 || f.MaxAge > 0 {
		if candidate.Age == 0 {
			return false
		}
		if f.MinAge > 0 && candidate.Age < f.MinAge {
			return false
		}
		if f.MaxAge > 0 && candidate.Age > f.MaxAge {
			return false
		}
	}
	if len(f.Countries) > 0 {
		found := false
		for _, c := range f.Countries {
			if c == candidate.Country {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
