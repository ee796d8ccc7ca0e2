package domain

import "time"

// ClassifyDemand parses the raw demand text and buckets it into a 1..8
// rating. It never fails: text without a leading integer is demand 0.
func ClassifyDemand(raw string, now time.Time) DemandRecord {
	value := ParseLeadingInt(raw)
	return DemandRecord{
		Demand:      value,
		Rating:      demandRating(value),
		RetrievedAt: now,
	}
}

// demandRating maps megawatts to a rating in 500 MW steps:
//
//	<1500 → 1 | <2000 → 2 | <2500 → 3 | <3000 → 4
//	<3500 → 5 | <4000 → 6 | <4500 → 7 | ≥4500 → 8
//
// Returns nil if no bucket matches, which cannot happen with these bounds.
func demandRating(v int) *int {
	var r int
	switch {
	case v < 1500:
		r = 1
	case v < 2000:
		r = 2
	case v < 2500:
		r = 3
	case v < 3000:
		r = 4
	case v < 3500:
		r = 5
	case v < 4000:
		r = 6
	case v < 4500:
		r = 7
	case v >= 4500:
		r = 8
	default:
		return nil
	}
	return &r
}
