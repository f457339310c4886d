package pricing

import "time"

// Tier is a date-based price band.
type Tier string

// Pricing tiers in chronological order.
const (
	TierEarlyBird Tier = "earlyBird"
	TierStandard  Tier = "standard"
	TierLate      Tier = "late"
)

// Cutoffs holds the last calendar day of the early-bird and standard tiers.
// Both days are inclusive and interpreted in Location.
type Cutoffs struct {
	EarlyBirdEnd time.Time
	StandardEnd  time.Time
	Location     *time.Location
}

// Resolve maps an instant to its pricing tier.
// PRE: EarlyBirdEnd is not after StandardEnd
// POST: Returns earlyBird on or before EarlyBirdEnd, standard on or before StandardEnd, late otherwise
func (c Cutoffs) Resolve(at time.Time) Tier {
	day := c.day(at)
	if !day.After(c.day(c.EarlyBirdEnd)) {
		return TierEarlyBird
	}
	if !day.After(c.day(c.StandardEnd)) {
		return TierStandard
	}
	return TierLate
}

// day truncates t to midnight of its calendar date in the cutoff location.
func (c Cutoffs) day(t time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
