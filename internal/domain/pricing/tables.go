package pricing

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrNoSnapshot       = errors.New("no rate snapshot is effective at the requested time")
	ErrInvalidSnapshot  = errors.New("rate snapshot is invalid")
	ErrUnknownSelection = errors.New("category and event type do not resolve to a rate")
)

// DelegateClass is the coarse grouping used by flat-priced events.
type DelegateClass string

const (
	ClassInternational DelegateClass = "International Delegate"
	ClassStudent       DelegateClass = "UG Students"
	ClassDomestic      DelegateClass = "Indian Delegate"
)

// ClassOf derives the delegate class from a category label.
// POST: "International Delegate" anywhere in the label wins over "Student"
func ClassOf(category string) DelegateClass {
	lower := strings.ToLower(category)
	switch {
	case strings.Contains(lower, "international delegate"):
		return ClassInternational
	case strings.Contains(lower, "student"):
		return ClassStudent
	default:
		return ClassDomestic
	}
}

// IsInternational reports whether the category is an international delegate category.
func IsInternational(category string) bool {
	return ClassOf(category) == ClassInternational
}

// Fee is a tier's fee pair in major units.
type Fee struct {
	Fee            float64 `json:"fee"`
	ConvenienceFee float64 `json:"convenienceFee"`
}

// Rate is either tiered (Tiers set) or flat (Amount set), always in a single currency.
type Rate struct {
	Currency Currency     `json:"currency"`
	Tiers    map[Tier]Fee `json:"tiers,omitempty"`
	Amount   float64      `json:"amount,omitempty"`
}

// At returns the fee pair that applies in tier t.
// POST: Flat rates return {Amount, 0} for every tier; missing tiers return false
func (r Rate) At(t Tier) (Fee, bool) {
	if r.Tiers == nil {
		return Fee{Fee: r.Amount}, r.Amount > 0
	}
	f, ok := r.Tiers[t]
	return f, ok
}

// DailyRate is the per-night accommodation charge in minor units.
type DailyRate struct {
	DailyRate int64    `json:"dailyRate"`
	Currency  Currency `json:"currency"`
}

// Tables is one versioned snapshot of every rate the site charges.
type Tables struct {
	Version       string
	EffectiveFrom time.Time
	MainEvent     string
	Cutoffs       Cutoffs
	// Categories holds the tiered per-category rates for MainEvent.
	Categories map[string]Rate
	// Events holds flat rates for every other event, keyed by delegate class.
	Events map[string]map[DelegateClass]Rate
	// Accompanying is keyed by event type; tiered for MainEvent, flat otherwise.
	Accompanying map[string]Rate
	Coupons      []Coupon
	// Accommodation is keyed by delegate type then room type.
	Accommodation map[string]map[string]DailyRate
}

// PrimaryRate finds the rate for a category under an event type.
// POST: Returns false for unknown combinations
func (t Tables) PrimaryRate(category, eventType string) (Rate, bool) {
	if category == "" || eventType == "" {
		return Rate{}, false
	}
	if eventType == t.MainEvent {
		r, ok := t.Categories[category]
		return r, ok
	}
	byClass, ok := t.Events[eventType]
	if !ok {
		return Rate{}, false
	}
	r, ok := byClass[ClassOf(category)]
	return r, ok
}

// AccompanyingRate finds the per-person accompanying rate for an event type.
func (t Tables) AccompanyingRate(eventType string) (Rate, bool) {
	r, ok := t.Accompanying[eventType]
	return r, ok
}

// Coupon looks up a coupon by code, case-insensitively.
func (t Tables) Coupon(code string) (Coupon, bool) {
	code = strings.TrimSpace(code)
	for _, c := range t.Coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Coupon{}, false
}

// CategoryNames lists main-event categories in sorted order.
func (t Tables) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for name := range t.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the snapshot is internally consistent.
// POST: Returns ErrInvalidSnapshot wrapped with detail, or nil
func (t Tables) Validate() error {
	if t.Version == "" {
		return errors.Join(ErrInvalidSnapshot, errors.New("version is required"))
	}
	if t.MainEvent == "" {
		return errors.Join(ErrInvalidSnapshot, errors.New("main event is required"))
	}
	if t.Cutoffs.StandardEnd.Before(t.Cutoffs.EarlyBirdEnd) {
		return errors.Join(ErrInvalidSnapshot, errors.New("standard cutoff precedes early-bird cutoff"))
	}
	for name, r := range t.Categories {
		if !r.Currency.Valid() {
			return errors.Join(ErrInvalidSnapshot, errors.New("category "+name+" has unsupported currency"))
		}
		for _, tier := range []Tier{TierEarlyBird, TierStandard, TierLate} {
			if _, ok := r.Tiers[tier]; !ok {
				return errors.Join(ErrInvalidSnapshot, errors.New("category "+name+" is missing tier "+string(tier)))
			}
		}
	}
	for event, byClass := range t.Events {
		for class, r := range byClass {
			if !r.Currency.Valid() {
				return errors.Join(ErrInvalidSnapshot, errors.New("event "+event+"/"+string(class)+" has unsupported currency"))
			}
		}
	}
	for _, c := range t.Coupons {
		if err := c.Validate(); err != nil {
			return errors.Join(ErrInvalidSnapshot, err)
		}
	}
	return nil
}

// Schedule is the set of snapshots ever published, sorted by EffectiveFrom ascending.
type Schedule []Tables

// NewSchedule sorts and validates snapshots.
// POST: Returns ErrNoSnapshot when snapshots is empty
func NewSchedule(snapshots []Tables) (Schedule, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshot
	}
	s := make(Schedule, len(snapshots))
	copy(s, snapshots)
	sort.SliceStable(s, func(i, j int) bool { return s[i].EffectiveFrom.Before(s[j].EffectiveFrom) })
	for _, t := range s {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Active returns the latest snapshot whose EffectiveFrom is not after at.
// POST: Falls back to the earliest snapshot when at precedes all of them
func (s Schedule) Active(at time.Time) (Tables, error) {
	if len(s) == 0 {
		return Tables{}, ErrNoSnapshot
	}
	active := s[0]
	for _, t := range s[1:] {
		if t.EffectiveFrom.After(at) {
			break
		}
		active = t
	}
	return active, nil
}
