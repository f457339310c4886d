package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"conference/internal/domain/course"
	"conference/internal/domain/pricing"
)

//go:embed rates.json
var defaultRates []byte

// Rates is the decoded rate file: every dated pricing snapshot plus the course catalog.
type Rates struct {
	Schedule pricing.Schedule
	Courses  course.Catalog
}

type ratesFile struct {
	Snapshots []snapshotDoc   `json:"snapshots"`
	Courses   []course.Course `json:"courses"`
}

type snapshotDoc struct {
	Version          string `json:"version"`
	EffectiveFrom    string `json:"effectiveFrom"`
	UTCOffsetMinutes int    `json:"utcOffsetMinutes"`
	MainEvent        string `json:"mainEvent"`
	Cutoffs          struct {
		EarlyBirdEnd string `json:"earlyBirdEnd"`
		StandardEnd  string `json:"standardEnd"`
	} `json:"cutoffs"`
	Categories    map[string]pricing.Rate                           `json:"categories"`
	Events        map[string]map[pricing.DelegateClass]pricing.Rate `json:"events"`
	Accompanying  map[string]pricing.Rate                           `json:"accompanying"`
	Coupons       []pricing.Coupon                                  `json:"coupons"`
	Accommodation map[string]map[string]pricing.DailyRate           `json:"accommodation"`
}

// LoadRates reads the rate file at path, or the embedded default when path is empty.
func LoadRates(path string) (Rates, error) {
	data := defaultRates
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Rates{}, fmt.Errorf("read rates file: %w", err)
		}
		data = b
	}
	return ParseRates(data)
}

// ParseRates decodes and validates a rate document.
func ParseRates(data []byte) (Rates, error) {
	var doc ratesFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return Rates{}, fmt.Errorf("decode rates: %w", err)
	}

	snapshots := make([]pricing.Tables, 0, len(doc.Snapshots))
	for _, s := range doc.Snapshots {
		t, err := s.tables()
		if err != nil {
			return Rates{}, fmt.Errorf("snapshot %q: %w", s.Version, err)
		}
		snapshots = append(snapshots, t)
	}
	schedule, err := pricing.NewSchedule(snapshots)
	if err != nil {
		return Rates{}, err
	}
	return Rates{Schedule: schedule, Courses: doc.Courses}, nil
}

func (s snapshotDoc) tables() (pricing.Tables, error) {
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", s.UTCOffsetMinutes/60), s.UTCOffsetMinutes*60)
	from, err := time.ParseInLocation(time.DateOnly, s.EffectiveFrom, loc)
	if err != nil {
		return pricing.Tables{}, fmt.Errorf("effectiveFrom: %w", err)
	}
	early, err := time.ParseInLocation(time.DateOnly, s.Cutoffs.EarlyBirdEnd, loc)
	if err != nil {
		return pricing.Tables{}, fmt.Errorf("earlyBirdEnd: %w", err)
	}
	standard, err := time.ParseInLocation(time.DateOnly, s.Cutoffs.StandardEnd, loc)
	if err != nil {
		return pricing.Tables{}, fmt.Errorf("standardEnd: %w", err)
	}
	return pricing.Tables{
		Version:       s.Version,
		EffectiveFrom: from,
		MainEvent:     s.MainEvent,
		Cutoffs:       pricing.Cutoffs{EarlyBirdEnd: early, StandardEnd: standard, Location: loc},
		Categories:    s.Categories,
		Events:        s.Events,
		Accompanying:  s.Accompanying,
		Coupons:       s.Coupons,
		Accommodation: s.Accommodation,
	}, nil
}
