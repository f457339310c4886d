package pricing

import (
	"math"
	"time"
)

// Delegate and room types accepted by the accommodation desk.
const (
	DelegateIndian        = "Indian Delegate"
	DelegateInternational = "International Delegate"
	RoomTwinSharing       = "Twin Sharing"
	RoomSingleOccupancy   = "Single Occupancy"
)

// AccommodationQuote is the stay breakdown in minor units.
type AccommodationQuote struct {
	DailyRate int64
	Nights    int
	Amount    int64
	Currency  Currency
}

// Nights counts billable nights as ceil((checkOut - checkIn) / 24h).
// POST: Returns 0 when checkOut is not after checkIn
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// AccommodationRate selects the per-night rate. Delegate types other than Indian use the international row.
func (t Tables) AccommodationRate(delegateType, roomType string) (DailyRate, bool) {
	if delegateType == "" || roomType == "" {
		return DailyRate{}, false
	}
	rooms, ok := t.Accommodation[delegateType]
	if !ok {
		rooms, ok = t.Accommodation[DelegateInternational]
		if !ok {
			return DailyRate{}, false
		}
	}
	r, ok := rooms[roomType]
	return r, ok
}

// QuoteAccommodation prices a stay.
// POST: Amount = DailyRate * Nights; zero when the selection is incomplete or nights <= 0
func (t Tables) QuoteAccommodation(delegateType, roomType string, nights int) AccommodationQuote {
	currency := USD
	if delegateType == DelegateIndian {
		currency = INR
	}
	r, ok := t.AccommodationRate(delegateType, roomType)
	if !ok {
		return AccommodationQuote{Currency: currency}
	}
	nights = max(nights, 0)
	return AccommodationQuote{
		DailyRate: r.DailyRate,
		Nights:    nights,
		Amount:    r.DailyRate * int64(nights),
		Currency:  r.Currency,
	}
}
