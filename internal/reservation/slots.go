package reservation

import (
	"fmt"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// DefaultGranularity is the slot length when none is configured.
const DefaultGranularity = time.Hour

// ComputeSlots builds the slot grid for f on date.
//
// Slots start at the opening time and step by granularity while the slot
// still ends at or before closing time. existing holds the stored
// reservations for (f, date) in any status; entries for another field or day
// are ignored. All instants are evaluated in now's location.
//
// The function is pure: the result depends only on its arguments.
func ComputeSlots(f *field.Field, date string, existing []*Reservation, now time.Time, granularity time.Duration) ([]Slot, error) {
	open, err := daytime.ParseClock(f.OpenTime)
	if err != nil {
		return nil, apperror.Wrap(field.ErrInvalidOpeningHours, err)
	}
	closing, err := daytime.ParseClock(f.CloseTime)
	if err != nil {
		return nil, apperror.Wrap(field.ErrInvalidOpeningHours, err)
	}
	day, err := daytime.ParseDate(date, now.Location())
	if err != nil {
		return nil, apperror.Wrap(ErrInvalidDate, err)
	}

	step := int(granularity / time.Minute)
	if step <= 0 {
		step = int(DefaultGranularity / time.Minute)
	}

	today := daytime.StartOfDay(now)
	isPastDay := day.Before(today)
	isToday := day.Equal(today)
	closed := f.IsClosedOn(day.Weekday())

	// Pricing is per hour; shorter or longer slots are charged pro rata.
	price := f.Pricing * float64(step) / 60

	intervals := indexReservations(f.ID, date, existing)

	slots := make([]Slot, 0, (closing-open)/step)
	for start := open; start+step <= closing; start += step {
		end := start + step
		startLabel := daytime.FormatClock(start)
		endLabel := daytime.FormatClock(end)

		slot := Slot{
			ID:        fmt.Sprintf("%s_%s", date, startLabel),
			Label:     startLabel + " - " + endLabel,
			StartTime: startLabel,
			EndTime:   endLabel,
			Price:     price,
			IsPastDay: isPastDay,
			// A slot that has already started can no longer be booked.
			IsPastHour: isToday && !daytime.At(day, start).After(now),
			Closed:     closed,
		}

		taken := false
		if m := matchSlot(intervals, start, end); m != nil {
			slot.ReservationID = m.ID
			slot.Status = m.Status
			slot.OwnerOfBooking = m.PlayerID
			taken = m.Status.Live()
		}
		slot.Available = !slot.IsPastDay && !slot.IsPastHour && !slot.Closed && !taken

		slots = append(slots, slot)
	}

	return slots, nil
}

type interval struct {
	start, end int
	r          *Reservation
}

func indexReservations(fieldID, date string, existing []*Reservation) []interval {
	out := make([]interval, 0, len(existing))
	for _, r := range existing {
		if r == nil || r.Date != date || (fieldID != "" && r.FieldID != "" && r.FieldID != fieldID) {
			continue
		}
		s, err1 := daytime.ParseClock(r.StartTime)
		e, err2 := daytime.ParseClock(r.EndTime)
		if err1 != nil || err2 != nil || e <= s {
			continue
		}
		out = append(out, interval{start: s, end: e, r: r})
	}
	return out
}

// matchSlot returns the reservation annotating [start, end). A live
// reservation overlapping the slot wins; otherwise a cancelled reservation
// that started exactly at the slot is reported so clients can show history.
func matchSlot(intervals []interval, start, end int) *Reservation {
	var cancelled *Reservation
	for _, iv := range intervals {
		if iv.r.Status.Live() {
			if iv.start < end && iv.end > start {
				return iv.r
			}
			continue
		}
		if iv.start == start && cancelled == nil {
			cancelled = iv.r
		}
	}
	return cancelled
}
