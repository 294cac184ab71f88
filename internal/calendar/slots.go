package calendar

import (
	"sort"
	"time"

	"eduai/internal/models"
)

// ComputeFreeSlots walks [start, end) in steps of slot and keeps every slot that
// overlaps no busy period. A slot that would run past end is dropped.
func ComputeFreeSlots(start, end time.Time, busy []models.TimeSlot, slot time.Duration) []models.TimeSlot {
	if slot <= 0 {
		slot = time.Hour
	}
	sorted := append([]models.TimeSlot(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := make([]models.TimeSlot, 0)
	for cur := start; !cur.Add(slot).After(end); cur = cur.Add(slot) {
		slotEnd := cur.Add(slot)
		free := true
		for _, b := range sorted {
			if !b.Start.Before(slotEnd) {
				break
			}
			if slotEnd.After(b.Start) && cur.Before(b.End) {
				free = false
				break
			}
		}
		if free {
			out = append(out, models.TimeSlot{Start: cur, End: slotEnd})
		}
	}
	return out
}

// WithinHours keeps slots that start and end inside [fromHour, toHour) local time.
func WithinHours(slots []models.TimeSlot, loc *time.Location, fromHour, toHour int) []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(slots))
	for _, s := range slots {
		st, en := s.Start.In(loc), s.End.In(loc)
		if st.Hour() < fromHour {
			continue
		}
		endLimit := time.Date(st.Year(), st.Month(), st.Day(), toHour, 0, 0, 0, loc)
		if en.After(endLimit) {
			continue
		}
		out = append(out, s)
	}
	return out
}
