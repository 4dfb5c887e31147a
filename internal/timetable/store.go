package timetable

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SlotStore holds one class's schedule. Every mutation rebuilds the slice rather
// than editing entries in place, so slices handed out earlier stay untouched.
type SlotStore struct {
	slots []models.ScheduleSlot
}

// NewSlotStore copies the given schedule into a store.
func NewSlotStore(slots []models.ScheduleSlot) *SlotStore {
	return &SlotStore{slots: cloneSlots(slots)}
}

// Slots returns a copy of the current schedule.
func (s *SlotStore) Slots() []models.ScheduleSlot {
	return cloneSlots(s.slots)
}

// Len returns the number of slots.
func (s *SlotStore) Len() int {
	return len(s.slots)
}

// Find returns the slot keyed by (day, start time).
func (s *SlotStore) Find(day models.Weekday, start string) (models.ScheduleSlot, bool) {
	for _, slot := range s.slots {
		if slot.Day == day && slot.StartTime == start {
			return slot, true
		}
	}
	return models.ScheduleSlot{}, false
}

// Assign replaces whatever occupies the slot's (day, start time) with the slot.
func (s *SlotStore) Assign(v ValidatedSlot) {
	slot := v.Slot()
	next := s.without(func(existing models.ScheduleSlot) bool {
		return existing.Day == slot.Day && existing.StartTime == slot.StartTime
	})
	s.slots = append(next, slot)
}

// Clear removes the slot keyed by (day, start time). Missing keys are a no-op.
// It reports whether a slot was removed.
func (s *SlotStore) Clear(day models.Weekday, start string) bool {
	before := len(s.slots)
	s.slots = s.without(func(existing models.ScheduleSlot) bool {
		return existing.Day == day && existing.StartTime == start
	})
	return len(s.slots) != before
}

// ClearAll empties the schedule.
func (s *SlotStore) ClearAll() {
	s.slots = []models.ScheduleSlot{}
}

// BulkReplaceDayWindow removes every slot on day whose start lies in
// [windowStart, windowEnd) and appends newSlots. It returns the number removed.
func (s *SlotStore) BulkReplaceDayWindow(day models.Weekday, windowStart, windowEnd string, newSlots []models.ScheduleSlot) (int, error) {
	window, err := ParseRange(windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	next := make([]models.ScheduleSlot, 0, len(s.slots)+len(newSlots))
	removed := 0
	for _, slot := range s.slots {
		if slot.Day == day {
			start, err := ParseClock(slot.StartTime)
			if err != nil {
				return 0, err
			}
			if window.Contains(start) {
				removed++
				continue
			}
		}
		next = append(next, slot)
	}
	s.slots = append(next, cloneSlots(newSlots)...)
	return removed, nil
}

func (s *SlotStore) without(match func(models.ScheduleSlot) bool) []models.ScheduleSlot {
	next := make([]models.ScheduleSlot, 0, len(s.slots)+1)
	for _, slot := range s.slots {
		if match(slot) {
			continue
		}
		next = append(next, slot)
	}
	return next
}

func cloneSlots(slots []models.ScheduleSlot) []models.ScheduleSlot {
	out := make([]models.ScheduleSlot, len(slots))
	copy(out, slots)
	return out
}
