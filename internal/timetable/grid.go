package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GenerateTimeSlots produces consecutive slots of durationMinutes from startHour.
// endHour is exclusive for slot starts: no slot begins at or after it. A grid
// whose last slot would reach midnight is rejected.
func GenerateTimeSlots(startHour, endHour string, durationMinutes int) ([]models.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be a positive number of minutes"}
	}
	start, err := ParseClock(startHour)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(endHour)
	if err != nil {
		return nil, err
	}

	var slots []models.TimeSlot
	for cursor := start; cursor < end; cursor = cursor.Add(durationMinutes) {
		if cursor.Add(durationMinutes) >= minutesPerDay {
			return nil, &ValidationError{
				Field:  "end",
				Reason: fmt.Sprintf("slot starting %s would run past midnight", cursor),
			}
		}
		slots = append(slots, models.TimeSlot{
			Start: cursor.String(),
			End:   cursor.Add(durationMinutes).String(),
		})
	}
	return slots, nil
}

type cellKey struct {
	day   models.Weekday
	start string
}

// Grid binds a time grid and a class schedule for lookups and editor intents.
type Grid struct {
	times []models.TimeSlot
	days  []models.Weekday
	cells map[cellKey]models.ScheduleSlot
}

// NewGrid indexes the schedule by (day, start time). Later duplicates win.
func NewGrid(times []models.TimeSlot, days []models.Weekday, schedule []models.ScheduleSlot) *Grid {
	if len(days) == 0 {
		days = models.Weekdays
	}
	cells := make(map[cellKey]models.ScheduleSlot, len(schedule))
	for _, slot := range schedule {
		cells[cellKey{day: slot.Day, start: slot.StartTime}] = slot
	}
	return &Grid{times: times, days: days, cells: cells}
}

// Lookup returns the slot occupying the cell, if any.
func (g *Grid) Lookup(day models.Weekday, start string) (models.ScheduleSlot, bool) {
	slot, ok := g.cells[cellKey{day: day, start: start}]
	return slot, ok
}

// Times returns the grid rows.
func (g *Grid) Times() []models.TimeSlot {
	return g.times
}

// Days returns the grid columns.
func (g *Grid) Days() []models.Weekday {
	return g.days
}

// Cell is one time × day position of the matrix.
type Cell struct {
	Day  models.Weekday       `json:"day"`
	Slot *models.ScheduleSlot `json:"slot,omitempty"`
}

// Row is one time slot of the matrix with a cell per day.
type Row struct {
	Time  models.TimeSlot `json:"time"`
	Cells []Cell          `json:"cells"`
}

// Rows renders the matrix used by matrix, calendar and export views.
func (g *Grid) Rows() []Row {
	rows := make([]Row, 0, len(g.times))
	for _, ts := range g.times {
		row := Row{Time: ts, Cells: make([]Cell, 0, len(g.days))}
		for _, day := range g.days {
			cell := Cell{Day: day}
			if slot, ok := g.Lookup(day, ts.Start); ok {
				s := slot
				cell.Slot = &s
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

// IntentKind enumerates the editor mutations a cell exposes.
type IntentKind string

const (
	IntentDrop  IntentKind = "drop"
	IntentEdit  IntentKind = "edit"
	IntentClear IntentKind = "clear"
)

// Intent is an editor mutation resolved against the grid. The caller wires it to
// the conflict checker and the slot store.
type Intent struct {
	Kind      IntentKind
	Day       models.Weekday
	StartTime string
	EndTime   string
	Existing  *models.ScheduleSlot
}

// Drop resolves dropping an item on a cell; the end time comes from the grid row.
func (g *Grid) Drop(day models.Weekday, start string) (Intent, error) {
	return g.intent(IntentDrop, day, start)
}

// Edit resolves a click on a cell, carrying the slot that occupies it.
func (g *Grid) Edit(day models.Weekday, start string) (Intent, error) {
	return g.intent(IntentEdit, day, start)
}

// Clear resolves clearing a cell.
func (g *Grid) Clear(day models.Weekday, start string) (Intent, error) {
	return g.intent(IntentClear, day, start)
}

func (g *Grid) intent(kind IntentKind, day models.Weekday, start string) (Intent, error) {
	if !g.hasDay(day) {
		return Intent{}, &ValidationError{Field: "day", Reason: "not part of the grid"}
	}
	ts, ok := g.row(start)
	if !ok {
		return Intent{}, &ValidationError{Field: "start_time", Reason: "not a grid row"}
	}
	intent := Intent{Kind: kind, Day: day, StartTime: ts.Start, EndTime: ts.End}
	if slot, ok := g.Lookup(day, start); ok {
		s := slot
		intent.Existing = &s
		if kind == IntentEdit {
			intent.EndTime = slot.EndTime
		}
	}
	return intent, nil
}

func (g *Grid) row(start string) (models.TimeSlot, bool) {
	for _, ts := range g.times {
		if ts.Start == start {
			return ts, true
		}
	}
	return models.TimeSlot{}, false
}

func (g *Grid) hasDay(day models.Weekday) bool {
	for _, d := range g.days {
		if d == day {
			return true
		}
	}
	return false
}
