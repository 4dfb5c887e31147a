package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DurationKind selects the part of the day a mass event covers.
type DurationKind string

const (
	WholeDay DurationKind = "WholeDay"
	AM       DurationKind = "AM"
	PM       DurationKind = "PM"
)

// Window is the start/end pair a duration kind expands to.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultWindows are the day parts used when the caller supplies no override.
var DefaultWindows = map[DurationKind]Window{
	WholeDay: {Start: "07:00", End: "17:00"},
	AM:       {Start: "07:00", End: "12:00"},
	PM:       {Start: "12:00", End: "17:00"},
}

// DefaultMassEventSlotMinutes is the width of each inserted mass-event slot.
const DefaultMassEventSlotMinutes = 60

// MassEvent describes a non-instructional activity applied to many classes at once.
type MassEvent struct {
	Scope        func(models.ClassInfo) bool
	Day          models.Weekday
	Duration     DurationKind
	Title        string
	ActivityType models.ActivityType
	// Windows overrides DefaultWindows per duration kind.
	Windows     map[DurationKind]Window
	SlotMinutes int
	NewID       func() string
}

// MassEventResult reports the outcome for one class in scope.
type MassEventResult struct {
	ClassID  string `json:"class_id"`
	Label    string `json:"label"`
	Applied  bool   `json:"applied"`
	Removed  int    `json:"removed"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// ResolveWindow returns the window for the event's duration kind.
func (e MassEvent) ResolveWindow() (Window, error) {
	if w, ok := e.Windows[e.Duration]; ok {
		return w, nil
	}
	if w, ok := DefaultWindows[e.Duration]; ok {
		return w, nil
	}
	return Window{}, &ValidationError{Field: "duration", Reason: fmt.Sprintf("unknown duration kind %q", e.Duration)}
}

// ApplyMassEvent returns a new class list where every class in scope has the event's
// window replaced by event slots, plus one result per class in scope. The input
// classes are not modified. Classes whose schedule cannot be rewritten keep their
// original schedule and carry the error in their result.
func ApplyMassEvent(classes []models.ClassInfo, event MassEvent) ([]models.ClassInfo, []MassEventResult, error) {
	slots, window, err := expandMassEvent(event)
	if err != nil {
		return nil, nil, err
	}

	updated := make([]models.ClassInfo, len(classes))
	results := make([]MassEventResult, 0, len(classes))
	for i, class := range classes {
		updated[i] = class
		if event.Scope != nil && !event.Scope(class) {
			continue
		}
		result := MassEventResult{ClassID: class.ID, Label: class.Label()}

		store := NewSlotStore(class.Schedule)
		fresh := make([]models.ScheduleSlot, len(slots))
		for j, slot := range slots {
			slot.ID = event.NewID()
			fresh[j] = slot
		}
		removed, err := store.BulkReplaceDayWindow(event.Day, window.Start, window.End, fresh)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		updated[i].Schedule = store.Slots()
		result.Applied = true
		result.Removed = removed
		result.Inserted = len(fresh)
		results = append(results, result)
	}
	return updated, results, nil
}

func expandMassEvent(event MassEvent) ([]models.ScheduleSlot, Window, error) {
	if !event.Day.Valid() {
		return nil, Window{}, &ValidationError{Field: "day", Reason: fmt.Sprintf("unknown weekday %q", event.Day)}
	}
	if event.Title == "" {
		return nil, Window{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if !event.ActivityType.Valid() || event.ActivityType == models.ActivityLecture {
		return nil, Window{}, &ValidationError{Field: "activity_type", Reason: fmt.Sprintf("%q is not a mass-event activity", event.ActivityType)}
	}
	if event.NewID == nil {
		return nil, Window{}, &ValidationError{Field: "id generator", Reason: "is required"}
	}
	step := event.SlotMinutes
	if step == 0 {
		step = DefaultMassEventSlotMinutes
	}
	if step < 0 {
		return nil, Window{}, &ValidationError{Field: "slot_minutes", Reason: "must be positive"}
	}
	window, err := event.ResolveWindow()
	if err != nil {
		return nil, Window{}, err
	}
	span, err := ParseRange(window.Start, window.End)
	if err != nil {
		return nil, Window{}, err
	}

	var slots []models.ScheduleSlot
	for cursor := span.Start; cursor < span.End; cursor = cursor.Add(step) {
		end := cursor.Add(step)
		if end > span.End {
			end = span.End
		}
		slots = append(slots, models.ScheduleSlot{
			Day:          event.Day,
			StartTime:    cursor.String(),
			EndTime:      end.String(),
			SubjectName:  event.Title,
			Type:         slotTypeFor(event.ActivityType),
			ActivityType: event.ActivityType,
			Title:        event.Title,
		})
	}
	return slots, window, nil
}
