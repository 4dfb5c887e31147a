package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Candidate is a prospective occupation of a day/time range by a teacher and room.
type Candidate struct {
	Day       models.Weekday
	StartTime string
	EndTime   string
	ClassID   string
	TeacherID string
	RoomID    string
}

// CheckConflict returns the first teacher or room double-booking the candidate would
// cause against every class other than candidate.ClassID, or nil. The scan stops at
// the first hit, in class order then slot order.
func CheckConflict(candidate Candidate, classes []models.ClassInfo) (*models.ScheduleConflict, error) {
	var found *models.ScheduleConflict
	err := scanConflicts(candidate, classes, func(conflict models.ScheduleConflict) bool {
		found = &conflict
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindConflicts returns every conflict the candidate would cause, in scan order.
func FindConflicts(candidate Candidate, classes []models.ClassInfo) ([]models.ScheduleConflict, error) {
	var conflicts []models.ScheduleConflict
	err := scanConflicts(candidate, classes, func(conflict models.ScheduleConflict) bool {
		conflicts = append(conflicts, conflict)
		return true
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

func scanConflicts(candidate Candidate, classes []models.ClassInfo, visit func(models.ScheduleConflict) bool) error {
	if !candidate.Day.Valid() {
		return &ValidationError{Field: "day", Reason: fmt.Sprintf("unknown weekday %q", candidate.Day)}
	}
	window, err := ParseRange(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return err
	}

	for _, class := range classes {
		if class.ID == candidate.ClassID || class.Schedule == nil {
			continue
		}
		for _, slot := range class.Schedule {
			if slot.Day != candidate.Day {
				continue
			}
			other, err := ParseRange(slot.StartTime, slot.EndTime)
			if err != nil {
				return fmt.Errorf("class %s slot %s: %w", class.ID, slot.ID, err)
			}
			if !window.Overlaps(other) {
				continue
			}
			conflict, ok := classify(candidate, class, slot)
			if !ok {
				continue
			}
			if !visit(conflict) {
				return nil
			}
		}
	}
	return nil
}

func classify(candidate Candidate, class models.ClassInfo, slot models.ScheduleSlot) (models.ScheduleConflict, bool) {
	conflict := models.ScheduleConflict{
		ClassID:    class.ID,
		GradeLevel: class.GradeLevel,
		Section:    class.Section,
		SlotID:     slot.ID,
		Day:        slot.Day,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		TeacherID:  slot.TeacherID,
		RoomID:     slot.Room(),
	}
	switch {
	case candidate.TeacherID != "" && candidate.TeacherID == slot.TeacherID:
		conflict.Kind = models.ConflictTeacher
		conflict.Message = fmt.Sprintf("Teacher %s is already assigned to %s on %s %s-%s",
			teacherLabel(slot), class.Label(), slot.Day, slot.StartTime, slot.EndTime)
		return conflict, true
	case candidate.RoomID != "" && candidate.RoomID == slot.Room():
		conflict.Kind = models.ConflictRoom
		conflict.Message = fmt.Sprintf("Room %s is already occupied by %s on %s %s-%s",
			slot.RoomLabel(), class.Label(), slot.Day, slot.StartTime, slot.EndTime)
		return conflict, true
	}
	return models.ScheduleConflict{}, false
}

func teacherLabel(slot models.ScheduleSlot) string {
	if slot.TeacherName == "" || slot.TeacherName == slot.TeacherID {
		return slot.TeacherID
	}
	return fmt.Sprintf("%s (%s)", slot.TeacherName, slot.TeacherID)
}

// ValidatedSlot is a slot that passed structural validation and either cleared the
// conflict check or was explicitly overridden. It is the only input SlotStore.Assign accepts.
type ValidatedSlot struct {
	slot       models.ScheduleSlot
	overridden bool
}

// Slot returns the validated slot data.
func (v ValidatedSlot) Slot() models.ScheduleSlot {
	return v.slot
}

// Overridden reports whether the conflict check was bypassed.
func (v ValidatedSlot) Overridden() bool {
	return v.overridden
}

// Validate checks slot structure and runs the conflict check for classID. A non-nil
// conflict means the slot was not validated.
func Validate(classID string, slot models.ScheduleSlot, classes []models.ClassInfo) (ValidatedSlot, *models.ScheduleConflict, error) {
	normalized, err := normalizeSlot(slot)
	if err != nil {
		return ValidatedSlot{}, nil, err
	}
	conflict, err := CheckConflict(CandidateFor(classID, normalized), classes)
	if err != nil {
		return ValidatedSlot{}, nil, err
	}
	if conflict != nil {
		return ValidatedSlot{}, conflict, nil
	}
	return ValidatedSlot{slot: normalized}, nil, nil
}

// Override accepts a slot without the conflict check, for when the user explicitly
// chooses to keep a flagged assignment. Structural validation still applies.
func Override(slot models.ScheduleSlot) (ValidatedSlot, error) {
	normalized, err := normalizeSlot(slot)
	if err != nil {
		return ValidatedSlot{}, err
	}
	return ValidatedSlot{slot: normalized, overridden: true}, nil
}

// CandidateFor derives the conflict candidate a slot represents for a class.
func CandidateFor(classID string, slot models.ScheduleSlot) Candidate {
	return Candidate{
		Day:       slot.Day,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		ClassID:   classID,
		TeacherID: slot.TeacherID,
		RoomID:    slot.Room(),
	}
}

func normalizeSlot(slot models.ScheduleSlot) (models.ScheduleSlot, error) {
	if !slot.Day.Valid() {
		return slot, &ValidationError{Field: "day", Reason: fmt.Sprintf("unknown weekday %q", slot.Day)}
	}
	if _, err := ParseRange(slot.StartTime, slot.EndTime); err != nil {
		return slot, err
	}
	if slot.ID == "" {
		return slot, &ValidationError{Field: "id", Reason: "is required"}
	}
	if slot.ActivityType == "" {
		switch slot.Type {
		case models.SlotTypeBreak:
			slot.ActivityType = models.ActivityBreak
		case models.SlotTypeActivity:
			slot.ActivityType = models.ActivityEvent
		default:
			slot.ActivityType = models.ActivityLecture
		}
	}
	if !slot.ActivityType.Valid() {
		return slot, &ValidationError{Field: "activity_type", Reason: fmt.Sprintf("unknown activity type %q", slot.ActivityType)}
	}
	if slot.Type == "" {
		slot.Type = slotTypeFor(slot.ActivityType)
	}
	switch slot.Type {
	case models.SlotTypeClass, models.SlotTypeBreak, models.SlotTypeActivity:
	default:
		return slot, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown slot type %q", slot.Type)}
	}
	if slot.RoomID != nil && *slot.RoomID == "" {
		slot.RoomID = nil
	}
	if slot.Title == "" {
		slot.Title = slot.SubjectName
	}
	return slot, nil
}

func slotTypeFor(activity models.ActivityType) models.SlotType {
	switch activity {
	case models.ActivityLecture:
		return models.SlotTypeClass
	case models.ActivityBreak:
		return models.SlotTypeBreak
	default:
		return models.SlotTypeActivity
	}
}
