package models

import (
	"fmt"
	"strings"
)

// Weekday names a teaching day of the weekly timetable.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// Weekdays lists the teaching days in display order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday normalises a day name, accepting any letter case.
func ParseWeekday(raw string) (Weekday, error) {
	trimmed := strings.TrimSpace(raw)
	for _, day := range Weekdays {
		if strings.EqualFold(string(day), trimmed) {
			return day, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// Valid reports whether d is one of the five teaching days.
func (d Weekday) Valid() bool {
	for _, day := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// SlotType separates official classes from breaks and special activities.
type SlotType string

const (
	SlotTypeClass    SlotType = "class"
	SlotTypeBreak    SlotType = "break"
	SlotTypeActivity SlotType = "activity"
)

// ActivityType refines what a slot is used for.
type ActivityType string

const (
	ActivityLecture    ActivityType = "Lecture"
	ActivityBreak      ActivityType = "Break"
	ActivityHoliday    ActivityType = "Holiday"
	ActivitySuspension ActivityType = "Suspension"
	ActivityMeeting    ActivityType = "Meeting"
	ActivityEvent      ActivityType = "Event"
)

// Valid reports whether a is a known activity type.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityLecture, ActivityBreak, ActivityHoliday, ActivitySuspension, ActivityMeeting, ActivityEvent:
		return true
	default:
		return false
	}
}

// ScheduleSlot is one assignment of an activity to a day/time range of a class timetable.
type ScheduleSlot struct {
	ID           string       `db:"id" json:"id"`
	Day          Weekday      `db:"day" json:"day"`
	StartTime    string       `db:"start_time" json:"start_time"`
	EndTime      string       `db:"end_time" json:"end_time"`
	SubjectID    string       `db:"subject_id" json:"subject_id"`
	SubjectName  string       `db:"subject_name" json:"subject_name"`
	TeacherID    string       `db:"teacher_id" json:"teacher_id"`
	TeacherName  string       `db:"teacher_name" json:"teacher_name"`
	RoomID       *string      `db:"room_id" json:"room_id,omitempty"`
	RoomName     *string      `db:"room_name" json:"room_name,omitempty"`
	Type         SlotType     `db:"type" json:"type"`
	ActivityType ActivityType `db:"activity_type" json:"activity_type"`
	Title        string       `db:"title" json:"title"`
}

// IsOfficialClass reports whether the slot is a recurring subject-teaching block.
func (s ScheduleSlot) IsOfficialClass() bool {
	return s.Type == SlotTypeClass
}

// IsBreak reports whether the slot is a break.
func (s ScheduleSlot) IsBreak() bool {
	return s.Type == SlotTypeBreak || s.ActivityType == ActivityBreak
}

// IsSpecialActivity reports holidays, suspensions, meetings and events.
func (s ScheduleSlot) IsSpecialActivity() bool {
	if s.Type != SlotTypeActivity {
		return false
	}
	switch s.ActivityType {
	case ActivityHoliday, ActivitySuspension, ActivityMeeting, ActivityEvent:
		return true
	default:
		return false
	}
}

// Room returns the room id or an empty string.
func (s ScheduleSlot) Room() string {
	if s.RoomID == nil {
		return ""
	}
	return *s.RoomID
}

// RoomLabel prefers the room name and falls back to the id.
func (s ScheduleSlot) RoomLabel() string {
	if s.RoomName != nil && *s.RoomName != "" {
		return *s.RoomName
	}
	return s.Room()
}

// ClassSubject is a subject taught to a class together with its teacher.
type ClassSubject struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
}

// ClassInfo is a class section owning its weekly timetable.
type ClassInfo struct {
	ID         string         `db:"id" json:"id"`
	SchoolID   string         `db:"school_id" json:"school_id"`
	GradeLevel string         `db:"grade_level" json:"grade_level"`
	Section    string         `db:"section" json:"section"`
	Subjects   []ClassSubject `db:"-" json:"subjects"`
	Schedule   []ScheduleSlot `db:"-" json:"schedule"`
}

// Label renders the class as "grade - section".
func (c ClassInfo) Label() string {
	return fmt.Sprintf("%s - %s", c.GradeLevel, c.Section)
}

// ClassFilter narrows the classes loaded for timetable operations.
type ClassFilter struct {
	SchoolID    string
	GradeLevels []string
	ClassIDs    []string
}

// Matches reports whether the class passes the filter. Empty criteria match everything.
func (f ClassFilter) Matches(class ClassInfo) bool {
	if f.SchoolID != "" && class.SchoolID != f.SchoolID {
		return false
	}
	if len(f.GradeLevels) > 0 && !containsString(f.GradeLevels, class.GradeLevel) {
		return false
	}
	if len(f.ClassIDs) > 0 && !containsString(f.ClassIDs, class.ID) {
		return false
	}
	return true
}

// TimeSlot is a derived start/end pair of the time grid.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
