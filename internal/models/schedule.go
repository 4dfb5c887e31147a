package models

// ConflictKind identifies the double-booked resource.
type ConflictKind string

const (
	ConflictTeacher ConflictKind = "teacher"
	ConflictRoom    ConflictKind = "room"
)

// ScheduleConflict describes an existing slot of another class that collides with a candidate.
type ScheduleConflict struct {
	Kind       ConflictKind `json:"kind"`
	Message    string       `json:"message"`
	ClassID    string       `json:"class_id"`
	GradeLevel string       `json:"grade_level"`
	Section    string       `json:"section"`
	SlotID     string       `json:"slot_id"`
	Day        Weekday      `json:"day"`
	StartTime  string       `json:"start_time"`
	EndTime    string       `json:"end_time"`
	TeacherID  string       `json:"teacher_id,omitempty"`
	RoomID     string       `json:"room_id,omitempty"`
}

// ScheduleConflictError is returned when an assignment is blocked by a conflict.
type ScheduleConflictError struct {
	Type     ConflictKind       `json:"type"`
	Message  string             `json:"message"`
	Conflict ScheduleConflict   `json:"conflict"`
	Errors   []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
