package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// TimeGridResponse describes the weekly grid every class timetable is drawn on.
type TimeGridResponse struct {
	Days        []models.Weekday  `json:"days"`
	TimeSlots   []models.TimeSlot `json:"timeSlots"`
	SlotMinutes int               `json:"slotMinutes"`
}

// ClassSummary identifies a class without its schedule.
type ClassSummary struct {
	ID         string `json:"id"`
	SchoolID   string `json:"schoolId"`
	GradeLevel string `json:"gradeLevel"`
	Section    string `json:"section"`
	Label      string `json:"label"`
	SlotCount  int    `json:"slotCount"`
}

// ClassListQuery filters GET /classes.
type ClassListQuery struct {
	SchoolID   string `form:"schoolId"`
	GradeLevel string `form:"gradeLevel"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// GridCell is one day column of a grid row; Slot is nil for a free cell.
type GridCell struct {
	Day  models.Weekday       `json:"day"`
	Slot *models.ScheduleSlot `json:"slot,omitempty"`
}

// GridRow is one time slot across the grid days.
type GridRow struct {
	Time  models.TimeSlot `json:"time"`
	Cells []GridCell      `json:"cells"`
}

// ClassTimetableResponse is the editor view of a class timetable.
type ClassTimetableResponse struct {
	Class     ClassSummary          `json:"class"`
	Subjects  []models.ClassSubject `json:"subjects"`
	Days      []models.Weekday      `json:"days"`
	TimeSlots []models.TimeSlot     `json:"timeSlots"`
	Rows      []GridRow             `json:"rows"`
	Slots     []models.ScheduleSlot `json:"slots"`
}

// AssignSlotRequest places an activity into a grid cell. EndTime defaults to
// the end of the grid row that starts at StartTime.
type AssignSlotRequest struct {
	Day          string  `json:"day" validate:"required"`
	StartTime    string  `json:"startTime" validate:"required,len=5"`
	EndTime      string  `json:"endTime" validate:"omitempty,len=5"`
	SubjectID    string  `json:"subjectId"`
	SubjectName  string  `json:"subjectName"`
	TeacherID    string  `json:"teacherId"`
	TeacherName  string  `json:"teacherName"`
	RoomID       *string `json:"roomId,omitempty"`
	RoomName     *string `json:"roomName,omitempty"`
	Type         string  `json:"type" validate:"omitempty,oneof=class break activity"`
	ActivityType string  `json:"activityType" validate:"omitempty,oneof=Lecture Break Holiday Suspension Meeting Event"`
	Title        string  `json:"title" validate:"omitempty,max=120"`
	Force        bool    `json:"force"`
}

// AssignSlotResponse reports the stored slot. Conflict is set when the
// assignment was forced over a detected conflict.
type AssignSlotResponse struct {
	Slot       models.ScheduleSlot      `json:"slot"`
	Replaced   *models.ScheduleSlot     `json:"replaced,omitempty"`
	Overridden bool                     `json:"overridden"`
	Conflict   *models.ScheduleConflict `json:"conflict,omitempty"`
}

// MoveSlotRequest drags an existing slot to another cell.
type MoveSlotRequest struct {
	FromDay   string `json:"fromDay" validate:"required"`
	FromStart string `json:"fromStart" validate:"required,len=5"`
	ToDay     string `json:"toDay" validate:"required"`
	ToStart   string `json:"toStart" validate:"required,len=5"`
	Force     bool   `json:"force"`
}

// ConflictCheckRequest is a candidate assignment to test against other classes.
type ConflictCheckRequest struct {
	ClassID   string  `json:"classId" validate:"required"`
	Day       string  `json:"day" validate:"required"`
	StartTime string  `json:"startTime" validate:"required,len=5"`
	EndTime   string  `json:"endTime" validate:"required,len=5"`
	TeacherID string  `json:"teacherId"`
	RoomID    *string `json:"roomId,omitempty"`
}

// ConflictCheckResponse carries the first conflict found, if any.
type ConflictCheckResponse struct {
	HasConflict bool                     `json:"hasConflict"`
	Conflict    *models.ScheduleConflict `json:"conflict,omitempty"`
}

// AvailabilityRequest asks whether a teacher and/or room is free.
type AvailabilityRequest struct {
	Day            string  `json:"day" validate:"required"`
	StartTime      string  `json:"startTime" validate:"required,len=5"`
	EndTime        string  `json:"endTime" validate:"required,len=5"`
	TeacherID      string  `json:"teacherId"`
	RoomID         *string `json:"roomId,omitempty"`
	ExcludeClassID string  `json:"excludeClassId"`
	SchoolID       string  `json:"schoolId"`
}

// AvailabilityResponse lists every conflicting assignment.
type AvailabilityResponse struct {
	Available bool                      `json:"available"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}

// TeacherTimetableEntry is one slot taught by a teacher.
type TeacherTimetableEntry struct {
	ClassID    string              `json:"classId"`
	ClassLabel string              `json:"classLabel"`
	Slot       models.ScheduleSlot `json:"slot"`
}

// TeacherTimetableResponse is the weekly view across classes for a teacher.
type TeacherTimetableResponse struct {
	TeacherID string                  `json:"teacherId"`
	Entries   []TeacherTimetableEntry `json:"entries"`
}

// MassEventRequest blocks a day part for many classes at once.
type MassEventRequest struct {
	SchoolID     string   `json:"schoolId"`
	GradeLevels  []string `json:"gradeLevels"`
	ClassIDs     []string `json:"classIds"`
	Day          string   `json:"day" validate:"required"`
	Duration     string   `json:"duration" validate:"required,oneof=WholeDay AM PM"`
	Title        string   `json:"title" validate:"required,max=120"`
	ActivityType string   `json:"activityType" validate:"required,oneof=Holiday Suspension Meeting Event Break"`
	SlotMinutes  int      `json:"slotMinutes" validate:"omitempty,min=5,max=600"`
	DryRun       bool     `json:"dryRun"`
}

// MassEventClassResult reports the outcome for one class.
type MassEventClassResult struct {
	ClassID  string `json:"classId"`
	Label    string `json:"label"`
	Applied  bool   `json:"applied"`
	Removed  int    `json:"removed"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// MassEventResponse summarises a mass event run.
type MassEventResponse struct {
	Day      models.Weekday         `json:"day"`
	Duration string                 `json:"duration"`
	Window   models.TimeSlot        `json:"window"`
	DryRun   bool                   `json:"dryRun"`
	Applied  int                    `json:"applied"`
	Failed   int                    `json:"failed"`
	Results  []MassEventClassResult `json:"results"`
}

// ExportRequest captures POST /timetable/exports.
type ExportRequest struct {
	Format      models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
	SchoolID    string              `json:"schoolId"`
	GradeLevels []string            `json:"gradeLevels"`
	ClassIDs    []string            `json:"classIds"`
	TeacherID   string              `json:"teacherId"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
