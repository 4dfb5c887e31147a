package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCheckConflictEndToEnd(t *testing.T) {
	classes := []models.ClassInfo{
		{ID: "A", GradeLevel: "Grade 7", Section: "Rizal", Schedule: []models.ScheduleSlot{
			lectureSlot("a1", models.Monday, "08:00", "09:00", "T1", ""),
		}},
		{ID: "B", GradeLevel: "Grade 8", Section: "Mabini"},
	}

	conflict, err := CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B", TeacherID: "T1"}, classes)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictTeacher, conflict.Kind)
	assert.Contains(t, conflict.Message, "T1")
	assert.Contains(t, conflict.Message, "Grade 7 - Rizal")

	conflict, err = CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B", TeacherID: "T2"}, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictSelfExclusion(t *testing.T) {
	classes := sampleClasses()
	for _, class := range classes {
		for _, slot := range class.Schedule {
			conflict, err := CheckConflict(CandidateFor(class.ID, slot), classes)
			require.NoError(t, err)
			assert.Nil(t, conflict, "class %s slot %s", class.ID, slot.ID)
		}
	}
}

func TestCheckConflictSymmetry(t *testing.T) {
	a := models.ClassInfo{ID: "A", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
		lectureSlot("a1", models.Tuesday, "10:00", "11:00", "T9", ""),
	}}
	b := models.ClassInfo{ID: "B", GradeLevel: "7", Section: "B", Schedule: []models.ScheduleSlot{
		lectureSlot("b1", models.Tuesday, "10:30", "11:30", "T9", ""),
	}}
	classes := []models.ClassInfo{a, b}

	fromA, err := CheckConflict(CandidateFor(a.ID, b.Schedule[0]), classes)
	require.NoError(t, err)
	require.NotNil(t, fromA)
	assert.Equal(t, "B", fromA.ClassID)

	fromB, err := CheckConflict(CandidateFor(b.ID, a.Schedule[0]), classes)
	require.NoError(t, err)
	require.NotNil(t, fromB)
	assert.Equal(t, "A", fromB.ClassID)
}

func TestCheckConflictHalfOpenBoundary(t *testing.T) {
	classes := []models.ClassInfo{{ID: "A", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
		lectureSlot("a1", models.Monday, "08:00", "09:00", "T1", "R1"),
	}}}

	conflict, err := CheckConflict(Candidate{Day: models.Monday, StartTime: "09:00", EndTime: "10:00", ClassID: "B", TeacherID: "T1", RoomID: "R1"}, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = CheckConflict(Candidate{Day: models.Monday, StartTime: "07:00", EndTime: "08:00", ClassID: "B", TeacherID: "T1", RoomID: "R1"}, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictRoom(t *testing.T) {
	classes := []models.ClassInfo{{ID: "A", GradeLevel: "9", Section: "Luna", Schedule: []models.ScheduleSlot{
		lectureSlot("a1", models.Friday, "13:00", "14:00", "T1", "LAB-1"),
	}}}

	conflict, err := CheckConflict(Candidate{Day: models.Friday, StartTime: "13:30", EndTime: "14:30", ClassID: "B", TeacherID: "T2", RoomID: "LAB-1"}, classes)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictRoom, conflict.Kind)
	assert.Contains(t, conflict.Message, "LAB-1")
	assert.Contains(t, conflict.Message, "9 - Luna")
}

func TestCheckConflictTeacherWinsOverRoom(t *testing.T) {
	classes := []models.ClassInfo{{ID: "A", GradeLevel: "9", Section: "A", Schedule: []models.ScheduleSlot{
		lectureSlot("a1", models.Friday, "13:00", "14:00", "T1", "R1"),
	}}}

	conflict, err := CheckConflict(Candidate{Day: models.Friday, StartTime: "13:00", EndTime: "14:00", ClassID: "B", TeacherID: "T1", RoomID: "R1"}, classes)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictTeacher, conflict.Kind)
}

func TestCheckConflictReturnsFirstInScanOrder(t *testing.T) {
	classes := []models.ClassInfo{
		{ID: "A", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
			lectureSlot("a1", models.Monday, "08:00", "09:00", "T5", ""),
			lectureSlot("a2", models.Monday, "08:30", "09:30", "T1", ""),
		}},
		{ID: "C", GradeLevel: "7", Section: "C", Schedule: []models.ScheduleSlot{
			lectureSlot("c1", models.Monday, "08:00", "09:00", "T1", ""),
		}},
	}

	conflict, err := CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B", TeacherID: "T1"}, classes)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "a2", conflict.SlotID)

	all, err := FindConflicts(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B", TeacherID: "T1"}, classes)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[1].SlotID)
}

func TestCheckConflictIgnoresMissingResources(t *testing.T) {
	classes := []models.ClassInfo{
		{ID: "nil-schedule", GradeLevel: "7", Section: "X"},
		{ID: "A", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
			{ID: "h1", Day: models.Monday, StartTime: "08:00", EndTime: "12:00", Type: models.SlotTypeActivity, ActivityType: models.ActivityHoliday, Title: "Holiday"},
		}},
	}

	conflict, err := CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B"}, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B", TeacherID: "T1", RoomID: "R1"}, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictRejectsMalformedTimes(t *testing.T) {
	_, err := CheckConflict(Candidate{Day: models.Monday, StartTime: "8:00", EndTime: "09:00"}, nil)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)

	_, err = CheckConflict(Candidate{Day: "Saturday", StartTime: "08:00", EndTime: "09:00"}, nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	corrupt := []models.ClassInfo{{ID: "A", Schedule: []models.ScheduleSlot{{ID: "x", Day: models.Monday, StartTime: "bad", EndTime: "09:00"}}}}
	_, err = CheckConflict(Candidate{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassID: "B"}, corrupt)
	require.ErrorAs(t, err, &parseErr)
}

func TestValidateAndOverride(t *testing.T) {
	classes := sampleClasses()
	slot := lectureSlot("new", models.Monday, "08:00", "09:00", "T1", "")

	_, conflict, err := Validate("B", slot, classes)
	require.NoError(t, err)
	require.NotNil(t, conflict)

	validated, err := Override(slot)
	require.NoError(t, err)
	assert.True(t, validated.Overridden())
	assert.Equal(t, models.SlotTypeClass, validated.Slot().Type)

	slot.TeacherID = "T7"
	validated, conflict, err = Validate("B", slot, classes)
	require.NoError(t, err)
	assert.Nil(t, conflict)
	assert.False(t, validated.Overridden())
	assert.Equal(t, models.ActivityLecture, validated.Slot().ActivityType)

	_, _, err = Validate("B", models.ScheduleSlot{ID: "x", Day: models.Monday, StartTime: "10:00", EndTime: "09:00"}, classes)
	require.Error(t, err)
}

func lectureSlot(id string, day models.Weekday, start, end, teacherID, roomID string) models.ScheduleSlot {
	slot := models.ScheduleSlot{
		ID:           id,
		Day:          day,
		StartTime:    start,
		EndTime:      end,
		SubjectID:    "subj-" + id,
		SubjectName:  "Subject " + id,
		TeacherID:    teacherID,
		TeacherName:  teacherID,
		Type:         models.SlotTypeClass,
		ActivityType: models.ActivityLecture,
		Title:        "Subject " + id,
	}
	if roomID != "" {
		room := roomID
		slot.RoomID = &room
	}
	return slot
}

func sampleClasses() []models.ClassInfo {
	return []models.ClassInfo{
		{ID: "A", GradeLevel: "Grade 7", Section: "Rizal", Schedule: []models.ScheduleSlot{
			lectureSlot("a1", models.Monday, "08:00", "09:00", "T1", "R1"),
			lectureSlot("a2", models.Monday, "09:00", "10:00", "T2", "R1"),
			lectureSlot("a3", models.Wednesday, "13:00", "14:00", "T3", ""),
		}},
		{ID: "B", GradeLevel: "Grade 7", Section: "Bonifacio", Schedule: []models.ScheduleSlot{
			lectureSlot("b1", models.Monday, "08:00", "09:00", "T4", "R2"),
			lectureSlot("b2", models.Tuesday, "08:00", "09:00", "T1", "R1"),
		}},
		{ID: "C", GradeLevel: "Grade 8", Section: "Luna"},
	}
}
