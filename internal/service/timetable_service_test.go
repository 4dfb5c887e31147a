package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type stubClassStore struct {
	mu         sync.Mutex
	order      []string
	classes    map[string]models.ClassInfo
	replaced   map[string]int
	replaceErr error
	db         *sqlx.DB
	listCalls  int
	// listHook runs after List has read the classes, outside the store mutex.
	listHook func(call int)
}

func newStubClassStore(classes ...models.ClassInfo) *stubClassStore {
	store := &stubClassStore{classes: map[string]models.ClassInfo{}, replaced: map[string]int{}}
	for _, class := range classes {
		store.order = append(store.order, class.ID)
		store.classes[class.ID] = class
	}
	return store
}

func (s *stubClassStore) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error) {
	s.mu.Lock()
	s.listCalls++
	call, hook := s.listCalls, s.listHook
	result := make([]models.ClassInfo, 0, len(s.order))
	for _, id := range s.order {
		class := s.classes[id]
		if filter.Matches(class) {
			class.Schedule = append([]models.ScheduleSlot(nil), class.Schedule...)
			result = append(result, class)
		}
	}
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return result, nil
}

func (s *stubClassStore) FindByID(ctx context.Context, id string) (*models.ClassInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	class.Schedule = append([]models.ScheduleSlot(nil), class.Schedule...)
	return &class, nil
}

func (s *stubClassStore) ReplaceSchedule(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.ScheduleSlot) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	class := s.classes[classID]
	class.Schedule = append([]models.ScheduleSlot(nil), slots...)
	s.classes[classID] = class
	s.replaced[classID]++
	return nil
}

func (s *stubClassStore) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	if s.db == nil {
		return nil, errors.New("no database")
	}
	return s.db.BeginTxx(ctx, opts)
}

func (s *stubClassStore) schedule(classID string) []models.ScheduleSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classes[classID].Schedule
}

func lesson(id string, day models.Weekday, start, end, teacherID, roomID string) models.ScheduleSlot {
	slot := models.ScheduleSlot{
		ID:           id,
		Day:          day,
		StartTime:    start,
		EndTime:      end,
		SubjectID:    "subj-" + id,
		SubjectName:  "Subject " + id,
		TeacherID:    teacherID,
		TeacherName:  "Teacher " + teacherID,
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

func newTimetableServiceForTest(t *testing.T, store *stubClassStore) *TimetableService {
	t.Helper()
	svc, err := NewTimetableService(store, nil, NewMetricsService(), nil, nil, TimetableConfig{})
	require.NoError(t, err)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("slot-%d", n)
	}
	return svc
}

func requireAppStatus(t *testing.T, err error, status int) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %v", err)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func TestTimetableServiceTimeGrid(t *testing.T) {
	svc := newTimetableServiceForTest(t, newStubClassStore())

	grid := svc.TimeGrid()
	assert.Equal(t, 60, grid.SlotMinutes)
	assert.Equal(t, models.Weekdays, grid.Days)
	require.Len(t, grid.TimeSlots, 10)
	assert.Equal(t, models.TimeSlot{Start: "07:00", End: "08:00"}, grid.TimeSlots[0])
	assert.Equal(t, models.TimeSlot{Start: "16:00", End: "17:00"}, grid.TimeSlots[9])
}

func TestNewTimetableServiceRejectsInvalidGrid(t *testing.T) {
	_, err := NewTimetableService(newStubClassStore(), nil, nil, nil, nil, TimetableConfig{GridStart: "22:00", GridEnd: "23:30"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past midnight")

	_, err = NewTimetableService(newStubClassStore(), nil, nil, nil, nil, TimetableConfig{GridStart: "12:00", GridEnd: "08:00"})
	require.Error(t, err)

	_, err = NewTimetableService(newStubClassStore(), nil, nil, nil, nil, TimetableConfig{GridStart: "7am"})
	require.Error(t, err)
}

func TestTimetableServiceAssignSlotDropUsesRowEnd(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{
		Day:         "Monday",
		StartTime:   "08:00",
		SubjectID:   "math",
		SubjectName: "Mathematics",
		TeacherID:   "T1",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", resp.Slot.EndTime)
	assert.Equal(t, "slot-1", resp.Slot.ID)
	assert.Equal(t, models.SlotTypeClass, resp.Slot.Type)
	assert.Equal(t, "Mathematics", resp.Slot.Title)
	assert.False(t, resp.Overridden)
	assert.Nil(t, resp.Replaced)
	assert.Nil(t, resp.Conflict)

	require.Len(t, store.schedule("A"), 1)
	assert.Equal(t, 1, store.replaced["A"])
}

func TestTimetableServiceAssignSlotBlocksTeacherConflict(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "8", Section: "B", Schedule: []models.ScheduleSlot{
			lesson("b1", models.Monday, "08:30", "09:30", "T1", ""),
		}},
	)
	svc := newTimetableServiceForTest(t, store)

	_, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00", TeacherID: "T1", SubjectName: "Physics"})
	appErr := requireAppStatus(t, err, http.StatusConflict)

	conflict, ok := appErr.Details.(models.ScheduleConflict)
	require.True(t, ok)
	assert.Equal(t, models.ConflictTeacher, conflict.Kind)
	assert.Equal(t, "B", conflict.ClassID)
	assert.Equal(t, "b1", conflict.SlotID)

	var domainErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, models.ConflictTeacher, domainErr.Type)

	assert.Empty(t, store.schedule("A"))
	assert.Zero(t, store.replaced["A"])
}

func TestTimetableServiceAssignSlotForceOverridesConflict(t *testing.T) {
	room := "R1"
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "8", Section: "B", Schedule: []models.ScheduleSlot{
			lesson("b1", models.Monday, "08:00", "09:00", "T9", "R1"),
		}},
	)
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00", TeacherID: "T1", RoomID: &room, Force: true})
	require.NoError(t, err)
	assert.True(t, resp.Overridden)
	require.NotNil(t, resp.Conflict)
	assert.Equal(t, models.ConflictRoom, resp.Conflict.Kind)
	require.Len(t, store.schedule("A"), 1)
}

func TestTimetableServiceAssignSlotIgnoresOtherSchools(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "Z", SchoolID: "s2", GradeLevel: "7", Section: "Z", Schedule: []models.ScheduleSlot{
			lesson("z1", models.Monday, "08:00", "09:00", "T1", ""),
		}},
	)
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00", TeacherID: "T1"})
	require.NoError(t, err)
	assert.Nil(t, resp.Conflict)
}

func TestTimetableServiceAssignSlotReplacesOccupiedCell(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
		lesson("a1", models.Monday, "08:00", "09:00", "T1", ""),
		lesson("a2", models.Monday, "09:00", "10:00", "T2", ""),
	}})
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{
		Day:         "Monday",
		StartTime:   "08:00",
		EndTime:     "08:45",
		TeacherID:   "T3",
		SubjectName: "Biology",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Replaced)
	assert.Equal(t, "a1", resp.Replaced.ID)
	assert.Equal(t, "a1", resp.Slot.ID)
	assert.Equal(t, "08:45", resp.Slot.EndTime)

	schedule := store.schedule("A")
	require.Len(t, schedule, 2)
	count := 0
	for _, slot := range schedule {
		if slot.Day == models.Monday && slot.StartTime == "08:00" {
			count++
			assert.Equal(t, "T3", slot.TeacherID)
		}
	}
	assert.Equal(t, 1, count)
}

func TestTimetableServiceAssignSlotValidation(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	svc := newTimetableServiceForTest(t, store)
	ctx := context.Background()

	_, err := svc.AssignSlot(ctx, "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:30"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.AssignSlot(ctx, "A", dto.AssignSlotRequest{Day: "Sunday", StartTime: "08:00"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.AssignSlot(ctx, "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00", EndTime: "07:30"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.AssignSlot(ctx, "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00", Type: "lunch"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.AssignSlot(ctx, "missing", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00"})
	requireAppStatus(t, err, http.StatusNotFound)

	assert.Empty(t, store.schedule("A"))
}

func TestTimetableServiceAssignSlotPersistFailure(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	store.replaceErr = errors.New("db down")
	svc := newTimetableServiceForTest(t, store)

	_, err := svc.AssignSlot(context.Background(), "A", dto.AssignSlotRequest{Day: "Monday", StartTime: "08:00"})
	requireAppStatus(t, err, http.StatusInternalServerError)
}

func TestTimetableServiceMoveSlotKeepsDuration(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
		lesson("a1", models.Monday, "08:00", "10:00", "T1", "R1"),
	}})
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.MoveSlot(context.Background(), "A", dto.MoveSlotRequest{FromDay: "Monday", FromStart: "08:00", ToDay: "Tuesday", ToStart: "13:00"})
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.Slot.ID)
	assert.Equal(t, models.Tuesday, resp.Slot.Day)
	assert.Equal(t, "13:00", resp.Slot.StartTime)
	assert.Equal(t, "15:00", resp.Slot.EndTime)
	assert.Equal(t, "R1", resp.Slot.Room())

	schedule := store.schedule("A")
	require.Len(t, schedule, 1)
	assert.Equal(t, models.Tuesday, schedule[0].Day)
}

func TestTimetableServiceMoveSlotErrors(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
			lesson("a1", models.Monday, "08:00", "09:00", "T1", ""),
		}},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "7", Section: "B", Schedule: []models.ScheduleSlot{
			lesson("b1", models.Friday, "10:00", "11:00", "T1", ""),
		}},
	)
	svc := newTimetableServiceForTest(t, store)
	ctx := context.Background()

	_, err := svc.MoveSlot(ctx, "A", dto.MoveSlotRequest{FromDay: "Monday", FromStart: "10:00", ToDay: "Tuesday", ToStart: "13:00"})
	requireAppStatus(t, err, http.StatusNotFound)

	_, err = svc.MoveSlot(ctx, "A", dto.MoveSlotRequest{FromDay: "Monday", FromStart: "08:00", ToDay: "Friday", ToStart: "10:00"})
	requireAppStatus(t, err, http.StatusConflict)

	schedule := store.schedule("A")
	require.Len(t, schedule, 1)
	assert.Equal(t, models.Monday, schedule[0].Day)
}

func TestTimetableServiceClearOperations(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
		lesson("a1", models.Monday, "08:00", "09:00", "T1", ""),
		lesson("a2", models.Tuesday, "08:00", "09:00", "T1", ""),
		lesson("a3", models.Wednesday, "08:00", "09:00", "T1", ""),
	}})
	svc := newTimetableServiceForTest(t, store)
	ctx := context.Background()

	require.NoError(t, svc.ClearSlot(ctx, "A", "Monday", "08:00"))
	assert.Len(t, store.schedule("A"), 2)

	err := svc.ClearSlot(ctx, "A", "Monday", "08:00")
	requireAppStatus(t, err, http.StatusNotFound)

	removed, err := svc.ClearSchedule(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, store.schedule("A"))
}

func TestTimetableServiceCheckConflictAndAvailability(t *testing.T) {
	room := "LAB"
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "8", Section: "B", Schedule: []models.ScheduleSlot{
			lesson("b1", models.Monday, "09:00", "10:00", "T1", ""),
			lesson("b2", models.Monday, "09:30", "10:30", "T2", "LAB"),
		}},
	)
	svc := newTimetableServiceForTest(t, store)
	ctx := context.Background()

	resp, err := svc.CheckConflict(ctx, dto.ConflictCheckRequest{ClassID: "A", Day: "Monday", StartTime: "10:00", EndTime: "11:00", TeacherID: "T1"})
	require.NoError(t, err)
	assert.False(t, resp.HasConflict, "touching ranges do not overlap")

	resp, err = svc.CheckConflict(ctx, dto.ConflictCheckRequest{ClassID: "A", Day: "Monday", StartTime: "10:00", EndTime: "11:00", RoomID: &room})
	require.NoError(t, err)
	require.True(t, resp.HasConflict)
	assert.Equal(t, models.ConflictRoom, resp.Conflict.Kind)

	availability, err := svc.Availability(ctx, dto.AvailabilityRequest{Day: "Monday", StartTime: "09:00", EndTime: "10:00", TeacherID: "T1", RoomID: &room, SchoolID: "s1"})
	require.NoError(t, err)
	assert.False(t, availability.Available)
	require.Len(t, availability.Conflicts, 2)
	assert.Equal(t, models.ConflictTeacher, availability.Conflicts[0].Kind)
	assert.Equal(t, models.ConflictRoom, availability.Conflicts[1].Kind)

	availability, err = svc.Availability(ctx, dto.AvailabilityRequest{Day: "Monday", StartTime: "09:00", EndTime: "10:00", TeacherID: "T1", ExcludeClassID: "B"})
	require.NoError(t, err)
	assert.True(t, availability.Available)
	assert.NotNil(t, availability.Conflicts)

	_, err = svc.Availability(ctx, dto.AvailabilityRequest{Day: "Monday", StartTime: "09:00", EndTime: "10:00"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.CheckConflict(ctx, dto.ConflictCheckRequest{ClassID: "A", Day: "Monday", StartTime: "11:00", EndTime: "10:00", TeacherID: "T1"})
	requireAppStatus(t, err, http.StatusBadRequest)
}

func TestTimetableServiceClassGrid(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{
		ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A",
		Subjects: []models.ClassSubject{{ID: "math", Name: "Mathematics", TeacherID: "T1"}},
		Schedule: []models.ScheduleSlot{lesson("a1", models.Wednesday, "08:00", "09:00", "T1", "")},
	})
	svc := newTimetableServiceForTest(t, store)

	view, hit, err := svc.ClassGrid(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "7 - A", view.Class.Label)
	assert.Equal(t, 1, view.Class.SlotCount)
	require.Len(t, view.Rows, 10)
	require.Len(t, view.Rows[1].Cells, 5)
	assert.Nil(t, view.Rows[1].Cells[0].Slot)
	require.NotNil(t, view.Rows[1].Cells[2].Slot)
	assert.Equal(t, "a1", view.Rows[1].Cells[2].Slot.ID)
	assert.Len(t, view.Subjects, 1)

	_, _, err = svc.ClassGrid(context.Background(), "missing")
	requireAppStatus(t, err, http.StatusNotFound)
}

func TestTimetableServiceListClassesPaginates(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "7", Section: "B"},
		models.ClassInfo{ID: "C", SchoolID: "s1", GradeLevel: "8", Section: "A"},
		models.ClassInfo{ID: "D", SchoolID: "s2", GradeLevel: "7", Section: "A"},
	)
	svc := newTimetableServiceForTest(t, store)

	items, pagination, err := svc.ListClasses(context.Background(), dto.ClassListQuery{SchoolID: "s1", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].ID)
	assert.Equal(t, 3, pagination.TotalCount)

	items, _, err = svc.ListClasses(context.Background(), dto.ClassListQuery{SchoolID: "s1", GradeLevel: "7", Page: 5})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = svc.ListClasses(context.Background(), dto.ClassListQuery{PageSize: 1000})
	requireAppStatus(t, err, http.StatusBadRequest)
}

func TestTimetableServiceListClassesHugePageIsEmpty(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "7", Section: "B"},
	)
	svc := newTimetableServiceForTest(t, store)

	var (
		items      []dto.ClassSummary
		pagination *models.Pagination
		err        error
	)
	require.NotPanics(t, func() {
		items, pagination, err = svc.ListClasses(context.Background(), dto.ClassListQuery{Page: 4611686018427387905, PageSize: 2})
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, pagination.TotalCount)

	items, _, err = svc.ListClasses(context.Background(), dto.ClassListQuery{Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ID)
}

func TestTimetableServiceTeacherTimetableOrdering(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
			lesson("a-fri", models.Friday, "08:00", "09:00", "T1", ""),
			lesson("a-mon", models.Monday, "10:00", "11:00", "T1", ""),
			lesson("a-other", models.Monday, "07:00", "08:00", "T2", ""),
		}},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "8", Section: "B", Schedule: []models.ScheduleSlot{
			lesson("b-mon", models.Monday, "08:00", "09:00", "T1", ""),
		}},
	)
	svc := newTimetableServiceForTest(t, store)

	resp, err := svc.TeacherTimetable(context.Background(), "T1", "")
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "b-mon", resp.Entries[0].Slot.ID)
	assert.Equal(t, "8 - B", resp.Entries[0].ClassLabel)
	assert.Equal(t, "a-mon", resp.Entries[1].Slot.ID)
	assert.Equal(t, "a-fri", resp.Entries[2].Slot.ID)

	_, err = svc.TeacherTimetable(context.Background(), "", "")
	requireAppStatus(t, err, http.StatusBadRequest)
}

func TestParseDays(t *testing.T) {
	days, err := ParseDays([]string{"monday", "Friday"})
	require.NoError(t, err)
	assert.Equal(t, []models.Weekday{models.Monday, models.Friday}, days)

	_, err = ParseDays([]string{"Funday"})
	require.Error(t, err)
}
