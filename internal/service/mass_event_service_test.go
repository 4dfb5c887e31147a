package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

func newMassEventServiceForTest(t *testing.T, store *stubClassStore, cfg MassEventConfig) (*MassEventService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store.db = sqlx.NewDb(db, "sqlmock")

	svc := NewMassEventService(store, nil, NewMetricsService(), nil, nil, cfg)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("evt-%d", n)
	}
	return svc, mock
}

func TestMassEventServiceAppliesInOneTransaction(t *testing.T) {
	store := newStubClassStore(
		models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A", Schedule: []models.ScheduleSlot{
			lesson("a1", models.Monday, "08:00", "09:00", "T1", ""),
			lesson("a2", models.Monday, "13:00", "14:00", "T1", ""),
		}},
		models.ClassInfo{ID: "B", SchoolID: "s1", GradeLevel: "8", Section: "B"},
		models.ClassInfo{ID: "C", SchoolID: "s2", GradeLevel: "7", Section: "C", Schedule: []models.ScheduleSlot{
			lesson("c1", models.Monday, "08:00", "09:00", "T3", ""),
		}},
	)
	svc, mock := newMassEventServiceForTest(t, store, MassEventConfig{})
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Apply(context.Background(), dto.MassEventRequest{
		SchoolID:     "s1",
		Day:          "monday",
		Duration:     "AM",
		Title:        "Flag ceremony",
		ActivityType: "Event",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Applied)
	assert.Zero(t, resp.Failed)
	assert.Equal(t, models.TimeSlot{Start: "07:00", End: "12:00"}, resp.Window)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].Removed)
	assert.Equal(t, 5, resp.Results[0].Inserted)

	schedule := store.schedule("A")
	require.Len(t, schedule, 6)
	ids := map[string]bool{}
	for _, slot := range schedule {
		ids[slot.ID] = true
	}
	assert.True(t, ids["a2"], "slots outside the window survive")
	assert.False(t, ids["a1"])
	assert.Len(t, store.schedule("B"), 5)
	assert.Len(t, store.schedule("C"), 1)
	assert.Zero(t, store.replaced["C"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMassEventServiceDryRunDoesNotWrite(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	svc, mock := newMassEventServiceForTest(t, store, MassEventConfig{})

	resp, err := svc.Apply(context.Background(), dto.MassEventRequest{
		Day:          "Friday",
		Duration:     "WholeDay",
		Title:        "Sports day",
		ActivityType: "Event",
		DryRun:       true,
	})
	require.NoError(t, err)
	assert.True(t, resp.DryRun)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 10, resp.Results[0].Inserted)
	assert.Empty(t, store.schedule("A"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMassEventServiceUsesConfiguredWindows(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	cfg := MassEventConfig{
		Windows:     WindowsFromConfig(timetable.Window{}, timetable.Window{}, timetable.Window{Start: "13:00", End: "15:00"}),
		SlotMinutes: 30,
	}
	svc, mock := newMassEventServiceForTest(t, store, cfg)
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Apply(context.Background(), dto.MassEventRequest{Day: "Tuesday", Duration: "PM", Title: "Staff meeting", ActivityType: "Meeting"})
	require.NoError(t, err)
	assert.Equal(t, models.TimeSlot{Start: "13:00", End: "15:00"}, resp.Window)
	assert.Equal(t, 4, resp.Results[0].Inserted)

	resp, err = svc.Apply(context.Background(), dto.MassEventRequest{Day: "Tuesday", Duration: "AM", Title: "Staff meeting", ActivityType: "Meeting", SlotMinutes: 60, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, models.TimeSlot{Start: "07:00", End: "12:00"}, resp.Window)
	assert.Equal(t, 5, resp.Results[0].Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMassEventServiceRollsBackOnWriteFailure(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	store.replaceErr = errors.New("insert failed")
	svc, mock := newMassEventServiceForTest(t, store, MassEventConfig{})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Apply(context.Background(), dto.MassEventRequest{Day: "Monday", Duration: "AM", Title: "Holiday", ActivityType: "Holiday"})
	requireAppStatus(t, err, http.StatusInternalServerError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMassEventServiceValidation(t *testing.T) {
	svc, _ := newMassEventServiceForTest(t, newStubClassStore(), MassEventConfig{})
	ctx := context.Background()

	_, err := svc.Apply(ctx, dto.MassEventRequest{Day: "Monday", Duration: "Evening", Title: "x", ActivityType: "Holiday"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.Apply(ctx, dto.MassEventRequest{Day: "Monday", Duration: "AM", Title: "x", ActivityType: "Lecture"})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.Apply(ctx, dto.MassEventRequest{Day: "Saturday", Duration: "AM", Title: "x", ActivityType: "Holiday"})
	requireAppStatus(t, err, http.StatusBadRequest)

	resp, err := svc.Apply(ctx, dto.MassEventRequest{Day: "Monday", Duration: "AM", Title: "x", ActivityType: "Holiday"})
	require.NoError(t, err)
	assert.Zero(t, resp.Applied)
	assert.Empty(t, resp.Results)
}

func TestMassEventServiceWaitsForConcurrentSlotEdits(t *testing.T) {
	store := newStubClassStore(models.ClassInfo{ID: "A", SchoolID: "s1", GradeLevel: "7", Section: "A"})
	locks := NewClassLocks()
	massSvc, mock := newMassEventServiceForTest(t, store, MassEventConfig{Locks: locks})
	timetableSvc, err := NewTimetableService(store, nil, NewMetricsService(), nil, nil, TimetableConfig{Locks: locks})
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx := context.Background()
	assigned := make(chan struct{})
	var assignErr error
	store.listHook = func(call int) {
		// The second read is the one taken under the class locks.
		if call != 2 {
			return
		}
		go func() {
			defer close(assigned)
			_, assignErr = timetableSvc.AssignSlot(ctx, "A", dto.AssignSlotRequest{Day: "Tuesday", StartTime: "08:00", TeacherID: "T1", SubjectName: "Math"})
		}()
		select {
		case <-assigned:
			t.Error("slot assignment finished while the mass event held class A")
		case <-time.After(50 * time.Millisecond):
		}
	}

	resp, err := massSvc.Apply(ctx, dto.MassEventRequest{Day: "Monday", Duration: "AM", Title: "Assembly", ActivityType: "Event"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)

	select {
	case <-assigned:
	case <-time.After(2 * time.Second):
		t.Fatal("slot assignment never completed")
	}
	require.NoError(t, assignErr)

	var monday, tuesday int
	for _, slot := range store.schedule("A") {
		switch slot.Day {
		case models.Monday:
			monday++
		case models.Tuesday:
			tuesday++
		}
	}
	assert.Equal(t, 5, monday)
	assert.Equal(t, 1, tuesday)
	assert.Zero(t, locks.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}
