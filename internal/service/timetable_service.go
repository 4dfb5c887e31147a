package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error)
	FindByID(ctx context.Context, id string) (*models.ClassInfo, error)
	ReplaceSchedule(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.ScheduleSlot) error
}

// TimetableConfig shapes the time grid and caching of class timetables.
type TimetableConfig struct {
	GridStart   string
	GridEnd     string
	SlotMinutes int
	Days        []models.Weekday
	CacheTTL    time.Duration
	// Locks is shared with MassEventService so both serialise on the same
	// classes. Nil gets a private set.
	Locks *ClassLocks
}

// TimetableService exposes the timetable editor: grid views, conflict checks
// and slot mutations for a single class.
type TimetableService struct {
	classes   classRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
	timeSlots []models.TimeSlot
	newID     func() string
	locks     *ClassLocks
}

// NewTimetableService builds the service and precomputes the time grid.
func NewTimetableService(classes classRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableConfig) (*TimetableService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GridStart == "" {
		cfg.GridStart = "07:00"
	}
	if cfg.GridEnd == "" {
		cfg.GridEnd = "17:00"
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 60
	}
	if len(cfg.Days) == 0 {
		cfg.Days = models.Weekdays
	}
	if cfg.Locks == nil {
		cfg.Locks = NewClassLocks()
	}
	slots, err := timetable.GenerateTimeSlots(cfg.GridStart, cfg.GridEnd, cfg.SlotMinutes)
	if err != nil {
		return nil, fmt.Errorf("timetable grid: %w", err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("timetable grid %s-%s is empty", cfg.GridStart, cfg.GridEnd)
	}
	return &TimetableService{
		classes:   classes,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		timeSlots: slots,
		newID:     uuid.NewString,
		locks:     cfg.Locks,
	}, nil
}

// ParseDays converts configured day names into weekdays.
func ParseDays(names []string) ([]models.Weekday, error) {
	days := make([]models.Weekday, 0, len(names))
	for _, name := range names {
		day, err := models.ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// TimeGrid returns the configured weekly grid.
func (s *TimetableService) TimeGrid() dto.TimeGridResponse {
	return dto.TimeGridResponse{
		Days:        append([]models.Weekday(nil), s.cfg.Days...),
		TimeSlots:   append([]models.TimeSlot(nil), s.timeSlots...),
		SlotMinutes: s.cfg.SlotMinutes,
	}
}

// ListClasses returns class summaries with pagination metadata.
func (s *TimetableService) ListClasses(ctx context.Context, query dto.ClassListQuery) ([]dto.ClassSummary, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class query")
	}
	filter := models.ClassFilter{SchoolID: query.SchoolID}
	if query.GradeLevel != "" {
		filter.GradeLevels = []string{query.GradeLevel}
	}
	classes, err := s.listClasses(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 20
	}
	// Compared by division so a huge page cannot overflow the offset.
	from := len(classes)
	if page-1 <= len(classes)/size {
		from = min((page-1)*size, len(classes))
	}
	to := min(from+size, len(classes))

	items := make([]dto.ClassSummary, 0, to-from)
	for _, class := range classes[from:to] {
		items = append(items, summarize(class))
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: len(classes)}, nil
}

// ClassGrid returns the editor view of a class timetable and whether it was
// served from cache.
func (s *TimetableService) ClassGrid(ctx context.Context, classID string) (*dto.ClassTimetableResponse, bool, error) {
	var cached dto.ClassTimetableResponse
	if s.cache.Get(ctx, ClassGridKey(classID), &cached) {
		return &cached, true, nil
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, false, err
	}
	view := s.buildView(*class)
	s.cache.Set(ctx, ClassGridKey(classID), view, s.cfg.CacheTTL)
	return view, false, nil
}

// CheckConflict tests a candidate against the other classes of the
// candidate's school and returns the first conflict found.
func (s *TimetableService) CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, validationError(err)
	}
	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	universe, err := s.listClasses(ctx, models.ClassFilter{SchoolID: class.SchoolID})
	if err != nil {
		return nil, err
	}

	candidate := timetable.Candidate{
		Day:       day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
		RoomID:    deref(req.RoomID),
	}
	conflict, err := timetable.CheckConflict(candidate, universe)
	if err != nil {
		return nil, validationError(err)
	}
	s.metrics.RecordConflictCheck(conflict)
	return &dto.ConflictCheckResponse{HasConflict: conflict != nil, Conflict: conflict}, nil
}

// Availability lists every assignment that would collide with the teacher
// and/or room over the requested range.
func (s *TimetableService) Availability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if req.TeacherID == "" && deref(req.RoomID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId or roomId is required")
	}
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, validationError(err)
	}
	universe, err := s.listClasses(ctx, models.ClassFilter{SchoolID: req.SchoolID})
	if err != nil {
		return nil, err
	}
	conflicts, err := timetable.FindConflicts(timetable.Candidate{
		Day:       day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		ClassID:   req.ExcludeClassID,
		TeacherID: req.TeacherID,
		RoomID:    deref(req.RoomID),
	}, universe)
	if err != nil {
		return nil, validationError(err)
	}
	if conflicts == nil {
		conflicts = []models.ScheduleConflict{}
	}
	return &dto.AvailabilityResponse{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// AssignSlot places an activity into a grid cell of a class. An occupied cell
// is replaced. A detected conflict blocks the assignment unless req.Force is
// set, in which case the slot is stored and the conflict reported.
func (s *TimetableService) AssignSlot(ctx context.Context, classID string, req dto.AssignSlotRequest) (*dto.AssignSlotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, validationError(err)
	}

	unlock := s.locks.Lock(classID)
	defer unlock()

	class, universe, err := s.loadWithUniverse(ctx, classID)
	if err != nil {
		return nil, err
	}
	grid := timetable.NewGrid(s.timeSlots, s.cfg.Days, class.Schedule)

	var intent timetable.Intent
	if req.EndTime == "" {
		intent, err = grid.Drop(day, req.StartTime)
	} else {
		intent, err = grid.Edit(day, req.StartTime)
		intent.EndTime = req.EndTime
	}
	if err != nil {
		return nil, validationError(err)
	}

	slot := models.ScheduleSlot{
		ID:           s.newID(),
		Day:          intent.Day,
		StartTime:    intent.StartTime,
		EndTime:      intent.EndTime,
		SubjectID:    req.SubjectID,
		SubjectName:  req.SubjectName,
		TeacherID:    req.TeacherID,
		TeacherName:  req.TeacherName,
		RoomID:       req.RoomID,
		RoomName:     req.RoomName,
		Type:         models.SlotType(req.Type),
		ActivityType: models.ActivityType(req.ActivityType),
		Title:        req.Title,
	}
	if intent.Existing != nil {
		slot.ID = intent.Existing.ID
	}

	validated, conflict, err := s.validate(classID, slot, universe, req.Force, "assign")
	if err != nil {
		return nil, err
	}

	store := timetable.NewSlotStore(class.Schedule)
	store.Assign(validated)
	if err := s.persist(ctx, classID, store.Slots()); err != nil {
		return nil, err
	}

	s.logger.Info("timetable slot assigned",
		zap.String("class_id", classID),
		zap.String("day", string(day)),
		zap.String("start", slot.StartTime),
		zap.Bool("overridden", validated.Overridden()),
	)
	return &dto.AssignSlotResponse{
		Slot:       validated.Slot(),
		Replaced:   intent.Existing,
		Overridden: validated.Overridden(),
		Conflict:   conflict,
	}, nil
}

// MoveSlot drags an existing slot to another cell, keeping its duration.
func (s *TimetableService) MoveSlot(ctx context.Context, classID string, req dto.MoveSlotRequest) (*dto.AssignSlotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	fromDay, err := models.ParseWeekday(req.FromDay)
	if err != nil {
		return nil, validationError(err)
	}
	toDay, err := models.ParseWeekday(req.ToDay)
	if err != nil {
		return nil, validationError(err)
	}

	unlock := s.locks.Lock(classID)
	defer unlock()

	class, universe, err := s.loadWithUniverse(ctx, classID)
	if err != nil {
		return nil, err
	}
	store := timetable.NewSlotStore(class.Schedule)
	source, ok := store.Find(fromDay, req.FromStart)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	span, err := timetable.ParseRange(source.StartTime, source.EndTime)
	if err != nil {
		return nil, validationError(err)
	}

	grid := timetable.NewGrid(s.timeSlots, s.cfg.Days, class.Schedule)
	target, err := grid.Drop(toDay, req.ToStart)
	if err != nil {
		return nil, validationError(err)
	}
	start, err := timetable.ParseClock(target.StartTime)
	if err != nil {
		return nil, validationError(err)
	}

	end := start.Add(span.Minutes())
	if int(end) >= 24*60 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "moved slot would end after midnight")
	}
	moved := source
	moved.Day = target.Day
	moved.StartTime = target.StartTime
	moved.EndTime = end.String()

	validated, conflict, err := s.validate(classID, moved, universe, req.Force, "move")
	if err != nil {
		return nil, err
	}

	var replaced *models.ScheduleSlot
	if target.Existing != nil && target.Existing.ID != source.ID {
		replaced = target.Existing
	}
	store.Clear(fromDay, req.FromStart)
	store.Assign(validated)
	if err := s.persist(ctx, classID, store.Slots()); err != nil {
		return nil, err
	}

	s.logger.Info("timetable slot moved",
		zap.String("class_id", classID),
		zap.String("from", fmt.Sprintf("%s %s", fromDay, req.FromStart)),
		zap.String("to", fmt.Sprintf("%s %s", toDay, moved.StartTime)),
	)
	return &dto.AssignSlotResponse{
		Slot:       validated.Slot(),
		Replaced:   replaced,
		Overridden: validated.Overridden(),
		Conflict:   conflict,
	}, nil
}

// ClearSlot empties the cell of a class keyed by day and start time.
func (s *TimetableService) ClearSlot(ctx context.Context, classID, rawDay, start string) error {
	day, err := models.ParseWeekday(rawDay)
	if err != nil {
		return validationError(err)
	}

	unlock := s.locks.Lock(classID)
	defer unlock()

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	store := timetable.NewSlotStore(class.Schedule)
	if !store.Clear(day, start) {
		return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	if err := s.persist(ctx, classID, store.Slots()); err != nil {
		return err
	}
	s.metrics.RecordSlotMutation("clear", OutcomeStored)
	return nil
}

// ClearSchedule removes every slot of a class and returns how many were removed.
func (s *TimetableService) ClearSchedule(ctx context.Context, classID string) (int, error) {
	unlock := s.locks.Lock(classID)
	defer unlock()

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return 0, err
	}
	store := timetable.NewSlotStore(class.Schedule)
	removed := store.Len()
	store.ClearAll()
	if err := s.persist(ctx, classID, store.Slots()); err != nil {
		return 0, err
	}
	s.metrics.RecordSlotMutation("clear_all", OutcomeStored)
	s.logger.Info("timetable cleared", zap.String("class_id", classID), zap.Int("removed", removed))
	return removed, nil
}

// TeacherTimetable lists every slot taught by a teacher across classes,
// ordered by day then start time.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID, schoolID string) (*dto.TeacherTimetableResponse, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	classes, err := s.listClasses(ctx, models.ClassFilter{SchoolID: schoolID})
	if err != nil {
		return nil, err
	}
	entries := make([]dto.TeacherTimetableEntry, 0)
	for _, class := range classes {
		for _, slot := range class.Schedule {
			if slot.TeacherID == teacherID {
				entries = append(entries, dto.TeacherTimetableEntry{ClassID: class.ID, ClassLabel: class.Label(), Slot: slot})
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Slot, entries[j].Slot
		if a.Day != b.Day {
			return dayIndex(a.Day) < dayIndex(b.Day)
		}
		return a.StartTime < b.StartTime
	})
	return &dto.TeacherTimetableResponse{TeacherID: teacherID, Entries: entries}, nil
}

func (s *TimetableService) validate(classID string, slot models.ScheduleSlot, universe []models.ClassInfo, force bool, operation string) (timetable.ValidatedSlot, *models.ScheduleConflict, error) {
	validated, conflict, err := timetable.Validate(classID, slot, universe)
	if err != nil {
		return timetable.ValidatedSlot{}, nil, validationError(err)
	}
	s.metrics.RecordConflictCheck(conflict)
	if conflict == nil {
		s.metrics.RecordSlotMutation(operation, OutcomeStored)
		return validated, nil, nil
	}
	if !force {
		s.metrics.RecordSlotMutation(operation, OutcomeBlocked)
		return timetable.ValidatedSlot{}, nil, conflictError(*conflict)
	}
	validated, err = timetable.Override(slot)
	if err != nil {
		return timetable.ValidatedSlot{}, nil, validationError(err)
	}
	s.metrics.RecordSlotMutation(operation, OutcomeForced)
	s.logger.Warn("timetable conflict overridden",
		zap.String("class_id", classID),
		zap.String("kind", string(conflict.Kind)),
		zap.String("message", conflict.Message),
	)
	return validated, conflict, nil
}

func (s *TimetableService) loadWithUniverse(ctx context.Context, classID string) (*models.ClassInfo, []models.ClassInfo, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	universe, err := s.listClasses(ctx, models.ClassFilter{SchoolID: class.SchoolID})
	if err != nil {
		return nil, nil, err
	}
	return class, universe, nil
}

func (s *TimetableService) loadClass(ctx context.Context, classID string) (*models.ClassInfo, error) {
	start := time.Now()
	class, err := s.classes.FindByID(ctx, classID)
	s.metrics.ObserveDBQuery("class_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *TimetableService) listClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error) {
	start := time.Now()
	classes, err := s.classes.List(ctx, filter)
	s.metrics.ObserveDBQuery("class_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

func (s *TimetableService) persist(ctx context.Context, classID string, slots []models.ScheduleSlot) error {
	start := time.Now()
	err := s.classes.ReplaceSchedule(ctx, nil, classID, slots)
	s.metrics.ObserveDBQuery("schedule_replace", time.Since(start))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	s.cache.InvalidateClasses(ctx, classID)
	return nil
}

func (s *TimetableService) buildView(class models.ClassInfo) *dto.ClassTimetableResponse {
	grid := timetable.NewGrid(s.timeSlots, s.cfg.Days, class.Schedule)
	rows := make([]dto.GridRow, 0, len(s.timeSlots))
	for _, row := range grid.Rows() {
		cells := make([]dto.GridCell, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = dto.GridCell{Day: cell.Day, Slot: cell.Slot}
		}
		rows = append(rows, dto.GridRow{Time: row.Time, Cells: cells})
	}
	subjects := class.Subjects
	if subjects == nil {
		subjects = []models.ClassSubject{}
	}
	slots := class.Schedule
	if slots == nil {
		slots = []models.ScheduleSlot{}
	}
	return &dto.ClassTimetableResponse{
		Class:     summarize(class),
		Subjects:  subjects,
		Days:      grid.Days(),
		TimeSlots: grid.Times(),
		Rows:      rows,
		Slots:     slots,
	}
}

func summarize(class models.ClassInfo) dto.ClassSummary {
	return dto.ClassSummary{
		ID:         class.ID,
		SchoolID:   class.SchoolID,
		GradeLevel: class.GradeLevel,
		Section:    class.Section,
		Label:      class.Label(),
		SlotCount:  len(class.Schedule),
	}
}

func conflictError(conflict models.ScheduleConflict) error {
	domainErr := &models.ScheduleConflictError{Type: conflict.Kind, Message: conflict.Message, Conflict: conflict}
	appErr := appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", conflict.Message))
	return appErrors.WithDetails(appErr, conflict)
}

// validationError maps engine parse and validation failures to 400 responses.
func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

func dayIndex(day models.Weekday) int {
	for i, d := range models.Weekdays {
		if d == day {
			return i
		}
	}
	return len(models.Weekdays)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
