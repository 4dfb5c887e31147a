package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type massEventRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error)
	ReplaceSchedule(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.ScheduleSlot) error
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// MassEventConfig carries the configured day parts.
type MassEventConfig struct {
	Windows     map[timetable.DurationKind]timetable.Window
	SlotMinutes int
	Locks       *ClassLocks
}

// MassEventService applies holidays, suspensions and other school-wide
// activities to many class timetables in one run.
type MassEventService struct {
	classes   massEventRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       MassEventConfig
	newID     func() string
}

// NewMassEventService constructs the service.
func NewMassEventService(classes massEventRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg MassEventConfig) *MassEventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = timetable.DefaultMassEventSlotMinutes
	}
	if cfg.Locks == nil {
		cfg.Locks = NewClassLocks()
	}
	return &MassEventService{
		classes:   classes,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

// Apply rewrites the requested window of every class in scope. The rewritten
// schedules are stored in a single transaction; classes whose existing
// schedule cannot be rewritten are reported and left untouched. DryRun
// computes the results without saving.
func (s *MassEventService) Apply(ctx context.Context, req dto.MassEventRequest) (*dto.MassEventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mass event payload")
	}
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, validationError(err)
	}

	filter := models.ClassFilter{SchoolID: req.SchoolID, GradeLevels: req.GradeLevels, ClassIDs: req.ClassIDs}
	scope, err := s.listClasses(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(scope))
	for _, class := range scope {
		ids = append(ids, class.ID)
	}

	// Schedules are read again under the class locks so edits that landed
	// after the scope lookup are rewritten rather than overwritten.
	unlock := s.cfg.Locks.Lock(ids...)
	defer unlock()
	var classes []models.ClassInfo
	if len(ids) > 0 {
		filter.ClassIDs = ids
		if classes, err = s.listClasses(ctx, filter); err != nil {
			return nil, err
		}
	}

	slotMinutes := req.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = s.cfg.SlotMinutes
	}
	event := timetable.MassEvent{
		Scope:        filter.Matches,
		Day:          day,
		Duration:     timetable.DurationKind(req.Duration),
		Title:        req.Title,
		ActivityType: models.ActivityType(req.ActivityType),
		Windows:      s.cfg.Windows,
		SlotMinutes:  slotMinutes,
		NewID:        s.newID,
	}
	window, err := event.ResolveWindow()
	if err != nil {
		return nil, validationError(err)
	}
	updated, results, err := timetable.ApplyMassEvent(classes, event)
	if err != nil {
		return nil, validationError(err)
	}

	schedules := make(map[string][]models.ScheduleSlot, len(updated))
	for _, class := range updated {
		schedules[class.ID] = class.Schedule
	}

	resp := &dto.MassEventResponse{
		Day:      day,
		Duration: req.Duration,
		Window:   models.TimeSlot{Start: window.Start, End: window.End},
		DryRun:   req.DryRun,
		Results:  make([]dto.MassEventClassResult, 0, len(results)),
	}
	applied := make([]string, 0, len(results))
	for _, result := range results {
		resp.Results = append(resp.Results, dto.MassEventClassResult{
			ClassID:  result.ClassID,
			Label:    result.Label,
			Applied:  result.Applied,
			Removed:  result.Removed,
			Inserted: result.Inserted,
			Error:    result.Error,
		})
		if result.Applied {
			resp.Applied++
			applied = append(applied, result.ClassID)
		} else {
			resp.Failed++
		}
	}

	if req.DryRun || len(applied) == 0 {
		return resp, nil
	}

	start := time.Now()
	err = database.WithTx(ctx, s.classes, func(tx *sqlx.Tx) error {
		for _, classID := range applied {
			if err := s.classes.ReplaceSchedule(ctx, tx, classID, schedules[classID]); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.ObserveDBQuery("mass_event_write", time.Since(start))
	if err != nil {
		s.logger.Error("mass event write failed", zap.String("day", string(day)), zap.Int("classes", len(applied)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply mass event")
	}

	s.cache.InvalidateClasses(ctx, applied...)
	s.metrics.RecordMassEvent(resp.Applied, resp.Failed)
	s.logger.Info("mass event applied",
		zap.String("day", string(day)),
		zap.String("duration", req.Duration),
		zap.String("title", req.Title),
		zap.Int("applied", resp.Applied),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

func (s *MassEventService) listClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error) {
	start := time.Now()
	classes, err := s.classes.List(ctx, filter)
	s.metrics.ObserveDBQuery("class_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// WindowsFromConfig converts configured day parts into engine windows.
func WindowsFromConfig(wholeDay, am, pm timetable.Window) map[timetable.DurationKind]timetable.Window {
	windows := make(map[timetable.DurationKind]timetable.Window, 3)
	if wholeDay.Start != "" && wholeDay.End != "" {
		windows[timetable.WholeDay] = wholeDay
	}
	if am.Start != "" && am.End != "" {
		windows[timetable.AM] = am
	}
	if pm.Start != "" && pm.End != "" {
		windows[timetable.PM] = pm
	}
	return windows
}
