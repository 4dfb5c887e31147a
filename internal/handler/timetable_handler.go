package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	TimeGrid() dto.TimeGridResponse
	ListClasses(ctx context.Context, query dto.ClassListQuery) ([]dto.ClassSummary, *models.Pagination, error)
	ClassGrid(ctx context.Context, classID string) (*dto.ClassTimetableResponse, bool, error)
	CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
	Availability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
	AssignSlot(ctx context.Context, classID string, req dto.AssignSlotRequest) (*dto.AssignSlotResponse, error)
	MoveSlot(ctx context.Context, classID string, req dto.MoveSlotRequest) (*dto.AssignSlotResponse, error)
	ClearSlot(ctx context.Context, classID, day, start string) error
	ClearSchedule(ctx context.Context, classID string) (int, error)
	TeacherTimetable(ctx context.Context, teacherID, schoolID string) (*dto.TeacherTimetableResponse, error)
}

// TimetableHandler exposes the timetable editor endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Grid godoc
// @Summary Weekly time grid
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/grid [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.TimeGrid(), nil)
}

// ListClasses godoc
// @Summary List classes
// @Tags Timetable
// @Produce json
// @Param schoolId query string false "School ID"
// @Param gradeLevel query string false "Grade level"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *TimetableHandler) ListClasses(c *gin.Context) {
	var query dto.ClassListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.ListClasses(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ClassTimetable godoc
// @Summary Class timetable grid
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	view, cacheHit, err := h.service.ClassGrid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// AssignSlot godoc
// @Summary Drop or edit a timetable cell
// @Description Places an activity in the cell at day/startTime. A teacher or room conflict blocks the assignment with 409 unless force is set.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AssignSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/timetable/slots [post]
func (h *TimetableHandler) AssignSlot(c *gin.Context) {
	var req dto.AssignSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.AssignSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MoveSlot godoc
// @Summary Move a slot to another cell
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.MoveSlotRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/timetable/moves [post]
func (h *TimetableHandler) MoveSlot(c *gin.Context) {
	var req dto.MoveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.MoveSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClearSlot godoc
// @Summary Clear a timetable cell
// @Tags Timetable
// @Param id path string true "Class ID"
// @Param day path string true "Weekday"
// @Param start path string true "Start time (HH:MM)"
// @Success 204
// @Router /classes/{id}/timetable/slots/{day}/{start} [delete]
func (h *TimetableHandler) ClearSlot(c *gin.Context) {
	if err := h.service.ClearSlot(c.Request.Context(), c.Param("id"), c.Param("day"), c.Param("start")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearSchedule godoc
// @Summary Remove every slot of a class
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [delete]
func (h *TimetableHandler) ClearSchedule(c *gin.Context) {
	removed, err := h.service.ClearSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// CheckConflict godoc
// @Summary Check a candidate slot for teacher and room conflicts
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Candidate"
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts/check [post]
func (h *TimetableHandler) CheckConflict(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.CheckConflict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Availability godoc
// @Summary List every conflict for a teacher and/or room over a range
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.AvailabilityRequest true "Availability query"
// @Success 200 {object} response.Envelope
// @Router /timetable/availability [post]
func (h *TimetableHandler) Availability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.Availability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TeacherTimetable godoc
// @Summary Weekly timetable of a teacher across classes
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Param schoolId query string false "School ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	result, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("schoolId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
