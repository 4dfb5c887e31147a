package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type massEventService interface {
	Apply(ctx context.Context, req dto.MassEventRequest) (*dto.MassEventResponse, error)
}

// MassEventHandler applies school-wide activities to many timetables.
type MassEventHandler struct {
	service massEventService
}

// NewMassEventHandler constructs the handler.
func NewMassEventHandler(service massEventService) *MassEventHandler {
	return &MassEventHandler{service: service}
}

// Apply godoc
// @Summary Apply a mass event
// @Description Replaces the selected day part of every class in scope with event slots. Set dryRun to preview the per-class results.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.MassEventRequest true "Mass event"
// @Success 200 {object} response.Envelope
// @Router /timetable/mass-events [post]
func (h *MassEventHandler) Apply(c *gin.Context) {
	var req dto.MassEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
