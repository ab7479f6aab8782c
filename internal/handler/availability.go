package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// AvailabilityHandler serves slot browsing endpoints.  Slot state shown
// here is advisory; the booking transaction is the source of truth.
type AvailabilityHandler struct {
	slots *repository.AvailabilityRepo
	log   zerolog.Logger
}

func NewAvailabilityHandler(slots *repository.AvailabilityRepo, log zerolog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{slots: slots, log: log}
}

// List returns every slot with doctor info and a derived display status
// (available, held or booked).
func (h *AvailabilityHandler) List(c echo.Context) error {
	rows, err := h.slots.ListAll(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list availability failed")
		return respondErr(c, http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []repository.AvailabilityDetail{}
	}
	return respondOK(c, http.StatusOK, "availability", rows)
}

// ListByDoctor returns the slots of one doctor.
func (h *AvailabilityHandler) ListByDoctor(c echo.Context) error {
	doctorID, err := strconv.ParseUint(c.Param("doctorId"), 10, 64)
	if err != nil || doctorID == 0 {
		return respondErr(c, http.StatusBadRequest, "invalid doctor id")
	}
	rows, err := h.slots.ListByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		h.log.Error().Err(err).Msg("list doctor availability failed")
		return respondErr(c, http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []repository.Slot{}
	}
	return respondOK(c, http.StatusOK, "availability", rows)
}
