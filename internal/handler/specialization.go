package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// SpecializationHandler lists medical specializations.
type SpecializationHandler struct {
	specs *repository.SpecializationRepo
	log   zerolog.Logger
}

func NewSpecializationHandler(specs *repository.SpecializationRepo, log zerolog.Logger) *SpecializationHandler {
	return &SpecializationHandler{specs: specs, log: log}
}

// List returns all specializations.
func (h *SpecializationHandler) List(c echo.Context) error {
	rows, err := h.specs.ListAll(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list specializations failed")
		return respondErr(c, http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []repository.SpecializationDetail{}
	}
	return respondOK(c, http.StatusOK, "specializations", rows)
}
