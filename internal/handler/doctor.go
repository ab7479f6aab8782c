package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// DoctorHandler serves the doctor discovery endpoints.
type DoctorHandler struct {
	doctors *repository.DoctorRepo
	log     zerolog.Logger
}

func NewDoctorHandler(doctors *repository.DoctorRepo, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, log: log}
}

// List returns every doctor with their specialization.
func (h *DoctorHandler) List(c echo.Context) error {
	rows, err := h.doctors.ListAll(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list doctors failed")
		return respondErr(c, http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []repository.DoctorDetail{}
	}
	return respondOK(c, http.StatusOK, "doctors", rows)
}

// Discover filters doctors by specialization name and consultation mode.
// Both query parameters are optional; an empty filter matches everyone.
func (h *DoctorHandler) Discover(c echo.Context) error {
	spec := c.QueryParam("specialization")
	mode := c.QueryParam("mode")
	switch mode {
	case "", "online", "in_person", "both":
	default:
		return respondErr(c, http.StatusBadRequest, "mode must be online, in_person or both")
	}

	rows, err := h.doctors.Discover(c.Request().Context(), spec, mode)
	if err != nil {
		h.log.Error().Err(err).Msg("discover doctors failed")
		return respondErr(c, http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []repository.DoctorDetail{}
	}
	return respondOK(c, http.StatusOK, "doctors", rows)
}
