package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/model"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
	"github.com/medibook/doctor-appointment-booking/internal/service"
)

// Booker is the slice of the appointment service the handlers use.
// Declared on the consumer side so tests can substitute a stub.
type Booker interface {
	Book(ctx context.Context, userID, availabilityID uint64) (*service.BookResult, error)
	Confirm(ctx context.Context, userID, appointmentID uint64, code string) error
	Cancel(ctx context.Context, userID, appointmentID uint64) error
	Reschedule(ctx context.Context, userID, appointmentID, newAvailabilityID uint64) error
	ListForUser(ctx context.Context, userID uint64, status model.Status) ([]repository.AppointmentDetail, error)
}

// AppointmentHandler exposes the booking workflow over HTTP.
type AppointmentHandler struct {
	svc Booker
	log zerolog.Logger
}

// NewAppointmentHandler wires the appointment endpoints.
func NewAppointmentHandler(svc Booker, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

type bookRequest struct {
	AvailabilityID uint64 `json:"availability_id"`
}

// Book places a temporary hold on an availability slot.
func (h *AppointmentHandler) Book(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "authentication required")
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil || req.AvailabilityID == 0 {
		return respondErr(c, http.StatusBadRequest, "availability_id is required")
	}

	res, err := h.svc.Book(c.Request().Context(), userID, req.AvailabilityID)
	if err != nil {
		return h.fail(c, err, "book")
	}
	return respondOK(c, http.StatusCreated, "slot held, confirm with the verification code", res)
}

type confirmRequest struct {
	AppointmentID uint64 `json:"appointment_id"`
	OTP           string `json:"otp"`
}

// Confirm verifies the OTP and finalizes the booking.
func (h *AppointmentHandler) Confirm(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "authentication required")
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil || req.AppointmentID == 0 || req.OTP == "" {
		return respondErr(c, http.StatusBadRequest, "appointment_id and otp are required")
	}

	if err := h.svc.Confirm(c.Request().Context(), userID, req.AppointmentID, req.OTP); err != nil {
		return h.fail(c, err, "confirm")
	}
	return respondOK(c, http.StatusOK, "appointment confirmed", nil)
}

// List returns the caller's appointments, optionally filtered by status.
func (h *AppointmentHandler) List(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "authentication required")
	}
	var status model.Status
	if raw := c.QueryParam("status"); raw != "" {
		parsed, ok := model.ParseStatus(raw)
		if !ok {
			return respondErr(c, http.StatusBadRequest, "unknown status filter")
		}
		status = parsed
	}

	rows, err := h.svc.ListForUser(c.Request().Context(), userID, status)
	if err != nil {
		return h.fail(c, err, "list")
	}
	if rows == nil {
		rows = []repository.AppointmentDetail{}
	}
	return respondOK(c, http.StatusOK, "appointments", rows)
}

// Cancel resolves an appointment to cancelled and frees its slot.
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, http.StatusBadRequest, "invalid appointment id")
	}

	if err := h.svc.Cancel(c.Request().Context(), userID, id); err != nil {
		return h.fail(c, err, "cancel")
	}
	return respondOK(c, http.StatusOK, "appointment cancelled", nil)
}

type rescheduleRequest struct {
	NewAvailabilityID uint64 `json:"new_availability_id"`
}

// Reschedule moves a confirmed appointment to another slot of the same
// doctor.
func (h *AppointmentHandler) Reschedule(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, http.StatusBadRequest, "invalid appointment id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil || req.NewAvailabilityID == 0 {
		return respondErr(c, http.StatusBadRequest, "new_availability_id is required")
	}

	if err := h.svc.Reschedule(c.Request().Context(), userID, id, req.NewAvailabilityID); err != nil {
		return h.fail(c, err, "reschedule")
	}
	return respondOK(c, http.StatusOK, "appointment rescheduled", nil)
}

// fail maps service sentinels onto HTTP statuses.  Anything unmapped is a
// 500 with a generic message; the cause goes to the log, not the client.
func (h *AppointmentHandler) fail(c echo.Context, err error, op string) error {
	switch {
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrAppointmentNotFound):
		return respondErr(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSlotBooked),
		errors.Is(err, service.ErrSlotHeld):
		return respondErr(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return respondErr(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyConfirmed),
		errors.Is(err, service.ErrHoldExpired),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrBadCode),
		errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrTooLate),
		errors.Is(err, service.ErrDoctorMismatch):
		return respondErr(c, http.StatusBadRequest, err.Error())
	}
	h.log.Error().Err(err).Str("op", op).Msg("appointment operation failed")
	return respondErr(c, http.StatusInternalServerError, "internal error")
}
