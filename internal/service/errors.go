package service

import "errors"

// Sentinel errors returned by the appointment service.  Handlers compare
// with errors.Is and map each class onto an HTTP status; the service
// itself never references status codes.
var (
	// ErrSlotNotFound: the availability slot does not exist (404).
	ErrSlotNotFound = errors.New("availability slot not found")
	// ErrSlotBooked: the slot already carries a confirmed appointment (409).
	ErrSlotBooked = errors.New("slot already booked")
	// ErrSlotHeld: a live pending hold exists on the slot (409).
	ErrSlotHeld = errors.New("slot temporarily locked")
	// ErrAppointmentNotFound: no such appointment row (404).
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrNotOwner: the appointment belongs to a different user (403).
	ErrNotOwner = errors.New("appointment belongs to another user")
	// ErrAlreadyConfirmed: confirm called on a booked appointment (400).
	ErrAlreadyConfirmed = errors.New("appointment already confirmed")
	// ErrHoldExpired: the hold lapsed before confirmation (400).
	ErrHoldExpired = errors.New("lock expired, please book again")
	// ErrCodeExpired: the verification code expired or was never issued
	// to this process (400).
	ErrCodeExpired = errors.New("verification code expired or not found")
	// ErrBadCode: the verification code does not match (400).
	ErrBadCode = errors.New("invalid verification code")
	// ErrNotConfirmed: only booked appointments can be rescheduled (400).
	ErrNotConfirmed = errors.New("only confirmed appointments can be rescheduled")
	// ErrAlreadyResolved: cancel called on a cancelled or completed
	// appointment (400).
	ErrAlreadyResolved = errors.New("appointment already cancelled or completed")
	// ErrTooLate: the 24 hour cancel/reschedule window has closed (400).
	ErrTooLate = errors.New("allowed only more than 24 hours before the appointment")
	// ErrDoctorMismatch: reschedule may not change the doctor (400).
	ErrDoctorMismatch = errors.New("reschedule must stay with the same doctor")
)
