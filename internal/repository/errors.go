// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// appointment service to distinguish between failure scenarios without
// string matching. ErrAvailabilityNotFound and ErrAppointmentNotFound are
// returned instead of raw sql.ErrNoRows so callers don't need to know
// which table a lookup touched.
package repository

import "errors"

// ErrAvailabilityNotFound is returned when an availability slot lookup
// matches no row.
var ErrAvailabilityNotFound = errors.New("availability not found")

// ErrAppointmentNotFound is returned when an appointment lookup matches
// no row.
var ErrAppointmentNotFound = errors.New("appointment not found")

// ErrDoctorNotFound is returned when a doctor lookup matches no row.
var ErrDoctorNotFound = errors.New("doctor not found")

// ErrEmailTaken is returned when registering a user with an email that
// already exists.
var ErrEmailTaken = errors.New("email already in use")
