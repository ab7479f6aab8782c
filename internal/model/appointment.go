package model

import "time"

// Status enumerates the appointment lifecycle.  A single enum column
// encodes the whole state machine so that combinations like
// "booked but unconfirmed" cannot be stored.
//
//	pending  -> booked    (OTP confirmed within the hold window)
//	pending  -> cancelled (explicit cancel or hold expiry sweep)
//	booked   -> booked    (reschedule: repointed to a new slot)
//	booked   -> cancelled (explicit cancel)
//	booked   -> completed (slot end time passed)
//
// cancelled and completed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a status string coming from a query parameter.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusBooked, StatusCancelled, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Confirmed reports whether the appointment has passed OTP verification.
// completed implies the appointment was confirmed before the slot elapsed.
func (s Status) Confirmed() bool {
	return s == StatusBooked || s == StatusCompleted
}

// CanTransition reports whether moving from s to next is a legal step of
// the lifecycle above.  The booked->booked self-transition covers
// reschedules, which repoint the row without changing its status.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusBooked || next == StatusCancelled
	case StatusBooked:
		return next == StatusBooked || next == StatusCancelled || next == StatusCompleted
	}
	return false
}

// Appointment is one user's claim on an availability slot, pending or
// resolved.  At most one appointment may be live (pending with an
// unexpired lock, or booked) against a slot at any instant; the
// appointment service enforces this under the slot row lock.
//
// Fields:
//  ID             – primary key identifier.
//  PublicID       – opaque UUID exposed to clients.
//  UserID         – owning user.
//  DoctorID       – doctor the appointment is with.
//  AvailabilityID – the slot being claimed.
//  Status         – lifecycle state, see Status.
//  LockedUntil    – hold expiry; set only while Status is pending.
//  CreatedAt      – creation timestamp; refreshed on reschedule.
type Appointment struct {
	ID             uint64     // appointments.id
	PublicID       string     // appointments.public_id
	UserID         uint64     // appointments.user_id
	DoctorID       uint64     // appointments.doctor_id
	AvailabilityID uint64     // appointments.availability_id
	Status         Status     // appointments.status
	LockedUntil    *time.Time // appointments.locked_until (nullable)
	CreatedAt      time.Time  // appointments.created_at
}

// HoldExpired reports whether a pending appointment's hold has lapsed at
// the given instant.  Non-pending appointments have no hold.
func (a *Appointment) HoldExpired(now time.Time) bool {
	if a.Status != StatusPending {
		return false
	}
	return a.LockedUntil == nil || !a.LockedUntil.After(now)
}
