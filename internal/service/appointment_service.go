// Package service implements the reservation coordinator: the state
// machine that turns availability slots into confirmed appointments.
// Every operation runs inside a single transaction; all reads that gate a
// decision and all writes that act on it happen under the row locks taken
// at the start, so a validation failure rolls back with no partial
// effect.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/metrics"
	"github.com/medibook/doctor-appointment-booking/internal/model"
	"github.com/medibook/doctor-appointment-booking/internal/otp"
	"github.com/medibook/doctor-appointment-booking/internal/queue"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// Notifier is the delivery collaborator for verification codes and
// confirmations.  Implementations must not fail the booking flow: errors
// are logged inside the notifier and swallowed here.
type Notifier interface {
	OTPIssued(ctx context.Context, ev queue.OTPIssuedEvent)
	AppointmentConfirmed(ctx context.Context, ev queue.AppointmentConfirmedEvent)
}

// BookResult is returned by Book.  The verification code is included in
// the result for development convenience; production delivery goes
// through the notifier.
type BookResult struct {
	AppointmentID uint64    `json:"appointment_id"`
	PublicID      string    `json:"public_id"`
	LockedUntil   time.Time `json:"locked_until"`
	OTP           string    `json:"otp"`
}

// AppointmentService coordinates slot holds, confirmations, cancellations
// and reschedules.  It owns the transaction boundaries; the repositories
// only run statements inside them.
type AppointmentService struct {
	db           *sql.DB
	slots        *repository.AvailabilityRepo
	appts        *repository.AppointmentRepo
	codes        *otp.Store
	notifier     Notifier
	holdFor      time.Duration
	cancelWindow time.Duration
	log          zerolog.Logger
}

// NewAppointmentService wires the coordinator.  holdFor is the temporary
// hold duration granted by Book (and the OTP lifetime); cancelWindow is
// the minimum lead time before slot start for cancel/reschedule.
func NewAppointmentService(db *sql.DB, slots *repository.AvailabilityRepo, appts *repository.AppointmentRepo,
	codes *otp.Store, notifier Notifier, holdFor, cancelWindow time.Duration, log zerolog.Logger) *AppointmentService {
	if db == nil || slots == nil || appts == nil || codes == nil {
		panic("nil dependency passed to NewAppointmentService")
	}
	return &AppointmentService{
		db:           db,
		slots:        slots,
		appts:        appts,
		codes:        codes,
		notifier:     notifier,
		holdFor:      holdFor,
		cancelWindow: cancelWindow,
		log:          log,
	}
}

// begin starts a transaction with the standard rollback-unless-committed
// guard used by every operation.
func (s *AppointmentService) begin(ctx context.Context) (*sql.Tx, func(committed *bool), error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func(committed *bool) {
		if !*committed {
			_ = tx.Rollback()
		}
	}
	return tx, cleanup, nil
}

// Book places a temporary hold on a slot for the user.  The slot row lock
// linearizes concurrent attempts: the loser observes either the booked
// flag or the winner's fresh pending row and fails with a conflict.  The
// verification code is minted only after the hold is durably committed,
// so a minted code always refers to an existing pending appointment.
func (s *AppointmentService) Book(ctx context.Context, userID, availabilityID uint64) (*BookResult, error) {
	tx, cleanup, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer cleanup(&committed)

	slot, err := s.slots.GetForUpdateTx(ctx, tx, availabilityID)
	if errors.Is(err, repository.ErrAvailabilityNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	if slot.IsBooked {
		metrics.IncBookAttempt("conflict")
		return nil, ErrSlotBooked
	}
	held, err := s.appts.HasActivePendingTx(ctx, tx, slot.ID)
	if err != nil {
		return nil, err
	}
	if held {
		metrics.IncBookAttempt("conflict")
		return nil, ErrSlotHeld
	}

	appt, err := s.appts.InsertPendingTx(ctx, tx, userID, slot.DoctorID, slot.ID, s.holdFor)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	code, err := s.codes.Mint(appt.ID, s.holdFor)
	if err != nil {
		// The hold stays in place and will be swept at expiry; the user
		// can simply book again afterwards.
		s.log.Error().Err(err).Uint64("appointment_id", appt.ID).Msg("mint verification code failed")
		return nil, err
	}
	metrics.IncBookAttempt("ok")

	if s.notifier != nil {
		s.notifier.OTPIssued(ctx, queue.OTPIssuedEvent{
			AppointmentID: appt.ID,
			PublicID:      appt.PublicID,
			UserID:        userID,
			Code:          code,
			ExpiresAt:     appt.LockedUntil.UTC().Format(time.RFC3339),
		})
	}
	return &BookResult{
		AppointmentID: appt.ID,
		PublicID:      appt.PublicID,
		LockedUntil:   appt.LockedUntil.UTC(),
		OTP:           code,
	}, nil
}

// Confirm verifies the code and flips the pending hold into a booked
// appointment, hard-booking the slot in the same transaction.  The code
// check is an atomic verify-and-consume against the in-process cache: a
// cache entry lost to a restart surfaces as ErrCodeExpired, and two
// racing confirmations with the same code cannot both pass.
func (s *AppointmentService) Confirm(ctx context.Context, userID, appointmentID uint64, code string) error {
	tx, cleanup, err := s.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer cleanup(&committed)

	appt, err := s.appts.GetForUpdateTx(ctx, tx, appointmentID)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return ErrAppointmentNotFound
	}
	if err != nil {
		return err
	}
	if appt.UserID != userID {
		return ErrNotOwner
	}
	if appt.Status.Confirmed() {
		return ErrAlreadyConfirmed
	}
	if appt.Status != model.StatusPending || appt.HoldExpired(time.Now().UTC()) {
		return ErrHoldExpired
	}

	ok, reason := s.codes.VerifyConsume(appt.ID, code)
	if !ok {
		metrics.IncOTPVerification(string(reason))
		switch reason {
		case otp.ReasonMismatch:
			return ErrBadCode
		default:
			return ErrCodeExpired
		}
	}

	if err := s.appts.MarkBookedTx(ctx, tx, appt.ID); err != nil {
		return err
	}
	if err := s.slots.SetBookedTx(ctx, tx, appt.AvailabilityID, true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	metrics.IncOTPVerification("ok")

	if s.notifier != nil {
		s.notifier.AppointmentConfirmed(ctx, queue.AppointmentConfirmedEvent{
			AppointmentID:  appt.ID,
			PublicID:       appt.PublicID,
			UserID:         userID,
			DoctorID:       appt.DoctorID,
			AvailabilityID: appt.AvailabilityID,
			ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// Cancel resolves an appointment to cancelled and frees its slot.  Both
// pending and booked appointments may be cancelled, but only while the
// slot start is more than the cancel window away.
func (s *AppointmentService) Cancel(ctx context.Context, userID, appointmentID uint64) error {
	tx, cleanup, err := s.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer cleanup(&committed)

	appt, err := s.appts.GetForUpdateTx(ctx, tx, appointmentID)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return ErrAppointmentNotFound
	}
	if err != nil {
		return err
	}
	if appt.UserID != userID {
		return ErrNotOwner
	}
	if appt.Status.Terminal() {
		return ErrAlreadyResolved
	}

	slot, err := s.slots.GetForUpdateTx(ctx, tx, appt.AvailabilityID)
	if err != nil {
		return err
	}
	if !slot.StartTime.After(time.Now().UTC().Add(s.cancelWindow)) {
		return ErrTooLate
	}

	if err := s.appts.MarkCancelledTx(ctx, tx, appt.ID); err != nil {
		return err
	}
	if err := s.slots.SetBookedTx(ctx, tx, slot.ID, false); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.codes.Evict(appt.ID)
	metrics.IncCancelled()
	return nil
}

// Reschedule moves a booked appointment to a new slot of the same doctor.
// It is cancel-then-book collapsed into one transaction: the old slot is
// freed and the new one hard-booked under both row locks, so there is no
// window in which the appointment holds neither slot.
func (s *AppointmentService) Reschedule(ctx context.Context, userID, appointmentID, newAvailabilityID uint64) error {
	tx, cleanup, err := s.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer cleanup(&committed)

	appt, err := s.appts.GetForUpdateTx(ctx, tx, appointmentID)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return ErrAppointmentNotFound
	}
	if err != nil {
		return err
	}
	if appt.UserID != userID {
		return ErrNotOwner
	}
	if appt.Status != model.StatusBooked {
		return ErrNotConfirmed
	}

	oldSlot, err := s.slots.GetForUpdateTx(ctx, tx, appt.AvailabilityID)
	if err != nil {
		return err
	}
	if !oldSlot.StartTime.After(time.Now().UTC().Add(s.cancelWindow)) {
		return ErrTooLate
	}

	newSlot, err := s.slots.GetForUpdateTx(ctx, tx, newAvailabilityID)
	if errors.Is(err, repository.ErrAvailabilityNotFound) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}
	if newSlot.DoctorID != appt.DoctorID {
		return ErrDoctorMismatch
	}
	if newSlot.IsBooked {
		return ErrSlotBooked
	}
	held, err := s.appts.HasActivePendingTx(ctx, tx, newSlot.ID)
	if err != nil {
		return err
	}
	if held {
		return ErrSlotHeld
	}

	if err := s.slots.SetBookedTx(ctx, tx, oldSlot.ID, false); err != nil {
		return err
	}
	if err := s.slots.SetBookedTx(ctx, tx, newSlot.ID, true); err != nil {
		return err
	}
	if err := s.appts.RepointTx(ctx, tx, appt.ID, newSlot.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	metrics.IncRescheduled()
	return nil
}

// ListForUser returns the user's appointments with joined display data.
// Before reading it lazily completes any booked appointment whose slot
// has already ended, so statuses are current without waiting for a
// background pass.  An empty status lists every state.
func (s *AppointmentService) ListForUser(ctx context.Context, userID uint64, status model.Status) ([]repository.AppointmentDetail, error) {
	tx, cleanup, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer cleanup(&committed)

	if _, err := s.appts.CompletePastTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	details, err := s.appts.ListByUserTx(ctx, tx, userID, status)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return details, nil
}
