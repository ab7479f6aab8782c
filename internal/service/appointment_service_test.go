package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/doctor-appointment-booking/internal/model"
	"github.com/medibook/doctor-appointment-booking/internal/otp"
	"github.com/medibook/doctor-appointment-booking/internal/queue"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// Query fragments matched against the statements the repositories issue.
const (
	slotLockQ      = `SELECT id, doctor_id, start_time, end_time, is_booked FROM availability WHERE id = \? FOR UPDATE`
	pendingCheckQ  = `SELECT 1 FROM appointments WHERE availability_id = \?`
	insertPendingQ = `INSERT INTO appointments`
	apptLockQ      = `FROM appointments WHERE id = \? FOR UPDATE`
	markBookedQ    = `SET status = 'booked', locked_until = NULL WHERE id = \?`
	markCancelledQ = `SET status = 'cancelled', locked_until = NULL WHERE id = \?`
	setBookedQ     = `UPDATE availability SET is_booked = \? WHERE id = \?`
	repointQ       = `SET availability_id = \?, created_at = UTC_TIMESTAMP\(\)`
	completePastQ  = `UPDATE appointments ap JOIN availability a`
	listByUserQ    = `SELECT ap.id, ap.public_id`
)

type notifierStub struct {
	mu       sync.Mutex
	otps     []queue.OTPIssuedEvent
	confirms []queue.AppointmentConfirmedEvent
}

func (n *notifierStub) OTPIssued(_ context.Context, ev queue.OTPIssuedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, ev)
}

func (n *notifierStub) AppointmentConfirmed(_ context.Context, ev queue.AppointmentConfirmedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirms = append(n.confirms, ev)
}

func newTestService(t *testing.T) (*AppointmentService, sqlmock.Sqlmock, *otp.Store, *notifierStub) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	codes := otp.NewStore()
	stub := &notifierStub{}
	svc := NewAppointmentService(db,
		repository.NewAvailabilityRepo(db),
		repository.NewAppointmentRepo(db),
		codes, stub, 5*time.Minute, 24*time.Hour, zerolog.Nop())
	return svc, mock, codes, stub
}

func slotRow(id, doctorID uint64, start time.Time, booked bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "doctor_id", "start_time", "end_time", "is_booked"}).
		AddRow(id, doctorID, start, start.Add(30*time.Minute), booked)
}

func apptRow(id uint64, userID, doctorID, availabilityID uint64, status string, lockedUntil interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "public_id", "user_id", "doctor_id", "availability_id", "status", "locked_until", "created_at"}).
		AddRow(id, "c0ffee00-0000-0000-0000-000000000001", userID, doctorID, availabilityID, status, lockedUntil, time.Now().UTC())
}

func TestBookSuccess(t *testing.T) {
	svc, mock, codes, stub := newTestService(t)
	start := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, start, false))
	mock.ExpectQuery(pendingCheckQ).WithArgs(uint64(10)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(insertPendingQ).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	res, err := svc.Book(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.AppointmentID)
	assert.NotEmpty(t, res.PublicID)
	assert.Len(t, res.OTP, 6)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), res.LockedUntil, 5*time.Second)

	// The minted code is live and bound to the new appointment.
	ok, _ := codes.VerifyConsume(42, res.OTP)
	assert.True(t, ok)

	require.Len(t, stub.otps, 1)
	assert.Equal(t, res.OTP, stub.otps[0].Code)
	assert.Equal(t, uint64(7), stub.otps[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotNotFound(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two clients racing for one slot serialize on the FOR UPDATE row lock;
// the loser runs after the winner's commit and sees its effect.  sqlmock
// cannot block a query, so this test and the held-slot one below exercise
// the loser's view directly: the booked flag set by a committed Confirm.
func TestBookSlotAlreadyBooked(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	start := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, start, true))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), 7, 10)
	assert.ErrorIs(t, err, ErrSlotBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The other outcome of the race: the winner's transaction left a live
// pending hold rather than a booked flag, and the loser conflicts on it.
func TestBookSlotHeldByAnotherUser(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	start := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, start, false))
	mock.ExpectQuery(pendingCheckQ).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), 7, 10)
	assert.ErrorIs(t, err, ErrSlotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSuccess(t *testing.T) {
	svc, mock, codes, stub := newTestService(t)
	code, err := codes.Mint(42, 5*time.Minute)
	require.NoError(t, err)
	lockedUntil := time.Now().UTC().Add(3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "pending", lockedUntil))
	mock.ExpectExec(markBookedQ).WithArgs(uint64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setBookedQ).WithArgs(true, uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Confirm(context.Background(), 7, 42, code))

	// Consumed: the same code cannot be spent twice.
	ok, reason := codes.VerifyConsume(42, code)
	assert.False(t, ok)
	assert.Equal(t, otp.ReasonNotFound, reason)

	require.Len(t, stub.confirms, 1)
	assert.Equal(t, uint64(42), stub.confirms[0].AppointmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmNotOwner(t *testing.T) {
	svc, mock, codes, _ := newTestService(t)
	code, _ := codes.Mint(42, 5*time.Minute)
	lockedUntil := time.Now().UTC().Add(3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "pending", lockedUntil))
	mock.ExpectRollback()

	err := svc.Confirm(context.Background(), 999, 42, code)
	assert.ErrorIs(t, err, ErrNotOwner)

	// The failed attempt must not burn the code.
	ok, _ := codes.VerifyConsume(42, code)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmHoldExpired(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	lockedUntil := time.Now().UTC().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "pending", lockedUntil))
	mock.ExpectRollback()

	err := svc.Confirm(context.Background(), 7, 42, "123456")
	assert.ErrorIs(t, err, ErrHoldExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmBadCodeKeepsEntry(t *testing.T) {
	svc, mock, codes, _ := newTestService(t)
	code, _ := codes.Mint(42, 5*time.Minute)
	lockedUntil := time.Now().UTC().Add(3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "pending", lockedUntil))
	mock.ExpectRollback()

	err := svc.Confirm(context.Background(), 7, 42, "000000")
	assert.ErrorIs(t, err, ErrBadCode)

	// A typo must not invalidate the real code.
	ok, _ := codes.VerifyConsume(42, code)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAlreadyConfirmed(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "booked", nil))
	mock.ExpectRollback()

	err := svc.Confirm(context.Background(), 7, 42, "123456")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSuccess(t *testing.T) {
	svc, mock, codes, _ := newTestService(t)
	code, _ := codes.Mint(42, 5*time.Minute)
	start := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "booked", nil))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, start, true))
	mock.ExpectExec(markCancelledQ).WithArgs(uint64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setBookedQ).WithArgs(false, uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Cancel(context.Background(), 7, 42))

	// Any pending code for the appointment is evicted on cancel.
	ok, _ := codes.VerifyConsume(42, code)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTooLate(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	start := time.Now().UTC().Add(2 * time.Hour) // inside the 24h window

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "booked", nil))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, start, true))
	mock.ExpectRollback()

	err := svc.Cancel(context.Background(), 7, 42)
	assert.ErrorIs(t, err, ErrTooLate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyResolved(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "cancelled", nil))
	mock.ExpectRollback()

	err := svc.Cancel(context.Background(), 7, 42)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleSuccess(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	oldStart := time.Now().UTC().Add(48 * time.Hour)
	newStart := time.Now().UTC().Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "booked", nil))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, oldStart, true))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(11)).WillReturnRows(slotRow(11, 2, newStart, false))
	mock.ExpectQuery(pendingCheckQ).WithArgs(uint64(11)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(setBookedQ).WithArgs(false, uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setBookedQ).WithArgs(true, uint64(11)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(repointQ).WithArgs(uint64(11), uint64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Reschedule(context.Background(), 7, 42, 11))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleDoctorMismatch(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	oldStart := time.Now().UTC().Add(48 * time.Hour)
	newStart := time.Now().UTC().Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "booked", nil))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(10)).WillReturnRows(slotRow(10, 2, oldStart, true))
	mock.ExpectQuery(slotLockQ).WithArgs(uint64(11)).WillReturnRows(slotRow(11, 5, newStart, false))
	mock.ExpectRollback()

	err := svc.Reschedule(context.Background(), 7, 42, 11)
	assert.ErrorIs(t, err, ErrDoctorMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRequiresConfirmed(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	lockedUntil := time.Now().UTC().Add(3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(apptLockQ).WithArgs(uint64(42)).
		WillReturnRows(apptRow(42, 7, 2, 10, "pending", lockedUntil))
	mock.ExpectRollback()

	err := svc.Reschedule(context.Background(), 7, 42, 11)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserCompletesPastFirst(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(completePastQ).WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(listByUserQ).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "public_id", "status", "created_at",
			"d.id", "d.name", "d.mode", "s.name",
			"a.id", "a.start_time", "a.end_time",
		}).AddRow(42, "c0ffee00-0000-0000-0000-000000000001", "completed", now,
			2, "Dr. Ada", "online", "Cardiology",
			10, now.Add(-2*time.Hour), now.Add(-time.Hour)))
	mock.ExpectCommit()

	rows, err := svc.ListForUser(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "completed", rows[0].Status)
	assert.True(t, rows[0].IsConfirmed)
	assert.Equal(t, "Dr. Ada", rows[0].DoctorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserStatusFilter(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(completePastQ).WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(listByUserQ).WithArgs(uint64(7), "booked").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "public_id", "status", "created_at",
			"d.id", "d.name", "d.mode", "s.name",
			"a.id", "a.start_time", "a.end_time",
		}))
	mock.ExpectCommit()

	rows, err := svc.ListForUser(context.Background(), 7, model.StatusBooked)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
