package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/doctor-appointment-booking/internal/otp"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

func TestSweepCancelsExpiredHoldsAndEvictsCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	codes := otp.NewStore()
	code, err := codes.Mint(5, time.Hour)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM appointments WHERE status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(`SET status = 'cancelled', locked_until = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := New(repository.NewAppointmentRepo(db), codes, time.Hour, zerolog.Nop())
	s.sweep(context.Background())

	// Code for the swept hold must be gone.
	ok, reason := codes.VerifyConsume(5, code)
	assert.False(t, ok)
	assert.Equal(t, otp.ReasonNotFound, reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepNoExpiredHolds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM appointments WHERE status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	s := New(repository.NewAppointmentRepo(db), otp.NewStore(), time.Hour, zerolog.Nop())
	s.sweep(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(repository.NewAppointmentRepo(db), otp.NewStore(), time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(repository.NewAppointmentRepo(db), otp.NewStore(), 0, zerolog.Nop())
	assert.Equal(t, time.Minute, s.interval)
}
