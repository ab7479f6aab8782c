package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/doctor-appointment-booking/internal/model"
)

// AppointmentRepo provides data access to the appointments table, the
// reservation ledger of the booking flow.  Mutating methods are suffixed
// Tx and expect to run inside the same transaction as the availability
// operations they pair with; the appointment service owns the
// transaction boundaries.  All timestamps are UTC.
type AppointmentRepo struct {
	db *sql.DB
}

// NewAppointmentRepo returns a new AppointmentRepo bound to the provided database.
func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{db: db} }

// HasActivePendingTx reports whether a live hold exists on the slot: a
// pending appointment whose locked_until is still in the future.  Lapsed
// holds are treated as absent here, so booking correctness never waits
// on the sweeper.
func (r *AppointmentRepo) HasActivePendingTx(ctx context.Context, tx *sql.Tx, availabilityID uint64) (bool, error) {
	const q = `SELECT 1
               FROM appointments
               WHERE availability_id = ?
                 AND status = 'pending'
                 AND locked_until > UTC_TIMESTAMP()
               LIMIT 1`
	var one int
	err := tx.QueryRowContext(ctx, q, availabilityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertPendingTx creates a new pending appointment holding the slot for
// holdFor.  The public ID is generated here rather than by the database
// so the caller gets it back without a second query.
func (r *AppointmentRepo) InsertPendingTx(ctx context.Context, tx *sql.Tx, userID, doctorID, availabilityID uint64, holdFor time.Duration) (*model.Appointment, error) {
	lockedUntil := time.Now().UTC().Add(holdFor)
	publicID := uuid.NewString()

	const q = `INSERT INTO appointments
                 (public_id, user_id, doctor_id, availability_id, status, locked_until, created_at)
               VALUES (?, ?, ?, ?, 'pending', ?, UTC_TIMESTAMP())`
	res, err := tx.ExecContext(ctx, q, publicID, userID, doctorID, availabilityID,
		lockedUntil.Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Appointment{
		ID:             uint64(id),
		PublicID:       publicID,
		UserID:         userID,
		DoctorID:       doctorID,
		AvailabilityID: availabilityID,
		Status:         model.StatusPending,
		LockedUntil:    &lockedUntil,
	}, nil
}

// GetForUpdateTx loads an appointment under an exclusive row lock so that
// confirm, cancel and reschedule serialize against each other.  Returns
// ErrAppointmentNotFound when no such row exists.
func (r *AppointmentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Appointment, error) {
	const q = `SELECT id, public_id, user_id, doctor_id, availability_id, status, locked_until, created_at
               FROM appointments
               WHERE id = ?
               FOR UPDATE`
	var a model.Appointment
	var lockedUntil sql.NullTime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.PublicID, &a.UserID, &a.DoctorID, &a.AvailabilityID,
		&a.Status, &lockedUntil, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		a.LockedUntil = &t
	}
	return &a, nil
}

// MarkBookedTx transitions a pending appointment to booked and clears its
// hold expiry.
func (r *AppointmentRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE appointments
                  SET status = 'booked', locked_until = NULL
                WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// MarkCancelledTx transitions an appointment to cancelled.
func (r *AppointmentRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE appointments
                  SET status = 'cancelled', locked_until = NULL
                WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// RepointTx moves a booked appointment to a new slot and refreshes its
// creation timestamp.  The row is mutated in place; no second ledger row
// is created for a reschedule.
func (r *AppointmentRepo) RepointTx(ctx context.Context, tx *sql.Tx, id, newAvailabilityID uint64) error {
	const q = `UPDATE appointments
                  SET availability_id = ?, created_at = UTC_TIMESTAMP()
                WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, newAvailabilityID, id)
	return err
}

// CompletePastTx bulk-transitions the user's booked appointments whose
// slot end time has passed to completed.  Run lazily before each listing
// so the user always sees up-to-date statuses.
func (r *AppointmentRepo) CompletePastTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	const q = `UPDATE appointments ap
               JOIN availability a ON ap.availability_id = a.id
                  SET ap.status = 'completed'
                WHERE ap.user_id = ?
                  AND ap.status = 'booked'
                  AND a.end_time < UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CancelExpiredPending flips every pending appointment whose hold lapsed
// to cancelled and returns the affected IDs so the caller can evict the
// matching verification codes.  Used by the sweeper; runs in its own
// short transaction.
func (r *AppointmentRepo) CancelExpiredPending(ctx context.Context) ([]uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM appointments
          WHERE status = 'pending'
            AND locked_until IS NOT NULL
            AND locked_until < UTC_TIMESTAMP()
          FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE appointments
            SET status = 'cancelled', locked_until = NULL
          WHERE status = 'pending'
            AND locked_until IS NOT NULL
            AND locked_until < UTC_TIMESTAMP()`)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return ids, nil
}

// AppointmentDetail is a ledger row joined with doctor, specialization
// and slot display data for the user-facing listing.  IsConfirmed is
// derived from the status enum for compatibility with clients that still
// expect the old boolean.
type AppointmentDetail struct {
	ID             uint64 `json:"id"`
	PublicID       string `json:"public_id"`
	Status         string `json:"status"`
	IsConfirmed    bool   `json:"is_confirmed"`
	CreatedAt      string `json:"created_at"`
	DoctorID       uint64 `json:"doctor_id"`
	DoctorName     string `json:"doctor_name"`
	DoctorMode     string `json:"doctor_mode"`
	Specialization string `json:"specialization"`
	AvailabilityID uint64 `json:"availability_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// ListByUserTx returns the user's appointments joined with doctor,
// specialization and slot data, ordered by slot start time ascending.
// Pass an empty status to list every state.  Runs inside the caller's
// transaction so it sees the effect of CompletePastTx.
func (r *AppointmentRepo) ListByUserTx(ctx context.Context, tx *sql.Tx, userID uint64, status model.Status) ([]AppointmentDetail, error) {
	q := `SELECT ap.id, ap.public_id, ap.status, ap.created_at,
                 d.id, d.name, d.mode, s.name,
                 a.id, a.start_time, a.end_time
          FROM appointments ap
          JOIN doctors d ON ap.doctor_id = d.id
          JOIN specializations s ON d.specialization_id = s.id
          JOIN availability a ON ap.availability_id = a.id
          WHERE ap.user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		q += ` AND ap.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY a.start_time ASC`

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]AppointmentDetail, 0)
	for rows.Next() {
		var d AppointmentDetail
		var createdAt, start, end time.Time
		if err := rows.Scan(&d.ID, &d.PublicID, &d.Status, &createdAt,
			&d.DoctorID, &d.DoctorName, &d.DoctorMode, &d.Specialization,
			&d.AvailabilityID, &start, &end); err != nil {
			return nil, err
		}
		d.IsConfirmed = model.Status(d.Status).Confirmed()
		d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		d.StartTime = start.UTC().Format(time.RFC3339)
		d.EndTime = end.UTC().Format(time.RFC3339)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
