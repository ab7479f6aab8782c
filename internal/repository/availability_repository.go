package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medibook/doctor-appointment-booking/internal/model"
)

// AvailabilityRepo provides data access to the availability table, the
// slot store of the booking flow.  Mutations run inside a caller-supplied
// transaction so that the slot row lock taken by GetForUpdateTx covers
// every decision made on the slot.  All timestamps are UTC.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the provided database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// GetForUpdateTx loads a slot under an exclusive row lock.  Two
// concurrent booking attempts against the same slot serialize here: the
// second blocks until the first commits or rolls back, and then observes
// either the fresh pending hold or the booked flag.  Returns
// ErrAvailabilityNotFound when no such slot exists.
func (r *AvailabilityRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Availability, error) {
	const q = `SELECT id, doctor_id, start_time, end_time, is_booked
               FROM availability
               WHERE id = ?
               FOR UPDATE`
	var a model.Availability
	err := tx.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.DoctorID, &a.StartTime, &a.EndTime, &a.IsBooked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAvailabilityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetBookedTx flips the is_booked flag.  No business validation happens
// here; the appointment service is the only caller and enforces the slot
// invariants under the row lock.
func (r *AvailabilityRepo) SetBookedTx(ctx context.Context, tx *sql.Tx, id uint64, booked bool) error {
	const q = `UPDATE availability SET is_booked = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, booked, id)
	return err
}

// AvailabilityDetail is a slot joined with its doctor and specialization
// for the discovery listing.  Status is computed at read time: a slot in
// the past is expired regardless of its booked flag.
type AvailabilityDetail struct {
	ID             uint64 `json:"id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	IsBooked       bool   `json:"is_booked"`
	DoctorID       uint64 `json:"doctor_id"`
	DoctorName     string `json:"doctor_name"`
	DoctorMode     string `json:"doctor_mode"`
	Specialization string `json:"specialization"`
	Status         string `json:"status"`
}

// ListAll returns every slot with doctor and specialization display data,
// ordered by start time ascending.
func (r *AvailabilityRepo) ListAll(ctx context.Context) ([]AvailabilityDetail, error) {
	const q = `SELECT a.id, a.start_time, a.end_time, a.is_booked,
                      d.id, d.name, d.mode, s.name,
                      CASE
                        WHEN a.start_time < UTC_TIMESTAMP() THEN 'expired'
                        WHEN a.is_booked = TRUE THEN 'booked'
                        ELSE 'available'
                      END
               FROM availability a
               JOIN doctors d ON a.doctor_id = d.id
               JOIN specializations s ON d.specialization_id = s.id
               ORDER BY a.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]AvailabilityDetail, 0)
	for rows.Next() {
		var d AvailabilityDetail
		var start, end time.Time
		if err := rows.Scan(&d.ID, &start, &end, &d.IsBooked,
			&d.DoctorID, &d.DoctorName, &d.DoctorMode, &d.Specialization, &d.Status); err != nil {
			return nil, err
		}
		d.StartTime = start.UTC().Format(time.RFC3339)
		d.EndTime = end.UTC().Format(time.RFC3339)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// Slot is the flat availability row returned by the per-doctor listing.
type Slot struct {
	ID        uint64 `json:"id"`
	DoctorID  uint64 `json:"doctor_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

// ListByDoctor returns the slots of one doctor ordered by start time.
// An empty slice means the doctor has no published availability.
func (r *AvailabilityRepo) ListByDoctor(ctx context.Context, doctorID uint64) ([]Slot, error) {
	const q = `SELECT id, doctor_id, start_time, end_time, is_booked
               FROM availability
               WHERE doctor_id = ?
               ORDER BY start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		var s Slot
		var start, end time.Time
		if err := rows.Scan(&s.ID, &s.DoctorID, &start, &end, &s.IsBooked); err != nil {
			return nil, err
		}
		s.StartTime = start.UTC().Format(time.RFC3339)
		s.EndTime = end.UTC().Format(time.RFC3339)
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
