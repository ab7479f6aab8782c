package repository

import (
	"context"
	"database/sql"
)

// DoctorRepo provides read access to the doctors table for the discovery
// endpoints.  Doctor rows are seeded out of band; this service never
// writes them.
type DoctorRepo struct {
	db *sql.DB
}

// NewDoctorRepo returns a new DoctorRepo bound to the provided database.
func NewDoctorRepo(db *sql.DB) *DoctorRepo { return &DoctorRepo{db: db} }

// DoctorDetail is a doctor joined with its specialization name.  The
// internal row ID is not exposed; clients reference doctors by public_id.
type DoctorDetail struct {
	PublicID       string `json:"public_id"`
	Name           string `json:"name"`
	Mode           string `json:"mode"`
	Specialization string `json:"specialization"`
}

// ListAll returns every doctor with its specialization, ordered by row id
// for stable output.
func (r *DoctorRepo) ListAll(ctx context.Context) ([]DoctorDetail, error) {
	const q = `SELECT d.public_id, d.name, d.mode, s.name
               FROM doctors d
               JOIN specializations s ON d.specialization_id = s.id
               ORDER BY d.id`
	return r.query(ctx, q)
}

// Discover filters doctors by specialization name and/or consultation
// mode.  Empty arguments match everything, so Discover("", "") is
// equivalent to ListAll.
func (r *DoctorRepo) Discover(ctx context.Context, specialization, mode string) ([]DoctorDetail, error) {
	q := `SELECT d.public_id, d.name, d.mode, s.name
          FROM doctors d
          JOIN specializations s ON d.specialization_id = s.id
          WHERE 1=1`
	args := []interface{}{}
	if specialization != "" {
		q += ` AND s.name = ?`
		args = append(args, specialization)
	}
	if mode != "" {
		q += ` AND d.mode = ?`
		args = append(args, mode)
	}
	q += ` ORDER BY d.id`
	return r.query(ctx, q, args...)
}

func (r *DoctorRepo) query(ctx context.Context, q string, args ...interface{}) ([]DoctorDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctors := make([]DoctorDetail, 0)
	for rows.Next() {
		var d DoctorDetail
		if err := rows.Scan(&d.PublicID, &d.Name, &d.Mode, &d.Specialization); err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doctors, nil
}
