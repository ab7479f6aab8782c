package repository

import (
	"context"
	"database/sql"
)

// SpecializationRepo provides read access to the specializations table.
type SpecializationRepo struct {
	db *sql.DB
}

// NewSpecializationRepo returns a new SpecializationRepo bound to the provided database.
func NewSpecializationRepo(db *sql.DB) *SpecializationRepo {
	return &SpecializationRepo{db: db}
}

// SpecializationDetail is the listing row returned to clients.
type SpecializationDetail struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ListAll returns all specializations ordered by name.
func (r *SpecializationRepo) ListAll(ctx context.Context) ([]SpecializationDetail, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM specializations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	specs := make([]SpecializationDetail, 0)
	for rows.Next() {
		var s SpecializationDetail
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}
