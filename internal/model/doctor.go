package model

// Specialization maps a row in the `specializations` table.  Doctors
// reference it via SpecializationID.
type Specialization struct {
	ID   uint64 // specializations.id
	Name string // specializations.name
}

// Doctor represents a provider whose availability slots can be booked.
//
// Fields:
//  ID               – primary key identifier.
//  PublicID         – opaque UUID exposed to clients.
//  Name             – doctor's display name.
//  Mode             – consultation mode (online, in_person, both).
//  SpecializationID – foreign key into specializations.
type Doctor struct {
	ID               uint64 // doctors.id
	PublicID         string // doctors.public_id
	Name             string // doctors.name
	Mode             string // doctors.mode
	SpecializationID uint64 // doctors.specialization_id
}
