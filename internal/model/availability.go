package model

import "time"

// Availability represents one bookable time slot for a doctor.  The
// is_booked flag is flipped exclusively by the appointment service while
// it holds the row lock: true on confirm, false on cancel, and moved
// between slots on reschedule.  A pending hold does NOT set the flag;
// holds are visible only through live pending appointment rows.
//
// Fields:
//  ID        – primary key identifier.
//  DoctorID  – owning doctor.
//  StartTime – slot start (UTC).
//  EndTime   – slot end (UTC).
//  IsBooked  – whether a confirmed appointment currently occupies the slot.
type Availability struct {
	ID        uint64    // availability.id
	DoctorID  uint64    // availability.doctor_id
	StartTime time.Time // availability.start_time
	EndTime   time.Time // availability.end_time
	IsBooked  bool      // availability.is_booked
}
