// Package queue defines message payloads exchanged over the message broker
// and the background consumer that stands in for the notification channel.
package queue

// Queue names used by the publisher and consumer.  One durable queue per
// event type.
const (
	OTPIssuedQueue            = "appointment.otp.issued"
	AppointmentConfirmedQueue = "appointment.confirmed"
)

// OTPIssuedEvent is published when Book places a hold and mints a
// verification code.  A delivery consumer (SMS/email) would pick this up;
// the bundled consumer only writes it to the notification log.
type OTPIssuedEvent struct {
	AppointmentID uint64 `json:"appointment_id"`
	PublicID      string `json:"public_id"`
	UserID        uint64 `json:"user_id"`
	Code          string `json:"code"`
	ExpiresAt     string `json:"expires_at"`
}

// AppointmentConfirmedEvent is published when a hold is successfully
// confirmed.  It carries enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type AppointmentConfirmedEvent struct {
	AppointmentID  uint64 `json:"appointment_id"`
	PublicID       string `json:"public_id"`
	UserID         uint64 `json:"user_id"`
	DoctorID       uint64 `json:"doctor_id"`
	AvailabilityID uint64 `json:"availability_id"`
	ConfirmedAt    string `json:"confirmed_at"`
}
