package model

import "time"

// User represents a patient account as stored in the `users` table.
// Password hashing and token minting are handled by the utils package;
// this struct only mirrors the persisted columns.
//
// Fields:
//  ID           – primary key identifier.
//  PublicID     – opaque UUID exposed to clients instead of the row ID.
//  Name         – display name.
//  Email        – unique email address used for login.
//  Phone        – contact phone number.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	PublicID     string    // users.public_id
	Name         string    // users.name
	Email        string    // users.email
	Phone        string    // users.phone
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}
