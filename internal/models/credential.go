package models

import "time"

// Credential is a stored (name, pin) pair giving a student read access to
// their own records. Issued once per distinct student name; the pin never
// changes for the record's lifetime.
type Credential struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Pin       string    `db:"pin" json:"pin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
