package models

import "time"

// StudentProfile is the domain-store record paired one-to-one with a
// STUDENT identity.
type StudentProfile struct {
	UserID     string    `db:"user_id" json:"user_id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	Program    string    `db:"program" json:"program"`
	Year       int       `db:"year" json:"year"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// InstructorProfile is the domain-store record paired one-to-one with
// an INSTRUCTOR identity.
type InstructorProfile struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Account bundles the identity with whichever profile was created for
// it. Returned by provisioning on success.
type Account struct {
	Identity   Identity           `json:"identity"`
	Student    *StudentProfile    `json:"student,omitempty"`
	Instructor *InstructorProfile `json:"instructor,omitempty"`
}
