package models

import "time"

// Section is a scheduled offering of a course with a fixed seat
// capacity and a drop deadline.
type Section struct {
	ID           string    `db:"id" json:"id"`
	CourseCode   string    `db:"course_code" json:"course_code"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	DayTime      string    `db:"day_time" json:"day_time"`
	Room         string    `db:"room" json:"room"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Semester     string    `db:"semester" json:"semester"`
	Year         int       `db:"year" json:"year"`
	DropDeadline time.Time `db:"drop_deadline" json:"drop_deadline"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SectionDetail enriches Section with the course title and a live
// count of enrolled seats.
type SectionDetail struct {
	Section
	CourseTitle   string `db:"course_title" json:"course_title"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	CourseCode string
	Semester   string
	Year       int
	Page       int
	PageSize   int
}
