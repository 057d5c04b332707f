package models

import "time"

// ComponentType identifies one of the graded components of an
// enrollment.
type ComponentType string

const (
	ComponentMidterm   ComponentType = "MIDTERM"
	ComponentFinalExam ComponentType = "FINAL_EXAM"
	ComponentProject   ComponentType = "PROJECT"
)

// RequiredComponents lists every component a final score depends on.
var RequiredComponents = []ComponentType{ComponentMidterm, ComponentFinalExam, ComponentProject}

// Valid reports whether the component type is a known value.
func (t ComponentType) Valid() bool {
	switch t {
	case ComponentMidterm, ComponentFinalExam, ComponentProject:
		return true
	}
	return false
}

// GradeComponent stores one recorded score. Unique per
// (enrollment_id, component_type); upserts are last-write-wins.
type GradeComponent struct {
	EnrollmentID  string        `db:"enrollment_id" json:"enrollment_id"`
	ComponentType ComponentType `db:"component_type" json:"component_type"`
	Score         float64       `db:"score" json:"score"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FinalScore is the weighted aggregate over all required components.
// It only exists once every required component has been recorded.
type FinalScore struct {
	EnrollmentID string    `json:"enrollment_id"`
	Score        float64   `json:"score"`
	ComputedAt   time.Time `json:"computed_at"`
}
