package lookup

import "time"

type AcademicYear struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
}

type Course struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

type Class struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Religion struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// BoardUniversity is an examination board (school leaving) or a university.
type BoardUniversity struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Kind string `json:"kind" db:"kind"` // BOARD | UNIVERSITY
}

type Institution struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Subject struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

// CourseSubject maps a subject to the course and class it is taught in.
type CourseSubject struct {
	CourseID  int `db:"course_id"`
	ClassID   int `db:"class_id"`
	SubjectID int `db:"subject_id"`
}

// Student is an enrolled student, referenced by the fee and exam dashboards.
type Student struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	CourseID *int   `json:"course_id" db:"course_id"`
	ClassID  *int   `json:"class_id" db:"class_id"`
}

// SubjectFilter narrows Subjects to a course and/or a class. Nil fields do not filter.
type SubjectFilter struct {
	CourseID *int
	ClassID  *int
}
