// Package exam derives the exam and attendance dashboards of a student.
package exam

import (
	"math"
	"time"

	"github.com/trezcool/admissions/core"
)

type State string

const (
	StateUpcoming  State = "upcoming"
	StateToday     State = "today"
	StateCompleted State = "completed"
)

type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeAbsent  Outcome = "absent"
	OutcomePending Outcome = "pending"
)

type Bucket string

const (
	BucketGood     Bucket = "good"
	BucketWarning  Bucket = "warning"
	BucketCritical Bucket = "critical"
	BucketNone     Bucket = "none"
)

type Exam struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ClassID   int       `json:"class_id" db:"class_id"`
	SubjectID int       `json:"subject_id" db:"subject_id"`
	Date      time.Time `json:"date" db:"exam_date"`
	FullMarks int       `json:"full_marks" db:"full_marks"`
	PassMarks int       `json:"pass_marks" db:"pass_marks"`
}

type Result struct {
	ExamID        int  `json:"exam_id" db:"exam_id"`
	StudentID     int  `json:"student_id" db:"student_id"`
	MarksObtained int  `json:"marks_obtained" db:"marks_obtained"`
	Absent        bool `json:"absent" db:"absent"`
}

type AttendanceRecord struct {
	StudentID int       `json:"student_id" db:"student_id"`
	Date      time.Time `json:"date" db:"date"`
	Present   bool      `json:"present" db:"present"`
}

// ExamState compares the exam date with the calendar date of now.
func ExamState(date, now time.Time) State {
	d, today := core.DateOf(date), core.DateOf(now)
	switch {
	case d.After(today):
		return StateUpcoming
	case d.Equal(today):
		return StateToday
	}
	return StateCompleted
}

// OutcomeOf returns the outcome of exam given the student's result, nil when not graded yet.
func OutcomeOf(res *Result, exam Exam) Outcome {
	switch {
	case res == nil:
		return OutcomePending
	case res.Absent:
		return OutcomeAbsent
	case res.MarksObtained >= exam.PassMarks:
		return OutcomePass
	}
	return OutcomeFail
}

type Attendance struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Percentage float64 `json:"percentage"`
	Bucket     Bucket  `json:"bucket"`
}

// AttendanceSummary counts records and buckets the presence percentage, rounded to one decimal.
func AttendanceSummary(records []AttendanceRecord) Attendance {
	att := Attendance{Total: len(records), Bucket: BucketNone}
	if att.Total == 0 {
		return att
	}
	for _, r := range records {
		if r.Present {
			att.Present++
		}
	}
	pct := float64(att.Present) * 100 / float64(att.Total)
	att.Percentage = math.Round(pct*10) / 10

	switch {
	case pct >= 75:
		att.Bucket = BucketGood
	case pct >= 60:
		att.Bucket = BucketWarning
	default:
		att.Bucket = BucketCritical
	}
	return att
}
