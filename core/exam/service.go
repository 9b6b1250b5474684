package exam

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/lookup"
)

var ErrRangeOrder = errors.New("from cannot be after to")

type Repository interface {
	// QueryExamsByClass returns the exams of a class ordered by date.
	QueryExamsByClass(ctx context.Context, classID int) ([]Exam, error)
	QueryResultsByStudent(ctx context.Context, studentID int) ([]Result, error)
	// QueryAttendance returns the records of a student between from and to inclusive. Nil bounds are open.
	QueryAttendance(ctx context.Context, studentID int, from, to *time.Time) ([]AttendanceRecord, error)
}

type Students interface {
	Student(ctx context.Context, id int) (lookup.Student, error)
}

// StudentExam is an exam of the student's class with its state and the student's outcome.
type StudentExam struct {
	Exam
	State         State    `json:"state"`
	Outcome       Outcome  `json:"outcome"`
	MarksObtained *int     `json:"marks_obtained"`
	Percentage    *float64 `json:"percentage"`
}

type StudentAttendance struct {
	StudentID int                `json:"student_id"`
	Summary   Attendance         `json:"summary"`
	Records   []AttendanceRecord `json:"records"`
}

type Service struct {
	repo     Repository
	students Students
}

func NewService(repo Repository, students Students) *Service {
	return &Service{repo: repo, students: students}
}

func (svc *Service) StudentExams(ctx context.Context, studentID int) ([]StudentExam, error) {
	student, err := svc.students.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ClassID == nil {
		return []StudentExam{}, nil
	}

	exams, err := svc.repo.QueryExamsByClass(ctx, *student.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	results, err := svc.repo.QueryResultsByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	byExam := make(map[int]*Result, len(results))
	for i := range results {
		byExam[results[i].ExamID] = &results[i]
	}

	now := time.Now()
	out := make([]StudentExam, 0, len(exams))
	for _, ex := range exams {
		res := byExam[ex.ID]
		se := StudentExam{Exam: ex, State: ExamState(ex.Date, now), Outcome: OutcomeOf(res, ex)}
		if res != nil && !res.Absent {
			marks := res.MarksObtained
			se.MarksObtained = &marks
			if ex.FullMarks > 0 {
				pct := math.Round(float64(marks)*1000/float64(ex.FullMarks)) / 10
				se.Percentage = &pct
			}
		}
		out = append(out, se)
	}
	return out, nil
}

func (svc *Service) StudentAttendance(ctx context.Context, studentID int, from, to *time.Time) (StudentAttendance, error) {
	if from != nil && to != nil && core.DateOf(*from).After(core.DateOf(*to)) {
		return StudentAttendance{}, core.NewValidationError(ErrRangeOrder, core.FieldError{Field: "from", Error: ErrRangeOrder.Error()})
	}
	if _, err := svc.students.Student(ctx, studentID); err != nil {
		return StudentAttendance{}, err
	}

	records, err := svc.repo.QueryAttendance(ctx, studentID, from, to)
	if err != nil {
		return StudentAttendance{}, errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []AttendanceRecord{}
	}
	return StudentAttendance{StudentID: studentID, Summary: AttendanceSummary(records), Records: records}, nil
}
