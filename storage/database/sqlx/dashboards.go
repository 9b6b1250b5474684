package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
)

type feesRepository struct {
	db *sqlx.DB
}

func NewFeesRepository(db *sqlx.DB) fees.Repository {
	return &feesRepository{db: db}
}

func (repo *feesRepository) QueryStudentMappings(ctx context.Context, studentID int) ([]fees.Mapping, error) {
	mappings := make([]fees.Mapping, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &mappings,
		`SELECT m.id, m.student_id, m.fee_structure_id, m.instalment_id, i.number AS instalment_number,
			i.start_date, i.due_date, m.fee_type, m.total_payable, m.amount_paid, m.payment_status, m.payment_date
		FROM student_fees_mappings m
		LEFT JOIN instalments i ON i.id = m.instalment_id
		WHERE m.student_id = $1
		ORDER BY m.fee_type, i.due_date NULLS LAST, m.id`, studentID)
	return mappings, err
}

type examRepository struct {
	db *sqlx.DB
}

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) QueryExamsByClass(ctx context.Context, classID int) ([]exam.Exam, error) {
	exams := make([]exam.Exam, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &exams,
		`SELECT id, name, class_id, subject_id, exam_date, full_marks, pass_marks
		FROM exams WHERE class_id = $1 ORDER BY exam_date, id`, classID)
	return exams, err
}

func (repo *examRepository) QueryResultsByStudent(ctx context.Context, studentID int) ([]exam.Result, error) {
	results := make([]exam.Result, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &results,
		`SELECT exam_id, student_id, marks_obtained, absent FROM exam_results WHERE student_id = $1`, studentID)
	return results, err
}

func (repo *examRepository) QueryAttendance(ctx context.Context, studentID int, from, to *time.Time) ([]exam.AttendanceRecord, error) {
	records := make([]exam.AttendanceRecord, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &records,
		`SELECT student_id, date, present
		FROM attendance_records
		WHERE student_id = $1
			AND ($2::date IS NULL OR date >= $2::date)
			AND ($3::date IS NULL OR date <= $3::date)
		ORDER BY date`, studentID, from, to)
	return records, err
}
