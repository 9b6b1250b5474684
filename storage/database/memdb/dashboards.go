package memdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
)

type feesRepository struct {
	db *DB
}

func NewFeesRepository(db *DB) fees.Repository {
	return &feesRepository{db: db}
}

func (repo *feesRepository) QueryStudentMappings(ctx context.Context, studentID int) (mappings []fees.Mapping, err error) {
	repo.db.read(ctx, func(t *tables) {
		mappings = t.feeMappings.filter(func(m fees.Mapping) bool { return m.StudentID == studentID })
	})
	sort.SliceStable(mappings, func(i, j int) bool {
		mi, mj := mappings[i], mappings[j]
		if mi.FeeType != mj.FeeType {
			return mi.FeeType < mj.FeeType
		}
		switch {
		case mi.DueDate == nil:
			return false
		case mj.DueDate == nil:
			return true
		}
		return mi.DueDate.Before(*mj.DueDate)
	})
	return mappings, nil
}

type examRepository struct {
	db *DB
}

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) QueryExamsByClass(ctx context.Context, classID int) (exams []exam.Exam, err error) {
	repo.db.read(ctx, func(t *tables) {
		exams = t.exams.filter(func(e exam.Exam) bool { return e.ClassID == classID })
	})
	sort.SliceStable(exams, func(i, j int) bool { return exams[i].Date.Before(exams[j].Date) })
	return exams, nil
}

func (repo *examRepository) QueryResultsByStudent(ctx context.Context, studentID int) (results []exam.Result, err error) {
	repo.db.read(ctx, func(t *tables) {
		results = t.examResults.filter(func(r exam.Result) bool { return r.StudentID == studentID })
	})
	return results, nil
}

func (repo *examRepository) QueryAttendance(ctx context.Context, studentID int, from, to *time.Time) (records []exam.AttendanceRecord, err error) {
	repo.db.read(ctx, func(t *tables) {
		records = t.attendance.filter(func(r exam.AttendanceRecord) bool {
			d := core.DateOf(r.Date)
			if from != nil && d.Before(core.DateOf(*from)) {
				return false
			}
			if to != nil && d.After(core.DateOf(*to)) {
				return false
			}
			return r.StudentID == studentID
		})
	})
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}
