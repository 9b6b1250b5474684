package memdb

import (
	"context"

	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
	"github.com/trezcool/admissions/core/lookup"
)

// Seed helpers insert reference rows the API never writes. Ids left at zero are assigned.

// seed stores *row under *id, which points at the row's own id field or at a synthetic key.
func seed[T any](db *DB, tbl func(t *tables) *table[T], row *T, id *int) T {
	db.write(context.Background(), func(t *tables) {
		tb := tbl(t)
		if *id == 0 {
			*id = tb.nextID()
		} else if *id > tb.seq {
			tb.seq = *id
		}
		tb.rows[*id] = *row
	})
	return *row
}

func (db *DB) SeedAcademicYear(y lookup.AcademicYear) lookup.AcademicYear {
	return seed(db, func(t *tables) *table[lookup.AcademicYear] { return t.academicYears }, &y, &y.ID)
}

func (db *DB) SeedCourse(c lookup.Course) lookup.Course {
	return seed(db, func(t *tables) *table[lookup.Course] { return t.courses }, &c, &c.ID)
}

func (db *DB) SeedClass(c lookup.Class) lookup.Class {
	return seed(db, func(t *tables) *table[lookup.Class] { return t.classes }, &c, &c.ID)
}

func (db *DB) SeedCategory(c lookup.Category) lookup.Category {
	return seed(db, func(t *tables) *table[lookup.Category] { return t.categories }, &c, &c.ID)
}

func (db *DB) SeedReligion(r lookup.Religion) lookup.Religion {
	return seed(db, func(t *tables) *table[lookup.Religion] { return t.religions }, &r, &r.ID)
}

func (db *DB) SeedBoardUniversity(b lookup.BoardUniversity) lookup.BoardUniversity {
	return seed(db, func(t *tables) *table[lookup.BoardUniversity] { return t.boards }, &b, &b.ID)
}

func (db *DB) SeedInstitution(i lookup.Institution) lookup.Institution {
	return seed(db, func(t *tables) *table[lookup.Institution] { return t.institutions }, &i, &i.ID)
}

func (db *DB) SeedSubject(s lookup.Subject, links ...lookup.CourseSubject) lookup.Subject {
	s = seed(db, func(t *tables) *table[lookup.Subject] { return t.subjects }, &s, &s.ID)
	for _, cs := range links {
		cs.SubjectID = s.ID
		var id int
		seed(db, func(t *tables) *table[lookup.CourseSubject] { return t.courseSubjects }, &cs, &id)
	}
	return s
}

func (db *DB) SeedStudent(s lookup.Student) lookup.Student {
	return seed(db, func(t *tables) *table[lookup.Student] { return t.students }, &s, &s.ID)
}

func (db *DB) SeedFeeMapping(m fees.Mapping) fees.Mapping {
	return seed(db, func(t *tables) *table[fees.Mapping] { return t.feeMappings }, &m, &m.ID)
}

func (db *DB) SeedExam(e exam.Exam) exam.Exam {
	return seed(db, func(t *tables) *table[exam.Exam] { return t.exams }, &e, &e.ID)
}

func (db *DB) SeedExamResult(r exam.Result) exam.Result {
	var id int
	return seed(db, func(t *tables) *table[exam.Result] { return t.examResults }, &r, &id)
}

func (db *DB) SeedAttendance(r exam.AttendanceRecord) exam.AttendanceRecord {
	var id int
	return seed(db, func(t *tables) *table[exam.AttendanceRecord] { return t.attendance }, &r, &id)
}
