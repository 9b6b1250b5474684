// Package memdb is an in-memory storage backend, used by tests and by the "memory" database engine.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
	"github.com/trezcool/admissions/core/lookup"
)

type table[T any] struct {
	rows map[int]T
	seq  int
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]T)}
}

func (t *table[T]) nextID() int {
	t.seq++
	return t.seq
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{rows: make(map[int]T, len(t.rows)), seq: t.seq}
	for id, row := range t.rows {
		c.rows[id] = row
	}
	return c
}

// filter returns the rows kept by keep, ordered by id. A nil keep keeps everything.
func (t *table[T]) filter(keep func(T) bool) []T {
	ids := make([]int, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		res = append(res, t.rows[id])
	}
	return res
}

func (t *table[T]) first(match func(T) bool) (T, bool) {
	rows := t.filter(match)
	if len(rows) == 0 {
		var zero T
		return zero, false
	}
	return rows[0], true
}

func (t *table[T]) deleteWhere(match func(T) bool) int {
	var n int
	for id, row := range t.rows {
		if match(row) {
			delete(t.rows, id)
			n++
		}
	}
	return n
}

type tables struct {
	academicYears  *table[lookup.AcademicYear]
	courses        *table[lookup.Course]
	classes        *table[lookup.Class]
	categories     *table[lookup.Category]
	religions      *table[lookup.Religion]
	boards         *table[lookup.BoardUniversity]
	institutions   *table[lookup.Institution]
	subjects       *table[lookup.Subject]
	courseSubjects *table[lookup.CourseSubject]
	students       *table[lookup.Student]

	admissions       *table[admission.Admission]
	admissionCourses *table[admission.AdmissionCourse]

	forms            *table[application.ApplicationForm]
	generalInfos     *table[application.GeneralInfo]
	academicInfos    *table[application.AcademicInfo]
	academicSubjects *table[application.AcademicSubject]
	additionalInfos  *table[application.AdditionalInfo]
	sports           *table[application.SportsInfo]
	courseApps       *table[application.CourseApplication]
	payments         *table[application.Payment]

	feeMappings *table[fees.Mapping]
	exams       *table[exam.Exam]
	examResults *table[exam.Result]
	attendance  *table[exam.AttendanceRecord]
}

func newTables() tables {
	return tables{
		academicYears:    newTable[lookup.AcademicYear](),
		courses:          newTable[lookup.Course](),
		classes:          newTable[lookup.Class](),
		categories:       newTable[lookup.Category](),
		religions:        newTable[lookup.Religion](),
		boards:           newTable[lookup.BoardUniversity](),
		institutions:     newTable[lookup.Institution](),
		subjects:         newTable[lookup.Subject](),
		courseSubjects:   newTable[lookup.CourseSubject](),
		students:         newTable[lookup.Student](),
		admissions:       newTable[admission.Admission](),
		admissionCourses: newTable[admission.AdmissionCourse](),
		forms:            newTable[application.ApplicationForm](),
		generalInfos:     newTable[application.GeneralInfo](),
		academicInfos:    newTable[application.AcademicInfo](),
		academicSubjects: newTable[application.AcademicSubject](),
		additionalInfos:  newTable[application.AdditionalInfo](),
		sports:           newTable[application.SportsInfo](),
		courseApps:       newTable[application.CourseApplication](),
		payments:         newTable[application.Payment](),
		feeMappings:      newTable[fees.Mapping](),
		exams:            newTable[exam.Exam](),
		examResults:      newTable[exam.Result](),
		attendance:       newTable[exam.AttendanceRecord](),
	}
}

func (ts tables) clone() tables {
	return tables{
		academicYears:    ts.academicYears.clone(),
		courses:          ts.courses.clone(),
		classes:          ts.classes.clone(),
		categories:       ts.categories.clone(),
		religions:        ts.religions.clone(),
		boards:           ts.boards.clone(),
		institutions:     ts.institutions.clone(),
		subjects:         ts.subjects.clone(),
		courseSubjects:   ts.courseSubjects.clone(),
		students:         ts.students.clone(),
		admissions:       ts.admissions.clone(),
		admissionCourses: ts.admissionCourses.clone(),
		forms:            ts.forms.clone(),
		generalInfos:     ts.generalInfos.clone(),
		academicInfos:    ts.academicInfos.clone(),
		academicSubjects: ts.academicSubjects.clone(),
		additionalInfos:  ts.additionalInfos.clone(),
		sports:           ts.sports.clone(),
		courseApps:       ts.courseApps.clone(),
		payments:         ts.payments.clone(),
		feeMappings:      ts.feeMappings.clone(),
		exams:            ts.exams.clone(),
		examResults:      ts.examResults.clone(),
		attendance:       ts.attendance.clone(),
	}
}

// DB holds every table in memory.
// A transaction works on its own copy of the tables and swaps it in on commit.
// Writes outside a transaction wait for the running transaction to finish;
// reads never see uncommitted rows.
type DB struct {
	mutex sync.RWMutex
	txMu  sync.Mutex
	t     tables
}

func Open() *DB {
	return &DB{t: newTables()}
}

type txKey struct{}

type memTx struct {
	db *DB
	t  tables
}

func (db *DB) txFrom(ctx context.Context) *memTx {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok && tx.db == db {
		return tx
	}
	return nil
}

func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.txFrom(ctx) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mutex.RLock()
	tx := &memTx{db: db, t: db.t.clone()}
	db.mutex.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	db.mutex.Lock()
	db.t = tx.t
	db.mutex.Unlock()
	return nil
}

func (db *DB) read(ctx context.Context, fn func(t *tables)) {
	if tx := db.txFrom(ctx); tx != nil {
		fn(&tx.t)
		return
	}
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	fn(&db.t)
}

func (db *DB) write(ctx context.Context, fn func(t *tables)) {
	if tx := db.txFrom(ctx); tx != nil {
		fn(&tx.t)
		return
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mutex.Lock()
	defer db.mutex.Unlock()
	fn(&db.t)
}
