package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/admissions/core/lookup"
)

type lookupRepository struct {
	db *sqlx.DB
}

func NewLookupRepository(db *sqlx.DB) lookup.Repository {
	return &lookupRepository{db: db}
}

func (repo *lookupRepository) QueryAcademicYears(ctx context.Context) ([]lookup.AcademicYear, error) {
	years := make([]lookup.AcademicYear, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &years,
		`SELECT id, name, start_date, end_date FROM academic_years ORDER BY start_date DESC`)
	return years, err
}

func (repo *lookupRepository) QueryCourses(ctx context.Context) ([]lookup.Course, error) {
	courses := make([]lookup.Course, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &courses, `SELECT id, name, code FROM courses ORDER BY name`)
	return courses, err
}

func (repo *lookupRepository) QueryClasses(ctx context.Context) ([]lookup.Class, error) {
	classes := make([]lookup.Class, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &classes, `SELECT id, name FROM classes ORDER BY id`)
	return classes, err
}

func (repo *lookupRepository) QueryCategories(ctx context.Context) ([]lookup.Category, error) {
	cats := make([]lookup.Category, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &cats, `SELECT id, name FROM categories ORDER BY name`)
	return cats, err
}

func (repo *lookupRepository) QueryReligions(ctx context.Context) ([]lookup.Religion, error) {
	rels := make([]lookup.Religion, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rels, `SELECT id, name FROM religions ORDER BY name`)
	return rels, err
}

func (repo *lookupRepository) QueryBoardUniversities(ctx context.Context) ([]lookup.BoardUniversity, error) {
	boards := make([]lookup.BoardUniversity, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &boards,
		`SELECT id, name, kind FROM board_universities ORDER BY kind, name`)
	return boards, err
}

func (repo *lookupRepository) QueryInstitutions(ctx context.Context) ([]lookup.Institution, error) {
	insts := make([]lookup.Institution, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &insts, `SELECT id, name FROM institutions ORDER BY name`)
	return insts, err
}

func (repo *lookupRepository) QuerySubjects(ctx context.Context, filter lookup.SubjectFilter) ([]lookup.Subject, error) {
	q := `SELECT id, name, code FROM subjects`
	var conds []string
	var args []interface{}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		conds = append(conds, "course_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ClassID != nil {
		args = append(args, *filter.ClassID)
		conds = append(conds, "class_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		q += ` WHERE id IN (SELECT subject_id FROM course_subjects WHERE ` + strings.Join(conds, " AND ") + `)`
	}
	q += ` ORDER BY name`

	subjects := make([]lookup.Subject, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &subjects, q, args...)
	return subjects, err
}

func (repo *lookupRepository) GetStudent(ctx context.Context, id int) (lookup.Student, error) {
	var st lookup.Student
	err := getOne(ctx, getExec(ctx, repo.db), &st, lookup.ErrStudentNotFound,
		`SELECT id, name, course_id, class_id FROM students WHERE id = $1`, id)
	return st, err
}
