package memdb

import (
	"context"

	"github.com/trezcool/admissions/core/lookup"
)

type lookupRepository struct {
	db *DB
}

func NewLookupRepository(db *DB) lookup.Repository {
	return &lookupRepository{db: db}
}

func (repo *lookupRepository) QueryAcademicYears(ctx context.Context) (years []lookup.AcademicYear, err error) {
	repo.db.read(ctx, func(t *tables) { years = t.academicYears.filter(nil) })
	return years, nil
}

func (repo *lookupRepository) QueryCourses(ctx context.Context) (courses []lookup.Course, err error) {
	repo.db.read(ctx, func(t *tables) { courses = t.courses.filter(nil) })
	return courses, nil
}

func (repo *lookupRepository) QueryClasses(ctx context.Context) (classes []lookup.Class, err error) {
	repo.db.read(ctx, func(t *tables) { classes = t.classes.filter(nil) })
	return classes, nil
}

func (repo *lookupRepository) QueryCategories(ctx context.Context) (cats []lookup.Category, err error) {
	repo.db.read(ctx, func(t *tables) { cats = t.categories.filter(nil) })
	return cats, nil
}

func (repo *lookupRepository) QueryReligions(ctx context.Context) (rels []lookup.Religion, err error) {
	repo.db.read(ctx, func(t *tables) { rels = t.religions.filter(nil) })
	return rels, nil
}

func (repo *lookupRepository) QueryBoardUniversities(ctx context.Context) (boards []lookup.BoardUniversity, err error) {
	repo.db.read(ctx, func(t *tables) { boards = t.boards.filter(nil) })
	return boards, nil
}

func (repo *lookupRepository) QueryInstitutions(ctx context.Context) (insts []lookup.Institution, err error) {
	repo.db.read(ctx, func(t *tables) { insts = t.institutions.filter(nil) })
	return insts, nil
}

func (repo *lookupRepository) QuerySubjects(ctx context.Context, filter lookup.SubjectFilter) (subjects []lookup.Subject, err error) {
	repo.db.read(ctx, func(t *tables) {
		if filter.CourseID == nil && filter.ClassID == nil {
			subjects = t.subjects.filter(nil)
			return
		}
		ids := make(map[int]bool)
		for _, cs := range t.courseSubjects.filter(nil) {
			if filter.CourseID != nil && cs.CourseID != *filter.CourseID {
				continue
			}
			if filter.ClassID != nil && cs.ClassID != *filter.ClassID {
				continue
			}
			ids[cs.SubjectID] = true
		}
		subjects = t.subjects.filter(func(s lookup.Subject) bool { return ids[s.ID] })
	})
	return subjects, nil
}

func (repo *lookupRepository) GetStudent(ctx context.Context, id int) (st lookup.Student, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		if st, ok = t.students.rows[id]; !ok {
			err = lookup.ErrStudentNotFound
		}
	})
	return st, err
}
