package lookup

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

var ErrStudentNotFound = core.NewNotFoundError("student not found")

const (
	cacheKeyCourses           = "lookup:courses"
	cacheKeyBoardUniversities = "lookup:board-universities"
)

type Repository interface {
	QueryAcademicYears(ctx context.Context) ([]AcademicYear, error)
	QueryCourses(ctx context.Context) ([]Course, error)
	QueryClasses(ctx context.Context) ([]Class, error)
	QueryCategories(ctx context.Context) ([]Category, error)
	QueryReligions(ctx context.Context) ([]Religion, error)
	QueryBoardUniversities(ctx context.Context) ([]BoardUniversity, error)
	QueryInstitutions(ctx context.Context) ([]Institution, error)
	QuerySubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
	GetStudent(ctx context.Context, id int) (Student, error)
}

// Service exposes read-only reference data.
type Service struct {
	repo   Repository
	cache  core.Cache
	ttl    time.Duration
	logger core.Logger
}

func NewService(repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: conf.Redis.LookupTTL, logger: logger}
}

// cached reads key from the cache or falls back to load, storing its result.
// Cache failures are logged and never fail the read.
func (svc *Service) cached(ctx context.Context, key string, dest interface{}, load func() error) error {
	err := svc.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != core.ErrCacheMiss {
		svc.logger.Warn("reading lookup cache", errors.Wrap(err, key))
	}
	if err = load(); err != nil {
		return err
	}
	if err = svc.cache.SetJSON(ctx, key, dest, svc.ttl); err != nil {
		svc.logger.Warn("writing lookup cache", errors.Wrap(err, key))
	}
	return nil
}

func (svc *Service) AcademicYears(ctx context.Context) ([]AcademicYear, error) {
	years, err := svc.repo.QueryAcademicYears(ctx)
	return years, errors.Wrap(err, "querying academic years")
}

func (svc *Service) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := svc.cached(ctx, cacheKeyCourses, &courses, func() (err error) {
		courses, err = svc.repo.QueryCourses(ctx)
		return errors.Wrap(err, "querying courses")
	})
	return courses, err
}

func (svc *Service) Classes(ctx context.Context) ([]Class, error) {
	classes, err := svc.repo.QueryClasses(ctx)
	return classes, errors.Wrap(err, "querying classes")
}

func (svc *Service) Categories(ctx context.Context) ([]Category, error) {
	cats, err := svc.repo.QueryCategories(ctx)
	return cats, errors.Wrap(err, "querying categories")
}

func (svc *Service) Religions(ctx context.Context) ([]Religion, error) {
	rels, err := svc.repo.QueryReligions(ctx)
	return rels, errors.Wrap(err, "querying religions")
}

func (svc *Service) BoardUniversities(ctx context.Context) ([]BoardUniversity, error) {
	var boards []BoardUniversity
	err := svc.cached(ctx, cacheKeyBoardUniversities, &boards, func() (err error) {
		boards, err = svc.repo.QueryBoardUniversities(ctx)
		return errors.Wrap(err, "querying board universities")
	})
	return boards, err
}

func (svc *Service) Institutions(ctx context.Context) ([]Institution, error) {
	insts, err := svc.repo.QueryInstitutions(ctx)
	return insts, errors.Wrap(err, "querying institutions")
}

func (svc *Service) Subjects(ctx context.Context, filter SubjectFilter) ([]Subject, error) {
	subjects, err := svc.repo.QuerySubjects(ctx, filter)
	return subjects, errors.Wrap(err, "querying subjects")
}

func (svc *Service) Student(ctx context.Context, id int) (Student, error) {
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		if err == ErrStudentNotFound {
			return Student{}, err
		}
		return Student{}, errors.Wrap(err, "finding student")
	}
	return st, nil
}
