package admission

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/status"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("admission not found")
	ErrCourseNotFound = core.NewNotFoundError("admission course not found")
	ErrYearExists     = errors.New("an admission already exists for this academic year")
	ErrDatesOrder     = errors.New("last date cannot be before start date")
	ErrPastDates      = errors.New("admission dates cannot be in the past")
)

type Repository interface {
	// CreateAdmission returns ErrYearExists when the academic year already has an admission.
	CreateAdmission(ctx context.Context, adm Admission) (Admission, error)
	CreateAdmissionCourse(ctx context.Context, course AdmissionCourse) (AdmissionCourse, error)
	GetAdmission(ctx context.Context, id int) (Admission, error)
	GetAdmissionByYear(ctx context.Context, academicYearID int) (Admission, error)
	// QueryAdmissions returns all admissions, most recent academic year first.
	QueryAdmissions(ctx context.Context) ([]Admission, error)
	// UpdateAdmission saves code, dates and archived. IsClosed is only changed through SetAdmissionClosed and CloseIfOpen.
	UpdateAdmission(ctx context.Context, adm Admission) (Admission, error)
	// CloseIfOpen closes the admission unless it is already closed and reports whether this call closed it.
	CloseIfOpen(ctx context.Context, id int) (bool, error)
	SetAdmissionClosed(ctx context.Context, id int, closed bool) error
	// SetCoursesClosed writes closed onto every course of the admission and returns the number of rows.
	SetCoursesClosed(ctx context.Context, admissionID int, closed bool) (int, error)
	QueryAdmissionCourses(ctx context.Context, admissionID int) ([]AdmissionCourse, error)
	GetAdmissionCourse(ctx context.Context, id int) (AdmissionCourse, error)
	UpdateAdmissionCourse(ctx context.Context, course AdmissionCourse) (AdmissionCourse, error)

	CountAdmissions(ctx context.Context) (int, error)
	CountFormsByStatus(ctx context.Context) (map[status.Form]int, error)
	// QuerySummaries returns one row per admission ordered by academic year descending, and the admission count.
	QuerySummaries(ctx context.Context, page core.Page) ([]SummaryRow, int, error)
	// QueryForms returns the filtered page of forms and the total number of forms matching filter.
	QueryForms(ctx context.Context, admissionID int, filter FormFilter, page core.Page) ([]FormListItem, int, error)
}

type Service struct {
	tx     core.Transactor
	repo   Repository
	cache  core.Cache
	conf   *core.Config
	logger core.Logger
}

func NewService(tx core.Transactor, repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) *Service {
	return &Service{tx: tx, repo: repo, cache: cache, conf: conf, logger: logger}
}

func (svc *Service) checkDates(start, last time.Time, creating bool) error {
	start, last = core.DateOf(start), core.DateOf(last)
	if last.Before(start) {
		return core.NewValidationError(ErrDatesOrder, core.FieldError{Field: "last_date", Error: ErrDatesOrder.Error()})
	}
	if creating && svc.conf.Admission.RejectPastDates && start.Before(core.Today()) {
		return core.NewValidationError(ErrPastDates, core.FieldError{Field: "start_date", Error: ErrPastDates.Error()})
	}
	return nil
}

func yearExistsErr() error {
	return core.NewValidationError(ErrYearExists, core.FieldError{Field: "academic_year_id", Error: ErrYearExists.Error()})
}

func (svc *Service) invalidateStats(ctx context.Context) {
	if err := svc.cache.Delete(ctx, core.CacheKeyAdmissionStats); err != nil {
		svc.logger.Warn("invalidating admission stats cache", err)
	}
}

// Create creates an admission without courses.
func (svc *Service) Create(ctx context.Context, na NewAdmission) (Admission, error) {
	na.CourseIDs = nil
	return svc.CreateWithCourses(ctx, na)
}

// CreateWithCourses creates an admission and its courses atomically.
// It fails with a validation error when the academic year already has an admission.
func (svc *Service) CreateWithCourses(ctx context.Context, na NewAdmission) (Admission, error) {
	if err := svc.checkDates(na.StartDate, na.LastDate, true); err != nil {
		return Admission{}, err
	}

	now := time.Now().UTC()
	var adm Admission
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetAdmissionByYear(ctx, na.AcademicYearID); err == nil {
			return yearExistsErr()
		} else if err != ErrNotFound {
			return errors.Wrap(err, "finding admission by year")
		}

		var err error
		adm, err = svc.repo.CreateAdmission(ctx, Admission{
			AcademicYearID: na.AcademicYearID,
			AdmissionCode:  core.CleanString(na.AdmissionCode),
			StartDate:      core.DateOf(na.StartDate),
			LastDate:       core.DateOf(na.LastDate),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			if errors.Cause(err) == ErrYearExists {
				return yearExistsErr()
			}
			return errors.Wrap(err, "creating admission")
		}

		adm.Courses = make([]AdmissionCourse, 0, len(na.CourseIDs))
		for _, courseID := range na.CourseIDs {
			course, err := svc.repo.CreateAdmissionCourse(ctx, AdmissionCourse{
				AdmissionID: adm.ID,
				CourseID:    courseID,
				CreatedAt:   now,
			})
			if err != nil {
				return errors.Wrapf(err, "creating admission course %d", courseID)
			}
			adm.Courses = append(adm.Courses, course)
		}
		return nil
	})
	if err != nil {
		return Admission{}, err
	}

	svc.invalidateStats(ctx)
	return adm, nil
}

// ReconcileAndFetch reads an admission and closes it first when its last date has passed.
// Closing is a conditional write so concurrent reconciliations are harmless.
func (svc *Service) ReconcileAndFetch(ctx context.Context, id int) (Admission, error) {
	adm, err := svc.repo.GetAdmission(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Admission{}, err
		}
		return Admission{}, errors.Wrap(err, "finding admission")
	}
	return svc.reconcile(ctx, adm, true)
}

func (svc *Service) reconcile(ctx context.Context, adm Admission, withCourses bool) (Admission, error) {
	if !adm.IsClosed && adm.Expired(time.Now()) {
		err := svc.tx.InTx(ctx, func(ctx context.Context) error {
			closed, err := svc.repo.CloseIfOpen(ctx, adm.ID)
			if err != nil {
				return errors.Wrap(err, "closing admission")
			}
			if !closed {
				return nil // someone else got there first
			}
			if _, err = svc.repo.SetCoursesClosed(ctx, adm.ID, true); err != nil {
				return errors.Wrap(err, "closing admission courses")
			}
			svc.logger.Info("admission auto-closed", map[string]interface{}{
				"admission_id": adm.ID,
				"last_date":    adm.LastDate.Format("2006-01-02"),
			})
			return nil
		})
		if err != nil {
			return Admission{}, err
		}
		adm.IsClosed = true
	}

	if withCourses {
		courses, err := svc.repo.QueryAdmissionCourses(ctx, adm.ID)
		if err != nil {
			return Admission{}, errors.Wrap(err, "querying admission courses")
		}
		adm.Courses = courses
	}
	return adm, nil
}

func (svc *Service) FindByID(ctx context.Context, id int) (Admission, error) {
	return svc.ReconcileAndFetch(ctx, id)
}

func (svc *Service) FindByYear(ctx context.Context, academicYearID int) (Admission, error) {
	adm, err := svc.repo.GetAdmissionByYear(ctx, academicYearID)
	if err != nil {
		if err == ErrNotFound {
			return Admission{}, err
		}
		return Admission{}, errors.Wrap(err, "finding admission by year")
	}
	return svc.reconcile(ctx, adm, true)
}

// FindAll returns every admission, reconciled, most recent academic year first.
func (svc *Service) FindAll(ctx context.Context) ([]Admission, error) {
	adms, err := svc.repo.QueryAdmissions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying admissions")
	}
	for i := range adms {
		if adms[i], err = svc.reconcile(ctx, adms[i], false); err != nil {
			return nil, err
		}
	}
	return adms, nil
}

// CloseExpired reconciles every admission and returns how many were closed.
func (svc *Service) CloseExpired(ctx context.Context) (int, error) {
	adms, err := svc.repo.QueryAdmissions(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying admissions")
	}
	var n int
	for _, adm := range adms {
		wasOpen := !adm.IsClosed
		if adm, err = svc.reconcile(ctx, adm, false); err != nil {
			return n, err
		}
		if wasOpen && adm.IsClosed {
			n++
		}
	}
	return n, nil
}

func (svc *Service) Update(ctx context.Context, id int, ua UpdateAdmission) (Admission, error) {
	adm, err := svc.repo.GetAdmission(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Admission{}, err
		}
		return Admission{}, errors.Wrap(err, "finding admission")
	}

	if ua.AdmissionCode != nil {
		adm.AdmissionCode = core.CleanString(*ua.AdmissionCode)
	}
	if ua.StartDate != nil {
		adm.StartDate = core.DateOf(*ua.StartDate)
	}
	if ua.LastDate != nil {
		adm.LastDate = core.DateOf(*ua.LastDate)
	}
	if ua.Archived != nil {
		adm.Archived = *ua.Archived
	}
	if err = svc.checkDates(adm.StartDate, adm.LastDate, false); err != nil {
		return Admission{}, err
	}
	adm.UpdatedAt = time.Now().UTC()

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.UpdateAdmission(ctx, adm); err != nil {
			return errors.Wrap(err, "updating admission")
		}
		if ua.IsClosed != nil && *ua.IsClosed != adm.IsClosed {
			return svc.setClosed(ctx, adm.ID, *ua.IsClosed)
		}
		return nil
	})
	if err != nil {
		return Admission{}, err
	}
	return svc.ReconcileAndFetch(ctx, id)
}

func (svc *Service) setClosed(ctx context.Context, id int, closed bool) error {
	if err := svc.repo.SetAdmissionClosed(ctx, id, closed); err != nil {
		return errors.Wrap(err, "setting admission closed")
	}
	if _, err := svc.repo.SetCoursesClosed(ctx, id, closed); err != nil {
		return errors.Wrap(err, "setting admission courses closed")
	}
	return nil
}

// ToggleClosed closes or reopens an admission and writes the same flag onto all of its courses.
func (svc *Service) ToggleClosed(ctx context.Context, id int, closed bool) (Admission, error) {
	if _, err := svc.repo.GetAdmission(ctx, id); err != nil {
		if err == ErrNotFound {
			return Admission{}, err
		}
		return Admission{}, errors.Wrap(err, "finding admission")
	}
	if err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		return svc.setClosed(ctx, id, closed)
	}); err != nil {
		return Admission{}, err
	}

	adm, err := svc.repo.GetAdmission(ctx, id)
	if err != nil {
		return Admission{}, errors.Wrap(err, "finding admission")
	}
	if adm.Courses, err = svc.repo.QueryAdmissionCourses(ctx, id); err != nil {
		return Admission{}, errors.Wrap(err, "querying admission courses")
	}
	return adm, nil
}

func (svc *Service) Courses(ctx context.Context, admissionID int) ([]AdmissionCourse, error) {
	if _, err := svc.repo.GetAdmission(ctx, admissionID); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, errors.Wrap(err, "finding admission")
	}
	courses, err := svc.repo.QueryAdmissionCourses(ctx, admissionID)
	return courses, errors.Wrap(err, "querying admission courses")
}

// Course returns an admission course; used by application forms to check a course can be applied to.
func (svc *Service) Course(ctx context.Context, id int) (AdmissionCourse, error) {
	course, err := svc.repo.GetAdmissionCourse(ctx, id)
	if err != nil {
		if err == ErrCourseNotFound {
			return AdmissionCourse{}, err
		}
		return AdmissionCourse{}, errors.Wrap(err, "finding admission course")
	}
	return course, nil
}

func (svc *Service) updateCourse(ctx context.Context, id int, apply func(c *AdmissionCourse)) (AdmissionCourse, error) {
	course, err := svc.Course(ctx, id)
	if err != nil {
		return AdmissionCourse{}, err
	}
	apply(&course)
	course, err = svc.repo.UpdateAdmissionCourse(ctx, course)
	return course, errors.Wrap(err, "updating admission course")
}

// DisableCourse withdraws a course from an admission without touching the admission itself.
func (svc *Service) DisableCourse(ctx context.Context, id int) (AdmissionCourse, error) {
	return svc.updateCourse(ctx, id, func(c *AdmissionCourse) { c.Disabled = true })
}

func (svc *Service) EnableCourse(ctx context.Context, id int) (AdmissionCourse, error) {
	return svc.updateCourse(ctx, id, func(c *AdmissionCourse) { c.Disabled = false })
}

func (svc *Service) CloseCourse(ctx context.Context, id int) (AdmissionCourse, error) {
	return svc.updateCourse(ctx, id, func(c *AdmissionCourse) { c.IsClosed = true })
}

func (svc *Service) OpenCourse(ctx context.Context, id int) (AdmissionCourse, error) {
	return svc.updateCourse(ctx, id, func(c *AdmissionCourse) { c.IsClosed = false })
}

// Stats returns the global counters: admissions, forms, paid forms and draft forms.
func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := svc.cache.GetJSON(ctx, core.CacheKeyAdmissionStats, &stats)
	if err == nil {
		return stats, nil
	}
	if err != core.ErrCacheMiss {
		svc.logger.Warn("reading admission stats cache", err)
	}
	stats = Stats{}

	if stats.TotalAdmissions, err = svc.repo.CountAdmissions(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting admissions")
	}
	byStatus, err := svc.repo.CountFormsByStatus(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting forms by status")
	}
	for s, n := range byStatus {
		stats.TotalApplications += n
		switch s {
		case status.PaymentSuccess:
			stats.PaymentSuccess += n
		case status.Draft:
			stats.Draft += n
		}
	}

	if err = svc.cache.SetJSON(ctx, core.CacheKeyAdmissionStats, stats, svc.conf.Redis.StatsTTL); err != nil {
		svc.logger.Warn("writing admission stats cache", err)
	}
	return stats, nil
}

// Summary returns per-admission form counts by status, most recent academic year first.
func (svc *Service) Summary(ctx context.Context, page core.Page) (SummaryPage, error) {
	rows, total, err := svc.repo.QuerySummaries(ctx, page)
	if err != nil {
		return SummaryPage{}, errors.Wrap(err, "querying admission summaries")
	}
	items := make([]Summary, 0, len(rows))
	for _, r := range rows {
		sum := Summary{
			AdmissionID:    r.AdmissionID,
			AcademicYearID: r.AcademicYearID,
			AcademicYear:   r.AcademicYearName,
			AdmissionCode:  r.AdmissionCode,
			IsClosed:       r.IsClosed,
			StartDate:      r.StartDate,
			LastDate:       r.LastDate,
		}
		for s, n := range r.ByStatus {
			sum.TotalForms += n
			sum.Counts.Add(s, n)
		}
		items = append(items, sum)
	}
	return SummaryPage{Items: items, Total: total, Page: page}, nil
}

// ApplicationForms lists the forms of an admission with display columns, filtered and paginated.
func (svc *Service) ApplicationForms(ctx context.Context, admissionID int, filter FormFilter, page core.Page) (FormListPage, error) {
	if _, err := svc.repo.GetAdmission(ctx, admissionID); err != nil {
		if err == ErrNotFound {
			return FormListPage{}, err
		}
		return FormListPage{}, errors.Wrap(err, "finding admission")
	}

	filter.Category = core.CleanString(filter.Category)
	filter.Religion = core.CleanString(filter.Religion)
	filter.AnnualIncome = core.CleanString(filter.AnnualIncome)
	filter.Course = core.CleanString(filter.Course)
	filter.Board = core.CleanString(filter.Board)
	filter.Search = core.CleanString(filter.Search)
	filter.FormStatus = status.Form(strings.ToUpper(core.CleanString(string(filter.FormStatus))))
	if filter.FormStatus != "" && !filter.FormStatus.Valid() {
		return FormListPage{}, core.NewValidationError(nil, core.FieldError{Field: "form_status", Error: "invalid form status"})
	}

	items, total, err := svc.repo.QueryForms(ctx, admissionID, filter, page)
	if err != nil {
		return FormListPage{}, errors.Wrap(err, "querying application forms")
	}
	if items == nil {
		items = []FormListItem{}
	}
	return FormListPage{Items: items, Total: total, Page: page}, nil
}
