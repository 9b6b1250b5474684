package memdb

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/status"
)

type admissionRepository struct {
	db *DB
}

func NewAdmissionRepository(db *DB) admission.Repository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) CreateAdmission(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, exists := t.admissions.first(func(a admission.Admission) bool { return a.AcademicYearID == adm.AcademicYearID }); exists {
			err = admission.ErrYearExists
			return
		}
		adm.ID = t.admissions.nextID()
		adm.Courses = nil
		t.admissions.rows[adm.ID] = adm
	})
	return adm, err
}

func (repo *admissionRepository) CreateAdmissionCourse(ctx context.Context, course admission.AdmissionCourse) (admission.AdmissionCourse, error) {
	repo.db.write(ctx, func(t *tables) {
		course.ID = t.admissionCourses.nextID()
		t.admissionCourses.rows[course.ID] = course
	})
	return course, nil
}

func (repo *admissionRepository) GetAdmission(ctx context.Context, id int) (adm admission.Admission, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		if adm, ok = t.admissions.rows[id]; !ok {
			err = admission.ErrNotFound
		}
	})
	return adm, err
}

func (repo *admissionRepository) GetAdmissionByYear(ctx context.Context, academicYearID int) (adm admission.Admission, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		adm, ok = t.admissions.first(func(a admission.Admission) bool { return a.AcademicYearID == academicYearID })
		if !ok {
			err = admission.ErrNotFound
		}
	})
	return adm, err
}

// byYearDesc orders admissions by the start of their academic year, most recent first.
func byYearDesc(t *tables, adms []admission.Admission) {
	sort.SliceStable(adms, func(i, j int) bool {
		yi, yj := t.academicYears.rows[adms[i].AcademicYearID], t.academicYears.rows[adms[j].AcademicYearID]
		if !yi.StartDate.Equal(yj.StartDate) {
			return yi.StartDate.After(yj.StartDate)
		}
		return adms[i].AcademicYearID > adms[j].AcademicYearID
	})
}

func (repo *admissionRepository) QueryAdmissions(ctx context.Context) (adms []admission.Admission, err error) {
	repo.db.read(ctx, func(t *tables) {
		adms = t.admissions.filter(nil)
		byYearDesc(t, adms)
	})
	return adms, nil
}

func (repo *admissionRepository) UpdateAdmission(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		stored, ok := t.admissions.rows[adm.ID]
		if !ok {
			err = admission.ErrNotFound
			return
		}
		stored.AdmissionCode = adm.AdmissionCode
		stored.StartDate = adm.StartDate
		stored.LastDate = adm.LastDate
		stored.Archived = adm.Archived
		stored.UpdatedAt = adm.UpdatedAt
		t.admissions.rows[adm.ID] = stored
		adm = stored
	})
	return adm, err
}

func (repo *admissionRepository) CloseIfOpen(ctx context.Context, id int) (closed bool, err error) {
	repo.db.write(ctx, func(t *tables) {
		adm, ok := t.admissions.rows[id]
		if !ok || adm.IsClosed {
			return
		}
		adm.IsClosed = true
		t.admissions.rows[id] = adm
		closed = true
	})
	return closed, nil
}

func (repo *admissionRepository) SetAdmissionClosed(ctx context.Context, id int, closed bool) (err error) {
	repo.db.write(ctx, func(t *tables) {
		adm, ok := t.admissions.rows[id]
		if !ok {
			err = admission.ErrNotFound
			return
		}
		adm.IsClosed = closed
		t.admissions.rows[id] = adm
	})
	return err
}

func (repo *admissionRepository) SetCoursesClosed(ctx context.Context, admissionID int, closed bool) (n int, err error) {
	repo.db.write(ctx, func(t *tables) {
		for id, c := range t.admissionCourses.rows {
			if c.AdmissionID == admissionID {
				c.IsClosed = closed
				t.admissionCourses.rows[id] = c
				n++
			}
		}
	})
	return n, nil
}

func (repo *admissionRepository) QueryAdmissionCourses(ctx context.Context, admissionID int) (courses []admission.AdmissionCourse, err error) {
	repo.db.read(ctx, func(t *tables) {
		courses = t.admissionCourses.filter(func(c admission.AdmissionCourse) bool { return c.AdmissionID == admissionID })
	})
	return courses, nil
}

func (repo *admissionRepository) GetAdmissionCourse(ctx context.Context, id int) (course admission.AdmissionCourse, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		if course, ok = t.admissionCourses.rows[id]; !ok {
			err = admission.ErrCourseNotFound
		}
	})
	return course, err
}

func (repo *admissionRepository) UpdateAdmissionCourse(ctx context.Context, course admission.AdmissionCourse) (admission.AdmissionCourse, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.admissionCourses.rows[course.ID]; !ok {
			err = admission.ErrCourseNotFound
			return
		}
		t.admissionCourses.rows[course.ID] = course
	})
	return course, err
}

func (repo *admissionRepository) CountAdmissions(ctx context.Context) (n int, err error) {
	repo.db.read(ctx, func(t *tables) { n = len(t.admissions.rows) })
	return n, nil
}

func (repo *admissionRepository) CountFormsByStatus(ctx context.Context) (map[status.Form]int, error) {
	counts := make(map[status.Form]int)
	repo.db.read(ctx, func(t *tables) {
		for _, f := range t.forms.rows {
			counts[f.FormStatus]++
		}
	})
	return counts, nil
}

func (repo *admissionRepository) QuerySummaries(ctx context.Context, page core.Page) (rows []admission.SummaryRow, total int, err error) {
	repo.db.read(ctx, func(t *tables) {
		adms := t.admissions.filter(nil)
		byYearDesc(t, adms)
		total = len(adms)

		start, end := page.Window(total)
		rows = make([]admission.SummaryRow, 0, end-start)
		for _, adm := range adms[start:end] {
			row := admission.SummaryRow{
				AdmissionID:      adm.ID,
				AcademicYearID:   adm.AcademicYearID,
				AcademicYearName: t.academicYears.rows[adm.AcademicYearID].Name,
				AdmissionCode:    adm.AdmissionCode,
				IsClosed:         adm.IsClosed,
				StartDate:        adm.StartDate,
				LastDate:         adm.LastDate,
				ByStatus:         make(map[status.Form]int),
			}
			for _, f := range t.forms.rows {
				if f.AdmissionID == adm.ID {
					row.ByStatus[f.FormStatus]++
				}
			}
			rows = append(rows, row)
		}
	})
	return rows, total, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// listItem denormalizes a form the way the sql listing query does.
func listItem(t *tables, f application.ApplicationForm) admission.FormListItem {
	item := admission.FormListItem{
		FormID:            f.ID,
		ApplicationNumber: f.ApplicationNumber,
		FormStatus:        f.FormStatus,
		AdmissionStep:     f.AdmissionStep,
		CreatedAt:         f.CreatedAt,
	}

	var categoryID, religionID *int
	if gi, ok := t.generalInfos.first(func(gi application.GeneralInfo) bool { return gi.ApplicationFormID == f.ID }); ok {
		item.FirstName, item.LastName = gi.FirstName, gi.LastName
		item.Mobile, item.Email = gi.Mobile, gi.Email
		categoryID, religionID = gi.CategoryID, gi.ReligionID
	}
	if ai, ok := t.additionalInfos.first(func(ai application.AdditionalInfo) bool { return ai.ApplicationFormID == f.ID }); ok {
		item.AnnualIncome = ai.AnnualIncome
		if categoryID == nil {
			categoryID = ai.CategoryID
		}
		if religionID == nil {
			religionID = ai.ReligionID
		}
	}
	if categoryID != nil {
		item.Category = t.categories.rows[*categoryID].Name
	}
	if religionID != nil {
		item.Religion = t.religions.rows[*religionID].Name
	}

	var courses []string
	for _, ca := range t.courseApps.filter(func(ca application.CourseApplication) bool { return ca.ApplicationFormID == f.ID }) {
		if ac, ok := t.admissionCourses.rows[ca.AdmissionCourseID]; ok {
			courses = append(courses, t.courses.rows[ac.CourseID].Name)
		}
	}
	item.Courses = strings.Join(courses, ", ")

	if ai, ok := t.academicInfos.first(func(ai application.AcademicInfo) bool { return ai.ApplicationFormID == f.ID }); ok {
		item.Board = t.boards.rows[ai.BoardUniversityID].Name
	}
	return item
}

func matches(item admission.FormListItem, filter admission.FormFilter) bool {
	if filter.FormStatus != "" && item.FormStatus != filter.FormStatus {
		return false
	}
	for _, f := range []struct{ value, want string }{
		{item.Category, filter.Category},
		{item.Religion, filter.Religion},
		{item.AnnualIncome, filter.AnnualIncome},
		{item.Courses, filter.Course},
		{item.Board, filter.Board},
	} {
		if f.want != "" && !containsFold(f.value, f.want) {
			return false
		}
	}
	if filter.Search != "" {
		id, err := strconv.Atoi(filter.Search)
		byID := err == nil && id == item.FormID
		if !byID && !containsFold(item.FirstName, filter.Search) && !containsFold(item.LastName, filter.Search) {
			return false
		}
	}
	return true
}

// QueryForms lists the forms of an admission, newest first.
func (repo *admissionRepository) QueryForms(ctx context.Context, admissionID int, filter admission.FormFilter, page core.Page) (items []admission.FormListItem, total int, err error) {
	repo.db.read(ctx, func(t *tables) {
		var all []admission.FormListItem
		for _, f := range t.forms.filter(func(f application.ApplicationForm) bool { return f.AdmissionID == admissionID }) {
			if item := listItem(t, f); matches(item, filter) {
				all = append(all, item)
			}
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].FormID > all[j].FormID })

		total = len(all)
		start, end := page.Window(total)
		items = all[start:end]
	})
	return items, total, nil
}
