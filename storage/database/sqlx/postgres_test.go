//go:build integration

// Run against a live postgres with: ENV=TEST go test -tags integration ./storage/database/sqlx/...
package sqlxrepos_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/status"
	cachesvc "github.com/trezcool/admissions/services/cache"
	emailsvc "github.com/trezcool/admissions/services/email"
	"github.com/trezcool/admissions/storage/database"
	sqlxrepos "github.com/trezcool/admissions/storage/database/sqlx"
	"github.com/trezcool/admissions/tests"
)

var tables = []string{
	"attendance_records", "exam_results", "exams",
	"student_fees_mappings", "instalments", "fee_structures",
	"payments", "course_applications", "sports_infos", "additional_infos",
	"academic_subjects", "academic_infos", "general_infos", "application_forms",
	"admission_courses", "admissions",
	"students", "course_subjects", "subjects", "institutions", "board_universities",
	"religions", "categories", "classes", "courses", "academic_years",
}

type pgEnv struct {
	db           *sqlx.DB
	admissionRep admission.Repository
	appRepos     application.Repositories
	admissions   *admission.Service
	applications *application.Service
}

func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()
	conf := core.NewConfig()

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db.DB))

	_, err = db.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO academic_years (id, name, start_date, end_date) VALUES
			(6, '2024-25', '2024-07-01', '2025-06-30'), (7, '2025-26', '2025-07-01', '2026-06-30');
		INSERT INTO courses (id, name, code) VALUES (1, 'B.Sc. Physics', 'BSC-PHY'), (2, 'B.A. English', 'BA-ENG');
		INSERT INTO categories (id, name) VALUES (1, 'General');
		INSERT INTO religions (id, name) VALUES (1, 'Hinduism');
		INSERT INTO board_universities (id, name, kind) VALUES (1, 'WBCHSE', 'BOARD');
		INSERT INTO subjects (id, name, code) VALUES (1, 'Physics', 'PHY'), (2, 'Mathematics', 'MTH');`)
	require.NoError(t, err)

	logger := new(testutil.Logger)
	tx := sqlxrepos.NewTransactor(db)
	env := &pgEnv{
		db:           db,
		admissionRep: sqlxrepos.NewAdmissionRepository(db),
		appRepos:     sqlxrepos.NewApplicationRepositories(db),
	}
	cache := cachesvc.NewNoopCache()
	env.admissions = admission.NewService(tx, env.admissionRep, cache, conf, logger)
	env.applications = application.NewService(tx, env.appRepos, env.admissions, emailsvc.NewConsoleServiceMock(conf, logger), cache, conf, logger)
	return env
}

func (env *pgEnv) createAdmission(t *testing.T, year int, courseIDs ...int) admission.Admission {
	t.Helper()
	today := core.Today()
	adm, err := env.admissions.CreateWithCourses(context.Background(), admission.NewAdmission{
		AcademicYearID: year,
		AdmissionCode:  fmt.Sprintf("ADM%d", year),
		StartDate:      today.AddDate(0, 0, -1),
		LastDate:       today.AddDate(0, 1, 0),
		CourseIDs:      courseIDs,
	})
	require.NoError(t, err)
	return adm
}

func TestCreateAdmission_YearExists(t *testing.T) {
	ctx := context.Background()
	env := newPgEnv(t)
	now := time.Now().UTC()
	adm := admission.Admission{AcademicYearID: 7, StartDate: core.Today(), LastDate: core.Today(), CreatedAt: now, UpdatedAt: now}

	_, err := env.admissionRep.CreateAdmission(ctx, adm)
	require.NoError(t, err)
	_, err = env.admissionRep.CreateAdmission(ctx, adm)
	assert.Equal(t, admission.ErrYearExists, err)
}

func TestSummaryAndForms(t *testing.T) {
	ctx := context.Background()
	env := newPgEnv(t)
	adm6 := env.createAdmission(t, 6, 1)
	adm7 := env.createAdmission(t, 7, 1, 2)

	first, err := env.applications.CreateApplicationForm(ctx, testutil.NewForm(adm7.ID, "9000000001"))
	require.NoError(t, err)
	second := testutil.NewForm(adm7.ID, "9000000002")
	second.FirstName = "Rahul"
	second.LastName = "Sen"
	_, err = env.applications.CreateApplicationForm(ctx, second)
	require.NoError(t, err)
	_, err = env.applications.CreateApplicationForm(ctx, testutil.NewForm(adm6.ID, "9000000003"))
	require.NoError(t, err)
	_, _, err = env.applications.CreateCourseApplication(ctx, first.Form.ID, application.NewCourseApplication{AdmissionCourseID: adm7.Courses[1].ID})
	require.NoError(t, err)

	sum, err := env.admissions.Summary(ctx, core.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	require.Len(t, sum.Items, 2)
	assert.Equal(t, adm7.ID, sum.Items[0].AdmissionID)
	assert.Equal(t, "2025-26", sum.Items[0].AcademicYear)
	assert.Equal(t, 2, sum.Items[0].TotalForms)
	assert.Equal(t, 1, sum.Items[1].TotalForms)

	tests := []struct {
		name   string
		filter admission.FormFilter
		want   []int
	}{
		{"all, newest first", admission.FormFilter{}, []int{first.Form.ID + 1, first.Form.ID}},
		{"last name", admission.FormFilter{Search: "sen"}, []int{first.Form.ID + 1}},
		{"padded id", admission.FormFilter{Search: fmt.Sprintf("%04d", first.Form.ID)}, []int{first.Form.ID}},
		{"course", admission.FormFilter{Course: "english"}, []int{first.Form.ID}},
		{"category", admission.FormFilter{Category: "general"}, []int{first.Form.ID + 1, first.Form.ID}},
		{"status", admission.FormFilter{FormStatus: status.Approved}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.admissions.ApplicationForms(ctx, adm7.ID, tt.filter, core.NewPage(1, 10))
			require.NoError(t, err)
			var ids []int
			for _, item := range page.Items {
				ids = append(ids, item.FormID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestDeleteApplicationForm_Cascade(t *testing.T) {
	ctx := context.Background()
	env := newPgEnv(t)
	adm := env.createAdmission(t, 7, 1)
	dto, err := env.applications.CreateApplicationForm(ctx, testutil.NewForm(adm.ID, "9000000001"))
	require.NoError(t, err)
	formID := dto.Form.ID

	_, _, err = env.applications.CreateAcademicInfo(ctx, formID, application.NewAcademicInfo{
		BoardUniversityID: 1,
		ResultStatus:      status.ResultPassed,
		Subjects: []application.AcademicSubject{
			{SubjectID: 1, FullMarks: 100, MarksObtained: 60},
			{SubjectID: 2, FullMarks: 100, MarksObtained: 72},
		},
	})
	require.NoError(t, err)
	_, _, err = env.applications.CreateCourseApplication(ctx, formID, application.NewCourseApplication{AdmissionCourseID: adm.Courses[0].ID})
	require.NoError(t, err)
	_, _, err = env.applications.CreatePayment(ctx, formID, application.NewPayment{Amount: 50000, PaymentMode: "UPI"})
	require.NoError(t, err)

	require.NoError(t, env.applications.DeleteApplicationForm(ctx, formID))

	for _, table := range []string{"application_forms", "general_infos", "academic_infos", "academic_subjects", "course_applications", "payments"} {
		var n int
		require.NoError(t, env.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, n, table)
	}
}

func TestCreateApplicationForm_ConcurrentSameMobile(t *testing.T) {
	ctx := context.Background()
	env := newPgEnv(t)
	adm := env.createAdmission(t, 7, 1)

	const attempts = 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.applications.CreateApplicationForm(ctx, testutil.NewForm(adm.ID, "9000000001"))
		}(i)
	}
	wg.Wait()

	var created, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case core.IsDuplicate(err):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicates)
}
