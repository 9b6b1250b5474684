package admission_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/status"
	"github.com/trezcool/admissions/tests"
)

var errInsertFailed = errors.New("insert failed")

// failingCourses fails the n-th admission course insert.
type failingCourses struct {
	admission.Repository
	failOn int
	calls  int
}

func (r *failingCourses) CreateAdmissionCourse(ctx context.Context, c admission.AdmissionCourse) (admission.AdmissionCourse, error) {
	r.calls++
	if r.calls == r.failOn {
		return admission.AdmissionCourse{}, errInsertFailed
	}
	return r.Repository.CreateAdmissionCourse(ctx, c)
}

func newAdmission(year int, courseIDs ...int) admission.NewAdmission {
	today := core.Today()
	return admission.NewAdmission{
		AcademicYearID: year,
		AdmissionCode:  " ADM2025 ",
		StartDate:      today,
		LastDate:       today.AddDate(0, 2, 0),
		CourseIDs:      courseIDs,
	}
}

func TestCreateWithCourses(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()

	adm, err := env.Admissions.CreateWithCourses(ctx, newAdmission(7, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, "ADM2025", adm.AdmissionCode)
	assert.False(t, adm.IsClosed)
	require.Len(t, adm.Courses, 2)
	for i, c := range adm.Courses {
		assert.Equal(t, adm.ID, c.AdmissionID)
		assert.Equal(t, i+1, c.CourseID)
		assert.True(t, c.Available())
	}

	t.Run("one admission per academic year", func(t *testing.T) {
		_, err := env.Admissions.CreateWithCourses(ctx, newAdmission(7, 3))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "academic_year_id", vErr.Fields[0].Field)

		adms, err := env.Admissions.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, adms, 1)
	})

	t.Run("last date before start date", func(t *testing.T) {
		na := newAdmission(6)
		na.LastDate = na.StartDate.AddDate(0, 0, -1)
		_, err := env.Admissions.Create(ctx, na)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, admission.ErrDatesOrder, vErr.Err)
	})

	t.Run("past dates allowed unless configured", func(t *testing.T) {
		env := testutil.NewEnv(t)
		env.Conf.Admission.RejectPastDates = true
		env.Admissions = admission.NewService(env.DB, env.AdmissionRepo, env.Cache, env.Conf, env.Logger)

		na := newAdmission(6)
		na.StartDate = core.Today().AddDate(0, 0, -3)
		_, err := env.Admissions.Create(ctx, na)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, admission.ErrPastDates, vErr.Err)
	})
}

func TestCreateWithCourses_Atomic(t *testing.T) {
	ctx := context.Background()
	failing := &failingCourses{failOn: 2}
	env := testutil.NewEnv(t, testutil.WithAdmissionRepo(func(repo admission.Repository) admission.Repository {
		failing.Repository = repo
		return failing
	}))
	env.SeedReference()

	_, err := env.Admissions.CreateWithCourses(ctx, newAdmission(7, 1, 2, 3))
	require.Error(t, err)
	assert.Equal(t, errInsertFailed, errors.Cause(err))
	assert.Equal(t, 2, failing.calls)

	// neither the admission nor its first course survived
	_, err = env.Admissions.FindByYear(ctx, 7)
	assert.Equal(t, admission.ErrNotFound, err)
	n, err := env.AdmissionRepo.CountAdmissions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	courses, err := env.AdmissionRepo.QueryAdmissionCourses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, courses)

	// the year is free again
	failing.failOn = 0
	adm, err := env.Admissions.CreateWithCourses(ctx, newAdmission(7, 1, 2))
	require.NoError(t, err)
	assert.Len(t, adm.Courses, 2)
}

func TestReconcileAndFetch(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()

	today := core.Today()
	adm, err := env.Admissions.CreateWithCourses(ctx, admission.NewAdmission{
		AcademicYearID: 6,
		StartDate:      today.AddDate(0, -1, 0),
		LastDate:       today.AddDate(0, 0, -1),
		CourseIDs:      []int{1, 2},
	})
	require.NoError(t, err)
	require.False(t, adm.IsClosed)

	got, err := env.Admissions.ReconcileAndFetch(ctx, adm.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)
	require.Len(t, got.Courses, 2)
	for _, c := range got.Courses {
		assert.True(t, c.IsClosed)
	}
	assert.Equal(t, []string{"admission auto-closed"}, env.Logger.Messages("INFO"))

	// second reconciliation has nothing left to do
	got, err = env.Admissions.ReconcileAndFetch(ctx, adm.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)
	assert.Len(t, env.Logger.Messages("INFO"), 1)

	t.Run("window still open", func(t *testing.T) {
		open := env.CreateAdmission(t, 7, 3)
		got, err := env.Admissions.ReconcileAndFetch(ctx, open.ID)
		require.NoError(t, err)
		assert.False(t, got.IsClosed)
		assert.False(t, got.Courses[0].IsClosed)
	})

	t.Run("last date today is still open", func(t *testing.T) {
		env := testutil.NewEnv(t)
		env.SeedReference()
		adm, err := env.Admissions.Create(ctx, admission.NewAdmission{
			AcademicYearID: 7,
			StartDate:      today.AddDate(0, 0, -5),
			LastDate:       today,
		})
		require.NoError(t, err)
		got, err := env.Admissions.ReconcileAndFetch(ctx, adm.ID)
		require.NoError(t, err)
		assert.False(t, got.IsClosed)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.Admissions.ReconcileAndFetch(ctx, 999)
		assert.Equal(t, admission.ErrNotFound, err)
	})
}

func TestCloseExpired(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()

	today := core.Today()
	_, err := env.Admissions.Create(ctx, admission.NewAdmission{
		AcademicYearID: 6,
		StartDate:      today.AddDate(0, -2, 0),
		LastDate:       today.AddDate(0, 0, -3),
	})
	require.NoError(t, err)
	env.CreateAdmission(t, 7)

	n, err := env.Admissions.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = env.Admissions.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestToggleClosed(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1, 2)

	got, err := env.Admissions.ToggleClosed(ctx, adm.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)
	for _, c := range got.Courses {
		assert.True(t, c.IsClosed)
	}

	got, err = env.Admissions.ToggleClosed(ctx, adm.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsClosed)
	for _, c := range got.Courses {
		assert.False(t, c.IsClosed)
	}

	_, err = env.Admissions.ToggleClosed(ctx, 999, true)
	assert.Equal(t, admission.ErrNotFound, err)
}

func TestDisableCourse(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1, 2)

	course, err := env.Admissions.DisableCourse(ctx, adm.Courses[0].ID)
	require.NoError(t, err)
	assert.True(t, course.Disabled)
	assert.False(t, course.Available())

	got, err := env.Admissions.FindByID(ctx, adm.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed)
	assert.True(t, got.Courses[0].Disabled)
	assert.False(t, got.Courses[1].Disabled)

	course, err = env.Admissions.EnableCourse(ctx, adm.Courses[0].ID)
	require.NoError(t, err)
	assert.True(t, course.Available())

	_, err = env.Admissions.DisableCourse(ctx, 999)
	assert.Equal(t, admission.ErrCourseNotFound, err)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1)

	code := "UG-2025"
	closed := true
	got, err := env.Admissions.Update(ctx, adm.ID, admission.UpdateAdmission{AdmissionCode: &code, IsClosed: &closed})
	require.NoError(t, err)
	assert.Equal(t, code, got.AdmissionCode)
	assert.True(t, got.IsClosed)
	assert.True(t, got.Courses[0].IsClosed)

	early := adm.StartDate.AddDate(0, 0, -1)
	_, err = env.Admissions.Update(ctx, adm.ID, admission.UpdateAdmission{LastDate: &early})
	assert.True(t, errors.As(err, new(*core.ValidationError)))
}

func TestStatsAndSummary(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm6 := env.CreateAdmission(t, 6, 1)
	adm7 := env.CreateAdmission(t, 7, 1, 2)

	env.CreateForm(t, adm7.ID, "9000000001")
	paid := env.CreateForm(t, adm7.ID, "9000000002")
	env.CreateForm(t, adm6.ID, "9000000003")
	_, _, err := env.Applications.CreatePayment(ctx, paid.Form.ID, application.NewPayment{Amount: 50000, PaymentMode: "UPI"})
	require.NoError(t, err)

	stats, err := env.Admissions.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, admission.Stats{TotalAdmissions: 2, TotalApplications: 3, PaymentSuccess: 1, Draft: 2}, stats)

	sum, err := env.Admissions.Summary(ctx, core.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	require.Len(t, sum.Items, 2)
	// most recent academic year first
	assert.Equal(t, adm7.ID, sum.Items[0].AdmissionID)
	assert.Equal(t, "2025-26", sum.Items[0].AcademicYear)
	assert.Equal(t, 2, sum.Items[0].TotalForms)
	assert.Equal(t, 1, sum.Items[0].Counts.Draft)
	assert.Equal(t, 1, sum.Items[0].Counts.Paid)
	assert.Equal(t, 1, sum.Items[1].TotalForms)

	sum, err = env.Admissions.Summary(ctx, core.NewPage(2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, adm6.ID, sum.Items[0].AdmissionID)
}

func TestApplicationForms(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1, 2)

	first := env.CreateForm(t, adm.ID, "9000000001")
	nf := testutil.NewForm(adm.ID, "9000000002")
	nf.FirstName, nf.LastName = "Rahul", "Sen"
	second, err := env.Applications.CreateApplicationForm(ctx, nf)
	require.NoError(t, err)

	_, _, err = env.Applications.CreateCourseApplication(ctx, second.Form.ID, application.NewCourseApplication{AdmissionCourseID: adm.Courses[1].ID})
	require.NoError(t, err)
	_, _, err = env.Applications.CreateAcademicInfo(ctx, first.Form.ID, application.NewAcademicInfo{
		BoardUniversityID: 2,
		ResultStatus:      status.ResultPassed,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  admission.FormFilter
		wantIDs []int
	}{
		{name: "no filter", wantIDs: []int{second.Form.ID, first.Form.ID}},
		{name: "search by name", filter: admission.FormFilter{Search: "rah"}, wantIDs: []int{second.Form.ID}},
		{name: "course", filter: admission.FormFilter{Course: "english"}, wantIDs: []int{second.Form.ID}},
		{name: "board", filter: admission.FormFilter{Board: "cbse"}, wantIDs: []int{first.Form.ID}},
		{name: "category", filter: admission.FormFilter{Category: "general"}, wantIDs: []int{second.Form.ID, first.Form.ID}},
		{name: "form status", filter: admission.FormFilter{FormStatus: "draft"}, wantIDs: []int{second.Form.ID, first.Form.ID}},
		{name: "no match", filter: admission.FormFilter{Religion: "none such"}, wantIDs: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.Admissions.ApplicationForms(ctx, adm.ID, tt.filter, core.NewPage(1, 20))
			require.NoError(t, err)
			ids := make([]int, 0, len(page.Items))
			for _, it := range page.Items {
				ids = append(ids, it.FormID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), page.Total)
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		_, err := env.Admissions.ApplicationForms(ctx, adm.ID, admission.FormFilter{FormStatus: "bogus"}, core.NewPage(1, 20))
		assert.True(t, errors.As(err, new(*core.ValidationError)))
	})
	t.Run("unknown admission", func(t *testing.T) {
		_, err := env.Admissions.ApplicationForms(ctx, 999, admission.FormFilter{}, core.NewPage(1, 20))
		assert.Equal(t, admission.ErrNotFound, err)
	})
}

// corruptCache holds a damaged stats entry and nothing else.
type corruptCache struct{}

func (corruptCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	if key != core.CacheKeyAdmissionStats {
		return core.ErrCacheMiss
	}
	return json.Unmarshal([]byte(`{"total_applications": 40, "payment_success": 9, "draft": "x"}`), dest)
}

func (corruptCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (corruptCache) Delete(context.Context, ...string) error {
	return nil
}

func TestStats_CorruptCache(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, testutil.WithCache(corruptCache{}))
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1)
	env.CreateForm(t, adm.ID, "9000000001")

	stats, err := env.Admissions.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, admission.Stats{TotalAdmissions: 1, TotalApplications: 1, Draft: 1}, stats)
	assert.Contains(t, env.Logger.Messages("WARN"), "reading admission stats cache")
}

func TestApplicationForms_SearchPaddedID(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1)
	dto := env.CreateForm(t, adm.ID, "9000000001")
	env.CreateForm(t, adm.ID, "9000000002")

	page, err := env.Admissions.ApplicationForms(ctx, adm.ID, admission.FormFilter{Search: fmt.Sprintf("%04d", dto.Form.ID)}, core.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, dto.Form.ID, page.Items[0].FormID)
}
