package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/lookup"
	"github.com/trezcool/admissions/tests"
)

func TestHome(t *testing.T) {
	_, srv := newTestServer(t)
	rec, _ := do(t, srv, httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Admissions API!", rec.Body.String())
}

func Test_applicationApi_create(t *testing.T) {
	env, srv := newTestServer(t)
	adm := env.CreateAdmission(t, 7, 1, 2)

	badMobile := testutil.NewForm(adm.ID, "12")
	mismatch := testutil.NewForm(adm.ID, "9876543210")
	mismatch.PasswordConfirm = "other"

	tests := []httpTest{
		{
			name: "invalid mobile", method: http.MethodPost, path: "/api/application-forms", body: badMobile,
			wantCode: http.StatusBadRequest,
			wantErr:  map[string]interface{}{"mobile": "enter a valid mobile number (10 to 15 digits)"},
		},
		{
			name: "password mismatch", method: http.MethodPost, path: "/api/application-forms", body: mismatch,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "created", method: http.MethodPost, path: "/api/application-forms",
			body: testutil.NewForm(adm.ID, " 9876543210 "), wantCode: http.StatusCreated,
		},
		{
			name: "already applied", method: http.MethodPost, path: "/api/application-forms",
			body: testutil.NewForm(adm.ID, "9876543210"), wantCode: http.StatusConflict,
			wantErr: application.MsgAlreadyApplied,
		},
		{
			name: "unknown admission", method: http.MethodPost, path: "/api/application-forms",
			body: testutil.NewForm(999, "9876543211"), wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, srv, tt)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode >= http.StatusBadRequest {
				assert.False(t, res.Success)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, res.Error)
				}
				return
			}
			var dto application.FormDTO
			decode(t, res.Data, &dto)
			assert.Equal(t, "ADM7-00001", dto.Form.ApplicationNumber)
			require.NotNil(t, dto.GeneralInfo)
			assert.Equal(t, "9876543210", dto.GeneralInfo.Mobile)
		})
	}
}

func Test_applicationApi_subRecords(t *testing.T) {
	env, srv := newTestServer(t)
	adm := env.CreateAdmission(t, 7, 1, 2)
	dto := env.CreateForm(t, adm.ID, "9876543210")
	base := fmt.Sprintf("/api/application-forms/%d", dto.Form.ID)

	course := application.NewCourseApplication{AdmissionCourseID: adm.Courses[0].ID, Preference: 1}
	rec, res := do(t, srv, httpTest{method: http.MethodPost, path: base + "/course-applications", body: course})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, res.Message)

	var created application.CourseApplication
	decode(t, res.Data, &created)

	// same course again answers the existing row with a message
	rec, res = do(t, srv, httpTest{method: http.MethodPost, path: base + "/course-applications", body: course})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Message)

	var existing application.CourseApplication
	decode(t, res.Data, &existing)
	assert.Equal(t, created.ID, existing.ID)

	rec, _ = do(t, srv, httpTest{
		method: http.MethodPut,
		path:   fmt.Sprintf("%s/course-applications/%d", base, created.ID),
		body:   echoapi.PreferenceRequest{Preference: 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = do(t, srv, httpTest{method: http.MethodDelete, path: fmt.Sprintf("%s/course-applications/%d", base, created.ID)})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, res = do(t, srv, httpTest{path: base})
	require.Equal(t, http.StatusOK, rec.Code)
	var got application.FormDTO
	decode(t, res.Data, &got)
	assert.Empty(t, got.CourseApplications)

	rec, _ = do(t, srv, httpTest{method: http.MethodDelete, path: base})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, res = do(t, srv, httpTest{path: base})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, res.Success)
}

func Test_applicantApi(t *testing.T) {
	env, srv := newTestServer(t)
	adm := env.CreateAdmission(t, 7, 1)
	dto := env.CreateForm(t, adm.ID, "9876543210")

	login := func(pwd string) (int, envelope) {
		rec, res := do(t, srv, httpTest{
			method: http.MethodPost,
			path:   "/api/applicants/login",
			body:   echoapi.LoginRequest{Mobile: "9876543210", Password: pwd},
		})
		return rec.Code, res
	}

	code, res := login("wrong-password")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, application.ErrInvalidCredentials.Error(), res.Error)

	code, res = login("kolkata2025")
	require.Equal(t, http.StatusOK, code)
	var lr echoapi.LoginResponse
	decode(t, res.Data, &lr)
	require.NotEmpty(t, lr.Token)
	assert.Equal(t, dto.Form.ID, lr.Form.Form.ID)

	tests := []httpTest{
		{name: "missing token", path: "/api/applicants/me", wantCode: http.StatusUnauthorized, wantErr: "missing or malformed jwt"},
		{name: "invalid token", path: "/api/applicants/me", token: "not.a.jwt", wantCode: http.StatusUnauthorized, wantErr: "invalid or expired jwt"},
		{name: "me", path: "/api/applicants/me", token: lr.Token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, srv, tt)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, res.Error)
				return
			}
			var me application.FormDTO
			decode(t, res.Data, &me)
			assert.Equal(t, dto.Form.ID, me.Form.ID)
			assert.Equal(t, "ADM7-00001", me.Form.ApplicationNumber)
		})
	}
}

func Test_admissionApi(t *testing.T) {
	env, srv := newTestServer(t)
	today := core.Today()

	body := echoapi.NewAdmissionRequest{
		AcademicYearID: 7,
		AdmissionCode:  "UG2025",
		StartDate:      today.Format("2006-01-02"),
		LastDate:       today.AddDate(0, 1, 0).Format("2006-01-02"),
		CourseIDs:      []int{1, 2},
	}
	rec, res := do(t, srv, httpTest{method: http.MethodPost, path: "/api/admissions", body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var adm admission.Admission
	decode(t, res.Data, &adm)
	assert.Equal(t, "UG2025", adm.AdmissionCode)
	assert.Len(t, adm.Courses, 2)

	rec, res = do(t, srv, httpTest{method: http.MethodPost, path: "/api/admissions", body: body})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Error, "academic_year_id")

	env.CreateForm(t, adm.ID, "9876543210")

	tests := []httpTest{
		{name: "retrieve", path: fmt.Sprintf("/api/admissions/%d", adm.ID), wantCode: http.StatusOK},
		{name: "by year", path: "/api/admissions/year/7", wantCode: http.StatusOK},
		{name: "bad id", path: "/api/admissions/abc", wantCode: http.StatusNotFound},
		{name: "unknown id", path: "/api/admissions/999", wantCode: http.StatusNotFound},
		{name: "stats", path: "/api/admissions/stats", wantCode: http.StatusOK},
		{name: "forms", path: fmt.Sprintf("/api/admissions/%d/forms?page=1&size=10", adm.ID), wantCode: http.StatusOK},
		{name: "forms bad page", path: fmt.Sprintf("/api/admissions/%d/forms?page=x", adm.ID), wantCode: http.StatusBadRequest},
		{name: "courses", path: fmt.Sprintf("/api/admissions/%d/courses", adm.ID), wantCode: http.StatusOK},
		{name: "close", method: http.MethodPost, path: fmt.Sprintf("/api/admissions/close/%d", adm.ID), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, srv, tt)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode < http.StatusBadRequest, res.Success)
		})
	}

	closed, err := env.Admissions.FindByID(context.Background(), adm.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)

	var stats admission.Stats
	_, res = do(t, srv, httpTest{path: "/api/admissions/stats"})
	decode(t, res.Data, &stats)
	assert.Equal(t, 1, stats.TotalAdmissions)
	assert.Equal(t, 1, stats.TotalApplications)
}

func Test_lookupApi(t *testing.T) {
	_, srv := newTestServer(t)

	rec, _ := do(t, srv, httpTest{path: "/api/courses"})
	require.Equal(t, http.StatusOK, rec.Code)
	var courses []lookup.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	assert.Len(t, courses, 3)

	rec, _ = do(t, srv, httpTest{path: "/api/subjects?courseId=1&classId=1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var subjects []lookup.Subject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subjects))
	assert.Len(t, subjects, 2)

	rec, res := do(t, srv, httpTest{path: "/api/subjects?courseId=abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"courseId": "invalid value"}, res.Error)
}

func Test_dashboardApi(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []httpTest{
		{name: "fees without student", path: "/api/fees", wantCode: http.StatusBadRequest},
		{name: "fees unknown student", path: "/api/fees?studentId=42", wantCode: http.StatusNotFound},
		{name: "exams unknown student", path: "/api/exams?studentId=42", wantCode: http.StatusNotFound},
		{name: "attendance bad date", path: "/api/attendance?studentId=42&from=yesterday", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, srv, tt)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.False(t, res.Success)
		})
	}
}

func Test_applicantApi_passwordReset(t *testing.T) {
	env, srv := newTestServer(t)
	adm := env.CreateAdmission(t, 7, 1)
	dto := env.CreateForm(t, adm.ID, "9876543210")
	uid := application.EncodeFormID(dto.Form.ID)

	tests := []httpTest{
		{
			name: "request", method: http.MethodPost, path: "/api/applicants/password-reset",
			body: echoapi.PasswordResetRequest{Mobile: "9876543210"}, wantCode: http.StatusOK,
		},
		{
			name: "request unknown mobile", method: http.MethodPost, path: "/api/applicants/password-reset",
			body: echoapi.PasswordResetRequest{Mobile: "9000000000"}, wantCode: http.StatusOK,
		},
		{
			name: "weak password", method: http.MethodPost, path: "/api/applicants/password-reset/confirm",
			body:     application.PasswordReset{UID: uid, Token: "x-y", Password: "12345678", PasswordConfirm: "12345678"},
			wantCode: http.StatusBadRequest,
			wantErr:  map[string]interface{}{"password": "password cannot be entirely numeric"},
		},
		{
			name: "bad token", method: http.MethodPost, path: "/api/applicants/password-reset/confirm",
			body:     application.PasswordReset{UID: uid, Token: "x-y", Password: "salt-lake-42", PasswordConfirm: "salt-lake-42"},
			wantCode: http.StatusBadRequest,
			wantErr:  map[string]interface{}{"token": application.ErrInvalidResetToken.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, srv, tt)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, res.Error)
				return
			}
			assert.True(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}
