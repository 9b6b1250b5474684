package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/admission"
)

type admissionApi struct {
	svc      *admission.Service
	validate *validator.Validate
}

func registerAdmissionAPI(g *echo.Group, svc *admission.Service, validate *validator.Validate) {
	api := admissionApi{svc: svc, validate: validate}

	ag := g.Group("/admissions")
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/stats", api.stats)
	ag.GET("/summary", api.summary)
	ag.GET("/year/:yearId", api.retrieveByYear)
	ag.POST("/close/:id", api.toggleClosed)
	ag.POST("/courses/:courseId/disable", api.disableCourse)
	ag.POST("/courses/:courseId/enable", api.enableCourse)
	ag.POST("/courses/:courseId/close", api.closeCourse)
	ag.POST("/courses/:courseId/open", api.openCourse)

	// detail endpoints
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.GET("/:id/forms", api.queryForms)
	ag.GET("/:id/courses", api.queryCourses)
}

// Handlers

func (api *admissionApi) query(ctx echo.Context) error {
	adms, err := api.svc.FindAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying admissions")
	}
	if adms == nil {
		adms = []admission.Admission{}
	}
	return respond(ctx, http.StatusOK, adms)
}

func (api *admissionApi) create(ctx echo.Context) error {
	var data NewAdmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmissionRequest")
	}
	na, err := data.Parse()
	if err != nil {
		return err
	}
	if err = api.validate.Struct(na); err != nil {
		return err
	}

	adm, err := api.svc.CreateWithCourses(ctx.Request().Context(), na)
	if err != nil {
		return errors.Wrap(err, "creating admission")
	}
	return respond(ctx, http.StatusCreated, adm)
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	adm, err := api.svc.FindByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding admission")
	}
	return respond(ctx, http.StatusOK, adm)
}

func (api *admissionApi) retrieveByYear(ctx echo.Context) error {
	yearID, err := paramID(ctx, "yearId")
	if err != nil {
		return err
	}
	adm, err := api.svc.FindByYear(ctx.Request().Context(), yearID)
	if err != nil {
		return errors.Wrap(err, "finding admission by year")
	}
	return respond(ctx, http.StatusOK, adm)
}

func (api *admissionApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data UpdateAdmissionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAdmissionRequest")
	}
	ua, err := data.Parse()
	if err != nil {
		return err
	}
	if err = api.validate.Struct(ua); err != nil {
		return err
	}

	adm, err := api.svc.Update(ctx.Request().Context(), id, ua)
	if err != nil {
		return errors.Wrap(err, "updating admission")
	}
	return respond(ctx, http.StatusOK, adm)
}

func (api *admissionApi) toggleClosed(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data ToggleClosedRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleClosedRequest")
	}
	closed := true // a missing body closes
	if data.IsClosed != nil {
		closed = *data.IsClosed
	}

	adm, err := api.svc.ToggleClosed(ctx.Request().Context(), id, closed)
	if err != nil {
		return errors.Wrap(err, "toggling admission closed")
	}
	return respond(ctx, http.StatusOK, adm)
}

func (api *admissionApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing admission stats")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (api *admissionApi) summary(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Summary(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "summarizing admissions")
	}
	return respond(ctx, http.StatusOK, sum)
}

func (api *admissionApi) queryForms(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	var filter admission.FormFilter
	if err = (&echo.DefaultBinder{}).BindQueryParams(ctx, &filter); err != nil {
		return queryErr(err)
	}

	forms, err := api.svc.ApplicationForms(ctx.Request().Context(), id, filter, page)
	if err != nil {
		return errors.Wrap(err, "listing application forms")
	}
	return respond(ctx, http.StatusOK, forms)
}

func (api *admissionApi) queryCourses(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	courses, err := api.svc.Courses(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying admission courses")
	}
	if courses == nil {
		courses = []admission.AdmissionCourse{}
	}
	return respond(ctx, http.StatusOK, courses)
}

func (api *admissionApi) courseAction(ctx echo.Context, action func(id int) (admission.AdmissionCourse, error)) error {
	id, err := paramID(ctx, "courseId")
	if err != nil {
		return err
	}
	course, err := action(id)
	if err != nil {
		return errors.Wrap(err, "updating admission course")
	}
	return respond(ctx, http.StatusOK, course)
}

func (api *admissionApi) disableCourse(ctx echo.Context) error {
	return api.courseAction(ctx, func(id int) (admission.AdmissionCourse, error) {
		return api.svc.DisableCourse(ctx.Request().Context(), id)
	})
}

func (api *admissionApi) enableCourse(ctx echo.Context) error {
	return api.courseAction(ctx, func(id int) (admission.AdmissionCourse, error) {
		return api.svc.EnableCourse(ctx.Request().Context(), id)
	})
}

func (api *admissionApi) closeCourse(ctx echo.Context) error {
	return api.courseAction(ctx, func(id int) (admission.AdmissionCourse, error) {
		return api.svc.CloseCourse(ctx.Request().Context(), id)
	})
}

func (api *admissionApi) openCourse(ctx echo.Context) error {
	return api.courseAction(ctx, func(id int) (admission.AdmissionCourse, error) {
		return api.svc.OpenCourse(ctx.Request().Context(), id)
	})
}

type (
	// NewAdmissionRequest carries dates as "YYYY-MM-DD" strings.
	NewAdmissionRequest struct {
		AcademicYearID int    `json:"academic_year_id"`
		AdmissionCode  string `json:"admission_code"`
		StartDate      string `json:"start_date"`
		LastDate       string `json:"last_date"`
		CourseIDs      []int  `json:"course_ids"`
	}

	UpdateAdmissionRequest struct {
		AdmissionCode *string `json:"admission_code"`
		StartDate     string  `json:"start_date"`
		LastDate      string  `json:"last_date"`
		Archived      *bool   `json:"archived"`
		IsClosed      *bool   `json:"is_closed"`
	}

	ToggleClosedRequest struct {
		IsClosed *bool `json:"is_closed"`
	}
)

func (r NewAdmissionRequest) Parse() (admission.NewAdmission, error) {
	na := admission.NewAdmission{
		AcademicYearID: r.AcademicYearID,
		AdmissionCode:  r.AdmissionCode,
		CourseIDs:      r.CourseIDs,
	}
	var err error
	if r.StartDate != "" {
		if na.StartDate, err = parseDate("start_date", r.StartDate); err != nil {
			return na, err
		}
	}
	if r.LastDate != "" {
		if na.LastDate, err = parseDate("last_date", r.LastDate); err != nil {
			return na, err
		}
	}
	return na, nil
}

func (r UpdateAdmissionRequest) Parse() (admission.UpdateAdmission, error) {
	ua := admission.UpdateAdmission{
		AdmissionCode: r.AdmissionCode,
		Archived:      r.Archived,
		IsClosed:      r.IsClosed,
	}
	if r.StartDate != "" {
		d, err := parseDate("start_date", r.StartDate)
		if err != nil {
			return ua, err
		}
		ua.StartDate = &d
	}
	if r.LastDate != "" {
		d, err := parseDate("last_date", r.LastDate)
		if err != nil {
			return ua, err
		}
		ua.LastDate = &d
	}
	return ua, nil
}
