package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
)

type dashboardApi struct {
	fees  *fees.Service
	exams *exam.Service
}

func registerDashboardAPI(g *echo.Group, feesSvc *fees.Service, examSvc *exam.Service) {
	api := dashboardApi{fees: feesSvc, exams: examSvc}

	g.GET("/fees", api.studentFees)
	g.GET("/exams", api.studentExams)
	g.GET("/attendance", api.studentAttendance)
}

func (api *dashboardApi) studentFees(ctx echo.Context) error {
	studentID, err := requiredIntQuery(ctx, "studentId")
	if err != nil {
		return err
	}
	sf, err := api.fees.StudentFees(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing student fees")
	}
	return respond(ctx, http.StatusOK, sf)
}

func (api *dashboardApi) studentExams(ctx echo.Context) error {
	studentID, err := requiredIntQuery(ctx, "studentId")
	if err != nil {
		return err
	}
	exams, err := api.exams.StudentExams(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "listing student exams")
	}
	return respond(ctx, http.StatusOK, exams)
}

func (api *dashboardApi) studentAttendance(ctx echo.Context) error {
	studentID, err := requiredIntQuery(ctx, "studentId")
	if err != nil {
		return err
	}
	from, err := optionalDateQuery(ctx, "from")
	if err != nil {
		return err
	}
	to, err := optionalDateQuery(ctx, "to")
	if err != nil {
		return err
	}

	att, err := api.exams.StudentAttendance(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return respond(ctx, http.StatusOK, att)
}
