package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/lookup"
)

// Lookup endpoints answer with bare arrays.

type lookupApi struct {
	svc *lookup.Service
}

func registerLookupAPI(g *echo.Group, svc *lookup.Service) {
	api := lookupApi{svc: svc}

	g.GET("/academic-years", api.academicYears)
	g.GET("/courses", api.courses)
	g.GET("/classes", api.classes)
	g.GET("/categories", api.categories)
	g.GET("/religions", api.religions)
	g.GET("/board-universities", api.boardUniversities)
	g.GET("/institutions", api.institutions)
	g.GET("/subjects", api.subjects)
}

func list[T any](ctx echo.Context, rows []T, err error, what string) error {
	if err != nil {
		return errors.Wrap(err, "querying "+what)
	}
	if rows == nil {
		rows = []T{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *lookupApi) academicYears(ctx echo.Context) error {
	rows, err := api.svc.AcademicYears(ctx.Request().Context())
	return list(ctx, rows, err, "academic years")
}

func (api *lookupApi) courses(ctx echo.Context) error {
	rows, err := api.svc.Courses(ctx.Request().Context())
	return list(ctx, rows, err, "courses")
}

func (api *lookupApi) classes(ctx echo.Context) error {
	rows, err := api.svc.Classes(ctx.Request().Context())
	return list(ctx, rows, err, "classes")
}

func (api *lookupApi) categories(ctx echo.Context) error {
	rows, err := api.svc.Categories(ctx.Request().Context())
	return list(ctx, rows, err, "categories")
}

func (api *lookupApi) religions(ctx echo.Context) error {
	rows, err := api.svc.Religions(ctx.Request().Context())
	return list(ctx, rows, err, "religions")
}

func (api *lookupApi) boardUniversities(ctx echo.Context) error {
	rows, err := api.svc.BoardUniversities(ctx.Request().Context())
	return list(ctx, rows, err, "board universities")
}

func (api *lookupApi) institutions(ctx echo.Context) error {
	rows, err := api.svc.Institutions(ctx.Request().Context())
	return list(ctx, rows, err, "institutions")
}

func (api *lookupApi) subjects(ctx echo.Context) error {
	var filter lookup.SubjectFilter
	var err error
	if filter.CourseID, err = optionalIntQuery(ctx, "courseId"); err != nil {
		return err
	}
	if filter.ClassID, err = optionalIntQuery(ctx, "classId"); err != nil {
		return err
	}
	rows, err := api.svc.Subjects(ctx.Request().Context(), filter)
	return list(ctx, rows, err, "subjects")
}
