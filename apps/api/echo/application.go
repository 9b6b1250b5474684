package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/application"
)

type applicationApi struct {
	svc      *application.Service
	validate *validator.Validate
}

func registerApplicationAPI(g *echo.Group, svc *application.Service, validate *validator.Validate) {
	api := applicationApi{svc: svc, validate: validate}

	fg := g.Group("/application-forms")
	fg.POST("", api.create)

	// detail endpoints
	dg := fg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	dg.PUT("/general-info", api.updateGeneralInfo)
	dg.POST("/academic-info", api.createAcademicInfo)
	dg.PUT("/academic-info/:infoId", api.updateAcademicInfo)
	dg.POST("/additional-info", api.createAdditionalInfo)
	dg.PUT("/additional-info", api.updateAdditionalInfo)
	dg.POST("/course-applications", api.createCourseApplication)
	dg.PUT("/course-applications/:caId", api.updateCoursePreference)
	dg.DELETE("/course-applications/:caId", api.destroyCourseApplication)
	dg.POST("/payment", api.createPayment)
	dg.PUT("/payment", api.recordGatewayStatus)
}

// Handlers

func (api *applicationApi) create(ctx echo.Context) error {
	var data application.NewApplicationForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplicationForm")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	dto, err := api.svc.CreateApplicationForm(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating application form")
	}
	return respond(ctx, http.StatusCreated, dto)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	dto, err := api.svc.FindApplicationFormByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding application form")
	}
	return respond(ctx, http.StatusOK, dto)
}

func (api *applicationApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.UpdateApplicationForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateApplicationForm")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	form, err := api.svc.UpdateApplicationForm(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating application form")
	}
	return respond(ctx, http.StatusOK, form)
}

func (api *applicationApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteApplicationForm(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting application form")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *applicationApi) updateGeneralInfo(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.UpdateGeneralInfo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGeneralInfo")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	gi, err := api.svc.UpdateGeneralInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating general info")
	}
	return respond(ctx, http.StatusOK, gi)
}

func (api *applicationApi) createAcademicInfo(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.NewAcademicInfo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicInfo")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ai, dup, err := api.svc.CreateAcademicInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating academic info")
	}
	return respondCreated(ctx, ai, dup)
}

func (api *applicationApi) updateAcademicInfo(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	infoID, err := paramID(ctx, "infoId")
	if err != nil {
		return err
	}
	var data application.NewAcademicInfo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicInfo")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ai, err := api.svc.UpdateAcademicInfo(ctx.Request().Context(), id, infoID, data)
	if err != nil {
		return errors.Wrap(err, "updating academic info")
	}
	return respond(ctx, http.StatusOK, ai)
}

func (api *applicationApi) createAdditionalInfo(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.NewAdditionalInfo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdditionalInfo")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ai, dup, err := api.svc.CreateAdditionalInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating additional info")
	}
	return respondCreated(ctx, ai, dup)
}

func (api *applicationApi) updateAdditionalInfo(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.NewAdditionalInfo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdditionalInfo")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ai, err := api.svc.UpdateAdditionalInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating additional info")
	}
	return respond(ctx, http.StatusOK, ai)
}

func (api *applicationApi) createCourseApplication(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.NewCourseApplication
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourseApplication")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ca, dup, err := api.svc.CreateCourseApplication(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating course application")
	}
	return respondCreated(ctx, ca, dup)
}

func (api *applicationApi) updateCoursePreference(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	caID, err := paramID(ctx, "caId")
	if err != nil {
		return err
	}
	var data PreferenceRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreferenceRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ca, err := api.svc.UpdateCoursePreference(ctx.Request().Context(), id, caID, data.Preference)
	if err != nil {
		return errors.Wrap(err, "updating course preference")
	}
	return respond(ctx, http.StatusOK, ca)
}

func (api *applicationApi) destroyCourseApplication(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	caID, err := paramID(ctx, "caId")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourseApplication(ctx.Request().Context(), id, caID); err != nil {
		return errors.Wrap(err, "deleting course application")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *applicationApi) createPayment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.NewPayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	pay, dup, err := api.svc.CreatePayment(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return respondCreated(ctx, pay, dup)
}

func (api *applicationApi) recordGatewayStatus(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data application.GatewayUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GatewayUpdate")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	pay, err := api.svc.RecordGatewayStatus(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "recording gateway status")
	}
	return respond(ctx, http.StatusOK, pay)
}

type PreferenceRequest struct {
	Preference int `json:"preference" validate:"required,gte=1,lte=10"`
}
