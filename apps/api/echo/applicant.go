package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
)

type applicantApi struct {
	svc      *application.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerApplicantAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *application.Service,
	validate *validator.Validate,
) {
	api := applicantApi{svc: svc, auth: auth, validate: validate}

	ag := g.Group("/applicants")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.requestPasswordReset)
	ag.POST("/password-reset/confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
}

func (api *applicantApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.FindByLoginIDAndPassword(ctx.Request().Context(), data.Mobile, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating applicant")
	}
	token, err := api.auth.GenerateToken(api.auth.claimsFor(res))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	dto, err := api.svc.FindApplicationFormByID(ctx.Request().Context(), res.Form.ID)
	if err != nil {
		return errors.Wrap(err, "finding application form")
	}

	return respond(ctx, http.StatusOK, LoginResponse{Token: token, Form: dto})
}

func (api *applicantApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Mobile); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgResetSent})
}

func (api *applicantApi) confirmPasswordReset(ctx echo.Context) error {
	var data application.PasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordReset")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.svc.ConfirmPasswordReset(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, response{Success: true, Message: msgResetDone})
}

func (api *applicantApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	dto, err := api.svc.FindApplicationFormByID(ctx.Request().Context(), claims.FormID)
	if err != nil {
		return errors.Wrap(err, "finding application form")
	}
	return respond(ctx, http.StatusOK, dto)
}

const (
	msgResetSent = "if this mobile number is registered, a password reset link has been sent to its email"
	msgResetDone = "your password has been reset, you can now log in"
)

type (
	PasswordResetRequest struct {
		Mobile string `json:"mobile" validate:"required,mobile"`
	}

	LoginRequest struct {
		Mobile   string `json:"mobile" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string              `json:"token"`
		Form  application.FormDTO `json:"form"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Mobile = core.CleanString(lr.Mobile)
	return validate.Struct(lr)
}
