package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

const dateLayout = "2006-01-02"

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, response{Success: true, Data: data})
}

// respondCreated answers 201, or 200 with a message when the create found an existing row.
func respondCreated(ctx echo.Context, data interface{}, dup *core.Duplicate) error {
	if dup != nil {
		return ctx.JSON(http.StatusOK, response{Success: true, Data: data, Message: dup.Message})
	}
	return ctx.JSON(http.StatusCreated, response{Success: true, Data: data})
}

// paramID reads a numeric path parameter; anything else is a 404.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func bindPage(ctx echo.Context) (core.Page, error) {
	var number, size int
	err := echo.QueryParamsBinder(ctx).
		Int("page", &number).
		Int("size", &size).
		BindError()
	if err != nil {
		return core.Page{}, queryErr(err)
	}
	return core.NewPage(number, size), nil
}

// requiredIntQuery reads a mandatory positive integer query parameter.
func requiredIntQuery(ctx echo.Context, name string) (int, error) {
	var v int
	if err := echo.QueryParamsBinder(ctx).MustInt(name, &v).BindError(); err != nil {
		return 0, queryErr(err)
	}
	if v < 1 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return v, nil
}

func optionalIntQuery(ctx echo.Context, name string) (*int, error) {
	if ctx.QueryParam(name) == "" {
		return nil, nil
	}
	var v int
	if err := echo.QueryParamsBinder(ctx).Int(name, &v).BindError(); err != nil {
		return nil, queryErr(err)
	}
	return &v, nil
}

func optionalDateQuery(ctx echo.Context, name string) (*time.Time, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	d, err := parseDate(name, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseDate accepts "2006-01-02" or RFC 3339 and returns the calendar date.
func parseDate(field, s string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return core.DateOf(t), nil
	}
	return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "enter a valid date (YYYY-MM-DD)"})
}

func queryErr(err error) error {
	var bErr *echo.BindingError
	if errors.As(err, &bErr) && len(bErr.Field) > 0 {
		return core.NewValidationError(nil, core.FieldError{Field: bErr.Field, Error: "invalid value"})
	}
	return core.NewValidationError(errors.Wrap(err, "binding query"))
}
