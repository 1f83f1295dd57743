package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"clinic_app_echo/internal/apperr"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type dataBody struct {
	Data interface{} `json:"data"`
}

type pagedBody struct {
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, dataBody{Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, dataBody{Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, perPage int) error {
	return c.JSON(http.StatusOK, pagedBody{Data: data, Total: total, Page: page, PerPage: perPage})
}

// parsePagination reads page and per_page, falling back to defaults on junk input
func parsePagination(c echo.Context) (page, perPage int) {
	page = cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage = cast.ToInt(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func offset(page, perPage int) int {
	return (page - 1) * perPage
}

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// bind decodes the request into payload. A JSON value of the wrong type
// becomes a field error keyed by the JSON field name; malformed JSON stays a 400.
func bind(c echo.Context, payload interface{}) error {
	err := c.Bind(payload)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.Invalid(typeErr.Field, typeMessage(typeErr.Type))
	}
	return err
}

func typeMessage(t reflect.Type) string {
	if t == nil {
		return "has the wrong type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be a whole number"
	case reflect.Float32, reflect.Float64:
		return "must be a number"
	case reflect.Slice, reflect.Array:
		return "must be a list"
	case reflect.String:
		return "must be text"
	}
	return "has the wrong type"
}

// bindAndValidate binds the request body and runs struct validation. extra
// adds checks the struct tags cannot express; its findings are merged in.
func bindAndValidate(c echo.Context, payload interface{}, extra func(v *apperr.ValidationError)) error {
	if err := bind(c, payload); err != nil {
		return err
	}

	v := &apperr.ValidationError{}
	if err := c.Validate(payload); err != nil {
		fieldErr, isValidation := err.(*apperr.ValidationError)
		if !isValidation {
			return err
		}
		v = fieldErr
	}
	if extra != nil {
		extra(v)
	}
	return v.OrNil()
}
