package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"clinic_app_echo/internal/apperr"
)

// ErrorBody is the JSON shape of every failed response
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSONErrorHandler maps application errors and echo HTTP errors onto the JSON error envelope
func JSONErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := classify(err)
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", RequestID(c.Request().Context())),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		zap.L().Error("failed to write error response", zap.Error(writeErr))
	}
}

func classify(err error) (int, ErrorBody) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		httpErr    *echo.HTTPError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, ErrorBody{
			Error:   "VALIDATION_ERROR",
			Message: "The given data was invalid.",
			Fields:  validation.Fields,
		}
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorBody{Error: "NOT_FOUND", Message: notFound.Error()}
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, ErrorBody{Error: "CONFLICT", Message: apperr.ErrConflict.Error()}
	case errors.As(err, &httpErr):
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			message = msg
		}
		code := "HTTP_ERROR"
		switch httpErr.Code {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusInternalServerError:
			code = "INTERNAL_ERROR"
			message = "Something went wrong. Please try again later."
		}
		return httpErr.Code, ErrorBody{Error: code, Message: message}
	default:
		return http.StatusInternalServerError, ErrorBody{
			Error:   "INTERNAL_ERROR",
			Message: "Something went wrong. Please try again later.",
		}
	}
}
