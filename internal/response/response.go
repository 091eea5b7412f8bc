package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is returned by the logging endpoint on every rejection.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusBody is returned once the relay has been attempted.
type StatusBody struct {
	Status string `json:"status"`
}

const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// Error sends {"error": message} with the given status code.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorBody{Error: message})
}

// Status sends {"status": value} with the given status code.
func Status(c echo.Context, status int, value string) error {
	return c.JSON(status, StatusBody{Status: value})
}

// OK sends 200 with data as the body.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func MethodNotAllowed(c echo.Context) error {
	return Error(c, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func Forbidden(c echo.Context, message string) error {
	return Error(c, http.StatusForbidden, message)
}

func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message)
}

func InternalError(c echo.Context, message string) error {
	return Error(c, http.StatusInternalServerError, message)
}
