package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/prankvzlom/sitelog/internal/response"
)

// Health answers GET /health. It does not touch the relay or geo services.
func Health(c echo.Context) error {
	return response.OK(c, map[string]string{"status": response.StatusOK})
}
