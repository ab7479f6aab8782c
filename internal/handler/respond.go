// Package handler contains the HTTP handlers.  All API responses use the
// same envelope: {"success": bool, "message": string, "data": ...}.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{Success: true, Message: message, Data: data})
}

func respondErr(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Success: false, Message: message})
}

// getUserID reads the authenticated user set by the JWT middleware.
func getUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok
}

// Health is the liveness endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
