package middleware

import (
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/handlers"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/service"
	"github.com/labstack/echo/v4"
)

// RequireAdmin enforces the admin auth gate before the handler runs.
// Denials are surfaced before any file processing starts, so unauthorized
// uploads never reach the validator.
func RequireAdmin(gate *service.AuthGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			clientIP := c.RealIP()

			if err := gate.Authorize(c.Request().Context(), authHeader, clientIP); err != nil {
				return c.JSON(handlers.StatusFor(err), echo.Map{
					"success": false,
					"error":   err.Error(),
				})
			}

			return next(c)
		}
	}
}
