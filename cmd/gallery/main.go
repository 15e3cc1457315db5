package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/container"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/handlers"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/routes"
	"github.com/aziwar/dr-islam-gallery/common/bootstrap"
	"github.com/aziwar/dr-islam-gallery/common/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, redis, cache)
	components, err := bootstrap.Setup(ctx, "gallery")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap gallery: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	routes.RegisterGalleryRoutes(e, serviceContainer)

	// Serve with graceful shutdown
	srv := server.New("gallery", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "gallery",
		})
	})
}
