package routes

import (
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/container"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/handlers"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterGalleryRoutes registers all gallery routes.
// The method+path table here is the authoritative routing contract.
func RegisterGalleryRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewGalleryHandler(
		c.GalleryService,
		c.AuthGate,
		c.BlobStore,
		c.Components.Config.Gallery.DefaultPublicSize,
		c.Components.Logger,
	)

	requireAdmin := middleware.RequireAdmin(c.AuthGate)

	api := e.Group("/api/gallery")
	{
		api.POST("/upload", h.Upload, requireAdmin)       // POST   /api/gallery/upload
		api.GET("/list", h.List, requireAdmin)            // GET    /api/gallery/list
		api.GET("/public", h.Public)                      // GET    /api/gallery/public (no auth)
		api.POST("/approve/:id", h.Approve, requireAdmin) // POST   /api/gallery/approve/:id
		api.DELETE("/delete/:id", h.Delete, requireAdmin) // DELETE /api/gallery/delete/:id
		api.GET("/csrf", h.CSRF, requireAdmin)            // GET    /api/gallery/csrf
	}

	e.GET("/assets/*", h.Asset)
	e.GET("/admin/gallery", h.Console, requireAdmin)
}
