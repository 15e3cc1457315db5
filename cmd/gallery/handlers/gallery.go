package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/service"
	"github.com/aziwar/dr-islam-gallery/common/clients"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/labstack/echo/v4"
)

// GalleryHandler handles gallery case requests
type GalleryHandler struct {
	svc         *service.GalleryService
	gate        *service.AuthGate
	blobs       clients.BlobStore
	publicLimit int // default page size for the public listing
	log         *logger.Logger
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(svc *service.GalleryService, gate *service.AuthGate, blobs clients.BlobStore, publicLimit int, log *logger.Logger) *GalleryHandler {
	return &GalleryHandler{
		svc:         svc,
		gate:        gate,
		blobs:       blobs,
		publicLimit: publicLimit,
		log:         log,
	}
}

// checkCSRF validates the X-CSRF-Token header against the caller's session
// when one is supplied. Clients authenticating with the bearer token alone
// (no CSRF header) pass through; the browser console always sends both.
func (h *GalleryHandler) checkCSRF(c echo.Context) error {
	token := c.Request().Header.Get("X-CSRF-Token")
	if token == "" || h.gate == nil {
		return nil
	}

	sessionID := c.Request().Header.Get("X-Session-ID")
	if !h.gate.ValidateCSRF(c.Request().Context(), sessionID, token) {
		return models.ErrInvalidCSRF
	}

	return nil
}

// Upload handles case creation
// POST /api/gallery/upload (admin)
func (h *GalleryHandler) Upload(c echo.Context) error {
	if err := h.checkCSRF(c); err != nil {
		return errorResponse(c, err)
	}

	before, beforeType := readFormFile(c, "beforeImage")
	after, afterType := readFormFile(c, "afterImage")

	sessionID := c.Request().Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = c.FormValue("sessionId")
	}

	input := service.UploadInput{
		Before: service.UploadImage{Data: before, DeclaredType: beforeType},
		After:  service.UploadImage{Data: after, DeclaredType: afterType},
		Metadata: models.CaseMetadata{
			Title:          c.FormValue("title"),
			Category:       c.FormValue("category"),
			Description:    c.FormValue("description"),
			TreatmentType:  c.FormValue("treatmentType"),
			UploadedBy:     c.FormValue("uploadedBy"),
			PatientConsent: c.FormValue("patientConsent") == "true",
			SessionID:      sessionID,
		},
	}

	result, err := h.svc.UploadCase(c.Request().Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"caseId":  result.CaseID,
		"message": result.Message,
	})
}

// List lists cases for the admin console
// GET /api/gallery/list?status=&limit=&offset= (admin)
func (h *GalleryHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	cases, err := h.svc.ListCases(c.Request().Context(), status, limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"cases":   cases,
		"total":   len(cases),
	})
}

// Public lists approved cases with public-safe fields
// GET /api/gallery/public?category=&limit= (no auth)
func (h *GalleryHandler) Public(c echo.Context) error {
	category := c.QueryParam("category")
	limit := queryInt(c, "limit", h.publicLimit)

	cases, err := h.svc.PublicGallery(c.Request().Context(), category, limit)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"cases":   cases,
		"total":   len(cases),
	})
}

// Approve transitions a case to approved
// POST /api/gallery/approve/:id (admin)
func (h *GalleryHandler) Approve(c echo.Context) error {
	if err := h.checkCSRF(c); err != nil {
		return errorResponse(c, err)
	}

	caseID := c.Param("id")

	var body struct {
		ApprovedBy string `json:"approvedBy"`
	}
	_ = c.Bind(&body) // empty body is fine, actor defaults to admin

	if err := h.svc.Approve(c.Request().Context(), caseID, body.ApprovedBy); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Case approved successfully",
	})
}

// Delete removes a case
// DELETE /api/gallery/delete/:id (admin)
func (h *GalleryHandler) Delete(c echo.Context) error {
	if err := h.checkCSRF(c); err != nil {
		return errorResponse(c, err)
	}

	caseID := c.Param("id")

	if err := h.svc.Delete(c.Request().Context(), caseID, c.FormValue("deletedBy")); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Case deleted successfully",
	})
}

// CSRF issues a CSRF token for the caller's session
// GET /api/gallery/csrf?sessionId= (admin)
func (h *GalleryHandler) CSRF(c echo.Context) error {
	sessionID := c.QueryParam("sessionId")
	if sessionID == "" {
		sessionID = c.Request().Header.Get("X-Session-ID")
	}
	if sessionID == "" {
		return errorResponse(c, models.ErrInvalidFile)
	}

	token, err := h.gate.IssueCSRF(c.Request().Context(), sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   token,
	})
}

// Asset serves a stored image blob with its persisted headers.
// GET /assets/* (no auth)
func (h *GalleryHandler) Asset(c echo.Context) error {
	key := "assets/" + c.Param("*")

	data, meta, err := h.blobs.Get(c.Request().Context(), key)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false,
			"error":   "asset not found",
		})
	}

	if meta.CacheControl != "" {
		c.Response().Header().Set("Cache-Control", meta.CacheControl)
	}

	return c.Blob(http.StatusOK, meta.ContentType, data)
}

// readFormFile reads one multipart file, returning nil bytes when absent.
// Presence checks belong to the service layer.
func readFormFile(c echo.Context, field string) ([]byte, string) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, ""
	}

	data, contentType := readMultipartFile(fh)
	return data, contentType
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, string) {
	f, err := fh.Open()
	if err != nil {
		return nil, ""
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, ""
	}

	return data, fh.Header.Get("Content-Type")
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}

// errorResponse maps a pipeline error to its HTTP status with the standard
// {success:false, error} body. 5xx bodies carry only the sentinel message;
// wrapped driver details stay in the logs.
func errorResponse(c echo.Context, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		switch {
		case errors.Is(err, models.ErrStoreRead):
			msg = models.ErrStoreRead.Error()
		case errors.Is(err, models.ErrStoreWrite):
			msg = models.ErrStoreWrite.Error()
		default:
			msg = "Internal server error"
		}
	}

	return c.JSON(status, echo.Map{
		"success": false,
		"error":   msg,
	})
}

// HTTPErrorHandler renders errors raised outside the handlers, unknown routes
// and disallowed methods included, with the same {success:false, error} body
// the handlers use.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(status)
		}
	} else if s := StatusFor(err); s != http.StatusInternalServerError {
		status = s
		msg = err.Error()
	}

	_ = c.JSON(status, echo.Map{
		"success": false,
		"error":   msg,
	})
}

// StatusFor maps sentinel errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidFile),
		errors.Is(err, models.ErrUnsupportedFormat),
		errors.Is(err, models.ErrFileTooLarge),
		errors.Is(err, models.ErrSignatureMismatch),
		errors.Is(err, models.ErrThreatDetected):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMissingToken),
		errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidCSRF):
		return http.StatusForbidden
	case errors.Is(err, models.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrProcessingTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
