package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/service"
	"github.com/aziwar/dr-islam-gallery/common/clients"
	"github.com/aziwar/dr-islam-gallery/common/config"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct{ err error }

func (s *stubValidator) Validate(ctx context.Context, data []byte, declaredType, sessionID string) error {
	return s.err
}

type stubProcessor struct{}

func (s *stubProcessor) Process(ctx context.Context, data []byte, baseName string) (models.ImageSet, error) {
	return models.ImageSet{
		Original:   "assets/" + baseName + ".webp",
		Responsive: map[string]string{},
	}, nil
}

type stubStore struct {
	cases       map[string]*models.Case
	public      []models.PublicCase
	publicErr   error
	publicLimit int // last limit passed to ListPublic
}

func newStubStore() *stubStore {
	return &stubStore{cases: make(map[string]*models.Case)}
}

func (s *stubStore) Create(ctx context.Context, c *models.Case) error {
	s.cases[c.ID] = c
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	return c, nil
}

func (s *stubStore) List(ctx context.Context, status string, limit, offset int) ([]*models.Case, error) {
	out := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubStore) ListPublic(ctx context.Context, category string, limit int) ([]models.PublicCase, error) {
	s.publicLimit = limit
	if s.publicErr != nil {
		return nil, s.publicErr
	}
	return s.public, nil
}

func (s *stubStore) Approve(ctx context.Context, id, approvedBy string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	c.Status = models.StatusApproved
	return c, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.cases[id]; !ok {
		return models.ErrCaseNotFound
	}
	delete(s.cases, id)
	return nil
}

type stubBlobStore struct {
	objects map[string][]byte
	meta    map[string]clients.BlobMetadata
}

func (s *stubBlobStore) Put(ctx context.Context, key string, data []byte, meta clients.BlobMetadata) error {
	s.objects[key] = data
	s.meta[key] = meta
	return nil
}

func (s *stubBlobStore) Get(ctx context.Context, key string) ([]byte, clients.BlobMetadata, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, clients.BlobMetadata{}, errors.New("not found")
	}
	return data, s.meta[key], nil
}

func (s *stubBlobStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func newTestHandler(validator service.Validator, store service.CaseStore) *GalleryHandler {
	log := logger.New("error", "json")
	svc := service.NewGalleryService(validator, &stubProcessor{}, store, nil, nil, time.Minute, log)
	blobs := &stubBlobStore{
		objects: map[string][]byte{"assets/case_1_before.webp": []byte("webp-bytes")},
		meta: map[string]clients.BlobMetadata{
			"assets/case_1_before.webp": {
				ContentType:  "image/webp",
				CacheControl: "public, max-age=31536000, immutable",
			},
		},
	}
	return NewGalleryHandler(svc, nil, blobs, 12, log)
}

func multipartUpload(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, data := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.png"`)
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	store := newStubStore()
	h := newTestHandler(&stubValidator{}, store)

	body, contentType := multipartUpload(t,
		map[string]string{"category": "whitening"},
		map[string][]byte{"beforeImage": []byte("b"), "afterImage": []byte("a")},
	)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/gallery/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Upload(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		CaseID  string `json:"caseId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.CaseID)
	assert.Len(t, store.cases, 1)
}

func TestUpload_MissingImage(t *testing.T) {
	h := newTestHandler(&stubValidator{}, newStubStore())

	body, contentType := multipartUpload(t, nil, map[string][]byte{"beforeImage": []byte("b")})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/gallery/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Upload(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_ThreatRejected(t *testing.T) {
	h := newTestHandler(&stubValidator{err: models.ErrThreatDetected}, newStubStore())

	body, contentType := multipartUpload(t, nil,
		map[string][]byte{"beforeImage": []byte("b"), "afterImage": []byte("a")})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/gallery/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Upload(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublic_ListsApproved(t *testing.T) {
	store := newStubStore()
	store.public = []models.PublicCase{{ID: "case_1"}, {ID: "case_2"}}
	h := newTestHandler(&stubValidator{}, store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/gallery/public?limit=5", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Public(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Cases   []models.PublicCase `json:"cases"`
		Total   int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Total)
}

func TestPublic_DefaultLimitFromConfig(t *testing.T) {
	store := newStubStore()
	log := logger.New("error", "json")
	svc := service.NewGalleryService(&stubValidator{}, &stubProcessor{}, store, nil, nil, time.Minute, log)
	h := NewGalleryHandler(svc, nil, nil, 7, log)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/gallery/public", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Public(e.NewContext(req, rec)))
	assert.Equal(t, 7, store.publicLimit, "missing limit param should fall back to the configured default")

	req = httptest.NewRequest(http.MethodGet, "/api/gallery/public?limit=3", nil)
	rec = httptest.NewRecorder()

	require.NoError(t, h.Public(e.NewContext(req, rec)))
	assert.Equal(t, 3, store.publicLimit)
}

func TestPublic_StoreErrorBodyMasked(t *testing.T) {
	store := newStubStore()
	store.publicErr = fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connection refused", models.ErrStoreRead)
	h := newTestHandler(&stubValidator{}, store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/gallery/public", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Public(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrStoreRead.Error(), resp.Error)
	assert.NotContains(t, resp.Error, "dial tcp")
}

func TestHTTPErrorHandler_UnknownRouteAndMethod(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.GET("/api/gallery/public", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	})

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	req = httptest.NewRequest(http.MethodPost, "/api/gallery/public", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestApprove_NotFound(t *testing.T) {
	h := newTestHandler(&stubValidator{}, newStubStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/gallery/approve/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type memTokens struct{ values map[string]string }

func (s *memTokens) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	s.values[key] = value
	return nil
}

func (s *memTokens) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (s *memTokens) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestApprove_CSRFEnforced(t *testing.T) {
	log := logger.New("error", "json")
	store := newStubStore()
	store.cases["case_1"] = &models.Case{ID: "case_1", Status: models.StatusPending}
	svc := service.NewGalleryService(&stubValidator{}, &stubProcessor{}, store, nil, nil, time.Minute, log)

	tokens := &memTokens{values: map[string]string{}}
	gate := service.NewAuthGate(config.AuthConfig{AdminToken: "secret", CSRFTokenExpiry: time.Hour}, nil, tokens, log)
	h := NewGalleryHandler(svc, gate, nil, 12, log)

	valid, err := gate.IssueCSRF(context.Background(), "session-1")
	require.NoError(t, err)

	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/gallery/approve/case_1", nil)
	req.Header.Set("X-Session-ID", "session-1")
	req.Header.Set("X-CSRF-Token", "forged")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("case_1")

	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, models.StatusPending, store.cases["case_1"].Status)

	req = httptest.NewRequest(http.MethodPost, "/api/gallery/approve/case_1", nil)
	req.Header.Set("X-Session-ID", "session-1")
	req.Header.Set("X-CSRF-Token", valid)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("case_1")

	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusApproved, store.cases["case_1"].Status)
}

func TestAsset_ServesStoredHeaders(t *testing.T) {
	h := newTestHandler(&stubValidator{}, newStubStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/assets/case_1_before.webp", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("*")
	c.SetParamValues("case_1_before.webp")

	require.NoError(t, h.Asset(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "webp-bytes", rec.Body.String())
}

func TestAsset_NotFound(t *testing.T) {
	h := newTestHandler(&stubValidator{}, newStubStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/assets/missing.webp", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("*")
	c.SetParamValues("missing.webp")

	require.NoError(t, h.Asset(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidFile, http.StatusBadRequest},
		{models.ErrUnsupportedFormat, http.StatusBadRequest},
		{models.ErrFileTooLarge, http.StatusBadRequest},
		{models.ErrSignatureMismatch, http.StatusBadRequest},
		{models.ErrThreatDetected, http.StatusBadRequest},
		{models.ErrMissingToken, http.StatusUnauthorized},
		{models.ErrInvalidToken, http.StatusUnauthorized},
		{models.ErrInvalidCSRF, http.StatusForbidden},
		{models.ErrCaseNotFound, http.StatusNotFound},
		{models.ErrAccountLocked, http.StatusLocked},
		{models.ErrRateLimited, http.StatusTooManyRequests},
		{models.ErrProcessingTimeout, http.StatusGatewayTimeout},
		{models.ErrStoreRead, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "error %v", tc.err)
	}
}

func TestStatusFor_WrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), models.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, StatusFor(wrapped))
}
