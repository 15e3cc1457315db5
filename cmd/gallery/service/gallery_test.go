package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/common/cache"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValidator struct {
	failOn string // declared type that triggers failure
	err    error
	calls  int
}

func (m *mockValidator) Validate(ctx context.Context, data []byte, declaredType, sessionID string) error {
	m.calls++
	if m.failOn != "" && declaredType == m.failOn {
		return m.err
	}
	return nil
}

type mockProcessor struct {
	err   error
	calls []string
}

func (m *mockProcessor) Process(ctx context.Context, data []byte, baseName string) (models.ImageSet, error) {
	m.calls = append(m.calls, baseName)
	if m.err != nil {
		return models.ImageSet{}, m.err
	}
	return models.ImageSet{
		Original:   "assets/" + baseName + ".webp",
		Responsive: map[string]string{"320w": "assets/" + baseName + "-320w.webp"},
	}, nil
}

type mockStore struct {
	created  []*models.Case
	cases    map[string]*models.Case
	approved []string
	deleted  []string
	public   []models.PublicCase
	listErr  error
}

func newMockStore() *mockStore {
	return &mockStore{cases: make(map[string]*models.Case)}
}

func (m *mockStore) Create(ctx context.Context, c *models.Case) error {
	m.created = append(m.created, c)
	m.cases[c.ID] = c
	return nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*models.Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	return c, nil
}

func (m *mockStore) List(ctx context.Context, status string, limit, offset int) ([]*models.Case, error) {
	out := make([]*models.Case, 0, len(m.created))
	for _, c := range m.created {
		if status == "" || status == "all" || string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) ListPublic(ctx context.Context, category string, limit int) ([]models.PublicCase, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.public, nil
}

func (m *mockStore) Approve(ctx context.Context, id, approvedBy string) (*models.Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	m.approved = append(m.approved, id)
	c.Status = models.StatusApproved
	return c, nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.cases[id]; !ok {
		return models.ErrCaseNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.cases, id)
	return nil
}

type mockAudit struct {
	entries []string // "<caseID>:<action>:<actor>"
	err     error
}

func (m *mockAudit) Record(ctx context.Context, caseID, action, actor string) error {
	m.entries = append(m.entries, caseID+":"+action+":"+actor)
	return m.err
}

func testInput() UploadInput {
	return UploadInput{
		Before:   UploadImage{Data: []byte("before-bytes"), DeclaredType: "image/jpeg"},
		After:    UploadImage{Data: []byte("after-bytes"), DeclaredType: "image/png"},
		Metadata: models.CaseMetadata{Category: "whitening", UploadedBy: "dr-islam"},
	}
}

func newTestService(v Validator, p Processor, store CaseStore, audit AuditRecorder) *GalleryService {
	return NewGalleryService(v, p, store, audit, nil, time.Minute, logger.New("error", "json"))
}

func TestUploadCase_Success(t *testing.T) {
	store := newMockStore()
	audit := &mockAudit{}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, audit)

	result, err := svc.UploadCase(context.Background(), testInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.CaseID)
	assert.True(t, strings.HasPrefix(result.CaseID, "case_"))

	require.Len(t, store.created, 1)
	c := store.created[0]
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "whitening", c.Category)
	assert.Equal(t, "dr-islam", c.UploadedBy)
	assert.Equal(t, "assets/"+c.ID+"_before.webp", c.BeforeImages.Original)
	assert.Equal(t, "assets/"+c.ID+"_after.webp", c.AfterImages.Original)
	assert.Nil(t, c.ApprovedAt)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, c.ID+":upload:dr-islam", audit.entries[0])
}

func TestUploadCase_MetadataDefaults(t *testing.T) {
	store := newMockStore()
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, nil)

	input := testInput()
	input.Metadata = models.CaseMetadata{}

	_, err := svc.UploadCase(context.Background(), input)
	require.NoError(t, err)

	c := store.created[0]
	assert.Equal(t, "Dental Treatment Case", c.Title)
	assert.Equal(t, "general", c.Category)
	assert.Equal(t, "general", c.TreatmentType)
	assert.Equal(t, "admin", c.UploadedBy)
}

func TestUploadCase_MissingImage(t *testing.T) {
	store := newMockStore()
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, nil)

	input := testInput()
	input.After.Data = nil

	_, err := svc.UploadCase(context.Background(), input)
	assert.ErrorIs(t, err, models.ErrInvalidFile)
	assert.Empty(t, store.created, "no case may be written when an image is missing")
}

func TestUploadCase_ValidationFailureAbortsStore(t *testing.T) {
	store := newMockStore()
	validator := &mockValidator{failOn: "image/png", err: models.ErrThreatDetected}
	svc := newTestService(validator, &mockProcessor{}, store, nil)

	_, err := svc.UploadCase(context.Background(), testInput())
	assert.ErrorIs(t, err, models.ErrThreatDetected)
	assert.Empty(t, store.created, "validation failure on one image must abort the whole case")
}

func TestUploadCase_ProcessingFailureAbortsStore(t *testing.T) {
	store := newMockStore()
	processor := &mockProcessor{err: models.ErrProcessingTimeout}
	svc := newTestService(&mockValidator{}, processor, store, nil)

	_, err := svc.UploadCase(context.Background(), testInput())
	assert.ErrorIs(t, err, models.ErrProcessingTimeout)
	assert.Empty(t, store.created)
}

func TestUploadCase_AuditFailureNotFatal(t *testing.T) {
	store := newMockStore()
	audit := &mockAudit{err: errors.New("db down")}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, audit)

	result, err := svc.UploadCase(context.Background(), testInput())
	require.NoError(t, err)
	assert.NotEmpty(t, result.CaseID)
	assert.Len(t, store.created, 1)
}

func TestApprove_RecordsAudit(t *testing.T) {
	store := newMockStore()
	audit := &mockAudit{}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, audit)

	result, err := svc.UploadCase(context.Background(), testInput())
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.CaseID, "reviewer"))
	assert.Equal(t, []string{result.CaseID}, store.approved)
	assert.Contains(t, audit.entries, result.CaseID+":approve:reviewer")
}

func TestApprove_DefaultsActor(t *testing.T) {
	store := newMockStore()
	audit := &mockAudit{}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, audit)

	result, err := svc.UploadCase(context.Background(), testInput())
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.CaseID, ""))
	assert.Contains(t, audit.entries, result.CaseID+":approve:admin")
}

func TestApprove_NotFound(t *testing.T) {
	svc := newTestService(&mockValidator{}, &mockProcessor{}, newMockStore(), nil)

	err := svc.Approve(context.Background(), "missing", "admin")
	assert.ErrorIs(t, err, models.ErrCaseNotFound)
}

func TestDelete_RecordsAudit(t *testing.T) {
	store := newMockStore()
	audit := &mockAudit{}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, audit)

	result, err := svc.UploadCase(context.Background(), testInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), result.CaseID, "reviewer"))
	assert.Equal(t, []string{result.CaseID}, store.deleted)
	assert.Contains(t, audit.entries, result.CaseID+":delete:reviewer")

	assert.ErrorIs(t, svc.Delete(context.Background(), result.CaseID, "reviewer"), models.ErrCaseNotFound)
}

func TestPublicGallery_PassesThrough(t *testing.T) {
	store := newMockStore()
	store.public = []models.PublicCase{{ID: "case_1", Category: "whitening"}}
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, nil)

	public, err := svc.PublicGallery(context.Background(), "whitening", 10)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "case_1", public[0].ID)
}

func TestPublicGallery_ServedFromCacheWithinTTL(t *testing.T) {
	store := newMockStore()
	store.public = []models.PublicCase{{ID: "case_1"}}
	log := logger.New("error", "json")
	svc := NewGalleryService(&mockValidator{}, &mockProcessor{}, store, nil, cache.NewMemoryCache(log), time.Minute, log)

	first, err := svc.PublicGallery(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Store changes are not visible until the cache entry expires
	store.public = []models.PublicCase{{ID: "case_1"}, {ID: "case_2"}}

	second, err := svc.PublicGallery(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// A different category misses the cache and sees the new state
	fresh, err := svc.PublicGallery(context.Background(), "implants", 10)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestPublicGallery_StoreError(t *testing.T) {
	store := newMockStore()
	store.listErr = models.ErrStoreRead
	svc := newTestService(&mockValidator{}, &mockProcessor{}, store, nil)

	_, err := svc.PublicGallery(context.Background(), "", 0)
	assert.ErrorIs(t, err, models.ErrStoreRead)
}
