package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/common/cache"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Validator gates raw upload bytes
type Validator interface {
	Validate(ctx context.Context, data []byte, declaredType, sessionID string) error
}

// Processor derives and persists image variants
type Processor interface {
	Process(ctx context.Context, data []byte, baseName string) (models.ImageSet, error)
}

// CaseStore is the persistence surface for case records and the index
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	Get(ctx context.Context, id string) (*models.Case, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.Case, error)
	ListPublic(ctx context.Context, category string, limit int) ([]models.PublicCase, error)
	Approve(ctx context.Context, id, approvedBy string) (*models.Case, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder records moderation events. Failures are logged, never fatal:
// the case store stays the source of truth.
type AuditRecorder interface {
	Record(ctx context.Context, caseID, action, actor string) error
}

// UploadImage is one half of a before/after pair
type UploadImage struct {
	Data         []byte
	DeclaredType string
}

// UploadInput is everything the upload operation needs
type UploadInput struct {
	Before   UploadImage
	After    UploadImage
	Metadata models.CaseMetadata
}

// UploadResult is returned on successful case creation
type UploadResult struct {
	CaseID  string
	Message string
}

// GalleryService orchestrates the case pipeline: validate, process, store,
// moderate, list.
type GalleryService struct {
	validator Validator
	processor Processor
	store     CaseStore
	audit     AuditRecorder
	cache     cache.Cache // may be nil
	cacheTTL  time.Duration
	log       *logger.Logger
}

// NewGalleryService creates a new gallery service. cache may be nil to
// disable public-listing caching.
func NewGalleryService(validator Validator, processor Processor, store CaseStore, audit AuditRecorder, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *GalleryService {
	return &GalleryService{
		validator: validator,
		processor: processor,
		store:     store,
		audit:     audit,
		cache:     c,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

// UploadCase validates and processes both images, then persists the case as
// pending. The two images run concurrently; any failure aborts before the
// store write, so no partial case is ever reachable.
func (s *GalleryService) UploadCase(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if len(input.Before.Data) == 0 || len(input.After.Data) == 0 {
		return nil, fmt.Errorf("%w: both before and after images are required", models.ErrInvalidFile)
	}

	meta := applyMetadataDefaults(input.Metadata)

	caseID := newCaseID()

	var beforeImages, afterImages models.ImageSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.validator.Validate(gctx, input.Before.Data, input.Before.DeclaredType, meta.SessionID); err != nil {
			return err
		}
		var err error
		beforeImages, err = s.processor.Process(gctx, input.Before.Data, caseID+"_before")
		return err
	})
	g.Go(func() error {
		if err := s.validator.Validate(gctx, input.After.Data, input.After.DeclaredType, meta.SessionID); err != nil {
			return err
		}
		var err error
		afterImages, err = s.processor.Process(gctx, input.After.Data, caseID+"_after")
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &models.Case{
		ID:             caseID,
		Title:          meta.Title,
		Category:       meta.Category,
		Description:    meta.Description,
		TreatmentType:  meta.TreatmentType,
		BeforeImages:   beforeImages,
		AfterImages:    afterImages,
		Status:         models.StatusPending,
		UploadedAt:     time.Now().UTC(),
		UploadedBy:     meta.UploadedBy,
		PatientConsent: meta.PatientConsent,
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, caseID, "upload", meta.UploadedBy)

	s.log.Info("case uploaded",
		"case_id", caseID,
		"category", meta.Category,
		"uploaded_by", meta.UploadedBy)

	return &UploadResult{
		CaseID:  caseID,
		Message: "Case uploaded successfully and pending approval",
	}, nil
}

// GetCase retrieves a single case
func (s *GalleryService) GetCase(ctx context.Context, id string) (*models.Case, error) {
	return s.store.Get(ctx, id)
}

// ListCases lists cases for the admin console
func (s *GalleryService) ListCases(ctx context.Context, status string, limit, offset int) ([]*models.Case, error) {
	return s.store.List(ctx, status, limit, offset)
}

// PublicGallery lists approved cases with public-safe fields, fronted by the
// in-process cache. Entries may be up to one TTL stale after moderation.
func (s *GalleryService) PublicGallery(ctx context.Context, category string, limit int) ([]models.PublicCase, error) {
	cacheKey := fmt.Sprintf("public:%s:%d", category, limit)

	if s.cache != nil {
		if raw, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
			var cached []models.PublicCase
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	public, err := s.store.ListPublic(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(public); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
				s.log.Warn("failed to cache public listing", "error", err)
			}
		}
	}

	return public, nil
}

// Approve transitions a case to approved. Idempotent: approving an approved
// case succeeds and refreshes the stamp.
func (s *GalleryService) Approve(ctx context.Context, caseID, approvedBy string) error {
	if approvedBy == "" {
		approvedBy = "admin"
	}

	if _, err := s.store.Approve(ctx, caseID, approvedBy); err != nil {
		return err
	}

	s.recordAudit(ctx, caseID, "approve", approvedBy)

	s.log.Info("case approved", "case_id", caseID, "approved_by", approvedBy)
	return nil
}

// Delete removes a case from the record store and the index. Blob objects are
// retained; the audit row is the durable trace that the case existed.
func (s *GalleryService) Delete(ctx context.Context, caseID, actor string) error {
	if actor == "" {
		actor = "admin"
	}

	if err := s.store.Delete(ctx, caseID); err != nil {
		return err
	}

	s.recordAudit(ctx, caseID, "delete", actor)

	s.log.Info("case deleted", "case_id", caseID, "actor", actor)
	return nil
}

func (s *GalleryService) recordAudit(ctx context.Context, caseID, action, actor string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, caseID, action, actor); err != nil {
		s.log.Warn("audit record failed", "case_id", caseID, "action", action, "error", err)
	}
}

// newCaseID builds a timestamp + random suffix id. Collisions are negligible
// and ids are never reused after deletion.
func newCaseID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("case_%d_%s", time.Now().UnixMilli(), suffix)
}

func applyMetadataDefaults(meta models.CaseMetadata) models.CaseMetadata {
	if meta.Title == "" {
		meta.Title = "Dental Treatment Case"
	}
	if meta.Category == "" {
		meta.Category = "general"
	}
	if meta.TreatmentType == "" {
		meta.TreatmentType = "general"
	}
	if meta.UploadedBy == "" {
		meta.UploadedBy = "admin"
	}
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	return meta
}
