package container

import (
	"context"
	"fmt"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/repository"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/security"
	"github.com/aziwar/dr-islam-gallery/cmd/gallery/service"
	"github.com/aziwar/dr-islam-gallery/common/bootstrap"
	"github.com/aziwar/dr-islam-gallery/common/clients"
	"github.com/aziwar/dr-islam-gallery/common/ratelimit"
	rediscommon "github.com/aziwar/dr-islam-gallery/common/redis"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Redis      *rediscommon.Client

	// Repositories
	CaseRepo  *repository.CaseRepository
	AuditRepo *repository.AuditRepository

	// Services
	RateLimiter    *ratelimit.RateLimiter
	FileValidator  *security.FileValidator
	BlobStore      clients.BlobStore
	ImageProcessor *service.ImageProcessor
	AuthGate       *service.AuthGate
	GalleryService *service.GalleryService
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	// Wrap raw redis with the instrumented common client
	redisClient := rediscommon.NewClient(components.Redis, log)

	// Repositories
	caseRepo := repository.NewCaseRepository(redisClient)

	var auditRepo *repository.AuditRepository
	var audit service.AuditRecorder
	if components.DB != nil {
		auditRepo = repository.NewAuditRepository(components.DB)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
		}
		audit = auditRepo
	}

	// Services (bottom-up: dependencies first)
	limiter := ratelimit.NewRateLimiter(components.Redis, log)

	validator := security.NewFileValidator(
		cfg.Gallery.MaxFileSize,
		cfg.Gallery.SessionQuota,
		int(cfg.Gallery.SessionWindow.Seconds()),
		limiter,
		log,
	)

	blobStore := clients.NewRedisBlobStore(components.Redis, log)

	processor := service.NewImageProcessor(
		blobStore,
		cfg.Gallery.ResponsiveWidths,
		cfg.Gallery.ProcessTimeout,
		log,
	)

	authGate := service.NewAuthGate(cfg.Auth, limiter, redisClient, log)

	galleryService := service.NewGalleryService(
		validator,
		processor,
		caseRepo,
		audit,
		components.Cache,
		cfg.Gallery.PublicCacheTTL,
		log,
	)

	return &Container{
		Components:     components,
		Redis:          redisClient,
		CaseRepo:       caseRepo,
		AuditRepo:      auditRepo,
		RateLimiter:    limiter,
		FileValidator:  validator,
		BlobStore:      blobStore,
		ImageProcessor: processor,
		AuthGate:       authGate,
		GalleryService: galleryService,
	}, nil
}
