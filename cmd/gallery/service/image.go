package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/common/clients"
	"github.com/aziwar/dr-islam-gallery/common/logger"
)

// Stored assets are served with long-lived immutable caching: keys embed the
// case id, so content never changes under a key.
const assetCacheControl = "public, max-age=31536000, immutable"

// ImageProcessor persists a validated source image and derives one variant
// per responsive breakpoint.
type ImageProcessor struct {
	blobs   clients.BlobStore
	widths  []int
	timeout time.Duration
	log     *logger.Logger
}

// NewImageProcessor creates a new image processor
func NewImageProcessor(blobs clients.BlobStore, widths []int, timeout time.Duration, log *logger.Logger) *ImageProcessor {
	return &ImageProcessor{
		blobs:   blobs,
		widths:  widths,
		timeout: timeout,
		log:     log,
	}
}

// Process stores the original under assets/<baseName>.webp plus one key per
// breakpoint. The original write must succeed; a failed variant is logged and
// skipped so one bad derivation doesn't sink the upload.
func (p *ImageProcessor) Process(ctx context.Context, data []byte, baseName string) (models.ImageSet, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	meta := clients.BlobMetadata{
		ContentType:  "image/webp",
		CacheControl: assetCacheControl,
	}

	originalKey := fmt.Sprintf("assets/%s.webp", baseName)
	if err := p.blobs.Put(ctx, originalKey, data, meta); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.ImageSet{}, models.ErrProcessingTimeout
		}
		return models.ImageSet{}, fmt.Errorf("%w: store original %s: %v", models.ErrStoreWrite, originalKey, err)
	}

	images := models.ImageSet{
		Original:   originalKey,
		Responsive: make(map[string]string, len(p.widths)),
	}

	for _, width := range p.widths {
		variant, err := p.deriveVariant(data, width)
		if err != nil {
			p.log.Warn("variant derivation failed", "base", baseName, "width", width, "error", err)
			continue
		}

		key := fmt.Sprintf("assets/%s-%dw.webp", baseName, width)
		if err := p.blobs.Put(ctx, key, variant, meta); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return models.ImageSet{}, models.ErrProcessingTimeout
			}
			p.log.Warn("variant store failed", "key", key, "error", err)
			continue
		}

		images.Responsive[fmt.Sprintf("%dw", width)] = key
	}

	return images, nil
}

// deriveVariant produces the bytes for a breakpoint variant. Currently the
// source bytes are stored per breakpoint; real re-encoding slots in here
// without changing the key contract.
func (p *ImageProcessor) deriveVariant(data []byte, width int) ([]byte, error) {
	return data, nil
}
