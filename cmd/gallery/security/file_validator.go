package security

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/aziwar/dr-islam-gallery/common/ratelimit"
)

const (
	maxPixelAxis  = 10000
	maxPixelCount = 50_000_000
	entropyPrefix = 1024
	entropyLimit  = 7.5
)

// fileSignatures maps declared MIME types to their expected magic bytes
var fileSignatures = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/webp": {0x52, 0x49, 0x46, 0x46},
}

// SessionLimiter tracks per-session upload counts within a rolling window
type SessionLimiter interface {
	CheckSessionUploads(ctx context.Context, sessionID string, limit int64, windowSec int) (*ratelimit.Result, error)
}

// FileValidator runs the ordered hard gates on raw upload bytes:
// size, MIME allow-list, session quota, magic-byte signature, structural
// sanity, embedded-threat scan. First failure aborts.
type FileValidator struct {
	maxFileSize   int64
	sessionQuota  int64
	sessionWindow int // seconds
	limiter       SessionLimiter
	scanner       *ThreatScanner
	log           *logger.Logger
}

// NewFileValidator creates a validator with the configured limits
func NewFileValidator(maxFileSize, sessionQuota int64, sessionWindowSec int, limiter SessionLimiter, log *logger.Logger) *FileValidator {
	return &FileValidator{
		maxFileSize:   maxFileSize,
		sessionQuota:  sessionQuota,
		sessionWindow: sessionWindowSec,
		limiter:       limiter,
		scanner:       NewThreatScanner(),
		log:           log,
	}
}

// Validate checks one upload. sessionID may be empty, in which case the
// session quota gate is skipped. The only side effect is incrementing the
// session's upload counter.
func (v *FileValidator) Validate(ctx context.Context, data []byte, declaredType, sessionID string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty upload", models.ErrInvalidFile)
	}

	if int64(len(data)) > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", models.ErrFileTooLarge, len(data), v.maxFileSize)
	}

	signature, supported := fileSignatures[declaredType]
	if !supported {
		return fmt.Errorf("%w: %s (supported: image/jpeg, image/png, image/webp)", models.ErrUnsupportedFormat, declaredType)
	}

	if sessionID != "" {
		result, err := v.limiter.CheckSessionUploads(ctx, sessionID, v.sessionQuota, v.sessionWindow)
		if err != nil {
			return fmt.Errorf("session quota check: %w", err)
		}
		if !result.Allowed {
			return fmt.Errorf("%w: maximum %d uploads per session window", models.ErrRateLimited, v.sessionQuota)
		}
	}

	if !bytes.HasPrefix(data, signature) {
		return fmt.Errorf("%w: declared %s", models.ErrSignatureMismatch, declaredType)
	}

	if declaredType == "image/png" {
		if err := validatePNGDimensions(data); err != nil {
			return err
		}
	}

	if err := v.scanner.Scan(data); err != nil {
		return err
	}

	// Advisory only: compressed image data also scores high, so this never
	// fails validation on its own.
	prefix := data
	if len(prefix) > entropyPrefix {
		prefix = prefix[:entropyPrefix]
	}
	if e := Entropy(prefix); e > entropyLimit {
		v.log.Warn("high entropy in upload prefix",
			"entropy", e,
			"session_id", sessionID,
			"declared_type", declaredType)
	}

	return nil
}

// validatePNGDimensions parses width and height from the IHDR chunk and
// rejects decompression-bomb scale dimensions
func validatePNGDimensions(data []byte) error {
	// 8-byte signature + 4-byte length + "IHDR" puts width at offset 16
	if len(data) < 24 {
		return fmt.Errorf("%w: truncated PNG header", models.ErrInvalidFile)
	}

	width := binary.BigEndian.Uint32(data[16:20])
	height := binary.BigEndian.Uint32(data[20:24])

	if width > maxPixelAxis || height > maxPixelAxis || uint64(width)*uint64(height) > maxPixelCount {
		return fmt.Errorf("%w: image dimensions %dx%d exceed limits", models.ErrInvalidFile, width, height)
	}

	return nil
}
