package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	rediscommon "github.com/aziwar/dr-islam-gallery/common/redis"
)

const indexKey = "gallery:index"

// KV is the key-value surface the case store needs. Satisfied by the common
// redis client; mocked in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	GetMultiple(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string, expiry time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CaseRepository owns case records (gallery:<id>) and the newest-first index
// (gallery:index, a JSON array of ids). Nothing else mutates either key.
type CaseRepository struct {
	kv KV
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(kv KV) *CaseRepository {
	return &CaseRepository{kv: kv}
}

func caseKey(id string) string {
	return fmt.Sprintf("gallery:%s", id)
}

// Create writes the case record first, then prepends its id to the index.
// The ordering guarantees the index never references a record that was not
// written; there is no transaction spanning the two keys.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: marshal case: %v", models.ErrStoreWrite, err)
	}

	if err := r.kv.Set(ctx, caseKey(c.ID), string(record), 0); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	ids, err := r.readIndex(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id == c.ID {
			return nil // already indexed
		}
	}

	ids = append([]string{c.ID}, ids...) // newest first
	if err := r.writeIndex(ctx, ids); err != nil {
		return err
	}

	return nil
}

// Get retrieves a case by id
func (r *CaseRepository) Get(ctx context.Context, id string) (*models.Case, error) {
	raw, err := r.kv.Get(ctx, caseKey(id))
	if err != nil {
		if errors.Is(err, rediscommon.ErrKeyNotFound) {
			return nil, models.ErrCaseNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}

	var c models.Case
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("%w: corrupt record for %s: %v", models.ErrStoreRead, id, err)
	}

	return &c, nil
}

// List returns cases filtered by status in index order. status "all" or ""
// disables the filter. offset/limit apply after filtering.
func (r *CaseRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Case, error) {
	cases, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Case, 0, len(cases))
	for _, c := range cases {
		if status == "" || status == "all" || string(c.Status) == status {
			filtered = append(filtered, c)
		}
	}

	if offset >= len(filtered) {
		return []*models.Case{}, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}

	return filtered, nil
}

// ListPublic returns approved cases as public-safe projections, optionally
// filtered by category. Pending cases are never returned here.
func (r *CaseRepository) ListPublic(ctx context.Context, category string, limit int) ([]models.PublicCase, error) {
	cases, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	public := make([]models.PublicCase, 0, limit)
	for _, c := range cases {
		if c.Status != models.StatusApproved {
			continue
		}
		if category != "" && category != "all" && c.Category != category {
			continue
		}
		public = append(public, c.Public())
		if limit > 0 && len(public) >= limit {
			break
		}
	}

	return public, nil
}

// Approve marks a case approved and stamps the approval audit fields.
// Re-approving an already approved case is allowed and refreshes the stamp.
func (r *CaseRepository) Approve(ctx context.Context, id, approvedBy string) (*models.Case, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c.Status = models.StatusApproved
	c.ApprovedAt = &now
	c.ApprovedBy = approvedBy

	record, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal case: %v", models.ErrStoreWrite, err)
	}

	if err := r.kv.Set(ctx, caseKey(id), string(record), 0); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	return c, nil
}

// Delete removes the record and its index entry. Underlying blob objects are
// intentionally retained; see the service layer for the policy.
func (r *CaseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	ids, err := r.readIndex(ctx)
	if err != nil {
		return err
	}

	remaining := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}

	if err := r.writeIndex(ctx, remaining); err != nil {
		return err
	}

	if err := r.kv.Delete(ctx, caseKey(id)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	return nil
}

// loadAll fetches all indexed cases in index order, skipping ids whose
// records are missing (tolerates a dangling index entry)
func (r *CaseRepository) loadAll(ctx context.Context) ([]*models.Case, error) {
	ids, err := r.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Case{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = caseKey(id)
	}

	records, err := r.kv.GetMultiple(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}

	cases := make([]*models.Case, 0, len(ids))
	for _, key := range keys {
		raw, ok := records[key]
		if !ok {
			continue
		}
		var c models.Case
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue // skip corrupt record rather than failing the listing
		}
		cases = append(cases, &c)
	}

	return cases, nil
}

func (r *CaseRepository) readIndex(ctx context.Context) ([]string, error) {
	raw, err := r.kv.Get(ctx, indexKey)
	if err != nil {
		if errors.Is(err, rediscommon.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%w: corrupt index: %v", models.ErrStoreRead, err)
	}

	return ids, nil
}

func (r *CaseRepository) writeIndex(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("%w: marshal index: %v", models.ErrStoreWrite, err)
	}

	if err := r.kv.Set(ctx, indexKey, string(raw), 0); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	return nil
}
