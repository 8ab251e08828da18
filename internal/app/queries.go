package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/catalog"
	"travel_booking/internal/domain"
)

type QueryService struct {
	catalog  *catalog.Catalog
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(c *catalog.Catalog, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{catalog: c, cache: cache, cacheTTL: ttl}
}

// CatalogVersion identifies the loaded catalog snapshot.
func (s *QueryService) CatalogVersion() string { return s.catalog.Version() }

func (s *QueryService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.catalog.Get(id)
}

// Search returns the products matching c in catalog order. Only the matching
// ids are cached; products always come from the in-memory catalog.
func (s *QueryService) Search(ctx context.Context, c domain.FilterCriteria) ([]domain.Product, error) {
	key := searchKey(s.catalog.Version(), c)

	var ids []string
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &ids); ok {
			if out, ok := s.resolve(ids); ok {
				observability.ObserveFilter(len(out))
				return out, nil
			}
		}
	}

	out := s.catalog.Filter(c)
	observability.ObserveFilter(len(out))

	if s.cache != nil {
		ids = make([]string, 0, len(out))
		for _, p := range out {
			ids = append(ids, p.ID)
		}
		_ = s.cache.Set(ctx, key, ids, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// resolve maps cached ids back to products; false if any id is unknown.
func (s *QueryService) resolve(ids []string) ([]domain.Product, bool) {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.catalog.Get(id)
		if err != nil {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// searchKey maps criteria that filter identically (differing only in case or
// in sentinel values) to the same key.
func searchKey(version string, c domain.FilterCriteria) string {
	norm := struct {
		Q     string            `json:"q"`
		Attrs map[string]string `json:"a"`
		Max   *int64            `json:"max"`
		Min   *float64          `json:"min"`
	}{
		Q:     strings.ToLower(strings.TrimSpace(c.Query)),
		Attrs: map[string]string{},
		Max:   c.MaxPrice,
	}
	for k, v := range c.Attributes {
		if catalog.IsSentinel(v) {
			continue
		}
		norm.Attrs[k] = strings.ToLower(strings.TrimSpace(v))
	}
	if c.MinRating != nil && *c.MinRating > 0 {
		norm.Min = c.MinRating
	}
	b, _ := json.Marshal(norm) // map keys are emitted sorted
	sum := sha1.Sum(b)
	return fmt.Sprintf("products:%s:%s", version, hex.EncodeToString(sum[:]))
}
