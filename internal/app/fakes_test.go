package app_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"travel_booking/internal/catalog"
	"travel_booking/internal/domain"
)

// ---- fakes ----

type miss struct {
	id     string
	status int
}

type fakeRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	position map[string]int
	misses   []miss
}

func (f *fakeRepo) UpsertProduct(ctx context.Context, p domain.Product, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.products == nil {
		f.products, f.position = map[string]domain.Product{}, map[string]int{}
	}
	f.products[p.ID] = p
	f.position[p.ID] = position
	return nil
}

func (f *fakeRepo) LogMiss(ctx context.Context, id string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, miss{id: id, status: status})
	return nil
}

func (f *fakeRepo) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return nil, nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	gets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	f, err := os.Open("../../data/catalog.json")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer f.Close()
	c, err := catalog.Load(f)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func ptr[T any](v T) *T { return &v }
