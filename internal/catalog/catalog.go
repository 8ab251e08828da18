// Package catalog holds the read-only product collection the booking flow selects from.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"travel_booking/internal/domain"
)

type Catalog struct {
	products []domain.Product
	index    map[string]int
	version  string
}

// New validates every product and freezes the collection in the given order.
func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]domain.Product, len(products)),
		index:    make(map[string]int, len(products)),
	}
	copy(c.products, products)
	h := sha1.New()
	for i, p := range c.products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, &domain.ConfigError{ProductID: p.ID, Reason: "duplicate product id"}
		}
		c.index[p.ID] = i
		b, _ := json.Marshal(p)
		h.Write(b)
	}
	sum := h.Sum(nil)
	c.version = hex.EncodeToString(sum[:8])
	return c, nil
}

// Decode reads a JSON array of products without validating them.
func Decode(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return products, nil
}

// Load decodes a JSON array of products and builds a catalog from it.
func Load(r io.Reader) (*Catalog, error) {
	products, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return New(products)
}

func (c *Catalog) Len() int { return len(c.products) }

// Version changes whenever any product's content changes.
func (c *Catalog) Version() string { return c.version }

func (c *Catalog) All() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Get(id string) (domain.Product, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return c.products[i], nil
}

func (c *Catalog) Filter(criteria domain.FilterCriteria) []domain.Product {
	return Filter(c.products, criteria)
}
