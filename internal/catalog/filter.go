package catalog

import (
	"strings"

	"travel_booking/internal/domain"
)

// containsAttrs are matched by substring against the product location
// instead of by equality, e.g. a city picked from a list vs. "Panaji, Goa".
var containsAttrs = map[string]bool{
	"city": true,
}

// IsSentinel reports whether a criterion value means "no constraint".
func IsSentinel(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(strings.ToLower(v), "all ")
}

// Filter returns the products matching every criterion, in catalog order.
// Neither input is modified.
func Filter(products []domain.Product, c domain.FilterCriteria) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, c) {
			out = append(out, p)
		}
	}
	return out
}

func Matches(p domain.Product, c domain.FilterCriteria) bool {
	if !matchesText(p, c.Query) {
		return false
	}
	for name, want := range c.Attributes {
		if IsSentinel(want) {
			continue
		}
		if !matchesAttr(p, name, want) {
			return false
		}
	}
	if c.MaxPrice != nil && p.BaseUnitPrice > *c.MaxPrice {
		return false
	}
	// a zero floor is the "any rating" setting
	if c.MinRating != nil && *c.MinRating > 0 && p.Rating < *c.MinRating {
		return false
	}
	return true
}

func matchesText(p domain.Product, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Location), q)
}

func matchesAttr(p domain.Product, name, want string) bool {
	want = strings.TrimSpace(want)
	if containsAttrs[strings.ToLower(name)] {
		needle := strings.ToLower(want)
		if strings.Contains(strings.ToLower(p.Location), needle) {
			return true
		}
	}
	for _, v := range p.AttributeValues(name) {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
