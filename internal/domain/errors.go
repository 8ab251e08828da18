package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks catalog data defects; never caused by user input.
	ErrConfiguration = errors.New("configuration defect")
)

type ConfigError struct {
	ProductID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("product %s: %s: %s", e.ProductID, ErrConfiguration, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// UpstreamError is a non-retryable answer from an upstream service.
// A 404 or 410 also matches ErrNotFound.
type UpstreamError struct {
	Service  string
	Endpoint string
	Status   int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: upstream status %d", e.Service, e.Endpoint, e.Status)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && (e.Status == 404 || e.Status == 410)
}

// Denied reports whether the upstream refused access (401/403).
func (e *UpstreamError) Denied() bool { return e.Status == 401 || e.Status == 403 }

type FieldCode string

const (
	Required      FieldCode = "required"
	InvalidFormat FieldCode = "invalid_format"
)

type FieldError struct {
	Field string    `json:"field"`
	Code  FieldCode `json:"code"`
}

// FieldErrors is the full set of contact-field violations found in one pass.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+string(e.Code))
	}
	return "invalid contact details: " + strings.Join(parts, ", ")
}

func (fe FieldErrors) Has(field string, code FieldCode) bool {
	for _, e := range fe {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}
