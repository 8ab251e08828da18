package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

type IngestionService struct {
	feed domain.CatalogFeed
	repo domain.ProductRepository
}

func NewIngestionService(f domain.CatalogFeed, r domain.ProductRepository) *IngestionService {
	return &IngestionService{feed: f, repo: r}
}

// ProductIDs lists the feed's products in catalog order.
func (s *IngestionService) ProductIDs(ctx context.Context) ([]string, error) {
	return s.feed.ListProductIDs(ctx)
}

// IngestProduct fetches one product, maps and validates it, and stores it at
// the given catalog position. Missing, forbidden and malformed products are
// recorded as misses and skipped; only unexpected failures are returned.
func (s *IngestionService) IngestProduct(ctx context.Context, id string, position int) error {
	raw, err := s.feed.GetProduct(ctx, id)
	if err != nil {
		if status, ok := missStatus(err); ok {
			_ = s.repo.LogMiss(ctx, id, status, err.Error())
			return nil
		}
		return err
	}

	p, err := mapProduct(raw)
	if err != nil {
		_ = s.repo.LogMiss(ctx, id, 422, err.Error())
		return nil
	}
	if p.ID == "" {
		p.ID = id
	}
	if err := p.Validate(); err != nil {
		var ce *domain.ConfigError
		if errors.As(err, &ce) {
			log.Warn().Str("product", id).Str("reason", ce.Reason).Msg("feed product rejected")
			_ = s.repo.LogMiss(ctx, id, 422, ce.Reason)
			return nil
		}
		return err
	}

	if err := s.repo.UpsertProduct(ctx, p, position); err != nil {
		return fmt.Errorf("upsert product %s: %w", id, err)
	}
	return nil
}

// missStatus classifies feed errors that mean "skip this product".
func missStatus(err error) (int, bool) {
	var ue *domain.UpstreamError
	switch {
	case errors.As(err, &ue) && ue.Denied():
		return 403, true
	case errors.Is(err, domain.ErrNotFound):
		return 404, true
	}
	return 0, false
}
