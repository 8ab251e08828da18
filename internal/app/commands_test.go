package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"travel_booking/internal/app"
	"travel_booking/internal/domain"
)

type fakeFeed struct {
	ids      []string
	payloads map[string]map[string]any
	errs     map[string]error
}

func (f *fakeFeed) ListProductIDs(ctx context.Context) ([]string, error) { return f.ids, nil }

func (f *fakeFeed) GetProduct(ctx context.Context, id string) (map[string]any, error) {
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	p, ok := f.payloads[id]
	if !ok {
		return nil, fmt.Errorf("feed product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func legacyHotel() map[string]any {
	return map[string]any{
		"id":                 "ht-udaipur",
		"name":               "Lake Palace",
		"location":           "Udaipur",
		"pricePerNight":      15000.0,
		"availableRoomTypes": []any{"Deluxe Room"},
		"mealPlans":          []any{"Room Only"},
	}
}

func TestIngestProduct_UpsertsAtPosition(t *testing.T) {
	repo := &fakeRepo{}
	feed := &fakeFeed{payloads: map[string]map[string]any{"ht-udaipur": legacyHotel()}}
	ing := app.NewIngestionService(feed, repo)

	if err := ing.IngestProduct(context.Background(), "ht-udaipur", 3); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	p, ok := repo.products["ht-udaipur"]
	if !ok || p.BaseUnitPrice != 1500000 || repo.position["ht-udaipur"] != 3 {
		t.Fatalf("unexpected upsert: %+v pos=%d", p, repo.position["ht-udaipur"])
	}
}

func TestIngestProduct_MissesAreLoggedNotFatal(t *testing.T) {
	broken := legacyHotel()
	broken["pricePerNight"] = -10.0
	repo := &fakeRepo{}
	upstream := map[string]error{
		"ht-locked":  &domain.UpstreamError{Service: "feed", Endpoint: "product", Status: 403},
		"ht-retired": &domain.UpstreamError{Service: "feed", Endpoint: "product", Status: 410},
	}
	feed := &fakeFeed{payloads: map[string]map[string]any{"ht-broken": broken}, errs: upstream}
	ing := app.NewIngestionService(feed, repo)

	for _, id := range []string{"ht-gone", "ht-locked", "ht-retired", "ht-broken"} {
		if err := ing.IngestProduct(context.Background(), id, 0); err != nil {
			t.Fatalf("%s: expected graceful skip, got %v", id, err)
		}
	}

	want := []miss{{"ht-gone", 404}, {"ht-locked", 403}, {"ht-retired", 404}, {"ht-broken", 422}}
	if len(repo.misses) != len(want) {
		t.Fatalf("misses = %+v", repo.misses)
	}
	for i, m := range want {
		if repo.misses[i] != m {
			t.Fatalf("miss %d = %+v, want %+v", i, repo.misses[i], m)
		}
	}
	if len(repo.products) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(repo.products))
	}
}

func TestIngestProduct_UnexpectedErrorBubblesUp(t *testing.T) {
	// status-like digits in a transport error are not an upstream answer
	errs := map[string]error{
		"x":       errors.New("feed: status 502"),
		"ht-403":  errors.New("dial tcp 10.0.0.7:4030: connection refused"),
		"ht-port": fmt.Errorf("get product: %w", errors.New("401 bytes read, unexpected EOF")),
	}
	repo := &fakeRepo{}
	ing := app.NewIngestionService(&fakeFeed{errs: errs}, repo)

	for id := range errs {
		if err := ing.IngestProduct(context.Background(), id, 0); err == nil {
			t.Fatalf("%s: expected error", id)
		}
	}
	if len(repo.misses) != 0 {
		t.Fatalf("transport failures must not be logged as misses: %+v", repo.misses)
	}
}

func TestProductIDs(t *testing.T) {
	ing := app.NewIngestionService(&fakeFeed{ids: []string{"a", "b"}}, &fakeRepo{})

	ids, err := ing.ProductIDs(context.Background())

	if err != nil || len(ids) != 2 {
		t.Fatalf("ids = %v %v", ids, err)
	}
}
