package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	server "travel_booking/internal/adapters/http_server"
	"travel_booking/internal/app"
	"travel_booking/internal/catalog"
	"travel_booking/internal/domain"
)

type captureEmitter struct {
	mu   sync.Mutex
	sent []domain.Booking
}

func (c *captureEmitter) Notify(ctx context.Context, b domain.Booking) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, b)
	return nil
}

func newAPI(t *testing.T) (http.Handler, *captureEmitter) {
	t.Helper()
	f, err := os.Open("../../../data/catalog.json")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer f.Close()
	cat, err := catalog.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	em := &captureEmitter{}
	clock := func() time.Time { return time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC) }

	srv := server.New(15 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(cat, nil, time.Minute),
		B: app.NewBookingService(cat, em, time.Hour, time.Second, app.WithSessionClock(clock)),
	})
	return srv.Mux(), em
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := newAPI(t)
	if rr := do(t, h, "GET", "/healthz", ""); rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestSearchProducts(t *testing.T) {
	h, _ := newAPI(t)

	rr := do(t, h, "GET", "/v1/products?kind=hotel&hotel_chain=Heritage+Hotels&max_price=1500000", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Items []domain.Product `json:"items"`
		Count int              `json:"count"`
	}
	decodeJSON(t, rr, &out)
	if out.Count != 1 || out.Items[0].ID != "ht-jaipur-fort" {
		t.Fatalf("unexpected result: %+v", out)
	}

	rr = do(t, h, "GET", "/v1/products?destination=All+Destinations", "")
	decodeJSON(t, rr, &out)
	if out.Count != 5 {
		t.Fatalf("sentinel should return all, got %d", out.Count)
	}

	if rr := do(t, h, "GET", "/v1/products?min_rating=high", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rating, got %d", rr.Code)
	}
}

func TestGetProduct_ETag(t *testing.T) {
	h, _ := newAPI(t)

	rr := do(t, h, "GET", "/v1/products/ht-goa-beach", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("missing weak ETag: %q", etag)
	}

	req := httptest.NewRequest("GET", "/v1/products/ht-goa-beach", nil)
	req.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr2.Code)
	}

	if rr := do(t, h, "GET", "/v1/products/nope", ""); rr.Code != http.StatusNotFound ||
		rr.Header().Get("Content-Type") != "application/problem+json" {
		t.Fatalf("expected problem 404, got %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
}

type sessionResp struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Draft struct {
		Choices   map[string]string `json:"choices"`
		PartySize int               `json:"party_size"`
	} `json:"draft"`
	Quote struct {
		Total int64 `json:"total"`
	} `json:"quote"`
}

func TestBookingFlow(t *testing.T) {
	h, em := newAPI(t)

	rr := do(t, h, "POST", "/v1/sessions", `{"product_id":"ht-goa-beach"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open: %d %s", rr.Code, rr.Body.String())
	}
	var s sessionResp
	decodeJSON(t, rr, &s)
	base := "/v1/sessions/" + s.ID
	if rr.Header().Get("Location") != base || s.State != "selection" {
		t.Fatalf("unexpected open response: %+v", s)
	}

	steps := []struct {
		method, path, body string
		want               int
	}{
		{"PUT", base + "/options/room", `{"choice":"premium"}`, 200},
		{"PUT", base + "/options/room", `{"choice":"penthouse"}`, 400},
		{"PUT", base + "/party", `{"size":3}`, 200},
		{"PUT", base + "/stay", `{"check_in":"2026-11-01","check_out":"2026-11-04"}`, 200},
		{"PUT", base + "/stay", `{"check_in":"01/11/2026","check_out":"2026-11-04"}`, 400},
		{"PUT", base + "/slot", `{"slot":"2026-12-05"}`, 400},
		{"PUT", base + "/contact", `{"name":"Asha"}`, 409},
		{"POST", base + "/next", "", 200},
		{"PUT", base + "/party", `{"size":2}`, 409},
		{"PUT", base + "/contact", `{"name":"Asha Rao","email":"bad-email","phone":"9876543210","address":"Mumbai"}`, 200},
	}
	for _, st := range steps {
		if rr := do(t, h, st.method, st.path, st.body); rr.Code != st.want {
			t.Fatalf("%s %s %s: got %d, want %d (%s)", st.method, st.path, st.body, rr.Code, st.want, rr.Body.String())
		}
	}

	rr = do(t, h, "POST", base+"/submit", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var prob struct {
		Errors []domain.FieldError `json:"errors"`
	}
	decodeJSON(t, rr, &prob)
	if len(prob.Errors) != 1 || prob.Errors[0].Field != "email" || prob.Errors[0].Code != domain.InvalidFormat {
		t.Fatalf("unexpected field errors: %+v", prob.Errors)
	}

	_ = do(t, h, "PUT", base+"/contact", `{"name":"Asha Rao","email":"asha@example.in","phone":"9876543210","address":"Mumbai"}`)
	rr = do(t, h, "POST", base+"/submit", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rr.Code, rr.Body.String())
	}
	var rc struct {
		Booking domain.Booking `json:"booking"`
		Notice  string         `json:"notice"`
	}
	decodeJSON(t, rr, &rc)
	// (800000 × 1.4) × 3 nights × 3 guests
	if rc.Booking.Total != 10080000 || rc.Notice != "" || len(em.sent) != 1 {
		t.Fatalf("unexpected receipt: %+v (sent %d)", rc, len(em.sent))
	}

	if rr := do(t, h, "GET", base, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("finalized session should be gone, got %d", rr.Code)
	}
}

func TestCancelSession(t *testing.T) {
	h, em := newAPI(t)
	rr := do(t, h, "POST", "/v1/sessions", `{"product_id":"cr-goa-lakshadweep"}`)
	var s sessionResp
	decodeJSON(t, rr, &s)

	if rr := do(t, h, "DELETE", "/v1/sessions/"+s.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("cancel: %d", rr.Code)
	}
	if rr := do(t, h, "POST", "/v1/sessions/"+s.ID+"/next", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancel, got %d", rr.Code)
	}
	if len(em.sent) != 0 {
		t.Fatalf("cancel must not emit")
	}
}

func TestOpenSession_BadInput(t *testing.T) {
	h, _ := newAPI(t)
	for body, want := range map[string]int{
		`{"product_id":""}`:        400,
		`{"product":"x"}`:          400,
		`not json`:                 400,
		`{"product_id":"missing"}`: 404,
	} {
		if rr := do(t, h, "POST", "/v1/sessions", body); rr.Code != want {
			t.Fatalf("%s: got %d, want %d", body, rr.Code, want)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h, _ := newAPI(t)

	rr := do(t, h, "GET", "/v2/anything", "")
	if rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") != "application/problem+json" {
		t.Fatalf("unknown route: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	rr = do(t, h, "PATCH", "/v1/products", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: %d", rr.Code)
	}
}
