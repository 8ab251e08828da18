package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/app"
	"travel_booking/internal/domain"
	"travel_booking/internal/wizard"
)

type Handlers struct {
	Q *app.QueryService
	B *app.BookingService
}

type problem struct {
	Type   string             `json:"type"`
	Title  string             `json:"title"`
	Status int                `json:"status"`
	Detail string             `json:"detail,omitempty"`
	Errors domain.FieldErrors `json:"errors,omitempty"`
}

// reserved query parameters; everything else filters by attribute
var searchParams = map[string]bool{"q": true, "max_price": true, "min_rating": true}

const dateLayout = "2006-01-02"

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/products", func(r chi.Router) {
		r.Get("/", h.searchProducts)
		r.Get("/{id}", h.getProduct)
	})

	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.openSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.cancelSession)
			r.Put("/options/{category}", h.chooseOption)
			r.Put("/party", h.setParty)
			r.Put("/slot", h.selectSlot)
			r.Put("/stay", h.setStay)
			r.Post("/next", h.next)
			r.Post("/back", h.back)
			r.Put("/contact", h.updateContact)
			r.Post("/submit", h.submit)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var fe domain.FieldErrors
	switch {
	case errors.As(err, &fe):
		writeProblemBody(w, problem{
			Type:   "about:blank",
			Title:  "Invalid contact details",
			Status: http.StatusUnprocessableEntity,
			Errors: fe,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, wizard.ErrWrongState), errors.Is(err, wizard.ErrClosed):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		log.Error().Err(err).Msg("product configuration defect")
		writeProblem(w, http.StatusInternalServerError, "Product misconfigured", err.Error())
	case errors.Is(err, wizard.ErrUnknownCategory), errors.Is(err, wizard.ErrUnknownChoice),
		errors.Is(err, wizard.ErrUnknownSlot), errors.Is(err, wizard.ErrPartySize),
		errors.Is(err, wizard.ErrStayRange), errors.Is(err, wizard.ErrScheduleModel):
		writeProblem(w, http.StatusBadRequest, "Invalid selection", err.Error())
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeBody reads a JSON body into dst, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- catalog ----

func (h *Handlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	crit := domain.FilterCriteria{Query: qs.Get("q"), Attributes: map[string]string{}}

	if v := qs.Get("max_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid max_price", "max_price must be a non-negative integer in minor units")
			return
		}
		crit.MaxPrice = &n
	}
	if v := qs.Get("min_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 5 {
			writeProblem(w, http.StatusBadRequest, "Invalid min_rating", "min_rating must be a number between 0 and 5")
			return
		}
		crit.MinRating = &f
	}
	for k, vs := range qs {
		if !searchParams[k] && len(vs) > 0 {
			crit.Attributes[k] = vs[0]
		}
	}

	out, err := h.Q.Search(r.Context(), crit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Items   []domain.Product `json:"items"`
		Count   int              `json:"count"`
		Version string           `json:"version"`
	}{out, len(out), h.Q.CatalogVersion()})
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Q.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(p)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getProduct body")
	}
}

// ---- booking sessions ----

func (h *Handlers) openSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"product_id"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.ProductID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "product_id is required")
		return
	}
	v, err := h.B.Open(r.Context(), in.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

// respond writes a session view or the error that replaced it.
func respond(w http.ResponseWriter, v app.SessionView, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.B.Get(r.Context(), chi.URLParam(r, "sid"))
	respond(w, v, err)
}

func (h *Handlers) chooseOption(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Choice string `json:"choice"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := h.B.ChooseOption(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "category"), in.Choice)
	respond(w, v, err)
}

func (h *Handlers) setParty(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Size int `json:"size"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := h.B.SetPartySize(r.Context(), chi.URLParam(r, "sid"), in.Size)
	respond(w, v, err)
}

func (h *Handlers) selectSlot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Slot string `json:"slot"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := h.B.SelectSlot(r.Context(), chi.URLParam(r, "sid"), in.Slot)
	respond(w, v, err)
}

func (h *Handlers) setStay(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	checkIn, err1 := time.Parse(dateLayout, in.CheckIn)
	checkOut, err2 := time.Parse(dateLayout, in.CheckOut)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	v, err := h.B.SetStay(r.Context(), chi.URLParam(r, "sid"), checkIn, checkOut)
	respond(w, v, err)
}

func (h *Handlers) next(w http.ResponseWriter, r *http.Request) {
	v, err := h.B.Next(r.Context(), chi.URLParam(r, "sid"))
	respond(w, v, err)
}

func (h *Handlers) back(w http.ResponseWriter, r *http.Request) {
	v, err := h.B.Back(r.Context(), chi.URLParam(r, "sid"))
	respond(w, v, err)
}

func (h *Handlers) updateContact(w http.ResponseWriter, r *http.Request) {
	var in domain.ContactFields
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := h.B.UpdateContact(r.Context(), chi.URLParam(r, "sid"), in)
	respond(w, v, err)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	rc, err := h.B.Submit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}

func (h *Handlers) cancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.B.Cancel(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
