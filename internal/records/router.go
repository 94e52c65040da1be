// Package records exposes list/get/create/replace/patch/delete over every
// collection of the catalog document.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	"github.com/ariefcatur/storefront-orders/internal/httpx"
)

const maxRecordBody = 1 << 20

type Store interface {
	View(ctx context.Context, fn func(*catalog.Document) error) error
	Update(ctx context.Context, fn func(*catalog.Document) error) error
}

type Handler struct {
	store Store
	log   *slog.Logger
}

func NewRouter(store Store, log *slog.Logger) chi.Router {
	h := &Handler{store: store, log: log}
	r := chi.NewRouter()
	r.Get("/{collection}", h.list)
	r.Post("/{collection}", h.create)
	r.Get("/{collection}/{id}", h.get)
	r.Put("/{collection}/{id}", h.replace)
	r.Patch("/{collection}/{id}", h.patch)
	r.Delete("/{collection}/{id}", h.remove)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query()

	var out []catalog.Record
	err := h.store.View(r.Context(), func(d *catalog.Document) error {
		recs, err := d.List(collection)
		if err != nil {
			return err
		}
		out = filter(recs, q)
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	page, err := paginate(out, q)
	if err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Message: err.Error()})
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(out)))
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), catalog.StringID(chi.URLParam(r, "id"))

	var rec catalog.Record
	err := h.store.View(r.Context(), func(d *catalog.Document) error {
		var err error
		rec, err = d.Get(collection, id)
		return err
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	body, err := decodeRecord(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var rec catalog.Record
	err = h.store.Update(r.Context(), func(d *catalog.Document) error {
		if !d.HasCollection(collection) {
			return fmt.Errorf("%w: %s", catalog.ErrCollectionNotFound, collection)
		}
		var ierr error
		rec, ierr = d.Insert(collection, body)
		return ierr
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, func(d *catalog.Document, collection string, id catalog.ID, body catalog.Record) (catalog.Record, error) {
		return d.Replace(collection, id, body)
	})
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, func(d *catalog.Document, collection string, id catalog.ID, body catalog.Record) (catalog.Record, error) {
		return d.Patch(collection, id, body)
	})
}

type mutation func(d *catalog.Document, collection string, id catalog.ID, body catalog.Record) (catalog.Record, error)

func (h *Handler) write(w http.ResponseWriter, r *http.Request, fn mutation) {
	collection, id := chi.URLParam(r, "collection"), catalog.StringID(chi.URLParam(r, "id"))
	body, err := decodeRecord(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var rec catalog.Record
	err = h.store.Update(r.Context(), func(d *catalog.Document) error {
		var ferr error
		rec, ferr = fn(d, collection, id, body)
		return ferr
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), catalog.StringID(chi.URLParam(r, "id"))

	err := h.store.Update(r.Context(), func(d *catalog.Document) error {
		return d.Delete(collection, id)
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var se *catalog.StoreError
	switch {
	case errors.Is(err, catalog.ErrCollectionNotFound), errors.Is(err, catalog.ErrRecordNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Message: "Not found"})
	case errors.Is(err, catalog.ErrDuplicateID):
		httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorBody{Message: err.Error()})
	case errors.Is(err, catalog.ErrInvalidRecord):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Message: err.Error()})
	case errors.As(err, &se):
		h.log.Error("catalog store failure", "op", se.Op, "error", se.Err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorBody{Message: "Storage error"})
	default:
		h.log.Error("record request failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorBody{Message: "Internal error"})
	}
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (catalog.Record, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	dec.UseNumber()
	var rec catalog.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrInvalidRecord, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", catalog.ErrInvalidRecord)
	}
	return rec, nil
}

// filter keeps records whose fields equal every non-underscore query
// parameter, compared by their JSON text.
func filter(recs []catalog.Record, q map[string][]string) []catalog.Record {
	out := make([]catalog.Record, 0, len(recs))
next:
	for _, rec := range recs {
		for field, want := range q {
			if strings.HasPrefix(field, "_") || len(want) == 0 {
				continue
			}
			if !matches(rec[field], want[0]) {
				continue next
			}
		}
		out = append(out, rec)
	}
	return out
}

func matches(v any, want string) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t == want
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return false
		}
		return string(bytes.Trim(b, `"`)) == want
	}
}

// paginate applies _page (1-based) and _limit.
func paginate(recs []catalog.Record, q map[string][]string) ([]catalog.Record, error) {
	limitStr := first(q["_limit"])
	if limitStr == "" {
		return recs, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("invalid _limit %q", limitStr)
	}
	page := 1
	if p := first(q["_page"]); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid _page %q", p)
		}
	}
	// compare before multiplying; huge _page values would overflow
	if limit == 0 || page-1 >= (len(recs)-1)/limit+1 {
		return []catalog.Record{}, nil
	}
	start := (page - 1) * limit
	end := start + min(limit, len(recs)-start)
	return recs[start:end], nil
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
