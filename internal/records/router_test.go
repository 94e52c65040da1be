package records

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	"github.com/ariefcatur/storefront-orders/internal/logger"
)

const seed = `{
  "products": [
    {"id": 1, "name": "Shoe", "category": "footwear", "price": 100, "isSoldOut": false},
    {"id": 2, "name": "Boot", "category": "footwear", "price": 150, "isSoldOut": true},
    {"id": 3, "name": "Hat", "category": "hats", "price": 20, "isSoldOut": false}
  ],
  "orders": [],
  "settings": {"currency": "EUR"}
}`

type RouterSuite struct {
	suite.Suite
	path string
	srv  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "db.json")
	s.Require().NoError(os.WriteFile(s.path, []byte(seed), 0o644))
	s.srv = NewRouter(catalog.NewStore(s.path, logger.Discard()), logger.Discard())
}

func (s *RouterSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.srv.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (s *RouterSuite) TestList() {
	w := s.do(http.MethodGet, "/products", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("3", w.Header().Get("X-Total-Count"))

	var recs []map[string]any
	s.decode(w, &recs)
	s.Len(recs, 3)
}

func (s *RouterSuite) TestListFilterAndPaginate() {
	w := s.do(http.MethodGet, "/products?category=footwear&isSoldOut=false", "")
	var recs []map[string]any
	s.decode(w, &recs)
	s.Require().Len(recs, 1)
	s.Equal("Shoe", recs[0]["name"])

	w = s.do(http.MethodGet, "/products?_limit=2&_page=2", "")
	s.Equal("3", w.Header().Get("X-Total-Count"))
	s.decode(w, &recs)
	s.Require().Len(recs, 1)
	s.Equal("Hat", recs[0]["name"])

	w = s.do(http.MethodGet, "/products?_limit=x", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestPaginateOutOfRange() {
	for _, q := range []string{
		"_limit=2&_page=9223372036854775807",
		"_limit=9223372036854775807&_page=2",
		"_limit=0",
		"_limit=2&_page=3",
	} {
		w := s.do(http.MethodGet, "/products?"+q, "")
		s.Equal(http.StatusOK, w.Code, q)
		s.Equal("3", w.Header().Get("X-Total-Count"), q)
		var recs []map[string]any
		s.decode(w, &recs)
		s.Empty(recs, q)
	}

	w := s.do(http.MethodGet, "/products?_limit=9223372036854775807", "")
	var recs []map[string]any
	s.decode(w, &recs)
	s.Len(recs, 3)
}

func (s *RouterSuite) TestGet() {
	w := s.do(http.MethodGet, "/products/2", "")
	s.Equal(http.StatusOK, w.Code)
	var rec map[string]any
	s.decode(w, &rec)
	s.Equal("Boot", rec["name"])

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/products/99", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/nope/1", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/settings", "").Code)
}

func (s *RouterSuite) TestCreate() {
	w := s.do(http.MethodPost, "/products", `{"name": "Scarf", "price": 12.5}`)
	s.Equal(http.StatusCreated, w.Code)
	var rec map[string]any
	s.decode(w, &rec)
	s.Equal(float64(4), rec["id"])

	w = s.do(http.MethodGet, "/products/4", "")
	s.Equal(http.StatusOK, w.Code)

	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/products", `{"id": 1}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/products", `[1]`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/products", `null`).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/nope", `{}`).Code)
}

func (s *RouterSuite) TestReplaceAndPatch() {
	w := s.do(http.MethodPatch, "/products/3", `{"price": 25, "id": 77}`)
	s.Equal(http.StatusOK, w.Code)
	var rec map[string]any
	s.decode(w, &rec)
	s.Equal(float64(3), rec["id"])
	s.Equal(float64(25), rec["price"])
	s.Equal("Hat", rec["name"])

	w = s.do(http.MethodPut, "/products/3", `{"name": "Cap"}`)
	s.Equal(http.StatusOK, w.Code)
	rec = nil
	s.decode(w, &rec)
	s.Equal(map[string]any{"id": float64(3), "name": "Cap"}, rec)

	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/products/99", `{}`).Code)
}

func (s *RouterSuite) TestDelete() {
	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/products/1", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/products/1", "").Code)

	raw, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Contains(string(raw), `"currency": "EUR"`)
	s.NotContains(string(raw), `"Shoe"`)
}

func (s *RouterSuite) TestStorageErrorIs500() {
	s.Require().NoError(os.WriteFile(s.path, []byte(`{broken`), 0o644))
	w := s.do(http.MethodGet, "/products", "")
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), s.path)
}
