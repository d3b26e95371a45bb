package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"property-ingest/config"
	"property-ingest/models"
	"property-ingest/services"
	"property-ingest/utils"
)

type memStore struct {
	mu      sync.Mutex
	records []models.Property
}

func (s *memStore) Create(ctx context.Context, p *models.Property) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *p)
	return "id", nil
}

func (s *memStore) List(ctx context.Context, limit int) ([]models.Property, error) {
	return nil, nil
}

func (s *memStore) Close() error { return nil }

type stubSales struct{}

func (stubSales) Fetch(ctx context.Context, postcode string, limit int) ([]string, []models.RawRow, error) {
	return []string{"address", "postcode", "price paid", "date of transfer"},
		[]models.RawRow{{"address": "1 Test Road", "postcode": postcode, "price paid": 100000.0, "date of transfer": "2024-01-31"}},
		nil
}

func newTestRouter(t *testing.T, withSales bool) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewDiscardLogger()
	dict := config.MustDefaultDictionary()
	store := &memStore{}
	pipeline := services.NewPipeline(
		services.NewMappingDetector(dict, logger),
		services.NewNormalizer(dict, logger),
		services.NewImporter(store, nil, 10, logger),
		logger,
	)
	if withSales {
		pipeline.WithSaleRecords(stubSales{}, nil)
	}
	return NewServer(NewHandler(pipeline, 1<<20, logger)), store
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	w.Close()
	return &buf, w.FormDataContentType()
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) models.ImportResult {
	t.Helper()
	var res models.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return res
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t, false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestImportFile(t *testing.T) {
	r, store := newTestRouter(t, false)
	body, contentType := multipartBody(t, "listings.csv",
		"address,postcode,price\n1 High St,TE1 1ST,250000\nno postcode,,1\n")

	req := httptest.NewRequest(http.MethodPost, "/imports/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /imports/file = %d %s", rec.Code, rec.Body.String())
	}
	res := decodeResult(t, rec)
	if res.Total != 2 || res.Successful != 1 || res.Failed != 1 || res.Errors[0].Index != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(store.records) != 1 {
		t.Errorf("store has %d records; want 1", len(store.records))
	}
}

func TestImportFileRejectsUnparseableFiles(t *testing.T) {
	r, store := newTestRouter(t, false)
	body, contentType := multipartBody(t, "listings.pdf", "%PDF-1.4")

	req := httptest.NewRequest(http.MethodPost, "/imports/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST /imports/file (pdf) = %d; want 422", rec.Code)
	}
	if len(store.records) != 0 {
		t.Error("records stored after parse failure")
	}
}

func TestImportFileRequiresFile(t *testing.T) {
	r, _ := newTestRouter(t, false)
	req := httptest.NewRequest(http.MethodPost, "/imports/file", strings.NewReader(""))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /imports/file without file = %d; want 400", rec.Code)
	}
}

func TestImportRecords(t *testing.T) {
	r, _ := newTestRouter(t, false)
	payload := `[
		{"address": "1 High St", "postcode": "TE1 1ST", "price": 250000, "features": ["Garden"]},
		{"address": "123 Main St"}
	]`

	req := httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /imports = %d %s", rec.Code, rec.Body.String())
	}
	res := decodeResult(t, rec)
	if res.Total != 2 || res.Successful != 1 || res.Failed != 1 || res.Errors[0].Index != 1 {
		t.Errorf("result = %+v", res)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader(`{"not":"an array"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /imports (object) = %d; want 400", rec.Code)
	}
}

func TestImportSold(t *testing.T) {
	r, store := newTestRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, "/imports/sold", strings.NewReader(`{"postcode":"TE1 1ST","limit":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /imports/sold = %d %s", rec.Code, rec.Body.String())
	}
	if res := decodeResult(t, rec); res.Successful != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := store.records[0].Title; got != "Detached for sale on 1 Test Road" {
		t.Errorf("Title = %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/imports/sold", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /imports/sold without postcode = %d; want 400", rec.Code)
	}
}

func TestImportSoldWithoutSource(t *testing.T) {
	r, _ := newTestRouter(t, false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/imports/sold", strings.NewReader(`{"postcode":"TE1 1ST"}`)))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("POST /imports/sold = %d; want 501", rec.Code)
	}
}
