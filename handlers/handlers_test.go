package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findsforliving-lab/finds4livingbot/extractor"
	"github.com/findsforliving-lab/finds4livingbot/fetcher"
	"github.com/findsforliving-lab/finds4livingbot/models"
	"github.com/findsforliving-lab/finds4livingbot/services"
)

func testRouter(t *testing.T) (*mux.Router, *Handlers) {
	t.Helper()

	drafts := services.NewDraftStore(time.Hour)
	t.Cleanup(drafts.Stop)

	h := NewHandlers(extractor.NewEngine(), fetcher.New(nil, 5*time.Second), nil, nil, drafts, 1)
	t.Cleanup(h.Stop)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/extract", h.ExtractProduct).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/tasks", h.GetTaskStats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/products", h.GetProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/drafts/{userID}", h.CreateDraft).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/drafts/{userID}", h.GetDraft).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/drafts/{userID}", h.UpdateDraft).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/drafts/{userID}", h.DeleteDraft).Methods(http.MethodDelete)
	return r, h
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const amazonFixture = `
<html><body>
	<span id="productTitle"> Echo Dot (5ª geração) </span>
	<div id="corePrice_feature_div">
		<span class="a-price"><span class="a-offscreen">R$ 299,00</span></span>
		<span class="a-price a-text-price"><span class="a-offscreen">R$ 379,00</span></span>
	</div>
	<img id="landingImage" data-old-hires="https://m.media-amazon.com/images/I/echo.jpg" src="https://m.media-amazon.com/images/I/echo-small.jpg">
	<div id="productDescription">Smart speaker com Alexa.</div>
</body></html>`

func TestExtractProductInlineHTML(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/extract", models.ExtractRequest{
		URL:  "https://www.amazon.com.br/dp/B0ABCD1234",
		HTML: amazonFixture,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Echo Dot (5ª geração)", resp.Product.Title)
	assert.Equal(t, 299.0, resp.Product.Price.Current)
	assert.Equal(t, 379.0, resp.Product.Price.Original)
	assert.Equal(t, 21, resp.Product.Price.DiscountPercent)
	assert.Contains(t, resp.Product.Images, "https://m.media-amazon.com/images/I/echo.jpg")
	assert.Equal(t, "Smart speaker com Alexa.", resp.Product.Description)
}

func TestExtractProductRequiresURL(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/extract", models.ExtractRequest{HTML: "<html></html>"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackingDisabledWithoutDatabase(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats["total"])
}

func TestDraftEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/drafts/user-1", models.ExtractRequest{
		URL:  "https://www.amazon.com.br/dp/B0ABCD1234",
		HTML: amazonFixture,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/drafts/user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var draft models.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "Echo Dot (5ª geração)", draft.Product.Title)

	newTitle := "Echo Dot 5 com Alexa"
	rec = doJSON(t, router, http.MethodPatch, "/api/v1/drafts/user-1", models.DraftPatch{Title: &newTitle})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "Echo Dot 5 com Alexa", draft.Product.Title)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/drafts/user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/drafts/user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, false, payload["tracking"])
}
