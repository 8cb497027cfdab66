package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/findsforliving-lab/finds4livingbot/extractor"
	"github.com/findsforliving-lab/finds4livingbot/fetcher"
	"github.com/findsforliving-lab/finds4livingbot/models"
	"github.com/findsforliving-lab/finds4livingbot/repository"
	"github.com/findsforliving-lab/finds4livingbot/scheduler"
	"github.com/findsforliving-lab/finds4livingbot/services"
)

// ErrUnparseable marks documents the HTML parser rejected, surfaced as 422
// instead of the 502 used for fetch failures.
var ErrUnparseable = errors.New("unparseable document")

// Handlers carries the HTTP handler dependencies. repo and browser may be
// nil: tracking endpoints answer 503 without a database, and fetching falls
// back to plain HTTP without a browser.
type Handlers struct {
	engine  *extractor.Engine
	fetcher *fetcher.Fetcher
	browser *fetcher.BrowserFetcher
	repo    *repository.ProductRepository
	drafts  *services.DraftStore
	tasks   *scheduler.TaskManager
}

// NewHandlers wires the handlers and starts the async task pool.
func NewHandlers(engine *extractor.Engine, f *fetcher.Fetcher, browser *fetcher.BrowserFetcher,
	repo *repository.ProductRepository, drafts *services.DraftStore, taskWorkers int) *Handlers {

	h := &Handlers{
		engine:  engine,
		fetcher: f,
		browser: browser,
		repo:    repo,
		drafts:  drafts,
	}
	h.tasks = scheduler.NewTaskManager(h.ExtractFromURL, taskWorkers)
	return h
}

// Stop shuts down the async task pool.
func (h *Handlers) Stop() {
	h.tasks.Stop()
}

// ExtractFromURL runs the full pipeline for one URL: short-link expansion,
// fetch (rendered when a browser is available), parse, extract.
func (h *Handlers) ExtractFromURL(ctx context.Context, pageURL string) (*models.ExtractResponse, error) {
	var doc *extractor.Document
	finalURL := pageURL

	if h.browser != nil {
		finalURL = h.fetcher.ExpandShortURL(ctx, pageURL)
		html, err := h.browser.Fetch(finalURL)
		if err != nil {
			return nil, err
		}
		doc, err = extractor.ParseDocumentString(html)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	} else {
		body, fetchedURL, err := h.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		finalURL = fetchedURL
		doc, err = extractor.ParseDocument(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	}

	return &models.ExtractResponse{
		OriginalURL: pageURL,
		FinalURL:    finalURL,
		Product:     h.engine.Extract(finalURL, doc),
	}, nil
}

// HealthCheck reports service status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"tracking":  h.repo != nil,
		"browser":   h.browser != nil,
	})
}

// ExtractProduct handles POST /api/v1/extract. With inline HTML the page is
// parsed directly; otherwise it is fetched.
func (h *Handlers) ExtractProduct(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if req.HTML != "" {
		doc, err := extractor.ParseDocumentString(req.HTML)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to parse document: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, &models.ExtractResponse{
			OriginalURL: req.URL,
			FinalURL:    req.URL,
			Product:     h.engine.Extract(req.URL, doc),
		})
		return
	}

	resp, err := h.ExtractFromURL(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ErrUnparseable) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		} else {
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExtractProductAsync handles POST /api/v1/extract-async.
func (h *Handlers) ExtractProductAsync(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	task := h.tasks.Submit(req.URL)
	writeJSON(w, http.StatusAccepted, task)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, ok := h.tasks.GetTask(id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GetTaskStats handles GET /api/v1/tasks.
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.GetStats())
}

// TrackProduct handles POST /api/v1/products: extract now, then persist for
// periodic re-checking.
func (h *Handlers) TrackProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	var req models.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	resp, err := h.ExtractFromURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	product, err := h.repo.AddProduct(resp.FinalURL, resp.Product)
	if err != nil {
		log.Printf("Failed to track product %s: %v", req.URL, err)
		writeError(w, http.StatusInternalServerError, "failed to track product")
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// GetProducts handles GET /api/v1/products.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	products, err := h.repo.GetProducts()
	if err != nil {
		log.Printf("Failed to list products: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteProduct(id); err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshProduct handles POST /api/v1/products/{id}/refresh: re-extract the
// product immediately instead of waiting for the next scheduled check.
func (h *Handlers) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	resp, err := h.ExtractFromURL(r.Context(), product.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := h.repo.UpdateProductPrice(id, resp.Product.Title, resp.Product.Price); err != nil {
		log.Printf("Failed to refresh product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to refresh product")
		return
	}

	updated, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load refreshed product")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GetPriceHistory handles GET /api/v1/products/{id}/history.
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireTracking(w) {
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	points, err := h.repo.GetPriceHistory(id, limit)
	if err != nil {
		log.Printf("Failed to load price history for %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if points == nil {
		points = []*models.PricePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// CreateDraft handles POST /api/v1/drafts/{userID}: extract a product and
// open it as the user's draft.
func (h *Handlers) CreateDraft(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var record *models.ProductRecord
	finalURL := req.URL
	if req.HTML != "" {
		doc, err := extractor.ParseDocumentString(req.HTML)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to parse document: %v", err))
			return
		}
		record = h.engine.Extract(req.URL, doc)
	} else {
		resp, err := h.ExtractFromURL(r.Context(), req.URL)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		record = resp.Product
		finalURL = resp.FinalURL
	}

	writeJSON(w, http.StatusCreated, h.drafts.Create(userID, finalURL, record))
}

// GetDraft handles GET /api/v1/drafts/{userID}.
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.drafts.Get(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// UpdateDraft handles PATCH /api/v1/drafts/{userID}.
func (h *Handlers) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var patch models.DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft patch")
		return
	}

	draft, err := h.drafts.Update(mux.Vars(r)["userID"], &patch)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// DeleteDraft handles DELETE /api/v1/drafts/{userID}.
func (h *Handlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(mux.Vars(r)["userID"]); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) requireTracking(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "tracking requires a database")
		return false
	}
	return true
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
