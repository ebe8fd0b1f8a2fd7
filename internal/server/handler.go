package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/registration"
	"github.com/jeonglab2/lost-items-desktop/internal/relocate"
	"github.com/jeonglab2/lost-items-desktop/internal/service"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

// Config holds configurable limits for the server.
type Config struct {
	MaxRequestBody int64 // bytes, for JSON endpoints
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody: 1 << 20, // 1MB
	}
}

// Handler creates the HTTP handler with all routes and middleware.
func Handler(svc *registration.Service, storage service.Storage, relocator *relocate.Runner, tax *taxonomy.Store, cfg *Config, logger *slog.Logger) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{svc: svc, storage: storage, relocator: relocator, tax: tax, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /api/v1/categories", h.handleCategories)
	mux.HandleFunc("POST /api/v1/suggest", h.handleSuggest)
	mux.HandleFunc("POST /api/v1/items", h.handleRegister)
	mux.HandleFunc("GET /api/v1/items", h.handleListItems)
	mux.HandleFunc("GET /api/v1/items/search", h.handleSearchItems)
	mux.HandleFunc("GET /api/v1/items/{id}", h.handleGetItem)
	mux.HandleFunc("PUT /api/v1/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/v1/items/{id}", h.handleDeleteItem)
	mux.HandleFunc("POST /api/v1/relocate", h.handleRelocate)

	return applyMiddleware(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		requestIDMiddleware,
	)
}

type handlers struct {
	svc       *registration.Service
	storage   service.Storage
	relocator *relocate.Runner
	tax       *taxonomy.Store
	cfg       *Config
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type categoryResponse struct {
	Large    string   `json:"category_large"`
	Medium   string   `json:"category_medium"`
	Keywords []string `json:"keywords"`
}

func (h *handlers) handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := h.tax.Categories()
	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = categoryResponse{Large: c.Large, Medium: c.Medium, Keywords: c.Keywords}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"taxonomy_version": h.tax.Version(),
		"categories":       out,
	})
}

type suggestRequest struct {
	Name     string `json:"name"`
	Features string `json:"features"`
	Color    string `json:"color"`
	TopN     int    `json:"top_n"`
}

type suggestionResponse struct {
	Large             string `json:"category_large"`
	Medium            string `json:"category_medium"`
	ConfidencePercent int    `json:"confidence_percent"`
	MatchedKeyword    string `json:"matched_keyword,omitempty"`
}

func (h *handlers) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rankings, err := h.svc.Suggest(r.Context(), model.ClassificationQuery{
		Name:     req.Name,
		Features: req.Features,
		Color:    req.Color,
	}, req.TopN)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]suggestionResponse, len(rankings))
	for i, rk := range rankings {
		out[i] = suggestionResponse{
			Large:             rk.Category.Large,
			Medium:            rk.Category.Medium,
			ConfidencePercent: rk.ConfidencePercent(),
			MatchedKeyword:    rk.MatchedKeyword,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

type registerRequest struct {
	FacilityID string `json:"facility_id"`
	FoundAt    string `json:"found_at"`
	AcceptedAt string `json:"accepted_at"`
	FoundPlace string `json:"found_place"`

	Name     string `json:"name"`
	Features string `json:"features"`
	Color    string `json:"color"`

	CategoryLarge  string `json:"category_large"`
	CategoryMedium string `json:"category_medium"`

	ClaimsOwnership bool  `json:"claims_ownership"`
	ClaimsReward    bool  `json:"claims_reward"`
	FoodHint        *bool `json:"is_food,omitempty"`
	UmbrellaHint    *bool `json:"is_umbrella,omitempty"`
}

type itemResponse struct {
	ID              string `json:"item_id"`
	FacilityID      string `json:"facility_id"`
	FoundAt         string `json:"found_at"`
	AcceptedAt      string `json:"accepted_at"`
	FoundPlace      string `json:"found_place"`
	CategoryLarge   string `json:"category_large"`
	CategoryMedium  string `json:"category_medium"`
	Name            string `json:"name"`
	Features        string `json:"features"`
	Color           string `json:"color"`
	StorageLocation string `json:"storage_location"`
	Status          string `json:"status"`
	ClaimsOwnership bool   `json:"claims_ownership"`
	ClaimsReward    bool   `json:"claims_reward"`
}

func toItemResponse(item *model.Item) itemResponse {
	return itemResponse{
		ID:              item.ID,
		FacilityID:      item.FacilityID,
		FoundAt:         item.FoundAt.Format(time.RFC3339),
		AcceptedAt:      item.AcceptedAt.Format(time.RFC3339),
		FoundPlace:      item.FoundPlace,
		CategoryLarge:   item.CategoryLarge,
		CategoryMedium:  item.CategoryMedium,
		Name:            item.Name,
		Features:        item.Features,
		Color:           item.Color,
		StorageLocation: item.StorageLocation,
		Status:          string(item.Status),
		ClaimsOwnership: item.ClaimsOwnership,
		ClaimsReward:    item.ClaimsReward,
	}
}

func (h *handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	foundAt, err := parseTime(req.FoundAt)
	if err != nil {
		writeBadRequest(w, "invalid found_at: "+err.Error())
		return
	}
	acceptedAt, err := parseTime(req.AcceptedAt)
	if err != nil {
		writeBadRequest(w, "invalid accepted_at: "+err.Error())
		return
	}

	item, err := h.svc.Register(r.Context(), registration.Request{
		FacilityID: req.FacilityID,
		FoundAt:    foundAt,
		AcceptedAt: acceptedAt,
		FoundPlace: req.FoundPlace,
		Query: model.ClassificationQuery{
			Name:            req.Name,
			Features:        req.Features,
			Color:           req.Color,
			ClaimsOwnership: req.ClaimsOwnership,
			ClaimsReward:    req.ClaimsReward,
			FoodHint:        req.FoodHint,
			UmbrellaHint:    req.UmbrellaHint,
		},
		CategoryLarge:  req.CategoryLarge,
		CategoryMedium: req.CategoryMedium,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *handlers) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.storage.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// parseItemFilter reads the list/search query parameters shared by both
// endpoints. A false return means a 400 was already written.
func (h *handlers) parseItemFilter(w http.ResponseWriter, r *http.Request) (service.ItemFilter, bool) {
	q := r.URL.Query()

	filter := service.ItemFilter{
		FoundPlace: q.Get("found_place"),
		Limit:      100,
	}
	if kw := q.Get("keywords"); kw != "" {
		filter.Keywords = splitKeywords(kw)
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid limit")
			return filter, false
		}
		filter.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid offset")
			return filter, false
		}
		filter.Offset = n
	}
	for param, dest := range map[string]**time.Time{
		"date_from": &filter.FoundFrom,
		"date_to":   &filter.FoundTo,
	} {
		if v := q.Get(param); v != "" {
			t, err := parseTime(v)
			if err != nil {
				writeBadRequest(w, "invalid "+param+": "+err.Error())
				return filter, false
			}
			*dest = &t
		}
	}

	return filter, true
}

func (h *handlers) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseItemFilter(w, r)
	if !ok {
		return
	}

	items, err := h.storage.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = toItemResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// handleSearchItems searches over name and features. Every space-separated
// term in q must match; semantic=true additionally reorders the matches by
// embedding similarity to q.
func (h *handlers) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeBadRequest(w, "missing q parameter")
		return
	}
	semantic := false
	if v := r.URL.Query().Get("semantic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "invalid semantic parameter")
			return
		}
		semantic = b
	}

	filter, ok := h.parseItemFilter(w, r)
	if !ok {
		return
	}
	filter.Keywords = splitKeywords(q)

	results, err := h.svc.Search(r.Context(), q, filter, semantic)
	if err != nil {
		writeError(w, err)
		return
	}

	type searchItemResponse struct {
		itemResponse
		Score float64 `json:"score"`
	}
	out := make([]searchItemResponse, len(results))
	for i := range results {
		out[i] = searchItemResponse{
			itemResponse: toItemResponse(&results[i].Item),
			Score:        results[i].Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// updateItemRequest carries a partial item update; nil fields keep their
// stored value.
type updateItemRequest struct {
	FoundAt    *string `json:"found_at"`
	AcceptedAt *string `json:"accepted_at"`
	FoundPlace *string `json:"found_place"`

	Name     *string `json:"name"`
	Features *string `json:"features"`
	Color    *string `json:"color"`

	CategoryLarge  *string `json:"category_large"`
	CategoryMedium *string `json:"category_medium"`

	StorageLocation *string `json:"storage_location"`
	Status          *string `json:"status"`

	ClaimsOwnership *bool `json:"claims_ownership"`
	ClaimsReward    *bool `json:"claims_reward"`
}

func (h *handlers) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	item, err := h.storage.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	for dest, v := range map[*string]*string{
		&item.FoundPlace:      req.FoundPlace,
		&item.Name:            req.Name,
		&item.Features:        req.Features,
		&item.Color:           req.Color,
		&item.CategoryLarge:   req.CategoryLarge,
		&item.CategoryMedium:  req.CategoryMedium,
		&item.StorageLocation: req.StorageLocation,
	} {
		if v != nil {
			*dest = *v
		}
	}
	if req.FoundAt != nil {
		t, err := parseTime(*req.FoundAt)
		if err != nil {
			writeBadRequest(w, "invalid found_at: "+err.Error())
			return
		}
		item.FoundAt = t
	}
	if req.AcceptedAt != nil {
		t, err := parseTime(*req.AcceptedAt)
		if err != nil {
			writeBadRequest(w, "invalid accepted_at: "+err.Error())
			return
		}
		item.AcceptedAt = t
	}
	if req.Status != nil {
		status, err := model.ParseStatus(*req.Status)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		item.Status = status
	}
	if req.ClaimsOwnership != nil {
		item.ClaimsOwnership = *req.ClaimsOwnership
	}
	if req.ClaimsReward != nil {
		item.ClaimsReward = *req.ClaimsReward
	}

	if err := h.svc.Update(r.Context(), item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *handlers) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "deleted"})
}

type relocateRequest struct {
	AsOf string `json:"as_of"`
}

func (h *handlers) handleRelocate(w http.ResponseWriter, r *http.Request) {
	var req relocateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	asOf := time.Now()
	if req.AsOf != "" {
		t, err := parseTime(req.AsOf)
		if err != nil {
			writeBadRequest(w, "invalid as_of: "+err.Error())
			return
		}
		asOf = t
	}

	report, err := h.relocator.Run(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	type moveResponse struct {
		ItemID string `json:"item_id"`
		From   string `json:"from"`
		To     string `json:"to"`
	}
	type failureResponse struct {
		ItemID string `json:"item_id"`
		Error  string `json:"error"`
	}

	moves := make([]moveResponse, len(report.Moves))
	for i, m := range report.Moves {
		moves[i] = moveResponse{ItemID: m.ItemID, From: m.From, To: m.To}
	}
	failures := make([]failureResponse, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = failureResponse{ItemID: f.ItemID, Error: f.Err.Error()}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": report.BatchID,
		"as_of":    report.AsOf.Format(time.RFC3339),
		"moves":    moves,
		"failures": failures,
		"skipped":  report.Skipped,
	})
}

func (h *handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBody)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "empty request body")
			return false
		}
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// splitKeywords splits on whitespace, including the ideographic space.
func splitKeywords(s string) []string {
	return strings.Fields(s)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateEntry), errors.Is(err, relocate.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, common.ErrTaxonomyUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
