package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lorenzo-12/quantas-link-delay/pkg/storage"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

type APIHandler struct {
	Store storage.Store
}

func NewHandler(store storage.Store) *APIHandler {
	return &APIHandler{Store: store}
}

// Register mounts the summary routes on r.
func (h *APIHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/summaries", h.SubmitSummary).Methods("POST")
	r.HandleFunc("/summaries", h.GetSummaries).Methods("GET")
	r.HandleFunc("/summaries/{algorithm}", h.GetSummary).Methods("GET")
	r.HandleFunc("/summaries/{algorithm}/{combination}", h.GetCombination).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// GET /health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// POST /summaries
func (h *APIHandler) SubmitSummary(w http.ResponseWriter, r *http.Request) {
	var summary sweeptypes.Summary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	if !summary.Algorithm.Valid() {
		http.Error(w, "Unknown algorithm", http.StatusBadRequest)
		return
	}
	if err := h.Store.AddSummary(&summary); err != nil {
		log.Printf("store summary %s: %v", summary.Algorithm, err)
		http.Error(w, "Failed to store summary", http.StatusInternalServerError)
		return
	}
	log.Printf("stored summary for %s (%d combinations, %d gaps)", summary.Algorithm, len(summary.Results), len(summary.Gaps))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

// GET /summaries
func (h *APIHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	all, err := h.Store.GetAllSummaries()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *APIHandler) lookup(w http.ResponseWriter, r *http.Request) (*sweeptypes.Summary, bool) {
	alg, err := sweeptypes.ParseAlgorithm(mux.Vars(r)["algorithm"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	summary, err := h.Store.GetSummary(alg)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "No summary for "+string(alg), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return summary, true
}

// GET /summaries/{algorithm}
func (h *APIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if summary, ok := h.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, summary)
	}
}

// GET /summaries/{algorithm}/{combination}
func (h *APIHandler) GetCombination(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.lookup(w, r)
	if !ok {
		return
	}
	comb := mux.Vars(r)["combination"]
	byF, ok := summary.Results[comb]
	if !ok {
		http.Error(w, "No combination "+comb, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, byF)
}
