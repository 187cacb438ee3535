package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/crash-data-etl/internal/adapter/socrata"
	"github.com/couchcryptid/crash-data-etl/internal/chat"
	"github.com/couchcryptid/crash-data-etl/internal/domain"
	"github.com/gorilla/mux"
)

const maxChatBody = 4 << 20

const (
	msgLoaded          = "Data loaded successfully"
	msgFetchFailed     = "Failed to fetch data from external API"
	msgLoadFailed      = "Failed to load data"
	msgIncidentsFailed = "Failed to fetch incident data"
	msgDashboardFailed = "Failed to fetch dashboard metrics"
	msgQueryRequired   = "Query parameter 'q' is required"
	msgInvalidK        = "Query parameter 'k' must be an integer between 1 and 100"
	msgRetrieveFailed  = "Error retrieving results"
)

type handlers struct {
	svc    Services
	logger *slog.Logger
}

func (h *handlers) register(r *mux.Router) {
	r.HandleFunc("/v1/incidents", h.listIncidents).Methods(http.MethodGet)
	r.HandleFunc("/v1/load", h.load).Methods(http.MethodPost)
	r.HandleFunc("/v1/dashboard", h.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/ai/chat", h.chat).Methods(http.MethodPost)
	r.HandleFunc("/v1/ai/chat", h.chat).Methods(http.MethodPost)
	r.HandleFunc("/retrieve", h.retrieve).Methods(http.MethodGet)
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   any    `json:"error"`
}

func (h *handlers) listIncidents(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Incidents.ListIncidents(r.Context())
	if err != nil {
		h.logger.Error("list incidents failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Message: msgIncidentsFailed, Error: err.Error()})
		return
	}
	if records == nil {
		records = []domain.IncidentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": records})
}

func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abandon a half-persisted load.
	result, err := h.svc.Loader.Load(context.WithoutCancel(r.Context()))
	if err != nil {
		var statusErr *socrata.StatusError
		if errors.As(err, &statusErr) {
			writeJSON(w, http.StatusInternalServerError, failure{Message: msgFetchFailed, Error: statusErr.Code})
			return
		}
		writeJSON(w, http.StatusInternalServerError, failure{Message: msgLoadFailed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msgLoaded,
		"counts":  result.Counts,
	})
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Incidents.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Message: msgDashboardFailed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": d})
}

func (h *handlers) retrieve(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, failure{Message: msgQueryRequired})
		return
	}

	k := domain.DefaultRetrieveK
	if raw := params.Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > domain.MaxRetrieveK {
			writeJSON(w, http.StatusUnprocessableEntity, failure{Message: msgInvalidK})
			return
		}
		k = n
	}

	results, err := h.svc.Retriever.Retrieve(r.Context(), q, k)
	if err != nil {
		h.logger.Error("retrieve failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Message: msgRetrieveFailed, Error: err.Error()})
		return
	}
	if results == nil {
		results = []domain.Passage{}
	}
	writeJSON(w, http.StatusOK, domain.Retrieval{Query: q, K: k, Results: results})
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, failure{Error: err.Error()})
		return
	}

	req, err := chat.Decode(body)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"success": false,
				"message": verr.First(),
				"errors":  verr.Fields,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, failure{Error: err.Error()})
		return
	}

	answer, err := h.svc.Chat.Answer(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "response": answer})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
