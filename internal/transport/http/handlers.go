package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"care-companion/internal/app"
	"care-companion/internal/domain"
)

const maxPushBody = 64 << 10

// PushDeliverer accepts push messages for a subject.
type PushDeliverer interface {
	DeliverPush(ctx context.Context, env domain.PushEnvelope) error
}

// NewPushHandler accepts push webhooks. Routing happens asynchronously from
// the caller's point of view, so success is 202.
func NewPushHandler(service PushDeliverer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var env domain.PushEnvelope
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&env); err != nil {
			writeError(w, http.StatusBadRequest, "invalid push payload")
			return
		}
		if err := service.DeliverPush(r.Context(), env); err != nil {
			if errors.Is(err, domain.ErrSubjectNotFound) {
				writeError(w, http.StatusBadRequest, "subjectId is required")
				return
			}
			log.Printf("deliver push: %v", err)
			writeError(w, http.StatusInternalServerError, "could not deliver push")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// NewResultsHandler lists recent game results of a subject.
func NewResultsHandler(service *app.CompanionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		subjectID := strings.TrimSpace(r.URL.Query().Get("subjectId"))
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		records, err := service.RecentResults(r.Context(), subjectID, limit)
		if err != nil {
			if errors.Is(err, domain.ErrSubjectNotFound) {
				writeError(w, http.StatusBadRequest, "subjectId is required")
				return
			}
			log.Printf("recent results for %s: %v", subjectID, err)
			writeError(w, http.StatusInternalServerError, "could not load results")
			return
		}
		if records == nil {
			records = []domain.ResultRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// NewMux registers every device and webhook route.
func NewMux(service *app.CompanionService, ws *WSHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.Handle("/push", NewPushHandler(service))
	mux.Handle("/results", NewResultsHandler(service))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
