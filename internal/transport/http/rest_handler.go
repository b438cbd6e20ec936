package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/domain"
)

// RESTHandler exposes session completion, reconciliation, and the
// leaderboard point reads.
type RESTHandler struct {
	service *app.GameService
}

func NewRESTHandler(service *app.GameService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Register mounts the REST routes on a gorilla/mux router.
func (h *RESTHandler) Register(r *mux.Router) {
	r.HandleFunc("/sessions/{sessionId}/complete", h.completeSession).Methods(http.MethodPost)
	r.HandleFunc("/ledger/reconcile", h.reconcile).Methods(http.MethodPost)
	r.HandleFunc("/leaderboards/local/{playerId}", h.getLocal).Methods(http.MethodGet)
	r.HandleFunc("/leaderboards/national/{playerId}", h.getNational).Methods(http.MethodGet)
	r.HandleFunc("/leaderboards/franchisee/{playerId}/{franchiseId}", h.getFranchisee).Methods(http.MethodGet)
	r.HandleFunc("/players/{playerId}/stats", h.playerStats).Methods(http.MethodGet)
}

func (h *RESTHandler) completeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	result, err := h.service.CompleteSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RESTHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ReconcileUnprocessed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reconciled": count})
}

func (h *RESTHandler) getLocal(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.GetLocal(r.Context(), mux.Vars(r)["playerId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *RESTHandler) getNational(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.GetNational(r.Context(), mux.Vars(r)["playerId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *RESTHandler) getFranchisee(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	acc, err := h.service.GetFranchisee(r.Context(), vars["playerId"], vars["franchiseId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *RESTHandler) playerStats(w http.ResponseWriter, r *http.Request) {
	stat, err := h.service.PlayerStat(r.Context(), mux.Vars(r)["playerId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stat)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrLedgerEntryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrDuplicateSubmission):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAnswer):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
