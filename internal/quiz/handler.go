package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/selfquiz/backend/internal/bank"
	"github.com/selfquiz/backend/internal/middleware"
	"github.com/selfquiz/backend/internal/models"
	"github.com/selfquiz/backend/internal/run"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the quiz API on the given (session-wrapped) router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/modules", h.Modules).Methods("GET")
	r.HandleFunc("/quiz", h.Current).Methods("GET")
	r.HandleFunc("/quiz/start", h.Start).Methods("POST")
	r.HandleFunc("/quiz/answer", h.Answer).Methods("POST")
	r.HandleFunc("/quiz/next", h.Next).Methods("POST")
	r.HandleFunc("/quiz/resume", h.Resume).Methods("POST")
	r.HandleFunc("/quiz/reset", h.Reset).Methods("POST")
}

func (h *Handler) Modules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Modules(r.Context()))
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	var req models.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Module == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "module is required"})
		return
	}

	view, err := h.service.Start(r.Context(), sid, req.Module, req.Length)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	view, err := h.service.Current(sid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.Answer(r.Context(), sid, req.Selected)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	view, err := h.service.Next(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	view, err := h.service.Resume(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sid, ok := middleware.SessionID(r)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "No session"})
		return
	}

	h.service.Reset(r.Context(), sid)
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps engine and bank failures onto HTTP statuses. Nothing
// here is fatal — the worst case is "cannot start or resume a quiz".
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrBankUnavailable):
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load question bank"})
	case errors.Is(err, ErrInvalidBank):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "Question bank has no usable questions"})
	case errors.Is(err, ErrNoActiveRun):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No quiz in progress"})
	case errors.Is(err, ErrNothingToResume):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Nothing to resume"})
	case errors.Is(err, run.ErrAlreadyGraded):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Question already graded"})
	case errors.Is(err, run.ErrRunCompleted):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Run already completed"})
	case errors.Is(err, run.ErrInvalidSelection):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Selected option out of range"})
	default:
		log.Printf("WARN: [quiz] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
