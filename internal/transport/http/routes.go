package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
)

// NewRouter wires the websocket endpoint and the REST surface.
func NewRouter(service *app.QuizService) *mux.Router {
	api := &API{service: service}
	ws := NewWSHandler(service)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/sessions/{id}", api.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/answer", api.PostAnswer).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/control", api.PostControl).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/scores", api.GetScores).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizId}/sessions", api.GetLiveSessions).Methods(http.MethodGet)
	return r
}

// API exposes session inspection and control over plain HTTP.
type API struct {
	service *app.QuizService
}

// GetSession returns the session snapshot.
// GET /sessions/{id}
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PostAnswer submits a typed response.
// POST /sessions/{id}/answer {"response": "b"}
func (a *API) PostAnswer(w http.ResponseWriter, r *http.Request) {
	var payload answerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid answer payload", http.StatusBadRequest)
		return
	}
	if err := a.service.Submit(r.Context(), mux.Vars(r)["id"], payload.Response); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostControl applies pause, resume, repeat, skip, stop or reset.
// POST /sessions/{id}/control {"action": "pause"}
func (a *API) PostControl(w http.ResponseWriter, r *http.Request) {
	var payload controlPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid control payload", http.StatusBadRequest)
		return
	}
	if err := a.service.Control(r.Context(), mux.Vars(r)["id"], payload.Action); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetScores lists recent results for a quiz, newest first.
// GET /quizzes/{quizId}/scores?limit=10
func (a *API) GetScores(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, err := a.service.RecentScores(r.Context(), mux.Vars(r)["quizId"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	// Always return an array, even if empty
	if records == nil {
		records = []domain.ScoreRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetLiveSessions lists the sessions currently playing a quiz.
// GET /quizzes/{quizId}/sessions
func (a *API) GetLiveSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := a.service.LiveSessions(r.Context(), mux.Vars(r)["quizId"])
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorMessage(err))
}
