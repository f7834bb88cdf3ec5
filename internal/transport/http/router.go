package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"completion-service/internal/app"
	"completion-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// LearnerHeader carries the host-authenticated learner id.
const LearnerHeader = "X-Learner-ID"

const maxBodyBytes = 1 << 16

// NewRouter mounts the block handlers, the websocket endpoint and a health check.
func NewRouter(service *app.BlockService, hub *app.Hub, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", LearnerHeader},
		}))
	}

	h := &blockHandler{service: service}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/blocks/{blockID}", func(r chi.Router) {
		r.Post("/toggle", h.toggle)
		r.Get("/score", h.getScore)
		r.Put("/score", h.setScore)
		r.Post("/publish", h.publish)
		r.Post("/rescore", h.rescore)
		r.Get("/weighted_grade", h.weightedGrade)
		r.Get("/student_view", h.studentView)
		r.Get("/studio_view", h.studioView)
	})
	r.Get("/ws", NewWSHandler(service, hub).ServeWS)
	return r
}

type blockHandler struct {
	service *app.BlockService
}

type publishRequest struct {
	Score        *domain.Score `json:"score"`
	OnlyIfHigher bool          `json:"onlyIfHigher"`
}

type rescoreRequest struct {
	OnlyIfHigher bool `json:"onlyIfHigher"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// toggle never rejects a body: anything unusable leaves the state unchanged.
func (h *blockHandler) toggle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}
	result, err := h.service.Toggle(r.Context(), blockKey(r), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *blockHandler) getScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.GetScore(r.Context(), blockKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *blockHandler) setScore(w http.ResponseWriter, r *http.Request) {
	var score domain.Score
	if err := decode(r, &score); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetScore(r.Context(), blockKey(r), score); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *blockHandler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	grade, err := h.service.PublishGrade(r.Context(), blockKey(r), req.Score, req.OnlyIfHigher)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (h *blockHandler) rescore(w http.ResponseWriter, r *http.Request) {
	var req rescoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Rescore(r.Context(), blockKey(r), req.OnlyIfHigher); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *blockHandler) weightedGrade(w http.ResponseWriter, r *http.Request) {
	grade, err := h.service.WeightedGrade(r.Context(), blockKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"weightedGrade": grade})
}

func (h *blockHandler) studentView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StudentView(r.Context(), blockKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *blockHandler) studioView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StudioView(r.Context(), chi.URLParam(r, "blockID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func blockKey(r *http.Request) domain.BlockKey {
	return domain.BlockKey{
		BlockID:   chi.URLParam(r, "blockID"),
		LearnerID: r.Header.Get(LearnerHeader),
	}
}

// decode accepts an empty body as the zero value.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errBadRequest{err}
}

type errBadRequest struct{ err error }

func (e errBadRequest) Error() string { return "invalid request body: " + e.err.Error() }

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, domain.ErrMissingLearner),
		errors.Is(err, domain.ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotSupported), errors.Is(err, domain.ErrNotAnswered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("block handler error: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
