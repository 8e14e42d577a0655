package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fefferico/quiz-app-sub000/internal/app"
	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Handler exposes the store and analytics over HTTP and a websocket.
type Handler struct {
	store     *app.Store
	analytics *app.Analytics
	log       logrus.FieldLogger
	upgrader  websocket.Upgrader
	// statusEvery is how often a websocket session re-checks connectivity.
	statusEvery time.Duration
}

func NewHandler(store *app.Store, analytics *app.Analytics, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		store:     store,
		analytics: analytics,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		statusEvery: 2 * time.Second,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/questions", h.ListQuestions)
	r.Get("/attempts/paused", h.PausedAttempt)
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/problematic", h.Problematic)
		r.Get("/buckets", h.Buckets)
	})
	r.Get("/ws", h.ServeWS)
	return r
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetAllQuestions(r.Context(), r.URL.Query().Get("contest"))
	if err != nil {
		h.fail(w, "list questions", err)
		return
	}
	if res.Stale {
		w.Header().Set("X-Stale", "true")
	}
	writeJSON(w, http.StatusOK, res.Items)
}

func (h *Handler) PausedAttempt(w http.ResponseWriter, r *http.Request) {
	a, ok, err := h.store.GetPausedQuiz(r.Context())
	if err != nil {
		h.fail(w, "paused attempt", err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Problematic(w http.ResponseWriter, r *http.Request) {
	day, err := app.ParseDay(r.URL.Query().Get("day"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids, err := h.analytics.ProblematicQuestions(r.Context(), day, r.URL.Query().Get("contest"))
	if err != nil {
		h.fail(w, "problematic questions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day.String(), "questionIds": ids})
}

func (h *Handler) Buckets(w http.ResponseWriter, r *http.Request) {
	b, err := h.analytics.AccuracyBuckets(r.Context(), r.URL.Query().Get("contest"))
	if err != nil {
		h.fail(w, "accuracy buckets", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case remote.IsConnectivity(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		status = http.StatusNotFound
	}
	h.log.WithError(err).WithField("op", op).Error("request failed")
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
