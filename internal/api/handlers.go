package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "message-board/docs"
	"message-board/internal/metrics"
	"message-board/internal/model"
	"message-board/internal/schema"
)

const healthTimeout = 2 * time.Second

// ErrorResponse is the body of every non-validation failure.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (a *API) Router() http.Handler {
	r := a.Routers
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/health", a.GetHealth)
	r.Get("/api/messages", a.ListMessages)
	r.Post("/api/messages", a.CreateMessage)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return r
}

// @Summary List messages
// @Description Returns every message in insertion order.
// @Tags Messages
// @Produce json
// @Success 200 {array} model.Message
// @Failure 500 {object} api.ErrorResponse
// @Router /api/messages [get]
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.Messages.List(r.Context())
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// @Summary Create a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param body body model.NewMessage true "Message content"
// @Success 201 {object} model.Message
// @Failure 400 {object} schema.ValidationError
// @Failure 413 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/messages [post]
func (a *API) CreateMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Message: "request entity too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "failed to read request body"})
		return
	}

	in, verr := schema.DecodeNewMessage(bytes.NewReader(body))
	if verr != nil {
		writeJSON(w, http.StatusBadRequest, verr)
		return
	}

	m, err := a.Messages.Create(r.Context(), in)
	if err != nil {
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, verr)
			return
		}
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} api.HealthResponse
// @Failure 503 {object} api.HealthResponse
// @Router /health [get]
func (a *API) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	status := http.StatusOK

	if a.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := a.Health.Ping(ctx); err != nil {
			a.Log.Warn("health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.Log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
