package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"message-board/internal/model"
)

// MessageService is the message API's view of the manager.
type MessageService interface {
	List(ctx context.Context) ([]model.Message, error)
	Create(ctx context.Context, in model.NewMessage) (model.Message, error)
}

// HealthChecker reports database reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type API struct {
	Messages MessageService
	Health   HealthChecker
	Log      *zap.Logger
	Routers  *chi.Mux
}

func NewAPI(messages MessageService, health HealthChecker, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		Messages: messages,
		Health:   health,
		Log:      log,
		Routers:  chi.NewRouter(),
	}
}
