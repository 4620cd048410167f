package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/usharani/chat-widget/backend/internal/config"
	chathandler "github.com/usharani/chat-widget/backend/internal/handler/chat"
	"github.com/usharani/chat-widget/backend/internal/handler/stream"
	"github.com/usharani/chat-widget/backend/internal/handler/widget"
	middlewarePkg "github.com/usharani/chat-widget/backend/internal/middleware"
	chatservice "github.com/usharani/chat-widget/backend/internal/service/chat"
	"github.com/usharani/chat-widget/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, chatSvc *chatservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigin))

	chatHandler := chathandler.New(chatSvc)
	wsHandler := chathandler.NewWebSocketHandler(chatSvc)
	streamHandler := stream.New(chatSvc)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")

			if err := streamHandler.HandleEvents(r.Context(), w, sessionID); err != nil {
				if errors.Is(err, chatservice.ErrSessionNotFound) {
					utils.RespondError(w, http.StatusNotFound, "session not found")
					return
				}
				log.Printf("[stream] error handling request: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
			}
		})
	})

	if cfg.Widget.Enabled {
		widgetHandler := widget.New(cfg.Widget.BotName)
		widgetHandler.RegisterRoutes(r)
	}

	return r
}
