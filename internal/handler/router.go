package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgdiegogallo/mensajeria/internal/handler/bots"
	conversationHandler "github.com/dgdiegogallo/mensajeria/internal/handler/conversation"
	notificationHandler "github.com/dgdiegogallo/mensajeria/internal/handler/notification"
	scheduleHandler "github.com/dgdiegogallo/mensajeria/internal/handler/schedule"
	middlewarePkg "github.com/dgdiegogallo/mensajeria/internal/middleware"
	"github.com/dgdiegogallo/mensajeria/internal/notify"
	conversationService "github.com/dgdiegogallo/mensajeria/internal/service/conversation"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
	scheduleService "github.com/dgdiegogallo/mensajeria/internal/service/schedule"
	"github.com/dgdiegogallo/mensajeria/internal/store"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	channelStore store.ChannelStore,
	conversations *conversationService.Service,
	schedules *scheduleService.Service,
	poller *poll.Poller,
	sink *notify.Sink,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		conversationHandler.New(conversations, poller).RegisterRoutes(api)
		scheduleHandler.New(schedules).RegisterRoutes(api)
		bots.New(channelStore).RegisterRoutes(api)
		notificationHandler.New(sink).RegisterRoutes(api)
	})

	return r
}
