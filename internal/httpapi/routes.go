package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bida-club-backend/internal/hub"
	"github.com/DoyleJ11/bida-club-backend/internal/ws"
)

type Options struct {
	AllowedOrigins []string
	Matches        MatchLister // nil when the archive is disabled
	WS             ws.Options
	Logger         *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WS.Logger == nil {
		opts.WS.Logger = log
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, opts.WS))
	r.Get("/matches", ListMatches(opts.Matches))

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(h, log))
		r.Get("/", ListRooms(h))
		r.Get("/{code}", GetRoom(h))
		r.Delete("/{code}", DeleteRoom(h))
		r.Post("/{code}/actions", PostAction(h))
	})
	return r
}
