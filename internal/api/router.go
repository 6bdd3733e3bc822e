package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/handler"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/middleware"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/metrics"
)

// RequestTimeout bounds every request below the API prefix.
const RequestTimeout = 60 * time.Second

type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Gatherer backs /metrics; nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
	DB       handler.Pinger

	AuthService *service.AuthService
	UserService *service.UserService
	Posts       service.PostGateway
}

func NewRouter(d Deps) (http.Handler, error) {
	cors, err := middleware.CORS(middleware.CORSOptions{
		Origins:     d.Config.CORSOrigins,
		Methods:     d.Config.CORSMethods,
		Credentials: d.Config.CORSCredentials,
	})
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := d.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RealIP(d.Config.TrustedProxies))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Tracing())
	r.Use(cors)

	r.Get("/health", handler.Health(d.DB))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	limiter := middleware.NewRateLimiter(d.Config.AuthRatePerMinute)

	r.Route(d.Config.APIPrefix, func(api chi.Router) {
		api.Use(chiMiddleware.Timeout(RequestTimeout))

		api.Get("/", handler.Welcome)

		authHandler := handler.NewAuthHandler(d.AuthService, limiter.Middleware)
		api.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(d.UserService, d.AuthService)
		api.Route("/users", userHandler.RegisterRoutes)

		postHandler := handler.NewPostHandler(d.Posts, d.AuthService)
		api.Route("/posts", postHandler.RegisterRoutes)
	})

	return r, nil
}
