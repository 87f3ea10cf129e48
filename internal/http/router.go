package http

import (
	"net/http"
	"time"

	"wander-system/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	chi.Router
}

func NewRouter() *Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimit)
	r.Use(middleware.Logging)

	return &Router{r}
}

// RegisterRecommendationRoutes registers the recommendation pipeline routes
func (r *Router) RegisterRecommendationRoutes(h *RecommendationHandler) {
	h.RegisterRoutes(r)
}

// RegisterTrendingRoutes registers the trending leaderboard and refresh routes
func (r *Router) RegisterTrendingRoutes(h *TrendingHandler) {
	h.RegisterRoutes(r)
}

// RegisterHealthRoutes registers health check routes
func (r *Router) RegisterHealthRoutes() {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})
}

// RegisterMetricsRoutes registers the Prometheus metrics endpoint
func (r *Router) RegisterMetricsRoutes() {
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}
