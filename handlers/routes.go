package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"roadmap_tutor/config"
	"roadmap_tutor/models"
	"roadmap_tutor/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r chi.Router, cfg *config.Config, tutor TutorAPI, analytics AnalyticsAPI) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", cfg.Auth.UserHeader},
		MaxAge:         300,
	}))
	r.Use(Metrics)

	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))
	r.Handle("/metrics", promhttp.Handler())

	th := NewTutorHandler(tutor)
	r.Route("/api/tutor", func(r chi.Router) {
		r.Use(Identity(cfg.Auth.JWTSecret, cfg.Auth.UserHeader))

		// 分析会启动外部进程，按用户限流
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(
				cfg.RateLimit.AnalyzePerMin,
				time.Minute,
				httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
					return UserIDFromContext(r.Context()), nil
				}),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					utils.WriteErrorResponse(w, http.StatusTooManyRequests, models.CodeRateLimited, "")
				}),
			))
			r.Post("/analyze", th.Analyze)
			r.Post("/personalized", th.Personalized)
		})

		r.Get("/top/{tag}", th.TopByTag)
		r.Get("/tags/popular", th.PopularTags)
	})

	ah := NewAnalyticsHandler(analytics)
	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(Identity(cfg.Auth.JWTSecret, cfg.Auth.UserHeader))

		r.Get("/overview", ah.Overview)
		r.Get("/roadmaps/{id}", ah.Roadmap)
		r.Post("/compare", ah.Compare)
		r.Get("/topics/{topic}", ah.Topic)
		r.Get("/insights", ah.Insights)
		r.Get("/top", ah.TopRoadmaps)
		r.Get("/recommend", ah.Recommend)
	})
}
