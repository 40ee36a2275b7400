package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kha159-create/alsani-cockpit/internal/auth"
)

// SetupRoutes configures all routes. Everything under /api goes through
// the auth middleware when an auth manager is given.
func SetupRoutes(h *Handlers, health *HealthChecker, authManager *auth.AuthManager, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	r.Route("/api", func(r chi.Router) {
		if authManager != nil {
			r.Use(authManager.RequireAuth)
		}

		// Uploads
		r.Post("/uploads", h.Upload)
		r.Post("/uploads/analyze", h.AnalyzeUpload)
		r.Get("/uploads/history", h.UploadHistory)
		r.Get("/templates/{shape}", h.DownloadTemplate)

		// Dashboard
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/dashboard/lfl", h.GetLikeForLike)
		r.Get("/briefing", h.GetBriefing)
		r.Get("/products", h.GetProducts)
		r.Get("/duvets", h.GetDuvets)
		r.Get("/commissions", h.GetCommissions)

		// Stores and employees
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.SaveStore)
			r.Get("/{name}/detail", h.GetStoreDetail)
			r.Delete("/{id}", h.DeleteStore)
		})
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListCatalog)
			r.Post("/", h.SaveProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		// Manual daily entry
		r.Get("/metrics", h.ListMetrics)
		r.Post("/metrics", h.SaveMetric)

		// AI insights
		r.Route("/insights", func(r chi.Router) {
			r.Post("/coaching", h.CoachingInsight)
			r.Post("/pitch", h.PitchInsight)
			r.Post("/briefing", h.BriefingInsight)
			r.Post("/store", h.StoreInsight)
			r.Post("/forecast", h.ForecastInsight)
			r.Post("/chat", h.Chat)
		})

		r.Delete("/data", h.DeleteAllData)
	})

	return r
}
