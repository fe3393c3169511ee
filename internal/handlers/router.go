package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Middleware     *Middleware
	Startup        *StartupStatus
	Auth           *AuthHandler
	Parent         *ParentHandler
	Kid            *KidHandler
	Reward         *RewardHandler
	Shop           *ShopHandler
	Activity       *ActivityHandler
	AllowedOrigins []string
}

// NewRouter creates the router with all routes configured
func NewRouter(h Handlers) *chi.Mux {
	m := h.Middleware
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Startup.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Startup.RequireReady)
		r.Use(m.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.With(m.RateLimit).Post("/register", h.Auth.Register)
			r.With(m.RateLimit).Post("/login", h.Auth.Login)
			r.With(m.RequireAuth).Post("/logout", h.Auth.Logout)
			r.With(m.RequireAuth).Get("/me", h.Auth.Me)
			r.Get("/{provider}/start", h.Auth.StartOAuth)
			r.Get("/{provider}/callback", h.Auth.OAuthCallback)
		})

		r.Route("/kid-auth", func(r chi.Router) {
			r.With(m.RateLimit).Post("/login", h.Auth.KidLogin)
			r.Post("/logout", h.Auth.KidLogout)
		})

		// Parent-only routes
		r.Group(func(r chi.Router) {
			r.Use(m.RequireAuth)

			r.Route("/families", func(r chi.Router) {
				r.Get("/", h.Parent.ListFamilies)
				r.Post("/", h.Parent.CreateFamily)
				r.Post("/join", h.Parent.JoinFamily)
				r.Post("/{familyID}/leave", h.Parent.LeaveFamily)
				r.Get("/{familyID}/members", h.Parent.ListMembers)
				r.Post("/{familyID}/invites", h.Parent.InviteParent)
				r.Get("/{familyID}/kids", h.Parent.ListKids)
				r.Post("/{familyID}/kids", h.Parent.CreateKid)
			})
			r.Post("/invites/accept", h.Parent.AcceptInvitation)

			r.Put("/kids/{kidID}", h.Parent.UpdateKid)
			r.Post("/kids/{kidID}/pin", h.Parent.ResetKidPIN)
			r.Put("/kids/{kidID}/school-days", h.Kid.SetSchoolDays)
			r.Put("/kids/{kidID}/moons", h.Kid.SetMoons)

			r.Post("/moons/bonus", h.Kid.GrantBonus)

			r.Post("/rewards", h.Reward.CreateReward)
			r.Put("/rewards", h.Reward.UpdateReward)
			r.Delete("/rewards", h.Reward.DeleteReward)
			r.Put("/rewards/redeem", h.Reward.ResolveRedemption)
		})

		// Kid or parent routes
		r.Group(func(r chi.Router) {
			r.Use(m.RequireCaller)

			r.Get("/kids/{kidID}/moons", h.Kid.GetMoons)
			r.Get("/kids/{kidID}/progress", h.Kid.Progress)
			r.Get("/kids/{kidID}/badges", h.Kid.Badges)
			r.Get("/moons/history", h.Kid.History)

			r.Get("/rewards", h.Reward.ListRewards)
			r.Get("/rewards/templates", h.Reward.Templates)
			r.Post("/rewards/redeem", h.Reward.Redeem)
			r.Get("/rewards/redeem", h.Reward.ListRedemptions)

			r.Get("/shop/catalog", h.Shop.Catalog)
			r.Get("/shop/purchases", h.Shop.Purchases)
			r.Post("/shop/purchase", h.Shop.Purchase)

			r.Post("/activities/complete", h.Activity.Complete)
			r.Post("/journal", h.Activity.SaveJournal)
			r.Get("/journal", h.Activity.ListJournal)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found", "", nil)
	})

	return r
}
