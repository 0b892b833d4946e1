package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/config"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	billingsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/billing"
	couponsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/coupons"
	interviewsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/interviews"
	optsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/optimizer"
	profilesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/profiles"
	ratesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/rate"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	BillingService   *billingsvc.Service
	CouponService    *couponsvc.Service
	InterviewService *interviewsvc.Service
	InterviewTracker *interviewsvc.Tracker
	OptimizerService *optsvc.Service
	ProfileService   *profilesvc.Service
	RateLimiter      *ratesvc.Limiter
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	billingHandler := handlers.NewBillingHandler(deps.BillingService)
	couponHandler := handlers.NewCouponHandler(deps.CouponService)
	interviewHandler := handlers.NewInterviewHandler(deps.InterviewService, deps.InterviewTracker, deps.RateLimiter)
	optimizerHandler := handlers.NewOptimizerHandler(deps.OptimizerService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	adminRoleMW := RequireRole("ADMIN")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
		})

		r.Get("/products", billingHandler.Products)
		r.With(authMW).Post("/checkout", billingHandler.Checkout)
		r.Post("/webhooks/stripe", billingHandler.Webhook)

		r.With(authMW).Post("/coupons/validate", couponHandler.Validate)
		r.With(authMW, adminRoleMW).Post("/coupons", couponHandler.Create)

		r.With(authMW).Post("/interviews", interviewHandler.Submit)
		r.With(authMW).Get("/interviews", interviewHandler.List)
		r.With(authMW).Get("/interviews/{request_id}", interviewHandler.Get)
		r.With(authMW).Get("/interviews/{request_id}/cv", interviewHandler.CVLink)
		r.With(authMW).Get("/interviews/{request_id}/events", interviewHandler.Events)

		r.With(authMW).Post("/optimize/cv", optimizerHandler.OptimizeCV)
		r.With(authMW).Post("/optimize/linkedin", optimizerHandler.OptimizeLinkedIn)
		r.With(authMW).Get("/optimize/history", optimizerHandler.History)

		r.With(authMW).Get("/me/dashboard", profileHandler.Dashboard)
		r.With(authMW).Put("/me/profile", profileHandler.Update)
		r.With(authMW).Post("/me/services/{id}/complete", profileHandler.CompleteService)
	})
}
