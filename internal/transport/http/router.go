package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jobportal-api/internal/application/recruiter"
	"github.com/jobportal-api/internal/application/session"
	"github.com/jobportal-api/internal/application/user"
	"github.com/jobportal-api/internal/config"
	"github.com/jobportal-api/internal/domain"
	jwtinfra "github.com/jobportal-api/internal/infrastructure/jwt"
	"github.com/jobportal-api/internal/pkg/companydomain"
	"github.com/jobportal-api/internal/transport/http/handler"
	appmiddleware "github.com/jobportal-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	VerificationRepo recruiter.VerificationStore
	Classifier       *companydomain.Classifier
	Dispatcher       recruiter.Dispatcher
	Publisher        recruiter.PromotionPublisher // nil disables promotion events
	JWTProvider      *jwtinfra.Provider
	RateLimiter      *appmiddleware.RateLimiter // owned by the caller; nil disables limiting
}

// NewRecruiterService builds the verification workflow from cfg and deps.
func NewRecruiterService(cfg *config.Config, deps *Deps) recruiter.Service {
	return recruiter.NewService(recruiter.ServiceDeps{
		Accounts:        deps.UserRepo,
		Verifications:   deps.VerificationRepo,
		Classifier:      deps.Classifier,
		Dispatcher:      deps.Dispatcher,
		Publisher:       deps.Publisher,
		TTL:             cfg.VerificationTTL,
		DispatchTimeout: cfg.DispatchTimeout,
		VerificationURL: cfg.VerificationURL,
		NamePolicy:      recruiter.NamePolicy(cfg.CompanyNamePolicy),
	})
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	limit := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Limit
	}

	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo, AdminUsernames: cfg.AdminUsernames})
	sessionSvc := session.NewService(session.ServiceDeps{UserRepo: deps.UserRepo, JWTProvider: deps.JWTProvider})
	recruiterSvc := NewRecruiterService(cfg, deps)

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(userSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	verifyH := handler.NewCompanyVerificationHandler(recruiterSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(limit).Post("/users", userH.Register)
		r.With(limit).Post("/sessions/login", sessionH.Login)
		r.With(limit).Post("/company-verification/complete", verifyH.Complete)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Post("/users/me/password", userH.ChangePassword)
			r.Get("/company-verification", verifyH.Pending)
			r.Post("/company-verification", verifyH.Submit)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/admin/company-verification/reconcile", verifyH.Reconcile)
			})
		})
	})

	return r
}
