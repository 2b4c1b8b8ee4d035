package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/buchungsbutler/voiceagent/internal/api/handlers"
	"github.com/buchungsbutler/voiceagent/internal/api/middleware"
	"github.com/buchungsbutler/voiceagent/internal/auth"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

// TenantService serves both the tenant's own routes and the admin tenant routes.
type TenantService interface {
	handlers.TenantService
	handlers.AdminTenantService
}

// Deps carries everything the HTTP layer needs. The cmd packages build it.
type Deps struct {
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	VoiceLimiter   *middleware.RateLimiter

	JWT    *auth.JWTMiddleware
	Ingest *auth.IngestKeyMiddleware
	Health map[string]handlers.Pinger

	Auth          handlers.AuthService
	Tenants       TenantService
	Appointments  handlers.AppointmentService
	Calendars     handlers.CalendarService
	Conversations handlers.ConversationService
	Voice         handlers.VoiceService
	Usage         handlers.UsageRecorder
	Billing       handlers.BillingService
	Telephony     handlers.TelephonyService
	Stats         handlers.PlatformStats
	Audit         handlers.AuditService
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	d := rt.deps

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Limit)
	}

	health := handlers.NewHealthHandler(d.Health)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	authH := handlers.NewAuthHandler(d.Auth)
	tenantH := handlers.NewTenantHandler(d.Tenants)
	apptH := handlers.NewAppointmentHandler(d.Appointments)
	calH := handlers.NewCalendarHandler(d.Calendars)
	convH := handlers.NewConversationHandler(d.Conversations)
	voiceH := handlers.NewVoiceHandler(d.Voice)
	usageH := handlers.NewUsageHandler(d.Usage)
	adminH := handlers.NewAdminHandler(d.Tenants, d.Stats, d.Telephony, d.Audit)
	billingH := handlers.NewBillingHandler(d.Billing, d.Audit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", handlers.Root)

		r.Post("/auth/login", authH.Login)
		r.Post("/auth/register", authH.Register)

		r.With(d.Ingest.Authenticate).Post("/telephony/usage", usageH.Ingest)

		r.Group(func(r chi.Router) {
			r.Use(d.JWT.Authenticate)

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)

			// Readable in every tenant status so clients can route pending accounts.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireTenant)
				r.Get("/tenant", tenantH.Get)
				r.Get("/stats", tenantH.Stats)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireApproved)

				r.Put("/tenant", tenantH.Update)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", tenantH.ListUsers)
					r.Post("/", tenantH.CreateUser)
					r.Delete("/{id}", tenantH.DeleteUser)
				})

				r.Route("/appointments", func(r chi.Router) {
					r.Get("/", apptH.List)
					r.Post("/", apptH.Create)
					r.Delete("/{id}", apptH.Delete)
				})

				r.Route("/calendars", func(r chi.Router) {
					r.Get("/", calH.List)
					r.Post("/", calH.Connect)
					r.Delete("/{id}", calH.Disconnect)
				})

				r.Get("/conversations", convH.List)

				r.Route("/voice", func(r chi.Router) {
					if d.VoiceLimiter != nil {
						r.Use(d.VoiceLimiter.Limit)
					}
					r.Post("/transcribe", voiceH.Transcribe)
					r.Post("/process", voiceH.Process)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireSuperAdmin)

				r.Get("/stats", adminH.Stats)
				r.Get("/audit", adminH.AuditLogs)
				r.Get("/usage", adminH.LLMUsage)

				r.Route("/tenants", func(r chi.Router) {
					r.Get("/", adminH.ListTenants)
					r.Get("/{id}", adminH.GetTenant)
					r.Post("/{id}/approve", adminH.Transition(tenant.ActionApprove))
					r.Post("/{id}/reject", adminH.Transition(tenant.ActionReject))
					r.Post("/{id}/suspend", adminH.Transition(tenant.ActionSuspend))
					r.Put("/{id}/plan", adminH.AssignPlan)
				})

				r.Route("/pricing-plans", func(r chi.Router) {
					r.Get("/", billingH.ListPlans)
					r.Post("/", billingH.CreatePlan)
					r.Put("/{id}", billingH.UpdatePlan)
					r.Delete("/{id}", billingH.DeletePlan)
				})

				r.Route("/minute-packages", func(r chi.Router) {
					r.Get("/", billingH.ListPackages)
					r.Post("/", billingH.CreatePackage)
					r.Put("/{id}", billingH.UpdatePackage)
					r.Delete("/{id}", billingH.DeletePackage)
				})

				r.Route("/invoices", func(r chi.Router) {
					r.Get("/", billingH.ListInvoices)
					r.Post("/generate/{tenant_id}", billingH.Generate)
					r.Post("/{id}/send-lexoffice", billingH.SendToLexoffice)
				})

				r.Get("/telephony-config", adminH.TelephonyConfig)
				r.Post("/telephony-config", adminH.UpdateTelephonyConfig)
			})
		})
	})

	return r
}
