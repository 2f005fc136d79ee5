package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/auth"
	"github.com/mediconnect/mediconnect-platform/internal/booking"
	"github.com/mediconnect/mediconnect-platform/internal/dashboard"
	"github.com/mediconnect/mediconnect-platform/internal/directory"
	"github.com/mediconnect/mediconnect-platform/internal/hospital"
	httpmiddleware "github.com/mediconnect/mediconnect-platform/internal/http/middleware"
	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// MsgPatientsOnly is returned when a non-patient opens the patient workspace.
const MsgPatientsOnly = "This workspace is meant for patients to manage their appointments."

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Tokens             httpmiddleware.TokenParser
	Sessions           httpmiddleware.SessionResolver
	AuthHandler        *auth.Handler
	AuthLimiter        *httpmiddleware.RateLimiter
	PatientNav         *dashboard.Handler
	HospitalNav        *dashboard.Handler
	DirectoryHandler   *directory.Handler
	BookingHandler     *booking.Handler
	AppointmentHandler *appointments.Handler
	HospitalHandler    *hospital.Handler
	MetricsHandler     http.Handler
	// Gatherer adds document store latency to /health when set.
	Gatherer           prometheus.Gatherer
	CORSAllowedOrigins []string
	Version            string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Tokens == nil || cfg.Sessions == nil || cfg.AuthHandler == nil {
		panic("router: tokens, sessions and auth handler are required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	authenticated := httpmiddleware.SessionAuth(cfg.Tokens, cfg.Sessions)

	var forgetters []SessionForgetter
	if cfg.PatientNav != nil {
		forgetters = append(forgetters, cfg.PatientNav)
	}
	if cfg.HospitalNav != nil {
		forgetters = append(forgetters, cfg.HospitalNav)
	}
	if cfg.BookingHandler != nil {
		forgetters = append(forgetters, cfg.BookingHandler)
	}

	r.Group(func(public chi.Router) {
		public.Get("/", describe(cfg.Version))
		public.Get("/health", health(cfg.Gatherer))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/auth", func(a chi.Router) {
		a.Group(func(gate chi.Router) {
			if cfg.AuthLimiter != nil {
				gate.Use(cfg.AuthLimiter.Middleware)
			}
			gate.Post("/signin", cfg.AuthHandler.SignIn)
			gate.Post("/signup", cfg.AuthHandler.SignUp)
		})
		a.Group(func(signedIn chi.Router) {
			signedIn.Use(authenticated)
			signedIn.Get("/me", cfg.AuthHandler.Me)
			signedIn.With(forgetOnSignOut(forgetters)).Post("/signout", cfg.AuthHandler.SignOut)
		})
	})

	r.Route("/patient", func(p chi.Router) {
		p.Use(authenticated)

		if cfg.DirectoryHandler != nil {
			p.Get("/hospitals", cfg.DirectoryHandler.ListHospitals)
			p.Get("/hospitals/{id}", cfg.DirectoryHandler.GetHospital)
			p.Get("/doctors", cfg.DirectoryHandler.ListDoctors)
		}

		p.Group(func(own chi.Router) {
			own.Use(httpmiddleware.RequireRole(session.RolePatient, MsgPatientsOnly))
			if cfg.PatientNav != nil {
				own.Get("/nav", cfg.PatientNav.Get)
				own.Put("/nav", cfg.PatientNav.Select)
			}
			if cfg.BookingHandler != nil {
				own.Route("/booking", func(b chi.Router) {
					b.Get("/", cfg.BookingHandler.Get)
					b.Delete("/", cfg.BookingHandler.Discard)
					b.Patch("/draft", cfg.BookingHandler.UpdateDraft)
					b.Post("/continue", cfg.BookingHandler.Continue)
					b.Post("/back", cfg.BookingHandler.Back)
					b.Post("/start", cfg.BookingHandler.Start)
					b.Post("/confirm", cfg.BookingHandler.Confirm)
				})
			}
			if cfg.AppointmentHandler != nil {
				own.Get("/appointments", cfg.AppointmentHandler.PatientHistory)
			}
		})
	})

	if cfg.HospitalHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(bearerFromQuery)
			admin.Use(authenticated)
			admin.Use(httpmiddleware.RequireRole(session.RoleHospital, hospital.MsgRestricted))
			admin.Use(cfg.HospitalHandler.RequireWorkspace)

			if cfg.HospitalNav != nil {
				admin.Get("/nav", cfg.HospitalNav.Get)
				admin.Put("/nav", cfg.HospitalNav.Select)
			}
			admin.Get("/profile", cfg.HospitalHandler.Profile)
			admin.Get("/doctors", cfg.HospitalHandler.ListDoctors)
			admin.Post("/doctors", cfg.HospitalHandler.RegisterDoctor)
			admin.Get("/notifications", cfg.HospitalHandler.ListAnnouncements)
			admin.Post("/notifications", cfg.HospitalHandler.PublishAnnouncement)
			admin.Get("/notifications/stream", cfg.HospitalHandler.Stream)
			admin.Get("/appointments", cfg.HospitalHandler.Appointments)
		})
	}

	return r
}

// Descriptor is the body of GET /.
type Descriptor struct {
	Service   string   `json:"service"`
	Version   string   `json:"version,omitempty"`
	Workspace []string `json:"workspaces"`
}

func describe(version string) http.HandlerFunc {
	body := Descriptor{
		Service:   "mediconnect",
		Version:   version,
		Workspace: []string{"/patient", "/admin"},
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                             `json:"status"`
	StoreLatency map[string]metrics.LatencySnapshot `json:"store_latency,omitempty"`
}

func health(gatherer prometheus.Gatherer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if gatherer != nil {
			resp.StoreLatency = metrics.StoreLatency(gatherer)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
