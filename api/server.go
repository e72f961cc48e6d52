// Package api assembles the HTTP router from the injected services.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"loanmanager/handlers"
	"loanmanager/metrics"
	"loanmanager/middleware"
	"loanmanager/services"
)

// Options carries everything the router needs.
type Options struct {
	Auth    *services.AuthService
	Admins  *services.AdminService
	Loans   *services.LoanService
	Metrics *metrics.Metrics
	// Limiter throttles the public login routes; nil disables throttling.
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	Development    bool
	Log            logrus.FieldLogger
}

// Server represents the API server
type Server struct {
	opts    Options
	router  *mux.Router
	handler http.Handler

	users  *handlers.UserHandler
	admins *handlers.AdminHandler
	loans  *handlers.LoanHandler
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		opts:   opts,
		router: mux.NewRouter(),
		users:  handlers.NewUserHandler(opts.Auth),
		admins: handlers.NewAdminHandler(opts.Admins),
		loans:  handlers.NewLoanHandler(opts.Loans),
	}

	s.router.Use(opts.Metrics.Instrument)
	s.router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	s.router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	// Register routes with both direct paths and /api prefix to maintain compatibility
	s.registerRoutes(s.router)
	s.registerRoutes(s.router.PathPrefix("/api").Subrouter())

	s.handler = middleware.RequestLogger(opts.Log)(
		middleware.CORS(opts.AllowedOrigins, opts.Development, opts.Log)(s.router))
	return s
}

// Handler returns the HTTP handler for the API server
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) limit(h http.HandlerFunc) http.Handler {
	if s.opts.Limiter == nil {
		return h
	}
	return s.opts.Limiter.Handler(h)
}

func (s *Server) registerRoutes(r *mux.Router) {
	// Public login routes
	r.Handle("/user/auth", s.limit(s.users.Auth)).Methods(http.MethodPost)
	r.Handle("/user/verify", s.limit(s.users.Verify)).Methods(http.MethodPost)

	protected := r.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(s.opts.Auth, s.opts.Log))

	protected.HandleFunc("/user/fcm", s.users.SavePushToken).Methods(http.MethodPost)

	protected.HandleFunc("/admin/check", s.admins.Check).Methods(http.MethodGet)
	protected.HandleFunc("/admin/get", s.admins.List).Methods(http.MethodGet)
	protected.HandleFunc("/admin/add", s.admins.Add).Methods(http.MethodPost)
	protected.HandleFunc("/admin/delete", s.admins.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/loan/getByUser", s.loans.ListMine).Methods(http.MethodGet)
	protected.HandleFunc("/loan/create", s.loans.Create).Methods(http.MethodPost)
	protected.HandleFunc("/loan/update", s.loans.Update).Methods(http.MethodPost)
	protected.HandleFunc("/loan/delete", s.loans.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/loan/getForApproval", s.loans.ListPending).Methods(http.MethodGet)
	protected.HandleFunc("/loan/approve", s.loans.Decide).Methods(http.MethodPost)
}
