package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"carrental/internal/config"
	"carrental/internal/domain"
	"carrental/internal/export"
	"carrental/internal/service"

	"github.com/rs/zerolog"
)

// Pinger reports storage readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer dispatches to. Attempts and
// Exporter are optional.
type Deps struct {
	DB       Pinger
	Bookings *service.BookingService
	Cars     *service.CarService
	Users    *service.UserService
	Attempts domain.AttemptStore
	Exporter *export.Exporter
	Booking  config.BookingConfig
	Location *time.Location
}

// HTTPServer exposes the REST API.
type HTTPServer struct {
	cfg      *config.APIConfig
	db       Pinger
	bookings *service.BookingService
	cars     *service.CarService
	users    *service.UserService
	attempts domain.AttemptStore
	exporter *export.Exporter
	booking  config.BookingConfig
	location *time.Location
	tokens   *TokenManager
	auth     *HTTPAuth
	server   *http.Server
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewHTTPServer(cfg *config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	srv := &HTTPServer{
		cfg:      cfg,
		db:       deps.DB,
		bookings: deps.Bookings,
		cars:     deps.Cars,
		users:    deps.Users,
		attempts: deps.Attempts,
		exporter: deps.Exporter,
		booking:  deps.Booking,
		location: loc,
		logger:   &base,
		now:      time.Now,
	}
	srv.tokens = NewTokenManager(cfg.Auth)
	srv.auth = NewHTTPAuth(cfg.Auth, srv.tokens)

	mux := http.NewServeMux()
	srv.routes(mux)

	var handler http.Handler = srv.auth.Identify(mux)
	handler = newRateLimiter(cfg.RateLimit).Wrap(cfg.Auth.HeaderAPIKey, handler)
	handler = corsMiddleware(cfg.CORS.AllowedOrigin, handler)
	handler = metricsMiddleware(mux, handler)
	handler = loggingMiddleware(srv.logger, handler)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("GET /api/auth/me", requireUser(s.handleMe))

	mux.HandleFunc("GET /api/cars", s.handleListCars)
	mux.HandleFunc("GET /api/cars/available", s.handleListAvailableCars)
	mux.HandleFunc("GET /api/cars/{id}", s.handleGetCar)

	mux.HandleFunc("POST /api/bookings", requireUser(s.handleCreateBooking))
	mux.HandleFunc("GET /api/bookings/me", requireUser(s.handleMyBookings))
	mux.HandleFunc("GET /api/bookings/my-bookings", requireUser(s.handleMyBookings))
	mux.HandleFunc("GET /api/bookings/all", requireAdmin(s.handleAllBookings))
	mux.HandleFunc("GET /api/bookings/{id}", requireUser(s.handleGetBooking))
	mux.HandleFunc("DELETE /api/bookings/{id}", requireUser(s.handleCancelBooking))

	mux.HandleFunc("POST /api/admin/cars", requireAdmin(s.handleAddCar))
	mux.HandleFunc("PUT /api/admin/cars/{id}", requireAdmin(s.handleUpdateCar))
	mux.HandleFunc("DELETE /api/admin/cars/{id}", requireAdmin(s.handleDeleteCar))
	mux.HandleFunc("GET /api/admin/users", requireAdmin(s.handleListUsers))
	mux.HandleFunc("GET /api/admin/users/{id}", requireAdmin(s.handleGetUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", requireAdmin(s.handleDeleteUser))
	mux.HandleFunc("GET /api/admin/bookings/export", requireAdmin(s.handleExportBookings))
}

// Handler returns the fully wrapped root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Tokens exposes the token manager used for sign-in.
func (s *HTTPServer) Tokens() *TokenManager {
	return s.tokens
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
