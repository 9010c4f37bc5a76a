package web

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scenepanel/internal/automation"
	"scenepanel/internal/controller"
)

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// ScriptRunner runs stored and inline automation scripts.
type ScriptRunner interface {
	Running() []string
	ReloadScript(id string) error
	StopScript(id string)
	RunScript(id string) *automation.RunResult
	RunLuaCode(code string) *automation.RunResult
}

// WithAutomation sets the automation engine and script manager. engine may
// be nil when scripts can be edited but not run.
func WithAutomation(engine ScriptRunner, mgr *automation.Manager) ServerOption {
	return func(s *Server) {
		s.autoEngine = engine
		s.scriptMgr = mgr
	}
}

// WithVersion sets the application version string reported by the API.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// Server is the HTTP server of the configuration API.
type Server struct {
	panel          *controller.Panel
	wsHub          *WSHub
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	scriptMgr      *automation.Manager
	autoEngine     ScriptRunner
	version        string
	wg             sync.WaitGroup
	unsubEvents    func()

	metrics  *prometheus.Registry
	requests *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// NewServer creates a new web server.
func NewServer(panel *controller.Panel, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	s := &Server{
		panel:   panel,
		logger:  logger.With("component", "web"),
		mux:     http.NewServeMux(),
		metrics: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total requests by route, method, and status.",
		}, []string{"route", "method", "status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scenepanel_events_total",
			Help: "Panel events by type.",
		}, []string{"type"}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.metrics.Register(s.requests); err != nil {
		return nil, err
	}
	if err := s.metrics.Register(s.events); err != nil {
		return nil, err
	}

	s.wsHub = NewWSHub(s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wsHub.Run()
	}()

	// Forward every panel event to WebSocket clients.
	s.unsubEvents = panel.Events().OnAll(func(event controller.Event) {
		s.events.WithLabelValues(event.Type).Inc()
		s.wsHub.Publish(event)
	})

	s.routes()
	return s, nil
}

// Stop gracefully shuts down the WebSocket hub and waits for goroutines.
func (s *Server) Stop() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	s.wsHub.Stop()
	s.wg.Wait()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/version", s.handleAPIVersion)
	s.mux.HandleFunc("GET /api/profiles", s.handleAPIListProfiles)

	// Host devices
	s.mux.HandleFunc("GET /api/devices", s.handleAPIListDevices)
	s.mux.HandleFunc("PUT /api/devices/{id}", s.handleAPISaveDevice)
	s.mux.HandleFunc("DELETE /api/devices/{id}", s.handleAPIDeleteDevice)
	s.mux.HandleFunc("PUT /api/devices/{id}/variables", s.handleAPISetVariables)

	// Controllers
	s.mux.HandleFunc("GET /api/controllers", s.handleAPIListControllers)
	s.mux.HandleFunc("GET /api/controllers/{id}/screens/{screen}", s.handleAPIView)
	s.mux.HandleFunc("POST /api/controllers/{id}/screen", s.handleAPISetScreen)
	s.mux.HandleFunc("POST /api/controllers/{id}/language", s.handleAPISetLanguage)
	s.mux.HandleFunc("PUT /api/controllers/{id}/screens/{screen}/buttons/{button}", s.handleAPIChangeLabel)
	s.mux.HandleFunc("PUT /api/controllers/{id}/screens/{screen}/buttons/{button}/associations/{slot}", s.handleAPIAssociation)
	s.mux.HandleFunc("PUT /api/controllers/{id}/screens/{screen}/timeout", s.handleAPITimeout)
	s.mux.HandleFunc("PUT /api/controllers/{id}/screens/{screen}/lines", s.handleAPILines)
	s.mux.HandleFunc("PUT /api/controllers/{id}/screens/{screen}/temperature", s.handleAPITemperature)
	s.mux.HandleFunc("POST /api/controllers/{id}/scenes", s.handleAPISetScene)
	s.mux.HandleFunc("POST /api/controllers/{id}/copy", s.handleAPICopyLines)
	s.mux.HandleFunc("GET /api/controllers/{id}/automations", s.handleAPIControllerAutomations)

	// Scenes and mode strings
	s.mux.HandleFunc("GET /api/scenes", s.handleAPIListScenes)
	s.mux.HandleFunc("POST /api/mode/parse", s.handleAPIParseMode)
	s.mux.HandleFunc("POST /api/mode/generate", s.handleAPIGenerateMode)

	// Automations
	s.mux.HandleFunc("GET /api/automations", s.handleAPIListAutomations)
	s.mux.HandleFunc("GET /api/automations/{id}", s.handleAPIGetAutomation)
	s.mux.HandleFunc("POST /api/automations", s.handleAPICreateAutomation)
	s.mux.HandleFunc("PUT /api/automations/{id}", s.handleAPIUpdateAutomation)
	s.mux.HandleFunc("DELETE /api/automations/{id}", s.handleAPIDeleteAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/toggle", s.handleAPIToggleAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/run", s.handleAPIRunAutomation)

	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
}

// ServeHTTP implements http.Handler, applying auth and CORS middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.serve(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	if route != "GET /metrics" {
		s.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	// CORS: check Origin on mutating requests to prevent CSRF.
	if len(s.allowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if r.Method == http.MethodOptions {
				if s.isOriginAllowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "3600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if r.Method != http.MethodGet {
				if !s.isOriginAllowed(origin) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
	}

	// Browsers cannot send custom headers on a WebSocket upgrade, so only
	// /api/ is guarded.
	if s.apiKey != "" && strings.HasPrefix(r.URL.Path, "/api/") {
		key := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

// isOriginAllowed checks if the origin matches any allowed origin pattern.
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the WebSocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
