package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/timetomeet/auth"
	"github.com/jrsteele09/timetomeet/internal/config"
	"github.com/jrsteele09/timetomeet/realtime"
	"github.com/jrsteele09/timetomeet/sessions"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	prefix   string // API version prefix every route is mounted under
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	accounts *auth.AccountService
	sessions *sessions.Manager
	hub      *realtime.Hub
}

func New(config config.Config, accounts *auth.AccountService, sessionManager *sessions.Manager, hub *realtime.Hub) (*Server, error) {
	if accounts == nil {
		return nil, errors.New("[Server New] account service is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[Server New] session manager is required")
	}
	if hub == nil {
		return nil, errors.New("[Server New] realtime hub is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		prefix:   config.GetAPIVersion(),
		mux:      http.NewServeMux(),
		config:   config,
		accounts: accounts,
		sessions: sessionManager,
		hub:      hub,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(method, route string, handler http.Handler) {
	pattern := method + " " + s.prefix + route
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}
