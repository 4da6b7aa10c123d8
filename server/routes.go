package server

import "net/http"

func (s *Server) initRoutes() {
	// Public
	s.RegisterRouteHandler(http.MethodPost, RouteSignup, ChainMiddleware(s.SignUpHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(http.MethodPost, RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(http.MethodPut, RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(http.MethodPost, RouteSavePassword, ChainMiddleware(s.SavePasswordHandler(), s.APIMiddleware()...))

	// Bearer token. Logout checks its own token.
	s.RegisterRouteHandler(http.MethodPost, RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(http.MethodGet, RouteUserDetails, ChainMiddleware(s.UserDetailsHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Organizers
	s.RegisterRouteHandler(http.MethodGet, RouteAllUsers, ChainMiddleware(s.AllUsersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler(http.MethodGet, RouteOnlineUsers, ChainMiddleware(s.OnlineUsersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))

	// The socket proves identity with set-user after the upgrade
	s.RegisterRouteHandler(http.MethodGet, RouteSocket, ChainMiddleware(s.hub.ServeWS, s.LoggingMiddleware, s.RecoverMiddleware))

	s.RegisterRouteHandler(http.MethodOptions, "/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
