package server

// Route path constants, relative to the configured API version prefix
const (
	// Public account routes
	RouteSignup = "/users/signup"
	RouteLogin  = "/users/login"

	// Password reset
	RouteForgotPassword = "/users/forgotpassword"
	RouteSavePassword   = "/users/savepassword"

	// Bearer authenticated routes
	RouteLogout      = "/users/logout"
	RouteUserDetails = "/users/{userId}/details"

	// Organizer routes
	RouteAllUsers    = "/users/view/all"
	RouteOnlineUsers = "/users/online"

	// Socket channel
	RouteSocket = "/users/ws"
)
