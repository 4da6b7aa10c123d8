package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/timetomeet/auth"
	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/users"
)

const maxBodyBytes = 1 << 20

// LoginRequest is the body accepted by the login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Mark(apperrors.ErrInvalidRequest, err)
	}
	return nil
}

// ForgotPasswordRequest is the body accepted by the forgot password endpoint
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// SavePasswordRequest carries the mailed validation token and the new password
type SavePasswordRequest struct {
	ValidationToken string `json:"validationToken"`
	Password        string `json:"password"`
}

// SignUpHandler creates a participant or, for last names ending in
// "admin", an organizer
func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignUpRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		user, err := s.accounts.SignUp(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "User created", user)
	}
}

// LoginHandler checks the password and opens a session, returning the
// bearer token and the user's details
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		result, err := s.accounts.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "Login Successful", result)
	}
}

// LogoutHandler closes the caller's session. It authenticates the token
// itself so a session that is already gone answers 404 rather than 401.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeResponse(w, http.StatusUnauthorized, missingTokenMessage, nil)
			return
		}
		claims, _, err := s.sessions.Authenticate(r.Context(), raw)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := s.accounts.Logout(r.Context(), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "Logged Out Successfully", nil)
	}
}

// ForgotPasswordHandler mails a reset link to the account's address
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		if err := s.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "Password Reset Link Sent", nil)
	}
}

func (s *Server) SavePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SavePasswordRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		if err := s.accounts.SavePassword(r.Context(), req.ValidationToken, req.Password); err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "Password Update Successfully", nil)
	}
}

func (s *Server) UserDetailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.accounts.GetUser(r.Context(), r.PathValue("userId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, "User Details Found", user.Profile())
	}
}

// AllUsersHandler lists every participant an organizer can invite
func (s *Server) AllUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participants, err := s.accounts.ListParticipants(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		summaries := make([]users.Summary, 0, len(participants))
		for _, p := range participants {
			summaries = append(summaries, p.Summary())
		}
		writeResponse(w, http.StatusOK, "All User Details Found", summaries)
	}
}

func (s *Server) OnlineUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, "Online Users", s.hub.Online())
	}
}
