package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// APIResponse is the envelope every JSON route answers with
type APIResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data"`
}

func writeResponse(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Error:   status >= http.StatusBadRequest,
		Message: message,
		Status:  status,
		Data:    data,
	})
}

type errorMapping struct {
	target  error
	status  int
	message string
}

// Order matters: the first sentinel the error matches decides the response.
var errorMappings = []errorMapping{
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, "Token Expired, Please Login Again"},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized, "Invalid Or Expired AuthorizationKey"},
	{apperrors.ErrMalformedPayload, http.StatusUnauthorized, "Invalid Or Expired AuthorizationKey"},
	{apperrors.ErrNoActiveSession, http.StatusNotFound, "Already Logged Out or Invalid UserId"},
	{apperrors.ErrTokenIssuanceFailed, http.StatusInternalServerError, "Failed To Generate Token"},
	{apperrors.ErrSessionPersistenceFailed, http.StatusInternalServerError, "Failed To Save Session"},
	{apperrors.ErrInvalidRequest, http.StatusBadRequest, ""},
	{apperrors.ErrInvalidCredentials, http.StatusBadRequest, "Wrong Password. Login Failed"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "No User Details Found"},
	{apperrors.ErrUserExists, http.StatusForbidden, "User Already Present With this Email"},
	{apperrors.ErrForbidden, http.StatusForbidden, "Only Organizers Can Access This Resource"},
}

func statusForError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.message == "" {
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func writeError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Int("status", status).Msg("Request failed")
	}
	writeResponse(w, status, message, nil)
}
