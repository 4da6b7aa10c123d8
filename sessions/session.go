package sessions

import (
	"time"

	"github.com/jrsteele09/timetomeet/users"
)

// Record binds a user to the bearer token issued at their latest login.
// There is at most one record per UserID; a new login overwrites it in place.
type Record struct {
	UserID              string           // Unique, one record per user
	AuthToken           string           // Current bearer token
	TokenSecret         string           // Per-token secret needed by token.Verifier.Verify
	Permissions         users.Permission // Copy of the user's permission, refreshed on every login
	TokenGenerationTime time.Time        // When AuthToken was issued
}
