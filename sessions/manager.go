package sessions

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/rs/zerolog/log"
)

// LoginResult is returned to the caller of a successful login
type LoginResult struct {
	AuthToken   string               `json:"authToken"`
	UserDetails token.IdentityClaims `json:"userDetails"`
	Record      *Record              `json:"-"`
}

// Manager owns the session lifecycle: issuing and persisting a token on
// login, deleting the record on logout and checking presented tokens
// against the stored record.
type Manager struct {
	repo     Repo
	issuer   *token.Issuer
	verifier *token.Verifier
}

func NewManager(repo Repo, issuer *token.Issuer, verifier *token.Verifier) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewManager] token issuer is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewManager] token verifier is required")
	}

	return &Manager{
		repo:     repo,
		issuer:   issuer,
		verifier: verifier,
	}, nil
}

// Login issues a token for claims and stores it as the user's only session,
// replacing any previous one. Concurrent logins for the same user resolve
// as last writer wins inside the store's single atomic upsert.
func (m *Manager) Login(ctx context.Context, claims token.IdentityClaims) (*LoginResult, error) {
	if claims.UserID == "" {
		return nil, apperrors.Mark(apperrors.ErrMalformedPayload, errors.New("claims missing userId"))
	}

	issued, err := m.issuer.Issue(claims)
	if err != nil {
		log.Err(err).Str("userId", claims.UserID).Msg("Login: failed to issue token")
		return nil, err
	}

	record, err := m.repo.Upsert(ctx, &Record{
		UserID:              claims.UserID,
		AuthToken:           issued.Token,
		TokenSecret:         issued.Secret,
		Permissions:         claims.Permissions,
		TokenGenerationTime: issued.IssuedAt,
	})
	if err != nil {
		log.Err(err).Str("userId", claims.UserID).Msg("Login: failed to save session")
		return nil, apperrors.Mark(apperrors.ErrSessionPersistenceFailed, err)
	}

	return &LoginResult{
		AuthToken:   record.AuthToken,
		UserDetails: claims,
		Record:      record,
	}, nil
}

// Logout removes the user's session. A user without a session gets
// ErrNoActiveSession, so repeated logouts after the first all report it.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	err := m.repo.Delete(ctx, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.ErrNoActiveSession
	default:
		log.Err(err).Str("userId", userID).Msg("Logout: failed to delete session")
		return apperrors.Mark(apperrors.ErrSessionPersistenceFailed, err)
	}
}

// Authenticate verifies a bearer token presented on the HTTP path. The token
// must be the one currently stored for its user and must verify against the
// stored per-token secret.
func (m *Manager) Authenticate(ctx context.Context, rawToken string) (*token.IdentityClaims, *Record, error) {
	userID, err := token.UnverifiedUserID(rawToken)
	if err != nil {
		return nil, nil, err
	}

	record, err := m.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrNoActiveSession
		}
		return nil, nil, apperrors.Mark(apperrors.ErrSessionPersistenceFailed, err)
	}

	if record.AuthToken != rawToken {
		// Verify first so an expired rotated token still reports as expired
		if _, err := m.verifier.VerifyWithoutSecret(rawToken); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperrors.Mark(apperrors.ErrInvalidToken, fmt.Errorf("token for user %s has been rotated", userID))
	}

	claims, err := m.verifier.Verify(rawToken, record.TokenSecret)
	if err != nil {
		return nil, nil, err
	}
	return claims, record, nil
}
