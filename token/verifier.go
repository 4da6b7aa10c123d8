package token

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
)

// Verifier checks bearer tokens produced by an Issuer sharing the same Signer.
//
// There are two entry points with different guarantees:
//   - Verify requires the per-token secret stored with the session record.
//     A token only verifies against the secret it was issued with, so
//     rotating the session makes the previous token unverifiable.
//   - VerifyWithoutSecret only checks the signing key. Any unexpired token
//     ever signed with the key passes, including tokens that were since
//     rotated out. It exists for the socket handshake, which only sees the
//     bearer token.
type Verifier struct {
	signer  Signer
	subject string
	nowFunc func() time.Time
}

type VerifierOption func(*Verifier)

func WithVerifierNowFunc(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// WithExpectedSubject sets the sub claim tokens must carry. Defaults to
// Subject.
func WithExpectedSubject(subject string) VerifierOption {
	return func(v *Verifier) {
		v.subject = subject
	}
}

func NewVerifier(signer Signer, options ...VerifierOption) *Verifier {
	v := &Verifier{
		signer: signer,
	}

	for _, opt := range options {
		opt(v)
	}

	if v.nowFunc == nil {
		v.nowFunc = time.Now
	}
	if v.subject == "" {
		v.subject = Subject
	}
	return v
}

// Verify validates the signature, the per-token secret binding, expiry and
// payload shape, returning the embedded identity claims.
func (v *Verifier) Verify(rawToken, secret string) (*IdentityClaims, error) {
	claims, err := v.parse(rawToken)
	if err != nil {
		return nil, err
	}

	expected := v.signer.Bind(secret, claims.ID)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(claims.Binding)) != 1 {
		return nil, apperrors.Mark(apperrors.ErrInvalidToken, errors.New("token secret mismatch"))
	}
	return claims.Data, nil
}

// VerifyWithoutSecret validates signature, expiry and payload shape using
// the signing key alone.
func (v *Verifier) VerifyWithoutSecret(rawToken string) (*IdentityClaims, error) {
	claims, err := v.parse(rawToken)
	if err != nil {
		return nil, err
	}
	return claims.Data, nil
}

// parse runs the checks shared by both entry points. Signature and expiry
// are separate steps so an expired token is reported as ErrTokenExpired.
func (v *Verifier) parse(rawToken string) (*authClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.Mark(apperrors.ErrInvalidToken, errors.New("empty token"))
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, v.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, apperrors.Mark(apperrors.ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil {
		return nil, apperrors.Mark(apperrors.ErrMalformedPayload, errors.New("token missing exp claim"))
	}
	if !v.nowFunc().Before(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrTokenExpired
	}

	if claims.Subject != v.subject {
		return nil, apperrors.Mark(apperrors.ErrMalformedPayload, errors.New("unexpected subject"))
	}
	if claims.Data == nil || claims.Data.UserID == "" {
		return nil, apperrors.Mark(apperrors.ErrMalformedPayload, errors.New("token missing identity claims"))
	}
	return claims, nil
}

// UnverifiedUserID reads data.userId without checking the signature. It is
// only safe as a lookup key ahead of a full Verify.
func UnverifiedUserID(rawToken string) (string, error) {
	claims := &authClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return "", apperrors.Mark(apperrors.ErrInvalidToken, err)
	}
	if claims.Data == nil || claims.Data.UserID == "" {
		return "", apperrors.Mark(apperrors.ErrMalformedPayload, errors.New("token missing identity claims"))
	}
	return claims.Data.UserID, nil
}
