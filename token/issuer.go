package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
)

const (
	defaultTTL          = 24 * time.Hour
	defaultSecretLength = 32
	defaultIssuer       = "timeToMeet"
)

// Issued is a freshly signed token together with its per-token secret
type Issued struct {
	Token     string
	Secret    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Issuer struct {
	signer       Signer
	issuer       string
	subject      string
	ttl          time.Duration
	secretLength int
	nowFunc      func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

// WithSubject sets the sub claim. Defaults to Subject.
func WithSubject(subject string) IssuerOption {
	return func(i *Issuer) {
		i.subject = subject
	}
}

func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

func WithSecretLength(length int) IssuerOption {
	return func(i *Issuer) {
		i.secretLength = length
	}
}

func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer: signer,
	}

	for _, opt := range options {
		opt(i)
	}

	if i.issuer == "" {
		i.issuer = defaultIssuer
	}
	if i.subject == "" {
		i.subject = Subject
	}
	if i.ttl <= 0 {
		i.ttl = defaultTTL
	}
	if i.secretLength <= 0 {
		i.secretLength = defaultSecretLength
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// Issue signs a new bearer token for claims. The returned secret is random
// per token and must be stored with the session record; it is needed by
// Verifier.Verify. The only failure is a signing error, reported as
// ErrTokenIssuanceFailed.
func (i *Issuer) Issue(claims IdentityClaims) (*Issued, error) {
	secretBytes := make([]byte, i.secretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, apperrors.Mark(apperrors.ErrTokenIssuanceFailed, fmt.Errorf("rand.Read: %w", err))
	}
	secret := hex.EncodeToString(secretBytes)

	// JWT timestamps have second precision
	now := i.nowFunc().Truncate(time.Second)
	expiresAt := now.Add(i.ttl)
	tokenID := uuid.New().String()

	data := claims
	signed, err := i.signer.Sign(authClaims{
		Data:    &data,
		Binding: i.signer.Bind(secret, tokenID),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    i.issuer,
			Subject:   i.subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrTokenIssuanceFailed, err)
	}

	return &Issued{
		Token:     signed,
		Secret:    secret,
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}
