package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey returns the key used to check a parsed token's signature
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod

	// Bind derives the value tying a token ID to its per-token secret
	Bind(secret, tokenID string) string
}

// HMACSigner implements Signer using symmetric HMAC-SHA256 with the
// process-wide signing key.
type HMACSigner struct {
	key []byte
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner creates a new HMAC signer with the given signing key
func NewHMACSigner(key string) *HMACSigner {
	return &HMACSigner{
		key: []byte(key),
	}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	if len(h.key) == 0 {
		return "", fmt.Errorf("failed to sign token with HMAC: signing key is empty")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if len(h.key) == 0 {
		return nil, fmt.Errorf("signing key is empty")
	}
	return h.key, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

// Bind returns hex(HMAC-SHA256(signingKey || secret, tokenID)). The result
// can only be recomputed by someone holding both the signing key and the
// per-token secret.
func (h *HMACSigner) Bind(secret, tokenID string) string {
	key := make([]byte, 0, len(h.key)+len(secret))
	key = append(key, h.key...)
	key = append(key, secret...)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(tokenID))
	return hex.EncodeToString(mac.Sum(nil))
}
