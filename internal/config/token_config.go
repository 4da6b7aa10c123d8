package config

import "time"

const (
	signingKeyEnvVar  = "TOKEN_SIGNING_KEY"
	tokenIssuerEnvVar = "TOKEN_ISSUER"
	tokenTTLEnvVar    = "TOKEN_TTL"
	resetTTLEnvVar    = "RESET_TOKEN_TTL"
	resetURLEnvVar    = "RESET_URL"
)

type TokenConfig interface {
	GetSigningKey() string
	GetTokenIssuer() string
	GetTokenTTL() time.Duration
	GetTokenSecretLength() int
	GetResetTokenTTL() time.Duration
	GetResetURL() string
}

type Token struct{}

var _ TokenConfig = Token{}

// GetSigningKey returns the process-wide HMAC key. An empty key makes every
// issuance fail, it is never defaulted.
func (Token) GetSigningKey() string {
	return GetEnv(signingKeyEnvVar, "")
}

func (Token) GetTokenIssuer() string {
	return GetEnv(tokenIssuerEnvVar, "timeToMeet")
}

func (Token) GetTokenTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv(tokenTTLEnvVar, "24h"))
	if err != nil || ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}

func (Token) GetTokenSecretLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetResetTokenTTL is how long a mailed password reset link stays usable
func (Token) GetResetTokenTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv(resetTTLEnvVar, "1h"))
	if err != nil || ttl <= 0 {
		return time.Hour
	}
	return ttl
}

// GetResetURL is the link prefix the reset token is appended to
func (Token) GetResetURL() string {
	return GetEnv(resetURLEnvVar, "http://localhost:4200/reset-password?validationToken=")
}
