package token

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/timetomeet/users"
)

const (
	// Subject marks a JWT as a session bearer token
	Subject = "authToken"
	// ResetSubject marks a JWT mailed in a password reset link
	ResetSubject = "resetToken"
)

// IdentityClaims is the public profile embedded in a token's "data" claim.
// Extra fields sit beside the named ones in the same object and cannot
// replace them. Numbers in Extra decode as float64.
type IdentityClaims struct {
	UserID      string           `json:"userId"`
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	Email       string           `json:"email"`
	Permissions users.Permission `json:"permissions"`
	Extra       map[string]any   `json:"-"`
}

// identityFields aliases IdentityClaims without its JSON methods
type identityFields IdentityClaims

var reservedClaimKeys = map[string]bool{
	"userId":      true,
	"firstName":   true,
	"lastName":    true,
	"email":       true,
	"permissions": true,
}

func (c IdentityClaims) MarshalJSON() ([]byte, error) {
	named, err := json.Marshal(identityFields(c))
	if err != nil || len(c.Extra) == 0 {
		return named, err
	}

	flat := make(map[string]json.RawMessage, len(c.Extra)+len(reservedClaimKeys))
	for k, v := range c.Extra {
		if reservedClaimKeys[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		flat[k] = raw
	}
	if err := json.Unmarshal(named, &flat); err != nil {
		return nil, err
	}
	return json.Marshal(flat)
}

func (c *IdentityClaims) UnmarshalJSON(data []byte) error {
	var named identityFields
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*c = IdentityClaims(named)
	c.Extra = nil
	for k, v := range all {
		if reservedClaimKeys[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return nil
}

// ClaimsFromUser builds the identity claims for a user, never including the
// password hash.
func ClaimsFromUser(u *users.User) IdentityClaims {
	claims := IdentityClaims{
		UserID:      u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Permissions: u.Permissions,
	}

	extra := map[string]any{}
	if u.MobileNumber != "" {
		extra["mobileNumber"] = u.MobileNumber
	}
	if u.CountryCode != "" {
		extra["countryCode"] = u.CountryCode
	}
	if len(extra) > 0 {
		claims.Extra = extra
	}
	return claims
}

// IsAdmin reports whether the claims carry organizer rights
func (c IdentityClaims) IsAdmin() bool {
	return c.Permissions == users.PermissionAdmin
}

// authClaims is the JWT payload: {jti, iat, exp, iss, sub, data, bnd}
type authClaims struct {
	Data    *IdentityClaims `json:"data,omitempty"`
	Binding string          `json:"bnd,omitempty"`
	jwt.RegisteredClaims
}
