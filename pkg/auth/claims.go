package auth

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims is the decoded identity-provider token. Subject carries the
// external identity id; name and email are present when the provider
// includes profile metadata in the token.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ExternalID returns the provider subject, the key every tenant lookup uses.
func (c *IdentityClaims) ExternalID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
