package constant

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// RefreshTokenTTL is the fixed lifetime of a refresh token from issuance.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultAccessExpirySeconds is used when the configured access token
	// expiry string cannot be parsed.
	DefaultAccessExpirySeconds = 3600
)
