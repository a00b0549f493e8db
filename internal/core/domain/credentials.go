package domain

import "strings"

// Credentials identify this service to the hosted search backend.
// They are read once at startup and never mutated; empty values are passed
// through so the backend reports the auth failure at call time.
type Credentials struct {
	AppID  string `json:"app_id"`
	APIKey string `json:"-"` // Never serialize
}

// String renders the credentials with the API key masked
func (c Credentials) String() string {
	return "app_id=" + c.AppID + " api_key=" + MaskSecret(c.APIKey)
}

// MaskSecret keeps the last four characters of a secret for log lines
func MaskSecret(s string) string {
	if s == "" {
		return "(empty)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
