package authkit

import (
	"net/http"
	"time"
)

// Default cookie and route settings for the refresh token carrier.
const (
	DefaultRefreshCookieName = "refreshToken"
	DefaultRefreshCookiePath = "/api/auth/refresh_token"
)

// ServerConfig configures token issuance and the refresh cookie.
type ServerConfig struct {
	JWTSigningKey     []byte
	JWTIssuer         string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	ResetTTL          time.Duration
	RefreshCookieName string
	RefreshCookiePath string
	CookieDomain      string
	SameSiteMode      http.SameSite
	AllowInsecureHTTP bool
}

func (configuration ServerConfig) refreshCookieName() string {
	if configuration.RefreshCookieName == "" {
		return DefaultRefreshCookieName
	}
	return configuration.RefreshCookieName
}

func (configuration ServerConfig) refreshCookiePath() string {
	if configuration.RefreshCookiePath == "" {
		return DefaultRefreshCookiePath
	}
	return configuration.RefreshCookiePath
}
