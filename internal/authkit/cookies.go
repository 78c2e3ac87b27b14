package authkit

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// writeRefreshCookie stores the refresh token in an HttpOnly cookie scoped to the refresh route.
func writeRefreshCookie(contextGin *gin.Context, configuration ServerConfig, refreshToken string, ttl time.Duration) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.refreshCookieName(),
		Value:    refreshToken,
		Path:     configuration.refreshCookiePath(),
		Domain:   configuration.CookieDomain,
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().UTC().Add(ttl),
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: sameSiteOrDefault(configuration.SameSiteMode),
	})
}

// clearRefreshCookie expires the refresh cookie on the client.
func clearRefreshCookie(contextGin *gin.Context, configuration ServerConfig) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.refreshCookieName(),
		Value:    "",
		Path:     configuration.refreshCookiePath(),
		Domain:   configuration.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: sameSiteOrDefault(configuration.SameSiteMode),
	})
}

func readRefreshCookie(contextGin *gin.Context, configuration ServerConfig) string {
	refreshCookie, cookieErr := contextGin.Request.Cookie(configuration.refreshCookieName())
	if cookieErr != nil || refreshCookie == nil {
		return ""
	}
	return strings.TrimSpace(refreshCookie.Value)
}

func sameSiteOrDefault(mode http.SameSite) http.SameSite {
	if mode == 0 {
		return http.SameSiteLaxMode
	}
	return mode
}
