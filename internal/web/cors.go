package web

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errWildcardOrigin = errors.New("cors: wildcard origin not allowed when credentials are enabled")
	errInvalidOrigin  = errors.New("cors: invalid origin format")
)

// CORSPolicy is the configured cross-origin middleware.
type CORSPolicy struct {
	Handler gin.HandlerFunc
	// Credentialed is true when explicit origins were configured and browsers
	// may send the refresh cookie cross-site.
	Credentialed bool
}

// ConfigureCORS enables cross-origin requests. With no configured origins
// every origin is allowed and credentials are not; otherwise only the listed
// origins are allowed, with credentials.
func ConfigureCORS(logger *zap.Logger, allowedOrigins []string) (CORSPolicy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitized, err := sanitizeOrigins(logger, allowedOrigins)
	if err != nil {
		return CORSPolicy{}, err
	}
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(sanitized) == 0 {
		logger.Info("cors allows every origin without credentials",
			zap.String("code", "cors.origin.any"))
		config.AllowAllOrigins = true
		return CORSPolicy{Handler: cors.New(config)}, nil
	}
	config.AllowOrigins = sanitized
	config.AllowCredentials = true
	return CORSPolicy{Handler: cors.New(config), Credentialed: true}, nil
}

// sanitizeOrigins normalizes the configured origins to scheme://host form,
// drops blanks and duplicates, and keeps the configured order.
func sanitizeOrigins(logger *zap.Logger, configured []string) ([]string, error) {
	origins := make([]string, 0, len(configured))
	for _, raw := range configured {
		origin, err := normalizeOrigin(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		if origin == "" || slices.Contains(origins, origin) {
			continue
		}
		if strings.HasPrefix(origin, "http://") && !isDevelopmentHost(strings.TrimPrefix(origin, "http://")) {
			logger.Warn("plain http cors origin outside development",
				zap.String("code", "cors.origin.unsafe"),
				zap.String("origin", origin))
		}
		origins = append(origins, origin)
	}
	return origins, nil
}

// normalizeOrigin returns "" for an empty entry. Anything beyond an
// http(s) scheme, a host and an optional trailing slash is rejected.
func normalizeOrigin(origin string) (string, error) {
	switch origin {
	case "":
		return "", nil
	case "*":
		return "", errWildcardOrigin
	}
	parsed, err := url.Parse(origin)
	switch {
	case err != nil, parsed.Host == "":
		return "", fmt.Errorf("%w: %s", errInvalidOrigin, origin)
	case parsed.Path != "" && parsed.Path != "/", parsed.RawQuery != "", parsed.Fragment != "":
		return "", fmt.Errorf("%w: %s carries more than scheme and host", errInvalidOrigin, origin)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %s uses scheme %q", errInvalidOrigin, origin, parsed.Scheme)
	}
	return scheme + "://" + strings.ToLower(parsed.Host), nil
}

// isDevelopmentHost reports whether hostPort names the local machine.
func isDevelopmentHost(hostPort string) bool {
	host := hostPort
	if index := strings.LastIndex(hostPort, ":"); index >= 0 {
		host = hostPort[:index]
	}
	return host == "localhost" || host == "127.0.0.1"
}
