package authkit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates the purposes a signed token may serve.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindReset   TokenKind = "reset"
)

// Sentinel errors returned by TokenManager.Verify.
var (
	ErrMissingSigningKey = errors.New("jwt.missing_signing_key")
	ErrMissingSubject    = errors.New("jwt.missing_subject")
	ErrMissingToken      = errors.New("jwt.missing_token")
	ErrInvalidToken      = errors.New("jwt.invalid_token")
	ErrTokenExpired      = errors.New("jwt.expired")
	ErrWrongTokenKind    = errors.New("jwt.wrong_kind")
)

// JwtCustomClaims are embedded in every issued token.
type JwtCustomClaims struct {
	UserID string    `json:"id"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens for a single signing key.
type TokenManager struct {
	signingKey []byte
	issuer     string
	ttls       map[TokenKind]time.Duration
	clock      Clock
}

// NewTokenManager validates configuration and builds a TokenManager.
// A nil clock uses the system clock.
func NewTokenManager(configuration ServerConfig, clock Clock) (*TokenManager, error) {
	if len(configuration.JWTSigningKey) == 0 {
		return nil, fmt.Errorf("jwt.new: %w", ErrMissingSigningKey)
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	ttls := map[TokenKind]time.Duration{
		TokenKindAccess:  configuration.AccessTTL,
		TokenKindRefresh: configuration.RefreshTTL,
		TokenKindReset:   configuration.ResetTTL,
	}
	for kind, ttl := range ttls {
		if ttl <= 0 {
			return nil, fmt.Errorf("jwt.new: %s ttl must be greater than zero", kind)
		}
	}
	return &TokenManager{
		signingKey: configuration.JWTSigningKey,
		issuer:     configuration.JWTIssuer,
		ttls:       ttls,
		clock:      clock,
	}, nil
}

// TTL returns the lifetime configured for kind.
func (manager *TokenManager) TTL(kind TokenKind) time.Duration {
	return manager.ttls[kind]
}

// IssueAccess mints a short-lived token authorizing requests for userID.
func (manager *TokenManager) IssueAccess(userID string) (string, time.Time, error) {
	return manager.issue(userID, TokenKindAccess)
}

// IssueRefresh mints a token that can be exchanged for new access tokens.
func (manager *TokenManager) IssueRefresh(userID string) (string, time.Time, error) {
	return manager.issue(userID, TokenKindRefresh)
}

// IssueReset mints a token authorizing one password reset.
func (manager *TokenManager) IssueReset(userID string) (string, time.Time, error) {
	return manager.issue(userID, TokenKindReset)
}

func (manager *TokenManager) issue(userID string, kind TokenKind) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("jwt.mint.%s: %w", kind, ErrMissingSubject)
	}
	issuedAt := manager.clock.Now().UTC()
	expiresAt := issuedAt.Add(manager.ttls[kind])
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JwtCustomClaims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    manager.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(manager.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt.mint.%s: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Verify parses tokenString and checks signature, expiry, issuer, and kind.
// Malformed input yields ErrInvalidToken; it never panics.
func (manager *TokenManager) Verify(tokenString string, kind TokenKind) (*JwtCustomClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrMissingToken)
	}
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(manager.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if manager.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(manager.issuer))
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return manager.signingKey, nil
	}, parserOptions...)
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrTokenExpired)
		}
		return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*JwtCustomClaims)
	if !ok || claims.UserID == "" {
		return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrInvalidToken)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("jwt.verify.%s: %w", kind, ErrWrongTokenKind)
	}
	return claims, nil
}
