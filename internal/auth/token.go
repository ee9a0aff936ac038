package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken covers expired, malformed, and mis-typed tokens.
	ErrInvalidToken = errors.New("token is invalid")
)

// TokenPair is what login, signup, and refresh hand back to clients.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carried by both access and refresh tokens.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 token pairs.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a manager around the shared signing secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL == 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue creates a fresh access/refresh pair for the user.
func (m *TokenManager) Issue(userID int64, email string) (TokenPair, error) {
	access, err := m.sign(userID, email, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(userID, email, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Token: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, tokenTypeAccess)
}

// Refresh validates a refresh token and rotates the whole pair.
func (m *TokenManager) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := m.verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return m.Issue(claims.UserID, claims.Email)
}

func (m *TokenManager) sign(userID int64, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func (m *TokenManager) verify(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
