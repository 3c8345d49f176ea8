// Package auth issues and verifies staff access tokens.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "studentservices-api/internal/common/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const revokedKeyPrefix = "auth:revoked:"

// Claims carries the staff identity inside the token.
type Claims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// TokenInfo is the verified view of a token handed to handlers.
type TokenInfo struct {
	UserID      int64
	Username    string
	Email       string
	IsStaff     bool
	IsSuperuser bool
	TokenID     string
	ExpiresAt   time.Time
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID      int64
	Username    string
	Email       string
	IsStaff     bool
	IsSuperuser bool
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	redis  redis.Cmdable
	now    func() time.Time
}

// NewTokenManager builds a manager. rdb may be nil, in which case logout
// cannot revoke tokens before they expire.
func NewTokenManager(secret, issuer string, ttl time.Duration, rdb redis.Cmdable) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		redis:  rdb,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(sub Subject) (string, *TokenInfo, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(sub.UserID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Username:    sub.Username,
		Email:       sub.Email,
		IsStaff:     sub.IsStaff,
		IsSuperuser: sub.IsSuperuser,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, toInfo(sub.UserID, &claims), nil
}

// Validate parses the token, checks signature, issuer, expiry and revocation.
func (m *TokenManager) Validate(ctx context.Context, tokenString string) (*TokenInfo, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, apperrors.NewAuthenticationError("invalid or expired token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("invalid token subject")
	}

	if m.redis != nil && claims.ID != "" {
		n, err := m.redis.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
		if err != nil {
			return nil, apperrors.NewCacheUnavailableError(err)
		}
		if n > 0 {
			return nil, apperrors.NewAuthenticationError("token has been revoked")
		}
	}
	return toInfo(userID, claims), nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, info *TokenInfo) error {
	if m.redis == nil || info == nil || info.TokenID == "" {
		return nil
	}
	ttl := info.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.redis.Set(ctx, revokedKeyPrefix+info.TokenID, "1", ttl).Err()
}

func toInfo(userID int64, c *Claims) *TokenInfo {
	info := &TokenInfo{
		UserID:      userID,
		Username:    c.Username,
		Email:       c.Email,
		IsStaff:     c.IsStaff,
		IsSuperuser: c.IsSuperuser,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
