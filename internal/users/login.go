package users

import (
	"context"
	"time"

	"studentservices-api/internal/common/auth"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/models"
)

// Authenticator exchanges staff credentials for an access token.
type Authenticator struct {
	store  *Store
	tokens *auth.TokenManager
	logger logger.Logger
	now    func() time.Time
}

func NewAuthenticator(store *Store, tokens *auth.TokenManager, log logger.Logger) *Authenticator {
	return &Authenticator{
		store:  store,
		tokens: tokens,
		logger: log.WithFields(map[string]interface{}{"component": "auth"}),
		now:    time.Now,
	}
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
			return nil, apperrors.NewAuthenticationError("Invalid username or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		a.logger.Warn("login rejected", map[string]interface{}{"username": username, "reason": "bad_password"})
		return nil, apperrors.NewAuthenticationError("Invalid username or password")
	}
	if !u.IsActive {
		return nil, apperrors.NewAuthenticationError("User account is disabled")
	}
	if !u.IsStaff && !u.IsSuperuser {
		return nil, apperrors.NewPermissionError("Admin privileges required")
	}

	token, info, err := a.tokens.Issue(auth.Subject{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := a.now().UTC()
	if err := a.store.TouchLogin(ctx, u.ID, now); err != nil {
		a.logger.Warn("failed to record last login", map[string]interface{}{"userId": u.ID, "error": err})
	} else {
		u.LastLogin = &now
	}

	a.logger.Info("staff login", map[string]interface{}{"userId": u.ID, "username": u.Username})
	return &LoginResult{Token: token, ExpiresAt: info.ExpiresAt, User: u}, nil
}

func (a *Authenticator) Logout(ctx context.Context, info *auth.TokenInfo) error {
	if err := a.tokens.Revoke(ctx, info); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}
