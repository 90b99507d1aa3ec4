package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"instametrics/internal/structures"
	"strconv"
	"strings"
	"time"
)

const (
	tokenIssuer      = "instametrics"
	DefaultTokenTTL  = 7 * 24 * time.Hour
	AuditLogin       = "login"
	AuditTokenAccess = "token_access"
)

type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password string) (*models.LoginResult, error)
	Validate(ctx context.Context, token string) (*models.Claims, error)
	Register(ctx context.Context, tenant *models.Tenant, user *models.User, password string) error
	Audit(ctx context.Context, claims *models.Claims, action, details string)
}

type AuthService struct {
	users  repository.UserRepository
	audit  repository.AuditRepository
	logger providers.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(conf *structures.Config, users repository.UserRepository, audit repository.AuditRepository, logger providers.Logger) AuthServiceInterface {
	ttl := conf.JWT.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:  users,
		audit:  audit,
		logger: logger,
		secret: []byte(conf.JWT.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	uw, err := s.users.FindByEmailWithTenant(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(uw.User.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}

	now := s.now()
	claims := &models.Claims{
		UserID:     uw.User.ID,
		TenantID:   uw.Tenant.ID,
		TenantCode: uw.Tenant.Code,
		Role:       uw.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(uw.User.ID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, uw.User.ID, now); err != nil {
		s.logger.Warnf(providers.TypeApp, "last login for user %d not updated: %s", uw.User.ID, err)
	}
	s.Audit(ctx, claims, AuditLogin, "")

	s.logger.Infof(providers.TypeApp, "user %d of tenant %s logged in", uw.User.ID, uw.Tenant.Code)
	return &models.LoginResult{Token: signed, User: uw.User, Company: uw.Tenant}, nil
}

// Validate checks signature and expiry and that the user and tenant are
// still active.
func (s *AuthService) Validate(ctx context.Context, token string) (*models.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*models.Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", apperrors.ErrUnauthorized)
	}

	uw, err := s.users.GetWithTenant(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: user or company inactive", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if uw.Tenant.ID != claims.TenantID {
		return nil, fmt.Errorf("%w: tenant mismatch", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

// Register creates the tenant when it has no ID yet, then the user.
func (s *AuthService) Register(ctx context.Context, tenant *models.Tenant, user *models.User, password string) error {
	if len(password) < 8 {
		return apperrors.NewValidationError("password must have at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if tenant.ID == 0 {
		if err := s.users.CreateTenant(ctx, tenant); err != nil {
			return err
		}
	}
	user.TenantID = tenant.ID
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.PasswordHash = string(hash)
	return s.users.CreateUser(ctx, user)
}

// Audit records an action and only logs when the write fails.
func (s *AuthService) Audit(ctx context.Context, claims *models.Claims, action, details string) {
	err := s.audit.Record(ctx, models.AuditEntry{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Action:   action,
		Details:  details,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "audit %s for user %d not recorded: %s", action, claims.UserID, err)
	}
}
