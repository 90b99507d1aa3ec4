package services

import (
	"context"
	"errors"
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/graph"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"instametrics/internal/structures"
	"math"
	"strings"
	"time"
)

const (
	DefaultRefreshWithin = 7 * 24 * time.Hour
	maskKeepPrefix       = 6
	maskKeepSuffix       = 4
)

type RegistryServiceInterface interface {
	ActiveCredential(ctx context.Context, tenantID int64) (*models.AccountCredential, error)
	Tokens(ctx context.Context, tenantID int64) ([]models.TokenView, error)
	RefreshExpiring(ctx context.Context, within time.Duration) (int, error)
	Register(ctx context.Context, tenantID int64, accountID, token string) (*models.AccountCredential, error)
}

type RegistryService struct {
	creds       repository.CredentialRepository
	client      graph.ClientInterface
	logger      providers.Logger
	canExchange bool
	now         func() time.Time
}

func NewRegistryService(conf *structures.Config, creds repository.CredentialRepository, client graph.ClientInterface, logger providers.Logger) RegistryServiceInterface {
	return &RegistryService{
		creds:       creds,
		client:      client,
		logger:      logger,
		canExchange: conf.Graph.AppID != "" && conf.Graph.AppSecret != "",
		now:         time.Now,
	}
}

func (s *RegistryService) ActiveCredential(ctx context.Context, tenantID int64) (*models.AccountCredential, error) {
	return s.creds.ActiveForTenant(ctx, tenantID, s.now())
}

// MaskToken keeps only the ends of an access token.
func MaskToken(token string) string {
	if len(token) <= maskKeepPrefix+maskKeepSuffix {
		return strings.Repeat("*", len(token))
	}
	return token[:maskKeepPrefix] + "..." + token[len(token)-maskKeepSuffix:]
}

func daysUntil(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

// Tokens lists the tenant's unexpired credentials with masked tokens.
func (s *RegistryService) Tokens(ctx context.Context, tenantID int64) ([]models.TokenView, error) {
	creds, err := s.creds.ListForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]models.TokenView, 0, len(creds))
	for _, c := range creds {
		if !c.ExpiresAt.After(now) {
			continue
		}
		views = append(views, models.TokenView{
			ID:                 c.ID,
			InstagramAccountID: c.InstagramAccountID,
			Username:           c.Username,
			AccessToken:        MaskToken(c.AccessToken),
			ExpiresAt:          c.ExpiresAt.UTC().Format(time.RFC3339),
			LastRefresh:        c.LastRefresh.UTC().Format(time.RFC3339),
			DaysUntilExpiry:    daysUntil(now, c.ExpiresAt),
		})
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("no active token for tenant %d: %w", tenantID, apperrors.ErrNotFound)
	}
	return views, nil
}

// RefreshExpiring exchanges every active token that expires within the
// window and returns how many were refreshed. Individual failures are
// logged and do not stop the batch.
func (s *RegistryService) RefreshExpiring(ctx context.Context, within time.Duration) (int, error) {
	if !s.canExchange {
		s.logger.Debugf(providers.TypeCollector, "token refresh skipped, app credentials not configured")
		return 0, nil
	}
	if within <= 0 {
		within = DefaultRefreshWithin
	}

	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	refreshed := 0
	var errs []error
	for _, c := range creds {
		if !c.ExpiresWithin(now, within) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}

		tok, err := s.client.ExchangeToken(ctx, c.AccessToken)
		if err != nil {
			s.logger.Warnf(providers.TypeCollector, "token refresh for account %s failed: %s", c.InstagramAccountID, err)
			errs = append(errs, err)
			continue
		}
		if err := s.creds.UpdateToken(ctx, c.ID, tok.AccessToken, now.Add(tok.ExpiresIn), now); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Infof(providers.TypeCollector, "token for account %s refreshed, valid until %s",
			c.InstagramAccountID, now.Add(tok.ExpiresIn).Format(time.RFC3339))
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// Register verifies the token against the account profile, exchanges it
// for a long-lived one when possible, and stores it as the tenant's
// active credential.
func (s *RegistryService) Register(ctx context.Context, tenantID int64, accountID, token string) (*models.AccountCredential, error) {
	accountID = strings.TrimSpace(accountID)
	token = strings.TrimSpace(token)
	if accountID == "" || token == "" {
		return nil, apperrors.NewValidationError("instagram account id and access token are required")
	}

	profile, err := s.client.Profile(ctx, accountID, token)
	if err != nil {
		return nil, fmt.Errorf("connection test for account %s failed: %w", accountID, err)
	}

	now := s.now()
	cred := &models.AccountCredential{
		TenantID:           tenantID,
		InstagramAccountID: accountID,
		Username:           profile.Username,
		AccessToken:        token,
		ExpiresAt:          now.Add(graph.DefaultTokenLifetime),
		LastRefresh:        now,
		Active:             true,
	}

	if s.canExchange {
		tok, err := s.client.ExchangeToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("long-lived token exchange failed: %w", err)
		}
		cred.AccessToken = tok.AccessToken
		cred.ExpiresAt = now.Add(tok.ExpiresIn)
	}

	if err := s.creds.Upsert(ctx, cred); err != nil {
		return nil, err
	}
	s.logger.Infof(providers.TypeApp, "registered account %s (@%s) for tenant %d", accountID, profile.Username, tenantID)
	return cred, nil
}
