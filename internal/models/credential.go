package models

import "time"

type AccountCredential struct {
	ID                 int64     `json:"id"`
	TenantID           int64     `json:"tenant_id"`
	InstagramAccountID string    `json:"instagram_account_id"`
	Username           string    `json:"instagram_username"`
	AccessToken        string    `json:"-"`
	ExpiresAt          time.Time `json:"expires_at"`
	LastRefresh        time.Time `json:"last_refresh"`
	Active             bool      `json:"active"`
}

func (c *AccountCredential) ExpiresWithin(now time.Time, d time.Duration) bool {
	return c.ExpiresAt.Sub(now) <= d
}

// TokenView is the masked representation returned over HTTP.
type TokenView struct {
	ID                 int64  `json:"id"`
	InstagramAccountID string `json:"instagram_account_id"`
	Username           string `json:"instagram_username"`
	AccessToken        string `json:"access_token"`
	ExpiresAt          string `json:"expires_at"`
	LastRefresh        string `json:"last_refresh"`
	DaysUntilExpiry    int    `json:"days_until_expiry"`
}

type ExchangedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}
