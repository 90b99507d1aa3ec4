package models

import (
	"github.com/golang-jwt/jwt/v5"
	"time"
)

type Tenant struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	CompanyName string `json:"company_name"`
	FantasyName string `json:"fantasy_name"`
	Plan        string `json:"plan"`
	Active      bool   `json:"-"`
}

type User struct {
	ID           int64      `json:"id"`
	TenantID     int64      `json:"-"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Active       bool       `json:"-"`
	LastLoginAt  *time.Time `json:"-"`
}

type UserWithTenant struct {
	User   User
	Tenant Tenant
}

type Claims struct {
	UserID     int64  `json:"user_id"`
	TenantID   int64  `json:"tenant_id"`
	TenantCode string `json:"tenant_code"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required|email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Company Tenant `json:"company"`
}

type ValidateResult struct {
	Valid      bool   `json:"valid"`
	UserID     int64  `json:"user_id"`
	TenantID   int64  `json:"tenant_id"`
	TenantCode string `json:"tenant_code"`
	Role       string `json:"role"`
}

type AuditEntry struct {
	UserID   int64
	TenantID int64
	Action   string
	Details  string
	At       time.Time
}
