package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the roles accepted by the gateway's RBAC checks.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleScheduler UserRole = "SCHEDULER"
	RoleViewer    UserRole = "VIEWER"
)

// JWTClaims represents the bearer token payload issued by the school portal.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
