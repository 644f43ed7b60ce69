// Package models defines staff identities and their credentialed sessions.
// Staff sessions are a separate trust domain from citizen sessions: different
// token, different cookie namespace, different lifetime.
package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
)

// Role scopes what an admin may do. view_only may read everything and write
// nothing.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOfficer    Role = "officer"
	RoleClerk      Role = "clerk"
	RoleViewOnly   Role = "view_only"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleOfficer, RoleClerk, RoleViewOnly:
		return Role(raw), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown admin role")
}

// CanWrite reports whether the role may mutate application state.
func (r Role) CanWrite() bool {
	return r != RoleViewOnly
}

// AdminUser is a staff account.
type AdminUser struct {
	ID           id.AdminID `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Active       bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewAdminUser(adminID id.AdminID, email, passwordHash string, role Role, now time.Time) (*AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin password hash is required")
	}
	return &AdminUser{
		ID:           adminID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

// AdminSession is one staff login. The token is the bearer credential;
// expiry is checked at every read, there is no background sweep.
type AdminSession struct {
	Token     string     `json:"-"`
	AdminID   id.AdminID `json:"admin_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// NewAdminSession mints a session with a random opaque token.
func NewAdminSession(adminID id.AdminID, ttl time.Duration, now time.Time) (*AdminSession, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	return &AdminSession{
		Token:     token,
		AdminID:   adminID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the session is past its lifetime at the given
// instant.
func (s *AdminSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
