package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a new account. Admin roles cannot self-register.
type RegisterRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8,max=72"`
	FullName     string   `json:"fullName" validate:"required,min=2,max=120"`
	Role         UserRole `json:"role" validate:"required,oneof=student mentor ambassador employer"`
	ReferralCode string   `json:"referralCode" validate:"omitempty,min=4,max=16"`
	IP           string   `json:"-"`
	UserAgent    string   `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"userId"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	jwt.RegisteredClaims
}

// Actor returns the caller identity carried by the token.
func (c *JWTClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role, Email: c.Email, FullName: c.FullName}
}
