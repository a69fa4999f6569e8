package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TeacherSubject is the JWT subject of the single teacher account.
const TeacherSubject = "teacher"

// LoginRequest carries the teacher PIN.
type LoginRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
}
