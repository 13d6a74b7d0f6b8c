package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionRole classifies an authenticated session.
type SessionRole string

const (
	RoleTeacher SessionRole = "TEACHER"
	RoleStudent SessionRole = "STUDENT"
)

// StudentLoginRequest carries a student's name and issued pin.
type StudentLoginRequest struct {
	Name string `json:"name" validate:"required"`
	Pin  string `json:"pin" validate:"required,len=6,numeric"`
}

// TeacherLoginRequest carries the shared management pin.
type TeacherLoginRequest struct {
	Pin string `json:"pin" validate:"required,len=6,numeric"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	Role        SessionRole `json:"role"`
	StudentName string      `json:"student_name,omitempty"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// JWTClaims represents the JWT payload for session tokens. StudentName is
// set only for student sessions and scopes every read to that student.
type JWTClaims struct {
	Role        SessionRole `json:"role"`
	StudentName string      `json:"student_name,omitempty"`
	jwt.RegisteredClaims
}
