package models

import "strings"

type SignupRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"fullname" validate:"required,max=128"`
	Terms           bool   `json:"terms"`
}

func (r *SignupRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type UserResponse struct {
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

// MessageResponse mirrors a flash message: text plus a category of
// success, info, warning or danger.
type MessageResponse struct {
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
	Category string   `json:"category"`
	Details  []string `json:"details,omitempty"`
}
