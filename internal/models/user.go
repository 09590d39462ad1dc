package models

import (
	"strings"
	"time"
)

type User struct {
	ID               string
	Username         string
	Email            string
	FullName         string
	PasswordHash     []byte
	AvatarURL        string
	CoverImageURL    *string
	RefreshTokenHash []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser is a registration candidate. Password is plaintext and only ever
// handed to the credential store, which hashes it before writing.
type NewUser struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL *string
}

type ProfileFields struct {
	FullName string
	Email    string
}

// NormalizeIdentity lowercases and trims a username or email.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UserView is the public projection of a User. It has no fields for the
// password hash or refresh token.
type UserView struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u User) View() UserView {
	view := UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Avatar:    u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CoverImageURL != nil {
		view.CoverImage = *u.CoverImageURL
	}
	return view
}
