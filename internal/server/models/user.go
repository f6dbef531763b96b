// Package models defines server-side data models persisted in the database
// and the projections handed to callers.
package models

import "time"

// User is the stored account record. PasswordHash and RefreshToken never
// leave the server; use Public for anything returned to a client.
type User struct {
	ID            string
	UserName      string
	Email         string
	FullName      string
	PasswordHash  string `json:"-"`
	AvatarURL     string
	CoverImageURL string

	// RefreshToken is the single currently valid refresh credential, nil when
	// the user is logged out.
	RefreshToken *string `json:"-"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is a sanitised User: credential fields removed.
type PublicUser struct {
	ID            string    `json:"id"`
	UserName      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		UserName:      u.UserName,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
