package models

import "time"

// IdentityMode describes how a user identity was obtained
type IdentityMode string

const (
	ModeAnonymous IdentityMode = "anonymous"
	ModeToken     IdentityMode = "token"
	ModeLocal     IdentityMode = "local" // no identity provider, persistence off
)

// LocalUserID is the workspace key used when no identity provider is configured
const LocalUserID = "local"

// Identity is an opaque user identity handed out by the identity provider
type Identity struct {
	UserID    string       `json:"userId"`
	Mode      IdentityMode `json:"mode"`
	IssuedAt  time.Time    `json:"issuedAt"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// CanPersist reports whether answers of this identity may be saved remotely
func (i *Identity) CanPersist() bool {
	return i != nil && i.Mode != ModeLocal && i.UserID != ""
}

// MaskedUserID returns the first 6 characters of the user id for logging
func (i *Identity) MaskedUserID() string {
	if len(i.UserID) < 6 {
		return "***"
	}
	return i.UserID[:6] + "..."
}

// SignInRequest is the body of a sign-in call
type SignInRequest struct {
	Token string `json:"token,omitempty"`
}

// SignInResponse is returned after sign-in
type SignInResponse struct {
	UserID      string       `json:"userId"`
	AccessToken string       `json:"accessToken,omitempty"`
	Mode        IdentityMode `json:"mode"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
}
