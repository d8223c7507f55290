package users

import "time"

// User is a registered or OAuth-provisioned account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName,omitempty"`
	GivenName    string    `json:"givenName,omitempty"`
	FamilyName   string    `json:"familyName,omitempty"`
	PictureURL   string    `json:"pictureUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginInput accepts an email or a phone number as the identifier.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AdminLoginInput is checked against the configured admin credentials.
type AdminLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
