package model

import (
	"encoding/json"
	"strings"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/docstore"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AnonymousName is reported as the full name of users without first or last name.
const AnonymousName = "Anonymous User"

type User struct {
	docstore.Base
	Email           string `json:"email"`
	PasswordHash    string `json:"-"` // Not exposed
	Role            string `json:"role"`
	IsActive        bool   `json:"isActive"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
}

// FullName joins the user's names, falling back to AnonymousName.
func FullName(u *User) string {
	if u == nil {
		return AnonymousName
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return AnonymousName
	}
	return name
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// MarshalJSON adds the derived fullName to the wire form.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		FullName string `json:"fullName"`
	}{plain(u), FullName(&u)})
}
