// Package identity holds patient account records used as the last fallback
// for shipping details and as the target of outbound email.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a patient account.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`

	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Country      string `json:"country,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins the name parts, tolerating either being empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasAddress reports whether the account carries a usable shipping address.
func (u *User) HasAddress() bool {
	return u.AddressLine1 != "" && u.Postcode != ""
}
