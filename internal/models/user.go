package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a snippet owner. Users are created on first authenticated request
// and looked up afterwards by the identity provider's subject.
type User struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"-"`
	Issuer    string    `json:"-"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
