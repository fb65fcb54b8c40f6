package types

import (
	"time"

	"github.com/google/uuid"
)

// Address belongs to exactly one user; at most one address per user is the
// default (enforced by a partial unique index).
type Address struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	StreetAddress string    `json:"street_address"`
	Apartment     *string   `json:"apartment,omitempty"`
	City          string    `json:"city"`
	StateProvince *string   `json:"state_province,omitempty"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateAddressParams struct {
	StreetAddress string  `json:"street_address"`
	Apartment     *string `json:"apartment,omitempty"`
	City          string  `json:"city"`
	StateProvince *string `json:"state_province,omitempty"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	IsDefault     bool    `json:"is_default"`
}

type UpdateAddressParams struct {
	StreetAddress *string `json:"street_address,omitempty"`
	Apartment     *string `json:"apartment,omitempty"`
	City          *string `json:"city,omitempty"`
	StateProvince *string `json:"state_province,omitempty"`
	PostalCode    *string `json:"postal_code,omitempty"`
	Country       *string `json:"country,omitempty"`
	IsDefault     *bool   `json:"is_default,omitempty"`
}
