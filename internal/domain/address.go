package domain

import (
	"context"

	"github.com/google/uuid"
)

// Address is one entry in a user's address book. Only active addresses are
// selectable at checkout; address CRUD itself is an external collaborator.
type Address struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AddressLine string
	City        string
	State       string
	Country     string
	Pincode     string
	Mobile      string
	Active      bool
}

// Snapshot freezes the address fields for an order record.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Country:     a.Country,
		Pincode:     a.Pincode,
		Mobile:      a.Mobile,
	}
}

// AddressService provides read-only address lookups for checkout.
type AddressService interface {
	// ListActiveAddresses returns the user's selectable delivery addresses.
	ListActiveAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error)
}
