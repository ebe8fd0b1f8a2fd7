package model

import (
	"fmt"
	"time"
)

// ItemStatus tracks where an item is in its custody lifecycle.
type ItemStatus string

const (
	// StatusInStorage means the item is held at the facility.
	StatusInStorage ItemStatus = "保管中"
	// StatusReturned means the item was returned to its owner.
	StatusReturned ItemStatus = "返還済"
	// StatusTransferred means the item was handed over to the police.
	StatusTransferred ItemStatus = "警察届出済"
)

// ParseStatus validates a custody status value coming in over the API or
// the command line.
func ParseStatus(s string) (ItemStatus, error) {
	switch status := ItemStatus(s); status {
	case StatusInStorage, StatusReturned, StatusTransferred:
		return status, nil
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

// Item is a registered found item as stored by the persistence collaborator.
type Item struct {
	FoundAt    time.Time
	AcceptedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// ID is globally unique and immutable once assigned
	// (format: yy-mm-dd-h-nn).
	ID         string
	FacilityID string
	FoundPlace string

	CategoryLarge  string
	CategoryMedium string
	Name           string
	Features       string
	Color          string

	// StorageLocation is assigned at registration and rewritten exactly
	// once by the relocation scheduler when the dwell period elapses.
	StorageLocation string
	Status          ItemStatus

	ClaimsOwnership bool
	ClaimsReward    bool
}

// Validate ensures the Item has the fields the engine guarantees.
func (i *Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item ID is required")
	}
	if i.FacilityID == "" {
		return fmt.Errorf("facility ID is required")
	}
	if i.AcceptedAt.IsZero() {
		return fmt.Errorf("accepted timestamp is required")
	}
	if i.StorageLocation == "" {
		return fmt.Errorf("storage location is required")
	}
	return nil
}
