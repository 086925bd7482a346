// Package catalog provides read access to merchant profiles and their product
// catalogs. Merchants are looked up by the Instagram page id carried on every
// webhook entry; the rest of the system never sees raw page ids beyond this
// boundary.
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Merchant is a business account connected to an Instagram page.
type Merchant struct {
	ID               uuid.UUID
	PageID           string
	BusinessName     string
	BusinessLocation string
	WorkingHours     string
	BusinessRule     string
	CustomPrompt     string
	NotifyEmail      string
	AIEnabled        bool
	VoiceEnabled     bool
	IsActive         bool
}

// Product is one sellable item in a merchant catalog.
type Product struct {
	ID          uuid.UUID
	MerchantID  uuid.UUID
	Name        string
	Description string
	Price       float64
	Currency    string
	Stock       int
	IsActive    bool
}

// Reader provides merchant and product lookups.
type Reader interface {
	MerchantByPageID(ctx context.Context, pageID string) (Merchant, error)
	MerchantByID(ctx context.Context, id uuid.UUID) (Merchant, error)
	ActiveProducts(ctx context.Context, merchantID uuid.UUID) ([]Product, error)
}

// PageResolver narrows Reader to the page-to-merchant-id lookup the
// conversation module needs.
type PageResolver struct {
	reader Reader
}

// NewPageResolver wraps a Reader.
func NewPageResolver(reader Reader) *PageResolver {
	return &PageResolver{reader: reader}
}

// MerchantID resolves the merchant owning the given page.
func (r *PageResolver) MerchantID(ctx context.Context, pageID string) (uuid.UUID, error) {
	merchant, err := r.reader.MerchantByPageID(ctx, pageID)
	if err != nil {
		return uuid.Nil, err
	}
	return merchant.ID, nil
}
