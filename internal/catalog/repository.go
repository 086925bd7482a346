package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/platform/apperr"
)

const merchantNotFoundMessage = "merchant not found"

// Repo implements Reader with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Reader.
var _ Reader = (*Repo)(nil)

// MerchantByPageID retrieves the active merchant connected to a page.
func (r *Repo) MerchantByPageID(ctx context.Context, pageID string) (Merchant, error) {
	query := `
		SELECT id, page_id, business_name, business_location, working_hours,
		       business_rule, custom_prompt, notify_email, ai_enabled, voice_enabled, is_active
		FROM merchants
		WHERE page_id = $1 AND is_active = true`

	var m Merchant
	err := r.pool.QueryRow(ctx, query, pageID).Scan(
		&m.ID, &m.PageID, &m.BusinessName, &m.BusinessLocation, &m.WorkingHours,
		&m.BusinessRule, &m.CustomPrompt, &m.NotifyEmail, &m.AIEnabled, &m.VoiceEnabled, &m.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Merchant{}, apperr.NotFound(merchantNotFoundMessage)
		}
		return Merchant{}, apperr.Wrap(apperr.KindInternal, "failed to get merchant", err)
	}
	return m, nil
}

// MerchantByID retrieves a merchant by its ID.
func (r *Repo) MerchantByID(ctx context.Context, id uuid.UUID) (Merchant, error) {
	query := `
		SELECT id, page_id, business_name, business_location, working_hours,
		       business_rule, custom_prompt, notify_email, ai_enabled, voice_enabled, is_active
		FROM merchants
		WHERE id = $1`

	var m Merchant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.PageID, &m.BusinessName, &m.BusinessLocation, &m.WorkingHours,
		&m.BusinessRule, &m.CustomPrompt, &m.NotifyEmail, &m.AIEnabled, &m.VoiceEnabled, &m.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Merchant{}, apperr.NotFound(merchantNotFoundMessage)
		}
		return Merchant{}, apperr.Wrap(apperr.KindInternal, "failed to get merchant", err)
	}
	return m, nil
}

// ActiveProducts lists the active catalog of a merchant, newest first.
func (r *Repo) ActiveProducts(ctx context.Context, merchantID uuid.UUID) ([]Product, error) {
	query := `
		SELECT id, merchant_id, name, description, price, currency, stock, is_active
		FROM products
		WHERE merchant_id = $1 AND is_active = true
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list products", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.Stock, &p.IsActive); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan product", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
