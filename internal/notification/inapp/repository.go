// Package inapp persists merchant-facing in-app notifications.
package inapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/platform/apperr"
)

// Notification is one row in the merchant's notification feed.
type Notification struct {
	ID           uuid.UUID  `json:"id"`
	MerchantID   uuid.UUID  `json:"merchantId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     string     `json:"category"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	IsRead       bool       `json:"isRead"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CreateParams describes a new notification.
type CreateParams struct {
	MerchantID   uuid.UUID
	Title        string
	Content      string
	Category     string // "info", "warning", "urgent"
	ResourceID   *uuid.UUID
	ResourceType *string
}

// Repository persists in-app notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an in-app notification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts one notification row.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.MerchantID == uuid.Nil {
		return Notification{}, apperr.Validation("merchantId is required")
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required")
	}

	category := p.Category
	if category == "" {
		category = "info"
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (merchant_id, title, content, category, resource_id, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, merchant_id, title, content, category, resource_id, resource_type, is_read, created_at`,
		p.MerchantID, p.Title, p.Content, category, p.ResourceID, p.ResourceType,
	).Scan(&n.ID, &n.MerchantID, &n.Title, &n.Content, &n.Category, &n.ResourceID, &n.ResourceType, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return Notification{}, apperr.Wrap(apperr.KindInternal, "failed to create notification", err)
	}
	return n, nil
}

// List returns the merchant's most recent notifications.
func (r *Repository) List(ctx context.Context, merchantID uuid.UUID, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, merchant_id, title, content, category, resource_id, resource_type, is_read, created_at
		FROM notifications
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		merchantID, limit,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list notifications", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.MerchantID, &n.Title, &n.Content, &n.Category, &n.ResourceID, &n.ResourceType, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification as read.
func (r *Repository) MarkRead(ctx context.Context, merchantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND merchant_id = $2`,
		id, merchantID,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}
