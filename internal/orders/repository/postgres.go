package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/platform/apperr"
)

const orderNotFoundMessage = "order not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateOrder inserts the order, its items, and the initial history row in a
// single transaction.
func (r *Repo) CreateOrder(ctx context.Context, order Order) (Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	query := `
		INSERT INTO orders
			(id, order_number, merchant_id, customer_id, page_id, conversation_id, status,
			 customer_name, customer_phone, shipping_address, delivery_instructions,
			 total_amount, currency, confidence, source_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		order.ID, order.OrderNumber, order.MerchantID, order.CustomerID, order.PageID,
		order.ConversationID, order.Status, order.CustomerName, order.CustomerPhone,
		order.ShippingAddress, order.DeliveryInstructions, order.TotalAmount,
		order.Currency, order.Confidence, order.SourceMessageID,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to insert order", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return Order{}, apperr.Wrap(apperr.KindInternal, "failed to insert order item", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, actor)
		VALUES ($1, $2, '', $3, $4)`,
		uuid.New(), order.ID, order.Status, "system")
	if err != nil {
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to insert status history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to commit order", err)
	}
	return order, nil
}

const selectOrder = `
	SELECT id, order_number, merchant_id, customer_id, page_id, conversation_id, status,
	       customer_name, customer_phone, shipping_address, delivery_instructions,
	       total_amount, currency, confidence, source_message_id, created_at, updated_at
	FROM orders`

func orderFields(o *Order) []any {
	return []any{
		&o.ID, &o.OrderNumber, &o.MerchantID, &o.CustomerID, &o.PageID, &o.ConversationID,
		&o.Status, &o.CustomerName, &o.CustomerPhone, &o.ShippingAddress,
		&o.DeliveryInstructions, &o.TotalAmount, &o.Currency, &o.Confidence,
		&o.SourceMessageID, &o.CreatedAt, &o.UpdatedAt,
	}
}

// GetOrder retrieves an order with its items, scoped to the merchant.
func (r *Repo) GetOrder(ctx context.Context, merchantID, id uuid.UUID) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1 AND merchant_id = $2`, id, merchantID).
		Scan(orderFields(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to get order", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return Order{}, apperr.Wrap(apperr.KindInternal, "failed to list order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return Order{}, apperr.Wrap(apperr.KindInternal, "failed to scan order item", err)
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// ListOrders lists a merchant's orders, newest first, without items.
func (r *Repo) ListOrders(ctx context.Context, merchantID uuid.UUID) ([]Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE merchant_id = $1 ORDER BY created_at DESC`, merchantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list orders", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(orderFields(&o)...); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan order", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus moves the order and appends the history row in a transaction.
// The WHERE status guard keeps concurrent updates from both succeeding.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to, actor string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`, id, to, from)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to update order status", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, actor)
		VALUES ($1, $2, $3, $4, $5)`, uuid.New(), id, from, to, actor)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to append status history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to commit status update", err)
	}
	return true, nil
}

// StatusHistory returns the order's status log, oldest first.
func (r *Repo) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list status history", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var sc StatusChange
		if err := rows.Scan(&sc.ID, &sc.OrderID, &sc.FromStatus, &sc.ToStatus, &sc.Actor, &sc.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan status change", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SaveExtraction stores the pipeline input as JSONB for cross-turn merging.
func (r *Repo) SaveExtraction(ctx context.Context, ex StoredExtraction) error {
	payload, err := json.Marshal(ex.Extraction)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode extraction", err)
	}

	id := ex.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO order_extractions (id, conversation_id, payload, complete)
		VALUES ($1, $2, $3, $4)`, id, ex.ConversationID, payload, ex.Complete)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store extraction", err)
	}
	return nil
}

// LatestIncomplete returns the most recent incomplete extraction, or nil.
func (r *Repo) LatestIncomplete(ctx context.Context, conversationID string) (*StoredExtraction, error) {
	var (
		out     StoredExtraction
		payload []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, conversation_id, payload, complete, created_at
		FROM order_extractions
		WHERE conversation_id = $1 AND complete = false
		ORDER BY created_at DESC
		LIMIT 1`, conversationID).
		Scan(&out.ID, &out.ConversationID, &payload, &out.Complete, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get latest extraction", err)
	}

	if err := json.Unmarshal(payload, &out.Extraction); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to decode extraction", err)
	}
	return &out, nil
}
