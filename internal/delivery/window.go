package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowTracker records the last inbound message per (page, recipient) pair
// in redis so sends outside the platform's messaging window are refused
// locally instead of bouncing off the provider.
type WindowTracker struct {
	client *redis.Client
	window time.Duration
}

// NewWindowTracker creates a tracker. window is the messaging window
// duration, typically 24h.
func NewWindowTracker(client *redis.Client, window time.Duration) *WindowTracker {
	return &WindowTracker{client: client, window: window}
}

func windowKey(pageID, recipientID string) string {
	return fmt.Sprintf("msgwindow:%s:%s", pageID, recipientID)
}

// MarkInbound stamps the window open for the recipient. Called on every
// inbound message; the TTL restarts each time.
func (t *WindowTracker) MarkInbound(ctx context.Context, pageID, recipientID string) error {
	if t.client == nil {
		return nil
	}
	return t.client.Set(ctx, windowKey(pageID, recipientID), time.Now().Unix(), t.window).Err()
}

// IsOpen reports whether the recipient messaged us within the window.
// Redis errors count as open: refusing to reply because the tracker is
// down would be worse than an occasional provider rejection. A nil client
// (redis not configured) behaves the same way.
func (t *WindowTracker) IsOpen(ctx context.Context, pageID, recipientID string) bool {
	if t.client == nil {
		return true
	}
	n, err := t.client.Exists(ctx, windowKey(pageID, recipientID)).Result()
	if err != nil {
		return true
	}
	return n > 0
}
