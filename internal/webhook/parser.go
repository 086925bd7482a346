package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind tags an inbound messaging event. The tag is decided once at
// parse time so downstream code can switch exhaustively instead of probing
// optional payload fields.
type EventKind string

const (
	KindText        EventKind = "text"
	KindAudio       EventKind = "audio"
	KindUnsupported EventKind = "unsupported"
)

// InboundEvent is one parsed messaging event.
type InboundEvent struct {
	Kind      EventKind
	PageID    string
	SenderID  string
	MessageID string
	Timestamp time.Time
	Text      string // set for KindText
	AudioURL  string // set for KindAudio
	Echo      bool   // our own outbound message echoed back
}

type envelope struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *messagePayload `json:"message"`
}

type messagePayload struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

// Parse decodes a webhook delivery into inbound events. The object
// discriminator must match the configured provider object; entries without
// messaging events are skipped silently.
func Parse(rawBody []byte, providerObject string) ([]InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.Object != providerObject {
		return nil, fmt.Errorf("unexpected webhook object %q", env.Object)
	}

	var events []InboundEvent
	for _, e := range env.Entry {
		for _, m := range e.Messaging {
			if m.Message == nil {
				// Delivery receipts, read receipts, postbacks.
				continue
			}
			events = append(events, parseMessage(e.ID, m))
		}
	}
	return events, nil
}

func parseMessage(entryID string, m messagingEvent) InboundEvent {
	ev := InboundEvent{
		PageID:    m.Recipient.ID,
		SenderID:  m.Sender.ID,
		MessageID: m.Message.MID,
		Timestamp: time.UnixMilli(m.Timestamp),
		Echo:      m.Message.IsEcho,
	}
	if ev.PageID == "" {
		ev.PageID = entryID
	}

	if m.Message.IsEcho {
		ev.Kind = KindUnsupported
		return ev
	}

	// First audio attachment with a URL wins over text.
	for _, a := range m.Message.Attachments {
		if a.Type == "audio" && a.Payload.URL != "" {
			ev.Kind = KindAudio
			ev.AudioURL = a.Payload.URL
			return ev
		}
	}

	if m.Message.Text != "" {
		ev.Kind = KindText
		ev.Text = m.Message.Text
		return ev
	}

	// Stickers, images, and other content we cannot act on.
	ev.Kind = KindUnsupported
	return ev
}
