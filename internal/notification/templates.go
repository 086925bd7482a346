package notification

import (
	"encoding/json"
	"fmt"
	"html"
)

// Outbox templates.
const (
	TemplateHandoverRequested = "handover_requested"
	TemplateHandoverAccepted  = "handover_accepted"
	TemplateHandoverResolved  = "handover_resolved"
	TemplateOrderCreated      = "order_created"
)

type handoverPayload struct {
	ConversationID string `json:"conversationId"`
	Reason         string `json:"reason,omitempty"`
	Priority       string `json:"priority,omitempty"`
	TriggerMessage string `json:"triggerMessage,omitempty"`
	AgentName      string `json:"agentName,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
}

type orderPayload struct {
	OrderNumber string  `json:"orderNumber"`
	CustomerID  string  `json:"customerId"`
	Confidence  float64 `json:"confidence"`
}

// renderEmail turns an outbox record into a subject and HTML body.
func renderEmail(template string, payload json.RawMessage) (subject, body string, err error) {
	switch template {
	case TemplateHandoverRequested:
		var p handoverPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", "", err
		}
		subject = "A customer is waiting for a human agent"
		body = fmt.Sprintf(
			"<p>A conversation was escalated to your team.</p><p><b>Reason:</b> %s<br><b>Priority:</b> %s</p><p><b>Last message:</b> %s</p>",
			html.EscapeString(p.Reason), html.EscapeString(p.Priority), html.EscapeString(p.TriggerMessage))
		return subject, body, nil

	case TemplateHandoverAccepted:
		var p handoverPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", "", err
		}
		subject = "Handover accepted"
		body = fmt.Sprintf("<p>%s took over conversation %s.</p>",
			html.EscapeString(p.AgentName), html.EscapeString(p.ConversationID))
		return subject, body, nil

	case TemplateHandoverResolved:
		var p handoverPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", "", err
		}
		subject = "Conversation resolved"
		body = fmt.Sprintf("<p>Conversation %s was resolved and returned to the assistant.</p><p>%s</p>",
			html.EscapeString(p.ConversationID), html.EscapeString(p.Resolution))
		return subject, body, nil

	case TemplateOrderCreated:
		var p orderPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", "", err
		}
		subject = fmt.Sprintf("New order %s", p.OrderNumber)
		body = fmt.Sprintf(
			"<p>The assistant created order <b>%s</b> from a customer conversation (extraction confidence %.0f%%).</p><p>Please review and confirm it.</p>",
			html.EscapeString(p.OrderNumber), p.Confidence*100)
		return subject, body, nil

	default:
		return "", "", fmt.Errorf("unknown notification template %q", template)
	}
}
