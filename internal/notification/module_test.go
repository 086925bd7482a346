package notification

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderEmailTemplates(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		payload     any
		wantSubject string
		wantInBody  string
	}{
		{
			name:        "handover requested",
			template:    TemplateHandoverRequested,
			payload:     handoverPayload{ConversationID: "m1_c1", Reason: "negative_sentiment", Priority: "high", TriggerMessage: "this is terrible"},
			wantSubject: "A customer is waiting for a human agent",
			wantInBody:  "negative_sentiment",
		},
		{
			name:        "handover accepted",
			template:    TemplateHandoverAccepted,
			payload:     handoverPayload{ConversationID: "m1_c1", AgentName: "Sara"},
			wantSubject: "Handover accepted",
			wantInBody:  "Sara",
		},
		{
			name:        "handover resolved",
			template:    TemplateHandoverResolved,
			payload:     handoverPayload{ConversationID: "m1_c1", Resolution: "refund issued"},
			wantSubject: "Conversation resolved",
			wantInBody:  "refund issued",
		},
		{
			name:        "order created",
			template:    TemplateOrderCreated,
			payload:     orderPayload{OrderNumber: "ORD-1-ABCD1234", Confidence: 0.85},
			wantSubject: "New order ORD-1-ABCD1234",
			wantInBody:  "85%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			subject, body, err := renderEmail(tt.template, raw)
			if err != nil {
				t.Fatal(err)
			}
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if !strings.Contains(body, tt.wantInBody) {
				t.Errorf("body %q should contain %q", body, tt.wantInBody)
			}
		})
	}
}

func TestRenderEmailRejectsUnknownTemplate(t *testing.T) {
	if _, _, err := renderEmail("bogus", json.RawMessage(`{}`)); err == nil {
		t.Fatal("unknown templates must error")
	}
}

func TestRenderEmailEscapesCustomerText(t *testing.T) {
	raw, _ := json.Marshal(handoverPayload{TriggerMessage: `<script>alert("x")</script>`})
	_, body, err := renderEmail(TemplateHandoverRequested, raw)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("customer text must be HTML-escaped")
	}
}
