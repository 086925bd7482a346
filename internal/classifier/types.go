// Package classifier is the boundary to the natural-language oracle that turns
// free-form customer text into sentiment, intent, and order-extraction JSON.
// The oracle itself is an external service; everything here is prompt
// construction, defensive parsing, and fallback defaults.
package classifier

import "context"

// Sentiment overall labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Sentiment intensity labels.
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

// Intent taxonomy. The oracle is instructed to pick the most specific one.
const (
	IntentGreeting       = "greeting"
	IntentProductInquiry = "product_inquiry"
	IntentPriceInquiry   = "price_inquiry"
	IntentStockCheck     = "stock_check"
	IntentOrderPlacement = "order_placement"
	IntentOrderStatus    = "order_status"
	IntentShipping       = "shipping_question"
	IntentReturnRequest  = "return_request"
	IntentComplaint      = "complaint"
	IntentCompliment     = "compliment"
	IntentSupportRequest = "support_request"
	IntentBusinessHours  = "business_hours"
	IntentContactInfo    = "contact_info"
	IntentGoodbye        = "goodbye"
	IntentOther          = "other"
)

// Emotions holds per-emotion scores in [0,1].
type Emotions struct {
	Joy      float64 `json:"joy"`
	Anger    float64 `json:"anger"`
	Sadness  float64 `json:"sadness"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
	Disgust  float64 `json:"disgust"`
}

// Sentiment is the oracle's sentiment analysis of one message.
type Sentiment struct {
	Overall               string   `json:"overall"`
	Confidence            float64  `json:"confidence"`
	Emotions              Emotions `json:"emotions"`
	Intensity             string   `json:"intensity"`
	RequiresHumanHandover bool     `json:"requiresHumanHandover"`
}

// Entity is a typed value extracted during intent classification.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Intent is the oracle's intent classification of one message.
type Intent struct {
	Primary    string   `json:"primary"`
	Confidence float64  `json:"confidence"`
	Entities   []Entity `json:"entities"`
	SubIntents []string `json:"subIntents"`
}

// Extraction intents.
const (
	ExtractionOrderPlacement    = "order_placement"
	ExtractionOrderInquiry      = "order_inquiry"
	ExtractionOrderModification = "order_modification"
)

// CatalogMatch links an extracted product to a merchant catalog entry.
type CatalogMatch struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Similarity  float64 `json:"similarity"`
}

// ExtractedProduct is one product candidate found in the message.
type ExtractedProduct struct {
	Name              string         `json:"name"`
	Quantity          int            `json:"quantity"`
	Confidence        float64        `json:"confidence"`
	Size              string         `json:"size,omitempty"`
	Color             string         `json:"color,omitempty"`
	Variant           string         `json:"variant,omitempty"`
	ExtractedFromText string         `json:"extractedFromText,omitempty"`
	MatchedProductID  string         `json:"matchedProductId,omitempty"`
	CatalogMatches    []CatalogMatch `json:"catalogMatches,omitempty"`
}

// ConfidentValue is a string field with the oracle's per-field confidence.
type ConfidentValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// PhoneValue adds a validity flag to a confident value.
type PhoneValue struct {
	ConfidentValue
	IsValid bool `json:"isValid"`
}

// ExtractedCustomer holds customer contact fields from the message.
type ExtractedCustomer struct {
	Name    *ConfidentValue `json:"name,omitempty"`
	Phone   *PhoneValue     `json:"phone,omitempty"`
	Address *ConfidentValue `json:"address,omitempty"`
}

// ExtractedShipping holds shipping fields from the message.
type ExtractedShipping struct {
	Address              *ConfidentValue `json:"address,omitempty"`
	DeliveryInstructions *ConfidentValue `json:"deliveryInstructions,omitempty"`
	Urgency              string          `json:"urgency,omitempty"`
}

// Extraction is the oracle's structured order reading of one message. It is
// ephemeral; the validation pipeline turns it into a decision.
type Extraction struct {
	Intent              string             `json:"intent"`
	Confidence          float64            `json:"confidence"`
	Products            []ExtractedProduct `json:"products"`
	Customer            ExtractedCustomer  `json:"customer"`
	Shipping            ExtractedShipping  `json:"shipping"`
	MissingFields       []string           `json:"missingFields"`
	ClarificationNeeded bool               `json:"clarificationNeeded"`
}

// CatalogProduct is the slice of a merchant catalog entry the oracle sees.
type CatalogProduct struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Currency    string
}

// ExtractRequest carries everything the extraction prompt needs.
type ExtractRequest struct {
	MessageText      string
	BusinessName     string
	BusinessLocation string
	Catalog          []CatalogProduct
	PreviousMessages []string
}

// ReplyRequest carries the context for generating a customer-facing reply.
type ReplyRequest struct {
	MessageText  string
	Language     string
	BusinessName string
	WorkingHours string
	BusinessRule string
	CustomPrompt string
	Catalog      []CatalogProduct
	Sentiment    Sentiment
	Intent       Intent
}

// Reply is a generated customer-facing response.
type Reply struct {
	Text       string
	Confidence float64
	TokensUsed int
}

// Gateway is the classifier service boundary consumed by the message router
// and the order pipeline.
type Gateway interface {
	AnalyzeSentiment(ctx context.Context, text, language string) (Sentiment, error)
	ClassifyIntent(ctx context.Context, text, language string) (Intent, error)
	ExtractOrder(ctx context.Context, req ExtractRequest) (Extraction, error)
	GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error)
}

// DefaultSentiment is the neutral substitute used when the oracle is
// unavailable, so downstream logic keeps running.
func DefaultSentiment() Sentiment {
	return Sentiment{
		Overall:    SentimentNeutral,
		Confidence: 0.3,
		Intensity:  IntensityLow,
	}
}

// DefaultIntent is the fallback classification when the oracle is unavailable.
func DefaultIntent() Intent {
	return Intent{
		Primary:    IntentOther,
		Confidence: 0.3,
		Entities:   []Entity{},
		SubIntents: []string{},
	}
}

// ShouldRequestHandover decides whether a sentiment reading warrants
// escalating the conversation to a human.
func ShouldRequestHandover(s Sentiment) bool {
	if s.Emotions.Anger > 0.7 {
		return true
	}
	if s.Overall == SentimentNegative && s.Intensity == IntensityHigh {
		return true
	}
	if s.RequiresHumanHandover {
		return true
	}

	negative := []float64{s.Emotions.Anger, s.Emotions.Sadness, s.Emotions.Fear, s.Emotions.Disgust}
	count := 0
	for _, e := range negative {
		if e > 0.5 {
			count++
		}
	}
	return count >= 2
}
