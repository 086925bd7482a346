package classifier

import (
	"fmt"
	"strings"
)

func languageInstruction(language string) string {
	switch language {
	case LanguageArabic:
		return "The message is in Arabic. Consider cultural context and local expressions."
	case LanguageMixed:
		return "The message contains both Arabic and English. Analyze both parts appropriately."
	default:
		return "The message is in English."
	}
}

func sentimentPrompt(language string) string {
	return `You are an expert sentiment analyzer for customer service messages. ` + languageInstruction(language) + `

Analyze the sentiment of the customer message and respond with ONLY a JSON object in this exact format:

{
  "overall": "positive|neutral|negative",
  "confidence": 0.0-1.0,
  "emotions": {"joy": 0.0-1.0, "anger": 0.0-1.0, "sadness": 0.0-1.0, "fear": 0.0-1.0, "surprise": 0.0-1.0, "disgust": 0.0-1.0},
  "intensity": "low|medium|high",
  "requiresHumanHandover": true/false
}

Guidelines:
- overall: positive (happy, satisfied), neutral (factual, inquiry), negative (frustrated, angry, disappointed)
- confidence: how certain you are about the sentiment
- emotions: score each emotion based on presence in the message
- intensity: how strong the sentiment is
- requiresHumanHandover: true if sentiment is highly negative (anger above 0.8, multiple complaints, threats, extreme frustration)

Consider sarcasm, emojis, punctuation patterns, and urgency indicators.`
}

func intentPrompt(language string) string {
	return `You are an expert intent classifier for e-commerce customer service. ` + languageInstruction(language) + `

Classify the customer's intent and extract relevant entities. Respond with ONLY a JSON object in this exact format:

{
  "primary": "intent_type",
  "confidence": 0.0-1.0,
  "entities": [{"type": "entity_type", "value": "extracted_value", "confidence": 0.0-1.0}],
  "subIntents": ["additional_intent_types"]
}

Intent types: greeting, product_inquiry, price_inquiry, stock_check, order_placement, order_status, shipping_question, return_request, complaint, compliment, support_request, business_hours, contact_info, goodbye, other.
Entity types: product_name, quantity, color, size, price, phone, address, name.

Choose the most specific intent that fits. For order_placement, look for clear purchase intent with specific products or quantities.`
}

func extractionPrompt(req ExtractRequest) string {
	var catalog strings.Builder
	for _, p := range req.Catalog {
		currency := p.Currency
		if currency == "" {
			currency = "JOD"
		}
		fmt.Fprintf(&catalog, "- %s: %s (Price: %.2f %s)\n", p.Name, p.Description, p.Price, currency)
	}

	previous := ""
	if len(req.PreviousMessages) > 0 {
		recent := req.PreviousMessages
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		previous = "\n\nPrevious conversation context:\n" + strings.Join(recent, "\n")
	}

	location := req.BusinessLocation
	if location == "" {
		location = "Jordan"
	}

	return fmt.Sprintf(`You are an AI assistant specialized in extracting order information from customer messages for an e-commerce business.

BUSINESS: %s (Location: %s)

AVAILABLE PRODUCTS:
%s
CUSTOMER MESSAGE TO ANALYZE:
%q%s

TASK: Extract order information and return ONLY a JSON object:

{
  "intent": "order_placement" | "order_inquiry" | "order_modification",
  "confidence": 0.0-1.0,
  "products": [{"name": "...", "quantity": 1, "confidence": 0.0-1.0, "size": "", "color": "", "variant": "", "extractedFromText": "..."}],
  "customer": {
    "name": {"value": "...", "confidence": 0.0-1.0},
    "phone": {"value": "...", "confidence": 0.0-1.0, "isValid": true},
    "address": {"value": "...", "confidence": 0.0-1.0}
  },
  "shipping": {
    "address": {"value": "...", "confidence": 0.0-1.0},
    "deliveryInstructions": {"value": "...", "confidence": 0.0-1.0},
    "urgency": "standard" | "urgent" | "asap"
  },
  "missingFields": ["..."],
  "clarificationNeeded": true/false
}

RULES:
1. Only extract information explicitly mentioned in the message.
2. Phone numbers should be validated for Jordan format (+962 or local format).
3. Set confidence based on how explicitly the information is stated.
4. Look for quantity indicators: "two", "2", "pair", "dozen".
5. If the customer uses Arabic, extract Arabic names but also match English product names.
6. Required fields for a complete order: at least one product with quantity, customer name, phone, delivery address.`,
		req.BusinessName, location, catalog.String(), req.MessageText, previous)
}

func replyPrompt(req ReplyRequest) string {
	businessName := req.BusinessName
	if businessName == "" {
		businessName = "Our Store"
	}

	var catalog strings.Builder
	if len(req.Catalog) == 0 {
		catalog.WriteString("No products currently available in catalog.")
	}
	for i, p := range req.Catalog {
		fmt.Fprintf(&catalog, "%d. %s", i+1, p.Name)
		if p.Description != "" {
			fmt.Fprintf(&catalog, "\n   Description: %s", p.Description)
		}
		if p.Price > 0 {
			fmt.Fprintf(&catalog, "\n   Price: %.2f %s", p.Price, p.Currency)
		}
		catalog.WriteString("\n")
	}

	var langInstruction string
	switch req.Language {
	case LanguageArabic:
		langInstruction = "Respond in Arabic (Jordanian dialect preferred when appropriate). Be culturally sensitive and respectful."
	case LanguageMixed:
		langInstruction = "The customer is using both Arabic and English. Respond in the same language they used, or ask which language they prefer."
	default:
		langInstruction = "Respond in English. If the customer writes in Arabic, you may respond in Arabic."
	}

	var tone string
	switch req.Sentiment.Overall {
	case SentimentNegative:
		tone = "Customer appears frustrated or upset. Be extra patient, empathetic, and apologetic. Offer immediate assistance."
	case SentimentPositive:
		tone = "Match their positive energy and enthusiasm while staying professional."
	default:
		tone = "Maintain a professional, helpful tone."
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a helpful AI assistant for %s, an e-commerce business on Instagram. Assist customers with products, orders, and general support.

%s

BUSINESS INFORMATION:
- Business Name: %s
- Working Hours: %s
`, businessName, langInstruction, businessName, orDefault(req.WorkingHours, "Contact us for hours"))

	if req.BusinessRule != "" {
		fmt.Fprintf(&b, "- Business Rules: %s\n", req.BusinessRule)
	}

	fmt.Fprintf(&b, "\nPRODUCT CATALOG:\n%s\n", catalog.String())

	if req.CustomPrompt != "" {
		fmt.Fprintf(&b, "CUSTOM INSTRUCTIONS FROM MERCHANT:\n%s\n\n", req.CustomPrompt)
	}

	fmt.Fprintf(&b, `RESPONSE GUIDELINES:
1. Be helpful, friendly, and professional.
2. Answer product questions from the catalog only; if a product is not listed, say you don't have that information.
3. For order placement, collect: product name, quantity, size/color if applicable, customer name, phone, and address.
4. Keep responses concise but informative.

TONE: %s
Customer sentiment: %s (intent: %s)`, tone, req.Sentiment.Overall, req.Intent.Primary)

	return b.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
