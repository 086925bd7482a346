package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first top-level JSON object out of oracle output.
// Models sometimes wrap the payload in markdown fences or prose; everything
// before the first '{' and after its matching '}' is discarded.
func extractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseSentiment(raw string) (Sentiment, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Sentiment{}, err
	}

	var s Sentiment
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return Sentiment{}, fmt.Errorf("decode sentiment: %w", err)
	}

	switch s.Overall {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		s.Overall = SentimentNeutral
	}
	switch s.Intensity {
	case IntensityLow, IntensityMedium, IntensityHigh:
	default:
		s.Intensity = IntensityLow
	}
	s.Confidence = clamp01(s.Confidence)
	s.Emotions.Joy = clamp01(s.Emotions.Joy)
	s.Emotions.Anger = clamp01(s.Emotions.Anger)
	s.Emotions.Sadness = clamp01(s.Emotions.Sadness)
	s.Emotions.Fear = clamp01(s.Emotions.Fear)
	s.Emotions.Surprise = clamp01(s.Emotions.Surprise)
	s.Emotions.Disgust = clamp01(s.Emotions.Disgust)
	return s, nil
}

var knownIntents = map[string]bool{
	IntentGreeting:       true,
	IntentProductInquiry: true,
	IntentPriceInquiry:   true,
	IntentStockCheck:     true,
	IntentOrderPlacement: true,
	IntentOrderStatus:    true,
	IntentShipping:       true,
	IntentReturnRequest:  true,
	IntentComplaint:      true,
	IntentCompliment:     true,
	IntentSupportRequest: true,
	IntentBusinessHours:  true,
	IntentContactInfo:    true,
	IntentGoodbye:        true,
	IntentOther:          true,
}

func parseIntent(raw string) (Intent, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Intent{}, err
	}

	var in Intent
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}

	if !knownIntents[in.Primary] {
		in.Primary = IntentOther
	}
	in.Confidence = clamp01(in.Confidence)
	if in.Entities == nil {
		in.Entities = []Entity{}
	}
	if in.SubIntents == nil {
		in.SubIntents = []string{}
	}
	for i := range in.Entities {
		in.Entities[i].Confidence = clamp01(in.Entities[i].Confidence)
	}
	return in, nil
}

func parseExtraction(raw string) (Extraction, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Extraction{}, err
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(payload), &ex); err != nil {
		return Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}

	switch ex.Intent {
	case ExtractionOrderPlacement, ExtractionOrderInquiry, ExtractionOrderModification:
	default:
		ex.Intent = ExtractionOrderInquiry
	}
	ex.Confidence = clamp01(ex.Confidence)
	if ex.Products == nil {
		ex.Products = []ExtractedProduct{}
	}
	for i := range ex.Products {
		// Zero stays zero: an absent quantity becomes a clarification
		// question downstream, never a silent assumption of one.
		if ex.Products[i].Quantity < 0 {
			ex.Products[i].Quantity = 0
		}
		ex.Products[i].Confidence = clamp01(ex.Products[i].Confidence)
	}
	if ex.MissingFields == nil {
		ex.MissingFields = []string{}
	}
	return ex, nil
}
