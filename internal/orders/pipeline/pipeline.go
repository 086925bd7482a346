package pipeline

import (
	"fmt"

	"igcommerce_backend/internal/classifier"
	"igcommerce_backend/platform/phone"
)

// Error severities. Critical blocks auto-creation outright; high marks a
// required field gap; invalid-looking phone formats are only warnings.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
)

// ValidationError is one blocking problem found in an extraction.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Result is the pipeline verdict for one extraction.
type Result struct {
	Products         []classifier.ExtractedProduct
	Errors           []ValidationError
	Warnings         []string
	Completeness     int
	Questions        []string
	ShouldAutoCreate bool
}

// IsValid reports whether the extraction has no blocking errors.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

// maxQuestions caps clarification questions per turn so the customer is not
// interrogated.
const maxQuestions = 3

// Auto-create gate thresholds.
const (
	autoCreateConfidence   = 0.7
	autoCreateCompleteness = 80
)

// Validate runs the full pipeline: catalog matching, field validation,
// completeness scoring, clarification generation, and the auto-create
// decision.
func Validate(ex classifier.Extraction, catalog []classifier.CatalogProduct) Result {
	res := Result{
		Products: matchCatalog(ex.Products, catalog),
	}

	hasProducts := len(res.Products) > 0
	name := confidentString(ex.Customer.Name)
	phoneNumber := ""
	if ex.Customer.Phone != nil {
		phoneNumber = ex.Customer.Phone.Value
	}
	address := confidentString(ex.Shipping.Address)
	if address == "" {
		address = confidentString(ex.Customer.Address)
	}

	if !hasProducts {
		res.Errors = append(res.Errors, ValidationError{
			Field: "products", Message: "no products identified in the message", Severity: SeverityCritical,
		})
	}
	if name == "" {
		res.Errors = append(res.Errors, ValidationError{
			Field: "customer.name", Message: "customer name is missing", Severity: SeverityHigh,
		})
	}
	if phoneNumber == "" {
		res.Errors = append(res.Errors, ValidationError{
			Field: "customer.phone", Message: "customer phone is missing", Severity: SeverityHigh,
		})
	} else if !phone.IsValid(phoneNumber) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("phone number %q does not look valid", phoneNumber))
	}
	if address == "" {
		res.Errors = append(res.Errors, ValidationError{
			Field: "shipping.address", Message: "delivery address is missing", Severity: SeverityHigh,
		})
	}

	present := 0
	for _, ok := range []bool{hasProducts, name != "", phoneNumber != "", address != ""} {
		if ok {
			present++
		}
	}
	res.Completeness = present * 25

	res.Questions = clarificationQuestions(res.Products, hasProducts, name, phoneNumber, address)

	res.ShouldAutoCreate = ex.Intent == classifier.ExtractionOrderPlacement &&
		ex.Confidence > autoCreateConfidence &&
		res.Completeness > autoCreateCompleteness &&
		!hasCritical(res.Errors) &&
		quantitiesKnown(res.Products)

	return res
}

// quantitiesKnown reports whether every product carries a stated quantity.
// An unstated quantity must be asked about, not ordered as one.
func quantitiesKnown(products []classifier.ExtractedProduct) bool {
	for _, p := range products {
		if p.Quantity <= 0 {
			return false
		}
	}
	return true
}

// Merge fills missing customer and shipping fields of the current extraction
// from an earlier incomplete one in the same conversation. Products are never
// merged: each message's product list stands alone.
func Merge(current classifier.Extraction, previous *classifier.Extraction) classifier.Extraction {
	if previous == nil {
		return current
	}

	if confidentString(current.Customer.Name) == "" && previous.Customer.Name != nil {
		current.Customer.Name = previous.Customer.Name
	}
	if (current.Customer.Phone == nil || current.Customer.Phone.Value == "") && previous.Customer.Phone != nil {
		current.Customer.Phone = previous.Customer.Phone
	}
	if confidentString(current.Customer.Address) == "" && previous.Customer.Address != nil {
		current.Customer.Address = previous.Customer.Address
	}
	if confidentString(current.Shipping.Address) == "" && previous.Shipping.Address != nil {
		current.Shipping.Address = previous.Shipping.Address
	}
	if confidentString(current.Shipping.DeliveryInstructions) == "" && previous.Shipping.DeliveryInstructions != nil {
		current.Shipping.DeliveryInstructions = previous.Shipping.DeliveryInstructions
	}
	if current.Shipping.Urgency == "" {
		current.Shipping.Urgency = previous.Shipping.Urgency
	}
	return current
}

// clarificationQuestions builds the per-turn question list in priority order:
// required field gaps first, then product-level ambiguities.
func clarificationQuestions(products []classifier.ExtractedProduct, hasProducts bool, name, phoneNumber, address string) []string {
	var questions []string
	add := func(q string) {
		if len(questions) < maxQuestions {
			questions = append(questions, q)
		}
	}

	if !hasProducts {
		add("What products would you like to order?")
	}
	if name == "" {
		add("Could you share your name for the order?")
	}
	if phoneNumber == "" {
		add("What phone number can we reach you on?")
	}
	if address == "" {
		add("What address should we deliver to?")
	}

	for _, p := range products {
		if len(p.CatalogMatches) > 0 && p.MatchedProductID == "" {
			add(fmt.Sprintf("Did you mean %q?", p.CatalogMatches[0].ProductName))
		}
		if p.Quantity <= 0 {
			add(fmt.Sprintf("How many of %q would you like?", p.Name))
		}
	}
	return questions
}

func hasCritical(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func confidentString(v *classifier.ConfidentValue) string {
	if v == nil {
		return ""
	}
	return v.Value
}
