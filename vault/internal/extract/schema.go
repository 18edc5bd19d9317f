// Package extract turns OCR text into structured document data through an
// LLM call with schema validation and bounded retries.
package extract

import (
	"fmt"
	"strings"
)

// validTypes is the document-type whitelist. Anything else normalises to
// "unknown".
var validTypes = map[string]bool{
	"invoice":        true,
	"receipt":        true,
	"quote":          true,
	"estimate":       true,
	"purchase_order": true,
	"delivery_note":  true,
	"credit_note":    true,
	"statement":      true,
	"contract":       true,
	"lease":          true,
	"bill":           true,
	"unknown":        true,
}

// Address is a postal address as it appears on the document.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Party is a vendor or customer.
type Party struct {
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
	TaxID   string   `json:"tax_id,omitempty"`
}

// LineItem is one row of an invoice or receipt. Monetary values stay as
// strings to preserve the document's original formatting.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   string   `json:"unit_price,omitempty"`
	Amount      string   `json:"amount,omitempty"`
	Tax         string   `json:"tax,omitempty"`
	Discount    string   `json:"discount,omitempty"`
}

// Amounts holds the document's financial totals.
type Amounts struct {
	Subtotal string `json:"subtotal,omitempty"`
	Tax      string `json:"tax,omitempty"`
	Discount string `json:"discount,omitempty"`
	Shipping string `json:"shipping,omitempty"`
	Total    string `json:"total,omitempty"`
	Currency string `json:"currency,omitempty"`
	Paid     string `json:"paid,omitempty"`
	Due      string `json:"due,omitempty"`
}

// Dates holds the document's dates in YYYY-MM-DD format.
type Dates struct {
	IssueDate    string `json:"issue_date,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	DeliveryDate string `json:"delivery_date,omitempty"`
	PaymentDate  string `json:"payment_date,omitempty"`
}

// PaymentInfo holds how the document was or will be paid.
type PaymentInfo struct {
	Method        string `json:"method,omitempty"`
	CardLastFour  string `json:"card_last_four,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	BankAccount   string `json:"bank_account,omitempty"`
}

// ExtractedDocument is the full structured result. Every field except
// DocumentType is optional.
type ExtractedDocument struct {
	DocumentType    string       `json:"document_type"`
	DocumentNumber  string       `json:"document_number,omitempty"`
	ReferenceNumber string       `json:"reference_number,omitempty"`
	PONumber        string       `json:"po_number,omitempty"`
	Dates           Dates        `json:"dates"`
	Vendor          *Party       `json:"vendor,omitempty"`
	Customer        *Party       `json:"customer,omitempty"`
	Items           []LineItem   `json:"items"`
	Amounts         Amounts      `json:"amounts"`
	Payment         *PaymentInfo `json:"payment,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Terms           string       `json:"terms,omitempty"`
	ConfidenceScore *float64     `json:"confidence_score,omitempty"`
}

// Normalize fills defaults and coerces the document type onto the whitelist.
func (d *ExtractedDocument) Normalize() {
	d.DocumentType = strings.ToLower(strings.TrimSpace(d.DocumentType))
	if !validTypes[d.DocumentType] {
		d.DocumentType = "unknown"
	}
	if d.Amounts.Currency == "" {
		d.Amounts.Currency = "USD"
	}
	if d.Items == nil {
		d.Items = []LineItem{}
	}
}

// Validate reports structural problems an LLM response may carry. The error
// text is embedded in the corrective retry prompt, so it names the offending
// field plainly.
func (d *ExtractedDocument) Validate() error {
	if d.DocumentType == "" {
		return fmt.Errorf("document_type is required")
	}
	if !validTypes[d.DocumentType] {
		return fmt.Errorf("document_type %q is not one of the known types", d.DocumentType)
	}
	for i, item := range d.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("items[%d].description is empty", i)
		}
	}
	if d.ConfidenceScore != nil && (*d.ConfidenceScore < 0 || *d.ConfidenceScore > 1) {
		return fmt.Errorf("confidence_score %v outside [0,1]", *d.ConfidenceScore)
	}
	return nil
}
