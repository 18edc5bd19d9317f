package extract

import "fmt"

const systemPrompt = "You are a precise document extraction system. Return only valid JSON."

const schemaExample = `{
  "document_type": "invoice",
  "document_number": "INV-001",
  "dates": {
    "issue_date": "2024-01-15",
    "due_date": "2024-02-15"
  },
  "vendor": {
    "name": "Acme Corp",
    "email": "billing@acme.com",
    "phone": "+1-555-0100"
  },
  "customer": {
    "name": "Tech Solutions Inc"
  },
  "items": [
    {
      "description": "Consulting Services",
      "quantity": 10,
      "unit_price": "150.00",
      "amount": "1500.00"
    }
  ],
  "amounts": {
    "subtotal": "1500.00",
    "tax": "150.00",
    "total": "1650.00",
    "currency": "USD"
  }
}`

// buildPrompt assembles the extraction prompt for one document.
func buildPrompt(ocrText, typeHint string) string {
	hint := ""
	if typeHint != "" {
		hint = "\nDocument type hint: " + typeHint
	}

	return fmt.Sprintf(`You are an expert document parser specialized in extracting structured data from invoices, receipts, and financial documents.

TASK: Extract ALL relevant information from the OCR text below into a structured JSON format.

RULES:
1. Return ONLY valid JSON - no markdown, no explanations, no preamble
2. Use null for missing/unknown fields
3. Extract ALL dates in YYYY-MM-DD format
4. For amounts, preserve the original format (e.g., "1,500.00" or "1500.00")
5. Extract all line items with their details
6. Identify document type: invoice, receipt, quote, purchase_order, bill, lease, etc.
7. Extract both vendor (seller) and customer (buyer) information
8. Include payment information if present
9. Calculate or extract totals, subtotals, taxes
10. Be thorough - capture ALL information present%s

EXPECTED JSON SCHEMA:
%s

IMPORTANT:
- "document_type" is REQUIRED
- Extract ALL information visible in the document
- For dates, try to parse into YYYY-MM-DD format
- For items array, include every line item found
- Preserve numerical precision in amounts

OCR TEXT:
%s

Return the extracted data as JSON:`, hint, schemaExample, ocrText)
}

// correctivePrompt extends the base prompt with the validation failure from
// the previous attempt.
func correctivePrompt(base string, validationErr error) string {
	return fmt.Sprintf(`%s

YOUR PREVIOUS RESPONSE WAS INVALID: %v
Fix the problem and return ONLY the corrected JSON.`, base, validationErr)
}
