package extraction

// BuildReceiptPrompt returns the instruction given to the generative
// extractor. The response contract is a single JSON object so the tolerant
// decoder can recover it even when the model wraps it in prose.
func BuildReceiptPrompt() string {
	return `You are a receipt data extraction engine. Extract the following fields from the receipt and respond with ONLY a JSON object, no prose and no markdown fences:

{
  "supplier_name": "<merchant or supplier name, or null>",
  "total_amount": "<grand total as printed, or null>",
  "currency": "<ISO 4217 currency code, or null>",
  "date": "<purchase date as printed, or null>",
  "confidence": {
    "supplier_name": <0.0-1.0>,
    "total_amount": <0.0-1.0>,
    "currency": <0.0-1.0>,
    "date": <0.0-1.0>
  }
}

Rules:
- total_amount is the final amount paid including tax and tip.
- Use null for any field not present on the receipt; never guess.
- confidence reflects how certain you are about each extracted field.`
}
