package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"recivo/internal/domain"
)

// ParseAmount parses a monetary total by stripping every character except
// digits, '.' and '-'. The result must be a finite number greater than zero.
func ParseAmount(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// genericDateLayouts are tried before the explicit numeric patterns.
var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

var numericDateRe = regexp.MustCompile(`^(\d{1,4})[/-](\d{1,2})[/-](\d{1,4})$`)

// ParseReceiptDate parses a receipt date, first via generic layouts, then
// via the explicit numeric patterns MM/DD/YYYY, MM-DD-YYYY, YYYY/MM/DD and
// YYYY-MM-DD. The year-first interpretation is used only when the first
// numeric group exceeds 1000; otherwise US month-first ordering is assumed.
func ParseReceiptDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	m := numericDateRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	third, _ := strconv.Atoi(m[3])

	var year, month, day int
	if first > 1000 {
		year, month, day = first, second, third
	} else {
		month, day, year = first, second, third
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 || year > 9999 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers such as February 30.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// normalizeResult enforces the engine-independent field rules: totals must
// parse to a positive finite number, currency defaults to USD at 0.5 when a
// total exists without one, and unparseable dates are dropped, never
// defaulted. Confidences are clamped to [0,1].
func normalizeResult(res *domain.ExtractionResult, source domain.ExtractionSource) *domain.ExtractionResult {
	res.Source = source

	if res.TotalAmount != nil {
		raw := res.TotalAmount.RawText
		if raw == "" {
			raw = strconv.FormatFloat(res.TotalAmount.Value, 'f', -1, 64)
		}
		if v, ok := ParseAmount(raw); ok {
			res.TotalAmount.Value = v
			res.TotalAmount.Confidence = clamp01(res.TotalAmount.Confidence)
		} else {
			res.TotalAmount = nil
		}
	}

	if res.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(res.Currency.Value))
		if code == "" {
			res.Currency = nil
		} else {
			res.Currency.Value = code
			res.Currency.Confidence = clamp01(res.Currency.Confidence)
		}
	}
	if res.TotalAmount != nil && res.Currency == nil {
		res.Currency = &domain.ExtractedField[string]{Value: "USD", Confidence: 0.5}
	}

	if res.Date != nil {
		raw := res.Date.RawText
		if raw == "" {
			raw = res.Date.Value
		}
		if t, ok := ParseReceiptDate(raw); ok {
			res.Date.Value = t.Format("2006-01-02")
			res.Date.Confidence = clamp01(res.Date.Confidence)
		} else {
			res.Date = nil
		}
	}

	if res.SupplierName != nil {
		name := strings.TrimSpace(res.SupplierName.Value)
		if name == "" {
			res.SupplierName = nil
		} else {
			res.SupplierName.Value = name
			res.SupplierName.Confidence = clamp01(res.SupplierName.Confidence)
		}
	}

	res.OverallConfidence = clamp01(res.OverallConfidence)
	return res
}

// AverageConfidence computes the overall confidence as the mean of the
// present field confidences. Zero when no field was extracted.
func AverageConfidence(res *domain.ExtractionResult) float64 {
	var sum float64
	var n int
	if res.TotalAmount != nil {
		sum += res.TotalAmount.Confidence
		n++
	}
	if res.Currency != nil {
		sum += res.Currency.Confidence
		n++
	}
	if res.Date != nil {
		sum += res.Date.Confidence
		n++
	}
	if res.SupplierName != nil {
		sum += res.SupplierName.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
