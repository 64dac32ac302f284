package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"recivo/internal/domain"
	"recivo/internal/port"
)

// MerchantResolution is the outcome of resolving a raw supplier string.
type MerchantResolution struct {
	Merchant   *domain.Merchant
	MatchedBy  domain.MerchantMatch
	Confidence float64
}

// MerchantResolver deduplicates raw supplier strings into per-user merchants.
type MerchantResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, rawSupplier string, amount, supplierConfidence float64) (*MerchantResolution, error)
}

type merchantResolver struct {
	merchantRepo port.MerchantRepository
}

// NewMerchantResolver creates a new MerchantResolver implementation.
func NewMerchantResolver(merchantRepo port.MerchantRepository) MerchantResolver {
	return &merchantResolver{merchantRepo: merchantRepo}
}

// Resolve matches rawSupplier against the user's merchant set: exact alias
// hits win at full confidence, containment against the canonical name or any
// stored alias counts as a fuzzy hit, and anything else becomes a new
// merchant carrying the extractor's confidence in the supplier field. The
// winning merchant's counters are updated in the same call.
func (r *merchantResolver) Resolve(ctx context.Context, userID uuid.UUID, rawSupplier string, amount, supplierConfidence float64) (*MerchantResolution, error) {
	raw := strings.TrimSpace(rawSupplier)
	if raw == "" {
		return nil, fmt.Errorf("empty supplier name")
	}

	merchants, err := r.merchantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}

	// Pass 1: exact alias match, case-insensitive.
	for i := range merchants {
		if merchants[i].Aliases.Contains(raw) {
			return r.record(ctx, &merchants[i], raw, amount, domain.MerchantMatchAlias, 1.0, false)
		}
	}

	canonical := CanonicalMerchantName(raw)

	// Pass 2: fuzzy match on containment, either direction, against the
	// canonical name and every stored alias.
	lc := strings.ToLower(canonical)
	if lc != "" {
		for i := range merchants {
			if fuzzyMatches(&merchants[i], lc) {
				return r.record(ctx, &merchants[i], raw, amount, domain.MerchantMatchFuzzy, 0.8, true)
			}
		}
	}

	// No match: create a fresh merchant seeded with the raw string as alias.
	merchant := &domain.Merchant{
		ID:            uuid.New(),
		UserID:        userID,
		CanonicalName: canonical,
		Aliases:       domain.StringList{raw},
		ReceiptCount:  1,
		TotalSpend:    amount,
	}
	if err := r.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, fmt.Errorf("creating merchant: %w", err)
	}
	log.Printf("merchantResolver.Resolve: new merchant %q (%s) for user %s", canonical, merchant.ID, userID)

	return &MerchantResolution{
		Merchant:   merchant,
		MatchedBy:  domain.MerchantMatchAI,
		Confidence: supplierConfidence,
	}, nil
}

// fuzzyMatches reports whether the lowercased canonical candidate contains,
// or is contained by, the merchant's canonical name or any of its aliases.
func fuzzyMatches(merchant *domain.Merchant, lc string) bool {
	names := make([]string, 0, len(merchant.Aliases)+1)
	names = append(names, merchant.CanonicalName)
	names = append(names, merchant.Aliases...)
	for _, name := range names {
		existing := strings.ToLower(name)
		if existing == "" {
			continue
		}
		if strings.Contains(existing, lc) || strings.Contains(lc, existing) {
			return true
		}
	}
	return false
}

// record updates the matched merchant's counters, growing its alias set when
// the raw string is a new spelling.
func (r *merchantResolver) record(ctx context.Context, merchant *domain.Merchant, raw string, amount float64, matchedBy domain.MerchantMatch, confidence float64, addAlias bool) (*MerchantResolution, error) {
	if addAlias && !merchant.Aliases.Contains(raw) {
		merchant.Aliases = append(merchant.Aliases, raw)
	}
	merchant.ReceiptCount++
	merchant.TotalSpend += amount

	if err := r.merchantRepo.Update(ctx, merchant); err != nil {
		return nil, fmt.Errorf("updating merchant: %w", err)
	}

	return &MerchantResolution{
		Merchant:   merchant,
		MatchedBy:  matchedBy,
		Confidence: confidence,
	}, nil
}

// CanonicalMerchantName derives the canonical display name from a raw
// supplier string: trailing store-number noise (runs of digits and '#') is
// stripped, whitespace collapsed, and the name truncated to three tokens.
func CanonicalMerchantName(raw string) string {
	s := strings.TrimSpace(raw)

	// Drop a trailing run of digits, '#' and separators ("#412", "Store 1234").
	end := len(s)
	for end > 0 {
		c := rune(s[end-1])
		if unicode.IsDigit(c) || c == '#' || c == ' ' || c == '-' {
			end--
			continue
		}
		break
	}
	if end > 0 {
		s = s[:end]
	}

	tokens := strings.Fields(s)
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}
