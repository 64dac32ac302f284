package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/inbound"
	"recivo/internal/port"
)

// Skip reasons reported for inbound emails that created no receipts.
const (
	SkipMissingRecipients = "missing_recipients"
	SkipNoMatchingAlias   = "no_matching_alias"
	SkipUnknownAlias      = "unknown_alias"
	SkipQuotaExceeded     = "quota_exceeded"
	SkipUserInactive      = "user_inactive"
	SkipNoContent         = "no_content"
)

// InboundSkip records one recipient or user the webhook could not serve.
type InboundSkip struct {
	Recipient string `json:"recipient,omitempty"`
	Reason    string `json:"reason"`
}

// InboundResult is the webhook's processing summary.
type InboundResult struct {
	OK              bool          `json:"ok"`
	CreatedReceipts int           `json:"createdReceipts"`
	ProcessedUsers  []string      `json:"processedUsers"`
	SkippedUsers    []InboundSkip `json:"skippedUsers"`
}

// InboundService turns decoded inbound email payloads into receipts.
type InboundService interface {
	ProcessEmail(ctx context.Context, body []byte, contentType string) (*InboundResult, error)
}

type inboundService struct {
	userRepo       port.UserRepository
	receiptService ReceiptService
	inboundCfg     *config.InboundConfig
	planLimits     map[domain.UserPlan]int
}

// NewInboundService creates a new InboundService implementation.
func NewInboundService(
	userRepo port.UserRepository,
	receiptService ReceiptService,
	inboundCfg *config.InboundConfig,
	plansCfg *config.PlansConfig,
) InboundService {
	return &inboundService{
		userRepo:       userRepo,
		receiptService: receiptService,
		inboundCfg:     inboundCfg,
		planLimits: map[domain.UserPlan]int{
			domain.UserPlanFree: plansCfg.FreeMonthlyLimit,
			domain.UserPlanPro:  plansCfg.ProMonthlyLimit,
		},
	}
}

// ProcessEmail decodes the raw webhook payload, resolves recipients to users
// through their forwarding aliases and creates one receipt per usable
// attachment. An email with no usable attachment still yields one text-only
// receipt from its readable body. Only storage-level failures return an
// error; everything else is reported through the result.
func (s *inboundService) ProcessEmail(ctx context.Context, body []byte, contentType string) (*InboundResult, error) {
	env := inbound.Decode(body, contentType)
	result := &InboundResult{
		ProcessedUsers: []string{},
		SkippedUsers:   []InboundSkip{},
	}

	recipients := recipientAddresses(env.Fields)
	if len(recipients) == 0 {
		result.SkippedUsers = append(result.SkippedUsers, InboundSkip{Reason: SkipMissingRecipients})
		return result, nil
	}

	matched := false
	for _, rcpt := range recipients {
		alias, ok := s.aliasOf(rcpt)
		if !ok {
			continue
		}
		matched = true

		user, err := s.userRepo.GetByForwardingAlias(ctx, alias)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.SkippedUsers = append(result.SkippedUsers, InboundSkip{Recipient: rcpt, Reason: SkipUnknownAlias})
				continue
			}
			return nil, fmt.Errorf("resolving alias %q: %w", alias, err)
		}
		if !user.IsActive {
			result.SkippedUsers = append(result.SkippedUsers, InboundSkip{Recipient: rcpt, Reason: SkipUserInactive})
			continue
		}

		created, skipReason, err := s.ingestForUser(ctx, user, env, body)
		if err != nil {
			return nil, err
		}
		if created > 0 {
			result.CreatedReceipts += created
			result.ProcessedUsers = append(result.ProcessedUsers, user.ID.String())
		} else {
			result.SkippedUsers = append(result.SkippedUsers, InboundSkip{Recipient: rcpt, Reason: skipReason})
		}
	}

	if !matched {
		result.SkippedUsers = append(result.SkippedUsers, InboundSkip{Reason: SkipNoMatchingAlias})
	}

	result.OK = result.CreatedReceipts > 0
	return result, nil
}

// ingestForUser creates receipts for one matched user. When nothing was
// created, the returned reason says why.
func (s *inboundService) ingestForUser(ctx context.Context, user *domain.User, env *domain.InboundEnvelope, raw []byte) (int, string, error) {
	docs := s.usableAttachments(env)

	if len(docs) == 0 {
		text := inbound.ReadableText(env, raw)
		if strings.TrimSpace(text) == "" {
			return 0, SkipNoContent, nil
		}
		docs = []domain.RawDocument{{
			Bytes:         []byte(text),
			ContentType:   "text/plain",
			FileName:      "email.txt",
			SizeBytes:     int64(len(text)),
			SourceChannel: domain.SourceChannelEmail,
		}}
	}

	created := 0
	for _, doc := range docs {
		if err := s.userRepo.CheckAndIncrementQuota(ctx, user.ID, s.planLimits); err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				log.Printf("inboundService.ingestForUser: quota exhausted for user %s after %d receipts", user.ID, created)
				break
			}
			return created, "", fmt.Errorf("charging quota: %w", err)
		}
		if _, err := s.receiptService.CreateFromDocument(ctx, user, doc); err != nil {
			return created, "", fmt.Errorf("creating receipt for user %s: %w", user.ID, err)
		}
		created++
	}
	return created, SkipQuotaExceeded, nil
}

// usableAttachments filters the envelope's attachments down to supported,
// non-empty documents under the size ceiling, capped at the per-email limit.
func (s *inboundService) usableAttachments(env *domain.InboundEnvelope) []domain.RawDocument {
	maxBytes := s.inboundCfg.MaxFileSizeBytes()
	var docs []domain.RawDocument
	for _, att := range env.Attachments {
		if len(docs) >= s.inboundCfg.MaxAttachments {
			break
		}
		if len(att.Bytes) == 0 || int64(len(att.Bytes)) > maxBytes {
			continue
		}
		contentType := att.ContentType
		if _, ok := domain.AllowedContentTypes[contentType]; !ok {
			// Fall back to the filename extension when the declared type
			// is missing or generic.
			ext := strings.ToLower(strings.TrimPrefix(fileExt(att.FileName), "."))
			fileType, ok := domain.AllowedExtensions[ext]
			if !ok {
				continue
			}
			contentType = domain.AllowedFileTypes[fileType]
		}
		docs = append(docs, domain.RawDocument{
			Bytes:         att.Bytes,
			ContentType:   contentType,
			FileName:      att.FileName,
			SizeBytes:     int64(len(att.Bytes)),
			SourceChannel: domain.SourceChannelEmail,
		})
	}
	return docs
}

// aliasOf extracts the forwarding alias from a recipient address when its
// domain matches the configured inbound domain.
func (s *inboundService) aliasOf(addr string) (string, bool) {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "", false
	}
	local, dom := addr[:at], addr[at+1:]
	if !strings.EqualFold(dom, s.inboundCfg.EmailDomain) {
		return "", false
	}
	return strings.ToLower(local), true
}

// recipientAddresses collects candidate addresses from the envelope's
// recipient-bearing fields, tolerating "Name <addr>" forms and comma lists.
func recipientAddresses(fields map[string]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, key := range []string{"to", "cc", "recipient", "envelope_to"} {
		raw, ok := fields[key]
		if !ok || raw == "" {
			continue
		}
		for _, part := range strings.Split(raw, ",") {
			addr := extractAddress(part)
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// extractAddress pulls the bare address out of one recipient token.
func extractAddress(token string) string {
	token = strings.TrimSpace(token)
	if open := strings.LastIndex(token, "<"); open >= 0 {
		if close := strings.Index(token[open:], ">"); close > 0 {
			token = token[open+1 : open+close]
		} else {
			token = token[open+1:]
		}
	}
	token = strings.Trim(token, " \t\"'")
	if !strings.Contains(token, "@") {
		return ""
	}
	return strings.ToLower(token)
}

// fileExt is filepath.Ext without the path dependency quirks for names that
// may contain backslashes from foreign systems.
func fileExt(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			return name[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}
