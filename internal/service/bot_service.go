package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/port"
)

// BotUpdate is one message relayed from the chat-bot gateway. Documents
// arrive inline as base64; the gateway has already fetched them from the
// bot platform.
type BotUpdate struct {
	ChatID      int64  `json:"chat_id" binding:"required"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
	Text        string `json:"text"`
}

// BotService ingests receipts relayed through the chat-bot channel.
type BotService interface {
	// ProcessUpdate creates a receipt from a bot message. A message with
	// neither document nor text is rejected.
	ProcessUpdate(ctx context.Context, update *BotUpdate) (*domain.Receipt, error)
}

type botService struct {
	userRepo       port.UserRepository
	receiptService ReceiptService
	inboundCfg     *config.InboundConfig
	planLimits     map[domain.UserPlan]int
}

// NewBotService creates a new BotService implementation.
func NewBotService(
	userRepo port.UserRepository,
	receiptService ReceiptService,
	inboundCfg *config.InboundConfig,
	plansCfg *config.PlansConfig,
) BotService {
	return &botService{
		userRepo:       userRepo,
		receiptService: receiptService,
		inboundCfg:     inboundCfg,
		planLimits: map[domain.UserPlan]int{
			domain.UserPlanFree: plansCfg.FreeMonthlyLimit,
			domain.UserPlanPro:  plansCfg.ProMonthlyLimit,
		},
	}
}

func (s *botService) ProcessUpdate(ctx context.Context, update *BotUpdate) (*domain.Receipt, error) {
	user, err := s.userRepo.GetByBotChatID(ctx, update.ChatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrBotNotLinked
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	doc, err := s.documentOf(update)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.CheckAndIncrementQuota(ctx, user.ID, s.planLimits); err != nil {
		return nil, err
	}
	return s.receiptService.CreateFromDocument(ctx, user, doc)
}

// documentOf builds the raw document from the update: an inline file when
// present, otherwise the message text.
func (s *botService) documentOf(update *BotUpdate) (domain.RawDocument, error) {
	if update.Data != "" {
		data, err := base64.StdEncoding.DecodeString(update.Data)
		if err != nil {
			return domain.RawDocument{}, fmt.Errorf("decoding file payload: %w", err)
		}
		if len(data) == 0 {
			return domain.RawDocument{}, domain.ErrEmptyFile
		}
		if int64(len(data)) > s.inboundCfg.MaxFileSizeBytes() {
			return domain.RawDocument{}, domain.ErrFileTooLarge
		}
		if _, ok := domain.AllowedContentTypes[update.ContentType]; !ok {
			return domain.RawDocument{}, domain.ErrUnsupportedFileType
		}
		fileName := update.FileName
		if fileName == "" {
			fileName = "receipt"
		}
		return domain.RawDocument{
			Bytes:         data,
			ContentType:   update.ContentType,
			FileName:      fileName,
			SizeBytes:     int64(len(data)),
			SourceChannel: domain.SourceChannelBot,
		}, nil
	}

	text := strings.TrimSpace(update.Text)
	if text == "" {
		return domain.RawDocument{}, domain.ErrEmptyFile
	}
	return domain.RawDocument{
		Bytes:         []byte(text),
		ContentType:   "text/plain",
		FileName:      "message.txt",
		SizeBytes:     int64(len(text)),
		SourceChannel: domain.SourceChannelBot,
	}, nil
}
