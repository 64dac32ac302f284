package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"recivo/internal/classify"
	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/extraction"
	"recivo/internal/port"
)

// finalConfidenceThreshold is the overall confidence at or above which a
// processed receipt settles as final instead of needs_review.
const finalConfidenceThreshold = 0.8

// processTimeout bounds one background processing run.
const processTimeout = 5 * time.Minute

// ReceiptUploadInput is the DTO for direct file upload requests.
type ReceiptUploadInput struct {
	UserID uuid.UUID
	File   multipart.File
	Header *multipart.FileHeader
}

// ReceiptService defines the receipt ingestion and query contract.
type ReceiptService interface {
	// CreateFromUpload validates and stores a directly uploaded file, creates
	// the receipt in uploaded status and kicks off background processing.
	CreateFromUpload(ctx context.Context, input ReceiptUploadInput) (*domain.Receipt, error)
	// CreateFromDocument is the channel-agnostic entry used by the email and
	// bot channels. Quota must already have been charged by the caller.
	CreateFromDocument(ctx context.Context, user *domain.User, doc domain.RawDocument) (*domain.Receipt, error)
	GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*domain.Receipt, error)
	List(ctx context.Context, userID uuid.UUID, status domain.ReceiptStatus, offset, limit int) ([]domain.Receipt, int, error)
	GetDownloadURL(ctx context.Context, userID, receiptID uuid.UUID) (string, error)
}

type receiptService struct {
	receiptRepo port.ReceiptRepository
	userRepo    port.UserRepository
	storage     port.ObjectStorage
	extractor   port.Extractor
	resolver    MerchantResolver
	classifier  *classify.Classifier
	emailSender port.EmailSender
	s3Cfg       *config.S3Config
	inboundCfg  *config.InboundConfig
	planLimits  map[domain.UserPlan]int
}

// NewReceiptService creates a new ReceiptService implementation.
func NewReceiptService(
	receiptRepo port.ReceiptRepository,
	userRepo port.UserRepository,
	storage port.ObjectStorage,
	extractor port.Extractor,
	resolver MerchantResolver,
	classifier *classify.Classifier,
	emailSender port.EmailSender,
	s3Cfg *config.S3Config,
	inboundCfg *config.InboundConfig,
	plansCfg *config.PlansConfig,
) ReceiptService {
	return &receiptService{
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		storage:     storage,
		extractor:   extractor,
		resolver:    resolver,
		classifier:  classifier,
		emailSender: emailSender,
		s3Cfg:       s3Cfg,
		inboundCfg:  inboundCfg,
		planLimits: map[domain.UserPlan]int{
			domain.UserPlanFree: plansCfg.FreeMonthlyLimit,
			domain.UserPlanPro:  plansCfg.ProMonthlyLimit,
		},
	}
}

func (s *receiptService) CreateFromUpload(ctx context.Context, input ReceiptUploadInput) (*domain.Receipt, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	if input.Header.Size > s.inboundCfg.MaxFileSizeBytes() {
		return nil, domain.ErrFileTooLarge
	}
	if input.Header.Size == 0 {
		return nil, domain.ErrEmptyFile
	}

	data, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	if err := s.userRepo.CheckAndIncrementQuota(ctx, user.ID, s.planLimits); err != nil {
		return nil, err
	}

	doc := domain.RawDocument{
		Bytes:         data,
		ContentType:   domain.AllowedFileTypes[fileType],
		FileName:      input.Header.Filename,
		SizeBytes:     int64(len(data)),
		SourceChannel: domain.SourceChannelUpload,
	}
	return s.CreateFromDocument(ctx, user, doc)
}

func (s *receiptService) CreateFromDocument(ctx context.Context, user *domain.User, doc domain.RawDocument) (*domain.Receipt, error) {
	if doc.SizeBytes == 0 {
		doc.SizeBytes = int64(len(doc.Bytes))
	}

	key := s.objectKey(user.ID, doc.FileName)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(doc.Bytes),
		ContentType: doc.ContentType,
		FileName:    doc.FileName,
		Size:        doc.SizeBytes,
	})
	if err != nil {
		log.Printf("receiptService.CreateFromDocument: S3 upload failed for %q: %v", doc.FileName, err)
		return nil, domain.ErrUploadFailed
	}

	receipt := &domain.Receipt{
		ID:            uuid.New(),
		UserID:        user.ID,
		Status:        domain.ReceiptStatusUploaded,
		SourceChannel: doc.SourceChannel,
		FileName:      doc.FileName,
		ContentType:   doc.ContentType,
		FileSize:      doc.SizeBytes,
		S3Bucket:      s.s3Cfg.Bucket,
		S3Key:         key,
	}
	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("creating receipt: %w", err)
	}

	log.Printf("receiptService.CreateFromDocument: receipt %s (%s, %d bytes) for user %s via %s",
		receipt.ID, doc.ContentType, doc.SizeBytes, user.ID, doc.SourceChannel)

	go s.process(receipt.ID, user, doc)

	return receipt, nil
}

// process runs the extraction pipeline for one receipt in the background.
// Every failure path lands the receipt in needs_review; a receipt is never
// left stuck in processing.
func (s *receiptService) process(receiptID uuid.UUID, user *domain.User, doc domain.RawDocument) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("receiptService.process: panic for receipt %s: %v", receiptID, r)
			s.settleFailed(ctx, user.ID, receiptID, fmt.Sprintf("processing panic: %v", r))
		}
	}()

	if err := s.receiptRepo.UpdateStatus(ctx, user.ID, receiptID, domain.ReceiptStatusProcessing); err != nil {
		log.Printf("receiptService.process: marking receipt %s processing: %v", receiptID, err)
		s.settleFailed(ctx, user.ID, receiptID, "marking processing failed: "+err.Error())
		return
	}

	extractInput := port.ExtractInput{
		FileBytes:   doc.Bytes,
		ContentType: doc.ContentType,
	}
	if doc.ContentType == "text/plain" {
		extractInput.Text = string(doc.Bytes)
	}

	result, err := s.extractor.Extract(ctx, extractInput)
	if err != nil {
		log.Printf("receiptService.process: extraction failed for receipt %s: %v", receiptID, err)
		s.settleFailed(ctx, user.ID, receiptID, "extraction failed: "+err.Error())
		return
	}

	receipt := &domain.Receipt{
		ID:       receiptID,
		UserID:   user.ID,
		FileName: doc.FileName,
	}
	s.applyResult(ctx, receipt, result)

	now := time.Now().UTC()
	receipt.ProcessedAt = &now
	if result.OverallConfidence >= finalConfidenceThreshold {
		receipt.Status = domain.ReceiptStatusFinal
	} else {
		receipt.Status = domain.ReceiptStatusNeedsReview
	}

	if err := s.receiptRepo.UpdateResults(ctx, receipt); err != nil {
		log.Printf("receiptService.process: persisting results for receipt %s: %v", receiptID, err)
		s.settleFailed(ctx, user.ID, receiptID, "persisting results failed: "+err.Error())
		return
	}

	log.Printf("receiptService.process: receipt %s settled %s (confidence %.2f, source %s)",
		receiptID, receipt.Status, result.OverallConfidence, result.Source)

	if receipt.Status == domain.ReceiptStatusNeedsReview && s.emailSender != nil {
		// Best effort; a failed notification never fails the receipt.
		if err := s.emailSender.SendReviewNotification(ctx, user.Email, user.FullName, doc.FileName); err != nil {
			log.Printf("receiptService.process: review notification for receipt %s: %v", receiptID, err)
		}
	}
}

// applyResult maps an extraction result onto the receipt: raw extraction
// JSON, top-level fields, merchant resolution and category.
func (s *receiptService) applyResult(ctx context.Context, receipt *domain.Receipt, result *domain.ExtractionResult) {
	if raw, err := json.Marshal(result); err == nil {
		receipt.Extraction = raw
	}

	if result.TotalAmount != nil {
		amount := result.TotalAmount.Value
		receipt.TotalAmount = &amount
	}
	if result.Currency != nil {
		currency := result.Currency.Value
		receipt.Currency = &currency
	}
	if result.Date != nil {
		if parsed, ok := extraction.ParseReceiptDate(result.Date.Value); ok {
			receipt.ReceiptDate = &parsed
		}
	}

	merchantName := ""
	supplierConfidence := 0.0
	if result.SupplierName != nil {
		merchantName = result.SupplierName.Value
		supplierConfidence = result.SupplierName.Confidence
	}

	if merchantName != "" {
		amount := 0.0
		if receipt.TotalAmount != nil {
			amount = *receipt.TotalAmount
		}
		resolution, err := s.resolver.Resolve(ctx, receipt.UserID, merchantName, amount, supplierConfidence)
		if err != nil {
			log.Printf("receiptService.applyResult: merchant resolution for receipt %s: %v", receipt.ID, err)
		} else {
			receipt.MerchantID = &resolution.Merchant.ID
			merchantName = resolution.Merchant.CanonicalName
		}
	}

	category := s.classifier.Classify(merchantName)
	receipt.CategoryID = category.ID
	receipt.CategoryName = category.Name
	receipt.CategoryConfidence = category.Confidence
	receipt.CategoryAssignedBy = category.AssignedBy
}

// settleFailed forces a receipt into needs_review with the failure recorded.
func (s *receiptService) settleFailed(ctx context.Context, userID, receiptID uuid.UUID, reason string) {
	receipt, err := s.receiptRepo.GetByID(ctx, userID, receiptID)
	if err != nil {
		log.Printf("receiptService.settleFailed: loading receipt %s: %v", receiptID, err)
		return
	}
	if receipt.Status.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	receipt.Status = domain.ReceiptStatusNeedsReview
	receipt.ProcessingError = reason
	receipt.ProcessedAt = &now
	if receipt.CategoryName == "" {
		category := s.classifier.Classify("")
		receipt.CategoryID = category.ID
		receipt.CategoryName = category.Name
		receipt.CategoryConfidence = category.Confidence
		receipt.CategoryAssignedBy = category.AssignedBy
	}
	if err := s.receiptRepo.UpdateResults(ctx, receipt); err != nil && !errors.Is(err, domain.ErrReceiptTerminal) {
		log.Printf("receiptService.settleFailed: persisting receipt %s: %v", receiptID, err)
	}
}

func (s *receiptService) GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*domain.Receipt, error) {
	return s.receiptRepo.GetByID(ctx, userID, receiptID)
}

func (s *receiptService) List(ctx context.Context, userID uuid.UUID, status domain.ReceiptStatus, offset, limit int) ([]domain.Receipt, int, error) {
	return s.receiptRepo.ListByUser(ctx, userID, status, offset, limit)
}

func (s *receiptService) GetDownloadURL(ctx context.Context, userID, receiptID uuid.UUID) (string, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, userID, receiptID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, receipt.S3Bucket, receipt.S3Key, receipt.FileName, s.s3Cfg.PresignExpiry)
}

// objectKey builds the storage key for one ingested document.
func (s *receiptService) objectKey(userID uuid.UUID, fileName string) string {
	return "users/" + userID.String() + "/receipts/" +
		strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + SanitizeFileName(fileName)
}

// SanitizeFileName replaces anything outside [a-zA-Z0-9._-] with '_',
// collapses consecutive underscores, trims edge underscores and caps the
// result at 120 characters.
func SanitizeFileName(name string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range name {
		keep := r == '.' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if keep {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		// '_' itself and every disallowed rune map to a single '_'.
		if prevUnderscore {
			continue
		}
		b.WriteByte('_')
		prevUnderscore = true
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		out = "file"
	}
	return out
}
