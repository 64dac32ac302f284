package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents an account consuming the ingestion pipeline. Account
// lifecycle and authentication live in the surrounding application; this
// service reads identity and quota state only.
type User struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	FullName         string    `db:"full_name" json:"full_name"`
	ForwardingAlias  string    `db:"forwarding_alias" json:"forwarding_alias"`
	BotChatID        *int64    `db:"bot_chat_id" json:"bot_chat_id,omitempty"`
	Plan             UserPlan  `db:"plan" json:"plan"`
	MonthlyReceipts  int       `db:"monthly_receipts" json:"monthly_receipts"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// RawDocument is a byte payload plus its declared media type and filename,
// prior to extraction. Created once per ingestion attempt and discarded
// after the receipt is persisted.
type RawDocument struct {
	Bytes         []byte
	ContentType   string
	FileName      string
	SizeBytes     int64
	SourceChannel SourceChannel
}

// InboundEnvelope is the channel-agnostic result of decoding an inbound
// payload: scalar form fields plus ordered attachment candidates. An empty
// envelope is a valid result meaning "no usable content".
type InboundEnvelope struct {
	Fields      map[string]string
	Attachments []RawDocument
}

// ExtractedField is a typed value with the extraction engine's confidence
// in [0,1] and, when available, the raw text it was derived from.
type ExtractedField[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	RawText    string  `json:"raw_text,omitempty"`
}

// ExtractionResult is the immutable output of one extraction engine run,
// attached to exactly one receipt.
type ExtractionResult struct {
	Source            ExtractionSource         `json:"source"`
	TotalAmount       *ExtractedField[float64] `json:"total_amount,omitempty"`
	Currency          *ExtractedField[string]  `json:"currency,omitempty"`
	Date              *ExtractedField[string]  `json:"date,omitempty"`
	SupplierName      *ExtractedField[string]  `json:"supplier_name,omitempty"`
	OverallConfidence float64                  `json:"overall_confidence"`
	ModelUsed         string                   `json:"model_used,omitempty"`
}

// StringList is a string slice persisted as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = StringList{}
		return nil
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}
}

// Contains reports whether the list holds s, case-insensitively.
func (l StringList) Contains(s string) bool {
	for _, a := range l {
		if strings.EqualFold(a, s) {
			return true
		}
	}
	return false
}

// Merchant is the deduplicated, user-scoped identity a raw supplier string
// resolves to. Aliases are compared case-insensitively and the set is never
// empty. Merchants are created by the pipeline but never deleted by it.
type Merchant struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	CanonicalName string     `db:"canonical_name" json:"canonical_name"`
	Aliases       StringList `db:"aliases" json:"aliases"`
	ReceiptCount  int        `db:"receipt_count" json:"receipt_count"`
	TotalSpend    float64    `db:"total_spend" json:"total_spend"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Category is a derived classification value, recomputed per receipt and
// denormalized onto it rather than persisted as its own entity.
type Category struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Confidence float64          `json:"confidence"`
	AssignedBy CategoryAssigner `json:"assigned_by"`
}

// Receipt is the persisted expense record driven through the status state
// machine. Top-level amount/currency/date fields are set only when the
// extraction produced them.
type Receipt struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	Status        ReceiptStatus `db:"status" json:"status"`
	SourceChannel SourceChannel `db:"source_channel" json:"source_channel"`

	FileName    string `db:"file_name" json:"file_name"`
	ContentType string `db:"content_type" json:"content_type"`
	FileSize    int64  `db:"file_size" json:"file_size"`
	S3Bucket    string `db:"s3_bucket" json:"s3_bucket"`
	S3Key       string `db:"s3_key" json:"s3_key"`

	Extraction json.RawMessage `db:"extraction" json:"extraction"`
	MerchantID *uuid.UUID      `db:"merchant_id" json:"merchant_id,omitempty"`

	CategoryID         string           `db:"category_id" json:"category_id"`
	CategoryName       string           `db:"category_name" json:"category_name"`
	CategoryConfidence float64          `db:"category_confidence" json:"category_confidence"`
	CategoryAssignedBy CategoryAssigner `db:"category_assigned_by" json:"category_assigned_by"`

	TotalAmount *float64   `db:"total_amount" json:"total_amount,omitempty"`
	Currency    *string    `db:"currency" json:"currency,omitempty"`
	ReceiptDate *time.Time `db:"receipt_date" json:"receipt_date,omitempty"`

	ProcessingError string     `db:"processing_error" json:"processing_error,omitempty"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
