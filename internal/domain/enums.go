package domain

// FileType represents the allowed receipt file types.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
	FileTypeTXT FileType = "txt"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
	FileTypeTXT: "text/plain",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
	"text/plain":      FileTypeTXT,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"txt":  FileTypeTXT,
}

// ReceiptStatus represents the lifecycle of a receipt.
// uploaded -> processing -> {final, needs_review}; the last two are terminal.
type ReceiptStatus string

const (
	ReceiptStatusUploaded    ReceiptStatus = "uploaded"
	ReceiptStatusProcessing  ReceiptStatus = "processing"
	ReceiptStatusFinal       ReceiptStatus = "final"
	ReceiptStatusNeedsReview ReceiptStatus = "needs_review"
)

// IsTerminal reports whether the status allows no further transitions.
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusFinal || s == ReceiptStatusNeedsReview
}

// SourceChannel identifies which ingestion channel produced a receipt.
type SourceChannel string

const (
	SourceChannelUpload SourceChannel = "upload"
	SourceChannelEmail  SourceChannel = "email"
	SourceChannelBot    SourceChannel = "bot"
)

// ExtractionSource identifies which engine produced an extraction result.
type ExtractionSource string

const (
	ExtractionSourceStructured ExtractionSource = "structured"
	ExtractionSourceGenerative ExtractionSource = "generative"
	ExtractionSourceManual     ExtractionSource = "manual"
)

// CategoryAssigner identifies how a receipt's category was assigned.
type CategoryAssigner string

const (
	CategoryAssignerRule    CategoryAssigner = "rule"
	CategoryAssignerAI      CategoryAssigner = "ai"
	CategoryAssignerUser    CategoryAssigner = "user"
	CategoryAssignerDefault CategoryAssigner = "default"
)

// MerchantMatch identifies how a raw supplier string resolved to a merchant.
type MerchantMatch string

const (
	MerchantMatchAlias MerchantMatch = "alias"
	MerchantMatchFuzzy MerchantMatch = "fuzzy"
	MerchantMatchAI    MerchantMatch = "ai"
)

// UserPlan identifies a user's subscription plan. Plan lifecycle and billing
// are managed outside this service; only the receipt cap matters here.
type UserPlan string

const (
	UserPlanFree UserPlan = "free"
	UserPlanPro  UserPlan = "pro"
)
