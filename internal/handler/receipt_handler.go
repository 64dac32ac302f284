package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recivo/internal/domain"
	"recivo/internal/service"
)

// ReceiptHandler handles receipt upload and query endpoints.
type ReceiptHandler struct {
	receiptService service.ReceiptService
	reportService  service.ReportService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(receiptService service.ReceiptService, reportService service.ReportService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, reportService: reportService}
}

// Upload handles POST /api/v1/receipts/upload
// @Summary Upload a receipt
// @Description Upload a receipt file (PDF, JPG, PNG or TXT, max 10MB); processing runs asynchronously
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt file"
// @Success 201 {object} APIResponse{data=domain.Receipt} "Receipt created in uploaded status"
// @Failure 400 {object} APIResponse "Missing file or unsupported type"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 429 {object} APIResponse "Quota exceeded"
// @Router /receipts/upload [post]
func (h *ReceiptHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	receipt, err := h.receiptService.CreateFromUpload(c.Request.Context(), service.ReceiptUploadInput{
		UserID: userID,
		File:   file,
		Header: header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, receipt)
}

// List handles GET /api/v1/receipts
// @Summary List receipts
// @Tags receipts
// @Produce json
// @Param status query string false "Filter by status (uploaded, processing, final, needs_review)"
// @Param offset query int false "Pagination offset"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} APIResponse{data=[]domain.Receipt}
// @Router /receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status := domain.ReceiptStatus(c.Query("status"))
	offset, limit := pagination(c)

	receipts, total, err := h.receiptService.List(c.Request.Context(), userID, status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if receipts == nil {
		receipts = []domain.Receipt{}
	}
	RespondPaginated(c, receipts, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Get handles GET /api/v1/receipts/:id
// @Summary Get a receipt
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} APIResponse{data=domain.Receipt}
// @Failure 404 {object} APIResponse "Receipt not found"
// @Router /receipts/{id} [get]
func (h *ReceiptHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid receipt id")
		return
	}

	receipt, err := h.receiptService.GetByID(c.Request.Context(), userID, receiptID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, receipt)
}

// Download handles GET /api/v1/receipts/:id/download
// @Summary Get a presigned download URL for the original file
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "Receipt not found"
// @Router /receipts/{id}/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid receipt id")
		return
	}

	url, err := h.receiptService.GetDownloadURL(c.Request.Context(), userID, receiptID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// Export handles GET /api/v1/receipts/export
// @Summary Export all receipts as an Excel workbook
// @Tags receipts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /receipts/export [get]
func (h *ReceiptHandler) Export(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	data, err := h.reportService.ExportXLSX(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return offset, limit
}
