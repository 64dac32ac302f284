package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"recivo/internal/domain"
	"recivo/internal/port"
)

// exportPageSize is how many receipts one repository page holds during export.
const exportPageSize = 500

// ReportService exports a user's receipts as an Excel workbook.
type ReportService interface {
	ExportXLSX(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

type reportService struct {
	receiptRepo  port.ReceiptRepository
	merchantRepo port.MerchantRepository
}

// NewReportService creates a new ReportService implementation.
func NewReportService(receiptRepo port.ReceiptRepository, merchantRepo port.MerchantRepository) ReportService {
	return &reportService{receiptRepo: receiptRepo, merchantRepo: merchantRepo}
}

// ExportXLSX builds a workbook with a Receipts sheet and a Merchants sheet.
func (s *reportService) ExportXLSX(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const receiptsSheet = "Receipts"
	f.SetSheetName("Sheet1", receiptsSheet)

	headers := []string{"Date", "Merchant", "Category", "Amount", "Currency", "Status", "Source", "File"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(receiptsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	merchantNames, err := s.merchantNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		receipts, total, err := s.receiptRepo.ListByUser(ctx, userID, "", offset, exportPageSize)
		if err != nil {
			return nil, fmt.Errorf("listing receipts: %w", err)
		}
		for i := range receipts {
			if err := s.writeReceiptRow(f, receiptsSheet, row, &receipts[i], merchantNames); err != nil {
				return nil, err
			}
			row++
		}
		if offset+exportPageSize >= total || len(receipts) == 0 {
			break
		}
	}

	if err := s.writeMerchantsSheet(ctx, f, userID); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *reportService) writeReceiptRow(f *excelize.File, sheet string, row int, receipt *domain.Receipt, merchantNames map[uuid.UUID]string) error {
	date := ""
	if receipt.ReceiptDate != nil {
		date = receipt.ReceiptDate.Format("2006-01-02")
	}
	merchant := ""
	if receipt.MerchantID != nil {
		merchant = merchantNames[*receipt.MerchantID]
	}
	var amount interface{}
	if receipt.TotalAmount != nil {
		amount = *receipt.TotalAmount
	}
	currency := ""
	if receipt.Currency != nil {
		currency = *receipt.Currency
	}

	values := []interface{}{
		date, merchant, receipt.CategoryName, amount, currency,
		string(receipt.Status), string(receipt.SourceChannel), receipt.FileName,
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}
	return nil
}

func (s *reportService) writeMerchantsSheet(ctx context.Context, f *excelize.File, userID uuid.UUID) error {
	const sheet = "Merchants"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating merchants sheet: %w", err)
	}

	headers := []string{"Merchant", "Receipts", "Total Spend"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing merchants header: %w", err)
		}
	}

	merchants, err := s.merchantRepo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing merchants: %w", err)
	}
	for i, m := range merchants {
		row := i + 2
		values := []interface{}{m.CanonicalName, m.ReceiptCount, m.TotalSpend}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing merchants row %d: %w", row, err)
			}
		}
	}
	return nil
}

func (s *reportService) merchantNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	merchants, err := s.merchantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}
	names := make(map[uuid.UUID]string, len(merchants))
	for _, m := range merchants {
		names[m.ID] = m.CanonicalName
	}
	return names, nil
}
