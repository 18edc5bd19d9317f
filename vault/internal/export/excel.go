package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hazyhaar/docuvault/vault/internal/extract"
	"github.com/hazyhaar/docuvault/vault/internal/store"
)

var documentsHeader = []any{
	"ID", "Filename", "Document Type", "Processed Date", "OCR Confidence",
	"Document Number", "Issue Date", "Due Date", "Vendor Name", "Vendor Email",
	"Customer Name", "Subtotal", "Tax", "Total", "Currency",
}

var itemsHeader = []any{
	"Document ID", "Filename", "Description", "Quantity", "Unit Price", "Amount",
}

// ToExcel exports completed documents to an Excel workbook with a
// "Documents" summary sheet and a flattened "Line Items" sheet. The items
// sheet is created even when no document has line items. Exporting nothing
// is an error.
func (m *Manager) ToExcel(ctx context.Context, opts Options) (string, error) {
	docs, err := m.completedDocuments(ctx, opts.DocumentIDs)
	if err != nil {
		return "", fmt.Errorf("export: list documents: %w", err)
	}
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}

	f := excelize.NewFile()
	defer f.Close()

	const docsSheet = "Documents"
	const itemsSheet = "Line Items"
	if err := f.SetSheetName("Sheet1", docsSheet); err != nil {
		return "", fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return "", fmt.Errorf("export: create items sheet: %w", err)
	}

	if err := setRow(f, docsSheet, 1, documentsHeader); err != nil {
		return "", err
	}
	if err := setRow(f, itemsSheet, 1, itemsHeader); err != nil {
		return "", err
	}

	itemRow := 2
	for i, d := range docs {
		summary, items := flattenDocument(d)
		if err := setRow(f, docsSheet, i+2, summary); err != nil {
			return "", err
		}
		for _, item := range items {
			if err := setRow(f, itemsSheet, itemRow, item); err != nil {
				return "", err
			}
			itemRow++
		}
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}
	path := filepath.Join(m.dir, fmt.Sprintf("docuvault_export_%s.xlsx", m.timestamp()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("export: save workbook: %w", err)
	}

	m.logger.Info("excel export written", "path", path, "documents", len(docs))
	return path, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

// flattenDocument turns a document into one summary row plus one row per
// line item. Missing values become "N/A", matching how users read the sheet.
func flattenDocument(d *store.Document) ([]any, [][]any) {
	processed := "N/A"
	if d.ProcessedAt > 0 {
		processed = time.UnixMilli(d.ProcessedAt).UTC().Format("2006-01-02 15:04")
	}

	var data extract.ExtractedDocument
	if d.ExtractedJSON != "" {
		// A row whose extraction JSON no longer parses still exports with
		// N/A fields rather than failing the whole workbook.
		_ = json.Unmarshal([]byte(d.ExtractedJSON), &data)
	}

	vendorName, vendorEmail := "N/A", "N/A"
	if data.Vendor != nil {
		vendorName = orNA(data.Vendor.Name)
		vendorEmail = orNA(data.Vendor.Email)
	}
	customerName := "N/A"
	if data.Customer != nil {
		customerName = orNA(data.Customer.Name)
	}

	summary := []any{
		d.ID,
		orNA(d.OriginalFilename),
		orDefault(d.DocumentType, "unknown"),
		processed,
		fmt.Sprintf("%.1f%%", d.OCRConfidence*100),
		orNA(data.DocumentNumber),
		orNA(data.Dates.IssueDate),
		orNA(data.Dates.DueDate),
		vendorName,
		vendorEmail,
		customerName,
		orNA(data.Amounts.Subtotal),
		orNA(data.Amounts.Tax),
		orNA(data.Amounts.Total),
		orNA(data.Amounts.Currency),
	}

	var items [][]any
	for _, item := range data.Items {
		qty := any("N/A")
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		items = append(items, []any{
			d.ID,
			orNA(d.OriginalFilename),
			orNA(item.Description),
			qty,
			orNA(item.UnitPrice),
			orNA(item.Amount),
		})
	}
	return summary, items
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
