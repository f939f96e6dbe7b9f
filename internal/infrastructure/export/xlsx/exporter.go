package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const (
	DocumentsSheet = "Documents"
	StatsSheet     = "Stats"
	timeLayout     = "2006-01-02 15:04:05"
)

var documentHeaders = []string{
	"ID",
	"Type",
	"Status",
	"Filename",
	"User",
	"Email",
	"Created",
	"Updated",
	"Completed",
	"Errors",
}

// Exporter writes admin listings as an XLSX workbook. It implements ports.DocumentExporter.
type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

func (e *Exporter) Export(ctx context.Context, w io.Writer, docs []domain.Document, stats *domain.AdminStats) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", DocumentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeDocuments(ctx, f, docs); err != nil {
		return err
	}
	if stats != nil {
		if _, err := f.NewSheet(StatsSheet); err != nil {
			return fmt.Errorf("create stats sheet: %w", err)
		}
		if err := writeStats(f, stats); err != nil {
			return err
		}
	}
	index, _ := f.GetSheetIndex(DocumentsSheet)
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export_xlsx_ok",
		"rows", len(docs),
		"with_stats", stats != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeDocuments(ctx context.Context, f *excelize.File, docs []domain.Document) error {
	if err := f.SetSheetRow(DocumentsSheet, "A1", &documentHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var owner, email string
		if doc.User != nil {
			owner, email = doc.User.Name, doc.User.Email
		}
		completed := ""
		if doc.CompletedAt != nil {
			completed = formatTime(*doc.CompletedAt)
		}
		row := []any{
			doc.ID,
			string(doc.DocumentType),
			string(doc.Status),
			doc.OriginalFilename,
			owner,
			email,
			formatTime(doc.CreatedAt),
			formatTime(doc.UpdatedAt),
			completed,
			truncate(strings.Join(doc.ErrorMessages, "; "), 255),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(DocumentsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(DocumentsSheet, "A", "A", 38)
	_ = f.SetColWidth(DocumentsSheet, "B", "C", 20)
	_ = f.SetColWidth(DocumentsSheet, "D", "F", 28)
	_ = f.SetColWidth(DocumentsSheet, "G", "I", 20)
	_ = f.SetColWidth(DocumentsSheet, "J", "J", 60)
	return f.AutoFilter(DocumentsSheet, fmt.Sprintf("A1:J%d", len(docs)+1), nil)
}

func writeStats(f *excelize.File, stats *domain.AdminStats) error {
	rows := [][]any{
		{"Metric", "Value"},
		{"Total users", stats.TotalUsers},
		{"Total documents", stats.TotalDocuments},
	}
	for _, t := range domain.DocumentTypes() {
		rows = append(rows, []any{"Type: " + t.Label(), stats.DocumentsByType[t]})
	}
	for _, s := range domain.Statuses() {
		rows = append(rows, []any{"Status: " + string(s), stats.DocumentsByStatus[s]})
	}
	// Keys outside the known sets are still reported.
	var extraTypes []string
	for t := range stats.DocumentsByType {
		if !t.Valid() {
			extraTypes = append(extraTypes, string(t))
		}
	}
	slices.Sort(extraTypes)
	for _, t := range extraTypes {
		rows = append(rows, []any{"Type: " + t, stats.DocumentsByType[domain.DocumentType(t)]})
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(StatsSheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write stats row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(StatsSheet, "A", "A", 32)
	_ = f.SetColWidth(StatsSheet, "B", "B", 12)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
