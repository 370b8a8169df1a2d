// =============================================================================
// Booking Import - Review Output Module
// =============================================================================
//
// This module renders a finished import batch for human review before the
// candidates are submitted. Two formats are produced from the same result:
//
// JSON DOCUMENT:
//   {
//     "batchId": "3f0c...",
//     "sourceFile": "in/tickets.csv",
//     "source": "RESELLER",
//     "generatedAt": "2025-06-15T09:30:00Z",
//     "stats": { ... },
//     "candidates": [ ... ],
//     "diagnostics": [ ... ]
//   }
//
// REVIEW WORKBOOK:
//   | Sheet         | One row per                                   |
//   |---------------|-----------------------------------------------|
//   | Candidates    | candidate booking, with totals and flags      |
//   | Package Lines | package line, keyed by transaction id         |
//   | Diagnostics   | diagnostic, in pipeline order                 |
//
// CUSTOMIZATION:
//   - Change the column sets in candidateColumns / lineColumns /
//     diagnosticColumns
//   - Set GenerateOptions.Indent to "" for compact JSON
//
// =============================================================================

package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/booking-import/internal/converter"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// Sheet names of the review workbook.
const (
	SheetCandidates   = "Candidates"
	SheetPackageLines = "Package Lines"
	SheetDiagnostics  = "Diagnostics"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for review output.
type GenerateOptions struct {
	// Indent is used for JSON indentation. Empty means compact output.
	Indent string

	// IncludeInfo keeps info-severity diagnostics. Warnings and errors
	// are always included.
	IncludeInfo bool

	// GeneratedAt stamps the document. Zero means time.Now().
	GeneratedAt time.Time
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:      "  ",
		IncludeInfo: true,
	}
}

// =============================================================================
// JSON DOCUMENT
// =============================================================================

// Document is the JSON review document.
type Document struct {
	BatchID     string                    `json:"batchId"`
	SourceFile  string                    `json:"sourceFile,omitempty"`
	Source      string                    `json:"source"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Stats       Stats                     `json:"stats"`
	Candidates  []*types.CandidateBooking `json:"candidates"`
	Diagnostics []types.Diagnostic        `json:"diagnostics"`
}

// Stats mirrors converter.ProcessingStats for the JSON document.
type Stats struct {
	RowsProcessed     int    `json:"rowsProcessed"`
	SkippedRows       int    `json:"skippedRows"`
	BlankRows         int    `json:"blankRows"`
	CandidatesCreated int    `json:"candidatesCreated"`
	PackageLines      int    `json:"packageLines"`
	AllocatedIDs      int    `json:"allocatedIds"`
	Errors            int    `json:"errors"`
	Warnings          int    `json:"warnings"`
	ProcessingTime    string `json:"processingTime"`
}

// BuildDocument assembles the review document for result.
func BuildDocument(result *converter.Result, options GenerateOptions) *Document {
	generatedAt := options.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	candidates := result.Candidates
	if candidates == nil {
		candidates = []*types.CandidateBooking{}
	}

	return &Document{
		BatchID:     result.BatchID,
		SourceFile:  result.SourceFile,
		Source:      result.Source.String(),
		GeneratedAt: generatedAt,
		Stats: Stats{
			RowsProcessed:     result.Stats.RowsProcessed,
			SkippedRows:       result.SkippedRows,
			BlankRows:         result.BlankRows,
			CandidatesCreated: result.Stats.CandidatesCreated,
			PackageLines:      result.Stats.PackageLines,
			AllocatedIDs:      result.Stats.AllocatedIDs,
			Errors:            result.Stats.Errors,
			Warnings:          result.Stats.Warnings,
			ProcessingTime:    result.Stats.ProcessingTime.String(),
		},
		Candidates:  candidates,
		Diagnostics: filterDiagnostics(result.Diagnostics, options.IncludeInfo),
	}
}

// GenerateJSON renders result as a JSON review document.
//
// PARAMETERS:
//   - result: A finished converter run.
//   - options: Generation options.
//
// RETURNS:
//   - The encoded document, or an encoding error.
func GenerateJSON(result *converter.Result, options GenerateOptions) ([]byte, error) {
	doc := BuildDocument(result, options)

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if options.Indent != "" {
		encoder.SetIndent("", options.Indent)
	}
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode review document: %w", err)
	}
	return buffer.Bytes(), nil
}

// =============================================================================
// REVIEW WORKBOOK
// =============================================================================

var candidateColumns = []string{
	"Transaction ID", "Booking Ref", "Client", "Agent", "Yacht", "Date", "Type",
	"Guests", "Free Guests", "Total", "Commission %", "Commission", "Net",
	"Paid", "Balance", "Other Charge", "Payment Mode", "Status",
	"Payment Confirmation", "Created By", "Source Lines", "Errors", "Warnings", "Notes",
}

var lineColumns = []string{
	"Transaction ID", "Package ID", "Package", "Quantity", "Rate", "Amount",
}

var diagnosticColumns = []string{
	"Severity", "Stage", "Line", "Field", "Value", "Message",
}

// GenerateWorkbook renders result as a review workbook.
//
// PARAMETERS:
//   - result: A finished converter run.
//   - options: Generation options. Only IncludeInfo applies.
//
// RETURNS:
//   - The workbook bytes, or an error from the spreadsheet writer.
func GenerateWorkbook(result *converter.Result, options GenerateOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCandidates); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, sheet := range []string{SheetPackageLines, SheetDiagnostics} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet '%s': %w", sheet, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	var candidateRows, lineRows [][]interface{}
	for _, c := range result.Candidates {
		candidateRows = append(candidateRows, candidateRow(c))
		for _, line := range c.Packages {
			lineRows = append(lineRows, []interface{}{
				c.TransactionID, line.PackageID, line.PackageName, line.Quantity,
				line.Rate.StringFixed(2), line.Amount().StringFixed(2),
			})
		}
	}

	var diagnosticRows [][]interface{}
	for _, d := range filterDiagnostics(result.Diagnostics, options.IncludeInfo) {
		var line interface{}
		if d.Line > 0 {
			line = d.Line
		}
		diagnosticRows = append(diagnosticRows, []interface{}{
			d.Severity, d.Stage, line, d.Field, d.Value, d.Message,
		})
	}

	sheets := []struct {
		name    string
		columns []string
		rows    [][]interface{}
	}{
		{SheetCandidates, candidateColumns, candidateRows},
		{SheetPackageLines, lineColumns, lineRows},
		{SheetDiagnostics, diagnosticColumns, diagnosticRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.columns, s.rows, headerStyle); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write review workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

// candidateRow flattens one candidate for the Candidates sheet.
func candidateRow(c *types.CandidateBooking) []interface{} {
	guests := 0
	for _, line := range c.Packages {
		guests += line.Quantity
	}

	otherCharge := ""
	if c.OtherCharge != nil {
		otherCharge = c.OtherCharge.StringFixed(2)
	}

	lines := make([]string, len(c.SourceLines))
	for i, n := range c.SourceLines {
		lines[i] = fmt.Sprint(n)
	}

	errs, warns := 0, 0
	for _, d := range c.Diagnostics {
		switch d.Severity {
		case types.SeverityError:
			errs++
		case types.SeverityWarning:
			warns++
		}
	}

	return []interface{}{
		c.TransactionID, c.BookingRefNo, c.ClientName, c.AgentName, c.YachtName,
		c.EventDate.Format("2006-01-02"), c.Type, guests, c.FreeGuestCount,
		c.TotalAmount.StringFixed(2), c.CommissionPercentage.String(),
		c.CommissionAmount.StringFixed(2), c.NetAmount.StringFixed(2),
		c.PaidAmount.StringFixed(2), c.BalanceAmount.StringFixed(2), otherCharge,
		c.PaymentMode, c.Status, c.PaymentConfirmation, c.CreatedBy,
		strings.Join(lines, ", "), errs, warns, c.Notes,
	}
}

// writeSheet writes a styled header row followed by rows.
func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write '%s' header: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return fmt.Errorf("failed to resolve '%s' columns: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style '%s' header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to size '%s' columns: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write '%s' row %d: %w", sheet, i+2, err)
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func filterDiagnostics(diags []types.Diagnostic, includeInfo bool) []types.Diagnostic {
	out := make([]types.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity == types.SeverityInfo && !includeInfo {
			continue
		}
		out = append(out, d)
	}
	return out
}
