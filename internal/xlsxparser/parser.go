// =============================================================================
// Booking Import - XLSX Workbook Reader
// =============================================================================
//
// This module reads the spreadsheet side of the import:
//   - Booking exports saved as .xlsx instead of CSV
//   - Alias templates that teach the header mapper new column names
//
// BOOKING WORKBOOKS:
//   The first visible sheet (or a named one) is read as a table. Its first
//   non-blank row is the header; the rest follow the same acceptance rules
//   as CSV rows, so the pipeline sees identical CSVData either way.
//
// ALIAS TEMPLATE STRUCTURE (Expected Columns):
//
//   | Column A          | Column B        |
//   |-------------------|-----------------|
//   | Alias             | Canonical Field |
//   | Guest             | clientName      |
//   | Boat              | yacht           |
//   | Kids VIP          | pkg_vip_child   |
//
// CUSTOMIZATION:
//   - Sheets whose name starts with "_" are treated as notes and skipped
//   - Set WorkbookOptions.Sheet to read a specific sheet
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/booking-import/internal/csvparser"
	"github.com/ginjaninja78/booking-import/internal/fieldmap"
)

// ErrNoSheet is returned when a workbook has no readable sheet.
var ErrNoSheet = errors.New("workbook has no readable sheet")

// hiddenSheetPrefix marks sheets that are never read as data.
const hiddenSheetPrefix = "_"

// WorkbookOptions controls workbook parsing.
type WorkbookOptions struct {
	// Sheet names the sheet to read. Empty means the first sheet whose
	// name does not start with "_".
	Sheet string
}

// =============================================================================
// BOOKING WORKBOOKS
// =============================================================================

// ParseWorkbook reads a booking export stored as an .xlsx file.
//
// PARAMETERS:
//   - filePath: Path to the workbook.
//   - opts: Sheet selection.
//
// RETURNS:
//   - The parsed data. Line numbers are spreadsheet row numbers.
//   - ErrNoSheet, csvparser.ErrEmptyFile or csvparser.ErrNoHeader
//     (wrapped) when nothing usable exists.
func ParseWorkbook(filePath string, opts WorkbookOptions) (*csvparser.CSVData, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
	}

	data, err := tableFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet '%s': %w", sheet, err)
	}
	data.SourceFile = filePath
	return data, nil
}

// pickSheet returns the requested sheet, or the first data sheet.
func pickSheet(f *excelize.File, name string) (string, error) {
	if name != "" {
		if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
			return "", fmt.Errorf("sheet '%s' not found: %w", name, ErrNoSheet)
		}
		return name, nil
	}

	for _, sheet := range f.GetSheetList() {
		if !strings.HasPrefix(sheet, hiddenSheetPrefix) {
			return sheet, nil
		}
	}
	return "", ErrNoSheet
}

// tableFromRows applies the CSV acceptance rules to spreadsheet rows.
//
// Spreadsheets drop trailing empty cells, so short rows are padded to the
// header width before they are checked.
func tableFromRows(rows [][]string) (*csvparser.CSVData, error) {
	start := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, csvparser.ErrEmptyFile
	}

	data, err := csvparser.NewCSVData(rows[start])
	if err != nil {
		return nil, err
	}

	width := len(data.Headers)
	for i := start + 1; i < len(rows); i++ {
		record := rows[i]
		if len(record) < width {
			padded := make([]string, width)
			copy(padded, record)
			record = padded
		}
		data.AddRecord(i+1, record)
	}

	return data, nil
}

// =============================================================================
// ALIAS TEMPLATES
// =============================================================================

// LoadAliasTemplate adds the aliases listed in a template workbook to table.
//
// PARAMETERS:
//   - filePath: Path to the template. Its first data sheet is read.
//   - table: The alias table to extend.
//
// RETURNS:
//   - The number of aliases added or confirmed.
//   - One warning per row that could not be applied (unknown field,
//     conflicting alias). Bad rows never stop the load.
//   - An error when the workbook cannot be read.
func LoadAliasTemplate(filePath string, table *fieldmap.FieldAliasTable) (int, []string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open alias template: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, "")
	if err != nil {
		return 0, nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
	}

	applied := 0
	var warnings []string

	// Row 1 is the header row, so data starts at row 2
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		alias := getCellValue(row, 0)
		field := fieldmap.Field(getCellValue(row, 1))
		if alias == "" || field == "" {
			warnings = append(warnings, fmt.Sprintf("row %d: alias and canonical field are both required", i+1))
			continue
		}

		if err := table.Extend(alias, field); err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		applied++
	}

	return applied, warnings, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// getCellValue safely gets a trimmed cell value from a row.
func getCellValue(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
