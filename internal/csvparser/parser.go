// =============================================================================
// Booking Import - CSV Parser Module
// =============================================================================
//
// This module turns an uploaded sales-channel export into a header plus a
// list of raw rows. It handles the formats seen from the booking channels:
//   - Comma or tab delimiters (auto-detected from the header line)
//   - A leading UTF-8 byte-order mark
//   - RFC-4180 quoting, including doubled quotes
//   - Rows with a blank tail of extra cells
//
// FEATURES:
//   - Structural problems are collected as diagnostics, never fatal
//   - Empty or headerless files abort with a sentinel error
//   - Every row keeps its 1-based source line number
//
// CUSTOMIZATION:
//   - Set Options.Delimiter to force a delimiter instead of detecting it
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// Fatal parse errors. They are always returned wrapped.
var (
	ErrEmptyFile = errors.New("file is empty")
	ErrNoHeader  = errors.New("file has no header row")
)

const byteOrderMark = "\ufeff"

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed export.
type CSVData struct {
	// Headers contains the normalized header tokens, in column order.
	Headers []string

	// RawHeaders contains the header cells as they appeared in the file.
	RawHeaders []string

	// Rows contains the accepted data rows. Every row has exactly
	// len(Headers) cells.
	Rows []types.RawRow

	// Delimiter is the delimiter used to split the file.
	Delimiter rune

	// SourceFile is the path of the source file, when parsed from disk.
	SourceFile string

	// SkippedRows counts rows discarded for a column-count mismatch.
	SkippedRows int

	// BlankRows counts empty lines and rows whose cells were all empty.
	BlankRows int

	// Diagnostics holds one warning per skipped row.
	Diagnostics []types.Diagnostic
}

// Options controls parsing.
type Options struct {
	// Delimiter forces a delimiter. Zero means detect from the header line.
	Delimiter rune
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile opens filePath and parses it with Parse.
func ParseFile(filePath string, opts Options) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, opts)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// Parse reads a whole export and returns the header and accepted rows.
//
// PARAMETERS:
//   - r: The export content. It is read fully into memory.
//   - opts: Parsing options.
//
// RETURNS:
//   - The parsed data, including skipped-row counts and diagnostics.
//   - ErrEmptyFile or ErrNoHeader (wrapped) when nothing usable exists,
//     or a read error.
//
// PARSING PROCESS:
//   1. Strip a byte-order mark while reading
//   2. Detect the delimiter from the first line
//   3. Normalize the header cells
//   4. Accept each data row whose cell count matches the header, after
//      truncating a blank tail
func Parse(r io.Reader, opts Options) (*CSVData, error) {
	content, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("failed to parse input: %w", ErrEmptyFile)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(firstLine(content))
	}

	reader := csv.NewReader(bytes.NewReader(content))
	configureReader(reader, delim)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("failed to parse input: %w", ErrEmptyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	data, err := NewCSVData(header)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	data.Delimiter = delim

	// encoding/csv skips empty lines without reporting them. Lines consumed
	// so far are tracked so the gap before each record can be counted.
	offset := reader.InputOffset()
	consumed := bytes.Count(content[:offset], newline)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			data.BlankRows += bytes.Count(content[offset:], newline)
			break
		}

		line := 0
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
		} else {
			line, _ = reader.FieldPos(0)
		}
		if gap := line - consumed - 1; gap > 0 {
			data.BlankRows += gap
		}

		next := reader.InputOffset()
		consumed += bytes.Count(content[offset:next], newline)
		offset = next

		if err != nil {
			data.skip(line, fmt.Sprintf("unreadable row skipped: %v", err))
			continue
		}
		data.AddRecord(line, record)
	}

	return data, nil
}

var newline = []byte{'\n'}

// NewCSVData starts a data set from a raw header row.
//
// RETURNS:
//   - ErrNoHeader when every header cell is blank.
func NewCSVData(header []string) (*CSVData, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], byteOrderMark)
	}
	if isRowEmpty(header) {
		return nil, ErrNoHeader
	}
	return &CSVData{
		RawHeaders: trimCells(header),
		Headers:    cleanHeaders(header),
	}, nil
}

// AddRecord accepts or skips one data record found at line.
//
// RECORD HANDLING:
//   - All-blank records are counted in BlankRows
//   - A blank tail beyond the header width is dropped
//   - Any other width mismatch skips the record with a warning
func (d *CSVData) AddRecord(line int, record []string) bool {
	if isRowEmpty(record) {
		d.BlankRows++
		return false
	}

	cells, ok := fitToHeader(trimCells(record), len(d.Headers))
	if !ok {
		d.skip(line, fmt.Sprintf("row has %d cells, header has %d; row skipped",
			len(record), len(d.Headers)))
		return false
	}

	d.Rows = append(d.Rows, types.RawRow{Line: line, Cells: cells})
	return true
}

func (d *CSVData) skip(line int, msg string) {
	d.SkippedRows++
	d.Diagnostics = append(d.Diagnostics, types.Diagnostic{
		Severity: types.SeverityWarning,
		Stage:    types.StageParse,
		Line:     line,
		Message:  msg,
	})
}

// DetectDelimiter picks tab when the line has strictly more tabs than
// commas, otherwise comma.
func DetectDelimiter(line string) rune {
	if strings.Count(line, "\t") > strings.Count(line, ",") {
		return '\t'
	}
	return ','
}

// NormalizeHeader trims a header cell, lowercases it and collapses runs of
// whitespace to a single underscore.
//
// EXAMPLE:
//   NormalizeHeader("  Client   Name ") => "client_name"
func NormalizeHeader(cell string) string {
	cell = strings.TrimPrefix(cell, byteOrderMark)
	return strings.Join(strings.Fields(strings.ToLower(cell)), "_")
}

// cleanHeaders normalizes every header cell.
//
// Empty header cells become "column_<n>" so their data can still be
// reported; they never match an alias.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = NormalizeHeader(header)
		if header == "" {
			header = fmt.Sprintf("column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// fitToHeader returns cells truncated to width when the only extra cells
// are blank. It reports false for any other mismatch.
func fitToHeader(cells []string, width int) ([]string, bool) {
	if len(cells) == width {
		return cells, true
	}
	if len(cells) < width {
		return nil, false
	}
	if !isRowEmpty(cells[width:]) {
		return nil, false
	}
	return cells[:width], true
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

// firstLine returns the first non-blank line of content.
func firstLine(content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
