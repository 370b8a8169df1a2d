package csvparser

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// =============================================================================
// TOKENIZER
// =============================================================================

// Tokenize splits a single line into trimmed fields.
//
// The line is split on delim outside double-quoted spans. A doubled quote
// inside a quoted span is a literal quote. No column-count validation is
// done here; callers compare the result against the header themselves.
// An unbalanced quote runs to the end of the line.
//
// EXAMPLE:
//   Tokenize(`value1,"value 2, with comma",value3`, ',')
//   => ["value1", "value 2, with comma", "value3"], nil
func Tokenize(line string, delim rune) ([]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return []string{""}, nil
	}

	reader := csv.NewReader(strings.NewReader(line))
	configureReader(reader, delim)

	record, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize line: %w", err)
	}
	return trimCells(record), nil
}

// configureReader configures the CSV reader for vendor exports.
//
// Vendor files are loose: rows may have more or fewer cells than the
// header, and quotes are not always balanced.
func configureReader(reader *csv.Reader, delim rune) {
	if delim == 0 {
		delim = ','
	}
	reader.Comma = delim

	// Column counts are checked against the header by the parser.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true

	// encoding/csv trims whitespace delimiters too, which would swallow
	// empty tab-separated cells.
	reader.TrimLeadingSpace = delim != '\t'
}

func trimCells(record []string) []string {
	cells := make([]string, len(record))
	for i, cell := range record {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}
