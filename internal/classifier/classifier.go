package classifier

import (
	"strconv"
	"strings"

	"github.com/ginjaninja78/booking-import/internal/fieldmap"
)

// Classifier applies one strategy plus the rules shared by every source:
// compound pax cells and explicit bucket columns.
type Classifier struct {
	strategy Strategy
	yachts   YachtLookup
}

// Options configures the source-specific strategies.
type Options struct {
	// ResellerAliases extend the reseller yacht-name alias table.
	ResellerAliases map[string]string

	// MasterColumns is the master-sheet column table.
	MasterColumns MasterTable
}

// New returns a classifier for source.
func New(source Source, yachts YachtLookup, opts Options) *Classifier {
	var strategy Strategy
	switch source {
	case SourceReseller:
		strategy = NewResellerStrategy(opts.ResellerAliases)
	case SourceMaster:
		strategy = NewMasterStrategy(opts.MasterColumns)
	default:
		strategy = NewDefaultStrategy()
	}
	return &Classifier{strategy: strategy, yachts: yachts}
}

// Source returns the source of the active strategy.
func (c *Classifier) Source() Source {
	return c.strategy.Source()
}

// Classify classifies one row.
//
// A pax cell is used for the adult and child counts only when no explicit
// adult or child column supplied them.
func (c *Classifier) Classify(in Input) Result {
	if !in.HasAdultChild && in.Pax != "" {
		if adult, child, ok := ParsePax(in.Pax); ok {
			in.Adult, in.Child = adult, child
		}
	}

	res := c.strategy.Classify(in, c.yachts)
	res.Counts.Merge(in.Explicit)
	return res
}

// =============================================================================
// SOURCE DETECTION
// =============================================================================

// Detect picks a source from the normalized headers.
//
//   - MASTER when at least two headers are master-sheet columns
//   - RESELLER when a ticket-number header and a product header are present
//   - DEFAULT otherwise
func Detect(headers []string, table *fieldmap.FieldAliasTable, master MasterTable) Source {
	masterHits := 0
	ticket, product := false, false

	for _, h := range headers {
		if _, ok := master[h]; ok {
			masterHits++
		}
		field, ok := table.Lookup(h)
		if !ok {
			continue
		}
		switch {
		case field == fieldmap.TransactionID && strings.Contains(h, "ticket"):
			ticket = true
		case field == fieldmap.Product:
			product = true
		}
	}

	switch {
	case masterHits >= 2:
		return SourceMaster
	case ticket && product:
		return SourceReseller
	default:
		return SourceDefault
	}
}

// =============================================================================
// SHARED CELL RULES
// =============================================================================

// ParsePax parses an "adults + children + infants" cell. The first two
// numeric parts are the adult and child counts; a bare number is an adult
// count. ok is false when no part is numeric.
//
// EXAMPLE:
//   ParsePax("8 + 1 + 0") => 8, 1, true
func ParsePax(cell string) (adult, child int, ok bool) {
	var nums []int
	for _, part := range strings.Split(cell, "+") {
		if n, valid := parseCount(part); valid {
			nums = append(nums, n)
		}
	}

	switch len(nums) {
	case 0:
		return 0, 0, false
	case 1:
		return nums[0], 0, true
	default:
		return nums[0], nums[1], true
	}
}

// JoinName joins split first/last name cells with a single space.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// parseCount parses a non-negative quantity cell. Whole-valued decimals
// such as "2.0" are accepted.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return max(int(f), 0), true
}

// ParseCount is the exported form of the quantity parser used for
// package-count columns.
func ParseCount(s string) (int, bool) {
	return parseCount(s)
}
