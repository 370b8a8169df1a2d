package converter

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// =============================================================================
// GROUPING
// =============================================================================

// Group is the set of rows that make up one logical booking.
type Group struct {
	// Key is the normalized booking reference, or "" for a singleton.
	Key  string
	Rows []*ParsedRow
}

// GroupRows groups rows by booking reference.
//
// GROUPING LOGIC:
//   Rows sharing a non-empty booking reference (case and space
//   insensitive) form one group. Rows without a reference are singleton
//   groups. Groups are returned in order of first occurrence.
func GroupRows(rows []*ParsedRow) []*Group {
	groups := make(map[string]*Group)
	var order []*Group

	for _, row := range rows {
		key := groupKey(row.BookingRefNo)
		if key == "" {
			order = append(order, &Group{Rows: []*ParsedRow{row}})
			continue
		}

		g, exists := groups[key]
		if !exists {
			g = &Group{Key: key}
			groups[key] = g
			order = append(order, g)
		}
		g.Rows = append(g.Rows, row)
	}

	return order
}

func groupKey(ref string) string {
	return strings.Join(strings.Fields(strings.ToLower(ref)), " ")
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate is a group folded into one booking's worth of values.
type Aggregate struct {
	ClientName string

	AgentID       string
	AgentName     string
	AgentResolved bool

	Yacht string

	EventDate time.Time
	Type      string

	BookingRefNo string

	// TransactionID is the first id supplied by the group, or "".
	TransactionID string

	// MergedTransactionIDs are the group's other distinct ids.
	MergedTransactionIDs []string

	Counts     classifier.Counts
	FreeGuests int

	Paid         decimal.Decimal
	PaidSupplied bool
	OtherCharge  *decimal.Decimal

	PaymentMode         string
	Status              string
	PaymentConfirmation string

	Notes     string
	CreatedBy string

	SourceLines []int
	Diagnostics []types.Diagnostic
}

// AggregateGroup folds the rows of g.
//
// AGGREGATION RULES:
//   - Bucket counts, free guests and paid amounts are summed
//   - Distinct non-empty transaction ids are kept in order; the first is
//     the booking's id and the rest are listed in the notes
//   - The yacht comes from the first row with a non-empty yacht, which is
//     not always the first row: a leading row without yacht text is passed
//     over rather than leaving the group without a yacht
//   - Other scalar fields come from the first row that supplied them
//   - Notes are concatenated
func AggregateGroup(g *Group) *Aggregate {
	first := g.Rows[0]
	agg := &Aggregate{
		ClientName:          first.ClientName,
		AgentID:             first.AgentID,
		AgentName:           first.AgentName,
		AgentResolved:       first.AgentResolved,
		EventDate:           first.EventDate,
		Type:                first.Type,
		BookingRefNo:        first.BookingRefNo,
		PaymentMode:         first.PaymentMode,
		Status:              first.Status,
		PaymentConfirmation: first.PaymentConfirmation,
		CreatedBy:           first.CreatedBy,
		Counts:              make(classifier.Counts),
		Paid:                decimal.Zero,
	}

	taken := make(map[fieldmap.Field]bool)
	takeFirst := func(row *ParsedRow, field fieldmap.Field, apply func()) {
		if taken[field] || !row.Supplied[field] {
			return
		}
		taken[field] = true
		apply()
	}

	seenTxn := make(map[string]bool)
	var (
		txns  []string
		notes []string
	)

	for _, row := range g.Rows {
		agg.SourceLines = append(agg.SourceLines, row.Line)
		agg.Diagnostics = append(agg.Diagnostics, row.Diagnostics...)

		agg.Counts.Merge(row.Counts)
		agg.FreeGuests += row.FreeGuests

		if row.PaidSupplied {
			agg.Paid = agg.Paid.Add(row.PaidAmount)
			agg.PaidSupplied = true
		}

		if agg.Yacht == "" && row.Yacht != "" {
			agg.Yacht = row.Yacht
		}
		if agg.OtherCharge == nil && row.OtherCharge != nil {
			agg.OtherCharge = row.OtherCharge
		}

		takeFirst(row, fieldmap.ClientName, func() { agg.ClientName = row.ClientName })
		takeFirst(row, fieldmap.Agent, func() {
			agg.AgentID, agg.AgentName, agg.AgentResolved = row.AgentID, row.AgentName, row.AgentResolved
		})
		takeFirst(row, fieldmap.EventDate, func() { agg.EventDate = row.EventDate })
		takeFirst(row, fieldmap.Type, func() { agg.Type = row.Type })
		takeFirst(row, fieldmap.PaymentMode, func() { agg.PaymentMode = row.PaymentMode })
		takeFirst(row, fieldmap.Status, func() { agg.Status = row.Status })
		takeFirst(row, fieldmap.PaymentConfirmation, func() { agg.PaymentConfirmation = row.PaymentConfirmation })
		takeFirst(row, fieldmap.CreatedBy, func() { agg.CreatedBy = row.CreatedBy })

		if id := strings.TrimSpace(row.TransactionID); id != "" && !seenTxn[id] {
			seenTxn[id] = true
			txns = append(txns, id)
		}
		if n := strings.TrimSpace(row.Notes); n != "" {
			notes = append(notes, n)
		}
	}

	if len(txns) > 0 {
		agg.TransactionID = txns[0]
		agg.MergedTransactionIDs = txns[1:]
	}
	if len(agg.MergedTransactionIDs) > 0 {
		notes = append(notes, fmt.Sprintf("Merged tickets: %s", strings.Join(agg.MergedTransactionIDs, ", ")))
	}
	agg.Notes = strings.Join(notes, "\n")

	return agg
}
