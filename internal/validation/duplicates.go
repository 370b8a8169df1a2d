// =============================================================================
// Booking Import - Duplicate Detector & Validator
// =============================================================================
//
// Cross-checks every candidate booking against the existing store and the
// candidates already seen in this batch, then validates amounts and
// required fields.
//
// DUPLICATE RULES:
//   - Client name: flagged unless the match carries the same non-empty
//     booking reference (a multi-ticket continuation)
//   - Booking reference: flagged when the match belongs to another client
//   - Transaction id: any reuse is flagged
//
// ERROR HANDLING:
//   - Nothing here rejects a candidate
//   - Flags are appended to the notes as a "[DUPLICATE CHECK]" block and
//     returned as warning diagnostics
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// DuplicateHeader opens the notes block listing duplicate flags.
const DuplicateHeader = "[DUPLICATE CHECK]"

// record is one indexed booking.
type record struct {
	client  string
	display string
	ref     string
	label   string
}

type index struct {
	byClient map[string][]record
	byRef    map[string][]record
	byTxn    map[string]record
}

func newIndex() *index {
	return &index{
		byClient: make(map[string][]record),
		byRef:    make(map[string][]record),
		byTxn:    make(map[string]record),
	}
}

func (ix *index) add(client, ref, txn, label string) {
	r := record{
		client:  normalizeKey(client),
		display: strings.TrimSpace(client),
		ref:     normalizeKey(ref),
		label:   label,
	}
	if r.client != "" {
		ix.byClient[r.client] = append(ix.byClient[r.client], r)
	}
	if r.ref != "" {
		ix.byRef[r.ref] = append(ix.byRef[r.ref], r)
	}
	if key := normalizeKey(txn); key != "" {
		if _, exists := ix.byTxn[key]; !exists {
			ix.byTxn[key] = r
		}
	}
}

// addTxn indexes an extra transaction id of an already added booking.
func (ix *index) addTxn(txn, label string) {
	if key := normalizeKey(txn); key != "" {
		if _, exists := ix.byTxn[key]; !exists {
			ix.byTxn[key] = record{label: label}
		}
	}
}

// =============================================================================
// DETECTOR
// =============================================================================

// Detector flags duplicate bookings. Candidates must be checked in output
// order; each checked candidate becomes part of the batch-so-far.
type Detector struct {
	store *index
	batch *index
	seen  int
}

// NewDetector indexes the existing bookings.
func NewDetector(existing []types.ExistingBooking) *Detector {
	d := &Detector{store: newIndex(), batch: newIndex()}
	for _, b := range existing {
		label := fmt.Sprintf("existing booking %s", b.ID)
		if b.ID == "" {
			label = "an existing booking"
		}
		d.store.add(b.ClientName, b.BookingRefNo, b.TransactionID, label)
	}
	return d
}

// Check flags c against the store and the batch-so-far, appends any flags
// to c.Notes, and adds c to the batch. mergedIDs are the other transaction
// ids folded into c; each is checked for reuse like c.TransactionID.
func (d *Detector) Check(c *types.CandidateBooking, mergedIDs ...string) []types.Diagnostic {
	var flags []string

	client := normalizeKey(c.ClientName)
	ref := normalizeKey(c.BookingRefNo)
	txns := append([]string{c.TransactionID}, mergedIDs...)

	for _, ix := range []*index{d.store, d.batch} {
		if client != "" {
			for _, m := range ix.byClient[client] {
				if ref != "" && m.ref == ref {
					continue
				}
				flags = append(flags, fmt.Sprintf("client name '%s' already appears in %s%s",
					c.ClientName, m.label, refSuffix(m.ref)))
				break
			}
		}

		if ref != "" {
			for _, m := range ix.byRef[ref] {
				if m.client == client {
					continue
				}
				flags = append(flags, fmt.Sprintf("booking reference '%s' is already used by client '%s' in %s",
					c.BookingRefNo, m.display, m.label))
				break
			}
		}

		for _, txn := range txns {
			key := normalizeKey(txn)
			if key == "" {
				continue
			}
			if m, ok := ix.byTxn[key]; ok {
				flags = append(flags, fmt.Sprintf("transaction id '%s' is already used by %s",
					strings.TrimSpace(txn), m.label))
			}
		}
	}

	d.seen++
	label := fmt.Sprintf("batch candidate %d", d.seen)
	d.batch.add(c.ClientName, c.BookingRefNo, c.TransactionID, label)
	for _, txn := range mergedIDs {
		d.batch.addTxn(txn, label)
	}

	if len(flags) == 0 {
		return nil
	}

	c.AppendNote(FormatDuplicateBlock(flags))

	diags := make([]types.Diagnostic, 0, len(flags))
	for _, f := range flags {
		diags = append(diags, types.Diagnostic{
			Severity: types.SeverityWarning,
			Stage:    types.StageDuplicate,
			Line:     firstLine(c),
			Message:  f,
		})
	}
	return diags
}

// FormatDuplicateBlock renders flags as a notes block.
func FormatDuplicateBlock(flags []string) string {
	var b strings.Builder
	b.WriteString(DuplicateHeader)
	for _, f := range flags {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	return b.String()
}

// normalizeKey lowercases s and collapses whitespace runs.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func refSuffix(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf(" (ref %s)", ref)
}

func firstLine(c *types.CandidateBooking) int {
	if len(c.SourceLines) == 0 {
		return 0
	}
	return c.SourceLines[0]
}
