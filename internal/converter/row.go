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
// PARSED ROW
// =============================================================================

// ParsedRow is one source row after value conversion and classification.
type ParsedRow struct {
	Line int

	ClientName string
	FirstName  string
	LastName   string

	AgentID       string
	AgentName     string
	AgentResolved bool

	// YachtText and ProductText are kept raw for the classifier.
	YachtText   string
	ProductText string

	EventDate time.Time

	BookingRefNo  string
	TransactionID string

	PaidAmount   decimal.Decimal
	PaidSupplied bool
	OtherCharge  *decimal.Decimal

	PaymentMode         string
	Status              string
	PaymentConfirmation string
	Type                string

	Notes     string
	CreatedBy string

	FreeGuests int

	// Raw package counts, before classification.
	Pax           string
	Adult         int
	Child         int
	HasAdultChild bool
	Explicit      classifier.Counts

	Columns []classifier.HeaderCell

	// Supplied records which fields had a non-empty cell.
	Supplied map[fieldmap.Field]bool

	// Set by classification.
	Yacht  string
	Counts classifier.Counts
	Rule   string

	Diagnostics []types.Diagnostic
}

// ClassifierInput returns the classifier's view of the row.
func (r *ParsedRow) ClassifierInput() classifier.Input {
	return classifier.Input{
		YachtText:     r.YachtText,
		ProductText:   r.ProductText,
		Adult:         r.Adult,
		Child:         r.Child,
		HasAdultChild: r.HasAdultChild,
		Pax:           r.Pax,
		Explicit:      r.Explicit,
		Columns:       r.Columns,
	}
}

// ApplyClassification stores a classification result on the row.
func (r *ParsedRow) ApplyClassification(res classifier.Result) {
	r.Counts = res.Counts
	r.Rule = res.Rule
	r.Yacht = res.Yacht
	if r.Yacht == "" {
		r.Yacht = r.YachtText
	}
	for _, w := range res.Warnings {
		r.warn(types.StageClassify, "", "", w)
	}
	if !res.Matched && res.Counts.Total() > 0 {
		r.Diagnostics = append(r.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageClassify,
			Line:     r.Line,
			Message:  "no package rule matched; counted as base adult/child",
		})
	}
}

func (r *ParsedRow) warn(stage, field, value, msg string) {
	r.Diagnostics = append(r.Diagnostics, types.Diagnostic{
		Severity: types.SeverityWarning,
		Stage:    stage,
		Line:     r.Line,
		Field:    field,
		Value:    value,
		Message:  msg,
	})
}

// =============================================================================
// ROW BUILDER
// =============================================================================

// RowBuilder fills a ParsedRow through one setter per canonical field.
// Conversion problems are recorded as diagnostics on the row.
type RowBuilder struct {
	row    *ParsedRow
	values *ValueConverter

	dateSet bool
}

// NewRowBuilder starts a row for source line.
func NewRowBuilder(line int, values *ValueConverter) *RowBuilder {
	return &RowBuilder{
		row: &ParsedRow{
			Line:                line,
			PaymentMode:         Enums[fieldmap.PaymentMode].Default,
			Status:              Enums[fieldmap.Status].Default,
			PaymentConfirmation: Enums[fieldmap.PaymentConfirmation].Default,
			Type:                Enums[fieldmap.Type].Default,
			Explicit:            make(classifier.Counts),
			Supplied:            make(map[fieldmap.Field]bool),
		},
		values: values,
	}
}

func (b *RowBuilder) mark(field fieldmap.Field, raw string) {
	if strings.TrimSpace(raw) != "" {
		b.row.Supplied[field] = true
	}
}

func (b *RowBuilder) SetClientName(v string) *RowBuilder {
	b.mark(fieldmap.ClientName, v)
	b.row.ClientName = v
	return b
}

func (b *RowBuilder) SetFirstName(v string) *RowBuilder { b.row.FirstName = v; return b }
func (b *RowBuilder) SetLastName(v string) *RowBuilder  { b.row.LastName = v; return b }
func (b *RowBuilder) SetYachtText(v string) *RowBuilder { b.row.YachtText = v; return b }
func (b *RowBuilder) SetProduct(v string) *RowBuilder   { b.row.ProductText = v; return b }
func (b *RowBuilder) SetPax(v string) *RowBuilder       { b.row.Pax = v; return b }

func (b *RowBuilder) SetBookingRef(v string) *RowBuilder {
	b.row.BookingRefNo = v
	return b
}

func (b *RowBuilder) SetNotes(v string) *RowBuilder {
	b.row.Notes = v
	return b
}

// SetTransactionID sets the file-supplied transaction id.
func (b *RowBuilder) SetTransactionID(v string) *RowBuilder {
	b.row.TransactionID = v
	return b
}

// SetAgent resolves and sets the agent.
func (b *RowBuilder) SetAgent(raw string) *RowBuilder {
	b.mark(fieldmap.Agent, raw)
	id, name, ok := b.values.Agent(raw)
	b.row.AgentID, b.row.AgentName, b.row.AgentResolved = id, name, ok
	if !ok && raw != "" {
		b.row.Diagnostics = append(b.row.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageConvert,
			Line:     b.row.Line,
			Field:    string(fieldmap.Agent),
			Value:    raw,
			Message:  "agent not found; kept as provisional identifier",
		})
	}
	return b
}

// SetCreatedBy resolves and sets the booking owner.
func (b *RowBuilder) SetCreatedBy(raw string) *RowBuilder {
	b.mark(fieldmap.CreatedBy, raw)
	id, ok := b.values.User(raw)
	b.row.CreatedBy = id
	if !ok && raw != "" {
		b.row.Diagnostics = append(b.row.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageConvert,
			Line:     b.row.Line,
			Field:    string(fieldmap.CreatedBy),
			Value:    raw,
			Message:  "user not found; kept as provisional identifier",
		})
	}
	return b
}

// SetEventDate parses and sets the event date.
func (b *RowBuilder) SetEventDate(raw string) *RowBuilder {
	b.mark(fieldmap.EventDate, raw)
	t, err := b.values.Date(raw)
	b.row.EventDate = t
	b.dateSet = true
	if err != nil {
		b.row.warn(types.StageConvert, string(fieldmap.EventDate), raw, "unrecognized date; using today")
	}
	return b
}

// SetPaidAmount parses and sets the paid amount.
func (b *RowBuilder) SetPaidAmount(raw string) *RowBuilder {
	d, err := b.values.Money(raw)
	b.row.PaidAmount = d
	b.row.PaidSupplied = err == nil
	if err != nil {
		b.row.warn(types.StageConvert, string(fieldmap.PaidAmount), raw, "unparsable amount; using 0")
	}
	return b
}

// SetOtherCharge parses and sets the other charge.
func (b *RowBuilder) SetOtherCharge(raw string) *RowBuilder {
	b.mark(fieldmap.OtherCharge, raw)
	d, err := b.values.OtherCharge(raw)
	b.row.OtherCharge = d
	if err != nil {
		b.row.warn(types.StageConvert, string(fieldmap.OtherCharge), raw, "unparsable other charge; left empty")
	}
	return b
}

// SetEnum parses and sets one of the enumerated fields.
func (b *RowBuilder) SetEnum(field fieldmap.Field, raw string) *RowBuilder {
	b.mark(field, raw)
	v, err := b.values.Enum(field, raw)
	switch field {
	case fieldmap.PaymentMode:
		b.row.PaymentMode = v
	case fieldmap.Status:
		b.row.Status = v
	case fieldmap.PaymentConfirmation:
		b.row.PaymentConfirmation = v
	case fieldmap.Type:
		b.row.Type = v
	}
	if err != nil {
		b.row.warn(types.StageConvert, string(field), raw, fmt.Sprintf("unknown value; using '%s'", v))
	}
	return b
}

// SetFreeGuests parses and sets the free guest count.
func (b *RowBuilder) SetFreeGuests(raw string) *RowBuilder {
	if n, ok := b.count(fieldmap.FreeGuests, raw); ok {
		b.row.FreeGuests = n
	}
	return b
}

// SetPackageCount parses a package-count cell. pkg_adult and pkg_child are
// raw counts for the classifier; other package fields name their bucket.
func (b *RowBuilder) SetPackageCount(field fieldmap.Field, raw string) *RowBuilder {
	n, ok := b.count(field, raw)
	if !ok {
		return b
	}

	switch field {
	case fieldmap.PackageAdult:
		b.row.Adult += n
		b.row.HasAdultChild = true
	case fieldmap.PackageChild:
		b.row.Child += n
		b.row.HasAdultChild = true
	default:
		bucket, valid := classifier.ParseBucket(field.Bucket())
		if !valid {
			b.row.warn(types.StageMapping, string(field), raw, "unknown package bucket; ignored")
			return b
		}
		b.row.Explicit.Add(bucket, n)
	}
	return b
}

// AddColumn records a raw cell for column-driven classification.
func (b *RowBuilder) AddColumn(header, value string) *RowBuilder {
	b.row.Columns = append(b.row.Columns, classifier.HeaderCell{Header: header, Value: value})
	return b
}

func (b *RowBuilder) count(field fieldmap.Field, raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, ok := classifier.ParseCount(raw)
	if !ok {
		b.row.warn(types.StageConvert, string(field), raw, "unparsable count; ignored")
	}
	return n, ok
}

// Build finishes the row: split names are joined when no client name was
// given, and a missing date falls back to today.
func (b *RowBuilder) Build() *ParsedRow {
	if b.row.ClientName == "" {
		b.SetClientName(classifier.JoinName(b.row.FirstName, b.row.LastName))
	}
	if !b.dateSet {
		b.row.EventDate = b.values.noon(b.values.Now().In(b.values.loc))
		b.row.warn(types.StageConvert, string(fieldmap.EventDate), "", "no date; using today")
	}
	return b.row
}

// =============================================================================
// ROW CONSTRUCTION
// =============================================================================

// BuildRow converts one raw row through the header mapping.
func BuildRow(raw types.RawRow, mapping *fieldmap.Mapping, values *ValueConverter) *ParsedRow {
	b := NewRowBuilder(raw.Line, values)

	for i, header := range mapping.Headers {
		if i < len(raw.Cells) {
			b.AddColumn(header, raw.Cells[i])
		}
	}

	get := func(f fieldmap.Field) (string, bool) {
		if !mapping.Has(f) {
			return "", false
		}
		return mapping.Value(raw.Cells, f), true
	}

	if v, ok := get(fieldmap.ClientName); ok {
		b.SetClientName(v)
	}
	if v, ok := get(fieldmap.FirstName); ok {
		b.SetFirstName(v)
	}
	if v, ok := get(fieldmap.LastName); ok {
		b.SetLastName(v)
	}
	if v, ok := get(fieldmap.Agent); ok {
		b.SetAgent(v)
	}
	if v, ok := get(fieldmap.Yacht); ok {
		b.SetYachtText(v)
	}
	if v, ok := get(fieldmap.Product); ok {
		b.SetProduct(v)
	}
	if v, ok := get(fieldmap.EventDate); ok && v != "" {
		b.SetEventDate(v)
	}
	if v, ok := get(fieldmap.BookingRefNo); ok {
		b.SetBookingRef(v)
	}
	if v, ok := get(fieldmap.TransactionID); ok {
		b.SetTransactionID(v)
	}
	if v, ok := get(fieldmap.PaidAmount); ok && v != "" {
		b.SetPaidAmount(v)
	}
	if v, ok := get(fieldmap.OtherCharge); ok {
		b.SetOtherCharge(v)
	}
	for _, f := range []fieldmap.Field{fieldmap.PaymentMode, fieldmap.Status, fieldmap.PaymentConfirmation, fieldmap.Type} {
		if v, ok := get(f); ok {
			b.SetEnum(f, v)
		}
	}
	if v, ok := get(fieldmap.Notes); ok {
		b.SetNotes(v)
	}
	if v, ok := get(fieldmap.CreatedBy); ok {
		b.SetCreatedBy(v)
	}
	if v, ok := get(fieldmap.Pax); ok {
		b.SetPax(v)
	}
	if v, ok := get(fieldmap.FreeGuests); ok {
		b.SetFreeGuests(v)
	}
	for _, f := range mapping.PackageFields() {
		b.SetPackageCount(f, mapping.Value(raw.Cells, f))
	}

	return b.Build()
}
