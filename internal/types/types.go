// =============================================================================
// Booking Import - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - converter   (pipeline orchestration, grouping)
//   - classifier  (catalog resolution)
//   - finance     (totals)
//   - sequence    (transaction-id allocation)
//   - validation  (duplicate and amount checks)
//   - review      (JSON / XLSX review output)
//   - submit      (hand-off to the persistence collaborator)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE ROWS
// =============================================================================

// RawRow is one tokenized data line of the uploaded file.
type RawRow struct {
	// Line is the 1-based line number in the source file.
	Line int

	// Cells contains the trimmed field values in column order.
	Cells []string
}

// =============================================================================
// REFERENCE DATA
// =============================================================================
// Reference data is loaded once per run and never written by the pipeline.

// PackageCatalogEntry is one priced package offered on a yacht.
type PackageCatalogEntry struct {
	ID   string          `yaml:"id" json:"id" validate:"required"`
	Name string          `yaml:"name" json:"name" validate:"required"`
	Rate decimal.Decimal `yaml:"rate" json:"rate"`
}

// Yacht is a vessel together with its package catalog.
type Yacht struct {
	ID       string                `yaml:"id" json:"id" validate:"required"`
	Name     string                `yaml:"name" json:"name" validate:"required"`
	Category string                `yaml:"category" json:"category"`
	Packages []PackageCatalogEntry `yaml:"packages" json:"packages" validate:"dive"`
}

// Agent is a sales agent; the discount is the agent's commission percentage.
type Agent struct {
	ID                 string          `yaml:"id" json:"id" validate:"required"`
	Name               string          `yaml:"name" json:"name" validate:"required"`
	DiscountPercentage decimal.Decimal `yaml:"discount_percentage" json:"discountPercentage"`
}

// User is a staff member who can own a booking.
type User struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name" validate:"required"`
}

// ExistingBooking is a booking already held by the persistence collaborator.
type ExistingBooking struct {
	ID            string                `yaml:"id" json:"id"`
	ClientName    string                `yaml:"client_name" json:"clientName"`
	BookingRefNo  string                `yaml:"booking_ref_no" json:"bookingRefNo"`
	TransactionID string                `yaml:"transaction_id" json:"transactionId"`
	Month         time.Time             `yaml:"month" json:"month"`
	Packages      []PackageQuantityLine `yaml:"packages" json:"packages"`
	PaidAmount    decimal.Decimal       `yaml:"paid_amount" json:"paidAmount"`
}

// ReferenceData is the read-only snapshot consumed by one import run.
type ReferenceData struct {
	Agents   []Agent           `yaml:"agents" json:"agents" validate:"dive"`
	Yachts   []Yacht           `yaml:"yachts" json:"yachts" validate:"dive"`
	Users    []User            `yaml:"users" json:"users" validate:"dive"`
	Bookings []ExistingBooking `yaml:"bookings" json:"bookings"`
}

// FindAgent returns the agent whose id or name matches key (case-insensitive).
func (r *ReferenceData) FindAgent(key string) (Agent, bool) {
	for _, a := range r.Agents {
		if a.ID == key || strings.EqualFold(a.Name, key) {
			return a, true
		}
	}
	return Agent{}, false
}

// FindYacht returns the yacht whose id or name matches key (case-insensitive).
func (r *ReferenceData) FindYacht(key string) (Yacht, bool) {
	for _, y := range r.Yachts {
		if y.ID == key || strings.EqualFold(y.Name, key) {
			return y, true
		}
	}
	return Yacht{}, false
}

// FindUser returns the user whose id or name matches key (case-insensitive).
func (r *ReferenceData) FindUser(key string) (User, bool) {
	for _, u := range r.Users {
		if u.ID == key || strings.EqualFold(u.Name, key) {
			return u, true
		}
	}
	return User{}, false
}

// TransactionIDs returns the transaction ids of the existing bookings.
func (r *ReferenceData) TransactionIDs() []string {
	ids := make([]string, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		if b.TransactionID != "" {
			ids = append(ids, b.TransactionID)
		}
	}
	return ids
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// PackageQuantityLine is the canonical output unit: a quantity of one
// catalog package at that package's rate.
type PackageQuantityLine struct {
	PackageID   string          `yaml:"package_id" json:"packageId" validate:"required"`
	PackageName string          `yaml:"package_name" json:"packageName"`
	Quantity    int             `yaml:"quantity" json:"quantity" validate:"gte=0"`
	Rate        decimal.Decimal `yaml:"rate" json:"rate"`
}

// Amount returns quantity x rate.
func (l PackageQuantityLine) Amount() decimal.Decimal {
	return l.Rate.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CandidateBooking is a fully computed, not-yet-persisted booking.
//
// Invariants:
//   - NetAmount == TotalAmount - CommissionAmount
//   - BalanceAmount == NetAmount - PaidAmount
type CandidateBooking struct {
	ClientName string `json:"clientName" validate:"required"`

	// AgentID / YachtID hold the store id, or the raw name when unresolved
	// (a provisional identifier for the persistence collaborator).
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	YachtID   string `json:"yachtId" validate:"required"`
	YachtName string `json:"yachtName"`

	EventDate time.Time `json:"month" validate:"required"`
	Type      string    `json:"type" validate:"oneof=sharing private"`

	Packages       []PackageQuantityLine `json:"packages" validate:"min=1,dive"`
	FreeGuestCount int                   `json:"freeGuestCount"`

	TransactionID string `json:"transactionId" validate:"required"`
	BookingRefNo  string `json:"bookingRefNo"`

	TotalAmount          decimal.Decimal  `json:"totalAmount"`
	CommissionPercentage decimal.Decimal  `json:"commissionPercentage"`
	CommissionAmount     decimal.Decimal  `json:"commissionAmount"`
	NetAmount            decimal.Decimal  `json:"netAmount"`
	PaidAmount           decimal.Decimal  `json:"paidAmount"`
	BalanceAmount        decimal.Decimal  `json:"balanceAmount"`
	OtherCharge          *decimal.Decimal `json:"otherCharge,omitempty"`

	PaymentMode         string `json:"paymentMode" validate:"oneof=cash card bank_transfer online cheque credit"`
	Status              string `json:"status" validate:"oneof=confirmed pending cancelled completed"`
	PaymentConfirmation string `json:"paymentConfirmation" validate:"oneof=paid unpaid partial"`

	Notes     string    `json:"notes"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`

	// SourceLines lists the file lines merged into this booking.
	SourceLines []int `json:"sourceLines"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// AppendNote appends a paragraph to the booking notes.
func (c *CandidateBooking) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if c.Notes == "" {
		c.Notes = note
		return
	}
	c.Notes += "\n" + note
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Severity levels for diagnostics.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Pipeline stages, used to tag diagnostics.
const (
	StageParse      = "parse"
	StageMapping    = "mapping"
	StageConvert    = "convert"
	StageClassify   = "classify"
	StageGroup      = "group"
	StageFinance    = "finance"
	StageSequence   = "sequence"
	StageDuplicate  = "duplicate"
	StageValidation = "validation"
)

// Diagnostic is an advisory finding produced by any pipeline stage.
// Diagnostics never abort the batch.
type Diagnostic struct {
	// Severity is one of "info", "warning", "error".
	Severity string `json:"severity"`

	// Stage is the pipeline stage that produced the diagnostic.
	Stage string `json:"stage"`

	// Line is the source line number, or 0 when not line-specific.
	Line int `json:"line,omitempty"`

	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(d.Severity), d.Stage)
	if d.Line > 0 {
		fmt.Fprintf(&b, " line %d", d.Line)
	}
	if d.Field != "" {
		fmt.Fprintf(&b, " field '%s'", d.Field)
	}
	fmt.Fprintf(&b, ": %s", d.Message)
	if d.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", d.Value)
	}
	return b.String()
}
