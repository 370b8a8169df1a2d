// =============================================================================
// Booking Import - Value Converter
// =============================================================================
//
// Converts raw cell text into the semantic type of its canonical field.
//
// CONVERSION RULES:
//   - Money / percentage: thousands separators, currency symbols and codes
//     are stripped; empty input is 0, unparsable input is 0 plus a warning
//   - Other charge: signed money that stays nil when empty
//   - Dates: dd-MM-yyyy, dd/MM/yyyy, ISO-8601, dd-MM-yyyy H:mm:ss, then
//     "now" plus a warning; the time of day is forced to local noon
//   - Enums: case-, space- and dash-insensitive; unknown values fall back
//     to a per-field default
//   - Agent / yacht / user names: resolved to store ids, otherwise passed
//     through as provisional identifiers
//   - Anything else is free text, kept verbatim
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// ErrUnparsable marks a cell that could not be converted. The converted
// value is the documented default.
var ErrUnparsable = errors.New("unparsable value")

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Enum describes one enumerated field.
type Enum struct {
	Options []string
	Default string
}

// Enumerated fields and their defaults.
var Enums = map[fieldmap.Field]Enum{
	fieldmap.PaymentMode: {
		Options: []string{"cash", "card", "bank_transfer", "online", "cheque", "credit"},
		Default: "cash",
	},
	fieldmap.Status: {
		Options: []string{"confirmed", "pending", "cancelled", "completed"},
		Default: "pending",
	},
	fieldmap.PaymentConfirmation: {
		Options: []string{"paid", "unpaid", "partial"},
		Default: "unpaid",
	},
	fieldmap.Type: {
		Options: []string{"sharing", "private"},
		Default: "sharing",
	},
}

// =============================================================================
// VALUE CONVERTER
// =============================================================================

// ValueConverter converts cells per canonical field.
type ValueConverter struct {
	ref   *types.ReferenceData
	clock Clock
	loc   *time.Location
}

// NewValueConverter creates a converter. A nil ref resolves nothing, a nil
// clock is the wall clock, and a nil location is time.Local.
func NewValueConverter(ref *types.ReferenceData, clock Clock, loc *time.Location) *ValueConverter {
	if ref == nil {
		ref = &types.ReferenceData{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &ValueConverter{ref: ref, clock: clock, loc: loc}
}

// Convert converts raw per the semantic type of field.
//
// RETURNS:
//   - decimal.Decimal for money, *decimal.Decimal for the other charge,
//     time.Time for dates, string for everything else.
//   - An error wrapping ErrUnparsable when a default was substituted.
func (v *ValueConverter) Convert(field fieldmap.Field, raw string) (interface{}, error) {
	switch field {
	case fieldmap.PaidAmount:
		return v.Money(raw)
	case fieldmap.OtherCharge:
		return v.OtherCharge(raw)
	case fieldmap.EventDate:
		return v.Date(raw)
	case fieldmap.PaymentMode, fieldmap.Status, fieldmap.PaymentConfirmation, fieldmap.Type:
		return v.Enum(field, raw)
	case fieldmap.Agent:
		id, _, _ := v.Agent(raw)
		return id, nil
	case fieldmap.Yacht:
		id, _, _ := v.Yacht(raw)
		return id, nil
	case fieldmap.CreatedBy:
		id, _ := v.User(raw)
		return id, nil
	default:
		return strings.TrimSpace(raw), nil
	}
}

var letterRun = regexp.MustCompile(`\pL+\.?`)

// cleanNumber reduces a formatted amount to digits, '.', and a leading '-'.
// Currency codes ("AED", "Rs.") and symbols are dropped.
func cleanNumber(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	s = letterRun.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	neg := strings.HasPrefix(s, "-")

	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" {
		return ""
	}
	if neg {
		clean = "-" + clean
	}
	return clean
}

// Money parses a money cell. Empty input is zero without error.
//
// EXAMPLE:
//   Money("1,200.50")   => 1200.50
//   Money("AED 1,200")  => 1200
func (v *ValueConverter) Money(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	clean := cleanNumber(raw)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("money '%s': %w", raw, ErrUnparsable)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money '%s': %w", raw, ErrUnparsable)
	}
	return d, nil
}

// Percentage parses a percentage cell such as "12.5%".
func (v *ValueConverter) Percentage(raw string) (decimal.Decimal, error) {
	return v.Money(strings.ReplaceAll(raw, "%", ""))
}

// OtherCharge parses the signed other-charge cell. Empty input is nil.
func (v *ValueConverter) OtherCharge(raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := v.Money(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// dateLayouts are tried in order.
var dateLayouts = []struct {
	layout string
	zoned  bool
}{
	{"02-01-2006", false},
	{"2-1-2006", false},
	{"02/01/2006", false},
	{"2/1/2006", false},
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02", false},
	{"02-01-2006 15:04:05", false},
	{"2-1-2006 15:04:05", false},
}

// Date parses a date cell and normalizes it to local noon. When no layout
// matches, the current day (at noon) is returned with an error.
func (v *ValueConverter) Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, l := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
			t = t.In(v.loc)
		} else {
			t, err = time.ParseInLocation(l.layout, s, v.loc)
		}
		if err == nil {
			return v.noon(t), nil
		}
	}
	return v.noon(v.clock.Now().In(v.loc)), fmt.Errorf("date '%s': %w", raw, ErrUnparsable)
}

func (v *ValueConverter) noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, v.loc)
}

// Enum matches raw against the options of field. Unknown or empty values
// yield the field default and an error.
func (v *ValueConverter) Enum(field fieldmap.Field, raw string) (string, error) {
	enum, ok := Enums[field]
	if !ok {
		return strings.TrimSpace(raw), nil
	}

	key := enumKey(raw)
	for _, opt := range enum.Options {
		if key == opt {
			return opt, nil
		}
	}
	if key == "" {
		return enum.Default, nil
	}
	return enum.Default, fmt.Errorf("%s '%s': %w", field, raw, ErrUnparsable)
}

func enumKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// Agent resolves an agent name. Unresolved names are returned as their own
// provisional id.
func (v *ValueConverter) Agent(raw string) (id, name string, resolved bool) {
	raw = strings.TrimSpace(raw)
	if a, ok := v.ref.FindAgent(raw); ok && raw != "" {
		return a.ID, a.Name, true
	}
	return raw, raw, false
}

// Yacht resolves a yacht name. Unresolved names are returned as their own
// provisional id.
func (v *ValueConverter) Yacht(raw string) (id, name string, resolved bool) {
	raw = strings.TrimSpace(raw)
	if y, ok := v.ref.FindYacht(raw); ok && raw != "" {
		return y.ID, y.Name, true
	}
	return raw, raw, false
}

// User resolves a staff name to a user id.
func (v *ValueConverter) User(raw string) (id string, resolved bool) {
	raw = strings.TrimSpace(raw)
	if u, ok := v.ref.FindUser(raw); ok && raw != "" {
		return u.ID, true
	}
	return raw, false
}

// Now returns the converter clock's current time.
func (v *ValueConverter) Now() time.Time {
	return v.clock.Now()
}
