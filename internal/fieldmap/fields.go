// =============================================================================
// Booking Import - Field Alias Table
// =============================================================================
//
// The alias table maps normalized header tokens to canonical field names.
// It is many-to-one: every booking channel names its columns differently.
//
// VERSIONING:
//   Existing entries are never renamed or re-pointed; files that imported
//   correctly before must keep mapping identically. New vendor variants are
//   added with Extend (or an alias template, see xlsxparser).
//
// =============================================================================

package fieldmap

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Field is a canonical field name.
type Field string

// Canonical fields.
const (
	ClientName          Field = "clientName"
	FirstName           Field = "firstName"
	LastName            Field = "lastName"
	Agent               Field = "agent"
	Yacht               Field = "yacht"
	Product             Field = "product"
	EventDate           Field = "eventDate"
	BookingRefNo        Field = "bookingRefNo"
	TransactionID       Field = "transactionId"
	PaidAmount          Field = "paidAmount"
	OtherCharge         Field = "otherCharge"
	PaymentMode         Field = "paymentMode"
	Status              Field = "status"
	PaymentConfirmation Field = "paymentConfirmation"
	Type                Field = "type"
	Notes               Field = "notes"
	CreatedBy           Field = "createdBy"
	Pax                 Field = "pax"
	FreeGuests          Field = "freeGuests"
)

// PackagePrefix marks fields carrying raw per-row package counts.
const PackagePrefix = "pkg_"

// Package count fields. PackageAdult and PackageChild are raw counts that
// the classifier redistributes; the others name a bucket explicitly.
const (
	PackageAdult          Field = "pkg_adult"
	PackageChild          Field = "pkg_child"
	PackageAdultAlcohol   Field = "pkg_adult_alcohol"
	PackageVIPAdult       Field = "pkg_vip_adult"
	PackageVIPChild       Field = "pkg_vip_child"
	PackageVIPAlcohol     Field = "pkg_vip_alcohol"
	PackageRoyalAdult     Field = "pkg_royal_adult"
	PackageRoyalChild     Field = "pkg_royal_child"
	PackageRoyalAlcohol   Field = "pkg_royal_alcohol"
	PackageTopDeckAdult   Field = "pkg_top_deck_adult"
	PackageTopDeckChild   Field = "pkg_top_deck_child"
	PackageTopDeckAlcohol Field = "pkg_top_deck_alcohol"
)

// IsPackage reports whether f carries a package count.
func (f Field) IsPackage() bool {
	return strings.HasPrefix(string(f), PackagePrefix)
}

// Bucket returns the bucket name of a package field ("vip_adult" for
// "pkg_vip_adult"), or "" for other fields.
func (f Field) Bucket() string {
	if !f.IsPackage() {
		return ""
	}
	return strings.TrimPrefix(string(f), PackagePrefix)
}

var knownFields = map[Field]bool{
	ClientName: true, FirstName: true, LastName: true, Agent: true,
	Yacht: true, Product: true, EventDate: true, BookingRefNo: true,
	TransactionID: true, PaidAmount: true, OtherCharge: true,
	PaymentMode: true, Status: true, PaymentConfirmation: true, Type: true,
	Notes: true, CreatedBy: true, Pax: true, FreeGuests: true,
	PackageAdult: true, PackageChild: true, PackageAdultAlcohol: true,
	PackageVIPAdult: true, PackageVIPChild: true, PackageVIPAlcohol: true,
	PackageRoyalAdult: true, PackageRoyalChild: true, PackageRoyalAlcohol: true,
	PackageTopDeckAdult: true, PackageTopDeckChild: true, PackageTopDeckAlcohol: true,
}

// IsKnown reports whether f is a canonical field.
func IsKnown(f Field) bool {
	return knownFields[f]
}

// builtinAliases is the versioned alias table. Append only.
var builtinAliases = map[Field][]string{
	ClientName: {"client_name", "clientname", "client", "customer_name", "customer",
		"guest_name", "guest", "lead_guest", "lead_passenger", "name", "full_name",
		"passenger_name", "booking_name"},
	FirstName: {"first_name", "firstname", "given_name", "forename"},
	LastName:  {"last_name", "lastname", "surname", "family_name"},
	Agent:     {"agent", "agent_name", "agency", "sales_agent", "reseller", "partner"},
	Yacht:     {"yacht", "yacht_name", "vessel", "boat", "cruise", "ship"},
	Product: {"product", "product_name", "tour", "tour_name", "activity", "item",
		"description", "package", "package_name", "package_type", "experience", "option"},
	EventDate: {"date", "event_date", "travel_date", "cruise_date", "month",
		"tour_date", "service_date", "booking_date", "activity_date"},
	BookingRefNo: {"booking_ref", "booking_ref_no", "booking_reference", "bookingrefno",
		"ref_no", "ref", "reference", "order_id", "order_number", "order_no",
		"booking_id", "booking_no", "voucher", "voucher_no"},
	TransactionID: {"transaction_id", "transactionid", "ticket_number", "ticket_no",
		"ticket", "trn", "txn_id"},
	PaidAmount: {"paid", "paid_amount", "paidamount", "amount_paid", "amount",
		"total_paid", "price", "total", "total_amount", "net_price"},
	OtherCharge:         {"other_charge", "othercharge", "extra_charge", "extras", "additional_charge"},
	PaymentMode:         {"payment_mode", "paymentmode", "payment_method", "payment_type", "mode_of_payment"},
	Status:              {"status", "booking_status", "state"},
	PaymentConfirmation: {"payment_confirmation", "paymentconfirmation", "payment_status", "paid_status"},
	Type:                {"type", "booking_type", "cruise_type", "sharing_private"},
	Notes:               {"notes", "note", "remarks", "remark", "comments", "comment", "special_requests"},
	CreatedBy:           {"created_by", "createdby", "user", "staff", "sales_person", "salesperson", "booked_by"},
	Pax: {"pax", "passengers", "guests", "adults_children_infants", "adult_child_infant",
		"adults+children+infants", "no_of_pax", "total_pax"},
	FreeGuests:   {"free_guests", "freeguests", "foc", "complimentary", "free_guest_count"},
	PackageAdult: {"adult", "adults", "no_of_adults", "adult_qty", "adult_count", "pkg_adult"},
	PackageChild: {"child", "children", "kids", "no_of_children", "child_qty", "child_count", "pkg_child"},
	PackageAdultAlcohol:   {"adult_alcohol", "pkg_adult_alcohol"},
	PackageVIPAdult:       {"vip_adult", "pkg_vip_adult"},
	PackageVIPChild:       {"vip_child", "pkg_vip_child"},
	PackageVIPAlcohol:     {"vip_alcohol", "pkg_vip_alcohol"},
	PackageRoyalAdult:     {"royal_adult", "pkg_royal_adult"},
	PackageRoyalChild:     {"royal_child", "pkg_royal_child"},
	PackageRoyalAlcohol:   {"royal_alcohol", "pkg_royal_alcohol"},
	PackageTopDeckAdult:   {"top_deck_adult", "pkg_top_deck_adult"},
	PackageTopDeckChild:   {"top_deck_child", "pkg_top_deck_child"},
	PackageTopDeckAlcohol: {"top_deck_alcohol", "pkg_top_deck_alcohol"},
}

// ErrAliasConflict is returned when an extension would re-point an
// existing alias.
var ErrAliasConflict = errors.New("alias already maps to a different field")

// =============================================================================
// ALIAS TABLE
// =============================================================================

// FieldAliasTable maps normalized header tokens to canonical fields.
type FieldAliasTable struct {
	aliases map[string]Field
}

// DefaultAliasTable returns a table holding the built-in aliases.
func DefaultAliasTable() *FieldAliasTable {
	t := &FieldAliasTable{aliases: make(map[string]Field)}
	for field, aliases := range builtinAliases {
		for _, alias := range aliases {
			t.aliases[alias] = field
		}
	}
	return t
}

// Clone returns an independent copy of the table.
func (t *FieldAliasTable) Clone() *FieldAliasTable {
	c := &FieldAliasTable{aliases: make(map[string]Field, len(t.aliases))}
	for alias, f := range t.aliases {
		c.aliases[alias] = f
	}
	return c
}

// Lookup resolves a normalized header token. It tries the token as given,
// then with every run of non-alphanumerics collapsed to "_".
func (t *FieldAliasTable) Lookup(token string) (Field, bool) {
	if f, ok := t.aliases[token]; ok {
		return f, true
	}
	if collapsed := CollapseToken(token); collapsed != token {
		f, ok := t.aliases[collapsed]
		return f, ok
	}
	return "", false
}

// Extend adds an alias. Adding an alias that already maps to the same field
// is a no-op; re-pointing an existing alias returns ErrAliasConflict.
func (t *FieldAliasTable) Extend(alias string, field Field) error {
	if !IsKnown(field) {
		return fmt.Errorf("unknown canonical field '%s'", field)
	}

	token := CollapseToken(alias)
	if token == "" {
		return fmt.Errorf("alias '%s' is empty after normalization", alias)
	}

	if existing, ok := t.aliases[token]; ok {
		if existing == field {
			return nil
		}
		return fmt.Errorf("alias '%s' -> '%s': %w (maps to '%s')", token, field, ErrAliasConflict, existing)
	}

	t.aliases[token] = field
	return nil
}

// Len returns the number of aliases.
func (t *FieldAliasTable) Len() int {
	return len(t.aliases)
}

// CollapseToken lowercases s and collapses every run of characters other
// than letters and digits to a single "_", trimming "_" at both ends.
//
// EXAMPLE:
//   CollapseToken("Adults + Children / Infants") => "adults_children_infants"
func CollapseToken(s string) string {
	var b strings.Builder
	pending := false

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	return b.String()
}
