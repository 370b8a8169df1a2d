package fieldmap

import (
	"errors"
	"reflect"
	"testing"
)

func TestLookup(t *testing.T) {
	table := DefaultAliasTable()

	tests := []struct {
		token string
		want  Field
		ok    bool
	}{
		{"client_name", ClientName, true},
		{"customer", ClientName, true},
		{"guest_name", ClientName, true},
		{"booking_ref", BookingRefNo, true},
		{"ticket_number", TransactionID, true},
		{"paid_amount", PaidAmount, true},
		{"adults_+_children_+_infants", Pax, true},
		{"adults+children+infants", Pax, true},
		{"no._of_adults", PackageAdult, true},
		{"vip_adult", PackageVIPAdult, true},
		{"favourite_colour", "", false},
	}

	for _, tt := range tests {
		got, ok := table.Lookup(tt.token)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.token, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtend(t *testing.T) {
	table := DefaultAliasTable()
	before := table.Len()

	if err := table.Extend("Lead Pax Name", ClientName); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if f, ok := table.Lookup("lead_pax_name"); !ok || f != ClientName {
		t.Fatalf("extended alias not found: %q %v", f, ok)
	}
	if table.Len() != before+1 {
		t.Fatalf("Len = %d, want %d", table.Len(), before+1)
	}

	// Same mapping again is a no-op.
	if err := table.Extend("lead_pax_name", ClientName); err != nil {
		t.Fatalf("repeat Extend: %v", err)
	}

	// Built-in aliases cannot be re-pointed.
	err := table.Extend("client", Notes)
	if !errors.Is(err, ErrAliasConflict) {
		t.Fatalf("err = %v, want ErrAliasConflict", err)
	}
	if f, _ := table.Lookup("client"); f != ClientName {
		t.Fatalf("built-in alias changed to %q", f)
	}

	if err := table.Extend("x", Field("bogus")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCollapseToken(t *testing.T) {
	tests := map[string]string{
		"Adults + Children / Infants": "adults_children_infants",
		"__ref__no__":                 "ref_no",
		"No. of Adults":               "no_of_adults",
		"":                            "",
	}
	for in, want := range tests {
		if got := CollapseToken(in); got != want {
			t.Errorf("CollapseToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMap(t *testing.T) {
	headers := []string{"guest_name", "client", "ticket_no", "favourite_colour", "adults", "vip_child"}
	m := NewHeaderMapper(nil).Map(headers)

	if !reflect.DeepEqual(m.Unmapped, []string{"favourite_colour"}) {
		t.Fatalf("Unmapped = %q", m.Unmapped)
	}
	if !m.Has(ClientName) || !m.Has(TransactionID) {
		t.Fatal("expected client and transaction columns")
	}

	cells := []string{"", "Jane Roe", "T-1", "blue", "2", "1"}
	if got := m.Value(cells, ClientName); got != "Jane Roe" {
		t.Fatalf("first non-empty client = %q", got)
	}
	cells[0] = "John Doe"
	if got := m.Value(cells, ClientName); got != "John Doe" {
		t.Fatalf("first column should win, got %q", got)
	}

	if got := m.HeaderValue(cells, "favourite_colour"); got != "blue" {
		t.Fatalf("HeaderValue = %q", got)
	}

	want := []Field{PackageAdult, PackageVIPChild}
	if got := m.PackageFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("PackageFields = %q, want %q", got, want)
	}
	if PackageVIPChild.Bucket() != "vip_child" || ClientName.Bucket() != "" {
		t.Fatal("Bucket mismatch")
	}
}
