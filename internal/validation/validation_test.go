package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/types"
)

func candidate(client, ref, txn string) *types.CandidateBooking {
	return &types.CandidateBooking{
		ClientName:    client,
		BookingRefNo:  ref,
		TransactionID: txn,
		SourceLines:   []int{2},
	}
}

func TestSameClientDifferentRefFlagged(t *testing.T) {
	d := NewDetector(nil)

	first := candidate("John Doe", "R1", "T1")
	if diags := d.Check(first); len(diags) != 0 {
		t.Fatalf("first candidate flagged: %v", diags)
	}

	second := candidate("john  doe", "R2", "T2")
	diags := d.Check(second)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if diags[0].Severity != types.SeverityWarning || diags[0].Stage != types.StageDuplicate {
		t.Fatalf("diagnostic = %+v", diags[0])
	}
	if !strings.HasPrefix(second.Notes, DuplicateHeader+"\n- client name 'john  doe'") {
		t.Fatalf("Notes = %q", second.Notes)
	}
}

func TestSameClientSameRefNotFlagged(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{
		{ID: "b1", ClientName: "John Doe", BookingRefNo: "R1", TransactionID: "TRN-2025-00001"},
	})

	c := candidate("John Doe", "R1", "")
	if diags := d.Check(c); len(diags) != 0 {
		t.Fatalf("same-ref continuation flagged: %v", diags)
	}
	if c.Notes != "" {
		t.Fatalf("Notes = %q", c.Notes)
	}
}

func TestEmptyRefNeverMatches(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{{ID: "b1", ClientName: "Ann"}})
	if diags := d.Check(candidate("Ann", "", "")); len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
}

func TestRefReusedByOtherClient(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{{ID: "b9", ClientName: "Mary Major", BookingRefNo: "R7"}})

	c := candidate("Rick Roe", "r7", "")
	diags := d.Check(c)
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "booking reference 'r7' is already used by client 'Mary Major' in existing booking b9") {
		t.Fatalf("diagnostics = %v", diags)
	}
}

func TestTransactionIDReuse(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{{ID: "b1", ClientName: "X", TransactionID: "TRN-2025-00001"}})

	if diags := d.Check(candidate("A", "", "TRN-2025-00001")); len(diags) != 1 {
		t.Fatalf("store reuse: got %d diagnostics", len(diags))
	}

	d.Check(candidate("B", "", "T-55"))
	diags := d.Check(candidate("C", "", "t-55"))
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "batch candidate 2") {
		t.Fatalf("batch reuse: %v", diags)
	}
}

func TestMergedTransactionIDReuse(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{{ID: "b1", ClientName: "X", TransactionID: "TRN-2025-00007"}})

	c := candidate("Ann", "R5", "T-NEW")
	diags := d.Check(c, "TRN-2025-00007", "T-OTHER")
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "transaction id 'TRN-2025-00007' is already used by existing booking b1") {
		t.Fatalf("store reuse: %v", diags)
	}
	if !strings.Contains(c.Notes, DuplicateHeader) {
		t.Errorf("Notes = %q", c.Notes)
	}

	diags = d.Check(candidate("Bo", "R6", "t-other"))
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "batch candidate 1") {
		t.Fatalf("batch reuse: %v", diags)
	}
}

func TestNotesAppendedAfterExisting(t *testing.T) {
	d := NewDetector([]types.ExistingBooking{{ID: "b1", ClientName: "Zed"}})
	c := candidate("Zed", "", "")
	c.Notes = "window seat"
	d.Check(c)

	want := "window seat\n[DUPLICATE CHECK]\n- client name 'Zed' already appears in existing booking b1"
	if c.Notes != want {
		t.Fatalf("Notes = %q, want %q", c.Notes, want)
	}
}

func TestCheckAmounts(t *testing.T) {
	c := &types.CandidateBooking{
		AgentName: "Sea Tours",
		YachtName: "Lotus",
		Packages: []types.PackageQuantityLine{
			{PackageID: "p1", Quantity: 2, Rate: decimal.NewFromInt(100)},
		},
		PaidAmount: decimal.RequireFromString("180.01"),
	}

	if diag := CheckAmounts(c, decimal.NewFromInt(10), true); diag != nil {
		t.Fatalf("within tolerance flagged: %+v", diag)
	}

	c.PaidAmount = decimal.RequireFromString("150")
	diag := CheckAmounts(c, decimal.NewFromInt(10), true)
	if diag == nil {
		t.Fatal("expected mismatch diagnostic")
	}
	if diag.Severity != types.SeverityError || !strings.Contains(diag.Message, "agent 'Sea Tours', yacht 'Lotus'") {
		t.Fatalf("diagnostic = %+v", diag)
	}
	if !strings.Contains(diag.Message, "expected net 180.00") {
		t.Fatalf("message = %q", diag.Message)
	}

	if CheckAmounts(c, decimal.NewFromInt(10), false) != nil {
		t.Fatal("undeclared paid amount must not be checked")
	}
}

func TestValidateCandidate(t *testing.T) {
	c := &types.CandidateBooking{
		ClientName:          "Ann",
		YachtID:             "y1",
		EventDate:           time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local),
		Type:                "sharing",
		TransactionID:       "TRN-2025-00001",
		Packages:            []types.PackageQuantityLine{{PackageID: "p1", Quantity: 1}},
		PaymentMode:         "cash",
		Status:              "pending",
		PaymentConfirmation: "unpaid",
	}
	if diags := ValidateCandidate(c); len(diags) != 0 {
		t.Fatalf("valid candidate flagged: %v", diags)
	}

	c.ClientName = ""
	c.Packages = nil
	diags := ValidateCandidate(c)
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %v", len(diags), diags)
	}
	fields := map[string]bool{}
	for _, d := range diags {
		fields[d.Field] = true
	}
	if !fields["clientName"] || !fields["packages"] {
		t.Fatalf("fields = %v", fields)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]types.Diagnostic{
		{Severity: types.SeverityError},
		{Severity: types.SeverityWarning},
		{Severity: types.SeverityWarning},
		{Severity: types.SeverityInfo},
	})
	if s.Errors != 1 || s.Warnings != 2 || s.Infos != 1 {
		t.Fatalf("Summary = %+v", s)
	}
	if !strings.HasPrefix(FormatDiagnostics([]types.Diagnostic{{Severity: "error", Stage: "parse", Message: "x"}}), "Found 1 error(s)") {
		t.Fatal("unexpected format")
	}
}
