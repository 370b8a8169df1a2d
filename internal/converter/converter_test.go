package converter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/csvparser"
	"github.com/ginjaninja78/booking-import/internal/types"
	"github.com/ginjaninja78/booking-import/internal/validation"
)

func testReference() *types.ReferenceData {
	return &types.ReferenceData{
		Agents: []types.Agent{
			{ID: "a1", Name: "Sea Tours", DiscountPercentage: decimal.NewFromInt(10)},
		},
		Yachts: []types.Yacht{{
			ID:   "y1",
			Name: "Lotus",
			Packages: []types.PackageCatalogEntry{
				{ID: "p-adult", Name: "Adult", Rate: decimal.NewFromInt(100)},
				{ID: "p-child", Name: "Child", Rate: decimal.NewFromInt(50)},
				{ID: "p-alc", Name: "Adult Alcohol", Rate: decimal.NewFromInt(150)},
				{ID: "p-vip", Name: "VIP Adult", Rate: decimal.NewFromInt(200)},
				{ID: "p-vipc", Name: "VIP Child", Rate: decimal.NewFromInt(120)},
			},
		}},
		Users: []types.User{{ID: "u1", Name: "Dana"}},
		Bookings: []types.ExistingBooking{
			{ID: "b1", ClientName: "Old Client", BookingRefNo: "R0", TransactionID: "TRN-2025-00007"},
		},
	}
}

func parse(t *testing.T, content string) *csvparser.CSVData {
	t.Helper()
	data, err := csvparser.Parse(strings.NewReader(content), csvparser.Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return data
}

func newTestConverter() *Converter {
	return New(testReference(), Options{
		CurrentActorID: "u1",
		Clock:          testClock,
		Location:       time.UTC,
	})
}

const directFile = "client_name,agent,yacht,date,booking_ref,transaction_id,adult,child,paid,status\n" +
	"Ann Lee,Sea Tours,Lotus - VIP Soft,01-03-2025,R1,,2,1,,confirmed\n" +
	"Ann Lee,Sea Tours,Lotus - VIP Soft,01-03-2025,R1,,1,0,,confirmed\n" +
	"Old Client,,Lotus - Food Only,2025-03-02,R9,,2,0,180,pending\n"

func TestRunDirectFile(t *testing.T) {
	result, err := newTestConverter().Run(context.Background(), parse(t, directFile))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Source != classifier.SourceDefault {
		t.Fatalf("Source = %s, want DEFAULT", result.Source)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(result.Candidates))
	}

	ann := result.Candidates[0]
	if ann.YachtID != "y1" || ann.AgentID != "a1" {
		t.Errorf("yacht/agent = %q/%q", ann.YachtID, ann.AgentID)
	}
	if len(ann.Packages) != 2 ||
		ann.Packages[0].PackageID != "p-vip" || ann.Packages[0].Quantity != 3 ||
		ann.Packages[1].PackageID != "p-vipc" || ann.Packages[1].Quantity != 1 {
		t.Fatalf("Packages = %+v", ann.Packages)
	}
	if len(ann.SourceLines) != 2 || ann.SourceLines[0] != 2 || ann.SourceLines[1] != 3 {
		t.Errorf("SourceLines = %v", ann.SourceLines)
	}

	amounts := map[string]decimal.Decimal{
		"total":      ann.TotalAmount,
		"commission": ann.CommissionAmount,
		"net":        ann.NetAmount,
		"paid":       ann.PaidAmount,
		"balance":    ann.BalanceAmount,
	}
	want := map[string]string{"total": "720", "commission": "72", "net": "648", "paid": "720", "balance": "-72"}
	for k, w := range want {
		if !amounts[k].Equal(decimal.RequireFromString(w)) {
			t.Errorf("%s = %s, want %s", k, amounts[k], w)
		}
	}

	if ann.TransactionID != "TRN-2025-00008" {
		t.Errorf("TransactionID = %q, want TRN-2025-00008", ann.TransactionID)
	}
	if ann.CreatedBy != "u1" || !ann.CreatedAt.Equal(testClock.t) {
		t.Errorf("CreatedBy/CreatedAt = %q/%v", ann.CreatedBy, ann.CreatedAt)
	}
	if strings.Contains(ann.Notes, validation.DuplicateHeader) {
		t.Errorf("unexpected duplicate flag: %q", ann.Notes)
	}

	old := result.Candidates[1]
	if old.TransactionID != "TRN-2025-00009" {
		t.Errorf("TransactionID = %q, want TRN-2025-00009", old.TransactionID)
	}
	if !strings.HasPrefix(old.Notes, validation.DuplicateHeader) ||
		!strings.Contains(old.Notes, "existing booking b1") {
		t.Errorf("Notes = %q", old.Notes)
	}

	var mismatch bool
	for _, d := range old.Diagnostics {
		if d.Severity == types.SeverityError && strings.Contains(d.Message, "expected net 200.00") {
			mismatch = true
		}
	}
	if !mismatch {
		t.Errorf("missing amount mismatch diagnostic: %v", old.Diagnostics)
	}

	if result.Stats.AllocatedIDs != 2 || result.Stats.CandidatesCreated != 2 || result.Stats.PackageLines != 3 {
		t.Errorf("Stats = %+v", result.Stats)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	conv := newTestConverter()

	first, err := conv.Run(context.Background(), parse(t, directFile))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := conv.Run(context.Background(), parse(t, directFile))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := range first.Candidates {
		a, b := first.Candidates[i], second.Candidates[i]
		if a.TransactionID != b.TransactionID {
			t.Errorf("candidate %d: TransactionID %q then %q", i, a.TransactionID, b.TransactionID)
		}
		if len(a.Packages) != len(b.Packages) {
			t.Fatalf("candidate %d: package lines differ", i)
		}
		for j := range a.Packages {
			pa, pb := a.Packages[j], b.Packages[j]
			if pa.PackageID != pb.PackageID || pa.Quantity != pb.Quantity || !pa.Rate.Equal(pb.Rate) {
				t.Errorf("candidate %d line %d: %+v then %+v", i, j, a.Packages[j], b.Packages[j])
			}
		}
	}
}

func TestRunResellerFeed(t *testing.T) {
	content := "ticket_number,order_id,customer,product,adult,child\n" +
		"T-100,ORD1,Mia Wong,Lotus Mega Yacht - VIP Soft Drinks,2,1\n" +
		"T-101,ORD1,Mia Wong,Lotus Mega Yacht - VIP Soft Drinks,1,0\n" +
		"T-102,,Sam Poe,Lotus Mega Yacht - Unlimited Alcoholic Drinks,4,0\n"

	result, err := newTestConverter().Run(context.Background(), parse(t, content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Source != classifier.SourceReseller {
		t.Fatalf("Source = %s, want RESELLER", result.Source)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(result.Candidates))
	}

	mia := result.Candidates[0]
	if mia.TransactionID != "T-100" || !strings.Contains(mia.Notes, "Merged tickets: T-101") {
		t.Errorf("TransactionID/Notes = %q/%q", mia.TransactionID, mia.Notes)
	}
	if mia.YachtID != "y1" || len(mia.Packages) != 2 || mia.Packages[0].Quantity != 3 {
		t.Errorf("Mia = yacht %q packages %+v", mia.YachtID, mia.Packages)
	}

	sam := result.Candidates[1]
	if len(sam.Packages) != 1 || sam.Packages[0].PackageID != "p-alc" || sam.Packages[0].Quantity != 4 {
		t.Errorf("Sam packages = %+v", sam.Packages)
	}
	if result.Stats.AllocatedIDs != 0 {
		t.Errorf("AllocatedIDs = %d, want 0", result.Stats.AllocatedIDs)
	}
}

func TestRunResellerYachtColumnWins(t *testing.T) {
	content := "ticket_number,order_id,customer,yacht,product,adult\n" +
		"T-200,ORD5,Kim Ho,Lotus,Marina Dinner Cruise - VIP Soft,2\n"

	result, err := newTestConverter().Run(context.Background(), parse(t, content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	c := result.Candidates[0]
	if c.YachtID != "y1" {
		t.Fatalf("YachtID = %q, want y1", c.YachtID)
	}
	if len(c.Packages) != 1 || c.Packages[0].PackageID != "p-vip" || c.Packages[0].Quantity != 2 {
		t.Fatalf("Packages = %+v", c.Packages)
	}
	if !c.TotalAmount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("TotalAmount = %s, want 400", c.TotalAmount)
	}
}

func TestRunFlagsReusedMergedTicket(t *testing.T) {
	content := "ticket_number,order_id,customer,product,adult\n" +
		"T-NEW,R5,Kim Ho,Lotus - VIP Soft,1\n" +
		"TRN-2025-00007,R5,Kim Ho,Lotus - VIP Soft,1\n"

	result, err := newTestConverter().Run(context.Background(), parse(t, content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	c := result.Candidates[0]
	if c.TransactionID != "T-NEW" || !strings.Contains(c.Notes, "Merged tickets: TRN-2025-00007") {
		t.Fatalf("TransactionID/Notes = %q/%q", c.TransactionID, c.Notes)
	}
	if !strings.Contains(c.Notes, "transaction id 'TRN-2025-00007' is already used by existing booking b1") {
		t.Errorf("merged ticket reuse not flagged: %q", c.Notes)
	}
}

func TestRunUnknownYachtDropsLines(t *testing.T) {
	content := "client,yacht,adult,date\nZoe,Ghost Ship,2,01-03-2025\n"

	result, err := newTestConverter().Run(context.Background(), parse(t, content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	c := result.Candidates[0]
	if c.YachtID != "Ghost Ship" || len(c.Packages) != 0 {
		t.Fatalf("yacht %q packages %+v", c.YachtID, c.Packages)
	}

	var provisional, dropped bool
	for _, d := range c.Diagnostics {
		if strings.Contains(d.Message, "provisional") {
			provisional = true
		}
		if strings.Contains(d.Message, "dropped") {
			dropped = true
		}
	}
	if !provisional || !dropped {
		t.Fatalf("diagnostics = %v", c.Diagnostics)
	}
}

func TestRunReportsBlankRows(t *testing.T) {
	content := "client,yacht,adult,date\n\nZoe,Lotus - Food Only,2,01-03-2025\n\n"

	result, err := newTestConverter().Run(context.Background(), parse(t, content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BlankRows != 2 {
		t.Fatalf("BlankRows = %d, want 2", result.BlankRows)
	}

	var reported bool
	for _, d := range result.Diagnostics {
		if d.Stage == types.StageParse && d.Severity == types.SeverityInfo && d.Value == "2" {
			reported = true
		}
	}
	if !reported {
		t.Errorf("blank rows not reported: %v", result.Diagnostics)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestConverter().Run(ctx, parse(t, directFile))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Fatal("partial result returned")
	}
}

func TestGroupRows(t *testing.T) {
	rows := []*ParsedRow{
		{Line: 2, BookingRefNo: "R1"},
		{Line: 3},
		{Line: 4, BookingRefNo: " r1 "},
		{Line: 5},
		{Line: 6, BookingRefNo: "R2"},
	}

	groups := GroupRows(rows)
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(groups))
	}
	if len(groups[0].Rows) != 2 || groups[0].Rows[1].Line != 4 {
		t.Errorf("first group = %+v", groups[0].Rows)
	}
	if groups[1].Key != "" || groups[2].Key != "" || groups[3].Key != "r2" {
		t.Errorf("keys = %q %q %q", groups[1].Key, groups[2].Key, groups[3].Key)
	}
}

func TestAggregateGroupYachtFromFirstNamingRow(t *testing.T) {
	g := &Group{Key: "r1", Rows: []*ParsedRow{
		{Line: 2, BookingRefNo: "R1"},
		{Line: 3, BookingRefNo: "R1", Yacht: "Lotus"},
		{Line: 4, BookingRefNo: "R1", Yacht: "Royale"},
	}}

	if agg := AggregateGroup(g); agg.Yacht != "Lotus" {
		t.Fatalf("Yacht = %q, want Lotus", agg.Yacht)
	}
}

func TestBuildRowJoinsNames(t *testing.T) {
	data := parse(t, "first_name,last_name,pax,yacht\n John , Doe ,8 + 1 + 0,Lotus\n")
	conv := newTestConverter()
	mapping := conv.mapper.Map(data.Headers)

	row := BuildRow(data.Rows[0], mapping, conv.values)
	if row.ClientName != "John Doe" {
		t.Fatalf("ClientName = %q", row.ClientName)
	}
	if row.Pax != "8 + 1 + 0" {
		t.Fatalf("Pax = %q", row.Pax)
	}
}
