package review

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/converter"
	"github.com/ginjaninja78/booking-import/internal/types"
)

func sampleResult() *converter.Result {
	rate := decimal.NewFromInt(100)
	candidate := &types.CandidateBooking{
		ClientName:    "Ann Lee",
		AgentName:     "Sea Tours",
		YachtID:       "y1",
		YachtName:     "Lotus",
		EventDate:     time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		Type:          "sharing",
		TransactionID: "TRN-2025-00008",
		BookingRefNo:  "R1",
		Packages: []types.PackageQuantityLine{
			{PackageID: "p-adult", PackageName: "Adult", Quantity: 2, Rate: rate},
			{PackageID: "p-child", PackageName: "Child", Quantity: 1, Rate: decimal.NewFromInt(50)},
		},
		TotalAmount:          decimal.NewFromInt(250),
		CommissionPercentage: decimal.NewFromInt(10),
		CommissionAmount:     decimal.NewFromInt(25),
		NetAmount:            decimal.NewFromInt(225),
		PaidAmount:           decimal.NewFromInt(250),
		BalanceAmount:        decimal.NewFromInt(-25),
		PaymentMode:          "card",
		Status:               "confirmed",
		PaymentConfirmation:  "paid",
		SourceLines:          []int{2, 3},
		Diagnostics: []types.Diagnostic{
			{Severity: types.SeverityError, Stage: types.StageValidation, Message: "amount mismatch"},
		},
	}

	return &converter.Result{
		BatchID:     "batch-1",
		SourceFile:  "in/direct.csv",
		Source:      classifier.SourceDefault,
		Candidates:  []*types.CandidateBooking{candidate},
		SkippedRows: 1,
		Diagnostics: []types.Diagnostic{
			{Severity: types.SeverityWarning, Stage: types.StageParse, Line: 4, Message: "row skipped"},
			{Severity: types.SeverityInfo, Stage: types.StageSequence, Message: "allocated TRN-2025-00008"},
			candidate.Diagnostics[0],
		},
		Stats: converter.ProcessingStats{RowsProcessed: 2, CandidatesCreated: 1, PackageLines: 2, Errors: 1, Warnings: 1},
	}
}

func TestGenerateJSON(t *testing.T) {
	options := DefaultGenerateOptions()
	options.GeneratedAt = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

	out, err := GenerateJSON(sampleResult(), options)
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}

	var doc struct {
		BatchID    string `json:"batchId"`
		Source     string `json:"source"`
		Candidates []struct {
			TransactionID string `json:"transactionId"`
			NetAmount     string `json:"netAmount"`
		} `json:"candidates"`
		Diagnostics []types.Diagnostic `json:"diagnostics"`
		Stats       Stats              `json:"stats"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if doc.BatchID != "batch-1" || doc.Source != "DEFAULT" {
		t.Errorf("header = %q, %q", doc.BatchID, doc.Source)
	}
	if len(doc.Candidates) != 1 || doc.Candidates[0].NetAmount != "225" {
		t.Errorf("candidates = %+v", doc.Candidates)
	}
	if len(doc.Diagnostics) != 3 || doc.Stats.SkippedRows != 1 {
		t.Errorf("diagnostics = %d, skipped = %d", len(doc.Diagnostics), doc.Stats.SkippedRows)
	}
}

func TestGenerateJSONDropsInfo(t *testing.T) {
	out, err := GenerateJSON(sampleResult(), GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if bytes.Contains(out, []byte("allocated TRN")) {
		t.Fatal("info diagnostic should be filtered")
	}
	if bytes.Contains(out, []byte("\n  ")) {
		t.Fatal("expected compact output")
	}
}

func TestGenerateJSONEmptyResult(t *testing.T) {
	out, err := GenerateJSON(&converter.Result{BatchID: "b"}, GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if !bytes.Contains(out, []byte(`"candidates":[]`)) {
		t.Fatalf("output = %s", out)
	}
}

func TestGenerateWorkbook(t *testing.T) {
	out, err := GenerateWorkbook(sampleResult(), DefaultGenerateOptions())
	if err != nil {
		t.Fatalf("GenerateWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SheetCandidates {
		t.Fatalf("sheets = %v", sheets)
	}

	tests := []struct {
		sheet string
		cell  string
		want  string
	}{
		{SheetCandidates, "A1", "Transaction ID"},
		{SheetCandidates, "A2", "TRN-2025-00008"},
		{SheetCandidates, "F2", "2025-07-01"},
		{SheetCandidates, "H2", "3"},
		{SheetCandidates, "M2", "225.00"},
		{SheetCandidates, "U2", "2, 3"},
		{SheetCandidates, "V2", "1"},
		{SheetPackageLines, "C3", "Child"},
		{SheetPackageLines, "F2", "200.00"},
		{SheetDiagnostics, "C2", "4"},
		{SheetDiagnostics, "F4", "amount mismatch"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s): %v", tt.sheet, tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s!%s = %q, want %q", tt.sheet, tt.cell, got, tt.want)
		}
	}
}
