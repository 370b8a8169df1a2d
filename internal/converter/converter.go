// =============================================================================
// Booking Import - Converter Module
// =============================================================================
//
// This module contains the core import logic. It orchestrates the pipeline
// for a single parsed file, from header mapping to validated candidates.
//
// IMPORT PIPELINE:
//   1. Map the headers onto canonical fields
//   2. Detect the source format (DEFAULT, RESELLER, MASTER)
//   3. Convert and classify every row
//   4. Group rows by booking reference and aggregate them
//   5. Resolve bucket counts against the yacht catalog
//   6. Compute the financial totals
//   7. Allocate missing transaction ids
//   8. Flag duplicates and validate amounts and required fields
//
// CONCURRENCY:
//   A run is single-threaded; order-sensitive state (the sequence counter,
//   the batch-so-far seen by the duplicate detector) is owned by the run.
//   The context is checked between rows and between stages.
//
// =============================================================================

package converter

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/csvparser"
	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/finance"
	"github.com/ginjaninja78/booking-import/internal/sequence"
	"github.com/ginjaninja78/booking-import/internal/types"
	"github.com/ginjaninja78/booking-import/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of importing a single file.
type Result struct {
	// BatchID identifies this run.
	BatchID string

	// SourceFile is the path of the imported file, when known.
	SourceFile string

	// Source is the detected (or forced) source format.
	Source classifier.Source

	// Candidates are the computed bookings in output order.
	Candidates []*types.CandidateBooking

	// SkippedRows counts structurally invalid rows.
	SkippedRows int

	// BlankRows counts rows with no content.
	BlankRows int

	// Diagnostics holds every diagnostic of the run, file-level ones first.
	Diagnostics []types.Diagnostic

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows converted.
	RowsProcessed int

	// CandidatesCreated is the number of candidate bookings produced.
	CandidatesCreated int

	// PackageLines is the number of package lines across all candidates.
	PackageLines int

	// AllocatedIDs is the number of newly allocated transaction ids.
	AllocatedIDs int

	Errors   int
	Warnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configures a converter.
type Options struct {
	// Source forces the source format. Nil means detect from headers.
	Source *classifier.Source

	// CurrentActorID owns candidates whose file gave no owner.
	CurrentActorID string

	// Clock and Location drive "today" and date normalization.
	Clock    Clock
	Location *time.Location

	// ResellerAliases extend the reseller yacht alias table.
	ResellerAliases map[string]string

	// MasterColumns extend the generated master-sheet column table.
	MasterColumns classifier.MasterTable

	// AliasTable is the header alias table; nil means the built-in one.
	AliasTable *fieldmap.FieldAliasTable

	Logger Logger
}

// Converter imports parsed files against one reference snapshot.
type Converter struct {
	ref    *types.ReferenceData
	opts   Options
	values *ValueConverter
	mapper *fieldmap.HeaderMapper
	master classifier.MasterTable

	// logger is used for logging.
	// CUSTOMIZATION: Pass any Logger implementation in Options.
	logger Logger
}

// Logger is an interface for logging.
// CUSTOMIZATION: Implement this interface with your preferred logging library.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - ref: The read-only reference snapshot (agents, yachts, users, bookings).
//   - opts: Source override, actor, clock and alias extensions.
//
// RETURNS:
//   - A new Converter instance.
func New(ref *types.ReferenceData, opts Options) *Converter {
	if ref == nil {
		ref = &types.ReferenceData{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.AliasTable == nil {
		opts.AliasTable = fieldmap.DefaultAliasTable()
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Converter{
		ref:    ref,
		opts:   opts,
		values: NewValueConverter(ref, opts.Clock, opts.Location),
		mapper: fieldmap.NewHeaderMapper(opts.AliasTable),
		master: classifier.MasterTableFor(ref.Yachts, opts.MasterColumns),
		logger: logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the import pipeline for one parsed file.
//
// RETURNS:
//   - The candidates and diagnostics. Advisory problems never fail a run.
//   - An error only when ctx is cancelled; no partial result is returned.
func (c *Converter) Run(ctx context.Context, data *csvparser.CSVData) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		BatchID:     uuid.New().String(),
		SourceFile:  data.SourceFile,
		SkippedRows: data.SkippedRows,
		BlankRows:   data.BlankRows,
		Diagnostics: append([]types.Diagnostic(nil), data.Diagnostics...),
	}

	c.logger.Info("Importing %d rows (batch %s)", len(data.Rows), result.BatchID)
	if data.BlankRows > 0 {
		c.logger.Debug("Skipped %d blank row(s)", data.BlankRows)
		result.Diagnostics = append(result.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageParse,
			Value:    strconv.Itoa(data.BlankRows),
			Message:  "blank rows skipped",
		})
	}

	// =========================================================================
	// STEP 1: MAP HEADERS
	// =========================================================================

	mapping := c.mapper.Map(data.Headers)
	for _, h := range mapping.Unmapped {
		if _, isMaster := c.master[h]; isMaster {
			continue
		}
		result.Diagnostics = append(result.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageMapping,
			Value:    h,
			Message:  "header has no alias; column ignored",
		})
	}
	c.logger.Debug("Mapped %d of %d headers", len(mapping.Columns), len(data.Headers))

	// =========================================================================
	// STEP 2: DETECT SOURCE
	// =========================================================================

	if c.opts.Source != nil {
		result.Source = *c.opts.Source
	} else {
		result.Source = classifier.Detect(data.Headers, c.opts.AliasTable, c.master)
	}
	cls := classifier.New(result.Source, c.ref, classifier.Options{
		ResellerAliases: c.opts.ResellerAliases,
		MasterColumns:   c.master,
	})
	c.logger.Info("Source format: %s", result.Source)

	// =========================================================================
	// STEP 3: CONVERT AND CLASSIFY ROWS
	// =========================================================================

	rows := make([]*ParsedRow, 0, len(data.Rows))
	for _, raw := range data.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := BuildRow(raw, mapping, c.values)
		row.ApplyClassification(cls.Classify(row.ClassifierInput()))
		rows = append(rows, row)
	}
	result.Stats.RowsProcessed = len(rows)

	// =========================================================================
	// STEP 4: GROUP AND AGGREGATE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := GroupRows(rows)
	aggregates := make([]*Aggregate, len(groups))
	for i, g := range groups {
		aggregates[i] = AggregateGroup(g)
	}
	c.logger.Debug("Grouped %d rows into %d bookings", len(rows), len(groups))

	// =========================================================================
	// STEP 5-7: RESOLVE PACKAGES, COMPUTE TOTALS, ALLOCATE IDS
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocator := sequence.NewAllocator(c.ref.TransactionIDs())
	for _, agg := range aggregates {
		allocator.Observe(agg.TransactionID)
		for _, id := range agg.MergedTransactionIDs {
			allocator.Observe(id)
		}
	}

	now := c.opts.Clock.Now()
	discounts := make([]decimal.Decimal, len(aggregates))
	for i, agg := range aggregates {
		candidate, discount := c.buildCandidate(agg, now)
		if candidate.TransactionID == "" {
			candidate.TransactionID = allocator.Next(candidate.EventDate.Year())
			result.Stats.AllocatedIDs++
			candidate.Diagnostics = append(candidate.Diagnostics, types.Diagnostic{
				Severity: types.SeverityInfo,
				Stage:    types.StageSequence,
				Line:     agg.SourceLines[0],
				Value:    candidate.TransactionID,
				Message:  "transaction id allocated",
			})
		}
		discounts[i] = discount
		result.Candidates = append(result.Candidates, candidate)
	}

	// =========================================================================
	// STEP 8: DUPLICATES AND VALIDATION
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detector := validation.NewDetector(c.ref.Bookings)
	for i, candidate := range result.Candidates {
		candidate.Diagnostics = append(candidate.Diagnostics, detector.Check(candidate, aggregates[i].MergedTransactionIDs...)...)
		if diag := validation.CheckAmounts(candidate, discounts[i], aggregates[i].PaidSupplied); diag != nil {
			candidate.Diagnostics = append(candidate.Diagnostics, *diag)
		}
		candidate.Diagnostics = append(candidate.Diagnostics, validation.ValidateCandidate(candidate)...)

		result.Diagnostics = append(result.Diagnostics, candidate.Diagnostics...)
		result.Stats.PackageLines += len(candidate.Packages)
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	summary := validation.Summarize(result.Diagnostics)
	result.Stats.Errors = summary.Errors
	result.Stats.Warnings = summary.Warnings
	result.Stats.CandidatesCreated = len(result.Candidates)
	result.Stats.ProcessingTime = time.Since(startTime)

	c.logger.Info("Produced %d candidates (%d errors, %d warnings)",
		len(result.Candidates), summary.Errors, summary.Warnings)

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildCandidate resolves the yacht catalog and the agent discount of agg
// and computes its totals. The transaction id is left empty when the group
// supplied none.
func (c *Converter) buildCandidate(agg *Aggregate, now time.Time) (*types.CandidateBooking, decimal.Decimal) {
	candidate := &types.CandidateBooking{
		ClientName:          agg.ClientName,
		AgentID:             agg.AgentID,
		AgentName:           agg.AgentName,
		EventDate:           agg.EventDate,
		Type:                agg.Type,
		FreeGuestCount:      agg.FreeGuests,
		TransactionID:       agg.TransactionID,
		BookingRefNo:        agg.BookingRefNo,
		OtherCharge:         agg.OtherCharge,
		PaymentMode:         agg.PaymentMode,
		Status:              agg.Status,
		PaymentConfirmation: agg.PaymentConfirmation,
		Notes:               agg.Notes,
		CreatedBy:           agg.CreatedBy,
		CreatedAt:           now,
		SourceLines:         agg.SourceLines,
		Diagnostics:         agg.Diagnostics,
	}
	if candidate.CreatedBy == "" {
		candidate.CreatedBy = c.opts.CurrentActorID
	}

	line := agg.SourceLines[0]
	warn := func(stage, field, value, msg string) {
		candidate.Diagnostics = append(candidate.Diagnostics, types.Diagnostic{
			Severity: types.SeverityWarning,
			Stage:    stage,
			Line:     line,
			Field:    field,
			Value:    value,
			Message:  msg,
		})
	}

	// Yacht and package lines.
	yacht, ok := c.ref.FindYacht(agg.Yacht)
	if !ok || agg.Yacht == "" {
		yacht = types.Yacht{ID: agg.Yacht, Name: agg.Yacht}
		warn(types.StageGroup, string(fieldmap.Yacht), agg.Yacht, "yacht not found; kept as provisional identifier")
	}
	candidate.YachtID = yacht.ID
	candidate.YachtName = yacht.Name

	lines, dropped := classifier.NewCatalog(yacht).Lines(agg.Counts)
	candidate.Packages = lines
	for _, msg := range dropped {
		warn(types.StageGroup, "packages", "", msg)
	}

	// Agent discount.
	discount := decimal.Zero
	if agg.AgentResolved {
		if agent, found := c.ref.FindAgent(agg.AgentID); found {
			discount = agent.DiscountPercentage
		}
	}

	totals := finance.Calculate(lines, discount, agg.Status, agg.Paid, agg.PaidSupplied)
	totals.Apply(candidate, discount)
	if totals.PaidAssumed {
		candidate.Diagnostics = append(candidate.Diagnostics, types.Diagnostic{
			Severity: types.SeverityInfo,
			Stage:    types.StageFinance,
			Line:     line,
			Field:    string(fieldmap.PaidAmount),
			Value:    totals.Paid.StringFixed(2),
			Message:  "confirmed booking without paid amount; paid set to total",
		})
	}

	return candidate, discount
}

// =============================================================================
// DEFAULT LOGGER
// =============================================================================

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
