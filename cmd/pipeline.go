// =============================================================================
// Booking Import - Per-File Pipeline
// =============================================================================
//
// This file runs one export through the pipeline. It is shared by the
// 'import' and 'validate' commands.
//
// PROCESSING PIPELINE:
//   1. Match the file to a source profile
//   2. Parse it (CSV/TSV or XLSX)
//   3. Run the converter against the reference snapshot
//   4. Unless previewing: write review outputs and the diagnostic log,
//      submit candidates, archive
//   5. Record the allocated ids so later files in the run continue the
//      sequence and see this file's bookings as existing. A file that
//      fails before this step leaves no trace.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/config"
	"github.com/ginjaninja78/booking-import/internal/converter"
	"github.com/ginjaninja78/booking-import/internal/csvparser"
	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/logging"
	"github.com/ginjaninja78/booking-import/internal/review"
	"github.com/ginjaninja78/booking-import/internal/submit"
	"github.com/ginjaninja78/booking-import/internal/types"
	"github.com/ginjaninja78/booking-import/internal/xlsxparser"
	"github.com/ginjaninja78/booking-import/pkg/utils"
)

// fileRequest describes how to import one file.
type fileRequest struct {
	path    string
	source  *classifier.Source
	actorID string
	preview bool
}

// fileOutcome is the result of importing one file.
type fileOutcome struct {
	result      *converter.Result
	profile     *config.ProfileConfig
	info        utils.ProcessedFileInfo
	submitted   int
	submitFails int
}

// importFile runs the pipeline for one file.
//
// RETURNS:
//   - The outcome. Diagnostics never make this fail.
//   - An error for unreadable files, cancellation, or output failures.
func importFile(ctx context.Context, env *environment, fm *utils.FileManager, req fileRequest) (*fileOutcome, error) {
	start := time.Now()
	log := env.log.With("file", filepath.Base(req.path))
	out := &fileOutcome{}

	// =========================================================================
	// STEP 1: MATCH PROFILE
	// =========================================================================

	aliases := env.aliases
	yachtAliases := env.cfg.ResellerYachtAliases
	source := env.source
	var delimiter rune

	if profile, ok := config.MatchProfile(env.profiles, req.path); ok {
		out.profile = profile
		log.Info("matched source profile %s", profile.ProfileCode)

		var err error
		if delimiter, err = profile.DelimiterRune(); err != nil {
			return nil, err
		}
		override, err := profile.SourceOverride()
		if err != nil {
			return nil, err
		}
		if override != nil {
			source = override
		}

		if len(profile.HeaderAliases) > 0 {
			aliases = aliases.Clone()
			for alias, field := range profile.HeaderAliases {
				if err := aliases.Extend(alias, fieldmap.Field(field)); err != nil {
					log.Warn("profile %s: %v", profile.ProfileCode, err)
				}
			}
		}
		yachtAliases = mergeAliases(yachtAliases, profile.YachtAliases)
	}
	if req.source != nil {
		source = req.source
	}

	// =========================================================================
	// STEP 2: PARSE
	// =========================================================================

	var data *csvparser.CSVData
	var err error
	if utils.IsWorkbook(req.path) {
		data, err = xlsxparser.ParseWorkbook(req.path, xlsxparser.WorkbookOptions{})
	} else {
		data, err = csvparser.ParseFile(req.path, csvparser.Options{Delimiter: delimiter})
	}
	if err != nil {
		return nil, err
	}
	log.Debug("parsed %d rows (%d skipped, %d blank)", len(data.Rows), data.SkippedRows, data.BlankRows)

	// =========================================================================
	// STEP 3: CONVERT
	// =========================================================================

	actor := req.actorID
	if actor == "" {
		actor = env.cfg.ActorID
	}

	conv := converter.New(env.ref, converter.Options{
		Source:          source,
		CurrentActorID:  actor,
		Location:        env.location,
		ResellerAliases: yachtAliases,
		MasterColumns:   env.master,
		AliasTable:      aliases,
		Logger:          log,
	})

	result, err := conv.Run(ctx, data)
	if err != nil {
		return nil, err
	}
	out.result = result

	out.info = utils.ProcessedFileInfo{
		InputFile:  req.path,
		BatchID:    result.BatchID,
		Source:     result.Source.String(),
		Rows:       result.Stats.RowsProcessed,
		Candidates: len(result.Candidates),
		Errors:     result.Stats.Errors,
		Warnings:   result.Stats.Warnings,
	}

	if req.preview {
		recordBookings(env.ref, result)
		out.info.ProcessTime = time.Since(start)
		return out, nil
	}

	// =========================================================================
	// STEP 4: OUTPUTS, SUBMISSION AND ARCHIVAL
	// =========================================================================

	outputs, err := writeReviewOutputs(env.cfg, fm.OutputDir, result)
	if err != nil {
		return nil, err
	}
	logPath, err := utils.WriteDiagnosticLog(result.Diagnostics, req.path, fm.OutputDir)
	if err != nil {
		return nil, err
	}
	if logPath != "" {
		outputs = append(outputs, logPath)
	}
	out.info.OutputFiles = outputs

	if env.cfg.SubmitDir != "" {
		sink, err := submit.NewDirectorySink(env.cfg.SubmitDir)
		if err != nil {
			return nil, err
		}
		results := submit.SubmitAll(ctx, sink, result.Candidates, submit.Options{
			MaxConcurrency: env.cfg.MaxConcurrency,
			Logger:         log,
		})
		for _, r := range submit.Failed(results) {
			logging.LogError(log, "submit", "SubmitAll", r.TransactionID, r.Err)
		}
		out.submitFails = len(submit.Failed(results))
		out.submitted = len(results) - out.submitFails
	}

	for _, path := range outputs {
		if _, err := fm.ArchiveOutputFile(path); err != nil {
			log.Warn("failed to archive %s: %v", path, err)
		}
	}
	if out.info.ArchivePath, err = fm.ArchiveInputFile(req.path); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: RECORD ALLOCATED IDS
	// =========================================================================

	recordBookings(env.ref, result)

	out.info.ProcessTime = time.Since(start)
	return out, nil
}

// recordBookings adds the file's candidates to the reference bookings, so
// later files in the run continue the id sequence and see them as existing.
func recordBookings(ref *types.ReferenceData, result *converter.Result) {
	for _, c := range result.Candidates {
		ref.Bookings = append(ref.Bookings, types.ExistingBooking{
			ID:            c.TransactionID,
			ClientName:    c.ClientName,
			BookingRefNo:  c.BookingRefNo,
			TransactionID: c.TransactionID,
			Month:         c.EventDate,
			Packages:      c.Packages,
			PaidAmount:    c.PaidAmount,
		})
	}
}

// writeReviewOutputs writes the review formats selected by cfg.
func writeReviewOutputs(cfg *config.MainConfig, outputDir string, result *converter.Result) ([]string, error) {
	stem := strings.TrimSuffix(filepath.Base(result.SourceFile), filepath.Ext(result.SourceFile))
	params := map[string]string{"original": stem, "batch": result.BatchID[:8]}
	options := review.DefaultGenerateOptions()

	var written []string

	if cfg.OutputFormat == "json" || cfg.OutputFormat == "both" {
		content, err := review.GenerateJSON(result, options)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, utils.GenerateOutputFileName("{original}_{timestamp}_{batch}", params, ".json"))
		if err := utils.WriteFile(path, content); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	if cfg.OutputFormat == "xlsx" || cfg.OutputFormat == "both" {
		content, err := review.GenerateWorkbook(result, options)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, utils.GenerateOutputFileName("{original}_{timestamp}_{batch}", params, ".xlsx"))
		if err := utils.WriteFile(path, content); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	return written, nil
}

// mergeAliases returns base extended by extra; extra wins.
func mergeAliases(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// describeOutcome is the one-line console report for a file.
func describeOutcome(o *fileOutcome) string {
	s := fmt.Sprintf("%s [%s] %d candidate(s), %d error(s), %d warning(s)",
		filepath.Base(o.info.InputFile), o.info.Source, o.info.Candidates, o.info.Errors, o.info.Warnings)
	if o.submitted+o.submitFails > 0 {
		s += fmt.Sprintf(", submitted %d/%d", o.submitted, o.submitted+o.submitFails)
	}
	return s
}
