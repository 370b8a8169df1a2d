// =============================================================================
// Booking Import - Import Command
// =============================================================================
//
// This file defines the 'import' command, the main command of the tool. It
// orchestrates the import of every export in the input directory.
//
// COMMAND USAGE:
//   booking-import import [flags]
//
// FLAGS:
//   --dry-run : Run the pipeline without writing, submitting or archiving
//   --file    : Import only this file
//   --source  : Force the source format (DEFAULT, RESELLER/A, MASTER/B)
//   --actor   : User id that owns bookings whose file names no creator
//
// PROCESSING:
//   Files are imported one after another, in name order. Each file's
//   transaction ids are visible to the next, so a run never allocates the
//   same id twice.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/config"
	"github.com/ginjaninja78/booking-import/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun previews the import without side effects.
var dryRun bool

// importFilePath limits the run to one file.
var importFilePath string

// sourceName forces the source format.
var sourceName string

// actorID owns bookings without a creator.
var actorID string

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import booking exports into candidate bookings",
	Long: `The import command reads every export in the input directory, matches it
to a source profile, and turns its rows into priced candidate bookings.

On success:
  - A review document (JSON and/or XLSX) is written to the output directory
  - Warnings and errors are written to a diagnostic log next to it
  - Candidates are handed to the submit directory, when configured
  - The export is moved to the input archive

On error:
  - The export stays in the input directory
  - Processing continues with the next file unless continue_on_error is off`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Run the pipeline without writing outputs, submitting or archiving")
	importCmd.Flags().StringVar(&importFilePath, "file", "",
		"Import only this file")
	importCmd.Flags().StringVar(&sourceName, "source", "",
		"Force the source format: DEFAULT, RESELLER (A) or MASTER (B)")
	importCmd.Flags().StringVar(&actorID, "actor", "",
		"User id that owns bookings whose file names no creator")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runImport(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.close()

	source, err := parseSourceFlag(sourceName)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := config.EnsureDirectories(env.cfg); err != nil {
			return err
		}
	}

	fm := utils.NewFileManager(env.cfg.InputDir, env.cfg.OutputDir,
		env.cfg.InputArchiveDir, env.cfg.OutputArchiveDir)

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var files []string
	if importFilePath != "" {
		files = []string{importFilePath}
	} else if files, err = fm.DiscoverInputFiles(""); err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Println("No export files found in the input directory.")
		return nil
	}
	env.log.Info("found %d file(s) to import", len(files))

	// =========================================================================
	// STEP 3: IMPORT FILES
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: time.Now(), TotalFiles: len(files)}

	for _, file := range files {
		outcome, err := importFile(ctx, env, fm, fileRequest{
			path:    file,
			source:  source,
			actorID: actorID,
			preview: dryRun,
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			env.log.Error("%s: %v", filepath.Base(file), err)
			fmt.Printf("  ✗ %s: %v\n", filepath.Base(file), err)

			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    file,
				ErrorMessage: err.Error(),
			})
			if !env.cfg.ContinueOnErrorEnabled() {
				return fmt.Errorf("import stopped at %s: %w", filepath.Base(file), err)
			}
			continue
		}

		fmt.Printf("  ✓ %s\n", describeOutcome(outcome))

		summary.SuccessfulFiles++
		summary.TotalRows += outcome.info.Rows
		summary.TotalCandidates += outcome.info.Candidates
		summary.ValidationErrors += outcome.info.Errors
		summary.Submitted += outcome.submitted
		summary.SubmitFailures += outcome.submitFails
		summary.ProcessedFiles = append(summary.ProcessedFiles, outcome.info)
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	summary.EndTime = time.Now()

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Failed:          %d\n", summary.FailedFiles)
	fmt.Printf("Candidates:      %d\n", summary.TotalCandidates)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if dryRun {
		fmt.Println("Dry run: nothing was written.")
		return nil
	}

	path, err := utils.WriteSummaryLog(summary, env.cfg.OutputDir)
	if err != nil {
		return err
	}
	env.log.Info("summary written to %s", path)
	return nil
}

// parseSourceFlag resolves --source; "" and "auto" mean no override.
func parseSourceFlag(name string) (*classifier.Source, error) {
	if name == "" || name == "auto" {
		return nil, nil
	}
	s, err := classifier.ParseSource(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --source: %w", err)
	}
	return &s, nil
}
