// =============================================================================
// Booking Import - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It checks the configuration,
// reference snapshot, alias template and source profiles, then previews any
// files given as arguments and prints their diagnostics.
//
// COMMAND USAGE:
//   booking-import validate [file ...] [--all]
//
// EXIT STATUS:
//   Non-zero when the configuration is invalid or a previewed file has
//   error diagnostics.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/booking-import/internal/types"
	"github.com/ginjaninja78/booking-import/internal/validation"
)

// showInfo includes info diagnostics in the report.
var showInfo bool

var validateCmd = &cobra.Command{
	Use:   "validate [file ...]",
	Short: "Check configuration and preview files without importing",
	Long: `The validate command loads the configuration, reference data, alias
template and source profiles and reports any problem. Files given as
arguments are run through the pipeline in preview mode; their diagnostics
are printed and nothing is written.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&showInfo, "all", false,
		"Include info diagnostics in the report")
	validateCmd.Flags().StringVar(&sourceName, "source", "",
		"Force the source format: DEFAULT, RESELLER (A) or MASTER (B)")
}

func runValidate(cmd *cobra.Command, files []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration OK")
	fmt.Fprintf(out, "  Reference:  %d yachts, %d agents, %d users, %d bookings\n",
		len(env.ref.Yachts), len(env.ref.Agents), len(env.ref.Users), len(env.ref.Bookings))
	fmt.Fprintf(out, "  Aliases:    %d header aliases\n", env.aliases.Len())

	codes := make([]string, 0, len(env.profiles))
	for code := range env.profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fmt.Fprintf(out, "  Profiles:   %v\n", codes)

	source, err := parseSourceFlag(sourceName)
	if err != nil {
		return err
	}

	errorCount := 0
	for _, file := range files {
		outcome, err := importFile(cmd.Context(), env, nil, fileRequest{
			path:    file,
			source:  source,
			actorID: env.cfg.ActorID,
			preview: true,
		})
		if err != nil {
			fmt.Fprintf(out, "\n✗ %s: %v\n", filepath.Base(file), err)
			errorCount++
			continue
		}

		var shown []types.Diagnostic
		for _, d := range outcome.result.Diagnostics {
			if d.Severity != types.SeverityInfo || showInfo {
				shown = append(shown, d)
			}
		}
		fmt.Fprintf(out, "\n%s\n%s\n", describeOutcome(outcome), validation.FormatDiagnostics(shown))
		errorCount += outcome.info.Errors
	}

	if errorCount > 0 {
		return fmt.Errorf("validation found %d error(s)", errorCount)
	}
	return nil
}
