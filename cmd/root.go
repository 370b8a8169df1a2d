// =============================================================================
// Booking Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (booking-import)
//   ├── importCmd   (booking-import import)
//   ├── validateCmd (booking-import validate)
//   └── versionCmd  (booking-import version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --verbose)
//   2. Loading the configuration, reference snapshot and alias extensions
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/config"
	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/logging"
	"github.com/ginjaninja78/booking-import/internal/types"
	"github.com/ginjaninja78/booking-import/internal/xlsxparser"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file.
var envFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "booking-import",
	Short: "Booking Import - Turn sales-channel exports into yacht bookings",
	Long: `Booking Import reads booking exports from the direct sales sheet, ticket
resellers and the shared master spreadsheet, and turns them into fully priced
candidate bookings for review and hand-off to the reservation system.

Key Features:
  - CSV, TSV and XLSX exports with automatic delimiter and source detection
  - Header aliases, extendable per partner profile or by alias template
  - Package classification, agent commission and balance calculation
  - Transaction id allocation (TRN-<year>-<number>)
  - Duplicate and amount checks, reported for review, never blocking

Example Usage:
  booking-import import                      # Import every file in the input directory
  booking-import import --file tickets.csv   # Import one file
  booking-import import --dry-run            # Preview without writing anything
  booking-import validate tickets.csv        # Report diagnostics for a file`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. An interrupt cancels the running import.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with BOOKING_IMPORT_* overrides",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// RUNTIME ENVIRONMENT
// =============================================================================

// environment is everything a command needs that comes from configuration.
type environment struct {
	cfg      *config.MainConfig
	log      *logging.Logger
	ref      *types.ReferenceData
	aliases  *fieldmap.FieldAliasTable
	profiles map[string]*config.ProfileConfig
	master   classifier.MasterTable
	location *time.Location
	source   *classifier.Source
}

// loadEnvironment loads configuration in this order:
//   1. .env file (missing is fine)
//   2. main config file, with BOOKING_IMPORT_* overrides
//   3. logger
//   4. reference snapshot, alias template and source profiles
func loadEnvironment() (*environment, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, log: logger}
	if err := env.load(); err != nil {
		logger.Close()
		return nil, err
	}
	return env, nil
}

func (e *environment) load() error {
	var err error

	if e.ref, err = config.LoadReference(e.cfg.ReferenceFile); err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	e.log.Info("loaded reference data: %d yachts, %d agents, %d bookings",
		len(e.ref.Yachts), len(e.ref.Agents), len(e.ref.Bookings))

	e.aliases = fieldmap.DefaultAliasTable()
	if e.cfg.AliasTemplate != "" {
		applied, warnings, err := xlsxparser.LoadAliasTemplate(e.cfg.AliasTemplate, e.aliases)
		if err != nil {
			return fmt.Errorf("failed to load alias template: %w", err)
		}
		for _, w := range warnings {
			e.log.Warn("alias template: %s", w)
		}
		e.log.Info("loaded %d header aliases from %s", applied, e.cfg.AliasTemplate)
	}

	if e.profiles, err = config.LoadProfiles(e.cfg.ProfilesDir); err != nil {
		return fmt.Errorf("failed to load source profiles: %w", err)
	}
	e.log.Debug("loaded %d source profile(s)", len(e.profiles))

	if e.master, err = e.cfg.MasterTable(); err != nil {
		return fmt.Errorf("invalid master columns: %w", err)
	}
	if e.location, err = e.cfg.Location(); err != nil {
		return err
	}
	if e.source, err = e.cfg.Source(); err != nil {
		return fmt.Errorf("invalid default source: %w", err)
	}
	return nil
}

func (e *environment) close() {
	e.log.Close()
}
