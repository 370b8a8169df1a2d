// =============================================================================
// Booking Import - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles the main application configuration, per-partner source profiles,
// and the read-only reference snapshot.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Source Profiles (profiles/*.yaml): Per-partner export rules
//   3. Reference Snapshot (reference.yaml): Agents, yachts, users, bookings
//
// ENVIRONMENT:
//   A .env file is loaded when present. Any BOOKING_IMPORT_<SETTING>
//   variable overrides the matching main-config setting.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOOKING_IMPORT_"

var validate = validator.New()

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for export files to import.
	// Default: "./input"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives the review outputs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// InputArchiveDir receives imported files after a successful run.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" validate:"required"`

	// OutputArchiveDir keeps a copy of every review output.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" validate:"required"`

	// ProfilesDir holds the per-partner source profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// REFERENCE DATA
	// =========================================================================

	// ReferenceFile is the reference snapshot exported by the reservation
	// system.
	// Default: "./reference.yaml"
	ReferenceFile string `yaml:"reference_file" validate:"required"`

	// AliasTemplate is an optional XLSX sheet of header aliases
	// (alias | canonical field) added to the built-in table.
	AliasTemplate string `yaml:"alias_template"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty logs to stderr
	// only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat selects the review output: "json", "xlsx" or "both".
	// Default: "both"
	OutputFormat string `yaml:"output_format" validate:"oneof=json xlsx both"`

	// SubmitDir, when set, receives one JSON file per candidate for the
	// persistence collaborator.
	SubmitDir string `yaml:"submit_dir"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds concurrent submissions.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1"`

	// ContinueOnError keeps importing other files when one fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// DefaultSource forces a source format for every file ("DEFAULT",
	// "RESELLER"/"A", "MASTER"/"B"). Empty means detect per file.
	DefaultSource string `yaml:"default_source"`

	// Timezone is the IANA zone used for event dates.
	// Default: "Local"
	Timezone string `yaml:"timezone"`

	// ActorID owns bookings whose file names no creator.
	ActorID string `yaml:"actor_id"`

	// ResellerYachtAliases extend the reseller yacht-name aliases.
	ResellerYachtAliases map[string]string `yaml:"reseller_yacht_aliases"`

	// MasterColumns adds master-sheet columns: header -> {yacht, bucket}.
	MasterColumns map[string]MasterColumn `yaml:"master_columns" validate:"dive"`
}

// MasterColumn is a configured master-sheet column.
type MasterColumn struct {
	Yacht  string `yaml:"yacht" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
}

// ContinueOnErrorEnabled returns the effective ContinueOnError setting.
func (c *MainConfig) ContinueOnErrorEnabled() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed, or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnv loads KEY=value pairs from envFile into the process
// environment. Variables already set are kept. A missing file is not an
// error.
func LoadEnv(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// applyEnvOverrides copies BOOKING_IMPORT_* variables over config.
func applyEnvOverrides(config *MainConfig) {
	strs := map[string]*string{
		"INPUT_DIR":          &config.InputDir,
		"OUTPUT_DIR":         &config.OutputDir,
		"INPUT_ARCHIVE_DIR":  &config.InputArchiveDir,
		"OUTPUT_ARCHIVE_DIR": &config.OutputArchiveDir,
		"PROFILES_DIR":       &config.ProfilesDir,
		"REFERENCE_FILE":     &config.ReferenceFile,
		"ALIAS_TEMPLATE":     &config.AliasTemplate,
		"LOG_FILE":           &config.LogFile,
		"LOG_LEVEL":          &config.LogLevel,
		"LOG_FORMAT":         &config.LogFormat,
		"OUTPUT_FORMAT":      &config.OutputFormat,
		"SUBMIT_DIR":         &config.SubmitDir,
		"DEFAULT_SOURCE":     &config.DefaultSource,
		"TIMEZONE":           &config.Timezone,
		"ACTOR_ID":           &config.ActorID,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MAX_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			config.MaxConcurrency = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "CONTINUE_ON_ERROR"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			config.ContinueOnError = &b
		}
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.ReferenceFile == "" {
		config.ReferenceFile = "./reference.yaml"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "both"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Timezone == "" {
		config.Timezone = "Local"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if err := validate.Struct(config); err != nil {
		return describeValidation(err)
	}
	return nil
}

// EnsureDirectories creates the working directories when missing.
func EnsureDirectories(config *MainConfig) error {
	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.OutputArchiveDir,
	}
	if config.SubmitDir != "" {
		dirs = append(dirs, config.SubmitDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// describeValidation flattens validator errors into one message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// =============================================================================
// SOURCE PROFILES
// =============================================================================

// ProfileConfig holds the import rules of one partner export.
type ProfileConfig struct {
	// ProfileName is the human-readable name of the partner.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode is a short code for the partner.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against the file name.
	// Examples:
	//   - "tickets_*.csv"
	//   - "*_master.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Delimiter forces the CSV delimiter ("," or "\t"). Empty means detect.
	Delimiter string `yaml:"delimiter"`

	// Source forces the source format for matching files.
	Source string `yaml:"source"`

	// HeaderAliases extend the header alias table: alias -> canonical field.
	HeaderAliases map[string]string `yaml:"header_aliases"`

	// YachtAliases extend the reseller yacht-name aliases.
	YachtAliases map[string]string `yaml:"yacht_aliases"`
}

// LoadProfiles loads every source profile in profilesDir. A missing
// directory yields no profiles.
//
// RETURNS:
//   - The profiles keyed by profile code (file name when no code is set).
//   - An error if any file cannot be read or parsed.
func LoadProfiles(profilesDir string) (map[string]*ProfileConfig, error) {
	profiles := make(map[string]*ProfileConfig)

	if _, err := os.Stat(profilesDir); errors.Is(err, fs.ErrNotExist) {
		return profiles, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.ProfileCode
		if key == "" {
			key = filepath.Base(file)
		}
		profiles[key] = profile
	}

	return profiles, nil
}

func loadProfile(filePath string) (*ProfileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile ProfileConfig
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	for _, pattern := range profile.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
	}
	if _, err := profile.DelimiterRune(); err != nil {
		return nil, err
	}
	if _, err := profile.SourceOverride(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DelimiterRune converts Delimiter. Zero means detect.
func (p *ProfileConfig) DelimiterRune() (rune, error) {
	switch strings.ToLower(p.Delimiter) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter %q", p.Delimiter)
	}
}

// MatchProfile returns the first profile, in code order, with a pattern
// matching the base name of filePath (case-insensitive).
func MatchProfile(profiles map[string]*ProfileConfig, filePath string) (*ProfileConfig, bool) {
	name := strings.ToLower(filepath.Base(filePath))

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, pattern := range profiles[code].FileMatchingPatterns {
			if ok, _ := filepath.Match(strings.ToLower(pattern), name); ok {
				return profiles[code], true
			}
		}
	}
	return nil, false
}
