// =============================================================================
// Booking Import - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the import command:
//   - Input discovery (CSV, TSV and XLSX exports)
//   - File archival (moving imported exports, copying review outputs)
//   - Diagnostic log generation
//   - Run summary generation
//   - Output file naming
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after a successful import
//   - Output files are copied to output_archive for long-term storage
//   - Failed files remain in their original location
//   - An archived name that already exists gets a short unique suffix
//
// CUSTOMIZATION:
//   - Set UseTimestampSubdirs for date-based archive folders
//   - Extend InputExtensions to accept other export formats
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// InputExtensions lists the file extensions picked up from the input
// directory.
var InputExtensions = []string{".csv", ".tsv", ".txt", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the import command.
type FileManager struct {
	// InputDir is the directory where exports are dropped.
	InputDir string

	// OutputDir is the directory where review outputs are written.
	OutputDir string

	// InputArchiveDir is the directory for archived exports.
	InputArchiveDir string

	// OutputArchiveDir is the directory for archived review outputs.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2025/06/15/tickets.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether files are archived at all.
	ArchiveOnSuccess bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
		Now:              time.Now,
	}
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the importable files in the input directory.
//
// PARAMETERS:
//   - pattern: A glob pattern to match files (e.g., "tickets_*").
//              If empty, every file with an extension from InputExtensions
//              is returned.
//
// RETURNS:
//   - The matching file paths, sorted by name.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		if IsImportable(file) {
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// IsImportable reports whether path has one of the InputExtensions.
func IsImportable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range InputExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsWorkbook reports whether path is an .xlsx workbook.
func IsWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory.
//
// NOTE: Output files are copied, not moved, so they remain in the output
// directory for the reviewer.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// prepareArchivePath creates the archive directory and returns a free
// path for filePath inside it.
func (fm *FileManager) prepareArchivePath(archiveDir, filePath string) (string, error) {
	if fm.UseTimestampSubdirs {
		now := fm.now()
		archiveDir = filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	fileName := filepath.Base(filePath)
	archivePath := filepath.Join(archiveDir, fileName)
	if FileExists(archivePath) {
		ext := filepath.Ext(fileName)
		stem := strings.TrimSuffix(fileName, ext)
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s_%s%s", stem, uuid.New().String()[:8], ext))
	}

	return archivePath, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {original}  - Original file name (without extension)
//               {batch}     - Batch id
//   - params: A map of placeholder values.
//   - ext: The extension to enforce, such as ".json".
//
// EXAMPLE:
//   format: "{original}_{timestamp}"
//   params: {"original": "tickets_june"}
//   output: "tickets_june_20250615_093000.json"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// DIAGNOSTIC LOG GENERATION
// =============================================================================

// WriteDiagnosticLog writes the warnings and errors of one import to a log
// file. Info diagnostics are left out.
//
// PARAMETERS:
//   - diagnostics: The diagnostics of the run.
//   - fileName: The imported file, for the log header.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the log file, or "" when there was nothing to report.
//   - An error if writing fails.
func WriteDiagnosticLog(diagnostics []types.Diagnostic, fileName, outputDir string) (string, error) {
	var entries []types.Diagnostic
	for _, d := range diagnostics {
		if d.Severity != types.SeverityInfo {
			entries = append(entries, d)
		}
	}
	if len(entries) == 0 {
		return "", nil
	}

	now := time.Now()
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	logPath := filepath.Join(outputDir, fmt.Sprintf("%s_diagnostics_%s.txt", stem, now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create diagnostic log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Booking Import - Diagnostic Log\n"+
		"File:      %s\n"+
		"Generated: %s\n"+
		"Entries:   %d\n"+
		"================================================================================\n\n",
		fileName, now.Format("2006-01-02 15:04:05"), len(entries))

	for i, d := range entries {
		fmt.Fprintf(writer, "#%d %s\n", i+1, d.String())
	}

	writer.WriteString("\n================================================================================\n" +
		"End of Diagnostic Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush diagnostic log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime        time.Time
	EndTime          time.Time
	TotalFiles       int
	SuccessfulFiles  int
	FailedFiles      int
	TotalRows        int
	TotalCandidates  int
	Submitted        int
	SubmitFailures   int
	ValidationErrors int
	ProcessedFiles   []ProcessedFileInfo
	FailedFilesList  []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully imported file.
type ProcessedFileInfo struct {
	InputFile   string
	BatchID     string
	Source      string
	OutputFiles []string
	ArchivePath string
	Rows        int
	Candidates  int
	Errors      int
	Warnings    int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("import_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := WriteSummary(file, summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

// WriteSummary renders summary to w.
func WriteSummary(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Booking Import - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:        %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Total Rows:         %d\n"+
		"  Total Candidates:   %d\n"+
		"  Submitted:          %d\n"+
		"  Submit Failures:    %d\n"+
		"  Validation Errors:  %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.TotalCandidates,
		summary.Submitted,
		summary.SubmitFailures,
		summary.ValidationErrors)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Batch:        %s (%s)\n", pf.BatchID, pf.Source)
			for _, out := range pf.OutputFiles {
				fmt.Fprintf(writer, "  Output:       %s\n", out)
			}
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived To:  %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(writer, "  Candidates:   %d\n", pf.Candidates)
			fmt.Fprintf(writer, "  Diagnostics:  %d errors, %d warnings\n", pf.Errors, pf.Warnings)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// WriteFile writes content to path, creating parent directories.
func WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
