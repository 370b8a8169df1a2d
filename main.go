// =============================================================================
// Booking Import - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Booking Import CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   booking-import import     - Import every export in the input directory
//   booking-import validate   - Check configuration and preview files
//   booking-import version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Import pipeline (parsing, mapping, classification,
//                  finance, sequencing, validation, review, submission)
//   - pkg/       : File management utilities
//   - profiles/  : Per-partner source profiles (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/booking-import/cmd"
)

func main() {
	cmd.Execute()
}
