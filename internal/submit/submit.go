// Package submit hands computed candidate bookings to the persistence
// collaborator. Submission runs after the import has finished; a failing
// record is reported and never stops the others.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// ErrNoTransactionID is returned for candidates that were never allocated
// an id.
var ErrNoTransactionID = errors.New("candidate has no transaction id")

// Submitter persists one candidate booking.
type Submitter interface {
	Submit(ctx context.Context, booking types.CandidateBooking) error
}

// Logger is the logging surface used while submitting.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// SubmitResult is the outcome for one candidate.
type SubmitResult struct {
	// Index is the candidate's position in the submitted slice.
	Index         int
	TransactionID string
	Err           error
}

// Options controls SubmitAll.
type Options struct {
	// MaxConcurrency bounds in-flight submissions. Values below 1 mean 1.
	MaxConcurrency int

	Logger Logger
}

// SubmitAll submits every candidate and returns one result per candidate,
// in input order.
//
// A cancelled ctx stops new submissions; candidates never attempted report
// ctx.Err().
func SubmitAll(ctx context.Context, sink Submitter, candidates []*types.CandidateBooking, opts Options) []SubmitResult {
	limit := opts.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]SubmitResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, c := range candidates {
		i, c := i, c
		results[i] = SubmitResult{Index: i, TransactionID: c.TransactionID}

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			results[i].Err = submitOne(ctx, sink, c)
			if opts.Logger != nil {
				if results[i].Err != nil {
					opts.Logger.Error("submit %s failed: %v", c.TransactionID, results[i].Err)
				} else {
					opts.Logger.Info("submitted %s", c.TransactionID)
				}
			}
			// Failures stay in results so the group never cancels siblings
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func submitOne(ctx context.Context, sink Submitter, c *types.CandidateBooking) error {
	if c.TransactionID == "" {
		return ErrNoTransactionID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sink.Submit(ctx, *c); err != nil {
		return fmt.Errorf("failed to submit %s: %w", c.TransactionID, err)
	}
	return nil
}

// Failed returns the results that carry an error.
func Failed(results []SubmitResult) []SubmitResult {
	var out []SubmitResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// DirectorySink writes each candidate to its own JSON file in Dir, for
// offline hand-off to the booking store.
type DirectorySink struct {
	Dir string
}

// NewDirectorySink creates dir if needed.
func NewDirectorySink(dir string) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create submit directory: %w", err)
	}
	return &DirectorySink{Dir: dir}, nil
}

// unsafeNameChars are replaced in file names built from transaction ids.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileStem turns a transaction id into a file name stem that stays inside
// the sink directory.
func fileStem(transactionID string) string {
	stem := strings.Trim(unsafeNameChars.ReplaceAllString(transactionID, "_"), "_")
	if stem == "" {
		return "booking"
	}
	return stem
}

// Submit writes booking as <transaction id>_<uuid>.json, with characters
// outside [A-Za-z0-9_-] in the id replaced by "_". The file is written
// under a temporary name and renamed into place.
func (s *DirectorySink) Submit(ctx context.Context, booking types.CandidateBooking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(booking, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", fileStem(booking.TransactionID), uuid.New().String())
	final := filepath.Join(s.Dir, name)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("failed to write booking file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize booking file: %w", err)
	}
	return nil
}
