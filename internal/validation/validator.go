package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/finance"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// =============================================================================
// AMOUNT CHECK
// =============================================================================

// CheckAmounts recomputes the expected net from the candidate's package
// lines and the agent discount, and compares it with the declared paid
// amount. Nothing is checked when no paid amount was declared.
//
// RETURNS:
//   - An error-severity diagnostic naming the agent and yacht when the
//     difference exceeds finance.Tolerance, otherwise nil.
func CheckAmounts(c *types.CandidateBooking, discount decimal.Decimal, paidSupplied bool) *types.Diagnostic {
	if !paidSupplied {
		return nil
	}

	expected, _ := finance.Net(finance.Total(c.Packages), discount)
	if finance.WithinTolerance(c.PaidAmount, expected) {
		return nil
	}

	return &types.Diagnostic{
		Severity: types.SeverityError,
		Stage:    types.StageValidation,
		Line:     firstLine(c),
		Field:    "paidAmount",
		Value:    c.PaidAmount.StringFixed(2),
		Message: fmt.Sprintf("paid amount %s does not match expected net %s (agent '%s', yacht '%s')",
			c.PaidAmount.StringFixed(2), expected.StringFixed(2), c.AgentName, c.YachtName),
	}
}

// =============================================================================
// REQUIRED FIELDS
// =============================================================================

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCandidate checks the struct rules of a candidate (required
// client, yacht, date and transaction id, at least one package line, known
// enum values). Violations are warnings; the candidate is kept.
func ValidateCandidate(c *types.CandidateBooking) []types.Diagnostic {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []types.Diagnostic{{
			Severity: types.SeverityWarning,
			Stage:    types.StageValidation,
			Line:     firstLine(c),
			Message:  err.Error(),
		}}
	}

	diags := make([]types.Diagnostic, 0, len(verrs))
	for _, fe := range verrs {
		diags = append(diags, types.Diagnostic{
			Severity: types.SeverityWarning,
			Stage:    types.StageValidation,
			Line:     firstLine(c),
			Field:    fe.Field(),
			Value:    fmt.Sprint(fe.Value()),
			Message:  describeRule(fe),
		})
	}
	return diags
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing"
	case "min":
		return fmt.Sprintf("needs at least %s item(s)", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' check", fe.Tag())
	}
}

// =============================================================================
// REPORTING
// =============================================================================

// Summary counts diagnostics by severity.
type Summary struct {
	Errors   int
	Warnings int
	Infos    int
}

// Summarize counts diagnostics by severity.
func Summarize(diags []types.Diagnostic) Summary {
	var s Summary
	for _, d := range diags {
		switch d.Severity {
		case types.SeverityError:
			s.Errors++
		case types.SeverityWarning:
			s.Warnings++
		default:
			s.Infos++
		}
	}
	return s
}

// FormatDiagnostics formats diagnostics for display, one per line.
func FormatDiagnostics(diags []types.Diagnostic) string {
	if len(diags) == 0 {
		return "No diagnostics."
	}

	s := Summarize(diags)
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d error(s), %d warning(s), %d info:\n", s.Errors, s.Warnings, s.Infos)
	for i, d := range diags {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	return b.String()
}
