// =============================================================================
// Booking Import - Financial Calculator
// =============================================================================
//
// Derives booking totals from resolved package lines, catalog rates and the
// agent's discount. Every derived amount is rounded to two decimals at its
// own step, not only at the end.
//
//   total      = round2( sum( round2(qty * rate) ) )
//   commission = round2( total * discount / 100 )
//   net        = round2( total - commission )
//   paid       = total when confirmed and no paid amount was supplied
//   balance    = round2( net - paid )
//
// An "other charge" is tracked on the booking but never part of the total.
//
// =============================================================================

package finance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// Policy constants.
var (
	// Tolerance is the largest paid/net difference accepted as consistent.
	Tolerance = decimal.New(1, -2)

	// AssumePaidOnConfirmation makes a confirmed booking without a paid
	// amount count as fully paid.
	AssumePaidOnConfirmation = true
)

var hundred = decimal.NewFromInt(100)

// ConfirmedStates are the booking statuses treated as confirmed.
var ConfirmedStates = map[string]bool{
	"confirmed": true,
	"completed": true,
}

// IsConfirmed reports whether status is a confirmed state.
func IsConfirmed(status string) bool {
	return ConfirmedStates[strings.ToLower(strings.TrimSpace(status))]
}

// Totals holds the derived amounts of one booking.
type Totals struct {
	Total      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
	Paid       decimal.Decimal
	Balance    decimal.Decimal

	// PaidAssumed is set when Paid was defaulted to Total.
	PaidAssumed bool
}

// Round2 rounds d to two decimals, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Total returns the rounded sum of the line amounts.
func Total(lines []types.PackageQuantityLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(Round2(l.Amount()))
	}
	return Round2(total)
}

// Net returns total minus the commission for discount percent, with the
// commission.
func Net(total, discount decimal.Decimal) (net, commission decimal.Decimal) {
	commission = Round2(total.Mul(discount).Div(hundred))
	net = Round2(total.Sub(commission))
	return net, commission
}

// Calculate derives every amount of a booking.
//
// PARAMETERS:
//   - lines: The resolved package lines.
//   - discount: The agent's discount percentage.
//   - status: The booking status.
//   - paid: The paid amount from the file.
//   - paidSupplied: Whether the file supplied a paid amount at all.
func Calculate(lines []types.PackageQuantityLine, discount decimal.Decimal, status string,
	paid decimal.Decimal, paidSupplied bool) Totals {

	t := Totals{Total: Total(lines)}
	t.Net, t.Commission = Net(t.Total, discount)

	t.Paid = Round2(paid)
	if AssumePaidOnConfirmation && IsConfirmed(status) && !paidSupplied {
		t.Paid = t.Total
		t.PaidAssumed = true
	}

	t.Balance = Round2(t.Net.Sub(t.Paid))
	return t
}

// Apply copies the totals onto a candidate booking.
func (t Totals) Apply(c *types.CandidateBooking, discount decimal.Decimal) {
	c.TotalAmount = t.Total
	c.CommissionPercentage = discount
	c.CommissionAmount = t.Commission
	c.NetAmount = t.Net
	c.PaidAmount = t.Paid
	c.BalanceAmount = t.Balance
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
