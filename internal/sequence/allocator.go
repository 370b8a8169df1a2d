// Package sequence allocates TRN-<year>-<nnnnn> transaction ids.
//
// The allocator keeps a running high-water mark per event year, seeded from
// the ids already held by the store, so ids allocated within one batch never
// collide with each other or with stored bookings.
package sequence

import (
	"fmt"
	"regexp"
	"strconv"
)

// Prefix is the fixed prefix of allocated transaction ids.
const Prefix = "TRN"

var idPattern = regexp.MustCompile(`^TRN-(\d{4})-(\d+)$`)

// Allocator hands out sequential transaction ids per year.
// It is not safe for concurrent use.
type Allocator struct {
	high map[int]int
}

// NewAllocator seeds an allocator from existing transaction ids. Ids not in
// the TRN-<year>-<n> form are ignored.
func NewAllocator(existing []string) *Allocator {
	a := &Allocator{high: make(map[int]int)}
	for _, id := range existing {
		a.Observe(id)
	}
	return a
}

// Observe raises the year's high-water mark if id is a TRN id above it.
// It reports whether id had the TRN form.
func (a *Allocator) Observe(id string) bool {
	year, seq, ok := Parse(id)
	if !ok {
		return false
	}
	if seq > a.high[year] {
		a.high[year] = seq
	}
	return true
}

// Next allocates the next id for year.
func (a *Allocator) Next(year int) string {
	a.high[year]++
	return Format(year, a.high[year])
}

// High returns the current high-water mark of year.
func (a *Allocator) High(year int) int {
	return a.high[year]
}

// Format renders a transaction id.
func Format(year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", Prefix, year, seq)
}

// Parse splits a TRN id into year and sequence.
func Parse(id string) (year, seq int, ok bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return year, seq, true
}
