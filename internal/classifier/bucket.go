// =============================================================================
// Booking Import - Package Classifier
// =============================================================================
//
// The classifier decides which package bucket(s) each row's passenger
// counts belong to. Buckets are source-agnostic counters ("vip_child",
// "top_deck_alcohol", ...) that are later resolved against the catalog of
// the row's yacht.
//
// STRATEGIES:
//   - DEFAULT:  keyword rules over a package-type substring
//   - RESELLER: literal phrase rules over the ticketing product text
//   - MASTER:   one fixed (yacht, bucket) pair per spreadsheet column
//
// Every strategy is an ordered rule list evaluated first-match-wins.
//
// =============================================================================

package classifier

import "strings"

// Bucket is a package bucket name.
type Bucket string

// Package buckets.
const (
	Adult          Bucket = "adult"
	Child          Bucket = "child"
	AdultAlcohol   Bucket = "adult_alcohol"
	VIPAdult       Bucket = "vip_adult"
	VIPChild       Bucket = "vip_child"
	VIPAlcohol     Bucket = "vip_alcohol"
	RoyalAdult     Bucket = "royal_adult"
	RoyalChild     Bucket = "royal_child"
	RoyalAlcohol   Bucket = "royal_alcohol"
	TopDeckAdult   Bucket = "top_deck_adult"
	TopDeckChild   Bucket = "top_deck_child"
	TopDeckAlcohol Bucket = "top_deck_alcohol"
)

// Buckets lists every bucket in canonical output order.
var Buckets = []Bucket{
	Adult, Child, AdultAlcohol,
	VIPAdult, VIPChild, VIPAlcohol,
	RoyalAdult, RoyalChild, RoyalAlcohol,
	TopDeckAdult, TopDeckChild, TopDeckAlcohol,
}

// Tier is the service tier of a bucket or catalog entry.
type Tier string

// Tiers. TierBase is the plain (non-premium) tier.
const (
	TierBase    Tier = ""
	TierVIP     Tier = "vip"
	TierRoyal   Tier = "royal"
	TierTopDeck Tier = "top_deck"
)

// Descriptor is the structural identity of a bucket. A bucket resolves
// only to a catalog entry with an identical descriptor.
type Descriptor struct {
	Tier    Tier
	Alcohol bool
	Child   bool
}

var descriptors = map[Bucket]Descriptor{
	Adult:          {TierBase, false, false},
	Child:          {TierBase, false, true},
	AdultAlcohol:   {TierBase, true, false},
	VIPAdult:       {TierVIP, false, false},
	VIPChild:       {TierVIP, false, true},
	VIPAlcohol:     {TierVIP, true, false},
	RoyalAdult:     {TierRoyal, false, false},
	RoyalChild:     {TierRoyal, false, true},
	RoyalAlcohol:   {TierRoyal, true, false},
	TopDeckAdult:   {TierTopDeck, false, false},
	TopDeckChild:   {TierTopDeck, false, true},
	TopDeckAlcohol: {TierTopDeck, true, false},
}

// Descriptor returns the bucket's structural descriptor.
func (b Bucket) Descriptor() Descriptor {
	return descriptors[b]
}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	_, ok := descriptors[b]
	return ok
}

// ParseBucket resolves a bucket name such as "vip_adult" or "VIP Adult".
func ParseBucket(name string) (Bucket, bool) {
	b := Bucket(strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(name, "-", " "))), "_"))
	return b, b.Valid()
}

// =============================================================================
// BUCKET COUNTS
// =============================================================================

// Counts holds package quantities per bucket.
type Counts map[Bucket]int

// Add adds n to bucket b. Non-positive n is ignored.
func (c Counts) Add(b Bucket, n int) {
	if n <= 0 {
		return
	}
	c[b] += n
}

// Merge adds every count of other into c.
func (c Counts) Merge(other Counts) {
	for b, n := range other {
		c.Add(b, n)
	}
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Ordered returns the non-zero buckets in canonical order.
func (c Counts) Ordered() []Bucket {
	var out []Bucket
	for _, b := range Buckets {
		if c[b] > 0 {
			out = append(out, b)
		}
	}
	return out
}
