package classifier

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/booking-import/internal/types"
)

// =============================================================================
// SOURCES
// =============================================================================

// Source identifies the rule strategy of an import source.
type Source int

// Sources.
const (
	SourceDefault Source = iota
	SourceReseller
	SourceMaster
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceReseller:
		return "RESELLER"
	case SourceMaster:
		return "MASTER"
	default:
		return "DEFAULT"
	}
}

// ParseSource resolves a source name. "" and "auto" are rejected; callers
// use Detect for those.
func ParseSource(name string) (Source, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEFAULT":
		return SourceDefault, nil
	case "RESELLER", "A":
		return SourceReseller, nil
	case "MASTER", "B":
		return SourceMaster, nil
	}
	return SourceDefault, fmt.Errorf("unknown source '%s' (expected DEFAULT, RESELLER or MASTER)", name)
}

// =============================================================================
// STRATEGY INTERFACE
// =============================================================================

// YachtLookup resolves a yacht by id or name.
// *types.ReferenceData satisfies it.
type YachtLookup interface {
	FindYacht(key string) (types.Yacht, bool)
}

// HeaderCell is one raw column of a row, keyed by normalized header.
type HeaderCell struct {
	Header string
	Value  string
}

// Input is the classifier's view of one parsed row.
type Input struct {
	// YachtText and ProductText are the raw yacht and product cells.
	YachtText   string
	ProductText string

	// Adult and Child are the raw counts before redistribution.
	// HasAdultChild is set when either came from an explicit column.
	Adult         int
	Child         int
	HasAdultChild bool

	// Pax is the raw passenger-count cell, e.g. "8 + 1 + 0".
	Pax string

	// Explicit holds counts from bucket-named columns; added as-is.
	Explicit Counts

	// Columns holds every raw cell in column order, for column-driven
	// strategies.
	Columns []HeaderCell
}

// Result is the classification of one row.
type Result struct {
	// Yacht is the yacht name recovered by the strategy, or "" when the
	// strategy did not determine one.
	Yacht string

	Counts Counts

	// Rule is the name of the rule that decided the buckets.
	Rule string

	// Matched is false when the safe fallback was used.
	Matched bool

	// Warnings are advisory notes raised during classification.
	Warnings []string
}

// Strategy classifies rows of one source format.
type Strategy interface {
	Source() Source
	Classify(in Input, yachts YachtLookup) Result
}

// canonicalYacht returns the store name of a yacht when lookup knows it.
func canonicalYacht(name string, yachts YachtLookup) string {
	name = strings.TrimSpace(name)
	if name == "" || yachts == nil {
		return name
	}
	if y, ok := yachts.FindYacht(name); ok {
		return y.Name
	}
	return name
}

// knownYacht reports whether lookup resolves name.
func knownYacht(name string, yachts YachtLookup) bool {
	name = strings.TrimSpace(name)
	if name == "" || yachts == nil {
		return false
	}
	_, ok := yachts.FindYacht(name)
	return ok
}

// =============================================================================
// DEFAULT STRATEGY
// =============================================================================

// DefaultStrategy classifies by keyword rules over a package-type
// substring extracted from the yacht or product text.
type DefaultStrategy struct {
	Rules RuleSet
}

// NewDefaultStrategy returns the DEFAULT strategy.
func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{Rules: DefaultRules}
}

func (s *DefaultStrategy) Source() Source { return SourceDefault }

// Classify implements Strategy.
func (s *DefaultStrategy) Classify(in Input, yachts YachtLookup) Result {
	yacht, pkg, ok := splitPackageText(in.YachtText)
	if !ok && in.ProductText != "" {
		if _, p, found := splitPackageText(in.ProductText); found {
			pkg = p
		} else {
			pkg = in.ProductText
		}
	}

	rule, matched := s.Rules.Evaluate(pkg)
	counts := make(Counts)
	rule.apply(counts, in.Adult, in.Child)

	return Result{
		Yacht:   canonicalYacht(yacht, yachts),
		Counts:  counts,
		Rule:    rule.Name,
		Matched: matched,
	}
}

// =============================================================================
// RESELLER STRATEGY (A)
// =============================================================================

// DefaultResellerAliases fixes known yacht-name variants of the ticketing
// feed. Keys are lowercase.
var DefaultResellerAliases = map[string]string{
	"lotus mega yacht":     "Lotus",
	"lotus yacht":          "Lotus",
	"ocean empress yacht":  "Ocean Empress",
	"the ocean empress":    "Ocean Empress",
	"royale dinner cruise": "Royale",
}

// ResellerStrategy classifies ticketing-feed rows by literal phrases in the
// product text and recovers the yacht from the text before the first
// separator.
type ResellerStrategy struct {
	Rules   RuleSet
	Aliases map[string]string
}

// NewResellerStrategy returns the reseller strategy. aliases extend (and
// for equal keys override) the built-in yacht aliases.
func NewResellerStrategy(aliases map[string]string) *ResellerStrategy {
	merged := make(map[string]string, len(DefaultResellerAliases)+len(aliases))
	for k, v := range DefaultResellerAliases {
		merged[k] = v
	}
	for k, v := range aliases {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &ResellerStrategy{Rules: ResellerRules, Aliases: merged}
}

func (s *ResellerStrategy) Source() Source { return SourceReseller }

// Classify implements Strategy.
func (s *ResellerStrategy) Classify(in Input, yachts YachtLookup) Result {
	text := in.ProductText
	if text == "" {
		text = in.YachtText
	}

	rule, matched := s.Rules.Evaluate(text)
	counts := make(Counts)
	rule.apply(counts, in.Adult, in.Child)

	yacht := yachtBeforeSeparator(text)
	if alias, ok := s.Aliases[strings.ToLower(yacht)]; ok {
		yacht = alias
	}
	if yacht == "" || !knownYacht(yacht, yachts) && knownYacht(in.YachtText, yachts) {
		yacht = in.YachtText
	}

	return Result{
		Yacht:   canonicalYacht(yacht, yachts),
		Counts:  counts,
		Rule:    rule.Name,
		Matched: matched,
	}
}

// =============================================================================
// MASTER STRATEGY (B)
// =============================================================================

// MasterColumn is the fixed meaning of one master-sheet column.
type MasterColumn struct {
	Yacht  string
	Bucket Bucket
}

// MasterTable maps normalized master-sheet headers to their meaning.
type MasterTable map[string]MasterColumn

// MasterTableFor builds the master table of a yacht list: every yacht
// contributes one "<yacht>_<bucket>" column per bucket, for example
// "lotus_vip_child". extra entries are added on top.
func MasterTableFor(yachts []types.Yacht, extra MasterTable) MasterTable {
	table := make(MasterTable)
	for _, y := range yachts {
		prefix := strings.Join(strings.Fields(strings.ToLower(y.Name)), "_")
		if prefix == "" {
			continue
		}
		for _, b := range Buckets {
			table[prefix+"_"+string(b)] = MasterColumn{Yacht: y.Name, Bucket: b}
		}
	}
	for header, col := range extra {
		table[header] = col
	}
	return table
}

// MasterStrategy classifies master-sheet rows by column position.
type MasterStrategy struct {
	Columns  MasterTable
	Fallback RuleSet
}

// NewMasterStrategy returns the master strategy over table.
func NewMasterStrategy(table MasterTable) *MasterStrategy {
	return &MasterStrategy{Columns: table, Fallback: DefaultRules}
}

func (s *MasterStrategy) Source() Source { return SourceMaster }

// Classify implements Strategy.
//
// The first column with a non-zero count selects the row's yacht; counts of
// that yacht's other columns are added to their buckets. Counts under a
// different yacht are reported and ignored. With no non-zero column the
// product text is scanned with the DEFAULT keyword rules.
func (s *MasterStrategy) Classify(in Input, yachts YachtLookup) Result {
	res := Result{Counts: make(Counts), Rule: "master-columns", Matched: true}

	for _, cell := range in.Columns {
		col, ok := s.Columns[cell.Header]
		if !ok {
			continue
		}
		n, ok := parseCount(cell.Value)
		if !ok || n == 0 {
			continue
		}
		if res.Yacht == "" {
			res.Yacht = col.Yacht
		}
		if !strings.EqualFold(col.Yacht, res.Yacht) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"column '%s' counts %d for yacht '%s' but row yacht is '%s'; ignored",
				cell.Header, n, col.Yacht, res.Yacht))
			continue
		}
		res.Counts.Add(col.Bucket, n)
	}

	if res.Yacht != "" {
		res.Yacht = canonicalYacht(res.Yacht, yachts)
		return res
	}

	text := in.ProductText
	if text == "" {
		text = in.YachtText
	}
	rule, matched := s.Fallback.Evaluate(text)
	rule.apply(res.Counts, in.Adult, in.Child)
	res.Yacht = canonicalYacht(yachtBeforeSeparator(in.YachtText), yachts)
	res.Rule = "keyword-" + rule.Name
	res.Matched = matched
	return res
}
