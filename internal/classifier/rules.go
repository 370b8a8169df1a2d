package classifier

import (
	"regexp"
	"strings"
)

// =============================================================================
// RULES
// =============================================================================

// Rule assigns the adult and child quantities of a row to buckets when
// Match accepts the package text.
type Rule struct {
	Name  string
	Match func(text string) bool
	Adult Bucket
	Child Bucket
}

// RuleSet is an ordered rule list. The first matching rule wins, so more
// specific rules must come before broader ones.
type RuleSet []Rule

// fallbackRule applies when no rule matches.
var fallbackRule = Rule{Name: "fallback", Adult: Adult, Child: Child}

// Evaluate returns the first rule matching text, or the base fallback.
// The boolean reports whether a listed rule matched.
func (rs RuleSet) Evaluate(text string) (Rule, bool) {
	text = normalizeText(text)
	for _, r := range rs {
		if r.Match(text) {
			return r, true
		}
	}
	return fallbackRule, false
}

// apply distributes adult and child quantities per rule.
func (r Rule) apply(counts Counts, adult, child int) {
	counts.Add(r.Adult, adult)
	counts.Add(r.Child, child)
}

// =============================================================================
// KEYWORD PREDICATES
// =============================================================================

var spaceRun = regexp.MustCompile(`\s+`)

// normalizeText lowercases text and collapses whitespace runs. Hyphenated
// "top-deck" is spelled out so phrase rules see one form.
func normalizeText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = spaceRun.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "top-deck", "top deck")
	text = strings.ReplaceAll(text, "topdeck", "top deck")
	return text
}

func phrase(p string) func(string) bool {
	return func(text string) bool { return strings.Contains(text, p) }
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

var (
	hasVIP     = phrase("vip")
	hasSoft    = phrase("soft")
	hasRoyal   = phrase("royal") // also "royale"
	hasTopDeck = phrase("top deck")
	hasFood    = anyOf(phrase("food"), phrase("soft"), phrase("standard"), phrase("only"))
)

// hasAlcohol matches alcohol keywords. "Drinks" counts only when the text
// does not speak of soft drinks.
func hasAlcohol(text string) bool {
	if strings.Contains(text, "alcohol") || strings.Contains(text, "unlimited") ||
		strings.Contains(text, "beverage") {
		return true
	}
	return strings.Contains(text, "drink") && !strings.Contains(text, "soft")
}

// =============================================================================
// RULE TABLES
// =============================================================================

// DefaultRules is the keyword rule table of the DEFAULT strategy.
var DefaultRules = RuleSet{
	{Name: "vip-soft", Match: allOf(hasVIP, hasSoft), Adult: VIPAdult, Child: VIPChild},
	{Name: "vip", Match: hasVIP, Adult: VIPAlcohol, Child: VIPChild},
	{Name: "top-deck-alcohol", Match: allOf(hasTopDeck, hasAlcohol), Adult: TopDeckAlcohol, Child: TopDeckChild},
	{Name: "top-deck", Match: hasTopDeck, Adult: TopDeckAdult, Child: TopDeckChild},
	{Name: "royal-alcohol", Match: allOf(hasRoyal, hasAlcohol), Adult: RoyalAlcohol, Child: RoyalChild},
	{Name: "royal", Match: hasRoyal, Adult: RoyalAdult, Child: RoyalChild},
	{Name: "base", Match: hasFood, Adult: Adult, Child: Child},
	{Name: "alcohol", Match: hasAlcohol, Adult: AdultAlcohol, Child: Child},
}

// ResellerRules is the phrase rule table of the ticketing reseller feed.
var ResellerRules = RuleSet{
	{Name: "vip-unlimited-alcoholic-drinks", Match: phrase("vip unlimited alcoholic drinks"), Adult: VIPAlcohol, Child: VIPChild},
	{Name: "vip-alcoholic", Match: phrase("vip alcoholic"), Adult: VIPAlcohol, Child: VIPChild},
	{Name: "vip-soft", Match: phrase("vip soft"), Adult: VIPAdult, Child: VIPChild},
	{Name: "royale-unlimited-alcoholic", Match: phrase("royale unlimited alcoholic"), Adult: RoyalAlcohol, Child: RoyalChild},
	{Name: "royale-standard", Match: phrase("royale standard"), Adult: RoyalAdult, Child: RoyalChild},
	{Name: "top-deck-alcoholic", Match: allOf(hasTopDeck, phrase("alcoholic")), Adult: TopDeckAlcohol, Child: TopDeckChild},
	{Name: "top-deck", Match: hasTopDeck, Adult: TopDeckAdult, Child: TopDeckChild},
	{Name: "unlimited-alcoholic-drinks", Match: phrase("unlimited alcoholic drinks"), Adult: AdultAlcohol, Child: Child},
	{Name: "food-and", Match: phrase("food and"), Adult: Adult, Child: Child},
	{Name: "food-only", Match: phrase("food only"), Adult: Adult, Child: Child},
}

// =============================================================================
// PACKAGE TEXT EXTRACTION
// =============================================================================

var (
	separatorPattern   = regexp.MustCompile(`\s+[-–—|]\s+`)
	parenthesisPattern = regexp.MustCompile(`\(([^)]*)\)`)
)

// knownPhrases are multi-word package phrases found in free text, longest
// first so a longer phrase wins over its prefix.
var knownPhrases = []string{
	"unlimited alcoholic drinks",
	"royale standard",
	"soft drinks",
	"food only",
	"top deck",
	"vip soft",
}

// splitPackageText splits vendor text into the yacht part and the package
// type part. It tries, in order: a dash-like separator, parenthesised
// text, then a known phrase. ok is false when none applies, in which case
// yacht is the whole text.
func splitPackageText(text string) (yacht, pkg string, ok bool) {
	text = strings.TrimSpace(text)

	if loc := separatorPattern.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]]), strings.TrimSpace(text[loc[1]:]), true
	}

	if m := parenthesisPattern.FindStringSubmatchIndex(text); m != nil {
		return strings.TrimSpace(text[:m[0]]), strings.TrimSpace(text[m[2]:m[3]]), true
	}

	lower := normalizeText(text)
	for _, p := range knownPhrases {
		if idx := strings.Index(lower, p); idx >= 0 {
			// normalizeText may shorten the text, so cut the original at
			// the first word of the phrase instead of at idx.
			return strings.TrimSpace(cutBeforeWord(text, strings.Fields(lower[:idx]))), p, true
		}
	}

	return text, "", false
}

// cutBeforeWord returns the leading len(words) whitespace-separated words
// of text.
func cutBeforeWord(text string, words []string) string {
	fields := strings.Fields(text)
	if len(words) > len(fields) {
		return text
	}
	return strings.Join(fields[:len(words)], " ")
}

// yachtBeforeSeparator returns the text before the first dash-like
// separator or opening parenthesis.
func yachtBeforeSeparator(text string) string {
	text = strings.TrimSpace(text)
	if loc := separatorPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if idx := strings.Index(text, "("); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
