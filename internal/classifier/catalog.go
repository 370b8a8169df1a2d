package classifier

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// =============================================================================
// CATALOG RESOLUTION
// =============================================================================
//
// Every catalog entry name is reduced to a Descriptor and a bucket matches
// only an entry with an identical descriptor. This keeps tiers apart:
//   - a base bucket never matches a VIP, royal or top-deck entry
//   - a top-deck bucket only matches top-deck entries
//   - an alcohol bucket only matches alcohol entries, never soft or child ones
//
// =============================================================================

// Catalog resolves buckets against one yacht's packages.
type Catalog struct {
	yacht   types.Yacht
	entries []catalogEntry
}

type catalogEntry struct {
	types.PackageCatalogEntry
	desc Descriptor
}

// NewCatalog indexes the packages of yacht.
func NewCatalog(yacht types.Yacht) *Catalog {
	c := &Catalog{yacht: yacht}
	for _, p := range yacht.Packages {
		c.entries = append(c.entries, catalogEntry{PackageCatalogEntry: p, desc: DescribeEntry(p.Name)})
	}
	return c
}

// Resolve returns the first catalog entry, in catalog order, whose
// descriptor equals the bucket's.
func (c *Catalog) Resolve(b Bucket) (types.PackageCatalogEntry, bool) {
	if !b.Valid() {
		return types.PackageCatalogEntry{}, false
	}
	want := b.Descriptor()
	for _, e := range c.entries {
		if e.desc == want {
			return e.PackageCatalogEntry, true
		}
	}
	return types.PackageCatalogEntry{}, false
}

// Lines resolves every non-zero bucket, in canonical bucket order. Buckets
// with no matching entry are returned as warnings and dropped.
func (c *Catalog) Lines(counts Counts) ([]types.PackageQuantityLine, []string) {
	var (
		lines    []types.PackageQuantityLine
		warnings []string
	)

	for _, b := range counts.Ordered() {
		entry, ok := c.Resolve(b)
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"no package on yacht '%s' matches bucket '%s'; %d dropped", c.yacht.Name, b, counts[b]))
			continue
		}
		lines = append(lines, types.PackageQuantityLine{
			PackageID:   entry.ID,
			PackageName: entry.Name,
			Quantity:    counts[b],
			Rate:        entry.Rate,
		})
	}

	return lines, warnings
}

// DescribeEntry derives the descriptor of a catalog entry from its name.
//
//   - tier:    "vip", "royal"/"royale", or "top deck"
//   - alcohol: alcohol, alcoholic, drink(s), beverage(s), unlimited;
//              never when the name mentions soft drinks
//   - child:   child, children, kid, kids
func DescribeEntry(name string) Descriptor {
	words := make(map[string]bool)
	isUnderscore := func(r rune) bool { return r == '_' }
	for _, w := range strings.FieldsFunc(fieldmap.CollapseToken(name), isUnderscore) {
		words[w] = true
	}

	var d Descriptor
	switch {
	case words["vip"]:
		d.Tier = TierVIP
	case words["royal"] || words["royale"]:
		d.Tier = TierRoyal
	case (words["top"] && words["deck"]) || words["topdeck"]:
		d.Tier = TierTopDeck
	}

	d.Child = words["child"] || words["children"] || words["kid"] || words["kids"]

	alcohol := words["alcohol"] || words["alcoholic"] || words["drink"] || words["drinks"] ||
		words["beverage"] || words["beverages"] || words["unlimited"]
	d.Alcohol = alcohol && !words["soft"]

	return d
}
