package classifier

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/booking-import/internal/fieldmap"
	"github.com/ginjaninja78/booking-import/internal/types"
)

func testReference() *types.ReferenceData {
	return &types.ReferenceData{
		Yachts: []types.Yacht{
			{
				ID: "y-lotus", Name: "Lotus",
				Packages: []types.PackageCatalogEntry{
					{ID: "p1", Name: "VIP Adult Soft Drinks", Rate: decimal.NewFromInt(300)},
					{ID: "p2", Name: "VIP Child", Rate: decimal.NewFromInt(150)},
					{ID: "p3", Name: "Adult Food Only", Rate: decimal.NewFromInt(100)},
					{ID: "p4", Name: "Child Food Only", Rate: decimal.NewFromInt(50)},
					{ID: "p5", Name: "Food & Unlimited Alcoholic Drinks", Rate: decimal.NewFromInt(180)},
					{ID: "p6", Name: "VIP Unlimited Alcohol", Rate: decimal.NewFromInt(400)},
					{ID: "p7", Name: "Top Deck Adult", Rate: decimal.NewFromInt(120)},
				},
			},
			{ID: "y-empress", Name: "Ocean Empress"},
		},
	}
}

func TestResellerVIPSoft(t *testing.T) {
	c := New(SourceReseller, testReference(), Options{})

	res := c.Classify(Input{
		ProductText:   "Lotus Mega Yacht - VIP SOFT",
		Adult:         2,
		Child:         1,
		HasAdultChild: true,
	})

	want := Counts{VIPAdult: 2, VIPChild: 1}
	if !reflect.DeepEqual(res.Counts, want) {
		t.Fatalf("Counts = %v, want %v", res.Counts, want)
	}
	if res.Yacht != "Lotus" {
		t.Fatalf("Yacht = %q, want Lotus", res.Yacht)
	}
	if res.Rule != "vip-soft" {
		t.Fatalf("Rule = %q", res.Rule)
	}
}

func TestResellerUnlimitedAlcoholic(t *testing.T) {
	c := New(SourceReseller, nil, Options{})

	res := c.Classify(Input{
		ProductText:   "Ocean Empress - UNLIMITED ALCOHOLIC DRINKS",
		Adult:         4,
		HasAdultChild: true,
	})

	want := Counts{AdultAlcohol: 4}
	if !reflect.DeepEqual(res.Counts, want) {
		t.Fatalf("Counts = %v, want %v", res.Counts, want)
	}
	if _, ok := res.Counts[Adult]; ok {
		t.Fatal("base adult bucket must be absent")
	}
}

func TestResellerRulePriority(t *testing.T) {
	tests := []struct {
		text string
		rule string
	}{
		{"X - VIP Unlimited Alcoholic Drinks", "vip-unlimited-alcoholic-drinks"},
		{"X - VIP Alcoholic", "vip-alcoholic"},
		{"X - VIP Soft Drinks", "vip-soft"},
		{"X - Royale Unlimited Alcoholic", "royale-unlimited-alcoholic"},
		{"X - Royale Standard", "royale-standard"},
		{"X - Top Deck Alcoholic", "top-deck-alcoholic"},
		{"X - Top-Deck", "top-deck"},
		{"X - Unlimited Alcoholic Drinks", "unlimited-alcoholic-drinks"},
		{"X - Food and Soft Drinks", "food-and"},
		{"X - Food Only", "food-only"},
		{"X - Sunset Cruise", "fallback"},
	}
	for _, tt := range tests {
		rule, _ := ResellerRules.Evaluate(tt.text)
		if rule.Name != tt.rule {
			t.Errorf("Evaluate(%q) = %q, want %q", tt.text, rule.Name, tt.rule)
		}
	}
}

func TestResellerAliasOverride(t *testing.T) {
	c := New(SourceReseller, nil, Options{ResellerAliases: map[string]string{"Sea Breeze": "Breeze"}})
	res := c.Classify(Input{ProductText: "Sea Breeze | Food Only", Adult: 1, HasAdultChild: true})
	if res.Yacht != "Breeze" {
		t.Fatalf("Yacht = %q, want Breeze", res.Yacht)
	}
}

func TestDefaultRules(t *testing.T) {
	tests := []struct {
		name        string
		yacht       string
		product     string
		wantYacht   string
		adultBucket Bucket
		childBucket Bucket
	}{
		{"dash vip soft", "Lotus - VIP Soft", "", "Lotus", VIPAdult, VIPChild},
		{"vip alcohol", "Lotus – VIP Unlimited Alcohol", "", "Lotus", VIPAlcohol, VIPChild},
		{"vip alone", "Lotus (VIP)", "", "Lotus", VIPAlcohol, VIPChild},
		{"top deck alcohol", "Lotus - Top Deck Drinks", "", "Lotus", TopDeckAlcohol, TopDeckChild},
		{"top deck phrase", "Lotus Top Deck", "", "Lotus", TopDeckAdult, TopDeckChild},
		{"royale alcohol", "Royale — Royale Unlimited Alcoholic", "", "Royale", RoyalAlcohol, RoyalChild},
		{"royal", "Royale | Royale Standard", "", "Royale", RoyalAdult, RoyalChild},
		{"food only", "Lotus - Food Only", "", "Lotus", Adult, Child},
		{"soft drinks are base", "Lotus (Soft Drinks)", "", "Lotus", Adult, Child},
		{"product text", "Lotus", "VIP soft package", "Lotus", VIPAdult, VIPChild},
		{"unknown text", "Lotus", "Sunset Cruise", "Lotus", Adult, Child},
		{"nothing", "", "", "", Adult, Child},
	}

	c := New(SourceDefault, testReference(), Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(Input{YachtText: tt.yacht, ProductText: tt.product, Adult: 3, Child: 2, HasAdultChild: true})
			want := Counts{tt.adultBucket: 3, tt.childBucket: 2}
			if !reflect.DeepEqual(res.Counts, want) {
				t.Fatalf("Counts = %v, want %v (rule %s)", res.Counts, want, res.Rule)
			}
			if res.Yacht != tt.wantYacht {
				t.Fatalf("Yacht = %q, want %q", res.Yacht, tt.wantYacht)
			}
		})
	}
}

func TestChildrenNeverInAlcoholBuckets(t *testing.T) {
	for _, rs := range []RuleSet{DefaultRules, ResellerRules, {fallbackRule}} {
		for _, r := range rs {
			if r.Child.Descriptor().Alcohol || !r.Child.Descriptor().Child {
				t.Errorf("rule %s sends children to %s", r.Name, r.Child)
			}
		}
	}
}

func TestMasterColumns(t *testing.T) {
	ref := testReference()
	table := MasterTableFor(ref.Yachts, nil)
	c := New(SourceMaster, ref, Options{MasterColumns: table})

	res := c.Classify(Input{
		Columns: []HeaderCell{
			{"client_name", "Ann"},
			{"lotus_adult", "0"},
			{"ocean_empress_vip_adult", "2"},
			{"ocean_empress_vip_child", "1"},
			{"lotus_child", "3"},
		},
	})

	if res.Yacht != "Ocean Empress" {
		t.Fatalf("Yacht = %q", res.Yacht)
	}
	want := Counts{VIPAdult: 2, VIPChild: 1}
	if !reflect.DeepEqual(res.Counts, want) {
		t.Fatalf("Counts = %v, want %v", res.Counts, want)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one for the other yacht", res.Warnings)
	}
}

func TestMasterKeywordFallback(t *testing.T) {
	ref := testReference()
	c := New(SourceMaster, ref, Options{MasterColumns: MasterTableFor(ref.Yachts, nil)})

	res := c.Classify(Input{
		YachtText:   "lotus",
		ProductText: "Top deck with drinks",
		Pax:         "2 + 1",
		Columns:     []HeaderCell{{"lotus_adult", ""}, {"lotus_child", "0"}},
	})

	want := Counts{TopDeckAlcohol: 2, TopDeckChild: 1}
	if !reflect.DeepEqual(res.Counts, want) {
		t.Fatalf("Counts = %v, want %v", res.Counts, want)
	}
	if res.Yacht != "Lotus" || res.Rule != "keyword-top-deck-alcohol" {
		t.Fatalf("Yacht/Rule = %q/%q", res.Yacht, res.Rule)
	}
}

func TestPaxOnlyWithoutExplicitCounts(t *testing.T) {
	c := New(SourceDefault, nil, Options{})

	res := c.Classify(Input{Pax: "8 + 1 + 0"})
	if res.Counts[Adult] != 8 || res.Counts[Child] != 1 {
		t.Fatalf("pax counts = %v", res.Counts)
	}

	res = c.Classify(Input{Pax: "8 + 1 + 0", Adult: 2, HasAdultChild: true})
	if res.Counts[Adult] != 2 || res.Counts[Child] != 0 {
		t.Fatalf("explicit counts overridden: %v", res.Counts)
	}
}

func TestExplicitBucketsAdded(t *testing.T) {
	c := New(SourceDefault, nil, Options{})
	res := c.Classify(Input{Adult: 1, HasAdultChild: true, Explicit: Counts{VIPChild: 2, Adult: 1}})
	want := Counts{Adult: 2, VIPChild: 2}
	if !reflect.DeepEqual(res.Counts, want) {
		t.Fatalf("Counts = %v, want %v", res.Counts, want)
	}
}

func TestParsePax(t *testing.T) {
	tests := []struct {
		cell         string
		adult, child int
		ok           bool
	}{
		{"8 + 1 + 0", 8, 1, true},
		{"5", 5, 0, true},
		{" 3+2 ", 3, 2, true},
		{"2 + x + 1", 2, 1, true},
		{"", 0, 0, false},
		{"n/a", 0, 0, false},
	}
	for _, tt := range tests {
		a, c, ok := ParsePax(tt.cell)
		if a != tt.adult || c != tt.child || ok != tt.ok {
			t.Errorf("ParsePax(%q) = %d, %d, %v; want %d, %d, %v", tt.cell, a, c, ok, tt.adult, tt.child, tt.ok)
		}
	}
}

func TestJoinName(t *testing.T) {
	if got := JoinName("John", "Doe"); got != "John Doe" {
		t.Fatalf("JoinName = %q", got)
	}
	if got := JoinName(" John ", ""); got != "John" {
		t.Fatalf("JoinName = %q", got)
	}
}

func TestDetect(t *testing.T) {
	table := fieldmap.DefaultAliasTable()
	master := MasterTableFor(testReference().Yachts, nil)

	tests := []struct {
		headers []string
		want    Source
	}{
		{[]string{"client", "lotus_adult", "lotus_child"}, SourceMaster},
		{[]string{"ticket_number", "product_name", "adults"}, SourceReseller},
		{[]string{"transaction_id", "product"}, SourceDefault},
		{[]string{"client", "yacht", "adults"}, SourceDefault},
	}
	for _, tt := range tests {
		if got := Detect(tt.headers, table, master); got != tt.want {
			t.Errorf("Detect(%v) = %s, want %s", tt.headers, got, tt.want)
		}
	}
}

func TestCatalogResolve(t *testing.T) {
	cat := NewCatalog(testReference().Yachts[0])

	tests := []struct {
		bucket Bucket
		wantID string
		ok     bool
	}{
		{Adult, "p3", true},
		{Child, "p4", true},
		{AdultAlcohol, "p5", true},
		{VIPAdult, "p1", true},
		{VIPChild, "p2", true},
		{VIPAlcohol, "p6", true},
		{TopDeckAdult, "p7", true},
		{TopDeckAlcohol, "", false},
		{RoyalAdult, "", false},
	}
	for _, tt := range tests {
		e, ok := cat.Resolve(tt.bucket)
		if ok != tt.ok || e.ID != tt.wantID {
			t.Errorf("Resolve(%s) = %q, %v; want %q, %v", tt.bucket, e.ID, ok, tt.wantID, tt.ok)
		}
	}
}

func TestCatalogLines(t *testing.T) {
	cat := NewCatalog(testReference().Yachts[0])

	lines, warnings := cat.Lines(Counts{Child: 1, Adult: 2, RoyalChild: 3})
	if len(lines) != 2 || lines[0].PackageID != "p3" || lines[1].PackageID != "p4" {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Quantity != 2 || !lines[0].Rate.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("line 0 = %+v", lines[0])
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestDescribeEntry(t *testing.T) {
	tests := map[string]Descriptor{
		"Adult Food Only":           {TierBase, false, false},
		"Kids Menu":                 {TierBase, false, true},
		"VIP Adult (Soft Drinks)":   {TierVIP, false, false},
		"Royale Unlimited Alcohol":  {TierRoyal, true, false},
		"Top-Deck Adult + Beverage": {TierTopDeck, true, false},
		"TopDeck Child":             {TierTopDeck, false, true},
	}
	for name, want := range tests {
		if got := DescribeEntry(name); got != want {
			t.Errorf("DescribeEntry(%q) = %+v, want %+v", name, got, want)
		}
	}
}
