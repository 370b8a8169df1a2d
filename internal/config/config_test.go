package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/booking-import/internal/classifier"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "input_dir: ./in\nmax_concurrency: 8\n")

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig() error = %v", err)
	}
	if cfg.InputDir != "./in" || cfg.MaxConcurrency != 8 {
		t.Errorf("explicit values lost: %+v", cfg)
	}
	if cfg.OutputDir != "./output" || cfg.LogLevel != "info" || cfg.OutputFormat != "both" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if !cfg.ContinueOnErrorEnabled() {
		t.Error("ContinueOnError should default to true")
	}
}

func TestLoadMainConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log_level: debug\n")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "warn")
	t.Setenv(EnvPrefix+"CONTINUE_ON_ERROR", "false")
	t.Setenv(EnvPrefix+"MAX_CONCURRENCY", "2")

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.MaxConcurrency != 2 || cfg.ContinueOnErrorEnabled() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadMainConfigInvalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "output_format: pdf\n")

	_, err := LoadMainConfig(path)
	if err == nil || !strings.Contains(err.Error(), "OutputFormat") {
		t.Fatalf("error = %v, want OutputFormat validation failure", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}

	key := EnvPrefix + "ACTOR_ID"
	t.Setenv(key, "")
	os.Unsetenv(key)
	if err := LoadEnv(writeFile(t, dir, ".env", key+"=u-42\n")); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "u-42" {
		t.Fatalf("%s = %q", key, got)
	}
}

const referenceYAML = `
agents:
  - id: a1
    name: Sea Tours
    discount_percentage: 12.5
yachts:
  - id: y1
    name: Lotus
    category: mega
    packages:
      - {id: p1, name: Adult, rate: 100}
      - {id: p2, name: VIP Child, rate: "80.50"}
users:
  - {id: u1, name: Dana}
bookings:
  - id: b1
    client_name: Ann Lee
    booking_ref_no: R1
    transaction_id: TRN-2025-00003
`

func TestLoadReference(t *testing.T) {
	path := writeFile(t, t.TempDir(), "reference.yaml", referenceYAML)

	ref, err := LoadReference(path)
	if err != nil {
		t.Fatalf("LoadReference() error = %v", err)
	}
	if len(ref.Yachts) != 1 || len(ref.Yachts[0].Packages) != 2 {
		t.Fatalf("yachts = %+v", ref.Yachts)
	}
	if ref.Agents[0].DiscountPercentage.String() != "12.5" {
		t.Errorf("discount = %s", ref.Agents[0].DiscountPercentage)
	}
	if ref.Yachts[0].Packages[1].Rate.String() != "80.5" {
		t.Errorf("rate = %s", ref.Yachts[0].Packages[1].Rate)
	}
	if ids := ref.TransactionIDs(); len(ids) != 1 || ids[0] != "TRN-2025-00003" {
		t.Errorf("TransactionIDs = %v", ids)
	}
}

func TestLoadReferenceRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "agents:\n  - id: a1\n", "Name"},
		{"duplicate yacht", "yachts:\n  - {id: y1, name: A}\n  - {id: y1, name: B}\n", "duplicate yacht id"},
		{"duplicate package", "yachts:\n  - id: y1\n    name: A\n    packages:\n      - {id: p, name: Adult}\n      - {id: p, name: Child}\n", "duplicate package id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "reference.yaml", tt.content)
			_, err := LoadReference(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tickets.yaml", `
profile_name: Ticket Hub
profile_code: hub
file_matching_patterns: ["tickets_*.csv"]
source: A
yacht_aliases:
  lotus cruise: Lotus
`)
	writeFile(t, dir, "master.yml", `
profile_code: master
file_matching_patterns: ["*_master.xlsx"]
source: MASTER
`)

	profiles, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles", len(profiles))
	}

	p, ok := MatchProfile(profiles, "/data/in/TICKETS_march.csv")
	if !ok || p.ProfileCode != "hub" {
		t.Fatalf("MatchProfile = %+v, %v", p, ok)
	}
	src, err := p.SourceOverride()
	if err != nil || src == nil || *src != classifier.SourceReseller {
		t.Fatalf("SourceOverride = %v, %v", src, err)
	}

	if _, ok := MatchProfile(profiles, "direct.csv"); ok {
		t.Fatal("unexpected profile match")
	}

	none, err := LoadProfiles(filepath.Join(dir, "absent"))
	if err != nil || len(none) != 0 {
		t.Fatalf("missing dir = %v, %v", none, err)
	}
}

func TestMasterTable(t *testing.T) {
	cfg := &MainConfig{MasterColumns: map[string]MasterColumn{
		"Lotus VIP Kids": {Yacht: "Lotus", Bucket: "vip_child"},
	}}
	table, err := cfg.MasterTable()
	if err != nil {
		t.Fatalf("MasterTable() error = %v", err)
	}
	if col := table["lotus_vip_kids"]; col.Bucket != classifier.VIPChild || col.Yacht != "Lotus" {
		t.Fatalf("table = %+v", table)
	}

	cfg.MasterColumns["x"] = MasterColumn{Yacht: "Lotus", Bucket: "platinum"}
	if _, err := cfg.MasterTable(); err == nil {
		t.Fatal("expected unknown bucket error")
	}
}
