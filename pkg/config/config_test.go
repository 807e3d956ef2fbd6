package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, ".env"), filepath.Join(dir, "harvester.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.MaxListingsPerCity != 20 {
		t.Errorf("MaxListingsPerCity = %d, want 20", cfg.MaxListingsPerCity)
	}
	if cfg.PacingDelay != time.Second {
		t.Errorf("PacingDelay = %v, want 1s", cfg.PacingDelay)
	}
	if cfg.StoreDriver != StoreMongo {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, StoreMongo)
	}
	if len(cfg.Amenities) != 0 || cfg.HarvestSchedule != "" {
		t.Errorf("Amenities = %v, HarvestSchedule = %q, want both empty", cfg.Amenities, cfg.HarvestSchedule)
	}
	if len(cfg.Cities) != 3 || cfg.Cities[0].Name != "Ho Chi Minh City" {
		t.Errorf("Cities = %+v, want the three default cities", cfg.Cities)
	}
	checkIn, checkOut, err := cfg.StayDates()
	if err != nil {
		t.Fatalf("StayDates() error = %v", err)
	}
	if got := checkOut.Sub(checkIn); got != 24*time.Hour {
		t.Errorf("stay length = %v, want one night", got)
	}
}

func TestLoadEnvAndYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `cities:
  - name: Hue
    box:
      ne_lat: 16.5
      ne_long: 107.65
      sw_lat: 16.4
      sw_long: 107.5
`
	yamlPath := filepath.Join(dir, "harvester.yaml")
	if err := os.WriteFile(yamlPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PACING_DELAY", "250ms")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MAX_LISTINGS_PER_CITY", "5")
	t.Setenv("AMENITIES", "4,8")
	t.Setenv("HARVEST_SCHEDULE", "0 2 * * *")

	cfg, err := LoadFrom(filepath.Join(dir, ".env"), yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.PacingDelay != 250*time.Millisecond {
		t.Errorf("PacingDelay = %v, want 250ms", cfg.PacingDelay)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Errorf("StoreDriver = %q, want memory", cfg.StoreDriver)
	}
	if cfg.MaxListingsPerCity != 5 {
		t.Errorf("MaxListingsPerCity = %d, want 5", cfg.MaxListingsPerCity)
	}
	if len(cfg.Amenities) != 2 || cfg.Amenities[0] != 4 || cfg.Amenities[1] != 8 {
		t.Errorf("Amenities = %v, want [4 8]", cfg.Amenities)
	}
	if cfg.HarvestSchedule != "0 2 * * *" {
		t.Errorf("HarvestSchedule = %q, want 0 2 * * *", cfg.HarvestSchedule)
	}
	if len(cfg.Cities) != 1 || cfg.Cities[0].Name != "Hue" || cfg.Cities[0].Box.NELat != 16.5 {
		t.Errorf("Cities = %+v, want Hue only", cfg.Cities)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver:        StoreMemory,
			PacingMode:         PacingFixed,
			CheckIn:            "2025-06-15",
			CheckOut:           "2025-06-16",
			MaxListingsPerCity: 20,
			Cities:             DefaultCities(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad check in", func(c *Config) { c.CheckIn = "June 15" }, true},
		{"check out before check in", func(c *Config) { c.CheckOut = "2025-06-14" }, true},
		{"same day", func(c *Config) { c.CheckOut = c.CheckIn }, true},
		{"unknown store", func(c *Config) { c.StoreDriver = "sqlite" }, true},
		{"postgres without url", func(c *Config) { c.StoreDriver = StorePostgres }, true},
		{"unknown pacing", func(c *Config) { c.PacingMode = "jitter" }, true},
		{"zero cap", func(c *Config) { c.MaxListingsPerCity = 0 }, true},
		{"unnamed city", func(c *Config) { c.Cities[1].Name = "" }, true},
		{"amenity ids", func(c *Config) { c.Amenities = []int{4, 8} }, false},
		{"bad amenity id", func(c *Config) { c.Amenities = []int{4, 0} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
