package config

import (
	"testing"
	"time"
)

func TestGetLocation(t *testing.T) {
	t.Setenv("SHOP_TIMEZONE", "America/New_York")
	loc := getLocation("SHOP_TIMEZONE", time.UTC)
	if loc.String() != "America/New_York" {
		t.Fatalf("expected America/New_York, got %s", loc)
	}

	t.Setenv("SHOP_TIMEZONE", "Mars/Olympus_Mons")
	if loc := getLocation("SHOP_TIMEZONE", time.UTC); loc != time.UTC {
		t.Fatalf("unknown zone should fall back to UTC, got %s", loc)
	}
}

func TestLoad_ShopTimezone(t *testing.T) {
	t.Setenv("SHOP_TIMEZONE", "America/Denver")
	cfg := Load()
	if cfg.Shop.Timezone.String() != "America/Denver" {
		t.Fatalf("expected America/Denver, got %s", cfg.Shop.Timezone)
	}
}
