package domain

import (
	"testing"
	"time"
)

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"bitcoin":     "Bitcoin",
		"shiba_inu":   "Shiba Inu",
		"usd-coin":    "Usd Coin",
		"binancecoin": "Binancecoin",
		"wrapped eth": "Wrapped Eth",
	}
	for in, expected := range tests {
		if got := DisplayName(in); got != expected {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, expected)
		}
	}
}

func TestSnapshotIsEmergency(t *testing.T) {
	live := Snapshot{"bitcoin": {ID: "bitcoin", LastUpdated: "2025-01-01T00:00:00Z"}}
	if live.IsEmergency() {
		t.Fatal("live snapshot flagged as emergency")
	}

	fallback := EmergencySnapshot()
	if !fallback.IsEmergency() {
		t.Fatal("emergency snapshot not tagged")
	}
	for id, c := range fallback {
		if c.LastUpdated != EmergencyData {
			t.Fatalf("record %s missing sentinel: %q", id, c.LastUpdated)
		}
		if !c.PriceUSD.IsZero() {
			t.Fatalf("record %s has non-zero fabricated price", id)
		}
	}
}

func TestSnapshotFilter(t *testing.T) {
	s := Snapshot{
		"bitcoin":      {ID: "bitcoin"},
		"bitcoin-cash": {ID: "bitcoin-cash"},
		"ethereum":     {ID: "ethereum"},
	}
	got := s.Filter("bitcoin")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if len(s.Filter("")) != 3 {
		t.Fatal("empty query should return everything")
	}
	if len(s.Filter("ETH")) != 1 {
		t.Fatal("filter should be case-insensitive")
	}
}

func TestNeutralSentiment(t *testing.T) {
	now := time.Now()
	s := NeutralSentiment(now)
	if s.Score != 0.5 || s.Label != "Neutral" || s.ArticleCount != 0 {
		t.Fatalf("unexpected neutral summary: %+v", s)
	}
	if !s.ComputedAt.Equal(now) {
		t.Fatal("ComputedAt not set")
	}
}
