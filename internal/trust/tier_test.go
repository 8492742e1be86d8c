package trust

import "testing"

func TestTierFromScoreBoundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  Tier
	}{
		{0.0, TierObserver},
		{0.59, TierObserver},
		{0.6, TierAssistant},
		{0.79, TierAssistant},
		{0.80, TierPartner},
		{0.89, TierPartner},
		{0.9, TierSurrogate},
		{1.0, TierSurrogate},
	}
	for _, tt := range tests {
		if got := TierFromScore(tt.score, th); got != tt.want {
			t.Errorf("TierFromScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTierMonotonicity(t *testing.T) {
	th := DefaultThresholds()
	prev := TierObserver
	for s := 0.0; s <= 1.0; s += 0.01 {
		tier := TierFromScore(s, th)
		if tier < prev {
			t.Fatalf("tier decreased from %s to %s at score %v", prev, tier, s)
		}
		prev = tier
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.7, 1},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestThresholdsValid(t *testing.T) {
	if !DefaultThresholds().Valid() {
		t.Error("default thresholds should be valid")
	}
	bad := []Thresholds{
		{Assistant: 0.8, Partner: 0.6, Surrogate: 0.9}, // not ascending
		{Assistant: 0, Partner: 0.5, Surrogate: 0.9},   // zero cutoff
		{Assistant: 0.6, Partner: 0.8, Surrogate: 1.0}, // cutoff at 1
	}
	for _, th := range bad {
		if th.Valid() {
			t.Errorf("thresholds %+v should be invalid", th)
		}
	}
}

func TestTierString(t *testing.T) {
	if TierPartner.String() != "partner" {
		t.Errorf("got %q", TierPartner.String())
	}
	if Tier(99).String() != "unknown(99)" {
		t.Errorf("got %q", Tier(99).String())
	}
}
