// Package trust holds the trust score, derives the discrete trust
// tier, and gates capability requests against the registry and the
// current health state.
package trust

import "fmt"

// Tier is the discrete trust level. Higher tier = more autonomy.
type Tier int

const (
	TierObserver Tier = iota
	TierAssistant
	TierPartner
	TierSurrogate
)

// String returns the lower-case tier name.
func (t Tier) String() string {
	switch t {
	case TierObserver:
		return "observer"
	case TierAssistant:
		return "assistant"
	case TierPartner:
		return "partner"
	case TierSurrogate:
		return "surrogate"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Thresholds are the score cutoffs for each tier above observer.
// A score at or above a cutoff is in that tier: 0.80 is partner, 0.79
// is assistant. There is no "almost next tier".
type Thresholds struct {
	Assistant float64
	Partner   float64
	Surrogate float64
}

// DefaultThresholds returns the standard 0.6 / 0.8 / 0.9 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Assistant: 0.6, Partner: 0.8, Surrogate: 0.9}
}

// Valid reports whether the cutoffs are strictly ascending within (0,1).
func (th Thresholds) Valid() bool {
	return th.Assistant > 0 && th.Assistant < th.Partner &&
		th.Partner < th.Surrogate && th.Surrogate < 1
}

// TierFromScore derives the tier from a trust score using hard
// cutoffs, upper bound inclusive.
func TierFromScore(score float64, th Thresholds) Tier {
	switch {
	case score >= th.Surrogate:
		return TierSurrogate
	case score >= th.Partner:
		return TierPartner
	case score >= th.Assistant:
		return TierAssistant
	default:
		return TierObserver
	}
}

// ClampScore forces a score into [0, 1]. Out-of-range updates are
// clamped rather than rejected.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
