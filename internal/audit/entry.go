package audit

// Entry types recorded in the logs.
const (
	TypeDecision   = "decision"    // gate enforcement outcome
	TypeTierChange = "tier_change" // trust tier crossed a boundary
	TypeTransition = "transition"  // health state changed
)

// TimestampFormat is the layout used in entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one line in a hash-chained JSONL log. All fields are
// scalars (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing. Fields not relevant to an
// entry type stay empty and are omitted.
type Entry struct {
	Timestamp  string  `json:"ts"`
	Type       string  `json:"type"`
	Capability string  `json:"capability,omitempty"`
	Tier       string  `json:"tier,omitempty"`
	TrustScore float64 `json:"trust_score,omitempty"`
	Decision   string  `json:"decision,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	FromState  string  `json:"from_state,omitempty"`
	ToState    string  `json:"to_state,omitempty"`
	Cause      string  `json:"cause,omitempty"`
	PrevHash   string  `json:"prev_hash"`
}
