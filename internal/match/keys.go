package match

// Logical keys under which match data is persisted.
const (
	KeyCurrentMatch  = "current_match"
	KeyCurrentEvents = "current_match_events"
	KeyMatchHistory  = "match_history"
)

// PersistedKeys lists every logical key in migration order.
var PersistedKeys = []string{KeyCurrentMatch, KeyCurrentEvents, KeyMatchHistory}
