package pipeline

// State is the phase of the current ingestion cycle.
type State int32

const (
	StateIdle State = iota
	StateExtracting
	StateDeduplicating
	StateEnriching
	StatePersisting
	StateNotifying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateDeduplicating:
		return "deduplicating"
	case StateEnriching:
		return "enriching"
	case StatePersisting:
		return "persisting"
	case StateNotifying:
		return "notifying"
	default:
		return "unknown"
	}
}
