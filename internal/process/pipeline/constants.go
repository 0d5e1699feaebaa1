package pipeline

// Log field names.
const (
	LogFieldCycleID = "cycle_id"
	LogFieldURL     = "url"
	LogFieldState   = "state"
)

// Cycle outcomes recorded in metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeEmpty    = "empty"
	OutcomeNoNew    = "no_new"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Article stages recorded in metrics.
const (
	stageNew           = "new"
	stagePersisted     = "persisted"
	stageDuplicate     = "duplicate"
	stagePersistFailed = "persist_failed"
	stageBackfilled    = "backfilled"
)

const defaultBackfillLimit = 100
