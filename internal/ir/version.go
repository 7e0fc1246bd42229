package ir

// Version constants recorded alongside journaled events.
const (
	// EngineVersion is the runtime engine version.
	EngineVersion = "0.1.0"

	// JournalVersion is the event journal schema version.
	JournalVersion = "1"
)
