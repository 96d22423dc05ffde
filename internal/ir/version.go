package ir

// Version constants for the trace format and engine.
const (
	// TraceVersion is the trace serialization version.
	TraceVersion = "1"

	// EngineVersion is the rewrite engine version.
	EngineVersion = "0.1.0"
)
