package match

const (
	// EngineVersion is the current version of the replay engine
	EngineVersion = "v1.0.0"
)
