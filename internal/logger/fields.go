package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	// FieldJobID identifies one backfill run
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldCommand is the CLI subcommand being executed
	FieldCommand = "command"

	// FieldPhotoID is the photo currently being handled
	FieldPhotoID = "photo_id"
)

// Metric fields, used on Entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
)
