package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Registered error codes.
const (
	CodeCycle      = "S001"
	CodeLoopClosed = "S002"

	CodeConfigMissing  = "S020"
	CodeConfigParse    = "S021"
	CodeConfigEnv      = "S022"
	CodeConfigInvalid  = "S023"
	CodeConfigWrite    = "S024"
	CodeListenFailed   = "S040"
	CodeShutdownFailed = "S041"

	CodeUnknownShape = "S060"
	CodeBadArgument  = "S061"
)

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Runtime Errors (S001-S019)
	// ============================================

	CodeCycle: {
		Category:   CategoryRuntime,
		Message:    "Reactive cycle detected",
		Suggestion: "A follower or derived callback keeps writing a signal it depends on. Guard the write or move it out of the callback.",
	},
	CodeLoopClosed: {
		Category: CategoryRuntime,
		Message:  "Event loop closed",
		Detail:   "Work was dispatched after the loop that owns the graph stopped.",
	},

	// ============================================
	// Configuration Errors (S020-S039)
	// ============================================

	CodeConfigMissing: {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create signals.json or pass --config with the path to one",
	},
	CodeConfigParse: {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that signals.json is valid JSON",
	},
	CodeConfigEnv: {
		Category:   CategoryConfig,
		Message:    "Invalid environment override",
		Suggestion: "Check the SIGNALS_* environment variables",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	CodeConfigWrite: {
		Category: CategoryConfig,
		Message:  "Failed to write configuration file",
	},

	// ============================================
	// Live Server Errors (S040-S059)
	// ============================================

	CodeListenFailed: {
		Category:   CategoryLive,
		Message:    "Failed to start server",
		Suggestion: "Check that the address is free or choose another with --addr",
	},
	CodeShutdownFailed: {
		Category: CategoryLive,
		Message:  "Server did not shut down cleanly",
	},

	// ============================================
	// CLI Errors (S060-S079)
	// ============================================

	CodeUnknownShape: {
		Category:   CategoryCLI,
		Message:    "Unknown benchmark graph shape",
		Suggestion: "Use one of: chain, fanout, diamond",
	},
	CodeBadArgument: {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
