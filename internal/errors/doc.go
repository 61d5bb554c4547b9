// Package errors provides coded, actionable errors for the signals
// command line and its configuration.
//
// Each error has a unique code (e.g., "S020") registered with a category,
// a short message and an optional hint:
//
//	err := errors.New(errors.CodeConfigInvalid).
//	    WithDetail("live.sendQueueSize must be positive")
//
//	errors.Print(os.Stderr, err)
//	// ERROR S023: Invalid configuration value
//	//
//	//   live.sendQueueSize must be positive
//
// Errors from the reactive package are mapped to their codes by FromError.
package errors
