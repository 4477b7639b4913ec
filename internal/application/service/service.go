// Package service implements the application use cases: running the
// optimizer, editing and saving proposals, and driving decisions through
// their lifecycle.
package service

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
