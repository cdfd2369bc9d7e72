// Package testlogger provides a no-op runtime.Logger for tests that need
// to satisfy the interface without asserting on log output.
package testlogger

import "github.com/heroiclabs/nakama-common/runtime"

// Logger discards everything written to it.
type Logger struct{}

var _ runtime.Logger = Logger{}

func (Logger) Debug(format string, v ...interface{}) {}
func (Logger) Info(format string, v ...interface{})  {}
func (Logger) Warn(format string, v ...interface{})  {}
func (Logger) Error(format string, v ...interface{}) {}

func (l Logger) WithField(key string, value interface{}) runtime.Logger {
	return l
}

func (l Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	return l
}

func (Logger) Fields() map[string]interface{} {
	return nil
}
