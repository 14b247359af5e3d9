// File: api/diag.go
// Author: momentics <momentics@gmail.com>
//
// Diagnostics collaborators consumed by the host around the core.

package api

// LogSink is a serialized text sink. Write prefixes a timestamp, Print
// writes the formatted message as is.
type LogSink interface {
	Write(format string, args ...any) (int, error)
	Print(format string, args ...any) (int, error)
	Flush() error
}
