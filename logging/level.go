// Package logging defines the leveled log function signature passed into
// the client, transport and protocol layers, mirroring the teacher's own
// zero-dependency leveled-logging shim.
package logging

import "fmt"

// Level identifies the severity of a single log line.
type Level int

// Severity levels, lowest to highest.
const (
	Debug Level = iota
	Info
	Warn
	Error
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Func is the logging hook threaded through Config. The default is Noop.
type Func func(l Level, format string, args ...any)

// Stdout is a Func that writes every line to standard output via fmt.
func Stdout(l Level, format string, args ...any) {
	fmt.Printf("[%s] %s\n", l, fmt.Sprintf(format, args...))
}

// Noop discards every log line. Useful as a default for tests.
func Noop(Level, string, ...any) {}
