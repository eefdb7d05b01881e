package port

import "time"

// Sink is the console output boundary.
type Sink interface {
	// Live line: overwrite the last line (no newline).
	WriteLive(line string) error
	// Snapshot line: append a historical line with timestamp.
	WriteSnapshot(ts time.Time, line string) error
	// Normal newline (for logs).
	NewLine() error
}
