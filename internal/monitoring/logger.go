// Package monitoring holds the process diagnostic logger. High-volume,
// per-record messages (rejected trajectories, reload notices) go through
// Logf so tests and embedding programs can redirect or mute them.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Rejectf reports a trajectory dropped at load time.
func Rejectf(hitID, playerID string, err error) {
	if hitID == "" {
		hitID = "<unnamed>"
	}
	Logf("[dataset] rejecting hit %s (player %s): %v", hitID, playerID, err)
}
