package sioemit

import (
	"os"

	"github.com/rs/zerolog"
)

// LogOut implements zerolog.LevelWriter, splitting log lines by level:
// warnings and above go to stderr, everything else to stdout.
type LogOut struct{}

// Write should not be called
func (l LogOut) Write(p []byte) (n int, err error) {
	return os.Stdout.Write(p)
}

// WriteLevel writes to the output matching the level
func (l LogOut) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level >= zerolog.WarnLevel {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}
