package internal

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

var debugLog = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: "2006/01/02 15:04:05.000",
	NoColor:    true,
}).With().Timestamp().Logger()

func getFileLine(distance int) (string, int) {
	_, file, line, ok := runtime.Caller(1 + distance)
	if !ok {
		file = "???"
		line = 0
	}

	parts := strings.Split(file, "/")
	file = parts[len(parts)-1]

	return file, line
}

// DebugConfig is the subset of configuration debug logging needs. It avoids
// an import cycle between internal and config.
type DebugConfig interface {
	IsVerbose() bool
}

// Debugf prints a debug log message to stdout
func Debugf(conf DebugConfig, s string, args ...interface{}) {
	if !conf.IsVerbose() {
		return
	}

	file, line := getFileLine(1)
	debugLog.Debug().Str("caller", fmt.Sprintf("%s:%d", file, line)).Msgf(s, args...)
}

// DebugfDepth prints a debug log message to stdout, attributed to a caller
// further up the stack.
func DebugfDepth(conf DebugConfig, depth int, s string, args ...interface{}) {
	if !conf.IsVerbose() {
		return
	}

	file, line := getFileLine(1 + depth)
	debugLog.Debug().Str("caller", fmt.Sprintf("%s:%d", file, line)).Msgf(s, args...)
}

// Logf logs to stdout
func Logf(s string, args ...interface{}) {
	debugLog.Info().Msgf(s, args...)
}

// LogError logs the error if one occurred
func LogError(err error) {
	if err != nil {
		file, line := getFileLine(1)
		debugLog.Error().Str("caller", fmt.Sprintf("%s:%d", file, line)).Msgf("error ignored: %+v", err)
	}
}

// IgnoreError logs the error if one occurred and verbose is set
func IgnoreError(verbose bool, err error) {
	if err != nil && verbose {
		file, line := getFileLine(1)
		debugLog.Error().Str("caller", fmt.Sprintf("%s:%d", file, line)).Msgf("error ignored: %+v", err)
	}
}

// PanicOnError panics if an error is passed.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}

// CloseAll closes all supplied closers, returns the first error, and logs all
// errors.
func CloseAll(c []io.Closer) error {
	var firstErr error

	for _, cl := range c {
		if cl == nil {
			continue
		}
		if err := cl.Close(); err != nil {
			debugLog.Error().Msgf("error closing %v: %+v", cl, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// CopyBytes returns a copy of p
func CopyBytes(p []byte) []byte {
	b := make([]byte, len(p))
	copy(b, p)
	return b
}

// Prettybuf returns a human readable representation of a buffer that fits
// more or less on a log line
func Prettybuf(bufs ...[]byte) []byte {
	var flat []byte
	limit := 100
	for _, b := range bufs {
		flat = append(flat, b...)
	}
	if len(flat) > limit {
		var final []byte
		final = append(final, flat[:limit-5]...)
		final = append(final, []byte("...")...)
		final = append(final, flat[len(flat)-2:]...)
		return final
	}
	return flat
}
