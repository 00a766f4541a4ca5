package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	base    zerolog.Logger
	noColor bool
)

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	cyan  = "\033[36m"
	white = "\033[37m"
	amber = "\033[38;5;214m"
	gold  = "\033[38;5;220m"
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	Configure("info", true)
}

// Configure rebuilds the process logger. Pretty mode writes colored console
// lines; otherwise each entry is a single JSON object.
func Configure(level string, pretty bool) {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05", NoColor: noColor}
	}
	SetOutput(w, level)
}

// SetOutput points the logger at w. Used by tests to capture entries.
func SetOutput(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	base = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
}

func get() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

func c(code, text string) string {
	if noColor {
		return text
	}
	return code + text + reset
}

// raw writes directly to stderr, bypassing level filtering. Reserved for the
// startup banner and listen address block.
func raw(format string, args ...interface{}) {
	mu.Lock()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	mu.Unlock()
}

func Banner() {
	lines := "\n" +
		"  " + c(amber, `.--------.`) + "\n" +
		"  " + c(amber, `|  [==]  |`) + "  " + c(bold+gold, "DirectorChair") + "\n" +
		"  " + c(amber, `'--.  .--'`) + "  " + c(dim, "Quiet on set.") + "\n" +
		"  " + c(amber, `   /__\`) + "\n" +
		c(dim, " ─────────────────────────────────") + "\n"
	mu.Lock()
	fmt.Fprint(os.Stderr, lines)
	mu.Unlock()
}

func Debug(format string, args ...interface{}) {
	get().Debug().Msgf(format, args...)
}

func Info(format string, args ...interface{}) {
	get().Info().Msgf(format, args...)
}

func Success(format string, args ...interface{}) {
	get().Info().Bool("ok", true).Msgf(format, args...)
}

func Warn(format string, args ...interface{}) {
	get().Warn().Msgf(format, args...)
}

func Error(format string, args ...interface{}) {
	get().Error().Msgf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	Error(format, args...)
	os.Exit(1)
}

func WS(event, detail string) {
	get().Debug().Str("ws", event).Msg(detail)
}

func HTTP(method, path string, status int, dur time.Duration) {
	l := get()
	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = l.Error()
	case status >= 400:
		ev = l.Warn()
	default:
		ev = l.Info()
	}
	ev.Str("method", method).
		Int("status", status).
		Str("path", path).
		Str("took", fmtDuration(dur)).
		Msg("request")
}

func Shutdown(format string, args ...interface{}) {
	raw("")
	get().Info().Msgf(format, args...)
}

func Bye() {
	raw("%s", c(dim, "  Cut. That's a wrap."))
	raw("")
}

func fmtDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		ms := float64(d.Microseconds()) / 1000.0
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%.0fms", ms)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
