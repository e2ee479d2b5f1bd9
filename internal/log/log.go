// Package log provides structured, colored logging for automint.
// Logs go to stderr so command output on stdout stays pipeable.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	CLI      zerolog.Logger
	Node     zerolog.Logger // cardano-cli invocations
	Wallet   zerolog.Logger
	Tx       zerolog.Logger
	Policy   zerolog.Logger
	Storage  zerolog.Logger
	Explorer zerolog.Logger
)

const timeFormat = "15:04:05"

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init configures the global logger. Console output is colored unless
// jsonOutput is set. A non-empty file additionally receives every entry as
// JSON. A non-empty network is attached to every entry.
func Init(level string, jsonOutput bool, file, network string) error {
	var console io.Writer = os.Stderr
	if !jsonOutput {
		console = consoleWriter(os.Stderr)
	}

	w := console
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = zerolog.MultiLevelWriter(console, f)
	}

	ctx := zerolog.New(w).Level(parseLevel(level)).With().Timestamp()
	if network != "" {
		ctx = ctx.Str("network", network)
	}
	Logger = ctx.Logger()
	initComponentLoggers()
	return nil
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// parseLevel maps a level name to a zerolog level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func initComponentLoggers() {
	CLI = component("cli")
	Node = component("node")
	Wallet = component("wallet")
	Tx = component("tx")
	Policy = component("policy")
	Storage = component("storage")
	Explorer = component("explorer")
}

func component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Timer logs the duration of an operation at debug level when the returned
// func is called.
func Timer(l zerolog.Logger, op string) func() {
	start := time.Now()
	return func() {
		l.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("Timing")
	}
}
