package primordium

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the engine's structured logger. Grounded on
// leemwalker-thousand-worlds/internal/world/ticker_manager.go, which uses
// zerolog for its own tick-loop diagnostics.
func NewLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// logRecord is one buffered diagnostic. Phases never log synchronously
// (spec §5: no phase blocks on I/O); they append to the world's single,
// unsynchronized logBuffer, which the serial end of the tick flushes
// through the real logger.
type logRecord struct {
	level zerolog.Level
	msg    string
	fields map[string]interface{}
}

type logBuffer struct {
	records []logRecord
}

func (b *logBuffer) Warn(msg string, fields map[string]interface{}) {
	b.records = append(b.records, logRecord{level: zerolog.WarnLevel, msg: msg, fields: fields})
}

func (b *logBuffer) Info(msg string, fields map[string]interface{}) {
	b.records = append(b.records, logRecord{level: zerolog.InfoLevel, msg: msg, fields: fields})
}

// Flush writes every buffered record through logger, in the order recorded,
// then clears the buffer.
func (b *logBuffer) Flush(logger zerolog.Logger) {
	for _, r := range b.records {
		ev := logger.WithLevel(r.level)
		for k, v := range r.fields {
			ev = ev.Interface(k, v)
		}
		ev.Msg(r.msg)
	}
	b.records = b.records[:0]
}
