package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Journal writes one JSON line per editor command. It satisfies
// dispatcher.Logger so a dispatcher can log straight into it.
type Journal struct {
	logger zerolog.Logger
}

// NewJournal writes to w at debug level and above.
func NewJournal(w io.Writer) *Journal {
	return &Journal{logger: zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()}
}

func (j *Journal) Debug(msg string, keysAndValues ...any) {
	j.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (j *Journal) Info(msg string, keysAndValues ...any) {
	j.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (j *Journal) Error(msg string, keysAndValues ...any) {
	j.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields pairs up keys and values; a dangling key or a non-string key is dropped.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
