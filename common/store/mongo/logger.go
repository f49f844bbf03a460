package mongo

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// logger is the driver's LogSink backed by zerolog. Driver info maps to
// debug and driver debug to trace, so command chatter stays out of info logs.
type logger struct {
	log zerolog.Logger
}

func (l *logger) Info(level int, message string, keysAndValues ...any) {
	var event *zerolog.Event
	switch options.LogLevel(level) {
	case options.LogLevelInfo:
		event = l.log.Debug()
	case options.LogLevelDebug:
		event = l.log.Trace()
	default:
		return
	}
	withFields(event, keysAndValues).Msg(message)
}

func (l *logger) Error(err error, message string, keysAndValues ...any) {
	withFields(l.log.Error().Err(err), keysAndValues).Msg(message)
}

// withFields attaches alternating key/value pairs. A dangling key gets a nil
// value and non-string keys are formatted.
func withFields(event *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		var value any
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		event = event.Interface(key, value)
	}
	return event
}
