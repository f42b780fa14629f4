package middleware

import (
	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/event"
)

// Logger logs each record that passes through the pipeline.
type Logger struct {
	log   *logrus.Entry
	level logrus.Level
}

// NewLogger creates a logging middleware. A nil entry logs through the
// standard logger. Records are logged at debug level unless WithLevel is used.
func NewLogger(l *logrus.Entry) *Logger {
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Logger{log: l, level: logrus.DebugLevel}
}

// WithLevel sets the level records are logged at.
func (l *Logger) WithLevel(level logrus.Level) *Logger {
	l.level = level
	return l
}

// Wrap decorates the handler with record logging.
func (l *Logger) Wrap(next Handler) Handler {
	return func(rec event.Record) *event.Record {
		fields := logrus.Fields{
			"event": rec.Kind.String(),
			"block": rec.Block.Hex(),
			"phase": rec.Phase.String(),
		}
		if rec.Phase == event.PhaseApplyExtrinsic {
			fields["extrinsic_index"] = rec.ExtrinsicIndex
		}
		if rec.Extrinsic != nil {
			fields["extrinsic"] = rec.Extrinsic.Hex()
		}
		l.log.WithFields(fields).Log(l.level, "event")
		return next(rec)
	}
}
