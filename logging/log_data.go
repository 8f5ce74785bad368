package logging

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogData collects fields and timings for one request.
type LogData struct {
	mu        sync.Mutex
	timeItems map[string]int64
	dataItems map[string]interface{}
	logger    logrus.FieldLogger
}

func NewLogData(logger logrus.FieldLogger) *LogData {
	return &LogData{
		timeItems: make(map[string]int64),
		dataItems: make(map[string]interface{}),
		logger:    logger,
	}
}

// AddTiming starts a timer; calling the returned func records the elapsed
// milliseconds under entryName.
func (l *LogData) AddTiming(entryName string) func() {
	startTime := time.Now()

	return func() {
		timeSince := time.Since(startTime).Milliseconds()
		l.mu.Lock()
		defer l.mu.Unlock()
		l.timeItems[entryName] = timeSince
	}
}

func (l *LogData) AddData(key string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dataItems[key] = value
}

func (l *LogData) Log() *logrus.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(logrus.Fields, len(l.dataItems)+len(l.timeItems))
	for key, value := range l.dataItems {
		fields[key] = value
	}
	for key, value := range l.timeItems {
		fields[key] = value
	}
	return l.logger.WithFields(fields)
}

// =============================================================================
// CONTEXT
// =============================================================================

type ctxKey struct{}

// WithLogData stores ld in ctx.
func WithLogData(ctx context.Context, ld *LogData) context.Context {
	return context.WithValue(ctx, ctxKey{}, ld)
}

// FromContext returns the request's LogData. Outside a request it returns
// a LogData on the standard logger so callers never need a nil check.
func FromContext(ctx context.Context) *LogData {
	if ld, ok := ctx.Value(ctxKey{}).(*LogData); ok {
		return ld
	}
	return NewLogData(logrus.StandardLogger())
}
