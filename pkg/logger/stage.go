package logger

import "time"

// StageLogger logs the start and outcome of one pipeline stage with its
// duration and any counters collected along the way.
type StageLogger struct {
	logger    Logger
	stage     string
	fields    Fields
	startTime time.Time
}

// NewStageLogger creates a stage logger and logs the stage start at debug level.
func NewStageLogger(stage string, logger Logger) *StageLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	sl := &StageLogger{
		logger:    logger,
		stage:     stage,
		fields:    make(Fields),
		startTime: time.Now(),
	}

	sl.logger.WithField("stage", stage).Debug("Stage started")
	return sl
}

// WithField adds a field reported when the stage finishes
func (sl *StageLogger) WithField(key string, value interface{}) *StageLogger {
	sl.fields[key] = value
	return sl
}

func (sl *StageLogger) finalFields(status string) Fields {
	fields := Fields{
		"stage":    sl.stage,
		"duration": time.Since(sl.startTime).String(),
		"status":   status,
	}
	for k, v := range sl.fields {
		fields[k] = v
	}
	return fields
}

// Success logs successful completion of the stage
func (sl *StageLogger) Success(message string) {
	sl.logger.WithFields(sl.finalFields("success")).Info(message)
}

// Fail logs the stage as failed
func (sl *StageLogger) Fail(err error, message string) {
	sl.logger.WithError(err).WithFields(sl.finalFields("error")).Error(message)
}

// Elapsed returns the time since the stage started
func (sl *StageLogger) Elapsed() time.Duration {
	return time.Since(sl.startTime)
}

// TimedStage runs fn inside a stage and logs its outcome.
func TimedStage(stage string, logger Logger, fn func(*StageLogger) error) error {
	sl := NewStageLogger(stage, logger)

	if err := fn(sl); err != nil {
		sl.Fail(err, "Stage failed")
		return err
	}

	sl.Success("Stage completed")
	return nil
}
