package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthAttempt(outcome string, duration time.Duration)                  {}
func (n *NoopMetrics) RecordDirectoryOperation(operation, result string, duration time.Duration) {}
func (n *NoopMetrics) SetDirectoryUp(up bool)                                                    {}
