package orchestrator

import "time"

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) RecordJobPlanned(int)                                  {}
func (NopMetrics) RecordJobRun(string, time.Duration)                    {}
func (NopMetrics) RecordTaskExecuted(string, string, int, time.Duration) {}
func (NopMetrics) RecordTaskRetry(string)                                {}
func (NopMetrics) RecordWorkerPoolStatus(int, int, int)                  {}
func (NopMetrics) SetQueueDepth(string, int)                             {}
func (NopMetrics) SetActiveRuns(int)                                     {}
func (NopMetrics) RecordLLMCall(string, string, time.Duration, int, int) {}
