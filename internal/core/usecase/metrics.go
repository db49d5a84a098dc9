package usecase

type noopMetrics struct{}

func (noopMetrics) RecordToolCall(string, string) {}
func (noopMetrics) RecordReplan(string) {}
func (noopMetrics) RecordPlanSource(string) {}
func (noopMetrics) RecordRun(string, float64) {}
