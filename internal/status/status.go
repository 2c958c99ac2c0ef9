// Package status abstracts the appliance's visual indicator.
package status

import "log/slog"

// Indicator signals appliance state to an observer standing at the
// device. Implementations must be safe for concurrent use.
type Indicator interface {
	// Ready marks the appliance as serving.
	Ready()
	// Pulse signals a recognition notification being emitted.
	Pulse(name string)
	// Off extinguishes the indicator during shutdown.
	Off()
}

// LogIndicator reports state transitions through the structured logger.
// It stands in for hardware on builds without a physical indicator.
type LogIndicator struct {
	logger *slog.Logger
}

func NewLogIndicator(logger *slog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

func (l *LogIndicator) Ready() {
	l.logger.Info("indicator ready")
}

func (l *LogIndicator) Pulse(name string) {
	l.logger.Info("indicator pulse", slog.String("name", name))
}

func (l *LogIndicator) Off() {
	l.logger.Info("indicator off")
}

// NopIndicator discards all transitions.
type NopIndicator struct{}

func (NopIndicator) Ready()            {}
func (NopIndicator) Pulse(name string) {}
func (NopIndicator) Off()              {}
