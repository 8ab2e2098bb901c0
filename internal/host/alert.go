package host

import (
	"go.uber.org/zap"
)

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

// Alert implements Alerter.
func (f AlertFunc) Alert(message string) { f(message) }

// LogAlerter reports alerts through a logger. It is the headless default.
type LogAlerter struct {
	Logger *zap.Logger
}

// Alert implements Alerter.
func (a LogAlerter) Alert(message string) {
	a.Logger.Error("Alert", zap.String("message", message))
}
