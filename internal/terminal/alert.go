package terminal

// AlertBox holds the alert the frontend is blocked on. It implements
// host.Alerter and is shared between the host and the model.
type AlertBox struct {
	message string
}

// Alert implements host.Alerter. The first alert wins.
func (a *AlertBox) Alert(message string) {
	if a.message == "" {
		a.message = message
	}
}

// Message returns the pending alert, or "" when there is none.
func (a *AlertBox) Message() string {
	return a.message
}
