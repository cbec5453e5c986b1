package gatews

import "fmt"

// DisconnectAction tells the component supervising a session how it should proceed
// once the session terminates. Retry and Stop request a standard close handshake;
// the abrupt variants skip it and fail the transport immediately.
type DisconnectAction uint8

const (
	ActionRetry DisconnectAction = iota
	ActionRetryAbruptly
	ActionStop
	ActionStopAbruptly
)

func (a DisconnectAction) String() string {
	switch a {
	case ActionRetry:
		return "RETRY"
	case ActionRetryAbruptly:
		return "RETRY_ABRUPTLY"
	case ActionStop:
		return "STOP"
	case ActionStopAbruptly:
		return "STOP_ABRUPTLY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(a))
	}
}

// IsAbrupt reports whether the action forgoes the close handshake.
func (a DisconnectAction) IsAbrupt() bool {
	return a == ActionRetryAbruptly || a == ActionStopAbruptly
}

// DisconnectBehavior is the local decision that ends a session: which action to
// take afterwards and, optionally, the error that motivated it. It is built once
// per close request and never mutated.
type DisconnectBehavior struct {
	Action DisconnectAction
	Cause  error
}

// Retry requests a graceful close after which the supervisor should reconnect.
func Retry(cause error) DisconnectBehavior {
	return DisconnectBehavior{Action: ActionRetry, Cause: cause}
}

// RetryAbruptly fails the session without a close handshake and requests a
// reconnect afterwards.
func RetryAbruptly(cause error) DisconnectBehavior {
	return DisconnectBehavior{Action: ActionRetryAbruptly, Cause: cause}
}

// Stop requests a graceful close after which the supervisor should not reconnect.
func Stop(cause error) DisconnectBehavior {
	return DisconnectBehavior{Action: ActionStop, Cause: cause}
}

// StopAbruptly fails the session without a close handshake and requests that the
// supervisor does not reconnect.
func StopAbruptly(cause error) DisconnectBehavior {
	return DisconnectBehavior{Action: ActionStopAbruptly, Cause: cause}
}

func (b DisconnectBehavior) IsAbrupt() bool {
	return b.Action.IsAbrupt()
}

func (b DisconnectBehavior) String() string {
	if b.Cause == nil {
		return fmt.Sprintf("DisconnectBehavior{action=%s}", b.Action)
	}
	return fmt.Sprintf("DisconnectBehavior{action=%s,cause=%s}", b.Action, b.Cause)
}

// outboundEffect maps the behavior onto its wire effect: graceful actions produce
// the status for a normal close frame, abrupt actions produce the failure that
// aborts the outbound flow instead. Retry and Stop differ only in the meaning the
// supervisor attaches to them, never on the wire.
func (b DisconnectBehavior) outboundEffect() (CloseStatus, error) {
	switch b.Action {
	case ActionRetryAbruptly, ActionStopAbruptly:
		if b.Cause != nil {
			return CloseStatus{}, b.Cause
		}
		return CloseStatus{}, ErrPartialDisconnect
	default:
		return NormalClose, nil
	}
}
