package gatews

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisconnectBehaviorConstructors(t *testing.T) {
	cause := errors.New("cause")

	assert.Equal(t, DisconnectBehavior{Action: ActionRetry, Cause: cause}, Retry(cause))
	assert.Equal(t, DisconnectBehavior{Action: ActionRetryAbruptly, Cause: cause}, RetryAbruptly(cause))
	assert.Equal(t, DisconnectBehavior{Action: ActionStop, Cause: cause}, Stop(cause))
	assert.Equal(t, DisconnectBehavior{Action: ActionStopAbruptly, Cause: cause}, StopAbruptly(cause))

	assert.False(t, Retry(nil).IsAbrupt())
	assert.False(t, Stop(nil).IsAbrupt())
	assert.True(t, RetryAbruptly(nil).IsAbrupt())
	assert.True(t, StopAbruptly(nil).IsAbrupt())
}

func TestDisconnectBehaviorOutboundEffect(t *testing.T) {
	cause := errors.New("upstream fault")

	// Graceful actions always map to the normal close frame, regardless of any
	// informational cause they may carry.
	for _, b := range []DisconnectBehavior{Retry(nil), Stop(nil), Retry(cause), Stop(cause)} {
		status, err := b.outboundEffect()
		require.NoError(t, err, b.String())
		assert.Equal(t, NormalClose, status)
	}

	// Abrupt actions raise their cause instead of sending a frame.
	for _, b := range []DisconnectBehavior{RetryAbruptly(cause), StopAbruptly(cause)} {
		_, err := b.outboundEffect()
		require.ErrorIs(t, err, cause)
	}

	// Abrupt without a cause raises the synthetic partial disconnect, which is
	// distinct from any externally supplied error.
	for _, b := range []DisconnectBehavior{RetryAbruptly(nil), StopAbruptly(nil)} {
		_, err := b.outboundEffect()
		require.ErrorIs(t, err, ErrPartialDisconnect)
		require.NotErrorIs(t, err, cause)
	}
}

func TestDisconnectActionString(t *testing.T) {
	assert.Equal(t, "RETRY", ActionRetry.String())
	assert.Equal(t, "RETRY_ABRUPTLY", ActionRetryAbruptly.String())
	assert.Equal(t, "STOP", ActionStop.String())
	assert.Equal(t, "STOP_ABRUPTLY", ActionStopAbruptly.String())
}
