package gatews

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPassiveKeepAliveRepliesPong(t *testing.T) {
	inner := newFakeTransport()
	tr := NewPassiveKeepAliveTransport(NewWriterLogger(io.Discard), inner)

	inner.deliver(NewPingFrame([]byte("hb")))

	f, err := tr.ReadFrame(context.Background())
	require.NoError(t, err)
	require.True(t, f.Type().IsPing(), "pings are forwarded, not swallowed")

	written := inner.writtenFrames()
	require.Len(t, written, 1)
	require.True(t, written[0].Type().IsPong())
	require.Equal(t, []byte("hb"), written[0].Payload())
}

func TestPassiveKeepAliveForwardsDataUntouched(t *testing.T) {
	inner := newFakeTransport()
	tr := NewPassiveKeepAliveTransport(NewWriterLogger(io.Discard), inner)

	inner.deliver(NewBinaryFrame([]byte{0x01}))

	f, err := tr.ReadFrame(context.Background())
	require.NoError(t, err)
	require.True(t, f.Type().IsBinary())
	require.Empty(t, inner.writtenFrames())
}

func TestActiveKeepAliveSendsPeriodicPings(t *testing.T) {
	inner := newFakeTransport()
	tr := NewActiveKeepAliveTransport(
		NewWriterLogger(io.Discard),
		inner,
		10*time.Millisecond,
		NewPingFrameFactory(func() []byte { return []byte("ka") }),
	)

	require.NoError(t, tr.Open(context.Background()))
	defer tr.Close()

	select {
	case f := <-inner.writeC:
		require.True(t, f.Type().IsPing())
		require.Equal(t, []byte("ka"), f.Payload())
	case <-time.After(time.Second):
		t.Fatal("no ping was sent")
	}
}

func TestActiveKeepAliveStopsOnClose(t *testing.T) {
	inner := newFakeTransport()
	tr := NewActiveKeepAliveTransport(
		NewWriterLogger(io.Discard),
		inner,
		5*time.Millisecond,
		NewPingFrameFactory(func() []byte { return nil }),
	)

	require.NoError(t, tr.Open(context.Background()))
	tr.Close()
	tr.Close() // idempotent

	// Drain whatever was in flight, then expect silence.
	time.Sleep(20 * time.Millisecond)
	for len(inner.writeC) > 0 {
		<-inner.writeC
	}
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, inner.writeC)
}
