package gatews

import (
	"context"
	"sync"
	"time"
)

type PingFrameFactory func() Frame

// passiveKeepAliveTransport automatically replies to the remote's pings with
// pongs so the connection stays alive without the session caring. Frames are
// forwarded untouched, pings included.
type passiveKeepAliveTransport struct {
	Transport
	logger Logger
}

func (t *passiveKeepAliveTransport) ReadFrame(ctx context.Context) (Frame, error) {
	f, err := t.Transport.ReadFrame(ctx)
	if err == nil && f.Type().IsPing() {
		if werr := t.Transport.WriteFrame(ctx, NewPongFrame(f.Payload())); werr != nil {
			t.logger.Warnf("cannot reply ping with pong: %s", werr)
		}
	}
	return f, err
}

// NewPassiveKeepAliveTransport wraps a transport so inbound pings are answered
// with pongs carrying the same payload.
func NewPassiveKeepAliveTransport(logger Logger, inner Transport) Transport {
	return &passiveKeepAliveTransport{
		Transport: inner,
		logger:    logger.WithField("net", "keep_alive_passive"),
	}
}

// activeKeepAliveTransport sends periodic pings over the wrapped transport for
// peers that expect the client to drive the keep-alive exchange.
type activeKeepAliveTransport struct {
	Transport
	pingInterval time.Duration
	pingFactory  PingFrameFactory
	logger       Logger

	openOnce  sync.Once
	closeOnce sync.Once
	closeC    chan struct{}
}

// Open opens the wrapped transport and starts the ping routine.
// It only executes once, subsequent calls have no effect.
func (t *activeKeepAliveTransport) Open(ctx context.Context) (err error) {
	t.openOnce.Do(func() {
		err = t.Transport.Open(ctx)
		if err != nil {
			return
		}
		go t.run(ctx)
	})
	return
}

// Close terminates the wrapped transport and stops the ping routine.
// It only executes once, subsequent calls have no effect.
func (t *activeKeepAliveTransport) Close() {
	t.closeOnce.Do(func() {
		t.Transport.Close()
		close(t.closeC)
	})
}

// run sends one ping per interval until the transport or the context ends.
func (t *activeKeepAliveTransport) run(ctx context.Context) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closeC:
			return
		case <-t.Transport.CloseChan():
			return
		case <-ticker.C:
			if err := t.Transport.WriteFrame(ctx, t.pingFactory()); err != nil {
				t.logger.Warnf("cannot send keep-alive ping: %s", err)
				return
			}
		}
	}
}

// NewActiveKeepAliveTransport wraps a transport so a ping built by the given
// factory is written every interval while the connection lives.
func NewActiveKeepAliveTransport(
	logger Logger,
	inner Transport,
	interval time.Duration,
	pingFactory PingFrameFactory,
) Transport {
	return &activeKeepAliveTransport{
		Transport:    inner,
		logger:       logger.WithField("net", "keep_alive_active"),
		pingInterval: interval,
		pingFactory:  pingFactory,
		closeC:       make(chan struct{}),
	}
}

// NewPingFrameFactory builds a PingFrameFactory whose payload comes from the
// given content factory on every tick.
func NewPingFrameFactory(contentFactory func() []byte) PingFrameFactory {
	return func() Frame {
		return NewPingFrame(contentFactory())
	}
}
