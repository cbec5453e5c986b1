package gatews

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// RemoteCloseState tells how much of the remote close handshake was observed
// before the session terminated.
type RemoteCloseState uint8

const (
	// RemoteCloseUnknown means the session aborted before observing the end of
	// the inbound stream: whether the remote sent a close frame is unknowable.
	RemoteCloseUnknown RemoteCloseState = iota

	// RemoteCloseReceived means the remote sent a close frame; Status carries it.
	RemoteCloseReceived

	// RemoteCloseAbsent means the inbound stream ended with no close frame.
	RemoteCloseAbsent
)

func (s RemoteCloseState) String() string {
	switch s {
	case RemoteCloseReceived:
		return "received"
	case RemoteCloseAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// RemoteClose is what the remote reported when the session ended. Status is only
// meaningful when State is RemoteCloseReceived.
type RemoteClose struct {
	State  RemoteCloseState
	Status CloseStatus
}

// SessionResult pairs the local decision that terminated a session with whatever
// the remote reported. Keeping both apart lets the supervising component tell who
// initiated the close, whether it was graceful and what the remote actually said
// without conflating them into one value.
type SessionResult struct {
	Behavior DisconnectBehavior
	Remote   RemoteClose
}

// WebSocketSession drives the lifecycle of one gateway connection: it pulls
// outbound payloads from a source channel, pushes decompressed inbound messages
// into a sink channel, owns the one-shot close signal and yields a single result
// describing why the session ended.
//
// One instance covers exactly one connection attempt and is never reused across
// reconnects. The decompressor it owns is released on every termination path.
type WebSocketSession struct {
	inbound      chan<- []byte
	outbound     <-chan []byte
	sessionClose *signal[DisconnectBehavior]
	remoteClose  *signal[RemoteClose]
	decompressor *StreamDecompressor
	logger       Logger
	handled      atomic.Bool
}

// NewWebSocketSession creates a session pushing decompressed inbound messages
// into inbound and pulling outbound payloads from outbound until it is closed.
// The id enriches every log line produced by this session.
func NewWebSocketSession(
	id string,
	inbound chan<- []byte,
	outbound <-chan []byte,
	logger Logger,
) *WebSocketSession {
	return &WebSocketSession{
		inbound:      inbound,
		outbound:     outbound,
		sessionClose: newSignal[DisconnectBehavior](),
		remoteClose:  newSignal[RemoteClose](),
		decompressor: NewStreamDecompressor(),
		logger:       logger.WithField("session", id),
	}
}

// Handle manages an already connected transport until the remote closes, the
// local side requests a close through Close, CloseWith or Error, or either flow
// fails. It blocks until both the inbound and the outbound flows have fully
// terminated and always returns a result carrying some DisconnectBehavior;
// network failures are folded into it rather than returned as an error.
//
// Callable at most once per session: later invocations fail with ErrSessionReused.
func (s *WebSocketSession) Handle(
	ctx context.Context,
	in TransportReader,
	out TransportWriter,
) (SessionResult, error) {
	if !s.handled.CompareAndSwap(false, true) {
		return SessionResult{}, ErrSessionReused
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.decompressor.Close()

	outC := make(chan error, 1)
	inC := make(chan error, 1)

	go func() { outC <- s.writeLoop(ctx, out) }()
	go func() { inC <- s.readLoop(ctx, in) }()

	// Join both flows. The first failure becomes the local error path and cancels
	// the sibling, so inbound and outbound always share fate.
	for i := 0; i < 2; i++ {
		var err error
		select {
		case err = <-outC:
		case err = <-inC:
		}
		if err != nil {
			s.Error(err)
			cancel()
		}
	}

	// Both flows are done; leave some behavior recorded even on paths that never
	// wrote the close signal, then pair it with what the remote reported.
	s.CloseWith(RetryAbruptly(errors.Wrap(ErrConnectionClosed, "session ended without close request")))

	behavior, _ := s.sessionClose.Value()
	remote, ok := s.remoteClose.Value()
	if !ok {
		remote = RemoteClose{State: RemoteCloseUnknown}
	}

	s.logger.Debugf("session terminated with %s, remote close %s", behavior, remote.State)

	return SessionResult{Behavior: behavior, Remote: remote}, nil
}

// Close initiates a close sequence that will terminate this session and instruct
// the supervising component that a reconnect should take place afterwards.
func (s *WebSocketSession) Close() {
	s.CloseWith(Retry(nil))
}

// CloseWith writes behavior into the one-shot close signal. Only the first write
// per session takes effect; later calls from any goroutine are no-ops, including
// before Handle has started or after the session terminated.
func (s *WebSocketSession) CloseWith(behavior DisconnectBehavior) {
	if s.sessionClose.Set(behavior) {
		s.logger.Debugf("closing session with behavior: %s", behavior)
	}
}

// Error initiates an abrupt close sequence carrying the given cause, after which
// the supervising component should reconnect.
func (s *WebSocketSession) Error(cause error) {
	s.CloseWith(RetryAbruptly(cause))
}

// writeLoop is the outbound flow: it forwards payloads from the outbound source
// as text frames until the close signal fires, then maps the behavior to either a
// close frame or a failure. The close frame takes priority over queued payloads.
func (s *WebSocketSession) writeLoop(ctx context.Context, out TransportWriter) error {
	source := s.outbound

	for {
		select {
		case <-s.sessionClose.Done():
			return s.writeClose(ctx, out)
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.sessionClose.Done():
			return s.writeClose(ctx, out)
		case payload, ok := <-source:
			if !ok {
				// Source completed; keep draining the close signal only.
				source = nil
				continue
			}
			if err := out.WriteFrame(ctx, NewTextFrame(payload)); err != nil {
				return errors.Wrap(err, "cannot write payload frame")
			}
		}
	}
}

func (s *WebSocketSession) writeClose(ctx context.Context, out TransportWriter) error {
	behavior, _ := s.sessionClose.Value()

	status, err := behavior.outboundEffect()
	if err != nil {
		return err
	}

	if err := out.WriteFrame(ctx, NewCloseFrame(status)); err != nil {
		return errors.Wrap(err, "cannot write close frame")
	}
	return nil
}

// readLoop is the inbound flow: it reads complete frames, pipes data payloads
// through the decompressor and forwards each completed message to the sink.
// Observing the remote close resolves the remote status and, when no local close
// is pending yet, requests the graceful reply that finishes the handshake.
func (s *WebSocketSession) readLoop(ctx context.Context, in TransportReader) error {
	for {
		f, err := in.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.remoteClose.Set(RemoteClose{State: RemoteCloseAbsent})
				return errors.Wrap(ErrConnectionClosed, "transport ended without close frame")
			}
			return err
		}

		switch {
		case f.Type().IsClose():
			status, err := CloseStatusOf(f)
			if err != nil {
				return errors.Wrap(err, "malformed close frame")
			}
			s.logger.Debugf("received close status: %s", status)
			s.remoteClose.Set(RemoteClose{State: RemoteCloseReceived, Status: status})
			s.Close()
			return nil
		case f.Type().IsData():
			msgs, err := s.decompressor.Feed(f.Payload())
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				select {
				case s.inbound <- msg:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		default:
			// Control frames are a transport keep-alive concern, handled below
			// this layer. See passiveKeepAliveTransport.
		}
	}
}
