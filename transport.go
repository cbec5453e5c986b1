package gatews

import (
	"context"
)

type (
	CloseChan chan struct{}

	// TransportReader is the inbound half of a connected transport. ReadFrame
	// blocks until the next complete frame is available: implementations must
	// aggregate fragmented frames before handing them over. It returns io.EOF
	// once the transport ends without a close frame, and honors ctx cancellation.
	// Remote close frames are delivered in-band as CloseFrame frames.
	TransportReader interface {
		ReadFrame(ctx context.Context) (Frame, error)
	}

	// TransportWriter is the outbound half of a connected transport.
	TransportWriter interface {
		WriteFrame(ctx context.Context, f Frame) error
	}

	// Transport is a full duplex frame pipe over one physical connection.
	Transport interface {
		TransportReader
		TransportWriter

		// Open establishes the connection. It returns once the transport is
		// ready to read and write frames, or with the dial error.
		Open(ctx context.Context) error

		// CloseChan returns a channel that will be closed when the transport
		// is closed, whichever side initiated it.
		CloseChan() CloseChan

		// CloseErr returns the reason the transport closed. Nil means a
		// normal termination.
		CloseErr() error

		// Close tears the connection down and releases every resource tied
		// to it. Idempotent.
		Close()
	}

	// TransportFactory builds one transport per connection attempt.
	TransportFactory func(ctx context.Context) Transport
)
