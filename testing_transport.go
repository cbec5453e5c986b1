package gatews

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// fakeTransport scripts inbound frames and records outbound ones. Buffered
// inbound frames are always drained before a terminal read error is surfaced.
type fakeTransport struct {
	inC    chan Frame
	errC   chan error
	writeC chan Frame

	closeC    CloseChan
	closeOnce sync.Once

	mu      sync.Mutex
	written []Frame
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inC:    make(chan Frame, 32),
		errC:   make(chan error, 1),
		writeC: make(chan Frame, 32),
		closeC: make(CloseChan),
	}
}

func (t *fakeTransport) Open(ctx context.Context) error { return nil }

func (t *fakeTransport) Close() {
	t.closeOnce.Do(func() { close(t.closeC) })
}

func (t *fakeTransport) CloseChan() CloseChan { return t.closeC }

func (t *fakeTransport) CloseErr() error { return nil }

func (t *fakeTransport) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case f := <-t.inC:
		return f, nil
	default:
	}

	select {
	case f := <-t.inC:
		return f, nil
	case err := <-t.errC:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) WriteFrame(ctx context.Context, f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.written = append(t.written, f)
	select {
	case t.writeC <- f:
	default:
	}
	return nil
}

// deliver scripts one inbound frame.
func (t *fakeTransport) deliver(f Frame) {
	t.inC <- f
}

// end terminates the inbound stream with the given read error.
func (t *fakeTransport) end(err error) {
	t.errC <- err
}

func (t *fakeTransport) writtenFrames() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Frame, len(t.written))
	copy(out, t.written)
	return out
}

type mockTransportWriter struct {
	mock.Mock
}

func (m *mockTransportWriter) WriteFrame(ctx context.Context, f Frame) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}
