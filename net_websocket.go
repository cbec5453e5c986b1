package gatews

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

type (
	gatewayParamsRepo interface {
		Get(ctx context.Context) (GatewayParams, error)
	}

	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsTransport is a Transport backed by one fasthttp websocket connection.
	// A single pump goroutine reads complete frames off the wire into a channel
	// so ReadFrame can suspend on context cancellation; writes go straight to
	// the connection under a mutex.
	WsTransport struct {
		errAdapters       ErrorAdapters
		gatewayParamsRepo gatewayParamsRepo
		logger            Logger
		emitter           *EventEmitterCallback[EventType, EventType]
		dialer            *websocket.Dialer
		conn              *websocket.Conn
		closeChan         CloseChan
		closeOnce         sync.Once
		closeReason       error
		closeReasonOnce   sync.Once
		frames            chan Frame
		readErr           chan error
		writeMu           sync.Mutex
	}
)

func NewWsTransport(
	dialer *websocket.Dialer,
	paramsRepo GatewayParamsRepo,
	logger Logger,
	emitter *EventEmitterCallback[EventType, EventType],
	errorHandlers ErrorAdapters,
) *WsTransport {
	if emitter == nil {
		emitter = NewEventEmitter[EventType, EventType]()
	}
	return &WsTransport{
		errAdapters:       errorHandlers,
		dialer:            dialer,
		gatewayParamsRepo: paramsRepo,
		emitter:           emitter,
		closeChan:         make(CloseChan),
		frames:            make(chan Frame, 16),
		readErr:           make(chan error, 1),
		logger:            logger.WithField("net", "ws_transport"),
	}
}

func NewWsTransportFactory(
	logger Logger,
	dialer *websocket.Dialer,
	paramsRepo GatewayParamsRepo,
	emitter *EventEmitterCallback[EventType, EventType],
	errorHandlers ErrorAdapters,
) TransportFactory {
	return func(ctx context.Context) Transport {
		return NewWsTransport(
			dialer,
			paramsRepo,
			logger,
			emitter,
			errorHandlers,
		)
	}
}

// Open resolves the gateway params, dials and starts the read pump.
// This method is blocking and returns when the connection is successfully
// established or an error occurs.
func (w *WsTransport) Open(ctx context.Context) error {
	p, err := w.gatewayParamsRepo.Get(ctx)
	if err != nil {
		w.logger.Errorf("cannot get gateway params due to %s: ", err)
		return err
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)

	if err = w.handleDialError(conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s, %+v", p.URL.String(), err, resp)
		return err
	}

	w.logger.Debugf("success opening connection to %s", p.URL.String())

	w.conn = conn

	// Override control message handlers to surface them as frames, so the
	// layers above keep full control over close and keep-alive traffic.
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		w.deliver(NewPingFrame([]byte(appData)))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		w.logger.Debugln("<= [PONG]")
		w.deliver(NewPongFrame([]byte(appData)))
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugln("<= [CLOSE]")
		w.deliver(NewCloseFrame(CloseStatus{Code: uint16(code), Reason: text}))
		return nil
	})

	go w.emitter.Emit(EventConnect, EventConnect)
	go w.readPump()

	return nil
}

// ReadFrame returns the next complete frame the pump aggregated, suspending on
// ctx until one is available or the transport closes.
func (w *WsTransport) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case f := <-w.frames:
		return f, nil
	default:
	}

	select {
	case f := <-w.frames:
		return f, nil
	case err := <-w.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.closeChan:
		return nil, errors.Wrap(ErrConnectionClosed, "transport closed while reading")
	}
}

// WriteFrame writes one frame to the wire, mapping control frame types onto
// websocket control messages.
func (w *WsTransport) WriteFrame(ctx context.Context, f Frame) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = w.conn.SetWriteDeadline(deadline)

	var err error

	switch f.Type() {
	case PingFrame:
		w.logger.Debugln("=> [PING]")
		err = w.conn.WriteControl(websocket.PingMessage, f.Payload(), deadline)
	case PongFrame:
		w.logger.Debugln("=> [PONG]")
		err = w.conn.WriteControl(websocket.PongMessage, f.Payload(), deadline)
	case CloseFrame:
		w.logger.Debugln("=> [CLOSE]")
		err = w.conn.WriteControl(websocket.CloseMessage, f.Payload(), deadline)
	case BinaryFrame:
		w.logger.Debugf("=> [BIN] %d bytes", len(f.Payload()))
		err = w.conn.WriteMessage(websocket.BinaryMessage, f.Payload())
	default:
		w.logger.Debugf("=> [DATA] %s", f.Payload())
		err = w.conn.WriteMessage(websocket.TextMessage, f.Payload())
	}

	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure,
		) {
			err = ErrConnectionClosed
		} else {
			err = errors.Wrap(ErrConnectionClosed, err.Error())
		}
		w.setCloseReason(err)
	}

	return err
}

// Close terminates the transport. It ensures that all resources related to the
// connection are cleaned up. Idempotent.
func (w *WsTransport) Close() {
	w.safeClose()
}

// CloseChan returns a channel that will be closed when the transport is closed.
func (w *WsTransport) CloseChan() CloseChan {
	return w.closeChan
}

// CloseErr returns an error that explains why the transport was closed.
// If it closed normally, CloseErr returns nil.
func (w *WsTransport) CloseErr() error {
	return w.closeReason
}

// readPump moves complete frames off the wire until the connection dies. Frame
// aggregation is done by the websocket library: ReadMessage only returns whole,
// defragmented messages.
func (w *WsTransport) readPump() {
	for {
		messageType, bts, err := w.conn.ReadMessage()
		if err != nil {
			w.readErr <- w.adaptReadError(err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			w.logger.Debugf("<= [BIN] %d bytes", len(bts))
			w.deliver(NewBinaryFrame(bts))
		default:
			w.logger.Debugf("<= [DATA] %s", string(bts))
			w.deliver(NewTextFrame(bts))
		}
	}
}

// adaptReadError folds the library's read failures into the TransportReader
// contract: a stream ending with no close frame is io.EOF, everything else keeps
// its cause. Close frames themselves were already delivered by the close handler.
func (w *WsTransport) adaptReadError(err error) error {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		// Either the close handler already delivered the frame or the peer
		// vanished (1006). Both end the stream for the reader.
		w.setCloseReason(ErrConnectionClosed)
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		w.setCloseReason(ErrConnectionClosed)
		return io.EOF
	default:
		w.logger.Errorf("error occurred on websocket read: %s", err)
		reason := errors.Wrap(ErrConnectionClosed,
			"error occurred on websocket read: "+err.Error())
		w.setCloseReason(reason)
		return reason
	}
}

func (w *WsTransport) deliver(f Frame) {
	select {
	case w.frames <- f:
	case <-w.closeChan:
	}
}

func (w *WsTransport) safeClose() {
	w.closeOnce.Do(w.close)
}

func (w *WsTransport) close() {
	_ = w.conn.Close()
	close(w.closeChan)
	go w.emitter.Emit(EventClose, EventClose)
}

func (w *WsTransport) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}

func (w *WsTransport) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
