package gatews

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// CloseStatus is a close code plus an optional reason, either built locally before
// initiating a close handshake or parsed from the close frame the remote sent.
type CloseStatus struct {
	Code   uint16
	Reason string
}

// NormalClose is the status sent for every locally initiated graceful close.
var NormalClose = CloseStatus{Code: CloseCodeNormal}

// Close codes registered with IANA, plus the boundaries of the private-use range.
// https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number
const (
	CloseCodeNormal          uint16 = 1000
	CloseCodeGoingAway       uint16 = 1001
	CloseCodeProtocolError   uint16 = 1002
	CloseCodeUnsupportedData uint16 = 1003
	CloseCodeInternalError   uint16 = 1011

	closeCodePrivateMin uint16 = 3000
	closeCodePrivateMax uint16 = 4999
)

// maxCloseReasonLen bounds the reason so the whole close payload fits in a control
// frame: 125 bytes, two of which hold the code.
const maxCloseReasonLen = 123

func (s CloseStatus) String() string {
	if s.Reason == "" {
		return fmt.Sprintf("CloseStatus{code=%d}", s.Code)
	}
	return fmt.Sprintf("CloseStatus{code=%d,reason=%q}", s.Code, s.Reason)
}

// MarshalBinary encodes the status as a close-frame payload: 16-bit big-endian code
// followed by the UTF-8 reason bytes, per RFC 6455 section 5.5.1.
func (s CloseStatus) MarshalBinary() ([]byte, error) {
	if len(s.Reason) > maxCloseReasonLen {
		return nil, errors.Errorf(
			"close reason exceeds %d bytes: %q", maxCloseReasonLen, s.Reason)
	}
	if !validWireCloseCode(s.Code) {
		return nil, errors.Errorf("close code %d cannot be sent on the wire", s.Code)
	}
	buf := make([]byte, 2+len(s.Reason))
	binary.BigEndian.PutUint16(buf, s.Code)
	copy(buf[2:], s.Reason)
	return buf, nil
}

// ParseCloseStatus decodes a close-frame payload. An empty payload is legal and
// yields a zero status, as the remote is allowed to close without a code.
func ParseCloseStatus(payload []byte) (CloseStatus, error) {
	if len(payload) == 0 {
		return CloseStatus{}, nil
	}
	if len(payload) == 1 {
		return CloseStatus{}, errors.New("close payload of one byte is illegal")
	}
	s := CloseStatus{
		Code:   binary.BigEndian.Uint16(payload),
		Reason: string(payload[2:]),
	}
	if !validWireCloseCode(s.Code) {
		return CloseStatus{}, errors.Errorf("invalid close code %d", s.Code)
	}
	if !utf8.ValidString(s.Reason) {
		return CloseStatus{}, errors.Errorf("close reason is not valid UTF-8: %q", s.Reason)
	}
	return s, nil
}

// validWireCloseCode reports whether a code may travel inside a close frame.
// 1004-1006 and 1015 are reserved for local error reporting only.
func validWireCloseCode(code uint16) bool {
	switch code {
	case 1004, 1005, 1006, 1015:
		return false
	}
	if code >= CloseCodeNormal && code <= 1014 {
		return true
	}
	return code >= closeCodePrivateMin && code <= closeCodePrivateMax
}
