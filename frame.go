package gatews

import "fmt"

// FrameType is the transport-level opcode of a frame. Values follow RFC 6455
// section 5.2 so implementations can map them straight onto the wire.
type FrameType byte

const (
	TextFrame   FrameType = 1
	BinaryFrame FrameType = 2
	CloseFrame  FrameType = 8
	PingFrame   FrameType = 9
	PongFrame   FrameType = 10
)

func (t FrameType) Is(other FrameType) bool {
	return t == other
}

func (t FrameType) IsText() bool {
	return t.Is(TextFrame)
}

func (t FrameType) IsBinary() bool {
	return t.Is(BinaryFrame)
}

// IsData reports whether the frame carries application payload bytes.
func (t FrameType) IsData() bool {
	return t.IsText() || t.IsBinary()
}

func (t FrameType) IsClose() bool {
	return t.Is(CloseFrame)
}

func (t FrameType) IsPing() bool {
	return t.Is(PingFrame)
}

func (t FrameType) IsPong() bool {
	return t.Is(PongFrame)
}

// Frame is one complete (already defragmented) unit of transport data.
type Frame interface {
	Type() FrameType
	Payload() []byte
	String() string
}

type frame struct {
	FrameType FrameType
	FrameData []byte
}

func (f frame) Type() FrameType {
	return f.FrameType
}

func (f frame) Payload() []byte {
	return f.FrameData
}

func (f frame) String() string {
	return fmt.Sprintf("Frame{type=%d,payload=%s}",
		f.FrameType, f.FrameData)
}

type closeFrame struct {
	frame
	status CloseStatus
}

func (f closeFrame) String() string {
	return fmt.Sprintf("Frame{type=%d,status=%s}",
		f.frame.Type(), f.status)
}

func NewFrame(ft FrameType, payload []byte) Frame {
	return frame{FrameType: ft, FrameData: payload}
}

func NewTextFrame(payload []byte) Frame {
	return NewFrame(TextFrame, payload)
}

func NewBinaryFrame(payload []byte) Frame {
	return NewFrame(BinaryFrame, payload)
}

func NewPingFrame(payload []byte) Frame {
	return NewFrame(PingFrame, payload)
}

func NewPongFrame(payload []byte) Frame {
	return NewFrame(PongFrame, payload)
}

// NewCloseFrame builds a close frame whose payload is the encoded status. Statuses
// that cannot legally travel on the wire degrade to an empty payload, which peers
// read as a close without a code.
func NewCloseFrame(status CloseStatus) Frame {
	payload, err := status.MarshalBinary()
	if err != nil {
		payload = nil
	}
	return closeFrame{
		frame:  frame{FrameType: CloseFrame, FrameData: payload},
		status: status,
	}
}

// CloseStatusOf extracts the close status carried by a close frame, decoding the
// payload when the frame was not built through NewCloseFrame.
func CloseStatusOf(f Frame) (CloseStatus, error) {
	if !f.Type().IsClose() {
		return CloseStatus{}, fmt.Errorf("frame %s is not a close frame", f)
	}
	if cf, ok := f.(closeFrame); ok {
		return cf.status, nil
	}
	return ParseCloseStatus(f.Payload())
}
