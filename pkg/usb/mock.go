package usb

import "errors"

// ControlCall records the setup fields of one control transfer issued
// against a MockDevice.
type ControlCall struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      int // size of the data stage buffer (wLength)
}

// MockReply scripts the outcome of one control transfer.
type MockReply struct {
	Data []byte // copied into the caller's buffer
	Err  error  // returned instead when set
}

// MockDevice is a scripted stand-in for a device's control pipe. Replies
// are consumed in order and every call is recorded, so tests can assert
// both the setup fields sent and the number of transfers issued.
type MockDevice struct {
	Replies []MockReply
	Calls   []ControlCall
}

func (m *MockDevice) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	m.Calls = append(m.Calls, ControlCall{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      len(data),
	})
	if len(m.Replies) == 0 {
		return 0, errors.New("no scripted reply")
	}
	r := m.Replies[0]
	m.Replies = m.Replies[1:]
	if r.Err != nil {
		return 0, r.Err
	}
	return copy(data, r.Data), nil
}
